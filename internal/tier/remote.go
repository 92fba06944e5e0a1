package tier

import (
	"context"

	"github.com/supabase-community/supabase-go"

	"github.com/rborin01/truepress/internal/errors"
	"github.com/rborin01/truepress/internal/news"
)

// Remote is the network-accessible authoritative tier, backed by
// supabase (postgrest). It is treated as the most broadly synchronized
// truth when reachable, but the system must stay usable fully offline:
// callers wrap every Remote call so a network failure degrades to
// "operation skipped, warning logged" instead of propagating.
type Remote struct {
	client    *supabase.Client
	newsTable string
	snapTable string
}

// newsRow is the wire shape of an article row. The full article rides in
// a jsonb payload column; date_added is duplicated for server-side
// ordering.
type newsRow struct {
	ID        string       `json:"id"`
	Payload   news.Article `json:"payload"`
	DateAdded string       `json:"date_added"`
}

// snapshotRow is the wire shape of a snapshot row.
type snapshotRow struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Timestamp string      `json:"timestamp"`
	Type      string      `json:"type"`
	ItemCount int         `json:"item_count"`
	Data      news.Report `json:"data"`
}

// NewRemote creates the remote tier client.
func NewRemote(url, key, newsTable, snapTable string) (*Remote, error) {
	client, err := supabase.NewClient(url, key, nil)
	if err != nil {
		return nil, errors.NewTierUnavailable("remote", err)
	}
	return &Remote{client: client, newsTable: newsTable, snapTable: snapTable}, nil
}

// Name implements Tier.
func (r *Remote) Name() string { return "remote" }

// Get implements Tier.
func (r *Remote) Get(_ context.Context, id string) (*news.Article, error) {
	var rows []newsRow
	_, err := r.client.From(r.newsTable).
		Select("*", "", false).
		Eq("id", id).
		ExecuteTo(&rows)
	if err != nil {
		return nil, errors.NewTierUnavailable(r.Name(), err)
	}
	if len(rows) == 0 {
		return nil, errors.NewNotFound(id)
	}
	a := rows[0].Payload
	return &a, nil
}

// GetAll implements Tier.
func (r *Remote) GetAll(_ context.Context) ([]news.Article, error) {
	var rows []newsRow
	_, err := r.client.From(r.newsTable).
		Select("*", "", false).
		ExecuteTo(&rows)
	if err != nil {
		return nil, errors.NewTierUnavailable(r.Name(), err)
	}

	items := make([]news.Article, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.Payload)
	}
	return items, nil
}

// Put implements Tier, upserting on the id column.
func (r *Remote) Put(_ context.Context, items ...news.Article) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]newsRow, 0, len(items))
	for _, a := range items {
		rows = append(rows, newsRow{ID: a.ID, Payload: a, DateAdded: a.DateAdded})
	}
	_, _, err := r.client.From(r.newsTable).
		Insert(rows, true, "id", "minimal", "").
		Execute()
	if err != nil {
		return errors.NewTierUnavailable(r.Name(), err)
	}
	return nil
}

// Delete implements Tier.
func (r *Remote) Delete(_ context.Context, id string) error {
	_, _, err := r.client.From(r.newsTable).
		Delete("minimal", "").
		Eq("id", id).
		Execute()
	if err != nil {
		return errors.NewTierUnavailable(r.Name(), err)
	}
	return nil
}

// Clear implements Tier. postgrest refuses unfiltered deletes, so the
// filter matches every non-empty id.
func (r *Remote) Clear(_ context.Context) error {
	_, _, err := r.client.From(r.newsTable).
		Delete("minimal", "").
		Neq("id", "").
		Execute()
	if err != nil {
		return errors.NewTierUnavailable(r.Name(), err)
	}
	return nil
}

// PutSnapshot stores a snapshot remotely.
func (r *Remote) PutSnapshot(_ context.Context, s news.Snapshot) error {
	row := snapshotRow{
		ID:        s.ID,
		Name:      s.Name,
		Timestamp: s.Timestamp,
		Type:      string(s.Type),
		ItemCount: s.ItemCount,
		Data:      s.Data,
	}
	_, _, err := r.client.From(r.snapTable).
		Insert([]snapshotRow{row}, true, "id", "minimal", "").
		Execute()
	if err != nil {
		return errors.NewTierUnavailable(r.Name(), err)
	}
	return nil
}

var _ Tier = (*Remote)(nil)
