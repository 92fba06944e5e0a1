package tier

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/rborin01/truepress/internal/errors"
	"github.com/rborin01/truepress/internal/news"
)

// Mirror is the ephemeral recovery tier: a bounded, synchronously
// rewritten window of the most recent articles kept in redis under a
// single key. It exists purely as a last-resort recovery source when the
// durable tier is found empty, so it is always rewritten wholesale from
// the durable tier's contents, never patched incrementally.
type Mirror struct {
	rdb *goredis.Client
	key string
	cap int
}

// NewMirror creates the mirror tier against the given redis address.
// The connection is lazy; an unreachable redis surfaces as errors on
// individual operations, which callers downgrade to warnings.
func NewMirror(addr, key string, capacity int) *Mirror {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
		ReadTimeout: 5 * time.Second,
	})
	return &Mirror{rdb: rdb, key: key, cap: capacity}
}

// Name implements Tier.
func (m *Mirror) Name() string { return "mirror" }

// Close releases the redis connection.
func (m *Mirror) Close() error { return m.rdb.Close() }

// ReplaceAll rewrites the mirrored window from the full article set,
// keeping only the cap most recent by dateAdded.
func (m *Mirror) ReplaceAll(ctx context.Context, items []news.Article) error {
	data, err := json.Marshal(boundRecent(items, m.cap))
	if err != nil {
		return errors.NewInternal(err)
	}
	if err := m.rdb.Set(ctx, m.key, data, 0).Err(); err != nil {
		return errors.NewTierUnavailable(m.Name(), err)
	}
	return nil
}

// GetAll implements Tier. A missing key is an empty mirror, not an error.
func (m *Mirror) GetAll(ctx context.Context) ([]news.Article, error) {
	data, err := m.rdb.Get(ctx, m.key).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewTierUnavailable(m.Name(), err)
	}

	var items []news.Article
	if err := json.Unmarshal(data, &items); err != nil {
		// A corrupt mirror payload is treated as an empty mirror; the
		// durable and remote tiers remain authoritative.
		return nil, nil
	}
	return items, nil
}

// Get implements Tier by scanning the mirrored window.
func (m *Mirror) Get(ctx context.Context, id string) (*news.Article, error) {
	items, err := m.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID == id {
			return &items[i], nil
		}
	}
	return nil, errors.NewNotFound(id)
}

// Put implements Tier: merge into the window by id and rewrite.
func (m *Mirror) Put(ctx context.Context, items ...news.Article) error {
	existing, err := m.GetAll(ctx)
	if err != nil {
		return err
	}
	merged := make(map[string]news.Article, len(existing)+len(items))
	for _, a := range existing {
		merged[a.ID] = a
	}
	for _, a := range items {
		merged[a.ID] = a
	}
	all := make([]news.Article, 0, len(merged))
	for _, a := range merged {
		all = append(all, a)
	}
	return m.ReplaceAll(ctx, all)
}

// Delete implements Tier.
func (m *Mirror) Delete(ctx context.Context, id string) error {
	existing, err := m.GetAll(ctx)
	if err != nil {
		return err
	}
	kept := existing[:0]
	for _, a := range existing {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	return m.ReplaceAll(ctx, kept)
}

// Clear implements Tier.
func (m *Mirror) Clear(ctx context.Context) error {
	if err := m.rdb.Del(ctx, m.key).Err(); err != nil {
		return errors.NewTierUnavailable(m.Name(), err)
	}
	return nil
}

// Count returns the number of mirrored articles.
func (m *Mirror) Count(ctx context.Context) (int, error) {
	items, err := m.GetAll(ctx)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// boundRecent sorts by dateAdded descending and truncates to capacity.
func boundRecent(items []news.Article, capacity int) []news.Article {
	out := make([]news.Article, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DateAdded > out[j].DateAdded
	})
	if capacity > 0 && len(out) > capacity {
		out = out[:capacity]
	}
	return out
}

var _ Tier = (*Mirror)(nil)
