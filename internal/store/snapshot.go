package store

import (
	"context"
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rborin01/truepress/internal/errors"
	"github.com/rborin01/truepress/internal/news"
)

// SaveSnapshot captures the current reconciled state under a name. The
// capture reconciles all tiers first, so a snapshot taken before any other
// operation still sees the persisted articles. The capture is a value copy;
// the snapshot is written before the live state is committed, so a failed
// save leaves the live store untouched.
func (s *Store) SaveSnapshot(ctx context.Context, name string, typ news.SnapshotType) (*news.Snapshot, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.NewInvalidRequest("snapshot name is required")
	}
	if typ == "" {
		typ = news.SnapshotManual
	}
	if typ != news.SnapshotAuto && typ != news.SnapshotManual {
		return nil, errors.NewInvalidRequest("snapshot type must be one of: AUTO, MANUAL")
	}

	data, err := s.LoadState(ctx)
	if err != nil {
		return nil, err
	}

	id, err := generateSnapshotID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	snap := news.Snapshot{
		ID:        id,
		Name:      strings.TrimSpace(name),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Type:      typ,
		ItemCount: len(data.News),
		Data:      data,
	}

	if err := s.durable.PutSnapshot(ctx, snap); err != nil {
		return nil, err
	}
	if s.remote != nil {
		if err := s.remote.PutSnapshot(ctx, snap); err != nil {
			s.log.Warnw("remote snapshot write failed, durable copy retained", "error", err, "id", snap.ID)
		}
	}

	// Saving a snapshot also commits the state it captured.
	if err := s.SaveState(ctx); err != nil {
		s.log.Warnw("state commit after snapshot failed", "error", err)
	}

	s.log.Infow("snapshot saved", "id", snap.ID, "name", snap.Name, "type", snap.Type, "items", snap.ItemCount)
	return &snap, nil
}

// ListSnapshots returns all snapshots, newest first.
func (s *Store) ListSnapshots(ctx context.Context) ([]news.Snapshot, error) {
	return s.durable.ListSnapshots(ctx)
}

// RestoreSnapshot replaces the current state with a snapshot's capture and
// persists it. The stored snapshot itself is never modified.
func (s *Store) RestoreSnapshot(ctx context.Context, id string) (*news.Report, error) {
	snap, err := s.durable.GetSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}

	restored := copyReport(snap.Data)
	restored.Date = news.ReportKey

	s.mu.Lock()
	s.state = restored
	s.mu.Unlock()

	if err := s.SaveState(ctx); err != nil {
		return nil, err
	}

	s.log.Infow("snapshot restored", "id", snap.ID, "name", snap.Name, "items", snap.ItemCount)
	out := copyReport(restored)
	return &out, nil
}

// DeleteSnapshot removes a snapshot. The live state is unaffected.
func (s *Store) DeleteSnapshot(ctx context.Context, id string) error {
	return s.durable.DeleteSnapshot(ctx, id)
}

func generateSnapshotID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return "snap_" + id.String(), nil
}
