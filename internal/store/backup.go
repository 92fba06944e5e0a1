package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rborin01/truepress/internal/errors"
	"github.com/rborin01/truepress/internal/news"
)

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Articles   int    `json:"articles"`
	Snapshots  int    `json:"snapshots"`
	ExportedAt string `json:"exportedAt"`
}

// ImportOutput counts what an import actually landed. Skipped records are
// the malformed ones the import tolerated.
type ImportOutput struct {
	Articles       int `json:"articles"`
	Investigations int `json:"investigations"`
	Snapshots      int `json:"snapshots"`
	Skipped        int `json:"skipped"`
}

// Status summarizes every tier at a glance.
type Status struct {
	Articles       int    `json:"articles"`
	Investigations int    `json:"investigations"`
	Snapshots      int    `json:"snapshots"`
	MirrorCount    int    `json:"mirrorCount"`
	MirrorOK       bool   `json:"mirrorOk"`
	RemoteCount    int    `json:"remoteCount"`
	RemoteOK       bool   `json:"remoteOk"`
	LastUpdated    string `json:"lastUpdated"`
}

// Export writes the whole durable tier to a JSON backup document under
// baseDir/exports. The file appears atomically: content goes to a temp file
// first and is renamed into place.
func (s *Store) Export(ctx context.Context, path string) (*ExportOutput, error) {
	now := time.Now().UTC()

	articles, err := s.durable.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	invs, err := s.durable.GetInvestigations(ctx)
	if err != nil {
		return nil, err
	}
	snaps, err := s.durable.ListSnapshots(ctx)
	if err != nil {
		return nil, err
	}
	report, err := s.durable.LoadReport(ctx)
	if err != nil {
		return nil, err
	}

	doc := news.Backup{
		Version:        news.BackupVersion,
		Timestamp:      now.Format(time.RFC3339),
		News:           articles,
		Investigations: invs,
		Snapshots:      snaps,
		Report:         report,
	}
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	if path == "" {
		path = filepath.Join(s.baseDir, "exports", fmt.Sprintf("truepress-%s.json", now.Format("20060102-150405")))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	// Temp file plus rename so a failed export never clobbers an existing one.
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return nil, errors.NewInternal(err)
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"
	if err := os.WriteFile(tempPath, payload, 0600); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to write export file: %w", err))
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export file: %w", err))
	}

	s.log.Infow("store exported", "path", path, "articles", len(articles), "snapshots", len(snaps))
	return &ExportOutput{
		Path:       path,
		Articles:   len(articles),
		Snapshots:  len(snaps),
		ExportedAt: doc.Timestamp,
	}, nil
}

// backupDoc mirrors news.Backup but defers article decoding so one
// malformed record cannot sink the rest of the document.
type backupDoc struct {
	Version        int                  `json:"version"`
	Timestamp      string               `json:"timestamp"`
	News           []json.RawMessage    `json:"news"`
	Investigations []news.Investigation `json:"investigations"`
	Snapshots      []news.Snapshot      `json:"snapshots"`
	Report         *news.Report         `json:"report"`
}

// Import reads a backup document and merges it into the store. An unreadable
// document fails the whole operation; malformed individual records are
// skipped and counted.
func (s *Store) Import(ctx context.Context, path string) (*ImportOutput, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewImportUnreadable(err)
	}

	var doc backupDoc
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, errors.NewImportUnreadable(err)
	}

	out := &ImportOutput{}

	articles := make([]news.Article, 0, len(doc.News))
	for _, raw := range doc.News {
		var rec news.RawArticle
		if err := json.Unmarshal(raw, &rec); err != nil {
			out.Skipped++
			continue
		}
		articles = append(articles, news.Normalize(rec))
	}
	if len(articles) > 0 {
		if err := s.durable.Put(ctx, articles...); err != nil {
			return nil, err
		}
		out.Articles = len(articles)
	}

	invs := make([]news.Investigation, 0, len(doc.Investigations))
	for _, inv := range doc.Investigations {
		if inv.ID == "" {
			out.Skipped++
			continue
		}
		invs = append(invs, inv)
	}
	if len(invs) > 0 {
		if err := s.durable.PutInvestigations(ctx, invs...); err != nil {
			return nil, err
		}
		out.Investigations = len(invs)
	}

	for _, snap := range doc.Snapshots {
		if snap.ID == "" {
			out.Skipped++
			continue
		}
		if err := s.durable.PutSnapshot(ctx, snap); err != nil {
			return nil, err
		}
		out.Snapshots++
	}

	if doc.Report != nil {
		if err := s.durable.SaveReport(ctx, *doc.Report); err != nil {
			return nil, err
		}
	}

	s.syncMirror(ctx)
	if _, err := s.LoadState(ctx); err != nil {
		return nil, err
	}

	s.log.Infow("store imported", "path", path,
		"articles", out.Articles, "investigations", out.Investigations,
		"snapshots", out.Snapshots, "skipped", out.Skipped)
	return out, nil
}

// Wipe clears every tier and resets the working state. The durable wipe is
// the one that must succeed; mirror and remote clears are best-effort.
func (s *Store) Wipe(ctx context.Context) error {
	if err := s.durable.WipeAll(ctx); err != nil {
		return err
	}
	if s.mirror != nil {
		if err := s.mirror.Clear(ctx); err != nil {
			s.log.Warnw("mirror clear failed during wipe", "error", err)
		}
	}
	if s.remote != nil {
		if err := s.remote.Clear(ctx); err != nil {
			s.log.Warnw("remote clear failed during wipe", "error", err)
		}
	}

	s.mu.Lock()
	s.state = news.Report{Date: news.ReportKey}
	s.mu.Unlock()

	s.log.Infow("store wiped")
	return nil
}

// Status reports per-tier counts and reachability. Tier probes that fail
// flip the OK flag but never error the call.
func (s *Store) Status(ctx context.Context) (*Status, error) {
	st := &Status{}

	n, err := s.durable.CountArticles(ctx)
	if err != nil {
		return nil, err
	}
	st.Articles = n

	invs, err := s.durable.GetInvestigations(ctx)
	if err != nil {
		return nil, err
	}
	st.Investigations = len(invs)

	snaps, err := s.durable.ListSnapshots(ctx)
	if err != nil {
		return nil, err
	}
	st.Snapshots = len(snaps)

	latest, err := s.durable.LatestDateAdded(ctx)
	if err != nil {
		return nil, err
	}
	st.LastUpdated = latest

	if s.mirror != nil {
		if c, err := s.mirror.Count(ctx); err == nil {
			st.MirrorCount = c
			st.MirrorOK = true
		} else {
			s.log.Warnw("mirror status probe failed", "error", err)
		}
	}
	if s.remote != nil {
		if all, err := s.remote.GetAll(ctx); err == nil {
			st.RemoteCount = len(all)
			st.RemoteOK = true
		} else {
			s.log.Warnw("remote status probe failed", "error", err)
		}
	}

	return st, nil
}
