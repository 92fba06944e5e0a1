// Package store reconciles the three storage tiers into one current view
// and owns every mutation of the knowledge store. All writes land in the
// durable tier first; the mirror and remote tiers are refreshed after the
// fact and their failures never fail the operation.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/rborin01/truepress/internal/config"
	"github.com/rborin01/truepress/internal/news"
)

// Durable is the always-present local tier the store writes through.
// Satisfied by *tier.Local.
type Durable interface {
	GetAll(ctx context.Context) ([]news.Article, error)
	Put(ctx context.Context, items ...news.Article) error
	Delete(ctx context.Context, id string) error
	LoadReport(ctx context.Context) (*news.Report, error)
	SaveReport(ctx context.Context, r news.Report) error
	GetInvestigations(ctx context.Context) ([]news.Investigation, error)
	PutInvestigations(ctx context.Context, items ...news.Investigation) error
	PutSnapshot(ctx context.Context, s news.Snapshot) error
	GetSnapshot(ctx context.Context, id string) (*news.Snapshot, error)
	ListSnapshots(ctx context.Context) ([]news.Snapshot, error)
	DeleteSnapshot(ctx context.Context, id string) error
	WipeAll(ctx context.Context) error
	CountArticles(ctx context.Context) (int, error)
	LatestDateAdded(ctx context.Context) (string, error)
}

// Mirror is the bounded ephemeral tier. Satisfied by *tier.Mirror.
type Mirror interface {
	GetAll(ctx context.Context) ([]news.Article, error)
	ReplaceAll(ctx context.Context, items []news.Article) error
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}

// Remote is the authoritative cross-device tier. Satisfied by *tier.Remote.
type Remote interface {
	GetAll(ctx context.Context) ([]news.Article, error)
	Put(ctx context.Context, items ...news.Article) error
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
	PutSnapshot(ctx context.Context, s news.Snapshot) error
}

// Store is the reconciler over the three tiers plus the in-memory working
// state. Safe for concurrent use; concurrent writers to the same id are
// last-writer-wins.
type Store struct {
	cfg     *config.Config
	log     *zap.SugaredLogger
	baseDir string

	durable Durable
	mirror  Mirror // nil when the mirror tier is disabled
	remote  Remote // nil when the remote tier is disabled

	mu    sync.Mutex
	state news.Report
}

// New builds a Store over the given tiers. mirror and remote may be nil.
func New(cfg *config.Config, log *zap.SugaredLogger, baseDir string, durable Durable, mirror Mirror, remote Remote) *Store {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Store{
		cfg:     cfg,
		log:     log,
		baseDir: baseDir,
		durable: durable,
		mirror:  mirror,
		remote:  remote,
		state:   news.Report{Date: news.ReportKey},
	}
}

// LoadState reconciles all tiers into the current report. Precedence per
// article id: in-memory, then durable, then remote; the highest tier wins
// the whole record. If both durable and remote are empty, the mirror window
// is recovered and written back to durable.
func (s *Store) LoadState(ctx context.Context) (news.Report, error) {
	s.mu.Lock()
	mem := copyReport(s.state)
	s.mu.Unlock()

	merged := make(map[string]news.Article)
	for _, a := range mem.News {
		merged[a.ID] = a
	}

	durAll, err := s.durable.GetAll(ctx)
	if err != nil {
		return news.Report{}, err
	}
	for _, a := range durAll {
		merged[a.ID] = a
	}

	var remoteAll []news.Article
	if s.remote != nil {
		remoteAll, err = s.remote.GetAll(ctx)
		if err != nil {
			s.log.Warnw("remote tier unreachable, serving local tiers", "error", err)
			remoteAll = nil
		}
		for _, a := range remoteAll {
			merged[a.ID] = a
		}
	}

	// Both persistent tiers empty: the mirror window is the last copy left.
	if len(durAll) == 0 && len(remoteAll) == 0 && s.mirror != nil {
		window, merr := s.mirror.GetAll(ctx)
		switch {
		case merr != nil:
			s.log.Warnw("mirror tier unreachable during recovery check", "error", merr)
		case len(window) > 0:
			s.log.Infow("recovering articles from mirror", "count", len(window))
			for _, a := range window {
				merged[a.ID] = a
			}
			if perr := s.durable.Put(ctx, window...); perr != nil {
				s.log.Warnw("failed to write recovered articles back to durable tier", "error", perr)
			}
		}
	}

	articles := make([]news.Article, 0, len(merged))
	for _, a := range merged {
		articles = append(articles, news.Sanitize(a))
	}
	sortByDateDesc(articles)

	report, err := s.durable.LoadReport(ctx)
	if err != nil {
		return news.Report{}, err
	}

	invs, err := s.durable.GetInvestigations(ctx)
	if err != nil {
		return news.Report{}, err
	}
	invByID := make(map[string]news.Investigation)
	for _, inv := range mem.Investigations {
		invByID[inv.ID] = inv
	}
	for _, inv := range invs {
		invByID[inv.ID] = inv
	}
	investigations := make([]news.Investigation, 0, len(invByID))
	for _, inv := range invByID {
		investigations = append(investigations, inv)
	}
	sort.Slice(investigations, func(i, j int) bool {
		return investigations[i].DateAdded > investigations[j].DateAdded
	})

	state := news.Report{
		Date:           news.ReportKey,
		News:           articles,
		Investigations: investigations,
	}
	if report != nil {
		state.Summary = report.Summary
		state.Commodities = report.Commodities
	} else if mem.Summary != "" {
		state.Summary = mem.Summary
	}

	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	return copyReport(state), nil
}

// SaveState persists the current in-memory report to the durable tier and
// refreshes the mirror.
func (s *Store) SaveState(ctx context.Context) error {
	s.mu.Lock()
	state := copyReport(s.state)
	s.mu.Unlock()

	if len(state.News) > 0 {
		if err := s.durable.Put(ctx, state.News...); err != nil {
			return err
		}
	}
	if len(state.Investigations) > 0 {
		if err := s.durable.PutInvestigations(ctx, state.Investigations...); err != nil {
			return err
		}
	}
	if err := s.durable.SaveReport(ctx, state); err != nil {
		return err
	}

	s.syncMirror(ctx)
	return nil
}

// ListArticles returns the reconciled articles, newest first, truncated to
// limit when limit > 0.
func (s *Store) ListArticles(ctx context.Context, limit int) ([]news.Article, error) {
	state, err := s.LoadState(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(state.News) > limit {
		state.News = state.News[:limit]
	}
	return state.News, nil
}

// UpsertRaw normalizes loosely-shaped records and upserts them. Returns the
// number of articles written.
func (s *Store) UpsertRaw(ctx context.Context, raws []news.RawArticle) (int, error) {
	items := make([]news.Article, 0, len(raws))
	for _, raw := range raws {
		items = append(items, news.Normalize(raw))
	}
	return s.UpsertArticles(ctx, items...)
}

// UpsertArticles sanitizes and writes articles through all tiers: durable
// first, remote best-effort, then the mirror is rebuilt from durable.
func (s *Store) UpsertArticles(ctx context.Context, items ...news.Article) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	clean := make([]news.Article, len(items))
	for i := range items {
		clean[i] = news.Sanitize(items[i])
	}

	if err := s.durable.Put(ctx, clean...); err != nil {
		return 0, err
	}
	if s.remote != nil {
		if err := s.remote.Put(ctx, clean...); err != nil {
			s.log.Warnw("remote tier write failed, durable copy retained", "error", err, "count", len(clean))
		}
	}
	s.syncMirror(ctx)

	s.mu.Lock()
	before := len(s.state.News)
	s.state.News = upsertInto(s.state.News, clean)
	after := len(s.state.News)
	s.mu.Unlock()

	if n := s.cfg.AutoSnapshotEvery; n > 0 && after/n > before/n {
		name := fmt.Sprintf("auto-%d-items", after)
		if _, err := s.SaveSnapshot(ctx, name, news.SnapshotAuto); err != nil {
			s.log.Warnw("auto snapshot failed", "error", err)
		}
	}

	return len(clean), nil
}

// DeleteArticle removes an article from every tier.
func (s *Store) DeleteArticle(ctx context.Context, id string) error {
	if err := s.durable.Delete(ctx, id); err != nil {
		return err
	}
	if s.remote != nil {
		if err := s.remote.Delete(ctx, id); err != nil {
			s.log.Warnw("remote tier delete failed", "error", err, "id", id)
		}
	}
	s.syncMirror(ctx)

	s.mu.Lock()
	kept := s.state.News[:0]
	for _, a := range s.state.News {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	s.state.News = kept
	s.mu.Unlock()
	return nil
}

// AddInvestigations stores investigation records in the durable tier and
// the working state.
func (s *Store) AddInvestigations(ctx context.Context, items ...news.Investigation) error {
	if len(items) == 0 {
		return nil
	}
	if err := s.durable.PutInvestigations(ctx, items...); err != nil {
		return err
	}
	s.mu.Lock()
	byID := make(map[string]news.Investigation, len(s.state.Investigations)+len(items))
	for _, inv := range s.state.Investigations {
		byID[inv.ID] = inv
	}
	for _, inv := range items {
		byID[inv.ID] = inv
	}
	s.state.Investigations = s.state.Investigations[:0]
	for _, inv := range byID {
		s.state.Investigations = append(s.state.Investigations, inv)
	}
	s.mu.Unlock()
	return nil
}

// syncMirror rebuilds the mirror window from the durable tier. Runs after
// every durable write; mirror failures are logged and swallowed.
func (s *Store) syncMirror(ctx context.Context) {
	if s.mirror == nil {
		return
	}
	all, err := s.durable.GetAll(ctx)
	if err != nil {
		s.log.Warnw("mirror refresh skipped, durable read failed", "error", err)
		return
	}
	if err := s.mirror.ReplaceAll(ctx, all); err != nil {
		s.log.Warnw("mirror refresh failed", "error", err)
	}
}

// upsertInto merges incoming articles into existing by id, newest first.
func upsertInto(existing, incoming []news.Article) []news.Article {
	byID := make(map[string]news.Article, len(existing)+len(incoming))
	for _, a := range existing {
		byID[a.ID] = a
	}
	for _, a := range incoming {
		byID[a.ID] = a
	}
	out := make([]news.Article, 0, len(byID))
	for _, a := range byID {
		out = append(out, a)
	}
	sortByDateDesc(out)
	return out
}

// sortByDateDesc orders newest first. RFC 3339 timestamps compare
// lexicographically; ties break on id for a stable order.
func sortByDateDesc(items []news.Article) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].DateAdded != items[j].DateAdded {
			return items[i].DateAdded > items[j].DateAdded
		}
		return items[i].ID < items[j].ID
	})
}

// copyReport returns a deep value copy of r.
func copyReport(r news.Report) news.Report {
	out := r
	out.News = append([]news.Article(nil), r.News...)
	out.Investigations = append([]news.Investigation(nil), r.Investigations...)
	out.Commodities = append([]news.CommodityForecast(nil), r.Commodities...)
	return out
}
