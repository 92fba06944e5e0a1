// Package rag maintains the semantic index over articles and answers
// questions grounded in it. Index entries live next to the articles in the
// durable tier; the vectors come from an external embedding service.
package rag

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rborin01/truepress/internal/config"
	"github.com/rborin01/truepress/internal/errors"
	"github.com/rborin01/truepress/internal/news"
)

// DocStore persists embedding documents. Satisfied by *tier.Local.
type DocStore interface {
	PutEmbedding(ctx context.Context, doc news.EmbeddingDoc) error
	GetEmbeddingByNewsID(ctx context.Context, newsID string) (*news.EmbeddingDoc, error)
	GetAllEmbeddings(ctx context.Context) ([]news.EmbeddingDoc, error)
	DeleteEmbedding(ctx context.Context, id string) error
	CountEmbeddings(ctx context.Context) (int, error)
}

// Embedder turns text into a vector. Satisfied by *ai.Client.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator produces a text completion. Satisfied by *ai.Client.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Index owns the article embedding index.
type Index struct {
	docs      DocStore
	embedder  Embedder
	generator Generator
	log       *zap.SugaredLogger
	limiter   *rate.Limiter
	topK      int

	mu            sync.Mutex
	indexing      bool
	lastIndexedAt string
}

// NewIndex builds an Index. generator may be nil when answering is not
// needed; the limiter paces batch embedding calls at cfg.EmbedDelayMS.
func NewIndex(cfg *config.Config, log *zap.SugaredLogger, docs DocStore, embedder Embedder, generator Generator) *Index {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	delay := time.Duration(cfg.EmbedDelayMS) * time.Millisecond
	if delay <= 0 {
		delay = time.Millisecond
	}
	return &Index{
		docs:      docs,
		embedder:  embedder,
		generator: generator,
		log:       log,
		limiter:   rate.NewLimiter(rate.Every(delay), 1),
		topK:      cfg.SearchTopK,
	}
}

// BuildEmbeddingText flattens an article into the single line that gets
// embedded. Field order is fixed so the same article always produces the
// same text; empty fields are dropped.
func BuildEmbeddingText(a news.Article) string {
	parts := []string{
		a.Title,
		a.Category,
		a.Narrative,
		a.Intent,
		a.Truth,
		a.Action,
		a.Scenarios.Short.Prediction,
		a.Scenarios.Medium.Prediction,
		a.Scenarios.Long.Prediction,
	}
	kept := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " | ")
}

// IndexOne embeds and stores one article. Already-indexed articles are
// skipped; returns whether a new entry was written.
func (ix *Index) IndexOne(ctx context.Context, a news.Article) (bool, error) {
	existing, err := ix.docs.GetEmbeddingByNewsID(ctx, a.ID)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	text := BuildEmbeddingText(a)
	vec, err := ix.embedder.Embed(ctx, text)
	if err != nil {
		return false, err
	}

	doc := news.EmbeddingDoc{
		ID:        news.DocID(a.ID),
		NewsID:    a.ID,
		Text:      text,
		Embedding: vec,
		Category:  a.Category,
		Date:      a.DateAdded,
		Title:     a.Title,
	}
	if err := ix.docs.PutEmbedding(ctx, doc); err != nil {
		return false, err
	}

	ix.mu.Lock()
	ix.lastIndexedAt = time.Now().UTC().Format(time.RFC3339)
	ix.mu.Unlock()
	return true, nil
}

// BatchResult counts what one IndexBatch run did.
type BatchResult struct {
	Indexed int `json:"indexed"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// IndexBatch indexes articles sequentially, paced by the limiter so the
// embedding service is never hammered. Individual failures are counted and
// skipped; cancellation stops between items.
func (ix *Index) IndexBatch(ctx context.Context, items []news.Article) (*BatchResult, error) {
	ix.mu.Lock()
	ix.indexing = true
	ix.mu.Unlock()
	defer func() {
		ix.mu.Lock()
		ix.indexing = false
		ix.mu.Unlock()
	}()

	res := &BatchResult{}
	for _, a := range items {
		if err := ix.limiter.Wait(ctx); err != nil {
			return res, errors.NewCancelled("index batch")
		}

		wrote, err := ix.IndexOne(ctx, a)
		switch {
		case err != nil:
			res.Failed++
			ix.log.Warnw("failed to index article", "id", a.ID, "error", err)
		case wrote:
			res.Indexed++
		default:
			res.Skipped++
		}
	}

	ix.log.Infow("index batch finished",
		"indexed", res.Indexed, "skipped", res.Skipped, "failed", res.Failed)
	return res, nil
}

// Prune deletes index entries whose article no longer exists. activeIDs is
// the full set of live article ids; returns the number of entries removed.
func (ix *Index) Prune(ctx context.Context, activeIDs []string) (int, error) {
	active := make(map[string]bool, len(activeIDs))
	for _, id := range activeIDs {
		active[id] = true
	}

	docs, err := ix.docs.GetAllEmbeddings(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, doc := range docs {
		if active[doc.NewsID] {
			continue
		}
		if err := ix.docs.DeleteEmbedding(ctx, doc.ID); err != nil {
			return removed, err
		}
		removed++
	}

	if removed > 0 {
		ix.log.Infow("pruned orphaned index entries", "count", removed)
	}
	return removed, nil
}

// IndexStatus describes index coverage.
type IndexStatus struct {
	TotalArticles int    `json:"totalArticles"`
	IndexedCount  int    `json:"indexedCount"`
	LastIndexedAt string `json:"lastIndexedAt,omitempty"`
	IsIndexing    bool   `json:"isIndexing"`
}

// Status reports index coverage against the given article count.
func (ix *Index) Status(ctx context.Context, totalArticles int) (*IndexStatus, error) {
	count, err := ix.docs.CountEmbeddings(ctx)
	if err != nil {
		return nil, err
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	return &IndexStatus{
		TotalArticles: totalArticles,
		IndexedCount:  count,
		LastIndexedAt: ix.lastIndexedAt,
		IsIndexing:    ix.indexing,
	}, nil
}
