// Package tier provides the storage tier adapters. Each tier is one
// physical medium behind the same narrow interface, so the reconciler
// stays back-end agnostic: a durable sqlite store, an ephemeral redis
// mirror, a remote supabase store, and an in-memory tier for tests.
package tier

import (
	"context"

	"github.com/rborin01/truepress/internal/news"
)

// Tier is one physical storage medium for articles.
//
// Implementations do not normalize; callers pass fully-shaped records
// (the reconciler sanitizes on the way in and out). A tier's failure is
// its own: implementations return errors and never fall back to another
// tier themselves.
type Tier interface {
	// Name identifies the tier in logs ("local", "mirror", "remote").
	Name() string

	// Get returns the article with the given id, or a NOT_FOUND error.
	Get(ctx context.Context, id string) (*news.Article, error)

	// GetAll returns every article in the tier, in no particular order.
	GetAll(ctx context.Context) ([]news.Article, error)

	// Put upserts the given articles, keyed by id.
	Put(ctx context.Context, items ...news.Article) error

	// Delete removes the article with the given id. Deleting a missing
	// id is not an error.
	Delete(ctx context.Context, id string) error

	// Clear removes every article in the tier.
	Clear(ctx context.Context) error
}
