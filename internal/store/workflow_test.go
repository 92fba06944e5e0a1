package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rborin01/truepress/internal/errors"
	"github.com/rborin01/truepress/internal/news"
)

// TestFullWorkflow exercises the complete store lifecycle across all three
// tiers: upsert → list → snapshot → delete → restore → export → import →
// wipe → load (empty)
func TestFullWorkflow(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, nil)

	// 1. Upsert two articles
	a := article("news_aaaa000000000001", "Grid Strain Warning", "2026-08-01T09:00:00Z")
	b := article("news_aaaa000000000002", "Port Congestion Eases", "2026-08-02T09:00:00Z")
	n, err := fx.store.UpsertArticles(ctx, a, b)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	// Verify every tier saw the write
	require.Len(t, fx.durable.articles, 2)
	require.Len(t, fx.remote.articles, 2)
	require.Len(t, fx.mirror.window, 2)

	// 2. List, newest first
	items, err := fx.store.ListArticles(ctx, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, b.ID, items[0].ID)

	// 3. Snapshot the current state
	snap, err := fx.store.SaveSnapshot(ctx, "workflow-checkpoint", news.SnapshotManual)
	require.NoError(t, err)
	require.NotEmpty(t, snap.ID)
	require.Equal(t, 2, snap.ItemCount)

	// 4. Delete one article from every tier
	require.NoError(t, fx.store.DeleteArticle(ctx, a.ID))
	items, err = fx.store.ListArticles(ctx, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotContains(t, fx.remote.articles, a.ID)

	// 5. Restore brings the deleted article back
	restored, err := fx.store.RestoreSnapshot(ctx, snap.ID)
	require.NoError(t, err)
	require.Len(t, restored.News, 2)

	// 6. Export the store
	exportPath := filepath.Join(t.TempDir(), "workflow.json")
	exp, err := fx.store.Export(ctx, exportPath)
	require.NoError(t, err)
	require.Equal(t, 2, exp.Articles)
	require.Equal(t, exportPath, exp.Path)

	// 7. Import into a fresh store
	fx2 := newFixture(t, nil)
	imp, err := fx2.store.Import(ctx, exportPath)
	require.NoError(t, err)
	require.Equal(t, 2, imp.Articles)
	require.Zero(t, imp.Skipped)

	items, err = fx2.store.ListArticles(ctx, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)

	// 8. Wipe clears every tier
	require.NoError(t, fx2.store.Wipe(ctx))
	require.Empty(t, fx2.durable.articles)
	require.Empty(t, fx2.remote.articles)
	require.Empty(t, fx2.mirror.window)

	// 9. Reload after wipe yields an empty state
	state, err := fx2.store.LoadState(ctx)
	require.NoError(t, err)
	require.Empty(t, state.News)

	// Restoring a wiped-away snapshot id is a clean not-found
	_, err = fx2.store.RestoreSnapshot(ctx, snap.ID)
	require.True(t, errors.Is(err, errors.ErrNotFound))
}
