package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/rborin01/truepress/internal/config"
	"github.com/rborin01/truepress/internal/errors"
	"github.com/rborin01/truepress/internal/news"
)

// fakeDurable is an in-memory stand-in for the sqlite tier.
type fakeDurable struct {
	articles  map[string]news.Article
	invs      map[string]news.Investigation
	snapshots map[string]news.Snapshot
	report    *news.Report
	failWith  error
}

func newFakeDurable() *fakeDurable {
	return &fakeDurable{
		articles:  make(map[string]news.Article),
		invs:      make(map[string]news.Investigation),
		snapshots: make(map[string]news.Snapshot),
	}
}

func (f *fakeDurable) GetAll(_ context.Context) ([]news.Article, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := make([]news.Article, 0, len(f.articles))
	for _, a := range f.articles {
		out = append(out, a)
	}
	sortByDateDesc(out)
	return out, nil
}

func (f *fakeDurable) Put(_ context.Context, items ...news.Article) error {
	if f.failWith != nil {
		return f.failWith
	}
	for _, a := range items {
		f.articles[a.ID] = a
	}
	return nil
}

func (f *fakeDurable) Delete(_ context.Context, id string) error {
	if _, ok := f.articles[id]; !ok {
		return errors.NewNotFound(id)
	}
	delete(f.articles, id)
	return nil
}

func (f *fakeDurable) LoadReport(_ context.Context) (*news.Report, error) {
	return f.report, nil
}

func (f *fakeDurable) SaveReport(_ context.Context, r news.Report) error {
	if r.Date == "" {
		r.Date = news.ReportKey
	}
	f.report = &r
	return nil
}

func (f *fakeDurable) GetInvestigations(_ context.Context) ([]news.Investigation, error) {
	out := make([]news.Investigation, 0, len(f.invs))
	for _, inv := range f.invs {
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateAdded > out[j].DateAdded })
	return out, nil
}

func (f *fakeDurable) PutInvestigations(_ context.Context, items ...news.Investigation) error {
	for _, inv := range items {
		f.invs[inv.ID] = inv
	}
	return nil
}

func (f *fakeDurable) PutSnapshot(_ context.Context, s news.Snapshot) error {
	f.snapshots[s.ID] = s
	return nil
}

func (f *fakeDurable) GetSnapshot(_ context.Context, id string) (*news.Snapshot, error) {
	s, ok := f.snapshots[id]
	if !ok {
		return nil, errors.NewNotFound(id)
	}
	return &s, nil
}

func (f *fakeDurable) ListSnapshots(_ context.Context) ([]news.Snapshot, error) {
	out := make([]news.Snapshot, 0, len(f.snapshots))
	for _, s := range f.snapshots {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out, nil
}

func (f *fakeDurable) DeleteSnapshot(_ context.Context, id string) error {
	if _, ok := f.snapshots[id]; !ok {
		return errors.NewNotFound(id)
	}
	delete(f.snapshots, id)
	return nil
}

func (f *fakeDurable) WipeAll(_ context.Context) error {
	f.articles = make(map[string]news.Article)
	f.invs = make(map[string]news.Investigation)
	f.snapshots = make(map[string]news.Snapshot)
	f.report = nil
	return nil
}

func (f *fakeDurable) CountArticles(_ context.Context) (int, error) {
	return len(f.articles), nil
}

func (f *fakeDurable) LatestDateAdded(_ context.Context) (string, error) {
	latest := ""
	for _, a := range f.articles {
		if a.DateAdded > latest {
			latest = a.DateAdded
		}
	}
	return latest, nil
}

// fakeMirror bounds its window the way the redis tier does.
type fakeMirror struct {
	window   []news.Article
	capacity int
	failWith error
}

func (f *fakeMirror) GetAll(_ context.Context) ([]news.Article, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	return append([]news.Article(nil), f.window...), nil
}

func (f *fakeMirror) ReplaceAll(_ context.Context, items []news.Article) error {
	if f.failWith != nil {
		return f.failWith
	}
	bounded := append([]news.Article(nil), items...)
	sortByDateDesc(bounded)
	if f.capacity > 0 && len(bounded) > f.capacity {
		bounded = bounded[:f.capacity]
	}
	f.window = bounded
	return nil
}

func (f *fakeMirror) Clear(_ context.Context) error {
	f.window = nil
	return nil
}

func (f *fakeMirror) Count(_ context.Context) (int, error) {
	if f.failWith != nil {
		return 0, f.failWith
	}
	return len(f.window), nil
}

type fakeRemote struct {
	articles  map[string]news.Article
	snapshots map[string]news.Snapshot
	failWith  error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		articles:  make(map[string]news.Article),
		snapshots: make(map[string]news.Snapshot),
	}
}

func (f *fakeRemote) GetAll(_ context.Context) ([]news.Article, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := make([]news.Article, 0, len(f.articles))
	for _, a := range f.articles {
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeRemote) Put(_ context.Context, items ...news.Article) error {
	if f.failWith != nil {
		return f.failWith
	}
	for _, a := range items {
		f.articles[a.ID] = a
	}
	return nil
}

func (f *fakeRemote) Delete(_ context.Context, id string) error {
	if f.failWith != nil {
		return f.failWith
	}
	delete(f.articles, id)
	return nil
}

func (f *fakeRemote) Clear(_ context.Context) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.articles = make(map[string]news.Article)
	return nil
}

func (f *fakeRemote) PutSnapshot(_ context.Context, s news.Snapshot) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.snapshots[s.ID] = s
	return nil
}

type storeFixture struct {
	store   *Store
	durable *fakeDurable
	mirror  *fakeMirror
	remote  *fakeRemote
}

func newFixture(t *testing.T, mutate func(*config.Config)) *storeFixture {
	t.Helper()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	durable := newFakeDurable()
	mirror := &fakeMirror{capacity: cfg.MirrorCap}
	remote := newFakeRemote()
	return &storeFixture{
		store:   New(cfg, nil, t.TempDir(), durable, mirror, remote),
		durable: durable,
		mirror:  mirror,
		remote:  remote,
	}
}

func article(id, title, date string) news.Article {
	return news.Sanitize(news.Article{ID: id, Title: title, DateAdded: date})
}

func TestUpsert_Idempotent(t *testing.T) {
	fix := newFixture(t, nil)
	ctx := context.Background()

	raw := news.RawArticle{"title": "Rail Strike Talks", "category": "Labor"}
	if _, err := fix.store.UpsertRaw(ctx, []news.RawArticle{raw}); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if _, err := fix.store.UpsertRaw(ctx, []news.RawArticle{raw}); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	if len(fix.durable.articles) != 1 {
		t.Errorf("durable articles = %d, want 1 (same content must land once)", len(fix.durable.articles))
	}
	state, err := fix.store.LoadState(ctx)
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if len(state.News) != 1 {
		t.Errorf("state articles = %d, want 1", len(state.News))
	}
}

func TestLoadState_RemoteWinsPerID(t *testing.T) {
	fix := newFixture(t, nil)
	ctx := context.Background()

	local := article("news_a", "Local Copy", "2026-01-01T00:00:00Z")
	fix.durable.articles[local.ID] = local
	remote := article("news_a", "Remote Copy", "2026-01-02T00:00:00Z")
	fix.remote.articles[remote.ID] = remote
	fix.durable.articles["news_b"] = article("news_b", "Local Only", "2026-01-03T00:00:00Z")

	state, err := fix.store.LoadState(ctx)
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if len(state.News) != 2 {
		t.Fatalf("articles = %d, want 2", len(state.News))
	}
	for _, a := range state.News {
		if a.ID == "news_a" && a.Title != "Remote Copy" {
			t.Errorf("news_a title = %q, want the remote record to win", a.Title)
		}
	}
}

func TestLoadState_RemoteUnreachableServesLocal(t *testing.T) {
	fix := newFixture(t, nil)
	ctx := context.Background()

	fix.durable.articles["news_a"] = article("news_a", "A", "2026-01-01T00:00:00Z")
	fix.remote.failWith = errors.NewTierUnavailable("remote", nil)

	state, err := fix.store.LoadState(ctx)
	if err != nil {
		t.Fatalf("LoadState failed despite remote outage: %v", err)
	}
	if len(state.News) != 1 || state.News[0].ID != "news_a" {
		t.Errorf("state = %+v, want the durable article", state.News)
	}
}

func TestLoadState_AutoHealFromMirror(t *testing.T) {
	fix := newFixture(t, nil)
	ctx := context.Background()

	fix.mirror.window = []news.Article{
		article("news_a", "Survivor A", "2026-01-02T00:00:00Z"),
		article("news_b", "Survivor B", "2026-01-01T00:00:00Z"),
	}

	state, err := fix.store.LoadState(ctx)
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if len(state.News) != 2 {
		t.Fatalf("articles = %d, want 2 recovered from mirror", len(state.News))
	}
	if len(fix.durable.articles) != 2 {
		t.Errorf("durable articles = %d, recovery must write back", len(fix.durable.articles))
	}
}

func TestLoadState_NoHealWhenDurableHasData(t *testing.T) {
	fix := newFixture(t, nil)
	ctx := context.Background()

	fix.durable.articles["news_a"] = article("news_a", "Kept", "2026-01-05T00:00:00Z")
	fix.mirror.window = []news.Article{article("news_stale", "Stale", "2026-01-01T00:00:00Z")}

	state, err := fix.store.LoadState(ctx)
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if len(state.News) != 1 || state.News[0].ID != "news_a" {
		t.Errorf("stale mirror content must not leak into a populated store: %+v", state.News)
	}
}

func TestLoadState_NoHealWhenRemoteHasData(t *testing.T) {
	fix := newFixture(t, nil)
	ctx := context.Background()

	fix.remote.articles["news_a"] = article("news_a", "Authoritative", "2026-01-05T00:00:00Z")
	fix.mirror.window = []news.Article{article("news_stale", "Stale", "2026-01-01T00:00:00Z")}

	state, err := fix.store.LoadState(ctx)
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if len(state.News) != 1 || state.News[0].ID != "news_a" {
		t.Errorf("stale mirror content must not leak in while remote has data: %+v", state.News)
	}
	if _, ok := fix.durable.articles["news_stale"]; ok {
		t.Error("mirror recovery must not write back while remote has data")
	}
}

func TestMirror_BoundedToCap(t *testing.T) {
	fix := newFixture(t, func(c *config.Config) { c.MirrorCap = 300 })
	ctx := context.Background()

	items := make([]news.Article, 400)
	for i := range items {
		items[i] = article(
			fmt.Sprintf("news_%03d", i),
			fmt.Sprintf("Item %d", i),
			fmt.Sprintf("2026-01-01T%02d:%02d:00Z", i/60, i%60),
		)
	}
	if _, err := fix.store.UpsertArticles(ctx, items...); err != nil {
		t.Fatalf("UpsertArticles failed: %v", err)
	}

	if len(fix.durable.articles) != 400 {
		t.Errorf("durable = %d, want all 400", len(fix.durable.articles))
	}
	if len(fix.mirror.window) != 300 {
		t.Fatalf("mirror = %d, want the window bounded to 300", len(fix.mirror.window))
	}
	if fix.mirror.window[0].ID != "news_399" {
		t.Errorf("mirror[0] = %q, want the newest article", fix.mirror.window[0].ID)
	}
	for _, a := range fix.mirror.window {
		if a.ID == "news_000" {
			t.Error("oldest article must be evicted from the mirror")
		}
	}
}

func TestSnapshot_RoundTripAndImmutability(t *testing.T) {
	fix := newFixture(t, nil)
	ctx := context.Background()

	if _, err := fix.store.UpsertArticles(ctx, article("news_a", "Original", "2026-01-01T00:00:00Z")); err != nil {
		t.Fatalf("UpsertArticles failed: %v", err)
	}
	snap, err := fix.store.SaveSnapshot(ctx, "before changes", news.SnapshotManual)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if snap.ItemCount != 1 || snap.Type != news.SnapshotManual {
		t.Errorf("snapshot = %+v", snap)
	}
	if fix.durable.report == nil {
		t.Error("saving a snapshot must also commit the current state")
	}

	// Mutate the live store after the capture.
	if _, err := fix.store.UpsertArticles(ctx, article("news_b", "Later", "2026-02-01T00:00:00Z")); err != nil {
		t.Fatalf("UpsertArticles failed: %v", err)
	}

	stored, err := fix.durable.GetSnapshot(ctx, snap.ID)
	if err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}
	if len(stored.Data.News) != 1 || stored.Data.News[0].Title != "Original" {
		t.Errorf("stored snapshot changed after live mutation: %+v", stored.Data.News)
	}

	restored, err := fix.store.RestoreSnapshot(ctx, snap.ID)
	if err != nil {
		t.Fatalf("RestoreSnapshot failed: %v", err)
	}
	if len(restored.News) != 1 || restored.News[0].ID != "news_a" {
		t.Errorf("restored = %+v, want the captured state", restored.News)
	}
}

func TestSnapshot_ColdStartCapturesPersistedArticles(t *testing.T) {
	fix := newFixture(t, nil)
	ctx := context.Background()

	// A previous process left articles and a report behind.
	fix.durable.articles["news_a"] = article("news_a", "Persisted A", "2026-01-01T00:00:00Z")
	fix.durable.articles["news_b"] = article("news_b", "Persisted B", "2026-01-02T00:00:00Z")
	fix.durable.report = &news.Report{Date: news.ReportKey, Summary: "weekly digest"}

	// First operation of the new process is the snapshot itself.
	snap, err := fix.store.SaveSnapshot(ctx, "cold start", news.SnapshotManual)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if snap.ItemCount != 2 || len(snap.Data.News) != 2 {
		t.Fatalf("snapshot captured %d items (data %d), want 2", snap.ItemCount, len(snap.Data.News))
	}
	if fix.durable.report == nil || fix.durable.report.Summary != "weekly digest" {
		t.Errorf("report = %+v, the committed state must keep the stored summary", fix.durable.report)
	}
	if len(fix.durable.report.News) != 2 {
		t.Errorf("committed report has %d articles, want 2", len(fix.durable.report.News))
	}
}

func TestRestoreSnapshot_NotFound(t *testing.T) {
	fix := newFixture(t, nil)

	_, err := fix.store.RestoreSnapshot(context.Background(), "snap_missing")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("err = %v, want NOT_FOUND", err)
	}
}

func TestAutoSnapshot_OnMilestone(t *testing.T) {
	fix := newFixture(t, func(c *config.Config) { c.AutoSnapshotEvery = 2 })
	ctx := context.Background()

	if _, err := fix.store.UpsertArticles(ctx, article("news_a", "A", "2026-01-01T00:00:00Z")); err != nil {
		t.Fatalf("UpsertArticles failed: %v", err)
	}
	if len(fix.durable.snapshots) != 0 {
		t.Fatalf("snapshot taken before the milestone")
	}

	if _, err := fix.store.UpsertArticles(ctx, article("news_b", "B", "2026-01-02T00:00:00Z")); err != nil {
		t.Fatalf("UpsertArticles failed: %v", err)
	}
	snaps, _ := fix.durable.ListSnapshots(ctx)
	if len(snaps) != 1 {
		t.Fatalf("snapshots = %d, want 1 at the milestone", len(snaps))
	}
	if snaps[0].Type != news.SnapshotAuto {
		t.Errorf("type = %q, want AUTO", snaps[0].Type)
	}
}

func TestExportImport_RoundTrip(t *testing.T) {
	fix := newFixture(t, nil)
	ctx := context.Background()

	if _, err := fix.store.UpsertArticles(ctx,
		article("news_a", "A", "2026-01-01T00:00:00Z"),
		article("news_b", "B", "2026-01-02T00:00:00Z"),
	); err != nil {
		t.Fatalf("UpsertArticles failed: %v", err)
	}
	if _, err := fix.store.SaveSnapshot(ctx, "pre-export", news.SnapshotManual); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	out, err := fix.store.Export(ctx, "")
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if out.Articles != 2 || out.Snapshots != 1 {
		t.Errorf("export counts = %+v", out)
	}
	if _, err := os.Stat(out.Path); err != nil {
		t.Fatalf("export file missing: %v", err)
	}

	// Import into a fresh store.
	fresh := newFixture(t, nil)
	res, err := fresh.store.Import(ctx, out.Path)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if res.Articles != 2 || res.Snapshots != 1 || res.Skipped != 0 {
		t.Errorf("import counts = %+v", res)
	}
	if len(fresh.durable.articles) != 2 {
		t.Errorf("fresh durable = %d articles", len(fresh.durable.articles))
	}
}

func TestImport_SkipsMalformedRecords(t *testing.T) {
	fix := newFixture(t, nil)
	ctx := context.Background()

	doc := `{"version":2,"timestamp":"2026-01-01T00:00:00Z","news":[`
	for i := 0; i < 9; i++ {
		if i > 0 {
			doc += ","
		}
		doc += fmt.Sprintf(`{"title":"Item %d","category":"Test"}`, i)
	}
	doc += `,"this is not an object"]}`

	path := filepath.Join(t.TempDir(), "backup.json")
	if err := os.WriteFile(path, []byte(doc), 0600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	res, err := fix.store.Import(ctx, path)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if res.Articles != 9 {
		t.Errorf("imported = %d, want 9", res.Articles)
	}
	if res.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", res.Skipped)
	}
}

func TestImport_UnreadableDocument(t *testing.T) {
	fix := newFixture(t, nil)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "garbage.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := fix.store.Import(ctx, path); !errors.Is(err, errors.ErrImportUnreadable) {
		t.Errorf("err = %v, want IMPORT_UNREADABLE", err)
	}

	if _, err := fix.store.Import(ctx, filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, errors.ErrImportUnreadable) {
		t.Errorf("missing file err = %v, want IMPORT_UNREADABLE", err)
	}
}

func TestWipe_ClearsEveryTier(t *testing.T) {
	fix := newFixture(t, nil)
	ctx := context.Background()

	if _, err := fix.store.UpsertArticles(ctx, article("news_a", "A", "2026-01-01T00:00:00Z")); err != nil {
		t.Fatalf("UpsertArticles failed: %v", err)
	}
	if _, err := fix.store.SaveSnapshot(ctx, "doomed", news.SnapshotManual); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	if err := fix.store.Wipe(ctx); err != nil {
		t.Fatalf("Wipe failed: %v", err)
	}

	if len(fix.durable.articles) != 0 || len(fix.durable.snapshots) != 0 {
		t.Error("durable tier not cleared")
	}
	if len(fix.mirror.window) != 0 {
		t.Error("mirror not cleared")
	}
	if len(fix.remote.articles) != 0 {
		t.Error("remote not cleared")
	}
	state, err := fix.store.LoadState(ctx)
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if len(state.News) != 0 {
		t.Errorf("state after wipe = %d articles", len(state.News))
	}
}

func TestStatus_ReportsTierOutage(t *testing.T) {
	fix := newFixture(t, nil)
	ctx := context.Background()

	if _, err := fix.store.UpsertArticles(ctx, article("news_a", "A", "2026-01-05T00:00:00Z")); err != nil {
		t.Fatalf("UpsertArticles failed: %v", err)
	}
	fix.remote.failWith = errors.NewTierUnavailable("remote", nil)

	st, err := fix.store.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if st.Articles != 1 {
		t.Errorf("Articles = %d", st.Articles)
	}
	if !st.MirrorOK {
		t.Error("MirrorOK = false, mirror is healthy")
	}
	if st.RemoteOK {
		t.Error("RemoteOK = true, remote is down")
	}
	if st.LastUpdated != "2026-01-05T00:00:00Z" {
		t.Errorf("LastUpdated = %q", st.LastUpdated)
	}
}

func TestDeleteArticle_RemovesEverywhere(t *testing.T) {
	fix := newFixture(t, nil)
	ctx := context.Background()

	if _, err := fix.store.UpsertArticles(ctx,
		article("news_a", "A", "2026-01-01T00:00:00Z"),
		article("news_b", "B", "2026-01-02T00:00:00Z"),
	); err != nil {
		t.Fatalf("UpsertArticles failed: %v", err)
	}

	if err := fix.store.DeleteArticle(ctx, "news_a"); err != nil {
		t.Fatalf("DeleteArticle failed: %v", err)
	}
	if _, ok := fix.durable.articles["news_a"]; ok {
		t.Error("article still in durable tier")
	}
	if _, ok := fix.remote.articles["news_a"]; ok {
		t.Error("article still in remote tier")
	}
	for _, a := range fix.mirror.window {
		if a.ID == "news_a" {
			t.Error("article still in mirror window")
		}
	}
}
