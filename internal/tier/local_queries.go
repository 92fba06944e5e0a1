package tier

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/rborin01/truepress/internal/errors"
	"github.com/rborin01/truepress/internal/news"
)

const articleCols = `id, title, category, timeframe, narrative, intent, action, truth,
	personal_impact, scenarios_json, relevance_score, national_relevance, date_added`

// Get implements Tier.
func (l *Local) Get(ctx context.Context, id string) (*news.Article, error) {
	row := l.db.QueryRowContext(ctx,
		"SELECT "+articleCols+" FROM articles WHERE id = ?", id)

	a, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return a, nil
}

// GetAll implements Tier.
func (l *Local) GetAll(ctx context.Context) ([]news.Article, error) {
	rows, err := l.db.QueryContext(ctx,
		"SELECT "+articleCols+" FROM articles ORDER BY date_added DESC")
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var items []news.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		items = append(items, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return items, nil
}

// Put implements Tier. All items land in one transaction; a batch either
// persists fully or not at all.
func (l *Local) Put(ctx context.Context, items ...news.Article) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO articles (`+articleCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			category = excluded.category,
			timeframe = excluded.timeframe,
			narrative = excluded.narrative,
			intent = excluded.intent,
			action = excluded.action,
			truth = excluded.truth,
			personal_impact = excluded.personal_impact,
			scenarios_json = excluded.scenarios_json,
			relevance_score = excluded.relevance_score,
			national_relevance = excluded.national_relevance,
			date_added = excluded.date_added
	`)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer stmt.Close()

	for _, a := range items {
		scenarios, err := json.Marshal(a.Scenarios)
		if err != nil {
			return errors.NewInternal(err)
		}
		if _, err := stmt.ExecContext(ctx,
			a.ID, a.Title, a.Category, string(a.Timeframe), a.Narrative,
			a.Intent, a.Action, a.Truth, a.PersonalImpact, string(scenarios),
			a.RelevanceScore, a.NationalRelevance, a.DateAdded,
		); err != nil {
			return errors.NewInternal(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// Delete implements Tier.
func (l *Local) Delete(ctx context.Context, id string) error {
	if _, err := l.db.ExecContext(ctx, "DELETE FROM articles WHERE id = ?", id); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// Clear implements Tier.
func (l *Local) Clear(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, "DELETE FROM articles"); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanArticle.
type scanner interface {
	Scan(dest ...any) error
}

func scanArticle(row scanner) (*news.Article, error) {
	var (
		a         news.Article
		timeframe string
		scenarios string
	)
	err := row.Scan(
		&a.ID, &a.Title, &a.Category, &timeframe, &a.Narrative,
		&a.Intent, &a.Action, &a.Truth, &a.PersonalImpact, &scenarios,
		&a.RelevanceScore, &a.NationalRelevance, &a.DateAdded,
	)
	if err != nil {
		return nil, err
	}
	a.Timeframe = news.Timeframe(timeframe)
	if err := json.Unmarshal([]byte(scenarios), &a.Scenarios); err != nil {
		return nil, err
	}
	return &a, nil
}

// --- investigations ---

// PutInvestigations upserts investigation records.
func (l *Local) PutInvestigations(ctx context.Context, items ...news.Investigation) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, inv := range items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO investigations (id, title, category, anomaly, algorithm, findings, action, date_added)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				title = excluded.title,
				category = excluded.category,
				anomaly = excluded.anomaly,
				algorithm = excluded.algorithm,
				findings = excluded.findings,
				action = excluded.action,
				date_added = excluded.date_added
		`, inv.ID, inv.Title, inv.Category, inv.Anomaly, inv.Algorithm,
			inv.Findings, inv.Action, inv.DateAdded); err != nil {
			return errors.NewInternal(err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetInvestigations returns all investigation records, newest first.
func (l *Local) GetInvestigations(ctx context.Context) ([]news.Investigation, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, title, category, anomaly, algorithm, findings, action, date_added
		FROM investigations ORDER BY date_added DESC`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var items []news.Investigation
	for rows.Next() {
		var (
			inv       news.Investigation
			anomaly   sql.NullString
			algorithm sql.NullString
			findings  sql.NullString
			action    sql.NullString
		)
		if err := rows.Scan(&inv.ID, &inv.Title, &inv.Category, &anomaly,
			&algorithm, &findings, &action, &inv.DateAdded); err != nil {
			return nil, errors.NewInternal(err)
		}
		inv.Anomaly = anomaly.String
		inv.Algorithm = algorithm.String
		inv.Findings = findings.String
		inv.Action = action.String
		items = append(items, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return items, nil
}

// --- current-state report ---

// SaveReport writes the report under its date key. The live record always
// uses news.ReportKey; dated historical reports share the table.
func (l *Local) SaveReport(ctx context.Context, r news.Report) error {
	if r.Date == "" {
		r.Date = news.ReportKey
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return errors.NewInternal(err)
	}
	if _, err := l.db.ExecContext(ctx, `
		INSERT INTO reports (date, payload_json) VALUES (?, ?)
		ON CONFLICT(date) DO UPDATE SET payload_json = excluded.payload_json
	`, r.Date, string(payload)); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// LoadReport reads the current-state report row. Returns (nil, nil) when
// no state has been saved yet.
func (l *Local) LoadReport(ctx context.Context) (*news.Report, error) {
	var payload string
	err := l.db.QueryRowContext(ctx,
		"SELECT payload_json FROM reports WHERE date = ?", news.ReportKey).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	var r news.Report
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return nil, errors.NewInternal(err)
	}
	return &r, nil
}

// --- snapshots ---

// PutSnapshot stores a snapshot. Snapshots are immutable; writing an
// existing id replaces the row byte-for-byte, which only happens on
// import of a previously exported snapshot.
func (l *Local) PutSnapshot(ctx context.Context, s news.Snapshot) error {
	data, err := json.Marshal(s.Data)
	if err != nil {
		return errors.NewInternal(err)
	}
	if _, err := l.db.ExecContext(ctx, `
		INSERT INTO snapshots (id, name, timestamp, type, item_count, data_json)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			timestamp = excluded.timestamp,
			type = excluded.type,
			item_count = excluded.item_count,
			data_json = excluded.data_json
	`, s.ID, s.Name, s.Timestamp, string(s.Type), s.ItemCount, string(data)); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetSnapshot retrieves a snapshot by id.
func (l *Local) GetSnapshot(ctx context.Context, id string) (*news.Snapshot, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT id, name, timestamp, type, item_count, data_json
		FROM snapshots WHERE id = ?`, id)

	s, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return s, nil
}

// ListSnapshots returns all snapshots, newest first.
func (l *Local) ListSnapshots(ctx context.Context) ([]news.Snapshot, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, name, timestamp, type, item_count, data_json
		FROM snapshots ORDER BY timestamp DESC`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var items []news.Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		items = append(items, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return items, nil
}

// DeleteSnapshot removes a snapshot by id.
func (l *Local) DeleteSnapshot(ctx context.Context, id string) error {
	res, err := l.db.ExecContext(ctx, "DELETE FROM snapshots WHERE id = ?", id)
	if err != nil {
		return errors.NewInternal(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if affected == 0 {
		return errors.NewNotFound(id)
	}
	return nil
}

func scanSnapshot(row scanner) (*news.Snapshot, error) {
	var (
		s    news.Snapshot
		typ  string
		data string
	)
	if err := row.Scan(&s.ID, &s.Name, &s.Timestamp, &typ, &s.ItemCount, &data); err != nil {
		return nil, err
	}
	s.Type = news.SnapshotType(typ)
	if err := json.Unmarshal([]byte(data), &s.Data); err != nil {
		return nil, err
	}
	return &s, nil
}

// --- embedding documents ---

// PutEmbedding stores an embedding document.
func (l *Local) PutEmbedding(ctx context.Context, doc news.EmbeddingDoc) error {
	vec, err := json.Marshal(doc.Embedding)
	if err != nil {
		return errors.NewInternal(err)
	}
	if _, err := l.db.ExecContext(ctx, `
		INSERT INTO embeddings (id, news_id, text, embedding_json, category, date, title)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			news_id = excluded.news_id,
			text = excluded.text,
			embedding_json = excluded.embedding_json,
			category = excluded.category,
			date = excluded.date,
			title = excluded.title
	`, doc.ID, doc.NewsID, doc.Text, string(vec), doc.Category, doc.Date, doc.Title); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetEmbeddingByNewsID returns the embedding document owned by the given
// article id, or (nil, nil) when the article is not indexed.
func (l *Local) GetEmbeddingByNewsID(ctx context.Context, newsID string) (*news.EmbeddingDoc, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT id, news_id, text, embedding_json, category, date, title
		FROM embeddings WHERE news_id = ? LIMIT 1`, newsID)

	doc, err := scanEmbedding(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return doc, nil
}

// GetAllEmbeddings returns every embedding document.
func (l *Local) GetAllEmbeddings(ctx context.Context) ([]news.EmbeddingDoc, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, news_id, text, embedding_json, category, date, title
		FROM embeddings`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var docs []news.EmbeddingDoc
	for rows.Next() {
		doc, err := scanEmbedding(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return docs, nil
}

// DeleteEmbedding removes an embedding document by its own id.
func (l *Local) DeleteEmbedding(ctx context.Context, id string) error {
	if _, err := l.db.ExecContext(ctx, "DELETE FROM embeddings WHERE id = ?", id); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// CountEmbeddings returns the number of stored embedding documents.
func (l *Local) CountEmbeddings(ctx context.Context) (int, error) {
	var n int
	if err := l.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM embeddings").Scan(&n); err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

func scanEmbedding(row scanner) (*news.EmbeddingDoc, error) {
	var (
		doc news.EmbeddingDoc
		vec string
	)
	if err := row.Scan(&doc.ID, &doc.NewsID, &doc.Text, &vec,
		&doc.Category, &doc.Date, &doc.Title); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(vec), &doc.Embedding); err != nil {
		return nil, err
	}
	return &doc, nil
}
