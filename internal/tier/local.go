package tier

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rborin01/truepress/internal/config"
	"github.com/rborin01/truepress/internal/errors"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest sqlite schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// Local is the durable on-device tier, backed by sqlite. Besides
// articles it carries the records that ride in the same store:
// investigations, the current-state report row, snapshots, and
// embedding documents.
type Local struct {
	db *sql.DB
}

// OpenLocal initializes the sqlite database at baseDir/truepress.db.
// The baseDir parameter allows tests to use t.TempDir() instead of
// ~/.truepress.
func OpenLocal(baseDir string, cfg *config.Config) (*Local, error) {
	// Create base directory with restricted permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	_ = os.Chmod(baseDir, 0700)

	// Create exports subdirectory
	exportsDir := filepath.Join(baseDir, "exports")
	if err := os.MkdirAll(exportsDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create exports directory: %w", err)
	}
	_ = os.Chmod(exportsDir, 0700)

	// Open database with pragmas in connection string (applies to all connections)
	dbPath := filepath.Join(baseDir, "truepress.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	// Set file permissions after file exists (best-effort)
	_ = os.Chmod(dbPath, 0600)

	if cfg != nil {
		if cfg.DBMaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.DBMaxOpenConns)
		}
		if cfg.DBMaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.DBMaxIdleConns)
		}
	}

	return &Local{db: db}, nil
}

// Name implements Tier.
func (l *Local) Name() string { return "local" }

// Close closes the underlying database.
func (l *Local) Close() error { return l.db.Close() }

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := getUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: Initial schema (v1)
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS articles (
		  id                 TEXT PRIMARY KEY,
		  title              TEXT NOT NULL,
		  category           TEXT NOT NULL,
		  timeframe          TEXT NOT NULL,
		  narrative          TEXT NOT NULL,
		  intent             TEXT NOT NULL,
		  action             TEXT NOT NULL,
		  truth              TEXT NOT NULL,
		  personal_impact    TEXT NOT NULL,
		  scenarios_json     TEXT NOT NULL,
		  relevance_score    INTEGER NOT NULL,
		  national_relevance INTEGER NOT NULL,
		  date_added         TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_articles_date_added
		ON articles(date_added DESC);

		CREATE TABLE IF NOT EXISTS investigations (
		  id         TEXT PRIMARY KEY,
		  title      TEXT NOT NULL,
		  category   TEXT NOT NULL,
		  anomaly    TEXT,
		  algorithm  TEXT,
		  findings   TEXT,
		  action     TEXT,
		  date_added TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS reports (
		  date         TEXT PRIMARY KEY,
		  payload_json TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS snapshots (
		  id         TEXT PRIMARY KEY,
		  name       TEXT NOT NULL,
		  timestamp  TEXT NOT NULL,
		  type       TEXT NOT NULL,
		  item_count INTEGER NOT NULL,
		  data_json  TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_snapshots_timestamp
		ON snapshots(timestamp DESC);

		CREATE TABLE IF NOT EXISTS embeddings (
		  id             TEXT PRIMARY KEY,
		  news_id        TEXT NOT NULL,
		  text           TEXT NOT NULL,
		  embedding_json TEXT NOT NULL,
		  category       TEXT NOT NULL,
		  date           TEXT NOT NULL,
		  title          TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_embeddings_news_id
		ON embeddings(news_id);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := setUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 2 { ... }

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

func getUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

func setUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}

// WipeAll clears every table. Used by the full-store wipe operation;
// per-kind Clear methods exist for targeted resets.
func (l *Local) WipeAll(ctx context.Context) error {
	for _, table := range []string{"articles", "investigations", "reports", "snapshots", "embeddings"} {
		if _, err := l.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return errors.NewInternal(fmt.Errorf("wipe %s: %w", table, err))
		}
	}
	return nil
}

// CountArticles returns the number of stored articles.
func (l *Local) CountArticles(ctx context.Context) (int, error) {
	var n int
	if err := l.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles").Scan(&n); err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// LatestDateAdded returns the most recent article timestamp, or "" when
// the store is empty.
func (l *Local) LatestDateAdded(ctx context.Context) (string, error) {
	var date sql.NullString
	err := l.db.QueryRowContext(ctx, "SELECT MAX(date_added) FROM articles").Scan(&date)
	if err != nil {
		return "", errors.NewInternal(err)
	}
	if !date.Valid {
		return "", nil
	}
	return date.String, nil
}

var _ Tier = (*Local)(nil)
