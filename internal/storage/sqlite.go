// Package storage is the SQLite persistence layer shared by the registry
// (task_runs) and the pipeline task bodies (market, news, feature, prediction,
// feedback, and trade tables). Writes serialize at the database through WAL
// plus a busy timeout, so concurrent top-level invocations are safe without
// any locking in the registry.
package storage

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA synchronous=NORMAL;`,
		`PRAGMA busy_timeout=60000;`,
		`PRAGMA foreign_keys=ON;`,
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, err
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS task_runs (
		run_id TEXT PRIMARY KEY,
		task_name TEXT NOT NULL,
		status TEXT NOT NULL,
		triggered_at TIMESTAMP NOT NULL,
		completed_at TIMESTAMP,
		artifacts TEXT,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_task_runs_triggered ON task_runs(triggered_at);
	CREATE INDEX IF NOT EXISTS idx_task_runs_task ON task_runs(task_name);

	CREATE TABLE IF NOT EXISTS ticker_universe (
		ticker TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS market_prices (
		ticker TEXT NOT NULL,
		date TEXT NOT NULL,
		open REAL, high REAL, low REAL, close REAL,
		adjusted_close REAL, volume REAL,
		source TEXT NOT NULL,
		ingested_at TIMESTAMP NOT NULL,
		PRIMARY KEY (ticker, date)
	);

	CREATE TABLE IF NOT EXISTS news_articles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ticker TEXT NOT NULL,
		headline TEXT NOT NULL,
		published_at TIMESTAMP NOT NULL,
		source TEXT,
		url TEXT,
		sentiment REAL NOT NULL,
		UNIQUE (ticker, url)
	);

	CREATE TABLE IF NOT EXISTS feature_windows (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ticker TEXT NOT NULL,
		as_of TIMESTAMP NOT NULL,
		version TEXT NOT NULL,
		features TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_feature_windows_ticker ON feature_windows(ticker, as_of);

	CREATE TABLE IF NOT EXISTS predictions (
		prediction_id TEXT PRIMARY KEY,
		ticker TEXT NOT NULL,
		as_of TIMESTAMP NOT NULL,
		direction TEXT NOT NULL,
		probability REAL NOT NULL,
		confidence REAL NOT NULL,
		diagnostics TEXT,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_predictions_created ON predictions(created_at);

	CREATE TABLE IF NOT EXISTS prediction_audits (
		prediction_id TEXT PRIMARY KEY,
		ticker TEXT NOT NULL,
		prediction_date TEXT NOT NULL,
		verification_date TEXT NOT NULL,
		actual_direction TEXT NOT NULL,
		price_move REAL NOT NULL,
		is_correct INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS feedback_metrics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		as_of TIMESTAMP NOT NULL,
		metric_name TEXT NOT NULL,
		metric_value REAL NOT NULL,
		status TEXT NOT NULL,
		details TEXT
	);

	CREATE TABLE IF NOT EXISTS retrain_signals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ticker TEXT NOT NULL,
		reason TEXT NOT NULL,
		confidence REAL NOT NULL,
		created_at TIMESTAMP NOT NULL,
		processed_at TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS trades (
		trade_id TEXT PRIMARY KEY,
		ticker TEXT NOT NULL,
		side TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		price REAL NOT NULL,
		rationale TEXT,
		executed_at TIMESTAMP NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}
