package storage

import (
	"database/sql"
	"errors"
	"time"

	"github.com/notforyou23/nextgen-system/internal/models"
)

// UpsertUniverse inserts or refreshes universe entries. Returns how many
// tickers were newly added.
func (s *Store) UpsertUniverse(entries []models.UniverseEntry) (int, error) {
	var before, after int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM ticker_universe`).Scan(&before); err != nil {
		return 0, err
	}
	for _, e := range entries {
		_, err := s.db.Exec(
			`INSERT INTO ticker_universe (ticker, source, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(ticker) DO UPDATE SET source = excluded.source, updated_at = excluded.updated_at`,
			e.Ticker, e.Source, e.UpdatedAt,
		)
		if err != nil {
			return 0, err
		}
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM ticker_universe`).Scan(&after); err != nil {
		return 0, err
	}
	return after - before, nil
}

// ListUniverseTickers returns the current universe in ascending ticker order.
func (s *Store) ListUniverseTickers() ([]string, error) {
	rows, err := s.db.Query(`SELECT ticker FROM ticker_universe ORDER BY ticker`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tickers = append(tickers, t)
	}
	return tickers, rows.Err()
}

// UpsertPriceBars writes daily bars, replacing any existing row for the same
// (ticker, date). Returns the number of rows written.
func (s *Store) UpsertPriceBars(bars []models.PriceBar) (int, error) {
	written := 0
	now := time.Now().UTC()
	for _, b := range bars {
		_, err := s.db.Exec(
			`INSERT INTO market_prices (ticker, date, open, high, low, close, adjusted_close, volume, source, ingested_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(ticker, date) DO UPDATE SET
			   open = excluded.open, high = excluded.high, low = excluded.low,
			   close = excluded.close, adjusted_close = excluded.adjusted_close,
			   volume = excluded.volume, source = excluded.source, ingested_at = excluded.ingested_at`,
			b.Ticker, b.Date, b.Open, b.High, b.Low, b.Close, b.AdjustedClose, b.Volume, b.Source, now,
		)
		if err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

// ListRecentPrices returns up to limit bars for a ticker, most recent session
// first.
func (s *Store) ListRecentPrices(ticker string, limit int) ([]models.PriceBar, error) {
	rows, err := s.db.Query(
		`SELECT ticker, date, open, high, low, close, adjusted_close, volume, source
		 FROM market_prices WHERE ticker = ? ORDER BY date DESC LIMIT ?`,
		ticker, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bars []models.PriceBar
	for rows.Next() {
		var b models.PriceBar
		err := rows.Scan(&b.Ticker, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.AdjustedClose, &b.Volume, &b.Source)
		if err != nil {
			return nil, err
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// NextSessionBar returns the earliest bar strictly after the given date, used
// to verify a prediction against the following trading session. Returns nil
// when no later session has been ingested yet.
func (s *Store) NextSessionBar(ticker, afterDate string) (*models.PriceBar, error) {
	row := s.db.QueryRow(
		`SELECT ticker, date, open, high, low, close, adjusted_close, volume, source
		 FROM market_prices WHERE ticker = ? AND date > ? ORDER BY date ASC LIMIT 1`,
		ticker, afterDate,
	)

	var b models.PriceBar
	err := row.Scan(&b.Ticker, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.AdjustedClose, &b.Volume, &b.Source)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

// LastSessionBar returns the latest bar on or before the given date, or nil
// when no such session has been ingested.
func (s *Store) LastSessionBar(ticker, onOrBefore string) (*models.PriceBar, error) {
	row := s.db.QueryRow(
		`SELECT ticker, date, open, high, low, close, adjusted_close, volume, source
		 FROM market_prices WHERE ticker = ? AND date <= ? ORDER BY date DESC LIMIT 1`,
		ticker, onOrBefore,
	)

	var b models.PriceBar
	err := row.Scan(&b.Ticker, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.AdjustedClose, &b.Volume, &b.Source)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

// CloseOn returns the closing price for a ticker on a given session, or nil
// if that session is absent.
func (s *Store) CloseOn(ticker, date string) (*float64, error) {
	row := s.db.QueryRow(
		`SELECT close FROM market_prices WHERE ticker = ? AND date = ?`, ticker, date,
	)
	var c float64
	if err := row.Scan(&c); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}
