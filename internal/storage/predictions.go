package storage

import (
	"database/sql"
	"errors"
	"time"

	"github.com/notforyou23/nextgen-system/internal/models"
)

func (s *Store) InsertFeatureWindow(w models.FeatureWindow) error {
	_, err := s.db.Exec(
		`INSERT INTO feature_windows (ticker, as_of, version, features, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		w.Ticker, w.AsOf, w.Version, w.Features, time.Now().UTC(),
	)
	return err
}

// LatestFeatureWindow returns the newest window for a ticker, or nil when the
// ticker has no windows yet.
func (s *Store) LatestFeatureWindow(ticker string) (*models.FeatureWindow, error) {
	row := s.db.QueryRow(
		`SELECT id, ticker, as_of, version, features
		 FROM feature_windows WHERE ticker = ? ORDER BY as_of DESC, id DESC LIMIT 1`,
		ticker,
	)

	var w models.FeatureWindow
	err := row.Scan(&w.ID, &w.Ticker, &w.AsOf, &w.Version, &w.Features)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &w, nil
}

func (s *Store) InsertPrediction(p models.Prediction) error {
	_, err := s.db.Exec(
		`INSERT INTO predictions (prediction_id, ticker, as_of, direction, probability, confidence, diagnostics, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.PredictionID, p.Ticker, p.AsOf, p.Direction, p.Probability, p.Confidence, p.Diagnostics, p.CreatedAt,
	)
	return err
}

// ListRecentPredictions returns the newest predictions, optionally filtered
// by ticker.
func (s *Store) ListRecentPredictions(limit int, ticker string) ([]models.Prediction, error) {
	query := `SELECT prediction_id, ticker, as_of, direction, probability, confidence, COALESCE(diagnostics, ''), created_at
		 FROM predictions`
	args := []any{}
	if ticker != "" {
		query += ` WHERE ticker = ?`
		args = append(args, ticker)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var preds []models.Prediction
	for rows.Next() {
		var p models.Prediction
		err := rows.Scan(&p.PredictionID, &p.Ticker, &p.AsOf, &p.Direction, &p.Probability, &p.Confidence, &p.Diagnostics, &p.CreatedAt)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return preds, rows.Err()
}

// ListUnauditedPredictions returns predictions made since the cutoff that do
// not yet have an audit row.
func (s *Store) ListUnauditedPredictions(since time.Time) ([]models.Prediction, error) {
	rows, err := s.db.Query(
		`SELECT p.prediction_id, p.ticker, p.as_of, p.direction, p.probability, p.confidence, COALESCE(p.diagnostics, ''), p.created_at
		 FROM predictions p
		 LEFT JOIN prediction_audits a ON a.prediction_id = p.prediction_id
		 WHERE p.created_at >= ? AND a.prediction_id IS NULL
		 ORDER BY p.created_at`,
		since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var preds []models.Prediction
	for rows.Next() {
		var p models.Prediction
		err := rows.Scan(&p.PredictionID, &p.Ticker, &p.AsOf, &p.Direction, &p.Probability, &p.Confidence, &p.Diagnostics, &p.CreatedAt)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return preds, rows.Err()
}

func (s *Store) InsertAudit(a models.PredictionAudit) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO prediction_audits (prediction_id, ticker, prediction_date, verification_date, actual_direction, price_move, is_correct)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.PredictionID, a.Ticker, a.PredictionDate, a.VerificationDate, a.ActualDirection, a.PriceMove, a.IsCorrect,
	)
	return err
}

// ListAudits returns audits whose prediction date falls on or after the cutoff.
func (s *Store) ListAudits(since string) ([]models.PredictionAudit, error) {
	rows, err := s.db.Query(
		`SELECT prediction_id, ticker, prediction_date, verification_date, actual_direction, price_move, is_correct
		 FROM prediction_audits WHERE prediction_date >= ? ORDER BY prediction_date DESC`,
		since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var audits []models.PredictionAudit
	for rows.Next() {
		var a models.PredictionAudit
		err := rows.Scan(&a.PredictionID, &a.Ticker, &a.PredictionDate, &a.VerificationDate, &a.ActualDirection, &a.PriceMove, &a.IsCorrect)
		if err != nil {
			return nil, err
		}
		audits = append(audits, a)
	}
	return audits, rows.Err()
}

func (s *Store) InsertFeedbackMetric(m models.FeedbackMetric) error {
	_, err := s.db.Exec(
		`INSERT INTO feedback_metrics (as_of, metric_name, metric_value, status, details)
		 VALUES (?, ?, ?, ?, ?)`,
		m.AsOf, m.MetricName, m.MetricValue, m.Status, m.Details,
	)
	return err
}

func (s *Store) ListFeedbackMetrics(since time.Time) ([]models.FeedbackMetric, error) {
	rows, err := s.db.Query(
		`SELECT as_of, metric_name, metric_value, status, COALESCE(details, '')
		 FROM feedback_metrics WHERE as_of >= ? ORDER BY as_of DESC`,
		since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metrics []models.FeedbackMetric
	for rows.Next() {
		var m models.FeedbackMetric
		if err := rows.Scan(&m.AsOf, &m.MetricName, &m.MetricValue, &m.Status, &m.Details); err != nil {
			return nil, err
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

func (s *Store) InsertRetrainSignal(sig models.RetrainSignal) error {
	_, err := s.db.Exec(
		`INSERT INTO retrain_signals (ticker, reason, confidence, created_at)
		 VALUES (?, ?, ?, ?)`,
		sig.Ticker, sig.Reason, sig.Confidence, sig.CreatedAt,
	)
	return err
}

func (s *Store) InsertTrade(t models.Trade) error {
	_, err := s.db.Exec(
		`INSERT INTO trades (trade_id, ticker, side, quantity, price, rationale, executed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.Ticker, t.Side, t.Quantity, t.Price, t.Rationale, t.ExecutedAt,
	)
	return err
}

func (s *Store) ListRecentTrades(limit int) ([]models.Trade, error) {
	rows, err := s.db.Query(
		`SELECT trade_id, ticker, side, quantity, price, COALESCE(rationale, ''), executed_at
		 FROM trades ORDER BY executed_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		var t models.Trade
		err := rows.Scan(&t.TradeID, &t.Ticker, &t.Side, &t.Quantity, &t.Price, &t.Rationale, &t.ExecutedAt)
		if err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}
