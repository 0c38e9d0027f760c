package feedback

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/notforyou23/nextgen-system/internal/models"
	"github.com/notforyou23/nextgen-system/internal/storage"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seedBar(t *testing.T, store *storage.Store, ticker, date string, closePx float64) {
	t.Helper()
	_, err := store.UpsertPriceBars([]models.PriceBar{{
		Ticker: ticker, Date: date, Close: closePx, AdjustedClose: closePx, Source: "test",
	}})
	if err != nil {
		t.Fatalf("seed bar: %v", err)
	}
}

func seedPrediction(t *testing.T, store *storage.Store, id, ticker, direction string, asOf time.Time) {
	t.Helper()
	p := models.Prediction{
		PredictionID: id, Ticker: ticker, AsOf: asOf,
		Direction: direction, Probability: 0.7, Confidence: 0.6, CreatedAt: asOf,
	}
	if err := store.InsertPrediction(p); err != nil {
		t.Fatalf("seed prediction: %v", err)
	}
}

func TestValidateRecentAuditsAgainstNextSession(t *testing.T) {
	store := newTestStore(t)
	asOf := time.Now().UTC().AddDate(0, 0, -2)
	predDate := asOf.Format("2006-01-02")
	nextDate := asOf.AddDate(0, 0, 1).Format("2006-01-02")
	seedBar(t, store, "TEST", predDate, 10.0)
	seedBar(t, store, "TEST", nextDate, 11.0)
	seedPrediction(t, store, "p-up", "TEST", "UP", asOf)

	// A second prediction whose outcome session is not ingested yet.
	seedPrediction(t, store, "p-pending", "PEND", "UP", asOf)

	validator := NewValidator(store)
	result, err := validator.ValidateRecent(7)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if result.Validated != 1 || result.Correct != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Pending != 1 {
		t.Fatalf("expected 1 pending, got %d", result.Pending)
	}

	audits, err := store.ListAudits(predDate)
	if err != nil {
		t.Fatalf("audits: %v", err)
	}
	if len(audits) != 1 {
		t.Fatalf("expected 1 audit, got %d", len(audits))
	}
	a := audits[0]
	if a.PredictionID != "p-up" || !a.IsCorrect || a.ActualDirection != "UP" {
		t.Fatalf("unexpected audit: %+v", a)
	}
	if a.VerificationDate != nextDate {
		t.Fatalf("expected verification on next session, got %s", a.VerificationDate)
	}
	if a.PriceMove <= 0 {
		t.Fatalf("expected positive price move, got %f", a.PriceMove)
	}
}

func TestValidateMarksWrongDirectionIncorrect(t *testing.T) {
	store := newTestStore(t)
	asOf := time.Now().UTC().AddDate(0, 0, -2)
	seedBar(t, store, "TEST", asOf.Format("2006-01-02"), 10.0)
	seedBar(t, store, "TEST", asOf.AddDate(0, 0, 1).Format("2006-01-02"), 9.0)
	seedPrediction(t, store, "p-wrong", "TEST", "UP", asOf)

	validator := NewValidator(store)
	result, err := validator.ValidateRecent(7)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if result.Validated != 1 || result.Correct != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestValidateIsIdempotentAcrossRuns(t *testing.T) {
	store := newTestStore(t)
	asOf := time.Now().UTC().AddDate(0, 0, -2)
	seedBar(t, store, "TEST", asOf.Format("2006-01-02"), 10.0)
	seedBar(t, store, "TEST", asOf.AddDate(0, 0, 1).Format("2006-01-02"), 11.0)
	seedPrediction(t, store, "p1", "TEST", "UP", asOf)

	validator := NewValidator(store)
	if _, err := validator.ValidateRecent(7); err != nil {
		t.Fatalf("first validate: %v", err)
	}
	second, err := validator.ValidateRecent(7)
	if err != nil {
		t.Fatalf("second validate: %v", err)
	}
	if second.Validated != 0 {
		t.Fatalf("expected already-audited prediction to be skipped, got %+v", second)
	}
}

func TestEngineWritesMetricsAndSignals(t *testing.T) {
	store := newTestStore(t)
	today := time.Now().UTC().Format("2006-01-02")

	// WEAK: 0/3 correct; STRONG: 3/3 correct.
	for i, tc := range []struct {
		ticker  string
		correct bool
	}{
		{"WEAK", false}, {"WEAK", false}, {"WEAK", false},
		{"STRONG", true}, {"STRONG", true}, {"STRONG", true},
	} {
		audit := models.PredictionAudit{
			PredictionID:     "p" + string(rune('a'+i)),
			Ticker:           tc.ticker,
			PredictionDate:   today,
			VerificationDate: today,
			ActualDirection:  "UP",
			PriceMove:        0.01,
			IsCorrect:        tc.correct,
		}
		if err := store.InsertAudit(audit); err != nil {
			t.Fatalf("seed audit: %v", err)
		}
	}

	engine := NewEngine(store, 7, 0.5)
	summary, err := engine.Process()
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	if summary.Metrics["overall_accuracy"] != 0.5 {
		t.Fatalf("expected accuracy 0.5, got %f", summary.Metrics["overall_accuracy"])
	}
	if summary.Metrics["validated_count"] != 6 {
		t.Fatalf("expected 6 validated, got %f", summary.Metrics["validated_count"])
	}
	if len(summary.RetrainSignals) != 1 || summary.RetrainSignals[0] != "WEAK" {
		t.Fatalf("expected retrain signal for WEAK only, got %v", summary.RetrainSignals)
	}

	metrics, err := store.ListFeedbackMetrics(time.Now().UTC().AddDate(0, 0, -1))
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if len(metrics) != 2 {
		t.Fatalf("expected 2 stored metrics, got %d", len(metrics))
	}
}

func TestEngineWithNoAudits(t *testing.T) {
	store := newTestStore(t)
	engine := NewEngine(store, 7, 0.5)

	summary, err := engine.Process()
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if summary.Metrics["overall_accuracy"] != 0 || summary.Metrics["validated_count"] != 0 {
		t.Fatalf("unexpected metrics: %v", summary.Metrics)
	}
	if len(summary.RetrainSignals) != 0 {
		t.Fatalf("expected no signals, got %v", summary.RetrainSignals)
	}
}
