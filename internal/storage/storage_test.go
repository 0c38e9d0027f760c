package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/notforyou23/nextgen-system/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func strPtr(s string) *string { return &s }

func TestRunRecordLifecycle(t *testing.T) {
	store := newTestStore(t)

	triggered := time.Now().UTC().Truncate(time.Second)
	if err := store.InsertRunning("run-1", "ingest", triggered); err != nil {
		t.Fatalf("insert: %v", err)
	}

	run, err := store.GetRun("run-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if run.Status != models.RunStatusRunning {
		t.Fatalf("expected RUNNING, got %s", run.Status)
	}
	if run.CompletedAt != nil || run.Artifacts != nil || run.Error != nil {
		t.Fatal("expected nullable fields to be nil while RUNNING")
	}

	completed := triggered.Add(2 * time.Second)
	err = store.Finalize("run-1", models.RunStatusSuccess, completed, strPtr(`{"n":1}`), nil)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	run, err = store.GetRun("run-1")
	if err != nil {
		t.Fatalf("get after finalize: %v", err)
	}
	if run.Status != models.RunStatusSuccess {
		t.Fatalf("expected SUCCESS, got %s", run.Status)
	}
	if run.CompletedAt == nil {
		t.Fatal("expected completed_at")
	}
	if run.CompletedAt.Before(run.TriggeredAt) {
		t.Fatalf("completed_at %v before triggered_at %v", run.CompletedAt, run.TriggeredAt)
	}
	if run.Artifacts == nil || *run.Artifacts != `{"n":1}` {
		t.Fatalf("unexpected artifacts: %v", run.Artifacts)
	}
}

func TestFinalizeIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	triggered := time.Now().UTC()
	if err := store.InsertRunning("run-1", "t", triggered); err != nil {
		t.Fatalf("insert: %v", err)
	}

	completed := triggered.Add(time.Second)
	for i := 0; i < 2; i++ {
		err := store.Finalize("run-1", models.RunStatusFailed, completed, nil, strPtr("boom"))
		if err != nil {
			t.Fatalf("finalize attempt %d: %v", i+1, err)
		}
	}

	run, err := store.GetRun("run-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if run.Status != models.RunStatusFailed {
		t.Fatalf("expected FAILED, got %s", run.Status)
	}
	if run.Error == nil || *run.Error != "boom" {
		t.Fatalf("unexpected error detail: %v", run.Error)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	store := newTestStore(t)
	base := time.Now().UTC().Add(-time.Hour)
	for i, id := range []string{"r1", "r2", "r3"} {
		err := store.InsertRunning(id, "task", base.Add(time.Duration(i)*time.Minute))
		if err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	runs, err := store.ListRuns(2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].RunID != "r3" || runs[1].RunID != "r2" {
		t.Fatalf("unexpected order: %s, %s", runs[0].RunID, runs[1].RunID)
	}
}

func TestListRunsForTask(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()
	store.InsertRunning("a1", "alpha", now)
	store.InsertRunning("b1", "beta", now.Add(time.Second))
	store.InsertRunning("a2", "alpha", now.Add(2*time.Second))

	runs, err := store.ListRunsForTask("alpha", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 alpha runs, got %d", len(runs))
	}
	for _, run := range runs {
		if run.TaskName != "alpha" {
			t.Fatalf("unexpected task %s", run.TaskName)
		}
	}
}

func TestUniverseUpsert(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()
	entries := []models.UniverseEntry{
		{Ticker: "AAPL", Source: "seed", UpdatedAt: now},
		{Ticker: "MSFT", Source: "seed", UpdatedAt: now},
	}

	added, err := store.UpsertUniverse(entries)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if added != 2 {
		t.Fatalf("expected 2 added, got %d", added)
	}

	added, err = store.UpsertUniverse(entries)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if added != 0 {
		t.Fatalf("expected 0 added on re-upsert, got %d", added)
	}

	tickers, err := store.ListUniverseTickers()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tickers) != 2 || tickers[0] != "AAPL" || tickers[1] != "MSFT" {
		t.Fatalf("unexpected tickers: %v", tickers)
	}
}

func TestPriceBarQueries(t *testing.T) {
	store := newTestStore(t)
	bars := []models.PriceBar{
		{Ticker: "AAPL", Date: "2024-01-02", Close: 100, Source: "test"},
		{Ticker: "AAPL", Date: "2024-01-03", Close: 101, Source: "test"},
		{Ticker: "AAPL", Date: "2024-01-04", Close: 99, Source: "test"},
	}
	written, err := store.UpsertPriceBars(bars)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if written != 3 {
		t.Fatalf("expected 3 rows, got %d", written)
	}

	recent, err := store.ListRecentPrices("AAPL", 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 || recent[0].Date != "2024-01-04" {
		t.Fatalf("unexpected recent bars: %v", recent)
	}

	next, err := store.NextSessionBar("AAPL", "2024-01-02")
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if next == nil || next.Date != "2024-01-03" {
		t.Fatalf("unexpected next session: %v", next)
	}

	last, err := store.LastSessionBar("AAPL", "2024-01-03")
	if err != nil {
		t.Fatalf("last: %v", err)
	}
	if last == nil || last.Date != "2024-01-03" {
		t.Fatalf("unexpected last session: %v", last)
	}

	missing, err := store.NextSessionBar("AAPL", "2024-01-04")
	if err != nil {
		t.Fatalf("next missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for future session, got %v", missing)
	}
}

func TestArticlesDedupeAndSentimentSummary(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()
	articles := []models.NewsArticle{
		{Ticker: "AAPL", Headline: "shares surge", PublishedAt: now, URL: "http://a", Sentiment: 1},
		{Ticker: "AAPL", Headline: "shares fall", PublishedAt: now, URL: "http://b", Sentiment: -1},
	}

	written, err := store.InsertArticles(articles)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if written != 2 {
		t.Fatalf("expected 2 articles, got %d", written)
	}

	written, err = store.InsertArticles(articles)
	if err != nil {
		t.Fatalf("re-insert: %v", err)
	}
	if written != 0 {
		t.Fatalf("expected duplicates skipped, got %d", written)
	}

	avg, count, err := store.SentimentSummary("AAPL", now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if count != 2 || avg != 0 {
		t.Fatalf("expected avg 0 over 2 articles, got %f over %d", avg, count)
	}
}

func TestLatestFeatureWindow(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()
	old := models.FeatureWindow{Ticker: "AAPL", AsOf: now.Add(-time.Hour), Version: "v1", Features: `{"a":1}`}
	fresh := models.FeatureWindow{Ticker: "AAPL", AsOf: now, Version: "v1", Features: `{"a":2}`}
	if err := store.InsertFeatureWindow(old); err != nil {
		t.Fatalf("insert old: %v", err)
	}
	if err := store.InsertFeatureWindow(fresh); err != nil {
		t.Fatalf("insert fresh: %v", err)
	}

	w, err := store.LatestFeatureWindow("AAPL")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if w == nil || w.Features != `{"a":2}` {
		t.Fatalf("expected newest window, got %v", w)
	}

	none, err := store.LatestFeatureWindow("MSFT")
	if err != nil {
		t.Fatalf("latest missing: %v", err)
	}
	if none != nil {
		t.Fatalf("expected nil for ticker without windows, got %v", none)
	}
}

func TestUnauditedPredictions(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()

	p1 := models.Prediction{PredictionID: "p1", Ticker: "AAPL", AsOf: now, Direction: "UP", Probability: 0.7, Confidence: 0.6, CreatedAt: now}
	p2 := models.Prediction{PredictionID: "p2", Ticker: "MSFT", AsOf: now, Direction: "DOWN", Probability: 0.6, Confidence: 0.5, CreatedAt: now}
	for _, p := range []models.Prediction{p1, p2} {
		if err := store.InsertPrediction(p); err != nil {
			t.Fatalf("insert %s: %v", p.PredictionID, err)
		}
	}

	audit := models.PredictionAudit{
		PredictionID: "p1", Ticker: "AAPL",
		PredictionDate: now.Format("2006-01-02"), VerificationDate: now.Format("2006-01-02"),
		ActualDirection: "UP", PriceMove: 0.01, IsCorrect: true,
	}
	if err := store.InsertAudit(audit); err != nil {
		t.Fatalf("insert audit: %v", err)
	}

	pending, err := store.ListUnauditedPredictions(now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("list unaudited: %v", err)
	}
	if len(pending) != 1 || pending[0].PredictionID != "p2" {
		t.Fatalf("expected only p2 pending, got %v", pending)
	}
}
