package tasks

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/notforyou23/nextgen-system/internal/config"
	"github.com/notforyou23/nextgen-system/internal/models"
	"github.com/notforyou23/nextgen-system/internal/registry"
	"github.com/notforyou23/nextgen-system/internal/storage"
)

type fakeMarketProvider struct {
	bars map[string][]models.PriceBar
}

func (f *fakeMarketProvider) FetchHistory(ticker string, start, end time.Time) ([]models.PriceBar, error) {
	return f.bars[ticker], nil
}

type fakeNewsProvider struct {
	articles map[string][]models.NewsArticle
}

func (f *fakeNewsProvider) FetchArticles(ticker string) ([]models.NewsArticle, error) {
	return f.articles[ticker], nil
}

// risingBars produces a steadily climbing price series ending tomorrow, so a
// prediction made today can be validated against the next session in the same
// test run.
func risingBars(ticker string, days int) []models.PriceBar {
	bars := make([]models.PriceBar, days)
	price := 100.0
	start := time.Now().UTC().AddDate(0, 0, -(days - 2))
	for i := range bars {
		bars[i] = models.PriceBar{
			Ticker: ticker,
			Date:   start.AddDate(0, 0, i).Format("2006-01-02"),
			Open:   price, High: price * 1.01, Low: price * 0.99,
			Close: price, AdjustedClose: price,
			Volume: 1000000, Source: "fake",
		}
		price *= 1.03
	}
	return bars
}

func newPipelineEnv(t *testing.T, market *fakeMarketProvider, news *fakeNewsProvider) (*registry.Registry, *storage.Store) {
	t.Helper()
	store, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cfg := &config.Config{
		Universe:  config.UniverseConfig{Seed: []string{"AAPL"}},
		Ingestion: config.IngestionConfig{WindowDays: 30, MaxRetries: 1, NewsDays: 7},
		Features:  config.FeaturesConfig{WindowDays: 30, Version: "v1"},
		Feedback:  config.FeedbackConfig{DaysBack: 7, AccuracyThreshold: 0.5},
		Trading:   config.TradingConfig{MinConfidence: 0.6, MaxTrades: 5, PositionSize: 10},
	}

	reg := registry.New(store)
	NewPipeline(store, cfg, market, news).Register(reg)
	return reg, store
}

func TestFullChainRunsEveryTaskOnce(t *testing.T) {
	market := &fakeMarketProvider{bars: map[string][]models.PriceBar{
		"AAPL": risingBars("AAPL", 12),
	}}
	news := &fakeNewsProvider{articles: map[string][]models.NewsArticle{
		"AAPL": {{
			Ticker: "AAPL", Headline: "Apple shares surge to record high on strong growth",
			PublishedAt: time.Now().UTC(), URL: "http://example.com/a",
		}},
	}}
	reg, store := newPipelineEnv(t, market, news)

	runID, err := reg.Run("trading_cycle_intraday")
	if err != nil {
		t.Fatalf("chain run failed: %v", err)
	}
	if len(runID) != 32 {
		t.Fatalf("unexpected run id %q", runID)
	}

	runs, err := store.ListRuns(50)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 8 {
		t.Fatalf("expected 8 run records for the full chain, got %d", len(runs))
	}

	perTask := map[string]int{}
	for _, run := range runs {
		perTask[run.TaskName]++
		if run.Status != models.RunStatusSuccess {
			t.Fatalf("task %s finished %s (error: %v)", run.TaskName, run.Status, run.Error)
		}
		if run.CompletedAt == nil || run.Artifacts == nil {
			t.Fatalf("task %s missing completion fields: %+v", run.TaskName, run)
		}
	}
	// build_ticker_universe feeds both ingestion tasks but must run once.
	if perTask["build_ticker_universe"] != 1 {
		t.Fatalf("expected shared dependency to run once, got %d", perTask["build_ticker_universe"])
	}
	for _, name := range reg.List() {
		if perTask[name] != 1 {
			t.Fatalf("task %s ran %d times", name, perTask[name])
		}
	}

	trades, err := store.ListRecentTrades(10)
	if err != nil {
		t.Fatalf("trades: %v", err)
	}
	if len(trades) != 1 || trades[0].Ticker != "AAPL" {
		t.Fatalf("expected one AAPL trade from the cycle, got %v", trades)
	}
}

func TestChainStopsAtFailedDependency(t *testing.T) {
	// Empty providers: universe curation succeeds, market ingestion writes
	// zero rows and fails.
	market := &fakeMarketProvider{bars: map[string][]models.PriceBar{}}
	news := &fakeNewsProvider{articles: map[string][]models.NewsArticle{}}
	reg, store := newPipelineEnv(t, market, news)

	_, err := reg.Run("build_features_daily")
	if err == nil {
		t.Fatal("expected chain to fail on empty market data")
	}
	var runErr *registry.RunError
	if !errors.As(err, &runErr) {
		t.Fatalf("expected RunError, got %T: %v", err, err)
	}
	if runErr.Task != "ingest_market_daily" {
		t.Fatalf("expected failure in ingest_market_daily, got %s", runErr.Task)
	}

	failed, err := store.GetRun(runErr.RunID)
	if err != nil {
		t.Fatalf("get failed run: %v", err)
	}
	if failed.Status != models.RunStatusFailed {
		t.Fatalf("expected FAILED, got %s", failed.Status)
	}
	if failed.Error == nil || failed.Artifacts != nil {
		t.Fatalf("unexpected failure record: %+v", failed)
	}

	runs, err := store.ListRuns(50)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	// Only the universe task and the failed ingestion ran; build_features
	// and the sibling news task never started.
	if len(runs) != 2 {
		t.Fatalf("expected 2 run records, got %d", len(runs))
	}
	for _, run := range runs {
		if run.TaskName == "build_features_daily" || run.TaskName == "ingest_news_hourly" {
			t.Fatalf("task %s should not have run", run.TaskName)
		}
	}
}

func TestRegisterExposesAllPipelineTasks(t *testing.T) {
	reg, _ := newPipelineEnv(t, &fakeMarketProvider{}, &fakeNewsProvider{})

	want := []string{
		"build_features_daily",
		"build_ticker_universe",
		"feedback_daily",
		"ingest_market_daily",
		"ingest_news_hourly",
		"run_predictions_daily",
		"trading_cycle_intraday",
		"validate_predictions_daily",
	}
	got := reg.List()
	if len(got) != len(want) {
		t.Fatalf("expected %d tasks, got %d: %v", len(want), len(got), got)
	}
	for i, name := range want {
		if got[i] != name {
			t.Fatalf("task %d: expected %s, got %s", i, name, got[i])
		}
	}

	def, err := reg.Get("trading_cycle_intraday")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(def.Dependencies) != 1 || def.Dependencies[0] != "feedback_daily" {
		t.Fatalf("unexpected dependencies: %v", def.Dependencies)
	}
}
