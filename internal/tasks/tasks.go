// Package tasks wires the pipeline services into the task registry: the
// eight named tasks, their dependency chain, and the bodies that call into
// the services.
package tasks

import (
	"encoding/json"
	"errors"

	"github.com/notforyou23/nextgen-system/internal/config"
	"github.com/notforyou23/nextgen-system/internal/feedback"
	"github.com/notforyou23/nextgen-system/internal/features"
	"github.com/notforyou23/nextgen-system/internal/ingest"
	"github.com/notforyou23/nextgen-system/internal/models"
	"github.com/notforyou23/nextgen-system/internal/predict"
	"github.com/notforyou23/nextgen-system/internal/registry"
	"github.com/notforyou23/nextgen-system/internal/storage"
	"github.com/notforyou23/nextgen-system/internal/trading"
)

// Pipeline bundles the services the task bodies close over.
type Pipeline struct {
	Curator   *ingest.UniverseCurator
	Market    *ingest.MarketService
	News      *ingest.NewsService
	Features  *features.Builder
	Predictor *predict.Service
	Validator *feedback.Validator
	Feedback  *feedback.Engine
	Trading   *trading.Service

	validateDaysBack int
}

// NewPipeline builds the service graph from config. Providers are injected so
// the driver can pass live HTTP providers and tests can pass fakes.
func NewPipeline(store *storage.Store, cfg *config.Config, market ingest.MarketProvider, news ingest.NewsProvider) *Pipeline {
	return &Pipeline{
		Curator:          ingest.NewUniverseCurator(store, cfg.Universe.Seed),
		Market:           ingest.NewMarketService(store, market, cfg.Ingestion.WindowDays),
		News:             ingest.NewNewsService(store, news),
		Features:         features.NewBuilder(store, cfg.Features.WindowDays, cfg.Features.Version),
		Predictor:        predict.NewService(store),
		Validator:        feedback.NewValidator(store),
		Feedback:         feedback.NewEngine(store, cfg.Feedback.DaysBack, cfg.Feedback.AccuracyThreshold),
		Trading:          trading.NewService(store, cfg.Trading.MinConfidence, cfg.Trading.MaxTrades, cfg.Trading.PositionSize),
		validateDaysBack: cfg.Feedback.DaysBack,
	}
}

// Register adds the pipeline tasks to the registry. Dependency names are
// resolved at run time, so registration order is irrelevant.
func (p *Pipeline) Register(reg *registry.Registry) {
	reg.Register(models.TaskDefinition{
		Name:        "build_ticker_universe",
		Cadence:     "daily",
		Description: "Refresh dynamic ticker universe",
		Body: func() (map[string]any, error) {
			result, err := p.Curator.Refresh()
			if err != nil {
				return nil, err
			}
			return asMap(result)
		},
	})

	reg.Register(models.TaskDefinition{
		Name:         "ingest_market_daily",
		Dependencies: []string{"build_ticker_universe"},
		Cadence:      "daily",
		Description:  "Fetch OHLCV data for universe tickers",
		Body: func() (map[string]any, error) {
			tickers, err := p.universeTickers()
			if err != nil {
				return nil, err
			}
			result, err := p.Market.Ingest(tickers)
			if err != nil {
				return nil, err
			}
			if result.RowsWritten == 0 {
				return nil, errors.New("market ingestion produced no rows; check data providers")
			}
			return asMap(result)
		},
	})

	reg.Register(models.TaskDefinition{
		Name:         "ingest_news_hourly",
		Dependencies: []string{"build_ticker_universe"},
		Cadence:      "hourly",
		Description:  "Collect news and sentiment",
		Body: func() (map[string]any, error) {
			tickers, err := p.universeTickers()
			if err != nil {
				return nil, err
			}
			result, err := p.News.Ingest(tickers)
			if err != nil {
				return nil, err
			}
			if result.ArticlesWritten == 0 {
				return nil, errors.New("news ingestion produced no articles; check data providers")
			}
			return asMap(result)
		},
	})

	reg.Register(models.TaskDefinition{
		Name:         "build_features_daily",
		Dependencies: []string{"ingest_market_daily", "ingest_news_hourly"},
		Cadence:      "daily",
		Description:  "Generate feature windows for prediction",
		Body: func() (map[string]any, error) {
			tickers, err := p.universeTickers()
			if err != nil {
				return nil, err
			}
			result, err := p.Features.Build(tickers)
			if err != nil {
				return nil, err
			}
			if result.WindowsCreated == 0 {
				return nil, errors.New("feature build produced no windows; ensure market/news data available")
			}
			return asMap(result)
		},
	})

	reg.Register(models.TaskDefinition{
		Name:         "run_predictions_daily",
		Dependencies: []string{"build_features_daily"},
		Cadence:      "daily",
		Description:  "Run model inference across universe",
		Body: func() (map[string]any, error) {
			tickers, err := p.universeTickers()
			if err != nil {
				return nil, err
			}
			results, err := p.Predictor.Predict(tickers)
			if err != nil {
				return nil, err
			}
			return map[string]any{"predictions": results}, nil
		},
	})

	reg.Register(models.TaskDefinition{
		Name:         "validate_predictions_daily",
		Dependencies: []string{"run_predictions_daily"},
		Cadence:      "daily",
		Description:  "Validate predictions against market outcomes",
		Body: func() (map[string]any, error) {
			result, err := p.Validator.ValidateRecent(p.validateDaysBack)
			if err != nil {
				return nil, err
			}
			if result.Validated == 0 {
				return nil, errors.New("validation processed zero predictions; ensure predictions exist")
			}
			return asMap(result)
		},
	})

	reg.Register(models.TaskDefinition{
		Name:         "feedback_daily",
		Dependencies: []string{"validate_predictions_daily"},
		Cadence:      "daily",
		Description:  "Update feedback metrics and retrain signals",
		Body: func() (map[string]any, error) {
			summary, err := p.Feedback.Process()
			if err != nil {
				return nil, err
			}
			return asMap(summary)
		},
	})

	reg.Register(models.TaskDefinition{
		Name:         "trading_cycle_intraday",
		Dependencies: []string{"feedback_daily"},
		Cadence:      "intraday",
		Description:  "Execute trading cycle over confident predictions",
		Body: func() (map[string]any, error) {
			summary, err := p.Trading.RunCycle()
			if err != nil {
				return nil, err
			}
			if summary.Executed == 0 {
				return nil, errors.New("trading cycle executed zero trades; verify predictions and prioritizer")
			}
			return asMap(summary)
		},
	})
}

func (p *Pipeline) universeTickers() ([]string, error) {
	tickers, err := p.Curator.Tickers()
	if err != nil {
		return nil, err
	}
	if len(tickers) == 0 {
		return nil, errors.New("universe contains no tickers")
	}
	return tickers, nil
}

// asMap converts a result struct into the map payload the registry serializes
// into the run record's artifacts.
func asMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
