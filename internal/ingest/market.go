package ingest

import (
	"fmt"
	"time"

	"github.com/notforyou23/nextgen-system/internal/models"
	"github.com/notforyou23/nextgen-system/internal/storage"
)

// MarketProvider returns daily OHLCV history for one ticker.
type MarketProvider interface {
	FetchHistory(ticker string, start, end time.Time) ([]models.PriceBar, error)
}

type MarketResult struct {
	TickersProcessed int      `json:"tickers_processed"`
	RowsWritten      int      `json:"rows_written"`
	Failures         []string `json:"failures,omitempty"`
}

// MarketService pulls price history for the universe and upserts it into
// market_prices. Per-ticker fetch failures are collected rather than aborting
// the whole ingestion; the task body decides whether an empty result is fatal.
type MarketService struct {
	store      *storage.Store
	provider   MarketProvider
	windowDays int
}

func NewMarketService(store *storage.Store, provider MarketProvider, windowDays int) *MarketService {
	return &MarketService{store: store, provider: provider, windowDays: windowDays}
}

func (s *MarketService) Ingest(tickers []string) (MarketResult, error) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -s.windowDays)

	result := MarketResult{}
	for _, ticker := range tickers {
		bars, err := s.provider.FetchHistory(ticker, start, end)
		if err != nil {
			result.Failures = append(result.Failures, fmt.Sprintf("%s: %v", ticker, err))
			continue
		}

		written, err := s.store.UpsertPriceBars(bars)
		if err != nil {
			return result, fmt.Errorf("store prices for %s: %w", ticker, err)
		}
		result.RowsWritten += written
		result.TickersProcessed++
	}

	return result, nil
}
