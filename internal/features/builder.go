// Package features turns ingested prices and sentiment into per-ticker
// feature windows consumed by the prediction service.
package features

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/notforyou23/nextgen-system/internal/models"
	"github.com/notforyou23/nextgen-system/internal/storage"
)

const minBars = 5

type BuildResult struct {
	WindowsCreated int      `json:"windows_created"`
	Warnings       []string `json:"warnings,omitempty"`
}

type Builder struct {
	store      *storage.Store
	windowDays int
	version    string
}

func NewBuilder(store *storage.Store, windowDays int, version string) *Builder {
	return &Builder{store: store, windowDays: windowDays, version: version}
}

// Build computes one feature window per ticker from the most recent price
// bars and the trailing sentiment aggregate. Tickers without enough history
// produce a warning instead of a window.
func (b *Builder) Build(tickers []string) (BuildResult, error) {
	result := BuildResult{}
	now := time.Now().UTC()
	sentimentSince := now.AddDate(0, 0, -b.windowDays)

	for _, ticker := range tickers {
		bars, err := b.store.ListRecentPrices(ticker, b.windowDays)
		if err != nil {
			return result, fmt.Errorf("load prices for %s: %w", ticker, err)
		}
		if len(bars) < minBars {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s: only %d price bars, need %d", ticker, len(bars), minBars))
			continue
		}

		// ListRecentPrices is newest-first; compute over chronological order.
		reverse(bars)

		avgSentiment, articleCount, err := b.store.SentimentSummary(ticker, sentimentSince)
		if err != nil {
			return result, fmt.Errorf("load sentiment for %s: %w", ticker, err)
		}

		feats := compute(bars, avgSentiment, articleCount)
		payload, err := json.Marshal(feats)
		if err != nil {
			return result, fmt.Errorf("encode features for %s: %w", ticker, err)
		}

		window := models.FeatureWindow{
			Ticker:   ticker,
			AsOf:     now,
			Version:  b.version,
			Features: string(payload),
		}
		if err := b.store.InsertFeatureWindow(window); err != nil {
			return result, fmt.Errorf("store window for %s: %w", ticker, err)
		}
		result.WindowsCreated++
	}

	return result, nil
}

func compute(bars []models.PriceBar, avgSentiment float64, articleCount int) map[string]float64 {
	last := bars[len(bars)-1]

	closes := make([]float64, len(bars))
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		volumes[i] = b.Volume
	}

	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] != 0 {
			returns = append(returns, closes[i]/closes[i-1]-1)
		}
	}

	feats := map[string]float64{
		"close":          last.Close,
		"return_1d":      lastReturn(returns, 1),
		"return_5d":      trailingReturn(closes, 5),
		"sma_ratio":      smaRatio(closes),
		"volatility":     stddev(returns),
		"volume_trend":   volumeTrend(volumes),
		"avg_sentiment":  avgSentiment,
		"article_count":  float64(articleCount),
		"bars_in_window": float64(len(bars)),
	}
	return feats
}

func lastReturn(returns []float64, n int) float64 {
	if len(returns) < n {
		return 0
	}
	return returns[len(returns)-n]
}

func trailingReturn(closes []float64, days int) float64 {
	if len(closes) <= days || closes[len(closes)-1-days] == 0 {
		return 0
	}
	return closes[len(closes)-1]/closes[len(closes)-1-days] - 1
}

// smaRatio compares the latest close to the window's simple moving average;
// above 1 means the ticker trades over its recent mean.
func smaRatio(closes []float64) float64 {
	sum := 0.0
	for _, c := range closes {
		sum += c
	}
	mean := sum / float64(len(closes))
	if mean == 0 {
		return 0
	}
	return closes[len(closes)-1] / mean
}

func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values) - 1)
	return math.Sqrt(variance)
}

// volumeTrend is the ratio of recent-half to early-half average volume.
func volumeTrend(volumes []float64) float64 {
	if len(volumes) < 2 {
		return 1
	}
	mid := len(volumes) / 2
	early := mean(volumes[:mid])
	recent := mean(volumes[mid:])
	if early == 0 {
		return 1
	}
	return recent / early
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func reverse(bars []models.PriceBar) {
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
}
