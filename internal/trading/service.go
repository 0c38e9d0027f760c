// Package trading executes a paper-trading cycle over the latest predictions.
// Orders never leave the database; the trades table is the ledger.
package trading

import (
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/notforyou23/nextgen-system/internal/models"
	"github.com/notforyou23/nextgen-system/internal/storage"
)

type CycleSummary struct {
	Executed int `json:"executed"`
	Skipped  int `json:"skipped"`
}

type Service struct {
	store         *storage.Store
	minConfidence float64
	maxTrades     int
	positionSize  int
}

func NewService(store *storage.Store, minConfidence float64, maxTrades, positionSize int) *Service {
	return &Service{
		store:         store,
		minConfidence: minConfidence,
		maxTrades:     maxTrades,
		positionSize:  positionSize,
	}
}

// RunCycle buys the most confident UP predictions from the latest batch, one
// trade per ticker, up to the cycle's trade budget. Everything below the
// confidence floor is skipped.
func (s *Service) RunCycle() (CycleSummary, error) {
	preds, err := s.store.ListRecentPredictions(100, "")
	if err != nil {
		return CycleSummary{}, fmt.Errorf("load predictions: %w", err)
	}

	// Keep only the newest prediction per ticker.
	latest := make(map[string]models.Prediction)
	for _, p := range preds {
		if existing, ok := latest[p.Ticker]; !ok || p.CreatedAt.After(existing.CreatedAt) {
			latest[p.Ticker] = p
		}
	}

	candidates := make([]models.Prediction, 0, len(latest))
	for _, p := range latest {
		candidates = append(candidates, p)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].Ticker < candidates[j].Ticker
	})

	summary := CycleSummary{}
	now := time.Now().UTC()
	for _, p := range candidates {
		if summary.Executed >= s.maxTrades {
			summary.Skipped++
			continue
		}
		if p.Direction != "UP" || p.Confidence < s.minConfidence {
			summary.Skipped++
			continue
		}

		bar, err := s.store.LastSessionBar(p.Ticker, now.Format("2006-01-02"))
		if err != nil {
			return summary, fmt.Errorf("price for %s: %w", p.Ticker, err)
		}
		if bar == nil {
			summary.Skipped++
			continue
		}

		u := uuid.New()
		trade := models.Trade{
			TradeID:    hex.EncodeToString(u[:]),
			Ticker:     p.Ticker,
			Side:       "BUY",
			Quantity:   s.positionSize,
			Price:      bar.Close,
			Rationale:  fmt.Sprintf("prediction %s: %s confidence %.2f", p.PredictionID, p.Direction, p.Confidence),
			ExecutedAt: now,
		}
		if err := s.store.InsertTrade(trade); err != nil {
			return summary, fmt.Errorf("store trade for %s: %w", p.Ticker, err)
		}
		summary.Executed++
	}

	return summary, nil
}
