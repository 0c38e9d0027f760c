// Package predict runs inference over the latest feature windows. The model
// is a deterministic momentum-plus-sentiment heuristic; the heavier model
// stack lives outside this system and feeds the same tables.
package predict

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/notforyou23/nextgen-system/internal/models"
	"github.com/notforyou23/nextgen-system/internal/storage"
)

type Result struct {
	PredictionID string  `json:"prediction_id"`
	Ticker       string  `json:"ticker"`
	Direction    string  `json:"direction"`
	Probability  float64 `json:"probability"`
	Confidence   float64 `json:"confidence"`
}

type Service struct {
	store *storage.Store
}

func NewService(store *storage.Store) *Service {
	return &Service{store: store}
}

// Predict scores the newest feature window of each ticker and persists one
// prediction row per scored ticker. Tickers without a window are skipped.
func (s *Service) Predict(tickers []string) ([]Result, error) {
	now := time.Now().UTC()
	var results []Result

	for _, ticker := range tickers {
		window, err := s.store.LatestFeatureWindow(ticker)
		if err != nil {
			return nil, fmt.Errorf("load window for %s: %w", ticker, err)
		}
		if window == nil {
			continue
		}

		var feats map[string]float64
		if err := json.Unmarshal([]byte(window.Features), &feats); err != nil {
			return nil, fmt.Errorf("decode window for %s: %w", ticker, err)
		}

		score, components := score(feats)

		direction := "UP"
		if score < 0 {
			direction = "DOWN"
		}
		probability := math.Min(0.95, 0.5+math.Abs(score)/2)
		confidence := probability * (1 - math.Min(0.5, feats["volatility"]*5))

		diagnostics, _ := json.Marshal(map[string]any{
			"score":          score,
			"components":     components,
			"window_id":      window.ID,
			"window_version": window.Version,
		})

		u := uuid.New()
		p := models.Prediction{
			PredictionID: hex.EncodeToString(u[:]),
			Ticker:       ticker,
			AsOf:         now,
			Direction:    direction,
			Probability:  probability,
			Confidence:   confidence,
			Diagnostics:  string(diagnostics),
			CreatedAt:    now,
		}
		if err := s.store.InsertPrediction(p); err != nil {
			return nil, fmt.Errorf("store prediction for %s: %w", ticker, err)
		}

		results = append(results, Result{
			PredictionID: p.PredictionID,
			Ticker:       ticker,
			Direction:    direction,
			Probability:  probability,
			Confidence:   confidence,
		})
	}

	return results, nil
}

// score blends five-day momentum, position against the moving average, and
// headline sentiment into a signed signal in roughly [-1, 1].
func score(feats map[string]float64) (float64, map[string]float64) {
	momentum := math.Tanh(feats["return_5d"] * 10)
	meanReversion := math.Tanh((feats["sma_ratio"] - 1) * 5)
	sentiment := feats["avg_sentiment"]

	components := map[string]float64{
		"momentum":  momentum,
		"sma":       meanReversion,
		"sentiment": sentiment,
	}
	return 0.5*momentum + 0.2*meanReversion + 0.3*sentiment, components
}
