// Package feedback closes the loop on predictions: the validator checks them
// against realized prices, and the engine turns audit history into metrics
// and retrain signals.
package feedback

import (
	"fmt"
	"time"

	"github.com/notforyou23/nextgen-system/internal/models"
	"github.com/notforyou23/nextgen-system/internal/storage"
)

type ValidationResult struct {
	Validated int `json:"validated"`
	Correct   int `json:"correct"`
	Pending   int `json:"pending"`
}

type Validator struct {
	store *storage.Store
}

func NewValidator(store *storage.Store) *Validator {
	return &Validator{store: store}
}

// ValidateRecent audits predictions created in the trailing window against
// the next ingested trading session. Predictions whose outcome session has
// not been ingested yet stay pending and are retried on the next run.
func (v *Validator) ValidateRecent(daysBack int) (ValidationResult, error) {
	since := time.Now().UTC().AddDate(0, 0, -daysBack)
	preds, err := v.store.ListUnauditedPredictions(since)
	if err != nil {
		return ValidationResult{}, fmt.Errorf("load predictions: %w", err)
	}

	result := ValidationResult{}
	for _, p := range preds {
		predDate := p.AsOf.Format("2006-01-02")

		baseline, err := v.store.LastSessionBar(p.Ticker, predDate)
		if err != nil {
			return result, fmt.Errorf("baseline for %s: %w", p.Ticker, err)
		}
		outcome, err := v.store.NextSessionBar(p.Ticker, predDate)
		if err != nil {
			return result, fmt.Errorf("outcome for %s: %w", p.Ticker, err)
		}
		if baseline == nil || outcome == nil || baseline.Close == 0 {
			result.Pending++
			continue
		}

		move := outcome.Close/baseline.Close - 1
		actual := "UP"
		if move < 0 {
			actual = "DOWN"
		}
		correct := actual == p.Direction

		audit := models.PredictionAudit{
			PredictionID:     p.PredictionID,
			Ticker:           p.Ticker,
			PredictionDate:   predDate,
			VerificationDate: outcome.Date,
			ActualDirection:  actual,
			PriceMove:        move,
			IsCorrect:        correct,
		}
		if err := v.store.InsertAudit(audit); err != nil {
			return result, fmt.Errorf("store audit for %s: %w", p.Ticker, err)
		}

		result.Validated++
		if correct {
			result.Correct++
		}
	}

	return result, nil
}
