package feedback

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/notforyou23/nextgen-system/internal/models"
	"github.com/notforyou23/nextgen-system/internal/storage"
)

// minAuditsForSignal is the smallest sample a ticker needs before a weak
// accuracy reading produces a retrain signal.
const minAuditsForSignal = 3

type Summary struct {
	Metrics        map[string]float64 `json:"metrics"`
	RetrainSignals []string           `json:"retrain_signals"`
}

type Engine struct {
	store             *storage.Store
	daysBack          int
	accuracyThreshold float64
}

func NewEngine(store *storage.Store, daysBack int, accuracyThreshold float64) *Engine {
	return &Engine{store: store, daysBack: daysBack, accuracyThreshold: accuracyThreshold}
}

// Process aggregates recent audits into feedback metrics and emits a retrain
// signal for each ticker whose accuracy falls under the threshold.
func (e *Engine) Process() (Summary, error) {
	now := time.Now().UTC()
	since := now.AddDate(0, 0, -e.daysBack).Format("2006-01-02")

	audits, err := e.store.ListAudits(since)
	if err != nil {
		return Summary{}, fmt.Errorf("load audits: %w", err)
	}

	total := len(audits)
	correct := 0
	perTickerTotal := make(map[string]int)
	perTickerCorrect := make(map[string]int)
	for _, a := range audits {
		perTickerTotal[a.Ticker]++
		if a.IsCorrect {
			correct++
			perTickerCorrect[a.Ticker]++
		}
	}

	accuracy := 0.0
	if total > 0 {
		accuracy = float64(correct) / float64(total)
	}

	metrics := map[string]float64{
		"overall_accuracy": accuracy,
		"validated_count":  float64(total),
	}

	status := "ok"
	if total > 0 && accuracy < e.accuracyThreshold {
		status = "degraded"
	}
	details, _ := json.Marshal(map[string]any{"days_back": e.daysBack, "correct": correct})
	for name, value := range metrics {
		m := models.FeedbackMetric{
			AsOf:        now,
			MetricName:  name,
			MetricValue: value,
			Status:      status,
			Details:     string(details),
		}
		if err := e.store.InsertFeedbackMetric(m); err != nil {
			return Summary{}, fmt.Errorf("store metric %s: %w", name, err)
		}
	}

	var signals []string
	for ticker, n := range perTickerTotal {
		if n < minAuditsForSignal {
			continue
		}
		tickerAccuracy := float64(perTickerCorrect[ticker]) / float64(n)
		if tickerAccuracy >= e.accuracyThreshold {
			continue
		}
		sig := models.RetrainSignal{
			Ticker:     ticker,
			Reason:     fmt.Sprintf("accuracy %.2f below threshold %.2f over %d audits", tickerAccuracy, e.accuracyThreshold, n),
			Confidence: 1 - tickerAccuracy,
			CreatedAt:  now,
		}
		if err := e.store.InsertRetrainSignal(sig); err != nil {
			return Summary{}, fmt.Errorf("store retrain signal for %s: %w", ticker, err)
		}
		signals = append(signals, ticker)
	}

	return Summary{Metrics: metrics, RetrainSignals: signals}, nil
}
