package models

import "time"

// Row types for the pipeline tables. These are written by the task bodies
// and read by the dashboard surfaces; the registry itself never touches them.

type UniverseEntry struct {
	Ticker    string
	Source    string
	UpdatedAt time.Time
}

type PriceBar struct {
	Ticker        string
	Date          string // YYYY-MM-DD trading session
	Open          float64
	High          float64
	Low           float64
	Close         float64
	AdjustedClose float64
	Volume        float64
	Source        string
}

type NewsArticle struct {
	Ticker      string
	Headline    string
	PublishedAt time.Time
	Source      string
	URL         string
	Sentiment   float64
}

type FeatureWindow struct {
	ID       int64
	Ticker   string
	AsOf     time.Time
	Version  string
	Features string // JSON object of named feature values
}

type Prediction struct {
	PredictionID string
	Ticker       string
	AsOf         time.Time
	Direction    string // UP or DOWN
	Probability  float64
	Confidence   float64
	Diagnostics  string // JSON
	CreatedAt    time.Time
}

type PredictionAudit struct {
	PredictionID     string
	Ticker           string
	PredictionDate   string
	VerificationDate string
	ActualDirection  string
	PriceMove        float64
	IsCorrect        bool
}

type FeedbackMetric struct {
	AsOf        time.Time
	MetricName  string
	MetricValue float64
	Status      string
	Details     string
}

type RetrainSignal struct {
	Ticker      string
	Reason      string
	Confidence  float64
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

type Trade struct {
	TradeID    string
	Ticker     string
	Side       string
	Quantity   int
	Price      float64
	Rationale  string
	ExecutedAt time.Time
}
