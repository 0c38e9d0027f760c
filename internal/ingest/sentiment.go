package ingest

import "strings"

// SentimentAnalyzer scores headlines with a finance-flavored word list. The
// score is the balance of positive and negative hits, in [-1, 1].
type SentimentAnalyzer struct {
	positive map[string]struct{}
	negative map[string]struct{}
}

var positiveWords = []string{
	"beat", "beats", "boost", "bull", "bullish", "gain", "gains", "growth",
	"jump", "jumps", "outperform", "profit", "rally", "record", "rise",
	"rises", "soar", "soars", "strong", "surge", "surges", "upgrade",
	"upgraded", "win", "wins",
}

var negativeWords = []string{
	"bear", "bearish", "crash", "cut", "cuts", "decline", "declines", "drop",
	"drops", "downgrade", "downgraded", "fall", "falls", "fraud", "lawsuit",
	"loss", "losses", "miss", "misses", "plunge", "plunges", "recall",
	"risk", "slump", "slumps", "warn", "warns", "weak",
}

func NewSentimentAnalyzer() *SentimentAnalyzer {
	a := &SentimentAnalyzer{
		positive: make(map[string]struct{}, len(positiveWords)),
		negative: make(map[string]struct{}, len(negativeWords)),
	}
	for _, w := range positiveWords {
		a.positive[w] = struct{}{}
	}
	for _, w := range negativeWords {
		a.negative[w] = struct{}{}
	}
	return a
}

func (a *SentimentAnalyzer) Score(headline string) float64 {
	var pos, neg int
	for _, raw := range strings.Fields(strings.ToLower(headline)) {
		word := strings.Trim(raw, ".,;:!?'\"()[]")
		if _, ok := a.positive[word]; ok {
			pos++
		}
		if _, ok := a.negative[word]; ok {
			neg++
		}
	}
	if pos+neg == 0 {
		return 0
	}
	return float64(pos-neg) / float64(pos+neg)
}
