// Package ingest holds the data-acquisition services: universe curation,
// market price ingestion, and news/sentiment ingestion. Each service writes
// rows through the shared store and is invoked by a registered task body.
package ingest

import (
	"strings"
	"time"

	"github.com/notforyou23/nextgen-system/internal/models"
	"github.com/notforyou23/nextgen-system/internal/storage"
)

type CurationResult struct {
	Added  int    `json:"added"`
	Total  int    `json:"total"`
	Source string `json:"source"`
}

// UniverseCurator maintains the ticker universe from a configured seed list.
type UniverseCurator struct {
	store *storage.Store
	seed  []string
}

func NewUniverseCurator(store *storage.Store, seed []string) *UniverseCurator {
	return &UniverseCurator{store: store, seed: seed}
}

func (c *UniverseCurator) Refresh() (CurationResult, error) {
	now := time.Now().UTC()
	entries := make([]models.UniverseEntry, 0, len(c.seed))
	for _, t := range c.seed {
		ticker := strings.ToUpper(strings.TrimSpace(t))
		if ticker == "" {
			continue
		}
		entries = append(entries, models.UniverseEntry{
			Ticker:    ticker,
			Source:    "seed",
			UpdatedAt: now,
		})
	}

	added, err := c.store.UpsertUniverse(entries)
	if err != nil {
		return CurationResult{}, err
	}

	tickers, err := c.store.ListUniverseTickers()
	if err != nil {
		return CurationResult{}, err
	}

	return CurationResult{Added: added, Total: len(tickers), Source: "seed"}, nil
}

// Tickers returns the current universe, refreshing it first when empty so
// downstream tasks always have something to work on.
func (c *UniverseCurator) Tickers() ([]string, error) {
	tickers, err := c.store.ListUniverseTickers()
	if err != nil {
		return nil, err
	}
	if len(tickers) == 0 {
		if _, err := c.Refresh(); err != nil {
			return nil, err
		}
		tickers, err = c.store.ListUniverseTickers()
		if err != nil {
			return nil, err
		}
	}
	return tickers, nil
}
