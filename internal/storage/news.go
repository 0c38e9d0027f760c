package storage

import (
	"time"

	"github.com/notforyou23/nextgen-system/internal/models"
)

// InsertArticles writes scored articles, skipping duplicates on (ticker, url).
// Returns the number of new rows.
func (s *Store) InsertArticles(articles []models.NewsArticle) (int, error) {
	written := 0
	for _, a := range articles {
		res, err := s.db.Exec(
			`INSERT OR IGNORE INTO news_articles (ticker, headline, published_at, source, url, sentiment)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			a.Ticker, a.Headline, a.PublishedAt, a.Source, a.URL, a.Sentiment,
		)
		if err != nil {
			return written, err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			written++
		}
	}
	return written, nil
}

// SentimentSummary aggregates article sentiment for a ticker over a trailing
// window. avg is 0 when no articles exist.
func (s *Store) SentimentSummary(ticker string, since time.Time) (avg float64, count int, err error) {
	row := s.db.QueryRow(
		`SELECT COALESCE(AVG(sentiment), 0), COUNT(*)
		 FROM news_articles WHERE ticker = ? AND published_at >= ?`,
		ticker, since,
	)
	if err := row.Scan(&avg, &count); err != nil {
		return 0, 0, err
	}
	return avg, count, nil
}
