package ingest

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/notforyou23/nextgen-system/internal/models"
	"github.com/notforyou23/nextgen-system/internal/storage"
)

// NewsProvider returns recent articles for one ticker. Sentiment is filled in
// by the service, not the provider.
type NewsProvider interface {
	FetchArticles(ticker string) ([]models.NewsArticle, error)
}

type NewsResult struct {
	TickersProcessed int      `json:"tickers_processed"`
	ArticlesWritten  int      `json:"articles_written"`
	Failures         []string `json:"failures,omitempty"`
}

type NewsService struct {
	store    *storage.Store
	provider NewsProvider
	analyzer *SentimentAnalyzer
}

func NewNewsService(store *storage.Store, provider NewsProvider) *NewsService {
	return &NewsService{store: store, provider: provider, analyzer: NewSentimentAnalyzer()}
}

func (s *NewsService) Ingest(tickers []string) (NewsResult, error) {
	result := NewsResult{}
	for _, ticker := range tickers {
		articles, err := s.provider.FetchArticles(ticker)
		if err != nil {
			result.Failures = append(result.Failures, fmt.Sprintf("%s: %v", ticker, err))
			continue
		}

		for i := range articles {
			articles[i].Sentiment = s.analyzer.Score(articles[i].Headline)
		}

		written, err := s.store.InsertArticles(articles)
		if err != nil {
			return result, fmt.Errorf("store articles for %s: %w", ticker, err)
		}
		result.ArticlesWritten += written
		result.TickersProcessed++
	}
	return result, nil
}

// YahooRSSProvider reads the per-ticker Yahoo Finance headline feed.
type YahooRSSProvider struct {
	client     *http.Client
	baseURL    string
	maxRetries uint64
}

func NewYahooRSSProvider(maxRetries int) *YahooRSSProvider {
	return &YahooRSSProvider{
		client:     &http.Client{Timeout: 30 * time.Second},
		baseURL:    "https://feeds.finance.yahoo.com/rss/2.0/headline",
		maxRetries: uint64(maxRetries),
	}
}

type rssFeed struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	PubDate string `xml:"pubDate"`
}

func (p *YahooRSSProvider) FetchArticles(ticker string) ([]models.NewsArticle, error) {
	q := url.Values{}
	q.Set("s", strings.ToUpper(ticker))
	q.Set("region", "US")
	q.Set("lang", "en-US")
	reqURL := p.baseURL + "?" + q.Encode()

	var feed rssFeed
	operation := func() error {
		resp, err := p.client.Get(reqURL)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		feed = rssFeed{}
		return xml.NewDecoder(resp.Body).Decode(&feed)
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), p.maxRetries)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("fetch news for %s: %w", ticker, err)
	}

	articles := make([]models.NewsArticle, 0, len(feed.Channel.Items))
	for _, item := range feed.Channel.Items {
		if strings.TrimSpace(item.Title) == "" {
			continue
		}
		articles = append(articles, models.NewsArticle{
			Ticker:      strings.ToUpper(ticker),
			Headline:    item.Title,
			PublishedAt: parsePubDate(item.PubDate),
			Source:      "yahoo-rss",
			URL:         item.Link,
		})
	}
	return articles, nil
}

func parsePubDate(s string) time.Time {
	for _, layout := range []string{time.RFC1123Z, time.RFC1123, time.RFC822Z, time.RFC822} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Now().UTC()
}
