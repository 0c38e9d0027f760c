package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/notforyou23/nextgen-system/internal/models"
)

// StooqProvider fetches daily OHLCV bars from Stooq's CSV export endpoint,
// retrying transient failures with exponential backoff.
type StooqProvider struct {
	client     *http.Client
	baseURL    string
	maxRetries uint64
}

func NewStooqProvider(maxRetries int) *StooqProvider {
	return &StooqProvider{
		client:     &http.Client{Timeout: 30 * time.Second},
		baseURL:    "https://stooq.com/q/d/l/",
		maxRetries: uint64(maxRetries),
	}
}

func (p *StooqProvider) FetchHistory(ticker string, start, end time.Time) ([]models.PriceBar, error) {
	symbol := normalizeTicker(ticker)

	q := url.Values{}
	q.Set("s", strings.ToLower(symbol)+".us")
	q.Set("d1", start.Format("20060102"))
	q.Set("d2", end.Format("20060102"))
	q.Set("i", "d")
	reqURL := p.baseURL + "?" + q.Encode()

	var bars []models.PriceBar
	operation := func() error {
		fetched, err := p.fetch(reqURL, ticker)
		if err != nil {
			return err
		}
		bars = fetched
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), p.maxRetries)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("fetch history for %s: %w", ticker, err)
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("no market data returned for %s", ticker)
	}
	return bars, nil
}

func (p *StooqProvider) fetch(reqURL, ticker string) ([]models.PriceBar, error) {
	resp, err := p.client.Get(reqURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return parseStooqCSV(resp.Body, ticker)
}

// parseStooqCSV reads the Date,Open,High,Low,Close,Volume export format.
// Stooq prices are already adjusted, so adjusted_close mirrors close.
func parseStooqCSV(r io.Reader, ticker string) ([]models.PriceBar, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, nil
	}

	var bars []models.PriceBar
	for _, rec := range records[1:] {
		if len(rec) < 6 {
			continue
		}
		open, err1 := strconv.ParseFloat(rec[1], 64)
		high, err2 := strconv.ParseFloat(rec[2], 64)
		low, err3 := strconv.ParseFloat(rec[3], 64)
		closePx, err4 := strconv.ParseFloat(rec[4], 64)
		volume, err5 := strconv.ParseFloat(rec[5], 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
			continue
		}
		bars = append(bars, models.PriceBar{
			Ticker:        strings.ToUpper(ticker),
			Date:          rec[0],
			Open:          open,
			High:          high,
			Low:           low,
			Close:         closePx,
			AdjustedClose: closePx,
			Volume:        volume,
			Source:        "stooq",
		})
	}
	return bars, nil
}

// normalizeTicker cleans up symbols the way upstream providers expect:
// strips a leading $ and rewrites class suffixes like BRK.B to BRK-B.
func normalizeTicker(ticker string) string {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	t = strings.TrimPrefix(t, "$")
	if i := strings.LastIndex(t, "."); i > 0 && len(t)-i == 2 {
		t = t[:i] + "-" + t[i+1:]
	}
	return t
}
