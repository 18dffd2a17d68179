// Package marketdata downloads daily OHLCV history from the bars API.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"egx-predictor/models"
)

// downloadAttempts is how many times one ticker is tried before yielding an
// empty series.
const downloadAttempts = 3

var _ models.BarDownloader = (*Client)(nil)

// Client is a rate-limited daily-bars API client.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	logger     zerolog.Logger
}

// NewClient creates a new bars API client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 5),
		baseURL:    baseURL,
		logger:     log.With().Str("component", "marketdata").Logger(),
	}
}

type barsResponse struct {
	Symbol string `json:"symbol"`
	Bars   []struct {
		Date   string  `json:"date"`
		Open   float64 `json:"open"`
		High   float64 `json:"high"`
		Low    float64 `json:"low"`
		Close  float64 `json:"close"`
		Volume int64   `json:"volume"`
	} `json:"bars"`
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Download fetches one ticker's daily bars for [start, end], sorted by date
// ascending, with zero-volume sessions dropped and dates normalized to
// midnight UTC. After the retry budget is exhausted the ticker yields an
// empty series and a logged warning, not an error.
func (c *Client) Download(ctx context.Context, ticker string, start, end time.Time) ([]models.Bar, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	endpoint := fmt.Sprintf("%s/daily?symbol=%s&start=%s&end=%s",
		c.baseURL,
		url.QueryEscape(ticker),
		start.Format(models.DateKey),
		end.Format(models.DateKey),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var body []byte
	operation := func() error {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("HTTP request failed: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("non-200 status code: %d", resp.StatusCode)
		}
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response body: %w", err)
		}
		return nil
	}

	strategy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), downloadAttempts-1)
	if err := backoff.Retry(operation, backoff.WithContext(strategy, ctx)); err != nil {
		c.logger.Warn().Err(err).Str("ticker", ticker).Msg("Download failed after retries, yielding empty series")
		return nil, nil
	}

	var data barsResponse
	if err := json.Unmarshal(body, &data); err != nil {
		c.logger.Warn().Err(err).Str("ticker", ticker).Msg("Error parsing bars response, yielding empty series")
		return nil, nil
	}
	if data.Status == "error" {
		c.logger.Warn().Str("ticker", ticker).Str("error", data.Error).Msg("Bars API error, yielding empty series")
		return nil, nil
	}

	bars := make([]models.Bar, 0, len(data.Bars))
	for _, v := range data.Bars {
		if v.Volume <= 0 {
			continue
		}
		d, err := time.ParseInLocation(models.DateKey, v.Date, time.UTC)
		if err != nil {
			c.logger.Warn().Str("ticker", ticker).Str("date", v.Date).Msg("Skipping bar with bad date")
			continue
		}
		bars = append(bars, models.Bar{
			Date:   d,
			Open:   v.Open,
			High:   v.High,
			Low:    v.Low,
			Close:  v.Close,
			Volume: v.Volume,
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	c.logger.Debug().Str("ticker", ticker).Int("count", len(bars)).Msg("Fetched bars")
	return bars, nil
}

// DownloadAll fetches every ticker's bars. Failed tickers appear with empty
// series so callers can tell "tried and empty" from "never requested".
func (c *Client) DownloadAll(ctx context.Context, tickers []string, start, end time.Time) (map[string][]models.Bar, error) {
	out := make(map[string][]models.Bar, len(tickers))
	for _, ticker := range tickers {
		bars, err := c.Download(ctx, ticker, start, end)
		if err != nil {
			return nil, err
		}
		out[ticker] = bars
	}
	c.logger.Info().Int("tickers", len(out)).Msg("Downloaded bar history")
	return out, nil
}
