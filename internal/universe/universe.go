// Package universe resolves the set of listed, Shariah-compliant EGX tickers.
package universe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"egx-predictor/models"
)

// DefaultURL is the published Shariah-compliant ticker list.
const DefaultURL = "https://clientn.com/stocks/Shariaa.html"

// FallbackTickers is used whenever retrieval or parsing fails; the universe
// provider must degrade to a fixed list rather than abort.
var FallbackTickers = []string{
	"INFI.CA", "TMGH.CA", "SMFR.CA", "MBSC.CA", "MOSC.CA",
	"INEG.CA", "MOED.CA", "EGAS.CA", "AJWA.CA", "OLFI.CA",
}

// listPattern extracts the first bracketed list literal from the page body.
var listPattern = regexp.MustCompile(`(?s)\[.*\]`)

var _ models.TickerSource = (*Client)(nil)

// Client fetches and parses the ticker list.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	url        string
	logger     zerolog.Logger
}

// NewClient creates a rate-limited universe client. An empty url selects
// DefaultURL.
func NewClient(url string, timeout time.Duration) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 5),
		url:        url,
		logger:     log.With().Str("component", "universe").Logger(),
	}
}

// Tickers returns the unique, uppercased ticker symbols, sorted. Any
// retrieval or parsing failure falls back to FallbackTickers.
func (c *Client) Tickers(ctx context.Context) ([]string, error) {
	body, err := c.fetch(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to fetch ticker list, using fallback")
		return append([]string(nil), FallbackTickers...), nil
	}

	tickers, err := parseList(body)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to parse ticker list, using fallback")
		return append([]string(nil), FallbackTickers...), nil
	}

	c.logger.Info().Int("count", len(tickers)).Msg("Loaded tickers")
	return tickers, nil
}

func (c *Client) fetch(ctx context.Context) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
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

	backoffStrategy := backoff.NewExponentialBackOff()
	backoffStrategy.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(backoffStrategy, ctx)); err != nil {
		return "", fmt.Errorf("after retries: %w", err)
	}
	return string(body), nil
}

// parseList accepts either a JSON string array or a Python-style list literal
// with single quotes embedded anywhere in the body.
func parseList(body string) ([]string, error) {
	match := listPattern.FindString(strings.TrimSpace(body))
	if match == "" {
		return nil, fmt.Errorf("no list literal in response")
	}

	var raw []string
	if err := json.Unmarshal([]byte(match), &raw); err != nil {
		// Python-style single quotes.
		if err2 := json.Unmarshal([]byte(strings.ReplaceAll(match, "'", `"`)), &raw); err2 != nil {
			return nil, fmt.Errorf("parsing list literal: %w", err)
		}
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("ticker list parsing failed")
	}

	seen := make(map[string]bool, len(raw))
	tickers := make([]string, 0, len(raw))
	for _, t := range raw {
		sym := strings.ToUpper(strings.TrimSpace(t))
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		tickers = append(tickers, sym)
	}
	sort.Strings(tickers)
	return tickers, nil
}
