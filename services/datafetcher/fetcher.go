package datafetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"go_etl_project/models"

	"github.com/shopspring/decimal"
)

// YahooChartAPIURL is the public chart endpoint serving daily bars per symbol
const YahooChartAPIURL = "https://query1.finance.yahoo.com/v8/finance/chart"

const defaultRetryPause = 500 * time.Millisecond

// DataFetcher fetches daily price history from the Yahoo Finance chart API
type DataFetcher struct {
	baseURL    string
	httpClient *http.Client
	retryPause time.Duration
}

// NewDataFetcher creates a new data fetcher instance
func NewDataFetcher() *DataFetcher {
	return NewDataFetcherWithBaseURL(YahooChartAPIURL)
}

// NewDataFetcherWithBaseURL creates a fetcher against a custom endpoint,
// used to point at a test server.
func NewDataFetcherWithBaseURL(baseURL string) *DataFetcher {
	return &DataFetcher{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		retryPause: defaultRetryPause,
	}
}

// YahooChartResponse represents the chart API response structure
type YahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol   string `json:"symbol"`
				Currency string `json:"currency"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchResult tags the outcome of fetching one instrument. Err is non-nil
// only after every attempt was exhausted; an empty Records slice with a nil
// Err is a valid outcome (e.g. a symbol with no recent bars).
type FetchResult struct {
	Ticker   string
	Records  []models.PriceRecord
	Attempts int
	Err      error
}

// Failed reports whether the instrument was dropped from the run.
func (r FetchResult) Failed() bool {
	return r.Err != nil
}

// FetchDailyHistory performs a single provider call for one ticker and
// extracts the closing-price column. Every returned row is stamped with the
// ticker and one shared capture timestamp. A response with zero bars is a
// success with an empty slice.
func (df *DataFetcher) FetchDailyHistory(ctx context.Context, ticker, period, interval string) ([]models.PriceRecord, error) {
	reqURL := fmt.Sprintf("%s/%s?range=%s&interval=%s",
		df.baseURL, url.PathEscape(ticker), url.QueryEscape(period), url.QueryEscape(interval))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", ticker, err)
	}
	// Yahoo rejects requests without a browser-like agent
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; go-etl/1.0)")
	req.Header.Set("Accept", "application/json")

	resp, err := df.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", ticker, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response for %s: %w", ticker, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chart API error for %s (status %d): %s", ticker, resp.StatusCode, string(body))
	}

	var chartResp YahooChartResponse
	if err := json.Unmarshal(body, &chartResp); err != nil {
		return nil, fmt.Errorf("failed to parse response for %s: %w", ticker, err)
	}
	if chartResp.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error for %s: %s: %s",
			ticker, chartResp.Chart.Error.Code, chartResp.Chart.Error.Description)
	}
	if len(chartResp.Chart.Result) == 0 {
		return nil, fmt.Errorf("chart API returned no result for %s", ticker)
	}

	result := chartResp.Chart.Result[0]
	if len(result.Timestamp) == 0 {
		return []models.PriceRecord{}, nil
	}
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("chart response for %s is missing close quotes", ticker)
	}

	closes := result.Indicators.Quote[0].Close
	collectedAt := time.Now().UTC()
	records := make([]models.PriceRecord, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		// Non-trading gaps are padded with null closes; skip them
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		records = append(records, models.PriceRecord{
			Date:        time.Unix(ts, 0).UTC(),
			Close:       decimal.NewFromFloat(*closes[i]),
			Ticker:      ticker,
			CollectedAt: collectedAt,
		})
	}
	return records, nil
}

// FetchWithRetry calls the provider up to maxAttempts times for one ticker.
// Errors never propagate: exhaustion is reported through the returned
// FetchResult so the caller can continue with other instruments.
func (df *DataFetcher) FetchWithRetry(ctx context.Context, ticker, period, interval string, maxAttempts int) FetchResult {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		records, err := df.FetchDailyHistory(ctx, ticker, period, interval)
		if err == nil {
			log.Printf("Fetched %d rows for %s (attempt %d/%d)", len(records), ticker, attempt, maxAttempts)
			return FetchResult{Ticker: ticker, Records: records, Attempts: attempt}
		}
		lastErr = err
		log.Printf("Attempt %d/%d for %s failed: %v", attempt, maxAttempts, ticker, err)

		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return FetchResult{Ticker: ticker, Attempts: attempt, Err: ctx.Err()}
			case <-time.After(df.retryPause):
			}
		}
	}

	log.Printf("Failed to fetch data for %s after %d attempts", ticker, maxAttempts)
	return FetchResult{Ticker: ticker, Attempts: maxAttempts, Err: lastErr}
}
