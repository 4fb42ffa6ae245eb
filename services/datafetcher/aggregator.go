package datafetcher

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go_etl_project/models"
)

// ErrNoData marks a run where the concatenated batch ended up empty: every
// ticker either failed or returned no rows.
var ErrNoData = errors.New("no price data collected for any ticker")

// BatchAggregator fetches all configured tickers and concatenates the
// successful results into one batch, preserving ticker order.
type BatchAggregator struct {
	fetcher     *DataFetcher
	tickers     []string
	period      string
	interval    string
	maxAttempts int
}

// NewBatchAggregator creates an aggregator over a fixed, ordered ticker list.
func NewBatchAggregator(fetcher *DataFetcher, tickers []string, period, interval string, maxAttempts int) *BatchAggregator {
	return &BatchAggregator{
		fetcher:     fetcher,
		tickers:     tickers,
		period:      period,
		interval:    interval,
		maxAttempts: maxAttempts,
	}
}

// FetchAll fetches every ticker in configured order. A ticker that fails all
// its attempts is logged and skipped; the run only fails when the resulting
// batch has zero rows.
func (a *BatchAggregator) FetchAll(ctx context.Context) ([]models.PriceRecord, error) {
	batch := make([]models.PriceRecord, 0, len(a.tickers)*8)
	failed := 0

	for _, ticker := range a.tickers {
		result := a.fetcher.FetchWithRetry(ctx, ticker, a.period, a.interval, a.maxAttempts)
		if result.Failed() {
			failed++
			log.Printf("Skipping %s after %d attempts: %v", ticker, result.Attempts, result.Err)
			continue
		}
		batch = append(batch, result.Records...)
	}

	if len(batch) == 0 {
		return nil, fmt.Errorf("%w (%d/%d tickers failed)", ErrNoData, failed, len(a.tickers))
	}

	log.Printf("Collected %d price rows from %d/%d tickers", len(batch), len(a.tickers)-failed, len(a.tickers))
	return batch, nil
}
