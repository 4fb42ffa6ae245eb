package etl

import (
	"context"
	"fmt"
	"log"

	"go_etl_project/services/datafetcher"
	"go_etl_project/services/pricestore"
)

// Runner sequences one ETL invocation: fetch all instruments, then persist
// the batch. There is no pipeline-level retry; a failed run is re-invoked
// externally.
type Runner struct {
	aggregator *datafetcher.BatchAggregator
	store      *pricestore.PriceStore
	mode       pricestore.WriteMode
}

// NewRunner creates a runner over an aggregator and a persistence store.
func NewRunner(aggregator *datafetcher.BatchAggregator, store *pricestore.PriceStore, mode pricestore.WriteMode) *Runner {
	return &Runner{
		aggregator: aggregator,
		store:      store,
		mode:       mode,
	}
}

// Run executes the pipeline once. The first stage failure aborts the run and
// propagates to the caller.
func (r *Runner) Run(ctx context.Context) error {
	log.Println("Starting ETL run...")

	batch, err := r.aggregator.FetchAll(ctx)
	if err != nil {
		log.Printf("ERROR: Fetch stage failed: %v", err)
		return fmt.Errorf("fetch stage: %w", err)
	}

	if err := r.store.Save(ctx, batch, r.mode); err != nil {
		log.Printf("ERROR: Persistence stage failed: %v", err)
		return fmt.Errorf("persistence stage: %w", err)
	}

	log.Printf("ETL run completed successfully: %d rows written to %s", len(batch), r.store.TableName())
	return nil
}
