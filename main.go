package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go_etl_project/config"
	"go_etl_project/scheduler"
	"go_etl_project/services/datafetcher"
	"go_etl_project/services/etl"
	"go_etl_project/services/pricestore"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime)
	log.Println("==============================================")
	log.Println("  Financial Price ETL - Starting...")
	log.Println("==============================================")

	if err := run(); err != nil {
		log.Fatalf("ETL failed: %v", err)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	log.Printf("Configured tickers: %v", cfg.Tickers)

	db, err := config.InitDB(cfg)
	if err != nil {
		return err
	}
	defer config.CloseDB(db)

	fetcher := datafetcher.NewDataFetcher()
	aggregator := datafetcher.NewBatchAggregator(fetcher, cfg.Tickers, cfg.FetchPeriod, cfg.FetchInterval, cfg.MaxFetchAttempts)
	store := pricestore.NewPriceStore(db, cfg.DBSchema, cfg.TableName, cfg.ChunkSize)
	runner := etl.NewRunner(aggregator, store, pricestore.WriteMode(cfg.WriteMode))

	// With a schedule configured the process stays up and runs daily;
	// otherwise it is a single invocation with the exit code as the contract.
	if cfg.ScheduleAt != "" {
		jobScheduler := scheduler.NewScheduler(runner, cfg.ScheduleAt, cfg.RunTimeout)
		if err := jobScheduler.Start(); err != nil {
			return err
		}

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutdown signal received")
		jobScheduler.Stop()
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RunTimeout)
	defer cancel()
	return runner.Run(ctx)
}
