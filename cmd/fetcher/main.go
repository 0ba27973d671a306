package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/saviobatista/skywatch/internal/anomaly"
	"github.com/saviobatista/skywatch/internal/config"
	"github.com/saviobatista/skywatch/internal/db"
	"github.com/saviobatista/skywatch/internal/ingest"
	"github.com/saviobatista/skywatch/internal/nats"
	"github.com/saviobatista/skywatch/internal/opensky"
	"github.com/saviobatista/skywatch/internal/redis"
	"github.com/saviobatista/skywatch/internal/store"
)

func main() {
	if err := runFetcher(); err != nil {
		log.Printf("Fetcher failed: %v", err)
		os.Exit(1)
	}
}

// runFetcher contains the main application logic and can be tested
func runFetcher() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	st, err := store.New(cfg.SnapshotsDir, cfg.AlertsDir, store.WithScanDepth(cfg.ScanDepth))
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	clientOpts := []opensky.Option{opensky.WithTimeout(cfg.FetchTimeout)}
	if cfg.ProviderURL != "" {
		clientOpts = append(clientOpts, opensky.WithBaseURL(cfg.ProviderURL))
	}
	provider := opensky.New(clientOpts...)

	opts := []ingest.Option{}

	if cfg.NATSURL != "" {
		bus, err := nats.New(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("failed to create NATS client: %w", err)
		}
		defer bus.Close()
		opts = append(opts, ingest.WithPublisher(bus))
		log.Printf("Alert publishing enabled: %s", cfg.NATSURL)
	}

	if cfg.RedisAddr != "" {
		cache, err := redis.New(cfg.RedisAddr)
		if err != nil {
			return fmt.Errorf("failed to create Redis client: %w", err)
		}
		defer func() {
			if err := cache.Close(); err != nil {
				log.Printf("Warning: failed to close Redis client: %v", err)
			}
		}()
		opts = append(opts, ingest.WithCache(cache))
		log.Printf("Flight record cache enabled: %s", cfg.RedisAddr)
	}

	ingestor := ingest.New(st, provider, anomaly.NewWithDefaults(), opts...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DatabaseURL != "" {
		archive, err := db.New(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to create database client: %w", err)
		}
		defer func() {
			if err := archive.Close(); err != nil {
				log.Printf("Warning: failed to close database client: %v", err)
			}
		}()
		ingestor.Stats().SetDB(archive)
		go ingestor.Stats().StartPersistence(ctx, 5*time.Minute)
		log.Printf("Statistics persistence enabled")
	}

	go ingestor.Run(ctx, cfg.Regions, cfg.FetchInterval, cfg.RegionDelay)
	go pruneLoop(ctx, st, cfg.MaxSnapshots, cfg.FetchInterval)

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
	cancel()
	time.Sleep(time.Second) // Give time for goroutines to clean up
	return nil
}

// pruneLoop keeps the snapshot directory bounded while the fetch loop runs.
func pruneLoop(ctx context.Context, st *store.Store, keep int, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := st.PruneSnapshots(keep); err != nil {
				log.Printf("Warning: failed to prune snapshots: %v", err)
			}
		}
	}
}
