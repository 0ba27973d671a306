package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/saviobatista/skywatch/internal/db"
	"github.com/saviobatista/skywatch/internal/nats"
	"github.com/saviobatista/skywatch/internal/types"
)

// DBClient interface for testability
type DBClient interface {
	CreateAlert(alert *types.Alert) error
	Close() error
}

func main() {
	if err := runArchiver(); err != nil {
		log.Printf("Archiver failed: %v", err)
		os.Exit(1)
	}
}

// runArchiver contains the main application logic and can be tested
func runArchiver() error {
	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = "nats://nats:4222" // Default to Docker service name
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}

	archive, err := db.New(dbURL)
	if err != nil {
		return fmt.Errorf("failed to create database client: %w", err)
	}
	defer func() {
		if err := archive.Close(); err != nil {
			log.Printf("Warning: failed to close database client: %v", err)
		}
	}()

	bus, err := nats.New(natsURL)
	if err != nil {
		return fmt.Errorf("failed to create NATS client: %w", err)
	}
	defer bus.Close()

	if err := bus.SubscribeAlerts(func(alert *types.Alert) {
		if err := archiveAlert(archive, alert); err != nil {
			log.Printf("Failed to archive alert %s: %v", alert.AlertID, err)
		}
	}); err != nil {
		return fmt.Errorf("failed to subscribe to alerts: %w", err)
	}

	log.Printf("Archiver started, consuming %s", nats.SubjectAlerts)

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
	time.Sleep(time.Second) // Give in-flight handlers time to finish
	return nil
}

// archiveAlert inserts a single alert into the archive
func archiveAlert(archive DBClient, alert *types.Alert) error {
	if err := archive.CreateAlert(alert); err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	log.Printf("Archived alert %s (%s/%s)", alert.AlertID, alert.Region, alert.AnomalyType)
	return nil
}
