package stats

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/saviobatista/skywatch/internal/db"
)

// Stats tracks ingestion loop statistics
type Stats struct {
	// Cycle counts by outcome
	FetchCycles       uint64
	SuccessfulCycles  uint64
	RateLimitedCycles uint64
	TimedOutCycles    uint64
	FailedCycles      uint64

	// Pipeline counts
	TotalFlights      uint64
	DetectedAnomalies uint64
	StoredAlerts      uint64
	PublishFailures   uint64

	// Timing
	LastCycleTime time.Time

	// Database client for persistence
	db *db.Client

	mu sync.RWMutex
}

// New creates a new Stats instance
func New() *Stats {
	return &Stats{
		LastCycleTime: time.Now(),
	}
}

// SetDB sets the database client for persistence
func (s *Stats) SetDB(db *db.Client) {
	s.mu.Lock()
	s.db = db
	s.mu.Unlock()
}

// Persist stores the current statistics in the database
func (s *Stats) Persist() error {
	s.mu.RLock()
	if s.db == nil {
		s.mu.RUnlock()
		return fmt.Errorf("database client not set")
	}
	s.mu.RUnlock()

	return s.db.StoreIngestStats(s.GetStats())
}

// IncrementFetchCycles increments the fetch cycles counter
func (s *Stats) IncrementFetchCycles() {
	atomic.AddUint64(&s.FetchCycles, 1)
}

// IncrementSuccessfulCycles increments the successful cycles counter
func (s *Stats) IncrementSuccessfulCycles() {
	atomic.AddUint64(&s.SuccessfulCycles, 1)
}

// IncrementRateLimitedCycles increments the rate limited cycles counter
func (s *Stats) IncrementRateLimitedCycles() {
	atomic.AddUint64(&s.RateLimitedCycles, 1)
}

// IncrementTimedOutCycles increments the timed out cycles counter
func (s *Stats) IncrementTimedOutCycles() {
	atomic.AddUint64(&s.TimedOutCycles, 1)
}

// IncrementFailedCycles increments the failed cycles counter
func (s *Stats) IncrementFailedCycles() {
	atomic.AddUint64(&s.FailedCycles, 1)
}

// AddFlights adds to the total flights counter
func (s *Stats) AddFlights(count uint64) {
	atomic.AddUint64(&s.TotalFlights, count)
}

// AddAnomalies adds to the detected anomalies counter
func (s *Stats) AddAnomalies(count uint64) {
	atomic.AddUint64(&s.DetectedAnomalies, count)
}

// IncrementStoredAlerts increments the stored alerts counter
func (s *Stats) IncrementStoredAlerts() {
	atomic.AddUint64(&s.StoredAlerts, 1)
}

// IncrementPublishFailures increments the publish failures counter
func (s *Stats) IncrementPublishFailures() {
	atomic.AddUint64(&s.PublishFailures, 1)
}

// UpdateLastCycleTime updates the last cycle time
func (s *Stats) UpdateLastCycleTime() {
	s.mu.Lock()
	s.LastCycleTime = time.Now()
	s.mu.Unlock()
}

// GetStats returns a copy of the current statistics
func (s *Stats) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"fetch_cycles":        atomic.LoadUint64(&s.FetchCycles),
		"successful_cycles":   atomic.LoadUint64(&s.SuccessfulCycles),
		"rate_limited_cycles": atomic.LoadUint64(&s.RateLimitedCycles),
		"timed_out_cycles":    atomic.LoadUint64(&s.TimedOutCycles),
		"failed_cycles":       atomic.LoadUint64(&s.FailedCycles),
		"total_flights":       atomic.LoadUint64(&s.TotalFlights),
		"detected_anomalies":  atomic.LoadUint64(&s.DetectedAnomalies),
		"stored_alerts":       atomic.LoadUint64(&s.StoredAlerts),
		"publish_failures":    atomic.LoadUint64(&s.PublishFailures),
		"last_cycle_time":     s.LastCycleTime,
	}
}

// String returns a string representation of the statistics
func (s *Stats) String() string {
	stats := s.GetStats()
	return fmt.Sprintf(
		"Fetch Cycles: %d\n"+
			"Successful Cycles: %d\n"+
			"Rate Limited Cycles: %d\n"+
			"Timed Out Cycles: %d\n"+
			"Failed Cycles: %d\n"+
			"Total Flights: %d\n"+
			"Detected Anomalies: %d\n"+
			"Stored Alerts: %d\n"+
			"Publish Failures: %d\n"+
			"Last Cycle Time: %s",
		stats["fetch_cycles"],
		stats["successful_cycles"],
		stats["rate_limited_cycles"],
		stats["timed_out_cycles"],
		stats["failed_cycles"],
		stats["total_flights"],
		stats["detected_anomalies"],
		stats["stored_alerts"],
		stats["publish_failures"],
		stats["last_cycle_time"],
	)
}

// StartPersistence starts periodic persistence of statistics
func (s *Stats) StartPersistence(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Final persistence before shutdown
			if err := s.Persist(); err != nil {
				fmt.Printf("Failed to persist final statistics: %v\n", err)
			}
			return
		case <-ticker.C:
			if err := s.Persist(); err != nil {
				fmt.Printf("Failed to persist statistics: %v\n", err)
			}
		}
	}
}
