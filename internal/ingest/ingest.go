package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/saviobatista/skywatch/internal/anomaly"
	"github.com/saviobatista/skywatch/internal/parser"
	"github.com/saviobatista/skywatch/internal/stats"
	"github.com/saviobatista/skywatch/internal/types"
)

// Cycle outcomes. A cycle never panics and never aborts sibling regions.
const (
	StatusSuccess     = "success"
	StatusRateLimited = "rate_limited"
	StatusTimedOut    = "timed_out"
	StatusFailed      = "failed"
)

// DefaultRegionDelay spaces consecutive region fetches inside one loop pass
// as provider rate-limit courtesy.
const DefaultRegionDelay = 2 * time.Second

// Provider fetches raw state data for an optional bounding box.
type Provider interface {
	FetchStates(ctx context.Context, box *types.BoundingBox) (json.RawMessage, error)
}

// SnapshotStore is the subset of the store the ingestor writes to.
type SnapshotStore interface {
	SaveSnapshot(region string, payload json.RawMessage) (*types.RegionSnapshot, error)
	SaveAlert(alert *types.Alert) (string, error)
}

// Detector evaluates a batch of flights.
type Detector interface {
	Detect(flights []types.FlightRecord) []anomaly.Anomaly
}

// AlertPublisher pushes persisted alerts to downstream consumers.
type AlertPublisher interface {
	PublishAlert(alert *types.Alert) error
}

// FlightCache keeps the latest record per flight for fast lookups.
type FlightCache interface {
	StoreFlightRecord(ctx context.Context, rec *types.FlightRecord) error
}

// CycleResult is the structured outcome of one fetch cycle for one region.
type CycleResult struct {
	CycleID      string    `json:"cycle_id"`
	Region       string    `json:"region"`
	Status       string    `json:"status"`
	TotalFlights int       `json:"total_flights"`
	Anomalies    int       `json:"anomalies"`
	Summary      string    `json:"summary,omitempty"`
	Error        string    `json:"error,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Success reports whether the cycle completed the full pipeline.
func (r CycleResult) Success() bool {
	return r.Status == StatusSuccess
}

// Ingestor orchestrates fetch, persist, normalize, detect and alert
// persistence for regions. One Ingestor must not run two concurrent cycles
// for the same region; the loop in Run is a sequential scheduler.
type Ingestor struct {
	store     SnapshotStore
	provider  Provider
	detector  Detector
	publisher AlertPublisher
	cache     FlightCache
	stats     *stats.Stats
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithPublisher enables alert publishing to a message bus.
func WithPublisher(p AlertPublisher) Option {
	return func(i *Ingestor) { i.publisher = p }
}

// WithCache enables latest-record caching after successful cycles.
func WithCache(c FlightCache) Option {
	return func(i *Ingestor) { i.cache = c }
}

// WithStats attaches a statistics collector.
func WithStats(s *stats.Stats) Option {
	return func(i *Ingestor) { i.stats = s }
}

// New creates a region ingestor.
func New(store SnapshotStore, provider Provider, detector Detector, opts ...Option) *Ingestor {
	ing := &Ingestor{
		store:    store,
		provider: provider,
		detector: detector,
		stats:    stats.New(),
	}
	for _, opt := range opts {
		opt(ing)
	}
	return ing
}

// Stats returns the ingestor's statistics collector.
func (i *Ingestor) Stats() *stats.Stats {
	return i.stats
}

// FetchRegion runs one fetch cycle for one region. Every failure is
// contained in the returned result; the caller's loop decides when to try
// again.
func (i *Ingestor) FetchRegion(ctx context.Context, region types.Region) CycleResult {
	result := CycleResult{
		CycleID:   uuid.New().String(),
		Region:    region.Name,
		Timestamp: time.Now().UTC(),
	}
	i.stats.IncrementFetchCycles()
	i.stats.UpdateLastCycleTime()

	log.Printf("[%s] Fetching data for region %s", result.CycleID, region.Name)

	payload, err := i.provider.FetchStates(ctx, region.Box)
	if err != nil {
		result.Error = err.Error()
		switch {
		case errors.Is(err, types.ErrRateLimited):
			result.Status = StatusRateLimited
			i.stats.IncrementRateLimitedCycles()
		case errors.Is(err, types.ErrTimeout):
			result.Status = StatusTimedOut
			i.stats.IncrementTimedOutCycles()
		default:
			result.Status = StatusFailed
			i.stats.IncrementFailedCycles()
		}
		return result
	}

	// The raw snapshot is persisted unconditionally, even when it holds
	// zero flights.
	snap, err := i.store.SaveSnapshot(region.Name, payload)
	if err != nil {
		result.Status = StatusFailed
		result.Error = err.Error()
		i.stats.IncrementFailedCycles()
		return result
	}

	flights, err := parser.Normalize(snap)
	if err != nil {
		result.Status = StatusFailed
		result.Error = err.Error()
		i.stats.IncrementFailedCycles()
		return result
	}

	anomalies := i.detector.Detect(flights)
	i.stats.AddFlights(uint64(len(flights)))
	i.stats.AddAnomalies(uint64(len(anomalies)))

	for idx := range anomalies {
		i.persistAlert(result.CycleID, region.Name, &anomalies[idx])
	}

	if i.cache != nil {
		for idx := range flights {
			if err := i.cache.StoreFlightRecord(ctx, &flights[idx]); err != nil {
				log.Printf("[%s] Warning: failed to cache flight %s: %v", result.CycleID, flights[idx].Identifier, err)
			}
		}
	}

	result.Status = StatusSuccess
	result.TotalFlights = len(flights)
	result.Anomalies = len(anomalies)
	result.Summary = anomaly.GenerateSummary(flights, anomalies, region.Name)
	i.stats.IncrementSuccessfulCycles()
	return result
}

// persistAlert stores one alert and publishes it when a bus is attached.
// Per-alert failures are logged, never fatal to the batch.
func (i *Ingestor) persistAlert(cycleID, region string, a *anomaly.Anomaly) {
	alert := &types.Alert{
		Region:      region,
		Identifier:  a.Flight.Identifier,
		Callsign:    a.Flight.Callsign,
		AnomalyType: a.Type,
		Severity:    a.Severity,
		Description: a.Description,
		Flight:      a.Flight,
	}

	alertID, err := i.store.SaveAlert(alert)
	if err != nil {
		log.Printf("[%s] Failed to save alert for %s: %v", cycleID, a.Flight.Identifier, err)
		return
	}
	i.stats.IncrementStoredAlerts()

	if i.publisher != nil {
		if err := i.publisher.PublishAlert(alert); err != nil {
			log.Printf("[%s] Failed to publish alert %s: %v", cycleID, alertID, err)
			i.stats.IncrementPublishFailures()
		}
	}
}

// Run iterates the regions in order, one cycle per region with a short delay
// between regions, then sleeps the interval and repeats until the context is
// cancelled.
func (i *Ingestor) Run(ctx context.Context, regions []types.Region, interval, regionDelay time.Duration) {
	log.Printf("Starting fetch loop with %d regions, interval: %s", len(regions), interval)

	for {
		for _, region := range regions {
			result := i.FetchRegion(ctx, region)
			if result.Success() {
				log.Printf("[%s] %s: %d flights, %d anomalies", result.CycleID, region.Name, result.TotalFlights, result.Anomalies)
			} else {
				log.Printf("[%s] %s: %s: %s", result.CycleID, region.Name, result.Status, result.Error)
			}

			if !sleepCtx(ctx, regionDelay) {
				return
			}
		}

		log.Printf("Sleeping for %s...", interval)
		if !sleepCtx(ctx, interval) {
			return
		}
	}
}

// sleepCtx waits d unless the context ends first; false means shut down.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
