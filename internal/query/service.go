package query

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/saviobatista/skywatch/internal/parser"
	"github.com/saviobatista/skywatch/internal/types"
)

// SnapshotStore is the subset of the store the service reads from.
type SnapshotStore interface {
	LatestSnapshot(region string) (*types.RegionSnapshot, error)
	FindFlight(query string) (*types.FlightRecord, error)
	ActiveAlerts(maxAge time.Duration) ([]types.Alert, error)
}

// FlightCache is an optional fast path for flight lookups.
type FlightCache interface {
	GetFlightRecord(ctx context.Context, query string) (*types.FlightRecord, error)
}

// RegionSnapshotResult is the response shape for region snapshot queries.
type RegionSnapshotResult struct {
	Success      bool                 `json:"success"`
	Region       string               `json:"region"`
	Timestamp    time.Time            `json:"timestamp,omitzero"`
	TotalFlights int                  `json:"total_flights"`
	Flights      []types.FlightRecord `json:"flights"`
	Error        string               `json:"error,omitempty"`
}

// FlightResult is the response shape for flight lookups.
type FlightResult struct {
	Success bool                `json:"success"`
	Flight  *types.FlightRecord `json:"flight,omitempty"`
	Error   string              `json:"error,omitempty"`
}

// AlertsResult is the response shape for active alert queries.
type AlertsResult struct {
	Success     bool          `json:"success"`
	TotalAlerts int           `json:"total_alerts"`
	Alerts      []types.Alert `json:"alerts"`
	Error       string        `json:"error,omitempty"`
}

// Service is the read facade over the snapshot store. It performs no
// business logic of its own; failures degrade to success:false results.
type Service struct {
	store SnapshotStore
	cache FlightCache
}

// Option configures a Service.
type Option func(*Service)

// WithCache enables the cache fast path for flight lookups.
func WithCache(c FlightCache) Option {
	return func(s *Service) { s.cache = c }
}

// New creates a query service over the given store.
func New(store SnapshotStore, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegionSnapshot returns the most recent snapshot for a region with its
// flights decoded.
func (s *Service) RegionSnapshot(region string) RegionSnapshotResult {
	snap, err := s.store.LatestSnapshot(region)
	if err != nil {
		return RegionSnapshotResult{
			Success: false,
			Region:  region,
			Flights: []types.FlightRecord{},
			Error:   fmt.Sprintf("No snapshot found for region: %s", region),
		}
	}

	flights, err := parser.Normalize(snap)
	if err != nil {
		return RegionSnapshotResult{
			Success: false,
			Region:  region,
			Flights: []types.FlightRecord{},
			Error:   err.Error(),
		}
	}

	return RegionSnapshotResult{
		Success:      true,
		Region:       region,
		Timestamp:    snap.CapturedAt,
		TotalFlights: len(flights),
		Flights:      flights,
	}
}

// FlightByCallsign finds the latest record for a callsign or identifier,
// consulting the cache before scanning recent snapshots.
func (s *Service) FlightByCallsign(ctx context.Context, query string) FlightResult {
	if s.cache != nil {
		rec, err := s.cache.GetFlightRecord(ctx, query)
		if err != nil {
			log.Printf("Warning: flight cache lookup failed for %s: %v", query, err)
		} else if rec != nil {
			return FlightResult{Success: true, Flight: rec}
		}
	}

	rec, err := s.store.FindFlight(query)
	if err != nil {
		return FlightResult{
			Success: false,
			Error:   fmt.Sprintf("Flight not found: %s", query),
		}
	}
	return FlightResult{Success: true, Flight: rec}
}

// ActiveAlerts returns all alerts within the age window, most recent first.
func (s *Service) ActiveAlerts(maxAgeHours int) AlertsResult {
	if maxAgeHours <= 0 {
		maxAgeHours = 24
	}

	alerts, err := s.store.ActiveAlerts(time.Duration(maxAgeHours) * time.Hour)
	if err != nil {
		return AlertsResult{
			Success: false,
			Alerts:  []types.Alert{},
			Error:   err.Error(),
		}
	}
	if alerts == nil {
		alerts = []types.Alert{}
	}
	return AlertsResult{
		Success:     true,
		TotalAlerts: len(alerts),
		Alerts:      alerts,
	}
}
