package anomaly

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/saviobatista/skywatch/internal/types"
)

// Thresholds holds the tunable limits for the rule bank. Values are fixed for
// the lifetime of one detector instance.
type Thresholds struct {
	MaxAltitudeMeters    float64 // m
	MinVelocityKmh       float64 // km/h
	MaxVelocityKmh       float64 // km/h
	MinAltitudeHighSpeed float64 // m
	HighSpeedThreshold   float64 // km/h
	MaxVerticalRate      float64 // m/s
}

// DefaultThresholds returns the stock limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxAltitudeMeters:    15000,
		MinVelocityKmh:       100,
		MaxVelocityKmh:       1000,
		MinAltitudeHighSpeed: 3000,
		HighSpeedThreshold:   600,
		MaxVerticalRate:      20,
	}
}

// Anomaly is one flagged condition for one flight at one observation.
type Anomaly struct {
	Flight      types.FlightRecord
	Type        string
	Severity    string
	Description string
}

// historyEntry is the last airborne slow-moving record seen for an
// identifier, plus when we recorded it so stale entries can be evicted.
type historyEntry struct {
	record  types.FlightRecord
	touched time.Time
}

// Detector evaluates batches of flight records against the rule bank. The
// per-identifier history map backs the stationary-in-air rule and is guarded
// by a mutex so regions may be ingested concurrently.
type Detector struct {
	thresholds Thresholds
	historyTTL time.Duration

	mu       sync.Mutex
	previous map[string]historyEntry
	now      func() time.Time
}

// DefaultHistoryTTL bounds how long an identifier stays in the history map
// without being observed again.
const DefaultHistoryTTL = 30 * time.Minute

// New creates a detector with the given thresholds.
func New(thresholds Thresholds) *Detector {
	return &Detector{
		thresholds: thresholds,
		historyTTL: DefaultHistoryTTL,
		previous:   make(map[string]historyEntry),
		now:        time.Now,
	}
}

// NewWithDefaults creates a detector with the stock thresholds.
func NewWithDefaults() *Detector {
	return New(DefaultThresholds())
}

// Detect evaluates each flight independently, in input order. A single
// flight may produce several anomalies; the checks are not mutually
// exclusive. Flights on the ground are skipped entirely and do not touch the
// history map.
func (d *Detector) Detect(flights []types.FlightRecord) []Anomaly {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.evictStale()

	var anomalies []Anomaly
	for i := range flights {
		anomalies = append(anomalies, d.checkFlight(&flights[i])...)
	}
	return anomalies
}

// HistorySize reports how many identifiers are currently tracked.
func (d *Detector) HistorySize() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.previous)
}

// evictStale drops identifiers not observed within the TTL. Caller holds the
// mutex.
func (d *Detector) evictStale() {
	cutoff := d.now().Add(-d.historyTTL)
	for id, entry := range d.previous {
		if entry.touched.Before(cutoff) {
			delete(d.previous, id)
		}
	}
}

// checkFlight runs the full rule bank for one flight. Caller holds the mutex.
func (d *Detector) checkFlight(flight *types.FlightRecord) []Anomaly {
	if flight.OnGround {
		return nil
	}

	var anomalies []Anomaly
	label := flight.Label()
	altitude := flight.Altitude
	velocity := flight.Velocity
	verticalRate := flight.VerticalRate

	if altitude != nil && velocity != nil && *altitude > 8000 && *velocity < d.thresholds.MinVelocityKmh {
		anomalies = append(anomalies, Anomaly{
			Flight:      *flight,
			Type:        types.AnomalyHighAltitudeLowSpeed,
			Severity:    types.SeverityMedium,
			Description: fmt.Sprintf("Flight %s at %gm with only %g km/h", label, *altitude, *velocity),
		})
	}

	if altitude != nil && *altitude > d.thresholds.MaxAltitudeMeters {
		anomalies = append(anomalies, Anomaly{
			Flight:      *flight,
			Type:        types.AnomalyExcessiveAltitude,
			Severity:    types.SeverityHigh,
			Description: fmt.Sprintf("Flight %s at unusual altitude: %gm", label, *altitude),
		})
	}

	if altitude != nil && velocity != nil && *altitude < d.thresholds.MinAltitudeHighSpeed && *velocity > d.thresholds.HighSpeedThreshold {
		anomalies = append(anomalies, Anomaly{
			Flight:      *flight,
			Type:        types.AnomalyLowAltitudeHighSpeed,
			Severity:    types.SeverityHigh,
			Description: fmt.Sprintf("Flight %s at %g km/h at only %gm altitude", label, *velocity, *altitude),
		})
	}

	if verticalRate != nil && math.Abs(*verticalRate) > d.thresholds.MaxVerticalRate {
		direction := "climbing"
		if *verticalRate < 0 {
			direction = "descending"
		}
		anomalies = append(anomalies, Anomaly{
			Flight:      *flight,
			Type:        types.AnomalyRapidVerticalMovement,
			Severity:    types.SeverityMedium,
			Description: fmt.Sprintf("Flight %s %s rapidly at %g m/s", label, direction, math.Abs(*verticalRate)),
		})
	}

	if velocity != nil && *velocity > d.thresholds.MaxVelocityKmh {
		anomalies = append(anomalies, Anomaly{
			Flight:      *flight,
			Type:        types.AnomalyExcessiveSpeed,
			Severity:    types.SeverityMedium,
			Description: fmt.Sprintf("Flight %s traveling at %g km/h (unusually fast)", label, *velocity),
		})
	}

	// Stationary-in-air needs a previous airborne observation. History is
	// recorded only for slow-moving flights; a flight that speeds up and
	// slows back down keeps its older slow record as "previous".
	if velocity != nil && *velocity < 50 {
		if entry, ok := d.previous[flight.Identifier]; ok {
			prev := entry.record
			if prev.Latitude != nil && prev.Longitude != nil && flight.Latitude != nil && flight.Longitude != nil {
				latDiff := math.Abs(*flight.Latitude - *prev.Latitude)
				lonDiff := math.Abs(*flight.Longitude - *prev.Longitude)
				if latDiff < 0.01 && lonDiff < 0.01 {
					anomalies = append(anomalies, Anomaly{
						Flight:      *flight,
						Type:        types.AnomalyStationaryInAir,
						Severity:    types.SeverityHigh,
						Description: fmt.Sprintf("Flight %s appears stationary in air", label),
					})
				}
			}
		}
		d.previous[flight.Identifier] = historyEntry{record: *flight, touched: d.now()}
	}

	return anomalies
}
