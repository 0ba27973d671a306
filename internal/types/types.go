package types

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Sentinel errors shared across the pipeline.
var (
	// ErrNotFound indicates no snapshot, flight or alert matched a query.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a write would overwrite an existing record key.
	ErrConflict = errors.New("record already exists")
	// ErrCorruptData indicates a persisted record could not be decoded.
	ErrCorruptData = errors.New("corrupt record")
	// ErrRateLimited indicates the provider signaled throttling (HTTP 429).
	ErrRateLimited = errors.New("rate limited by provider")
	// ErrTimeout indicates the provider did not respond within the deadline.
	ErrTimeout = errors.New("provider request timed out")
	// ErrUnavailable indicates a transport-level provider failure.
	ErrUnavailable = errors.New("provider unavailable")
)

// Severity levels assigned to anomaly alerts.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Anomaly types produced by the detector.
const (
	AnomalyHighAltitudeLowSpeed  = "high_altitude_low_speed"
	AnomalyExcessiveAltitude     = "excessive_altitude"
	AnomalyLowAltitudeHighSpeed  = "low_altitude_high_speed"
	AnomalyRapidVerticalMovement = "rapid_vertical_movement"
	AnomalyExcessiveSpeed        = "excessive_speed"
	AnomalyStationaryInAir       = "stationary_in_air"
)

// FlightRecord is one aircraft observation at a point in time. Identifier is
// always present; the numeric fields are nil when the provider did not report
// them, which is distinct from zero.
type FlightRecord struct {
	Identifier    string    `json:"icao24"`
	Callsign      string    `json:"callsign,omitempty"`
	OriginCountry string    `json:"origin_country,omitempty"`
	Longitude     *float64  `json:"longitude"`
	Latitude      *float64  `json:"latitude"`
	Altitude      *float64  `json:"altitude"`
	OnGround      bool      `json:"on_ground"`
	Velocity      *float64  `json:"velocity"`
	Heading       *float64  `json:"heading"`
	VerticalRate  *float64  `json:"vertical_rate"`
	Region        string    `json:"region,omitempty"`
	ObservedAt    time.Time `json:"timestamp,omitzero"`
}

// Label returns the callsign when present, otherwise the identifier.
func (f *FlightRecord) Label() string {
	if cs := strings.TrimSpace(f.Callsign); cs != "" {
		return cs
	}
	return f.Identifier
}

// RegionSnapshot is one raw provider response for one region at one moment.
// Payload holds the provider response verbatim.
type RegionSnapshot struct {
	Region     string          `json:"region"`
	CapturedAt time.Time       `json:"timestamp"`
	Payload    json.RawMessage `json:"data"`
}

// Alert is a persisted record of one detected anomaly occurrence.
type Alert struct {
	AlertID     string       `json:"alert_id"`
	Region      string       `json:"region"`
	Identifier  string       `json:"icao24"`
	Callsign    string       `json:"callsign,omitempty"`
	AnomalyType string       `json:"anomaly_type"`
	Severity    string       `json:"severity"`
	Description string       `json:"description"`
	Flight      FlightRecord `json:"flight_data"`
	CreatedAt   time.Time    `json:"timestamp"`
}

// BoundingBox is a rectangular lat/lon filter defining a region's query scope.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// Region pairs a region name with its bounding box. Regions are fetched in
// slice order so loop scheduling stays deterministic.
type Region struct {
	Name string
	Box  *BoundingBox
}
