package db

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/lib/pq" // postgres driver
	"github.com/saviobatista/skywatch/internal/types"
)

// Client is the Postgres-backed alert archive. It is a durable index over
// the alerts the file store owns, fed asynchronously by the archiver.
type Client struct {
	db *sql.DB
}

// New creates a new database client
func New(connStr string) (*Client, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	return &Client{db: db}, nil
}

// Close closes the database connection
func (c *Client) Close() error {
	return c.db.Close()
}

// CreateAlert inserts one anomaly alert
func (c *Client) CreateAlert(alert *types.Alert) error {
	flight, err := json.Marshal(alert.Flight)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO alerts (
			time, alert_id, region, icao24, callsign,
			anomaly_type, severity, description, flight
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = c.db.Exec(query,
		alert.CreatedAt, alert.AlertID, alert.Region, alert.Identifier,
		alert.Callsign, alert.AnomalyType, alert.Severity, alert.Description,
		flight,
	)
	return err
}

// ActiveAlerts retrieves alerts created at or after the cutoff, most recent
// first
func (c *Client) ActiveAlerts(cutoff time.Time) ([]*types.Alert, error) {
	query := `
		SELECT time, alert_id, region, icao24, callsign,
			anomaly_type, severity, description, flight
		FROM alerts
		WHERE time >= $1
		ORDER BY time DESC
	`
	rows, err := c.db.Query(query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []*types.Alert
	for rows.Next() {
		var a types.Alert
		var flight []byte
		if err := rows.Scan(
			&a.CreatedAt, &a.AlertID, &a.Region, &a.Identifier, &a.Callsign,
			&a.AnomalyType, &a.Severity, &a.Description, &flight,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(flight, &a.Flight); err != nil {
			return nil, err
		}
		alerts = append(alerts, &a)
	}
	return alerts, rows.Err()
}

// StoreIngestStats stores ingestion loop statistics
func (c *Client) StoreIngestStats(stats map[string]interface{}) error {
	query := `
		INSERT INTO ingest_stats (
			time, fetch_cycles, successful_cycles, rate_limited_cycles,
			timed_out_cycles, failed_cycles, total_flights,
			detected_anomalies, stored_alerts, publish_failures
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := c.db.Exec(query,
		time.Now(),
		stats["fetch_cycles"],
		stats["successful_cycles"],
		stats["rate_limited_cycles"],
		stats["timed_out_cycles"],
		stats["failed_cycles"],
		stats["total_flights"],
		stats["detected_anomalies"],
		stats["stored_alerts"],
		stats["publish_failures"],
	)
	return err
}
