package migrations

import "time"

// InitialSchema creates the alert archive schema
var InitialSchema = &Migration{
	ID:   "001_initial_schema",
	Name: "001_initial_schema",
	UpSQL: `
		-- Enable TimescaleDB extension
		CREATE EXTENSION IF NOT EXISTS timescaledb;

		-- Create alerts hypertable
		CREATE TABLE IF NOT EXISTS alerts (
			time TIMESTAMPTZ NOT NULL,
			alert_id TEXT NOT NULL,
			region TEXT NOT NULL,
			icao24 TEXT NOT NULL,
			callsign TEXT,
			anomaly_type TEXT NOT NULL,
			severity TEXT NOT NULL,
			description TEXT,
			flight JSONB
		);

		-- Create hypertable
		SELECT create_hypertable('alerts', 'time');

		-- Create indexes
		CREATE INDEX IF NOT EXISTS idx_alerts_icao24 ON alerts (icao24);
		CREATE INDEX IF NOT EXISTS idx_alerts_region ON alerts (region);
		CREATE INDEX IF NOT EXISTS idx_alerts_severity ON alerts (severity);

		-- Create ingest statistics table
		CREATE TABLE IF NOT EXISTS ingest_stats (
			time TIMESTAMPTZ NOT NULL,
			fetch_cycles BIGINT NOT NULL,
			successful_cycles BIGINT NOT NULL,
			rate_limited_cycles BIGINT NOT NULL,
			timed_out_cycles BIGINT NOT NULL,
			failed_cycles BIGINT NOT NULL,
			total_flights BIGINT NOT NULL,
			detected_anomalies BIGINT NOT NULL,
			stored_alerts BIGINT NOT NULL,
			publish_failures BIGINT NOT NULL
		);

		-- Create hypertable for statistics
		SELECT create_hypertable('ingest_stats', 'time');

		-- Create index for statistics
		CREATE INDEX IF NOT EXISTS idx_ingest_stats_time ON ingest_stats (time DESC);
	`,
	DownSQL: `
		DROP TABLE IF EXISTS ingest_stats;
		DROP TABLE IF EXISTS alerts;
	`,
	CreatedAt: time.Now(),
}
