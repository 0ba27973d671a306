package migrations

// RetentionPolicies ages out archived alerts and statistics
var RetentionPolicies = &Migration{
	ID:   "002_retention_policies",
	Name: "002_retention_policies",
	UpSQL: `
	-- Set retention policy for alerts (90 days)
	SELECT add_retention_policy('alerts', INTERVAL '90 days');

	-- Set retention policy for ingest_stats (30 days)
	SELECT add_retention_policy('ingest_stats', INTERVAL '30 days');

	-- Create continuous aggregate for daily alert counts per region
	CREATE MATERIALIZED VIEW IF NOT EXISTS alerts_daily
	WITH (timescaledb.continuous) AS
	SELECT
		time_bucket('1 day', time) AS day,
		region,
		severity,
		COUNT(*) AS alert_count
	FROM alerts
	GROUP BY day, region, severity
	WITH NO DATA;
	`,
	DownSQL: `
	DROP MATERIALIZED VIEW IF EXISTS alerts_daily;
	-- Remove retention policies
	SELECT remove_retention_policy('alerts');
	SELECT remove_retention_policy('ingest_stats');
	`,
}
