package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"SNAPSHOT_DIR", "ALERT_DIR", "OPENSKY_URL", "NATS_URL", "REDIS_ADDR",
		"DATABASE_URL", "FETCH_INTERVAL", "REGION_DELAY", "FETCH_TIMEOUT",
		"SNAPSHOT_SCAN_DEPTH", "MAX_SNAPSHOTS", "REGIONS",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.SnapshotsDir != "./data/snapshots" {
		t.Errorf("Expected default snapshots dir, got %s", cfg.SnapshotsDir)
	}
	if cfg.AlertsDir != "./data/alerts" {
		t.Errorf("Expected default alerts dir, got %s", cfg.AlertsDir)
	}
	if cfg.FetchInterval != 60*time.Second {
		t.Errorf("Expected 60s fetch interval, got %v", cfg.FetchInterval)
	}
	if cfg.RegionDelay != 2*time.Second {
		t.Errorf("Expected 2s region delay, got %v", cfg.RegionDelay)
	}
	if cfg.FetchTimeout != 15*time.Second {
		t.Errorf("Expected 15s fetch timeout, got %v", cfg.FetchTimeout)
	}
	if cfg.ScanDepth != 10 {
		t.Errorf("Expected scan depth 10, got %d", cfg.ScanDepth)
	}
	if cfg.MaxSnapshots != 100 {
		t.Errorf("Expected max snapshots 100, got %d", cfg.MaxSnapshots)
	}
	if len(cfg.Regions) != 3 {
		t.Fatalf("Expected 3 default regions, got %d", len(cfg.Regions))
	}
	if cfg.Regions[0].Name != "USA_East_Coast" {
		t.Errorf("Expected USA_East_Coast first, got %s", cfg.Regions[0].Name)
	}
	if cfg.Regions[0].Box == nil || cfg.Regions[0].Box.MinLat != 36.0 {
		t.Error("Expected default region bounding box")
	}
	if cfg.NATSURL != "" || cfg.RedisAddr != "" || cfg.DatabaseURL != "" {
		t.Error("Expected optional backends to default to disabled")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SNAPSHOT_DIR", "/tmp/snaps")
	t.Setenv("ALERT_DIR", "/tmp/alerts")
	t.Setenv("FETCH_INTERVAL", "30")
	t.Setenv("REGION_DELAY", "5")
	t.Setenv("FETCH_TIMEOUT", "10")
	t.Setenv("SNAPSHOT_SCAN_DEPTH", "20")
	t.Setenv("MAX_SNAPSHOTS", "50")
	t.Setenv("NATS_URL", "nats://localhost:4222")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("DATABASE_URL", "postgres://localhost/skywatch")
	t.Setenv("REGIONS", "custom_region:10,20,30,40")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.SnapshotsDir != "/tmp/snaps" || cfg.AlertsDir != "/tmp/alerts" {
		t.Error("Expected directory overrides to apply")
	}
	if cfg.FetchInterval != 30*time.Second {
		t.Errorf("Expected 30s fetch interval, got %v", cfg.FetchInterval)
	}
	if cfg.RegionDelay != 5*time.Second {
		t.Errorf("Expected 5s region delay, got %v", cfg.RegionDelay)
	}
	if cfg.ScanDepth != 20 || cfg.MaxSnapshots != 50 {
		t.Error("Expected scan depth and max snapshots overrides to apply")
	}
	if cfg.NATSURL != "nats://localhost:4222" {
		t.Errorf("Expected NATS URL override, got %s", cfg.NATSURL)
	}
	if len(cfg.Regions) != 1 || cfg.Regions[0].Name != "custom_region" {
		t.Fatalf("Expected single custom region, got %+v", cfg.Regions)
	}
}

func TestLoad_InvalidInterval(t *testing.T) {
	t.Setenv("FETCH_INTERVAL", "not-a-number")

	if _, err := Load(); err == nil {
		t.Error("Expected error for non-numeric FETCH_INTERVAL")
	}
}

func TestParseRegions(t *testing.T) {
	regions, err := ParseRegions("east:36,42,-80,-70; europe : 48, 52, 2, 10")
	if err != nil {
		t.Fatalf("ParseRegions() failed: %v", err)
	}
	if len(regions) != 2 {
		t.Fatalf("Expected 2 regions, got %d", len(regions))
	}
	if regions[0].Name != "east" {
		t.Errorf("Expected east, got %s", regions[0].Name)
	}
	box := regions[0].Box
	if box == nil || box.MinLat != 36 || box.MaxLat != 42 || box.MinLon != -80 || box.MaxLon != -70 {
		t.Errorf("Unexpected bounding box: %+v", box)
	}
	if regions[1].Name != "europe" || regions[1].Box == nil || regions[1].Box.MaxLon != 10 {
		t.Errorf("Unexpected second region: %+v", regions[1])
	}
}

func TestParseRegions_UnboundedRegion(t *testing.T) {
	regions, err := ParseRegions("worldwide")
	if err != nil {
		t.Fatalf("ParseRegions() failed: %v", err)
	}
	if len(regions) != 1 || regions[0].Name != "worldwide" {
		t.Fatalf("Expected one region, got %+v", regions)
	}
	if regions[0].Box != nil {
		t.Error("Expected nil bounding box for unbounded region")
	}
}

func TestParseRegions_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"empty", ""},
		{"only separators", " ; ; "},
		{"missing name", ":1,2,3,4"},
		{"wrong coordinate count", "bad:1,2,3"},
		{"non-numeric coordinate", "bad:1,2,3,x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseRegions(tt.value); err == nil {
				t.Errorf("Expected error for %q", tt.value)
			}
		})
	}
}
