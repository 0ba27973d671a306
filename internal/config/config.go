package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/saviobatista/skywatch/internal/types"
)

// Config holds the application configuration
type Config struct {
	SnapshotsDir string
	AlertsDir    string

	Regions []types.Region

	FetchInterval time.Duration
	RegionDelay   time.Duration
	FetchTimeout  time.Duration

	ScanDepth    int
	MaxSnapshots int

	ProviderURL string

	// Optional backends; empty disables the integration.
	NATSURL     string
	RedisAddr   string
	DatabaseURL string
}

// DefaultRegions covers three busy corridors, used when REGIONS is unset.
func DefaultRegions() []types.Region {
	return []types.Region{
		{Name: "USA_East_Coast", Box: &types.BoundingBox{MinLat: 36.0, MaxLat: 42.0, MinLon: -80.0, MaxLon: -70.0}},
		{Name: "Europe_Central", Box: &types.BoundingBox{MinLat: 48.0, MaxLat: 52.0, MinLon: 2.0, MaxLon: 10.0}},
		{Name: "Asia_Pacific", Box: &types.BoundingBox{MinLat: 35.0, MaxLat: 40.0, MinLon: 135.0, MaxLon: 145.0}},
	}
}

// Load loads the configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		SnapshotsDir:  envOr("SNAPSHOT_DIR", "./data/snapshots"),
		AlertsDir:     envOr("ALERT_DIR", "./data/alerts"),
		ProviderURL:   os.Getenv("OPENSKY_URL"),
		NATSURL:       os.Getenv("NATS_URL"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		FetchInterval: 60 * time.Second,
		RegionDelay:   2 * time.Second,
		FetchTimeout:  15 * time.Second,
		ScanDepth:     10,
		MaxSnapshots:  100,
	}

	var err error
	if cfg.FetchInterval, err = envSeconds("FETCH_INTERVAL", cfg.FetchInterval); err != nil {
		return nil, err
	}
	if cfg.RegionDelay, err = envSeconds("REGION_DELAY", cfg.RegionDelay); err != nil {
		return nil, err
	}
	if cfg.FetchTimeout, err = envSeconds("FETCH_TIMEOUT", cfg.FetchTimeout); err != nil {
		return nil, err
	}
	if cfg.ScanDepth, err = envInt("SNAPSHOT_SCAN_DEPTH", cfg.ScanDepth); err != nil {
		return nil, err
	}
	if cfg.MaxSnapshots, err = envInt("MAX_SNAPSHOTS", cfg.MaxSnapshots); err != nil {
		return nil, err
	}

	if regions := os.Getenv("REGIONS"); regions != "" {
		cfg.Regions, err = ParseRegions(regions)
		if err != nil {
			return nil, err
		}
	} else {
		cfg.Regions = DefaultRegions()
	}

	return cfg, nil
}

// ParseRegions decodes the REGIONS environment value:
// "name:minLat,maxLat,minLon,maxLon;name2:..." — the bounding box part may
// be omitted for an unbounded region.
func ParseRegions(value string) ([]types.Region, error) {
	var regions []types.Region
	for _, part := range strings.Split(value, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		name, boxSpec, hasBox := strings.Cut(part, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("invalid REGIONS entry %q: missing region name", part)
		}

		region := types.Region{Name: name}
		if hasBox && strings.TrimSpace(boxSpec) != "" {
			coords := strings.Split(boxSpec, ",")
			if len(coords) != 4 {
				return nil, fmt.Errorf("invalid REGIONS entry %q: expected 4 coordinates, got %d", part, len(coords))
			}
			values := make([]float64, 4)
			for i, c := range coords {
				v, err := strconv.ParseFloat(strings.TrimSpace(c), 64)
				if err != nil {
					return nil, fmt.Errorf("invalid REGIONS entry %q: %w", part, err)
				}
				values[i] = v
			}
			region.Box = &types.BoundingBox{
				MinLat: values[0],
				MaxLat: values[1],
				MinLon: values[2],
				MaxLon: values[3],
			}
		}
		regions = append(regions, region)
	}

	if len(regions) == 0 {
		return nil, fmt.Errorf("REGIONS contained no regions")
	}
	return regions, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envSeconds(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return time.Duration(n) * time.Second, nil
}
