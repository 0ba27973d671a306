package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/saviobatista/skywatch/internal/types"
)

// flightTTL bounds how long a cached record stays authoritative; snapshot
// scans remain the fallback once it lapses.
const flightTTL = 1 * time.Hour

// RedisClientInterface defines the Redis operations used by our client
type RedisClientInterface interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// Client caches the most recent flight record per identifier and callsign so
// lookups can skip the snapshot scan.
type Client struct {
	client RedisClientInterface
}

// New creates a new Redis client
func New(addr string) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "", // no password set
		DB:       0,  // use default DB
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{client: client}, nil
}

// NewWithClient creates a new Redis client with a custom RedisClientInterface (useful for testing)
func NewWithClient(client RedisClientInterface) *Client {
	return &Client{client: client}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}

// StoreFlightRecord caches a flight record under its identifier and, when
// present, its trimmed callsign.
func (c *Client) StoreFlightRecord(ctx context.Context, rec *types.FlightRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal flight record: %w", err)
	}

	if err := c.client.Set(ctx, identifierKey(rec.Identifier), data, flightTTL).Err(); err != nil {
		return err
	}
	if cs := strings.TrimSpace(rec.Callsign); cs != "" {
		return c.client.Set(ctx, callsignKey(cs), data, flightTTL).Err()
	}
	return nil
}

// GetFlightRecord looks a record up by identifier or callsign. A cache miss
// returns (nil, nil).
func (c *Client) GetFlightRecord(ctx context.Context, query string) (*types.FlightRecord, error) {
	for _, key := range []string{identifierKey(query), callsignKey(query)} {
		data, err := c.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get flight record: %w", err)
		}

		var rec types.FlightRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal flight record: %w", err)
		}
		return &rec, nil
	}
	return nil, nil
}

// DeleteFlightRecord removes a cached record and its callsign key.
func (c *Client) DeleteFlightRecord(ctx context.Context, rec *types.FlightRecord) error {
	keys := []string{identifierKey(rec.Identifier)}
	if cs := strings.TrimSpace(rec.Callsign); cs != "" {
		keys = append(keys, callsignKey(cs))
	}
	return c.client.Del(ctx, keys...).Err()
}

func identifierKey(identifier string) string {
	return fmt.Sprintf("flight:%s", strings.ToLower(strings.TrimSpace(identifier)))
}

func callsignKey(callsign string) string {
	return fmt.Sprintf("callsign:%s", strings.ToLower(strings.TrimSpace(callsign)))
}
