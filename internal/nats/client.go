package nats

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/saviobatista/skywatch/internal/types"
)

const (
	// SubjectAlerts carries persisted anomaly alerts for downstream sinks.
	SubjectAlerts = "alerts.anomaly"

	streamName = "ALERTS"
)

// Client represents a NATS client
type Client struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// New creates a new NATS client
func New(url string) (*Client, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	// Create stream if it doesn't exist
	_, err = js.AddStream(&nats.StreamConfig{
		Name:     streamName,
		Subjects: []string{SubjectAlerts},
		Storage:  nats.FileStorage,
		MaxAge:   24 * time.Hour,
	})
	if err != nil && !strings.Contains(err.Error(), "stream name already in use") {
		nc.Close()
		return nil, fmt.Errorf("failed to create stream: %w", err)
	}

	return &Client{
		conn: nc,
		js:   js,
	}, nil
}

// PublishAlert publishes an anomaly alert to NATS
func (c *Client) PublishAlert(alert *types.Alert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	_, err = c.js.Publish(SubjectAlerts, data)
	if err != nil {
		return fmt.Errorf("failed to publish alert: %w", err)
	}

	return nil
}

// SubscribeAlerts subscribes to anomaly alerts
func (c *Client) SubscribeAlerts(handler func(*types.Alert)) error {
	_, err := c.js.Subscribe(SubjectAlerts, func(msg *nats.Msg) {
		var alert types.Alert
		if err := json.Unmarshal(msg.Data, &alert); err != nil {
			fmt.Printf("Error unmarshaling alert: %v\n", err)
			return
		}
		handler(&alert)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	return nil
}

// Close closes the NATS connection
func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}
