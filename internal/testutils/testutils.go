package testutils

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// StateRow builds one full-length provider state vector for testing.
func StateRow(identifier, callsign string, lon, lat, alt float64, onGround bool, vel, heading, vrate float64) []any {
	return []any{
		identifier, callsign, "Testland", 1234567890, 1234567890,
		lon, lat, alt, onGround, vel, heading, vrate,
	}
}

// StatesPayload marshals rows into a provider response body.
func StatesPayload(rows ...[]any) []byte {
	payload := map[string]any{
		"time":   time.Now().Unix(),
		"states": rows,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		panic(fmt.Sprintf("failed to marshal test payload: %v", err))
	}
	return data
}

// Float returns a pointer to v, for optional flight record fields.
func Float(v float64) *float64 {
	return &v
}

// WaitForCondition waits for a condition to be true with timeout
func WaitForCondition(condition func() bool, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for condition")
		case <-ticker.C:
			if condition() {
				return nil
			}
		}
	}
}
