package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/saviobatista/skywatch/internal/types"
)

// Positions of the fields we keep inside an OpenSky state vector.
const (
	posIdentifier    = 0
	posCallsign      = 1
	posOriginCountry = 2
	posLongitude     = 5
	posLatitude      = 6
	posAltitude      = 7
	posOnGround      = 8
	posVelocity      = 9
	posHeading       = 10
	posVerticalRate  = 11

	// minStateFields is the shortest row we accept; truncated rows are
	// dropped, the provider is known to emit them occasionally.
	minStateFields = 12
)

// StatesPayload mirrors the provider response shape: a heterogeneous
// fixed-position array per aircraft.
type StatesPayload struct {
	Time   int64   `json:"time"`
	States [][]any `json:"states"`
}

// Normalize decodes a raw region snapshot into canonical flight records.
// Output order matches provider order. Rows shorter than 12 fields are
// silently dropped. Returns an error only when the payload itself is not
// valid JSON.
func Normalize(snap *types.RegionSnapshot) ([]types.FlightRecord, error) {
	var payload StatesPayload
	if err := json.Unmarshal(snap.Payload, &payload); err != nil {
		return nil, fmt.Errorf("%w: decoding snapshot payload: %v", types.ErrCorruptData, err)
	}

	flights := make([]types.FlightRecord, 0, len(payload.States))
	for _, row := range payload.States {
		rec, ok := decodeState(row)
		if !ok {
			continue
		}
		rec.Region = snap.Region
		rec.ObservedAt = snap.CapturedAt
		flights = append(flights, *rec)
	}
	return flights, nil
}

// decodeState converts one positional state row into a flight record. It
// reports false for rows that are truncated or carry no identifier.
func decodeState(row []any) (*types.FlightRecord, bool) {
	if len(row) < minStateFields {
		return nil, false
	}

	identifier := stringAt(row, posIdentifier)
	if identifier == "" {
		return nil, false
	}

	rec := &types.FlightRecord{
		Identifier:    identifier,
		Callsign:      strings.TrimSpace(stringAt(row, posCallsign)),
		OriginCountry: stringAt(row, posOriginCountry),
		Longitude:     floatAt(row, posLongitude),
		Latitude:      floatAt(row, posLatitude),
		Altitude:      floatAt(row, posAltitude),
		OnGround:      boolAt(row, posOnGround),
		Velocity:      floatAt(row, posVelocity),
		Heading:       floatAt(row, posHeading),
		VerticalRate:  floatAt(row, posVerticalRate),
	}
	return rec, true
}

func stringAt(row []any, i int) string {
	if s, ok := row[i].(string); ok {
		return s
	}
	return ""
}

func boolAt(row []any, i int) bool {
	if b, ok := row[i].(bool); ok {
		return b
	}
	return false
}

// floatAt returns nil when the field is absent or not numeric; absence must
// never be coerced to zero.
func floatAt(row []any, i int) *float64 {
	if v, ok := row[i].(float64); ok {
		f := v
		return &f
	}
	return nil
}
