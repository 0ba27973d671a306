package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/saviobatista/skywatch/internal/testutils"
	"github.com/saviobatista/skywatch/internal/types"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	base := t.TempDir()
	s, err := New(filepath.Join(base, "snapshots"), filepath.Join(base, "alerts"), opts...)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return s
}

// backdate shifts a snapshot file's write time so recency ordering is
// deterministic in tests.
func backdate(t *testing.T, s *Store, snap *types.RegionSnapshot, age time.Duration) {
	t.Helper()
	name := snap.Region + "_" + fileTimestamp(snap.CapturedAt) + snapshotSuffix
	path := filepath.Join(s.snapshotsDir, name)
	when := time.Now().Add(-age)
	if err := os.Chtimes(path, when, when); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}
}

func TestSaveSnapshot_AndLatest(t *testing.T) {
	s := newTestStore(t)

	payload := testutils.StatesPayload(
		testutils.StateRow("abc123", "UAL123", -122.4, 37.8, 10000, false, 250, 90, 0),
	)
	snap, err := s.SaveSnapshot("test_region", payload)
	if err != nil {
		t.Fatalf("SaveSnapshot() failed: %v", err)
	}
	if snap.Region != "test_region" {
		t.Errorf("Expected region test_region, got %s", snap.Region)
	}
	if snap.CapturedAt.IsZero() {
		t.Error("Expected captured_at to be set")
	}

	got, err := s.LatestSnapshot("test_region")
	if err != nil {
		t.Fatalf("LatestSnapshot() failed: %v", err)
	}
	if got.Region != "test_region" {
		t.Errorf("Expected region test_region, got %s", got.Region)
	}
	if string(got.Payload) != string(payload) {
		t.Error("Expected payload to round-trip unchanged")
	}
}

func TestLatestSnapshot_FreshnessOrdering(t *testing.T) {
	s := newTestStore(t)

	var snaps []*types.RegionSnapshot
	for _, marker := range []string{"first", "second", "third"} {
		snap, err := s.SaveSnapshot("test_region", testutils.StatesPayload(
			testutils.StateRow(marker, "", 0, 0, 1000, false, 100, 0, 0),
		))
		if err != nil {
			t.Fatalf("SaveSnapshot() failed: %v", err)
		}
		snaps = append(snaps, snap)
		time.Sleep(2 * time.Millisecond)
	}
	backdate(t, s, snaps[0], 3*time.Minute)
	backdate(t, s, snaps[1], 2*time.Minute)
	backdate(t, s, snaps[2], time.Minute)

	got, err := s.LatestSnapshot("test_region")
	if err != nil {
		t.Fatalf("LatestSnapshot() failed: %v", err)
	}
	if !strings.Contains(string(got.Payload), "third") {
		t.Errorf("Expected the most recently written snapshot, got payload %s", got.Payload)
	}
}

func TestLatestSnapshot_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.LatestSnapshot("missing_region")
	if !errors.Is(err, types.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestLatestSnapshot_RegionIsolation(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.SaveSnapshot("region_a", testutils.StatesPayload()); err != nil {
		t.Fatalf("SaveSnapshot() failed: %v", err)
	}

	_, err := s.LatestSnapshot("region_b")
	if !errors.Is(err, types.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for the other region, got %v", err)
	}
}

func TestSaveSnapshot_Conflict(t *testing.T) {
	s := newTestStore(t)
	fixed := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	if _, err := s.SaveSnapshot("test_region", testutils.StatesPayload()); err != nil {
		t.Fatalf("SaveSnapshot() failed: %v", err)
	}
	_, err := s.SaveSnapshot("test_region", testutils.StatesPayload())
	if !errors.Is(err, types.ErrConflict) {
		t.Errorf("Expected ErrConflict on duplicate key, got %v", err)
	}
}

func TestFindFlight_ByIdentifierAndCallsign(t *testing.T) {
	s := newTestStore(t)

	payload := testutils.StatesPayload(
		testutils.StateRow("abc123", " UAL123 ", -122.4, 37.8, 10000, false, 250, 90, 0),
	)
	if _, err := s.SaveSnapshot("test_region", payload); err != nil {
		t.Fatalf("SaveSnapshot() failed: %v", err)
	}

	tests := []struct {
		name  string
		query string
	}{
		{"identifier", "abc123"},
		{"identifier case-insensitive", "ABC123"},
		{"callsign", "UAL123"},
		{"callsign case-insensitive", "ual123"},
		{"callsign with whitespace", "  UAL123  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := s.FindFlight(tt.query)
			if err != nil {
				t.Fatalf("FindFlight(%q) failed: %v", tt.query, err)
			}
			if rec.Identifier != "abc123" {
				t.Errorf("Expected abc123, got %s", rec.Identifier)
			}
		})
	}
}

func TestFindFlight_NewestMatchWins(t *testing.T) {
	s := newTestStore(t)

	older, err := s.SaveSnapshot("region_a", testutils.StatesPayload(
		testutils.StateRow("abc123", "UAL123", -122.4, 37.8, 9000, false, 250, 90, 0),
	))
	if err != nil {
		t.Fatalf("SaveSnapshot() failed: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	newer, err := s.SaveSnapshot("region_b", testutils.StatesPayload(
		testutils.StateRow("abc123", "UAL123", -80.0, 40.0, 11000, false, 300, 180, 0),
	))
	if err != nil {
		t.Fatalf("SaveSnapshot() failed: %v", err)
	}
	backdate(t, s, older, 2*time.Minute)
	backdate(t, s, newer, time.Minute)

	rec, err := s.FindFlight("abc123")
	if err != nil {
		t.Fatalf("FindFlight() failed: %v", err)
	}
	if rec.Altitude == nil || *rec.Altitude != 11000 {
		t.Errorf("Expected the newer observation (altitude 11000), got %v", rec.Altitude)
	}
	if rec.Region != "region_b" {
		t.Errorf("Expected region_b, got %s", rec.Region)
	}
}

func TestFindFlight_ScanDepth(t *testing.T) {
	s := newTestStore(t, WithScanDepth(1))

	older, err := s.SaveSnapshot("region_a", testutils.StatesPayload(
		testutils.StateRow("abc123", "UAL123", 0, 0, 9000, false, 250, 90, 0),
	))
	if err != nil {
		t.Fatalf("SaveSnapshot() failed: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	newer, err := s.SaveSnapshot("region_b", testutils.StatesPayload(
		testutils.StateRow("zzz999", "OTHER1", 0, 0, 9000, false, 250, 90, 0),
	))
	if err != nil {
		t.Fatalf("SaveSnapshot() failed: %v", err)
	}
	backdate(t, s, older, 2*time.Minute)
	backdate(t, s, newer, time.Minute)

	// The matching snapshot is outside the scan depth of 1.
	_, err = s.FindFlight("abc123")
	if !errors.Is(err, types.ErrNotFound) {
		t.Errorf("Expected ErrNotFound beyond the scan depth, got %v", err)
	}
}

func TestFindFlight_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.FindFlight("nothere")
	if !errors.Is(err, types.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSaveAlert_AndActiveAlerts(t *testing.T) {
	s := newTestStore(t)

	alertID, err := s.SaveAlert(&types.Alert{
		Region:      "test_region",
		Identifier:  "abc123",
		Callsign:    "UAL123",
		AnomalyType: types.AnomalyExcessiveSpeed,
		Severity:    types.SeverityMedium,
		Description: "Flight UAL123 traveling at 1100 km/h (unusually fast)",
	})
	if err != nil {
		t.Fatalf("SaveAlert() failed: %v", err)
	}
	if !strings.HasPrefix(alertID, "alert_") {
		t.Errorf("Expected time-derived alert id, got %s", alertID)
	}

	alerts, err := s.ActiveAlerts(24 * time.Hour)
	if err != nil {
		t.Fatalf("ActiveAlerts() failed: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("Expected 1 alert, got %d", len(alerts))
	}
	if alerts[0].AlertID != alertID {
		t.Errorf("Expected alert id %s, got %s", alertID, alerts[0].AlertID)
	}
	if alerts[0].CreatedAt.IsZero() {
		t.Error("Expected created_at to be set")
	}
}

func TestActiveAlerts_Window(t *testing.T) {
	s := newTestStore(t)

	current := time.Now().UTC()
	s.now = func() time.Time { return current.Add(-25 * time.Hour) }
	if _, err := s.SaveAlert(&types.Alert{Identifier: "old1", AnomalyType: types.AnomalyExcessiveSpeed, Severity: types.SeverityMedium}); err != nil {
		t.Fatalf("SaveAlert() failed: %v", err)
	}
	s.now = func() time.Time { return current.Add(-time.Hour) }
	if _, err := s.SaveAlert(&types.Alert{Identifier: "new1", AnomalyType: types.AnomalyExcessiveSpeed, Severity: types.SeverityMedium}); err != nil {
		t.Fatalf("SaveAlert() failed: %v", err)
	}
	s.now = func() time.Time { return current }

	alerts, err := s.ActiveAlerts(24 * time.Hour)
	if err != nil {
		t.Fatalf("ActiveAlerts() failed: %v", err)
	}
	if len(alerts) != 1 || alerts[0].Identifier != "new1" {
		t.Fatalf("Expected only the 1h-old alert within 24h, got %d alerts", len(alerts))
	}

	alerts, err = s.ActiveAlerts(48 * time.Hour)
	if err != nil {
		t.Fatalf("ActiveAlerts() failed: %v", err)
	}
	if len(alerts) != 2 {
		t.Fatalf("Expected both alerts within 48h, got %d", len(alerts))
	}
	// Most recent first.
	if alerts[0].Identifier != "new1" || alerts[1].Identifier != "old1" {
		t.Errorf("Expected descending order, got %s then %s", alerts[0].Identifier, alerts[1].Identifier)
	}
}

func TestPruneSnapshots(t *testing.T) {
	s := newTestStore(t)

	var snaps []*types.RegionSnapshot
	for range 5 {
		snap, err := s.SaveSnapshot("test_region", testutils.StatesPayload())
		if err != nil {
			t.Fatalf("SaveSnapshot() failed: %v", err)
		}
		snaps = append(snaps, snap)
		time.Sleep(2 * time.Millisecond)
	}
	for i, snap := range snaps {
		backdate(t, s, snap, time.Duration(len(snaps)-i)*time.Minute)
	}

	if err := s.PruneSnapshots(2); err != nil {
		t.Fatalf("PruneSnapshots() failed: %v", err)
	}

	files, err := s.snapshotFiles()
	if err != nil {
		t.Fatalf("snapshotFiles() failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("Expected 2 snapshots to remain, got %d", len(files))
	}

	// The two newest survive.
	latest, err := s.LatestSnapshot("test_region")
	if err != nil {
		t.Fatalf("LatestSnapshot() failed: %v", err)
	}
	if !latest.CapturedAt.Equal(snaps[4].CapturedAt) {
		t.Errorf("Expected the newest snapshot to survive pruning")
	}
}

func TestCorruptRecordsAreSkipped(t *testing.T) {
	s := newTestStore(t)

	// A valid snapshot plus a corrupt newer one; reads skip the corrupt file.
	good, err := s.SaveSnapshot("test_region", testutils.StatesPayload(
		testutils.StateRow("abc123", "UAL123", 0, 0, 9000, false, 250, 90, 0),
	))
	if err != nil {
		t.Fatalf("SaveSnapshot() failed: %v", err)
	}
	backdate(t, s, good, time.Minute)

	corrupt := filepath.Join(s.snapshotsDir, "test_region_corrupt.json")
	if err := os.WriteFile(corrupt, []byte("{not json"), 0o640); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	snap, err := s.LatestSnapshot("test_region")
	if err != nil {
		t.Fatalf("LatestSnapshot() should skip corrupt records: %v", err)
	}
	if !snap.CapturedAt.Equal(good.CapturedAt) {
		t.Error("Expected the valid snapshot to be returned")
	}

	rec, err := s.FindFlight("abc123")
	if err != nil {
		t.Fatalf("FindFlight() should skip corrupt records: %v", err)
	}
	if rec.Identifier != "abc123" {
		t.Errorf("Expected abc123, got %s", rec.Identifier)
	}

	// Corrupt alert files are skipped too.
	if err := os.WriteFile(filepath.Join(s.alertsDir, "alert_corrupt.json"), []byte("{"), 0o640); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := s.ActiveAlerts(24 * time.Hour); err != nil {
		t.Fatalf("ActiveAlerts() should skip corrupt records: %v", err)
	}
}
