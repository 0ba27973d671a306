package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/saviobatista/skywatch/internal/parser"
	"github.com/saviobatista/skywatch/internal/types"
)

const (
	// timestampLayout keeps fixed-width fractional seconds so per-process
	// keys stay unique even under rapid writes.
	timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

	snapshotSuffix = ".json"
	alertPrefix    = "alert_"

	// DefaultScanDepth is how many recent snapshots FindFlight searches.
	DefaultScanDepth = 10
)

// Store persists region snapshots and anomaly alerts as one JSON file per
// record. Snapshots are keyed by region plus capture timestamp, alerts by a
// time-derived id. Records are immutable once written.
type Store struct {
	snapshotsDir string
	alertsDir    string
	scanDepth    int
	now          func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithScanDepth overrides how many recent snapshots FindFlight searches.
func WithScanDepth(depth int) Option {
	return func(s *Store) {
		if depth > 0 {
			s.scanDepth = depth
		}
	}
}

// New creates a store rooted at the given directories, creating them if
// needed.
func New(snapshotsDir, alertsDir string, opts ...Option) (*Store, error) {
	s := &Store{
		snapshotsDir: snapshotsDir,
		alertsDir:    alertsDir,
		scanDepth:    DefaultScanDepth,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, dir := range []string{snapshotsDir, alertsDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create store directory %s: %w", dir, err)
		}
	}
	return s, nil
}

// SaveSnapshot writes a new immutable region snapshot and returns it. The
// key is region plus capture time; an existing key fails with ErrConflict.
func (s *Store) SaveSnapshot(region string, payload json.RawMessage) (*types.RegionSnapshot, error) {
	capturedAt := s.now().UTC()
	snap := &types.RegionSnapshot{
		Region:     region,
		CapturedAt: capturedAt,
		Payload:    payload,
	}

	filename := fmt.Sprintf("%s_%s%s", region, fileTimestamp(capturedAt), snapshotSuffix)
	if err := writeRecord(filepath.Join(s.snapshotsDir, filename), snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// LatestSnapshot returns the snapshot with the greatest capture time for the
// region, or ErrNotFound when the region has none.
func (s *Store) LatestSnapshot(region string) (*types.RegionSnapshot, error) {
	files, err := s.snapshotFiles()
	if err != nil {
		return nil, err
	}

	prefix := region + "_"
	for _, file := range files {
		if !strings.HasPrefix(filepath.Base(file.path), prefix) {
			continue
		}
		var snap types.RegionSnapshot
		if err := readRecord(file.path, &snap); err != nil {
			log.Printf("Skipping unreadable snapshot %s: %v", file.path, err)
			continue
		}
		return &snap, nil
	}
	return nil, fmt.Errorf("no snapshot for region %s: %w", region, types.ErrNotFound)
}

// FindFlight scans the most recently written snapshots across all regions
// and returns the first flight whose identifier or trimmed callsign matches,
// case-insensitively. Newer snapshots win.
func (s *Store) FindFlight(query string) (*types.FlightRecord, error) {
	files, err := s.snapshotFiles()
	if err != nil {
		return nil, err
	}
	if len(files) > s.scanDepth {
		files = files[:s.scanDepth]
	}

	want := strings.ToLower(strings.TrimSpace(query))
	for _, file := range files {
		var snap types.RegionSnapshot
		if err := readRecord(file.path, &snap); err != nil {
			log.Printf("Skipping unreadable snapshot %s: %v", file.path, err)
			continue
		}
		flights, err := parser.Normalize(&snap)
		if err != nil {
			log.Printf("Skipping undecodable snapshot %s: %v", file.path, err)
			continue
		}
		for i := range flights {
			f := &flights[i]
			if strings.ToLower(f.Identifier) == want || strings.ToLower(strings.TrimSpace(f.Callsign)) == want {
				return f, nil
			}
		}
	}
	return nil, fmt.Errorf("flight %s: %w", query, types.ErrNotFound)
}

// SaveAlert writes an immutable anomaly alert with a time-derived id and
// returns the id.
func (s *Store) SaveAlert(alert *types.Alert) (string, error) {
	createdAt := s.now().UTC()
	alert.CreatedAt = createdAt
	alert.AlertID = alertPrefix + fileTimestamp(createdAt)

	path := filepath.Join(s.alertsDir, alert.AlertID+snapshotSuffix)
	if err := writeRecord(path, alert); err != nil {
		return "", err
	}
	return alert.AlertID, nil
}

// ActiveAlerts returns all alerts created within maxAge of now, most recent
// first. Unreadable alert files are skipped.
func (s *Store) ActiveAlerts(maxAge time.Duration) ([]types.Alert, error) {
	entries, err := os.ReadDir(s.alertsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}

	cutoff := s.now().UTC().Add(-maxAge)
	var alerts []types.Alert
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, alertPrefix) || !strings.HasSuffix(name, snapshotSuffix) {
			continue
		}
		var alert types.Alert
		if err := readRecord(filepath.Join(s.alertsDir, name), &alert); err != nil {
			log.Printf("Skipping unreadable alert %s: %v", name, err)
			continue
		}
		if alert.CreatedAt.Before(cutoff) {
			continue
		}
		alerts = append(alerts, alert)
	}

	sort.Slice(alerts, func(i, j int) bool {
		return alerts[i].CreatedAt.After(alerts[j].CreatedAt)
	})
	return alerts, nil
}

// PruneSnapshots deletes all but the keep most recently written snapshots
// across all regions, oldest first.
func (s *Store) PruneSnapshots(keep int) error {
	files, err := s.snapshotFiles()
	if err != nil {
		return err
	}
	if keep < 0 {
		keep = 0
	}
	for _, file := range files[min(keep, len(files)):] {
		if err := os.Remove(file.path); err != nil {
			return fmt.Errorf("failed to prune snapshot %s: %w", file.path, err)
		}
		log.Printf("Deleted old snapshot: %s", filepath.Base(file.path))
	}
	return nil
}

// snapshotFile pairs a path with its write time for recency ordering.
type snapshotFile struct {
	path    string
	modTime time.Time
}

// snapshotFiles lists snapshot files sorted most recently written first.
// Freshness follows write time, not content.
func (s *Store) snapshotFiles() ([]snapshotFile, error) {
	entries, err := os.ReadDir(s.snapshotsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	files := make([]snapshotFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), snapshotSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to stat snapshot %s: %w", entry.Name(), err)
		}
		files = append(files, snapshotFile{
			path:    filepath.Join(s.snapshotsDir, entry.Name()),
			modTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.After(files[j].modTime)
	})
	return files, nil
}

// fileTimestamp renders a key timestamp with colons replaced so it is safe
// as a filename component.
func fileTimestamp(t time.Time) string {
	return strings.ReplaceAll(t.Format(timestampLayout), ":", "-")
}

// writeRecord marshals v and creates path exclusively; an existing file
// surfaces as ErrConflict.
func writeRecord(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%s: %w", filepath.Base(path), types.ErrConflict)
		}
		return fmt.Errorf("failed to create record %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			log.Printf("Warning: failed to close %s: %v", path, cerr)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write record %s: %w", path, err)
	}
	return nil
}

// readRecord decodes one persisted JSON record. Decode failures wrap
// ErrCorruptData so callers can skip instead of crash.
func readRecord(path string, v any) error {
	data, err := os.ReadFile(path) // #nosec G304 - paths come from our own store directories
	if err != nil {
		return fmt.Errorf("failed to read record %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", types.ErrCorruptData, filepath.Base(path), err)
	}
	return nil
}
