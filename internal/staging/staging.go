// Package staging writes normalized records to immutable CSV snapshot
// files and reads them back for the warehouse loader. The filename is part
// of the contract between the two phases: it carries the data kind for glob
// discovery and the run timestamp as the fallback ingestion time.
package staging

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrStaging marks an I/O failure while writing a snapshot. Fatal for the
// ingestion run.
var ErrStaging = errors.New("staging failure")

// Snapshot kinds. The kind is embedded in the filename between the agency
// prefix and the run timestamp.
const (
	KindTripUpdates = "trip_updates"
	KindAlerts      = "service_alerts"
)

const (
	filePrefix      = "bart_"
	fileExt         = ".csv"
	timestampLayout = "20060102_150405"
)

// TripUpdateColumns is the staged column set for trip-update snapshots.
var TripUpdateColumns = []string{
	"ingestion_ts", "trip_id", "route_id", "stop_id", "stop_sequence",
	"arrival_delay", "arrival_time", "departure_delay", "departure_time",
	"schedule_relationship",
}

// AlertColumns is the staged column set for service-alert snapshots.
var AlertColumns = []string{
	"ingestion_ts", "alert_id", "cause", "effect", "header_text",
	"description_text", "affected_routes", "affected_stops",
	"active_period_start", "active_period_end",
}

// Filename builds the snapshot name for a kind and run time, second
// resolution: bart_trip_updates_20260825_142233.csv.
func Filename(kind string, runTime time.Time) string {
	return filePrefix + kind + "_" + runTime.UTC().Format(timestampLayout) + fileExt
}

// TimestampFromFilename recovers the run time from a snapshot name. It is
// the sole source of ingestion time for payloads without an ingestion_ts
// column.
func TimestampFromFilename(name string) (time.Time, error) {
	base := strings.TrimSuffix(filepath.Base(name), fileExt)
	parts := strings.Split(base, "_")
	if len(parts) < 2 {
		return time.Time{}, fmt.Errorf("no timestamp in snapshot name %q", name)
	}

	ts := parts[len(parts)-2] + "_" + parts[len(parts)-1]
	t, err := time.ParseInLocation(timestampLayout, ts, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp in snapshot name %q: %w", name, err)
	}
	return t, nil
}

// Discover globs dir for snapshots of the given kind, oldest name first.
func Discover(dir, kind string) ([]string, error) {
	pattern := filepath.Join(dir, filePrefix+kind+"_*"+fileExt)
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("globbing %s: %w", pattern, err)
	}
	sort.Strings(paths)
	return paths, nil
}
