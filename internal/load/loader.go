// Package load moves staged snapshot files into the Postgres warehouse.
// Files are processed one at a time; a bad file is rolled back, logged and
// skipped, so one corrupt snapshot never aborts the run. Inserts are
// append-only: re-loading the same files duplicates their rows, which is
// documented behavior, not a defect.
package load

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bartdw-data/internal/common/db"
	"github.com/bartdw-data/internal/common/logger"
	"github.com/bartdw-data/internal/staging"
)

type Loader struct {
	db        *db.DB
	logger    logger.Logger
	dir       string
	chunkSize int
}

func New(database *db.DB, stagingDir string, chunkSize int, log logger.Logger) *Loader {
	return &Loader{
		db:        database,
		logger:    log,
		dir:       stagingDir,
		chunkSize: chunkSize,
	}
}

// Summary reports what a loader run accomplished. It is an observability
// signal, not a correctness gate.
type Summary struct {
	TripRows    int
	AlertRows   int
	FilesLoaded int
	FilesFailed int
	TopRoutes   []RouteVolume
}

// RouteVolume is one entry of the top-routes-by-update-volume aggregate.
type RouteVolume struct {
	RouteID string
	Updates int
}

// Run executes the loader state machine: EnsureSchema, then trip-update
// files, then alert files, then the summary. Schema failures abort the
// run; per-file failures do not.
func (l *Loader) Run(ctx context.Context) (*Summary, error) {
	startTime := time.Now()

	if err := l.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	summary := &Summary{}
	if err := l.loadKind(ctx, staging.KindTripUpdates, tripUpdatesSpec, summary, &summary.TripRows); err != nil {
		return nil, err
	}
	if err := l.loadKind(ctx, staging.KindAlerts, serviceAlertsSpec, summary, &summary.AlertRows); err != nil {
		return nil, err
	}

	topRoutes, err := l.topRoutes(ctx, 10)
	if err != nil {
		l.logger.Warn("Failed to compute top routes", "error", err)
	} else {
		summary.TopRoutes = topRoutes
	}

	l.logger.Info("Load completed",
		"trip_rows", summary.TripRows,
		"alert_rows", summary.AlertRows,
		"files_loaded", summary.FilesLoaded,
		"files_failed", summary.FilesFailed,
		"duration_ms", time.Since(startTime).Milliseconds())
	for _, rv := range summary.TopRoutes {
		l.logger.Info("Route update volume", "route_id", rv.RouteID, "updates", rv.Updates)
	}

	return summary, nil
}

// loadKind discovers and loads every staged file of one kind. File errors
// are isolated: logged, counted, and the loop moves on.
func (l *Loader) loadKind(ctx context.Context, kind string, spec tableSpec, summary *Summary, rowCount *int) error {
	paths, err := staging.Discover(l.dir, kind)
	if err != nil {
		return fmt.Errorf("discovering %s snapshots: %w", kind, err)
	}

	l.logger.Info("Discovered snapshots", "kind", kind, "files", len(paths))

	for _, path := range paths {
		rows, err := l.loadFile(ctx, path, spec)
		if err != nil {
			summary.FilesFailed++
			l.logger.Error("Failed to load snapshot, continuing with next file",
				"file", path,
				"rows_committed", rows,
				"error", err)
			continue
		}
		summary.FilesLoaded++
		*rowCount += rows
		l.logger.Info("Loaded snapshot", "file", path, "rows", rows)
	}

	return nil
}

// loadFile inserts one snapshot in bounded chunks, one transaction per
// chunk, committing after each so partial progress stays visible. The
// returned count covers committed rows even when a later chunk fails.
func (l *Loader) loadFile(ctx context.Context, path string, spec tableSpec) (int, error) {
	snapshot, err := staging.ReadSnapshot(path)
	if err != nil {
		return 0, err
	}

	fallbackTS, err := staging.TimestampFromFilename(path)
	if err != nil {
		return 0, err
	}

	adapter := newRowAdapter(spec, snapshot.Header, fallbackTS)

	loaded := 0
	for _, bounds := range chunkBounds(len(snapshot.Rows), l.chunkSize) {
		if err := l.insertChunk(ctx, spec, adapter, snapshot.Rows[bounds[0]:bounds[1]]); err != nil {
			return loaded, err
		}
		loaded += bounds[1] - bounds[0]
	}

	return loaded, nil
}

// chunkBounds splits n rows into [start, end) ranges of at most size rows.
func chunkBounds(n, size int) [][2]int {
	var bounds [][2]int
	for start := 0; start < n; start += size {
		bounds = append(bounds, [2]int{start, min(start+size, n)})
	}
	return bounds
}

func (l *Loader) insertChunk(ctx context.Context, spec tableSpec, adapter *rowAdapter, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}

	args := make([]interface{}, 0, len(rows)*len(spec.columns))
	for _, row := range rows {
		values, err := adapter.adapt(row)
		if err != nil {
			return err
		}
		args = append(args, values...)
	}

	tx, err := l.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	query := buildInsertQuery(spec.table, spec.columnNames(), len(rows))
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("executing chunk insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing chunk: %w", err)
	}

	return nil
}

// buildInsertQuery produces a multi-row INSERT with $n placeholders.
func buildInsertQuery(table string, columns []string, rowCount int) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("INSERT INTO %s (%s) VALUES ",
		table,
		strings.Join(columns, ", ")))

	fieldCount := len(columns)
	for i := 0; i < rowCount; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j := 0; j < fieldCount; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(fmt.Sprintf("$%d", i*fieldCount+j+1))
		}
		sb.WriteString(")")
	}

	return sb.String()
}

const topRoutesQuery = `
	SELECT route_id, COUNT(*) AS updates
	FROM bart_trip_updates
	WHERE route_id IS NOT NULL
	GROUP BY route_id
	ORDER BY updates DESC, route_id
	LIMIT $1`

func (l *Loader) topRoutes(ctx context.Context, limit int) ([]RouteVolume, error) {
	rows, err := l.db.DB().QueryContext(ctx, topRoutesQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("querying top routes: %w", err)
	}
	defer rows.Close()

	var volumes []RouteVolume
	for rows.Next() {
		var rv RouteVolume
		if err := rows.Scan(&rv.RouteID, &rv.Updates); err != nil {
			return nil, fmt.Errorf("scanning top route: %w", err)
		}
		volumes = append(volumes, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating top routes: %w", err)
	}

	return volumes, nil
}
