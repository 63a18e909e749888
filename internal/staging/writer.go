package staging

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/bartdw-data/internal/common/logger"
	"github.com/bartdw-data/internal/normalize"
)

// Writer serializes normalized records into snapshot files. Each call
// produces exactly one file, stamped with the clock's current time; the
// file is written to a temp name and renamed, so a snapshot is either
// complete or absent.
type Writer struct {
	dir    string
	clock  clockwork.Clock
	logger logger.Logger
}

func NewWriter(dir string, clock clockwork.Clock, log logger.Logger) *Writer {
	return &Writer{dir: dir, clock: clock, logger: log}
}

// WriteTripUpdates stages trip-update records and returns the snapshot path.
func (w *Writer) WriteTripUpdates(records []normalize.TripUpdateRecord) (string, error) {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			rec.IngestionTS.UTC().Format(time.RFC3339),
			nullStringField(rec.TripID),
			nullStringField(rec.RouteID),
			nullStringField(rec.StopID),
			nullInt32Field(rec.StopSequence),
			nullInt32Field(rec.ArrivalDelay),
			nullTimeField(rec.ArrivalTime),
			nullInt32Field(rec.DepartureDelay),
			nullTimeField(rec.DepartureTime),
			nullInt32Field(rec.ScheduleRelationship),
		})
	}
	return w.write(KindTripUpdates, TripUpdateColumns, rows)
}

// WriteAlerts stages service-alert records and returns the snapshot path.
func (w *Writer) WriteAlerts(records []normalize.ServiceAlertRecord) (string, error) {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			rec.IngestionTS.UTC().Format(time.RFC3339),
			rec.AlertID,
			nullInt32Field(rec.Cause),
			nullInt32Field(rec.Effect),
			nullStringField(rec.HeaderText),
			nullStringField(rec.DescriptionText),
			nullStringField(rec.AffectedRoutes),
			nullStringField(rec.AffectedStops),
			nullTimeField(rec.ActivePeriodStart),
			nullTimeField(rec.ActivePeriodEnd),
		})
	}
	return w.write(KindAlerts, AlertColumns, rows)
}

func (w *Writer) write(kind string, columns []string, rows [][]string) (string, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("%w: creating staging directory: %v", ErrStaging, err)
	}

	finalPath := filepath.Join(w.dir, Filename(kind, w.clock.Now()))

	tempFile, err := os.CreateTemp(w.dir, filePrefix+kind+"_*.tmp")
	if err != nil {
		return "", fmt.Errorf("%w: creating temp file: %v", ErrStaging, err)
	}
	tempPath := tempFile.Name()
	defer os.Remove(tempPath)

	csvWriter := csv.NewWriter(tempFile)
	if err := csvWriter.Write(columns); err != nil {
		tempFile.Close()
		return "", fmt.Errorf("%w: writing header: %v", ErrStaging, err)
	}
	for _, row := range rows {
		if err := csvWriter.Write(row); err != nil {
			tempFile.Close()
			return "", fmt.Errorf("%w: writing row: %v", ErrStaging, err)
		}
	}
	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		tempFile.Close()
		return "", fmt.Errorf("%w: flushing snapshot: %v", ErrStaging, err)
	}
	if err := tempFile.Close(); err != nil {
		return "", fmt.Errorf("%w: closing snapshot: %v", ErrStaging, err)
	}

	if err := os.Rename(tempPath, finalPath); err != nil {
		return "", fmt.Errorf("%w: moving snapshot into place: %v", ErrStaging, err)
	}

	w.logger.Info("Staged snapshot", "path", finalPath, "records", len(rows))
	return finalPath, nil
}

func nullStringField(ns sql.NullString) string {
	if !ns.Valid {
		return ""
	}
	return ns.String
}

func nullInt32Field(ni sql.NullInt32) string {
	if !ni.Valid {
		return ""
	}
	return strconv.FormatInt(int64(ni.Int32), 10)
}

func nullTimeField(nt sql.NullTime) string {
	if !nt.Valid {
		return ""
	}
	return nt.Time.UTC().Format(time.RFC3339)
}
