package load

import (
	"context"
	"fmt"
)

// Warehouse DDL. Creation is additive and idempotent: tables and indexes
// are created if absent and never dropped, so historical snapshots keep
// accumulating across loader runs. Column names are a contract with the
// dashboard; renaming or removing one is a breaking change.
const (
	createTripUpdatesTable = `
	CREATE TABLE IF NOT EXISTS bart_trip_updates (
		ingestion_ts TIMESTAMPTZ,
		trip_id TEXT,
		route_id TEXT,
		stop_id TEXT,
		stop_sequence INT,
		arrival_delay INT,
		arrival_time TIMESTAMPTZ,
		departure_delay INT,
		departure_time TIMESTAMPTZ,
		schedule_relationship INT
	)`

	createServiceAlertsTable = `
	CREATE TABLE IF NOT EXISTS bart_service_alerts (
		ingestion_ts TIMESTAMPTZ,
		alert_id TEXT,
		cause INT,
		effect INT,
		header_text TEXT,
		description_text TEXT,
		affected_routes TEXT,
		affected_stops TEXT,
		active_period_start TIMESTAMPTZ,
		active_period_end TIMESTAMPTZ
	)`
)

var schemaStatements = []string{
	createTripUpdatesTable,
	createServiceAlertsTable,
	`CREATE INDEX IF NOT EXISTS idx_bart_trip_updates_ingestion_ts ON bart_trip_updates (ingestion_ts)`,
	`CREATE INDEX IF NOT EXISTS idx_bart_trip_updates_route_id ON bart_trip_updates (route_id)`,
	`CREATE INDEX IF NOT EXISTS idx_bart_trip_updates_stop_id ON bart_trip_updates (stop_id)`,
	`CREATE INDEX IF NOT EXISTS idx_bart_service_alerts_ingestion_ts ON bart_service_alerts (ingestion_ts)`,
}

// EnsureSchema creates the warehouse tables and indexes if they do not
// exist yet.
func (l *Loader) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := l.db.DB().ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensuring warehouse schema: %w", err)
		}
	}
	l.logger.Info("Warehouse schema ensured",
		"tables", []string{"bart_trip_updates", "bart_service_alerts"})
	return nil
}
