package load

import (
	"fmt"
	"strconv"
	"time"
)

// Column defaults applied when a staged file predates a column entirely.
// Declared as named constants so the backfill policy is explicit, not
// inferred at load time.
const DefaultStopSequence int64 = 0

type colKind int

const (
	colText colKind = iota
	colInt
	colTimestamp
)

type column struct {
	name string
	kind colKind
	// def is the value used when the staged schema lacks this column;
	// nil means NULL.
	def interface{}
}

type tableSpec struct {
	table   string
	columns []column
}

var tripUpdatesSpec = tableSpec{
	table: "bart_trip_updates",
	columns: []column{
		{name: "ingestion_ts", kind: colTimestamp},
		{name: "trip_id", kind: colText},
		{name: "route_id", kind: colText},
		{name: "stop_id", kind: colText},
		{name: "stop_sequence", kind: colInt, def: DefaultStopSequence},
		{name: "arrival_delay", kind: colInt},
		{name: "arrival_time", kind: colTimestamp},
		{name: "departure_delay", kind: colInt},
		{name: "departure_time", kind: colTimestamp},
		{name: "schedule_relationship", kind: colInt},
	},
}

var serviceAlertsSpec = tableSpec{
	table: "bart_service_alerts",
	columns: []column{
		{name: "ingestion_ts", kind: colTimestamp},
		{name: "alert_id", kind: colText},
		{name: "cause", kind: colInt},
		{name: "effect", kind: colInt},
		{name: "header_text", kind: colText},
		{name: "description_text", kind: colText},
		{name: "affected_routes", kind: colText},
		{name: "affected_stops", kind: colText},
		{name: "active_period_start", kind: colTimestamp},
		{name: "active_period_end", kind: colTimestamp},
	},
}

func (s tableSpec) columnNames() []string {
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.name
	}
	return names
}

// rowAdapter maps a staged file's column set onto the fixed warehouse
// shape. Columns absent from the file are backfilled with their declared
// default; the ingestion_ts column falls back to the timestamp recovered
// from the filename.
type rowAdapter struct {
	spec       tableSpec
	indexes    []int // staged row index per warehouse column, -1 when absent
	fallbackTS time.Time
}

func newRowAdapter(spec tableSpec, header []string, fallbackTS time.Time) *rowAdapter {
	position := make(map[string]int, len(header))
	for i, name := range header {
		position[name] = i
	}

	indexes := make([]int, len(spec.columns))
	for i, col := range spec.columns {
		if pos, ok := position[col.name]; ok {
			indexes[i] = pos
		} else {
			indexes[i] = -1
		}
	}

	return &rowAdapter{spec: spec, indexes: indexes, fallbackTS: fallbackTS}
}

// adapt converts one staged row into driver arguments in warehouse column
// order. Empty fields become NULL; a value that fails to parse makes the
// whole file a load error.
func (a *rowAdapter) adapt(row []string) ([]interface{}, error) {
	args := make([]interface{}, len(a.spec.columns))

	for i, col := range a.spec.columns {
		idx := a.indexes[i]

		if idx < 0 || idx >= len(row) || row[idx] == "" {
			if col.name == "ingestion_ts" {
				args[i] = a.fallbackTS
			} else {
				args[i] = col.def
			}
			continue
		}

		value := row[idx]
		switch col.kind {
		case colInt:
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("parsing %s value %q: %w", col.name, value, err)
			}
			args[i] = n
		case colTimestamp:
			t, err := time.Parse(time.RFC3339, value)
			if err != nil {
				return nil, fmt.Errorf("parsing %s value %q: %w", col.name, value, err)
			}
			args[i] = t
		default:
			args[i] = value
		}
	}

	return args, nil
}
