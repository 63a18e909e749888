// Package normalize flattens decoded feed entities into the flat records
// the warehouse tables are built from. Missing optional fields stay null
// all the way through; they are never defaulted here.
package normalize

import (
	"database/sql"
	"strings"
	"time"

	"github.com/bartdw-data/internal/feed"
	"github.com/bartdw-data/internal/routes"
)

// TripUpdateRecord is one row of bart_trip_updates: a (trip, stop-time
// update) pair stamped with the feed header time. RouteTier carries the
// resolution confidence for observability; it is not a warehouse column.
type TripUpdateRecord struct {
	IngestionTS          time.Time
	TripID               sql.NullString
	RouteID              sql.NullString
	RouteTier            routes.Tier
	StopID               sql.NullString
	StopSequence         sql.NullInt32
	ArrivalDelay         sql.NullInt32
	ArrivalTime          sql.NullTime
	DepartureDelay       sql.NullInt32
	DepartureTime        sql.NullTime
	ScheduleRelationship sql.NullInt32
}

// ServiceAlertRecord is one row of bart_service_alerts.
type ServiceAlertRecord struct {
	IngestionTS       time.Time
	AlertID           string
	Cause             sql.NullInt32
	Effect            sql.NullInt32
	HeaderText        sql.NullString
	DescriptionText   sql.NullString
	AffectedRoutes    sql.NullString
	AffectedStops     sql.NullString
	ActivePeriodStart sql.NullTime
	ActivePeriodEnd   sql.NullTime
}

// TripUpdates emits one record per stop-time update, in feed order. The
// route is resolved once per trip; a trip with no stop-time updates emits
// nothing, because predictions are per stop.
func TripUpdates(f *feed.Feed, cache routes.Cache) []TripUpdateRecord {
	var records []TripUpdateRecord

	for _, tu := range f.TripUpdates {
		res := routes.Resolve(tu.TripID, tu.RouteID, cache)

		for _, stu := range tu.StopTimeUpdates {
			rec := TripUpdateRecord{
				IngestionTS: f.Timestamp,
				TripID:      nullString(tu.TripID),
				RouteTier:   res.Tier,
			}
			if res.Resolved() {
				rec.RouteID = sql.NullString{String: res.RouteID, Valid: true}
			}
			if stu.StopID != nil {
				rec.StopID = sql.NullString{String: *stu.StopID, Valid: true}
			}
			if stu.StopSequence != nil {
				rec.StopSequence = sql.NullInt32{Int32: int32(*stu.StopSequence), Valid: true}
			}
			if stu.Arrival != nil {
				rec.ArrivalDelay, rec.ArrivalTime = eventFields(stu.Arrival)
			}
			if stu.Departure != nil {
				rec.DepartureDelay, rec.DepartureTime = eventFields(stu.Departure)
			}
			if stu.ScheduleRelationship != nil {
				rec.ScheduleRelationship = sql.NullInt32{Int32: *stu.ScheduleRelationship, Valid: true}
			}
			records = append(records, rec)
		}
	}

	return records
}

// Alerts emits one record per alert entity. Informed-entity route and stop
// ids collapse to a deduplicated comma-joined set; only the first
// translation and the first active period are kept.
func Alerts(f *feed.Feed) []ServiceAlertRecord {
	var records []ServiceAlertRecord

	for _, a := range f.Alerts {
		rec := ServiceAlertRecord{
			IngestionTS:     f.Timestamp,
			AlertID:         a.ID,
			HeaderText:      firstText(a.HeaderTexts),
			DescriptionText: firstText(a.DescriptionTexts),
			AffectedRoutes:  joinUnique(a.InformedRoutes),
			AffectedStops:   joinUnique(a.InformedStops),
		}
		if a.Cause != nil {
			rec.Cause = sql.NullInt32{Int32: *a.Cause, Valid: true}
		}
		if a.Effect != nil {
			rec.Effect = sql.NullInt32{Int32: *a.Effect, Valid: true}
		}
		if len(a.ActivePeriods) > 0 {
			first := a.ActivePeriods[0]
			if first.Start != nil {
				rec.ActivePeriodStart = sql.NullTime{Time: time.Unix(*first.Start, 0).UTC(), Valid: true}
			}
			if first.End != nil {
				rec.ActivePeriodEnd = sql.NullTime{Time: time.Unix(*first.End, 0).UTC(), Valid: true}
			}
		}
		records = append(records, rec)
	}

	return records
}

func eventFields(ev *feed.StopTimeEvent) (delay sql.NullInt32, at sql.NullTime) {
	if ev.Delay != nil {
		delay = sql.NullInt32{Int32: *ev.Delay, Valid: true}
	}
	if ev.Time != nil {
		at = sql.NullTime{Time: time.Unix(*ev.Time, 0).UTC(), Valid: true}
	}
	return delay, at
}

func firstText(texts []string) sql.NullString {
	if len(texts) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: texts[0], Valid: true}
}

// joinUnique deduplicates ids preserving first-seen order and joins them
// with commas; an empty set is null.
func joinUnique(ids []string) sql.NullString {
	if len(ids) == 0 {
		return sql.NullString{}
	}

	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	return sql.NullString{String: strings.Join(unique, ","), Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
