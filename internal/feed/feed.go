// Package feed fetches and decodes the agency's GTFS-realtime protobuf
// feeds into plain in-memory values. Decoding is a pure transform: every
// optional field keeps its presence information, because zero is a valid
// value for sequence numbers and delays.
package feed

import (
	"errors"
	"time"
)

var (
	// ErrFeedUnavailable marks network-level failures (timeout, connection
	// refused, non-2xx status). Fatal for the ingestion run.
	ErrFeedUnavailable = errors.New("feed unavailable")

	// ErrDecode marks a malformed or truncated feed payload. Fatal for the
	// ingestion run, same as ErrFeedUnavailable.
	ErrDecode = errors.New("malformed feed payload")
)

// Feed is a decoded snapshot of one GTFS-realtime feed message. Timestamp is
// the feed header generation time; entities do not carry their own
// timestamps, so it applies to every entity below.
type Feed struct {
	Timestamp   time.Time
	TripUpdates []TripUpdate
	Alerts      []Alert
}

// TripUpdate is one trip-update entity. TripID and RouteID come from the
// trip descriptor and are empty when the descriptor omits them.
type TripUpdate struct {
	TripID          string
	RouteID         string
	StopTimeUpdates []StopTimeUpdate
}

// StopTimeUpdate is the prediction for one stop within a trip. All fields
// are optional in the source protocol.
type StopTimeUpdate struct {
	StopID               *string
	StopSequence         *uint32
	Arrival              *StopTimeEvent
	Departure            *StopTimeEvent
	ScheduleRelationship *int32
}

// StopTimeEvent holds an arrival or departure prediction. Time is a unix
// timestamp, Delay is signed seconds; either may be absent.
type StopTimeEvent struct {
	Time  *int64
	Delay *int32
}

// Alert is one service-alert entity, kept close to the wire shape: the
// normalizer decides about deduplication, translations and period
// truncation.
type Alert struct {
	ID               string
	Cause            *int32
	Effect           *int32
	HeaderTexts      []string
	DescriptionTexts []string
	InformedRoutes   []string
	InformedStops    []string
	ActivePeriods    []ActivePeriod
}

// ActivePeriod is one alert validity window (unix timestamps).
type ActivePeriod struct {
	Start *int64
	End   *int64
}
