package feed

import (
	"fmt"
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

// Decode parses a raw GTFS-realtime payload into a Feed. fallback is used as
// the feed timestamp when the header omits one. Entities that are neither
// trip updates nor alerts are ignored.
func Decode(payload []byte, fallback time.Time) (*Feed, error) {
	var fm gtfsrtpb.FeedMessage
	if err := proto.Unmarshal(payload, &fm); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	f := &Feed{Timestamp: fallback}
	if fm.Header != nil && fm.Header.Timestamp != nil {
		f.Timestamp = time.Unix(int64(*fm.Header.Timestamp), 0).UTC()
	}

	for _, e := range fm.Entity {
		switch {
		case e.TripUpdate != nil:
			f.TripUpdates = append(f.TripUpdates, decodeTripUpdate(e.TripUpdate))
		case e.Alert != nil:
			f.Alerts = append(f.Alerts, decodeAlert(e))
		}
	}

	return f, nil
}

func decodeTripUpdate(tu *gtfsrtpb.TripUpdate) TripUpdate {
	out := TripUpdate{}

	if tu.Trip != nil {
		if tu.Trip.TripId != nil {
			out.TripID = *tu.Trip.TripId
		}
		if tu.Trip.RouteId != nil {
			out.RouteID = *tu.Trip.RouteId
		}
	}

	for _, stu := range tu.StopTimeUpdate {
		u := StopTimeUpdate{}
		if stu.StopId != nil {
			u.StopID = proto.String(*stu.StopId)
		}
		if stu.StopSequence != nil {
			u.StopSequence = proto.Uint32(*stu.StopSequence)
		}
		if stu.Arrival != nil {
			u.Arrival = decodeStopTimeEvent(stu.Arrival)
		}
		if stu.Departure != nil {
			u.Departure = decodeStopTimeEvent(stu.Departure)
		}
		if stu.ScheduleRelationship != nil {
			u.ScheduleRelationship = proto.Int32(int32(*stu.ScheduleRelationship))
		}
		out.StopTimeUpdates = append(out.StopTimeUpdates, u)
	}

	return out
}

func decodeStopTimeEvent(ev *gtfsrtpb.TripUpdate_StopTimeEvent) *StopTimeEvent {
	out := &StopTimeEvent{}
	if ev.Time != nil {
		out.Time = proto.Int64(*ev.Time)
	}
	if ev.Delay != nil {
		out.Delay = proto.Int32(*ev.Delay)
	}
	return out
}

func decodeAlert(e *gtfsrtpb.FeedEntity) Alert {
	a := e.Alert
	out := Alert{}

	if e.Id != nil {
		out.ID = *e.Id
	}
	if a.Cause != nil {
		out.Cause = proto.Int32(int32(*a.Cause))
	}
	if a.Effect != nil {
		out.Effect = proto.Int32(int32(*a.Effect))
	}
	out.HeaderTexts = translations(a.HeaderText)
	out.DescriptionTexts = translations(a.DescriptionText)

	for _, ie := range a.InformedEntity {
		if ie.RouteId != nil {
			out.InformedRoutes = append(out.InformedRoutes, *ie.RouteId)
		}
		if ie.StopId != nil {
			out.InformedStops = append(out.InformedStops, *ie.StopId)
		}
	}

	for _, period := range a.ActivePeriod {
		p := ActivePeriod{}
		if period.Start != nil {
			p.Start = proto.Int64(int64(*period.Start))
		}
		if period.End != nil {
			p.End = proto.Int64(int64(*period.End))
		}
		out.ActivePeriods = append(out.ActivePeriods, p)
	}

	return out
}

func translations(ts *gtfsrtpb.TranslatedString) []string {
	if ts == nil {
		return nil
	}
	out := make([]string, 0, len(ts.Translation))
	for _, tr := range ts.Translation {
		if tr.Text != nil {
			out = append(out, *tr.Text)
		}
	}
	return out
}
