package feed

import (
	"testing"
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
)

var fallback = time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

func marshalFeed(t *testing.T, fm *gtfsrtpb.FeedMessage) []byte {
	t.Helper()
	payload, err := proto.Marshal(fm)
	require.NoError(t, err)
	return payload
}

func feedHeader(ts uint64) *gtfsrtpb.FeedHeader {
	h := &gtfsrtpb.FeedHeader{GtfsRealtimeVersion: proto.String("2.0")}
	if ts != 0 {
		h.Timestamp = proto.Uint64(ts)
	}
	return h
}

func TestDecodeHeaderTimestamp(t *testing.T) {
	payload := marshalFeed(t, &gtfsrtpb.FeedMessage{Header: feedHeader(1700000000)})

	f, err := Decode(payload, fallback)

	require.NoError(t, err)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), f.Timestamp)
}

func TestDecodeFallbackTimestamp(t *testing.T) {
	payload := marshalFeed(t, &gtfsrtpb.FeedMessage{Header: feedHeader(0)})

	f, err := Decode(payload, fallback)

	require.NoError(t, err)
	assert.Equal(t, fallback, f.Timestamp)
}

func TestDecodeMalformedPayload(t *testing.T) {
	_, err := Decode([]byte{0xff, 0xff, 0xff}, fallback)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestDecodeTripUpdate(t *testing.T) {
	fm := &gtfsrtpb.FeedMessage{
		Header: feedHeader(1700000000),
		Entity: []*gtfsrtpb.FeedEntity{
			{
				Id: proto.String("1"),
				TripUpdate: &gtfsrtpb.TripUpdate{
					Trip: &gtfsrtpb.TripDescriptor{
						TripId: proto.String("05_100"),
					},
					StopTimeUpdate: []*gtfsrtpb.TripUpdate_StopTimeUpdate{
						{
							StopId:       proto.String("EMBR"),
							StopSequence: proto.Uint32(0),
							Arrival: &gtfsrtpb.TripUpdate_StopTimeEvent{
								Delay: proto.Int32(90),
								Time:  proto.Int64(1700000090),
							},
							ScheduleRelationship: gtfsrtpb.TripUpdate_StopTimeUpdate_SKIPPED.Enum(),
						},
						{
							StopId: proto.String("MONT"),
						},
					},
				},
			},
		},
	}

	f, err := Decode(marshalFeed(t, fm), fallback)

	require.NoError(t, err)
	require.Len(t, f.TripUpdates, 1)
	tu := f.TripUpdates[0]
	assert.Equal(t, "05_100", tu.TripID)
	assert.Empty(t, tu.RouteID)
	require.Len(t, tu.StopTimeUpdates, 2)

	first := tu.StopTimeUpdates[0]
	require.NotNil(t, first.StopSequence)
	// zero is a real sequence number, not an absent field
	assert.Equal(t, uint32(0), *first.StopSequence)
	require.NotNil(t, first.Arrival)
	assert.Equal(t, int32(90), *first.Arrival.Delay)
	assert.Equal(t, int64(1700000090), *first.Arrival.Time)
	assert.Nil(t, first.Departure)
	require.NotNil(t, first.ScheduleRelationship)
	assert.Equal(t, int32(gtfsrtpb.TripUpdate_StopTimeUpdate_SKIPPED), *first.ScheduleRelationship)

	second := tu.StopTimeUpdates[1]
	assert.Nil(t, second.StopSequence)
	assert.Nil(t, second.Arrival)
	assert.Nil(t, second.Departure)
	assert.Nil(t, second.ScheduleRelationship)
}

func TestDecodeTripDescriptorAbsent(t *testing.T) {
	fm := &gtfsrtpb.FeedMessage{
		Header: feedHeader(1700000000),
		Entity: []*gtfsrtpb.FeedEntity{
			{
				Id: proto.String("1"),
				TripUpdate: &gtfsrtpb.TripUpdate{
					StopTimeUpdate: []*gtfsrtpb.TripUpdate_StopTimeUpdate{
						{StopId: proto.String("DALY")},
					},
				},
			},
		},
	}

	f, err := Decode(marshalFeed(t, fm), fallback)

	require.NoError(t, err)
	require.Len(t, f.TripUpdates, 1)
	assert.Empty(t, f.TripUpdates[0].TripID)
	assert.Empty(t, f.TripUpdates[0].RouteID)
}

func TestDecodeAlert(t *testing.T) {
	fm := &gtfsrtpb.FeedMessage{
		Header: feedHeader(1700000000),
		Entity: []*gtfsrtpb.FeedEntity{
			{
				Id: proto.String("alert-7"),
				Alert: &gtfsrtpb.Alert{
					Cause:  gtfsrtpb.Alert_CONSTRUCTION.Enum(),
					Effect: gtfsrtpb.Alert_DETOUR.Enum(),
					HeaderText: &gtfsrtpb.TranslatedString{
						Translation: []*gtfsrtpb.TranslatedString_Translation{
							{Text: proto.String("Track work"), Language: proto.String("en")},
							{Text: proto.String("Obras"), Language: proto.String("es")},
						},
					},
					InformedEntity: []*gtfsrtpb.EntitySelector{
						{RouteId: proto.String("5")},
						{RouteId: proto.String("5"), StopId: proto.String("EMBR")},
						{StopId: proto.String("MONT")},
					},
					ActivePeriod: []*gtfsrtpb.TimeRange{
						{Start: proto.Uint64(1700000000), End: proto.Uint64(1700003600)},
						{Start: proto.Uint64(1700007200)},
					},
				},
			},
		},
	}

	f, err := Decode(marshalFeed(t, fm), fallback)

	require.NoError(t, err)
	require.Len(t, f.Alerts, 1)
	a := f.Alerts[0]
	assert.Equal(t, "alert-7", a.ID)
	assert.Equal(t, int32(gtfsrtpb.Alert_CONSTRUCTION), *a.Cause)
	assert.Equal(t, int32(gtfsrtpb.Alert_DETOUR), *a.Effect)
	// decoder preserves all translations and periods; truncation is the
	// normalizer's call
	assert.Equal(t, []string{"Track work", "Obras"}, a.HeaderTexts)
	assert.Empty(t, a.DescriptionTexts)
	assert.Equal(t, []string{"5", "5"}, a.InformedRoutes)
	assert.Equal(t, []string{"EMBR", "MONT"}, a.InformedStops)
	require.Len(t, a.ActivePeriods, 2)
	assert.Equal(t, int64(1700000000), *a.ActivePeriods[0].Start)
	assert.Equal(t, int64(1700003600), *a.ActivePeriods[0].End)
	assert.Nil(t, a.ActivePeriods[1].End)
}

func TestDecodeIgnoresOtherEntityKinds(t *testing.T) {
	fm := &gtfsrtpb.FeedMessage{
		Header: feedHeader(1700000000),
		Entity: []*gtfsrtpb.FeedEntity{
			{
				Id: proto.String("veh-1"),
				Vehicle: &gtfsrtpb.VehiclePosition{
					Position: &gtfsrtpb.Position{
						Latitude:  proto.Float32(37.79),
						Longitude: proto.Float32(-122.39),
					},
				},
			},
		},
	}

	f, err := Decode(marshalFeed(t, fm), fallback)

	require.NoError(t, err)
	assert.Empty(t, f.TripUpdates)
	assert.Empty(t, f.Alerts)
}
