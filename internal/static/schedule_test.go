package static

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bartdw-data/internal/routes"
)

func gtfsZip(t *testing.T, files map[string]string) *bytes.Reader {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, contents := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(contents))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return bytes.NewReader(buf.Bytes())
}

func parse(t *testing.T, files map[string]string) (routes.Cache, error) {
	t.Helper()
	r := gtfsZip(t, files)
	return ParseTripRoutes(r, r.Size())
}

func TestParseTripRoutes(t *testing.T) {
	cache, err := parse(t, map[string]string{
		"trips.txt": "route_id,service_id,trip_id\n5,WKDY,1557727\n7,WKDY,1557728\n",
		"stops.txt": "stop_id,stop_name\nEMBR,Embarcadero\n",
	})

	require.NoError(t, err)
	assert.Equal(t, routes.Cache{"1557727": "5", "1557728": "7"}, cache)
}

func TestParseTripRoutesNestedPath(t *testing.T) {
	cache, err := parse(t, map[string]string{
		"google_transit/trips.txt": "trip_id,route_id\n1557727,5\n",
	})

	require.NoError(t, err)
	assert.Equal(t, routes.Cache{"1557727": "5"}, cache)
}

func TestParseTripRoutesBOMHeader(t *testing.T) {
	cache, err := parse(t, map[string]string{
		"trips.txt": "\ufefftrip_id,route_id\n1557727,5\n",
	})

	require.NoError(t, err)
	assert.Equal(t, routes.Cache{"1557727": "5"}, cache)
}

func TestParseTripRoutesDuplicateTripKeepsLast(t *testing.T) {
	cache, err := parse(t, map[string]string{
		"trips.txt": "trip_id,route_id\n1557727,5\n1557727,7\n",
	})

	require.NoError(t, err)
	assert.Equal(t, routes.Cache{"1557727": "7"}, cache)
}

func TestParseTripRoutesSkipsEmptyTripID(t *testing.T) {
	cache, err := parse(t, map[string]string{
		"trips.txt": "trip_id,route_id\n,5\n1557727,5\n",
	})

	require.NoError(t, err)
	assert.Equal(t, routes.Cache{"1557727": "5"}, cache)
}

func TestParseTripRoutesMissingTripsFile(t *testing.T) {
	_, err := parse(t, map[string]string{
		"stops.txt": "stop_id\nEMBR\n",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "trips.txt not found")
}

func TestParseTripRoutesMissingColumns(t *testing.T) {
	_, err := parse(t, map[string]string{
		"trips.txt": "service_id,block_id\nWKDY,B1\n",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing trip_id or route_id")
}

func TestParseTripRoutesNotAZip(t *testing.T) {
	payload := []byte("this is not a zip archive")

	_, err := ParseTripRoutes(bytes.NewReader(payload), int64(len(payload)))

	assert.Error(t, err)
}
