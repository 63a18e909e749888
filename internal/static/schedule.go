// Package static downloads the agency's static GTFS schedule and extracts
// the trip→route mapping the route resolver uses as its second tier. The
// download is best effort: callers treat any failure as a warning and carry
// on with an empty cache.
package static

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bartdw-data/internal/common/logger"
	"github.com/bartdw-data/internal/routes"
)

const tripsFileName = "trips.txt"

type Fetcher struct {
	client *http.Client
	logger logger.Logger
}

func NewFetcher(log logger.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: 5 * time.Minute, // the schedule archive is large
		},
		logger: log,
	}
}

// FetchTripRoutes downloads the GTFS zip from url and builds the trip→route
// cache from its trips.txt.
func (f *Fetcher) FetchTripRoutes(ctx context.Context, url string) (routes.Cache, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading static GTFS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading static GTFS: unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading static GTFS: %w", err)
	}

	cache, err := ParseTripRoutes(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, err
	}

	f.logger.Info("Loaded trip-to-route mappings from static GTFS",
		"url", url,
		"mappings", len(cache))

	return cache, nil
}

// ParseTripRoutes reads trips.txt out of a GTFS zip archive and returns the
// trip_id→route_id mapping. Duplicate trip ids keep the last value seen.
func ParseTripRoutes(r io.ReaderAt, size int64) (routes.Cache, error) {
	reader, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("opening GTFS zip: %w", err)
	}

	var tripsFile *zip.File
	for _, file := range reader.File {
		if file.Name == tripsFileName || strings.HasSuffix(file.Name, "/"+tripsFileName) {
			tripsFile = file
			break
		}
	}
	if tripsFile == nil {
		return nil, fmt.Errorf("%s not found in GTFS zip", tripsFileName)
	}

	rc, err := tripsFile.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", tripsFileName, err)
	}
	defer rc.Close()

	return parseTrips(rc)
}

func parseTrips(r io.Reader) (routes.Cache, error) {
	csvReader := csv.NewReader(r)
	csvReader.TrimLeadingSpace = true

	header, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading %s header: %w", tripsFileName, err)
	}

	tripIdx, routeIdx := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) {
		case "trip_id":
			tripIdx = i
		case "route_id":
			routeIdx = i
		}
	}
	if tripIdx == -1 || routeIdx == -1 {
		return nil, fmt.Errorf("%s missing trip_id or route_id column", tripsFileName)
	}

	cache := routes.Cache{}
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", tripsFileName, err)
		}
		if tripIdx >= len(record) || routeIdx >= len(record) {
			continue
		}
		tripID := record[tripIdx]
		if tripID == "" {
			continue
		}
		// last write wins on duplicate trip ids
		cache[tripID] = record[routeIdx]
	}

	return cache, nil
}
