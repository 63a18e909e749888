// bartdw ingests BART GTFS-realtime feeds into staged snapshot files and
// loads them into the Postgres warehouse. The two phases run as separate
// subcommands so an external scheduler can drive them independently:
//
//	bartdw ingest    fetch, decode, resolve routes, normalize, stage
//	bartdw load      discover staged files and load them into the warehouse
//
// Exit code 0 means the run completed; 1 means a fatal fetch, decode,
// staging or connection error. Per-file load failures are logged and
// counted but do not change the exit code: the offending file is re-staged
// and the loader re-run, while already-loaded files must not be replayed
// into the append-only tables.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/bartdw-data/internal/common/config"
	"github.com/bartdw-data/internal/common/db"
	"github.com/bartdw-data/internal/common/logger"
	"github.com/bartdw-data/internal/feed"
	"github.com/bartdw-data/internal/load"
	"github.com/bartdw-data/internal/normalize"
	"github.com/bartdw-data/internal/routes"
	"github.com/bartdw-data/internal/static"
	"github.com/bartdw-data/internal/staging"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// .env is optional; a scheduler normally provides the environment
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		return 1
	}

	log := logger.NewWithLevel(
		logger.ParseLogLevel(cfg.Logging.Level),
		logger.ConsoleWriter(),
		logger.FileWriter(cfg.Logging.FilePath),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: bartdw <ingest|load>")
		return 1
	}

	switch args[0] {
	case "ingest":
		return runIngest(ctx, cfg, log)
	case "load":
		return runLoad(ctx, cfg, log)
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q; usage: bartdw <ingest|load>\n", args[0])
		return 1
	}
}

// runIngest executes one ingestion run: fetch both feeds, decode, resolve
// routes, normalize, and stage. All work stays in memory until a snapshot
// file is fully written, so a failed run leaves no partial files behind.
func runIngest(ctx context.Context, cfg *config.Config, log logger.Logger) int {
	clock := clockwork.NewRealClock()
	runTime := clock.Now()

	log.Info("Starting BART data ingestion",
		"trip_updates_url", cfg.Feeds.TripUpdatesURL,
		"alerts_url", cfg.Feeds.AlertsURL,
		"staging_dir", cfg.Staging.Dir)

	// Best effort: a missing schedule downgrades resolution to the
	// trip-id heuristics, it never aborts the run.
	cache := routes.Cache{}
	if cfg.Feeds.StaticGTFSURL != "" {
		fetcher := static.NewFetcher(log)
		c, err := fetcher.FetchTripRoutes(ctx, cfg.Feeds.StaticGTFSURL)
		if err != nil {
			log.Warn("Failed to load static GTFS, falling back to trip id parsing", "error", err)
		} else {
			cache = c
		}
	}

	client := feed.NewClient(cfg.Feeds.HTTPTimeout, log)

	tripPayload, err := client.Fetch(ctx, cfg.Feeds.TripUpdatesURL)
	if err != nil {
		log.Error("Failed to fetch trip updates", "error", err)
		return 1
	}
	tripFeed, err := feed.Decode(tripPayload, runTime)
	if err != nil {
		log.Error("Failed to decode trip updates", "error", err)
		return 1
	}

	alertPayload, err := client.Fetch(ctx, cfg.Feeds.AlertsURL)
	if err != nil {
		log.Error("Failed to fetch service alerts", "error", err)
		return 1
	}
	alertFeed, err := feed.Decode(alertPayload, runTime)
	if err != nil {
		log.Error("Failed to decode service alerts", "error", err)
		return 1
	}

	tripRecords := normalize.TripUpdates(tripFeed, cache)
	alertRecords := normalize.Alerts(alertFeed)

	writer := staging.NewWriter(cfg.Staging.Dir, clock, log)
	if _, err := writer.WriteTripUpdates(tripRecords); err != nil {
		log.Error("Failed to stage trip updates", "error", err)
		return 1
	}
	if _, err := writer.WriteAlerts(alertRecords); err != nil {
		log.Error("Failed to stage service alerts", "error", err)
		return 1
	}

	reportIngest(log, tripRecords, alertRecords)
	log.Info("Ingestion completed successfully")
	return 0
}

// reportIngest logs the run's aggregate counts: totals, resolution
// confidence, and delay statistics for stops running more than a minute
// late.
func reportIngest(log logger.Logger, trips []normalize.TripUpdateRecord, alerts []normalize.ServiceAlertRecord) {
	stats := summarizeTrips(trips)

	log.Info("Trip updates normalized",
		"records", stats.records,
		"unique_trips", stats.uniqueTrips,
		"route_explicit", stats.tierCounts[routes.TierExplicit.String()],
		"route_static", stats.tierCounts[routes.TierStatic.String()],
		"route_prefix", stats.tierCounts[routes.TierPrefix.String()],
		"route_unresolved", stats.tierCounts[routes.TierNone.String()],
		"delayed_over_1min", stats.delayed,
		"avg_arrival_delay_sec", stats.avgDelaySec)
	for _, rd := range stats.delayedRoutes {
		log.Info("Route average delay among delayed stops",
			"route_id", rd.routeID,
			"avg_delay_sec", rd.avgDelaySec)
	}
	log.Info("Service alerts normalized", "records", len(alerts))
}

// maxDelayedRoutes bounds the per-route delay breakdown in the report.
const maxDelayedRoutes = 5

type tripStats struct {
	records       int
	uniqueTrips   int
	tierCounts    map[string]int
	delayed       int
	avgDelaySec   float64
	delayedRoutes []routeDelay
}

type routeDelay struct {
	routeID     string
	avgDelaySec float64
}

// summarizeTrips aggregates the normalized records: unique trips,
// resolution tier counts, the mean arrival delay over all predictions, and
// the worst routes by mean delay among stops delayed over a minute.
func summarizeTrips(trips []normalize.TripUpdateRecord) tripStats {
	stats := tripStats{records: len(trips), tierCounts: map[string]int{}}

	uniqueTrips := map[string]struct{}{}
	delaySum, delayCount := 0, 0
	routeSums := map[string]int{}
	routeCounts := map[string]int{}

	for _, rec := range trips {
		if rec.TripID.Valid {
			uniqueTrips[rec.TripID.String] = struct{}{}
		}
		stats.tierCounts[rec.RouteTier.String()]++
		if !rec.ArrivalDelay.Valid {
			continue
		}
		delay := int(rec.ArrivalDelay.Int32)
		delaySum += delay
		delayCount++
		if delay > 60 {
			stats.delayed++
			if rec.RouteID.Valid {
				routeSums[rec.RouteID.String] += delay
				routeCounts[rec.RouteID.String]++
			}
		}
	}

	stats.uniqueTrips = len(uniqueTrips)
	if delayCount > 0 {
		stats.avgDelaySec = float64(delaySum) / float64(delayCount)
	}

	for routeID, sum := range routeSums {
		stats.delayedRoutes = append(stats.delayedRoutes, routeDelay{
			routeID:     routeID,
			avgDelaySec: float64(sum) / float64(routeCounts[routeID]),
		})
	}
	sort.Slice(stats.delayedRoutes, func(i, j int) bool {
		if stats.delayedRoutes[i].avgDelaySec != stats.delayedRoutes[j].avgDelaySec {
			return stats.delayedRoutes[i].avgDelaySec > stats.delayedRoutes[j].avgDelaySec
		}
		return stats.delayedRoutes[i].routeID < stats.delayedRoutes[j].routeID
	})
	if len(stats.delayedRoutes) > maxDelayedRoutes {
		stats.delayedRoutes = stats.delayedRoutes[:maxDelayedRoutes]
	}

	return stats
}

// runLoad executes one loader run against the warehouse.
func runLoad(ctx context.Context, cfg *config.Config, log logger.Logger) int {
	database, err := db.New(cfg.Database.ConnectionString(), log)
	if err != nil {
		log.Error("Failed to connect to warehouse", "error", err)
		return 1
	}
	defer database.Close()

	loader := load.New(database, cfg.Staging.Dir, cfg.Loader.ChunkSize, log)
	if _, err := loader.Run(ctx); err != nil {
		log.Error("Load run failed", "error", err)
		return 1
	}

	return 0
}
