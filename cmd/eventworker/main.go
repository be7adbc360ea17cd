package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"

	"shipment-forecast-service/internal/adapters/cache"
	"shipment-forecast-service/internal/adapters/external"
	"shipment-forecast-service/internal/adapters/repositories"
	"shipment-forecast-service/internal/config"
	"shipment-forecast-service/internal/events"
	"shipment-forecast-service/internal/platform/db"
	"shipment-forecast-service/internal/ports"
	"shipment-forecast-service/internal/scgraph"
	"shipment-forecast-service/internal/services"
)

// main runs the asynchronous side of the service: it leases tracking
// and disruption events off the queue, re-estimates the affected
// orders and publishes reconfiguration messages for the planning
// layer.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if strings.TrimSpace(databaseURL) == "" {
		log.Fatal("DATABASE_URL is required")
	}
	configPath := getEnv("CONFIG_PATH", "config/params.yaml")

	sqlDB, err := db.Open(databaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer sqlDB.Close()

	loader, err := config.NewLoader(configPath)
	if err != nil {
		log.Fatal(err)
	}
	stopWatch, err := loader.Watch()
	if err != nil {
		log.Fatal(err)
	}
	defer stopWatch()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	worker, err := wire(ctx, sqlDB, databaseURL, loader)
	if err != nil {
		log.Fatal(err)
	}

	log.Printf("event worker starting")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
	log.Printf("event worker stopped")
}

func wire(ctx context.Context, sqlDB *sql.DB, databaseURL string, loader *config.Loader) (*events.Worker, error) {
	var (
		dpStore   ports.DPStore
		locations ports.LocationRepository
	)
	if isPostgres(databaseURL) {
		dpStore = cache.NewSQLDPStore(sqlDB)
		locations = cache.NewSQLLocationCache(sqlDB)
	} else {
		dpStore = cache.NewSqliteDPStore(sqlDB)
		locations = cache.NewSqliteLocationCache(sqlDB)
	}

	sg, err := loadSCGraph(ctx, repositories.NewSQLGraphStore(sqlDB), dpStore)
	if err != nil {
		return nil, err
	}

	geo, err := geoService()
	if err != nil {
		return nil, err
	}
	traffic, weather, routeModel, err := forecastClients()
	if err != nil {
		return nil, err
	}

	orders := repositories.NewSQLOrderRepository(sqlDB)
	resolver := services.NewVertexResolver(sg.Graph(), locations, geo)
	estimations := services.NewEstimationService(
		sg,
		resolver,
		orders,
		repositories.NewSQLDistributionRepository(sqlDB),
		repositories.NewSQLHolidayRepository(sqlDB),
		traffic,
		weather,
		routeModel,
		repositories.NewSQLEstimationStore(sqlDB),
		dpStore,
		loader.Params,
	)

	queue := repositories.NewSQLEventQueue(sqlDB)
	return events.NewWorker(
		queue,
		queue,
		events.NewOrderEventHandler(orders, estimations),
		events.NewDisruptionEventHandler(orders, estimations),
		workerConfig(),
	), nil
}

func workerConfig() events.WorkerConfig {
	return events.WorkerConfig{
		Workers:      getEnvInt("WORKER_COUNT", 0),
		BatchSize:    getEnvInt("WORKER_BATCH_SIZE", 0),
		PollInterval: time.Duration(getEnvInt("WORKER_POLL_MS", 0)) * time.Millisecond,
		MaxAttempts:  getEnvInt("WORKER_MAX_ATTEMPTS", 0),
	}
}

func loadSCGraph(ctx context.Context, store ports.GraphStore, dpStore ports.DPStore) (*scgraph.SCGraph, error) {
	vertices, err := store.VertexRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("load graph: %w", err)
	}
	edges, err := store.EdgeRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("load graph: %w", err)
	}

	graph, err := scgraph.NewGraph(vertices, edges)
	if err != nil {
		return nil, fmt.Errorf("load graph: %w", err)
	}

	pathDP, err := dpStore.LoadPathDP(ctx, graph.VertexCount())
	if err != nil {
		return nil, fmt.Errorf("load path memo: %w", err)
	}
	probDP, err := dpStore.LoadProbDP(ctx, graph.VertexCount())
	if err != nil {
		return nil, fmt.Errorf("load prob memo: %w", err)
	}

	log.Printf("graph loaded vertices=%d edges=%d", len(vertices), len(edges))
	return scgraph.NewSCGraph(graph, pathDP, probDP), nil
}

func geoService() (ports.GeoService, error) {
	baseURL := os.Getenv("GEO_API_URL")
	if strings.TrimSpace(baseURL) == "" {
		log.Println("GEO_API_URL not set, using mock geo service")
		return external.NewMockGeoService(nil), nil
	}
	return external.NewGeoClient(baseURL, os.Getenv("GEO_API_KEY"))
}

func forecastClients() (ports.TrafficService, ports.WeatherService, ports.RouteTimeModel, error) {
	var (
		traffic    ports.TrafficService
		weather    ports.WeatherService
		routeModel ports.RouteTimeModel
	)

	if baseURL := os.Getenv("TRAFFIC_API_URL"); strings.TrimSpace(baseURL) != "" {
		c, err := external.NewTrafficClient(baseURL, os.Getenv("TRAFFIC_API_KEY"))
		if err != nil {
			return nil, nil, nil, err
		}
		traffic = c
	}
	if baseURL := os.Getenv("WEATHER_API_URL"); strings.TrimSpace(baseURL) != "" {
		c, err := external.NewWeatherClient(baseURL, os.Getenv("WEATHER_API_KEY"))
		if err != nil {
			return nil, nil, nil, err
		}
		weather = c
	}
	if baseURL := os.Getenv("ROUTE_TIME_API_URL"); strings.TrimSpace(baseURL) != "" {
		c, err := external.NewRouteTimeClient(baseURL, os.Getenv("ROUTE_TIME_API_KEY"))
		if err != nil {
			return nil, nil, nil, err
		}
		routeModel = c
	}

	return traffic, weather, routeModel, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("%s must be an integer, got %q", key, v)
	}
	return n
}

func isPostgres(databaseURL string) bool {
	return strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://")
}
