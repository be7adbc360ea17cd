package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"

	"shipment-forecast-service/internal/adapters/cache"
	"shipment-forecast-service/internal/adapters/external"
	"shipment-forecast-service/internal/adapters/repositories"
	"shipment-forecast-service/internal/api"
	"shipment-forecast-service/internal/config"
	"shipment-forecast-service/internal/platform/db"
	"shipment-forecast-service/internal/ports"
	"shipment-forecast-service/internal/scgraph"
	"shipment-forecast-service/internal/services"
)

// main is the application composition root.
// It wires concrete adapters (Postgres or SQLite, external forecast
// services) behind ports and starts the HTTP server.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if strings.TrimSpace(databaseURL) == "" {
		log.Fatal("DATABASE_URL is required")
	}

	configPath := getEnv("CONFIG_PATH", "config/params.yaml")
	port := getEnv("PORT", "8080")

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

	deps, err := wire(context.Background(), sqlDB, databaseURL, loader)
	if err != nil {
		log.Fatal(err)
	}

	router := api.NewRouter(deps)

	// Timeouts are tuned for estimation runs that fan out to external
	// traffic and weather services.
	log.Printf("Server listening addr=:%s", port)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	log.Fatal(srv.ListenAndServe())
}

// wire builds the service graph over driver-matched adapters.
func wire(ctx context.Context, sqlDB *sql.DB, databaseURL string, loader *config.Loader) (api.Deps, error) {
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
		return api.Deps{}, err
	}

	geo, err := geoService()
	if err != nil {
		return api.Deps{}, err
	}
	traffic, weather, routeModel, err := forecastClients()
	if err != nil {
		return api.Deps{}, err
	}

	orders := repositories.NewSQLOrderRepository(sqlDB)
	estimationStore := repositories.NewSQLEstimationStore(sqlDB)
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
		estimationStore,
		dpStore,
		loader.Params,
	)

	return api.Deps{
		Estimations: estimations,
		Retrieval:   services.NewRetrievalService(estimationStore),
		Paths:       services.NewPathService(sg, dpStore),
		Graph:       sg.Graph(),
		Orders:      orders,
		Events:      repositories.NewSQLEventQueue(sqlDB),
	}, nil
}

// loadSCGraph builds the in-memory graph and warms the path engine
// from the durable memos. Missing memos mean a cold start.
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

// geoService returns the external geocoder, or the in-memory mock when
// no endpoint is configured (local runs).
func geoService() (ports.GeoService, error) {
	baseURL := os.Getenv("GEO_API_URL")
	if strings.TrimSpace(baseURL) == "" {
		log.Println("GEO_API_URL not set, using mock geo service")
		return external.NewMockGeoService(nil), nil
	}
	return external.NewGeoClient(baseURL, os.Getenv("GEO_API_KEY"))
}

// forecastClients builds the optional external data sources. A missing
// endpoint leaves the client nil; the matching index must then stay
// disabled in the parameters file.
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

func isPostgres(databaseURL string) bool {
	return strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://")
}
