package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	isbnapi "github.com/iziplay/isbn-api"
	routing "github.com/iziplay/isbn-api/pkg/api"
	"github.com/iziplay/isbn-api/pkg/database"
	"github.com/iziplay/isbn-api/pkg/lookup"
	"github.com/iziplay/isbn-api/pkg/metrics"
	"github.com/iziplay/isbn-api/pkg/rangemsg"
	"github.com/iziplay/isbn-api/pkg/sync"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"gorm.io/plugin/opentelemetry/tracing"
)

func getLogLevelFromEnv() slog.Level {
	levelStr := os.Getenv("LOG_LEVEL")

	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: getLogLevelFromEnv()})))

	exp, err := otlptracegrpc.New(ctx)
	if err != nil {
		panic(err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(
			resource.NewWithAttributes(
				semconv.SchemaURL,
				semconv.ServiceName("isbn-api"),
			),
		),
	)
	defer tp.Shutdown(context.Background())

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)

	if err := database.Open(database.DSN()); err != nil {
		slog.Error("Database unavailable", "error", err)
		os.Exit(1)
	}
	if err := database.DB.Use(tracing.NewPlugin()); err != nil {
		slog.Warn("Cannot trace database calls", "error", err)
	}

	rangesURL := rangemsg.DefaultURL
	if u, ok := os.LookupEnv("ISBN_RANGES_URL"); ok {
		rangesURL = u
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	lookupService := lookup.New(nil)
	syncer := &sync.Syncer{
		URL:     rangesURL,
		Store:   sync.DatabaseStore{},
		Lookup:  lookupService,
		Metrics: m,
	}

	if err := syncer.Bootstrap(ctx, os.Getenv("ISBN_RANGES_FILE")); err != nil {
		if !errors.Is(err, sync.ErrNoTable) {
			slog.Error("Failed to load range table", "error", err)
			os.Exit(1)
		}
		slog.Warn("No range table yet, decomposition unavailable until first sync")
	}

	router := chi.NewRouter()

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "HEAD", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Server"},
		AllowCredentials: false,
	}))
	router.Handle("/metrics", promhttp.Handler())

	addr := ":80"
	if port, hasPort := os.LookupEnv("API_PORT"); hasPort {
		addr = ":" + port
	}

	host := "http://localhost"
	if hostEnv, hasHost := os.LookupEnv("API_HOST"); hasHost {
		host = hostEnv
	} else {
		host += addr
	}

	config := huma.DefaultConfig("ISBN API", "1.0.0")
	config.OpenAPI.Info.Description = isbnapi.Readme
	config.OpenAPI.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearerAuth": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
		},
	}
	config.DocsPath = "/"
	config.Servers = []*huma.Server{
		{URL: host},
	}
	api := humachi.New(router, config)

	jwtSecret := os.Getenv("ISBN_JWT_SECRET")
	if jwtSecret == "" {
		slog.Warn("ISBN_JWT_SECRET is not set, POST /v1/ranges/sync is open to anyone")
	}

	routing.Setup(api, routing.Dependencies{
		Lookup:    lookupService,
		Syncer:    syncer,
		Metrics:   m,
		JWTSecret: jwtSecret,
	})

	server := &http.Server{
		Addr:    addr,
		Handler: otelhttp.NewHandler(router, "api"),
	}

	go func() {
		slog.Info("Starting server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	go database.ComputeAndCacheStats(false)

	syncer.Run(ctx, sync.IntervalFromEnv())

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
}
