package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"dineoffer-api/internal/aggregator"
	"dineoffer-api/internal/cache"
	"dineoffer-api/internal/config"
	"dineoffer-api/internal/database"
	"dineoffer-api/internal/events"
	"dineoffer-api/internal/extractor"
	"dineoffer-api/internal/features"
	"dineoffer-api/internal/handler"
	"dineoffer-api/internal/middleware"
	"dineoffer-api/internal/provider"
	"dineoffer-api/internal/tracing"
)

func main() {
	configFile := flag.String("config", "", "Path to JSON config file")
	seed := flag.Bool("seed", true, "Seed the starter catalog into an empty database")
	tracingEnabled := flag.Bool("tracing", false, "Enable OpenTelemetry tracing")
	jaegerEndpoint := flag.String("jaeger", "http://localhost:14268/api/traces", "Jaeger collector endpoint")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Tracing
	if _, err := tracing.InitTracing(tracing.Config{
		Enabled:     *tracingEnabled,
		Endpoint:    *jaegerEndpoint,
		ServiceName: "dineoffer-api",
		Environment: os.Getenv("ENVIRONMENT"),
	}); err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	// Database
	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if *seed {
		if err := db.Seed(); err != nil {
			log.Fatalf("Failed to seed database: %v", err)
		}
	}

	// Cache: Redis when configured, in-process otherwise.
	var store cache.Cache
	if cfg.Redis.Addr != "" {
		redisCache, err := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisCache.Close()
		store = redisCache
		log.Printf("Result cache: redis at %s", cfg.Redis.Addr)
	} else {
		store = cache.NewInMemoryCache()
		log.Println("Result cache: in-memory")
	}
	results := cache.NewResultCache(store, time.Duration(cfg.Aggregation.CacheTTLMinutes)*time.Minute)

	// Search provider
	searchProvider, err := provider.New(provider.Config{
		PerplexityAPIKey: cfg.Provider.PerplexityAPIKey,
		TavilyAPIKey:     cfg.Provider.TavilyAPIKey,
		GeminiAPIKey:     cfg.Provider.GeminiAPIKey,
	})
	if err != nil {
		log.Fatalf("Failed to initialize search provider: %v", err)
	}
	if searchProvider == nil {
		log.Println("No search provider configured; search-backed platforms are unavailable")
	} else {
		log.Printf("Search provider: %s", searchProvider.Name())
	}

	// Feature flags
	flags := features.NewManager()
	flags.Register(features.FeatureCacheEnabled, cfg.Aggregation.CacheTTLMinutes > 0, "aggregation result caching")
	flags.Register(features.FeatureEventHooksEnabled, true, "internal event hooks")
	flags.Register(features.FeatureQuickMode, searchProvider != nil, "single-query combined search")
	flags.Register(features.FeatureDistrictExtraction, true, "direct District page extraction")

	// Events
	em := events.NewManager(flags.IsEnabled(features.FeatureEventHooksEnabled))
	defer em.Shutdown()
	em.Subscribe(events.EventAggregationFinished, func(ctx context.Context, ev events.Event) error {
		if data, ok := ev.Data.(events.AggregationFinishedData); ok {
			log.Printf("session %s finished: %d offers (failed=%v)", data.SessionID, data.TotalOffers, data.Failed)
		}
		return nil
	})

	// Aggregator
	var district extractor.Extractor
	if flags.IsEnabled(features.FeatureDistrictExtraction) {
		district = extractor.NewDistrictExtractor(nil, cfg.Aggregation.DistrictBaseURL)
	}
	agg := aggregator.New(searchProvider, district, em, time.Duration(cfg.Aggregation.TimeoutSeconds)*time.Second)

	// Handlers
	h := handler.NewHandler(db, agg, flags, handler.NewHandlerOptions{
		Results:     results,
		Events:      em,
		MaxBodySize: cfg.Security.MaxRequestBodySize,
	})

	// Rate limiter
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.Rate, time.Duration(cfg.RateLimit.Window)*time.Second)
	defer rateLimiter.Stop()

	// Setup router
	r := chi.NewRouter()

	// Middleware (order matters)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.TracingMiddleware())

	if cfg.RateLimit.Enabled {
		r.Use(middleware.RateLimitMiddleware(rateLimiter))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOriginsList(),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Routes
	r.Route("/aggregate-offers", func(r chi.Router) {
		r.Post("/", h.AggregateOffers)
		r.Get("/stream", h.StreamOffers)
	})

	r.Route("/recommendations", func(r chi.Router) {
		r.Post("/resolve", h.ResolveRecommendation)
	})

	r.Route("/cards", func(r chi.Router) {
		r.Get("/duplicates", h.ListDuplicateCards)
		r.Post("/merge", h.MergeCards)
		r.Post("/auto-dedupe", h.AutoDedupeCards)
	})

	r.Get("/platforms", h.ListPlatforms)
	r.Get("/health", h.Health)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Starting HTTP server on %s", addr)
	log.Printf("Database: %s", cfg.Database.Path)
	log.Printf("Rate limit: %d requests per %d seconds (enabled=%v)", cfg.RateLimit.Rate, cfg.RateLimit.Window, cfg.RateLimit.Enabled)

	server := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	// Graceful shutdown
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down server: %v", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed: %v", err)
	}
}
