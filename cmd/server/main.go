package main

import (
	"context"
	"log"
	"net/http"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"
	"time"

	"stock-insight/internal/bot"
	"stock-insight/internal/cache"
	"stock-insight/internal/config"
	"stock-insight/internal/db"
	"stock-insight/internal/handler"
	"stock-insight/internal/job"
	"stock-insight/internal/ml/forecast"
	"stock-insight/internal/provider"
	"stock-insight/internal/repository"
	"stock-insight/internal/service"
	"stock-insight/pkg/tracing"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"
)

var (
	loadEnvFunc               = godotenv.Load
	loadConfigFunc            = config.Load
	initPostgresFunc          = db.InitPostgres
	initRedisFunc             = cache.InitRedis
	initTracerFunc            = tracing.InitTracer
	newStockRepoFunc          = repository.NewStockRepository
	newPriceRepoFunc          = repository.NewPriceRepository
	newIndicatorRepoFunc      = repository.NewIndicatorRepository
	newPredictionRepoFunc     = repository.NewPredictionRepository
	newRecommendationRepoFunc = repository.NewRecommendationRepository
	newMarketProviderFunc     = func(tracer trace.Tracer) service.MarketDataProvider {
		_ = tracer
		return provider.NewYahooClient()
	}
	newForecastServiceFunc   = forecast.NewService
	newAnalysisServiceFunc   = service.NewAnalysisService
	startTelegramBotFunc     = bot.StartTelegramBot
	newWatchlistPollerFunc   = job.NewWatchlistPoller
	startWatchlistPollerFunc = func(p *job.WatchlistPoller, ctx context.Context) { go p.Start(ctx) }
	newHandlerFunc           = handler.New
	newRouterFunc            = gin.Default
	setupSignalNotify        = ossignal.Notify
	waitForSignalFunc        = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc      = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc   = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           Stock Insight API
// @version         1.0
// @description     Stock price forecasting and recommendation service with OpenTelemetry tracing.

// @host      localhost:8080
// @BasePath  /
func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init Postgres and Redis
	os.Setenv("DATABASE_URL", cfg.DatabaseURL)
	os.Setenv("REDIS_URL", cfg.RedisURL)
	initPostgresFunc(ctx)
	initRedisFunc(ctx)

	// Init tracing
	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	// Create repositories and run migrations
	stockRepo := newStockRepoFunc(db.Pool, tracer)
	priceRepo := newPriceRepoFunc(db.Pool, tracer)
	indicatorRepo := newIndicatorRepoFunc(db.Pool, tracer)
	predictionRepo := newPredictionRepoFunc(db.Pool, tracer)
	recommendationRepo := newRecommendationRepoFunc(db.Pool, tracer)
	if db.Pool != nil {
		migrators := []interface {
			RunMigrations(context.Context) error
		}{stockRepo, priceRepo, indicatorRepo, predictionRepo, recommendationRepo}
		for _, m := range migrators {
			if err := m.RunMigrations(ctx); err != nil {
				log.Fatalf("failed to run migrations: %v", err)
			}
		}
	}

	// Create provider and services
	market := newMarketProviderFunc(tracer)
	forecaster := newForecastServiceFunc(forecast.Config{
		Lookback:        cfg.ForecastLookback,
		HorizonDays:     cfg.ForecastHorizonDays,
		Timeout:         time.Duration(cfg.ForecastTimeoutSecs) * time.Second,
		EnableRecurrent: cfg.ForecastEnableRNN,
	}, tracer)
	analysisService := newAnalysisServiceFunc(
		tracer,
		market,
		forecaster,
		stockRepo,
		priceRepo,
		indicatorRepo,
		predictionRepo,
		recommendationRepo,
		cache.Client,
	)

	// Start Telegram bot and watchlist poller (stopped by ctx cancel)
	os.Setenv("TELEGRAM_BOT_TOKEN", cfg.TelegramBotToken)
	alerts := startTelegramBotFunc(analysisService)
	var notifier job.RecommendationNotifier
	if alerts != nil {
		notifier = alerts
	}
	poller := newWatchlistPollerFunc(
		tracer,
		analysisService,
		notifier,
		cfg.Watchlist,
		time.Duration(cfg.WatchlistPollSecs)*time.Second,
	)
	startWatchlistPollerFunc(poller, ctx)

	// Create handlers and routes
	h := newHandlerFunc(tracer, analysisService)

	r := newRouterFunc()
	r.Use(otelgin.Middleware("stock-insight"))

	corsCfg := cors.DefaultConfig()
	if len(cfg.CORSAllowOrigins) == 1 && cfg.CORSAllowOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.CORSAllowOrigins
	}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	h.RegisterRoutes(r)

	srv := &http.Server{
		Addr:    httpAddrFromEnv(),
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}

func httpAddrFromEnv() string {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		return ":8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}
