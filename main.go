package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appLogger "github.com/waynai/waynai-go/app/logger"
	"github.com/waynai/waynai-go/app/observability/metrics"
	"github.com/waynai/waynai-go/app/tracer"
	"github.com/waynai/waynai-go/internal/api/aggregator"
	"github.com/waynai/waynai-go/internal/api/area"
	"github.com/waynai/waynai-go/internal/api/blog"
	"github.com/waynai/waynai-go/internal/api/chat"
	"github.com/waynai/waynai-go/internal/api/course"
	generativeAI "github.com/waynai/waynai-go/internal/api/generative_ai"
	"github.com/waynai/waynai-go/internal/api/health"
	"github.com/waynai/waynai-go/internal/api/intent"
	"github.com/waynai/waynai-go/internal/api/search"
	"github.com/waynai/waynai-go/internal/api/tourist"
	"github.com/waynai/waynai-go/internal/api/travel"
	"github.com/waynai/waynai-go/internal/prompts"
	api "github.com/waynai/waynai-go/internal/router"

	"github.com/waynai/waynai-go/config"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
)

func main() {
	// --- Initial Loading ---
	// Use standard log until slog is configured, in case godotenv fails
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("FATAL: Error initializing config: %v", err)
	}

	// --- Logger Setup ---
	logger := setupLogger()
	slog.SetDefault(logger)

	// --- Application Context & Shutdown ---
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Observability ---
	tracer.InitTracingAndMetrics()
	metrics.InitAppMetrics()

	// --- Reference Data & Templates ---
	areaIndex, err := area.NewIndex(logger)
	if err != nil {
		logger.Error("Failed to load area reference table", slog.Any("error", err))
		os.Exit(1)
	}
	promptStore, err := prompts.NewStore(logger)
	if err != nil {
		logger.Error("Failed to load prompt templates", slog.Any("error", err))
		os.Exit(1)
	}

	// --- External Clients ---
	aiClient, err := generativeAI.NewAIClient(ctx, cfg.Gemini.Model)
	if err != nil {
		logger.Error("Failed to initialize model client", slog.Any("error", err))
		os.Exit(1)
	}
	stage := generativeAI.NewGenerationStage(aiClient, logger)

	tourServiceKey := os.Getenv("TOUR_API_SERVICE_KEY")
	if tourServiceKey == "" {
		logger.Warn("TOUR_API_SERVICE_KEY not set, tourist lookups will degrade to placeholders")
	}
	tourClient := tourist.NewClient(tourServiceKey, cfg.TourAPI.Timeout, logger)

	naverClientID := os.Getenv("NAVER_CLIENT_ID")
	naverClientSecret := os.Getenv("NAVER_CLIENT_SECRET")
	blogClient := blog.NewClient(naverClientID, naverClientSecret, cfg.Naver.Timeout, logger)

	// --- Dependency Injection ---
	touristService := tourist.NewTouristService(tourClient, areaIndex, cfg.Retrieval.CacheTTL, cfg.Retrieval.PageSize, logger)
	classifier := intent.NewClassifierService(aiClient, promptStore, areaIndex, blogClient, logger)
	agg := aggregator.NewAggregatorService(touristService, areaIndex, cfg.Retrieval.CallTimeout, logger)
	travelService := travel.NewTravelService(classifier, agg, promptStore, stage, cfg.Gemini.Temperature, cfg.Gemini.MaxTokens, logger)
	chatService := chat.NewChatService(agg, promptStore, stage, cfg.Gemini.Temperature, cfg.Gemini.MaxTokens, logger)
	courseService := course.NewCourseService(agg, promptStore, aiClient, logger)
	searchService := search.NewSearchService(classifier, agg, promptStore, aiClient, cfg.Pipeline.StageTimeout, logger)

	// --- Router Setup ---
	routerConfig := &api.Config{
		TravelHandler:  travel.NewHandlerImpl(travelService, logger),
		ChatHandler:    chat.NewHandlerImpl(chatService, logger),
		SearchHandler:  search.NewHandlerImpl(searchService, logger),
		CourseHandler:  course.NewHandlerImpl(courseService, logger),
		TouristHandler: tourist.NewHandlerImpl(touristService, logger),
		AreaHandler:    area.NewHandlerImpl(areaIndex, logger),
		HealthHandler:  health.NewHandler(aiClient.Model(), tourServiceKey != "", naverClientID != ""),
	}
	mainRouter := api.SetupRouter(routerConfig)

	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(appLogger.StructuredLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.StripSlashes)
	router.Mount("/", mainRouter)

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		slog.InfoContext(r.Context(), "Root endpoint hit")
		w.Write([]byte("Welcome to WaynAI API"))
	})

	// --- HTTP Server Setup ---
	serverAddress := fmt.Sprintf(":%s", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:        serverAddress,
		Handler:     router,
		ReadTimeout: 5 * time.Second,
		IdleTimeout: 120 * time.Second,
		ErrorLog:    slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	// --- Start Server Goroutine ---
	go func() {
		logger.Info("Starting HTTP server", slog.String("address", serverAddress))
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server ListenAndServe error", slog.Any("error", err))
			cancel()
		}
	}()

	// --- Wait for Shutdown Signal ---
	<-ctx.Done()

	// --- Graceful Shutdown ---
	logger.Info("Shutdown signal received, starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", slog.Any("error", err))
	} else {
		logger.Info("HTTP server gracefully stopped")
	}

	logger.Info("Application shut down complete.")
}

// setupLogger configures and returns the application logger.
func setupLogger() *slog.Logger {
	var logger *slog.Logger
	env := os.Getenv("APP_ENV")

	if env == "development" || env == "" {
		// Colored logs for development
		tintOpts := &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		}
		logger = slog.New(tint.NewHandler(os.Stdout, tintOpts))
		log.Println("Initialized development logger (tint)")
	} else {
		// JSON logs for production or other environments
		jsonOpts := &slog.HandlerOptions{
			Level:     slog.LevelInfo,
			AddSource: false,
		}
		logger = slog.New(slog.NewJSONHandler(os.Stdout, jsonOpts))
		log.Println("Initialized production logger (JSON)")
	}
	return logger
}
