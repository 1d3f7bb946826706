package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/causerie-app/causerie/adapters/analysis"
	"github.com/causerie-app/causerie/adapters/credentials"
	"github.com/causerie-app/causerie/adapters/review"
	"github.com/causerie-app/causerie/domain/repositories"
	"github.com/causerie-app/causerie/internal/api"
	"github.com/causerie-app/causerie/internal/audio"
	"github.com/causerie-app/causerie/internal/config"
	"github.com/causerie-app/causerie/internal/live"
	"github.com/causerie-app/causerie/usecase"
)

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	// Initialize adapters
	credSource := credentials.NewEnvSource("")
	apiKey, err := credSource.APIKey()
	if err != nil {
		logger.Fatal("Missing credentials", zap.Error(err))
	}

	analyzer, err := analysis.NewGeminiAnalyzer(context.Background(), apiKey, cfg.AnalysisModel, logger)
	if err != nil {
		logger.Fatal("Failed to initialize analyzer", zap.Error(err))
	}
	reviewSink := review.NewLogSink(logger)

	// Initialize usecase services
	sessions := usecase.NewSessionService(
		cfg,
		credSource,
		analyzer,
		reviewSink,
		func() repositories.CaptureSource {
			return audio.NewCapture(audio.CaptureConfig{
				ChunkSamples: cfg.ChunkSamples,
				OutboundRate: cfg.OutboundRate,
			}, logger)
		},
		func() repositories.PlaybackSink {
			return audio.NewPlayback(audio.PlaybackConfig{
				SampleRate: cfg.InboundRate,
			}, logger)
		},
		func(key string) repositories.ConversationStream {
			return live.NewClient(live.Options{
				Endpoint:     cfg.Endpoint,
				APIKey:       key,
				Model:        cfg.Model,
				Voice:        cfg.Voice,
				Language:     cfg.Language,
				OutboundRate: cfg.OutboundRate,
			}, logger)
		},
		logger,
	)

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Initialize API routes
	api.InitRoutes(e, sessions, logger)

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + cfg.HTTPPort); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Conversation core started",
		zap.String("port", cfg.HTTPPort),
		zap.String("model", cfg.Model))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	if _, err := sessions.End(); err == nil {
		logger.Info("Active session ended on shutdown")
	}
	sessions.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
