package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"stealthcompany.com/hospitalops/internal/admission"
	"stealthcompany.com/hospitalops/internal/api"
	"stealthcompany.com/hospitalops/internal/artifacts"
	"stealthcompany.com/hospitalops/internal/metrics"
	"stealthcompany.com/hospitalops/internal/warehouse"
	"stealthcompany.com/hospitalops/pkg/zerolog_config"
)

func main() {
	// Load .env file
	if err := godotenv.Load(".env"); err != nil {
		log.Info().Msg("Not found .env file, assuming environment variables are set")
	}

	// Get configuration from environment
	elasticsearchURL := getEnvOrDefault("ELASTICSEARCH_URL", "")
	apiPort := getEnvOrDefault("API_PORT", "8080")
	apiLogLevel := getEnvOrDefault("API_LOG_LEVEL", "info")
	modelPath := getEnvOrDefault("MODEL_PATH", "models/admission_model.gob")
	warehousePath := getEnvOrDefault("WAREHOUSE_PATH", "warehouse/hospital_ops.db")
	modelURL := os.Getenv("MODEL_URL")
	warehouseURL := os.Getenv("WAREHOUSE_URL")

	zerolog_config.SetAppPrefix("hospitalops-api")
	zerolog_config.StartupWithEnv(elasticsearchURL, "logs", apiLogLevel)

	log.Info().Msg("Starting hospitalops-api service")

	// Start system metrics collection
	metrics.StartSystemMetricsCollection("api")

	// Acquire artifacts before serving. This blocks readiness; a failed
	// download is fatal to startup.
	downloader := artifacts.NewDownloader(60 * time.Second)
	if err := downloader.EnsureFile(modelPath, modelURL, "admission model"); err != nil {
		log.Fatal().Err(err).Msg("Failed to acquire model artifact")
	}
	if err := downloader.EnsureFile(warehousePath, warehouseURL, "warehouse database"); err != nil {
		log.Fatal().Err(err).Msg("Failed to acquire warehouse artifact")
	}

	model, err := admission.LoadModel(modelPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load model")
	}
	log.Info().
		Time("trained_at", model.TrainedAt).
		Float64("roc_auc", model.AUC).
		Msg("Model loaded")

	db, err := warehouse.OpenReadOnly(warehousePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open warehouse")
	}

	server, err := api.NewServer(model, db)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize server")
	}

	// Setup routes
	router := server.SetupRoutes()

	// Create HTTP server
	httpServer := &http.Server{
		Addr:    ":" + apiPort,
		Handler: router,
	}

	// Listen for shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		log.Info().
			Str("port", apiPort).
			Msg("Server starting")

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().
				Err(err).
				Msg("Failed to start server")
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Info().Msg("Received shutdown signal, shutting down gracefully...")

	// Shutdown server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	// Close warehouse connection
	log.Info().Msg("Closing warehouse connection...")
	if err := db.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close warehouse cleanly")
	}

	log.Info().Msg("API service shutdown complete")
}

// Helper function to get environment variable with default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
