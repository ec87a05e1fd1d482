package main

import (
	"context"
	"os"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"stealthcompany.com/hospitalops/internal/orchestrator"
	"stealthcompany.com/hospitalops/pkg/zerolog_config"
)

// Orchestrator entrypoint: runs the batch pipeline (clean → build-gold →
// train) to completion, then keeps the API service up until shutdown.
func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Info().Msg("Not found .env file, assuming environment variables are set")
	}

	elasticsearchURL := getEnvOrDefault("ELASTICSEARCH_URL", "")
	logLevel := getEnvOrDefault("LOG_LEVEL", "info")

	zerolog_config.SetAppPrefix("hospitalops-orch")
	zerolog_config.StartupWithEnv(elasticsearchURL, "logs", logLevel)

	log.Info().Msg("Starting hospitalops orchestrator")

	binExt := ""
	if runtime.GOOS == "windows" {
		binExt = ".exe"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalHandler := orchestrator.NewSignalHandler()
	signalHandler.HandleSignals(ctx, cancel)

	manager := orchestrator.NewServiceManager()

	for _, step := range []string{"clean", "build-gold", "train"} {
		if err := manager.RunPipelineStep(ctx, step, binExt); err != nil {
			log.Fatal().Err(err).Str("step", step).Msg("Pipeline aborted")
		}
	}

	if err := manager.StartAPIService(ctx, binExt); err != nil {
		log.Fatal().Err(err).Msg("Failed to start API service")
	}

	manager.WaitForAPI(ctx)

	log.Info().Msg("Orchestrator shutdown complete")
}

// Helper function to get environment variable with default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
