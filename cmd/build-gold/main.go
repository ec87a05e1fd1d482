package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"stealthcompany.com/hospitalops/internal/encounter"
	"stealthcompany.com/hospitalops/internal/warehouse"
	"stealthcompany.com/hospitalops/pkg/zerolog_config"
)

// Warehouse build step: columnar snapshot → Gold-layer SQLite file.
// The rebuild is all-or-nothing; a failed build leaves the previous
// warehouse untouched.
func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Info().Msg("Not found .env file, assuming environment variables are set")
	}

	snapshotPath := getEnvOrDefault("SNAPSHOT_PATH", "data/processed/encounters_clean.parquet")
	warehousePath := getEnvOrDefault("WAREHOUSE_PATH", "warehouse/hospital_ops.db")

	zerolog_config.SetAppPrefix("hospitalops-build-gold")
	zerolog_config.StartupWithEnv(getEnvOrDefault("ELASTICSEARCH_URL", ""), "logs", getEnvOrDefault("LOG_LEVEL", "info"))

	log.Info().Str("snapshot", snapshotPath).Str("warehouse", warehousePath).Msg("Starting warehouse build")

	rows, err := encounter.ReadSnapshot(snapshotPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read snapshot")
	}

	db, err := warehouse.Open(warehousePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open warehouse")
	}
	defer db.Close()

	if err := warehouse.Build(context.Background(), db, rows); err != nil {
		log.Fatal().Err(err).Msg("Warehouse build failed")
	}

	log.Info().Str("warehouse", warehousePath).Msg("Warehouse build completed")
}

// Helper function to get environment variable with default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
