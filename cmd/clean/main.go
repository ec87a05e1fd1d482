package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"stealthcompany.com/hospitalops/internal/encounter"
	"stealthcompany.com/hospitalops/pkg/zerolog_config"
)

// Cleaning step: raw encounter CSV → typed columnar snapshot.
func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Info().Msg("Not found .env file, assuming environment variables are set")
	}

	rawPath := getEnvOrDefault("RAW_CSV_PATH", "data/raw/healthcare_analytics_patient_flow_data.csv")
	snapshotPath := getEnvOrDefault("SNAPSHOT_PATH", "data/processed/encounters_clean.parquet")

	zerolog_config.SetAppPrefix("hospitalops-clean")
	zerolog_config.StartupWithEnv(getEnvOrDefault("ELASTICSEARCH_URL", ""), "logs", getEnvOrDefault("LOG_LEVEL", "info"))

	log.Info().Str("raw", rawPath).Msg("Starting cleaning step")

	rows, stats, err := encounter.CleanFile(rawPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Cleaning failed")
	}

	if err := encounter.WriteSnapshot(snapshotPath, rows); err != nil {
		log.Fatal().Err(err).Msg("Failed to write snapshot")
	}

	log.Info().
		Str("snapshot", snapshotPath).
		Int("rows", stats.RowsKept).
		Int("admitted_known", stats.AdmittedKnown).
		Msg("Cleaning step completed")
}

// Helper function to get environment variable with default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
