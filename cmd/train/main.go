package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"stealthcompany.com/hospitalops/internal/admission"
	"stealthcompany.com/hospitalops/internal/warehouse"
	"stealthcompany.com/hospitalops/pkg/zerolog_config"
)

// Training step: labeled fact rows → serialized admission model.
func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Info().Msg("Not found .env file, assuming environment variables are set")
	}

	warehousePath := getEnvOrDefault("WAREHOUSE_PATH", "warehouse/hospital_ops.db")
	modelPath := getEnvOrDefault("MODEL_PATH", "models/admission_model.gob")

	zerolog_config.SetAppPrefix("hospitalops-train")
	zerolog_config.StartupWithEnv(getEnvOrDefault("ELASTICSEARCH_URL", ""), "logs", getEnvOrDefault("LOG_LEVEL", "info"))

	log.Info().Str("warehouse", warehousePath).Msg("Starting model training")

	db, err := warehouse.OpenReadOnly(warehousePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open warehouse")
	}
	defer db.Close()

	rows, err := warehouse.SelectTrainingRows(context.Background(), db)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load training rows")
	}

	result, err := admission.Train(rows)
	if err != nil {
		log.Fatal().Err(err).Msg("Training failed")
	}

	if err := result.Model.Save(modelPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to save model")
	}

	log.Info().
		Str("model", modelPath).
		Float64("roc_auc", result.AUC).
		Float64("recall", result.Recall).
		Msg("Training step completed")
}

// Helper function to get environment variable with default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
