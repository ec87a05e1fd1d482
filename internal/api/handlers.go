package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"stealthcompany.com/hospitalops/internal/metrics"
	"stealthcompany.com/hospitalops/internal/warehouse"
)

// HealthHandler reports service readiness. Artifact acquisition happens
// before the router is mounted, so reaching this handler means ready.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(HealthResponse{
		Status:         "ok",
		ModelTrainedAt: s.model.TrainedAt.Format(time.RFC3339),
		ModelAUC:       s.model.AUC,
		Departments:    len(s.departmentIDs),
	})
}

// PredictHandler scores one encounter and returns the admission probability
// plus the binary decision at the model threshold.
func (s *Server) PredictHandler(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error().
			Err(err).
			Str("remote_addr", r.RemoteAddr).
			Msg("Failed to decode prediction request JSON")

		metrics.RecordPrediction("invalid_json")

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "Invalid JSON format",
		})
		return
	}

	departmentID, err := s.validatePredictRequest(&req)
	if err != nil {
		log.Warn().
			Err(err).
			Str("remote_addr", r.RemoteAddr).
			Msg("Prediction request failed validation")

		metrics.RecordPrediction("validation_failed")

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity) // 422 - validation error
		json.NewEncoder(w).Encode(map[string]string{
			"error":   "Validation failed",
			"message": err.Error(),
		})
		return
	}

	probability, decision := s.model.Predict(
		*req.Age, *req.Gender, *req.Race, departmentID,
		*req.EventHour, *req.DayOfWeek, *req.WaitTimeMinutes,
	)

	log.Info().
		Str("department", *req.Department).
		Float64("probability", probability).
		Int("decision", decision).
		Msg("Prediction served")

	if decision == 1 {
		metrics.RecordPrediction("admitted")
	} else {
		metrics.RecordPrediction("not_admitted")
	}
	metrics.RecordPredictionProbability(probability)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(PredictResponse{
		AdmittedProbability: probability,
		AdmittedPrediction:  decision,
	})
}

// validatePredictRequest checks presence and domain of every feature field
// and resolves the department label to its surrogate id.
func (s *Server) validatePredictRequest(req *PredictRequest) (int64, error) {
	var missing []string
	if req.Age == nil {
		missing = append(missing, "age")
	}
	if req.Gender == nil {
		missing = append(missing, "gender")
	}
	if req.Race == nil {
		missing = append(missing, "race")
	}
	if req.Department == nil {
		missing = append(missing, "department")
	}
	if req.EventHour == nil {
		missing = append(missing, "event_hour")
	}
	if req.DayOfWeek == nil {
		missing = append(missing, "day_of_week")
	}
	if req.WaitTimeMinutes == nil {
		missing = append(missing, "wait_time_minutes")
	}
	if len(missing) > 0 {
		return 0, fmt.Errorf("missing required fields: %v", missing)
	}

	if *req.Age < 0 || *req.Age > 120 {
		return 0, fmt.Errorf("age must be between 0 and 120, got %v", *req.Age)
	}
	if *req.EventHour < 0 || *req.EventHour > 23 {
		return 0, fmt.Errorf("event_hour must be between 0 and 23, got %d", *req.EventHour)
	}
	if *req.DayOfWeek < 0 || *req.DayOfWeek > 6 {
		return 0, fmt.Errorf("day_of_week must be between 0 and 6, got %d", *req.DayOfWeek)
	}
	if *req.WaitTimeMinutes < 0 {
		return 0, fmt.Errorf("wait_time_minutes must be >= 0, got %v", *req.WaitTimeMinutes)
	}

	departmentID, ok := s.departmentIDs[*req.Department]
	if !ok {
		return 0, fmt.Errorf("unknown department %q", *req.Department)
	}
	return departmentID, nil
}

// DailyMetricsHandler returns gold_daily_volume rows, optionally bounded to
// a trailing window with ?days=N.
func (s *Server) DailyMetricsHandler(w http.ResponseWriter, r *http.Request) {
	days := 0
	if daysParam := r.URL.Query().Get("days"); daysParam != "" {
		d, err := strconv.Atoi(daysParam)
		if err != nil || d <= 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{
				"error": "days must be a positive integer",
			})
			return
		}
		days = d
	}

	rows, err := warehouse.SelectDailyVolume(r.Context(), s.db, days)
	if err != nil {
		log.Error().Err(err).Msg("Failed to query daily volume")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "failed to query daily metrics",
		})
		return
	}
	if rows == nil {
		rows = []warehouse.DailyVolume{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(rows)
}

// DepartmentMetricsHandler returns gold_department_waits rows as built.
func (s *Server) DepartmentMetricsHandler(w http.ResponseWriter, r *http.Request) {
	rows, err := warehouse.SelectDepartmentWaits(r.Context(), s.db)
	if err != nil {
		log.Error().Err(err).Msg("Failed to query department waits")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "failed to query department metrics",
		})
		return
	}
	if rows == nil {
		rows = []warehouse.DepartmentWaits{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(rows)
}
