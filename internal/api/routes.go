package api

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"stealthcompany.com/hospitalops/internal/admission"
	"stealthcompany.com/hospitalops/internal/metrics"
	"stealthcompany.com/hospitalops/internal/warehouse"
)

// Server holds the read-only state every request handler works against: the
// loaded model, the warehouse handle and the department label → surrogate id
// mapping. Nothing here mutates after startup, so handlers need no locking.
type Server struct {
	model         *admission.Model
	db            *sql.DB
	departmentIDs map[string]int64
}

// NewServer wires a server from the loaded artifacts. The department
// dimension is read once so predict requests resolve labels without a query.
func NewServer(model *admission.Model, db *sql.DB) (*Server, error) {
	departments, err := warehouse.SelectDepartments(context.Background(), db)
	if err != nil {
		return nil, fmt.Errorf("load department dimension: %w", err)
	}
	if len(departments) == 0 {
		return nil, fmt.Errorf("warehouse has an empty department dimension")
	}

	ids := make(map[string]int64, len(departments))
	for _, d := range departments {
		ids[d.Name] = d.ID
	}

	return &Server{
		model:         model,
		db:            db,
		departmentIDs: ids,
	}, nil
}

// SetupRoutes configures and returns the HTTP router
func (s *Server) SetupRoutes() *mux.Router {
	r := mux.NewRouter()

	// Add middleware to all routes
	r.Use(metrics.MetricsMiddleware)

	// Routes
	r.HandleFunc("/health", s.HealthHandler).Methods("GET")
	r.HandleFunc("/predict", s.PredictHandler).Methods("POST")
	r.HandleFunc("/metrics/daily", s.DailyMetricsHandler).Methods("GET")
	r.HandleFunc("/metrics/departments", s.DepartmentMetricsHandler).Methods("GET")

	// Prometheus metrics endpoint
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	return r
}
