package api

// PredictRequest is the body of POST /predict. Fields are pointers so that
// missing keys are distinguishable from zero values during validation.
type PredictRequest struct {
	Age             *float64 `json:"age"`
	Gender          *string  `json:"gender"`
	Race            *string  `json:"race"`
	Department      *string  `json:"department"`
	EventHour       *int     `json:"event_hour"`
	DayOfWeek       *int     `json:"day_of_week"`
	WaitTimeMinutes *float64 `json:"wait_time_minutes"`
}

// PredictResponse mirrors the model output: a probability in [0,1] and the
// binary decision at the model threshold.
type PredictResponse struct {
	AdmittedProbability float64 `json:"admitted_probability"`
	AdmittedPrediction  int     `json:"admitted_prediction"`
}

// HealthResponse is the liveness payload. The service only starts serving
// after artifacts are acquired, so a response here always means ready.
type HealthResponse struct {
	Status         string  `json:"status"`
	ModelTrainedAt string  `json:"model_trained_at"`
	ModelAUC       float64 `json:"model_roc_auc"`
	Departments    int     `json:"departments"`
}
