package warehouse

// Department is one dim_department row. Surrogate ids are assigned by
// ascending lexical order of the label on every rebuild.
type Department struct {
	ID   int64  `json:"department_id"`
	Name string `json:"department_name"`
}

// DailyVolume is one gold_daily_volume row, keyed by calendar date.
type DailyVolume struct {
	EventDate       string   `json:"event_date"`
	TotalEncounters int64    `json:"total_encounters"`
	AvgWaitTime     *float64 `json:"avg_wait_time"`
	AvgSatisfaction *float64 `json:"avg_satisfaction"`
	AdmissionRate   *float64 `json:"admission_rate"`
}

// DepartmentWaits is one gold_department_waits row, presented by descending
// average wait time.
type DepartmentWaits struct {
	DepartmentID    int64    `json:"department_id"`
	DepartmentName  string   `json:"department_name"`
	TotalEncounters int64    `json:"total_encounters"`
	AvgWaitTime     *float64 `json:"avg_wait_time"`
	AvgSatisfaction *float64 `json:"avg_satisfaction"`
	AdmissionRate   *float64 `json:"admission_rate"`
}

// TrainingRow is one labeled fact_encounter row used to fit the admission
// model. Nullable columns stay pointers so the feature encoder can impute.
type TrainingRow struct {
	Age             *float64
	Gender          *string
	Race            *string
	DepartmentID    *int64
	EventHour       int64
	EventDayOfWeek  int64
	WaitTimeMinutes *float64
	Admitted        int64
}
