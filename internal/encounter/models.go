package encounter

// CleanEncounter is one cleaned patient visit, stored as a row of the
// columnar snapshot. Optional (*type) fields use the Parquet null bitmap so
// missing values survive the snapshot round-trip instead of collapsing to
// zero values.
type CleanEncounter struct {
	PatientID string `parquet:"patient_id"`

	// Time features derived from the event timestamp.
	EventDate      string `parquet:"event_date"` // YYYY-MM-DD
	EventHour      int32  `parquet:"event_hour"`
	EventDayOfWeek int32  `parquet:"event_dayofweek"` // Monday=0
	EventMonth     int32  `parquet:"event_month"`

	Age               *float64 `parquet:"age,optional"`
	Gender            *string  `parquet:"gender,optional"`
	Race              *string  `parquet:"race,optional"`
	Department        *string  `parquet:"department,optional"`
	WaitTimeMinutes   *float64 `parquet:"wait_time_minutes,optional"`
	SatisfactionScore *float64 `parquet:"satisfaction_score,optional"`
	Admitted          *int32   `parquet:"admitted,optional"`
}

// HasDepartment reports whether the row carries a real department referral.
// Placeholder labels from the source system count as no referral.
func (e *CleanEncounter) HasDepartment() bool {
	return e.Department != nil && !isPlaceholderDepartment(*e.Department)
}

// Stats summarizes one cleaning run.
type Stats struct {
	RowsRead      int
	RowsKept      int
	Duplicates    int
	Unreadable    int
	BadTimestamp  int
	OutOfRange    int
	NullsFilled   int
	AdmittedKnown int
}
