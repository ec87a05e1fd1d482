package warehouse

import (
	"context"
	"database/sql"
	"path/filepath"
	"reflect"
	"testing"

	"stealthcompany.com/hospitalops/internal/encounter"
)

func f64(v float64) *float64 { return &v }
func str(v string) *string   { return &v }
func i32(v int32) *int32     { return &v }

// sampleRows covers two dates, three departments, one placeholder department
// and one unlabeled encounter.
func sampleRows() []encounter.CleanEncounter {
	return []encounter.CleanEncounter{
		{
			PatientID: "P-1", EventDate: "2024-03-05", EventHour: 9, EventDayOfWeek: 1, EventMonth: 3,
			Age: f64(40), Gender: str("F"), Race: str("White"), Department: str("Orthopedics"),
			WaitTimeMinutes: f64(60), SatisfactionScore: f64(4), Admitted: i32(1),
		},
		{
			PatientID: "P-2", EventDate: "2024-03-05", EventHour: 10, EventDayOfWeek: 1, EventMonth: 3,
			Age: f64(55), Gender: str("M"), Race: str("Black"), Department: str("Cardiology"),
			WaitTimeMinutes: f64(40), SatisfactionScore: f64(7), Admitted: i32(1),
		},
		{
			PatientID: "P-3", EventDate: "2024-03-05", EventHour: 11, EventDayOfWeek: 1, EventMonth: 3,
			Age: f64(30), Gender: str("F"), Race: str("Asian"), Department: str("General Practice"),
			WaitTimeMinutes: f64(20), SatisfactionScore: f64(9), Admitted: i32(0),
		},
		{
			PatientID: "P-4", EventDate: "2024-03-06", EventHour: 14, EventDayOfWeek: 2, EventMonth: 3,
			Age: f64(70), Gender: str("M"), Race: str("White"), Department: str("Cardiology"),
			WaitTimeMinutes: f64(50), SatisfactionScore: f64(6), Admitted: i32(0),
		},
		{
			// Placeholder department: fact keeps a NULL key, rollup skips it.
			PatientID: "P-5", EventDate: "2024-03-06", EventHour: 15, EventDayOfWeek: 2, EventMonth: 3,
			Age: f64(25), Gender: str("F"), Race: str("White"), Department: str("None"),
			WaitTimeMinutes: f64(10), SatisfactionScore: f64(8), Admitted: i32(0),
		},
		{
			// No admission label: stored but excluded from training rows.
			PatientID: "P-6", EventDate: "2024-03-06", EventHour: 16, EventDayOfWeek: 2, EventMonth: 3,
			Age: f64(45), Gender: str("M"), Race: str("Black"), Department: str("Cardiology"),
			WaitTimeMinutes: f64(30), SatisfactionScore: f64(5),
		},
	}
}

func buildTestWarehouse(t *testing.T, rows []encounter.CleanEncounter) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "hospital_ops.db"))
	if err != nil {
		t.Fatalf("Failed to open warehouse: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := Build(context.Background(), db, rows); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return db
}

func TestBuildDimensionOrder(t *testing.T) {
	db := buildTestWarehouse(t, sampleRows())

	departments, err := SelectDepartments(context.Background(), db)
	if err != nil {
		t.Fatalf("SelectDepartments failed: %v", err)
	}

	want := []Department{
		{ID: 1, Name: "Cardiology"},
		{ID: 2, Name: "General Practice"},
		{ID: 3, Name: "Orthopedics"},
	}
	if !reflect.DeepEqual(departments, want) {
		t.Errorf("Expected lexical surrogate ids %+v, got %+v", want, departments)
	}
}

func TestBuildFactCounts(t *testing.T) {
	db := buildTestWarehouse(t, sampleRows())
	ctx := context.Background()

	total, err := CountFacts(ctx, db, false)
	if err != nil {
		t.Fatalf("CountFacts failed: %v", err)
	}
	if total != 6 {
		t.Errorf("Expected 6 facts, got %d", total)
	}

	withDept, err := CountFacts(ctx, db, true)
	if err != nil {
		t.Fatalf("CountFacts failed: %v", err)
	}
	if withDept != 5 {
		t.Errorf("Expected 5 facts with a department key, got %d", withDept)
	}

	// Department rollup only sees resolved keys.
	waits, err := SelectDepartmentWaits(ctx, db)
	if err != nil {
		t.Fatalf("SelectDepartmentWaits failed: %v", err)
	}
	var rolledUp int64
	for _, dw := range waits {
		rolledUp += dw.TotalEncounters
	}
	if rolledUp != withDept {
		t.Errorf("Department rollup covers %d encounters, expected %d", rolledUp, withDept)
	}
}

func TestDailyVolumeAscending(t *testing.T) {
	db := buildTestWarehouse(t, sampleRows())

	daily, err := SelectDailyVolume(context.Background(), db, 0)
	if err != nil {
		t.Fatalf("SelectDailyVolume failed: %v", err)
	}
	if len(daily) != 2 {
		t.Fatalf("Expected 2 daily rows, got %d", len(daily))
	}
	if daily[0].EventDate != "2024-03-05" || daily[1].EventDate != "2024-03-06" {
		t.Errorf("Expected ascending dates, got %s then %s", daily[0].EventDate, daily[1].EventDate)
	}
	if daily[0].TotalEncounters != 3 || daily[1].TotalEncounters != 3 {
		t.Errorf("Unexpected daily totals: %+v", daily)
	}

	// 2024-03-05: two admissions out of three labeled encounters.
	if daily[0].AdmissionRate == nil || *daily[0].AdmissionRate < 0.66 || *daily[0].AdmissionRate > 0.67 {
		t.Errorf("Expected admission rate ~2/3 on first day, got %v", daily[0].AdmissionRate)
	}
}

func TestDailyVolumeWindow(t *testing.T) {
	db := buildTestWarehouse(t, sampleRows())

	daily, err := SelectDailyVolume(context.Background(), db, 1)
	if err != nil {
		t.Fatalf("SelectDailyVolume failed: %v", err)
	}
	if len(daily) != 1 {
		t.Fatalf("Expected trailing 1-day window to hold 1 row, got %d", len(daily))
	}
	if daily[0].EventDate != "2024-03-06" {
		t.Errorf("Expected most recent date only, got %s", daily[0].EventDate)
	}
}

func TestDepartmentWaitsDescending(t *testing.T) {
	db := buildTestWarehouse(t, sampleRows())

	waits, err := SelectDepartmentWaits(context.Background(), db)
	if err != nil {
		t.Fatalf("SelectDepartmentWaits failed: %v", err)
	}
	if len(waits) != 3 {
		t.Fatalf("Expected 3 department rows, got %d", len(waits))
	}
	for i := 1; i < len(waits); i++ {
		prev, cur := waits[i-1].AvgWaitTime, waits[i].AvgWaitTime
		if prev != nil && cur != nil && *prev < *cur {
			t.Errorf("Expected descending average wait, got %f before %f", *prev, *cur)
		}
	}
	// Orthopedics has the single slowest encounter (60 minutes).
	if waits[0].DepartmentName != "Orthopedics" {
		t.Errorf("Expected Orthopedics first, got %s", waits[0].DepartmentName)
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	rows := sampleRows()
	db := buildTestWarehouse(t, rows)
	ctx := context.Background()

	firstDaily, err := SelectDailyVolume(ctx, db, 0)
	if err != nil {
		t.Fatalf("SelectDailyVolume failed: %v", err)
	}
	firstWaits, err := SelectDepartmentWaits(ctx, db)
	if err != nil {
		t.Fatalf("SelectDepartmentWaits failed: %v", err)
	}

	if err := Build(ctx, db, rows); err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}

	secondDaily, err := SelectDailyVolume(ctx, db, 0)
	if err != nil {
		t.Fatalf("SelectDailyVolume failed: %v", err)
	}
	secondWaits, err := SelectDepartmentWaits(ctx, db)
	if err != nil {
		t.Fatalf("SelectDepartmentWaits failed: %v", err)
	}

	if !reflect.DeepEqual(firstDaily, secondDaily) {
		t.Errorf("Daily volume changed across identical rebuilds:\n%+v\n%+v", firstDaily, secondDaily)
	}
	if !reflect.DeepEqual(firstWaits, secondWaits) {
		t.Errorf("Department waits changed across identical rebuilds:\n%+v\n%+v", firstWaits, secondWaits)
	}
}

func TestFailedRebuildKeepsPreviousWarehouse(t *testing.T) {
	db := buildTestWarehouse(t, sampleRows())
	ctx := context.Background()

	wantDaily, err := SelectDailyVolume(ctx, db, 0)
	if err != nil {
		t.Fatalf("SelectDailyVolume failed: %v", err)
	}
	wantWaits, err := SelectDepartmentWaits(ctx, db)
	if err != nil {
		t.Fatalf("SelectDepartmentWaits failed: %v", err)
	}

	bad := append(sampleRows(), encounter.CleanEncounter{
		PatientID: "P-99", EventDate: "not-a-date", EventHour: 9, EventDayOfWeek: 0, EventMonth: 3,
		Age: f64(33), Department: str("Cardiology"), WaitTimeMinutes: f64(15), Admitted: i32(1),
	})
	if err := Build(ctx, db, bad); err == nil {
		t.Fatal("Expected rebuild with a malformed event date to fail")
	}

	// The failed rebuild must roll back wholesale: previous facts and gold
	// tables stay exactly as built.
	total, err := CountFacts(ctx, db, false)
	if err != nil {
		t.Fatalf("CountFacts failed: %v", err)
	}
	if total != 6 {
		t.Errorf("Expected the previous 6 facts to survive, got %d", total)
	}

	gotDaily, err := SelectDailyVolume(ctx, db, 0)
	if err != nil {
		t.Fatalf("SelectDailyVolume failed: %v", err)
	}
	gotWaits, err := SelectDepartmentWaits(ctx, db)
	if err != nil {
		t.Fatalf("SelectDepartmentWaits failed: %v", err)
	}
	if !reflect.DeepEqual(gotDaily, wantDaily) {
		t.Errorf("Daily volume changed after failed rebuild:\n%+v\n%+v", wantDaily, gotDaily)
	}
	if !reflect.DeepEqual(gotWaits, wantWaits) {
		t.Errorf("Department waits changed after failed rebuild:\n%+v\n%+v", wantWaits, gotWaits)
	}
}

func TestSelectTrainingRowsExcludesUnlabeled(t *testing.T) {
	db := buildTestWarehouse(t, sampleRows())

	training, err := SelectTrainingRows(context.Background(), db)
	if err != nil {
		t.Fatalf("SelectTrainingRows failed: %v", err)
	}
	if len(training) != 5 {
		t.Fatalf("Expected 5 labeled rows, got %d", len(training))
	}
	for _, tr := range training {
		if tr.Admitted != 0 && tr.Admitted != 1 {
			t.Errorf("Training label must be binary, got %d", tr.Admitted)
		}
	}
}
