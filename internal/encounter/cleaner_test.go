package encounter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testHeader = "Patient Id,Patient Admission Date,Patient Admission Time,Merged," +
	"Patient Gender,Patient Age,Patient Race,Department Referral," +
	"Patient Admission Flag,Patient Satisfaction Score,Patient Waittime"

func writeTestCSV(t *testing.T, rows ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "raw.csv")
	content := testHeader + "\n" + strings.Join(rows, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write test CSV: %v", err)
	}
	return path
}

func TestCleanFileValidRow(t *testing.T) {
	// 2024-03-05 is a Tuesday
	path := writeTestCSV(t,
		"P-1,2024-03-05,14:30:00,2024-03-05 14:30:00,F,45,White,Cardiology,Admission,7,30",
	)

	rows, stats, err := CleanFile(path)
	if err != nil {
		t.Fatalf("CleanFile failed: %v", err)
	}
	if stats.RowsKept != 1 || len(rows) != 1 {
		t.Fatalf("Expected 1 kept row, got %d (stats %+v)", len(rows), stats)
	}

	row := rows[0]
	if row.PatientID != "P-1" {
		t.Errorf("Expected patient P-1, got %s", row.PatientID)
	}
	if row.EventDate != "2024-03-05" {
		t.Errorf("Expected event date 2024-03-05, got %s", row.EventDate)
	}
	if row.EventHour != 14 {
		t.Errorf("Expected event hour 14, got %d", row.EventHour)
	}
	if row.EventDayOfWeek != 1 {
		t.Errorf("Expected Tuesday (Monday=0) to map to 1, got %d", row.EventDayOfWeek)
	}
	if row.EventMonth != 3 {
		t.Errorf("Expected event month 3, got %d", row.EventMonth)
	}
	if row.Admitted == nil || *row.Admitted != 1 {
		t.Errorf("Expected admitted=1, got %v", row.Admitted)
	}
	if row.Age == nil || *row.Age != 45 {
		t.Errorf("Expected age 45, got %v", row.Age)
	}
	if row.WaitTimeMinutes == nil || *row.WaitTimeMinutes != 30 {
		t.Errorf("Expected wait 30, got %v", row.WaitTimeMinutes)
	}
}

func TestCleanFileRowPolicy(t *testing.T) {
	tests := []struct {
		name     string
		row      string
		wantKept int
	}{
		{
			name:     "out of range age drops row",
			row:      "P-2,2024-03-05,10:00:00,2024-03-05 10:00:00,M,130,Asian,Cardiology,Not Admission,5,10",
			wantKept: 0,
		},
		{
			name:     "negative wait drops row",
			row:      "P-3,2024-03-05,10:00:00,2024-03-05 10:00:00,M,40,Asian,Cardiology,Not Admission,5,-10",
			wantKept: 0,
		},
		{
			name:     "satisfaction above 10 drops row",
			row:      "P-4,2024-03-05,10:00:00,2024-03-05 10:00:00,M,40,Asian,Cardiology,Not Admission,11,10",
			wantKept: 0,
		},
		{
			name:     "unparseable timestamp drops row",
			row:      "P-5,not-a-date,oops,also-not-a-date,M,40,Asian,Cardiology,Not Admission,5,10",
			wantKept: 0,
		},
		{
			name:     "unmappable admission flag kept with null label",
			row:      "P-6,2024-03-05,10:00:00,2024-03-05 10:00:00,M,40,Asian,Cardiology,Maybe,5,10",
			wantKept: 1,
		},
		{
			name:     "missing numerics kept with nulls",
			row:      "P-7,2024-03-05,10:00:00,2024-03-05 10:00:00,M,,Asian,Cardiology,Admission,,",
			wantKept: 1,
		},
		{
			name:     "fallback to date plus time when merged missing",
			row:      "P-8,2024-03-05,10:00:00,,M,40,Asian,Cardiology,Admission,5,10",
			wantKept: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTestCSV(t, tt.row)
			rows, _, err := CleanFile(path)
			if err != nil {
				t.Fatalf("CleanFile failed: %v", err)
			}
			if len(rows) != tt.wantKept {
				t.Errorf("Expected %d kept rows, got %d", tt.wantKept, len(rows))
			}
			if tt.wantKept == 1 && rows[0].WaitTimeMinutes != nil && *rows[0].WaitTimeMinutes < 0 {
				t.Errorf("Kept row has negative wait time")
			}
		})
	}
}

func TestCleanFileStatsAttribution(t *testing.T) {
	path := writeTestCSV(t,
		"P-1,2024-03-05,10:00:00,2024-03-05 10:00:00,F,30,White,Cardiology,Admission,8,20",
		"P-2,2024-03-05,10:00:00,2024-03-05 10:00:00,M,130,Asian,Cardiology,Not Admission,5,10",
		"P-3,not-a-date,oops,also-not-a-date,M,40,Asian,Cardiology,Not Admission,5,10",
	)

	_, stats, err := CleanFile(path)
	if err != nil {
		t.Fatalf("CleanFile failed: %v", err)
	}

	if stats.OutOfRange != 1 {
		t.Errorf("Expected 1 out-of-range drop, got %d", stats.OutOfRange)
	}
	if stats.BadTimestamp != 1 {
		t.Errorf("Expected 1 bad-timestamp drop, got %d", stats.BadTimestamp)
	}
	// Domain violations and parse failures must not leak into the
	// unreadable-row counter.
	if stats.Unreadable != 0 {
		t.Errorf("Expected 0 unreadable rows, got %d", stats.Unreadable)
	}
	if stats.RowsKept != 1 {
		t.Errorf("Expected 1 kept row, got %d", stats.RowsKept)
	}
}

func TestCleanFileDropsDuplicates(t *testing.T) {
	row := "P-9,2024-03-05,10:00:00,2024-03-05 10:00:00,F,30,White,Orthopedics,Admission,8,20"
	path := writeTestCSV(t, row, row, row)

	rows, stats, err := CleanFile(path)
	if err != nil {
		t.Fatalf("CleanFile failed: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("Expected duplicates collapsed to 1 row, got %d", len(rows))
	}
	if stats.Duplicates != 2 {
		t.Errorf("Expected 2 duplicates counted, got %d", stats.Duplicates)
	}
}

func TestCleanFileAdmittedAlwaysBinary(t *testing.T) {
	path := writeTestCSV(t,
		"P-1,2024-03-05,10:00:00,2024-03-05 10:00:00,F,30,White,Cardiology,Admission,8,20",
		"P-2,2024-03-05,11:00:00,2024-03-05 11:00:00,M,40,Black,General Practice,Not Admission,6,35",
		"P-3,2024-03-05,12:00:00,2024-03-05 12:00:00,F,50,Asian,None,yes,7,15",
		"P-4,2024-03-05,13:00:00,2024-03-05 13:00:00,M,60,White,Orthopedics,unknown,5,25",
	)

	rows, _, err := CleanFile(path)
	if err != nil {
		t.Fatalf("CleanFile failed: %v", err)
	}
	for _, row := range rows {
		if row.Admitted != nil && *row.Admitted != 0 && *row.Admitted != 1 {
			t.Errorf("Patient %s has non-binary admitted value %d", row.PatientID, *row.Admitted)
		}
	}
}

func TestNewRawReaderMissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.csv")
	if err := os.WriteFile(path, []byte("Patient Id,Patient Age\nP-1,40\n"), 0600); err != nil {
		t.Fatalf("Failed to write test CSV: %v", err)
	}

	_, err := NewRawReader(path)
	if err == nil {
		t.Fatal("Expected error for missing required columns")
	}
	if !strings.Contains(err.Error(), "missing required columns") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestMapAdmittedFlag(t *testing.T) {
	tests := []struct {
		raw  string
		want *int32
	}{
		{"Admission", int32Ptr(1)},
		{"Not Admission", int32Ptr(0)},
		{"  admission  ", int32Ptr(1)},
		{"TRUE", int32Ptr(1)},
		{"no", int32Ptr(0)},
		{"", nil},
		{"maybe", nil},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var stats Stats
			got := mapAdmittedFlag(tt.raw, &stats)
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("Expected nil, got %d", *got)
			case tt.want != nil && got == nil:
				t.Errorf("Expected %d, got nil", *tt.want)
			case tt.want != nil && got != nil && *tt.want != *got:
				t.Errorf("Expected %d, got %d", *tt.want, *got)
			}
		})
	}
}

func TestMondayIndexedWeekday(t *testing.T) {
	tests := []struct {
		weekday time.Weekday
		want    int32
	}{
		{time.Monday, 0},
		{time.Tuesday, 1},
		{time.Saturday, 5},
		{time.Sunday, 6},
	}

	for _, tt := range tests {
		if got := mondayIndexedWeekday(tt.weekday); got != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.weekday, tt.want, got)
		}
	}
}

func TestIsPlaceholderDepartment(t *testing.T) {
	tests := []struct {
		label string
		want  bool
	}{
		{"None", true},
		{"NONE", true},
		{"n/a", true},
		{"", true},
		{"Cardiology", false},
		{"General Practice", false},
	}

	for _, tt := range tests {
		if got := isPlaceholderDepartment(tt.label); got != tt.want {
			t.Errorf("%q: expected %v, got %v", tt.label, tt.want, got)
		}
	}
}

func int32Ptr(v int32) *int32 {
	return &v
}
