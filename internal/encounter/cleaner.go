package encounter

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// requiredColumns are the source column headers the raw export must carry.
// The cleaner aborts when any of them is missing; everything after the header
// check is best-effort per row.
var requiredColumns = []string{
	"Patient Id",
	"Patient Admission Date",
	"Patient Admission Time",
	"Merged",
	"Patient Gender",
	"Patient Age",
	"Patient Race",
	"Department Referral",
	"Patient Admission Flag",
	"Patient Satisfaction Score",
	"Patient Waittime",
}

// admittedMapping maps raw admission flag spellings to the binary label.
// "Admission"/"Not Admission" are the values the source system emits; the
// rest tolerate re-exports that already binarized the flag.
var admittedMapping = map[string]int32{
	"admission":     1,
	"not admission": 0,
	"1":             1,
	"0":             0,
	"true":          1,
	"false":         0,
	"yes":           1,
	"no":            0,
}

// datetimeLayouts are tried in order against the merged timestamp and the
// date+time fallback concatenation.
var datetimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"01-02-2006 15:04",
}

var placeholderDepartments = map[string]bool{
	"":     true,
	"none": true,
	"na":   true,
	"n/a":  true,
	"null": true,
}

func isPlaceholderDepartment(label string) bool {
	return placeholderDepartments[strings.ToLower(strings.TrimSpace(label))]
}

// RawReader streams the raw encounter CSV one record at a time.
type RawReader struct {
	file   *os.File
	csv    *csv.Reader
	colIdx map[string]int
	rowNum int64
}

// NewRawReader opens the raw CSV and validates that all required columns are
// present in the header.
func NewRawReader(filepath string) (*RawReader, error) {
	file, err := os.Open(filepath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath, err)
	}

	bufReader := bufio.NewReaderSize(file, 256*1024)

	// Skip UTF-8 BOM if present
	bom, err := bufReader.Peek(3)
	if err == nil && len(bom) >= 3 && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		bufReader.Discard(3)
	}

	reader := csv.NewReader(bufReader)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	r := &RawReader{
		file:   file,
		csv:    reader,
		colIdx: make(map[string]int),
	}

	header, err := reader.Read()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("read header row: %w", err)
	}
	r.rowNum++
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i, h := range header {
		r.colIdx[strings.TrimSpace(h)] = i
	}

	var missing []string
	for _, c := range requiredColumns {
		if _, ok := r.colIdx[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		file.Close()
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	return r, nil
}

// Next returns the fields of the next data row, skipping blanks.
// Returns io.EOF when the file is exhausted.
func (r *RawReader) Next() ([]string, error) {
	for {
		row, err := r.csv.Read()
		if err != nil {
			return nil, err
		}
		r.rowNum++

		if len(row) == 0 || (len(row) == 1 && row[0] == "") {
			continue
		}
		return row, nil
	}
}

// RowNum returns the current CSV row number (1-based).
func (r *RawReader) RowNum() int64 {
	return r.rowNum
}

func (r *RawReader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

func (r *RawReader) field(row []string, col string) string {
	if i, ok := r.colIdx[col]; ok && i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

// CleanFile reads the raw CSV and produces cleaned encounter rows.
//
// Policy is best-effort: values that fail coercion become NULL, never a row
// error. A row is dropped only when it is an exact duplicate, when its event
// timestamp cannot be parsed (no time features can be derived), or when a
// present numeric value is out of its valid domain (age 0-120, wait >= 0,
// satisfaction 0-10).
func CleanFile(rawPath string) ([]CleanEncounter, Stats, error) {
	reader, err := NewRawReader(rawPath)
	if err != nil {
		return nil, Stats{}, err
	}
	defer reader.Close()

	var stats Stats
	var cleaned []CleanEncounter
	seen := make(map[string]bool)

	for {
		row, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Malformed CSV rows are a data-quality problem, not a build
			// failure. Count and move on.
			log.Warn().Err(err).Int64("row", reader.RowNum()).Msg("Skipping unreadable CSV row")
			stats.RowsRead++
			stats.Unreadable++
			continue
		}
		stats.RowsRead++

		key := strings.Join(row, "\x1f")
		if seen[key] {
			stats.Duplicates++
			continue
		}
		seen[key] = true

		enc, ok := cleanRow(reader, row, &stats)
		if !ok {
			continue
		}

		if enc.Admitted != nil {
			stats.AdmittedKnown++
		}
		cleaned = append(cleaned, enc)
		stats.RowsKept++
	}

	log.Info().
		Int("rows_read", stats.RowsRead).
		Int("rows_kept", stats.RowsKept).
		Int("duplicates", stats.Duplicates).
		Int("unreadable", stats.Unreadable).
		Int("bad_timestamp", stats.BadTimestamp).
		Int("out_of_range", stats.OutOfRange).
		Int("nulls_filled", stats.NullsFilled).
		Int("admitted_known", stats.AdmittedKnown).
		Msg("Cleaning completed")

	return cleaned, stats, nil
}

func cleanRow(r *RawReader, row []string, stats *Stats) (CleanEncounter, bool) {
	ts, ok := parseEventTime(
		r.field(row, "Merged"),
		r.field(row, "Patient Admission Date"),
		r.field(row, "Patient Admission Time"),
	)
	if !ok {
		stats.BadTimestamp++
		return CleanEncounter{}, false
	}

	age := parseNullableFloat(r.field(row, "Patient Age"), stats)
	if age != nil && (*age < 0 || *age > 120) {
		stats.OutOfRange++
		return CleanEncounter{}, false
	}

	wait := parseNullableFloat(r.field(row, "Patient Waittime"), stats)
	if wait != nil && *wait < 0 {
		stats.OutOfRange++
		return CleanEncounter{}, false
	}

	satisfaction := parseNullableFloat(r.field(row, "Patient Satisfaction Score"), stats)
	if satisfaction != nil && (*satisfaction < 0 || *satisfaction > 10) {
		stats.OutOfRange++
		return CleanEncounter{}, false
	}

	return CleanEncounter{
		PatientID:         r.field(row, "Patient Id"),
		EventDate:         ts.Format("2006-01-02"),
		EventHour:         int32(ts.Hour()),
		EventDayOfWeek:    mondayIndexedWeekday(ts.Weekday()),
		EventMonth:        int32(ts.Month()),
		Age:               age,
		Gender:            nullableString(r.field(row, "Patient Gender")),
		Race:              nullableString(r.field(row, "Patient Race")),
		Department:        nullableString(r.field(row, "Department Referral")),
		WaitTimeMinutes:   wait,
		SatisfactionScore: satisfaction,
		Admitted:          mapAdmittedFlag(r.field(row, "Patient Admission Flag"), stats),
	}, true
}

// parseEventTime prefers the merged timestamp and falls back to the
// concatenated admission date + time.
func parseEventTime(merged, date, timeOfDay string) (time.Time, bool) {
	if ts, ok := parseDatetime(merged); ok {
		return ts, true
	}
	if date != "" {
		if ts, ok := parseDatetime(date + " " + timeOfDay); ok {
			return ts, true
		}
	}
	return time.Time{}, false
}

func parseDatetime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range datetimeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// mondayIndexedWeekday converts Go's Sunday=0 convention to Monday=0.
func mondayIndexedWeekday(wd time.Weekday) int32 {
	return int32((int(wd) + 6) % 7)
}

// mapAdmittedFlag maps the raw flag to 0/1. Unmappable or empty values stay
// NULL; those rows are kept but excluded from model training downstream.
func mapAdmittedFlag(raw string, stats *Stats) *int32 {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		stats.NullsFilled++
		return nil
	}
	if v, ok := admittedMapping[s]; ok {
		return &v
	}
	stats.NullsFilled++
	return nil
}

func parseNullableFloat(s string, stats *Stats) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		stats.NullsFilled++
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		stats.NullsFilled++
		return nil
	}
	return &f
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
