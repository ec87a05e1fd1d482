package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"stealthcompany.com/hospitalops/internal/encounter"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Open opens (or creates) the warehouse database file for writing.
func Open(dbPath string) (*sql.DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create warehouse directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open warehouse: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping warehouse: %w", err)
	}
	return db, nil
}

// OpenReadOnly opens an already-built warehouse file for serving.
func OpenReadOnly(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?mode=ro&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open warehouse read-only: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping warehouse: %w", err)
	}
	return db, nil
}

// dropStatements tear down the Gold layer in dependency order. Every build is
// a full rebuild; there is no incremental path.
var dropStatements = []string{
	`DROP TABLE IF EXISTS gold_department_waits`,
	`DROP TABLE IF EXISTS gold_daily_volume`,
	`DROP TABLE IF EXISTS fact_encounter`,
	`DROP TABLE IF EXISTS dim_department`,
	`DROP TABLE IF EXISTS dim_date`,
}

var createStatements = []string{
	`CREATE TABLE dim_date (
		date_id INTEGER PRIMARY KEY,
		full_date TEXT NOT NULL UNIQUE,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		day INTEGER NOT NULL,
		day_of_week INTEGER NOT NULL
	)`,
	`CREATE TABLE dim_department (
		department_id INTEGER PRIMARY KEY,
		department_name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE fact_encounter (
		encounter_id INTEGER PRIMARY KEY AUTOINCREMENT,
		patient_id TEXT,
		date_id INTEGER NOT NULL REFERENCES dim_date(date_id),
		department_id INTEGER REFERENCES dim_department(department_id),
		age REAL,
		gender TEXT,
		race TEXT,
		event_hour INTEGER NOT NULL,
		event_dayofweek INTEGER NOT NULL,
		event_month INTEGER NOT NULL,
		wait_time_minutes REAL,
		satisfaction_score REAL,
		admitted INTEGER
	)`,
	`CREATE INDEX idx_fact_date ON fact_encounter(date_id)`,
	`CREATE INDEX idx_fact_department ON fact_encounter(department_id)`,
	`CREATE TABLE gold_daily_volume (
		event_date TEXT PRIMARY KEY,
		total_encounters INTEGER NOT NULL,
		avg_wait_time REAL,
		avg_satisfaction REAL,
		admission_rate REAL
	)`,
	`CREATE TABLE gold_department_waits (
		department_id INTEGER PRIMARY KEY,
		department_name TEXT NOT NULL,
		total_encounters INTEGER NOT NULL,
		avg_wait_time REAL,
		avg_satisfaction REAL,
		admission_rate REAL
	)`,
}

// Aggregates are inserted in presentation order: daily volume ascending by
// date, department waits descending by average wait. Facts with a NULL
// department key drop out of the department rollup via the inner join.
const insertDailyVolume = `
	INSERT INTO gold_daily_volume
		(event_date, total_encounters, avg_wait_time, avg_satisfaction, admission_rate)
	SELECT
		d.full_date,
		COUNT(*),
		AVG(f.wait_time_minutes),
		AVG(f.satisfaction_score),
		AVG(CAST(f.admitted AS REAL))
	FROM fact_encounter f
	JOIN dim_date d ON f.date_id = d.date_id
	GROUP BY d.full_date
	ORDER BY d.full_date ASC`

const insertDepartmentWaits = `
	INSERT INTO gold_department_waits
		(department_id, department_name, total_encounters, avg_wait_time, avg_satisfaction, admission_rate)
	SELECT
		dep.department_id,
		dep.department_name,
		COUNT(*),
		AVG(f.wait_time_minutes),
		AVG(f.satisfaction_score),
		AVG(CAST(f.admitted AS REAL))
	FROM fact_encounter f
	JOIN dim_department dep ON f.department_id = dep.department_id
	GROUP BY dep.department_id, dep.department_name
	ORDER BY AVG(f.wait_time_minutes) DESC`

// Build rebuilds the whole Gold layer from the cleaned snapshot rows inside
// one transaction. Any failure rolls everything back, so the warehouse is
// always either the previous full snapshot or the new one, never a mix.
func Build(ctx context.Context, db *sql.DB, rows []encounter.CleanEncounter) error {
	start := time.Now()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rebuild transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range dropStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("drop gold tables: %w", err)
		}
	}
	for _, stmt := range createStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create gold tables: %w", err)
		}
	}

	if err := buildDimDate(ctx, tx, rows); err != nil {
		return err
	}
	departmentIDs, err := buildDimDepartment(ctx, tx, rows)
	if err != nil {
		return err
	}
	factCount, err := buildFactEncounter(ctx, tx, rows, departmentIDs)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, insertDailyVolume); err != nil {
		return fmt.Errorf("build gold_daily_volume: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insertDepartmentWaits); err != nil {
		return fmt.Errorf("build gold_department_waits: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rebuild: %w", err)
	}

	log.Info().
		Int("facts", factCount).
		Int("departments", len(departmentIDs)).
		Dur("elapsed", time.Since(start)).
		Msg("Gold layer rebuilt")

	return nil
}

// buildDimDate inserts one row per distinct calendar date, ascending.
// date_id is the YYYYMMDD integer form of the date.
func buildDimDate(ctx context.Context, tx *sql.Tx, rows []encounter.CleanEncounter) error {
	distinct := make(map[string]bool)
	for i := range rows {
		distinct[rows[i].EventDate] = true
	}
	dates := make([]string, 0, len(distinct))
	for d := range distinct {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO dim_date (date_id, full_date, year, month, day, day_of_week)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare dim_date insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range dates {
		ts, err := time.Parse("2006-01-02", d)
		if err != nil {
			return fmt.Errorf("malformed event date %q: %w", d, err)
		}
		id, err := dateID(d)
		if err != nil {
			return err
		}
		dow := (int(ts.Weekday()) + 6) % 7 // Monday=0
		if _, err := stmt.ExecContext(ctx, id, d, ts.Year(), int(ts.Month()), ts.Day(), dow); err != nil {
			return fmt.Errorf("insert dim_date row %s: %w", d, err)
		}
	}
	return nil
}

func dateID(fullDate string) (int64, error) {
	id, err := strconv.ParseInt(strings.ReplaceAll(fullDate, "-", ""), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed event date %q: %w", fullDate, err)
	}
	return id, nil
}

// buildDimDepartment inserts one row per distinct non-placeholder department
// label and returns the label → surrogate id mapping. Ids follow ascending
// lexical order of the label.
func buildDimDepartment(ctx context.Context, tx *sql.Tx, rows []encounter.CleanEncounter) (map[string]int64, error) {
	distinct := make(map[string]bool)
	for i := range rows {
		if rows[i].HasDepartment() {
			distinct[*rows[i].Department] = true
		}
	}
	labels := make([]string, 0, len(distinct))
	for l := range distinct {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO dim_department (department_id, department_name) VALUES (?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare dim_department insert: %w", err)
	}
	defer stmt.Close()

	ids := make(map[string]int64, len(labels))
	for i, label := range labels {
		id := int64(i + 1)
		if _, err := stmt.ExecContext(ctx, id, label); err != nil {
			return nil, fmt.Errorf("insert dim_department row %q: %w", label, err)
		}
		ids[label] = id
	}
	return ids, nil
}

// buildFactEncounter inserts one fact row per encounter. Departments that
// don't resolve against the dimension keep a NULL foreign key.
func buildFactEncounter(ctx context.Context, tx *sql.Tx, rows []encounter.CleanEncounter, departmentIDs map[string]int64) (int, error) {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO fact_encounter
			(patient_id, date_id, department_id, age, gender, race,
			 event_hour, event_dayofweek, event_month,
			 wait_time_minutes, satisfaction_score, admitted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare fact_encounter insert: %w", err)
	}
	defer stmt.Close()

	count := 0
	for i := range rows {
		row := &rows[i]

		id, err := dateID(row.EventDate)
		if err != nil {
			return 0, err
		}

		var departmentID interface{}
		if row.HasDepartment() {
			if resolved, ok := departmentIDs[*row.Department]; ok {
				departmentID = resolved
			}
		}

		_, err = stmt.ExecContext(ctx,
			row.PatientID, id, departmentID,
			nullFloat(row.Age), nullString(row.Gender), nullString(row.Race),
			row.EventHour, row.EventDayOfWeek, row.EventMonth,
			nullFloat(row.WaitTimeMinutes), nullFloat(row.SatisfactionScore), nullInt32(row.Admitted),
		)
		if err != nil {
			return 0, fmt.Errorf("insert fact_encounter row %d: %w", i, err)
		}
		count++
	}
	return count, nil
}

func nullFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullString(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullInt32(v *int32) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
