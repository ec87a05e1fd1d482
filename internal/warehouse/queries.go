package warehouse

import (
	"context"
	"database/sql"
	"fmt"
)

// SelectDailyVolume returns gold_daily_volume rows, ascending by date.
// days > 0 bounds the result to the trailing window ending at the most recent
// date in the table; days <= 0 returns everything.
func SelectDailyVolume(ctx context.Context, db *sql.DB, days int) ([]DailyVolume, error) {
	query := `
		SELECT event_date, total_encounters, avg_wait_time, avg_satisfaction, admission_rate
		FROM gold_daily_volume
		ORDER BY event_date ASC`
	var rows *sql.Rows
	var err error
	if days > 0 {
		query = `
			SELECT event_date, total_encounters, avg_wait_time, avg_satisfaction, admission_rate
			FROM gold_daily_volume
			WHERE event_date > (SELECT date(MAX(event_date), '-' || ? || ' days') FROM gold_daily_volume)
			ORDER BY event_date ASC`
		rows, err = db.QueryContext(ctx, query, days)
	} else {
		rows, err = db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("query gold_daily_volume: %w", err)
	}
	defer rows.Close()

	var result []DailyVolume
	for rows.Next() {
		var dv DailyVolume
		if err := rows.Scan(&dv.EventDate, &dv.TotalEncounters, &dv.AvgWaitTime, &dv.AvgSatisfaction, &dv.AdmissionRate); err != nil {
			return nil, fmt.Errorf("scan gold_daily_volume row: %w", err)
		}
		result = append(result, dv)
	}
	return result, rows.Err()
}

// SelectDepartmentWaits returns gold_department_waits rows in build order:
// descending average wait time.
func SelectDepartmentWaits(ctx context.Context, db *sql.DB) ([]DepartmentWaits, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT department_id, department_name, total_encounters, avg_wait_time, avg_satisfaction, admission_rate
		FROM gold_department_waits
		ORDER BY avg_wait_time DESC`)
	if err != nil {
		return nil, fmt.Errorf("query gold_department_waits: %w", err)
	}
	defer rows.Close()

	var result []DepartmentWaits
	for rows.Next() {
		var dw DepartmentWaits
		if err := rows.Scan(&dw.DepartmentID, &dw.DepartmentName, &dw.TotalEncounters, &dw.AvgWaitTime, &dw.AvgSatisfaction, &dw.AdmissionRate); err != nil {
			return nil, fmt.Errorf("scan gold_department_waits row: %w", err)
		}
		result = append(result, dw)
	}
	return result, rows.Err()
}

// SelectDepartments returns the department dimension in surrogate id order,
// used by the prediction service to resolve labels at request time.
func SelectDepartments(ctx context.Context, db *sql.DB) ([]Department, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT department_id, department_name
		FROM dim_department
		ORDER BY department_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query dim_department: %w", err)
	}
	defer rows.Close()

	var result []Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, fmt.Errorf("scan dim_department row: %w", err)
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

// SelectTrainingRows returns every labeled fact row. Features are the
// leakage-safe set available at or near arrival time.
func SelectTrainingRows(ctx context.Context, db *sql.DB) ([]TrainingRow, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT age, gender, race, department_id, event_hour, event_dayofweek, wait_time_minutes, admitted
		FROM fact_encounter
		WHERE admitted IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("query training rows: %w", err)
	}
	defer rows.Close()

	var result []TrainingRow
	for rows.Next() {
		var tr TrainingRow
		if err := rows.Scan(&tr.Age, &tr.Gender, &tr.Race, &tr.DepartmentID,
			&tr.EventHour, &tr.EventDayOfWeek, &tr.WaitTimeMinutes, &tr.Admitted); err != nil {
			return nil, fmt.Errorf("scan training row: %w", err)
		}
		result = append(result, tr)
	}
	return result, rows.Err()
}

// CountFacts returns the fact table row count, optionally restricted to rows
// with a resolved department key.
func CountFacts(ctx context.Context, db *sql.DB, withDepartmentOnly bool) (int64, error) {
	query := `SELECT COUNT(*) FROM fact_encounter`
	if withDepartmentOnly {
		query += ` WHERE department_id IS NOT NULL`
	}
	var n int64
	if err := db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count facts: %w", err)
	}
	return n, nil
}
