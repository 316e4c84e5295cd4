// internal/workers/data-access/query-postgresql/queries/medication.go
package queries

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"afh-workers/internal/models"
)

// MonthLayout is the accepted format of the month parameter.
const MonthLayout = "2006-01"

// ResidentMedications returns the MAR rows for one resident and month: every
// medication active during the month with the initials recorded per day.
func ResidentMedications(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, int64, error) {
	residentID, err := stringParam(params, "residentId")
	if err != nil {
		return nil, 0, 0, err
	}
	month, err := stringParam(params, "month")
	if err != nil {
		return nil, 0, 0, err
	}
	from, err := time.Parse(MonthLayout, month)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: month must be YYYY-MM", ErrMissingParam)
	}
	to := from.AddDate(0, 1, 0)

	start := time.Now()

	rows, err := db.QueryContext(ctx, `
		SELECT id, name, dose, route, frequency, times, prescriber, start_date
		FROM resident_medications
		WHERE resident_id = $1
		  AND start_date < $3
		  AND (end_date IS NULL OR end_date >= $2)
		ORDER BY name, id`, residentID, from, to)
	if err != nil {
		return nil, 0, 0, err
	}
	defer rows.Close()

	results := []models.MedicationRow{}
	index := map[string]int{}
	for rows.Next() {
		var (
			id                string
			m                 models.MedicationRow
			times, prescriber sql.NullString
			startDate         sql.NullTime
		)
		if err := rows.Scan(&id, &m.Name, &m.Dose, &m.Route, &m.Frequency, &times, &prescriber, &startDate); err != nil {
			return nil, 0, 0, err
		}
		m.Times = times.String
		m.Prescriber = prescriber.String
		if startDate.Valid {
			m.StartDate = startDate.Time.Format("2006-01-02")
		}
		m.Administrations = map[string]string{}
		index[id] = len(results)
		results = append(results, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, 0, err
	}

	if len(results) > 0 {
		if err := loadAdministrations(ctx, db, residentID, from, to, results, index); err != nil {
			return nil, 0, 0, err
		}
	}

	execTime := time.Since(start).Milliseconds()
	return results, len(results), execTime, nil
}

func loadAdministrations(ctx context.Context, db *sql.DB, residentID string, from, to time.Time, meds []models.MedicationRow, index map[string]int) error {
	rows, err := db.QueryContext(ctx, `
		SELECT medication_id, administered_at, initials
		FROM medication_administrations
		WHERE resident_id = $1
		  AND administered_at >= $2
		  AND administered_at < $3
		ORDER BY administered_at`, residentID, from, to)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			medicationID, initials string
			at                     time.Time
		)
		if err := rows.Scan(&medicationID, &at, &initials); err != nil {
			return err
		}
		i, ok := index[medicationID]
		if !ok {
			continue
		}
		// one cell per day; later doses on the same day append
		day := strconv.Itoa(at.Day())
		if prev := meds[i].Administrations[day]; prev != "" {
			initials = prev + "/" + initials
		}
		meds[i].Administrations[day] = initials
	}
	return rows.Err()
}
