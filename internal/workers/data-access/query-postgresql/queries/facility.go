// internal/workers/data-access/query-postgresql/queries/facility.go
package queries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"afh-workers/internal/common/database"
	"afh-workers/internal/models"

	"github.com/lib/pq"
)

func FacilityDetails(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, int64, error) {
	facilityID, err := stringParam(params, "facilityId")
	if err != nil {
		return nil, 0, 0, err
	}

	start := time.Now()

	row := db.QueryRowContext(ctx, `
		SELECT `+database.FacilityColumns+`
		FROM facilities
		WHERE id = $1`, facilityID)
	f, err := database.ScanFacility(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, 0, fmt.Errorf("%w: %s", database.ErrFacilityNotFound, facilityID)
	}
	if err != nil {
		return nil, 0, 0, err
	}

	execTime := time.Since(start).Milliseconds()
	return f, 1, execTime, nil
}

func FacilitiesByIDs(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, int64, error) {
	ids, ok := params["facilityIds"].([]string)
	if !ok || len(ids) == 0 {
		return nil, 0, 0, fmt.Errorf("%w: facilityIds", ErrMissingParam)
	}

	start := time.Now()

	rows, err := db.QueryContext(ctx, `
		SELECT `+database.FacilityColumns+`
		FROM facilities
		WHERE id = ANY($1)
		ORDER BY name, id`, pq.Array(ids))
	if err != nil {
		return nil, 0, 0, err
	}
	defer rows.Close()

	results := []models.Facility{}
	for rows.Next() {
		f, err := database.ScanFacility(rows)
		if err != nil {
			return nil, 0, 0, err
		}
		results = append(results, f)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, 0, err
	}

	execTime := time.Since(start).Milliseconds()
	return results, len(results), execTime, nil
}

func FacilityAvailability(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, int64, error) {
	facilityID, err := stringParam(params, "facilityId")
	if err != nil {
		return nil, 0, 0, err
	}

	start := time.Now()

	var a models.FacilityAvailability
	err = db.QueryRowContext(ctx, `
		SELECT id, capacity, available_beds, updated_at
		FROM facilities
		WHERE id = $1`, facilityID).Scan(
		&a.FacilityID, &a.Capacity, &a.AvailableBeds, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, 0, fmt.Errorf("%w: %s", database.ErrFacilityNotFound, facilityID)
	}
	if err != nil {
		return nil, 0, 0, err
	}

	execTime := time.Since(start).Milliseconds()
	return a, 1, execTime, nil
}
