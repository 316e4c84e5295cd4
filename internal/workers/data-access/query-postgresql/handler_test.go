package querypostgresql

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "afh-workers/internal/common/errors"
	"afh-workers/internal/common/logger"
	"afh-workers/internal/models"
	"afh-workers/internal/workers/data-access/query-postgresql/queries"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var facilityColumnNames = []string{
	"id", "name", "license_number", "description", "capacity", "available_beds",
	"price_min", "price_max", "accepts_medicaid", "accepts_ltc_insurance",
	"specialties", "medical_services", "daily_services", "amenities",
	"address", "city", "zip", "latitude", "longitude", "rating", "updated_at",
}

func createTestConfig() *Config {
	cfg := LoadConfig()
	cfg.Timeout = 5 * time.Second
	return cfg
}

func facilityRow(rows *sqlmock.Rows, id, name string) *sqlmock.Rows {
	return rows.AddRow(
		id, name, "AFH-"+id, "Family home", 6, 2,
		5000, 6500, true, false,
		"{dementia}", "{medication_management}", "{bathing}", "{garden}",
		"123 Main St", "Seattle", "98107", 47.6687, -122.3847, 4.5, time.Now(),
	)
}

func setupMock(t *testing.T) (*Handler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewHandler(createTestConfig(), db, logger.NewTestLogger(t)), mock
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	october := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		input          *Input
		mockQuery      func(mock sqlmock.Sqlmock)
		validateOutput func(t *testing.T, output *Output)
	}{
		{
			name:  "facility details",
			input: &Input{QueryType: string(models.QueryTypeFacilityDetails), FacilityID: "fac-1"},
			mockQuery: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM facilities\s+WHERE id = \$1`).
					WithArgs("fac-1").
					WillReturnRows(facilityRow(sqlmock.NewRows(facilityColumnNames), "fac-1", "Ballard Garden Home"))
			},
			validateOutput: func(t *testing.T, output *Output) {
				assert.Equal(t, 1, output.RowCount)
				f := output.Data.(models.Facility)
				assert.Equal(t, "Ballard Garden Home", f.Name)
				assert.Equal(t, []string{"dementia"}, f.Specialties)
				assert.True(t, f.Location.HasPoint())
			},
		},
		{
			name:  "facilities by ids",
			input: &Input{QueryType: string(models.QueryTypeFacilitiesByIDs), FacilityIDs: []string{"fac-1", "fac-2", "fac-3"}},
			mockQuery: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(facilityColumnNames)
				facilityRow(rows, "fac-1", "Ballard Garden Home")
				facilityRow(rows, "fac-2", "Fremont Family Care")
				mock.ExpectQuery(`WHERE id = ANY\(\$1\)`).
					WithArgs(sqlmock.AnyArg()).
					WillReturnRows(rows)
			},
			validateOutput: func(t *testing.T, output *Output) {
				assert.Equal(t, 2, output.RowCount)
				list := output.Data.([]models.Facility)
				assert.Equal(t, "fac-2", list[1].ID)
			},
		},
		{
			name:  "facility availability",
			input: &Input{QueryType: string(models.QueryTypeFacilityAvailability), FacilityID: "fac-1"},
			mockQuery: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT id, capacity, available_beds, updated_at\s+FROM facilities`).
					WithArgs("fac-1").
					WillReturnRows(sqlmock.NewRows([]string{"id", "capacity", "available_beds", "updated_at"}).
						AddRow("fac-1", 6, 1, october))
			},
			validateOutput: func(t *testing.T, output *Output) {
				a := output.Data.(models.FacilityAvailability)
				assert.Equal(t, 6, a.Capacity)
				assert.Equal(t, 1, a.AvailableBeds)
				assert.Equal(t, october, a.UpdatedAt)
			},
		},
		{
			name:  "resident medications",
			input: &Input{QueryType: string(models.QueryTypeResidentMedications), ResidentID: "res-1", Month: "2026-10"},
			mockQuery: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM resident_medications`).
					WithArgs("res-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
					WillReturnRows(sqlmock.NewRows([]string{"id", "name", "dose", "route", "frequency", "times", "prescriber", "start_date"}).
						AddRow("med-1", "Donepezil", "10 mg", "PO", "daily", "08:00", "Dr. Lee", october).
						AddRow("med-2", "Metformin", "500 mg", "PO", "BID", nil, nil, nil))
				mock.ExpectQuery(`FROM medication_administrations`).
					WithArgs("res-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
					WillReturnRows(sqlmock.NewRows([]string{"medication_id", "administered_at", "initials"}).
						AddRow("med-1", october.Add(8*time.Hour), "JD").
						AddRow("med-2", october.Add(8*time.Hour), "JD").
						AddRow("med-2", october.Add(20*time.Hour), "MK").
						AddRow("med-9", october.Add(9*time.Hour), "ZZ"))
			},
			validateOutput: func(t *testing.T, output *Output) {
				assert.Equal(t, 2, output.RowCount)
				meds := output.Data.([]models.MedicationRow)
				assert.Equal(t, "Donepezil", meds[0].Name)
				assert.Equal(t, "2026-10-01", meds[0].StartDate)
				assert.Equal(t, "JD", meds[0].Administrations["1"])
				assert.Equal(t, "JD/MK", meds[1].Administrations["1"])
				assert.Empty(t, meds[1].Times)
			},
		},
		{
			name:  "resident without medications",
			input: &Input{QueryType: string(models.QueryTypeResidentMedications), ResidentID: "res-2", Month: "2026-10"},
			mockQuery: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM resident_medications`).
					WithArgs("res-2", sqlmock.AnyArg(), sqlmock.AnyArg()).
					WillReturnRows(sqlmock.NewRows([]string{"id", "name", "dose", "route", "frequency", "times", "prescriber", "start_date"}))
			},
			validateOutput: func(t *testing.T, output *Output) {
				assert.Zero(t, output.RowCount)
				assert.NotNil(t, output.Data)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, mock := setupMock(t)
			tt.mockQuery(mock)

			output, err := handler.Execute(context.Background(), tt.input)
			require.NoError(t, err)
			require.NotNil(t, output)
			assert.GreaterOrEqual(t, output.QueryExecutionTime, int64(0))
			tt.validateOutput(t, output)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_QueryErrors(t *testing.T) {
	tests := []struct {
		name        string
		input       *Input
		mockQuery   func(mock sqlmock.Sqlmock)
		expectCode  apperrors.ErrorCode
		expectRetry bool
	}{
		{
			name:       "unknown query type",
			input:      &Input{QueryType: "franchise_full_details"},
			expectCode: apperrors.ErrCodeInvalidQueryType,
		},
		{
			name:       "missing facility id",
			input:      &Input{QueryType: string(models.QueryTypeFacilityDetails)},
			expectCode: apperrors.ErrCodeInputParseFailed,
		},
		{
			name:       "bad month",
			input:      &Input{QueryType: string(models.QueryTypeResidentMedications), ResidentID: "res-1", Month: "October"},
			expectCode: apperrors.ErrCodeInputParseFailed,
		},
		{
			name:  "facility missing",
			input: &Input{QueryType: string(models.QueryTypeFacilityAvailability), FacilityID: "fac-404"},
			mockQuery: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM facilities`).
					WithArgs("fac-404").
					WillReturnRows(sqlmock.NewRows([]string{"id", "capacity", "available_beds", "updated_at"}))
			},
			expectCode: apperrors.ErrCodeFacilityNotFound,
		},
		{
			name:  "database error",
			input: &Input{QueryType: string(models.QueryTypeFacilityDetails), FacilityID: "fac-1"},
			mockQuery: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM facilities`).
					WithArgs("fac-1").
					WillReturnError(errors.New("relation \"facilities\" does not exist"))
			},
			expectCode:  apperrors.ErrCodeQueryExecutionFailed,
			expectRetry: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, mock := setupMock(t)
			if tt.mockQuery != nil {
				tt.mockQuery(mock)
			}

			output, err := handler.Execute(context.Background(), tt.input)
			require.Error(t, err)
			assert.Nil(t, output)

			stdErr, ok := apperrors.AsStandardError(err)
			require.True(t, ok)
			assert.Equal(t, tt.expectCode, stdErr.Code)
			assert.Equal(t, tt.expectRetry, stdErr.Retryable)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestHandler_Execute_Timeout(t *testing.T) {
	handler, mock := setupMock(t)
	mock.ExpectQuery(`FROM facilities`).
		WithArgs("fac-1").
		WillDelayFor(200 * time.Millisecond).
		WillReturnRows(facilityRow(sqlmock.NewRows(facilityColumnNames), "fac-1", "Slow Home"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := handler.Execute(ctx, &Input{QueryType: string(models.QueryTypeFacilityDetails), FacilityID: "fac-1"})
	require.Error(t, err)
	stdErr, ok := apperrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeQueryTimeout, stdErr.Code)
}

func TestHandler_Execute_NoDatabase(t *testing.T) {
	handler := NewHandler(createTestConfig(), nil, logger.NewNoOpLogger())

	_, err := handler.Execute(context.Background(), &Input{QueryType: string(models.QueryTypeFacilityDetails), FacilityID: "fac-1"})
	stdErr, ok := apperrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeDatabaseConnectionFailed, stdErr.Code)
}

func TestLoadConfig_Defaults(t *testing.T) {
	assert.Equal(t, 30*time.Second, LoadConfig().Timeout)
}

func TestRegistry_CoversEveryQueryType(t *testing.T) {
	for _, qt := range []models.QueryType{
		models.QueryTypeFacilityDetails,
		models.QueryTypeFacilitiesByIDs,
		models.QueryTypeFacilityAvailability,
		models.QueryTypeResidentMedications,
	} {
		assert.Contains(t, queries.Registry, qt)
	}
	assert.NotContains(t, queries.Registry, models.QueryTypeFacilitySearch)
}
