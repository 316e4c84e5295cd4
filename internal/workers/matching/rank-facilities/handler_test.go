package rankfacilities

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"afh-workers/internal/common/database"
	apperrors "afh-workers/internal/common/errors"
	"afh-workers/internal/common/logger"
	"afh-workers/internal/matching"
	"afh-workers/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
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

func ptr(v float64) *float64 { return &v }

func intPtr(v int) *int { return &v }

func createTestConfig() *Config {
	return &Config{
		Timeout:       5 * time.Second,
		DefaultLimit:  20,
		LoadWorkers:   3,
		LoadBatchSize: 5,
		SlowThreshold: time.Second,
	}
}

func createTestHandler(t *testing.T, source FacilitySource) *Handler {
	return NewHandler(createTestConfig(), matching.NewScorer(matching.DefaultWeights(), 0), source, logger.NewTestLogger(t))
}

func dementiaNeeds() models.CareNeeds {
	return models.CareNeeds{
		CareType:     models.CareTypeDementia,
		MedicalNeeds: []string{"medication_management"},
		DailyHelp:    []string{"bathing"},
		Location:     models.Location{Zip: "98107", RadiusMiles: 10, Latitude: ptr(47.6689), Longitude: ptr(-122.3819)},
		Budget:       models.Budget{Max: 7000},
		Timeline:     models.TimelineWithin30Days,
	}
}

func home(id, name string, beds int, specialties ...string) models.Facility {
	return models.Facility{
		ID:              id,
		Name:            name,
		Capacity:        6,
		AvailableBeds:   beds,
		PriceMin:        5000,
		PriceMax:        6500,
		Specialties:     specialties,
		MedicalServices: []string{"medication_management"},
		DailyServices:   []string{"bathing"},
		Location:        models.FacilityLocation{City: "Seattle", Zip: "98107", Latitude: ptr(47.6687), Longitude: ptr(-122.3847)},
	}
}

// mapSource serves facilities from memory and counts concurrent batches.
type mapSource struct {
	mu        sync.Mutex
	homes     map[string]models.Facility
	err       error
	delay     time.Duration
	calls     int32
	inFlight  int32
	maxFlight int32
}

func (s *mapSource) GetMany(ctx context.Context, ids []string) ([]models.Facility, []string, error) {
	atomic.AddInt32(&s.calls, 1)
	n := atomic.AddInt32(&s.inFlight, 1)
	defer atomic.AddInt32(&s.inFlight, -1)
	s.mu.Lock()
	if n > s.maxFlight {
		s.maxFlight = n
	}
	s.mu.Unlock()

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, nil, s.err
	}

	var found []models.Facility
	var missing []string
	for _, id := range ids {
		if f, ok := s.homes[id]; ok {
			found = append(found, f)
		} else {
			missing = append(missing, id)
		}
	}
	return found, missing, nil
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	source := &mapSource{homes: map[string]models.Facility{
		"afh-ballard": home("afh-ballard", "Ballard Garden Home", 2, "dementia"),
		"afh-fremont": home("afh-fremont", "Fremont Family Care", 0, "mental_health"),
	}}

	tests := []struct {
		name           string
		input          *Input
		validateOutput func(t *testing.T, output *Output)
	}{
		{
			name: "inline facilities",
			input: &Input{
				CareNeeds: dementiaNeeds(),
				Facilities: []models.Facility{
					home("afh-a", "Alder House", 0, "mental_health"),
					home("afh-b", "Birch House", 1, "dementia"),
				},
			},
			validateOutput: func(t *testing.T, output *Output) {
				require.Len(t, output.RankedFacilities, 2)
				assert.Equal(t, "afh-b", output.RankedFacilities[0].Facility.ID)
				assert.Equal(t, 1, output.RankedFacilities[0].Rank)
				assert.Equal(t, 2, output.RankedFacilities[1].Rank)
				assert.Equal(t, 2, output.TotalCandidates)
				assert.Empty(t, output.MissingFacilityIDs)
			},
		},
		{
			name: "ids loaded from repository",
			input: &Input{
				CareNeeds:   dementiaNeeds(),
				FacilityIDs: []string{"afh-fremont", "afh-gone", "afh-ballard"},
			},
			validateOutput: func(t *testing.T, output *Output) {
				require.Len(t, output.RankedFacilities, 2)
				assert.Equal(t, "afh-ballard", output.RankedFacilities[0].Facility.ID)
				assert.Equal(t, []string{"afh-gone"}, output.MissingFacilityIDs)
				assert.Equal(t, 2, output.TotalCandidates)
			},
		},
		{
			name: "available only with min score",
			input: &Input{
				CareNeeds:     dementiaNeeds(),
				FacilityIDs:   []string{"afh-fremont", "afh-ballard"},
				AvailableOnly: true,
				MinScore:      intPtr(50),
			},
			validateOutput: func(t *testing.T, output *Output) {
				require.Len(t, output.RankedFacilities, 1)
				assert.Equal(t, "afh-ballard", output.RankedFacilities[0].Facility.ID)
				assert.Equal(t, 1, output.TotalMatched)
			},
		},
		{
			name:  "nothing to rank",
			input: &Input{CareNeeds: dementiaNeeds()},
			validateOutput: func(t *testing.T, output *Output) {
				assert.NotNil(t, output.RankedFacilities)
				assert.Empty(t, output.RankedFacilities)
				assert.Zero(t, output.TotalCandidates)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := createTestHandler(t, source).Execute(context.Background(), tt.input)
			require.NoError(t, err)
			require.NotNil(t, output)
			tt.validateOutput(t, output)

			for _, r := range output.RankedFacilities {
				assert.GreaterOrEqual(t, r.MatchScore.Overall, 0)
				assert.LessOrEqual(t, r.MatchScore.Overall, 100)
			}
		})
	}
}

func TestHandler_Execute_BoundedLoading(t *testing.T) {
	homes := make(map[string]models.Facility)
	var ids []string
	for i := 0; i < 40; i++ {
		id := fmt.Sprintf("afh-%02d", i)
		homes[id] = home(id, fmt.Sprintf("Home %02d", i), i%3, "dementia")
		ids = append(ids, id)
	}
	source := &mapSource{homes: homes, delay: 10 * time.Millisecond}

	output, err := createTestHandler(t, source).Execute(context.Background(), &Input{
		CareNeeds:   dementiaNeeds(),
		FacilityIDs: ids,
		Limit:       10,
	})
	require.NoError(t, err)
	assert.Len(t, output.RankedFacilities, 10)
	assert.Equal(t, 40, output.TotalCandidates)
	assert.Equal(t, int32(8), source.calls)
	assert.LessOrEqual(t, source.maxFlight, int32(3))
	assert.Greater(t, source.maxFlight, int32(1))
}

func TestHandler_Execute_FromDatabase(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.MatchExpectationsInOrder(false)

	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	repo := database.NewFacilityRepository(db, cache, time.Minute, logger.NewNoOpLogger())

	rows := sqlmock.NewRows(facilityColumnNames)
	for _, id := range []string{"fac-2", "fac-1"} {
		rows.AddRow(
			id, "Home "+id, "AFH-"+id, "", 6, 1,
			5500, 6800, true, false,
			"{dementia}", "{medication_management}", "{bathing}", "{}",
			"123 Main St", "Seattle", "98107", 47.6687, -122.3847, 4.5, time.Now(),
		)
	}
	// one round trip for the whole batch
	mock.ExpectQuery(`FROM facilities WHERE id = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(rows)

	output, err := createTestHandler(t, repo).Execute(context.Background(), &Input{
		CareNeeds:   dementiaNeeds(),
		FacilityIDs: []string{"fac-1", "fac-2", "fac-3"},
	})
	require.NoError(t, err)
	require.Len(t, output.RankedFacilities, 2)
	// identical scores fall back to name order
	assert.Equal(t, "fac-1", output.RankedFacilities[0].Facility.ID)
	assert.Equal(t, []string{"fac-3"}, output.MissingFacilityIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.True(t, mr.Exists(database.FacilityCacheKey("fac-1")))
}

func TestBatchIDs(t *testing.T) {
	tests := []struct {
		name     string
		ids      []string
		size     int
		expected [][]string
	}{
		{"even split", []string{"a", "b", "c", "d"}, 2, [][]string{{"a", "b"}, {"c", "d"}}},
		{"remainder", []string{"a", "b", "c"}, 2, [][]string{{"a", "b"}, {"c"}}},
		{"duplicates dropped", []string{"a", "a", "b", "a"}, 5, [][]string{{"a", "b"}}},
		{"default size", []string{"a"}, 0, [][]string{{"a"}}},
		{"empty", nil, 3, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, batchIDs(tt.ids, tt.size))
		})
	}
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name       string
		source     FacilitySource
		timeout    time.Duration
		expectCode apperrors.ErrorCode
	}{
		{
			name:       "repository not configured",
			source:     nil,
			expectCode: apperrors.ErrCodeDatabaseConnectionFailed,
		},
		{
			name:       "database down",
			source:     &mapSource{err: errors.New("connection refused")},
			expectCode: apperrors.ErrCodeDatabaseConnectionFailed,
		},
		{
			name:       "load times out",
			source:     &mapSource{delay: time.Second},
			timeout:    20 * time.Millisecond,
			expectCode: apperrors.ErrCodeQueryTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, tt.timeout)
				defer cancel()
			}

			output, err := createTestHandler(t, tt.source).Execute(ctx, &Input{
				CareNeeds:   dementiaNeeds(),
				FacilityIDs: []string{"afh-1"},
			})
			require.Error(t, err)
			assert.Nil(t, output)

			stdErr, ok := apperrors.AsStandardError(err)
			require.True(t, ok)
			assert.Equal(t, tt.expectCode, stdErr.Code)
		})
	}
}
