package collectcareneeds

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "afh-workers/internal/common/errors"
	"afh-workers/internal/common/geo"
	"afh-workers/internal/common/logger"
	"afh-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeGeocoder struct {
	point geo.Point
	err   error
	calls int
}

func (f *fakeGeocoder) Geocode(_ context.Context, _ string) (geo.Point, error) {
	f.calls++
	return f.point, f.err
}

func createTestConfig() *Config {
	return &Config{
		Timeout:            5 * time.Second,
		DefaultRadiusMiles: 25,
		GeocodeTimeout:     time.Second,
	}
}

func createTestHandler(t *testing.T, g geo.Geocoder) *Handler {
	return NewHandler(createTestConfig(), g, logger.NewTestLogger(t))
}

func seattle() *fakeGeocoder {
	return &fakeGeocoder{point: geo.Point{Latitude: 47.6689, Longitude: -122.3819}}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	tests := []struct {
		name           string
		rawNeeds       map[string]interface{}
		geocoder       *fakeGeocoder
		validateOutput func(t *testing.T, output *Output, g *fakeGeocoder)
	}{
		{
			name: "complete wizard answers",
			rawNeeds: map[string]interface{}{
				"careType":     "dementia",
				"medicalNeeds": []interface{}{"Medication Management", "wound-care", "medication_management", " "},
				"dailyHelp":    "Bathing, dressing,  BATHING",
				"preferences":  []interface{}{"Pet Friendly", "private room"},
				"timeline":     "within_30_days",
				"location":     map[string]interface{}{"city": "Seattle", "zip": "98107", "radiusMiles": 10.0},
				"budget":       map[string]interface{}{"min": "$3,000", "max": "USD 5,500.00", "hasLongTermCareInsurance": true},
			},
			geocoder: seattle(),
			validateOutput: func(t *testing.T, output *Output, g *fakeGeocoder) {
				needs := output.CareNeeds
				assert.Equal(t, models.CareTypeDementia, needs.CareType)
				assert.Equal(t, []string{"medication_management", "wound_care"}, needs.MedicalNeeds)
				assert.Equal(t, []string{"bathing", "dressing"}, needs.DailyHelp)
				assert.Equal(t, []string{"pet_friendly", "private_room"}, needs.Preferences)
				assert.Equal(t, models.TimelineWithin30Days, needs.Timeline)
				assert.Equal(t, 3000, needs.Budget.Min)
				assert.Equal(t, 5500, needs.Budget.Max)
				assert.True(t, needs.Budget.HasLongTermCareInsurance)
				assert.Equal(t, 10.0, needs.Location.RadiusMiles)

				assert.True(t, output.Geocoded)
				require.True(t, needs.Location.HasPoint())
				assert.InDelta(t, 47.6689, *needs.Location.Latitude, 1e-9)
				assert.Equal(t, 1, g.calls)
				assert.Empty(t, output.Warnings)
			},
		},
		{
			name:     "empty answers take defaults",
			rawNeeds: map[string]interface{}{},
			geocoder: seattle(),
			validateOutput: func(t *testing.T, output *Output, g *fakeGeocoder) {
				needs := output.CareNeeds
				assert.Equal(t, models.CareTypeGeneral, needs.CareType)
				assert.Equal(t, models.TimelineExploring, needs.Timeline)
				assert.Equal(t, 25.0, needs.Location.RadiusMiles)
				assert.NotNil(t, needs.MedicalNeeds)
				assert.Empty(t, needs.MedicalNeeds)
				assert.False(t, output.Geocoded)
				assert.Zero(t, g.calls)
				assert.Len(t, output.Warnings, 2)
			},
		},
		{
			name: "coordinates given skip geocoding",
			rawNeeds: map[string]interface{}{
				"location": map[string]interface{}{"zip": "98107", "latitude": 47.6, "longitude": -122.3},
				"budget":   map[string]interface{}{"usesMedicaid": true},
			},
			geocoder: seattle(),
			validateOutput: func(t *testing.T, output *Output, g *fakeGeocoder) {
				assert.True(t, output.Geocoded)
				assert.Zero(t, g.calls)
				assert.True(t, output.CareNeeds.Budget.UsesMedicaid)
				assert.Empty(t, output.Warnings)
			},
		},
		{
			name: "geocoding failure is not fatal",
			rawNeeds: map[string]interface{}{
				"location": map[string]interface{}{"city": "Ballard", "zip": "98107"},
				"budget":   map[string]interface{}{"max": 6000},
			},
			geocoder: &fakeGeocoder{err: geo.ErrGeocoderClosed},
			validateOutput: func(t *testing.T, output *Output, g *fakeGeocoder) {
				assert.False(t, output.Geocoded)
				assert.False(t, output.CareNeeds.Location.HasPoint())
				assert.Equal(t, "98107", output.CareNeeds.Location.Zip)
				assert.Equal(t, "Ballard", output.CareNeeds.Location.City)
				require.Len(t, output.Warnings, 1)
				assert.Contains(t, output.Warnings[0], "98107")
			},
		},
		{
			name: "partial coordinates are dropped",
			rawNeeds: map[string]interface{}{
				"location": map[string]interface{}{"city": "Tacoma", "latitude": 47.2},
				"budget":   map[string]interface{}{"max": 6000},
			},
			geocoder: seattle(),
			validateOutput: func(t *testing.T, output *Output, g *fakeGeocoder) {
				assert.False(t, output.Geocoded)
				assert.Nil(t, output.CareNeeds.Location.Latitude)
				assert.Equal(t, []string{"Ignored partial coordinates"}, output.Warnings)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := createTestHandler(t, tt.geocoder)
			output, err := h.Execute(context.Background(), &Input{RawNeeds: tt.rawNeeds})
			require.NoError(t, err)
			require.NotNil(t, output)
			tt.validateOutput(t, output, tt.geocoder)
		})
	}
}

func TestHandler_Execute_NoGeocoder(t *testing.T) {
	h := createTestHandler(t, nil)
	output, err := h.Execute(context.Background(), &Input{RawNeeds: map[string]interface{}{
		"location": map[string]interface{}{"zip": "98107"},
		"budget":   map[string]interface{}{"max": 5000},
	}})
	require.NoError(t, err)
	assert.False(t, output.Geocoded)
	assert.Empty(t, output.Warnings)
}

// ==========================
// Validation Tests
// ==========================

func TestHandler_Execute_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		rawNeeds map[string]interface{}
		contains string
	}{
		{
			name:     "unknown care type",
			rawNeeds: map[string]interface{}{"careType": "memory_care"},
			contains: "careType",
		},
		{
			name:     "bad zip",
			rawNeeds: map[string]interface{}{"location": map[string]interface{}{"zip": "9810"}},
			contains: "zip",
		},
		{
			name:     "radius too large",
			rawNeeds: map[string]interface{}{"location": map[string]interface{}{"radiusMiles": 500}},
			contains: "radiusMiles",
		},
		{
			name:     "unknown timeline",
			rawNeeds: map[string]interface{}{"timeline": "someday"},
			contains: "timeline",
		},
		{
			name:     "amount is not money",
			rawNeeds: map[string]interface{}{"budget": map[string]interface{}{"max": "a lot"}},
			contains: "budget",
		},
		{
			name:     "min above max",
			rawNeeds: map[string]interface{}{"budget": map[string]interface{}{"min": "$6,000", "max": 4000}},
			contains: "budget.max",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := createTestHandler(t, seattle())
			output, err := h.Execute(context.Background(), &Input{RawNeeds: tt.rawNeeds})
			require.Error(t, err)
			assert.Nil(t, output)

			stdErr, ok := apperrors.AsStandardError(err)
			require.True(t, ok)
			assert.Equal(t, apperrors.ErrCodeCareNeedsInvalid, stdErr.Code)
			assert.False(t, stdErr.Retryable)
			assert.Contains(t, stdErr.Details, tt.contains)
		})
	}
}

// ==========================
// Normalization Tests
// ==========================

func TestNormalizeSet(t *testing.T) {
	assert.Equal(t, []string{"oxygen", "wound_care"}, normalizeSet([]interface{}{"Wound - Care", "oxygen", "OXYGEN", 3}))
	assert.Equal(t, []string{"catheter_care"}, normalizeSet("catheter care,"))
	assert.Equal(t, []string{}, normalizeSet(nil))
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      interface{}
		want    int
		wantErr bool
	}{
		{"$4,500", 4500, false},
		{"USD 50,000.99", 50000, false},
		{float64(3200), 3200, false},
		{nil, 0, false},
		{"", 0, false},
		{float64(-1), 0, true},
		{true, 0, true},
	}
	for _, tt := range tests {
		got, err := parseAmount(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "%v", tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}
}

func TestGeocoderErrorsAreWarnings(t *testing.T) {
	g := &fakeGeocoder{err: errors.New("dial tcp: connection refused")}
	h := createTestHandler(t, g)
	needs := models.CareNeeds{Location: models.Location{Zip: "99201"}}

	warning := h.locate(context.Background(), &needs)
	assert.Contains(t, warning, "99201")
	assert.False(t, needs.Location.HasPoint())
}
