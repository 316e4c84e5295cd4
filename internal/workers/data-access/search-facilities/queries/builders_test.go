package queries

import (
	"encoding/json"
	"errors"
	"testing"

	"afh-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

// roundTrip reduces a query body to plain JSON values.
func roundTrip(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func boolQuery(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	q := roundTrip(t, body)["query"].(map[string]interface{})
	return q["bool"].(map[string]interface{})
}

func hasClause(clauses interface{}, kind string) bool {
	list, _ := clauses.([]interface{})
	for _, c := range list {
		if _, ok := c.(map[string]interface{})[kind]; ok {
			return true
		}
	}
	return false
}

func TestBuildFacilitySearchQuery(t *testing.T) {
	tests := []struct {
		name     string
		query    SearchQuery
		validate func(t *testing.T, b map[string]interface{})
	}{
		{
			name: "located private pay family",
			query: SearchQuery{
				QueryType: models.QueryTypeFacilitySearch,
				CareNeeds: &models.CareNeeds{
					CareType:     models.CareTypeDementia,
					MedicalNeeds: []string{"wound_care", "insulin"},
					DailyHelp:    []string{"bathing"},
					Location:     models.Location{RadiusMiles: 15, Latitude: ptr(47.6), Longitude: ptr(-122.3)},
					Budget:       models.Budget{Max: 6000},
				},
				AvailableOnly: true,
			},
			validate: func(t *testing.T, b map[string]interface{}) {
				must := b["must"].([]interface{})
				require.Len(t, must, 1)
				assert.Equal(t, "dementia", must[0].(map[string]interface{})["term"].(map[string]interface{})["specialties"])

				assert.True(t, hasClause(b["filter"], "geo_distance"))
				assert.True(t, hasClause(b["filter"], "range"))
				assert.True(t, hasClause(b["filter"], "bool"), "price filter keeps unpriced homes")
				assert.Len(t, b["should"], 3)

				for _, f := range b["filter"].([]interface{}) {
					if geo, ok := f.(map[string]interface{})["geo_distance"]; ok {
						assert.Equal(t, "15mi", geo.(map[string]interface{})["distance"])
					}
				}
			},
		},
		{
			name: "medicaid ignores price and filters on acceptance",
			query: SearchQuery{
				QueryType: models.QueryTypeFacilitySearch,
				CareNeeds: &models.CareNeeds{
					CareType: models.CareTypeGeneral,
					Budget:   models.Budget{Max: 3000, UsesMedicaid: true},
					Location: models.Location{City: "Tacoma", Zip: "98402"},
				},
			},
			validate: func(t *testing.T, b map[string]interface{}) {
				must := b["must"].([]interface{})
				assert.Contains(t, must[0], "match_all")

				filters := b["filter"].([]interface{})
				require.Len(t, filters, 2)
				assert.Equal(t, true, filters[0].(map[string]interface{})["term"].(map[string]interface{})["accepts_medicaid"])

				place := filters[1].(map[string]interface{})["bool"].(map[string]interface{})
				assert.Len(t, place["should"], 2)
				assert.Equal(t, float64(1), place["minimum_should_match"])
				assert.False(t, hasClause(b["filter"], "geo_distance"))
			},
		},
		{
			name:  "no needs",
			query: SearchQuery{QueryType: models.QueryTypeFacilitySearch},
			validate: func(t *testing.T, b map[string]interface{}) {
				assert.NotContains(t, b, "filter")
				assert.NotContains(t, b, "should")
			},
		},
		{
			name: "default radius",
			query: SearchQuery{
				QueryType: models.QueryTypeFacilitySearch,
				CareNeeds: &models.CareNeeds{Location: models.Location{Latitude: ptr(47.6), Longitude: ptr(-122.3)}},
			},
			validate: func(t *testing.T, b map[string]interface{}) {
				geo := b["filter"].([]interface{})[0].(map[string]interface{})["geo_distance"].(map[string]interface{})
				assert.Equal(t, "25mi", geo["distance"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := BuildBody(tt.query)
			require.NoError(t, err)
			tt.validate(t, boolQuery(t, body))
		})
	}
}

func TestBuildSimilarFacilitiesQuery(t *testing.T) {
	body, err := BuildBody(SearchQuery{Index: "facilities", QueryType: models.QueryTypeSimilarFacilities, FacilityID: "afh-1"})
	require.NoError(t, err)
	q := roundTrip(t, body)["query"].(map[string]interface{})
	mlt := q["more_like_this"].(map[string]interface{})
	assert.ElementsMatch(t, []interface{}{"specialties", "amenities", "description"}, mlt["fields"])

	body, err = BuildBody(SearchQuery{QueryType: models.QueryTypeSimilarFacilities})
	require.NoError(t, err)
	assert.Contains(t, roundTrip(t, body)["query"], "match_none")
}

func TestBuildQuery_Validation(t *testing.T) {
	_, err := BuildQuery(SearchQuery{QueryType: models.QueryTypeFacilitySearch})
	assert.True(t, errors.Is(err, ErrMissingIndex))

	_, err = BuildQuery(SearchQuery{Index: "facilities", QueryType: "franchise_index"})
	assert.True(t, errors.Is(err, ErrUnknownQueryType))

	req, err := BuildQuery(SearchQuery{Index: "facilities", QueryType: models.QueryTypeFacilitySearch, From: -5, Size: 1000})
	require.NoError(t, err)
	assert.Equal(t, 0, *req.From)
	assert.Equal(t, MaxSize, *req.Size)

	req, err = BuildQuery(SearchQuery{Index: "facilities", QueryType: models.QueryTypeFacilitySearch})
	require.NoError(t, err)
	assert.Equal(t, DefaultSize, *req.Size)
}
