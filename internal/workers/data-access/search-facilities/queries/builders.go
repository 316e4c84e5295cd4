// internal/workers/data-access/search-facilities/queries/builders.go
package queries

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"afh-workers/internal/models"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

var (
	ErrUnknownQueryType = errors.New("unknown query type")
	ErrMissingIndex     = errors.New("index name is required")
)

const (
	DefaultSize        = 20
	MaxSize            = 100
	defaultRadiusMiles = 25
)

// SearchQuery is one facility search against an index.
type SearchQuery struct {
	Index         string
	QueryType     models.QueryType
	CareNeeds     *models.CareNeeds
	FacilityID    string
	AvailableOnly bool
	From          int
	Size          int
}

// normalizePage clamps paging to what the index will serve.
func (sq *SearchQuery) normalizePage() {
	if sq.From < 0 {
		sq.From = 0
	}
	switch {
	case sq.Size < 1:
		sq.Size = DefaultSize
	case sq.Size > MaxSize:
		sq.Size = MaxSize
	}
}

// BuildQuery builds the search request for the query type.
func BuildQuery(sq SearchQuery) (*esapi.SearchRequest, error) {
	if sq.Index == "" {
		return nil, ErrMissingIndex
	}
	sq.normalizePage()

	body, err := BuildBody(sq)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	return &esapi.SearchRequest{
		Index:          []string{sq.Index},
		Body:           bytes.NewReader(data),
		From:           &sq.From,
		Size:           &sq.Size,
		TrackTotalHits: true,
	}, nil
}

// BuildBody returns the JSON query body for the query type.
func BuildBody(sq SearchQuery) (map[string]interface{}, error) {
	switch sq.QueryType {
	case models.QueryTypeFacilitySearch:
		return buildFacilitySearchQuery(sq), nil
	case models.QueryTypeSimilarFacilities:
		return buildSimilarFacilitiesQuery(sq), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownQueryType, sq.QueryType)
	}
}

func term(field string, value interface{}) map[string]interface{} {
	return map[string]interface{}{"term": map[string]interface{}{field: value}}
}

func boostedTerm(field, value string, boost float64) map[string]interface{} {
	return map[string]interface{}{
		"term": map[string]interface{}{
			field: map[string]interface{}{"value": value, "boost": boost},
		},
	}
}

func anyOf(clauses ...interface{}) map[string]interface{} {
	return map[string]interface{}{
		"bool": map[string]interface{}{
			"should":               clauses,
			"minimum_should_match": 1,
		},
	}
}

// buildFacilitySearchQuery narrows the index to homes a family could use and
// boosts the ones that cover more of their needs.
func buildFacilitySearchQuery(sq SearchQuery) map[string]interface{} {
	must := []interface{}{}
	filter := []interface{}{}
	should := []interface{}{}

	needs := sq.CareNeeds
	if needs == nil {
		needs = &models.CareNeeds{}
	}

	if needs.CareType != "" && needs.CareType != models.CareTypeGeneral {
		must = append(must, term("specialties", string(needs.CareType)))
	}

	// Medicaid residents need a home that takes it, price is then irrelevant.
	if needs.Budget.UsesMedicaid {
		filter = append(filter, term("accepts_medicaid", true))
	} else if needs.Budget.Max > 0 {
		filter = append(filter, anyOf(
			map[string]interface{}{
				"range": map[string]interface{}{"price_min": map[string]interface{}{"lte": needs.Budget.Max}},
			},
			map[string]interface{}{
				"bool": map[string]interface{}{
					"must_not": map[string]interface{}{"exists": map[string]interface{}{"field": "price_min"}},
				},
			},
		))
	}

	loc := needs.Location
	if loc.HasPoint() {
		radius := loc.RadiusMiles
		if radius <= 0 {
			radius = defaultRadiusMiles
		}
		filter = append(filter, map[string]interface{}{
			"geo_distance": map[string]interface{}{
				"distance": fmt.Sprintf("%gmi", radius),
				"location": map[string]interface{}{"lat": *loc.Latitude, "lon": *loc.Longitude},
			},
		})
	} else {
		var place []interface{}
		if loc.Zip != "" {
			place = append(place, term("zip", loc.Zip))
		}
		if loc.City != "" {
			place = append(place, map[string]interface{}{
				"match": map[string]interface{}{"city": loc.City},
			})
		}
		if len(place) > 0 {
			filter = append(filter, anyOf(place...))
		}
	}

	if sq.AvailableOnly {
		filter = append(filter, map[string]interface{}{
			"range": map[string]interface{}{"available_beds": map[string]interface{}{"gte": 1}},
		})
	}

	for _, n := range needs.MedicalNeeds {
		should = append(should, boostedTerm("medical_services", n, 2))
	}
	for _, n := range needs.DailyHelp {
		should = append(should, boostedTerm("daily_services", n, 1))
	}
	for _, p := range needs.Preferences {
		should = append(should, boostedTerm("amenities", p, 0.5))
	}

	if len(must) == 0 {
		must = append(must, map[string]interface{}{"match_all": map[string]interface{}{}})
	}

	boolQuery := map[string]interface{}{"must": must}
	if len(filter) > 0 {
		boolQuery["filter"] = filter
	}
	if len(should) > 0 {
		boolQuery["should"] = should
	}

	return map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
		"sort": []interface{}{
			map[string]interface{}{"_score": "desc"},
			map[string]interface{}{"available_beds": map[string]interface{}{"order": "desc", "unmapped_type": "integer"}},
		},
	}
}

// buildSimilarFacilitiesQuery finds homes that read like the given one.
func buildSimilarFacilitiesQuery(sq SearchQuery) map[string]interface{} {
	if sq.FacilityID == "" {
		return map[string]interface{}{
			"query": map[string]interface{}{
				"match_none": map[string]interface{}{},
			},
		}
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"more_like_this": map[string]interface{}{
				"fields": []string{"specialties", "amenities", "description"},
				"like": []map[string]interface{}{
					{"_index": sq.Index, "_id": sq.FacilityID},
				},
				"min_term_freq":   1,
				"max_query_terms": 12,
				"min_doc_freq":    1,
				"min_word_length": 3,
			},
		},
	}
}
