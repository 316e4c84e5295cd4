// internal/workers/data-access/search-facilities/queries/registry.go
package queries

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"afh-workers/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
)

var (
	ErrIndexNotFound = errors.New("index not found")
	ErrSearchFailed  = errors.New("search failed")
)

type QueryResult struct {
	Facilities []models.Facility
	TotalHits  int64
	MaxScore   float64
	Took       int64
}

// facilityDoc is the indexed shape of a facility.
type facilityDoc struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	LicenseNumber       string    `json:"license_number"`
	Description         string    `json:"description"`
	Capacity            int       `json:"capacity"`
	AvailableBeds       int       `json:"available_beds"`
	PriceMin            int       `json:"price_min"`
	PriceMax            int       `json:"price_max"`
	AcceptsMedicaid     bool      `json:"accepts_medicaid"`
	AcceptsLTCInsurance bool      `json:"accepts_ltc_insurance"`
	Specialties         []string  `json:"specialties"`
	MedicalServices     []string  `json:"medical_services"`
	DailyServices       []string  `json:"daily_services"`
	Amenities           []string  `json:"amenities"`
	Address             string    `json:"address"`
	City                string    `json:"city"`
	Zip                 string    `json:"zip"`
	Location            *geoPoint `json:"location"`
	Rating              float64   `json:"rating"`
	UpdatedAt           time.Time `json:"updated_at"`
}

type geoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type searchResponse struct {
	Took int64 `json:"took"`
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		MaxScore *float64 `json:"max_score"`
		Hits     []struct {
			ID     string      `json:"_id"`
			Score  *float64    `json:"_score"`
			Source facilityDoc `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type errorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// Execute runs the query and decodes the hits into facilities.
func Execute(ctx context.Context, esClient *elasticsearch.Client, sq SearchQuery) (*QueryResult, error) {
	req, err := BuildQuery(sq)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := req.Do(ctx, esClient)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, decodeError(sq.Index, res.StatusCode, res.Body)
	}

	var r searchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSearchFailed, err)
	}

	facilities := make([]models.Facility, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		f := hit.Source.toFacility()
		if f.ID == "" {
			f.ID = hit.ID
		}
		if hit.Score != nil {
			f.Relevance = *hit.Score
		}
		facilities = append(facilities, f)
	}

	result := &QueryResult{
		Facilities: facilities,
		TotalHits:  r.Hits.Total.Value,
		Took:       r.Took,
	}
	if r.Hits.MaxScore != nil {
		result.MaxScore = *r.Hits.MaxScore
	}
	if result.Took == 0 {
		result.Took = time.Since(start).Milliseconds()
	}
	return result, nil
}

func decodeError(index string, status int, body io.Reader) error {
	var e errorResponse
	_ = json.NewDecoder(body).Decode(&e)

	if status == http.StatusNotFound || e.Error.Type == "index_not_found_exception" {
		return fmt.Errorf("%w: %s", ErrIndexNotFound, index)
	}
	if e.Error.Reason != "" {
		return fmt.Errorf("%w: status %d: %s: %s", ErrSearchFailed, status, e.Error.Type, e.Error.Reason)
	}
	return fmt.Errorf("%w: status %d", ErrSearchFailed, status)
}

func (d facilityDoc) toFacility() models.Facility {
	f := models.Facility{
		ID:                  d.ID,
		Name:                d.Name,
		LicenseNumber:       d.LicenseNumber,
		Description:         d.Description,
		Capacity:            d.Capacity,
		AvailableBeds:       d.AvailableBeds,
		PriceMin:            d.PriceMin,
		PriceMax:            d.PriceMax,
		AcceptsMedicaid:     d.AcceptsMedicaid,
		AcceptsLTCInsurance: d.AcceptsLTCInsurance,
		Specialties:         orEmpty(d.Specialties),
		MedicalServices:     orEmpty(d.MedicalServices),
		DailyServices:       orEmpty(d.DailyServices),
		Amenities:           orEmpty(d.Amenities),
		Location: models.FacilityLocation{
			Address: d.Address,
			City:    d.City,
			Zip:     d.Zip,
		},
		Rating:    d.Rating,
		UpdatedAt: d.UpdatedAt,
	}
	if d.Location != nil {
		lat, lon := d.Location.Lat, d.Location.Lon
		f.Location.Latitude = &lat
		f.Location.Longitude = &lon
	}
	return f
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
