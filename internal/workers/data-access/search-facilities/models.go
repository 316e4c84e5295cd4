// internal/workers/data-access/search-facilities/models.go
package searchfacilities

import "afh-workers/internal/models"

type Input struct {
	IndexName     string            `json:"indexName,omitempty"`
	QueryType     models.QueryType  `json:"queryType"`
	CareNeeds     *models.CareNeeds `json:"careNeeds,omitempty"`
	FacilityID    string            `json:"facilityId,omitempty"`
	AvailableOnly bool              `json:"availableOnly,omitempty"`
	Pagination    Pagination        `json:"pagination"`
}

type Pagination struct {
	From int `json:"from"`
	Size int `json:"size"`
}

type Output struct {
	Facilities []models.Facility `json:"facilities"`
	TotalHits  int64             `json:"totalHits"`
	MaxScore   float64           `json:"maxScore"`
	Took       int64             `json:"took"` // milliseconds
}
