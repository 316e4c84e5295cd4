package rankfacilities

import "afh-workers/internal/models"

type Input struct {
	CareNeeds     models.CareNeeds  `json:"careNeeds"`
	Facilities    []models.Facility `json:"facilities,omitempty"`
	FacilityIDs   []string          `json:"facilityIds,omitempty"`
	Limit         int               `json:"limit,omitempty"`
	Offset        int               `json:"offset,omitempty"`
	MinScore      *int              `json:"minScore,omitempty"`
	AvailableOnly bool              `json:"availableOnly,omitempty"`
}

type Output struct {
	RankedFacilities   []models.RankedFacility `json:"rankedFacilities"`
	TotalCandidates    int                     `json:"totalCandidates"`
	TotalMatched       int                     `json:"totalMatched"`
	MissingFacilityIDs []string                `json:"missingFacilityIds,omitempty"`
}
