package calculatematchscore

import "afh-workers/internal/models"

type Input struct {
	CareNeeds  models.CareNeeds `json:"careNeeds"`
	FacilityID string           `json:"facilityId,omitempty"`
	Facility   *models.Facility `json:"facility,omitempty"`
}

type Output struct {
	MatchScore models.MatchScore `json:"matchScore"`
}
