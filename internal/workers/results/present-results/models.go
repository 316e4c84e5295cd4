// internal/workers/results/present-results/models.go
package presentresults

import "afh-workers/internal/models"

type Input struct {
	RequestId        string                  `json:"requestId"`
	TemplateId       string                  `json:"templateId,omitempty"`
	CareNeeds        models.CareNeeds        `json:"careNeeds"`
	RankedFacilities []models.RankedFacility `json:"rankedFacilities"`
	TotalMatched     int                     `json:"totalMatched,omitempty"`
}

type Output struct {
	Response ResponsePayload `json:"response"`
}

type ResponsePayload struct {
	RequestId string                 `json:"requestId"`
	Status    string                 `json:"status"`
	Data      map[string]interface{} `json:"data"`
	Metadata  ResponseMetadata       `json:"metadata"`
}

type ResponseMetadata struct {
	Timestamp  string `json:"timestamp"` // ISO 8601
	Version    string `json:"version"`
	TemplateId string `json:"templateId"`
}

// TemplateDefinition is one entry of the response template registry.
type TemplateDefinition struct {
	ID       string                 `json:"id"`
	Type     string                 `json:"type"`
	Schema   map[string]interface{} `json:"schema"`   // JSON Schema for the data
	Template map[string]interface{} `json:"template"` // structure with {{placeholders}}
	Version  string                 `json:"version"`
}

// ResultCard is the display model of one ranked home.
type ResultCard struct {
	Rank            int              `json:"rank"`
	FacilityID      string           `json:"facilityId"`
	Name            string           `json:"name"`
	City            string           `json:"city"`
	PriceText       string           `json:"priceText"`
	DistanceText    string           `json:"distanceText,omitempty"`
	Score           int              `json:"score"`
	MatchPercent    string           `json:"matchPercent"`
	Tier            models.MatchTier `json:"tier"`
	TierLabel       string           `json:"tierLabel"`
	Breakdown       []BreakdownItem  `json:"breakdown"`
	Reasons         []string         `json:"reasons"`
	Concerns        []string         `json:"concerns"`
	AvailableBeds   int              `json:"availableBeds"`
	AcceptsMedicaid bool             `json:"acceptsMedicaid"`
	Badges          []string         `json:"badges"`
}

type BreakdownItem struct {
	Dimension models.Dimension `json:"dimension"`
	Label     string           `json:"label"`
	Score     int              `json:"score"`
}
