package collectcareneeds

import "afh-workers/internal/models"

type Input struct {
	RawNeeds map[string]interface{} `json:"rawNeeds"`
}

type Output struct {
	CareNeeds models.CareNeeds `json:"careNeeds"`
	Geocoded  bool             `json:"geocoded"`
	Warnings  []string         `json:"warnings"`
}
