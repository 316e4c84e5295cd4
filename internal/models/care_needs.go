// internal/models/care_needs.go
package models

// CareType is the primary kind of care a family is looking for.
type CareType string

const (
	CareTypeGeneral                 CareType = "general"
	CareTypeDementia                CareType = "dementia"
	CareTypeMentalHealth            CareType = "mental_health"
	CareTypeDevelopmentalDisability CareType = "developmental_disability"
	CareTypeHospice                 CareType = "hospice"
	CareTypeRespite                 CareType = "respite"
)

// CareTypes lists every accepted care type.
var CareTypes = []CareType{
	CareTypeGeneral,
	CareTypeDementia,
	CareTypeMentalHealth,
	CareTypeDevelopmentalDisability,
	CareTypeHospice,
	CareTypeRespite,
}

// Label is the family facing name of the care type.
func (c CareType) Label() string {
	switch c {
	case CareTypeDementia:
		return "dementia care"
	case CareTypeMentalHealth:
		return "mental health care"
	case CareTypeDevelopmentalDisability:
		return "developmental disability care"
	case CareTypeHospice:
		return "hospice care"
	case CareTypeRespite:
		return "respite care"
	default:
		return "general care"
	}
}

// Timeline is how soon placement is needed.
type Timeline string

const (
	TimelineImmediately  Timeline = "immediately"
	TimelineWithin30Days Timeline = "within_30_days"
	TimelineWithin90Days Timeline = "within_90_days"
	TimelineExploring    Timeline = "exploring"
)

// Location is where the family wants care, with an optional resolved point.
type Location struct {
	City        string   `json:"city,omitempty"`
	Zip         string   `json:"zip,omitempty" validate:"omitempty,len=5,numeric"`
	RadiusMiles float64  `json:"radiusMiles" validate:"gte=1,lte=200"`
	Latitude    *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude   *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
}

// HasPoint reports whether both coordinates are known.
func (l Location) HasPoint() bool {
	return l.Latitude != nil && l.Longitude != nil
}

// Budget is the monthly amount a family can pay and how they pay it.
type Budget struct {
	Min                      int  `json:"min" validate:"gte=0"`
	Max                      int  `json:"max" validate:"omitempty,gtefield=Min"`
	UsesMedicaid             bool `json:"usesMedicaid"`
	HasLongTermCareInsurance bool `json:"hasLongTermCareInsurance"`
}

// IsSet reports whether the family gave any price bound.
func (b Budget) IsSet() bool {
	return b.Max > 0
}

// CareNeeds is the fixed-shape record produced by the intake wizard.
// It is request scoped and never persisted.
type CareNeeds struct {
	CareType     CareType `json:"careType" validate:"required,oneof=general dementia mental_health developmental_disability hospice respite"`
	MedicalNeeds []string `json:"medicalNeeds"`
	DailyHelp    []string `json:"dailyHelp"`
	Location     Location `json:"location"`
	Budget       Budget   `json:"budget"`
	Preferences  []string `json:"preferences"`
	Timeline     Timeline `json:"timeline" validate:"required,oneof=immediately within_30_days within_90_days exploring"`
}
