// internal/models/match.go
package models

// Dimension names a component of the match score.
type Dimension string

const (
	DimensionLocation     Dimension = "location"
	DimensionBudget       Dimension = "budget"
	DimensionCare         Dimension = "care"
	DimensionMedical      Dimension = "medical"
	DimensionDailyHelp    Dimension = "dailyHelp"
	DimensionAvailability Dimension = "availability"
	DimensionPreferences  Dimension = "preferences"
)

// Dimensions is the fixed presentation order of the breakdown.
var Dimensions = []Dimension{
	DimensionLocation,
	DimensionBudget,
	DimensionCare,
	DimensionMedical,
	DimensionDailyHelp,
	DimensionAvailability,
	DimensionPreferences,
}

// Label is the heading shown next to a breakdown value.
func (d Dimension) Label() string {
	switch d {
	case DimensionLocation:
		return "Location"
	case DimensionBudget:
		return "Budget"
	case DimensionCare:
		return "Care specialty"
	case DimensionMedical:
		return "Medical needs"
	case DimensionDailyHelp:
		return "Daily help"
	case DimensionAvailability:
		return "Availability"
	case DimensionPreferences:
		return "Preferences"
	default:
		return string(d)
	}
}

// MatchTier buckets overall scores for display.
type MatchTier string

const (
	TierExcellent MatchTier = "excellent"
	TierGood      MatchTier = "good"
	TierFair      MatchTier = "fair"
	TierLimited   MatchTier = "limited"
)

// TierFor maps an overall score to its tier.
func TierFor(overall int) MatchTier {
	switch {
	case overall >= 85:
		return TierExcellent
	case overall >= 70:
		return TierGood
	case overall >= 50:
		return TierFair
	default:
		return TierLimited
	}
}

// Label is the family facing tier name.
func (t MatchTier) Label() string {
	switch t {
	case TierExcellent:
		return "Excellent match"
	case TierGood:
		return "Good match"
	case TierFair:
		return "Fair match"
	default:
		return "Limited match"
	}
}

// MatchScore is derived per search and never persisted. Overall and every
// breakdown value lie in [0,100].
type MatchScore struct {
	FacilityID    string            `json:"facilityId"`
	Overall       int               `json:"overall"`
	Breakdown     map[Dimension]int `json:"breakdown"`
	Tier          MatchTier         `json:"tier"`
	Reasons       []string          `json:"reasons"`
	Concerns      []string          `json:"concerns"`
	DistanceMiles *float64          `json:"distanceMiles,omitempty"`
}

// RankedFacility is one entry of a ranked result list.
type RankedFacility struct {
	Rank       int        `json:"rank"`
	Facility   Facility   `json:"facility"`
	MatchScore MatchScore `json:"matchScore"`
}
