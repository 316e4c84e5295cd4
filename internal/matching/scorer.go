// Package matching scores adult family homes against a family's care needs.
// Everything here is pure: no I/O and no shared state beyond Scorer's weights.
package matching

import (
	"fmt"
	"math"
	"strings"

	"afh-workers/internal/common/geo"
	"afh-workers/internal/models"
)

// DefaultRadiusMiles applies when the family gave no search radius.
const DefaultRadiusMiles = 25.0

// Options tune a single Score call.
type Options struct {
	Weights      Weights
	NeutralScore int
}

// dimensionResult is the outcome for one dimension before weighting.
type dimensionResult struct {
	score    int
	reasons  []string
	concerns []string
}

// Score computes the weighted match of a facility against care needs.
// Overall and every breakdown value are clamped to [0,100].
func Score(needs models.CareNeeds, facility models.Facility, opts Options) models.MatchScore {
	neutral := opts.NeutralScore
	if neutral <= 0 || neutral > 100 {
		neutral = DefaultNeutralScore
	}
	weights := opts.Weights
	if weights == nil || weights.total() <= 0 {
		weights = DefaultWeights()
	}

	location, distance := scoreLocation(needs.Location, facility.Location, neutral)
	results := map[models.Dimension]dimensionResult{
		models.DimensionLocation:     location,
		models.DimensionBudget:       scoreBudget(needs.Budget, facility, neutral),
		models.DimensionCare:         scoreCare(needs.CareType, facility.Specialties, neutral),
		models.DimensionMedical:      scoreCoverage(needs.MedicalNeeds, facility.MedicalServices, neutral, medicalPhrases),
		models.DimensionDailyHelp:    scoreCoverage(needs.DailyHelp, facility.DailyServices, neutral, dailyHelpPhrases),
		models.DimensionAvailability: scoreAvailability(needs.Timeline, facility, neutral),
		models.DimensionPreferences:  scoreCoverage(needs.Preferences, facility.Amenities, neutral, preferencePhrases),
	}

	ms := models.MatchScore{
		FacilityID:    facility.ID,
		Breakdown:     make(map[models.Dimension]int, len(results)),
		Reasons:       []string{},
		Concerns:      []string{},
		DistanceMiles: distance,
	}

	var weighted, total float64
	for _, d := range models.Dimensions {
		r := results[d]
		r.score = clamp(r.score)
		ms.Breakdown[d] = r.score
		ms.Reasons = append(ms.Reasons, r.reasons...)
		ms.Concerns = append(ms.Concerns, r.concerns...)

		if w := weights[d]; w > 0 {
			weighted += w * float64(r.score)
			total += w
		}
	}

	ms.Overall = clamp(int(math.Round(weighted / total)))
	ms.Tier = models.TierFor(ms.Overall)
	return ms
}

func scoreLocation(want models.Location, have models.FacilityLocation, neutral int) (dimensionResult, *float64) {
	if want.HasPoint() && have.HasPoint() {
		radius := want.RadiusMiles
		if radius <= 0 {
			radius = DefaultRadiusMiles
		}
		d := geo.DistanceMiles(
			geo.Point{Latitude: *want.Latitude, Longitude: *want.Longitude},
			geo.Point{Latitude: *have.Latitude, Longitude: *have.Longitude},
		)
		rounded := math.Round(d*10) / 10

		res := dimensionResult{score: distanceScore(d, radius)}
		res.reasons = append(res.reasons, fmt.Sprintf("%.1f miles away", rounded))
		if d > radius {
			res.concerns = append(res.concerns, fmt.Sprintf("Outside your %g mile radius", radius))
		}
		return res, &rounded
	}

	switch {
	case want.Zip != "" && want.Zip == have.Zip:
		return dimensionResult{score: 100, reasons: []string{"In your zip code"}}, nil
	case want.City != "" && have.City != "":
		if strings.EqualFold(strings.TrimSpace(want.City), strings.TrimSpace(have.City)) {
			return dimensionResult{score: 85, reasons: []string{"In " + have.City}}, nil
		}
		return dimensionResult{score: 30, concerns: []string{"Located in " + have.City}}, nil
	default:
		return dimensionResult{score: neutral}, nil
	}
}

// distanceScore is 100 inside a quarter of the radius, falls linearly to 60
// at the radius and to 0 at twice the radius. It never increases with distance.
func distanceScore(d, radius float64) int {
	inner := radius * 0.25
	switch {
	case d <= inner:
		return 100
	case d <= radius:
		return int(math.Round(100 - 40*(d-inner)/(radius-inner)))
	case d <= 2*radius:
		return int(math.Round(60 - 60*(d-radius)/radius))
	default:
		return 0
	}
}

func scoreBudget(b models.Budget, f models.Facility, neutral int) dimensionResult {
	var res dimensionResult

	if b.UsesMedicaid {
		if f.AcceptsMedicaid {
			return dimensionResult{score: 100, reasons: []string{"Accepts Medicaid"}}
		}
		res = priceFit(b, f, neutral)
		if res.score > 20 {
			res.score = 20
		}
		res.reasons = nil
		res.concerns = append(res.concerns, "Does not accept Medicaid")
		return res
	}

	res = priceFit(b, f, neutral)
	// The bonus adjusts a real price comparison, never the neutral score.
	priced := b.IsSet() && f.HasPricing()
	if priced && b.HasLongTermCareInsurance && f.AcceptsLTCInsurance {
		res.score += 10
		res.reasons = append(res.reasons, "Accepts long-term care insurance")
	}
	return res
}

func priceFit(b models.Budget, f models.Facility, neutral int) dimensionResult {
	if !b.IsSet() || !f.HasPricing() {
		return dimensionResult{score: neutral}
	}

	lo, hi := f.PriceMin, f.PriceMax
	if lo <= 0 {
		lo = hi
	}
	if hi < lo {
		hi = lo
	}
	limit := b.Max

	switch {
	case hi <= limit:
		return dimensionResult{score: 100, reasons: []string{"Within your budget"}}
	case lo <= limit:
		share := float64(limit-lo) / float64(hi-lo)
		return dimensionResult{
			score:   60 + int(math.Round(39*share)),
			reasons: []string{"Starting price within your budget"},
		}
	default:
		gap := lo - limit
		score := 50 - int(math.Round(100*float64(gap)/float64(limit)))
		if score < 0 {
			score = 0
		}
		return dimensionResult{
			score:    score,
			concerns: []string{fmt.Sprintf("Above your budget by %s/mo", FormatDollars(gap))},
		}
	}
}

func scoreCare(careType models.CareType, specialties []string, neutral int) dimensionResult {
	switch {
	case careType == "":
		return dimensionResult{score: neutral}
	case careType == models.CareTypeGeneral:
		return dimensionResult{score: 100}
	case len(specialties) == 0:
		return dimensionResult{score: neutral}
	case contains(specialties, string(careType)):
		return dimensionResult{score: 100, reasons: []string{"Specializes in " + careType.Label()}}
	default:
		return dimensionResult{score: 30, concerns: []string{"No " + careType.Label() + " specialty"}}
	}
}

// coveragePhrases words the reason for one set-overlap dimension.
type coveragePhrases struct {
	all     string
	partial string // receives covered and wanted counts
	listed  string // receives a humanized list of covered items
}

var (
	medicalPhrases    = coveragePhrases{all: "Covers all medical needs", partial: "Covers %d of %d medical needs"}
	dailyHelpPhrases  = coveragePhrases{all: "Helps with all daily activities", partial: "Helps with %d of %d daily activities"}
	preferencePhrases = coveragePhrases{listed: "Has %s"}
)

// scoreCoverage scores the share of wanted items the facility offers. Nothing
// wanted is a full match; a facility that lists nothing is unknown.
func scoreCoverage(wanted, offered []string, neutral int, phrases coveragePhrases) dimensionResult {
	if len(wanted) == 0 {
		return dimensionResult{score: 100}
	}
	if len(offered) == 0 {
		return dimensionResult{score: neutral}
	}

	var covered, missing []string
	for _, w := range wanted {
		if contains(offered, w) {
			covered = append(covered, w)
		} else {
			missing = append(missing, w)
		}
	}

	res := dimensionResult{score: int(math.Round(100 * float64(len(covered)) / float64(len(wanted))))}
	if len(covered) > 0 {
		switch {
		case phrases.listed != "":
			res.reasons = append(res.reasons, fmt.Sprintf(phrases.listed, humanizeList(covered, 3)))
		case len(missing) == 0:
			res.reasons = append(res.reasons, phrases.all)
		default:
			res.reasons = append(res.reasons, fmt.Sprintf(phrases.partial, len(covered), len(wanted)))
		}
	}
	if len(missing) > 0 {
		res.concerns = append(res.concerns, "Missing: "+humanizeList(missing, 3))
	}
	return res
}

func scoreAvailability(timeline models.Timeline, f models.Facility, neutral int) dimensionResult {
	if f.Capacity <= 0 {
		return dimensionResult{score: neutral}
	}
	if f.AvailableBeds > 0 {
		noun := "beds"
		if f.AvailableBeds == 1 {
			noun = "bed"
		}
		return dimensionResult{score: 100, reasons: []string{fmt.Sprintf("%d %s available", f.AvailableBeds, noun)}}
	}

	res := dimensionResult{concerns: []string{"No current openings"}}
	switch timeline {
	case models.TimelineExploring:
		res.score = 60
	case models.TimelineWithin90Days:
		res.score = 40
	default:
		res.score = 10
	}
	return res
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func humanize(tag string) string {
	return strings.ReplaceAll(tag, "_", " ")
}

func humanizeList(tags []string, max int) string {
	shown := make([]string, 0, max)
	for i, t := range tags {
		if i == max {
			break
		}
		shown = append(shown, humanize(t))
	}
	out := strings.Join(shown, ", ")
	if extra := len(tags) - len(shown); extra > 0 {
		out += fmt.Sprintf(" and %d more", extra)
	}
	return out
}

// FormatDollars renders 4500 as "$4,500".
func FormatDollars(amount int) string {
	s := fmt.Sprintf("%d", amount)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return "$" + b.String()
}
