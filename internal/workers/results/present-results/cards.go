// internal/workers/results/present-results/cards.go
package presentresults

import (
	"fmt"

	"afh-workers/internal/matching"
	"afh-workers/internal/models"
)

// PriceText renders a monthly price range, e.g. "$4,500–$6,000/mo".
func PriceText(f models.Facility) string {
	switch {
	case f.PriceMin > 0 && f.PriceMax > f.PriceMin:
		return fmt.Sprintf("%s–%s/mo", matching.FormatDollars(f.PriceMin), matching.FormatDollars(f.PriceMax))
	case f.PriceMin > 0:
		return matching.FormatDollars(f.PriceMin) + "/mo"
	case f.PriceMax > 0:
		return "Up to " + matching.FormatDollars(f.PriceMax) + "/mo"
	default:
		return "Contact for pricing"
	}
}

func distanceText(d *float64) string {
	if d == nil {
		return ""
	}
	if *d < 0.1 {
		return "Less than 0.1 miles away"
	}
	return fmt.Sprintf("%.1f miles away", *d)
}

func badges(f models.Facility) []string {
	out := []string{}
	if f.AcceptsMedicaid {
		out = append(out, "Accepts Medicaid")
	}
	if f.AcceptsLTCInsurance {
		out = append(out, "Accepts LTC insurance")
	}
	if f.AvailableBeds > 0 {
		out = append(out, "Openings available")
	}
	return out
}

// BuildCard turns a ranked facility into its display card. The breakdown
// follows the fixed dimension order.
func BuildCard(r models.RankedFacility) ResultCard {
	ms := r.MatchScore
	tier := ms.Tier
	if tier == "" {
		tier = models.TierFor(ms.Overall)
	}

	breakdown := make([]BreakdownItem, 0, len(models.Dimensions))
	for _, d := range models.Dimensions {
		v, ok := ms.Breakdown[d]
		if !ok {
			continue
		}
		breakdown = append(breakdown, BreakdownItem{Dimension: d, Label: d.Label(), Score: v})
	}

	return ResultCard{
		Rank:            r.Rank,
		FacilityID:      r.Facility.ID,
		Name:            r.Facility.Name,
		City:            r.Facility.Location.City,
		PriceText:       PriceText(r.Facility),
		DistanceText:    distanceText(ms.DistanceMiles),
		Score:           ms.Overall,
		MatchPercent:    fmt.Sprintf("%d%%", ms.Overall),
		Tier:            tier,
		TierLabel:       tier.Label(),
		Breakdown:       breakdown,
		Reasons:         nonNil(ms.Reasons),
		Concerns:        nonNil(ms.Concerns),
		AvailableBeds:   r.Facility.AvailableBeds,
		AcceptsMedicaid: r.Facility.AcceptsMedicaid,
		Badges:          badges(r.Facility),
	}
}

func BuildCards(ranked []models.RankedFacility) []ResultCard {
	cards := make([]ResultCard, 0, len(ranked))
	for _, r := range ranked {
		cards = append(cards, BuildCard(r))
	}
	return cards
}

func summary(needs models.CareNeeds, shown, matched int) string {
	place := needs.Location.City
	if place == "" {
		place = needs.Location.Zip
	}
	where := ""
	if place != "" {
		where = " near " + place
	}

	switch {
	case matched == 0:
		return fmt.Sprintf("No homes offering %s%s matched your needs yet", needs.CareType.Label(), where)
	case matched == 1:
		return fmt.Sprintf("1 home offering %s%s matches your needs", needs.CareType.Label(), where)
	case shown < matched:
		return fmt.Sprintf("Showing %d of %d homes offering %s%s", shown, matched, needs.CareType.Label(), where)
	default:
		return fmt.Sprintf("%d homes offering %s%s match your needs", matched, needs.CareType.Label(), where)
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
