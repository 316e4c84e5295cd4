package sendnotification

import (
	"fmt"
	"strings"

	"afh-workers/internal/common/placeholder"
	"afh-workers/internal/forms"
	"afh-workers/internal/matching"
	"afh-workers/internal/models"
)

var builtinTemplates = map[models.NotificationType]models.NotificationTemplate{
	models.NotificationMatchResultsReady: {
		Type:    models.NotificationMatchResultsReady,
		Subject: "Your adult family home matches are ready",
		Body: "Hi {{recipientName}},\n\n" +
			"{{summary}}.\n\n" +
			"Your top matches:\n{{topMatches}}\n\n" +
			"See every result: {{resultsUrl}}\n",
	},
	models.NotificationFormGenerated: {
		Type:    models.NotificationFormGenerated,
		Subject: "{{formTitle}} ready for {{residentName}}",
		Body: "Hi {{recipientName}},\n\n" +
			"The {{formTitle}} for {{residentName}} is ready.\n" +
			"Download: {{downloadUrl}}\n" +
			"This link expires {{expiresAt}}.\n",
	},
	models.NotificationIncidentReported: {
		Type:    models.NotificationIncidentReported,
		Subject: "Incident reported at {{facilityName}}",
		Body: "Hi {{recipientName}},\n\n" +
			"An incident involving {{residentName}} was reported at {{facilityName}} on {{incidentDate}}.\n\n" +
			"{{summary}}\n\n" +
			"Reported by: {{reportedBy}}\n",
		SMSBody: "Incident at {{facilityName}} involving {{residentName}}. Details sent by email.",
	},
}

// renderTemplate substitutes {{path}} placeholders from data. Dotted paths
// reach into nested maps; unknown placeholders render empty.
func renderTemplate(tmpl string, data map[string]interface{}) string {
	return placeholder.Replace(tmpl, func(path string) string {
		v, _ := placeholder.Lookup(data, path)
		return forms.FormatValue(v)
	})
}

// topMatchesText lists the first max ranked homes, one per line.
func topMatchesText(ranked []models.RankedFacility, max int) string {
	if len(ranked) == 0 {
		return "No homes matched yet. We will let you know when openings appear."
	}
	if max > 0 && len(ranked) > max {
		ranked = ranked[:max]
	}

	lines := make([]string, 0, len(ranked))
	for i, r := range ranked {
		rank := r.Rank
		if rank == 0 {
			rank = i + 1
		}
		line := fmt.Sprintf("%d. %s (%d/100, %s)", rank, r.Facility.Name, r.MatchScore.Overall, r.MatchScore.Tier.Label())
		if r.Facility.PriceMin > 0 {
			line += ", from " + matching.FormatDollars(r.Facility.PriceMin) + "/mo"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func resultsSummary(needs *models.CareNeeds, total int) string {
	care := models.CareTypeGeneral.Label()
	where := ""
	if needs != nil {
		care = needs.CareType.Label()
		if place := needs.Location.City; place != "" {
			where = " near " + place
		} else if needs.Location.Zip != "" {
			where = " near " + needs.Location.Zip
		}
	}
	switch total {
	case 0:
		return fmt.Sprintf("We have not found homes offering %s%s yet", care, where)
	case 1:
		return fmt.Sprintf("We found 1 home offering %s%s", care, where)
	default:
		return fmt.Sprintf("We found %d homes offering %s%s", total, care, where)
	}
}
