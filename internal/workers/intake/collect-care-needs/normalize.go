package collectcareneeds

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"afh-workers/internal/models"
)

var (
	nonDigits          = regexp.MustCompile(`[^\d]+`)
	tagSeparator       = strings.NewReplacer(" ", "_", "-", "_")
	repeatedUnderscore = regexp.MustCompile(`_+`)
)

// normalizeSet trims, lower-cases and deduplicates tags, turning spaces and
// dashes into underscores. The result is sorted and never nil.
func normalizeSet(raw interface{}) []string {
	var items []string
	switch v := raw.(type) {
	case string:
		items = strings.Split(v, ",")
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				items = append(items, s)
			}
		}
	case []string:
		items = v
	}

	seen := make(map[string]bool, len(items))
	out := []string{}
	for _, item := range items {
		tag := normalizeTag(item)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

func normalizeTag(s string) string {
	tag := tagSeparator.Replace(strings.ToLower(strings.TrimSpace(s)))
	return strings.Trim(repeatedUnderscore.ReplaceAllString(tag, "_"), "_")
}

// parseAmount reads a monthly dollar amount. Strings such as "$4,500" or
// "USD 4,500.00" drop their cents.
func parseAmount(raw interface{}) (int, error) {
	switch v := raw.(type) {
	case nil:
		return 0, nil
	case float64:
		if v < 0 {
			return 0, errors.New("negative amount")
		}
		return int(v), nil
	case int:
		if v < 0 {
			return 0, errors.New("negative amount")
		}
		return v, nil
	case string:
		cleaned := strings.NewReplacer(" ", "", "$", "", "USD", "", ",", "").Replace(v)
		if i := strings.Index(cleaned, "."); i >= 0 {
			cleaned = cleaned[:i]
		}
		cleaned = nonDigits.ReplaceAllString(cleaned, "")
		if cleaned == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(cleaned)
		if err != nil {
			return 0, fmt.Errorf("parse amount %q: %w", v, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("unsupported amount %v", raw)
	}
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

func floatField(m map[string]interface{}, key string) *float64 {
	if v, ok := m[key].(float64); ok {
		return &v
	}
	return nil
}

func objectField(m map[string]interface{}, key string) map[string]interface{} {
	if obj, ok := m[key].(map[string]interface{}); ok {
		return obj
	}
	return map[string]interface{}{}
}

// buildCareNeeds maps schema-valid wizard answers onto the fixed record.
func buildCareNeeds(raw map[string]interface{}, defaultRadius float64) (models.CareNeeds, []string, error) {
	warnings := []string{}

	needs := models.CareNeeds{
		CareType:     models.CareType(stringField(raw, "careType")),
		MedicalNeeds: normalizeSet(raw["medicalNeeds"]),
		DailyHelp:    normalizeSet(raw["dailyHelp"]),
		Preferences:  normalizeSet(raw["preferences"]),
		Timeline:     models.Timeline(stringField(raw, "timeline")),
	}
	if needs.CareType == "" {
		needs.CareType = models.CareTypeGeneral
	}
	if needs.Timeline == "" {
		needs.Timeline = models.TimelineExploring
	}

	loc := objectField(raw, "location")
	needs.Location = models.Location{
		City:      stringField(loc, "city"),
		Zip:       stringField(loc, "zip"),
		Latitude:  floatField(loc, "latitude"),
		Longitude: floatField(loc, "longitude"),
	}
	if r := floatField(loc, "radiusMiles"); r != nil {
		needs.Location.RadiusMiles = *r
	} else {
		needs.Location.RadiusMiles = defaultRadius
	}
	if (needs.Location.Latitude == nil) != (needs.Location.Longitude == nil) {
		needs.Location.Latitude, needs.Location.Longitude = nil, nil
		warnings = append(warnings, "Ignored partial coordinates")
	}
	if needs.Location.City == "" && needs.Location.Zip == "" && !needs.Location.HasPoint() {
		warnings = append(warnings, "No location given; distance is not scored")
	}

	budget := objectField(raw, "budget")
	min, err := parseAmount(budget["min"])
	if err != nil {
		return needs, warnings, err
	}
	max, err := parseAmount(budget["max"])
	if err != nil {
		return needs, warnings, err
	}
	usesMedicaid, _ := budget["usesMedicaid"].(bool)
	ltc, _ := budget["hasLongTermCareInsurance"].(bool)
	needs.Budget = models.Budget{Min: min, Max: max, UsesMedicaid: usesMedicaid, HasLongTermCareInsurance: ltc}
	if !needs.Budget.IsSet() && !usesMedicaid {
		warnings = append(warnings, "No budget given; price is not scored")
	}

	return needs, warnings, nil
}
