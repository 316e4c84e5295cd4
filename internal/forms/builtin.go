package forms

import (
	"fmt"

	"afh-workers/internal/models"
)

// careDomain is one assessed area of the Negotiated Care Plan.
type careDomain struct {
	key   string
	title string
}

// ncpDomains is the page order of the care plan after the identification
// and contact pages.
var ncpDomains = []careDomain{
	{"communication", "Communication"},
	{"vision_hearing", "Vision and Hearing"},
	{"memory_cognition", "Memory and Cognition"},
	{"behavior", "Behavior"},
	{"mood", "Mood and Emotional Wellbeing"},
	{"medication_management", "Medication Management"},
	{"ambulation", "Ambulation and Mobility"},
	{"transfers", "Transfers"},
	{"bed_mobility", "Bed Mobility"},
	{"eating", "Eating and Nutrition"},
	{"toileting", "Toileting and Continence"},
	{"bathing", "Bathing"},
	{"dressing", "Dressing"},
	{"personal_hygiene", "Personal Hygiene"},
	{"skin_care", "Skin Care"},
	{"pain", "Pain Management"},
	{"sleep", "Sleep and Rest"},
	{"activities", "Activities and Social Needs"},
}

var ncpContactRoles = []string{"guardian", "physician", "pharmacy", "caseManager", "emergency"}

// BuiltinLayouts returns fresh copies of the stock layouts.
func BuiltinLayouts() []*Layout {
	return []*Layout{ncpLayout(), incidentReportLayout(), marLayout()}
}

func text(key string, page int, x, y, maxWidth float64) Field {
	return Field{Key: key, Page: page, X: x, Y: y, Kind: KindText, MaxWidth: maxWidth}
}

func date(key string, page int, x, y float64) Field {
	return Field{Key: key, Page: page, X: x, Y: y, Kind: KindDate, MaxWidth: 90}
}

func checkbox(key string, page int, x, y float64) Field {
	return Field{Key: key, Page: page, X: x, Y: y, Kind: KindCheckbox}
}

func multiline(key string, page int, x, y, maxWidth float64, lines int) Field {
	return Field{Key: key, Page: page, X: x, Y: y, Kind: KindMultiline, MaxWidth: maxWidth, Lines: lines}
}

func ncpLayout() *Layout {
	l := &Layout{
		FormType: models.FormTypeNCP,
		Title:    "Negotiated Care Plan",
		Template: "dshs-negotiated-care-plan.pdf",
		Pages:    2 + len(ncpDomains),
		Required: []string{
			"resident.name",
			"resident.dob",
			"facility.name",
			"facility.licenseNumber",
			"assessmentDate",
		},
	}

	l.PageTitles = append(l.PageTitles, "Resident Identification", "Contacts")
	l.Fields = append(l.Fields,
		text("resident.name", 1, 150, 130, 250),
		date("resident.dob", 1, 470, 130),
		text("resident.medicaidId", 1, 150, 160, 150),
		text("resident.primaryLanguage", 1, 400, 160, 170),
		text("facility.name", 1, 150, 210, 420),
		text("facility.licenseNumber", 1, 150, 240, 150),
		text("facility.phone", 1, 400, 240, 170),
		text("facility.address", 1, 150, 270, 420),
		date("assessmentDate", 1, 150, 320),
		date("planEffectiveDate", 1, 400, 320),
		checkbox("planType.initial", 1, 152, 360),
		checkbox("planType.update", 1, 252, 360),
		checkbox("planType.significantChange", 1, 352, 360),
		multiline("diagnoses", 1, 60, 420, 490, 6),
		multiline("allergies", 1, 60, 540, 490, 3),
		text("preparedBy", 1, 150, 700, 200),
		date("preparedDate", 1, 400, 700),
	)

	for i, role := range ncpContactRoles {
		y := 130 + float64(i)*110
		prefix := "contacts." + role
		l.Fields = append(l.Fields,
			text(prefix+".name", 2, 150, y, 230),
			text(prefix+".phone", 2, 400, y, 170),
			text(prefix+".address", 2, 150, y+25, 420),
			text(prefix+".email", 2, 150, y+50, 250),
		)
	}

	// Every care domain page shares one section geometry.
	for i, d := range ncpDomains {
		page := 3 + i
		prefix := fmt.Sprintf("domains.%s", d.key)
		l.PageTitles = append(l.PageTitles, d.title)
		l.Fields = append(l.Fields,
			Field{Key: "resident.name", Page: page, X: 420, Y: 60, FontSize: 9, Kind: KindText, MaxWidth: 160},
			text(prefix+".level", page, 160, 118, 180),
			checkbox(prefix+".needsAssistance", page, 452, 118),
			multiline(prefix+".strengths", page, 60, 170, 490, 5),
			multiline(prefix+".needs", page, 60, 290, 490, 6),
			multiline(prefix+".supports", page, 60, 420, 490, 8),
			text(prefix+".provider", page, 150, 600, 200),
			text(prefix+".frequency", page, 400, 600, 170),
			multiline(prefix+".residentPreferences", page, 60, 650, 490, 4),
		)
	}
	return l
}

func incidentReportLayout() *Layout {
	return &Layout{
		FormType:   models.FormTypeIncidentReport,
		Title:      "Incident Report",
		Template:   "dshs-incident-report.pdf",
		Pages:      2,
		PageTitles: []string{"Incident Details", "Notifications and Follow-up"},
		Required: []string{
			"facility.name",
			"resident.name",
			"incident.date",
			"incident.description",
			"reportedBy.name",
		},
		Fields: []Field{
			text("facility.name", 1, 150, 120, 250),
			text("facility.licenseNumber", 1, 470, 120, 100),
			text("resident.name", 1, 150, 150, 250),
			date("resident.dob", 1, 470, 150),
			date("incident.date", 1, 150, 190),
			text("incident.time", 1, 300, 190, 80),
			text("incident.location", 1, 420, 190, 150),
			checkbox("incident.types.fall", 1, 72, 230),
			checkbox("incident.types.medication_error", 1, 172, 230),
			checkbox("incident.types.injury", 1, 272, 230),
			checkbox("incident.types.abuse_neglect", 1, 372, 230),
			checkbox("incident.types.elopement", 1, 472, 230),
			checkbox("incident.types.other", 1, 72, 250),
			text("incident.types.otherDescription", 1, 172, 250, 380),
			multiline("incident.description", 1, 60, 300, 490, 12),
			multiline("incident.witnesses", 1, 60, 520, 490, 3),
			multiline("incident.injuries", 1, 60, 600, 490, 5),

			multiline("incident.actionsTaken", 2, 60, 130, 490, 10),
			checkbox("notifications.physician", 2, 72, 320),
			date("notifications.physicianNotifiedAt", 2, 200, 320),
			checkbox("notifications.family", 2, 72, 345),
			date("notifications.familyNotifiedAt", 2, 200, 345),
			checkbox("notifications.dshs", 2, 72, 370),
			date("notifications.dshsNotifiedAt", 2, 200, 370),
			checkbox("notifications.caseManager", 2, 72, 395),
			date("notifications.caseManagerNotifiedAt", 2, 200, 395),
			multiline("followUp.plan", 2, 60, 450, 490, 8),
			text("reportedBy.name", 2, 150, 660, 200),
			text("reportedBy.title", 2, 400, 660, 170),
			date("reportedBy.date", 2, 150, 690),
			text("reviewedBy.name", 2, 400, 690, 170),
		},
	}
}

// MARDays is the number of day columns on the administration record.
const MARDays = 31

func marLayout() *Layout {
	return &Layout{
		FormType:   models.FormTypeMAR,
		Title:      "Medication Administration Record",
		Template:   "dshs-medication-administration-record.pdf",
		Pages:      1,
		PageWidth:  LetterHeight,
		PageHeight: LetterWidth,
		Required:   []string{"resident.name", "facility.name", "month", "medications"},
		Fields: []Field{
			text("resident.name", 1, 110, 70, 200),
			date("resident.dob", 1, 380, 70),
			text("facility.name", 1, 560, 70, 200),
			text("month", 1, 110, 92, 120),
			text("physician", 1, 380, 92, 160),
			text("allergies", 1, 560, 92, 200),
			Field{Key: "notes", Page: 1, X: 36, Y: 580, FontSize: 7, Kind: KindMultiline, MaxWidth: 720, Lines: 2},
		},
		Grids: []Grid{{
			Key:       "medications",
			Page:      1,
			OriginY:   140,
			RowHeight: 26,
			MaxRows:   16,
			FontSize:  7,
			Columns: []GridColumn{
				{Key: "name", X: 36, Width: 110},
				{Key: "dose", X: 150, Width: 46},
				{Key: "route", X: 200, Width: 34},
				{Key: "frequency", X: 238, Width: 50},
			},
			DayKey:     "administrations",
			DayColumns: MARDays,
			DayOriginX: 292,
			DayWidth:   15.5,
		}},
	}
}
