// internal/models/form.go
package models

import "time"

// FormType identifies a DSHS regulatory form.
type FormType string

const (
	FormTypeNCP            FormType = "ncp"
	FormTypeIncidentReport FormType = "incident_report"
	FormTypeMAR            FormType = "mar"
)

// Title is the printed name of the form.
func (f FormType) Title() string {
	switch f {
	case FormTypeNCP:
		return "Negotiated Care Plan"
	case FormTypeIncidentReport:
		return "Incident Report"
	case FormTypeMAR:
		return "Medication Administration Record"
	default:
		return string(f)
	}
}

// MedicationRow is one line of a Medication Administration Record.
// Administrations maps a day of month ("1".."31") to the initials of the
// caregiver who gave the dose.
type MedicationRow struct {
	Name            string            `json:"name"`
	Dose            string            `json:"dose"`
	Route           string            `json:"route"`
	Frequency       string            `json:"frequency"`
	Times           string            `json:"times,omitempty"`
	Prescriber      string            `json:"prescriber,omitempty"`
	StartDate       string            `json:"startDate,omitempty"`
	Administrations map[string]string `json:"administrations,omitempty"`
}

// GeneratedForm describes a rendered document.
type GeneratedForm struct {
	FormType    FormType  `json:"formType"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	PageCount   int       `json:"pageCount"`
	SizeBytes   int       `json:"sizeBytes"`
	SHA256      string    `json:"sha256"`
	GeneratedAt time.Time `json:"generatedAt"`
}
