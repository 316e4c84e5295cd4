package fillregulatoryform

import (
	"time"

	"afh-workers/internal/models"
)

const (
	FormatPDF  = "pdf"
	FormatXLSX = "xlsx"

	contentTypePDF  = "application/pdf"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type Input struct {
	FormType     models.FormType        `json:"formType"`
	FacilityID   string                 `json:"facilityId,omitempty"`
	ResidentID   string                 `json:"residentId,omitempty"`
	Data         map[string]interface{} `json:"data"`
	OutputFormat string                 `json:"outputFormat,omitempty"`
	FileName     string                 `json:"fileName,omitempty"`
}

type Output struct {
	models.GeneratedForm
	StorageKey    string     `json:"storageKey,omitempty"`
	DownloadURL   string     `json:"downloadUrl,omitempty"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	ContentBase64 string     `json:"contentBase64,omitempty"`
}
