// internal/models/notification.go
package models

// NotificationType selects the template and recipient directory.
type NotificationType string

const (
	NotificationMatchResultsReady NotificationType = "match_results_ready"
	NotificationFormGenerated     NotificationType = "form_generated"
	NotificationIncidentReported  NotificationType = "incident_reported"
)

// RecipientType names the directory table a recipient lives in.
type RecipientType string

const (
	RecipientFamily        RecipientType = "family"
	RecipientStaff         RecipientType = "staff"
	RecipientFacilityOwner RecipientType = "facility_owner"
)

type Notification struct {
	ID            string                 `json:"id"`
	RecipientID   string                 `json:"recipientId"`
	RecipientType RecipientType          `json:"recipientType"`
	Type          NotificationType       `json:"type"`
	Channel       string                 `json:"channel"` // "email", "sms"
	Status        string                 `json:"status"`  // "sent", "failed", "disabled"
	Payload       map[string]interface{} `json:"payload"`
	SentAt        string                 `json:"sentAt"`
}

type NotificationTemplate struct {
	Type     NotificationType `json:"type"`
	Subject  string           `json:"subject"`
	Body     string           `json:"body"`
	SMSBody  string           `json:"smsBody,omitempty"`
	HTMLBody string           `json:"htmlBody,omitempty"`
}
