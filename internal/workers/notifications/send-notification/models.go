package sendnotification

import "afh-workers/internal/models"

type Input struct {
	RecipientID      string                  `json:"recipientId"`
	RecipientType    models.RecipientType    `json:"recipientType"`
	NotificationType models.NotificationType `json:"notificationType"`
	Priority         string                  `json:"priority,omitempty"`
	RequestID        string                  `json:"requestId,omitempty"`

	// match_results_ready
	CareNeeds        *models.CareNeeds       `json:"careNeeds,omitempty"`
	RankedFacilities []models.RankedFacility `json:"rankedFacilities,omitempty"`
	TotalMatched     int                     `json:"totalMatched,omitempty"`

	// form_generated
	FormType    models.FormType `json:"formType,omitempty"`
	DownloadURL string          `json:"downloadUrl,omitempty"`
	ExpiresAt   string          `json:"expiresAt,omitempty"`

	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type Output struct {
	NotificationID string   `json:"notificationId"`
	Status         string   `json:"status"`
	Channels       []string `json:"channels,omitempty"`
	FailedChannels []string `json:"failedChannels,omitempty"`
	SentAt         string   `json:"sentAt"`
}

const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

var priorityRank = map[string]int{
	PriorityLow:    0,
	PriorityNormal: 1,
	PriorityHigh:   2,
	PriorityUrgent: 3,
}

// Recipient is a row of one of the contact directories.
type Recipient struct {
	ID      string
	Name    string
	Email   string
	Phone   string
	Enabled bool
}
