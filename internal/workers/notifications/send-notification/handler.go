package sendnotification

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"afh-workers/internal/common/aws"
	apperrors "afh-workers/internal/common/errors"
	"afh-workers/internal/common/logger"
	"afh-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const TaskType = "send-notification"

var errDeliveryFailed = errors.New("every channel failed")

type EmailSender interface {
	SendEmail(ctx context.Context, email aws.Email) (string, error)
}

type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) (string, error)
}

type Handler struct {
	config    *Config
	db        *sql.DB
	email     EmailSender
	sms       SMSSender
	templates map[models.NotificationType]models.NotificationTemplate
	logger    logger.Logger
	now       func() time.Time
}

// NewHandler wires the worker. email and sms may be nil when the channel is
// not configured.
func NewHandler(config *Config, db *sql.DB, email EmailSender, sms SMSSender, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		db:        db,
		email:     email,
		sms:       sms,
		templates: builtinTemplates,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
		now:       time.Now,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	log := logger.ForJob(h.logger, job)
	log.Info("processing job", nil)

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		apperrors.NewErrorHandler(log).HandleJobError(ctx, client, job, apperrors.NewInputParseFailedError(err))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		apperrors.NewErrorHandler(log).HandleJobError(ctx, client, job, err)
		return
	}

	if h.shouldRetry(job, output) {
		apperrors.NewErrorHandler(log).HandleJobError(ctx, client, job,
			apperrors.NewNotificationSendFailedError(string(input.NotificationType), errDeliveryFailed))
		return
	}

	h.completeJob(ctx, client, job, output, log)
}

// shouldRetry reports whether a failed delivery should go back to the broker.
// The last attempt completes with status "failed" so the process can move on.
func (h *Handler) shouldRetry(job entities.Job, output *Output) bool {
	return h.config.RetryFailed && output.Status == StatusFailed && job.Retries > 1
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	tmpl, ok := h.templates[input.NotificationType]
	if !ok {
		return nil, apperrors.NewTemplateNotFoundError(string(input.NotificationType))
	}
	if input.RecipientID == "" {
		return nil, apperrors.NewRecipientNotFoundError(string(input.RecipientType), input.RecipientID)
	}

	output := &Output{
		NotificationID: uuid.New().String(),
		Status:         StatusDisabled,
		SentAt:         h.now().UTC().Format(time.RFC3339),
	}

	recipient, err := h.recipient(ctx, input)
	if err != nil {
		if errors.Is(err, ErrRecipientNotFound) {
			h.logger.Warn("recipient not found", map[string]interface{}{
				"recipientId":   input.RecipientID,
				"recipientType": input.RecipientType,
			})
			return output, nil
		}
		return nil, err
	}
	if !recipient.Enabled {
		h.logger.Info("recipient opted out of notifications", map[string]interface{}{
			"recipientId": recipient.ID,
		})
		return output, nil
	}

	data := h.templateData(input, recipient)
	subject := renderTemplate(tmpl.Subject, data)
	body := renderTemplate(tmpl.Body, data)

	attempted := 0
	if h.config.EmailEnabled && h.email != nil && recipient.Email != "" {
		attempted++
		email := aws.Email{To: recipient.Email, Subject: subject, Text: body}
		if tmpl.HTMLBody != "" {
			email.HTML = renderTemplate(tmpl.HTMLBody, data)
		}
		if _, err := h.email.SendEmail(ctx, email); err != nil {
			h.logger.Error("email send failed", map[string]interface{}{
				"error":       err.Error(),
				"recipientId": recipient.ID,
			})
			output.FailedChannels = append(output.FailedChannels, ChannelEmail)
		} else {
			output.Channels = append(output.Channels, ChannelEmail)
		}
	}

	if h.wantsSMS(input, tmpl, recipient) {
		attempted++
		if _, err := h.sms.SendSMS(ctx, recipient.Phone, renderTemplate(tmpl.SMSBody, data)); err != nil {
			h.logger.Error("SMS send failed", map[string]interface{}{
				"error":       err.Error(),
				"recipientId": recipient.ID,
			})
			output.FailedChannels = append(output.FailedChannels, ChannelSMS)
		} else {
			output.Channels = append(output.Channels, ChannelSMS)
		}
	}

	switch {
	case attempted == 0:
		output.Status = StatusDisabled
	case len(output.Channels) > 0:
		output.Status = StatusSent
	default:
		output.Status = StatusFailed
	}

	h.logger.Info("notification processed", map[string]interface{}{
		"notificationId":   output.NotificationID,
		"notificationType": input.NotificationType,
		"status":           output.Status,
		"channels":         strings.Join(output.Channels, ","),
	})
	return output, nil
}

func (h *Handler) recipient(ctx context.Context, input *Input) (*Recipient, error) {
	if _, err := recipientQuery(input.RecipientType); err != nil {
		return nil, apperrors.NewRecipientNotFoundError(string(input.RecipientType), input.RecipientID)
	}
	if h.db == nil {
		return nil, apperrors.NewDatabaseConnectionFailedError(errors.New("no database configured"))
	}

	r, err := lookupRecipient(ctx, h.db, input.RecipientType, input.RecipientID)
	switch {
	case err == nil:
		return r, nil
	case errors.Is(err, ErrRecipientNotFound):
		return nil, err
	case errors.Is(err, context.DeadlineExceeded):
		return nil, apperrors.NewQueryTimeoutError("recipient_contact")
	default:
		return nil, apperrors.NewQueryExecutionFailedError("recipient_contact", err)
	}
}

// wantsSMS sends a text only for templates that define one, when the channel
// is on and the priority reaches the configured threshold.
func (h *Handler) wantsSMS(input *Input, tmpl models.NotificationTemplate, r *Recipient) bool {
	if !h.config.SMSEnabled || h.sms == nil || tmpl.SMSBody == "" || r.Phone == "" {
		return false
	}
	threshold := h.config.SMSPriority
	if threshold == "" {
		threshold = PriorityHigh
	}
	got, ok := priorityRank[strings.ToLower(input.Priority)]
	if !ok {
		return false
	}
	return got >= priorityRank[threshold]
}

func (h *Handler) templateData(input *Input, r *Recipient) map[string]interface{} {
	data := map[string]interface{}{
		"recipientName":    r.Name,
		"notificationType": string(input.NotificationType),
		"priority":         input.Priority,
		"requestId":        input.RequestID,
	}

	switch input.NotificationType {
	case models.NotificationMatchResultsReady:
		total := input.TotalMatched
		if total == 0 {
			total = len(input.RankedFacilities)
		}
		data["summary"] = resultsSummary(input.CareNeeds, total)
		data["topMatches"] = topMatchesText(input.RankedFacilities, h.config.MaxTopMatches)
		if h.config.ResultsURL != "" {
			data["resultsUrl"] = strings.ReplaceAll(h.config.ResultsURL, "{requestId}", input.RequestID)
		}
	case models.NotificationFormGenerated:
		data["formTitle"] = input.FormType.Title()
		data["downloadUrl"] = input.DownloadURL
		data["expiresAt"] = input.ExpiresAt
	}

	// Metadata fills and overrides the derived values.
	for k, v := range input.Metadata {
		data[k] = v
	}
	return data
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output, log logger.Logger) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		log.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		log.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
