package presentresults

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "afh-workers/internal/common/errors"
	"afh-workers/internal/common/logger"
	"afh-workers/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "present-results"

type Handler struct {
	config    *Config
	templates *TemplateStore
	logger    logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		templates: NewTemplateStore(config.TemplateRegistry, config.CacheTTL),
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
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

	output, err := h.Execute(ctx, &input)
	if err != nil {
		apperrors.NewErrorHandler(log).HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output, log)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	templateID := input.TemplateId
	if templateID == "" {
		templateID = DefaultTemplateID
	}

	template, err := h.templates.Get(templateID)
	if err != nil {
		h.logger.Warn("template lookup failed", map[string]interface{}{
			"templateId": templateID,
			"error":      err.Error(),
		})
		stdErr := apperrors.NewTemplateNotFoundError(templateID)
		if !errors.Is(err, ErrTemplateNotFound) {
			stdErr = stdErr.WithMetadata("registryError", err.Error())
		}
		return nil, stdErr
	}

	data, err := h.buildData(input)
	if err != nil {
		return nil, apperrors.NewTemplateValidationFailedError(err.Error())
	}

	result, err := validation.ValidateDocument(template.Schema, data)
	if err != nil {
		return nil, apperrors.NewTemplateValidationFailedError(err.Error())
	}
	if !result.Valid {
		msgs := result.GetErrorMessages()
		return nil, apperrors.NewTemplateValidationFailedError(strings.Join(msgs, "; ")).
			WithMetadata("validationErrors", msgs)
	}

	rendered, ok := Substitute(template.Template, data).(map[string]interface{})
	if !ok || template.Template == nil {
		return nil, apperrors.NewTemplateValidationFailedError(
			fmt.Sprintf("template %s must have an object at its root", templateID))
	}

	h.logger.Info("results presented", map[string]interface{}{
		"templateId": templateID,
		"requestId":  input.RequestId,
		"cards":      len(input.RankedFacilities),
	})

	return &Output{Response: ResponsePayload{
		RequestId: input.RequestId,
		Status:    "success",
		Data:      rendered,
		Metadata: ResponseMetadata{
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
			Version:    h.config.AppVersion,
			TemplateId: templateID,
		},
	}}, nil
}

// buildData assembles the template data as plain JSON values so the schema
// check and placeholder lookups see exactly what will be serialized.
func (h *Handler) buildData(input *Input) (map[string]interface{}, error) {
	cards := BuildCards(input.RankedFacilities)
	matched := input.TotalMatched
	if matched < len(cards) {
		matched = len(cards)
	}

	raw := map[string]interface{}{
		"requestId":     input.RequestId,
		"careType":      input.CareNeeds.CareType,
		"careTypeLabel": input.CareNeeds.CareType.Label(),
		"location":      input.CareNeeds.Location,
		"count":         len(cards),
		"totalMatched":  matched,
		"hasResults":    len(cards) > 0,
		"summary":       summary(input.CareNeeds, len(cards), matched),
		"results":       cards,
	}
	if len(cards) > 0 {
		raw["topMatch"] = cards[0]
	}

	b, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode template data: %w", err)
	}
	var data map[string]interface{}
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("decode template data: %w", err)
	}
	return data, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output, log logger.Logger) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		log.Error("failed to create complete job command", map[string]interface{}{"error": err.Error()})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		log.Error("failed to send complete job command", map[string]interface{}{"error": err.Error()})
	}
}
