package collectcareneeds

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "afh-workers/internal/common/errors"
	"afh-workers/internal/common/geo"
	"afh-workers/internal/common/logger"
	"afh-workers/internal/common/validation"
	"afh-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "collect-care-needs"

type Handler struct {
	config   *Config
	geocoder geo.Geocoder
	logger   logger.Logger
}

// NewHandler builds the intake handler. geocoder may be nil, in which case
// care needs without coordinates stay unlocated.
func NewHandler(config *Config, geocoder geo.Geocoder, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		geocoder: geocoder,
		logger:   log.WithFields(map[string]interface{}{"taskType": TaskType}),
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

	h.completeJob(ctx, client, job, output, log)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	raw := input.RawNeeds
	if raw == nil {
		raw = map[string]interface{}{}
	}

	result, err := rawSchema.Validate(raw)
	if err != nil {
		return nil, apperrors.NewCareNeedsInvalidError(err.Error())
	}
	if !result.Valid {
		return nil, apperrors.NewCareNeedsInvalidError(strings.Join(result.GetErrorMessages(), "; ")).
			WithMetadata("validationErrors", result.Errors)
	}

	needs, warnings, err := buildCareNeeds(raw, h.config.DefaultRadiusMiles)
	if err != nil {
		return nil, apperrors.NewCareNeedsInvalidError(err.Error())
	}

	if vr := validation.ValidateStruct(needs); !vr.Valid {
		return nil, apperrors.NewCareNeedsInvalidError(strings.Join(vr.GetErrorMessages(), "; ")).
			WithMetadata("validationErrors", vr.Errors)
	}

	if !needs.Location.HasPoint() && needs.Location.Zip != "" {
		if warning := h.locate(ctx, &needs); warning != "" {
			warnings = append(warnings, warning)
		}
	}

	h.logger.Info("care needs collected", map[string]interface{}{
		"careType":     needs.CareType,
		"timeline":     needs.Timeline,
		"medicalNeeds": len(needs.MedicalNeeds),
		"dailyHelp":    len(needs.DailyHelp),
		"geocoded":     needs.Location.HasPoint(),
		"warnings":     len(warnings),
	})

	return &Output{
		CareNeeds: needs,
		Geocoded:  needs.Location.HasPoint(),
		Warnings:  warnings,
	}, nil
}

// locate resolves the zip to coordinates. A failure only produces a warning.
func (h *Handler) locate(ctx context.Context, needs *models.CareNeeds) string {
	if h.geocoder == nil {
		return ""
	}

	gctx, cancel := context.WithTimeout(ctx, h.config.GeocodeTimeout)
	defer cancel()

	p, err := h.geocoder.Geocode(gctx, needs.Location.Zip)
	if err != nil {
		h.logger.Warn("geocoding failed, continuing without coordinates", map[string]interface{}{
			"zip":   needs.Location.Zip,
			"error": err.Error(),
		})
		return fmt.Sprintf("Could not locate zip %s; distance uses city and zip only", needs.Location.Zip)
	}

	lat, lng := p.Latitude, p.Longitude
	needs.Location.Latitude = &lat
	needs.Location.Longitude = &lng
	return ""
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
