package calculatematchscore

import (
	"context"
	"encoding/json"
	"errors"

	"afh-workers/internal/common/database"
	apperrors "afh-workers/internal/common/errors"
	"afh-workers/internal/common/logger"
	"afh-workers/internal/common/metrics"
	"afh-workers/internal/matching"
	"afh-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "calculate-match-score"

// FacilitySource loads one facility by id.
type FacilitySource interface {
	Get(ctx context.Context, id string) (*models.Facility, error)
}

type Handler struct {
	config     *Config
	scorer     *matching.Scorer
	facilities FacilitySource
	logger     logger.Logger
}

func NewHandler(config *Config, scorer *matching.Scorer, facilities FacilitySource, log logger.Logger) *Handler {
	return &Handler{
		config:     config,
		scorer:     scorer,
		facilities: facilities,
		logger:     log.WithFields(map[string]interface{}{"taskType": TaskType}),
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
	facility, err := h.resolveFacility(ctx, input)
	if err != nil {
		return nil, err
	}

	score := h.scorer.Score(input.CareNeeds, *facility)
	metrics.MatchScores.WithLabelValues(string(input.CareNeeds.CareType)).Observe(float64(score.Overall))

	h.logger.Info("match score calculated", map[string]interface{}{
		"facilityId": facility.ID,
		"overall":    score.Overall,
		"tier":       score.Tier,
		"breakdown":  score.Breakdown,
	})

	return &Output{MatchScore: score}, nil
}

func (h *Handler) resolveFacility(ctx context.Context, input *Input) (*models.Facility, error) {
	if input.Facility != nil {
		return input.Facility, nil
	}
	if input.FacilityID == "" {
		return nil, apperrors.NewMatchScoreFailedError("either facility or facilityId is required")
	}
	if h.facilities == nil {
		return nil, apperrors.NewDatabaseConnectionFailedError(errors.New("facility repository not configured"))
	}

	f, err := h.facilities.Get(ctx, input.FacilityID)
	switch {
	case errors.Is(err, database.ErrFacilityNotFound):
		return nil, apperrors.NewFacilityNotFoundError(input.FacilityID).WithMetadata("facilityId", input.FacilityID)
	case err != nil:
		return nil, apperrors.NewDatabaseConnectionFailedError(err)
	}
	return f, nil
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
