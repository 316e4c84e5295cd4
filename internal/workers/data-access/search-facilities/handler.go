package searchfacilities

import (
	"context"
	"encoding/json"
	"errors"

	apperrors "afh-workers/internal/common/errors"
	"afh-workers/internal/common/logger"
	"afh-workers/internal/models"
	"afh-workers/internal/workers/data-access/search-facilities/queries"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/elastic/go-elasticsearch/v8"
)

const (
	TaskType = "search-facilities"
)

type Handler struct {
	config *Config
	client *elasticsearch.Client
	logger logger.Logger
}

func NewHandler(config *Config, client *elasticsearch.Client, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		client: client,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
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
	if input == nil {
		return nil, apperrors.NewInputParseFailedError(errors.New("input cannot be nil"))
	}
	if h.client == nil {
		return nil, apperrors.NewElasticsearchConnectionFailedError(errors.New("elasticsearch client not configured"))
	}

	index := input.IndexName
	if index == "" {
		index = h.config.DefaultIndex
	}
	queryType := input.QueryType
	if queryType == "" {
		queryType = models.QueryTypeFacilitySearch
	}

	result, err := queries.Execute(ctx, h.client, queries.SearchQuery{
		Index:         index,
		QueryType:     queryType,
		CareNeeds:     input.CareNeeds,
		FacilityID:    input.FacilityID,
		AvailableOnly: input.AvailableOnly,
		From:          input.Pagination.From,
		Size:          input.Pagination.Size,
	})
	if err != nil {
		return nil, h.mapError(ctx, string(queryType), index, err)
	}

	h.logger.Info("facility search complete", map[string]interface{}{
		"queryType": queryType,
		"index":     index,
		"totalHits": result.TotalHits,
		"returned":  len(result.Facilities),
		"took_ms":   result.Took,
	})

	return &Output{
		Facilities: result.Facilities,
		TotalHits:  result.TotalHits,
		MaxScore:   result.MaxScore,
		Took:       result.Took,
	}, nil
}

func (h *Handler) mapError(ctx context.Context, queryType, index string, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewSearchTimeoutError(queryType)
	case errors.Is(err, queries.ErrUnknownQueryType):
		return apperrors.NewInvalidQueryTypeError(queryType)
	case errors.Is(err, queries.ErrMissingIndex), errors.Is(err, queries.ErrIndexNotFound):
		return apperrors.NewIndexNotFoundError(index)
	case errors.Is(err, queries.ErrSearchFailed):
		return apperrors.NewSearchQueryFailedError(queryType, err)
	default:
		return apperrors.NewElasticsearchConnectionFailedError(err)
	}
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
