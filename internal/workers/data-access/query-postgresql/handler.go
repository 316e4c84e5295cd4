package querypostgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"afh-workers/internal/common/database"
	apperrors "afh-workers/internal/common/errors"
	"afh-workers/internal/common/logger"
	"afh-workers/internal/models"
	"afh-workers/internal/workers/data-access/query-postgresql/queries"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "query-postgresql"
)

type Handler struct {
	config *Config
	db     *sql.DB
	logger logger.Logger
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		db:     db,
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

	queryType := models.QueryType(input.QueryType)
	if _, exists := queries.Registry[queryType]; !exists {
		return nil, apperrors.NewInvalidQueryTypeError(input.QueryType)
	}
	if h.db == nil {
		return nil, apperrors.NewDatabaseConnectionFailedError(errors.New("database not configured"))
	}

	params := make(map[string]interface{})
	if input.FacilityID != "" {
		params["facilityId"] = input.FacilityID
	}
	if len(input.FacilityIDs) > 0 {
		params["facilityIds"] = input.FacilityIDs
	}
	if input.ResidentID != "" {
		params["residentId"] = input.ResidentID
	}
	if input.Month != "" {
		params["month"] = input.Month
	}

	data, rowCount, execTime, err := queries.Execute(ctx, h.db, queryType, params)
	if err != nil {
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
			return nil, apperrors.NewQueryTimeoutError(input.QueryType)
		case errors.Is(err, queries.ErrMissingParam):
			return nil, apperrors.NewInputParseFailedError(err)
		case errors.Is(err, database.ErrFacilityNotFound):
			return nil, apperrors.NewFacilityNotFoundError(input.FacilityID).
				WithMetadata("facilityId", input.FacilityID)
		default:
			return nil, apperrors.NewQueryExecutionFailedError(input.QueryType, err)
		}
	}

	h.logger.Debug("query executed", map[string]interface{}{
		"queryType": queryType,
		"rowCount":  rowCount,
		"took_ms":   execTime,
	})

	return &Output{
		Data:               data,
		RowCount:           rowCount,
		QueryExecutionTime: execTime,
	}, nil
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
