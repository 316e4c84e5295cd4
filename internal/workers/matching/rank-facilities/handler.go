package rankfacilities

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	apperrors "afh-workers/internal/common/errors"
	"afh-workers/internal/common/logger"
	"afh-workers/internal/common/metrics"
	"afh-workers/internal/matching"
	"afh-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"golang.org/x/sync/errgroup"
)

const TaskType = "rank-facilities"

// FacilitySource loads facilities by id in one round trip, reporting the ids
// that matched nothing.
type FacilitySource interface {
	GetMany(ctx context.Context, ids []string) ([]models.Facility, []string, error)
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
	start := time.Now()

	candidates := append([]models.Facility{}, input.Facilities...)
	loaded, missing, err := h.load(ctx, input.FacilityIDs)
	if err != nil {
		return nil, err
	}
	candidates = append(candidates, loaded...)

	opts := matching.RankOptions{
		Limit:         input.Limit,
		Offset:        input.Offset,
		MinScore:      h.config.MinScore,
		AvailableOnly: input.AvailableOnly,
	}
	if opts.Limit <= 0 {
		opts.Limit = h.config.DefaultLimit
	}
	if input.MinScore != nil {
		opts.MinScore = *input.MinScore
	}

	ranking := h.scorer.Rank(input.CareNeeds, candidates, opts)

	metrics.FacilitiesRanked.Add(float64(ranking.TotalCandidates))
	for _, r := range ranking.Facilities {
		metrics.MatchScores.WithLabelValues(string(input.CareNeeds.CareType)).Observe(float64(r.MatchScore.Overall))
	}

	fields := map[string]interface{}{
		"candidates": ranking.TotalCandidates,
		"matched":    ranking.TotalMatched,
		"returned":   len(ranking.Facilities),
		"missing":    len(missing),
		"elapsed_ms": time.Since(start).Milliseconds(),
	}
	if elapsed := time.Since(start); h.config.SlowThreshold > 0 && elapsed > h.config.SlowThreshold {
		h.logger.Warn("slow facility ranking", fields)
	} else {
		h.logger.Info("facilities ranked", fields)
	}

	return &Output{
		RankedFacilities:   ranking.Facilities,
		TotalCandidates:    ranking.TotalCandidates,
		TotalMatched:       ranking.TotalMatched,
		MissingFacilityIDs: missing,
	}, nil
}

// load fetches facilities in batches, a bounded number at a time. Unknown ids
// are reported back, any other failure aborts the ranking.
func (h *Handler) load(ctx context.Context, ids []string) ([]models.Facility, []string, error) {
	if len(ids) == 0 {
		return nil, nil, nil
	}
	if h.facilities == nil {
		return nil, nil, apperrors.NewDatabaseConnectionFailedError(errors.New("facility repository not configured"))
	}

	batches := batchIDs(ids, h.config.LoadBatchSize)
	found := make([][]models.Facility, len(batches))
	missed := make([][]string, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	limit := h.config.LoadWorkers
	if limit <= 0 {
		limit = 8
	}
	g.SetLimit(limit)

	for i, batch := range batches {
		i, batch := i, batch
		g.Go(func() error {
			var err error
			found[i], missed[i], err = h.facilities.GetMany(gctx, batch)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, nil, apperrors.NewQueryTimeoutError("facilities_by_ids")
		}
		return nil, nil, apperrors.NewDatabaseConnectionFailedError(err)
	}

	out := make([]models.Facility, 0, len(ids))
	var missing []string
	for i := range batches {
		out = append(out, found[i]...)
		missing = append(missing, missed[i]...)
	}
	if len(missing) > 0 {
		h.logger.Warn("facilities not found", map[string]interface{}{"facilityIds": missing})
	}
	return out, missing, nil
}

// batchIDs drops duplicate ids and splits the rest into chunks of size.
func batchIDs(ids []string, size int) [][]string {
	if size <= 0 {
		size = 50
	}
	seen := make(map[string]bool, len(ids))
	var batches [][]string
	var current []string
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		current = append(current, id)
		if len(current) == size {
			batches = append(batches, current)
			current = nil
		}
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
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
