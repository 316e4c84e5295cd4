// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"fmt"
	"sync"
	"time"

	"afh-workers/internal/common/config"
	"afh-workers/internal/common/logger"
	"afh-workers/internal/common/metrics"
	"afh-workers/internal/common/observability"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.opentelemetry.io/otel/attribute"
)

// Job outcomes as seen by the instrumentation.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeThrown    = "bpmn_error"
	OutcomeUnknown   = "no_command"
	OutcomePanic     = "panic"
)

// recordingClient notes which command a handler issued for its job.
type recordingClient struct {
	worker.JobClient
	mu      sync.Mutex
	outcome string
}

func (r *recordingClient) set(outcome string) {
	r.mu.Lock()
	r.outcome = outcome
	r.mu.Unlock()
}

func (r *recordingClient) Outcome() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcome == "" {
		return OutcomeUnknown
	}
	return r.outcome
}

func (r *recordingClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	r.set(OutcomeCompleted)
	return r.JobClient.NewCompleteJobCommand()
}

func (r *recordingClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	r.set(OutcomeFailed)
	return r.JobClient.NewFailJobCommand()
}

func (r *recordingClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	r.set(OutcomeThrown)
	return r.JobClient.NewThrowErrorCommand()
}

// Instrument wraps handler with Prometheus job metrics, an OpenTelemetry
// span and panic recovery. A panicking handler fails the job without
// consuming a retry.
func Instrument(taskType string, handler worker.JobHandler, obs *observability.Observability, log logger.Logger) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		start := time.Now()
		active := metrics.WorkerJobsActive.WithLabelValues(taskType)
		active.Inc()
		defer active.Dec()

		ctx, span := obs.StartSpan(context.Background(), "job "+taskType,
			attribute.String("zeebe.task_type", taskType),
			attribute.Int64("zeebe.job_key", job.Key),
			attribute.Int64("zeebe.process_instance_key", job.ProcessInstanceKey),
			attribute.String("zeebe.bpmn_process_id", job.BpmnProcessId),
		)

		rec := &recordingClient{JobClient: client}
		outcome := OutcomeUnknown

		defer func() {
			var spanErr error
			if p := recover(); p != nil {
				outcome = OutcomePanic
				spanErr = fmt.Errorf("handler panic: %v", p)
				logger.ForJob(log, job).Error("job handler panicked", map[string]interface{}{"panic": fmt.Sprint(p)})
				failAfterPanic(client, job, spanErr, log)
			} else {
				outcome = rec.Outcome()
				if outcome != OutcomeCompleted {
					spanErr = fmt.Errorf("job ended with %s", outcome)
				}
			}

			elapsed := time.Since(start)
			metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(elapsed.Seconds())
			if outcome == OutcomeCompleted {
				metrics.WorkerJobsCompleted.WithLabelValues(taskType).Inc()
			} else {
				metrics.WorkerJobsFailed.WithLabelValues(taskType, outcome).Inc()
			}
			obs.RecordJobProcessed(ctx, taskType, outcome)
			obs.RecordJobDuration(ctx, taskType, elapsed, outcome)
			observability.EndSpan(span, spanErr)
		}()

		handler(rec, job)
	}
}

func failAfterPanic(client worker.JobClient, job entities.Job, err error, log logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, sendErr := client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(job.Retries).
		ErrorMessage(err.Error()).
		Send(ctx)
	if sendErr != nil {
		logger.ForJob(log, job).Error("failed to send fail job command", map[string]interface{}{"error": sendErr})
	}
}

// CamundaWorker is an open job worker for one task type.
type CamundaWorker struct {
	worker   worker.JobWorker
	logger   logger.Logger
	taskType string
}

// StartWorker opens an instrumented job worker. It returns nil when the
// worker is disabled in configuration.
func StartWorker(
	client zbc.Client,
	taskType string,
	wcfg config.WorkerConfig,
	handler worker.JobHandler,
	obs *observability.Observability,
	log logger.Logger,
) *CamundaWorker {
	wlog := log.WithFields(map[string]interface{}{"taskType": taskType})
	if !wcfg.Enabled {
		wlog.Info("worker disabled", nil)
		return nil
	}

	jobWorker := client.NewJobWorker().
		JobType(taskType).
		Handler(Instrument(taskType, handler, obs, log)).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Name("afh-" + taskType).
		Open()

	wlog.Info("worker started", map[string]interface{}{
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})

	return &CamundaWorker{worker: jobWorker, logger: wlog, taskType: taskType}
}

// Stop closes the worker and waits for in-flight jobs.
func (w *CamundaWorker) Stop() {
	if w == nil {
		return
	}
	w.logger.Info("stopping worker", nil)
	w.worker.Close()
	w.worker.AwaitClose()
}
