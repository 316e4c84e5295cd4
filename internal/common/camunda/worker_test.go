package camunda

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	apperrors "afh-workers/internal/common/errors"
	"afh-workers/internal/common/logger"
	"afh-workers/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// fakeJobClient hands out nil command builders; the handlers under test only
// need the command to be requested.
type fakeJobClient struct{}

func (fakeJobClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 { return nil }
func (fakeJobClient) NewFailJobCommand() commands.FailJobCommandStep1         { return nil }
func (fakeJobClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1   { return nil }

func testJob() entities.Job {
	return entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 7, ProcessInstanceKey: 9, Retries: 3, Type: "t"}}
}

func TestInstrument_Outcomes(t *testing.T) {
	tests := []struct {
		name     string
		taskType string
		handler  worker.JobHandler
		outcome  string
	}{
		{
			name:     "completed",
			taskType: "instrument-completed",
			handler:  func(c worker.JobClient, _ entities.Job) { c.NewCompleteJobCommand() },
			outcome:  OutcomeCompleted,
		},
		{
			name:     "bpmn error",
			taskType: "instrument-thrown",
			handler:  func(c worker.JobClient, _ entities.Job) { c.NewThrowErrorCommand() },
			outcome:  OutcomeThrown,
		},
		{
			name:     "failed with retries",
			taskType: "instrument-failed",
			handler:  func(c worker.JobClient, _ entities.Job) { c.NewFailJobCommand() },
			outcome:  OutcomeFailed,
		},
		{
			name:     "handler issued nothing",
			taskType: "instrument-silent",
			handler:  func(worker.JobClient, entities.Job) {},
			outcome:  OutcomeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := Instrument(tt.taskType, tt.handler, nil, logger.NewTestLogger(t))
			wrapped(fakeJobClient{}, testJob())

			completed := testutil.ToFloat64(metrics.WorkerJobsCompleted.WithLabelValues(tt.taskType))
			if tt.outcome == OutcomeCompleted {
				assert.Equal(t, 1.0, completed)
			} else {
				assert.Equal(t, 0.0, completed)
				assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WorkerJobsFailed.WithLabelValues(tt.taskType, tt.outcome)))
			}
			assert.Equal(t, 0.0, testutil.ToFloat64(metrics.WorkerJobsActive.WithLabelValues(tt.taskType)))
		})
	}
}

func TestRecordingClient_LastCommandWins(t *testing.T) {
	rec := &recordingClient{JobClient: fakeJobClient{}}
	assert.Equal(t, OutcomeUnknown, rec.Outcome())

	rec.NewCompleteJobCommand()
	rec.NewThrowErrorCommand()
	assert.Equal(t, OutcomeThrown, rec.Outcome())
}

func TestIsRetryableZeebeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"grpc unavailable", status.Error(codes.Unavailable, "connection refused"), true},
		{"grpc resource exhausted", status.Error(codes.ResourceExhausted, "backpressure"), true},
		{"grpc not found", status.Error(codes.NotFound, "job not found"), false},
		{"grpc invalid argument", status.Error(codes.InvalidArgument, "bad variables"), false},
		{"context deadline", fmt.Errorf("send: %w", context.DeadlineExceeded), true},
		{"plain connection reset", errors.New("read tcp: connection reset by peer"), true},
		{"plain validation failure", errors.New("variables must be a JSON object"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableZeebeError(tt.err))
		})
	}
}

func TestMapZeebeError(t *testing.T) {
	c := &Client{config: &ClientConfig{Retry: DefaultRetryConfig}}

	timeout, ok := apperrors.AsStandardError(c.mapZeebeError(status.Error(codes.DeadlineExceeded, "slow broker"), "complete", 2))
	assert.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeTimeout, timeout.Code)
	assert.Contains(t, timeout.Details, "after 2 attempts")

	missing, ok := apperrors.AsStandardError(c.mapZeebeError(status.Error(codes.NotFound, "job 7 not found"), "complete", 0))
	assert.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeResourceNotFound, missing.Code)

	denied, ok := apperrors.AsStandardError(c.mapZeebeError(status.Error(codes.PermissionDenied, "no token"), "topology", 0))
	assert.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeExternalService, denied.Code)
	assert.False(t, denied.Retryable)
}

func TestWithRetry(t *testing.T) {
	c := &Client{config: &ClientConfig{Retry: RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}}}

	t.Run("recovers from transient failures", func(t *testing.T) {
		calls := 0
		err := c.withRetry(context.Background(), "topology", func(context.Context) error {
			calls++
			if calls < 3 {
				return status.Error(codes.Unavailable, "gateway starting")
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on permanent failure", func(t *testing.T) {
		calls := 0
		err := c.withRetry(context.Background(), "topology", func(context.Context) error {
			calls++
			return status.Error(codes.InvalidArgument, "bad request")
		})
		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after the retry budget", func(t *testing.T) {
		calls := 0
		err := c.withRetry(context.Background(), "topology", func(context.Context) error {
			calls++
			return status.Error(codes.Unavailable, "down")
		})
		stdErr, ok := apperrors.AsStandardError(err)
		assert.True(t, ok)
		assert.True(t, stdErr.Retryable)
		assert.Equal(t, 3, calls)
	})

	t.Run("honours cancellation", func(t *testing.T) {
		slow := &Client{config: &ClientConfig{Retry: RetryConfig{MaxRetries: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}}}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := slow.withRetry(ctx, "topology", func(context.Context) error {
			return status.Error(codes.Unavailable, "down")
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
