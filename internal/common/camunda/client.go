// internal/common/camunda/client.go
package camunda

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "afh-workers/internal/common/errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Client owns the gateway connection shared by every job worker.
type Client struct {
	client zbc.Client
	config *ClientConfig
}

type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	ConnectionTimeout      time.Duration
	RequestTimeout         time.Duration
	Retry                  RetryConfig
}

// RetryConfig bounds the exponential backoff applied to gateway calls.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

var DefaultRetryConfig = RetryConfig{
	MaxRetries: 3,
	BaseDelay:  time.Second,
	MaxDelay:   10 * time.Second,
}

// NewClientWithConfig dials the gateway and waits until the cluster answers
// a topology request with at least one broker.
func NewClientWithConfig(config *ClientConfig) (*Client, error) {
	if config.Retry.MaxRetries <= 0 {
		config.Retry = DefaultRetryConfig
	}
	if config.ConnectionTimeout <= 0 {
		config.ConnectionTimeout = 10 * time.Second
	}

	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         config.GatewayAddress,
		UsePlaintextConnection: config.UsePlaintextConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	c := &Client{client: zeebeClient, config: config}
	if err := c.withRetry(context.Background(), "topology", c.topology); err != nil {
		zeebeClient.Close()
		return nil, fmt.Errorf("failed to reach Zeebe gateway at %s: %w", config.GatewayAddress, err)
	}
	return c, nil
}

// GetClient exposes the raw client for job polling.
func (c *Client) GetClient() zbc.Client {
	return c.client
}

func (c *Client) Close() error {
	return c.client.Close()
}

// HealthCheck is a single topology probe without retries.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := c.topology(ctx); err != nil {
		return fmt.Errorf("zeebe health check failed: %w", err)
	}
	return nil
}

func (c *Client) topology(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()

	resp, err := c.client.NewTopologyCommand().Send(ctx)
	if err != nil {
		return err
	}
	if len(resp.GetBrokers()) == 0 {
		return status.Error(codes.Unavailable, "cluster reports no brokers")
	}
	return nil
}

// withRetry runs fn until it succeeds, fails permanently or the retry budget
// is spent. The returned error is always a StandardError or a context error.
func (c *Client) withRetry(ctx context.Context, operation string, fn func(context.Context) error) error {
	retry := c.config.Retry
	delay := retry.BaseDelay

	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !isRetryableZeebeError(err) || attempt >= retry.MaxRetries {
			return c.mapZeebeError(err, operation, attempt)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%s cancelled after %d attempts: %w", operation, attempt+1, ctx.Err())
		}
		delay *= 2
		if delay > retry.MaxDelay {
			delay = retry.MaxDelay
		}
	}
}

// isRetryableZeebeError reports transient gateway failures. gRPC status codes
// win; plain errors fall back to their message.
func isRetryableZeebeError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
			return true
		case codes.Unknown:
		default:
			return false
		}
	}
	msg := strings.ToLower(err.Error())
	for _, phrase := range []string{"connection refused", "connection reset", "deadline exceeded", "timeout", "unavailable", "broken pipe"} {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

// mapZeebeError turns a gateway failure into a StandardError. Auth failures
// are never retried.
func (c *Client) mapZeebeError(err error, operation string, attempt int) error {
	detail := fmt.Sprintf("zeebe %s failed", operation)
	if attempt > 0 {
		detail += fmt.Sprintf(" after %d attempts", attempt)
	}
	wrapped := fmt.Errorf("%s: %w", detail, err)

	code := codes.Unknown
	if s, ok := status.FromError(err); ok {
		code = s.Code()
	}
	msg := strings.ToLower(err.Error())

	switch {
	case code == codes.DeadlineExceeded || errors.Is(err, context.DeadlineExceeded) ||
		strings.Contains(msg, "deadline exceeded") || strings.Contains(msg, "timeout"):
		return apperrors.NewTimeoutError("zeebe", wrapped)
	case code == codes.NotFound || strings.Contains(msg, "not found"):
		return apperrors.NewResourceNotFoundError("zeebe", wrapped.Error())
	case code == codes.PermissionDenied || code == codes.Unauthenticated ||
		strings.Contains(msg, "permission denied") || strings.Contains(msg, "unauthenticated"):
		stdErr := apperrors.NewExternalServiceError("zeebe", wrapped)
		stdErr.Retryable = false
		return stdErr
	default:
		return apperrors.NewExternalServiceError("zeebe", wrapped)
	}
}
