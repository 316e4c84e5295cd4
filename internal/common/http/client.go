// internal/common/http/client.go
package http

import (
	"time"

	"github.com/go-resty/resty/v2"
)

// ClientConfig configures an outbound JSON API client.
type ClientConfig struct {
	BaseURL      string
	Timeout      time.Duration
	RetryCount   int
	RetryWait    time.Duration
	RetryMaxWait time.Duration
	Headers      map[string]string
}

// NewClient builds a resty client that retries transport errors and 5xx
// responses with exponential backoff.
func NewClient(cfg ClientConfig) *resty.Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RetryWait == 0 {
		cfg.RetryWait = 500 * time.Millisecond
	}
	if cfg.RetryMaxWait == 0 {
		cfg.RetryMaxWait = 5 * time.Second
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(cfg.RetryMaxWait).
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})

	for k, v := range cfg.Headers {
		client.SetHeader(k, v)
	}
	return client
}
