package sendnotification

import "time"

type Config struct {
	EmailEnabled  bool
	SMSEnabled    bool
	SMSPriority   string
	MaxTopMatches int
	ResultsURL    string
	// RetryFailed fails the job while retries remain instead of completing
	// it with status "failed".
	RetryFailed bool
	Timeout     time.Duration
}

func LoadConfig() *Config {
	return &Config{
		EmailEnabled:  true,
		SMSPriority:   PriorityHigh,
		MaxTopMatches: 3,
		RetryFailed:   true,
		Timeout:       30 * time.Second,
	}
}
