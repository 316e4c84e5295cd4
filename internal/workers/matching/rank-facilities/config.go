package rankfacilities

import "time"

type Config struct {
	Timeout       time.Duration
	DefaultLimit  int
	MinScore      int
	LoadWorkers   int
	LoadBatchSize int
	SlowThreshold time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout:       30 * time.Second,
		DefaultLimit:  20,
		LoadWorkers:   8,
		LoadBatchSize: 50,
		SlowThreshold: 500 * time.Millisecond,
	}
}
