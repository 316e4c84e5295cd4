// internal/workers/data-access/search-facilities/config.go
package searchfacilities

import "time"

type Config struct {
	Timeout      time.Duration
	DefaultIndex string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:      30 * time.Second,
		DefaultIndex: "facilities",
	}
}
