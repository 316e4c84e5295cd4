package collectcareneeds

import "time"

type Config struct {
	Timeout            time.Duration
	DefaultRadiusMiles float64
	GeocodeTimeout     time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout:            10 * time.Second,
		DefaultRadiusMiles: 25,
		GeocodeTimeout:     3 * time.Second,
	}
}
