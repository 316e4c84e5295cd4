package fillregulatoryform

import "time"

type Config struct {
	Timeout        time.Duration
	MaxInlineBytes int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:        60 * time.Second,
		MaxInlineBytes: 4 << 20,
	}
}
