// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Server        ServerConfig            `mapstructure:"server"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Template      TemplateConfig          `mapstructure:"template"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Matching      MatchingConfig          `mapstructure:"matching"`
	Geocoding     GeocodingConfig         `mapstructure:"geocoding"`
	Forms         FormsConfig             `mapstructure:"forms"`
	Storage       StorageConfig           `mapstructure:"storage"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Tracing       TracingConfig           `mapstructure:"tracing"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses     []string `mapstructure:"addresses"`
	Username      string   `mapstructure:"username"`
	Password      string   `mapstructure:"password"`
	FacilityIndex string   `mapstructure:"facility_index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- Domain Configuration Sections ---

// MatchingConfig drives the scorer and the ranking workers.
type MatchingConfig struct {
	Weights            map[string]float64 `mapstructure:"weights"`
	DefaultRadiusMiles float64            `mapstructure:"default_radius_miles"`
	NeutralScore       int                `mapstructure:"neutral_score"`
	MinScore           int                `mapstructure:"min_score"`
	MaxResults         int                `mapstructure:"max_results"`
	FacilityCacheTTL   int                `mapstructure:"facility_cache_ttl"` // seconds
}

// GeocodingConfig configures the zip geocoding client.
type GeocodingConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	BaseURL          string `mapstructure:"base_url"`
	Country          string `mapstructure:"country"`
	Timeout          int    `mapstructure:"timeout"` // milliseconds
	RetryCount       int    `mapstructure:"retry_count"`
	CacheTTL         int    `mapstructure:"cache_ttl"` // seconds
	BreakerFailures  int    `mapstructure:"breaker_failures"`
	BreakerOpenDelay int    `mapstructure:"breaker_open_delay"` // milliseconds
}

// FormsConfig configures the regulatory form engine.
type FormsConfig struct {
	TemplateDir    string `mapstructure:"template_dir"`
	LayoutRegistry string `mapstructure:"layout_registry"`
	FontFamily     string `mapstructure:"font_family"`
	MaxInlineBytes int    `mapstructure:"max_inline_bytes"`
}

// StorageConfig configures where generated documents are uploaded.
type StorageConfig struct {
	Region     string `mapstructure:"region"`
	Bucket     string `mapstructure:"bucket"`
	Prefix     string `mapstructure:"prefix"`
	PresignTTL int    `mapstructure:"presign_ttl"` // seconds
}

// NotificationConfig holds settings for the send-notification worker.
type NotificationConfig struct {
	// ResultsURL may contain {requestId}.
	ResultsURL string `mapstructure:"results_url"`
	Email      struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled           bool   `mapstructure:"enabled"`
		PriorityThreshold string `mapstructure:"priority_threshold"`
		SenderID          string `mapstructure:"sender_id"`
	} `mapstructure:"sms"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// TracingConfig configures the Jaeger trace exporter.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// TemplateConfig holds settings for the present-results worker.
type TemplateConfig struct {
	RegistryPath string `mapstructure:"registry_path"`
	CacheTTL     int    `mapstructure:"cache_ttl"` // seconds
}
