// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Sources are the files one Config is merged from. Overlay is empty when no
// config.<env>.yaml sits next to the base file.
type Sources struct {
	Base    string
	Overlay string
}

var configDirs = []string{"./configs", "../../configs", "."}

var (
	activeMu sync.Mutex
	active   Sources
)

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml on top,
// applies environment overrides and validates the result.
func Load() (*Config, error) {
	loadEnvFile()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	src := ResolveSources(configDirs, env)

	activeMu.Lock()
	active = src
	activeMu.Unlock()

	return LoadSources(src)
}

// ResolveSources picks the first directory holding config.yaml and the
// overlay for env beside it. A zero Sources means only the environment
// configures the process.
func ResolveSources(dirs []string, env string) Sources {
	for _, dir := range dirs {
		base := filepath.Join(dir, "config.yaml")
		if !isFile(base) {
			continue
		}
		src := Sources{Base: absPath(base)}
		if overlay := filepath.Join(dir, fmt.Sprintf("config.%s.yaml", env)); isFile(overlay) {
			src.Overlay = absPath(overlay)
		}
		return src
	}
	return Sources{}
}

// LoadSources merges the overlay over the base file into a fresh viper
// instance, so a reload never sees state from an earlier read.
func LoadSources(src Sources) (*Config, error) {
	v := newViper()

	if src.Base != "" {
		v.SetConfigFile(src.Base)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}
	if src.Overlay != "" {
		v.SetConfigFile(src.Overlay)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("error merging %s: %w", filepath.Base(src.Overlay), err)
		}
	}

	return decode(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	// DATABASE_POSTGRES_HOST overrides database.postgres.host
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// loadEnvFile loads the first .env found walking up from the working directory.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills secrets that are commonly provided only as plain env vars.
func overrideEmptyConfig(cfg *Config) {
	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
	if cfg.Database.Redis.Password == "" {
		if val := os.Getenv("REDIS_PASSWORD"); val != "" {
			cfg.Database.Redis.Password = val
		}
	}
	if cfg.Storage.Bucket == "" {
		if val := os.Getenv("FORMS_BUCKET"); val != "" {
			cfg.Storage.Bucket = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "afh-workers"
	}
	if cfg.App.Version == "" {
		cfg.App.Version = "1.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.FacilityIndex == "" {
		cfg.Database.Elasticsearch.FacilityIndex = "facilities"
	}

	if cfg.Matching.DefaultRadiusMiles == 0 {
		cfg.Matching.DefaultRadiusMiles = 25
	}
	if cfg.Matching.NeutralScore == 0 {
		cfg.Matching.NeutralScore = 50
	}
	if cfg.Matching.MaxResults == 0 {
		cfg.Matching.MaxResults = 20
	}
	if cfg.Matching.FacilityCacheTTL == 0 {
		cfg.Matching.FacilityCacheTTL = 900
	}

	if cfg.Geocoding.Country == "" {
		cfg.Geocoding.Country = "us"
	}
	if cfg.Geocoding.Timeout == 0 {
		cfg.Geocoding.Timeout = 5000
	}
	if cfg.Geocoding.RetryCount == 0 {
		cfg.Geocoding.RetryCount = 2
	}
	if cfg.Geocoding.CacheTTL == 0 {
		cfg.Geocoding.CacheTTL = 30 * 24 * 3600
	}
	if cfg.Geocoding.BreakerFailures == 0 {
		cfg.Geocoding.BreakerFailures = 5
	}
	if cfg.Geocoding.BreakerOpenDelay == 0 {
		cfg.Geocoding.BreakerOpenDelay = 30000
	}

	if cfg.Forms.FontFamily == "" {
		cfg.Forms.FontFamily = "Helvetica"
	}
	if cfg.Forms.MaxInlineBytes == 0 {
		cfg.Forms.MaxInlineBytes = 2 << 20
	}
	if cfg.Storage.Prefix == "" {
		cfg.Storage.Prefix = "forms"
	}
	if cfg.Storage.PresignTTL == 0 {
		cfg.Storage.PresignTTL = 3600
	}

	if cfg.Template.CacheTTL == 0 {
		cfg.Template.CacheTTL = 300
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = 0.1
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}

	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}

	if len(cfg.Database.Elasticsearch.Addresses) == 0 {
		return fmt.Errorf("database.elasticsearch.addresses is required")
	}

	if cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}

	for name, w := range cfg.Matching.Weights {
		if w < 0 {
			return fmt.Errorf("matching.weights.%s must not be negative", name)
		}
	}
	if cfg.Matching.NeutralScore < 0 || cfg.Matching.NeutralScore > 100 {
		return fmt.Errorf("matching.neutral_score must be within 0-100")
	}

	if cfg.Geocoding.Enabled && cfg.Geocoding.BaseURL == "" {
		return fmt.Errorf("geocoding.base_url is required when geocoding is enabled")
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		return fmt.Errorf("tracing.endpoint is required when tracing is enabled")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}

	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
