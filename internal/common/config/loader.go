// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like WOLFRAM_APP_ID
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment-specific overlay, ignored when absent.
	envConfigFile := fmt.Sprintf("config.%s", env)
	viper.SetConfigName(envConfigFile)
	_ = viper.MergeInConfig()

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile tries .env from the working directory upward, so the loader
// behaves the same from cmd/, package tests, and the repo root.
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

// findProjectRoot walks up directories looking for go.mod.
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

// expandEnvVars resolves ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// overrideEmptyConfig fills credentials from plain environment variables when
// the YAML left them empty.
func overrideEmptyConfig(cfg *Config) {
	if cfg.Sources.WolframAppID == "" {
		if val := os.Getenv("WOLFRAM_APP_ID"); val != "" {
			cfg.Sources.WolframAppID = val
		}
	}

	if cfg.Services.Classifier.APIKey == "" {
		if val := os.Getenv("CLASSIFIER_API_KEY"); val != "" {
			cfg.Services.Classifier.APIKey = val
		}
	}
	if cfg.Services.Scorer.APIKey == "" {
		if val := os.Getenv("SCORER_API_KEY"); val != "" {
			cfg.Services.Scorer.APIKey = val
		}
	}

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
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for optional configuration fields.
// Pipeline defaults match the behavior the system shipped with.
func applyDefaults(cfg *Config) {
	// Ranking defaults: model score dominates, history tempers.
	if cfg.Ranking.ModelWeight == 0 {
		cfg.Ranking.ModelWeight = 0.7
	}
	if cfg.Ranking.HistoryWeight == 0 {
		cfg.Ranking.HistoryWeight = 0.3
	}
	if cfg.Ranking.OverallWeight == 0 {
		cfg.Ranking.OverallWeight = 1.0 / 3.0
	}
	if cfg.Ranking.TypeWeight == 0 {
		cfg.Ranking.TypeWeight = 1.0 / 3.0
	}
	if cfg.Ranking.TopicWeight == 0 {
		cfg.Ranking.TopicWeight = 1.0 / 3.0
	}
	if cfg.Ranking.TopK == 0 {
		cfg.Ranking.TopK = 5
	}

	// Executor defaults
	if cfg.Executor.MaxParallel == 0 {
		cfg.Executor.MaxParallel = 4
	}
	if cfg.Executor.GlobalTimeoutMs == 0 {
		cfg.Executor.GlobalTimeoutMs = 20000
	}
	if cfg.Executor.EarlyStopGood == 0 {
		cfg.Executor.EarlyStopGood = 2
	}
	if cfg.Executor.MinAnswerChars == 0 {
		cfg.Executor.MinAnswerChars = 100
	}
	if cfg.Executor.MinQuality == 0 {
		cfg.Executor.MinQuality = 0.5
	}
	if cfg.Executor.DefaultSourceMs == 0 {
		cfg.Executor.DefaultSourceMs = 7000
	}
	if cfg.Executor.SourceTimeoutMs == nil {
		cfg.Executor.SourceTimeoutMs = map[string]int{
			"wolfram":     5000,
			"duckduckgo":  7000,
			"wikipedia":   7000,
			"internal-kb": 5000,
		}
	}

	// Combiner defaults
	if cfg.Combiner.DedupeThreshold == 0 {
		cfg.Combiner.DedupeThreshold = 0.7
	}
	if cfg.Combiner.MaxMergeSources == 0 {
		cfg.Combiner.MaxMergeSources = 3
	}
	if cfg.Combiner.MinMergeScore == 0 {
		cfg.Combiner.MinMergeScore = 0.1
	}

	// Cache defaults
	if cfg.Cache.SimilarityThreshold == 0 {
		cfg.Cache.SimilarityThreshold = 0.85
	}
	if cfg.Cache.StoreThreshold == 0 {
		cfg.Cache.StoreThreshold = 0.7
	}
	if cfg.Cache.TTLSeconds == 0 {
		cfg.Cache.TTLSeconds = 3600
	}
	if cfg.Cache.Capacity == 0 {
		cfg.Cache.Capacity = 200
	}
	if cfg.Cache.KeyPrefix == "" {
		cfg.Cache.KeyPrefix = "answer"
	}

	// Stats defaults
	if cfg.Stats.SuccessThreshold == 0 {
		cfg.Stats.SuccessThreshold = 0.5
	}
	if cfg.Stats.MemorizeThreshold == 0 {
		cfg.Stats.MemorizeThreshold = 0.7
	}
	if cfg.Stats.DisableAfterNegatives == 0 {
		cfg.Stats.DisableAfterNegatives = 3
	}
	if cfg.Stats.NegativeWindowSeconds == 0 {
		cfg.Stats.NegativeWindowSeconds = 86400
	}

	// Sources defaults
	if cfg.Sources.CatalogPath == "" {
		cfg.Sources.CatalogPath = "configs/sources.json"
	}

	// Database defaults
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.Index == "" {
		cfg.Database.Elasticsearch.Index = "curated-answers"
	}

	// Service endpoint defaults
	if cfg.Services.Classifier.TimeoutMs == 0 {
		cfg.Services.Classifier.TimeoutMs = 3000
	}
	if cfg.Services.Scorer.TimeoutMs == 0 {
		cfg.Services.Scorer.TimeoutMs = 3000
	}

	// Metrics defaults
	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = ":9100"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Ranking.ModelWeight < 0 || cfg.Ranking.HistoryWeight < 0 {
		return fmt.Errorf("ranking weights must be non-negative")
	}
	if sum := cfg.Ranking.ModelWeight + cfg.Ranking.HistoryWeight; sum < 0.99 || sum > 1.01 {
		return fmt.Errorf("ranking.model_weight + ranking.history_weight must equal 1, got %.3f", sum)
	}

	if cfg.Executor.EarlyStopGood < 1 {
		return fmt.Errorf("executor.early_stop_good must be at least 1")
	}
	if cfg.Executor.MaxParallel < 1 {
		return fmt.Errorf("executor.max_parallel must be at least 1")
	}

	if cfg.Cache.SimilarityThreshold <= 0 || cfg.Cache.SimilarityThreshold > 1 {
		return fmt.Errorf("cache.similarity_threshold must be in (0, 1]")
	}

	if cfg.Sources.CatalogPath == "" {
		return fmt.Errorf("sources.catalog_path is required")
	}

	if cfg.Database.Postgres.Enabled {
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
		if cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required")
		}
	}

	if cfg.Database.Elasticsearch.Enabled && len(cfg.Database.Elasticsearch.Addresses) == 0 {
		return fmt.Errorf("database.elasticsearch.addresses is required")
	}

	if cfg.Database.Redis.Enabled && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// SourceTimeout returns the per-source call budget, falling back to the
// default when a source has no dedicated entry.
func (e ExecutorConfig) SourceTimeout(sourceName string) time.Duration {
	if ms, ok := e.SourceTimeoutMs[sourceName]; ok && ms > 0 {
		return GetDuration(ms)
	}
	return GetDuration(e.DefaultSourceMs)
}

// GlobalTimeout returns the whole-request search deadline.
func (e ExecutorConfig) GlobalTimeout() time.Duration {
	return GetDuration(e.GlobalTimeoutMs)
}

// TTL returns the cache time-to-live.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// NegativeWindow returns the window inside which negative feedback
// accumulates toward auto-disable.
func (s StatsConfig) NegativeWindow() time.Duration {
	return time.Duration(s.NegativeWindowSeconds) * time.Second
}
