// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Ranking  RankingConfig  `mapstructure:"ranking"`
	Executor ExecutorConfig `mapstructure:"executor"`
	Combiner CombinerConfig `mapstructure:"combiner"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Stats    StatsConfig    `mapstructure:"stats"`
	Sources  SourcesConfig  `mapstructure:"sources"`
	Services ServicesConfig `mapstructure:"services"`
	Alerts   AlertsConfig   `mapstructure:"alerts"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
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
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

// GetURL returns the first configured address.
func (e ElasticsearchConfig) GetURL() string {
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// --- Pipeline Configuration ---

// RankingConfig holds the source-ranking score blend. The weights sum to 1;
// model output dominates and historical stats temper it.
type RankingConfig struct {
	ModelWeight   float64 `mapstructure:"model_weight"`
	HistoryWeight float64 `mapstructure:"history_weight"`
	OverallWeight float64 `mapstructure:"overall_weight"`
	TypeWeight    float64 `mapstructure:"type_weight"`
	TopicWeight   float64 `mapstructure:"topic_weight"`
	TopK          int     `mapstructure:"top_k"`
}

// ExecutorConfig bounds the search fan-out.
type ExecutorConfig struct {
	MaxParallel     int            `mapstructure:"max_parallel"`
	GlobalTimeoutMs int            `mapstructure:"global_timeout"` // milliseconds
	EarlyStopGood   int            `mapstructure:"early_stop_good"`
	MinAnswerChars  int            `mapstructure:"min_answer_chars"`
	MinQuality      float64        `mapstructure:"min_quality"`
	SourceTimeoutMs map[string]int `mapstructure:"source_timeouts"` // milliseconds per source name
	DefaultSourceMs int            `mapstructure:"default_source_timeout"`
}

// CombinerConfig drives answer merging.
type CombinerConfig struct {
	DedupeThreshold float64 `mapstructure:"dedupe_threshold"`
	MaxMergeSources int     `mapstructure:"max_merge_sources"`
	MinMergeScore   float64 `mapstructure:"min_merge_score"`
}

// CacheConfig covers both the exact-match tier and the semantic tier.
type CacheConfig struct {
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	StoreThreshold      float64 `mapstructure:"store_threshold"`
	TTLSeconds          int     `mapstructure:"ttl_seconds"`
	Capacity            int     `mapstructure:"capacity"`
	KeyPrefix           string  `mapstructure:"key_prefix"`
}

// StatsConfig drives the feedback updater.
type StatsConfig struct {
	SuccessThreshold      float64 `mapstructure:"success_threshold"`
	MemorizeThreshold     float64 `mapstructure:"memorize_threshold"`
	DisableAfterNegatives int     `mapstructure:"disable_after_negatives"`
	NegativeWindowSeconds int     `mapstructure:"negative_window_seconds"`
}

// SourcesConfig points at the static source catalog and credentials.
type SourcesConfig struct {
	CatalogPath  string `mapstructure:"catalog_path"`
	WolframAppID string `mapstructure:"wolfram_app_id"`
}

// ServicesConfig holds external classifier/model endpoints.
type ServicesConfig struct {
	Classifier ServiceEndpoint `mapstructure:"classifier"`
	Scorer     ServiceEndpoint `mapstructure:"scorer"`
}

type ServiceEndpoint struct {
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	TimeoutMs int    `mapstructure:"timeout"` // milliseconds
}

// AlertsConfig holds operational alerting settings. An empty topic ARN
// disables publishing.
type AlertsConfig struct {
	SNS struct {
		Enabled  bool   `mapstructure:"enabled"`
		Region   string `mapstructure:"region"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`
}

// MetricsConfig holds the Prometheus scrape endpoint settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
