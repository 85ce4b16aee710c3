// claimgraph/internal/config/config.go

// Package config loads the pipeline's YAML configuration and resolves
// secrets from the environment, in the same shape the teacher's own
// config package uses: a tagged struct, a flat LoadConfig entry point,
// and pterm status output during load.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"gopkg.in/yaml.v2"
)

// EmbeddingConfig configures the HTTP embedding provider.
type EmbeddingConfig struct {
	BaseURL    string `yaml:"base_url"`
	Path       string `yaml:"path"`
	Model      string `yaml:"model"`
	APIKey     string `yaml:"api_key"`
	APIHeader  string `yaml:"api_header"`
	Dimensions int    `yaml:"dimensions"`
	Timeout    int    `yaml:"timeout_seconds"`
}

// VectorIndexConfig configures the vector index backend.
type VectorIndexConfig struct {
	Backend        string `yaml:"backend"` // memory|postgres|qdrant
	DSN            string `yaml:"dsn"`
	Collection     string `yaml:"collection"`
	Dimensions     int    `yaml:"dimensions"`
	Metric         string `yaml:"metric"` // l2|cosine
	M              int    `yaml:"m"`
	EfConstruction int    `yaml:"ef_construction"`
	EfSearch       int    `yaml:"ef_search"`
	SnapshotPath   string `yaml:"snapshot_path"`
}

// CalibrationConfig configures the confidence calibrator.
type CalibrationConfig struct {
	ModelPath string `yaml:"model_path"`
}

// DedupConfig configures the deduplication registry.
type DedupConfig struct {
	DataDir        string  `yaml:"data_dir"`
	SimilarityMin  float64 `yaml:"similarity_min"`
	ValidationMode bool    `yaml:"validation_mode"`
}

// AdjudicationConfig configures the adjudicator backend and pair cache.
type AdjudicationConfig struct {
	Provider     string  `yaml:"provider"` // anthropic|openai|google
	Model        string  `yaml:"model"`
	AnthropicKey string  `yaml:"anthropic_key,omitempty"`
	OpenAIKey    string  `yaml:"openai_api_key,omitempty"`
	GoogleKey    string  `yaml:"google_api_key,omitempty"`
	CachePath    string  `yaml:"cache_path"`
	RedisAddr    string  `yaml:"redis_addr,omitempty"`
	LowerBound   float64 `yaml:"prefilter_lower_bound"`
	UpperBound   float64 `yaml:"prefilter_upper_bound"`
}

// GraphConfig configures the graph storage backend.
type GraphConfig struct {
	Backend      string `yaml:"backend"` // memory|postgres
	DSN          string `yaml:"dsn"`
	EventLogPath string `yaml:"event_log_path"`
	KafkaBrokers string `yaml:"kafka_brokers,omitempty"`
	KafkaTopic   string `yaml:"kafka_topic,omitempty"`
}

// OrchestratorConfig configures the streaming ingest orchestrator.
type OrchestratorConfig struct {
	MaxConcurrency int    `yaml:"max_concurrency"`
	DedupeRedisDSN string `yaml:"dedupe_redis_dsn,omitempty"`
}

// ObsConfig controls OpenTelemetry export.
type ObsConfig struct {
	Enabled        bool   `yaml:"enabled"`
	OTLP           string `yaml:"otlp_endpoint"`
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
	Environment    string `yaml:"environment"`
}

// S3SSEConfig controls server-side encryption on S3 snapshot writes.
type S3SSEConfig struct {
	Mode     string `yaml:"mode"` // ""|sse-s3|sse-kms
	KMSKeyID string `yaml:"kms_key_id,omitempty"`
}

// S3Config configures the optional off-box snapshot mirror.
type S3Config struct {
	Enabled               bool        `yaml:"enabled"`
	Bucket                string      `yaml:"bucket"`
	Region                string      `yaml:"region"`
	Prefix                string      `yaml:"prefix"`
	Endpoint              string      `yaml:"endpoint,omitempty"`
	UsePathStyle          bool        `yaml:"use_path_style,omitempty"`
	AccessKey             string      `yaml:"access_key,omitempty"`
	SecretKey             string      `yaml:"secret_key,omitempty"`
	TLSInsecureSkipVerify bool        `yaml:"tls_insecure_skip_verify,omitempty"`
	SSE                   S3SSEConfig `yaml:"sse,omitempty"`
}

// Config is the root configuration for the claim graph pipeline.
type Config struct {
	Embedding    EmbeddingConfig    `yaml:"embedding"`
	VectorIndex  VectorIndexConfig  `yaml:"vector_index"`
	Calibration  CalibrationConfig  `yaml:"calibration"`
	Dedup        DedupConfig        `yaml:"dedup"`
	Adjudication AdjudicationConfig `yaml:"adjudication"`
	Graph        GraphConfig        `yaml:"graph"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	OTel         ObsConfig          `yaml:"otel"`
	Snapshot     S3Config           `yaml:"snapshot_s3"`
}

// LoadConfig reads the configuration from a YAML file and applies
// environment overrides and defaults.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		pterm.Error.Printf("Error reading config file: %v\n", err)
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		pterm.Error.Printf("Error unmarshaling config: %v\n", err)
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	pterm.Success.Println("Configuration loaded successfully.")
	return &cfg, nil
}

// applyEnvOverrides lets secrets and the validation-mode flag come from
// the environment instead of the YAML file, per the external interface
// table: ANTHROPIC_API_KEY, OPENAI_API_KEY, GOOGLE_API_KEY,
// DEDUP_VALIDATION_MODE.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Adjudication.AnthropicKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Adjudication.OpenAIKey = v
	}
	if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
		cfg.Adjudication.GoogleKey = v
	}
	if v := strings.ToLower(strings.TrimSpace(os.Getenv("DEDUP_VALIDATION_MODE"))); v != "" {
		cfg.Dedup.ValidationMode = v == "1" || v == "true" || v == "yes"
	}
}

func applyDefaults(cfg *Config) {
	if cfg.VectorIndex.Backend == "" {
		cfg.VectorIndex.Backend = "memory"
	}
	if cfg.VectorIndex.M <= 0 {
		cfg.VectorIndex.M = 32
	}
	if cfg.VectorIndex.EfConstruction <= 0 {
		cfg.VectorIndex.EfConstruction = 200
	}
	if cfg.VectorIndex.EfSearch <= 0 {
		cfg.VectorIndex.EfSearch = 64
	}
	if cfg.VectorIndex.Dimensions <= 0 {
		cfg.VectorIndex.Dimensions = 768
	}
	if cfg.Dedup.SimilarityMin <= 0 {
		cfg.Dedup.SimilarityMin = 0.95
	}
	if cfg.Dedup.DataDir == "" {
		cfg.Dedup.DataDir = "data/dedup"
	}
	if cfg.Adjudication.LowerBound <= 0 {
		cfg.Adjudication.LowerBound = 0.3
	}
	if cfg.Adjudication.UpperBound <= 0 {
		cfg.Adjudication.UpperBound = 0.95
	}
	if cfg.Adjudication.CachePath == "" {
		cfg.Adjudication.CachePath = "data/adjudication_cache.json"
	}
	if cfg.Graph.Backend == "" {
		cfg.Graph.Backend = "memory"
	}
	if cfg.Graph.EventLogPath == "" {
		cfg.Graph.EventLogPath = "data/events.jsonl"
	}
	if cfg.Orchestrator.MaxConcurrency <= 0 {
		cfg.Orchestrator.MaxConcurrency = 4
	}
	if cfg.OTel.ServiceName == "" {
		cfg.OTel.ServiceName = "claimgraph"
	}
}
