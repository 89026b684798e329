package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backends accepted by Store.Backend.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendGCS      = "gcs"
)

type Config struct {
	// HTTP server
	Port           string
	MaxUploadBytes int64

	// Logging
	LogLevel  string
	LogFormat string

	// Model
	GeminiAPIKey    string // fallback when no credential is stored
	GeminiModel     string
	MaxOutputTokens int32
	AnalysisTimeout time.Duration

	Store   StoreConfig
	Archive ArchiveConfig

	// BigQuery run ledger, disabled when project is empty
	BigQueryProject string
	BigQueryDataset string
	BigQueryTable   string

	// AMQP completion events, disabled when URL is empty
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string
	AMQPQueue      string

	// Jobs
	JobWorkers    int
	JobBufferSize int

	// GoogleCredentialsFile is passed to GCS and BigQuery clients when set.
	GoogleCredentialsFile string
}

// StoreConfig selects where the credential and history are persisted.
type StoreConfig struct {
	Backend       string
	FileDir       string
	SQLitePath    string
	PostgresURL   string
	GCSBucket     string
	GCSPrefix     string
	HistoryKey    string
	CredentialKey string
}

// ArchiveConfig controls copying uploaded statements to GCS.
type ArchiveConfig struct {
	Bucket string
	Prefix string
}

// Enabled reports whether uploads should be archived.
func (a ArchiveConfig) Enabled() bool { return a.Bucket != "" }

var defaults = map[string]interface{}{
	"port":             "8080",
	"max_upload_bytes": int64(20 << 20),

	"log.level":  "info",
	"log.format": "console",

	"gemini.api_key":           "",
	"gemini.model":             "gemini-2.5-flash",
	"gemini.max_output_tokens": 8192,
	"analysis.timeout":         "5m",

	"store.backend":        BackendFile,
	"store.file_dir":       "./data",
	"store.sqlite_path":    "./data/statement-insights.db",
	"store.postgres_url":   "",
	"store.gcs_bucket":     "",
	"store.gcs_prefix":     "statement-insights/",
	"store.history_key":    "analysis_history",
	"store.credential_key": "api_credential",

	"archive.bucket": "",
	"archive.prefix": "uploads/",

	"bigquery.project": "",
	"bigquery.dataset": "finance",
	"bigquery.table":   "analysis_runs",

	"amqp.url":         "",
	"amqp.exchange":    "statement-insights",
	"amqp.routing_key": "analysis.completed",
	"amqp.queue":       "statement-insights.completed",

	"jobs.workers":     1,
	"jobs.buffer_size": 100,

	"google.credentials_file": "",
}

// Load reads configuration from defaults, an optional config file and the
// environment. Environment names are the keys upper-cased with "." replaced
// by "_", e.g. STORE_BACKEND or GEMINI_API_KEY.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", configFile, err)
		}
	}

	timeout, err := time.ParseDuration(v.GetString("analysis.timeout"))
	if err != nil {
		return nil, fmt.Errorf("config: invalid analysis.timeout %q: %w", v.GetString("analysis.timeout"), err)
	}

	cfg := &Config{
		Port:           v.GetString("port"),
		MaxUploadBytes: v.GetInt64("max_upload_bytes"),

		LogLevel:  v.GetString("log.level"),
		LogFormat: v.GetString("log.format"),

		GeminiAPIKey:    strings.TrimSpace(v.GetString("gemini.api_key")),
		GeminiModel:     v.GetString("gemini.model"),
		MaxOutputTokens: v.GetInt32("gemini.max_output_tokens"),
		AnalysisTimeout: timeout,

		Store: StoreConfig{
			Backend:       strings.ToLower(v.GetString("store.backend")),
			FileDir:       v.GetString("store.file_dir"),
			SQLitePath:    v.GetString("store.sqlite_path"),
			PostgresURL:   v.GetString("store.postgres_url"),
			GCSBucket:     v.GetString("store.gcs_bucket"),
			GCSPrefix:     v.GetString("store.gcs_prefix"),
			HistoryKey:    v.GetString("store.history_key"),
			CredentialKey: v.GetString("store.credential_key"),
		},
		Archive: ArchiveConfig{
			Bucket: v.GetString("archive.bucket"),
			Prefix: v.GetString("archive.prefix"),
		},

		BigQueryProject: v.GetString("bigquery.project"),
		BigQueryDataset: v.GetString("bigquery.dataset"),
		BigQueryTable:   v.GetString("bigquery.table"),

		AMQPURL:        v.GetString("amqp.url"),
		AMQPExchange:   v.GetString("amqp.exchange"),
		AMQPRoutingKey: v.GetString("amqp.routing_key"),
		AMQPQueue:      v.GetString("amqp.queue"),

		JobWorkers:    v.GetInt("jobs.workers"),
		JobBufferSize: v.GetInt("jobs.buffer_size"),

		GoogleCredentialsFile: v.GetString("google.credentials_file"),
	}

	return cfg, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.MaxUploadBytes < 1 {
		problems = append(problems, fmt.Sprintf("invalid max upload size %d: must be positive", c.MaxUploadBytes))
	}

	if c.GeminiModel == "" {
		problems = append(problems, "gemini model name cannot be empty")
	}
	if c.MaxOutputTokens < 1 {
		problems = append(problems, fmt.Sprintf("invalid max output tokens %d: must be positive", c.MaxOutputTokens))
	}
	if c.AnalysisTimeout < time.Second {
		problems = append(problems, fmt.Sprintf("invalid analysis timeout %v: must be at least 1 second", c.AnalysisTimeout))
	}

	switch c.Store.Backend {
	case BackendMemory:
	case BackendFile:
		if c.Store.FileDir == "" {
			problems = append(problems, "store file directory cannot be empty when using file backend")
		}
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			problems = append(problems, "SQLite database path cannot be empty when using sqlite backend")
		}
	case BackendPostgres:
		if c.Store.PostgresURL == "" {
			problems = append(problems, "Postgres URL is required when using postgres backend")
		}
	case BackendGCS:
		if c.Store.GCSBucket == "" {
			problems = append(problems, "GCS bucket is required when using gcs backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid store backend '%s': must be one of %v",
			c.Store.Backend, []string{BackendMemory, BackendFile, BackendSQLite, BackendPostgres, BackendGCS}))
	}

	if c.Store.HistoryKey == "" || c.Store.CredentialKey == "" {
		problems = append(problems, "store history and credential keys cannot be empty")
	} else if c.Store.HistoryKey == c.Store.CredentialKey {
		problems = append(problems, "store history and credential keys must differ")
	}

	if c.BigQueryProject != "" && (c.BigQueryDataset == "" || c.BigQueryTable == "") {
		problems = append(problems, "BigQuery dataset and table are required when a project is set")
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if c.JobWorkers < 1 {
		problems = append(problems, fmt.Sprintf("invalid job worker count %d: must be at least 1", c.JobWorkers))
	}
	if c.JobBufferSize < 1 {
		problems = append(problems, fmt.Sprintf("invalid job buffer size %d: must be at least 1", c.JobBufferSize))
	}

	if len(problems) > 0 {
		return errors.New("configuration validation failed:\n- " + strings.Join(problems, "\n- "))
	}

	return nil
}
