// Package config loads and validates the index builder configuration from
// YAML files with environment-variable overrides. It provides typed structs
// for every subsystem (Indexer, Tokenizer, Source, Postgres, Kafka, Redis,
// Logging, Metrics, Schedule).
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/Adithya-Monish-Kumar-K/paper-index-builder/pkg/errors"
)

// Config is the top-level application configuration.
type Config struct {
	Indexer   IndexerConfig   `yaml:"indexer"`
	Tokenizer TokenizerConfig `yaml:"tokenizer"`
	Source    SourceConfig    `yaml:"source"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
}

// IndexerConfig controls where the index is written, how much parallelism
// the partition and merge phases use, and the frequency thresholds.
type IndexerConfig struct {
	OutputDir       string          `yaml:"outputDir"`
	SpillDir        string          `yaml:"spillDir"`
	Workers         int             `yaml:"workers"`
	MergeWorkers    int             `yaml:"mergeWorkers"`
	QueueSize       int             `yaml:"queueSize"`
	SpillBufferSize int             `yaml:"spillBufferSize"`
	Fields          []string        `yaml:"fields"`
	Thresholds      ThresholdConfig `yaml:"thresholds"`
}

// ThresholdConfig holds the minimum posting-list length per token arity,
// separately for the CJK catch-all bucket and every other bucket.
type ThresholdConfig struct {
	Latin ArityThresholds `yaml:"latin"`
	CJK   ArityThresholds `yaml:"cjk"`
}

// ArityThresholds is a minimum posting-list length for unigrams, bigrams and
// phrases of three or more words.
type ArityThresholds struct {
	Unigram int `yaml:"unigram"`
	Bigram  int `yaml:"bigram"`
	Phrase  int `yaml:"phrase"`
}

// Lemmatizer names accepted by tokenizer.lemmatizer.
const (
	LemmatizerDictionary = "dictionary"
	LemmatizerStemmer    = "stemmer"
	LemmatizerNone       = "none"
)

// TokenizerConfig selects the optional language tooling and tunes token
// filtering.
type TokenizerConfig struct {
	Lemmatizer     string   `yaml:"lemmatizer"`
	SegmenterDicts []string `yaml:"segmenterDicts"`
	ExtraStopWords []string `yaml:"extraStopWords"`
	MinTokenLength int      `yaml:"minTokenLength"`
	MaxNGram       int      `yaml:"maxNGram"`
}

// SourceConfig selects where document records are read from.
type SourceConfig struct {
	Type        string        `yaml:"type"`
	Paths       []string      `yaml:"paths"`
	Query       string        `yaml:"query"`
	IdleTimeout time.Duration `yaml:"idleTimeout"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	DocumentIngest string `yaml:"documentIngest"`
	IndexComplete  string `yaml:"indexComplete"`
}

// RedisConfig holds the Redis connection used to invalidate cached search
// results after a rebuild.
type RedisConfig struct {
	Enabled           bool   `yaml:"enabled"`
	Addr              string `yaml:"addr"`
	Password          string `yaml:"password"`
	DB                int    `yaml:"db"`
	PoolSize          int    `yaml:"poolSize"`
	InvalidatePattern string `yaml:"invalidatePattern"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls Prometheus export: a textfile written after every
// build, and an HTTP port used in daemon mode.
type MetricsConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Port         int    `yaml:"port"`
	TextfilePath string `yaml:"textfilePath"`
}

// ScheduleConfig controls daemon-mode rebuilds.
type ScheduleConfig struct {
	At         string `yaml:"at"`
	RunOnStart bool   `yaml:"runOnStart"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config with the defaults used for local runs.
func Default() *Config {
	return &Config{
		Indexer: IndexerConfig{
			OutputDir:       "docs/data",
			Workers:         runtime.GOMAXPROCS(0),
			MergeWorkers:    runtime.GOMAXPROCS(0),
			QueueSize:       256,
			SpillBufferSize: 64 * 1024,
			Fields: []string{
				"title", "abstract", "zh_title", "translation",
				"tldr", "ai_comments", "comment",
			},
			Thresholds: ThresholdConfig{
				Latin: ArityThresholds{Unigram: 3, Bigram: 2, Phrase: 2},
				CJK:   ArityThresholds{Unigram: 10, Bigram: 6, Phrase: 4},
			},
		},
		Tokenizer: TokenizerConfig{
			Lemmatizer:     LemmatizerDictionary,
			MinTokenLength: 2,
			MaxNGram:       3,
		},
		Source: SourceConfig{
			Type:        "jsonl",
			Paths:       []string{"data/*.jsonl"},
			Query:       "SELECT payload::text FROM papers ORDER BY id",
			IdleTimeout: 10 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "papers",
			User:            "papers",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    4,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "paper-index-builder",
			Topics: KafkaTopics{
				DocumentIngest: "paper-ingest",
				IndexComplete:  "index.complete",
			},
		},
		Redis: RedisConfig{
			Addr:              "localhost:6379",
			PoolSize:          4,
			InvalidatePattern: "search:*",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Port: 9090,
		},
		Schedule: ScheduleConfig{
			At: "02:00",
		},
	}
}

// Validate rejects configurations the builder cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Indexer.OutputDir) == "" {
		return apperrors.Newf(apperrors.ErrInvalidConfig, "indexer.outputDir is required")
	}
	if c.Indexer.Workers <= 0 {
		c.Indexer.Workers = runtime.GOMAXPROCS(0)
	}
	if c.Indexer.MergeWorkers <= 0 {
		c.Indexer.MergeWorkers = c.Indexer.Workers
	}
	if c.Indexer.QueueSize <= 0 {
		c.Indexer.QueueSize = 256
	}
	if len(c.Indexer.Fields) == 0 {
		return apperrors.Newf(apperrors.ErrInvalidConfig, "indexer.fields must name at least one field")
	}
	switch c.Tokenizer.Lemmatizer {
	case "", LemmatizerNone, LemmatizerDictionary, LemmatizerStemmer:
	default:
		return apperrors.Newf(apperrors.ErrInvalidConfig, "unknown lemmatizer %q", c.Tokenizer.Lemmatizer)
	}
	if c.Tokenizer.MaxNGram < 1 {
		return apperrors.Newf(apperrors.ErrInvalidConfig, "tokenizer.maxNGram must be at least 1")
	}
	switch c.Source.Type {
	case "jsonl":
		if len(c.Source.Paths) == 0 {
			return apperrors.Newf(apperrors.ErrInvalidConfig, "source.paths is required for jsonl sources")
		}
	case "kafka":
		if len(c.Kafka.Brokers) == 0 || c.Kafka.Topics.DocumentIngest == "" {
			return apperrors.Newf(apperrors.ErrInvalidConfig, "kafka source needs brokers and topics.documentIngest")
		}
	case "postgres":
		if strings.TrimSpace(c.Source.Query) == "" {
			return apperrors.Newf(apperrors.ErrInvalidConfig, "source.query is required for postgres sources")
		}
	default:
		return apperrors.Newf(apperrors.ErrInvalidConfig, "unknown source type %q", c.Source.Type)
	}
	if _, err := time.Parse("15:04", c.Schedule.At); err != nil {
		return apperrors.Newf(apperrors.ErrInvalidConfig, "schedule.at %q is not HH:MM", c.Schedule.At)
	}
	return nil
}

// applyEnvOverrides reads SP_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SP_INDEXER_OUTPUT_DIR"); v != "" {
		cfg.Indexer.OutputDir = v
	}
	if v := os.Getenv("SP_INDEXER_SPILL_DIR"); v != "" {
		cfg.Indexer.SpillDir = v
	}
	if v := os.Getenv("SP_INDEXER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Indexer.Workers = n
		}
	}
	if v := os.Getenv("SP_INDEXER_MERGE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Indexer.MergeWorkers = n
		}
	}
	if v := os.Getenv("SP_TOKENIZER_LEMMATIZER"); v != "" {
		cfg.Tokenizer.Lemmatizer = v
	}
	if v := os.Getenv("SP_TOKENIZER_SEGMENTER_DICTS"); v != "" {
		cfg.Tokenizer.SegmenterDicts = strings.Split(v, ",")
	}
	if v := os.Getenv("SP_SOURCE_TYPE"); v != "" {
		cfg.Source.Type = v
	}
	if v := os.Getenv("SP_SOURCE_PATHS"); v != "" {
		cfg.Source.Paths = strings.Split(v, ",")
	}
	if v := os.Getenv("SP_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("SP_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("SP_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("SP_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("SP_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("SP_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SP_KAFKA_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = b
		}
	}
	if v := os.Getenv("SP_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SP_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SP_REDIS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Redis.Enabled = b
		}
	}
	if v := os.Getenv("SP_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SP_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("SP_METRICS_TEXTFILE"); v != "" {
		cfg.Metrics.TextfilePath = v
	}
}
