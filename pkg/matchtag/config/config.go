// Package config loads matchtag settings from an optional YAML file, .env
// files and environment variables, in that order of increasing priority.
//
// Environment files are loaded before overrides are applied:
//
//  1. ENV_FILE (if set, only this file is loaded)
//  2. .env.local (overrides .env)
//  3. .env
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/cognicore/matchtag/internal/logger"
	"github.com/cognicore/matchtag/internal/objstore"
	"github.com/cognicore/matchtag/pkg/matchtag/internalerr"
)

// Config is the complete service configuration.
type Config struct {
	Server  ServerConfig    `yaml:"server"`
	Storage StorageConfig   `yaml:"storage"`
	Sync    SyncConfig      `yaml:"sync"`
	S3      objstore.Config `yaml:"s3"`
	Tagger  TaggerConfig    `yaml:"tagger"`
	Run     RunConfig       `yaml:"run"`
	Logging logger.Config   `yaml:"logging"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host         string        `yaml:"host" env:"MATCHTAG_HOST"`
	Port         int           `yaml:"port" env:"ENDPOINT_PORT"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"MATCHTAG_READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"MATCHTAG_WRITE_TIMEOUT"`
	// CacheSize bounds the number of memoized query indexes.
	CacheSize int `yaml:"cache_size" env:"MATCHTAG_CACHE_SIZE"`
	// Schedule is a cron spec for background runs. Empty disables them.
	Schedule string `yaml:"schedule" env:"MATCHTAG_SCHEDULE"`
	// WatchOutput clears the query cache when the output log changes.
	WatchOutput bool `yaml:"watch_output" env:"MATCHTAG_WATCH_OUTPUT"`
}

// StorageConfig holds local paths.
type StorageConfig struct {
	CorpusDir  string `yaml:"corpus_dir" env:"MATCHTAG_CORPUS_DIR"`
	LedgerPath string `yaml:"ledger_path" env:"MATCHTAG_LEDGER_PATH"`
	OutputPath string `yaml:"output_path" env:"MATCHTAG_OUTPUT_PATH"`
	// UploadKey is the object key the output log is shipped to.
	UploadKey string `yaml:"upload_key" env:"MATCHTAG_UPLOAD_KEY"`
}

// SyncConfig controls corpus refreshes from the object store.
type SyncConfig struct {
	Prefix    string        `yaml:"prefix" env:"DATA_S3_PREFIX"`
	Freshness time.Duration `yaml:"freshness" env:"FOLDER_UPDATE_FREQ"`
	// Disabled works offline: no corpus downloads and no output uploads.
	Disabled bool `yaml:"disabled" env:"MATCHTAG_SYNC_DISABLED"`
}

// TaggerConfig selects tagging resources.
type TaggerConfig struct {
	LexiconPath   string `yaml:"lexicon_path" env:"MATCHTAG_LEXICON"`
	GazetteerPath string `yaml:"gazetteer_path" env:"MATCHTAG_GAZETTEER"`
	// NoNameFallback disables labelling unknown capitalized runs as persons.
	NoNameFallback bool `yaml:"no_name_fallback" env:"MATCHTAG_NO_NAME_FALLBACK"`

	SentimentURL       string  `yaml:"sentiment_url" env:"MATCHTAG_SENTIMENT_URL"`
	SentimentAPIKey    string  `yaml:"sentiment_api_key" env:"MATCHTAG_SENTIMENT_API_KEY"`
	SentimentRPS       float64 `yaml:"sentiment_rps" env:"MATCHTAG_SENTIMENT_RPS"`
	SentimentBatchSize int     `yaml:"sentiment_batch_size" env:"MATCHTAG_SENTIMENT_BATCH"`
}

// RunConfig controls tagging runs.
type RunConfig struct {
	// Timezone ledger timestamps are recorded in.
	Timezone string `yaml:"timezone" env:"MATCHTAG_TIMEZONE"`
	// MaxAttempts dead-letters articles after that many failures. Zero
	// retries them on every run.
	MaxAttempts int `yaml:"max_attempts" env:"MATCHTAG_MAX_ATTEMPTS"`
}

// Defaults.
const (
	DefaultPort       = 5000
	DefaultCacheSize  = 4
	DefaultBucket     = "guardian-match-reports"
	DefaultFreshness  = 24 * time.Hour
	DefaultTimezone   = "Europe/Copenhagen"
	DefaultCorpusDir  = "data/corpus"
	DefaultLedgerPath = "data/processed.db"
	DefaultOutputPath = "data/articles.jl"
	DefaultUploadKey  = "articles.jl"
)

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		// Runs triggered over HTTP can take a while.
		c.Server.WriteTimeout = 30 * time.Minute
	}
	if c.Server.CacheSize == 0 {
		c.Server.CacheSize = DefaultCacheSize
	}

	if c.Storage.CorpusDir == "" {
		c.Storage.CorpusDir = DefaultCorpusDir
	}
	if c.Storage.LedgerPath == "" {
		c.Storage.LedgerPath = DefaultLedgerPath
	}
	if c.Storage.OutputPath == "" {
		c.Storage.OutputPath = DefaultOutputPath
	}
	if c.Storage.UploadKey == "" {
		c.Storage.UploadKey = DefaultUploadKey
	}

	if c.Sync.Prefix == "" {
		c.Sync.Prefix = DefaultBucket
	}
	if c.Sync.Freshness == 0 {
		c.Sync.Freshness = DefaultFreshness
	}

	def := objstore.DefaultConfig()
	if c.S3.Endpoint == "" {
		c.S3.Endpoint = def.Endpoint
		c.S3.UseSSL = def.UseSSL
	}
	if c.S3.Bucket == "" {
		c.S3.Bucket = def.Bucket
	}
	if c.S3.Timeout == 0 {
		c.S3.Timeout = def.Timeout
	}

	if c.Run.Timezone == "" {
		c.Run.Timezone = DefaultTimezone
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.S3.Bucket == "":
		return fmt.Errorf("s3.bucket is required: %w", internalerr.ErrInvalidConfig)
	case c.Sync.Freshness <= 0:
		return fmt.Errorf("sync.freshness must be positive: %w", internalerr.ErrInvalidConfig)
	case c.Server.Port <= 0 || c.Server.Port > 65535:
		return fmt.Errorf("server.port %d out of range: %w", c.Server.Port, internalerr.ErrInvalidConfig)
	case c.Server.CacheSize < 0:
		return fmt.Errorf("server.cache_size must not be negative: %w", internalerr.ErrInvalidConfig)
	case c.Run.MaxAttempts < 0:
		return fmt.Errorf("run.max_attempts must not be negative: %w", internalerr.ErrInvalidConfig)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Run.Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Run.Timezone)
	if err != nil {
		return nil, fmt.Errorf("run.timezone %q: %w", c.Run.Timezone, internalerr.ErrInvalidConfig)
	}
	return loc, nil
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Load reads path (optional; empty means defaults only), applies defaults,
// then environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, fmt.Errorf("load environment files: %w", err)
	}

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Path returns CONFIG_PATH if set, otherwise def.
func Path(def string) string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return def
}

func loadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}
	if err := godotenv.Load(".env.local"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env.local: %w", err)
	}
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}
