// Package config loads the command line configuration from flags and the
// process environment. A flag given on the command line wins over its
// environment variable, which wins over the flag default.
package config

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/benms/download-s3-file/errors"
	"github.com/benms/download-s3-file/internal/logger"
	"github.com/benms/download-s3-file/s3types"
)

// Config is the resolved command line configuration.
type Config struct {
	Destination    string `mapstructure:"destination"`
	Bucket         string `mapstructure:"bucket"`
	Key            string `mapstructure:"key"`
	LogLevel       string `mapstructure:"log-level"`
	Region         string `mapstructure:"region"`
	Endpoint       string `mapstructure:"endpoint"`
	Backend        string `mapstructure:"backend"`
	Strategy       string `mapstructure:"strategy"`
	Concurrency    int    `mapstructure:"concurrency"`
	PartSize       int64  `mapstructure:"part-size"`
	MaxRetries     int    `mapstructure:"max-retries"`
	ForcePathStyle bool   `mapstructure:"force-path-style"`
	NoProgress     bool   `mapstructure:"no-progress"`
}

// binding ties a flag to the environment variable that can also set it.
type binding struct {
	flag string
	env  string
}

var bindings = []binding{
	{"destination", "DOWNLOAD_TO_FILE"},
	{"bucket", "S3_BUCKET_NAME"},
	{"key", "S3_KEY_FILE"},
	{"log-level", "LOG_LEVEL"},
	{"region", "S3_REGION"},
	{"endpoint", "S3_ENDPOINT"},
	{"backend", "S3_BACKEND"},
	{"strategy", "S3_STRATEGY"},
	{"concurrency", "S3_CONCURRENCY"},
	{"part-size", "S3_PART_SIZE"},
	{"max-retries", "S3_MAX_RETRIES"},
	{"force-path-style", "S3_FORCE_PATH_STYLE"},
	{"no-progress", "S3_NO_PROGRESS"},
}

// BindFlags declares the flags on flagSet and binds each of them, together
// with its environment variable, to v.
func BindFlags(v *viper.Viper, flagSet *pflag.FlagSet) error {
	flagSet.StringP("destination", "o", "", "Local file to write the object to. (env DOWNLOAD_TO_FILE)")
	flagSet.StringP("bucket", "b", "", "Bucket to download from. (env S3_BUCKET_NAME)")
	flagSet.StringP("key", "k", "", "Key of the object to download. (env S3_KEY_FILE)")
	flagSet.String("log-level", logger.DefaultLevel, "Log level: debug, info, warn or error. (env LOG_LEVEL)")
	flagSet.String("region", "", "Region of the bucket. Defaults to the SDK configuration, then us-east-1. (env S3_REGION)")
	flagSet.String("endpoint", "", "Custom endpoint URL for S3-compatible services. (env S3_ENDPOINT)")
	flagSet.String("backend", string(s3types.BackendAWS), "Client library: aws or minio. (env S3_BACKEND)")
	flagSet.String("strategy", string(s3types.StrategyStream), "Transfer strategy: stream or managed. (env S3_STRATEGY)")
	flagSet.Int("concurrency", 10, "Parts fetched at once by the managed strategy. (env S3_CONCURRENCY)")
	flagSet.Int64("part-size", 8*1024*1024, "Part size in bytes for the managed strategy. (env S3_PART_SIZE)")
	flagSet.Int("max-retries", 3, "Maximum attempts per request. (env S3_MAX_RETRIES)")
	flagSet.Bool("force-path-style", false, "Use path-style bucket addressing. (env S3_FORCE_PATH_STYLE)")
	flagSet.Bool("no-progress", false, "Do not print the progress line. (env S3_NO_PROGRESS)")

	for _, b := range bindings {
		if err := v.BindPFlag(b.flag, flagSet.Lookup(b.flag)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", b.flag, err)
		}
		if err := v.BindEnv(b.flag, b.env); err != nil {
			return fmt.Errorf("failed to bind env %s: %w", b.env, err)
		}
	}
	return nil
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.NewError("loadConfig", fmt.Errorf("%w: %w", errors.ErrInvalidInput, err))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first missing or malformed value.
func (c Config) Validate() error {
	switch {
	case c.Destination == "":
		return invalid("destination is required (--destination or DOWNLOAD_TO_FILE)")
	case c.Bucket == "":
		return invalid("bucket is required (--bucket or S3_BUCKET_NAME)")
	case c.Key == "":
		return invalid("key is required (--key or S3_KEY_FILE)")
	case !s3types.BackendKind(c.Backend).Valid():
		return invalid(fmt.Sprintf("unknown backend %q", c.Backend))
	case !s3types.Strategy(c.Strategy).Valid():
		return invalid(fmt.Sprintf("unknown strategy %q", c.Strategy))
	case c.Concurrency <= 0:
		return invalid("concurrency must be positive")
	case c.PartSize <= 0:
		return invalid("part size must be positive")
	case c.MaxRetries < 0:
		return invalid("max retries cannot be negative")
	}
	return nil
}

func invalid(msg string) error {
	return errors.NewError("validateConfig", errors.ErrInvalidInput).WithMessage(msg)
}
