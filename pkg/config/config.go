// Package config loads wikitop settings from command-line flags, WIKITOP_*
// environment variables, an optional .env file and an optional YAML file.
//
// Precedence, highest first: flag, environment, config file, default.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/Sternrassler/wikitop/pkg/client"
	"github.com/Sternrassler/wikitop/pkg/logging"
	"github.com/Sternrassler/wikitop/pkg/output"
	"github.com/Sternrassler/wikitop/pkg/pipeline"
	"github.com/Sternrassler/wikitop/pkg/ratelimit"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every key when read from the environment,
// e.g. WIKITOP_OUTPUT_FILE.
const EnvPrefix = "WIKITOP"

// Keys shared by flags, environment variables and the config file.
const (
	KeyOutputFile  = "output_file"
	KeyMaxArticles = "max_articles"
	KeyProject     = "project"
	KeyAccess      = "access"
	KeyUserAgent   = "user_agent"
	KeyRateLimit   = "rate_limit"
	KeyTimeout     = "timeout"
	KeyGzip        = "gzip"
	KeyLogLevel    = "log_level"
	KeyLogPretty   = "log_pretty"
	KeyMetricsFile = "metrics_file"
	KeyConfig      = "config"
)

// Config is the resolved CLI configuration.
type Config struct {
	OutputFile  string        `mapstructure:"output_file"`
	MaxArticles int           `mapstructure:"max_articles"`
	Project     string        `mapstructure:"project"`
	Access      string        `mapstructure:"access"`
	UserAgent   string        `mapstructure:"user_agent"`
	RateLimit   float64       `mapstructure:"rate_limit"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Gzip        bool          `mapstructure:"gzip"`
	LogLevel    string        `mapstructure:"log_level"`
	LogPretty   bool          `mapstructure:"log_pretty"`
	MetricsFile string        `mapstructure:"metrics_file"`
	ConfigFile  string        `mapstructure:"config"`
}

// NewFlagSet returns the wikitop flag set with defaults applied.
func NewFlagSet(name string) *pflag.FlagSet {
	defaults := pipeline.DefaultConfig()

	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flags.SortFlags = false
	flags.StringP(KeyOutputFile, "o", "", "path of the JSON output file (required)")
	flags.IntP(KeyMaxArticles, "m", defaults.MaxArticles, "maximum number of top articles to fetch")
	flags.String(KeyProject, defaults.Project, "wiki project host")
	flags.String(KeyAccess, defaults.Access, "pageviews access tier")
	flags.String(KeyUserAgent, client.DefaultUserAgent, "User-Agent header sent with every request")
	flags.Float64(KeyRateLimit, ratelimit.DefaultRequestsPerSecond, "requests per second, 0 disables pacing")
	flags.Duration(KeyTimeout, 0, "overall run timeout, 0 means none")
	flags.Bool(KeyGzip, false, "also write a gzip-compressed copy of the output")
	flags.String(KeyLogLevel, string(logging.LevelInfo), "log level (debug, info, warn, error)")
	flags.Bool(KeyLogPretty, false, "human-readable console logs instead of JSON")
	flags.String(KeyMetricsFile, "", "write Prometheus metrics to this textfile at exit")
	flags.String(KeyConfig, "", "optional YAML config file")
	return flags
}

// Load parses args and resolves the configuration. envFiles are loaded
// into the process environment first; when none are given ".env" in the
// working directory is tried. Missing env files are ignored.
//
// pflag.ErrHelp is returned unwrapped when -h/--help is given.
func Load(args []string, envFiles ...string) (*Config, error) {
	flags := NewFlagSet("wikitop")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, err
		}
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	if path := v.GetString(KeyConfig); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration before any request is made.
func (c *Config) Validate() error {
	if c.OutputFile == "" {
		return fmt.Errorf("%s is required", KeyOutputFile)
	}
	if err := output.ValidatePath(c.OutputFile); err != nil {
		return err
	}
	if c.MaxArticles < 1 {
		return fmt.Errorf("%s must be >= 1 (got %d)", KeyMaxArticles, c.MaxArticles)
	}
	if c.Project == "" {
		return fmt.Errorf("%s is required", KeyProject)
	}
	if c.UserAgent == "" {
		return fmt.Errorf("%s is required", KeyUserAgent)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%s must be >= 0 (got %g)", KeyRateLimit, c.RateLimit)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%s must be >= 0 (got %s)", KeyTimeout, c.Timeout)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Pipeline returns the pipeline settings for this configuration.
func (c *Config) Pipeline() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	cfg.Project = c.Project
	cfg.Access = c.Access
	cfg.MaxArticles = c.MaxArticles
	cfg.OutputPath = c.OutputFile
	cfg.Gzip = c.Gzip
	return cfg
}

// Client returns the HTTP gateway settings for this configuration.
// The run timeout is applied to the whole run, not per request.
func (c *Config) Client() client.Config {
	cfg := client.DefaultConfig()
	cfg.UserAgent = c.UserAgent
	cfg.RequestsPerSecond = c.RateLimit
	return cfg
}

// Logging returns the logger settings for this configuration.
func (c *Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(strings.ToLower(c.LogLevel))
	cfg.Pretty = c.LogPretty
	return cfg
}

func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load env file %s: %w", f, err)
		}
	}
	return nil
}
