package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for configuration fields. An empty migrations
// directory selects the migrations embedded in the binary.
const (
	DefaultConfigFile       = "animals.yml"
	DefaultMigrationsDir    = ""
	DefaultLockTimeout      = 5 * time.Second
	DefaultStatementTimeout = 30 * time.Second
	DefaultTargetPGVersion  = 14
	DefaultFormat           = FormatText
)

// Output formats accepted by the format setting.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// EnvPrefix prefixes every environment variable read by MergeEnv.
const EnvPrefix = "ANIMALS_"

// ErrInvalidConfig is wrapped by every validation and parse failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the application configuration loaded from file, environment, and flags.
type Config struct {
	DatabaseURL      string
	MigrationsDir    string
	LockTimeout      time.Duration
	StatementTimeout time.Duration
	TargetPGVersion  int
	Format           string
}

// yamlConfig is the raw YAML file representation with string durations.
type yamlConfig struct {
	DatabaseURL      string `yaml:"database_url"`
	MigrationsDir    string `yaml:"migrations_dir"`
	LockTimeout      string `yaml:"lock_timeout"`
	StatementTimeout string `yaml:"statement_timeout"`
	TargetPGVersion  int    `yaml:"target_pg_version"`
	Format           string `yaml:"format"`
}

// New returns a Config populated with default values.
func New() *Config {
	return &Config{
		MigrationsDir:    DefaultMigrationsDir,
		LockTimeout:      DefaultLockTimeout,
		StatementTimeout: DefaultStatementTimeout,
		TargetPGVersion:  DefaultTargetPGVersion,
		Format:           DefaultFormat,
	}
}

// UseEmbedded reports whether migrations come from the binary rather than disk.
func (c *Config) UseEmbedded() bool {
	return c.MigrationsDir == ""
}

// Validate checks values that cannot be caught while parsing.
func (c *Config) Validate() error {
	if c.Format != FormatText && c.Format != FormatJSON {
		return fmt.Errorf("%w: format %q must be %q or %q", ErrInvalidConfig, c.Format, FormatText, FormatJSON)
	}

	if c.TargetPGVersion < 9 {
		return fmt.Errorf("%w: target_pg_version %d is not a supported PostgreSQL major", ErrInvalidConfig, c.TargetPGVersion)
	}

	if c.LockTimeout < 0 || c.StatementTimeout < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", ErrInvalidConfig)
	}

	return nil
}

// Load reads a YAML configuration file and returns a Config.
// If allowMissing is true and the file does not exist, defaults are returned.
func Load(path string, allowMissing bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && allowMissing {
			return New(), nil
		}

		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var raw yamlConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return fromYAML(&raw)
}

// fromYAML converts the raw YAML representation to a Config with defaults applied.
func fromYAML(raw *yamlConfig) (*Config, error) {
	cfg := New()

	if raw.DatabaseURL != "" {
		cfg.DatabaseURL = raw.DatabaseURL
	}

	if raw.MigrationsDir != "" {
		cfg.MigrationsDir = raw.MigrationsDir
	}

	if err := setDuration(&cfg.LockTimeout, "lock_timeout", raw.LockTimeout); err != nil {
		return nil, err
	}

	if err := setDuration(&cfg.StatementTimeout, "statement_timeout", raw.StatementTimeout); err != nil {
		return nil, err
	}

	if raw.TargetPGVersion != 0 {
		cfg.TargetPGVersion = raw.TargetPGVersion
	}

	if raw.Format != "" {
		cfg.Format = raw.Format
	}

	return cfg, nil
}

// MergeEnv overrides config fields from ANIMALS_* environment variables.
// Unset or empty variables leave the field alone.
func MergeEnv(cfg *Config) error {
	if v := os.Getenv(EnvPrefix + "DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}

	if v := os.Getenv(EnvPrefix + "MIGRATIONS_DIR"); v != "" {
		cfg.MigrationsDir = v
	}

	if err := setDuration(&cfg.LockTimeout, EnvPrefix+"LOCK_TIMEOUT", os.Getenv(EnvPrefix+"LOCK_TIMEOUT")); err != nil {
		return err
	}

	if err := setDuration(&cfg.StatementTimeout, EnvPrefix+"STATEMENT_TIMEOUT", os.Getenv(EnvPrefix+"STATEMENT_TIMEOUT")); err != nil {
		return err
	}

	if v := os.Getenv(EnvPrefix + "TARGET_PG_VERSION"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: parsing %sTARGET_PG_VERSION %q: %w", ErrInvalidConfig, EnvPrefix, v, err)
		}

		cfg.TargetPGVersion = n
	}

	if v := os.Getenv(EnvPrefix + "FORMAT"); v != "" {
		cfg.Format = v
	}

	return nil
}

func setDuration(dst *time.Duration, name, raw string) error {
	if raw == "" {
		return nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%w: parsing %s %q: %w", ErrInvalidConfig, name, raw, err)
	}

	*dst = d

	return nil
}
