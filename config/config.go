// Package config loads the container's own options from an optional YAML
// file, an optional .env file and NASC_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/sqamentor/nasc/logger"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "NASC"

// Config is the root configuration for a container.
type Config struct {
	Logging   logger.Config   `yaml:"logging" mapstructure:"logging"`
	Container ContainerConfig `yaml:"container" mapstructure:"container"`
}

// ContainerConfig holds behavioural switches for the container.
type ContainerConfig struct {
	// ValidateOnBoot runs the static dependency graph check when providers boot.
	ValidateOnBoot bool `yaml:"validate_on_boot" mapstructure:"validate_on_boot"`
	// DisposeOnClear disposes cached singletons before Clear drops them.
	DisposeOnClear bool `yaml:"dispose_on_clear" mapstructure:"dispose_on_clear"`
}

// Default returns a configuration with defaults applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults applies default values to every section.
func (c *Config) ApplyDefaults() {
	c.Logging.ApplyDefaults()
}

// Validate validates the configuration using struct tags.
func (c *Config) Validate() error {
	if err := getValidator().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// LoaderConfig holds optional file overrides for Load.
type LoaderConfig struct {
	ConfigFile string
	EnvFile    string
}

// LoaderOption is a functional option for Load.
type LoaderOption func(*LoaderConfig)

// WithConfigFile sets an explicit YAML config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// Load builds a Config. Precedence, highest first: environment variables
// (NASC_LOGGING_LEVEL, NASC_CONTAINER_VALIDATE_ON_BOOT, ...), the .env file,
// the YAML file, defaults. Missing files are skipped.
func Load(opts ...LoaderOption) (*Config, error) {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}

	if lc.EnvFile != "" && fileExists(lc.EnvFile) {
		// godotenv.Load never overrides variables that are already set.
		if err := godotenv.Load(lc.EnvFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", lc.EnvFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	if lc.ConfigFile != "" && fileExists(lc.ConfigFile) {
		v.SetConfigFile(lc.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", lc.ConfigFile, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv values reach Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("logging.no_color", false)
	v.SetDefault("logging.timestamp", true)
	v.SetDefault("container.validate_on_boot", false)
	v.SetDefault("container.dispose_on_clear", false)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
