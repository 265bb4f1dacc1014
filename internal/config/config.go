// Package config loads protozc settings from a YAML file and the environment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// SearchPath is the location, relative to the XDG config directories, of the
// default configuration file.
const SearchPath = "protozc/config.yaml"

type Config struct {
	// Namespace is the package written at the top of every output.
	Namespace string `yaml:"namespace"`
	// Output is a directory, or - for STDOUT.
	Output string `yaml:"output"`
	// Roots are searched in order for compile targets.
	Roots            []string      `yaml:"roots"`
	Check            bool          `yaml:"check"`
	DescriptorSetOut string        `yaml:"descriptor_set_out"`
	Logging          LoggingConfig `yaml:"logging"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

// Load reads the configuration file at path. ${VAR} references in the file
// are expanded from lookup before parsing and PROTOZC_* variables override
// the parsed values.
func Load(path string, lookup func(string) (string, bool)) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	data = []byte(os.Expand(string(data), func(key string) string {
		v, _ := lookup(key)
		return v
	}))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg, lookup)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// LoadWithFallback loads path when it is set. Otherwise it loads the first
// config file found in the XDG config directories, and when there is none it
// builds the configuration from defaults and the environment.
func LoadWithFallback(path string, lookup func(string) (string, bool)) (*Config, error) {
	if path != "" {
		return Load(path, lookup)
	}
	found, err := xdg.SearchConfigFile(SearchPath)
	if err == nil {
		return Load(found, lookup)
	}
	cfg := &Config{}
	applyEnvOverrides(cfg, lookup)
	setDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup("PROTOZC_NAMESPACE"); ok && v != "" {
		cfg.Namespace = v
	}
	if v, ok := lookup("PROTOZC_OUTPUT"); ok && v != "" {
		cfg.Output = v
	}
	if v, ok := lookup("PROTOZC_CHECK"); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Check = b
		}
	}
	if v, ok := lookup("PROTOZC_DESCRIPTOR_SET_OUT"); ok && v != "" {
		cfg.DescriptorSetOut = v
	}
	if v, ok := lookup("PROTOZC_LOG_LEVEL"); ok && v != "" {
		cfg.Logging.Level = v
	}
	if v, ok := lookup("PROTOZC_LOG_FORMAT"); ok && v != "" {
		cfg.Logging.Format = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.Output == "" {
		cfg.Output = "."
	}
	if len(cfg.Roots) == 0 {
		cfg.Roots = []string{"."}
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}

func validate(cfg *Config) error {
	if _, err := zerolog.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch cfg.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", cfg.Logging.Format)
	}
	return nil
}
