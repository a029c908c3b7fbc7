package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	MacropoloConfigPathEnvVar = "MACROPOLO_CONFIG_PATH" // Environment variable for config path
)

// Config holds all configuration for the application
type Config struct {
	// Debug enables verbose logging and additional debug information
	Debug bool `mapstructure:"debug"`

	// Specs configures where specification documents are discovered
	Specs struct {
		Dir            string `mapstructure:"dir"`
		Extension      string `mapstructure:"extension"`
		Recursive      bool   `mapstructure:"recursive"`
		FollowSymlinks bool   `mapstructure:"follow_symlinks"`
	} `mapstructure:"specs"`

	// Templates configures the template environment used to render macros
	Templates struct {
		Engine     string   `mapstructure:"engine"`
		SearchRoot string   `mapstructure:"search_root"`
		Exclude    []string `mapstructure:"exclude"`
		Whitelist  []string `mapstructure:"whitelist"`
		// Preset names a filter set loaded into every environment, e.g. "sheer"
		Preset string `mapstructure:"preset"`
	} `mapstructure:"templates"`

	// Server configuration
	Server struct {
		Host     string        `mapstructure:"host"`
		Port     int           `mapstructure:"port"`
		Timeout  time.Duration `mapstructure:"timeout"`
		LogLevel string        `mapstructure:"log_level"`
	} `mapstructure:"server"`

	// Watch configures `run --watch`
	Watch struct {
		Debounce time.Duration `mapstructure:"debounce"`
		Ignore   []string      `mapstructure:"ignore"`
	} `mapstructure:"watch"`
}

// Load initializes and returns the configuration from all sources:
// 1. Command-line flags (highest priority)
// 2. Environment variables (prefixed with MACROPOLO_)
// 3. Configuration file (lowest priority)
func Load(configPath string) (*Config, error) {
	// Check for environment variable config path if not explicitly provided
	if configPath == "" {
		if envPath := os.Getenv(MacropoloConfigPathEnvVar); envPath != "" {
			if _, err := os.Stat(envPath); os.IsNotExist(err) {
				return nil, fmt.Errorf("config file specified in %s not found: %s", MacropoloConfigPathEnvVar, envPath)
			}
			configPath = envPath
		}
	} else {
		// Verify explicitly provided config file exists
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
	}
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for macropolo.yml in the current directory
		v.SetConfigName("macropolo")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("MACROPOLO")
	v.AutomaticEnv()
	// Replace dots with underscores in env vars
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		} else if configPath != "" {
			// Only error if config file was explicitly specified
			return nil, fmt.Errorf("specified config file not found: %s", configPath)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default values for all configuration options
func setDefaults(v *viper.Viper) {
	v.SetDefault("specs.dir", "macro_tests")
	v.SetDefault("specs.extension", ".json")
	v.SetDefault("specs.recursive", false)
	v.SetDefault("specs.follow_symlinks", false)

	v.SetDefault("templates.engine", "jinja")
	v.SetDefault("templates.search_root", "templates")
	v.SetDefault("templates.exclude", []string{"_*"})
	v.SetDefault("templates.whitelist", []string{})
	v.SetDefault("templates.preset", "")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout", "30s")
	v.SetDefault("server.log_level", "info")

	v.SetDefault("watch.debounce", "250ms")
	v.SetDefault("watch.ignore", []string{"**/*.swp", "**/*~"})
}
