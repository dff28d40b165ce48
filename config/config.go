// Package config provides YAML configuration parsing for msgboard.
//
// This package enables running msgboard as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	title: Team Wall
//	host: 0.0.0.0
//	port: ${PORT:-8000}
//	log_level: info
//	log_format: json
//
//	cors:
//	  allowed_origins: ["https://wall.example.com"]
//
//	hub:
//	  queue_size: 32
//	  send_timeout: 5s
//
//	metrics:
//	  enabled: true
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Defaults applied by [Parse] and [Default].
const (
	DefaultHost        = "0.0.0.0"
	DefaultPort        = 8000
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "json"
	DefaultQueueSize   = 16
	DefaultSendTimeout = 5 * time.Second
)

// portEnvVar overrides the configured port when set.
const portEnvVar = "PORT"

// Config is the root configuration structure for msgboard.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the dashboard title. Defaults to "Message Board" if not set.
	Title string `yaml:"title"`

	// Host is the interface to bind. Defaults to 0.0.0.0.
	Host string `yaml:"host"`

	// Port is the HTTP server port. Defaults to 8000.
	// The PORT environment variable takes precedence.
	Port int `yaml:"port" validate:"min=0,max=65535"`

	// LogLevel is one of debug, info, warn, error. Defaults to info.
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`

	// LogFormat is json or text. Defaults to json.
	LogFormat string `yaml:"log_format" validate:"oneof=json text"`

	CORS    CORSConfig    `yaml:"cors"`
	Hub     HubConfig     `yaml:"hub"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// CORSConfig controls which browser origins may call the API.
type CORSConfig struct {
	// AllowedOrigins lists permitted origins. Defaults to ["*"].
	AllowedOrigins []string `yaml:"allowed_origins" validate:"dive,required"`
}

// HubConfig tunes per-subscriber delivery.
type HubConfig struct {
	// QueueSize is the number of pending events buffered per subscriber.
	// Defaults to 16.
	QueueSize int `yaml:"queue_size" validate:"min=1,max=4096"`

	// SendTimeout bounds a single delivery to one subscriber.
	// Accepts duration strings like "5s", "500ms". Defaults to 5s.
	SendTimeout Duration `yaml:"send_timeout"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled serves /metrics. Defaults to true.
	Enabled *bool `yaml:"enabled"`
}

// MetricsEnabled reports whether /metrics should be served.
func (c *Config) MetricsEnabled() bool {
	return c.Metrics.Enabled == nil || *c.Metrics.Enabled
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// already have an error, skip processing
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Default returns the configuration used when no file is given.
// The PORT environment variable is honoured.
func Default() (*Config, error) {
	var cfg Config
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// ${VAR} references anywhere in the document are expanded before
// unmarshalling, defaults are applied, and the PORT environment variable
// overrides the configured port.
func Parse(data []byte) (*Config, error) {
	expanded, err := expandEnvVars(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to expand config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// finish applies defaults and environment overrides, then validates.
func (c *Config) finish() error {
	c.applyDefaults()
	if err := c.applyEnv(); err != nil {
		return err
	}
	return c.validate()
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	c.LogLevel = strings.ToLower(c.LogLevel)
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	c.LogFormat = strings.ToLower(c.LogFormat)
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
	if c.Hub.QueueSize == 0 {
		c.Hub.QueueSize = DefaultQueueSize
	}
	if c.Hub.SendTimeout == 0 {
		c.Hub.SendTimeout = Duration(DefaultSendTimeout)
	}
}

func (c *Config) applyEnv() error {
	raw, ok := os.LookupEnv(portEnvVar)
	if !ok || raw == "" {
		return nil
	}
	port, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("%s: invalid port %q", portEnvVar, raw)
	}
	c.Port = port
	return nil
}

// structValidator reports field errors by their YAML names.
var structValidator = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}()

// validate checks field ranges and the constraints the tags cannot express.
func (c *Config) validate() error {
	if err := structValidator.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fieldError(verrs[0])
		}
		return err
	}

	if c.Hub.SendTimeout.Duration() <= 0 {
		return fmt.Errorf("hub.send_timeout must be positive, got %s", c.Hub.SendTimeout.Duration())
	}
	if c.Hub.SendTimeout.Duration() > time.Minute {
		return fmt.Errorf("hub.send_timeout must not exceed 1m, got %s", c.Hub.SendTimeout.Duration())
	}
	return nil
}

// fieldError renders a validator failure as "<yaml path>: <reason>".
func fieldError(fe validator.FieldError) error {
	// drop the root struct name from the namespace
	path := fe.Namespace()
	if idx := strings.Index(path, "."); idx != -1 {
		path = path[idx+1:]
	}

	switch fe.Tag() {
	case "oneof":
		return fmt.Errorf("%s must be one of [%s], got %q", path, fe.Param(), fe.Value())
	case "min":
		return fmt.Errorf("%s must be at least %s, got %v", path, fe.Param(), fe.Value())
	case "max":
		return fmt.Errorf("%s must not exceed %s, got %v", path, fe.Param(), fe.Value())
	case "required":
		return fmt.Errorf("%s must not be empty", path)
	default:
		return fmt.Errorf("%s failed %q validation", path, fe.Tag())
	}
}
