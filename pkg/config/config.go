// Package config loads and validates xrootd4j-server's configuration.
//
// Configuration sources, in order of precedence:
//  1. Environment variables (XROOTD4J_*), for keys the configuration file sets
//  2. Configuration file (YAML)
//  3. Default values (lowest priority)
//
// No CLI flags are bound to configuration keys. Environment variables are
// not read for keys the file does not set, nor when no file is found.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gbehrmann/xrootd4j/internal/bytesize"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is xrootd4j-server's full configuration.
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Server configures the data-server core (spec §6's Configuration
	// surface: root, zero-copy, frame/body size caps, idle timeout).
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Metrics configures the Prometheus metrics HTTP endpoint.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Trust configures the trust-anchor background refresher (spec §4.9).
	Trust TrustConfig `mapstructure:"trust" yaml:"trust"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format: text or json.
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written: stdout, stderr, or a file path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// ServerConfig is the data-server core's configuration (spec §6).
type ServerConfig struct {
	// Root is the filesystem root every client path is resolved under
	// (spec §4.2).
	Root string `mapstructure:"root" validate:"required" yaml:"root"`

	// ListenAddress is the TCP address the server accepts connections on.
	ListenAddress string `mapstructure:"listen_address" validate:"required" yaml:"listen_address"`

	// UseZeroCopy enables the sendfile-backed zero-copy read path
	// (spec §4.4/§4.10) when the connection's transport supports it.
	UseZeroCopy bool `mapstructure:"use_zero_copy" yaml:"use_zero_copy"`

	// MaxFrameSize is loaded and validated with the rest of the
	// configuration, but the chunked read responder does not read it: its
	// frame bound is the fixed stream.MaxFrameSize (2MiB). Default 2MiB.
	MaxFrameSize bytesize.ByteSize `mapstructure:"max_frame_size" yaml:"max_frame_size"`

	// MaxBodySize bounds an incoming request's body length (spec §4.1's
	// "configurable cap"). Default 8MiB.
	MaxBodySize bytesize.ByteSize `mapstructure:"max_body_size" yaml:"max_body_size"`

	// IdleTimeout closes a connection that has been idle this long
	// (spec §5's "Timeouts").
	IdleTimeout time.Duration `mapstructure:"idle_timeout" validate:"required,gt=0" yaml:"idle_timeout"`

	// ShutdownTimeout bounds how long graceful shutdown waits for live
	// connections to drain.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// TrustConfig configures the trust-anchor background refresher
// (spec §4.9/§9).
type TrustConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval" validate:"required,gt=0" yaml:"refresh_interval"`
}

// Load reads configuration from configPath (or the default location if
// empty), environment variables, and defaults, then validates it.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if found {
		if err := v.Unmarshal(cfg, viper.DecodeHook(decodeHooks())); err != nil {
			return nil, fmt.Errorf("config: unmarshal: %w", err)
		}
		ApplyDefaults(cfg)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

// Save writes cfg as YAML to path, creating parent directories as needed.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: write file: %w", err)
	}
	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("XROOTD4J")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(defaultConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("config: read file: %w", err)
	}
	return true, nil
}

func decodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		mapstructure.StringToTimeDurationHookFunc(),
	)
}

// Validate runs struct-tag validation over cfg.
func Validate(cfg *Config) error {
	return validator.New().Struct(cfg)
}

func defaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "xrootd4j")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "xrootd4j")
}

// DefaultConfigPath returns the default configuration file path.
func DefaultConfigPath() string {
	return filepath.Join(defaultConfigDir(), "config.yaml")
}
