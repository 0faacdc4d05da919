package config

import (
	"reflect"
	"time"

	"github.com/gbehrmann/xrootd4j/internal/bytesize"
	"github.com/mitchellh/mapstructure"
)

// DefaultConfig returns a Config populated with the server's defaults. Load
// starts from this and overlays whatever the config file/environment
// supplies.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills in zero-valued fields of cfg with the server's
// defaults. Fields already set (e.g. by a config file) are left alone.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyMetricsDefaults(&cfg.Metrics)
	applyTrustDefaults(&cfg.Trust)
}

func applyLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = "INFO"
	}
	if l.Format == "" {
		l.Format = "text"
	}
	if l.Output == "" {
		l.Output = "stderr"
	}
}

func applyServerDefaults(s *ServerConfig) {
	if s.Root == "" {
		s.Root = "."
	}
	if s.ListenAddress == "" {
		s.ListenAddress = ":1094"
	}
	if s.MaxFrameSize == 0 {
		s.MaxFrameSize = 2 * bytesize.MiB
	}
	if s.MaxBodySize == 0 {
		s.MaxBodySize = 8 * bytesize.MiB
	}
	if s.IdleTimeout == 0 {
		s.IdleTimeout = 5 * time.Minute
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = 30 * time.Second
	}
}

func applyMetricsDefaults(m *MetricsConfig) {
	if m.Port == 0 {
		m.Port = 9094
	}
}

func applyTrustDefaults(t *TrustConfig) {
	if t.RefreshInterval == 0 {
		t.RefreshInterval = 10 * time.Minute
	}
}

// byteSizeDecodeHook converts strings and numbers to bytesize.ByteSize so
// config files can use human-readable sizes like "2Mi" or "8MB" (spec §6's
// size fields).
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}
