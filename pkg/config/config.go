// Package config provides YAML-based configuration loading for swstat.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"swstat/pkg/protocol/codec"
	"swstat/pkg/transport"
)

// DefaultPort is the SwUDP server port.
const DefaultPort = 33996

// Config is the root application configuration.
type Config struct {
	// Server is the endpoint to query.
	Server ServerConfig `mapstructure:"server"`

	// Poll controls request pacing.
	Poll PollConfig `mapstructure:"poll"`

	// Log holds logging configuration
	Log LogConfig `mapstructure:"log"`

	// Record enables snapshot recording when Path is set.
	Record RecordConfig `mapstructure:"record"`

	// Metrics enables the Prometheus exporter when Listen is set.
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: console or json
	Format string `mapstructure:"format"`
	// Outputs: list of outputs: stdout, stderr, or file paths
	Outputs []string `mapstructure:"outputs"`

	// Rotation controls file rotation when writing to files
	Rotation RotationConfig `mapstructure:"rotation"`
	// Development toggles development-friendly logging options
	Development bool `mapstructure:"development"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
	Enable     bool   `mapstructure:"enable"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:      DefaultPort,
			Transport: transport.KindUDP.String(),
		},
		Poll: PollConfig{
			Interval:       3 * time.Second,
			OneShotTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:   "info",
			Format:  "console",
			Outputs: []string{"stderr"},
			Rotation: RotationConfig{
				Enable:     false,
				Filename:   "logs/swstat.log",
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
				Compress:   true,
			},
		},
		Record:  RecordConfig{Format: "json"},
		Metrics: MetricsConfig{Namespace: "swstat"},
	}
}

// flagKeys maps command line flag names to configuration keys.
var flagKeys = map[string]string{
	"port":              "server.port",
	"transport":         "server.transport",
	"interval":          "poll.interval",
	"timeout":           "poll.oneshot_timeout",
	"log-level":         "log.level",
	"log-format":        "log.format",
	"record":            "record.path",
	"record-format":     "record.format",
	"metrics-listen":    "metrics.listen",
	"metrics-namespace": "metrics.namespace",
}

// Load reads configuration from the provided path (if non-empty),
// otherwise it searches common locations and supports environment overrides.
// Environment variables use the prefix SWSTAT and `.`/`-` are replaced with `_`.
// Example: SWSTAT_LOG_LEVEL=debug. Flags that were set on the command line
// take precedence over both; flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("SWSTAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// seed defaults for viper so env-only configs work
	v.SetDefault("server.host", cfg.Server.Host)
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.transport", cfg.Server.Transport)
	v.SetDefault("poll.interval", cfg.Poll.Interval)
	v.SetDefault("poll.oneshot_timeout", cfg.Poll.OneShotTimeout)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.outputs", cfg.Log.Outputs)
	v.SetDefault("log.development", cfg.Log.Development)
	v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
	v.SetDefault("log.rotation.filename", cfg.Log.Rotation.Filename)
	v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)
	v.SetDefault("record.path", cfg.Record.Path)
	v.SetDefault("record.format", cfg.Record.Format)
	v.SetDefault("metrics.listen", cfg.Metrics.Listen)
	v.SetDefault("metrics.namespace", cfg.Metrics.Namespace)

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, errors.Wrapf(err, "bind flag %s", name)
				}
			}
		}
	}

	// Choose config file
	if path == "" {
		// Allow override via env var
		if envPath := os.Getenv("SWSTAT_CONFIG"); envPath != "" {
			path = envPath
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		// Search common locations with base name `swstat`
		v.SetConfigName("swstat")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".swstat"))
		}
	}

	// Read config file if present; if not found, continue with defaults/env
	if err := v.ReadInConfig(); err != nil {
		var viperConfigFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &viperConfigFileNotFound) {
			return nil, errors.Wrap(err, "read config")
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	lvl := strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch lvl {
	case "debug", "info", "warn", "warning", "error":
		// ok
	default:
		return errors.Errorf("invalid log.level: %q", c.Log.Level)
	}

	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if len(c.Log.Outputs) == 0 {
		c.Log.Outputs = []string{"stderr"}
	}
	if err := c.Server.validate(); err != nil {
		return err
	}
	if err := c.Poll.validate(); err != nil {
		return err
	}
	if c.Record.Path != "" {
		if _, err := codec.NewRegistry().Format(c.Record.Format); err != nil {
			return errors.Wrap(err, "invalid record.format")
		}
	}
	if strings.TrimSpace(c.Metrics.Namespace) == "" {
		c.Metrics.Namespace = "swstat"
	}
	return nil
}
