// Package config loads sertool's small configuration file (RPC target
// address, timeouts, log level/format) with viper, mirroring the teacher's
// pkg/config.Load shape — environment-variable overrides with a SERTOOL_
// prefix, config file optional, defaults applied when absent.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is sertool's full configuration surface.
type Config struct {
	RPC     RPCConfig     `mapstructure:"rpc"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// RPCConfig configures the default target for `sertool call`.
type RPCConfig struct {
	Addr           string        `mapstructure:"addr"`
	Domain         string        `mapstructure:"domain"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	IOTimeout      time.Duration `mapstructure:"io_timeout"`
}

// LoggingConfig configures internal/logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// Default returns the built-in defaults, used when no config file is found.
func Default() *Config {
	return &Config{
		RPC: RPCConfig{
			Addr:           "localhost:9090",
			ConnectTimeout: 5 * time.Second,
			IOTimeout:      30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Load reads configPath (if non-empty) or searches the default locations,
// applies SERTOOL_-prefixed environment overrides, and falls back to
// Default() when no config file is present.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SERTOOL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/sertool")
		v.SetConfigName("sertool")
		v.SetConfigType("yaml")
	}

	cfg := Default()
	// Registering every key lets SERTOOL_ variables apply with or without a
	// config file.
	v.SetDefault("rpc.addr", cfg.RPC.Addr)
	v.SetDefault("rpc.domain", cfg.RPC.Domain)
	v.SetDefault("rpc.connect_timeout", cfg.RPC.ConnectTimeout)
	v.SetDefault("rpc.io_timeout", cfg.RPC.IOTimeout)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.output", cfg.Logging.Output)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
