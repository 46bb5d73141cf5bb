// Package config loads dcx's runtime configuration: store backing mode,
// cache location and size, default bound overrides, and the HTTP listen
// address for cmd/dcxserver.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"dcx/pkg/utils"
)

// Config is the unified configuration for a dcx process.
type Config struct {
	Store struct {
		Backing       string `mapstructure:"backing" json:"backing" yaml:"backing"` // "memory" or "sqlite"
		SQLitePath    string `mapstructure:"sqlite_path" json:"sqlite_path" yaml:"sqlite_path"`
		PromotionSize int    `mapstructure:"promotion_size" json:"promotion_size" yaml:"promotion_size"`
	} `mapstructure:"store" json:"store" yaml:"store"`

	Bounds struct {
		MaxSteps       uint64 `mapstructure:"max_steps" json:"max_steps" yaml:"max_steps"`
		MaxMemoryBytes uint64 `mapstructure:"max_memory_bytes" json:"max_memory_bytes" yaml:"max_memory_bytes"`
		MaxBranchDepth uint64 `mapstructure:"max_branch_depth" json:"max_branch_depth" yaml:"max_branch_depth"`
		MaxExecutionMs uint64 `mapstructure:"max_execution_ms" json:"max_execution_ms" yaml:"max_execution_ms"`
	} `mapstructure:"bounds" json:"bounds" yaml:"bounds"`

	HTTP struct {
		ListenAddr string `mapstructure:"listen_addr" json:"listen_addr" yaml:"listen_addr"`
	} `mapstructure:"http" json:"http" yaml:"http"`

	Logging struct {
		Level string `mapstructure:"level" json:"level" yaml:"level"`
	} `mapstructure:"logging" json:"logging" yaml:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

func setDefaults() {
	viper.SetDefault("store.backing", "memory")
	viper.SetDefault("store.sqlite_path", "dcx.db")
	viper.SetDefault("store.promotion_size", 4096)
	viper.SetDefault("bounds.max_steps", 1_000_000)
	viper.SetDefault("bounds.max_memory_bytes", 100*1<<20)
	viper.SetDefault("bounds.max_branch_depth", 100)
	viper.SetDefault("bounds.max_execution_ms", 30_000)
	viper.SetDefault("http.listen_addr", ":8088")
	viper.SetDefault("logging.level", "info")
}

// Load reads dcx.yaml (if present) from the working directory and config/,
// merges environment-specific overrides when env is non-empty, and applies
// DCX_-prefixed environment variables on top.
func Load(env string) (*Config, error) {
	setDefaults()
	viper.SetConfigName("dcx")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("config")

	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, utils.Wrap(err, "load config")
		}
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.SetEnvPrefix("DCX")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the DCX_ENV environment variable to
// select the overlay file.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("DCX_ENV", ""))
}

// YAML marshals c to YAML, for `dcx config show --format yaml`.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
