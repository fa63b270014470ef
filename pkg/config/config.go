// Package config loads rpc4next settings from rpc4next.yaml, RPC4NEXT_*
// environment variables and command flags.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// FileName is the config file name without extension.
	FileName = "rpc4next"
	// EnvPrefix prefixes environment overrides (e.g., RPC4NEXT_BASE_DIR).
	EnvPrefix = "RPC4NEXT"
)

// Keys
const (
	KeyBaseDir    = "base_dir"
	KeyOutput     = "output"
	KeyParamsFile = "params_file"
	KeyDebounce   = "debounce"
	KeyLogLevel   = "log_level"
	KeyWatch      = "watch"
)

// Config holds generator settings.
type Config struct {
	BaseDir    string        `mapstructure:"base_dir" json:"base_dir" yaml:"base_dir"`
	Output     string        `mapstructure:"output" json:"output" yaml:"output"`
	ParamsFile string        `mapstructure:"params_file" json:"params_file,omitempty" yaml:"params_file,omitempty"`
	Debounce   time.Duration `mapstructure:"debounce" json:"debounce" yaml:"debounce"`
	LogLevel   string        `mapstructure:"log_level" json:"log_level" yaml:"log_level"`
	Watch      bool          `mapstructure:"watch" json:"watch" yaml:"watch"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		BaseDir:  "app",
		Output:   filepath.Join("src", "generated", "rpc.ts"),
		Debounce: 300 * time.Millisecond,
		LogLevel: "info",
	}
}

// New returns a viper instance with defaults and environment binding set up,
// searching dir for rpc4next.yaml.
func New(dir string) *viper.Viper {
	def := Default()

	v := viper.New()
	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetDefault(KeyBaseDir, def.BaseDir)
	v.SetDefault(KeyOutput, def.Output)
	v.SetDefault(KeyParamsFile, def.ParamsFile)
	v.SetDefault(KeyDebounce, def.Debounce)
	v.SetDefault(KeyLogLevel, def.LogLevel)
	v.SetDefault(KeyWatch, def.Watch)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file (explicit path or discovered), then decodes and
// validates the merged settings. A missing discovered file is not an error.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for unusable values.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseDir) == "" {
		return errors.New("base_dir must not be empty")
	}
	if strings.TrimSpace(c.Output) == "" {
		return errors.New("output must not be empty")
	}
	if c.Debounce <= 0 {
		return fmt.Errorf("debounce must be positive, got %s", c.Debounce)
	}
	if strings.ContainsAny(c.ParamsFile, `/\`) {
		return fmt.Errorf("params_file must be a file name, got %q", c.ParamsFile)
	}
	return nil
}

// fileConfig is the on-disk layout written by Save.
type fileConfig struct {
	BaseDir    string `yaml:"base_dir"`
	Output     string `yaml:"output"`
	ParamsFile string `yaml:"params_file,omitempty"`
	Debounce   string `yaml:"debounce"`
	LogLevel   string `yaml:"log_level"`
	Watch      bool   `yaml:"watch,omitempty"`
}

// Save validates cfg and writes it to path as YAML.
func Save(fs afero.Fs, path string, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(fileConfig{
		BaseDir:    cfg.BaseDir,
		Output:     filepath.ToSlash(cfg.Output),
		ParamsFile: cfg.ParamsFile,
		Debounce:   cfg.Debounce.String(),
		LogLevel:   cfg.LogLevel,
		Watch:      cfg.Watch,
	})
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
