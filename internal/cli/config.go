package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	envPrefix      = "PATENTCHAT"
	configName     = ".patentchat"
	defaultBaseURL = "http://localhost:8080/api/v1"
)

// Config is the client side configuration.
type Config struct {
	BaseURL  string
	Token    string
	PageSize int
	Timeout  time.Duration
	LogLevel string

	// File is the config file that was read, if any.
	File string
}

// Validate checks the loaded values.
func (c Config) Validate() error {
	var errs []error
	if c.BaseURL == "" {
		errs = append(errs, errors.New("base_url is required"))
	}
	if c.PageSize < 1 || c.PageSize > 100 {
		errs = append(errs, fmt.Errorf("page_size must be in [1, 100], got %d", c.PageSize))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	return errors.Join(errs...)
}

// loadConfig resolves configuration with the precedence
// defaults < config file < PATENTCHAT_* env vars < flags.
func loadConfig(v *viper.Viper, flags *pflag.FlagSet, configFile string) (Config, error) {
	v.SetDefault("base_url", defaultBaseURL)
	v.SetDefault("token", "")
	v.SetDefault("page_size", 20)
	v.SetDefault("timeout", 15*time.Second)
	v.SetDefault("log_level", "warn")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	for key, flag := range map[string]string{
		"base_url":  "base-url",
		"token":     "token",
		"page_size": "page-size",
		"timeout":   "timeout",
		"log_level": "log-level",
	} {
		if f := flags.Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return Config{}, fmt.Errorf("bind flag %s: %w", flag, err)
			}
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file is optional, only error if explicitly specified
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	cfg := Config{
		BaseURL:  strings.TrimRight(v.GetString("base_url"), "/"),
		Token:    v.GetString("token"),
		PageSize: v.GetInt("page_size"),
		Timeout:  v.GetDuration("timeout"),
		LogLevel: v.GetString("log_level"),
		File:     v.ConfigFileUsed(),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// defaultConfigPath is where login --save writes when no file was read.
func defaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configName+".yaml"), nil
}

// saveToken persists token into the config file in use.
func saveToken(v *viper.Viper, cfg Config, token string) (string, error) {
	path := cfg.File
	if path == "" {
		var err error
		if path, err = defaultConfigPath(); err != nil {
			return "", err
		}
	}

	out := viper.New()
	out.SetConfigFile(path)
	out.SetConfigType("yaml")
	if _, err := os.Stat(path); err == nil {
		if err := out.ReadInConfig(); err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
	}
	out.Set("token", token)
	if !out.IsSet("base_url") {
		out.Set("base_url", v.GetString("base_url"))
	}
	if err := out.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
