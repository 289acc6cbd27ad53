package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config captures the runtime settings shared by the pipeline commands. None
// of it changes cleaning or parsing semantics; it shapes logging and the
// input hardening limits only.
type Config struct {
	App    AppConfig    `yaml:"app"`
	Limits LimitsConfig `yaml:"limits"`
}

// AppConfig contains generic application level settings.
type AppConfig struct {
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`
}

// LimitsConfig bounds untrusted input.
type LimitsConfig struct {
	MaxInputBytes   int `yaml:"max_input_bytes"`
	MaxNestingDepth int `yaml:"max_nesting_depth"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Env:      "production",
			LogLevel: "info",
		},
		Limits: LimitsConfig{
			MaxInputBytes:   100000,
			MaxNestingDepth: 64,
		},
	}
}

// Load builds a Config from defaults, an optional YAML file at path, and
// environment variables (a .env file in the working directory is honoured).
// Environment variables win over the file.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	ldr := &envLoader{}
	cfg.App.Env = ldr.getString("APP_ENV", cfg.App.Env)
	cfg.App.LogLevel = ldr.getString("LOG_LEVEL", cfg.App.LogLevel)
	cfg.Limits.MaxInputBytes = ldr.getInt("MAX_INPUT_BYTES", cfg.Limits.MaxInputBytes)
	cfg.Limits.MaxNestingDepth = ldr.getInt("MAX_NESTING_DEPTH", cfg.Limits.MaxNestingDepth)

	if cfg.Limits.MaxInputBytes <= 0 {
		ldr.addError("MAX_INPUT_BYTES must be positive")
	}
	if cfg.Limits.MaxNestingDepth <= 0 {
		ldr.addError("MAX_NESTING_DEPTH must be positive")
	}

	if err := ldr.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}
	return nil
}

type envLoader struct {
	errs []string
}

func (l *envLoader) validate() error {
	if len(l.errs) == 0 {
		return nil
	}
	return fmt.Errorf("config validation failed: %s", strings.Join(l.errs, "; "))
}

func (l *envLoader) getString(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		if val = strings.TrimSpace(val); val != "" {
			return val
		}
	}
	return def
}

func (l *envLoader) getInt(key string, def int) int {
	val, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	val = strings.TrimSpace(val)
	if val == "" {
		return def
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		l.addError(fmt.Sprintf("%s must be a valid integer", key))
		return def
	}
	return i
}

func (l *envLoader) addError(err string) {
	l.errs = append(l.errs, err)
}
