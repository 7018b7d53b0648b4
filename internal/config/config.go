package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is the default config file name.
const FileName = "txengine.yaml"

// Environment variables that override config values.
const (
	EnvLogLevel    = "TXENGINE_LOG_LEVEL"
	EnvLogEncoding = "TXENGINE_LOG_ENCODING"
	EnvRejectsPath = "TXENGINE_REJECTS_PATH"
	EnvInputDir    = "TXENGINE_INPUT_DIR"
)

// Config represents the top-level txengine.yaml configuration.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Input   InputConfig   `yaml:"input"`
	Rejects RejectsConfig `yaml:"rejects"`
}

// LoggingConfig controls diagnostic output on stderr.
type LoggingConfig struct {
	Level    string `yaml:"level"`    // debug, info, warn, error
	Encoding string `yaml:"encoding"` // console or json
}

// InputConfig locates transaction files.
type InputConfig struct {
	Dir string `yaml:"dir,omitempty"` // every *.csv in here is processed, in name order
}

// RejectsConfig controls the skipped-record log.
type RejectsConfig struct {
	Path string `yaml:"path,omitempty"` // empty disables the log
}

// Load reads a txengine.yaml file from disk. Fields missing from the file
// keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "warn",
			Encoding: "console",
		},
	}
}

// ApplyEnv overrides cfg from envFile (a dotenv file, skipped when empty) and
// then from the process environment, which wins.
func ApplyEnv(cfg *Config, envFile string) error {
	vars := make(map[string]string)
	if envFile != "" {
		fileVars, err := godotenv.Read(envFile)
		if err != nil {
			return fmt.Errorf("reading env file: %w", err)
		}
		vars = fileVars
	}
	for _, key := range []string{EnvLogLevel, EnvLogEncoding, EnvRejectsPath, EnvInputDir} {
		if v, ok := os.LookupEnv(key); ok {
			vars[key] = v
		}
	}

	if v := vars[EnvLogLevel]; v != "" {
		cfg.Logging.Level = v
	}
	if v := vars[EnvLogEncoding]; v != "" {
		cfg.Logging.Encoding = v
	}
	if v := vars[EnvRejectsPath]; v != "" {
		cfg.Rejects.Path = v
	}
	if v := vars[EnvInputDir]; v != "" {
		cfg.Input.Dir = v
	}
	return nil
}
