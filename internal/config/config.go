package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Listen         string   `yaml:"listen"`
	DBPath         string   `yaml:"db_path"`
	UploadDir      string   `yaml:"upload_dir"`
	MaxUploadBytes int64    `yaml:"max_upload_bytes"`
	RetentionDays  int      `yaml:"retention_days"`
	LogLevel       string   `yaml:"log_level"`
	LogJSON        bool     `yaml:"log_json"`
	CSRF           bool     `yaml:"csrf"`
	Analysis       Analysis `yaml:"analysis"`
}

type Analysis struct {
	Workers      int           `yaml:"workers"`
	HTTPTimeout  time.Duration `yaml:"http_timeout"`
	FailFast     bool          `yaml:"fail_fast"`
	MaxLineBytes int           `yaml:"max_line_bytes"`
}

// Load reads the YAML file at path, then applies .env and LOGSTAT_*
// environment overrides and fills in defaults. A missing file is not an
// error; an empty path skips the file entirely.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			slog.Debug("config file not found, using defaults", "path", path)
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	c.Listen = getenv("LOGSTAT_LISTEN", c.Listen)
	c.DBPath = getenv("LOGSTAT_DB_PATH", c.DBPath)
	c.UploadDir = getenv("LOGSTAT_UPLOAD_DIR", c.UploadDir)
	c.LogLevel = getenv("LOGSTAT_LOG_LEVEL", c.LogLevel)

	if v := os.Getenv("LOGSTAT_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("LOGSTAT_WORKERS: %w", err)
		}
		c.Analysis.Workers = n
	}
	if v := os.Getenv("LOGSTAT_HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("LOGSTAT_HTTP_TIMEOUT: %w", err)
		}
		c.Analysis.HTTPTimeout = d
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.DBPath == "" {
		c.DBPath = "./data/logstat.db"
	}
	if c.UploadDir == "" {
		c.UploadDir = "./data/uploads"
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = 100 << 20
	}
	if c.RetentionDays <= 0 {
		c.RetentionDays = 30
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Analysis.Workers <= 0 {
		c.Analysis.Workers = runtime.NumCPU()
	}
	if c.Analysis.HTTPTimeout <= 0 {
		c.Analysis.HTTPTimeout = 30 * time.Second
	}
	if c.Analysis.MaxLineBytes <= 0 {
		c.Analysis.MaxLineBytes = 1 << 20
	}
}

// Retention is how long resources and reports are kept.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
