// Package config loads console settings from a YAML profile and the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration values.
type Config struct {
	// Backend
	ServerURL     string
	APIKey        string
	ClientTimeout time.Duration

	// Resource fetching
	PollInterval time.Duration
	CacheSize    int

	// Logging
	LogFile  string
	LogLevel slog.Level

	// Path of the profile file that was read, empty if none.
	ProfilePath string
}

// Profile is the on-disk YAML profile. Every field is optional.
type Profile struct {
	ServerURL     string `yaml:"server_url"`
	APIKey        string `yaml:"api_key"`
	ClientTimeout string `yaml:"client_timeout"`
	PollInterval  string `yaml:"poll_interval"`
	CacheSize     int    `yaml:"cache_size"`
	LogFile       string `yaml:"log_file"`
	LogLevel      string `yaml:"log_level"`
}

// Defaults used when neither the profile nor the environment set a value.
const (
	DefaultServerURL     = "http://localhost:8080"
	DefaultPollInterval  = 5 * time.Second
	DefaultClientTimeout = 30 * time.Second
	DefaultCacheSize     = 256
	DefaultLogFile       = "/tmp/onyxadmin.log"
)

// Load reads the profile file (if any) and applies environment overrides.
// A missing profile file is not an error; a malformed one is.
func Load() (Config, error) {
	path := getEnv("ONYX_CONFIG", defaultProfilePath())

	var p Profile
	read := ""
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &p); err != nil {
				return Config{}, fmt.Errorf("parse profile %s: %w", path, err)
			}
			read = path
		case os.IsNotExist(err):
		default:
			return Config{}, fmt.Errorf("read profile %s: %w", path, err)
		}
	}

	cfg := FromProfile(p)
	cfg.ProfilePath = read
	applyEnv(&cfg)
	return cfg, nil
}

// FromProfile builds a config from profile values and defaults only.
func FromProfile(p Profile) Config {
	return Config{
		ServerURL:     strings.TrimRight(orDefault(p.ServerURL, DefaultServerURL), "/"),
		APIKey:        p.APIKey,
		ClientTimeout: parseDuration(p.ClientTimeout, DefaultClientTimeout),
		PollInterval:  parseDuration(p.PollInterval, DefaultPollInterval),
		CacheSize:     orDefaultInt(p.CacheSize, DefaultCacheSize),
		LogFile:       orDefault(p.LogFile, DefaultLogFile),
		LogLevel:      parseLogLevel(orDefault(p.LogLevel, "INFO")),
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ONYX_SERVER_URL"); v != "" {
		cfg.ServerURL = strings.TrimRight(v, "/")
	}
	cfg.APIKey = getEnv("ONYX_API_KEY", cfg.APIKey)
	cfg.ClientTimeout = parseDuration(os.Getenv("ONYX_CLIENT_TIMEOUT"), cfg.ClientTimeout)
	cfg.PollInterval = parseDuration(os.Getenv("ONYX_POLL_INTERVAL"), cfg.PollInterval)
	if v := os.Getenv("ONYX_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheSize = n
		}
	}
	cfg.LogFile = getEnv("ONYX_LOG_FILE", cfg.LogFile)
	if v := os.Getenv("ONYX_LOG_LEVEL"); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}
}

func defaultProfilePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "onyxadmin", "config.yaml")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// parseDuration accepts Go durations ("5s") and bare milliseconds ("5000").
func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if ms, err := strconv.Atoi(s); err == nil && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
