package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds the application settings.
type Config struct {
	EndpointsFile   string
	CredentialsFile string
	RequestTimeout  time.Duration
	RefreshInterval time.Duration // zero disables background refresh
	LogLevel        string
	LogFormat       string
	LogFile         string
	MetricsAddr     string
}

// EnvConfigPath names the environment variable that overrides the config path.
const EnvConfigPath = "REMEDIT_CONFIG"

const (
	defaultConfigPath      = "~/.config/remedit/config.toml"
	defaultEndpointsFile   = "~/.config/remedit/endpoints.toml"
	defaultCredentialsFile = "~/.config/remedit/credentials.json"
	defaultLogFile         = "~/.local/state/remedit/remedit.log"
	defaultRequestTimeout  = 10 * time.Second
	defaultLogLevel        = "info"
	defaultLogFormat       = "json"
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		EndpointsFile:   mustExpand(defaultEndpointsFile),
		CredentialsFile: mustExpand(defaultCredentialsFile),
		RequestTimeout:  defaultRequestTimeout,
		LogLevel:        defaultLogLevel,
		LogFormat:       defaultLogFormat,
		LogFile:         mustExpand(defaultLogFile),
	}
}

// Load locates and parses the config, falling back to defaults when missing.
// An empty path consults REMEDIT_CONFIG before the default location.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		EndpointsFile   string `toml:"endpoints_file"`
		CredentialsFile string `toml:"credentials_file"`
		RequestTimeout  string `toml:"request_timeout"`
		RefreshInterval string `toml:"refresh_interval"`
		LogLevel        string `toml:"log_level"`
		LogFormat       string `toml:"log_format"`
		LogFile         string `toml:"log_file"`
		MetricsAddr     string `toml:"metrics_addr"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.EndpointsFile); v != "" {
		cfg.EndpointsFile = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.CredentialsFile); v != "" {
		cfg.CredentialsFile = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		cfg.LogFile = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.RequestTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse config: request_timeout: %w", err)
		}
		if d <= 0 {
			return Config{}, fmt.Errorf("parse config: request_timeout must be positive, got %s", d)
		}
		cfg.RequestTimeout = d
	}
	if v := strings.TrimSpace(raw.RefreshInterval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse config: refresh_interval: %w", err)
		}
		if d < 0 {
			return Config{}, fmt.Errorf("parse config: refresh_interval cannot be negative, got %s", d)
		}
		cfg.RefreshInterval = d
	}
	if v := strings.ToLower(strings.TrimSpace(raw.LogLevel)); v != "" {
		cfg.LogLevel = v
	}
	switch v := strings.ToLower(strings.TrimSpace(raw.LogFormat)); v {
	case "":
	case "json", "console":
		cfg.LogFormat = v
	default:
		return Config{}, fmt.Errorf("parse config: log_format must be json or console, got %q", raw.LogFormat)
	}
	cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)

	return cfg, nil
}

// LogDir returns the directory holding the log file.
func (c Config) LogDir() string {
	if strings.TrimSpace(c.LogFile) == "" {
		return filepath.Dir(mustExpand(defaultLogFile))
	}
	return filepath.Dir(c.LogFile)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) != "" {
		return expandPath(path)
	}
	if env := strings.TrimSpace(os.Getenv(EnvConfigPath)); env != "" {
		return expandPath(env)
	}
	return expandPath(defaultConfigPath)
}

// ExpandPath expands a leading ~ and returns an absolute path.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
