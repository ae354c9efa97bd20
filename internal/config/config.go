// Copyright (c) 2025, the talentgate contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package config loads and watches the talentgate configuration file.
// Precedence is environment variables over the config file over defaults.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/talentgate/talentgate/internal/domain"
)

const configFileName = "config.toml"

// envBindings maps viper keys to their TALENTGATE__ environment variables.
var envBindings = map[string]string{
	"host":                     "TALENTGATE__HOST",
	"port":                     "TALENTGATE__PORT",
	"baseUrl":                  "TALENTGATE__BASE_URL",
	"sessionSecret":            "TALENTGATE__SESSION_SECRET",
	"logLevel":                 "TALENTGATE__LOG_LEVEL",
	"logPath":                  "TALENTGATE__LOG_PATH",
	"logMaxSize":               "TALENTGATE__LOG_MAX_SIZE",
	"logMaxBackups":            "TALENTGATE__LOG_MAX_BACKUPS",
	"dataDir":                  "TALENTGATE__DATA_DIR",
	"databasePath":             "TALENTGATE__DATABASE_PATH",
	"pprofEnabled":             "TALENTGATE__PPROF_ENABLED",
	"platformUrl":              "TALENTGATE__PLATFORM_URL",
	"platformToken":            "TALENTGATE__PLATFORM_TOKEN",
	"metricsEnabled":           "TALENTGATE__METRICS_ENABLED",
	"metricsHost":              "TALENTGATE__METRICS_HOST",
	"metricsPort":              "TALENTGATE__METRICS_PORT",
	"metricsBasicAuthUsers":    "TALENTGATE__METRICS_BASIC_AUTH_USERS",
	"authDisabled":             "TALENTGATE__AUTH_DISABLED",
	"authDisabledAcknowledged": "TALENTGATE__AUTH_DISABLED_ACKNOWLEDGED",
}

// AppConfig wraps the runtime configuration together with the viper
// instance that loaded it.
type AppConfig struct {
	Config *domain.Config

	viper      *viper.Viper
	configPath string

	mu sync.RWMutex
}

// New loads configuration from the given path. When path is empty the
// default config directory is used, and a commented config.toml is
// generated on first run.
func New(path string) (*AppConfig, error) {
	c := &AppConfig{
		viper: viper.New(),
	}

	c.defaults()

	if err := c.load(path); err != nil {
		return nil, err
	}

	if err := c.unmarshal(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *AppConfig) defaults() {
	c.viper.SetDefault("host", "localhost")
	c.viper.SetDefault("port", 7575)
	c.viper.SetDefault("baseUrl", "/")
	c.viper.SetDefault("logLevel", "INFO")
	c.viper.SetDefault("logPath", "")
	c.viper.SetDefault("logMaxSize", 50)
	c.viper.SetDefault("logMaxBackups", 3)
	c.viper.SetDefault("pprofEnabled", false)
	c.viper.SetDefault("platformUrl", "")
	c.viper.SetDefault("platformToken", "")
	c.viper.SetDefault("metricsEnabled", false)
	c.viper.SetDefault("metricsHost", "127.0.0.1")
	c.viper.SetDefault("metricsPort", 9074)

	for key, env := range envBindings {
		_ = c.viper.BindEnv(key, env)
	}
}

func (c *AppConfig) load(path string) error {
	c.viper.SetConfigType("toml")

	if path != "" {
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			path = filepath.Join(path, configFileName)
		}
	} else {
		path = filepath.Join(getDefaultConfigDir(), configFileName)
	}

	c.configPath = path

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := c.writeDefaultConfig(path); err != nil {
			return err
		}
	}

	c.viper.SetConfigFile(path)

	if err := c.viper.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "failed to read config file %s", path)
	}

	return nil
}

func (c *AppConfig) unmarshal() error {
	cfg := &domain.Config{}
	if err := c.viper.Unmarshal(cfg); err != nil {
		return errors.Wrap(err, "failed to unmarshal config")
	}

	if cfg.SessionSecret == "" {
		secret, err := generateSecret()
		if err != nil {
			return err
		}
		cfg.SessionSecret = secret
	}

	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Dir(c.configPath)
	}

	c.mu.Lock()
	c.Config = cfg
	c.mu.Unlock()

	return nil
}

// GetConfig returns the current configuration snapshot.
func (c *AppConfig) GetConfig() *domain.Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Config
}

// GetConfigPath returns the path of the loaded config file.
func (c *AppConfig) GetConfigPath() string {
	return c.configPath
}

// GetDatabasePath returns the SQLite database location. Defaults to
// talentgate.db next to the config file unless overridden.
func (c *AppConfig) GetDatabasePath() string {
	if p := c.viper.GetString("databasePath"); p != "" {
		return p
	}
	return filepath.Join(filepath.Dir(c.configPath), "talentgate.db")
}

// Watch reloads dynamic settings when the config file changes on disk.
// Only the log level is applied live; everything else needs a restart.
func (c *AppConfig) Watch(onChange func(*domain.Config)) {
	c.viper.OnConfigChange(func(e fsnotify.Event) {
		log.Debug().Str("file", e.Name).Str("op", e.Op.String()).Msg("config file changed")

		if err := c.unmarshal(); err != nil {
			log.Error().Err(err).Msg("failed to reload config")
			return
		}

		if onChange != nil {
			onChange(c.GetConfig())
		}
	})
	c.viper.WatchConfig()
}

func (c *AppConfig) writeDefaultConfig(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	secret, err := generateSecret()
	if err != nil {
		return err
	}

	host := "localhost"
	if isRunningInContainer() {
		host = "0.0.0.0"
	}

	content := fmt.Sprintf(defaultConfigTemplate, host, secret)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return errors.Wrapf(err, "failed to write config file %s", path)
	}

	log.Info().Str("path", path).Msg("generated default config file")
	return nil
}

// getDefaultConfigDir resolves the config directory, honoring
// XDG_CONFIG_HOME. A bare /config (the container convention) is used
// directly instead of nesting a talentgate subdirectory.
func getDefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		if xdg == "/config" {
			return xdg
		}
		return filepath.Join(xdg, "talentgate")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "talentgate")
}

func isRunningInContainer() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	if data, err := os.ReadFile("/proc/1/cgroup"); err == nil {
		return strings.Contains(string(data), "docker") || strings.Contains(string(data), "kubepods")
	}
	return false
}

func generateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "failed to generate session secret")
	}
	return hex.EncodeToString(buf), nil
}

const defaultConfigTemplate = `# config.toml - Auto-generated on first run

# Hostname / IP
# Default: "localhost"
host = "%s"

# Port
# Default: 7575
port = 7575

# Base URL
# Set custom baseUrl, e.g. /talentgate/, to serve behind a reverse proxy.
# Default: "/"
#baseUrl = "/"

# Session secret
sessionSecret = "%s"

# Platform API
# Base URL and bearer token of the remote career platform.
platformUrl = ""
platformToken = ""

# Log file path
# If not defined, logs to stdout
# Optional
#logPath = "log/talentgate.log"

# Log rotation
# Maximum log file size in megabytes before rotation
# Default: 50
#logMaxSize = 50

# Number of rotated log files to retain (0 keeps all)
# Default: 3
#logMaxBackups = 3

# Log level
# Default: "INFO"
# Options: "ERROR", "DEBUG", "INFO", "WARN", "TRACE"
logLevel = "INFO"

# Database path
# If not defined, the database is created next to this config file.
# Optional
#databasePath = ""

# Metrics
# Expose Prometheus metrics on a separate listener.
# Default: false
#metricsEnabled = false
#metricsHost = "127.0.0.1"
#metricsPort = 9074

# Metrics basic auth
# Comma-separated user:password pairs. Empty disables auth.
#metricsBasicAuthUsers = ""
`
