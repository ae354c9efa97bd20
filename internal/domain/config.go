// Copyright (c) 2025, the talentgate contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

import (
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"strings"
)

// Config represents the application configuration
type Config struct {
	Version       string
	Host          string `toml:"host" mapstructure:"host"`
	Port          int    `toml:"port" mapstructure:"port"`
	BaseURL       string `toml:"baseUrl" mapstructure:"baseUrl"`
	SessionSecret string `toml:"sessionSecret" mapstructure:"sessionSecret"`
	LogLevel      string `toml:"logLevel" mapstructure:"logLevel"`
	LogPath       string `toml:"logPath" mapstructure:"logPath"`
	LogMaxSize    int    `toml:"logMaxSize" mapstructure:"logMaxSize"`
	LogMaxBackups int    `toml:"logMaxBackups" mapstructure:"logMaxBackups"`
	DataDir       string `toml:"dataDir" mapstructure:"dataDir"`
	PprofEnabled  bool   `toml:"pprofEnabled" mapstructure:"pprofEnabled"`

	// Platform connection. PlatformURL is the base URL of the remote career
	// platform API; PlatformToken is the bearer token used for every request.
	PlatformURL   string `toml:"platformUrl" mapstructure:"platformUrl"`
	PlatformToken string `toml:"platformToken" mapstructure:"platformToken"`

	MetricsEnabled        bool   `toml:"metricsEnabled" mapstructure:"metricsEnabled"`
	MetricsHost           string `toml:"metricsHost" mapstructure:"metricsHost"`
	MetricsPort           int    `toml:"metricsPort" mapstructure:"metricsPort"`
	MetricsBasicAuthUsers string `toml:"metricsBasicAuthUsers" mapstructure:"metricsBasicAuthUsers"`

	// AuthDisabled disables all local authentication when both
	// TALENTGATE__AUTH_DISABLED=true and TALENTGATE__AUTH_DISABLED_ACKNOWLEDGED=true
	// are set. Intended for deployments behind a reverse proxy that handles
	// authentication. Use IsAuthDisabled() to check.
	AuthDisabled             bool     `toml:"authDisabled" mapstructure:"authDisabled"`
	AuthDisabledAcknowledged bool     `toml:"authDisabledAcknowledged" mapstructure:"authDisabledAcknowledged"`
	AuthDisabledAllowedCIDRs []string `toml:"authDisabledAllowedCIDRs" mapstructure:"authDisabledAllowedCIDRs"`
}

// IsAuthDisabled returns true only when both AuthDisabled and
// AuthDisabledAcknowledged are set, requiring the operator to explicitly
// acknowledge the risks of running without authentication.
func (c *Config) IsAuthDisabled() bool {
	return c.AuthDisabled && c.AuthDisabledAcknowledged
}

// ParseAuthDisabledAllowedCIDRs parses configured auth-disabled IP ranges.
// Entries can be either CIDR (for example 192.168.1.0/24) or a single IP
// (for example 192.168.1.10, which is treated as /32 or /128).
func (c *Config) ParseAuthDisabledAllowedCIDRs() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(c.AuthDisabledAllowedCIDRs))

	for _, raw := range c.AuthDisabledAllowedCIDRs {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}

		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid authDisabledAllowedCIDRs entry %q: %w", entry, err)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}

		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid authDisabledAllowedCIDRs entry %q: %w", entry, err)
		}
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}

	return prefixes, nil
}

// ValidateAuthDisabledConfig validates required settings for auth-disabled mode.
func (c *Config) ValidateAuthDisabledConfig() error {
	if !c.IsAuthDisabled() {
		return nil
	}

	prefixes, err := c.ParseAuthDisabledAllowedCIDRs()
	if err != nil {
		return err
	}
	if len(prefixes) == 0 {
		return errors.New("authDisabledAllowedCIDRs is required when authentication is disabled")
	}

	return nil
}

// ValidatePlatformConfig checks that the upstream platform connection is
// usable before the server starts.
func (c *Config) ValidatePlatformConfig() error {
	if c.PlatformURL == "" {
		return errors.New("platformUrl is required")
	}

	u, err := url.Parse(c.PlatformURL)
	if err != nil {
		return fmt.Errorf("invalid platformUrl %q: %w", c.PlatformURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("platformUrl must be http or https, got %q", c.PlatformURL)
	}

	if c.PlatformToken == "" {
		return errors.New("platformToken is required")
	}

	return nil
}
