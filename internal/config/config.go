// Package config provides daemon configuration management: a TOML file is
// loaded first, then environment variables override its fields, then a
// Validate pass clamps out-of-range values and logs a warning rather than
// failing startup.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"
)

// Configuration upper bounds to prevent resource exhaustion.
const (
	maxMaxBrowsers        = 500
	maxMaxPagesPerBrowser = 200
	maxSessionTimeout     = 24 * time.Hour
	maxDefaultTimeout     = 10 * time.Minute
	maxRateLimitRPS       = 2000
)

// Config holds every recognized cdpd daemon option.
type Config struct {
	// Server settings: gRPC bind address.
	Host string `toml:"host"`
	Port int    `toml:"port"`

	// Advisory only; cdpd never launches Chromium itself.
	ChromePath    string `toml:"chrome_path"`
	ChromeDataDir string `toml:"chrome_data_dir"`

	// CdpEndpoint is the WebSocket base URL for the external, already
	// running Chromium debug port cdpd dials.
	CdpEndpoint string `toml:"cdp_endpoint"`

	// Soft limits: core exposes current counts and enforces via acceptance
	// when set.
	MaxBrowsers        int `toml:"max_browsers"`
	MaxPagesPerBrowser int `toml:"max_pages_per_browser"`

	// SessionTimeoutSeconds/DefaultTimeoutMillis are the raw configured
	// values, in seconds and milliseconds respectively.
	SessionTimeoutSeconds int           `toml:"session_timeout"`
	DefaultTimeoutMillis  int           `toml:"default_timeout"`
	SessionTimeout        time.Duration `toml:"-"`
	DefaultTimeout        time.Duration `toml:"-"`

	StealthEnabled bool `toml:"stealth_enabled"`

	// StealthPresetFile optionally names a YAML file of operator-curated
	// user-agent/locale pools that override the generator's built-ins;
	// the file is hot-reloaded on change.
	StealthPresetFile string `toml:"stealth_preset_file"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"` // "console" or "json"

	// Session Manager health-check loop.
	HealthCheckIntervalSeconds int           `toml:"health_check_interval_seconds"`
	HealthCheckMaxAgeSeconds   int           `toml:"health_check_max_age_seconds"`
	HealthCheckInterval        time.Duration `toml:"-"`
	HealthCheckMaxAge          time.Duration `toml:"-"`

	// Rate limiting applied per gRPC peer address, masked to its /24 (IPv6:
	// /48) so clients sharing that prefix share one bucket.
	RateLimitEnabled bool `toml:"rate_limit_enabled"`
	RateLimitRPS     int  `toml:"rate_limit_rps"`
}

// Defaults returns a Config populated with built-in defaults, before any
// TOML file or environment overrides are applied.
func Defaults() *Config {
	return &Config{
		Host:                       "127.0.0.1",
		Port:                       7070,
		ChromePath:                 "",
		ChromeDataDir:              "",
		CdpEndpoint:                "http://127.0.0.1:9222",
		MaxBrowsers:                10,
		MaxPagesPerBrowser:         20,
		SessionTimeoutSeconds:      1800,
		DefaultTimeoutMillis:       30000,
		StealthEnabled:             true,
		LogLevel:                   "info",
		LogFormat:                  "console",
		HealthCheckIntervalSeconds: 60,
		HealthCheckMaxAgeSeconds:   1800,
		RateLimitEnabled:           true,
		RateLimitRPS:               50,
	}
}

// Load builds a Config from built-in defaults, a TOML file named by
// CDPD_CONFIG_FILE (if set and readable), and then environment variables,
// in that order of increasing priority, so env always wins.
func Load() *Config {
	cfg := Defaults()

	if path := os.Getenv("CDPD_CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			log.Warn().Str("path", path).Err(err).Msg("config: failed to load TOML config file, using defaults plus env")
		}
	}

	cfg.Host = getEnvString("CDPD_HOST", cfg.Host)
	cfg.Port = getEnvInt("CDPD_PORT", cfg.Port)
	cfg.ChromePath = getEnvString("CDPD_CHROME_PATH", cfg.ChromePath)
	cfg.ChromeDataDir = getEnvString("CDPD_CHROME_DATA_DIR", cfg.ChromeDataDir)
	cfg.CdpEndpoint = getEnvString("CDPD_CDP_ENDPOINT", cfg.CdpEndpoint)
	cfg.MaxBrowsers = getEnvInt("CDPD_MAX_BROWSERS", cfg.MaxBrowsers)
	cfg.MaxPagesPerBrowser = getEnvInt("CDPD_MAX_PAGES_PER_BROWSER", cfg.MaxPagesPerBrowser)
	cfg.SessionTimeoutSeconds = getEnvInt("CDPD_SESSION_TIMEOUT", cfg.SessionTimeoutSeconds)
	cfg.DefaultTimeoutMillis = getEnvInt("CDPD_DEFAULT_TIMEOUT", cfg.DefaultTimeoutMillis)
	cfg.StealthEnabled = getEnvBool("CDPD_STEALTH_ENABLED", cfg.StealthEnabled)
	cfg.StealthPresetFile = getEnvString("CDPD_STEALTH_PRESET_FILE", cfg.StealthPresetFile)
	cfg.LogLevel = getEnvString("CDPD_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnvString("CDPD_LOG_FORMAT", cfg.LogFormat)
	cfg.HealthCheckIntervalSeconds = getEnvInt("CDPD_HEALTH_CHECK_INTERVAL_SECONDS", cfg.HealthCheckIntervalSeconds)
	cfg.HealthCheckMaxAgeSeconds = getEnvInt("CDPD_HEALTH_CHECK_MAX_AGE_SECONDS", cfg.HealthCheckMaxAgeSeconds)
	cfg.RateLimitEnabled = getEnvBool("CDPD_RATE_LIMIT_ENABLED", cfg.RateLimitEnabled)
	cfg.RateLimitRPS = getEnvInt("CDPD_RATE_LIMIT_RPS", cfg.RateLimitRPS)

	cfg.deriveDurations()
	return cfg
}

func (c *Config) deriveDurations() {
	c.SessionTimeout = time.Duration(c.SessionTimeoutSeconds) * time.Second
	c.DefaultTimeout = time.Duration(c.DefaultTimeoutMillis) * time.Millisecond
	c.HealthCheckInterval = time.Duration(c.HealthCheckIntervalSeconds) * time.Second
	c.HealthCheckMaxAge = time.Duration(c.HealthCheckMaxAgeSeconds) * time.Second
}

// Validate clamps out-of-range values to sane bounds and logs a warning for
// each correction, rather than failing startup. Re-derives the Duration
// fields afterward so callers only need to read SessionTimeout/
// DefaultTimeout/HealthCheckInterval/HealthCheckMaxAge.
func (c *Config) Validate() {
	if c.Port < 0 || c.Port > 65535 {
		log.Warn().Int("port", c.Port).Msg("config: invalid port, using default 7070")
		c.Port = 7070
	}

	if c.ChromePath != "" && strings.Contains(c.ChromePath, "..") {
		log.Error().Str("path", c.ChromePath).Msg("config: chrome_path contains a path traversal sequence (..), ignoring")
		c.ChromePath = ""
	}
	if c.ChromeDataDir != "" && strings.Contains(c.ChromeDataDir, "..") {
		log.Error().Str("path", c.ChromeDataDir).Msg("config: chrome_data_dir contains a path traversal sequence (..), ignoring")
		c.ChromeDataDir = ""
	}

	if c.MaxBrowsers < 0 {
		log.Warn().Int("max_browsers", c.MaxBrowsers).Msg("config: negative max_browsers, treating as unlimited (0)")
		c.MaxBrowsers = 0
	} else if c.MaxBrowsers > maxMaxBrowsers {
		log.Warn().Int("max_browsers", c.MaxBrowsers).Int("max", maxMaxBrowsers).Msg("config: max_browsers too large, capping")
		c.MaxBrowsers = maxMaxBrowsers
	}

	if c.MaxPagesPerBrowser < 0 {
		log.Warn().Int("max_pages_per_browser", c.MaxPagesPerBrowser).Msg("config: negative max_pages_per_browser, treating as unlimited (0)")
		c.MaxPagesPerBrowser = 0
	} else if c.MaxPagesPerBrowser > maxMaxPagesPerBrowser {
		log.Warn().Int("max_pages_per_browser", c.MaxPagesPerBrowser).Int("max", maxMaxPagesPerBrowser).Msg("config: max_pages_per_browser too large, capping")
		c.MaxPagesPerBrowser = maxMaxPagesPerBrowser
	}

	const minSessionTimeout = time.Second
	if c.SessionTimeoutSeconds <= 0 {
		log.Warn().Int("session_timeout", c.SessionTimeoutSeconds).Msg("config: invalid session_timeout, using 1800s")
		c.SessionTimeoutSeconds = 1800
	}
	sessionTimeout := time.Duration(c.SessionTimeoutSeconds) * time.Second
	if sessionTimeout < minSessionTimeout {
		sessionTimeout = minSessionTimeout
	} else if sessionTimeout > maxSessionTimeout {
		log.Warn().Dur("session_timeout", sessionTimeout).Dur("max", maxSessionTimeout).Msg("config: session_timeout too long, capping")
		sessionTimeout = maxSessionTimeout
	}
	c.SessionTimeoutSeconds = int(sessionTimeout / time.Second)

	if c.DefaultTimeoutMillis <= 0 {
		log.Warn().Int("default_timeout", c.DefaultTimeoutMillis).Msg("config: invalid default_timeout, using 30000ms")
		c.DefaultTimeoutMillis = 30000
	}
	defaultTimeout := time.Duration(c.DefaultTimeoutMillis) * time.Millisecond
	if defaultTimeout > maxDefaultTimeout {
		log.Warn().Dur("default_timeout", defaultTimeout).Dur("max", maxDefaultTimeout).Msg("config: default_timeout too long, capping")
		defaultTimeout = maxDefaultTimeout
	}
	c.DefaultTimeoutMillis = int(defaultTimeout / time.Millisecond)

	if c.HealthCheckIntervalSeconds < 1 {
		log.Warn().Int("health_check_interval_seconds", c.HealthCheckIntervalSeconds).Msg("config: health_check_interval_seconds too short, using 60")
		c.HealthCheckIntervalSeconds = 60
	}
	if c.HealthCheckMaxAgeSeconds < c.HealthCheckIntervalSeconds {
		log.Warn().
			Int("health_check_max_age_seconds", c.HealthCheckMaxAgeSeconds).
			Int("health_check_interval_seconds", c.HealthCheckIntervalSeconds).
			Msg("config: health_check_max_age_seconds shorter than the interval, adjusting")
		c.HealthCheckMaxAgeSeconds = c.HealthCheckIntervalSeconds * 10
	}

	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true, "fatal": true}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		log.Warn().Str("log_level", c.LogLevel).Msg("config: invalid log level, using 'info'")
		c.LogLevel = "info"
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		log.Warn().Str("log_format", c.LogFormat).Msg("config: invalid log format, using 'console'")
		c.LogFormat = "console"
	}

	if c.RateLimitEnabled {
		if c.RateLimitRPS < 1 {
			log.Warn().Int("rate_limit_rps", c.RateLimitRPS).Msg("config: invalid rate_limit_rps, using 50")
			c.RateLimitRPS = 50
		} else if c.RateLimitRPS > maxRateLimitRPS {
			log.Warn().Int("rate_limit_rps", c.RateLimitRPS).Int("max", maxRateLimitRPS).Msg("config: rate_limit_rps too high, capping")
			c.RateLimitRPS = maxRateLimitRPS
		}
	}

	c.deriveDurations()
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		intValue, err := strconv.ParseInt(value, 10, 32)
		if err == nil {
			return int(intValue)
		}
		log.Warn().Str("key", key).Str("value", value).Err(err).Int("default", defaultValue).Msg("config: invalid integer in environment variable, using default")
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		boolValue, err := strconv.ParseBool(value)
		if err == nil {
			return boolValue
		}
		log.Warn().Str("key", key).Str("value", value).Err(err).Bool("default", defaultValue).Msg("config: invalid boolean in environment variable, using default")
	}
	return defaultValue
}
