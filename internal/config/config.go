package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig      `json:"server"`
	Redis       RedisConfig       `json:"redis"`
	Store       StoreConfig       `json:"store"`
	Log         LogConfig         `json:"log"`
	Security    SecurityConfig    `json:"security"`
	Browser     BrowserConfig     `json:"browser"`
	Portal      PortalConfig      `json:"portal"`
	Diagnostics DiagnosticsConfig `json:"diagnostics"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port         int    `json:"port"`
	Environment  string `json:"environment"`
	ReadTimeout  int    `json:"read_timeout"`
	WriteTimeout int    `json:"write_timeout"`
	IdleTimeout  int    `json:"idle_timeout"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	Password     string        `json:"password"`
	DB           int           `json:"db"`
	PoolSize     int           `json:"pool_size"`
	DialTimeout  time.Duration `json:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

// StoreConfig selects where verified records are kept
type StoreConfig struct {
	// Backend is "sqlite" or "redis"
	Backend    string        `json:"backend"`
	SQLitePath string        `json:"sqlite_path"`
	TTL        time.Duration `json:"ttl"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// SecurityConfig holds security configuration
type SecurityConfig struct {
	RateLimit RateLimitConfig `json:"rate_limit"`
	CORS      CORSConfig      `json:"cors"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int           `json:"requests_per_minute"`
	BurstSize         int           `json:"burst_size"`
	CleanupInterval   time.Duration `json:"cleanup_interval"`
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
}

// BrowserConfig holds browser automation configuration
type BrowserConfig struct {
	// Headless selects the offscreen rendering mode and with it the
	// handoff CAPTCHA strategy. A visible window uses the interactive one.
	Headless          bool          `json:"headless"`
	ExecPath          string        `json:"exec_path"`
	CookieFile        string        `json:"cookie_file"`
	ViewportWidth     int           `json:"viewport_width"`
	ViewportHeight    int           `json:"viewport_height"`
	UserAgent         string        `json:"user_agent"`
	StartupTimeout    time.Duration `json:"startup_timeout"`
	KeepAliveInterval time.Duration `json:"keep_alive_interval"`
}

// PortalConfig describes the lookup portal and the timing the automation uses against it
type PortalConfig struct {
	URL                string        `json:"url"`
	PrimaryPattern     string        `json:"primary_pattern"`
	SecondaryPattern   string        `json:"secondary_pattern"`
	NavigationTimeout  time.Duration `json:"navigation_timeout"`
	SettleDelay        time.Duration `json:"settle_delay"`
	InputTimeout       time.Duration `json:"input_timeout"`
	PostFillDelay      time.Duration `json:"post_fill_delay"`
	CaptchaCheckDelay  time.Duration `json:"captcha_check_delay"`
	PayloadTimeout     time.Duration `json:"payload_timeout"`
	PayloadPoll        time.Duration `json:"payload_poll"`
	CaptchaPoll        time.Duration `json:"captcha_poll"`
	CaptchaWaitTimeout time.Duration `json:"captcha_wait_timeout"`
	MaxAttempts        int           `json:"max_attempts"`
	RetryDelay         time.Duration `json:"retry_delay"`
}

// DiagnosticsConfig holds where failure artifacts are written
type DiagnosticsConfig struct {
	Dir      string `json:"dir"`
	DumpFile string `json:"dump_file"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnvAsInt("PORT", 3000),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 30),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 330),
			IdleTimeout:  getEnvAsInt("IDLE_TIMEOUT", 60),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvAsInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			DialTimeout:  time.Duration(getEnvAsInt("REDIS_DIAL_TIMEOUT", 5)) * time.Second,
			ReadTimeout:  time.Duration(getEnvAsInt("REDIS_READ_TIMEOUT", 3)) * time.Second,
			WriteTimeout: time.Duration(getEnvAsInt("REDIS_WRITE_TIMEOUT", 3)) * time.Second,
		},
		Store: StoreConfig{
			Backend:    strings.ToLower(getEnv("STORE_BACKEND", "sqlite")),
			SQLitePath: getEnv("STORE_SQLITE_PATH", "gst_cache.db"),
			TTL:        getEnvAsDuration("STORE_TTL", 0),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Security: SecurityConfig{
			RateLimit: RateLimitConfig{
				RequestsPerMinute: getEnvAsInt("RATE_LIMIT_RPM", 30),
				BurstSize:         getEnvAsInt("RATE_LIMIT_BURST", 5),
				CleanupInterval:   time.Duration(getEnvAsInt("RATE_LIMIT_CLEANUP", 60)) * time.Second,
			},
			CORS: CORSConfig{
				AllowedOrigins:   getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
				AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
				AllowedHeaders:   []string{"*"},
				AllowCredentials: false,
			},
		},
		Browser: BrowserConfig{
			Headless:          getEnvAsBool("BROWSER_HEADLESS", true),
			ExecPath:          getEnv("BROWSER_EXEC_PATH", ""),
			CookieFile:        getEnv("BROWSER_COOKIE_FILE", "browser-cookies.json"),
			ViewportWidth:     getEnvAsInt("BROWSER_VIEWPORT_WIDTH", 1280),
			ViewportHeight:    getEnvAsInt("BROWSER_VIEWPORT_HEIGHT", 720),
			UserAgent:         getEnv("BROWSER_USER_AGENT", ""),
			StartupTimeout:    getEnvAsDuration("BROWSER_STARTUP_TIMEOUT", 30*time.Second),
			KeepAliveInterval: getEnvAsDuration("BROWSER_KEEPALIVE_INTERVAL", 60*time.Second),
		},
		Portal: PortalConfig{
			URL:                getEnv("GST_PORTAL_URL", "https://services.gst.gov.in/services/searchtp"),
			PrimaryPattern:     getEnv("GST_PRIMARY_PATTERN", "/api/search/taxpayerDetails"),
			SecondaryPattern:   getEnv("GST_SECONDARY_PATTERN", "/api/search/goodservice"),
			NavigationTimeout:  getEnvAsDuration("GST_NAVIGATION_TIMEOUT", 60*time.Second),
			SettleDelay:        getEnvAsDuration("GST_SETTLE_DELAY", 5*time.Second),
			InputTimeout:       getEnvAsDuration("GST_INPUT_TIMEOUT", 10*time.Second),
			PostFillDelay:      getEnvAsDuration("GST_POST_FILL_DELAY", 500*time.Millisecond),
			CaptchaCheckDelay:  getEnvAsDuration("GST_CAPTCHA_CHECK_DELAY", 2*time.Second),
			PayloadTimeout:     getEnvAsDuration("GST_PAYLOAD_TIMEOUT", 15*time.Second),
			PayloadPoll:        getEnvAsDuration("GST_PAYLOAD_POLL", 500*time.Millisecond),
			CaptchaPoll:        getEnvAsDuration("GST_CAPTCHA_POLL", 2*time.Second),
			CaptchaWaitTimeout: getEnvAsDuration("GST_CAPTCHA_WAIT_TIMEOUT", 300*time.Second),
			MaxAttempts:        getEnvAsInt("GST_MAX_ATTEMPTS", 3),
			RetryDelay:         getEnvAsDuration("GST_RETRY_DELAY", 3*time.Second),
		},
		Diagnostics: DiagnosticsConfig{
			Dir:      getEnv("DIAGNOSTICS_DIR", "."),
			DumpFile: getEnv("DIAGNOSTICS_DUMP_FILE", "debug-page.html"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that would make the service unusable
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "sqlite", "redis":
	default:
		return fmt.Errorf("STORE_BACKEND must be sqlite or redis, got %q", c.Store.Backend)
	}
	if c.Portal.URL == "" {
		return fmt.Errorf("GST_PORTAL_URL is required")
	}
	if c.Portal.MaxAttempts < 1 {
		return fmt.Errorf("GST_MAX_ATTEMPTS must be at least 1")
	}
	if c.Portal.PrimaryPattern == "" {
		return fmt.Errorf("GST_PRIMARY_PATTERN is required")
	}
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		return fmt.Errorf("browser viewport must be positive")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("15s") or plain seconds ("15")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
