package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultTargetURL is the Crowdin project page that lists per-language progress.
const DefaultTargetURL = "https://bluesky.crowdin.com/bluesky-social"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Scraper   ScraperConfig
	Webhook   WebhookConfig
	Monitor   MonitorConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP trigger server (serve mode only).
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: true

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is an optional proxy URL for the browser and the HTTP fetcher.
	Proxy string

	// ViewportWidth and ViewportHeight fix the window and viewport size.
	ViewportWidth  int // default: 1920
	ViewportHeight int // default: 1080

	// Stealth injects anti-bot-detection evasions before navigation.
	Stealth bool // default: false
}

// Fetch modes.
const (
	FetchModeBrowser = "browser"
	FetchModeHTTP    = "http"
)

// ScraperConfig controls how the dashboard is read.
type ScraperConfig struct {
	// TargetURL is the page to inspect.
	TargetURL string

	// FetchMode is "browser" (render with Chromium) or "http" (static HTML).
	FetchMode string // default: "browser"

	// NavigationTimeout is the max time for page.Navigate alone.
	NavigationTimeout time.Duration // default: 30s

	// SettleDelay is an unconditional pause after navigation.
	SettleDelay time.Duration // default: 0

	// ReadyTimeout bounds the readiness poll on the first locator.
	ReadyTimeout time.Duration // default: 20s

	// WaitTimeout is the bounded wait for locators marked wait: true.
	WaitTimeout time.Duration // default: 20s

	// BlockedResourceTypes lists resource types the browser never loads.
	// default: ["Image", "Font", "Media"]
	BlockedResourceTypes []string

	// AcceptLanguage is sent as an extra request header.
	AcceptLanguage string // default: "en-US,en;q=0.9"

	// SelectorsFile optionally points at a YAML selector set.
	SelectorsFile string
}

// WebhookConfig controls alert delivery.
type WebhookConfig struct {
	// URL is the Discord-compatible webhook endpoint. Empty disables delivery.
	URL string

	// Timeout bounds the single POST.
	Timeout time.Duration // default: 10s
}

// MonitorConfig controls run-level behaviour.
type MonitorConfig struct {
	// NotifyOnComplete also sends the "complete" alert when no job exists.
	NotifyOnComplete bool // default: false

	// LayoutFingerprint is the pinned DOM SimHash in hex; empty disables the check.
	LayoutFingerprint string

	// LayoutMaxDistance is the Hamming distance above which drift is reported.
	LayoutMaxDistance int // default: 12

	// StrictExit makes the CLI exit non-zero when a run fails.
	StrictExit bool // default: false
}

// AuthConfig controls API key authentication for serve mode.
type AuthConfig struct {
	Enabled bool // default: true
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting for serve mode.
type RateLimitConfig struct {
	RequestsPerSecond float64 // default: 0.2
	Burst             int     // default: 1
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads a .env file if present, then builds the configuration from
// environment variables with sane defaults.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to read .env file", "error", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from the current environment only.
func FromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("TRANSWATCH_HOST", "0.0.0.0"),
			Port: envIntOr("TRANSWATCH_PORT", 8080),
			Mode: envOr("TRANSWATCH_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:       envBoolOr("TRANSWATCH_HEADLESS", true),
			NoSandbox:      envBoolOr("TRANSWATCH_NO_SANDBOX", true),
			BrowserBin:     os.Getenv("TRANSWATCH_BROWSER_BIN"),
			Proxy:          os.Getenv("TRANSWATCH_PROXY"),
			ViewportWidth:  envIntOr("TRANSWATCH_VIEWPORT_WIDTH", 1920),
			ViewportHeight: envIntOr("TRANSWATCH_VIEWPORT_HEIGHT", 1080),
			Stealth:        envBoolOr("TRANSWATCH_STEALTH", false),
		},
		Scraper: ScraperConfig{
			TargetURL:         envOr("TRANSWATCH_TARGET_URL", DefaultTargetURL),
			FetchMode:         envOr("TRANSWATCH_FETCH_MODE", FetchModeBrowser),
			NavigationTimeout: envDurationOr("TRANSWATCH_NAV_TIMEOUT", 30*time.Second),
			SettleDelay:       envDurationOr("TRANSWATCH_SETTLE_DELAY", 0),
			ReadyTimeout:      envDurationOr("TRANSWATCH_READY_TIMEOUT", 20*time.Second),
			WaitTimeout:       envDurationOr("TRANSWATCH_WAIT_TIMEOUT", 20*time.Second),
			BlockedResourceTypes: envSliceOr("TRANSWATCH_BLOCKED_RESOURCES", []string{
				"Image", "Font", "Media",
			}),
			AcceptLanguage: envOr("TRANSWATCH_ACCEPT_LANGUAGE", "en-US,en;q=0.9"),
			SelectorsFile:  os.Getenv("TRANSWATCH_SELECTORS_FILE"),
		},
		Webhook: WebhookConfig{
			URL:     strings.TrimSpace(os.Getenv("DISCORD_WEBHOOK_URL")),
			Timeout: envDurationOr("TRANSWATCH_WEBHOOK_TIMEOUT", 10*time.Second),
		},
		Monitor: MonitorConfig{
			NotifyOnComplete:  envBoolOr("TRANSWATCH_NOTIFY_ON_COMPLETE", false),
			LayoutFingerprint: os.Getenv("TRANSWATCH_LAYOUT_FINGERPRINT"),
			LayoutMaxDistance: envIntOr("TRANSWATCH_LAYOUT_MAX_DISTANCE", 12),
			StrictExit:        envBoolOr("TRANSWATCH_STRICT_EXIT", false),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("TRANSWATCH_AUTH_ENABLED", true),
			APIKeys: envSliceOr("TRANSWATCH_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("TRANSWATCH_RATE_RPS", 0.2),
			Burst:             envIntOr("TRANSWATCH_RATE_BURST", 1),
		},
		Log: LogConfig{
			Level:  envOr("TRANSWATCH_LOG_LEVEL", "info"),
			Format: envOr("TRANSWATCH_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
