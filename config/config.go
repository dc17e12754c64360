package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/use-agent/shelfscout/retry"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Retrieval RetrievalConfig
	Output    OutputConfig
	LLM       LLMConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP service.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser launched for every strategy attempt.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is the upstream proxy URL for all browser traffic.
	Proxy string

	// UserAgents extends the built-in identity pool.
	UserAgents []string
}

// StrategyConfig is one named retrieval strategy.
type StrategyConfig struct {
	Name     string
	Delay    time.Duration
	Viewport string // "any", "desktop" or "mobile"
}

// RetrievalConfig carries every timing bound of the retrieval core.
type RetrievalConfig struct {
	// NavigationTimeout is the hard deadline of a single page load.
	NavigationTimeout time.Duration // default: 30s

	// Navigation bounds attempts per target URL and the wait after a
	// transport error.
	Navigation retry.Policy // default: 3 attempts, 3s-6s

	Settle          retry.DelayRange // after a successful load, default 2s-4s
	BlockedDelay    retry.DelayRange // after a detected block, default 5s-10s
	ModalPause      retry.DelayRange // after closing an overlay, default 500ms-1s
	HomeDelay       retry.DelayRange // on the home page before searching, default 2s-4s
	FocusDelay      retry.DelayRange // after focusing the search box, default 500ms-1s
	KeyDelay        retry.DelayRange // between keystrokes, default 100ms-300ms
	ResultsDelay    retry.DelayRange // after submitting a search, default 3s-5s
	CaptchaCooldown retry.DelayRange // before reloading a blocked page, default 30s-35s
	ReloadSettle    retry.DelayRange // after that reload, default 3s-5s
	ScrollDelay     retry.DelayRange // between scroll steps, default 500ms-1s

	ScrollStep int // default: 300
	ScrollMax  int // default: 3000

	// StrategyJitter is added on top of each strategy's pre-delay.
	StrategyJitter time.Duration // default: 5s

	Strategies []StrategyConfig

	// Preflight enables an HTTP probe of the home page before the first
	// strategy.
	Preflight bool // default: false

	// PreflightTimeout bounds the probe.
	PreflightTimeout time.Duration // default: 10s
}

// OutputConfig locates persisted artifacts.
type OutputConfig struct {
	HTMLDir      string // default: "response_HTML"
	DataDir      string // default: "data"
	SnapshotPath string // default: "captcha_detected.png"
}

// LLMConfig controls the structured-extraction service.
type LLMConfig struct {
	APIKey  string
	Model   string // default: "gpt-4.1-mini"
	BaseURL string // default: "https://api.openai.com/v1"

	// Timeout bounds one completion request.
	Timeout time.Duration // default: 60s

	// RequestsPerSecond paces sequential completion calls. Zero disables pacing.
	RequestsPerSecond float64 // default: 2

	// JSONMode asks the provider for a json_object response format.
	JSONMode bool // default: false

	// PromptFormat is how a fragment is embedded: "html" or "markdown".
	PromptFormat string // default: "html"

	// TrimCards strips scripts, styles and presentational attributes from
	// cards before prompting.
	TrimCards bool // default: false
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 1

	// Burst is the maximum burst size per API key.
	Burst int // default: 5
}

// CacheConfig controls the completion cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached completions.
	MaxEntries int // default: 1000

	// TTL is how long a cached completion stays valid.
	TTL time.Duration // default: 1h
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("SHELFSCOUT_HOST", "0.0.0.0"),
			Port: envIntOr("SHELFSCOUT_PORT", 8080),
			Mode: envOr("SHELFSCOUT_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:   envBoolOr("SHELFSCOUT_HEADLESS", true),
			NoSandbox:  envBoolOr("SHELFSCOUT_NO_SANDBOX", false),
			BrowserBin: os.Getenv("SHELFSCOUT_BROWSER_BIN"),
			Proxy:      os.Getenv("SHELFSCOUT_PROXY"),
			UserAgents: envSplitOr("SHELFSCOUT_USER_AGENTS", "|", nil),
		},
		Retrieval: RetrievalConfig{
			NavigationTimeout: envDurationOr("SHELFSCOUT_NAV_TIMEOUT", 30*time.Second),
			Navigation: retry.Policy{
				MaxAttempts: envIntOr("SHELFSCOUT_NAV_ATTEMPTS", 3),
				Delay:       envRangeOr("SHELFSCOUT_NAV_ERROR_DELAY", retry.Range(3*time.Second, 6*time.Second)),
			},
			Settle:           envRangeOr("SHELFSCOUT_SETTLE_DELAY", retry.Range(2*time.Second, 4*time.Second)),
			BlockedDelay:     envRangeOr("SHELFSCOUT_BLOCKED_DELAY", retry.Range(5*time.Second, 10*time.Second)),
			ModalPause:       envRangeOr("SHELFSCOUT_MODAL_PAUSE", retry.Range(500*time.Millisecond, time.Second)),
			HomeDelay:        envRangeOr("SHELFSCOUT_HOME_DELAY", retry.Range(2*time.Second, 4*time.Second)),
			FocusDelay:       envRangeOr("SHELFSCOUT_FOCUS_DELAY", retry.Range(500*time.Millisecond, time.Second)),
			KeyDelay:         envRangeOr("SHELFSCOUT_KEY_DELAY", retry.Range(100*time.Millisecond, 300*time.Millisecond)),
			ResultsDelay:     envRangeOr("SHELFSCOUT_RESULTS_DELAY", retry.Range(3*time.Second, 5*time.Second)),
			CaptchaCooldown:  envRangeOr("SHELFSCOUT_CAPTCHA_COOLDOWN", retry.Range(30*time.Second, 35*time.Second)),
			ReloadSettle:     envRangeOr("SHELFSCOUT_RELOAD_SETTLE", retry.Range(3*time.Second, 5*time.Second)),
			ScrollDelay:      envRangeOr("SHELFSCOUT_SCROLL_DELAY", retry.Range(500*time.Millisecond, time.Second)),
			ScrollStep:       envIntOr("SHELFSCOUT_SCROLL_STEP", 300),
			ScrollMax:        envIntOr("SHELFSCOUT_SCROLL_MAX", 3000),
			StrategyJitter:   envDurationOr("SHELFSCOUT_STRATEGY_JITTER", 5*time.Second),
			Strategies:       DefaultStrategies(),
			Preflight:        envBoolOr("SHELFSCOUT_PREFLIGHT", false),
			PreflightTimeout: envDurationOr("SHELFSCOUT_PREFLIGHT_TIMEOUT", 10*time.Second),
		},
		Output: OutputConfig{
			HTMLDir:      envOr("SHELFSCOUT_HTML_DIR", "response_HTML"),
			DataDir:      envOr("SHELFSCOUT_DATA_DIR", "data"),
			SnapshotPath: envOr("SHELFSCOUT_SNAPSHOT_PATH", "captcha_detected.png"),
		},
		LLM: LLMConfig{
			APIKey:            envOr("SHELFSCOUT_LLM_API_KEY", os.Getenv("OPENAI_API_KEY")),
			Model:             envOr("SHELFSCOUT_LLM_MODEL", "gpt-4.1-mini"),
			BaseURL:           envOr("SHELFSCOUT_LLM_BASE_URL", "https://api.openai.com/v1"),
			Timeout:           envDurationOr("SHELFSCOUT_LLM_TIMEOUT", 60*time.Second),
			RequestsPerSecond: envFloatOr("SHELFSCOUT_LLM_RPS", 2),
			JSONMode:          envBoolOr("SHELFSCOUT_LLM_JSON_MODE", false),
			PromptFormat:      envOr("SHELFSCOUT_PROMPT_FORMAT", "html"),
			TrimCards:         envBoolOr("SHELFSCOUT_TRIM_CARDS", false),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("SHELFSCOUT_AUTH_ENABLED", true),
			APIKeys: envSliceOr("SHELFSCOUT_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("SHELFSCOUT_RATE_RPS", 1.0),
			Burst:             envIntOr("SHELFSCOUT_RATE_BURST", 5),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("SHELFSCOUT_CACHE_MAX_ENTRIES", 1000),
			TTL:        envDurationOr("SHELFSCOUT_CACHE_TTL", time.Hour),
		},
		Log: LogConfig{
			Level:  envOr("SHELFSCOUT_LOG_LEVEL", "info"),
			Format: envOr("SHELFSCOUT_LOG_FORMAT", "text"),
		},
	}
}

// DefaultStrategies is the ordered fallback sequence: search right away,
// then again after a long pause, then with a mobile identity.
func DefaultStrategies() []StrategyConfig {
	return []StrategyConfig{
		{Name: "internal-search", Delay: 0, Viewport: "any"},
		{Name: "extended-wait", Delay: 60 * time.Second, Viewport: "any"},
		{Name: "alternate-viewport", Delay: 30 * time.Second, Viewport: "mobile"},
	}
}

// Validate rejects configurations the retrieval core cannot run with.
func (c *Config) Validate() error {
	r := c.Retrieval
	if r.Navigation.MaxAttempts < 1 {
		return fmt.Errorf("SHELFSCOUT_NAV_ATTEMPTS must be at least 1")
	}
	if r.NavigationTimeout <= 0 {
		return fmt.Errorf("SHELFSCOUT_NAV_TIMEOUT must be positive")
	}
	if r.ScrollStep < 1 {
		return fmt.Errorf("SHELFSCOUT_SCROLL_STEP must be at least 1")
	}
	if len(r.Strategies) == 0 {
		return fmt.Errorf("at least one retrieval strategy is required")
	}

	ranges := map[string]retry.DelayRange{
		"SHELFSCOUT_NAV_ERROR_DELAY":  r.Navigation.Delay,
		"SHELFSCOUT_SETTLE_DELAY":     r.Settle,
		"SHELFSCOUT_BLOCKED_DELAY":    r.BlockedDelay,
		"SHELFSCOUT_MODAL_PAUSE":      r.ModalPause,
		"SHELFSCOUT_HOME_DELAY":       r.HomeDelay,
		"SHELFSCOUT_FOCUS_DELAY":      r.FocusDelay,
		"SHELFSCOUT_KEY_DELAY":        r.KeyDelay,
		"SHELFSCOUT_RESULTS_DELAY":    r.ResultsDelay,
		"SHELFSCOUT_CAPTCHA_COOLDOWN": r.CaptchaCooldown,
		"SHELFSCOUT_RELOAD_SETTLE":    r.ReloadSettle,
		"SHELFSCOUT_SCROLL_DELAY":     r.ScrollDelay,
	}
	for key, dr := range ranges {
		if err := dr.Validate(); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}

	if c.LLM.RequestsPerSecond < 0 {
		return fmt.Errorf("SHELFSCOUT_LLM_RPS must not be negative")
	}
	switch c.LLM.PromptFormat {
	case "html", "markdown":
	default:
		return fmt.Errorf("SHELFSCOUT_PROMPT_FORMAT must be html or markdown, got %q", c.LLM.PromptFormat)
	}
	return nil
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
	return envSplitOr(key, ",", fallback)
}

// envSplitOr splits on sep, dropping blank items.
func envSplitOr(key, sep string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, sep)
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

// envRangeOr parses "min,max" durations, e.g. "2s,4s".
func envRangeOr(key string, fallback retry.DelayRange) retry.DelayRange {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	if len(parts) != 2 {
		return fallback
	}
	min, err := time.ParseDuration(strings.TrimSpace(parts[0]))
	if err != nil {
		return fallback
	}
	max, err := time.ParseDuration(strings.TrimSpace(parts[1]))
	if err != nil {
		return fallback
	}
	return retry.Range(min, max)
}
