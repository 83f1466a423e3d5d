package core

import (
	"crypto/tls"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Defaults shared by the CLI and the library packages.
const (
	DefaultModelName         = "AJbanana3"
	DefaultPromptLibraryURL  = "https://library.ai.pachouli.kiclover.com/public/list"
	DefaultDataDir           = "data"
	DefaultLogFile           = "app.log"
	DefaultLibraryTimeoutSec = 12
	DefaultQuotaTimeoutSec   = 20
	MinTimeoutSeconds        = 5
	DefaultCaptureDelayMS    = 60
	DefaultUnitDelayMS       = 120
)

// Config holds all configuration values
type Config struct {
	// Generation endpoint
	APIBaseURL string
	APIKey     string // optional: the store's latest saved key is used when empty
	ModelName  string

	// Local state
	DataDir string
	DBPath  string
	TempDir string

	// Prompt library
	PromptLibraryURL     string
	PromptLibraryTimeout time.Duration

	// Quota endpoint
	QuotaTimeout time.Duration

	// Pacing between sequential units against the host command queue
	CaptureDelay time.Duration
	UnitDelay    time.Duration

	// Transport and logging
	AllowSelfSignedCerts bool
	DevMode              bool
	LogLevel             string
	LogFile              string
}

// LoadConfig reads configuration from the environment.
// Call godotenv.Load before this to pick up a .env file.
func LoadConfig() (*Config, error) {
	dataDir := GetEnvOrDefault("GENFILL_DATA_DIR", DefaultDataDir)

	quotaTimeout := ParseIntEnv("QUOTA_TIMEOUT", DefaultQuotaTimeoutSec)
	if quotaTimeout < MinTimeoutSeconds {
		quotaTimeout = MinTimeoutSeconds
	}

	cfg := &Config{
		APIBaseURL:           NormalizeBaseURL(os.Getenv("GENFILL_API_BASE_URL")),
		APIKey:               strings.TrimSpace(os.Getenv("GENFILL_API_KEY")),
		ModelName:            GetEnvOrDefault("GENFILL_MODEL", DefaultModelName),
		DataDir:              dataDir,
		DBPath:               GetEnvOrDefault("GENFILL_DB_PATH", filepath.Join(dataDir, "history.db")),
		TempDir:              GetEnvOrDefault("GENFILL_TEMP_DIR", os.TempDir()),
		PromptLibraryURL:     GetEnvOrDefault("PROMPT_LIBRARY_URL", DefaultPromptLibraryURL),
		PromptLibraryTimeout: ParseDurationEnv("PROMPT_LIBRARY_TIMEOUT", DefaultLibraryTimeoutSec),
		QuotaTimeout:         time.Duration(quotaTimeout) * time.Second,
		CaptureDelay:         ParseMillisEnv("CAPTURE_DELAY_MS", DefaultCaptureDelayMS),
		UnitDelay:            ParseMillisEnv("UNIT_DELAY_MS", DefaultUnitDelayMS),
		AllowSelfSignedCerts: ParseBoolEnv("ALLOW_SELF_SIGNED_CERTS", false),
		DevMode:              ParseBoolEnv("DEV_MODE", false),
		LogLevel:             os.Getenv("LOG_LEVEL"),
		LogFile:              GetEnvOrDefault("LOG_FILE", DefaultLogFile),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside a run.
// The API base URL is optional here; commands that call the endpoint check it themselves.
func (c *Config) Validate() error {
	if c.APIBaseURL != "" {
		if err := ValidateBaseURL(c.APIBaseURL); err != nil {
			return err
		}
	}
	if c.ModelName == "" {
		return ErrMissingConfig("GENFILL_MODEL")
	}
	if c.DataDir == "" {
		return ErrMissingConfig("GENFILL_DATA_DIR")
	}
	if c.PromptLibraryTimeout <= 0 {
		return ErrInvalidConfig("PROMPT_LIBRARY_TIMEOUT", "must be positive")
	}
	return nil
}

// StoreDir returns the directory holding the local JSON store.
func (c *Config) StoreDir() string {
	return filepath.Join(c.DataDir, "prompt-create")
}

// NormalizeBaseURL trims whitespace and trailing slashes.
// This is a pure function with no side effects.
func NormalizeBaseURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}

// ValidateBaseURL returns a UserError when raw is not an absolute http(s) URL.
func ValidateBaseURL(raw string) error {
	if raw == "" {
		return ErrBaseURLEmpty()
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidBaseURL(raw, err.Error())
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ErrInvalidBaseURL(raw, "scheme must be http or https")
	}
	if u.Host == "" {
		return ErrInvalidBaseURL(raw, "missing host")
	}
	return nil
}

// GetHTTPClient returns an HTTP client configured with TLS settings from config.
// A zero timeout leaves deadlines to the caller's context.
func GetHTTPClient(cfg *Config, timeout time.Duration) *http.Client {
	client := &http.Client{
		Timeout: timeout,
	}

	if cfg != nil && cfg.AllowSelfSignedCerts {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return client
}
