// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server, logging,
// storage, rate limiting, observability, and detection-engine settings.
//
// An optional dotenv file (ENV_FILE, default ".env") is read first; variables
// already present in the process environment always win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
	// AdminKeyHash is the bcrypt hash of the key guarding the admin routes
	// (ADMIN_KEY_HASH). Empty disables those routes.
	AdminKeyHash string
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "formguard")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// DetectionConfig holds the resolved values consumed by the detection engine.
type DetectionConfig struct {
	Checks          []string          // ENABLED_CHECKS, ordered
	HoneypotField   string            // HONEYPOT_FIELD, empty = generated and persisted
	ChallengeField  string            // CHALLENGE_FIELD, hidden input written by the browser script
	ChallengeMaxAge time.Duration     // CHALLENGE_MAX_AGE
	FormSelectors   string            // FORM_SELECTORS, CSS selectors handed to the browser script
	IntentCookie    string            // INTENT_COOKIE
	IntentTTL       time.Duration     // INTENT_TTL
	BlockedDomains  []string          // BLOCKED_EMAIL_DOMAINS (csv)
	DisallowedTerms []string          // DISALLOWED_TERMS (csv)
	DisallowedFile  string            // DISALLOWED_TERMS_FILE, one term per line
	MatchMode       string            // DISALLOWED_MATCH: substring|word|regex
	MinTermRunes    int               // DISALLOWED_MIN_TERM, shorter terms are dropped
	MaxTerms        int               // DISALLOWED_MAX_TERMS, 0 = unlimited
	RedactFields    []string          // REDACT_FIELDS (csv)
	Messages        map[string]string // MSG_<REASON>
	DefaultMessage  string            // MSG_DEFAULT
	LogDetections   bool              // LOG_DETECTIONS
	ShareDetections bool              // SHARE_DETECTIONS
}

// ShareConfig configures the external detection sharing channel.
type ShareConfig struct {
	Endpoint string        // SHARE_ENDPOINT
	Secret   string        // SHARE_SECRET (HS256 signing key, also keys IP hashing; >= 32 bytes)
	Timeout  time.Duration // SHARE_TIMEOUT
}

// RedisConfig configures the optional Redis token backend.
// An empty Addr selects the SQL-backed token store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MongoConfig configures the optional MongoDB detection log.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// AutoBlockConfig configures the threshold auto-block policy.
type AutoBlockConfig struct {
	Enabled   bool
	Threshold int           // detections within Window that trigger a block
	Window    time.Duration // look-back window for counting detections
	Duration  time.Duration // length of a temporary block
	Permanent bool          // block permanently instead of temporarily
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Storage
	DBPath        string        // SQLite path
	PurgeInterval time.Duration // expired intent tokens / blocks sweep

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS           CORSConfig
	Security       SecurityConfig
	TrustedProxies []string // CIDRs or bare IPs allowed to set forwarding headers

	// Detection engine
	Detection DetectionConfig
	Share     ShareConfig
	AutoBlock AutoBlockConfig

	// Optional backends
	Redis RedisConfig
	Mongo MongoConfig

	// Observability
	OTEL OTELConfig
}

// minShareSecret matches the share sink's minimum signing secret length.
const minShareSecret = 32

// knownChecks lists the accepted ENABLED_CHECKS names.
var knownChecks = map[string]struct{}{
	"honeypot":       {},
	"challenge":      {},
	"email":          {},
	"blocked_domain": {},
	"disallowed":     {},
}

// messageReasons lists the failure reasons that accept a MSG_<REASON> override.
var messageReasons = []string{
	"honeypot",
	"invalid_email",
	"blocked_email_domain",
	"disallowed_list",
	"challenge_token_missing",
	"challenge_token_invalid",
	"blocked_ip",
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	if err := loadDotEnv(getenv("ENV_FILE", ".env")); err != nil {
		return Config{}, err
	}

	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Storage
		DBPath:        getenv("DB_PATH", "formguard.db"),
		PurgeInterval: getdur("PURGE_INTERVAL", 15*time.Minute),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS:   getbool("ENABLE_HSTS", false),
			HSTSMaxAge:   getdur("HSTS_MAX_AGE", 180*24*time.Hour),
			AdminKeyHash: strings.TrimSpace(getenv("ADMIN_KEY_HASH", "")),
		},
		TrustedProxies: splitCSV(getenv("TRUSTED_PROXIES", "")),

		// Detection engine
		Detection: DetectionConfig{
			Checks:          lowerAll(splitCSV(getenv("ENABLED_CHECKS", "honeypot,challenge,email,blocked_domain,disallowed"))),
			HoneypotField:   strings.TrimSpace(getenv("HONEYPOT_FIELD", "")),
			ChallengeField:  strings.TrimSpace(getenv("CHALLENGE_FIELD", "formguard_key")),
			ChallengeMaxAge: getdur("CHALLENGE_MAX_AGE", 12*time.Hour),
			FormSelectors:   getenv("FORM_SELECTORS", "form"),
			IntentCookie:    strings.TrimSpace(getenv("INTENT_COOKIE", "formguard_intent")),
			IntentTTL:       getdur("INTENT_TTL", 10*time.Minute),
			BlockedDomains:  splitCSV(getenv("BLOCKED_EMAIL_DOMAINS", "")),
			DisallowedTerms: splitCSV(getenv("DISALLOWED_TERMS", "")),
			DisallowedFile:  getenv("DISALLOWED_TERMS_FILE", ""),
			MatchMode:       strings.ToLower(getenv("DISALLOWED_MATCH", "substring")),
			MinTermRunes:    getint("DISALLOWED_MIN_TERM", 1),
			MaxTerms:        getint("DISALLOWED_MAX_TERMS", 0),
			RedactFields:    splitCSV(getenv("REDACT_FIELDS", "password,pwd,user_pass,pass1,pass2")),
			Messages:        loadMessages(),
			DefaultMessage:  getenv("MSG_DEFAULT", "There was a problem processing your submission."),
			LogDetections:   getbool("LOG_DETECTIONS", true),
			ShareDetections: getbool("SHARE_DETECTIONS", false),
		},
		Share: ShareConfig{
			Endpoint: getenv("SHARE_ENDPOINT", ""),
			Secret:   getenv("SHARE_SECRET", ""),
			Timeout:  getdur("SHARE_TIMEOUT", 3*time.Second),
		},
		AutoBlock: AutoBlockConfig{
			Enabled:   getbool("AUTO_BLOCK", false),
			Threshold: getint("AUTO_BLOCK_THRESHOLD", 5),
			Window:    getdur("AUTO_BLOCK_WINDOW", time.Hour),
			Duration:  getdur("AUTO_BLOCK_DURATION", 24*time.Hour),
			Permanent: getbool("AUTO_BLOCK_PERMANENT", false),
		},

		// Optional backends
		Redis: RedisConfig{
			Addr:     getenv("REDIS_ADDR", ""),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getint("REDIS_DB", 0),
		},
		Mongo: MongoConfig{
			URI:        getenv("MONGO_URI", ""),
			Database:   getenv("MONGO_DB", "formguard"),
			Collection: getenv("MONGO_COLLECTION", "detections"),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "formguard"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.PurgeInterval <= 0 {
		return cfg, errors.New("PURGE_INTERVAL must be > 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if h := cfg.Security.AdminKeyHash; h != "" {
		if _, err := bcrypt.Cost([]byte(h)); err != nil {
			return cfg, fmt.Errorf("ADMIN_KEY_HASH is not a bcrypt hash: %w", err)
		}
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	if err := validateDetection(cfg.Detection); err != nil {
		return cfg, err
	}
	if cfg.Detection.ShareDetections && strings.TrimSpace(cfg.Share.Endpoint) == "" {
		return cfg, errors.New("SHARE_ENDPOINT is required when SHARE_DETECTIONS is on")
	}
	if cfg.Detection.ShareDetections && len(cfg.Share.Secret) < minShareSecret {
		return cfg, fmt.Errorf("SHARE_SECRET must be at least %d bytes when SHARE_DETECTIONS is on", minShareSecret)
	}
	if cfg.Share.Timeout <= 0 {
		return cfg, errors.New("SHARE_TIMEOUT must be > 0")
	}
	if cfg.AutoBlock.Enabled {
		if cfg.AutoBlock.Threshold < 1 {
			return cfg, errors.New("AUTO_BLOCK_THRESHOLD must be >= 1")
		}
		if cfg.AutoBlock.Window <= 0 {
			return cfg, errors.New("AUTO_BLOCK_WINDOW must be > 0")
		}
		if !cfg.AutoBlock.Permanent && cfg.AutoBlock.Duration <= 0 {
			return cfg, errors.New("AUTO_BLOCK_DURATION must be > 0")
		}
	}
	if cfg.Redis.DB < 0 {
		return cfg, errors.New("REDIS_DB must be >= 0")
	}

	return cfg, nil
}

func validateDetection(d DetectionConfig) error {
	for _, c := range d.Checks {
		if _, ok := knownChecks[c]; !ok {
			return fmt.Errorf("ENABLED_CHECKS: unknown check %q", c)
		}
	}
	if d.ChallengeField == "" {
		return errors.New("CHALLENGE_FIELD must not be empty")
	}
	if d.ChallengeMaxAge <= 0 {
		return errors.New("CHALLENGE_MAX_AGE must be > 0")
	}
	if d.IntentCookie == "" {
		return errors.New("INTENT_COOKIE must not be empty")
	}
	if d.IntentTTL <= 0 {
		return errors.New("INTENT_TTL must be > 0")
	}
	switch d.MatchMode {
	case "substring", "word", "regex":
	default:
		return errors.New("DISALLOWED_MATCH must be one of: substring, word, regex")
	}
	if d.MinTermRunes < 1 {
		return errors.New("DISALLOWED_MIN_TERM must be >= 1")
	}
	if d.MaxTerms < 0 {
		return errors.New("DISALLOWED_MAX_TERMS must be >= 0")
	}
	return nil
}

// ---- helpers ----

// loadDotEnv reads path into the environment when it exists. Existing
// variables are not overridden.
func loadDotEnv(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("ENV_FILE %s: %w", path, err)
	}
	return nil
}

// loadMessages collects MSG_<REASON> overrides, keyed by the lowercase reason.
func loadMessages() map[string]string {
	out := make(map[string]string)
	for _, r := range messageReasons {
		if v := getenv("MSG_"+strings.ToUpper(r), ""); v != "" {
			out[r] = v
		}
	}
	return out
}

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func lowerAll(in []string) []string {
	for i, s := range in {
		in[i] = strings.ToLower(s)
	}
	return in
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
