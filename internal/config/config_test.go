package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// --- MustLoad ---

func TestMustLoad_PanicsOnInvalidConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose") // invalid -> Load() error
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("MustLoad should panic on invalid config")
		}
	}()
	_ = MustLoad()
}

func TestMustLoad_Success_NoPanic(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("MustLoad should not panic on valid defaults, got: %v", r)
		}
	}()
	cfg := MustLoad()
	if cfg.APIBasePath == "" {
		t.Fatalf("unexpected empty config from MustLoad")
	}
}

// --- Load success + normalization + parsing ---

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.APIBasePath != "/api/v1" || cfg.DBPath != "formguard.db" {
		t.Fatalf("defaults unexpected: base=%q db=%q", cfg.APIBasePath, cfg.DBPath)
	}
	d := cfg.Detection
	wantChecks := []string{"honeypot", "challenge", "email", "blocked_domain", "disallowed"}
	if !reflect.DeepEqual(d.Checks, wantChecks) {
		t.Fatalf("checks default = %#v", d.Checks)
	}
	if d.ChallengeField != "formguard_key" || d.ChallengeMaxAge != 12*time.Hour {
		t.Fatalf("challenge defaults unexpected: %+v", d)
	}
	if d.IntentCookie != "formguard_intent" || d.IntentTTL != 10*time.Minute {
		t.Fatalf("intent defaults unexpected: %+v", d)
	}
	if d.MatchMode != "substring" || d.MinTermRunes != 1 || d.MaxTerms != 0 || !d.LogDetections || d.ShareDetections {
		t.Fatalf("detection defaults unexpected: %+v", d)
	}
	if len(d.Messages) != 0 || d.DefaultMessage == "" {
		t.Fatalf("messages defaults unexpected: %#v / %q", d.Messages, d.DefaultMessage)
	}
	if cfg.AutoBlock.Enabled || cfg.Redis.Addr != "" || cfg.Mongo.URI != "" {
		t.Fatalf("optional backends should be off by default: %+v %+v %+v", cfg.AutoBlock, cfg.Redis, cfg.Mongo)
	}
}

func TestLoad_Success_Overrides(t *testing.T) {
	t.Setenv("PORT", "8088")
	t.Setenv("GIN_MODE", "weird")    // normalizes to "release"
	t.Setenv("LOG_LEVEL", "warning") // normalizes to "warn"
	t.Setenv("API_BASE_PATH", "guard/")
	t.Setenv("RATE_RPS", "x") // falls back to default 5.0
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 127.0.0.1")

	t.Setenv("ENABLED_CHECKS", "Honeypot, challenge")
	t.Setenv("HONEYPOT_FIELD", " hp_fixed ")
	t.Setenv("CHALLENGE_MAX_AGE", "1h")
	t.Setenv("INTENT_TTL", "5m")
	t.Setenv("BLOCKED_EMAIL_DOMAINS", "spam.test, junk.test")
	t.Setenv("DISALLOWED_TERMS", "viagra,casino")
	t.Setenv("DISALLOWED_MATCH", "WORD")
	t.Setenv("MSG_HONEYPOT", "No bots please.")
	t.Setenv("MSG_BLOCKED_IP", "Go away.")
	t.Setenv("SHARE_DETECTIONS", "on")
	t.Setenv("SHARE_ENDPOINT", "https://share.example/api")
	t.Setenv("SHARE_SECRET", strings.Repeat("s", 32))
	t.Setenv("DISALLOWED_MIN_TERM", "3")
	t.Setenv("DISALLOWED_MAX_TERMS", "500")

	t.Setenv("AUTO_BLOCK", "yes")
	t.Setenv("AUTO_BLOCK_THRESHOLD", "3")
	t.Setenv("AUTO_BLOCK_WINDOW", "30m")

	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != "8088" || cfg.GinMode != "release" || cfg.LogLevel != "warn" || cfg.APIBasePath != "/guard" {
		t.Fatalf("server/logging unexpected: %+v", cfg)
	}
	if cfg.RateRPS != 5.0 {
		t.Fatalf("RATE_RPS fallback unexpected: %v", cfg.RateRPS)
	}
	if !reflect.DeepEqual(cfg.TrustedProxies, []string{"10.0.0.0/8", "127.0.0.1"}) {
		t.Fatalf("trusted proxies unexpected: %#v", cfg.TrustedProxies)
	}

	d := cfg.Detection
	if !reflect.DeepEqual(d.Checks, []string{"honeypot", "challenge"}) {
		t.Fatalf("checks unexpected: %#v", d.Checks)
	}
	if d.HoneypotField != "hp_fixed" || d.ChallengeMaxAge != time.Hour || d.IntentTTL != 5*time.Minute {
		t.Fatalf("detection fields unexpected: %+v", d)
	}
	if !reflect.DeepEqual(d.BlockedDomains, []string{"spam.test", "junk.test"}) {
		t.Fatalf("blocked domains unexpected: %#v", d.BlockedDomains)
	}
	if d.MatchMode != "word" || len(d.DisallowedTerms) != 2 || d.MinTermRunes != 3 || d.MaxTerms != 500 {
		t.Fatalf("disallowed unexpected: %+v", d)
	}
	if d.Messages["honeypot"] != "No bots please." || d.Messages["blocked_ip"] != "Go away." {
		t.Fatalf("messages unexpected: %#v", d.Messages)
	}
	if !d.ShareDetections || cfg.Share.Endpoint != "https://share.example/api" {
		t.Fatalf("share unexpected: %+v %+v", d, cfg.Share)
	}
	if !cfg.AutoBlock.Enabled || cfg.AutoBlock.Threshold != 3 || cfg.AutoBlock.Window != 30*time.Minute {
		t.Fatalf("auto block unexpected: %+v", cfg.AutoBlock)
	}
	if cfg.Redis.Addr != "localhost:6379" || cfg.Redis.DB != 2 || cfg.Mongo.URI == "" {
		t.Fatalf("backends unexpected: %+v %+v", cfg.Redis, cfg.Mongo)
	}
}

func TestLoad_ReadsDotEnvWithoutOverriding(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "test.env")
	if err := os.WriteFile(p, []byte("FG_DOTENV_ONLY=from-file\nPORT=9999\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("ENV_FILE", p)
	t.Setenv("PORT", "7000")
	t.Cleanup(func() { os.Unsetenv("FG_DOTENV_ONLY") })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != "7000" {
		t.Fatalf("process env must win over dotenv, got %q", cfg.Port)
	}
	if os.Getenv("FG_DOTENV_ONLY") != "from-file" {
		t.Fatalf("dotenv value not loaded")
	}
}

// --- Load validations (each case triggers exactly one validation error) ---

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"invalid LOG_LEVEL", map[string]string{"LOG_LEVEL": "verbose"}, "LOG_LEVEL"},
		{"empty PORT via spaces", map[string]string{"PORT": "   "}, "PORT must not be empty"},
		{"non-positive timeouts", map[string]string{"READ_TIMEOUT": "0s"}, "timeouts must be positive"},
		{"max header bytes <= 0", map[string]string{"MAX_HEADER_BYTES": "0"}, "MAX_HEADER_BYTES"},
		{"empty DB_PATH", map[string]string{"DB_PATH": "   "}, "DB_PATH must not be empty"},
		{"purge interval", map[string]string{"PURGE_INTERVAL": "0s"}, "PURGE_INTERVAL"},
		{"rate rps negative", map[string]string{"RATE_RPS": "-1"}, "RATE_RPS"},
		{"rate burst < 1", map[string]string{"RATE_BURST": "0"}, "RATE_BURST"},
		{"hsts max age negative", map[string]string{"HSTS_MAX_AGE": "-1s"}, "HSTS_MAX_AGE"},
		{"otel sample ratio", map[string]string{"OTEL_TRACES_SAMPLER_ARG": "1.5"}, "OTEL_TRACES_SAMPLER_ARG"},
		{"unknown check", map[string]string{"ENABLED_CHECKS": "honeypot,akismet"}, "unknown check"},
		{"challenge max age", map[string]string{"CHALLENGE_MAX_AGE": "0s"}, "CHALLENGE_MAX_AGE"},
		{"intent ttl", map[string]string{"INTENT_TTL": "-1m"}, "INTENT_TTL"},
		{"match mode", map[string]string{"DISALLOWED_MATCH": "fuzzy"}, "DISALLOWED_MATCH"},
		{"share without endpoint", map[string]string{"SHARE_DETECTIONS": "1"}, "SHARE_ENDPOINT"},
		{"share without secret", map[string]string{"SHARE_DETECTIONS": "1", "SHARE_ENDPOINT": "https://share.example"}, "SHARE_SECRET"},
		{"share short secret", map[string]string{"SHARE_DETECTIONS": "1", "SHARE_ENDPOINT": "https://share.example", "SHARE_SECRET": "too-short"}, "SHARE_SECRET"},
		{"disallowed min term", map[string]string{"DISALLOWED_MIN_TERM": "0"}, "DISALLOWED_MIN_TERM"},
		{"disallowed max terms", map[string]string{"DISALLOWED_MAX_TERMS": "-1"}, "DISALLOWED_MAX_TERMS"},
		{"share timeout", map[string]string{"SHARE_TIMEOUT": "0s"}, "SHARE_TIMEOUT"},
		{"auto block threshold", map[string]string{"AUTO_BLOCK": "1", "AUTO_BLOCK_THRESHOLD": "0"}, "AUTO_BLOCK_THRESHOLD"},
		{"auto block window", map[string]string{"AUTO_BLOCK": "1", "AUTO_BLOCK_WINDOW": "0s"}, "AUTO_BLOCK_WINDOW"},
		{"auto block duration", map[string]string{"AUTO_BLOCK": "1", "AUTO_BLOCK_DURATION": "0s"}, "AUTO_BLOCK_DURATION"},
		{"redis db", map[string]string{"REDIS_DB": "-2"}, "REDIS_DB"},
		{"admin key hash", map[string]string{"ADMIN_KEY_HASH": "plaintext"}, "ADMIN_KEY_HASH"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil || !containsErr(err, tc.want) {
				t.Fatalf("expected %q validation error, got: %v", tc.want, err)
			}
		})
	}
}

func TestLoad_AutoBlockPermanentSkipsDuration(t *testing.T) {
	t.Setenv("AUTO_BLOCK", "1")
	t.Setenv("AUTO_BLOCK_PERMANENT", "1")
	t.Setenv("AUTO_BLOCK_DURATION", "0s")
	if _, err := Load(); err != nil {
		t.Fatalf("permanent auto block must not require a duration: %v", err)
	}
}

func TestLoad_AutoBlockWithoutDetectionLog(t *testing.T) {
	t.Setenv("AUTO_BLOCK", "1")
	t.Setenv("AUTO_BLOCK_THRESHOLD", "2")
	t.Setenv("LOG_DETECTIONS", "0")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("auto block must not depend on the detection log: %v", err)
	}
	if !cfg.AutoBlock.Enabled || cfg.Detection.LogDetections {
		t.Fatalf("unexpected config: %+v %+v", cfg.AutoBlock, cfg.Detection)
	}
}

func TestLoad_AdminKeyHashAccepted(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	t.Setenv("ADMIN_KEY_HASH", string(hash))
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() err = %v", err)
	}
	if cfg.Security.AdminKeyHash != string(hash) {
		t.Fatalf("AdminKeyHash = %q", cfg.Security.AdminKeyHash)
	}
}

// --- helpers ---

func TestHelpers_getenv(t *testing.T) {
	t.Setenv("X_EMPTY", "")
	if getenv("X_EMPTY", "d") != "d" {
		t.Fatalf("getenv should fall back to default on empty var")
	}
	t.Setenv("X_SET", "val")
	if getenv("X_SET", "d") != "val" {
		t.Fatalf("getenv should read set value")
	}
}

func TestHelpers_getfloat_getint_getdur(t *testing.T) {
	t.Setenv("F_VALID", "3.14")
	if getfloat("F_VALID", 0) != 3.14 {
		t.Fatalf("getfloat parse failed")
	}
	t.Setenv("F_BAD", "nope")
	if getfloat("F_BAD", 1.23) != 1.23 {
		t.Fatalf("getfloat default on bad parse failed")
	}
	t.Setenv("I_VALID", "42")
	if getint("I_VALID", 0) != 42 {
		t.Fatalf("getint parse failed")
	}
	t.Setenv("I_BAD", "x")
	if getint("I_BAD", 7) != 7 {
		t.Fatalf("getint default on bad parse failed")
	}
	t.Setenv("D_VALID", "150ms")
	if getdur("D_VALID", time.Second) != 150*time.Millisecond {
		t.Fatalf("getdur parse failed")
	}
	t.Setenv("D_BAD", "zzz")
	if getdur("D_BAD", 2*time.Second) != 2*time.Second {
		t.Fatalf("getdur default on bad parse failed")
	}
}

func TestHelpers_getbool(t *testing.T) {
	for i, v := range []string{"1", "true", "TRUE", " yes ", "Y", "on"} {
		k := "B_T_" + string(rune('a'+i))
		t.Setenv(k, v)
		if !getbool(k, false) {
			t.Fatalf("getbool(%q) = false; want true", v)
		}
	}
	for i, v := range []string{"0", "false", " no ", "N", "off"} {
		k := "B_F_" + string(rune('a'+i))
		t.Setenv(k, v)
		if getbool(k, true) {
			t.Fatalf("getbool(%q) = true; want false", v)
		}
	}
	t.Setenv("B_EMPTY", "")
	if !getbool("B_EMPTY", true) || getbool("B_EMPTY", false) {
		t.Fatalf("getbool default behavior unexpected")
	}
}

func TestHelpers_splitCSV_and_normalizeBasePath(t *testing.T) {
	if out := splitCSV(""); out != nil {
		t.Fatalf("splitCSV empty should return nil")
	}
	if got := splitCSV(" a, ,b ,  c  ,"); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("splitCSV mismatch: got %#v", got)
	}
	if normalizeBasePath("") != "/" || normalizeBasePath("v1") != "/v1" || normalizeBasePath("/v1/") != "/v1" {
		t.Fatalf("normalizeBasePath unexpected")
	}
}

func TestLoadDotEnv_MissingFileIsNotAnError(t *testing.T) {
	if err := loadDotEnv(filepath.Join(t.TempDir(), "nope.env")); err != nil {
		t.Fatalf("missing dotenv should be ignored: %v", err)
	}
	if err := loadDotEnv("  "); err != nil {
		t.Fatalf("blank path should be ignored: %v", err)
	}
}

// Ensure tests don't leak env to others.
func TestMain(m *testing.M) {
	os.Unsetenv("PORT")
	os.Exit(m.Run())
}

// containsErr reports whether err's message contains the given substring.
func containsErr(err error, want string) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), want)
}
