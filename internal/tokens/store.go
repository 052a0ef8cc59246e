// Package tokens issues and validates the proof tokens used by the detection
// engine: the stable honeypot field name, the rotating challenge token and
// single-use login intent tokens.
package tokens

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	keyHoneypot  = "honeypot_field"
	keyChallenge = "challenge_token"

	honeypotPrefix = "hp_"
	honeypotLen    = 8

	// honeypotCacheTTL bounds how long a regeneration on another instance
	// stays invisible to this one.
	honeypotCacheTTL = 15 * time.Second

	// DefaultMaxAge is the challenge token age at which it becomes stale.
	DefaultMaxAge = 12 * time.Hour
	// DefaultIntentTTL is how long an issued intent token stays valid.
	DefaultIntentTTL = 10 * time.Minute
)

// ChallengeToken is the current client-side proof value.
type ChallengeToken struct {
	Value    string
	IssuedAt time.Time
}

// IntentToken is a single-use login intent proof.
type IntentToken struct {
	Value     string
	ExpiresAt time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithMaxAge sets the challenge token staleness threshold.
func WithMaxAge(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.maxAge = d
		}
	}
}

// WithIntentTTL sets the intent token lifetime.
func WithIntentTTL(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.intentTTL = d
		}
	}
}

// WithHoneypotField pins the honeypot field name instead of generating one.
func WithHoneypotField(name string) Option {
	return func(s *Store) { s.fixedHoneypot = strings.TrimSpace(name) }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger used for swallowed backing-store errors.
func WithLogger(l zerolog.Logger) Option { return func(s *Store) { s.log = l } }

// Store is safe for concurrent use.
type Store struct {
	kv            KV
	maxAge        time.Duration
	intentTTL     time.Duration
	fixedHoneypot string
	now           func() time.Time
	log           zerolog.Logger

	mu         sync.RWMutex
	honeypot   string
	honeypotAt time.Time
}

// New returns a Store over kv.
func New(kv KV, opts ...Option) *Store {
	s := &Store{
		kv:        kv,
		maxAge:    DefaultMaxAge,
		intentTTL: DefaultIntentTTL,
		now:       time.Now,
		log:       zerolog.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// MaxAge returns the challenge staleness threshold.
func (s *Store) MaxAge() time.Duration { return s.maxAge }

// ----------------------------------------------------------------------------
// Honeypot

// HoneypotFieldName returns the installation's honeypot field name,
// generating and persisting it on first use. Concurrent first calls agree on
// one value. The name is cached for honeypotCacheTTL; when the store fails
// after that, the last known name is served.
func (s *Store) HoneypotFieldName(ctx context.Context) (string, error) {
	if s.fixedHoneypot != "" {
		return s.fixedHoneypot, nil
	}
	now := s.now()
	s.mu.RLock()
	cached, at := s.honeypot, s.honeypotAt
	s.mu.RUnlock()
	if cached != "" && now.Sub(at) < honeypotCacheTTL {
		return cached, nil
	}

	name, err := s.kv.Get(ctx, keyHoneypot)
	if errors.Is(err, ErrNotFound) || (err == nil && name == "") {
		name, err = s.createOnce(ctx, keyHoneypot, newHoneypotName())
	}
	if err != nil {
		if cached != "" {
			s.log.Warn().Err(err).Msg("honeypot field: serving cached name")
			return cached, nil
		}
		return "", fmt.Errorf("honeypot field: %w", err)
	}

	s.cacheHoneypot(name, now)
	return name, nil
}

// RegenerateHoneypot replaces the honeypot field name. A pinned name is
// returned unchanged.
func (s *Store) RegenerateHoneypot(ctx context.Context) (string, error) {
	if s.fixedHoneypot != "" {
		return s.fixedHoneypot, nil
	}
	name := newHoneypotName()
	if err := s.kv.Set(ctx, keyHoneypot, name); err != nil {
		return "", fmt.Errorf("honeypot field: %w", err)
	}
	s.cacheHoneypot(name, s.now())
	return name, nil
}

// HoneypotPinned reports whether the name comes from configuration.
func (s *Store) HoneypotPinned() bool { return s.fixedHoneypot != "" }

func (s *Store) cacheHoneypot(name string, at time.Time) {
	s.mu.Lock()
	s.honeypot, s.honeypotAt = name, at
	s.mu.Unlock()
}

// ----------------------------------------------------------------------------
// Challenge

// ChallengeToken returns the current token. A new one is generated when
// regenerate is set or none exists yet; regeneration invalidates the
// previous value immediately.
func (s *Store) ChallengeToken(ctx context.Context, regenerate bool) (ChallengeToken, error) {
	if !regenerate {
		raw, err := s.kv.Get(ctx, keyChallenge)
		switch {
		case err == nil:
			if tok, ok := decodeChallenge(raw); ok {
				return tok, nil
			}
			// Unreadable value: replace it.
			regenerate = true
		case !errors.Is(err, ErrNotFound):
			return ChallengeToken{}, fmt.Errorf("challenge token: %w", err)
		}
	}

	tok := ChallengeToken{Value: randomHex(16), IssuedAt: s.now().UTC().Truncate(time.Second)}
	if regenerate {
		if err := s.kv.Set(ctx, keyChallenge, encodeChallenge(tok)); err != nil {
			return ChallengeToken{}, fmt.Errorf("challenge token: %w", err)
		}
		return tok, nil
	}
	raw, err := s.createOnce(ctx, keyChallenge, encodeChallenge(tok))
	if err != nil {
		return ChallengeToken{}, fmt.Errorf("challenge token: %w", err)
	}
	if stored, ok := decodeChallenge(raw); ok {
		return stored, nil
	}
	return tok, nil
}

// CurrentChallenge returns the current challenge token value.
func (s *Store) CurrentChallenge(ctx context.Context) (string, error) {
	tok, err := s.ChallengeToken(ctx, false)
	return tok.Value, err
}

// IsStale reports whether tok has reached the maximum age.
func (s *Store) IsStale(tok ChallengeToken) bool {
	return s.now().Sub(tok.IssuedAt) >= s.maxAge
}

// RefreshIfStale returns the current token, rotating it first when stale.
// The second result reports whether a rotation happened.
func (s *Store) RefreshIfStale(ctx context.Context) (ChallengeToken, bool, error) {
	tok, err := s.ChallengeToken(ctx, false)
	if err != nil {
		return ChallengeToken{}, false, err
	}
	if !s.IsStale(tok) {
		return tok, false, nil
	}
	tok, err = s.ChallengeToken(ctx, true)
	return tok, err == nil, err
}

// ----------------------------------------------------------------------------
// Intent

// IssueIntent creates and stores a new intent token.
func (s *Store) IssueIntent(ctx context.Context) (IntentToken, error) {
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		tok := IntentToken{
			Value:     strings.ReplaceAll(uuid.NewString(), "-", "") + randomHex(8),
			ExpiresAt: s.now().UTC().Add(s.intentTTL),
		}
		if err = s.kv.PutIntent(ctx, tok.Value, s.intentTTL); err == nil {
			return tok, nil
		}
		if !errors.Is(err, ErrDuplicate) {
			break
		}
	}
	return IntentToken{}, fmt.Errorf("intent token: %w", err)
}

// ConsumeIntent takes token if it is live. Replays, unknown tokens and
// store errors all report false.
func (s *Store) ConsumeIntent(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	ok, err := s.kv.TakeIntent(ctx, token)
	if err != nil {
		s.log.Error().Err(err).Msg("intent token: take failed")
		return false
	}
	return ok
}

// ----------------------------------------------------------------------------
// Helpers

// createOnce stores value under key unless another writer got there first,
// and returns whichever value won.
func (s *Store) createOnce(ctx context.Context, key, value string) (string, error) {
	ok, err := s.kv.SetNX(ctx, key, value)
	if err != nil {
		return "", err
	}
	if ok {
		return value, nil
	}
	return s.kv.Get(ctx, key)
}

func encodeChallenge(t ChallengeToken) string {
	return t.Value + "|" + strconv.FormatInt(t.IssuedAt.Unix(), 10)
}

func decodeChallenge(raw string) (ChallengeToken, bool) {
	val, ts, ok := strings.Cut(raw, "|")
	if !ok || val == "" {
		return ChallengeToken{}, false
	}
	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ChallengeToken{}, false
	}
	return ChallengeToken{Value: val, IssuedAt: time.Unix(sec, 0).UTC()}, true
}

const alnum = "abcdefghijklmnopqrstuvwxyz0123456789"

func newHoneypotName() string {
	b := make([]byte, honeypotLen)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	for i := range b {
		b[i] = alnum[int(b[i])%len(alnum)]
	}
	return honeypotPrefix + string(b)
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
