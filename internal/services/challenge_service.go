// Package services – ChallengeService
//
// ChallengeService serves the client-side proof protocol: the configuration
// object consumed by the browser script, the stale-only refresh endpoint,
// single-use login intent tokens and the honeypot field name, including its
// administrative regeneration.
package services

import (
	"context"
	"fmt"

	"github.com/tbourn/go-form-guard/internal/tokens"
)

// TokenStore is the subset of tokens.Store used by ChallengeService.
type TokenStore interface {
	HoneypotFieldName(ctx context.Context) (string, error)
	RegenerateHoneypot(ctx context.Context) (string, error)
	HoneypotPinned() bool
	ChallengeToken(ctx context.Context, regenerate bool) (tokens.ChallengeToken, error)
	RefreshIfStale(ctx context.Context) (tokens.ChallengeToken, bool, error)
	IssueIntent(ctx context.Context) (tokens.IntentToken, error)
}

// ClientConfig is the object handed to the browser script. Generated is the
// token issue time in epoch seconds.
type ClientConfig struct {
	Key       string `json:"key"                 example:"9f1c2b7e4d3a8f60b5e1c7d2a4f8e3b1"`
	Field     string `json:"field"               example:"formguard_key"`
	Selectors string `json:"selectors"           example:"form"`
	RestURL   string `json:"restUrl,omitempty"   example:"/api/v1/challenge/refresh"`
	RestNonce string `json:"restNonce,omitempty"`
	Generated int64  `json:"generated"           example:"1735689600"`
	MaxAge    int64  `json:"maxAge"              example:"43200"`
}

// ChallengeService issues and refreshes proof tokens.
type ChallengeService struct {
	Tokens     TokenStore
	Field      string
	Selectors  string
	RefreshURL string
	// MaxAgeSeconds is the age after which the script should refresh.
	MaxAgeSeconds int64
}

// ClientConfig returns the current challenge configuration.
func (s *ChallengeService) ClientConfig(ctx context.Context) (ClientConfig, error) {
	tok, err := s.Tokens.ChallengeToken(ctx, false)
	if err != nil {
		return ClientConfig{}, fmt.Errorf("%w: %v", ErrTokenUnavailable, err)
	}
	return s.config(tok), nil
}

// Refresh rotates the challenge token when it is stale and returns the
// resulting configuration. rotated reports whether a new token was issued.
func (s *ChallengeService) Refresh(ctx context.Context) (cfg ClientConfig, rotated bool, err error) {
	tok, rotated, err := s.Tokens.RefreshIfStale(ctx)
	if err != nil {
		return ClientConfig{}, false, fmt.Errorf("%w: %v", ErrTokenUnavailable, err)
	}
	return s.config(tok), rotated, nil
}

// IssueIntent creates a single-use login intent token.
func (s *ChallengeService) IssueIntent(ctx context.Context) (tokens.IntentToken, error) {
	it, err := s.Tokens.IssueIntent(ctx)
	if err != nil {
		return tokens.IntentToken{}, fmt.Errorf("%w: %v", ErrTokenUnavailable, err)
	}
	return it, nil
}

// Honeypot returns the current honeypot field name.
func (s *ChallengeService) Honeypot(ctx context.Context) (string, error) {
	name, err := s.Tokens.HoneypotFieldName(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenUnavailable, err)
	}
	return name, nil
}

// RegenerateHoneypot replaces the honeypot field name. Forms rendered with
// the old name start failing the honeypot check once the name changes.
func (s *ChallengeService) RegenerateHoneypot(ctx context.Context) (string, error) {
	if s.Tokens.HoneypotPinned() {
		return "", ErrHoneypotPinned
	}
	name, err := s.Tokens.RegenerateHoneypot(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenUnavailable, err)
	}
	return name, nil
}

func (s *ChallengeService) config(tok tokens.ChallengeToken) ClientConfig {
	return ClientConfig{
		Key:       tok.Value,
		Field:     s.Field,
		Selectors: s.Selectors,
		RestURL:   s.RefreshURL,
		Generated: tok.IssuedAt.Unix(),
		MaxAge:    s.MaxAgeSeconds,
	}
}
