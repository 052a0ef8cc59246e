package detect

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-form-guard/internal/match"
)

// Checker is one independent signal check. It returns every failure it
// found; nil means pass. Checkers never fail the pipeline: a backing store
// error is logged and treated as a pass.
type Checker interface {
	Name() string
	Check(ctx context.Context, s *Submission) []Failure
}

// HoneypotSource yields the current honeypot field name.
type HoneypotSource interface {
	HoneypotFieldName(ctx context.Context) (string, error)
}

// ChallengeSource yields the current challenge token value.
type ChallengeSource interface {
	CurrentChallenge(ctx context.Context) (string, error)
}

// DomainList answers whether an email domain is blocked.
type DomainList interface {
	Blocked(ctx context.Context, domain string) (bool, error)
}

// ----------------------------------------------------------------------------
// Honeypot

// HoneypotChecker fails when the honeypot field is present and non-empty.
type HoneypotChecker struct {
	Source HoneypotSource
	Log    zerolog.Logger
}

func (HoneypotChecker) Name() string { return "honeypot" }

func (c HoneypotChecker) Check(ctx context.Context, s *Submission) []Failure {
	name, err := c.Source.HoneypotFieldName(ctx)
	if err != nil {
		c.Log.Error().Err(err).Msg("honeypot: field name unavailable, skipping")
		return nil
	}
	if name != "" && s.Filled(name) {
		return []Failure{FailHoneypot}
	}
	return nil
}

// ----------------------------------------------------------------------------
// Email fields

// EmailFields lists, per source type, the fields that may carry the
// submitter's email address. The first non-empty one is used.
type EmailFields map[SourceType][]string

// DefaultEmailFields follows the field names of the common form integrations.
func DefaultEmailFields() EmailFields {
	return EmailFields{
		SourceComment:      {"email", "comment_author_email"},
		SourceRegistration: {"user_email", "email"},
		SourceContactForm:  {"email", "your-email"},
		SourceGeneric:      {"email"},
	}
}

// Lookup returns the email value of s, if any.
func (e EmailFields) Lookup(s *Submission) string {
	return strings.TrimSpace(s.First(e[s.Source]...))
}

var validate = validator.New()

// IsEmail reports whether addr is a syntactically valid email address.
func IsEmail(addr string) bool {
	if len(addr) < 6 || strings.Count(addr, "@") != 1 {
		return false
	}
	return validate.Var(addr, "email") == nil
}

// EmailDomain returns the normalized domain of addr: the text after the last
// '@', trimmed and case-folded.
func EmailDomain(addr string) string {
	i := strings.LastIndexByte(addr, '@')
	if i < 0 {
		return ""
	}
	d := strings.TrimSpace(addr[i+1:])
	return strings.TrimSuffix(match.Fold(d), ".")
}

// ----------------------------------------------------------------------------
// Email syntax

// EmailSyntaxChecker fails when the email field is non-empty and malformed.
type EmailSyntaxChecker struct {
	Fields EmailFields
}

func (EmailSyntaxChecker) Name() string { return "email" }

func (c EmailSyntaxChecker) Check(_ context.Context, s *Submission) []Failure {
	addr := c.Fields.Lookup(s)
	if addr == "" || IsEmail(addr) {
		return nil
	}
	return []Failure{FailInvalidEmail}
}

// ----------------------------------------------------------------------------
// Blocked domain

// DomainSet is a static DomainList.
type DomainSet map[string]struct{}

// NewDomainSet normalizes domains into a set.
func NewDomainSet(domains []string) DomainSet {
	set := make(DomainSet, len(domains))
	for _, d := range domains {
		d = strings.TrimSuffix(match.Fold(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(d), "@"))), ".")
		if d != "" {
			set[d] = struct{}{}
		}
	}
	return set
}

// Blocked reports whether domain is in the set.
func (d DomainSet) Blocked(_ context.Context, domain string) (bool, error) {
	_, ok := d[domain]
	return ok, nil
}

// BlockedDomainChecker fails when the email's domain is on the block list.
type BlockedDomainChecker struct {
	Fields  EmailFields
	Domains DomainList
	Log     zerolog.Logger
}

func (BlockedDomainChecker) Name() string { return "blocked_domain" }

func (c BlockedDomainChecker) Check(ctx context.Context, s *Submission) []Failure {
	domain := EmailDomain(c.Fields.Lookup(s))
	if domain == "" || c.Domains == nil {
		return nil
	}
	blocked, err := c.Domains.Blocked(ctx, domain)
	if err != nil {
		c.Log.Error().Err(err).Msg("blocked_domain: list unavailable, skipping")
		return nil
	}
	if blocked {
		return []Failure{FailBlockedEmailDomain}
	}
	return nil
}

// ----------------------------------------------------------------------------
// Disallowed content

// ContentFields names the submission fields inspected for disallowed terms.
type ContentFields struct {
	Author  []string
	URL     []string
	Content []string
	Email   EmailFields
}

// DefaultContentFields follows the field names of the common form integrations.
func DefaultContentFields() ContentFields {
	return ContentFields{
		Author:  []string{"author", "comment_author", "user_login", "name", "your-name"},
		URL:     []string{"url", "comment_author_url"},
		Content: []string{"comment", "comment_content", "message", "your-message"},
		Email:   DefaultEmailFields(),
	}
}

// DisallowedContentChecker fails when the author, email, URL, content, client
// IP or user agent matches a disallowed term. It emits at most one failure.
type DisallowedContentChecker struct {
	Fields  ContentFields
	Matcher match.Matcher
	Log     zerolog.Logger
}

func (DisallowedContentChecker) Name() string { return "disallowed" }

func (c DisallowedContentChecker) Check(_ context.Context, s *Submission) []Failure {
	if c.Matcher == nil {
		return nil
	}
	candidates := []string{
		s.First(c.Fields.Author...),
		c.Fields.Email.Lookup(s),
		s.First(c.Fields.URL...),
		s.ClientIP,
		s.UserAgent,
	}
	for _, n := range c.Fields.Content {
		candidates = append(candidates, s.Fields[n]...)
	}
	for _, v := range candidates {
		if v == "" {
			continue
		}
		if term, ok := c.Matcher.Match(v); ok {
			c.Log.Debug().Str("term", term).Msg("disallowed: term matched")
			return []Failure{FailDisallowedList}
		}
	}
	return nil
}

// ----------------------------------------------------------------------------
// Challenge token

// ChallengeTokenChecker compares the hidden challenge field with the current
// token. An absent or empty field is missing; any other mismatch is invalid.
type ChallengeTokenChecker struct {
	Field  string
	Source ChallengeSource
	Log    zerolog.Logger
}

func (ChallengeTokenChecker) Name() string { return "challenge" }

func (c ChallengeTokenChecker) Check(ctx context.Context, s *Submission) []Failure {
	got, _ := s.Value(c.Field)
	if got == "" {
		return []Failure{FailChallengeTokenMissing}
	}
	want, err := c.Source.CurrentChallenge(ctx)
	if err != nil || want == "" {
		c.Log.Error().Err(err).Msg("challenge: token unavailable, skipping")
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
		return []Failure{FailChallengeTokenInvalid}
	}
	return nil
}
