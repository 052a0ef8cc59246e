// Package match provides the disallowed-term matchers used by the content
// checker. Matching strategy is pluggable:
//
//   - "substring": a term matches anywhere in the text
//   - "word": a term matches whole words only (multi-word terms match a phrase)
//   - "regex": each term is a regular expression
//
// All modes compare Unicode case-folded, NFKC-normalized text, so "ＶＩＡＧＲＡ"
// and "viagra" are the same term. Matchers are immutable after construction
// and safe for concurrent use.
package match

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Matching modes accepted by New.
const (
	ModeSubstring = "substring"
	ModeWord      = "word"
	ModeRegex     = "regex"
)

// Matcher reports the first configured term found in text.
type Matcher interface {
	Match(text string) (term string, ok bool)
}

// Func adapts a plain function to Matcher.
type Func func(text string) (string, bool)

// Match calls f(text).
func (f Func) Match(text string) (string, bool) { return f(text) }

// Nop never matches.
var Nop Matcher = Func(func(string) (string, bool) { return "", false })

// ----------------------------------------------------------------------------
// Options

type Option func(*config)

type config struct {
	minTermRunes int
	maxTerms     int
}

func defaultConfig() config {
	return config{
		minTermRunes: 1,
		maxTerms:     0,
	}
}

// WithMinTermRunes drops terms shorter than n runes after normalization.
func WithMinTermRunes(n int) Option {
	return func(c *config) {
		if n >= 1 {
			c.minTermRunes = n
		}
	}
}

// WithMaxTerms caps the number of terms kept (0 = unlimited).
func WithMaxTerms(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxTerms = n
		}
	}
}

// ----------------------------------------------------------------------------
// Construction

// New builds a Matcher for mode over terms. Blank and duplicate terms are
// ignored; an empty term list yields Nop. Regex mode fails on the first
// pattern that does not compile.
func New(mode string, terms []string, opts ...Option) (Matcher, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}

	clean := prepareTerms(terms, cfg, mode != ModeRegex)
	if len(clean) == 0 {
		switch mode {
		case ModeSubstring, ModeWord, ModeRegex, "":
			return Nop, nil
		}
	}

	switch mode {
	case ModeSubstring, "":
		return substringMatcher{terms: clean}, nil
	case ModeWord:
		m := wordMatcher{terms: make([]wordTerm, 0, len(clean))}
		for _, t := range clean {
			if words := tokenize(t); len(words) > 0 {
				m.terms = append(m.terms, wordTerm{raw: t, words: words})
			}
		}
		return m, nil
	case ModeRegex:
		m := regexMatcher{terms: make([]regexTerm, 0, len(clean))}
		for _, t := range clean {
			re, err := regexp.Compile("(?i)" + t)
			if err != nil {
				return nil, fmt.Errorf("match: term %q: %w", t, err)
			}
			m.terms = append(m.terms, regexTerm{raw: t, re: re})
		}
		return m, nil
	default:
		return nil, fmt.Errorf("match: unknown mode %q", mode)
	}
}

func prepareTerms(in []string, cfg config, fold bool) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, raw := range in {
		t := strings.TrimSpace(normalizeWhitespace(raw))
		if fold {
			t = Fold(t)
		}
		if t == "" || utf8.RuneCountInString(t) < cfg.minTermRunes {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
		if cfg.maxTerms > 0 && len(out) >= cfg.maxTerms {
			break
		}
	}
	return out
}

// ----------------------------------------------------------------------------
// Implementations

type substringMatcher struct{ terms []string }

func (m substringMatcher) Match(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	s := Fold(text)
	for _, t := range m.terms {
		if strings.Contains(s, t) {
			return t, true
		}
	}
	return "", false
}

type wordTerm struct {
	raw   string
	words []string
}

type wordMatcher struct{ terms []wordTerm }

func (m wordMatcher) Match(text string) (string, bool) {
	words := tokenize(Fold(text))
	if len(words) == 0 {
		return "", false
	}
	for _, t := range m.terms {
		if containsRun(words, t.words) {
			return t.raw, true
		}
	}
	return "", false
}

type regexTerm struct {
	raw string
	re  *regexp.Regexp
}

type regexMatcher struct{ terms []regexTerm }

func (m regexMatcher) Match(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	s := norm.NFKC.String(text)
	for _, t := range m.terms {
		if t.re.MatchString(s) {
			return t.raw, true
		}
	}
	return "", false
}

// ----------------------------------------------------------------------------
// Helpers

// Fold returns s NFKC-normalized and Unicode case-folded.
func Fold(s string) string {
	if s == "" {
		return ""
	}
	return cases.Fold().String(norm.NFKC.String(s))
}

var wordRE = regexp.MustCompile(`[\p{L}\p{N}]+`)

func tokenize(s string) []string {
	return wordRE.FindAllString(s, -1)
}

// containsRun reports whether needle occurs as a contiguous run in hay.
func containsRun(hay, needle []string) bool {
	if len(needle) == 0 || len(needle) > len(hay) {
		return false
	}
outer:
	for i := 0; i+len(needle) <= len(hay); i++ {
		for j, w := range needle {
			if hay[i+j] != w {
				continue outer
			}
		}
		return true
	}
	return false
}

func normalizeWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\r' || r == '\n' {
			if !prevSpace {
				b.WriteByte(' ')
				prevSpace = true
			}
			continue
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
