// Package detect is the spam detection engine. A Pipeline runs an ordered
// list of Checkers against a Submission, decides a Verdict and hands a
// Record of every rejection to a Sink.
//
// The engine has no global state: everything it reads (token sources, block
// gate, messages) is injected at construction time.
package detect

import "time"

// SourceType identifies the integration a submission came from.
type SourceType string

const (
	SourceComment      SourceType = "comment"
	SourceRegistration SourceType = "registration"
	SourceLogin        SourceType = "login"
	SourceContactForm  SourceType = "contact-form"
	SourceGeneric      SourceType = "generic"
)

// Valid reports whether s is a known source type.
func (s SourceType) Valid() bool {
	switch s {
	case SourceComment, SourceRegistration, SourceLogin, SourceContactForm, SourceGeneric:
		return true
	}
	return false
}

// Submission is the normalized view of one form submission. It is built per
// request and never persisted.
type Submission struct {
	Fields    map[string][]string
	Source    SourceType
	ClientIP  string
	UserAgent string
	Timestamp time.Time
	Cookies   map[string]string
}

// Value returns the first value of field name and whether the field was
// present at all. A present field may still carry an empty value.
func (s *Submission) Value(name string) (string, bool) {
	vals, ok := s.Fields[name]
	if !ok {
		return "", false
	}
	if len(vals) == 0 {
		return "", true
	}
	return vals[0], true
}

// Filled reports whether any value of field name is non-empty.
func (s *Submission) Filled(name string) bool {
	for _, v := range s.Fields[name] {
		if v != "" {
			return true
		}
	}
	return false
}

// First returns the first non-empty value among names.
func (s *Submission) First(names ...string) string {
	for _, n := range names {
		for _, v := range s.Fields[n] {
			if v != "" {
				return v
			}
		}
	}
	return ""
}
