package detect

import (
	"strings"
	"time"
)

// Failure tags a failed check.
type Failure string

const (
	FailHoneypot              Failure = "honeypot"
	FailInvalidEmail          Failure = "invalid_email"
	FailBlockedEmailDomain    Failure = "blocked_email_domain"
	FailDisallowedList        Failure = "disallowed_list"
	FailChallengeTokenMissing Failure = "challenge_token_missing"
	FailChallengeTokenInvalid Failure = "challenge_token_invalid"

	// ReasonBlockedIP is the verdict reason of the block gate. It is never
	// produced by a checker and never recorded.
	ReasonBlockedIP Failure = "blocked_ip"
)

// Missing reports whether f means a proof field was absent, as opposed to
// present but wrong.
func (f Failure) Missing() bool {
	return f == FailChallengeTokenMissing
}

func onlyMissing(fs []Failure) bool {
	if len(fs) == 0 {
		return false
	}
	for _, f := range fs {
		if !f.Missing() {
			return false
		}
	}
	return true
}

// JoinFailures renders fs comma-separated, in order.
func JoinFailures(fs []Failure) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = string(f)
	}
	return strings.Join(parts, ",")
}

// Verdict is the outcome handed back to the caller.
type Verdict struct {
	Reject  bool
	Reason  Failure
	Message string
}

// Accepted reports whether the submission may proceed.
func (v Verdict) Accepted() bool { return !v.Reject }

// Record describes one rejected submission. It is immutable once built.
type Record struct {
	ID        string
	Type      SourceType
	Failed    []Failure
	Details   map[string][]string
	ClientIP  string
	UserAgent string
	Timestamp time.Time
}

// Reason returns the failure that decided the verdict.
func (r Record) Reason() Failure {
	if len(r.Failed) == 0 {
		return ""
	}
	return r.Failed[0]
}

// Messages maps failure reasons to the text shown to the submitter.
type Messages struct {
	ByReason map[Failure]string
	Default  string
}

// For returns the message for reason, falling back to Default.
func (m Messages) For(reason Failure) string {
	if msg, ok := m.ByReason[reason]; ok && msg != "" {
		return msg
	}
	return m.Default
}
