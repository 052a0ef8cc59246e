package detect

import (
	"context"
	"errors"
	"sync"
)

var errStore = errors.New("store unavailable")

type staticHoneypot struct {
	name string
	err  error
}

func (h staticHoneypot) HoneypotFieldName(context.Context) (string, error) { return h.name, h.err }

type staticChallenge struct {
	value string
	err   error
}

func (c staticChallenge) CurrentChallenge(context.Context) (string, error) { return c.value, c.err }

type fakeGate struct{ blocked map[string]bool }

func (g fakeGate) IsBlocked(_ context.Context, ip string) bool { return g.blocked[ip] }

// fakeIntents is a single-use token set.
type fakeIntents struct {
	mu     sync.Mutex
	tokens map[string]bool
	calls  int
}

func newFakeIntents(tokens ...string) *fakeIntents {
	m := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		m[t] = true
	}
	return &fakeIntents{tokens: m}
}

func (f *fakeIntents) ConsumeIntent(_ context.Context, token string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.tokens[token] {
		delete(f.tokens, token)
		return true
	}
	return false
}

type recordingSink struct {
	mu      sync.Mutex
	records []Record
}

func (s *recordingSink) Record(_ context.Context, r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
}

type panicSink struct{}

func (panicSink) Record(context.Context, Record) { panic("sink exploded") }

type countingChecker struct{ calls int }

func (c *countingChecker) Name() string { return "counting" }
func (c *countingChecker) Check(context.Context, *Submission) []Failure {
	c.calls++
	return nil
}

type panickingChecker struct{}

func (panickingChecker) Name() string                                 { return "panicking" }
func (panickingChecker) Check(context.Context, *Submission) []Failure { panic("boom") }
