package detect

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// BlockGate answers whether a client address is blocked. Implementations
// fail open.
type BlockGate interface {
	IsBlocked(ctx context.Context, ip string) bool
}

// IntentConsumer atomically takes a single-use intent token.
type IntentConsumer interface {
	ConsumeIntent(ctx context.Context, token string) bool
}

// Sink receives every rejection record. It runs after the verdict is
// decided and cannot change it.
type Sink interface {
	Record(ctx context.Context, r Record)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithGate sets the block gate consulted before any checker runs.
func WithGate(g BlockGate) Option { return func(p *Pipeline) { p.gate = g } }

// WithIntents enables the login intent override.
func WithIntents(ic IntentConsumer) Option { return func(p *Pipeline) { p.intents = ic } }

// WithIntentCookie sets the cookie that carries the intent token.
func WithIntentCookie(name string) Option {
	return func(p *Pipeline) {
		if name != "" {
			p.intentCookie = name
		}
	}
}

// WithSink sets the detection sink.
func WithSink(s Sink) Option { return func(p *Pipeline) { p.sink = s } }

// WithMessages sets the per-reason reject messages.
func WithMessages(m Messages) Option { return func(p *Pipeline) { p.messages = m } }

// WithLogger sets the pipeline logger.
func WithLogger(l zerolog.Logger) Option { return func(p *Pipeline) { p.log = l } }

// WithRedactFields adds fields whose values are masked in record details.
func WithRedactFields(names ...string) Option {
	return func(p *Pipeline) {
		for _, n := range names {
			if n != "" {
				p.redact[n] = struct{}{}
			}
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// Pipeline orchestrates the checks for one submission at a time. It holds no
// per-submission state and is safe for concurrent use.
type Pipeline struct {
	checkers     []Checker
	gate         BlockGate
	intents      IntentConsumer
	intentCookie string
	sink         Sink
	messages     Messages
	redact       map[string]struct{}
	log          zerolog.Logger
	now          func() time.Time
}

// DefaultIntentCookie is the cookie carrying the login intent token.
const DefaultIntentCookie = "formguard_intent"

// New builds a Pipeline that runs checkers in the given order.
func New(checkers []Checker, opts ...Option) *Pipeline {
	p := &Pipeline{
		checkers:     append([]Checker(nil), checkers...),
		intentCookie: DefaultIntentCookie,
		redact:       make(map[string]struct{}),
		log:          zerolog.Nop(),
		now:          time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Checkers returns the names of the configured checkers, in order.
func (p *Pipeline) Checkers() []string {
	out := make([]string, len(p.checkers))
	for i, c := range p.checkers {
		out[i] = c.Name()
	}
	return out
}

// Check runs the pipeline: block gate, every checker, the login intent
// override, the decision, and finally the sink for rejections.
func (p *Pipeline) Check(ctx context.Context, s Submission) Verdict {
	if s.Timestamp.IsZero() {
		s.Timestamp = p.now().UTC()
	}

	if p.gate != nil && s.ClientIP != "" && p.gate.IsBlocked(ctx, s.ClientIP) {
		p.log.Info().Str("ip", s.ClientIP).Str("type", string(s.Source)).Msg("submission from blocked address")
		return Verdict{Reject: true, Reason: ReasonBlockedIP, Message: p.messages.For(ReasonBlockedIP)}
	}

	var failed []Failure
	for _, c := range p.checkers {
		failed = append(failed, p.run(ctx, c, &s)...)
	}

	if s.Source == SourceLogin && onlyMissing(failed) && p.consumeIntent(ctx, &s) {
		p.log.Debug().Str("ip", s.ClientIP).Msg("missing proof excused by intent token")
		failed = nil
	}

	if len(failed) == 0 {
		return Verdict{}
	}

	v := Verdict{Reject: true, Reason: failed[0], Message: p.messages.For(failed[0])}
	p.emit(ctx, Record{
		ID:        uuid.NewString(),
		Type:      s.Source,
		Failed:    failed,
		Details:   p.snapshot(&s),
		ClientIP:  s.ClientIP,
		UserAgent: s.UserAgent,
		Timestamp: s.Timestamp,
	})
	return v
}

// run isolates a checker panic so one broken signal fails open.
func (p *Pipeline) run(ctx context.Context, c Checker, s *Submission) (out []Failure) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Interface("panic", r).Str("checker", c.Name()).Msg("checker panicked, skipping")
			out = nil
		}
	}()
	return c.Check(ctx, s)
}

func (p *Pipeline) consumeIntent(ctx context.Context, s *Submission) bool {
	if p.intents == nil {
		return false
	}
	tok := s.Cookies[p.intentCookie]
	if tok == "" {
		return false
	}
	return p.intents.ConsumeIntent(ctx, tok)
}

func (p *Pipeline) emit(ctx context.Context, r Record) {
	if p.sink == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			p.log.Error().Interface("panic", rec).Msg("detection sink panicked")
		}
	}()
	p.sink.Record(ctx, r)
}
