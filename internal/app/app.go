// Package app assembles the form guard service from configuration: token
// store, block policy, checkers, detection sinks, the pipeline, services and
// HTTP handlers. cmd/formguard owns the process lifecycle around it.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"github.com/tbourn/go-form-guard/internal/clientip"
	"github.com/tbourn/go-form-guard/internal/config"
	"github.com/tbourn/go-form-guard/internal/detect"
	"github.com/tbourn/go-form-guard/internal/http/handlers"
	"github.com/tbourn/go-form-guard/internal/match"
	"github.com/tbourn/go-form-guard/internal/policy"
	"github.com/tbourn/go-form-guard/internal/services"
	"github.com/tbourn/go-form-guard/internal/sink"
	"github.com/tbourn/go-form-guard/internal/tokens"
)

// Backends carries the optional external stores. Nil fields fall back to
// the relational database or disable the feature.
type Backends struct {
	Redis redis.UniversalClient // token KV; nil keeps tokens in SQL
	Mongo *mongo.Collection     // detection document sink; nil disables it
}

// App is the wired service.
type App struct {
	Handlers *handlers.Handlers
	Resolver *clientip.Resolver
	Pipeline *detect.Pipeline
	Tokens   *tokens.Store
	Policy   *policy.Policy
	// Share is nil unless SHARE_DETECTIONS is on. Its Run loop must be started
	// by the caller.
	Share *sink.ShareSink

	sqlKV *tokens.SQLKV
	log   zerolog.Logger
}

// Build wires an App over db.
func Build(cfg config.Config, db *gorm.DB, b Backends, log zerolog.Logger) (*App, error) {
	a := &App{log: log}

	resolver, err := clientip.New(cfg.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	a.Resolver = resolver

	var kv tokens.KV
	if b.Redis != nil {
		kv = tokens.NewRedisKV(b.Redis)
	} else {
		a.sqlKV = &tokens.SQLKV{DB: db}
		kv = a.sqlKV
	}
	a.Tokens = tokens.New(kv,
		tokens.WithMaxAge(cfg.Detection.ChallengeMaxAge),
		tokens.WithIntentTTL(cfg.Detection.IntentTTL),
		tokens.WithHoneypotField(cfg.Detection.HoneypotField),
		tokens.WithLogger(log.With().Str("component", "tokens").Logger()),
	)

	a.Policy = policy.New(db, log.With().Str("component", "policy").Logger())
	if cfg.AutoBlock.Enabled {
		a.Policy.Auto = policy.ThresholdAutoBlock{
			DB:        db,
			Threshold: cfg.AutoBlock.Threshold,
			Window:    cfg.AutoBlock.Window,
			Duration:  cfg.AutoBlock.Duration,
			Permanent: cfg.AutoBlock.Permanent,
		}
	}

	checkers, err := buildCheckers(cfg.Detection, a.Tokens, log)
	if err != nil {
		return nil, err
	}

	sinks := []detect.Sink{sink.MetricsSink{}}
	if cfg.Detection.LogDetections {
		sinks = append(sinks, sink.LogSink{DB: db, Log: log})
	}
	if b.Mongo != nil {
		sinks = append(sinks, sink.MongoSink{Coll: b.Mongo, Log: log})
	}
	if cfg.Detection.ShareDetections {
		share, err := sink.NewShareSink(cfg.Share.Endpoint, cfg.Share.Secret, cfg.Share.Timeout, log)
		if err != nil {
			return nil, err
		}
		a.Share = share
		sinks = append(sinks, a.Share)
	}
	if cfg.AutoBlock.Enabled {
		sinks = append(sinks, sink.AutoBlockSink{Policy: a.Policy})
	}

	redact := append([]string{cfg.Detection.ChallengeField}, cfg.Detection.RedactFields...)
	a.Pipeline = detect.New(checkers,
		detect.WithGate(a.Policy),
		detect.WithIntents(a.Tokens),
		detect.WithIntentCookie(cfg.Detection.IntentCookie),
		detect.WithSink(sink.NewMulti(log, sinks...)),
		detect.WithMessages(messages(cfg.Detection)),
		detect.WithRedactFields(redact...),
		detect.WithLogger(log.With().Str("component", "pipeline").Logger()),
	)

	a.Handlers = handlers.New(handlers.Deps{
		Submissions: services.NewSubmissionService(a.Pipeline),
		Detections:  &services.DetectionService{DB: db},
		Blocks:      &services.BlockService{Policy: a.Policy},
		Challenge: &services.ChallengeService{
			Tokens:        a.Tokens,
			Field:         cfg.Detection.ChallengeField,
			Selectors:     cfg.Detection.FormSelectors,
			RefreshURL:    refreshURL(cfg.APIBasePath),
			MaxAgeSeconds: int64(a.Tokens.MaxAge() / time.Second),
		},
		IntentCookie: cfg.Detection.IntentCookie,
		SecureCookie: cfg.Security.EnableHSTS,
	})

	log.Info().
		Strs("checks", a.Pipeline.Checkers()).
		Bool("redis", b.Redis != nil).
		Bool("mongo", b.Mongo != nil).
		Bool("share", a.Share != nil).
		Bool("auto_block", cfg.AutoBlock.Enabled).
		Msg("detection pipeline ready")
	return a, nil
}

// buildCheckers instantiates the enabled checkers in configured order.
func buildCheckers(d config.DetectionConfig, store *tokens.Store, log zerolog.Logger) ([]detect.Checker, error) {
	out := make([]detect.Checker, 0, len(d.Checks))
	for _, name := range d.Checks {
		switch name {
		case "honeypot":
			out = append(out, detect.HoneypotChecker{Source: store, Log: log})
		case "challenge":
			out = append(out, detect.ChallengeTokenChecker{Field: d.ChallengeField, Source: store, Log: log})
		case "email":
			out = append(out, detect.EmailSyntaxChecker{Fields: detect.DefaultEmailFields()})
		case "blocked_domain":
			out = append(out, detect.BlockedDomainChecker{
				Fields:  detect.DefaultEmailFields(),
				Domains: detect.NewDomainSet(d.BlockedDomains),
				Log:     log,
			})
		case "disallowed":
			m, err := disallowedMatcher(d)
			if err != nil {
				return nil, err
			}
			out = append(out, detect.DisallowedContentChecker{
				Fields:  detect.DefaultContentFields(),
				Matcher: m,
				Log:     log,
			})
		default:
			return nil, fmt.Errorf("unknown check %q", name)
		}
	}
	return out, nil
}

func disallowedMatcher(d config.DetectionConfig) (match.Matcher, error) {
	terms := append([]string(nil), d.DisallowedTerms...)
	if d.DisallowedFile != "" {
		more, err := match.LoadTerms(d.DisallowedFile)
		if err != nil {
			return nil, fmt.Errorf("disallowed terms file: %w", err)
		}
		terms = append(terms, more...)
	}
	m, err := match.New(d.MatchMode, terms,
		match.WithMinTermRunes(d.MinTermRunes),
		match.WithMaxTerms(d.MaxTerms),
	)
	if err != nil {
		return nil, fmt.Errorf("disallowed terms: %w", err)
	}
	return m, nil
}

func messages(d config.DetectionConfig) detect.Messages {
	m := detect.Messages{ByReason: make(map[detect.Failure]string, len(d.Messages)), Default: d.DefaultMessage}
	for reason, msg := range d.Messages {
		m.ByReason[detect.Failure(reason)] = msg
	}
	return m
}

func refreshURL(base string) string {
	if base == "" || base == "/" {
		return "/challenge/refresh"
	}
	return base + "/challenge/refresh"
}

// Purge sweeps expired blocks and SQL-held intent tokens.
func (a *App) Purge(ctx context.Context) {
	if n, err := a.Policy.PurgeExpired(ctx); err != nil {
		a.log.Error().Err(err).Msg("purge blocks failed")
	} else if n > 0 {
		a.log.Info().Int64("removed", n).Msg("expired blocks purged")
	}
	if a.sqlKV == nil {
		return
	}
	if n, err := a.sqlKV.PurgeExpired(ctx); err != nil {
		a.log.Error().Err(err).Msg("purge intent tokens failed")
	} else if n > 0 {
		a.log.Debug().Int64("removed", n).Msg("expired intent tokens purged")
	}
}

// RunJanitor calls Purge every interval until ctx is done.
func (a *App) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			a.Purge(ctx)
		}
	}
}
