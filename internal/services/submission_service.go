// Package services – SubmissionService
//
// SubmissionService turns an inbound submission into a verdict by running it
// through the detection pipeline. It normalizes the source type, stamps the
// submission time and records a span plus a verdict counter per call.
package services

import (
	"context"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-form-guard/internal/detect"
)

var verdictsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "formguard_verdicts_total",
		Help: "Submission verdicts by source type and outcome.",
	},
	[]string{"type", "verdict"},
)

func init() {
	prometheus.MustRegister(verdictsTotal)
}

// Checker is the engine contract SubmissionService depends on.
type Checker interface {
	Check(ctx context.Context, s detect.Submission) detect.Verdict
}

// SubmissionInput is a submission as received from a host integration.
type SubmissionInput struct {
	Source    string
	Fields    map[string][]string
	ClientIP  string
	UserAgent string
	Cookies   map[string]string
}

// SubmissionService checks submissions.
type SubmissionService struct {
	Engine Checker
	Now    func() time.Time
}

// NewSubmissionService wires a SubmissionService around engine.
func NewSubmissionService(engine Checker) *SubmissionService {
	return &SubmissionService{Engine: engine, Now: time.Now}
}

// Check validates the input and returns the engine verdict. An empty source
// is treated as generic.
func (s *SubmissionService) Check(ctx context.Context, in SubmissionInput) (detect.Verdict, error) {
	tr := otel.Tracer("services/SubmissionService")
	ctx, span := tr.Start(ctx, "Check",
		trace.WithAttributes(
			attribute.String("submission.source", in.Source),
			attribute.Int("submission.fields", len(in.Fields)),
		),
	)
	defer span.End()

	src := detect.SourceType(strings.ToLower(strings.TrimSpace(in.Source)))
	if src == "" {
		src = detect.SourceGeneric
	}
	if !src.Valid() {
		return detect.Verdict{}, ErrInvalidSource
	}

	fields := in.Fields
	if fields == nil {
		fields = map[string][]string{}
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	v := s.Engine.Check(ctx, detect.Submission{
		Fields:    fields,
		Source:    src,
		ClientIP:  in.ClientIP,
		UserAgent: in.UserAgent,
		Timestamp: now().UTC(),
		Cookies:   in.Cookies,
	})

	outcome := "accept"
	if v.Reject {
		outcome = "reject"
		span.SetAttributes(attribute.String("verdict.reason", string(v.Reason)))
	}
	span.SetAttributes(attribute.String("verdict", outcome))
	verdictsTotal.WithLabelValues(string(src), outcome).Inc()
	return v, nil
}
