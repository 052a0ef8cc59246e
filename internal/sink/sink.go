// Package sink implements the consumers of detection records: the SQL
// detection log, an optional MongoDB log, an external sharing channel,
// Prometheus counters and the auto-block hook. Multi fans a record out to
// several of them; a failing consumer never affects the others.
package sink

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-form-guard/internal/detect"
)

// Multi delivers each record to every child sink in order.
type Multi struct {
	Sinks []detect.Sink
	Log   zerolog.Logger
}

// NewMulti drops nil sinks.
func NewMulti(log zerolog.Logger, sinks ...detect.Sink) *Multi {
	m := &Multi{Log: log}
	for _, s := range sinks {
		if s != nil {
			m.Sinks = append(m.Sinks, s)
		}
	}
	return m
}

func (m *Multi) Record(ctx context.Context, r detect.Record) {
	for _, s := range m.Sinks {
		m.deliver(ctx, s, r)
	}
}

func (m *Multi) deliver(ctx context.Context, s detect.Sink, r detect.Record) {
	defer func() {
		if rec := recover(); rec != nil {
			m.Log.Error().Interface("panic", rec).Str("record_id", r.ID).Msg("detection sink panicked")
		}
	}()
	s.Record(ctx, r)
}

// AutoBlocker is the part of the block policy the auto-block sink needs.
type AutoBlocker interface {
	RecordDetectionForAutoBlock(ctx context.Context, ip string)
}

// AutoBlockSink feeds every detection to the auto-block policy.
type AutoBlockSink struct {
	Policy AutoBlocker
}

func (a AutoBlockSink) Record(ctx context.Context, r detect.Record) {
	if a.Policy == nil || r.ClientIP == "" {
		return
	}
	a.Policy.RecordDetectionForAutoBlock(ctx, r.ClientIP)
}
