package sink

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tbourn/go-form-guard/internal/detect"
)

var detectionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "formguard_detections_total",
		Help: "Rejected submissions by source type and failure reason.",
	},
	[]string{"type", "reason"},
)

func init() {
	prometheus.MustRegister(detectionsTotal)
}

// MetricsSink counts detections per failure tag.
type MetricsSink struct{}

func (MetricsSink) Record(_ context.Context, r detect.Record) {
	for _, f := range r.Failed {
		detectionsTotal.WithLabelValues(string(r.Type), string(f)).Inc()
	}
}
