package sink

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-form-guard/internal/detect"
	"github.com/tbourn/go-form-guard/internal/domain"
	"github.com/tbourn/go-form-guard/internal/repo"
)

// LogSink writes each record to the detection log table and to the
// structured log.
type LogSink struct {
	DB  *gorm.DB
	Log zerolog.Logger
}

func (s LogSink) Record(ctx context.Context, r detect.Record) {
	s.Log.Warn().
		Str("record_id", r.ID).
		Str("type", string(r.Type)).
		Str("ip", r.ClientIP).
		Str("reason", string(r.Reason())).
		Str("failed", detect.JoinFailures(r.Failed)).
		Msg("submission rejected")

	if s.DB == nil {
		return
	}
	if err := repo.CreateDetection(ctx, s.DB, ToDetection(r)); err != nil {
		s.Log.Error().Err(err).Str("record_id", r.ID).Msg("persist detection failed")
	}
}

// ToDetection maps a record onto the persisted detection row.
func ToDetection(r detect.Record) *domain.Detection {
	details, err := json.Marshal(r.Details)
	if err != nil {
		details = []byte("{}")
	}
	return &domain.Detection{
		ID:        r.ID,
		Type:      string(r.Type),
		IP:        r.ClientIP,
		Reason:    string(r.Reason()),
		Failed:    detect.JoinFailures(r.Failed),
		Details:   string(details),
		CreatedAt: r.Timestamp.UTC(),
	}
}
