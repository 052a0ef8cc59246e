// Package services – DetectionService
//
// DetectionService exposes the persisted detection log for administration:
// paginated listing, optionally filtered by client address, and a cheap
// stats query used to build conditional-request validators.
package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-form-guard/internal/clientip"
	"github.com/tbourn/go-form-guard/internal/domain"
	"github.com/tbourn/go-form-guard/internal/repo"
	"github.com/tbourn/go-form-guard/internal/utils"
)

// DetectionService reads the detection log.
type DetectionService struct {
	DB *gorm.DB
}

// normalizeIP canonicalizes an optional address filter.
func normalizeIP(ip string) (string, error) {
	if ip == "" {
		return "", nil
	}
	c, ok := clientip.Canonical(ip)
	if !ok {
		return "", ErrInvalidIP
	}
	return c, nil
}

// ListPage returns a page of detections (newest first) and the total count.
func (s *DetectionService) ListPage(ctx context.Context, ip string, page, pageSize int) ([]domain.Detection, int64, error) {
	tr := otel.Tracer("services/DetectionService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	ip, err := normalizeIP(ip)
	if err != nil {
		return nil, 0, err
	}
	page, pageSize = utils.Clamp(page, pageSize, 20)
	offset := (page - 1) * pageSize

	total, err := repo.CountDetections(ctx, s.DB, ip)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Detection{}, 0, nil
	}
	items, err := repo.ListDetectionsPage(ctx, s.DB, ip, offset, pageSize)
	return items, total, err
}

// Stats returns the number of detections and the newest timestamp for the
// (optional) address filter.
func (s *DetectionService) Stats(ctx context.Context, ip string) (int64, *time.Time, error) {
	ip, err := normalizeIP(ip)
	if err != nil {
		return 0, nil, err
	}
	return repo.DetectionsStats(ctx, s.DB, ip)
}
