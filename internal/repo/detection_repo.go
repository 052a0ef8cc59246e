// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the detection
// log.
//
// Functions:
//
//   - CreateDetection(ctx, db, d) -> error
//     Inserts a detection, assigning an ID and timestamp when missing.
//
//   - ListDetectionsPage(ctx, db, ip, offset, limit) -> []domain.Detection, error
//     Newest first; an empty ip lists every address.
//
//   - CountDetections(ctx, db, ip) -> int64, error
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-form-guard/internal/domain"
)

// CreateDetection inserts d. ID and CreatedAt are filled when zero.
func CreateDetection(ctx context.Context, db *gorm.DB, d *domain.Detection) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(d).Error
}

func detectionsScope(ctx context.Context, db *gorm.DB, ip string) *gorm.DB {
	q := db.WithContext(ctx).Model(&domain.Detection{})
	if ip != "" {
		q = q.Where("ip = ?", ip)
	}
	return q
}

// ListDetectionsPage returns a page of detections, newest first.
func ListDetectionsPage(ctx context.Context, db *gorm.DB, ip string, offset, limit int) ([]domain.Detection, error) {
	var out []domain.Detection
	err := detectionsScope(ctx, db, ip).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountDetections returns the number of detections for ip (all when empty).
func CountDetections(ctx context.Context, db *gorm.DB, ip string) (int64, error) {
	var total int64
	err := detectionsScope(ctx, db, ip).Count(&total).Error
	return total, err
}
