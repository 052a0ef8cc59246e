// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the auto-block hit counter.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-form-guard/internal/domain"
)

// AddHit records one detection for ip at at.
func AddHit(ctx context.Context, db *gorm.DB, ip string, at time.Time) error {
	return db.WithContext(ctx).Create(&domain.DetectionHit{IP: ip, CreatedAt: at.UTC()}).Error
}

// CountHitsSince returns the number of hits for ip recorded at or after since.
func CountHitsSince(ctx context.Context, db *gorm.DB, ip string, since time.Time) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.DetectionHit{}).
		Where("ip = ? AND created_at >= ?", ip, since.UTC()).
		Count(&total).Error
	return total, err
}

// PurgeHitsBefore deletes hits recorded before cutoff.
func PurgeHitsBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("created_at < ?", cutoff.UTC()).
		Delete(&domain.DetectionHit{})
	return res.RowsAffected, res.Error
}
