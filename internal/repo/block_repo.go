// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for BlockEntry.
//
// The blocks table holds at most one row per IP. UpsertBlock replaces the
// existing row's kind, window and reason while keeping its ID and CreatedAt.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-form-guard/internal/domain"
)

// GetBlock fetches the entry for ip, or ErrNotFound.
func GetBlock(ctx context.Context, db *gorm.DB, ip string) (*domain.BlockEntry, error) {
	var b domain.BlockEntry
	if err := db.WithContext(ctx).Where("ip = ?", ip).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// UpsertBlock inserts or replaces the entry keyed by b.IP and returns the
// stored row.
func UpsertBlock(ctx context.Context, db *gorm.DB, b domain.BlockEntry) (*domain.BlockEntry, error) {
	now := time.Now().UTC()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.CreatedAt = now
	b.UpdatedAt = now
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "ip"}},
			DoUpdates: clause.AssignmentColumns([]string{"kind", "starts_at", "ends_at", "reason", "updated_at"}),
		}).
		Create(&b).Error
	if err != nil {
		return nil, err
	}
	return GetBlock(ctx, db, b.IP)
}

// DeleteBlock removes the entry for ip. It returns ErrNotFound when no row
// was deleted.
func DeleteBlock(ctx context.Context, db *gorm.DB, ip string) error {
	res := db.WithContext(ctx).Where("ip = ?", ip).Delete(&domain.BlockEntry{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListBlocksPage returns block entries ordered by most recent update.
func ListBlocksPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.BlockEntry, error) {
	var out []domain.BlockEntry
	err := db.WithContext(ctx).
		Order("updated_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountBlocks returns the number of block entries.
func CountBlocks(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.BlockEntry{}).Count(&total).Error
	return total, err
}

// PurgeExpiredBlocks deletes temporary entries whose window ended before now.
func PurgeExpiredBlocks(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("kind = ? AND ends_at IS NOT NULL AND ends_at < ?", domain.BlockTemporary, now).
		Delete(&domain.BlockEntry{})
	return res.RowsAffected, res.Error
}
