// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for single-use
// intent tokens.
package repo

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-form-guard/internal/domain"
)

// CreateIntentToken inserts a token valid for ttl and returns ErrDuplicate
// when the value is already present.
func CreateIntentToken(ctx context.Context, db *gorm.DB, token string, ttl time.Duration) (*domain.IntentToken, error) {
	now := time.Now().UTC()
	rec := &domain.IntentToken{
		Token:     token,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if isDuplicate(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}

// TakeIntentToken deletes a non-expired token and reports whether this call
// removed it. The delete is a single statement, so two concurrent takes of
// the same token cannot both succeed.
func TakeIntentToken(ctx context.Context, db *gorm.DB, token string, now time.Time) (bool, error) {
	if strings.TrimSpace(token) == "" {
		return false, nil
	}
	res := db.WithContext(ctx).
		Where("token = ? AND expires_at > ?", token, now).
		Delete(&domain.IntentToken{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// PurgeExpiredIntentTokens removes tokens that expired at or before now and
// returns how many rows were deleted.
func PurgeExpiredIntentTokens(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&domain.IntentToken{})
	return res.RowsAffected, res.Error
}
