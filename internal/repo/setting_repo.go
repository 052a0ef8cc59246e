// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides a small key/value store over the
// settings table.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-form-guard/internal/domain"
)

// GetSetting returns the stored value for key or ErrNotFound.
func GetSetting(ctx context.Context, db *gorm.DB, key string) (string, error) {
	var s domain.Setting
	err := db.WithContext(ctx).Where("key = ?", key).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return s.Value, nil
}

// PutSetting writes value under key, replacing any previous value.
func PutSetting(ctx context.Context, db *gorm.DB, key, value string) error {
	s := domain.Setting{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&s).Error
}

// PutSettingIfAbsent writes value only when key has no value yet and
// reports whether this call stored it.
func PutSettingIfAbsent(ctx context.Context, db *gorm.DB, key, value string) (bool, error) {
	s := domain.Setting{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&s)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
