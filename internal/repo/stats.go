// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// primarily for conditional responses (e.g., ETag generation) in the HTTP
// layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// DetectionsStats returns the number of detections for ip (all addresses when
// ip is empty) and the newest CreatedAt among them.
//
// When there are no rows, the returned count is 0 and latest is nil.
func DetectionsStats(ctx context.Context, db *gorm.DB, ip string) (count int64, latest *time.Time, err error) {
	q := detectionsScope(ctx, db, ip)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest created_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		CreatedAt time.Time
	}
	if err = detectionsScope(ctx, db, ip).Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}
