// Package domain defines the persistence models for blocked addresses and the
// detection log. These types are mapped with GORM and form the core data layer
// of the form guard service.
package domain

import "time"

// Block kinds.
const (
	BlockTemporary = "temporary"
	BlockPermanent = "permanent"
)

// BlockEntry is the administrative block record for a single client IP.
// At most one entry exists per IP; writes are upserts keyed on IP.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - IP: canonical textual client address (unique).
//   - Kind: "temporary" or "permanent" (enforced by DB constraint).
//   - StartsAt / EndsAt: optional window; nil means unbounded on that side.
//   - Reason: free-form operator or policy note.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type BlockEntry struct {
	ID        string     `json:"id"                  gorm:"type:char(36);primaryKey"`
	IP        string     `json:"ip"                  gorm:"type:varchar(64);not null;uniqueIndex:ux_blocks_ip"`
	Kind      string     `json:"kind"                gorm:"type:varchar(16);not null;check:kind IN ('temporary','permanent')"`
	StartsAt  *time.Time `json:"starts_at,omitempty"`
	EndsAt    *time.Time `json:"ends_at,omitempty"   gorm:"index"`
	Reason    string     `json:"reason,omitempty"    gorm:"type:varchar(255)"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName returns the database table name for BlockEntry.
func (BlockEntry) TableName() string { return "blocks" }

// Active reports whether the entry blocks traffic at now.
// A permanent entry is always active. A temporary entry is active when now
// lies within [StartsAt, EndsAt]; a missing bound is treated as open.
func (b BlockEntry) Active(now time.Time) bool {
	if b.Kind == BlockPermanent {
		return true
	}
	if b.StartsAt != nil && now.Before(*b.StartsAt) {
		return false
	}
	if b.EndsAt != nil && now.After(*b.EndsAt) {
		return false
	}
	return true
}

// Detection is one persisted rejection, written by the detection log sink.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - Type: submission source type (comment, login, ...).
//   - IP: resolved client address; indexed with CreatedAt for per-address listing.
//   - Reason: the first failure, which decided the verdict.
//   - Failed: every failure tag, comma-joined in checker order.
//   - Details: redacted JSON snapshot of the submission.
//   - CreatedAt: time the detection was recorded.
type Detection struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Type      string    `json:"type"       gorm:"type:varchar(32);not null"`
	IP        string    `json:"ip"         gorm:"type:varchar(64);not null;index:idx_detections_ip_time,priority:1"`
	Reason    string    `json:"reason"     gorm:"type:varchar(64);not null"`
	Failed    string    `json:"failed"     gorm:"type:varchar(255);not null"`
	Details   string    `json:"details"    gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_detections_ip_time,priority:2"`
}

// TableName returns the database table name for Detection.
func (Detection) TableName() string { return "detections" }

// DetectionHit is one rejection counted toward the auto-block threshold.
// Hits are written independently of the detection log and purged once they
// fall outside the auto-block window.
type DetectionHit struct {
	ID        uint      `gorm:"primaryKey"`
	IP        string    `gorm:"type:varchar(64);not null;index:idx_detection_hits_ip_time,priority:1"`
	CreatedAt time.Time `gorm:"index:idx_detection_hits_ip_time,priority:2"`
}

// TableName returns the database table name for DetectionHit.
func (DetectionHit) TableName() string { return "detection_hits" }
