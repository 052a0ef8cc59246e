package domain

import "time"

// Setting is a single persisted key/value pair. It backs the lazily generated
// honeypot field name and the rotating challenge token.
type Setting struct {
	Key       string    `gorm:"type:varchar(128);primaryKey"`
	Value     string    `gorm:"type:TEXT NOT NULL"`
	UpdatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoUpdateTime"`
}

// TableName implements the GORM tabler interface.
func (Setting) TableName() string { return "settings" }

// IntentToken is a single-use proof that a client loaded a protected form
// recently. A row is deleted by the take that consumes it.
type IntentToken struct {
	Token     string    `gorm:"type:varchar(96);primaryKey"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (IntentToken) TableName() string { return "intent_tokens" }
