package domain

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		(BlockEntry{}).TableName():  "blocks",
		(Detection{}).TableName():   "detections",
		(Setting{}).TableName():     "settings",
		(IntentToken{}).TableName(): "intent_tokens",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("TableName() = %q; want %q", got, want)
		}
	}
}

func TestMigrations_Indexes_AndConstraints(t *testing.T) {
	db := newTestDB(t)
	if err := db.AutoMigrate(&BlockEntry{}, &Detection{}, &Setting{}, &IntentToken{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()

	for _, tbl := range []any{&BlockEntry{}, &Detection{}, &Setting{}, &IntentToken{}} {
		if !m.HasTable(tbl) {
			t.Fatalf("expected table for %T to exist", tbl)
		}
	}
	if !m.HasIndex(&BlockEntry{}, "ux_blocks_ip") {
		t.Fatalf("expected unique index ux_blocks_ip on blocks")
	}
	if !m.HasIndex(&Detection{}, "idx_detections_ip_time") {
		t.Fatalf("expected index idx_detections_ip_time on detections")
	}

	now := time.Now().UTC()
	if err := db.Create(&BlockEntry{ID: "b1", IP: "192.0.2.1", Kind: BlockPermanent, CreatedAt: now, UpdatedAt: now}).Error; err != nil {
		t.Fatalf("insert block: %v", err)
	}

	// One entry per IP.
	if err := db.Create(&BlockEntry{ID: "b2", IP: "192.0.2.1", Kind: BlockTemporary}).Error; err == nil {
		t.Fatalf("expected UNIQUE violation on blocks.ip")
	}

	// Kind is constrained.
	if err := db.Create(&BlockEntry{ID: "b3", IP: "192.0.2.3", Kind: "forever"}).Error; err == nil {
		t.Fatalf("expected CHECK violation on blocks.kind")
	}

	// Intent tokens are keyed by value.
	it := &IntentToken{Token: "tok", ExpiresAt: now.Add(time.Minute)}
	if err := db.Create(it).Error; err != nil {
		t.Fatalf("insert intent: %v", err)
	}
	if err := db.Create(&IntentToken{Token: "tok", ExpiresAt: now}).Error; err == nil {
		t.Fatalf("expected PK violation on intent_tokens.token")
	}
}

func TestBlockEntry_Active(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	cases := []struct {
		name string
		b    BlockEntry
		want bool
	}{
		{"permanent ignores window", BlockEntry{Kind: BlockPermanent, EndsAt: &past}, true},
		{"temporary unbounded", BlockEntry{Kind: BlockTemporary}, true},
		{"temporary within window", BlockEntry{Kind: BlockTemporary, StartsAt: &past, EndsAt: &future}, true},
		{"temporary expired", BlockEntry{Kind: BlockTemporary, EndsAt: &past}, false},
		{"temporary not started", BlockEntry{Kind: BlockTemporary, StartsAt: &future}, false},
		{"temporary ends exactly now", BlockEntry{Kind: BlockTemporary, EndsAt: &now}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.b.Active(now); got != tc.want {
				t.Fatalf("Active() = %v; want %v", got, tc.want)
			}
		})
	}
}
