package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-form-guard/internal/domain"
)

func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	// Unique DB per test to avoid schema leaking across tests.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func TestDetectionsStats_CountError_NoTable(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	_, _, err := DetectionsStats(context.Background(), db, "")
	if err == nil {
		t.Fatalf("expected error due to missing detections table")
	}
}

func TestDetectionsStats_ZeroRows(t *testing.T) {
	db := newTestDB(t, &domain.Detection{})
	count, latest, err := DetectionsStats(context.Background(), db, "198.51.100.1")
	if err != nil {
		t.Fatalf("DetectionsStats error: %v", err)
	}
	if count != 0 || latest != nil {
		t.Fatalf("expected (0, nil), got (%d, %v)", count, latest)
	}
}

func TestDetectionsStats_FilterAndLatest(t *testing.T) {
	db := newTestDB(t, &domain.Detection{})
	ctx := context.Background()

	t1 := time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC) // latest for .1
	t3 := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)   // other address, latest overall

	seed := []domain.Detection{
		{ID: "d1", Type: "comment", IP: "198.51.100.1", Reason: "honeypot", Failed: "honeypot", CreatedAt: t1},
		{ID: "d2", Type: "comment", IP: "198.51.100.1", Reason: "invalid_email", Failed: "invalid_email", CreatedAt: t2},
		{ID: "d3", Type: "login", IP: "198.51.100.2", Reason: "honeypot", Failed: "honeypot", CreatedAt: t3},
	}
	for i := range seed {
		if err := db.Create(&seed[i]).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	count, latest, err := DetectionsStats(ctx, db, "198.51.100.1")
	if err != nil {
		t.Fatalf("DetectionsStats: %v", err)
	}
	if count != 2 || latest == nil || !latest.Equal(t2) {
		t.Fatalf("filtered stats = (%d, %v); want (2, %v)", count, latest, t2)
	}

	count, latest, err = DetectionsStats(ctx, db, "")
	if err != nil {
		t.Fatalf("DetectionsStats(all): %v", err)
	}
	if count != 3 || latest == nil || !latest.Equal(t3) {
		t.Fatalf("all stats = (%d, %v); want (3, %v)", count, latest, t3)
	}
}
