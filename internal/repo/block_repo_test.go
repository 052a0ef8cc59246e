package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-form-guard/internal/domain"
)

func TestUpsertBlock_InsertThenReplace(t *testing.T) {
	db := newTestDB(t, &domain.BlockEntry{})
	ctx := context.Background()
	end := time.Now().UTC().Add(time.Hour).Truncate(time.Second)

	first, err := UpsertBlock(ctx, db, domain.BlockEntry{IP: "192.0.2.7", Kind: domain.BlockTemporary, EndsAt: &end, Reason: "spam"})
	if err != nil {
		t.Fatalf("UpsertBlock insert: %v", err)
	}
	if first.ID == "" || first.Kind != domain.BlockTemporary || first.EndsAt == nil {
		t.Fatalf("unexpected inserted row: %+v", first)
	}

	second, err := UpsertBlock(ctx, db, domain.BlockEntry{IP: "192.0.2.7", Kind: domain.BlockPermanent, Reason: "manual"})
	if err != nil {
		t.Fatalf("UpsertBlock replace: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("upsert must keep the row identity: %q vs %q", second.ID, first.ID)
	}
	if second.Kind != domain.BlockPermanent || second.Reason != "manual" || second.EndsAt != nil {
		t.Fatalf("upsert must replace the entry fields, got %+v", second)
	}

	n, err := CountBlocks(ctx, db)
	if err != nil || n != 1 {
		t.Fatalf("CountBlocks = %d, %v; want 1", n, err)
	}
}

func TestGetAndDeleteBlock(t *testing.T) {
	db := newTestDB(t, &domain.BlockEntry{})
	ctx := context.Background()

	if _, err := GetBlock(ctx, db, "192.0.2.8"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetBlock on missing = %v; want ErrNotFound", err)
	}
	if err := DeleteBlock(ctx, db, "192.0.2.8"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("DeleteBlock on missing = %v; want ErrNotFound", err)
	}

	if _, err := UpsertBlock(ctx, db, domain.BlockEntry{IP: "192.0.2.8", Kind: domain.BlockPermanent}); err != nil {
		t.Fatalf("UpsertBlock: %v", err)
	}
	got, err := GetBlock(ctx, db, "192.0.2.8")
	if err != nil || got.Kind != domain.BlockPermanent {
		t.Fatalf("GetBlock = %+v, %v", got, err)
	}
	if err := DeleteBlock(ctx, db, "192.0.2.8"); err != nil {
		t.Fatalf("DeleteBlock: %v", err)
	}
	if _, err := GetBlock(ctx, db, "192.0.2.8"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("entry should be gone, got %v", err)
	}
}

func TestListBlocksPage(t *testing.T) {
	db := newTestDB(t, &domain.BlockEntry{})
	ctx := context.Background()
	for _, ip := range []string{"192.0.2.1", "192.0.2.2", "192.0.2.3"} {
		if _, err := UpsertBlock(ctx, db, domain.BlockEntry{IP: ip, Kind: domain.BlockPermanent}); err != nil {
			t.Fatalf("seed %s: %v", ip, err)
		}
	}
	page, err := ListBlocksPage(ctx, db, 1, 5)
	if err != nil || len(page) != 2 {
		t.Fatalf("ListBlocksPage = %d rows, %v; want 2", len(page), err)
	}
}

func TestPurgeExpiredBlocks(t *testing.T) {
	db := newTestDB(t, &domain.BlockEntry{})
	ctx := context.Background()
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	seed := []domain.BlockEntry{
		{IP: "192.0.2.1", Kind: domain.BlockTemporary, EndsAt: &past},
		{IP: "192.0.2.2", Kind: domain.BlockTemporary, EndsAt: &future},
		{IP: "192.0.2.3", Kind: domain.BlockTemporary},
		{IP: "192.0.2.4", Kind: domain.BlockPermanent, EndsAt: &past},
	}
	for _, b := range seed {
		if _, err := UpsertBlock(ctx, db, b); err != nil {
			t.Fatalf("seed %s: %v", b.IP, err)
		}
	}

	n, err := PurgeExpiredBlocks(ctx, db, now)
	if err != nil || n != 1 {
		t.Fatalf("PurgeExpiredBlocks = %d, %v; want 1", n, err)
	}
	if _, err := GetBlock(ctx, db, "192.0.2.1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired temporary entry should be purged")
	}
	if _, err := GetBlock(ctx, db, "192.0.2.4"); err != nil {
		t.Fatalf("permanent entry must survive purge: %v", err)
	}
}
