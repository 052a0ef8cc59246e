package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/tbourn/go-form-guard/internal/domain"
)

func TestSettings_PutGet(t *testing.T) {
	db := newTestDB(t, &domain.Setting{})
	ctx := context.Background()

	if _, err := GetSetting(ctx, db, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetSetting on missing = %v; want ErrNotFound", err)
	}
	if err := PutSetting(ctx, db, "k", "v1"); err != nil {
		t.Fatalf("PutSetting: %v", err)
	}
	if err := PutSetting(ctx, db, "k", "v2"); err != nil {
		t.Fatalf("PutSetting overwrite: %v", err)
	}
	if v, err := GetSetting(ctx, db, "k"); err != nil || v != "v2" {
		t.Fatalf("GetSetting = %q, %v; want v2", v, err)
	}
}

func TestPutSettingIfAbsent_FirstWriterWins(t *testing.T) {
	db := newTestDB(t, &domain.Setting{})
	ctx := context.Background()

	ok, err := PutSettingIfAbsent(ctx, db, "hp", "first")
	if err != nil || !ok {
		t.Fatalf("first PutSettingIfAbsent = %v, %v; want true", ok, err)
	}
	ok, err = PutSettingIfAbsent(ctx, db, "hp", "second")
	if err != nil || ok {
		t.Fatalf("second PutSettingIfAbsent = %v, %v; want false", ok, err)
	}
	if v, _ := GetSetting(ctx, db, "hp"); v != "first" {
		t.Fatalf("value = %q; want first", v)
	}
}
