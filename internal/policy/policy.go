// Package policy owns per-address block state: the gate consulted before any
// check runs, the administrative block contract, and the optional auto-block
// rule applied after each detection.
package policy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-form-guard/internal/clientip"
	"github.com/tbourn/go-form-guard/internal/domain"
	"github.com/tbourn/go-form-guard/internal/repo"
)

var (
	ErrInvalidIP     = errors.New("invalid ip address")
	ErrInvalidKind   = errors.New("kind must be temporary or permanent")
	ErrInvalidWindow = errors.New("block window ends before it starts")
	ErrNotFound      = errors.New("block not found")
)

// BlockRequest describes a block to create or replace.
type BlockRequest struct {
	IP       string
	Kind     string
	StartsAt *time.Time
	EndsAt   *time.Time
	Reason   string
}

// AutoBlocker decides whether a detection should turn into a block. A nil
// request means no block.
type AutoBlocker interface {
	Decide(ctx context.Context, ip string, now time.Time) (*BlockRequest, error)
}

// Policy is the block gate and block store. All methods are safe for
// concurrent use.
type Policy struct {
	DB   *gorm.DB
	Auto AutoBlocker
	Log  zerolog.Logger
	Now  func() time.Time
}

// New returns a Policy with no auto-block rule.
func New(db *gorm.DB, log zerolog.Logger) *Policy {
	return &Policy{DB: db, Auto: NoAutoBlock{}, Log: log, Now: time.Now}
}

func (p *Policy) now() time.Time {
	if p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}

// IsBlockedAt reports whether entry blocks traffic at now.
func IsBlockedAt(entry *domain.BlockEntry, now time.Time) bool {
	return entry != nil && entry.Active(now)
}

// IsBlocked reports whether ip is currently blocked. Store errors are logged
// and read as not blocked.
func (p *Policy) IsBlocked(ctx context.Context, ip string) bool {
	canon, ok := clientip.Canonical(ip)
	if !ok {
		return false
	}
	entry, err := repo.GetBlock(ctx, p.DB, canon)
	if errors.Is(err, repo.ErrNotFound) {
		return false
	}
	if err != nil {
		p.Log.Error().Err(err).Str("ip", canon).Msg("block lookup failed, allowing")
		return false
	}
	return IsBlockedAt(entry, p.now())
}

// Block creates or replaces the entry for req.IP.
func (p *Policy) Block(ctx context.Context, req BlockRequest) (*domain.BlockEntry, error) {
	canon, ok := clientip.Canonical(req.IP)
	if !ok {
		return nil, ErrInvalidIP
	}
	kind := strings.ToLower(strings.TrimSpace(req.Kind))
	switch kind {
	case domain.BlockTemporary, domain.BlockPermanent:
	case "":
		kind = domain.BlockTemporary
	default:
		return nil, ErrInvalidKind
	}
	if req.StartsAt != nil && req.EndsAt != nil && req.EndsAt.Before(*req.StartsAt) {
		return nil, ErrInvalidWindow
	}
	entry, err := repo.UpsertBlock(ctx, p.DB, domain.BlockEntry{
		IP:       canon,
		Kind:     kind,
		StartsAt: utcPtr(req.StartsAt),
		EndsAt:   utcPtr(req.EndsAt),
		Reason:   strings.TrimSpace(req.Reason),
	})
	if err != nil {
		return nil, fmt.Errorf("upsert block: %w", err)
	}
	return entry, nil
}

// Unblock removes the entry for ip.
func (p *Policy) Unblock(ctx context.Context, ip string) error {
	canon, ok := clientip.Canonical(ip)
	if !ok {
		return ErrInvalidIP
	}
	err := repo.DeleteBlock(ctx, p.DB, canon)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// Get returns the entry for ip.
func (p *Policy) Get(ctx context.Context, ip string) (*domain.BlockEntry, error) {
	canon, ok := clientip.Canonical(ip)
	if !ok {
		return nil, ErrInvalidIP
	}
	entry, err := repo.GetBlock(ctx, p.DB, canon)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotFound
	}
	return entry, err
}

// List returns a page of entries and the total count.
func (p *Policy) List(ctx context.Context, offset, limit int) ([]domain.BlockEntry, int64, error) {
	total, err := repo.CountBlocks(ctx, p.DB)
	if err != nil {
		return nil, 0, err
	}
	items, err := repo.ListBlocksPage(ctx, p.DB, offset, limit)
	return items, total, err
}

// RecordDetectionForAutoBlock applies the auto-block rule for ip. An
// address that is already blocked is left alone.
func (p *Policy) RecordDetectionForAutoBlock(ctx context.Context, ip string) {
	if p.Auto == nil || ip == "" || p.IsBlocked(ctx, ip) {
		return
	}
	req, err := p.Auto.Decide(ctx, ip, p.now())
	if err != nil {
		p.Log.Error().Err(err).Str("ip", ip).Msg("auto-block decision failed")
		return
	}
	if req == nil {
		return
	}
	if _, err := p.Block(ctx, *req); err != nil {
		p.Log.Error().Err(err).Str("ip", ip).Msg("auto-block failed")
		return
	}
	p.Log.Warn().Str("ip", ip).Str("kind", req.Kind).Msg("address auto-blocked")
}

type hitPurger interface {
	Purge(ctx context.Context, now time.Time) (int64, error)
}

// PurgeExpired removes temporary entries whose window has ended, plus stale
// auto-block hits when the rule keeps any. It returns the number of block
// entries removed.
func (p *Policy) PurgeExpired(ctx context.Context) (int64, error) {
	now := p.now()
	n, err := repo.PurgeExpiredBlocks(ctx, p.DB, now)
	if err != nil {
		return n, err
	}
	if hp, ok := p.Auto.(hitPurger); ok {
		if _, err := hp.Purge(ctx, now); err != nil {
			return n, fmt.Errorf("purge auto-block hits: %w", err)
		}
	}
	return n, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
