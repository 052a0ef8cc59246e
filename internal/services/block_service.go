// Package services – BlockService
//
// BlockService is the administrative surface over the block policy. It
// translates policy errors into service errors.
package services

import (
	"context"
	"errors"

	"github.com/tbourn/go-form-guard/internal/domain"
	"github.com/tbourn/go-form-guard/internal/policy"
	"github.com/tbourn/go-form-guard/internal/utils"
)

// BlockPolicy is the subset of the block policy used by BlockService.
type BlockPolicy interface {
	Get(ctx context.Context, ip string) (*domain.BlockEntry, error)
	Block(ctx context.Context, req policy.BlockRequest) (*domain.BlockEntry, error)
	Unblock(ctx context.Context, ip string) error
	List(ctx context.Context, offset, limit int) ([]domain.BlockEntry, int64, error)
}

// BlockService manages block entries.
type BlockService struct {
	Policy BlockPolicy
}

// Get returns the entry for ip.
func (s *BlockService) Get(ctx context.Context, ip string) (*domain.BlockEntry, error) {
	e, err := s.Policy.Get(ctx, ip)
	return e, mapPolicyErr(err)
}

// Put creates or replaces the entry for req.IP.
func (s *BlockService) Put(ctx context.Context, req policy.BlockRequest) (*domain.BlockEntry, error) {
	e, err := s.Policy.Block(ctx, req)
	return e, mapPolicyErr(err)
}

// Delete removes the entry for ip.
func (s *BlockService) Delete(ctx context.Context, ip string) error {
	return mapPolicyErr(s.Policy.Unblock(ctx, ip))
}

// ListPage returns a page of entries and the total count.
func (s *BlockService) ListPage(ctx context.Context, page, pageSize int) ([]domain.BlockEntry, int64, error) {
	page, pageSize = utils.Clamp(page, pageSize, 20)
	items, total, err := s.Policy.List(ctx, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, err
	}
	if items == nil {
		items = []domain.BlockEntry{}
	}
	return items, total, nil
}

func mapPolicyErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, policy.ErrNotFound):
		return ErrBlockNotFound
	case errors.Is(err, policy.ErrInvalidIP):
		return ErrInvalidIP
	case errors.Is(err, policy.ErrInvalidKind), errors.Is(err, policy.ErrInvalidWindow):
		return ErrInvalidBlock
	default:
		return err
	}
}
