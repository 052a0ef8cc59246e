package policy

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-form-guard/internal/domain"
	"github.com/tbourn/go-form-guard/internal/repo"
)

// NoAutoBlock never blocks.
type NoAutoBlock struct{}

func (NoAutoBlock) Decide(context.Context, string, time.Time) (*BlockRequest, error) {
	return nil, nil
}

// ThresholdAutoBlock blocks an address once Threshold detections were
// counted for it within Window. Every Decide call records one hit in its own
// counter table, so the rule does not depend on the detection log.
type ThresholdAutoBlock struct {
	DB        *gorm.DB
	Threshold int
	Window    time.Duration
	Duration  time.Duration
	Permanent bool
}

func (a ThresholdAutoBlock) Decide(ctx context.Context, ip string, now time.Time) (*BlockRequest, error) {
	if a.Threshold < 1 {
		return nil, nil
	}
	if err := repo.AddHit(ctx, a.DB, ip, now); err != nil {
		return nil, err
	}
	n, err := repo.CountHitsSince(ctx, a.DB, ip, now.Add(-a.Window))
	if err != nil {
		return nil, err
	}
	if n < int64(a.Threshold) {
		return nil, nil
	}
	reason := fmt.Sprintf("auto: %d detections within %s", n, a.Window)
	if a.Permanent {
		return &BlockRequest{IP: ip, Kind: domain.BlockPermanent, Reason: reason}, nil
	}
	start := now
	end := now.Add(a.Duration)
	return &BlockRequest{IP: ip, Kind: domain.BlockTemporary, StartsAt: &start, EndsAt: &end, Reason: reason}, nil
}

// Purge drops hits that fell out of the window.
func (a ThresholdAutoBlock) Purge(ctx context.Context, now time.Time) (int64, error) {
	return repo.PurgeHitsBefore(ctx, a.DB, now.Add(-a.Window))
}
