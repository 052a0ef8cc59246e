package handlers

import (
	"context"
	"time"

	"github.com/tbourn/go-form-guard/internal/detect"
	"github.com/tbourn/go-form-guard/internal/domain"
	"github.com/tbourn/go-form-guard/internal/policy"
	"github.com/tbourn/go-form-guard/internal/services"
	"github.com/tbourn/go-form-guard/internal/tokens"
)

//
// Service contracts (context-aware)
//

// SubmissionService checks a submission and returns the verdict.
type SubmissionService interface {
	Check(ctx context.Context, in services.SubmissionInput) (detect.Verdict, error)
}

// DetectionService reads the detection log.
type DetectionService interface {
	ListPage(ctx context.Context, ip string, page, pageSize int) ([]domain.Detection, int64, error)
	Stats(ctx context.Context, ip string) (int64, *time.Time, error)
}

// BlockService administers block entries.
type BlockService interface {
	Get(ctx context.Context, ip string) (*domain.BlockEntry, error)
	Put(ctx context.Context, req policy.BlockRequest) (*domain.BlockEntry, error)
	Delete(ctx context.Context, ip string) error
	ListPage(ctx context.Context, page, pageSize int) ([]domain.BlockEntry, int64, error)
}

// ChallengeService serves the proof token protocol.
type ChallengeService interface {
	ClientConfig(ctx context.Context) (services.ClientConfig, error)
	Refresh(ctx context.Context) (services.ClientConfig, bool, error)
	IssueIntent(ctx context.Context) (tokens.IntentToken, error)
	Honeypot(ctx context.Context) (string, error)
	RegenerateHoneypot(ctx context.Context) (string, error)
}

//
// Handler wiring
//

// Deps carries the services and cookie settings of Handlers. A nil admin
// service leaves its handlers unusable; the router does not mount them.
type Deps struct {
	Submissions SubmissionService
	Detections  DetectionService
	Blocks      BlockService
	Challenge   ChallengeService

	// IntentCookie names the cookie carrying the login intent token.
	IntentCookie string
	// SecureCookie sets the Secure attribute on the intent cookie.
	SecureCookie bool
}

// Handlers groups the HTTP endpoints.
type Handlers struct {
	subSvc       SubmissionService
	detSvc       DetectionService
	blockSvc     BlockService
	chalSvc      ChallengeService
	intentCookie string
	secureCookie bool
}

// New builds Handlers from d.
func New(d Deps) *Handlers {
	name := d.IntentCookie
	if name == "" {
		name = detect.DefaultIntentCookie
	}
	return &Handlers{
		subSvc:       d.Submissions,
		detSvc:       d.Detections,
		blockSvc:     d.Blocks,
		chalSvc:      d.Challenge,
		intentCookie: name,
		secureCookie: d.SecureCookie,
	}
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}
