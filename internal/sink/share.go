package sink

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/blake2b"

	"github.com/tbourn/go-form-guard/internal/detect"
)

const (
	shareIssuer     = "formguard"
	shareTokenTTL   = time.Minute
	defaultShareBuf = 256

	// MinShareSecret is the shortest accepted signing secret, in bytes.
	MinShareSecret = 32
)

var (
	// ErrShareStatus is returned when the collector answers with a non-2xx code.
	ErrShareStatus = errors.New("share: unexpected status")
	// ErrShareSecret is returned when the signing secret is too short.
	ErrShareSecret = fmt.Errorf("share: secret must be at least %d bytes", MinShareSecret)
)

// SharedDetection is the payload sent to the external collector. Submission
// details never leave the process; the client address is replaced by a keyed
// hash.
type SharedDetection struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Failed    []string  `json:"failed"`
	Reason    string    `json:"reason"`
	IPHash    string    `json:"ip_hash"`
	Timestamp time.Time `json:"timestamp"`
}

// ShareSink forwards detections to an external collector. Record only
// enqueues; Run delivers. When the queue is full the record is dropped.
type ShareSink struct {
	endpoint string
	secret   []byte
	ipKey    [32]byte
	client   *http.Client
	queue    chan SharedDetection
	log      zerolog.Logger
	now      func() time.Time
}

// NewShareSink builds a sink posting to endpoint. secret signs the bearer
// token and keys the IP hash, so it must be at least MinShareSecret bytes.
func NewShareSink(endpoint, secret string, timeout time.Duration, log zerolog.Logger) (*ShareSink, error) {
	if len(secret) < MinShareSecret {
		return nil, ErrShareSecret
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ShareSink{
		endpoint: endpoint,
		secret:   []byte(secret),
		ipKey:    blake2b.Sum256([]byte(secret)),
		client:   &http.Client{Timeout: timeout},
		queue:    make(chan SharedDetection, defaultShareBuf),
		log:      log,
		now:      time.Now,
	}, nil
}

func (s *ShareSink) Record(_ context.Context, r detect.Record) {
	select {
	case s.queue <- s.payload(r):
	default:
		s.log.Warn().Str("record_id", r.ID).Msg("share queue full, detection dropped")
	}
}

// Run delivers queued detections until ctx is cancelled. Pending entries are
// flushed on a detached context before returning.
func (s *ShareSink) Run(ctx context.Context) {
	for {
		select {
		case d := <-s.queue:
			s.deliver(ctx, d)
		case <-ctx.Done():
			s.drain(context.WithoutCancel(ctx))
			return
		}
	}
}

func (s *ShareSink) drain(ctx context.Context) {
	for {
		select {
		case d := <-s.queue:
			s.deliver(ctx, d)
		default:
			return
		}
	}
}

func (s *ShareSink) deliver(ctx context.Context, d SharedDetection) {
	if err := s.Send(ctx, d); err != nil {
		s.log.Error().Err(err).Str("record_id", d.ID).Msg("share detection failed")
	}
}

// Send posts one detection synchronously.
func (s *ShareSink) Send(ctx context.Context, d SharedDetection) error {
	body, err := json.Marshal(d)
	if err != nil {
		return err
	}
	token, err := s.token()
	if err != nil {
		return fmt.Errorf("share: sign token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %d", ErrShareStatus, resp.StatusCode)
	}
	return nil
}

func (s *ShareSink) token() (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Issuer:    shareIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(shareTokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *ShareSink) payload(r detect.Record) SharedDetection {
	d := SharedDetection{
		ID:        r.ID,
		Type:      string(r.Type),
		Reason:    string(r.Reason()),
		IPHash:    s.HashIP(r.ClientIP),
		Timestamp: r.Timestamp.UTC(),
	}
	for _, f := range r.Failed {
		d.Failed = append(d.Failed, string(f))
	}
	return d
}

// HashIP returns the hex keyed BLAKE2b-256 digest of ip.
func (s *ShareSink) HashIP(ip string) string {
	if ip == "" {
		return ""
	}
	h, err := blake2b.New256(s.ipKey[:])
	if err != nil {
		return ""
	}
	h.Write([]byte(ip))
	return hex.EncodeToString(h.Sum(nil))
}
