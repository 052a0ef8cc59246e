package tokens

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-form-guard/internal/repo"
)

func newSQLKV(t *testing.T) SQLKV {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, repo.AutoMigrate(db))
	// One connection serializes statements on the shared in-memory database.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	return SQLKV{DB: db}
}

// memKV is a map-backed KV with switchable failures.
type memKV struct {
	mu      sync.Mutex
	data    map[string]string
	intents map[string]bool
	err     error
}

func newMemKV() *memKV {
	return &memKV{data: map[string]string{}, intents: map[string]bool{}}
}

func (m *memKV) Get(_ context.Context, k string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	v, ok := m.data[k]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *memKV) Set(_ context.Context, k, v string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[k] = v
	return nil
}

func (m *memKV) SetNX(_ context.Context, k, v string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.data[k]; ok {
		return false, nil
	}
	m.data[k] = v
	return true, nil
}

func (m *memKV) PutIntent(_ context.Context, tok string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.intents[tok] = true
	return nil
}

func (m *memKV) TakeIntent(_ context.Context, tok string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if m.intents[tok] {
		delete(m.intents, tok)
		return true, nil
	}
	return false, nil
}

func TestHoneypotFieldName_StableAndFormatted(t *testing.T) {
	ctx := context.Background()
	kv := newSQLKV(t)
	s := New(kv)

	first, err := s.HoneypotFieldName(ctx)
	require.NoError(t, err)
	second, err := s.HoneypotFieldName(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second, "name is stable without regeneration")
	assert.Regexp(t, `^hp_[a-z0-9]{8}$`, first)

	// A fresh Store over the same backend sees the persisted name.
	other, err := New(kv).HoneypotFieldName(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, other)
}

func TestHoneypotFieldName_ConcurrentFirstCallsAgree(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()

	var wg sync.WaitGroup
	names := make([]string, 8)
	for i := range names {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			n, err := New(kv).HoneypotFieldName(ctx)
			if err == nil {
				names[i] = n
			}
		}(i)
	}
	wg.Wait()
	for _, n := range names {
		assert.Equal(t, names[0], n)
	}
	assert.NotEmpty(t, names[0])
}

func TestRegenerateHoneypot(t *testing.T) {
	ctx := context.Background()
	s := New(newMemKV())
	before, err := s.HoneypotFieldName(ctx)
	require.NoError(t, err)
	after, err := s.RegenerateHoneypot(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
	now, _ := s.HoneypotFieldName(ctx)
	assert.Equal(t, after, now)
}

func TestHoneypotFieldName_SeesRegenerationElsewhere(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	reader := New(kv, WithClock(func() time.Time { return now }))
	admin := New(kv)

	before, err := reader.HoneypotFieldName(ctx)
	require.NoError(t, err)
	after, err := admin.RegenerateHoneypot(ctx)
	require.NoError(t, err)

	cached, _ := reader.HoneypotFieldName(ctx)
	assert.Equal(t, before, cached, "within the cache window")

	now = now.Add(honeypotCacheTTL)
	fresh, err := reader.HoneypotFieldName(ctx)
	require.NoError(t, err)
	assert.Equal(t, after, fresh)
}

func TestHoneypotFieldName_ServesCachedOnStoreError(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := New(kv, WithClock(func() time.Time { return now }))

	name, err := s.HoneypotFieldName(ctx)
	require.NoError(t, err)

	kv.err = errors.New("down")
	now = now.Add(time.Hour)
	again, err := s.HoneypotFieldName(ctx)
	require.NoError(t, err)
	assert.Equal(t, name, again)
}

func TestHoneypotFieldName_Fixed(t *testing.T) {
	kv := newMemKV()
	kv.err = errors.New("down")
	s := New(kv, WithHoneypotField(" my_trap "))
	name, err := s.HoneypotFieldName(context.Background())
	require.NoError(t, err, "a pinned name never touches the store")
	assert.Equal(t, "my_trap", name)
	again, err := s.RegenerateHoneypot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "my_trap", again)
	assert.True(t, s.HoneypotPinned())
}

func TestHoneypotFieldName_StoreError(t *testing.T) {
	kv := newMemKV()
	kv.err = errors.New("down")
	_, err := New(kv).HoneypotFieldName(context.Background())
	assert.Error(t, err)
}

func TestChallengeToken_LazyStableAndRegenerate(t *testing.T) {
	ctx := context.Background()
	s := New(newSQLKV(t))

	tok, err := s.ChallengeToken(ctx, false)
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9a-f]{32}$`, tok.Value)
	assert.False(t, tok.IssuedAt.IsZero())

	same, err := s.ChallengeToken(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, tok.Value, same.Value)
	assert.True(t, tok.IssuedAt.Equal(same.IssuedAt))

	fresh, err := s.ChallengeToken(ctx, true)
	require.NoError(t, err)
	assert.NotEqual(t, tok.Value, fresh.Value)

	cur, err := s.CurrentChallenge(ctx)
	require.NoError(t, err)
	assert.Equal(t, fresh.Value, cur, "regeneration invalidates the previous value")
}

func TestChallengeToken_CorruptValueIsReplaced(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	kv.data[keyChallenge] = "garbage"
	tok, err := New(kv).ChallengeToken(ctx, false)
	require.NoError(t, err)
	assert.Len(t, tok.Value, 32)
	assert.True(t, strings.HasPrefix(kv.data[keyChallenge], tok.Value+"|"))
}

func TestChallengeToken_StoreError(t *testing.T) {
	kv := newMemKV()
	kv.err = errors.New("down")
	_, err := New(kv).CurrentChallenge(context.Background())
	assert.Error(t, err)
}

func TestIsStaleAndRefresh(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	s := New(newMemKV(), WithMaxAge(time.Hour), WithClock(clock))

	tok, err := s.ChallengeToken(ctx, false)
	require.NoError(t, err)
	assert.False(t, s.IsStale(tok))

	got, rotated, err := s.RefreshIfStale(ctx)
	require.NoError(t, err)
	assert.False(t, rotated)
	assert.Equal(t, tok.Value, got.Value)

	now = now.Add(time.Hour)
	assert.True(t, s.IsStale(tok), "age equal to max age is stale")

	got, rotated, err = s.RefreshIfStale(ctx)
	require.NoError(t, err)
	assert.True(t, rotated)
	assert.NotEqual(t, tok.Value, got.Value)
	assert.False(t, s.IsStale(got))
	assert.Equal(t, time.Hour, s.MaxAge())
}

func TestIntent_IssueConsumeOnce(t *testing.T) {
	ctx := context.Background()
	s := New(newSQLKV(t), WithIntentTTL(5*time.Minute))

	tok, err := s.IssueIntent(ctx)
	require.NoError(t, err)
	assert.Len(t, tok.Value, 48)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), tok.ExpiresAt, 5*time.Second)

	assert.True(t, s.ConsumeIntent(ctx, tok.Value))
	assert.False(t, s.ConsumeIntent(ctx, tok.Value), "replay sees the token as absent")
	assert.False(t, s.ConsumeIntent(ctx, "unknown"))
	assert.False(t, s.ConsumeIntent(ctx, ""))
}

func TestIntent_ExpiredTokenIsRejected(t *testing.T) {
	ctx := context.Background()
	kv := newSQLKV(t)
	s := New(kv, WithIntentTTL(time.Minute))
	tok, err := s.IssueIntent(ctx)
	require.NoError(t, err)

	kv.Now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	assert.False(t, New(kv).ConsumeIntent(ctx, tok.Value))

	n, err := kv.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestIntent_ConcurrentConsumeSucceedsOnce(t *testing.T) {
	ctx := context.Background()
	s := New(newSQLKV(t))
	tok, err := s.IssueIntent(ctx)
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.ConsumeIntent(ctx, tok.Value) {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestIntent_StoreErrors(t *testing.T) {
	kv := newMemKV()
	kv.err = errors.New("down")
	s := New(kv)
	_, err := s.IssueIntent(context.Background())
	assert.Error(t, err)
	assert.False(t, s.ConsumeIntent(context.Background(), "x"), "store errors read as a missing token")
}

func TestEncodeDecodeChallenge(t *testing.T) {
	tok := ChallengeToken{Value: "abc", IssuedAt: time.Unix(1700000000, 0).UTC()}
	got, ok := decodeChallenge(encodeChallenge(tok))
	require.True(t, ok)
	assert.Equal(t, tok, got)

	for _, bad := range []string{"", "abc", "|123", "abc|x"} {
		_, ok := decodeChallenge(bad)
		assert.Falsef(t, ok, "decodeChallenge(%q)", bad)
	}
}
