package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/tbourn/go-form-guard/internal/repo"
)

// ErrNotFound is returned by KV.Get for a missing key.
var ErrNotFound = errors.New("tokens: not found")

// ErrDuplicate is returned by KV.PutIntent when the token already exists.
var ErrDuplicate = errors.New("tokens: duplicate")

// KV is the backing store of a Store.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// SetNX stores value only when key is absent and reports whether it did.
	SetNX(ctx context.Context, key, value string) (bool, error)
	// PutIntent stores a single-use token that expires after ttl.
	PutIntent(ctx context.Context, token string, ttl time.Duration) error
	// TakeIntent atomically removes a live token and reports whether this
	// call removed it.
	TakeIntent(ctx context.Context, token string) (bool, error)
}

// ----------------------------------------------------------------------------
// SQL

// SQLKV keeps settings and intent tokens in the relational store.
type SQLKV struct {
	DB  *gorm.DB
	Now func() time.Time
}

func (s SQLKV) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s SQLKV) Get(ctx context.Context, key string) (string, error) {
	v, err := repo.GetSetting(ctx, s.DB, key)
	if errors.Is(err, repo.ErrNotFound) {
		return "", ErrNotFound
	}
	return v, err
}

func (s SQLKV) Set(ctx context.Context, key, value string) error {
	return repo.PutSetting(ctx, s.DB, key, value)
}

func (s SQLKV) SetNX(ctx context.Context, key, value string) (bool, error) {
	return repo.PutSettingIfAbsent(ctx, s.DB, key, value)
}

func (s SQLKV) PutIntent(ctx context.Context, token string, ttl time.Duration) error {
	_, err := repo.CreateIntentToken(ctx, s.DB, token, ttl)
	if errors.Is(err, repo.ErrDuplicate) {
		return ErrDuplicate
	}
	return err
}

func (s SQLKV) TakeIntent(ctx context.Context, token string) (bool, error) {
	return repo.TakeIntentToken(ctx, s.DB, token, s.now())
}

// PurgeExpired deletes intent tokens that are past their TTL.
func (s SQLKV) PurgeExpired(ctx context.Context) (int64, error) {
	return repo.PurgeExpiredIntentTokens(ctx, s.DB, s.now())
}

// ----------------------------------------------------------------------------
// Redis

// RedisKV keeps settings and intent tokens in Redis. Intent tokens expire
// through key TTLs and are taken with GETDEL.
type RedisKV struct {
	Client redis.UniversalClient
	Prefix string
}

// NewRedisKV returns a RedisKV with the default "formguard:" key prefix.
func NewRedisKV(c redis.UniversalClient) RedisKV {
	return RedisKV{Client: c, Prefix: "formguard:"}
}

func (r RedisKV) key(k string) string       { return r.Prefix + k }
func (r RedisKV) intentKey(t string) string { return r.Prefix + "intent:" + t }

func (r RedisKV) Get(ctx context.Context, key string) (string, error) {
	v, err := r.Client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return v, err
}

func (r RedisKV) Set(ctx context.Context, key, value string) error {
	return r.Client.Set(ctx, r.key(key), value, 0).Err()
}

func (r RedisKV) SetNX(ctx context.Context, key, value string) (bool, error) {
	return r.Client.SetNX(ctx, r.key(key), value, 0).Result()
}

func (r RedisKV) PutIntent(ctx context.Context, token string, ttl time.Duration) error {
	ok, err := r.Client.SetNX(ctx, r.intentKey(token), "1", ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrDuplicate
	}
	return nil
}

func (r RedisKV) TakeIntent(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	_, err := r.Client.GetDel(ctx, r.intentKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ConnectRedis opens a client and verifies it with PING.
func ConnectRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return rdb, nil
}
