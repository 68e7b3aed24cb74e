package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/tenxcards/tenxcards-backend/internal/pkg/logger"
)

const defaultKeyPrefix = "tenx:session:"

// CachedSession is what a validated access token resolves to.
type CachedSession struct {
	UserID       uuid.UUID `json:"user_id"`
	Email        string    `json:"email"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type SessionCache interface {
	Get(ctx context.Context, accessToken string) (*CachedSession, bool, error)
	Set(ctx context.Context, accessToken string, s CachedSession, ttl time.Duration) error
	Delete(ctx context.Context, accessTokens ...string) error
	Ping(ctx context.Context) error
	Close() error
}

type sessionCache struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
}

type Options struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// NewSessionCache connects and pings. An empty address is an error; callers treat the
// cache as optional and skip it when REDIS_ADDR is unset.
func NewSessionCache(log *logger.Logger, opts Options) (SessionCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(opts.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return newSessionCache(log, rdb, opts.KeyPrefix), nil
}

func newSessionCache(log *logger.Logger, rdb *goredis.Client, prefix string) *sessionCache {
	if strings.TrimSpace(prefix) == "" {
		prefix = defaultKeyPrefix
	}
	return &sessionCache{
		log:    log.With("client", "RedisSessionCache"),
		rdb:    rdb,
		prefix: prefix,
	}
}

// Key never contains the raw token.
func Key(prefix, accessToken string) string {
	sum := sha256.Sum256([]byte(accessToken))
	return prefix + hex.EncodeToString(sum[:])
}

func (c *sessionCache) key(accessToken string) string { return Key(c.prefix, accessToken) }

func (c *sessionCache) Get(ctx context.Context, accessToken string) (*CachedSession, bool, error) {
	if c == nil || c.rdb == nil || accessToken == "" {
		return nil, false, nil
	}
	raw, err := c.rdb.Get(ctx, c.key(accessToken)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get session: %w", err)
	}
	var s CachedSession
	if err := json.Unmarshal(raw, &s); err != nil {
		c.log.Warn("bad cached session payload, evicting", "error", err)
		_ = c.rdb.Del(ctx, c.key(accessToken)).Err()
		return nil, false, nil
	}
	return &s, true, nil
}

func (c *sessionCache) Set(ctx context.Context, accessToken string, s CachedSession, ttl time.Duration) error {
	if c == nil || c.rdb == nil || accessToken == "" {
		return nil
	}
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, c.key(accessToken), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

func (c *sessionCache) Delete(ctx context.Context, accessTokens ...string) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	keys := make([]string, 0, len(accessTokens))
	for _, t := range accessTokens {
		if t != "" {
			keys = append(keys, c.key(t))
		}
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}

func (c *sessionCache) Ping(ctx context.Context) error {
	if c == nil || c.rdb == nil {
		return fmt.Errorf("redis session cache not initialized")
	}
	return c.rdb.Ping(ctx).Err()
}

func (c *sessionCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

// Nop returns a cache that stores nothing.
func Nop() SessionCache { return (*sessionCache)(nil) }
