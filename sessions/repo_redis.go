package sessions

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	autherrors "github.com/jrsteele09/go-auth-login/internal/errors"
)

// Default timeouts for Redis operations.
const (
	DefaultDialTimeout  = 5 * time.Second
	DefaultReadTimeout  = 3 * time.Second
	DefaultWriteTimeout = 3 * time.Second
	DefaultSessionTTL   = 30 * time.Minute
)

const (
	fieldProvider    = "provider"
	fieldState       = "state"
	fieldTimestamp   = "timestamp"
	fieldAccessToken = "access_token"
	fieldIssuedAt    = "issued_at"
	fieldExpiresAt   = "expires_at"
	fieldLastURL     = "last_url"
	fieldUserID      = "user_id"
)

// consumeStateScript clears the state field only when it equals ARGV[1].
var consumeStateScript = redis.NewScript(`
local v = redis.call('HGET', KEYS[1], 'state')
if v and v ~= '' and v == ARGV[1] then
  redis.call('HSET', KEYS[1], 'state', '')
  return 1
end
return 0
`)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int

	// KeyPrefix namespaces the session keys, e.g. "login:session:".
	KeyPrefix string
	// TTL is refreshed on every write (default 30m).
	TTL time.Duration

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

var _ Repo = (*RedisRepo)(nil)

// RedisRepo stores each session as a Redis hash so the CSRF state can be
// consumed atomically across server instances.
type RedisRepo struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

// NewRedisRepo connects to Redis and verifies the connection.
func NewRedisRepo(ctx context.Context, cfg RedisConfig) (*RedisRepo, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisRepoWithClient(client, cfg.KeyPrefix, cfg.TTL), nil
}

// NewRedisRepoWithClient creates a RedisRepo with a pre-configured client.
// This is useful for testing with miniredis.
func NewRedisRepoWithClient(client redis.UniversalClient, keyPrefix string, ttl time.Duration) *RedisRepo {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisRepo{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

// Close releases the underlying client.
func (r *RedisRepo) Close() error {
	return r.client.Close()
}

func (r *RedisRepo) key(sessionID string) string {
	return r.keyPrefix + sessionID
}

func (r *RedisRepo) Get(ctx context.Context, sessionID string) (*SessionData, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("sessionID is required")
	}

	values, err := r.client.HGetAll(ctx, r.key(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if len(values) == 0 {
		return nil, autherrors.ErrSessionNotFound
	}

	return &SessionData{
		ID:          sessionID,
		Provider:    values[fieldProvider],
		State:       values[fieldState],
		Timestamp:   parseUnixNano(values[fieldTimestamp]),
		AccessToken: values[fieldAccessToken],
		IssuedAt:    parseUnixNano(values[fieldIssuedAt]),
		ExpiresAt:   parseUnixNano(values[fieldExpiresAt]),
		LastURL:     values[fieldLastURL],
		UserID:      values[fieldUserID],
	}, nil
}

func (r *RedisRepo) Upsert(ctx context.Context, sessionID string, sessionData *SessionData) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}
	if sessionData == nil {
		return fmt.Errorf("sessionData cannot be nil")
	}
	sessionData.ID = sessionID

	key := r.key(sessionID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, map[string]any{
			fieldProvider:    sessionData.Provider,
			fieldState:       sessionData.State,
			fieldTimestamp:   formatUnixNano(sessionData.Timestamp),
			fieldAccessToken: sessionData.AccessToken,
			fieldIssuedAt:    formatUnixNano(sessionData.IssuedAt),
			fieldExpiresAt:   formatUnixNano(sessionData.ExpiresAt),
			fieldLastURL:     sessionData.LastURL,
			fieldUserID:      sessionData.UserID,
		})
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (r *RedisRepo) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}
	if err := r.client.Del(ctx, r.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *RedisRepo) ConsumeState(ctx context.Context, sessionID, state string) (bool, error) {
	if sessionID == "" {
		return false, fmt.Errorf("sessionID is required")
	}
	if state == "" {
		return false, nil
	}

	n, err := consumeStateScript.Run(ctx, r.client, []string{r.key(sessionID)}, state).Int()
	if err != nil {
		return false, fmt.Errorf("failed to consume state: %w", err)
	}
	return n == 1, nil
}

func formatUnixNano(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return strconv.FormatInt(t.UnixNano(), 10)
}

func parseUnixNano(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(0, n)
}
