package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/templui/docshelf/internal/model"
)

// Expired and consumed tokens stay readable this long before Redis evicts them.
const redisTokenRetention = 24 * time.Hour

var redisCreateTokenScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1], "id", ARGV[1], "email", ARGV[2], "purpose", ARGV[3], "issued_at", ARGV[4], "expires_at", ARGV[5])
redis.call("PEXPIREAT", KEYS[1], ARGV[6])
redis.call("SADD", KEYS[2], ARGV[7])
redis.call("PEXPIREAT", KEYS[2], ARGV[6])
return 1
`)

// Compare-and-set on used_at. Times are unix milliseconds.
var redisConsumeTokenScript = redis.NewScript(`
local t = redis.call("HMGET", KEYS[1], "purpose", "expires_at", "used_at")
if not t[1] or t[1] ~= ARGV[1] then
  return 0
end
if t[3] then
  return 0
end
if tonumber(t[2]) < tonumber(ARGV[2]) then
  return 0
end
redis.call("HSET", KEYS[1], "used_at", ARGV[2])
return 1
`)

var redisDeleteUnusedScript = redis.NewScript(`
local values = redis.call("SMEMBERS", KEYS[1])
local removed = 0
for _, v in ipairs(values) do
  local key = ARGV[1] .. v
  if redis.call("HEXISTS", key, "used_at") == 0 then
    redis.call("DEL", key)
    redis.call("SREM", KEYS[1], v)
    removed = removed + 1
  end
end
return removed
`)

type redisTokenRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisTokenRepository stores tokens as hashes under prefix. Consume runs
// as a Lua script so the check and the used mark happen in one step.
func NewRedisTokenRepository(client *redis.Client, prefix string) TokenRepository {
	prefix = strings.TrimSpace(prefix)
	if prefix != "" && !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	return &redisTokenRepository{client: client, prefix: prefix}
}

func (r *redisTokenRepository) tokenKeyPrefix() string {
	return r.prefix + "token:"
}

func (r *redisTokenRepository) tokenKey(value string) string {
	return r.tokenKeyPrefix() + value
}

func (r *redisTokenRepository) indexKey(email string, purpose model.TokenPurpose) string {
	return r.prefix + "tokens:" + string(purpose) + ":" + email
}

func (r *redisTokenRepository) Create(ctx context.Context, token *model.Token) error {
	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	if token.IssuedAt.IsZero() {
		token.IssuedAt = time.Now().UTC()
	}

	keys := []string{r.tokenKey(token.Token), r.indexKey(token.Email, token.Purpose)}
	res, err := redisCreateTokenScript.Run(ctx, r.client, keys,
		token.ID,
		token.Email,
		string(token.Purpose),
		token.IssuedAt.UnixMilli(),
		token.ExpiresAt.UnixMilli(),
		token.ExpiresAt.Add(redisTokenRetention).UnixMilli(),
		token.Token,
	).Int64()
	if err != nil {
		return err
	}
	if res == 0 {
		return ErrDuplicateToken
	}
	return nil
}

func (r *redisTokenRepository) ByToken(ctx context.Context, value string) (*model.Token, error) {
	fields, err := r.client.HGetAll(ctx, r.tokenKey(value)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrTokenNotFound
	}
	return decodeRedisToken(value, fields)
}

func (r *redisTokenRepository) Consume(ctx context.Context, value string, purpose model.TokenPurpose, now time.Time) (*model.Token, error) {
	res, err := redisConsumeTokenScript.Run(ctx, r.client, []string{r.tokenKey(value)},
		string(purpose),
		now.UnixMilli(),
	).Int64()
	if err != nil {
		return nil, err
	}
	if res == 0 {
		return nil, ErrTokenNotFound
	}
	return r.ByToken(ctx, value)
}

func (r *redisTokenRepository) Release(ctx context.Context, value string) error {
	return r.client.HDel(ctx, r.tokenKey(value), "used_at").Err()
}

func (r *redisTokenRepository) DeleteUnused(ctx context.Context, email string, purpose model.TokenPurpose) error {
	return redisDeleteUnusedScript.Run(ctx, r.client, []string{r.indexKey(email, purpose)}, r.tokenKeyPrefix()).Err()
}

// CleanupExpired is a no-op: every token key carries its own expiry.
func (r *redisTokenRepository) CleanupExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	return 0, nil
}

func decodeRedisToken(value string, fields map[string]string) (*model.Token, error) {
	t := &model.Token{
		ID:      fields["id"],
		Token:   value,
		Email:   fields["email"],
		Purpose: model.TokenPurpose(fields["purpose"]),
	}

	var err error
	if t.IssuedAt, err = parseMillis(fields["issued_at"]); err != nil {
		return nil, fmt.Errorf("invalid issued_at: %w", err)
	}
	if t.ExpiresAt, err = parseMillis(fields["expires_at"]); err != nil {
		return nil, fmt.Errorf("invalid expires_at: %w", err)
	}
	if raw, ok := fields["used_at"]; ok {
		usedAt, err := parseMillis(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid used_at: %w", err)
		}
		t.UsedAt = &usedAt
	}
	return t, nil
}

func parseMillis(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.New("missing timestamp")
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}
