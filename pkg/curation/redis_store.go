package curation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// BasketIDCookie identifies an anonymous basket held in Redis.
const BasketIDCookie = "catalog_basket_id"

const redisKeyPrefix = "catalog:basket:"

// redisClient is the subset of *redis.Client the store uses.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// OwnerFunc returns the stable owner id for a request, or "" for anonymous callers.
type OwnerFunc func(r *http.Request) string

// RedisStore keeps basket changes server-side. Authenticated users get one basket
// per principal; anonymous users are tracked by a random id cookie.
type RedisStore struct {
	client redisClient
	ttl    time.Duration
	owner  OwnerFunc
	secure bool
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client *redis.Client, ttl time.Duration, owner OwnerFunc, secure bool) *RedisStore {
	return newRedisStore(client, ttl, owner, secure)
}

func newRedisStore(client redisClient, ttl time.Duration, owner OwnerFunc, secure bool) *RedisStore {
	if owner == nil {
		owner = func(*http.Request) string { return "" }
	}
	return &RedisStore{client: client, ttl: ttl, owner: owner, secure: secure}
}

func (s *RedisStore) Load(r *http.Request) (Changes, bool, error) {
	key, ok := s.existingKey(r)
	if !ok {
		return Changes{}, false, nil
	}

	data, err := s.client.Get(r.Context(), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Changes{}, false, nil
	}
	if err != nil {
		return Changes{}, false, fmt.Errorf("failed to load basket: %w", err)
	}

	changes, err := decodeChanges(data)
	if err != nil {
		return Changes{}, false, err
	}
	return changes, true, nil
}

func (s *RedisStore) Save(w http.ResponseWriter, r *http.Request, changes Changes) error {
	key, ok := s.existingKey(r)
	if !ok {
		id := uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     BasketIDCookie,
			Value:    id,
			Path:     "/",
			MaxAge:   int(s.ttl.Seconds()),
			HttpOnly: true,
			Secure:   s.secure,
			SameSite: http.SameSiteLaxMode,
		})
		key = redisKeyPrefix + "anon:" + id
	}

	data, err := encodeChanges(changes)
	if err != nil {
		return err
	}
	if err := s.client.Set(r.Context(), key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save basket: %w", err)
	}
	return nil
}

// existingKey resolves the Redis key for a request. ok is false for anonymous
// callers that have not been issued a basket id yet.
func (s *RedisStore) existingKey(r *http.Request) (string, bool) {
	if owner := s.owner(r); owner != "" {
		return redisKeyPrefix + "user:" + owner, true
	}
	cookie, err := r.Cookie(BasketIDCookie)
	if err != nil {
		return "", false
	}
	if _, err := uuid.Parse(cookie.Value); err != nil {
		return "", false
	}
	return redisKeyPrefix + "anon:" + cookie.Value, true
}
