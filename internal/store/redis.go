package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/nitesh/bill_monitor/pkg/models"
)

const (
	TokenKey     = "rada_api_token_cache"
	SeenBillsKey = "rada_seen_bills_ids"

	// keep SADD commands well below redis argument limits
	saddBatch = 1000
)

// cachedToken mirrors the stored credential: expiresAt is unix milliseconds.
type cachedToken struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

func encodeToken(cred models.Credential) ([]byte, error) {
	return json.Marshal(cachedToken{Token: cred.Token, ExpiresAt: cred.ExpiresAt.UnixMilli()})
}

func decodeToken(b []byte) (*models.Credential, error) {
	var ct cachedToken
	if err := json.Unmarshal(b, &ct); err != nil {
		return nil, fmt.Errorf("decode cached token: %w", err)
	}
	return &models.Credential{Token: ct.Token, ExpiresAt: time.UnixMilli(ct.ExpiresAt)}, nil
}

// RedisStore keeps the credential, the query results and the seen-bill set in redis.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) GetToken(ctx context.Context) (*models.Credential, error) {
	b, err := s.rdb.Get(ctx, TokenKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", TokenKey, err)
	}
	return decodeToken(b)
}

// SetToken overwrites the cached credential. The key has no TTL; validity
// is decided by the stored expiry.
func (s *RedisStore) SetToken(ctx context.Context, cred models.Credential) error {
	b, err := encodeToken(cred)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, TokenKey, b, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", TokenKey, err)
	}
	return nil
}

func (s *RedisStore) GetResult(ctx context.Context, key string) ([]models.ClassifiedBill, bool, error) {
	b, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	var bills []models.ClassifiedBill
	if err := json.Unmarshal(b, &bills); err != nil {
		return nil, false, fmt.Errorf("decode cached result %s: %w", key, err)
	}
	return bills, true, nil
}

// SetResultIfAbsent writes bills under key only when no value exists yet.
// It reports whether this call stored the value.
func (s *RedisStore) SetResultIfAbsent(ctx context.Context, key string, bills []models.ClassifiedBill, ttl time.Duration) (bool, error) {
	b, err := json.Marshal(bills)
	if err != nil {
		return false, fmt.Errorf("encode result %s: %w", key, err)
	}
	ok, err := s.rdb.SetNX(ctx, key, b, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	return ok, nil
}

func (s *RedisStore) SeenIDs(ctx context.Context) (map[string]struct{}, error) {
	members, err := s.rdb.SMembers(ctx, SeenBillsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers %s: %w", SeenBillsKey, err)
	}
	out := make(map[string]struct{}, len(members))
	for _, m := range members {
		out[m] = struct{}{}
	}
	return out, nil
}

// AddSeen unions ids into the seen set. It never removes members.
func (s *RedisStore) AddSeen(ctx context.Context, ids []string) error {
	for start := 0; start < len(ids); start += saddBatch {
		end := start + saddBatch
		if end > len(ids) {
			end = len(ids)
		}
		members := make([]interface{}, 0, end-start)
		for _, id := range ids[start:end] {
			members = append(members, id)
		}
		if err := s.rdb.SAdd(ctx, SeenBillsKey, members...).Err(); err != nil {
			return fmt.Errorf("redis sadd %s (batch at %d): %w", SeenBillsKey, start, err)
		}
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
