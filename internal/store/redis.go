package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/victorlau/liuren-quota/internal/models"
)

const (
	quotaKeyPrefix = "quota:"
	logKeyPrefix   = "log:"

	// scanBatch bounds a single SCAN page during listing.
	scanBatch = 200
)

// casScript atomically replaces a value only when the stored bytes still match
// the expected serialization, keeping the key's remaining TTL. Returns 1 on
// success, 0 on conflict or absence.
var casScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	redis.call("SET", KEYS[1], ARGV[2], "KEEPTTL")
	return 1
end
return 0
`)

// RedisStore implements LedgerStore over a Redis-compatible service.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore wraps an existing Redis client. The caller owns the client
// lifecycle.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func quotaKey(code string) string {
	return quotaKeyPrefix + code
}

// Get fetches and decodes a record. The raw JSON is returned as the CAS
// version token.
func (s *RedisStore) Get(ctx context.Context, code string) (*models.AccessCodeRecord, string, error) {
	raw, err := s.client.Get(ctx, quotaKey(code)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var record models.AccessCodeRecord
	if errDecode := json.Unmarshal([]byte(raw), &record); errDecode != nil {
		return nil, "", fmt.Errorf("decode record %s: %w", code, errDecode)
	}
	return &record, raw, nil
}

// PutIfAbsent creates the record with SETNX so concurrent issuances of the
// same code cannot both succeed.
func (s *RedisStore) PutIfAbsent(ctx context.Context, record *models.AccessCodeRecord, ttl time.Duration) (bool, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return false, fmt.Errorf("encode record %s: %w", record.Code, err)
	}
	created, err := s.client.SetNX(ctx, quotaKey(record.Code), raw, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return created, nil
}

// CompareAndSwap runs the CAS script against the record's key.
func (s *RedisStore) CompareAndSwap(ctx context.Context, code string, expectedRaw string, record *models.AccessCodeRecord) (bool, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return false, fmt.Errorf("encode record %s: %w", code, err)
	}
	res, err := casScript.Run(ctx, s.client, []string{quotaKey(code)}, expectedRaw, string(raw)).Int()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return res == 1, nil
}

// AppendLog writes an audit entry keyed by code and timestamp with a fixed TTL.
func (s *RedisStore) AppendLog(ctx context.Context, entry *models.UsageLogEntry, ttl time.Duration) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode log entry: %w", err)
	}
	key := fmt.Sprintf("%s%s:%d", logKeyPrefix, entry.Code, entry.Timestamp.UnixNano())
	if errSet := s.client.Set(ctx, key, raw, ttl).Err(); errSet != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, errSet)
	}
	return nil
}

// List walks the quota keyspace with SCAN and decodes every record. Entries
// that vanish between the scan and the read are skipped.
func (s *RedisStore) List(ctx context.Context) ([]*models.AccessCodeRecord, error) {
	var (
		records []*models.AccessCodeRecord
		cursor  uint64
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, quotaKeyPrefix+"*", scanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		for _, key := range keys {
			raw, errGet := s.client.Get(ctx, key).Result()
			if errGet != nil {
				if errors.Is(errGet, redis.Nil) {
					continue
				}
				return nil, fmt.Errorf("%w: %v", ErrUnavailable, errGet)
			}
			var record models.AccessCodeRecord
			if errDecode := json.Unmarshal([]byte(raw), &record); errDecode != nil {
				continue
			}
			records = append(records, &record)
		}
		cursor = next
		if cursor == 0 {
			return records, nil
		}
	}
}
