package redis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/livraison/courier-tracking/internal/core/domain"
)

const (
	defaultIdempotencyTTL = time.Hour
	claimTTL              = time.Minute
	claimAttempts         = 2
)

// pendingMarker holds a key while its submission is being persisted.
var pendingMarker = []byte("pending")

// IdempotencyStore remembers the report created for a client-supplied
// Idempotency-Key so retried submissions replay instead of appending.
// Key format: idem:position:<key>
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyStore wraps the given Redis client. A non-positive ttl falls
// back to one hour.
func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

// Claim sets the pending marker with SETNX. Only one caller wins the key;
// the others see either the marker or the report that replaced it.
func (s *IdempotencyStore) Claim(ctx context.Context, key string) (*domain.PositionReport, error) {
	k := s.key(key)
	for range claimAttempts {
		ok, err := s.client.SetNX(ctx, k, pendingMarker, claimTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("idempotency claim: %w", err)
		}
		if ok {
			return nil, nil
		}

		raw, err := s.client.Get(ctx, k).Bytes()
		if errors.Is(err, redis.Nil) {
			// expired between SETNX and GET
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("idempotency lookup: %w", err)
		}
		return decodeClaim(raw)
	}
	return nil, domain.ErrSubmissionInProgress
}

// Remember overwrites the claim with report for the configured TTL.
func (s *IdempotencyStore) Remember(ctx context.Context, key string, report *domain.PositionReport) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("idempotency encode: %w", err)
	}
	return s.client.Set(ctx, s.key(key), raw, s.ttl).Err()
}

// Release deletes the claim so the client can retry with the same key.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

func (s *IdempotencyStore) key(key string) string {
	return idempotencyPrefix + key
}

func decodeClaim(raw []byte) (*domain.PositionReport, error) {
	if bytes.Equal(raw, pendingMarker) {
		return nil, domain.ErrSubmissionInProgress
	}
	var r domain.PositionReport
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("idempotency decode: %w", err)
	}
	return &r, nil
}
