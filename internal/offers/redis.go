package offers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cx-tal-miterani/fare-booking/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "offer:"

// RedisStore keeps offers in Redis with SET EX. Each offer also gets a
// "seen" marker that outlives it by one TTL, which is how an expired offer
// is told apart from one that never existed or was already consumed.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, prefix: defaultKeyPrefix}
}

func (s *RedisStore) dataKey(id string) string { return s.prefix + id }
func (s *RedisStore) seenKey(id string) string { return s.prefix + "seen:" + id }

func (s *RedisStore) Save(ctx context.Context, route models.Route, amount float64, currency string) (string, error) {
	now := time.Now()
	offer := &Offer{
		ID:        uuid.NewString(),
		Route:     route,
		Amount:    amount,
		Currency:  currency,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.put(ctx, offer, s.ttl); err != nil {
		return "", err
	}
	return offer.ID, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Offer, error) {
	raw, err := s.client.Get(ctx, s.dataKey(id)).Bytes()
	if err != nil {
		return nil, s.classify(ctx, id, err)
	}
	return decodeOffer(raw)
}

func (s *RedisStore) Consume(ctx context.Context, id string) (*Offer, error) {
	raw, err := s.client.GetDel(ctx, s.dataKey(id)).Bytes()
	if err != nil {
		return nil, s.classify(ctx, id, err)
	}
	if err := s.client.Del(ctx, s.seenKey(id)).Err(); err != nil {
		return nil, fmt.Errorf("clear offer marker: %w", err)
	}
	return decodeOffer(raw)
}

func (s *RedisStore) Release(ctx context.Context, offer *Offer) error {
	if offer == nil {
		return nil
	}
	remaining := time.Until(offer.ExpiresAt)
	if remaining <= 0 {
		return ErrExpired
	}
	return s.put(ctx, offer, remaining)
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.dataKey(id), s.seenKey(id)).Err(); err != nil {
		return fmt.Errorf("delete offer: %w", err)
	}
	return nil
}

func (s *RedisStore) put(ctx context.Context, offer *Offer, ttl time.Duration) error {
	raw, err := json.Marshal(offer)
	if err != nil {
		return fmt.Errorf("encode offer: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.dataKey(offer.ID), raw, ttl)
		pipe.Set(ctx, s.seenKey(offer.ID), "1", ttl+s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store offer: %w", err)
	}
	return nil
}

func (s *RedisStore) classify(ctx context.Context, id string, err error) error {
	if !errors.Is(err, redis.Nil) {
		return fmt.Errorf("load offer: %w", err)
	}
	n, existsErr := s.client.Exists(ctx, s.seenKey(id)).Result()
	if existsErr != nil {
		return fmt.Errorf("load offer marker: %w", existsErr)
	}
	if n > 0 {
		return ErrExpired
	}
	return ErrNotFound
}

func decodeOffer(raw []byte) (*Offer, error) {
	var offer Offer
	if err := json.Unmarshal(raw, &offer); err != nil {
		return nil, fmt.Errorf("decode offer: %w", err)
	}
	return &offer, nil
}
