package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultLedgerKey = "jobforge:search:ledger"

// RedisStore keeps the ledger under a single Redis key. A SET of the full
// JSON document is atomic, so readers never see a partial ledger.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = defaultLedgerKey
	}
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Read(ctx context.Context) (*Ledger, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return &Ledger{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger key %q: %w", s.key, err)
	}

	var ledger Ledger
	if err := json.Unmarshal(data, &ledger); err != nil {
		return nil, fmt.Errorf("parse ledger key %q: %w", s.key, err)
	}
	return &ledger, nil
}

func (s *RedisStore) Write(ctx context.Context, ledger *Ledger) error {
	data, err := json.Marshal(ledger)
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("write ledger key %q: %w", s.key, err)
	}
	return nil
}
