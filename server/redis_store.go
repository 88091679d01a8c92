/**
 * Copyright 2026 Mejora Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	backend "github.com/redis/go-redis/v9"

	"github.com/mejora-dev/mejora/internal/pipeline"
)

// RedisStore keeps run reports in Redis so multiple server replicas share
// one run history. Reports live under <prefix><runID>; a ZSET under
// <prefix>index orders them by start time.
type RedisStore struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

var _ RunStore = (*RedisStore)(nil)

type RedisOption func(*RedisStore)

// WithTTL sets the expiration for stored reports. Zero keeps them forever.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for reports.
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedisStore creates a store with its own client.
func NewRedisStore(address, password string, db int, opts ...RedisOption) *RedisStore {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewRedisStoreFromClient(client, opts...)
}

// NewRedisStoreFromClient creates a store from an existing client.
func NewRedisStoreFromClient(client *backend.Client, opts ...RedisOption) *RedisStore {
	store := &RedisStore{
		client: client,
		prefix: "mejora:run:",
		ttl:    0,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *RedisStore) key(runID string) string {
	return s.prefix + runID
}

func (s *RedisStore) indexKey() string {
	return s.prefix + "index"
}

func (s *RedisStore) Save(ctx context.Context, report *pipeline.Report) error {
	if report == nil || report.RunID == "" {
		return errors.New("report has no run ID")
	}
	data, err := json.Marshal(report)
	if err != nil {
		return errors.Wrap(err, "marshal report")
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(report.RunID), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  float64(report.StartedAt.UnixNano()),
		Member: report.RunID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "save report to redis")
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, runID string) (*pipeline.Report, error) {
	val, err := s.client.Get(ctx, s.key(runID)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, ErrRunNotFound
		}
		return nil, errors.Wrap(err, "get report from redis")
	}
	var report pipeline.Report
	if err := json.Unmarshal([]byte(val), &report); err != nil {
		return nil, errors.Wrap(err, "unmarshal report")
	}
	return &report, nil
}

func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, errors.Wrap(err, "list runs from redis")
	}
	return ids, nil
}

// Close closes the redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
