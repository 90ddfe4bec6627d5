// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package dedup remembers which inputs have already been analysed, using
// Redis keys with a TTL. Checking and marking are separate steps; a key is
// only recorded once its work has succeeded. Inputs are keyed by a hash of
// their content so a sample file is skipped on later runs even if renamed.
package dedup

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL is how long we remember a seen input.
	DefaultTTL = 24 * time.Hour

	// keyPrefix namespaces dedup keys in Redis.
	keyPrefix = "commanalysis:seen:"
)

// Filter tracks which inputs have already been processed.
type Filter struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewFilter creates a dedup filter backed by Redis. ttl <= 0 selects
// DefaultTTL.
func NewFilter(rdb *redis.Client, ttl time.Duration) *Filter {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Filter{
		rdb: rdb,
		ttl: ttl,
	}
}

// ContentKey derives a stable key from text.
func ContentKey(text string) string {
	return strconv.FormatUint(xxhash.Sum64String(text), 16)
}

// Seen reports whether key is marked, without marking it.
func (f *Filter) Seen(ctx context.Context, key string) (bool, error) {
	n, err := f.rdb.Exists(ctx, keyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("dedup EXISTS: %w", err)
	}
	return n > 0, nil
}

// Mark records key as seen for the filter's TTL.
func (f *Filter) Mark(ctx context.Context, key string) error {
	if err := f.rdb.Set(ctx, keyPrefix+key, 1, f.ttl).Err(); err != nil {
		return fmt.Errorf("dedup SET: %w", err)
	}
	return nil
}

// SeenContent is Seen keyed by ContentKey(text).
func (f *Filter) SeenContent(ctx context.Context, text string) (bool, error) {
	return f.Seen(ctx, ContentKey(text))
}

// MarkContent is Mark keyed by ContentKey(text).
func (f *Filter) MarkContent(ctx context.Context, text string) error {
	return f.Mark(ctx, ContentKey(text))
}
