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

package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newFilter(t *testing.T, ttl time.Duration) (*Filter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewFilter(rdb, ttl), mr
}

func TestMark_TTL(t *testing.T) {
	f, mr := newFilter(t, time.Minute)
	ctx := context.Background()

	if err := f.Mark(ctx, "k"); err != nil {
		t.Fatalf("Mark: %v", err)
	}
	if seen, _ := f.Seen(ctx, "k"); !seen {
		t.Fatal("expected key to be seen")
	}

	mr.FastForward(2 * time.Minute)
	if seen, _ := f.Seen(ctx, "k"); seen {
		t.Error("expected key to expire after TTL")
	}
}

func TestNewFilter_DefaultTTL(t *testing.T) {
	f, mr := newFilter(t, 0)
	if err := f.MarkContent(context.Background(), "abc"); err != nil {
		t.Fatalf("MarkContent: %v", err)
	}
	if ttl := mr.TTL(keyPrefix + ContentKey("abc")); ttl != DefaultTTL {
		t.Errorf("TTL = %v, want %v", ttl, DefaultTTL)
	}
}

func TestContentKey_Stable(t *testing.T) {
	if ContentKey("abc") != ContentKey("abc") {
		t.Error("ContentKey not deterministic")
	}
	if ContentKey("abc") == ContentKey("abd") {
		t.Error("ContentKey collision on trivially different input")
	}
}

func TestSeenDoesNotMark(t *testing.T) {
	f, mr := newFilter(t, time.Minute)
	ctx := context.Background()
	text := "hello there"

	seen, err := f.SeenContent(ctx, text)
	if err != nil {
		t.Fatalf("SeenContent: %v", err)
	}
	if seen {
		t.Error("unmarked content reported as seen")
	}
	if mr.Exists(keyPrefix + ContentKey(text)) {
		t.Error("SeenContent must not create the key")
	}

	if err := f.MarkContent(ctx, text); err != nil {
		t.Fatalf("MarkContent: %v", err)
	}
	if seen, _ := f.SeenContent(ctx, text); !seen {
		t.Error("marked content should be seen")
	}
	if ttl := mr.TTL(keyPrefix + ContentKey(text)); ttl != time.Minute {
		t.Errorf("TTL = %v, want 1m", ttl)
	}
}

func TestSeenAndMark_RedisDown(t *testing.T) {
	f, mr := newFilter(t, 0)
	mr.SetError("ERR server unavailable")
	if _, err := f.Seen(context.Background(), "k"); err == nil {
		t.Error("expected Seen error when Redis is unavailable")
	}
	if err := f.Mark(context.Background(), "k"); err == nil {
		t.Error("expected Mark error when Redis is unavailable")
	}
}
