package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// newTestLimiter connects to a local Redis instance. Tests that call this
// helper require a running Redis on localhost:6379.
func newTestLimiter(t *testing.T) *Limiter {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return NewLimiter(client)
}

func TestAllowUpToLimit(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()
	id := uuid.New().String()
	rule := Rule{Key: "rl:test:", Limit: 3, Window: time.Minute}

	for i := 1; i <= rule.Limit; i++ {
		ok, err := limiter.Allow(ctx, id, rule)
		if err != nil {
			t.Fatalf("Allow %d: %v", i, err)
		}
		if !ok {
			t.Fatalf("request %d blocked, limit is %d", i, rule.Limit)
		}
	}

	ok, err := limiter.Allow(ctx, id, rule)
	if err != nil {
		t.Fatalf("Allow over limit: %v", err)
	}
	if ok {
		t.Error("expected request over limit to be blocked")
	}
}

func TestRemainingCountsDown(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()
	id := uuid.New().String()
	rule := Rule{Key: "rl:test:", Limit: 5, Window: time.Minute}

	rem, err := limiter.Remaining(ctx, id, rule)
	if err != nil {
		t.Fatalf("Remaining: %v", err)
	}
	if rem != rule.Limit {
		t.Fatalf("expected full limit before any request, got %d", rem)
	}

	limiter.Allow(ctx, id, rule)
	limiter.Allow(ctx, id, rule)

	rem, err = limiter.Remaining(ctx, id, rule)
	if err != nil {
		t.Fatalf("Remaining: %v", err)
	}
	if rem != rule.Limit-2 {
		t.Errorf("expected %d remaining, got %d", rule.Limit-2, rem)
	}
}

func TestRetryAfterWithinWindow(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()
	id := uuid.New().String()
	rule := Rule{Key: "rl:test:", Limit: 1, Window: time.Minute}

	limiter.Allow(ctx, id, rule)

	retry := limiter.RetryAfter(ctx, id, rule)
	if retry <= 0 || retry > 60 {
		t.Errorf("expected retry-after within (0, 60], got %d", retry)
	}
}

func TestRetryAfterUnknownKey(t *testing.T) {
	limiter := newTestLimiter(t)

	if retry := limiter.RetryAfter(context.Background(), uuid.New().String(), RuleMessage); retry != 0 {
		t.Errorf("expected 0 for unknown key, got %d", retry)
	}
}
