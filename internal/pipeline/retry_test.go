package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWithRetryInvokesExactlyNPlusOneTimes(t *testing.T) {
	calls := 0
	permanent := errors.New("always failing")
	fn := WithRetry(func(ctx context.Context, input string) (string, error) {
		calls++
		return "", permanent
	}, 3, time.Millisecond, nil)

	_, err := fn(context.Background(), "in")
	if !errors.Is(err, permanent) {
		t.Fatalf("expected last error to surface, got %v", err)
	}
	if calls != 4 {
		t.Fatalf("expected 4 attempts for maxRetries=3, got %d", calls)
	}
}

func TestWithRetryStopsOnSuccess(t *testing.T) {
	calls := 0
	fn := WithRetry(func(ctx context.Context, input string) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "ok:" + input, nil
	}, 5, time.Millisecond, nil)

	out, err := fn(context.Background(), "in")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "ok:in" {
		t.Fatalf("unexpected output %q", out)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestWithRetrySkipsNonTransientErrors(t *testing.T) {
	calls := 0
	validation := errors.New("validation: bad input")
	fn := WithRetry(func(ctx context.Context, input string) (string, error) {
		calls++
		return "", validation
	}, 5, time.Millisecond, func(err error) bool {
		return !errors.Is(err, validation)
	})

	_, err := fn(context.Background(), "in")
	if !errors.Is(err, validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected single attempt for non-transient error, got %d", calls)
	}
}

func TestWithRetryBackoffDoubles(t *testing.T) {
	var gaps []time.Duration
	last := time.Now()
	fn := WithRetry(func(ctx context.Context, input string) (string, error) {
		now := time.Now()
		gaps = append(gaps, now.Sub(last))
		last = now
		return "", errors.New("transient")
	}, 2, 20*time.Millisecond, nil)

	_, _ = fn(context.Background(), "in")
	if len(gaps) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(gaps))
	}
	// 第一次间隔约 20ms，第二次约 40ms。
	if gaps[1] < 15*time.Millisecond {
		t.Fatalf("first backoff too short: %s", gaps[1])
	}
	if gaps[2] < 30*time.Millisecond {
		t.Fatalf("second backoff did not double: %s", gaps[2])
	}
}

func TestWithRetryHonoursContextDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	fn := WithRetry(func(c context.Context, input string) (string, error) {
		calls++
		cancel()
		return "", errors.New("transient")
	}, 5, time.Hour, nil)

	start := time.Now()
	_, err := fn(ctx, "in")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 attempt before cancellation, got %d", calls)
	}
	if time.Since(start) > time.Second {
		t.Fatal("cancellation should interrupt the backoff sleep")
	}
}
