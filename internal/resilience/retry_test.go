package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastPolicy() Policy {
	return Policy{Attempts: 3, Backoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
}

func TestDo_SuccessOnFirstAttempt(t *testing.T) {
	var calls int
	err := Do(context.Background(), DefaultPolicy(), "test", func(_ context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_SuccessAfterRetry(t *testing.T) {
	var calls int
	err := Do(context.Background(), fastPolicy(), "test", func(_ context.Context) error {
		calls++
		if calls < 3 {
			return Transient(errors.New("database is starting up"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	var calls int
	want := Transient(errors.New("always fails"))
	err := Do(context.Background(), fastPolicy(), "test", func(_ context.Context) error {
		calls++
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("expected last error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_PermanentErrorNotRetried(t *testing.T) {
	var calls int
	err := Do(context.Background(), fastPolicy(), "test", func(_ context.Context) error {
		calls++
		return errors.New("pricing: no currencies defined")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_CustomRetryable(t *testing.T) {
	var calls int
	p := fastPolicy()
	p.Retryable = func(error) bool { return true }
	_ = Do(context.Background(), p, "test", func(_ context.Context) error {
		calls++
		return errors.New("anything")
	})
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_ContextCancelledStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	p := Policy{Attempts: 5, Backoff: time.Hour, MaxBackoff: time.Hour}

	done := make(chan error, 1)
	go func() {
		done <- Do(ctx, p, "test", func(_ context.Context) error {
			calls++
			return Transient(errors.New("down"))
		})
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("retry did not stop on cancellation")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDoVal_ReturnsValue(t *testing.T) {
	var calls int
	got, err := DoVal(context.Background(), fastPolicy(), "test", func(_ context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", Transient(errors.New("blip"))
		}
		return "USD", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "USD" {
		t.Errorf("expected USD, got %q", got)
	}
}

func TestPolicy_WithAttempts(t *testing.T) {
	if got := DefaultPolicy().WithAttempts(0).Attempts; got != 1 {
		t.Errorf("expected 1 attempt, got %d", got)
	}
	if got := DefaultPolicy().WithAttempts(4).Attempts; got != 4 {
		t.Errorf("expected 4 attempts, got %d", got)
	}
}

func TestPolicy_DelayCapped(t *testing.T) {
	p := Policy{Backoff: time.Second, MaxBackoff: 3 * time.Second}.withDefaults()
	if d := p.delay(1); d != time.Second {
		t.Errorf("attempt 1: expected 1s, got %v", d)
	}
	if d := p.delay(2); d != 2*time.Second {
		t.Errorf("attempt 2: expected 2s, got %v", d)
	}
	if d := p.delay(5); d != 3*time.Second {
		t.Errorf("attempt 5: expected 3s cap, got %v", d)
	}
}
