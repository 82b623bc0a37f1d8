package driftwatch

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryer_SucceedsFirstAttempt(t *testing.T) {
	r := NewRetryer(DefaultRetryConfig())
	calls := 0
	err := r.Do(context.Background(), func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryer_RetriesUntilSuccess(t *testing.T) {
	r := NewRetryer(RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond})
	calls := 0
	err := r.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryer_ExhaustsAttempts(t *testing.T) {
	r := NewRetryer(RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond})
	wantErr := errors.New("persistent")
	calls := 0
	err := r.Do(context.Background(), func() error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("Do = %v, want the last attempt's error", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestRetryer_RetryIf(t *testing.T) {
	fatal := errors.New("fatal")
	r := NewRetryer(RetryConfig{
		MaxAttempts:    5,
		InitialBackoff: time.Millisecond,
		RetryIf:        func(err error) bool { return !errors.Is(err, fatal) },
	})
	calls := 0
	err := r.Do(context.Background(), func() error {
		calls++
		return fatal
	})
	if !errors.Is(err, fatal) {
		t.Errorf("Do = %v, want fatal", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry for fatal errors)", calls)
	}
}

func TestRetryer_ContextCancellation(t *testing.T) {
	r := NewRetryer(RetryConfig{MaxAttempts: 10, InitialBackoff: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- r.Do(ctx, func() error { return errors.New("transient") })
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Do = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}
}

func TestAddJitter(t *testing.T) {
	r := NewRetryer(RetryConfig{Jitter: 0.5})
	base := 100 * time.Millisecond
	for i := 0; i < 20; i++ {
		got := r.addJitter(base)
		if got < 50*time.Millisecond || got > 150*time.Millisecond {
			t.Fatalf("jittered %v outside ±50%% of %v", got, base)
		}
	}

	noJitter := &Retryer{config: RetryConfig{Jitter: 0}}
	if got := noJitter.addJitter(base); got != base {
		t.Errorf("addJitter with zero jitter = %v, want %v", got, base)
	}
}
