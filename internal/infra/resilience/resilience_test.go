package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/billstats-bfa/internal/infra/resilience"
)

func TestRetryWithBackoff_Success(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     3,
		InitialBackoff: 10 * time.Millisecond,
	}

	callCount := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		callCount++
		return nil
	})

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
}

func TestRetryWithBackoff_RetriesOnFailure(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     3,
		InitialBackoff: 10 * time.Millisecond,
	}

	callCount := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		callCount++
		if callCount < 3 {
			return errors.New("temporary error")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
}

func TestRetryWithBackoff_ExhaustsRetries(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     2,
		InitialBackoff: 10 * time.Millisecond,
	}

	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		return errors.New("persistent error")
	})

	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}
}

func TestRetryWithBackoff_RespectsContext(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     5,
		InitialBackoff: 1 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := resilience.RetryWithBackoff(ctx, cfg, func() error {
		return errors.New("error")
	})

	if err == nil {
		t.Fatal("expected context error")
	}
}

func TestBulkhead_AcquireRelease(t *testing.T) {
	bh := resilience.NewBulkhead(2)

	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire, got %v", err)
	}
	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire, got %v", err)
	}

	// Third acquire should block until the context times out
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := bh.Acquire(ctx)
	if err == nil {
		t.Fatal("expected timeout on third acquire")
	}

	// Release one slot
	bh.Release()

	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire after release, got %v", err)
	}
}

func TestRetryWithBackoff_StopsOnPermanent(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     5,
		InitialBackoff: 10 * time.Millisecond,
	}
	notFound := errors.New("row not found")

	callCount := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		callCount++
		return resilience.Permanent(notFound)
	})

	if !errors.Is(err, notFound) {
		t.Fatalf("expected the permanent error back, got %v", err)
	}
	if resilience.IsPermanent(err) {
		t.Error("expected the permanent marker to be stripped")
	}
	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
}

func TestRetryWithBackoff_ZeroBackoff(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 2}

	callCount := 0
	_ = resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		callCount++
		return errors.New("boom")
	})

	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
}

func TestGuard_OpensAfterRepeatedFailures(t *testing.T) {
	guard := resilience.NewGuard(
		resilience.NewCircuitBreaker("test-open"),
		resilience.Config{MaxConcurrency: 2},
	)

	for i := 0; i < 5; i++ {
		_ = guard.Do(context.Background(), func() error { return errors.New("down") })
	}

	called := false
	err := guard.Do(context.Background(), func() error {
		called = true
		return nil
	})
	if !resilience.IsCircuitOpen(err) {
		t.Fatalf("expected open circuit, got %v", err)
	}
	if called {
		t.Error("expected fn not to run while the circuit is open")
	}
}

func TestGuard_PermanentErrorsDoNotTrip(t *testing.T) {
	guard := resilience.NewGuard(
		resilience.NewCircuitBreaker("test-permanent"),
		resilience.Config{MaxConcurrency: 2},
	)
	missing := errors.New("missing")

	for i := 0; i < 10; i++ {
		err := guard.Do(context.Background(), func() error { return resilience.Permanent(missing) })
		if !errors.Is(err, missing) {
			t.Fatalf("attempt %d: expected missing, got %v", i, err)
		}
	}

	if err := guard.Do(context.Background(), func() error { return nil }); err != nil {
		t.Fatalf("expected circuit to stay closed, got %v", err)
	}
}
