package providers

import (
	"context"
	"errors"
	"testing"
)

func TestLimiter_ZeroBudgetIsNoOp(t *testing.T) {
	l := NewLimiter(0, 0)
	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("Wait on unbounded limiter: %v", err)
	}
	l.Observe(errors.New("anything")) // must not panic on nil-bucket limiter
}

func TestLimiter_BackoffHalvesThenFloors(t *testing.T) {
	l := NewLimiter(100, 100)
	l.Observe(&ClassifiedError{Category: CategoryRetryable, Err: errors.New("throttled")})
	if l.currentRPM != 50 {
		t.Errorf("currentRPM after one backoff = %v, want 50", l.currentRPM)
	}
	for i := 0; i < 10; i++ {
		l.Observe(&ClassifiedError{Category: CategoryRetryable, Err: errors.New("throttled")})
	}
	if l.currentRPM != l.minRPM {
		t.Errorf("currentRPM = %v, want floor %v", l.currentRPM, l.minRPM)
	}
}

func TestLimiter_ProbeRecoversTowardMax(t *testing.T) {
	l := NewLimiter(100, 100)
	l.Observe(&ClassifiedError{Category: CategoryRetryable, Err: errors.New("throttled")})
	for i := 0; i < 50; i++ {
		l.Observe(nil)
	}
	if l.currentRPM != l.maxRPM {
		t.Errorf("currentRPM = %v, want ceiling %v", l.currentRPM, l.maxRPM)
	}
}

func TestChannelLimiter_PerKeyIndependence(t *testing.T) {
	cl := NewChannelLimiter(1, 1)
	if !cl.Allow("session-a") {
		t.Error("first call for session-a should be allowed")
	}
	if cl.Allow("session-a") {
		t.Error("second immediate call for session-a should be denied (burst exhausted)")
	}
	if !cl.Allow("session-b") {
		t.Error("session-b has its own bucket, should be allowed")
	}
}

func TestChannelLimiter_UnboundedWhenZeroRPS(t *testing.T) {
	cl := NewChannelLimiter(0, 0)
	for i := 0; i < 5; i++ {
		if !cl.Allow("x") {
			t.Fatal("zero-rps channel limiter should always allow")
		}
	}
}
