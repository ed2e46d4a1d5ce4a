package generator

import (
	"context"
	"testing"
)

func TestNewAvailabilityStartsChecking(t *testing.T) {
	a := NewAvailability(StaticProber{State: StateAvailable})
	state, _ := a.Current()
	if state != StateChecking {
		t.Errorf("initial state = %q, want %q", state, StateChecking)
	}
	if a.Ready() {
		t.Error("Ready() must be false before the first probe")
	}
}

func TestRefreshAdoptsProbeResult(t *testing.T) {
	a := NewAvailability(StaticProber{State: StateDownloading, Reason: "pulling model"})
	state, reason := a.Refresh(context.Background())
	if state != StateDownloading {
		t.Errorf("state = %q, want %q", state, StateDownloading)
	}
	if reason != "pulling model" {
		t.Errorf("reason = %q", reason)
	}
	if a.Ready() {
		t.Error("downloading must not be ready")
	}
}

func TestRefreshToAvailable(t *testing.T) {
	a := NewAvailability(StaticProber{State: StateAvailable})
	a.Refresh(context.Background())
	if !a.Ready() {
		t.Error("available state must be ready")
	}
}

func TestStateChangesOnlyOnRefresh(t *testing.T) {
	calls := 0
	prober := ProberFunc(func(context.Context) (AvailabilityState, string) {
		calls++
		if calls == 1 {
			return StateUnavailable, "server down"
		}
		return StateAvailable, ""
	})
	a := NewAvailability(prober)

	a.Refresh(context.Background())
	if state, _ := a.Current(); state != StateUnavailable {
		t.Fatalf("state = %q, want unavailable", state)
	}
	// Reading repeatedly must not trigger another probe.
	for i := 0; i < 3; i++ {
		a.Current()
	}
	if calls != 1 {
		t.Fatalf("probe called %d times without Refresh", calls)
	}

	a.Refresh(context.Background())
	if state, _ := a.Current(); state != StateAvailable {
		t.Errorf("state after second refresh = %q, want available", state)
	}
}

func TestStaticProberDisabled(t *testing.T) {
	a := NewAvailability(StaticProber{State: StateDisabled, Reason: "generation disabled in configuration"})
	state, reason := a.Refresh(context.Background())
	if state != StateDisabled || reason == "" {
		t.Errorf("got %q/%q", state, reason)
	}
}
