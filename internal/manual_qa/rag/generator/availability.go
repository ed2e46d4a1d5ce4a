// Package generator hosts the answer-generation backends and the
// availability state that gates them.
package generator

import (
	"context"
	"sync"
)

// AvailabilityState describes whether the configured generator backend can
// currently serve requests.
type AvailabilityState string

const (
	// StateChecking means a probe is in flight or has not run yet.
	StateChecking AvailabilityState = "checking"
	// StateAvailable means the backend answered a probe and can generate.
	StateAvailable AvailabilityState = "available"
	// StateDownloading means the backend is reachable but the model is
	// still being pulled.
	StateDownloading AvailabilityState = "downloading"
	// StateDisabled means generation was switched off in configuration.
	StateDisabled AvailabilityState = "disabled"
	// StateDeviceUnsupported means the host cannot run the backend at all.
	StateDeviceUnsupported AvailabilityState = "device_unsupported"
	// StateUnavailable means the backend failed its probe.
	StateUnavailable AvailabilityState = "unavailable"
)

// Prober checks whether a generator backend is ready and explains why not.
type Prober interface {
	Probe(ctx context.Context) (AvailabilityState, string)
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context) (AvailabilityState, string)

func (f ProberFunc) Probe(ctx context.Context) (AvailabilityState, string) {
	return f(ctx)
}

// StaticProber always reports the same state, for disabled or unsupported
// deployments.
type StaticProber struct {
	State  AvailabilityState
	Reason string
}

func (p StaticProber) Probe(context.Context) (AvailabilityState, string) {
	return p.State, p.Reason
}

// Availability tracks the generator's readiness. The state starts at
// checking and changes only when Refresh is called; there is no background
// polling.
type Availability struct {
	mu     sync.RWMutex
	prober Prober
	state  AvailabilityState
	reason string
}

// NewAvailability creates a tracker in the checking state.
func NewAvailability(prober Prober) *Availability {
	return &Availability{prober: prober, state: StateChecking}
}

// Current returns the last probed state and its reason.
func (a *Availability) Current() (AvailabilityState, string) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state, a.reason
}

// Ready reports whether queries may be served right now.
func (a *Availability) Ready() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state == StateAvailable
}

// Refresh re-probes the backend and returns the new state. The state passes
// through checking while the probe runs so concurrent readers see an honest
// answer.
func (a *Availability) Refresh(ctx context.Context) (AvailabilityState, string) {
	a.mu.Lock()
	a.state = StateChecking
	a.reason = ""
	a.mu.Unlock()

	state, reason := a.prober.Probe(ctx)

	a.mu.Lock()
	a.state = state
	a.reason = reason
	a.mu.Unlock()
	return state, reason
}
