// Package trust implements the out-of-scope trust-anchor collaborator's
// refresh discipline (spec §4.9, §9 "Shared trust anchors"): a background
// goroutine rebuilds a snapshot of verified certificate/CRL state on a
// fixed interval and publishes it through an atomic swap, so request
// handlers and the DH/GSI flow never block on a refresh in progress.
package trust

import (
	"context"
	"sync/atomic"
	"time"
)

// Snapshot is the immutable result of one refresh cycle. The actual
// certificate pool / CRL verification is the out-of-scope GSI
// collaborator's responsibility (spec §1); this package only owns the
// refresh-and-publish discipline around it.
type Snapshot struct {
	RefreshedAt time.Time
	Generation  uint64
}

// Loader produces a new Snapshot, e.g. by re-reading a CA bundle and CRL
// from disk or a remote endpoint. A Loader error leaves the previous
// snapshot in place; the next scheduled refresh retries (spec §7: "no
// retries at the protocol layer" — but the trust-anchor refresher is
// explicitly exempted by spec §7's second sentence).
type Loader func(ctx context.Context) (*Snapshot, error)

// Anchors holds the current trust-anchor snapshot, refreshed in the
// background. The zero value is not usable; construct with NewAnchors.
type Anchors struct {
	current atomic.Pointer[Snapshot]
	load    Loader
}

// NewAnchors loads an initial snapshot synchronously and returns an Anchors
// ready for Current to be called. It does not start the background
// refresher; call Run for that.
func NewAnchors(ctx context.Context, load Loader) (*Anchors, error) {
	initial, err := load(ctx)
	if err != nil {
		return nil, err
	}
	a := &Anchors{load: load}
	a.current.Store(initial)
	return a, nil
}

// Current returns the most recently published snapshot. Safe to call
// concurrently from any number of goroutines without locking.
func (a *Anchors) Current() *Snapshot {
	return a.current.Load()
}

// Run refreshes the snapshot every interval until ctx is canceled. A
// failed refresh is not fatal: it leaves the current snapshot in place and
// waits for the next interval, matching spec §9's design note that
// refresh failures never disrupt active requests.
func (a *Anchors) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if next, err := a.load(ctx); err == nil {
				a.current.Store(next)
			}
		}
	}
}
