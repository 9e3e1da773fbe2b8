// Package locksignal implements the Cross-Process Lock/Signal Pair from
// §4.2: a named mutex for exclusion and a named auto-reset event for edge
// notification, sharing a base name. The protocol contract between writer
// and reader is enforced by call discipline, not by this package:
//
//  1. Writer: Acquire -> mutate segment -> Release -> Signal.
//  2. Reader: Wait -> Acquire -> read segment -> Release.
package locksignal

import (
	"fmt"
	"time"

	"github.com/sharingway-go/sharingway/internal/naming"
	"github.com/sharingway-go/sharingway/internal/sherrors"
)

// Pair is a named mutex + named auto-reset event, opened (or created)
// together under one base name.
type Pair struct {
	baseName string
	backend  backend
}

// backend is the OS-specific half of a Pair.
type backend interface {
	acquire(timeout time.Duration) (abandoned bool, err error)
	release() error
	signal() error
	wait(timeout time.Duration) (signalled bool, err error)
	close() error
}

// Open attaches to (or creates) the mutex and event named after baseName.
func Open(baseName string) (*Pair, error) {
	b, err := openBackend(baseName)
	if err != nil {
		return nil, fmt.Errorf("locksignal: open %q: %w", baseName, err)
	}
	return &Pair{baseName: baseName, backend: b}, nil
}

// OpenNamed opens a Pair whose mutex/event names are derived from nameFn
// under the privileged-prefix fallback policy in mode. Per §3's naming
// scheme, the mutex and event names are the *segment's* base name with
// ".Lock"/".Signal" appended, so nameFn is the same function passed to the
// paired segment.OpenNamed call — typically naming.Segment or
// naming.RegistrySegment partially applied to a provider name.
func OpenNamed(nameFn func(prefix string) string, mode naming.PrefixMode) (*Pair, error) {
	var result *Pair
	_, err := naming.OpenWithFallback(mode, nameFn, func(name string) error {
		p, openErr := Open(name)
		if openErr != nil {
			return openErr
		}
		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Acquire blocks up to timeout on the mutex. abandoned reports whether the
// previous holder died without releasing; callers must treat the guarded
// state as possibly inconsistent when abandoned is true, but they do hold
// the mutex on return when err is nil, abandoned or not.
func (p *Pair) Acquire(timeout time.Duration) (abandoned bool, err error) {
	if p.backend == nil {
		return false, sherrors.ErrNotAttached
	}
	return p.backend.acquire(timeout)
}

// Release releases the mutex. Only the acquiring thread may call this.
func (p *Pair) Release() error {
	if p.backend == nil {
		return sherrors.ErrNotAttached
	}
	return p.backend.release()
}

// Signal sets the event, waking at most one waiter (auto-reset semantics).
// Signalling with no waiter present leaves the event set for the next
// waiter; it never accumulates past one pending edge. On the POSIX backend
// the event is a shared counter that each Pair compares against the last
// value it saw, so every waiting Pair observes each edge; only the Windows
// backend wakes a single waiter.
func (p *Pair) Signal() error {
	if p.backend == nil {
		return sherrors.ErrNotAttached
	}
	return p.backend.signal()
}

// Wait blocks up to timeout for the next edge, consuming it. It reports
// signalled=false on timeout, which is not an error.
func (p *Pair) Wait(timeout time.Duration) (signalled bool, err error) {
	if p.backend == nil {
		return false, sherrors.ErrNotAttached
	}
	return p.backend.wait(timeout)
}

// Close releases the underlying OS handles. Idempotent.
func (p *Pair) Close() error {
	if p.backend == nil {
		return nil
	}
	err := p.backend.close()
	p.backend = nil
	return err
}
