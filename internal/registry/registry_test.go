package registry

import (
	"testing"
	"time"

	"github.com/sharingway-go/sharingway/internal/locksignal"
	"github.com/sharingway-go/sharingway/internal/naming"
)

// Every Registry targets the single well-known registry name; there is no
// way to scope one to its own segment/sync names, so these tests share that
// registry, use distinct provider names, and run sequentially within the
// package to avoid cross-test interference.

func TestRegisterAndSnapshot(t *testing.T) {
	r := New(WithPrefixMode(naming.PrefixLenient))
	if err := r.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer r.Shutdown()

	if err := r.Register("alpha", "alpha provider", []string{"video"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	snap, err := r.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	found := false
	for _, d := range snap {
		if d.Name == "alpha" {
			found = true
			if d.Status != StatusOnline {
				t.Fatalf("want StatusOnline, got %v", d.Status)
			}
			if len(d.Capabilities) != 1 || d.Capabilities[0] != "video" {
				t.Fatalf("capabilities not preserved: %v", d.Capabilities)
			}
		}
	}
	if !found {
		t.Fatalf("alpha not found in snapshot: %v", snap)
	}

	if err := r.Remove("alpha"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
}

func TestUpdateStatusRequiresExistingEntry(t *testing.T) {
	r := New()
	if err := r.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer r.Shutdown()

	if err := r.UpdateStatus("never-registered", StatusOffline); err == nil {
		t.Fatalf("want error updating status of unregistered provider")
	}
}

func TestOnChangeFiresAfterMutation(t *testing.T) {
	r := New()
	if err := r.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer r.Shutdown()

	changed := make(chan []Descriptor, 4)
	r.OnChange(func(snap []Descriptor) {
		select {
		case changed <- snap:
		default:
		}
	})

	if err := r.Register("beta", "beta provider", nil); err != nil {
		t.Fatalf("Register: %v", err)
	}

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatalf("OnChange handler was not invoked within the watcher interval")
	}

	r.Remove("beta")
}

func TestHeartbeatSweepMarksStaleEntriesOffline(t *testing.T) {
	r := New(WithHeartbeatSweep(20*time.Millisecond, 10*time.Millisecond))
	if err := r.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer r.Shutdown()

	if err := r.Register("stale", "stale provider", nil); err != nil {
		t.Fatalf("Register: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := r.Snapshot()
		if err != nil {
			t.Fatalf("Snapshot: %v", err)
		}
		for _, d := range snap {
			if d.Name == "stale" && d.Status == StatusOffline {
				r.Remove("stale")
				return
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("heartbeat sweep did not mark the stale entry offline in time")
}

// TestShutdownRespondsQuicklyWhileWriterHoldsLock exercises §4.3/§5's
// "shutdown is responsive (~1s)": a watcher blocked trying to re-acquire the
// lock after a signal must not wait out the 5s writer budget once stopCh is
// closed. It waits on its own short read budget instead.
func TestShutdownRespondsQuicklyWhileWriterHoldsLock(t *testing.T) {
	r := New()
	if err := r.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	contender, err := locksignal.OpenNamed(naming.RegistrySegment, naming.PrefixLenient)
	if err != nil {
		t.Fatalf("open contending pair: %v", err)
	}
	defer contender.Close()

	if _, err := contender.Acquire(time.Second); err != nil {
		t.Fatalf("contender Acquire: %v", err)
	}
	if err := contender.Signal(); err != nil {
		t.Fatalf("contender Signal: %v", err)
	}

	// Give the watcher a moment to wake on the signal and block trying to
	// re-acquire the lock the contender is still holding.
	time.Sleep(50 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		r.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatalf("Shutdown did not return within 3s while the registry lock was held")
	}

	contender.Release()
}
