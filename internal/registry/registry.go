// Package registry implements the Registry component from §4.3: a single
// process-wide collaborator wrapping the registry Shared Segment and its
// Lock/Signal pair, holding the roster of live providers.
package registry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sharingway-go/sharingway/internal/locksignal"
	"github.com/sharingway-go/sharingway/internal/naming"
	"github.com/sharingway-go/sharingway/internal/segment"
	"github.com/sharingway-go/sharingway/internal/sherrors"
)

// Status mirrors the provider status enum from §3: Online, Offline, Error.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
	StatusError   Status = "error"
)

// Descriptor is the Provider Descriptor from §3. Name is carried
// out-of-band (it is the registry document's object key) rather than
// marshaled into the JSON value itself.
type Descriptor struct {
	Name            string   `json:"-"`
	Status          Status   `json:"status"`
	Description     string   `json:"description"`
	Capabilities    []string `json:"capabilities"`
	LastUpdateMs    int64    `json:"lastUpdate"`
	LastHeartbeatMs int64    `json:"lastHeartbeat"`
}

// lockTimeout is the original's exact 5-second budget for every registry
// mutation (RegistryManager::RegisterProvider et al. call Lock(5000)).
const lockTimeout = 5 * time.Second

// watchPollTimeout is the original's exact 1-second watcher poll budget
// (RegistryManager::WatchRegistry calls WaitForSignal(1000)).
const watchPollTimeout = time.Second

// watchReadTimeout bounds the watcher's own post-signal read, distinct from
// lockTimeout's 5-second writer budget. A writer holding the lock across a
// shutdown request must not make the watcher's own stopCh check wait up to
// 5s; keeping this at the same ~1s order as watchPollTimeout keeps shutdown
// responsive per §4.3/§5.
const watchReadTimeout = time.Second

// ChangeHandler is invoked by the background watcher every time the
// registry's event is signalled. It receives no arguments in the original
// design — callers re-snapshot via Snapshot() — but this core also passes
// the freshly read snapshot to save a redundant round trip.
type ChangeHandler func(snapshot []Descriptor)

// Registry wraps the registry Shared Segment + Lock/Signal pair.
type Registry struct {
	mode   naming.PrefixMode
	logger *slog.Logger

	seg  *segment.Segment
	pair *locksignal.Pair

	callbackMu sync.Mutex
	onChange   ChangeHandler

	watchMu  sync.Mutex
	stopCh   chan struct{}
	watchWg  sync.WaitGroup
	watching bool

	sweep *sweepOption

	now func() time.Time
}

// sweepOption configures the optional heartbeat-expiry sweeper that
// resolves §9's "Open question — death detection": off unless requested.
type sweepOption struct {
	threshold time.Duration
	interval  time.Duration
}

// Option configures a Registry at construction time.
type Option func(*Registry)

// WithLogger overrides the default logger (slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithPrefixMode selects strict or lenient privileged-prefix fallback
// (naming.PrefixStrict / naming.PrefixLenient). Default is PrefixLenient.
func WithPrefixMode(mode naming.PrefixMode) Option {
	return func(r *Registry) { r.mode = mode }
}

// WithHeartbeatSweep enables the optional sweeper: entries whose
// lastHeartbeat is older than threshold are marked Offline every interval.
// Disabled by default, matching the original implementation, which has no
// such sweep.
func WithHeartbeatSweep(threshold, interval time.Duration) Option {
	return func(r *Registry) { r.sweep = &sweepOption{threshold: threshold, interval: interval} }
}

// New constructs a Registry. Call Initialize before any other method.
func New(opts ...Option) *Registry {
	r := &Registry{
		mode:   naming.PrefixLenient,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Initialize opens the registry segment and sync pair and, under the lock,
// formats the payload to "{}" if it is absent or not a JSON object. This
// lazy format-on-open is the only initialization step; there is no
// dedicated registry server.
func (r *Registry) Initialize() error {
	seg, err := segment.OpenNamed(naming.RegistrySegment, segment.DefaultSize, r.mode)
	if err != nil {
		return fmt.Errorf("registry: open segment: %w", err)
	}
	pair, err := locksignal.OpenNamed(naming.RegistrySegment, r.mode)
	if err != nil {
		seg.Close()
		return fmt.Errorf("registry: open sync: %w", err)
	}

	r.seg = seg
	r.pair = pair

	if _, err := r.pair.Acquire(lockTimeout); err != nil {
		r.closeHandles()
		return fmt.Errorf("registry: initialize: %w", err)
	}
	doc := r.readLocked()
	writeErr := r.writeLocked(doc)
	if err := r.pair.Release(); err != nil {
		r.logger.Warn("registry: release after format failed", "err", err)
	}
	if writeErr != nil {
		r.closeHandles()
		return fmt.Errorf("registry: format: %w", writeErr)
	}
	// Release before Signal, per §4.2's writer protocol: a waiter woken by
	// the signal must find the mutex already free.
	if err := r.pair.Signal(); err != nil {
		r.logger.Warn("registry: signal after format failed", "err", err)
	}

	r.watchMu.Lock()
	r.stopCh = make(chan struct{})
	r.watching = true
	r.watchWg.Add(1)
	go r.watchLoop(r.stopCh)
	if r.sweep != nil {
		r.watchWg.Add(1)
		go r.sweepLoop(r.stopCh)
	}
	r.watchMu.Unlock()

	return nil
}

// readLocked reads and parses the registry document, treating an
// unparsable or non-object payload as empty — matching the original's
// "try { ... } catch (...) {}" resilience posture from §5 of the spec.
func (r *Registry) readLocked() map[string]Descriptor {
	raw, err := r.seg.ReadFrame()
	if err != nil {
		return map[string]Descriptor{}
	}
	var doc map[string]Descriptor
	if err := json.Unmarshal(raw, &doc); err != nil {
		r.logger.Warn("registry: unparsable document, treating as empty", "err", err)
		return map[string]Descriptor{}
	}
	if doc == nil {
		doc = map[string]Descriptor{}
	}
	return doc
}

func (r *Registry) writeLocked(doc map[string]Descriptor) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return r.seg.WriteFrame(raw)
}

// Register inserts or replaces the entry for name, setting status online
// and both timestamps to now.
func (r *Registry) Register(name, description string, capabilities []string) error {
	return r.mutate(func(doc map[string]Descriptor) (bool, error) {
		now := r.now().UnixMilli()
		doc[name] = Descriptor{
			Status:          StatusOnline,
			Description:     description,
			Capabilities:    capabilities,
			LastUpdateMs:    now,
			LastHeartbeatMs: now,
		}
		return true, nil
	})
}

// UpdateStatus requires the entry to exist; it updates status and
// lastUpdate (and, when transitioning to Online, lastHeartbeat — this is
// how Provider.Publish's heartbeat-via-UpdateStatus keeps liveness fresh).
func (r *Registry) UpdateStatus(name string, status Status) error {
	return r.mutate(func(doc map[string]Descriptor) (bool, error) {
		d, ok := doc[name]
		if !ok {
			return false, fmt.Errorf("registry: %q not registered", name)
		}
		now := r.now().UnixMilli()
		d.Status = status
		d.LastUpdateMs = now
		if status == StatusOnline {
			d.LastHeartbeatMs = now
		}
		doc[name] = d
		return true, nil
	})
}

// Remove deletes the entry for name. Removing a name that does not exist
// is not an error (mirrors map delete semantics).
func (r *Registry) Remove(name string) error {
	return r.mutate(func(doc map[string]Descriptor) (bool, error) {
		delete(doc, name)
		return true, nil
	})
}

// mutate is the shared lock/read/modify/write/signal sequence behind
// Register, UpdateStatus, and Remove. A write that fails to acquire the
// lock within lockTimeout reports failure and does NOT signal, per §4.3.
func (r *Registry) mutate(fn func(doc map[string]Descriptor) (bool, error)) error {
	if r.pair == nil || r.seg == nil {
		return sherrors.ErrNotAttached
	}
	if _, err := r.pair.Acquire(lockTimeout); err != nil {
		return fmt.Errorf("registry: acquire: %w", err)
	}

	doc := r.readLocked()
	changed, fnErr := fn(doc)
	var writeErr error
	if fnErr == nil && changed {
		writeErr = r.writeLocked(doc)
	}
	if err := r.pair.Release(); err != nil {
		r.logger.Warn("registry: release failed", "err", err)
	}

	if fnErr != nil {
		return fnErr
	}
	if !changed {
		return nil
	}
	if writeErr != nil {
		return fmt.Errorf("registry: write: %w", writeErr)
	}
	// Release before Signal, per §4.2's writer protocol.
	return r.pair.Signal()
}

// Snapshot reads the registry under lock and returns a defensive copy.
func (r *Registry) Snapshot() ([]Descriptor, error) {
	return r.snapshot(lockTimeout)
}

func (r *Registry) snapshot(timeout time.Duration) ([]Descriptor, error) {
	if r.pair == nil || r.seg == nil {
		return nil, sherrors.ErrNotAttached
	}
	if _, err := r.pair.Acquire(timeout); err != nil {
		return nil, fmt.Errorf("registry: acquire: %w", err)
	}
	defer r.pair.Release()

	doc := r.readLocked()
	out := make([]Descriptor, 0, len(doc))
	for name, d := range doc {
		d.Name = name
		out = append(out, d)
	}
	return out, nil
}

// OnChange registers a callback invoked by the background watcher each
// time the registry's event is signalled.
func (r *Registry) OnChange(handler ChangeHandler) {
	r.callbackMu.Lock()
	defer r.callbackMu.Unlock()
	r.onChange = handler
}

func (r *Registry) watchLoop(stop <-chan struct{}) {
	defer r.watchWg.Done()
	for {
		select {
		case <-stop:
			return
		default:
		}

		signalled, err := r.pair.Wait(watchPollTimeout)
		if err != nil || !signalled {
			continue
		}

		snap, err := r.snapshot(watchReadTimeout)
		if err != nil {
			r.logger.Warn("registry: snapshot after signal failed", "err", err)
			continue
		}

		r.callbackMu.Lock()
		handler := r.onChange
		r.callbackMu.Unlock()
		if handler != nil {
			handler(snap)
		}
	}
}

// sweepLoop implements the optional heartbeat-expiry sweep from
// WithHeartbeatSweep: every interval, entries whose lastHeartbeat is older
// than threshold are marked Offline.
func (r *Registry) sweepLoop(stop <-chan struct{}) {
	defer r.watchWg.Done()
	ticker := time.NewTicker(r.sweep.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.sweepOnce()
		}
	}
}

func (r *Registry) sweepOnce() {
	cutoff := r.now().Add(-r.sweep.threshold).UnixMilli()
	err := r.mutate(func(doc map[string]Descriptor) (bool, error) {
		changed := false
		for name, d := range doc {
			if d.Status == StatusOnline && d.LastHeartbeatMs < cutoff {
				d.Status = StatusOffline
				doc[name] = d
				changed = true
			}
		}
		return changed, nil
	})
	if err != nil {
		r.logger.Warn("registry: heartbeat sweep failed", "err", err)
	}
}

// Shutdown stops the watcher (and sweeper, if enabled) and releases
// resources. Idempotent.
func (r *Registry) Shutdown() error {
	r.watchMu.Lock()
	if r.watching {
		close(r.stopCh)
		r.watching = false
	}
	r.watchMu.Unlock()
	r.watchWg.Wait()

	return r.closeHandles()
}

// closeHandles releases the segment and sync pair, if open. Safe to call
// when Initialize fails partway through, before the watcher goroutine ever
// starts — there is nothing for Shutdown's watchWg.Wait() to wait on yet.
func (r *Registry) closeHandles() error {
	var firstErr error
	if r.pair != nil {
		if err := r.pair.Close(); err != nil {
			firstErr = err
		}
		r.pair = nil
	}
	if r.seg != nil {
		if err := r.seg.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		r.seg = nil
	}
	return firstErr
}
