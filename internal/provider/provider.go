// Package provider implements the Provider component from §4.4: a single
// named data source publishing JSON payloads through a Shared Segment
// guarded by its own Lock/Signal pair, with a lifecycle mirrored into the
// Registry.
package provider

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sharingway-go/sharingway/internal/locksignal"
	"github.com/sharingway-go/sharingway/internal/naming"
	"github.com/sharingway-go/sharingway/internal/registry"
	"github.com/sharingway-go/sharingway/internal/segment"
	"github.com/sharingway-go/sharingway/internal/sherrors"
)

// publishLockTimeout is the original's exact Lock(5000) budget on
// Provider::Publish.
const publishLockTimeout = 5 * time.Second

// ShutdownLockTimeout is the original's exact Lock(1000) budget used only
// for the drained-shutdown write, distinct from publishLockTimeout.
const ShutdownLockTimeout = time.Second

// State is the Provider lifecycle from §4.4: Uninitialized -> Online ->
// Offline. There is no way back to Uninitialized.
type State int

const (
	Uninitialized State = iota
	Online
	Offline
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Online:
		return "online"
	case Offline:
		return "offline"
	default:
		return "unknown"
	}
}

// Provider publishes JSON payloads under a single registered name.
type Provider struct {
	name         string
	description  string
	capabilities []string
	mode         naming.PrefixMode
	logger       *slog.Logger

	registry *registry.Registry
	ownsReg  bool

	mu    sync.Mutex
	state State
	seg   *segment.Segment
	pair  *locksignal.Pair
}

// Option configures a Provider at construction time.
type Option func(*Provider)

// WithLogger overrides the default logger (slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

// WithPrefixMode selects strict or lenient privileged-prefix fallback.
func WithPrefixMode(mode naming.PrefixMode) Option {
	return func(p *Provider) { p.mode = mode }
}

// WithRegistry attaches an already-initialized Registry instead of letting
// the Provider own and manage one. Useful for hosts that run several
// providers sharing one registry handle.
func WithRegistry(r *registry.Registry) Option {
	return func(p *Provider) { p.registry = r }
}

// New constructs a Provider and, per the original's constructor-time
// registration (Provider::Provider), immediately initializes and registers
// in the Registry under name. Registration is best-effort: if the registry
// is unreachable (§4.4), New still returns a usable Provider that operates
// in isolation — its publishes remain visible to any subscriber that
// attaches to its payload segment directly, they just never show up in a
// registry snapshot. The payload segment is not opened yet; call Initialize
// for that.
func New(name, description string, capabilities []string, opts ...Option) (*Provider, error) {
	p := &Provider{
		name:         name,
		description:  description,
		capabilities: capabilities,
		mode:         naming.PrefixLenient,
		logger:       slog.Default(),
		state:        Uninitialized,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.registry == nil {
		p.registry = registry.New(registry.WithLogger(p.logger), registry.WithPrefixMode(p.mode))
		p.ownsReg = true
		if err := p.registry.Initialize(); err != nil {
			p.logger.Warn("provider: registry unreachable, operating in isolation", "provider", name, "err", err)
			p.registry = nil
			p.ownsReg = false
			return p, nil
		}
	}

	if err := p.registry.Register(name, description, capabilities); err != nil {
		p.logger.Warn("provider: registry register failed, operating in isolation", "provider", name, "err", err)
		if p.ownsReg {
			p.registry.Shutdown()
		}
		p.registry = nil
		p.ownsReg = false
	}

	return p, nil
}

// Name returns the provider's registered name.
func (p *Provider) Name() string { return p.name }

// State returns the provider's current lifecycle state.
func (p *Provider) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Initialize opens the payload Shared Segment and its Lock/Signal pair and
// transitions to Online. size selects the segment capacity; 0 selects
// segment.DefaultSize.
func (p *Provider) Initialize(size int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != Uninitialized {
		return fmt.Errorf("provider %q: already initialized", p.name)
	}

	seg, err := segment.OpenNamed(func(prefix string) string { return naming.Segment(prefix, p.name) }, size, p.mode)
	if err != nil {
		return fmt.Errorf("provider %q: open segment: %w", p.name, err)
	}
	pair, err := locksignal.OpenNamed(func(prefix string) string { return naming.Segment(prefix, p.name) }, p.mode)
	if err != nil {
		seg.Close()
		return fmt.Errorf("provider %q: open sync: %w", p.name, err)
	}

	p.seg = seg
	p.pair = pair
	p.state = Online

	if p.registry != nil {
		if err := p.registry.UpdateStatus(p.name, registry.StatusOnline); err != nil {
			p.logger.Warn("provider: status update on initialize failed", "provider", p.name, "err", err)
		}
	}

	return nil
}

// Publish writes data as the current frame and signals waiting subscribers.
// It requires the provider to be Online; a write that cannot acquire the
// lock within publishLockTimeout reports failure and neither writes nor
// signals. Each successful publish also refreshes the registry heartbeat
// via UpdateStatus(Online), the original's only heartbeat mechanism.
func (p *Provider) Publish(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != Online {
		return fmt.Errorf("provider %q: not online: %w", p.name, sherrors.ErrNotAttached)
	}

	traceID := uuid.New().String()
	log := p.logger.With(slog.String("trace_id", traceID), slog.String("provider", p.name))

	if _, err := p.pair.Acquire(publishLockTimeout); err != nil {
		log.Warn("provider: publish lock acquire failed", "err", err)
		return fmt.Errorf("provider %q: publish: %w", p.name, err)
	}

	writeErr := p.seg.WriteFrame(data)
	if err := p.pair.Release(); err != nil {
		log.Warn("provider: publish release failed", "err", err)
	}
	if writeErr != nil {
		log.Warn("provider: publish write failed", "err", writeErr)
		return fmt.Errorf("provider %q: publish: %w", p.name, writeErr)
	}

	// Release before Signal, per §4.2's writer protocol: a waiter woken by
	// the signal must find the mutex already free.
	if err := p.pair.Signal(); err != nil {
		log.Warn("provider: publish signal failed", "err", err)
		return fmt.Errorf("provider %q: publish: %w", p.name, err)
	}

	if p.registry != nil {
		if err := p.registry.UpdateStatus(p.name, registry.StatusOnline); err != nil {
			log.Warn("provider: heartbeat update failed", "err", err)
		}
	}

	return nil
}

// Shutdown drains the channel with an empty JSON object frame ("{}") under a 1-second lock
// budget (distinct from Publish's 5-second budget, per the original), marks
// the provider Offline in the registry, and releases all handles. This runs
// even if Initialize was never called (or failed): New already registered
// the provider and, if it owns the registry, started its watcher goroutine,
// so a never-Initialized provider still has a registry entry and a running
// watcher to tear down. Idempotent.
func (p *Provider) Shutdown() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == Offline {
		return nil
	}

	if p.pair != nil {
		if _, err := p.pair.Acquire(ShutdownLockTimeout); err == nil {
			writeErr := p.seg.WriteFrame([]byte("{}"))
			p.pair.Release()
			if writeErr != nil {
				p.logger.Warn("provider: shutdown drain write failed", "provider", p.name, "err", writeErr)
			} else if err := p.pair.Signal(); err != nil {
				p.logger.Warn("provider: shutdown drain signal failed", "provider", p.name, "err", err)
			}
		} else {
			p.logger.Warn("provider: shutdown lock acquire failed", "provider", p.name, "err", err)
		}
	}

	if p.registry != nil {
		if err := p.registry.UpdateStatus(p.name, registry.StatusOffline); err != nil {
			p.logger.Warn("provider: offline status update failed", "provider", p.name, "err", err)
		}
	}

	p.state = Offline

	var firstErr error
	if p.pair != nil {
		if err := p.pair.Close(); err != nil {
			firstErr = err
		}
		p.pair = nil
	}
	if p.seg != nil {
		if err := p.seg.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		p.seg = nil
	}
	if p.ownsReg {
		if err := p.registry.Shutdown(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
