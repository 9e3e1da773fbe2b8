// Package subscriber implements the Subscriber component from §4.5: a
// per-provider watcher that waits on a provider's Lock/Signal pair and
// delivers frames (and registry membership changes) to host-supplied
// callbacks.
package subscriber

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
)

// watchLockTimeout is the original's exact Lock(1000) budget used by a
// subscriber to read a provider's segment once woken.
const watchLockTimeout = time.Second

// waitPollTimeout is the original's exact WaitForSignal(1000) budget used
// by a subscriber's per-provider watch loop.
const waitPollTimeout = time.Second

// DataHandler receives a provider's freshly published frame.
type DataHandler func(provider string, data []byte)

// MembershipHandler is invoked once per provider currently listed in the
// registry, every time the registry changes (§4.5: "iterates the current
// snapshot on each change and calls the membership handler once per
// provider with the current status"). The original computes no delta, so
// this core doesn't either — callers diff themselves if they need edges,
// and a provider that disappears from the snapshot produces no synthesized
// Offline call (§4.5's open question, left unresolved as the spec leaves
// it).
type MembershipHandler func(provider string, status registry.Status)

// subscription is one provider's live watch.
type subscription struct {
	provider string
	seg      *segment.Segment
	pair     *locksignal.Pair
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// Subscriber watches a set of providers and the registry.
type Subscriber struct {
	mode   naming.PrefixMode
	logger *slog.Logger

	reg     *registry.Registry
	ownsReg bool

	callbackMu sync.Mutex
	onData     DataHandler
	onMember   MembershipHandler

	mu   sync.Mutex
	subs map[string]*subscription
}

// Option configures a Subscriber at construction time.
type Option func(*Subscriber)

// WithLogger overrides the default logger (slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(s *Subscriber) { s.logger = l }
}

// WithPrefixMode selects strict or lenient privileged-prefix fallback.
func WithPrefixMode(mode naming.PrefixMode) Option {
	return func(s *Subscriber) { s.mode = mode }
}

// New constructs a Subscriber. Initialize is needed only for membership
// forwarding; Subscribe works without it, and ListProviders falls back to a
// temporary registry handle when it has not been called.
func New(opts ...Option) *Subscriber {
	s := &Subscriber{
		mode:   naming.PrefixLenient,
		logger: slog.Default(),
		subs:   make(map[string]*subscription),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize opens a registry handle and starts forwarding registry changes
// to the membership handler.
func (s *Subscriber) Initialize() error {
	s.reg = registry.New(registry.WithLogger(s.logger), registry.WithPrefixMode(s.mode))
	s.ownsReg = true
	if err := s.reg.Initialize(); err != nil {
		return fmt.Errorf("subscriber: registry init: %w", err)
	}
	s.reg.OnChange(func(snap []registry.Descriptor) {
		s.callbackMu.Lock()
		defer s.callbackMu.Unlock()
		if s.onMember == nil {
			return
		}
		for _, d := range snap {
			s.onMember(d.Name, d.Status)
		}
	})
	return nil
}

// SetDataHandler installs the callback invoked for every frame read from
// any subscribed provider. Only one handler is held at a time.
func (s *Subscriber) SetDataHandler(h DataHandler) {
	s.callbackMu.Lock()
	defer s.callbackMu.Unlock()
	s.onData = h
}

// SetMembershipHandler installs the callback invoked on every registry
// change, once Initialize has wired the registry watcher.
func (s *Subscriber) SetMembershipHandler(h MembershipHandler) {
	s.callbackMu.Lock()
	defer s.callbackMu.Unlock()
	s.onMember = h
}

// ListProviders returns the current registry snapshot. If this subscriber
// holds no registry handle (Initialize was never called), it degrades to a
// temporary registry handle, reads once, and discards it — matching the
// original's GetAvailableProviders fallback.
func (s *Subscriber) ListProviders() ([]registry.Descriptor, error) {
	if s.reg != nil {
		return s.reg.Snapshot()
	}

	tmp := registry.New(registry.WithLogger(s.logger), registry.WithPrefixMode(s.mode))
	if err := tmp.Initialize(); err != nil {
		return nil, fmt.Errorf("subscriber: temporary registry init: %w", err)
	}
	defer tmp.Shutdown()
	return tmp.Snapshot()
}

// ListSubscriptions returns the names of currently subscribed providers.
func (s *Subscriber) ListSubscriptions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.subs))
	for name := range s.subs {
		names = append(names, name)
	}
	return names
}

// Subscribe opens the named provider's segment and sync pair and starts a
// watcher goroutine. Subscribing to an already-subscribed provider is a
// no-op (idempotent).
func (s *Subscriber) Subscribe(provider string) error {
	s.mu.Lock()
	if _, exists := s.subs[provider]; exists {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	nameFn := func(prefix string) string { return naming.Segment(prefix, provider) }

	seg, err := segment.OpenNamed(nameFn, 0, s.mode)
	if err != nil {
		return fmt.Errorf("subscriber: subscribe %q: open segment: %w", provider, err)
	}
	pair, err := locksignal.OpenNamed(nameFn, s.mode)
	if err != nil {
		seg.Close()
		return fmt.Errorf("subscriber: subscribe %q: open sync: %w", provider, err)
	}

	sub := &subscription{
		provider: provider,
		seg:      seg,
		pair:     pair,
		stopCh:   make(chan struct{}),
	}

	s.mu.Lock()
	if _, exists := s.subs[provider]; exists {
		s.mu.Unlock()
		seg.Close()
		pair.Close()
		return nil
	}
	s.subs[provider] = sub
	s.mu.Unlock()

	sub.wg.Add(1)
	go s.watch(sub)

	return nil
}

// Unsubscribe stops watching provider and releases its handles. Unsubscribing
// from a provider that isn't subscribed is a no-op.
func (s *Subscriber) Unsubscribe(provider string) error {
	s.mu.Lock()
	sub, exists := s.subs[provider]
	if exists {
		delete(s.subs, provider)
	}
	s.mu.Unlock()

	if !exists {
		return nil
	}

	close(sub.stopCh)
	sub.wg.Wait()

	var firstErr error
	if err := sub.pair.Close(); err != nil {
		firstErr = err
	}
	if err := sub.seg.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// watch implements the reader side of the Lock/Signal protocol exactly:
// Wait(1s) -> if signalled, Acquire(1s) -> if acquired, ReadFrame -> always
// Release. ReadFrame's ErrEmpty is not forwarded to the data handler. The
// handler runs under callbackMu, the same mutex the membership forwarder in
// Initialize holds for its own callback, so data and membership callbacks
// across every subscription never run concurrently with each other.
func (s *Subscriber) watch(sub *subscription) {
	defer sub.wg.Done()

	for {
		select {
		case <-sub.stopCh:
			return
		default:
		}

		signalled, err := sub.pair.Wait(waitPollTimeout)
		if err != nil || !signalled {
			continue
		}

		traceID := uuid.New().String()
		log := s.logger.With(slog.String("trace_id", traceID), slog.String("provider", sub.provider))

		abandoned, err := sub.pair.Acquire(watchLockTimeout)
		if err != nil {
			log.Warn("subscriber: acquire after signal failed", "err", err)
			continue
		}
		if abandoned {
			log.Warn("subscriber: acquired abandoned mutex")
		}

		data, err := sub.seg.ReadFrame()
		sub.pair.Release()
		if err != nil {
			continue
		}

		s.callbackMu.Lock()
		if s.onData != nil {
			s.onData(sub.provider, data)
		}
		s.callbackMu.Unlock()
	}
}

// Shutdown stops every watcher, releases all handles, and closes the
// registry handle if this Subscriber owns one. Idempotent.
func (s *Subscriber) Shutdown() error {
	s.mu.Lock()
	subs := s.subs
	s.subs = make(map[string]*subscription)
	s.mu.Unlock()

	var firstErr error
	for _, sub := range subs {
		close(sub.stopCh)
		sub.wg.Wait()
		if err := sub.pair.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := sub.seg.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if s.ownsReg && s.reg != nil {
		if err := s.reg.Shutdown(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.reg = nil
	}

	return firstErr
}
