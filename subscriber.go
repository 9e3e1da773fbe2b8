package sharingway

import (
	"log/slog"

	"github.com/sharingway-go/sharingway/internal/subscriber"
)

// SubscriberOption configures a Subscriber.
type SubscriberOption = subscriber.Option

func SubscriberWithLogger(l *slog.Logger) SubscriberOption { return subscriber.WithLogger(l) }

func SubscriberWithPrefixMode(mode PrefixMode) SubscriberOption {
	return subscriber.WithPrefixMode(mode)
}

// DataHandler receives a provider's freshly published frame.
type DataHandler = subscriber.DataHandler

// MembershipHandler is invoked once per provider currently listed in the
// registry, every time the registry changes.
type MembershipHandler = subscriber.MembershipHandler

// Subscriber is the public handle on a set of provider subscriptions, per
// §4.5 and §6 of the design.
type Subscriber struct {
	inner *subscriber.Subscriber
}

// NewSubscriber constructs a Subscriber. Initialize is needed only for
// membership forwarding; Subscribe and ListProviders work without it.
func NewSubscriber(opts ...SubscriberOption) *Subscriber {
	return &Subscriber{inner: subscriber.New(opts...)}
}

// Initialize attaches the registry handle and starts membership forwarding.
func (s *Subscriber) Initialize() bool {
	return s.inner.Initialize() == nil
}

// Subscribe starts watching provider name. Idempotent.
func (s *Subscriber) Subscribe(name string) bool {
	return s.inner.Subscribe(name) == nil
}

// Unsubscribe stops watching provider name. Idempotent.
func (s *Subscriber) Unsubscribe(name string) bool {
	return s.inner.Unsubscribe(name) == nil
}

// ListSubscriptions returns the names currently subscribed to.
func (s *Subscriber) ListSubscriptions() []string {
	return s.inner.ListSubscriptions()
}

// ListProviders returns the current registry snapshot.
func (s *Subscriber) ListProviders() []ProviderDescriptor {
	snap, err := s.inner.ListProviders()
	if err != nil {
		return nil
	}
	return snap
}

// SetDataHandler installs the frame callback.
func (s *Subscriber) SetDataHandler(h DataHandler) {
	s.inner.SetDataHandler(h)
}

// SetMembershipHandler installs the registry-change callback.
func (s *Subscriber) SetMembershipHandler(h MembershipHandler) {
	s.inner.SetMembershipHandler(h)
}

// Shutdown stops every watcher and releases all handles. Idempotent.
func (s *Subscriber) Shutdown() {
	s.inner.Shutdown()
}

// EnsureRegistryInitialized seeds the registry (lazy format-on-open) without
// requiring a full Provider or Subscriber. Safe to call before any other
// operation, or not at all — NewProvider, NewRegistry, Subscriber.Initialize
// and Subscriber.ListProviders each format the registry themselves on first
// use.
func EnsureRegistryInitialized(opts ...RegistryOption) bool {
	r, err := NewRegistry(opts...)
	if err != nil {
		return false
	}
	r.Shutdown()
	return true
}
