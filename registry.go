package sharingway

import (
	"log/slog"
	"time"

	"github.com/sharingway-go/sharingway/internal/registry"
)

// ProviderStatus mirrors a provider's registry status.
type ProviderStatus = registry.Status

const (
	StatusOnline  = registry.StatusOnline
	StatusOffline = registry.StatusOffline
	StatusError   = registry.StatusError
)

// ProviderDescriptor is the public view of a registry entry.
type ProviderDescriptor = registry.Descriptor

// RegistryOption configures a Registry.
type RegistryOption = registry.Option

func RegistryWithLogger(l *slog.Logger) RegistryOption { return registry.WithLogger(l) }

func RegistryWithPrefixMode(mode PrefixMode) RegistryOption { return registry.WithPrefixMode(mode) }

func RegistryWithHeartbeatSweep(threshold, interval time.Duration) RegistryOption {
	return registry.WithHeartbeatSweep(threshold, interval)
}

// Registry is a handle on the shared provider roster, usable standalone by
// hosts that want to inspect the registry without running a Provider or
// Subscriber (e.g. a monitoring tool).
type Registry struct {
	inner *registry.Registry
}

// NewRegistry constructs and initializes a standalone Registry handle.
func NewRegistry(opts ...RegistryOption) (*Registry, error) {
	r := registry.New(opts...)
	if err := r.Initialize(); err != nil {
		return nil, err
	}
	return &Registry{inner: r}, nil
}

// Snapshot returns the current set of registered providers.
func (r *Registry) Snapshot() ([]ProviderDescriptor, error) { return r.inner.Snapshot() }

// OnChange installs a callback invoked whenever the registry changes.
func (r *Registry) OnChange(handler func(snapshot []ProviderDescriptor)) {
	r.inner.OnChange(handler)
}

// Shutdown releases the registry handle's resources.
func (r *Registry) Shutdown() error { return r.inner.Shutdown() }
