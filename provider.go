package sharingway

import (
	"encoding/json"
	"log/slog"

	"github.com/sharingway-go/sharingway/internal/provider"
)

// ProviderOption configures a Provider.
type ProviderOption = provider.Option

func ProviderWithLogger(l *slog.Logger) ProviderOption { return provider.WithLogger(l) }

func ProviderWithPrefixMode(mode PrefixMode) ProviderOption { return provider.WithPrefixMode(mode) }

// Provider is the public handle on a single named data source, per §4.4 and
// §6 of the design. Construct with NewProvider, which registers in the
// registry immediately; call Initialize before Publish.
type Provider struct {
	inner *provider.Provider
}

// NewProvider constructs and registers a provider named name. Registration
// happens here, not in Initialize — see DESIGN.md's note on constructor-time
// registration.
func NewProvider(name, description string, capabilities []string, opts ...ProviderOption) (*Provider, error) {
	p, err := provider.New(name, description, capabilities, opts...)
	if err != nil {
		return nil, err
	}
	return &Provider{inner: p}, nil
}

// Initialize opens the provider's payload segment at size (0 selects the
// 1 MiB default) and transitions to Online.
func (p *Provider) Initialize(size int) bool {
	return p.inner.Initialize(size) == nil
}

// Publish writes raw bytes as the current frame. Use PublishJSON to marshal
// a Go value first.
func (p *Provider) Publish(data []byte) bool {
	return p.inner.Publish(data) == nil
}

// PublishJSON marshals v and publishes it.
func (p *Provider) PublishJSON(v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		return false
	}
	return p.inner.Publish(data) == nil
}

// IsOnline reports whether the provider is currently Online.
func (p *Provider) IsOnline() bool {
	return p.inner.State() == provider.Online
}

// Shutdown drains the channel, marks the provider Offline in the registry
// (its entry stays listed), and releases its handles. Idempotent.
func (p *Provider) Shutdown() {
	p.inner.Shutdown()
}
