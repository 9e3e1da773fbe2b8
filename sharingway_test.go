package sharingway

import (
	"testing"
	"time"
)

func TestEndToEndPublishSubscribe(t *testing.T) {
	p, err := NewProvider("test-e2e-top", "top-level e2e", []string{"demo"})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	defer p.Shutdown()

	if !p.Initialize(0) {
		t.Fatalf("Provider.Initialize returned false")
	}
	if !p.IsOnline() {
		t.Fatalf("IsOnline false after Initialize")
	}

	sub := NewSubscriber()
	defer sub.Shutdown()

	received := make(chan []byte, 1)
	sub.SetDataHandler(func(name string, data []byte) {
		if name == "test-e2e-top" {
			received <- data
		}
	})

	if !sub.Subscribe("test-e2e-top") {
		t.Fatalf("Subscribe returned false")
	}

	if !p.PublishJSON(map[string]int{"n": 1}) {
		t.Fatalf("PublishJSON returned false")
	}

	select {
	case data := <-received:
		if string(data) != `{"n":1}` {
			t.Fatalf("got %q", data)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("data handler not invoked within 2s")
	}

	providers := sub.ListProviders()
	found := false
	for _, d := range providers {
		if d.Name == "test-e2e-top" && d.Status == StatusOnline {
			found = true
		}
	}
	if !found {
		t.Fatalf("test-e2e-top not found online in %v", providers)
	}

	p.Shutdown()
	if p.IsOnline() {
		t.Fatalf("IsOnline true after Shutdown")
	}
}

func TestEnsureRegistryInitialized(t *testing.T) {
	if !EnsureRegistryInitialized() {
		t.Fatalf("EnsureRegistryInitialized returned false")
	}
}
