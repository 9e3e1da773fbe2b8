package naming

import (
	"errors"
	"testing"

	"github.com/sharingway-go/sharingway/internal/sherrors"
)

func TestSegmentMutexEventNames(t *testing.T) {
	got := Segment(Privileged, "alpha")
	want := `Global\Sharingway.alpha`
	if got != want {
		t.Fatalf("Segment() = %q, want %q", got, want)
	}

	if got := Mutex(Privileged, "alpha"); got != want+".Lock" {
		t.Fatalf("Mutex() = %q, want %q", got, want+".Lock")
	}
	if got := Event(Privileged, "alpha"); got != want+".Signal" {
		t.Fatalf("Event() = %q, want %q", got, want+".Signal")
	}

	// Mutex/Event must always be derivable purely from the segment name, so
	// that locksignal can compute them from a paired segment.Name() without
	// re-deriving prefix/provider.
	if got := MutexName(want); got != want+".Lock" {
		t.Fatalf("MutexName() = %q, want %q", got, want+".Lock")
	}
	if got := EventName(want); got != want+".Signal" {
		t.Fatalf("EventName() = %q, want %q", got, want+".Signal")
	}
}

func TestRegistryNames(t *testing.T) {
	if got, want := RegistrySegment(Privileged), `Global\Sharingway.Registry`; got != want {
		t.Fatalf("RegistrySegment() = %q, want %q", got, want)
	}
	if got, want := RegistryMutex(Privileged), `Global\Sharingway.Registry.Lock`; got != want {
		t.Fatalf("RegistryMutex() = %q, want %q", got, want)
	}
	if got, want := RegistryEvent(Privileged), `Global\Sharingway.Registry.Signal`; got != want {
		t.Fatalf("RegistryEvent() = %q, want %q", got, want)
	}
	// §3: "registry sync: uses base name "Registry"" — the registry's
	// Lock/Signal pair must equal an ordinary provider pair named "Registry".
	if got, want := RegistryMutex(Privileged), Mutex(Privileged, RegistryBaseName); got != want {
		t.Fatalf("RegistryMutex() = %q, want it to equal Mutex(prefix, %q) = %q", got, RegistryBaseName, want)
	}
}

func TestUnprivilegedPrefixIsEmpty(t *testing.T) {
	if Unprivileged != "" {
		t.Fatalf("Unprivileged = %q, want empty string", Unprivileged)
	}
	if got, want := Segment(Unprivileged, "alpha"), "Sharingway.alpha"; got != want {
		t.Fatalf("Segment(Unprivileged, ...) = %q, want %q", got, want)
	}
}

func TestOpenWithFallback_SucceedsPrivileged(t *testing.T) {
	name, err := OpenWithFallback(PrefixLenient, func(prefix string) string { return prefix + "x" }, func(name string) error {
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != Privileged+"x" {
		t.Fatalf("name = %q, want %q", name, Privileged+"x")
	}
}

func TestOpenWithFallback_LenientFallsBack(t *testing.T) {
	name, err := OpenWithFallback(PrefixLenient, func(prefix string) string { return prefix + "x" }, func(name string) error {
		if name == Privileged+"x" {
			return sherrors.ErrAccessDenied
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != Unprivileged+"x" {
		t.Fatalf("name = %q, want fallback %q", name, Unprivileged+"x")
	}
}

func TestOpenWithFallback_StrictNeverFallsBack(t *testing.T) {
	_, err := OpenWithFallback(PrefixStrict, func(prefix string) string { return prefix + "x" }, func(name string) error {
		return sherrors.ErrAccessDenied
	})
	if !errors.Is(err, sherrors.ErrAccessDenied) {
		t.Fatalf("err = %v, want ErrAccessDenied", err)
	}
}

func TestOpenWithFallback_NonAccessErrorNeverFallsBack(t *testing.T) {
	sentinel := errors.New("boom")
	calls := 0
	_, err := OpenWithFallback(PrefixLenient, func(prefix string) string { return prefix + "x" }, func(name string) error {
		calls++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want sentinel", err)
	}
	if calls != 1 {
		t.Fatalf("open called %d times, want 1 (no fallback attempt on non-access error)", calls)
	}
}
