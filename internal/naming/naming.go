// Package naming implements the exact kernel-namespace naming scheme from
// §3 of the specification: segment, mutex, and event names derived from a
// prefix and a provider name, plus the distinguished registry names.
package naming

import (
	"errors"

	"github.com/sharingway-go/sharingway/internal/sherrors"
)

// PrefixMode selects whether a privileged-prefix fallback is attempted when
// a named object cannot be opened or created under the privileged prefix.
// This resolves the "Open question — privileged-prefix fallback" design
// note: the original implementation always stays at "Global\" and never
// falls back; this core makes the choice explicit per handle.
type PrefixMode int

const (
	// PrefixLenient retries once without the privileged prefix when the
	// privileged attempt fails with an access-class error. This is the
	// default: it keeps sharing working for callers that lack rights to
	// create system-wide objects, at the cost of silently confining them
	// to the current session.
	PrefixLenient PrefixMode = iota

	// PrefixStrict never falls back. A privileged-prefix failure is
	// reported as-is. Use this when silent session-confinement would be
	// worse than an outright failure.
	PrefixStrict
)

// Privileged is the default kernel-namespace prefix, placing objects in the
// system-wide namespace (requires SeCreateGlobalPrivilege on Windows; on the
// POSIX backend it only becomes part of the file name, sanitized to
// "Global_", inside the same shared directory the unprefixed names use).
const Privileged = `Global\`

// Unprivileged is the session-local fallback prefix.
const Unprivileged = ``

// RegistryBaseName is the base name used for the registry's own Lock/Signal
// pair, per §3: "registry sync: uses base name "Registry"".
const RegistryBaseName = "Registry"

// registrySegmentSuffix is appended to the prefix to form the registry
// segment's name.
const registrySegmentSuffix = "Sharingway.Registry"

// mutexSuffix and eventSuffix are the exact literal suffixes from §3's
// naming scheme, shared by both the prefix+provider constructors below and
// locksignal's derivation of a Lock/Signal pair's names from its paired
// segment's name (they are always the same string plus one of these two
// suffixes).
const (
	mutexSuffix = ".Lock"
	eventSuffix = ".Signal"
)

// Segment returns the segment name for a provider: P + "Sharingway." + N.
func Segment(prefix, provider string) string {
	return prefix + "Sharingway." + provider
}

// Mutex returns the mutex name for a provider: P + "Sharingway." + N + ".Lock".
func Mutex(prefix, provider string) string {
	return MutexName(Segment(prefix, provider))
}

// Event returns the event name for a provider: P + "Sharingway." + N + ".Signal".
func Event(prefix, provider string) string {
	return EventName(Segment(prefix, provider))
}

// MutexName derives a Lock/Signal pair's mutex name from an already-computed
// segment name (segmentName + ".Lock"), per §3.
func MutexName(segmentName string) string {
	return segmentName + mutexSuffix
}

// EventName derives a Lock/Signal pair's event name from an already-computed
// segment name (segmentName + ".Signal"), per §3.
func EventName(segmentName string) string {
	return segmentName + eventSuffix
}

// RegistrySegment returns the distinguished registry segment name.
func RegistrySegment(prefix string) string {
	return prefix + registrySegmentSuffix
}

// RegistryMutex returns the registry's mutex name, derived from the
// "Registry" base name per §3.
func RegistryMutex(prefix string) string {
	return Mutex(prefix, RegistryBaseName)
}

// RegistryEvent returns the registry's event name, derived from the
// "Registry" base name per §3.
func RegistryEvent(prefix string) string {
	return Event(prefix, RegistryBaseName)
}

// OpenWithFallback attempts open under the privileged prefix first. On an
// access-class failure, if mode permits, it retries once under the
// unprivileged prefix — the fallback described in §4.1/§4.2: "this fallback
// preserves cross-process scope within a single security session but
// downgrades when the caller lacks rights to create global objects."
//
// nameFn computes the full object name for a given prefix; open performs
// the actual platform open/create for that name. OpenWithFallback returns
// the name that ultimately succeeded (or was last attempted, on failure).
func OpenWithFallback(mode PrefixMode, nameFn func(prefix string) string, open func(name string) error) (usedName string, err error) {
	priv := nameFn(Privileged)
	if err = open(priv); err == nil {
		return priv, nil
	}
	if mode == PrefixStrict || !errors.Is(err, sherrors.ErrAccessDenied) {
		return priv, err
	}

	unpriv := nameFn(Unprivileged)
	if err = open(unpriv); err == nil {
		return unpriv, nil
	}
	return unpriv, err
}
