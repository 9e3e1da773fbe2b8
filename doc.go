// Package sharingway is the public, stable entry point to this module: a
// local-host pub/sub IPC fabric built on named shared-memory segments and
// named mutex/auto-reset-event pairs. See README or SPEC_FULL.md for the
// full design.
//
// Internal packages (internal/segment, internal/locksignal,
// internal/registry, internal/provider, internal/subscriber) hold the
// implementation; this package re-exports the stable embedding surface,
// the same shape as modules/framebus/api.go does for its internal bus
// package.
package sharingway
