// Package segment implements the Shared Segment component from §4.1: a
// fixed-size named byte region with a length-prefixed JSON framer. The
// wire format is a first-class contract (see doc.go) — it is identical on
// every backend so cross-language/cross-process parties agree by layout
// alone, never by a shared Go type.
package segment

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/sharingway-go/sharingway/internal/sherrors"
)

// DefaultSize is the default segment size (1 MiB) used when a caller does
// not request a specific size.
const DefaultSize = 1 << 20

// headerSize is the length of the little-endian int32 length prefix at
// offset 0 of every segment.
const headerSize = 4

// Segment is a fixed-size named shared-memory region. The zero value is
// not usable; construct with Open.
type Segment struct {
	name string
	size int

	mu      sync.Mutex // guards attached/backend swap during Close
	backend backend
}

// backend is the OS-specific half of a Segment: attach/detach and a raw
// byte view over the mapped region. Platform files implement this.
type backend interface {
	// Bytes returns the live backing slice. Writes through it are visible
	// to every other attacher of the same name immediately; callers must
	// hold the associated Lock/Signal pair's mutex while mutating it.
	Bytes() []byte
	// Close detaches this handle's view of the region.
	Close() error
}

// Open attaches to an existing segment of the given name, or creates one of
// the requested size if none exists. On the POSIX backend size is ignored
// when attaching to an existing segment (its size was fixed at creation).
// On the Windows backend the view is always mapped at the requested size:
// attaching with a size larger than the existing mapping fails, and
// attaching with a smaller one exposes only that many bytes.
func Open(name string, size int) (*Segment, error) {
	if size <= headerSize {
		size = DefaultSize
	}
	b, err := openBackend(name, size)
	if err != nil {
		return nil, fmt.Errorf("segment: open %q: %w", name, err)
	}
	return &Segment{name: name, size: len(b.Bytes()), backend: b}, nil
}

// Name returns the segment's name.
func (s *Segment) Name() string { return s.name }

// Size returns the segment's total byte size, including the 4-byte header.
func (s *Segment) Size() int { return s.size }

// WriteFrame writes bytes as the current frame. Requires
// len(bytes)+4 <= Size(). The caller must hold the segment's associated
// mutex (see lock/signal pair) for the duration of the call.
func (s *Segment) WriteFrame(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.backend == nil {
		return sherrors.ErrNotAttached
	}
	if len(data)+headerSize > s.size {
		return fmt.Errorf("segment: %d+4 > %d: %w", len(data), s.size, sherrors.ErrOversize)
	}

	buf := s.backend.Bytes()
	binary.LittleEndian.PutUint32(buf[0:headerSize], uint32(int32(len(data))))
	copy(buf[headerSize:headerSize+len(data)], data)
	return nil
}

// ReadFrame reads the current frame. It reports ErrEmpty when L == 0, and
// ErrInvalid when the length prefix is out of range. The caller must hold
// the segment's associated mutex for the duration of the call.
func (s *Segment) ReadFrame() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.backend == nil {
		return nil, sherrors.ErrNotAttached
	}

	buf := s.backend.Bytes()
	length := int32(binary.LittleEndian.Uint32(buf[0:headerSize]))

	if length == 0 {
		return nil, sherrors.ErrEmpty
	}
	if length < 0 || int(length) > s.size-headerSize {
		return nil, fmt.Errorf("segment: length %d out of range for size %d: %w", length, s.size, sherrors.ErrInvalid)
	}

	out := make([]byte, length)
	copy(out, buf[headerSize:headerSize+int(length)])
	return out, nil
}

// Close detaches this handle and releases its OS resources. Idempotent.
func (s *Segment) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.backend == nil {
		return nil
	}
	err := s.backend.Close()
	s.backend = nil
	return err
}
