//go:build !windows

package locksignal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/sharingway-go/sharingway/internal/naming"
	"github.com/sharingway-go/sharingway/internal/sherrors"
)

// pollInterval bounds how finely the POSIX backend polls for a lock or an
// edge. There is no POSIX primitive with Win32's WaitForSingleObject
// timeout-and-abandonment semantics, so both acquire and wait are
// implemented as bounded polling loops over real cross-process state
// (flock(2) for the mutex, a small shared counter file for the event).
// See DESIGN.md for the fidelity tradeoff this implies.
const pollInterval = 10 * time.Millisecond

// posixBackend pairs a flock-guarded mutex file (carrying a 4-byte owner
// PID marker used for abandonment detection) with a counter file used as
// an edge-triggered signal.
type posixBackend struct {
	lockFile  *os.File
	eventFile *os.File
	lastSeen  uint64
	held      bool
}

func lockSignalDir() string {
	if info, err := os.Stat("/dev/shm"); err == nil && info.IsDir() {
		dir := filepath.Join("/dev/shm", "sharingway")
		if os.MkdirAll(dir, 0o777) == nil {
			return dir
		}
	}
	dir := filepath.Join(os.TempDir(), "sharingway")
	os.MkdirAll(dir, 0o777)
	return dir
}

func sanitize(name string) string {
	r := strings.NewReplacer(`\`, "_", "/", "_")
	return r.Replace(name)
}

func openBackend(baseName string) (backend, error) {
	dir := lockSignalDir()

	lockFile, err := openSized(filepath.Join(dir, sanitize(naming.MutexName(baseName))), 4)
	if err != nil {
		return nil, translateUnixErr(err)
	}

	eventFile, err := openSized(filepath.Join(dir, sanitize(naming.EventName(baseName))), 8)
	if err != nil {
		lockFile.Close()
		return nil, translateUnixErr(err)
	}

	b := &posixBackend{lockFile: lockFile, eventFile: eventFile}
	b.lastSeen, _ = b.readCounter()
	return b, nil
}

// openSized opens path for read-write, creating and zero-filling it to
// size if it does not already exist.
func openSized(path string, size int64) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o666)
	if errors.Is(err, os.ErrNotExist) {
		f, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o666)
		if err == nil {
			if info, statErr := f.Stat(); statErr == nil && info.Size() < size {
				_ = f.Truncate(size)
			}
		}
	}
	return f, err
}

func (b *posixBackend) acquire(timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		err := unix.Flock(int(b.lockFile.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			break
		}
		if !errors.Is(err, unix.EWOULDBLOCK) {
			return false, err
		}
		if time.Now().After(deadline) {
			return false, sherrors.ErrTimeout
		}
		time.Sleep(pollInterval)
	}

	owner := make([]byte, 4)
	n, _ := b.lockFile.ReadAt(owner, 0)
	var prevPID uint32
	if n == 4 {
		prevPID = binary.LittleEndian.Uint32(owner)
	}
	abandoned := prevPID != 0 && !processAlive(int(prevPID))

	var mine [4]byte
	binary.LittleEndian.PutUint32(mine[:], uint32(os.Getpid()))
	b.lockFile.WriteAt(mine[:], 0)

	b.held = true
	return abandoned, nil
}

func (b *posixBackend) release() error {
	if !b.held {
		return nil
	}
	var zero [4]byte
	b.lockFile.WriteAt(zero[:], 0)
	b.held = false
	return unix.Flock(int(b.lockFile.Fd()), unix.LOCK_UN)
}

func (b *posixBackend) readCounter() (uint64, error) {
	buf := make([]byte, 8)
	n, err := b.eventFile.ReadAt(buf, 0)
	if err != nil && n != 8 {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf), nil
}

func (b *posixBackend) signal() error {
	if err := unix.Flock(int(b.eventFile.Fd()), unix.LOCK_EX); err != nil {
		return err
	}
	defer unix.Flock(int(b.eventFile.Fd()), unix.LOCK_UN)

	cur, _ := b.readCounter()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], cur+1)
	_, err := b.eventFile.WriteAt(buf[:], 0)
	return err
}

func (b *posixBackend) wait(timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		cur, err := b.readCounter()
		if err == nil && cur != b.lastSeen {
			b.lastSeen = cur
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		time.Sleep(pollInterval)
	}
}

func (b *posixBackend) close() error {
	var firstErr error
	if b.held {
		if err := b.release(); err != nil {
			firstErr = err
		}
	}
	if err := b.lockFile.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := b.eventFile.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// processAlive reports whether pid names a live process, used to decide
// whether a leftover owner marker indicates abandonment.
func processAlive(pid int) bool {
	err := unix.Kill(pid, 0)
	if err == nil {
		return true
	}
	return errors.Is(err, unix.EPERM)
}

func translateUnixErr(err error) error {
	if errors.Is(err, os.ErrPermission) || errors.Is(err, unix.EACCES) {
		return fmt.Errorf("%w: %v", sherrors.ErrAccessDenied, err)
	}
	return err
}
