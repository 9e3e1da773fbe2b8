//go:build windows

package locksignal

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/windows"

	"github.com/sharingway-go/sharingway/internal/naming"
	"github.com/sharingway-go/sharingway/internal/sherrors"
)

// windowsBackend wraps a named mutex + named auto-reset event, the direct
// analogue of the original's NamedSyncObjects (OpenMutexA/CreateMutexA,
// OpenEventA/CreateEventA with bManualReset=FALSE).
type windowsBackend struct {
	mutex windows.Handle
	event windows.Handle
}

func openBackend(baseName string) (backend, error) {
	mutexName, err := windows.UTF16PtrFromString(naming.MutexName(baseName))
	if err != nil {
		return nil, err
	}
	eventName, err := windows.UTF16PtrFromString(naming.EventName(baseName))
	if err != nil {
		return nil, err
	}

	mutex, err := windows.OpenMutex(windows.MUTEX_ALL_ACCESS, false, mutexName)
	if err != nil {
		mutex, err = windows.CreateMutex(nil, false, mutexName)
		if err != nil {
			return nil, translateWindowsErr(err)
		}
	}

	event, err := windows.OpenEvent(windows.EVENT_ALL_ACCESS, false, eventName)
	if err != nil {
		// manualReset=0 (FALSE): auto-reset, per §3/§4.2.
		event, err = windows.CreateEvent(nil, 0, 0, eventName)
		if err != nil {
			windows.CloseHandle(mutex)
			return nil, translateWindowsErr(err)
		}
	}

	return &windowsBackend{mutex: mutex, event: event}, nil
}

func (b *windowsBackend) acquire(timeout time.Duration) (bool, error) {
	result, err := windows.WaitForSingleObject(b.mutex, uint32(timeout.Milliseconds()))
	switch result {
	case windows.WAIT_OBJECT_0:
		return false, nil
	case windows.WAIT_ABANDONED:
		return true, nil
	case uint32(windows.WAIT_TIMEOUT):
		return false, sherrors.ErrTimeout
	default:
		if err != nil {
			return false, err
		}
		return false, fmt.Errorf("locksignal: unexpected wait result %d", result)
	}
}

func (b *windowsBackend) release() error {
	return windows.ReleaseMutex(b.mutex)
}

func (b *windowsBackend) signal() error {
	return windows.SetEvent(b.event)
}

func (b *windowsBackend) wait(timeout time.Duration) (bool, error) {
	result, err := windows.WaitForSingleObject(b.event, uint32(timeout.Milliseconds()))
	switch result {
	case windows.WAIT_OBJECT_0:
		return true, nil
	case uint32(windows.WAIT_TIMEOUT):
		return false, nil
	default:
		return false, err
	}
}

func (b *windowsBackend) close() error {
	var firstErr error
	if b.mutex != 0 {
		if err := windows.CloseHandle(b.mutex); err != nil {
			firstErr = err
		}
		b.mutex = 0
	}
	if b.event != 0 {
		if err := windows.CloseHandle(b.event); err != nil && firstErr == nil {
			firstErr = err
		}
		b.event = 0
	}
	return firstErr
}

func translateWindowsErr(err error) error {
	if errors.Is(err, windows.ERROR_ACCESS_DENIED) {
		return fmt.Errorf("%w: %v", sherrors.ErrAccessDenied, err)
	}
	return err
}
