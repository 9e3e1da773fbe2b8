//go:build windows

package segment

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/sharingway-go/sharingway/internal/sherrors"
)

// windowsBackend maps a pagefile-backed, named file mapping — the direct
// analogue of the original's MemoryMappedFile (CreateFileMappingA with
// hFile == INVALID_HANDLE_VALUE, then MapViewOfFile).
type windowsBackend struct {
	mapping windows.Handle
	addr    uintptr
	data    []byte
}

func openBackend(name string, size int) (backend, error) {
	namePtr, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, fmt.Errorf("encode name: %w", err)
	}

	// Try to attach to an existing mapping first, as §4.1 requires.
	mapping, openErr := windows.OpenFileMapping(windows.FILE_MAP_ALL_ACCESS, false, namePtr)
	if openErr != nil {
		mapping, err = windows.CreateFileMapping(
			windows.InvalidHandle,
			nil,
			windows.PAGE_READWRITE,
			0,
			uint32(size),
			namePtr,
		)
		if err != nil && !errors.Is(err, windows.ERROR_ALREADY_EXISTS) {
			return nil, translateWindowsErr(err)
		}
	}

	addr, err := windows.MapViewOfFile(mapping, windows.FILE_MAP_ALL_ACCESS, 0, 0, uintptr(size))
	if err != nil {
		windows.CloseHandle(mapping)
		return nil, translateWindowsErr(err)
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)

	return &windowsBackend{mapping: mapping, addr: addr, data: data}, nil
}

func (b *windowsBackend) Bytes() []byte { return b.data }

func (b *windowsBackend) Close() error {
	var firstErr error
	if b.addr != 0 {
		if err := windows.UnmapViewOfFile(b.addr); err != nil {
			firstErr = err
		}
		b.addr = 0
	}
	if b.mapping != 0 {
		if err := windows.CloseHandle(b.mapping); err != nil && firstErr == nil {
			firstErr = err
		}
		b.mapping = 0
	}
	b.data = nil
	return firstErr
}

// translateWindowsErr maps the handful of Win32 errors the spec's error
// taxonomy (§7) cares about onto sherrors sentinels; everything else passes
// through wrapped but otherwise untranslated.
func translateWindowsErr(err error) error {
	if errors.Is(err, windows.ERROR_ACCESS_DENIED) {
		return fmt.Errorf("%w: %v", sherrors.ErrAccessDenied, err)
	}
	return err
}
