//go:build !windows

package segment

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/sharingway-go/sharingway/internal/sherrors"
)

// posixBackend is the non-Windows counterpart of windowsBackend. There is
// no POSIX kernel object with Win32 named-mapping semantics, so this maps a
// file in a well-known shared directory by the same name — the same trick
// markrussinovich-grpc-go-shmem's shm_mmap_unix.go uses for its gRPC
// transport segments (mmap over a file under /dev/shm).
type posixBackend struct {
	file *os.File
	data []byte
}

func segmentDir() string {
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

// sanitize turns a kernel-namespace name (which may contain the Windows
// "Global\" prefix separator) into a safe file name.
func sanitize(name string) string {
	r := strings.NewReplacer(`\`, "_", "/", "_")
	return r.Replace(name)
}

func segmentPath(name string) string {
	return filepath.Join(segmentDir(), sanitize(name))
}

func openBackend(name string, size int) (backend, error) {
	path := segmentPath(name)

	file, err := os.OpenFile(path, os.O_RDWR, 0o666)
	created := false
	if errors.Is(err, os.ErrNotExist) {
		file, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o666)
		created = true
		if errors.Is(err, os.ErrExist) {
			// Lost the create race; another process attached first.
			file, err = os.OpenFile(path, os.O_RDWR, 0o666)
			created = false
		}
	}
	if err != nil {
		return nil, translateUnixErr(err)
	}

	if created {
		if err := file.Truncate(int64(size)); err != nil {
			file.Close()
			os.Remove(path)
			return nil, fmt.Errorf("truncate: %w", err)
		}
	} else {
		info, err := file.Stat()
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("stat: %w", err)
		}
		size = int(info.Size())
	}

	data, err := unix.Mmap(int(file.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		file.Close()
		return nil, translateUnixErr(err)
	}

	return &posixBackend{file: file, data: data}, nil
}

func (b *posixBackend) Bytes() []byte { return b.data }

func (b *posixBackend) Close() error {
	var firstErr error
	if b.data != nil {
		if err := unix.Munmap(b.data); err != nil {
			firstErr = err
		}
		b.data = nil
	}
	if b.file != nil {
		if err := b.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		b.file = nil
	}
	return firstErr
}

func translateUnixErr(err error) error {
	if errors.Is(err, os.ErrPermission) || errors.Is(err, unix.EACCES) {
		return fmt.Errorf("%w: %v", sherrors.ErrAccessDenied, err)
	}
	return err
}
