//go:build unix

package repository

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	appErrors "github.com/unclebandit/campaigner/internal/errors"
)

// LockFileName sits next to the campaign store in the data directory.
const LockFileName = ".campaigner.lock"

// Lock is an exclusive advisory lock held for the life of the process so only
// one writer touches the store at a time.
type Lock struct {
	path string
	f    *os.File
}

// AcquireLock takes the store lock without blocking.
func AcquireLock(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, appErrors.NewStoreError("lock", dir, err)
	}
	path := filepath.Join(dir, LockFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, appErrors.NewStoreError("lock", path, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			err = fmt.Errorf("another campaigner process holds the store lock")
		}
		return nil, appErrors.NewStoreError("lock", path, err)
	}
	_ = f.Truncate(0)
	_, _ = fmt.Fprintf(f, "%d\n", os.Getpid())
	return &Lock{path: path, f: f}, nil
}

func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	defer func() { l.f = nil }()
	if err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN); err != nil {
		l.f.Close()
		return appErrors.NewStoreError("unlock", l.path, err)
	}
	return l.f.Close()
}
