//go:build !unix

package repository

// LockFileName sits next to the campaign store in the data directory.
const LockFileName = ".campaigner.lock"

// Lock is a no-op where flock is unavailable.
type Lock struct{}

func AcquireLock(dir string) (*Lock, error) { return &Lock{}, nil }

func (l *Lock) Release() error { return nil }
