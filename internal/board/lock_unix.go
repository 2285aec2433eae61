//go:build !windows

package board

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// acquireLock takes an exclusive, non-blocking lock on path.
func acquireLock(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("failed to acquire file lock: %w", err)
	}
	return f, nil
}

// releaseLock unlocks and removes the lock file.
func releaseLock(f *os.File) error {
	if f == nil {
		return nil
	}
	path := f.Name()
	_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
	err1 := f.Close()
	err2 := os.Remove(path)
	if os.IsNotExist(err2) {
		err2 = nil
	}
	return errors.Join(err1, err2)
}
