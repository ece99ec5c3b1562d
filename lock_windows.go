//go:build windows

package models

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/windows"
)

// fetchLock serializes artifact downloads across processes using
// LockFileEx() mandatory locking on Windows. Two operator invocations
// fetching the same artifact would otherwise race on the temp and final
// paths.
type fetchLock struct {
	// file is the lock file handle.
	file *os.File

	// timeout is the maximum duration to wait for lock acquisition.
	timeout time.Duration

	// locked tracks whether the lock is currently held.
	locked bool
}

// newFetchLock creates a lock for the given path, creating the lock file if
// it doesn't exist.
func newFetchLock(path string, timeout time.Duration) (*fetchLock, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	return &fetchLock{
		file:    file,
		timeout: timeout,
	}, nil
}

// lock acquires an exclusive mandatory lock, polling with backoff until the
// timeout expires.
func (l *fetchLock) lock() error {
	if l.locked {
		return nil
	}

	deadline := time.Now().Add(l.timeout)
	sleepDuration := 10 * time.Millisecond

	for {
		err := windows.LockFileEx(
			windows.Handle(l.file.Fd()),
			windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY,
			0,
			1, 0,
			&windows.Overlapped{},
		)
		if err == nil {
			l.locked = true
			return nil
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("lock timeout after %v", l.timeout)
		}

		time.Sleep(sleepDuration)
		if sleepDuration < 100*time.Millisecond {
			sleepDuration *= 2
		}
	}
}

// unlock releases the mandatory lock and closes the file handle.
// Safe to call multiple times.
func (l *fetchLock) unlock() error {
	if !l.locked {
		if l.file != nil {
			l.file.Close()
			l.file = nil
		}
		return nil
	}

	var unlockErr error
	if l.file != nil {
		unlockErr = windows.UnlockFileEx(
			windows.Handle(l.file.Fd()),
			0,
			1, 0,
			&windows.Overlapped{},
		)
		l.file.Close()
		l.file = nil
	}
	l.locked = false

	return unlockErr
}
