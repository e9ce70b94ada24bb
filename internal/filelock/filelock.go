// Package filelock provides cross-process exclusive locks backed by OS
// file locks. A lock is released automatically when its process exits.
package filelock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	initialBackoff = 5 * time.Millisecond
	maxBackoff     = 50 * time.Millisecond
)

// ErrHeld is returned by TryLock when another holder owns the lock.
var ErrHeld = errors.New("lock held by another process")

// Lock is an exclusive lock on a single file. It is not reentrant and a
// Lock value must not be shared between goroutines.
type Lock struct {
	path string
	file *os.File
}

// New returns a lock for path. The file is created on first acquire.
func New(path string) *Lock {
	return &Lock{path: path}
}

// Path of the lock file
func (l *Lock) Path() string { return l.path }

// Acquire waits up to timeout for the lock, backing off exponentially.
// The error names the current holder when the wait times out.
func (l *Lock) Acquire(timeout time.Duration) error {
	if err := l.open(); err != nil {
		return err
	}

	deadline := time.Now().Add(timeout)
	backoff := initialBackoff

	for {
		if err := l.tryLock(); err == nil {
			l.writeHolder()
			return nil
		}

		if time.Now().After(deadline) {
			holder := l.readHolder()
			l.file.Close()
			l.file = nil
			return fmt.Errorf("lock %s timeout after %v (holder: %s)", filepath.Base(l.path), timeout, holder)
		}

		time.Sleep(backoff)
		if backoff < maxBackoff {
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}
}

// TryLock makes a single non-blocking attempt. It returns an error
// wrapping ErrHeld if the lock is taken.
func (l *Lock) TryLock() error {
	if err := l.open(); err != nil {
		return err
	}
	if err := l.tryLock(); err != nil {
		holder := l.readHolder()
		l.file.Close()
		l.file = nil
		return fmt.Errorf("%w: %s", ErrHeld, holder)
	}
	l.writeHolder()
	return nil
}

// Release drops the lock. Releasing an unheld lock is a no-op.
func (l *Lock) Release() error {
	if l.file == nil {
		return nil
	}

	l.file.Truncate(0)
	l.unlock()

	err := l.file.Close()
	l.file = nil
	return err
}

func (l *Lock) open() error {
	if l.file != nil {
		return fmt.Errorf("lock %s already held", filepath.Base(l.path))
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	l.file = f
	return nil
}

// writeHolder records the owning process for diagnostics.
func (l *Lock) writeHolder() {
	l.file.Truncate(0)
	l.file.Seek(0, 0)
	fmt.Fprintf(l.file, "pid:%d\ntime:%s\n", os.Getpid(), time.Now().Format(time.RFC3339))
	l.file.Sync()
}

func (l *Lock) readHolder() string {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return "unknown"
	}

	var pid, timestamp string
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		switch {
		case strings.HasPrefix(line, "pid:"):
			pid = strings.TrimPrefix(line, "pid:")
		case strings.HasPrefix(line, "time:"):
			timestamp = strings.TrimPrefix(line, "time:")
		}
	}
	if pid == "" {
		return "unknown"
	}

	if n, err := strconv.Atoi(pid); err == nil && !isProcessAlive(n) {
		return fmt.Sprintf("pid:%s since %s (stale)", pid, timestamp)
	}
	return fmt.Sprintf("pid:%s since %s", pid, timestamp)
}
