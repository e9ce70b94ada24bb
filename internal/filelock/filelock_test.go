//go:build unix

package filelock

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestAcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locks", "grades.lock")
	l := New(path)

	if err := l.Acquire(500 * time.Millisecond); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read lock file: %v", err)
	}
	if !strings.Contains(string(data), "pid:") {
		t.Errorf("holder info missing: %q", data)
	}

	if err := l.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("second release: %v", err)
	}
}

func TestTryLockHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.lock")
	first := New(path)
	if err := first.TryLock(); err != nil {
		t.Fatalf("first TryLock: %v", err)
	}
	defer first.Release()

	second := New(path)
	err := second.TryLock()
	if !errors.Is(err, ErrHeld) {
		t.Fatalf("second TryLock err = %v, want ErrHeld", err)
	}

	first.Release()
	if err := second.TryLock(); err != nil {
		t.Fatalf("TryLock after release: %v", err)
	}
	second.Release()
}

func TestAcquireTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.lock")
	holder := New(path)
	if err := holder.Acquire(time.Second); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer holder.Release()

	start := time.Now()
	err := New(path).Acquire(50 * time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout")
	}
	if !strings.Contains(err.Error(), "pid:") {
		t.Errorf("timeout error should name holder: %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("timeout took too long: %v", time.Since(start))
	}
}

func TestConcurrentAcquire(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.lock")

	const workers = 5
	const iterations = 10

	var counter int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				l := New(path)
				if err := l.Acquire(5 * time.Second); err != nil {
					t.Errorf("acquire: %v", err)
					return
				}
				val := atomic.LoadInt64(&counter)
				time.Sleep(time.Millisecond)
				atomic.StoreInt64(&counter, val+1)
				l.Release()
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt64(&counter); got != workers*iterations {
		t.Errorf("counter = %d, want %d", got, workers*iterations)
	}
}
