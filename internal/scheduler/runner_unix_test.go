//go:build unix

package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/kosavsech/SchoolDiary-sub000/internal/filelock"
)

func TestRunnerLockHeldElsewhere(t *testing.T) {
	dir := t.TempDir()
	held := filelock.New(filepath.Join(dir, "grades.lock"))
	if err := held.TryLock(); err != nil {
		t.Fatal(err)
	}
	defer held.Release()

	ran := false
	reg := NewRegistry()
	reg.Register("grades", fixed(JobFunc(func(context.Context) Report {
		ran = true
		return Succeeded(0, 0)
	})))
	r := NewRunner(reg)
	r.LockDir = dir

	rep := r.Run(context.Background(), Payload{JobName: "grades"})
	if rep.Result != Retry || !errors.Is(rep.Err, ErrJobRunning) {
		t.Errorf("report = %+v", rep)
	}
	if ran {
		t.Error("job ran while lock was held")
	}

	held.Release()
	if rep := r.Run(context.Background(), Payload{JobName: "grades"}); rep.Result != Success || !ran {
		t.Errorf("after release: report = %+v ran = %v", rep, ran)
	}
}
