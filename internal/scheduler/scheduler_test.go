package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type readyChan chan struct{}

func (r readyChan) WaitReady(ctx context.Context) error {
	select {
	case <-r:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type countingJob struct {
	runs  atomic.Int32
	panic bool
}

func (j *countingJob) Name() string            { return "counting" }
func (j *countingJob) Interval() time.Duration { return 10 * time.Millisecond }
func (j *countingJob) Run(context.Context, time.Time) {
	j.runs.Add(1)
	if j.panic {
		panic("boom")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSchedulerWaitsForReady(t *testing.T) {
	ready := make(readyChan)
	job := &countingJob{}
	s := New(ready, Options{})
	s.Add(job)
	s.Start(context.Background())
	defer s.Stop()

	time.Sleep(30 * time.Millisecond)
	if job.runs.Load() != 0 {
		t.Fatal("job ran before the client was ready")
	}

	close(ready)
	waitFor(t, func() bool { return job.runs.Load() >= 2 })
}

func TestSchedulerSurvivesPanics(t *testing.T) {
	ready := make(readyChan)
	close(ready)
	job := &countingJob{panic: true}
	s := New(ready, Options{})
	s.Add(job)
	s.Start(context.Background())
	defer s.Stop()

	waitFor(t, func() bool { return job.runs.Load() >= 3 })
}

func TestSchedulerStop(t *testing.T) {
	ready := make(readyChan)
	close(ready)
	job := &countingJob{}
	s := New(ready, Options{Warmup: time.Hour})
	s.Add(job)
	s.Start(context.Background())

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop() blocked during warm-up")
	}
	if job.runs.Load() != 0 {
		t.Error("job should not run during warm-up")
	}
}

func TestRunOnce(t *testing.T) {
	a, b := &countingJob{}, &countingJob{panic: true}
	s := New(make(readyChan), Options{})
	s.Add(b)
	s.Add(a)

	s.RunOnce(context.Background())

	if a.runs.Load() != 1 || b.runs.Load() != 1 {
		t.Errorf("runs = %d, %d, want 1, 1", a.runs.Load(), b.runs.Load())
	}
	if got := len(s.Jobs()); got != 2 {
		t.Errorf("Jobs() = %d, want 2", got)
	}
}
