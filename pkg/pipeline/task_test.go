package pipeline

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestTaskDeliversResult(t *testing.T) {
	task := NewTask(func() (int, error) { return 42, nil })
	task.Start()

	select {
	case res := <-task.Done():
		if res.Err != nil {
			t.Fatalf("unexpected error: %v", res.Err)
		}
		if res.Value != 42 {
			t.Errorf("value = %d, want 42", res.Value)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for task result")
	}
}

func TestTaskDeliversError(t *testing.T) {
	boom := errors.New("boom")
	task := NewTask(func() (bool, error) { return false, boom })
	task.Start()

	res := <-task.Done()
	if !errors.Is(res.Err, boom) {
		t.Errorf("err = %v, want %v", res.Err, boom)
	}
}

func TestTaskStartsActionOnce(t *testing.T) {
	var runs atomic.Int32
	task := NewTask(func() (struct{}, error) {
		runs.Add(1)
		return struct{}{}, nil
	})

	task.Start()
	task.Start()
	task.Start()

	<-task.Done()
	if got := runs.Load(); got != 1 {
		t.Errorf("action ran %d times, want 1", got)
	}
}

func TestTaskUnstartedNeverSettles(t *testing.T) {
	task := NewTask(func() (int, error) { return 1, nil })

	select {
	case <-task.Done():
		t.Fatal("unstarted task settled")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTaskLateResultIsParked(t *testing.T) {
	// A settlement nobody reads must not block or panic: the result
	// channel is buffered.
	done := make(chan struct{})
	task := NewTask(func() (int, error) {
		defer close(done)
		return 7, nil
	})
	task.Start()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task action did not complete")
	}
}
