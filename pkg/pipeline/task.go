package pipeline

import "sync"

// Result is the settled outcome of a background task.
type Result[T any] struct {
	Value T
	Err   error
}

// Task wraps a zero-argument operation whose result is consumed later by a
// step. The orchestrator starts all tasks together on the first advance;
// until then nothing runs.
//
// The result channel is buffered, so a task that settles after its consumer
// stopped listening (a lost timeout race, a torn-down pipeline) parks its
// result harmlessly instead of blocking or panicking.
type Task[T any] struct {
	action func() (T, error)
	done   chan Result[T]
	once   sync.Once
}

// NewTask creates an unstarted task.
func NewTask[T any](action func() (T, error)) *Task[T] {
	return &Task[T]{
		action: action,
		done:   make(chan Result[T], 1),
	}
}

// Start launches the task's action. Repeated calls are no-ops.
func (t *Task[T]) Start() {
	t.once.Do(func() {
		go func() {
			v, err := t.action()
			t.done <- Result[T]{Value: v, Err: err}
		}()
	})
}

// Done returns the channel the task's single result arrives on.
func (t *Task[T]) Done() <-chan Result[T] {
	return t.done
}

// Starter is the subset of Task the orchestrator needs: it starts tasks,
// results are read by the steps that own them.
type Starter interface {
	Start()
}
