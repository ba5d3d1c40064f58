package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/systemstart/prelaunch/pkg/api"
)

// Orchestrator owns the step sequence for one launcher run. An external
// driver (user action, timer, or a step's own async continuation) calls
// Advance repeatedly; the orchestrator pops and runs one step per call.
//
// Advance never blocks and never returns an error: all fallibility lives
// inside step actions. Continuations arrive from collaborator goroutines,
// so the sequence and flags are guarded by a mutex.
type Orchestrator struct {
	mu    sync.Mutex
	steps []*Step // FIFO, front at index 0
	tasks []Starter

	started   bool
	enabled   bool
	active    bool
	autoStart bool

	session  string
	notifier Notifier
	logger   *slog.Logger
}

// New reads the configuration once, builds the step sequence and background
// task set, and returns the orchestrator ready for its first Advance. The
// context bounds every async operation the steps run; cancelling it tears
// the pipeline down.
func New(ctx context.Context, cfg *api.Config, deps Deps, opts Options, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.UpdateTimeout <= 0 {
		opts.UpdateTimeout = DefaultUpdateTimeout
	}
	if opts.HideDelay <= 0 {
		opts.HideDelay = DefaultHideDelay
	}

	o := &Orchestrator{
		enabled:   true,
		autoStart: cfg.Launch.AutoStart,
		session:   uuid.NewString(),
		notifier:  deps.Notifier,
	}
	o.logger = logger.With("session", o.session)

	b := &builder{ctx: ctx, cfg: cfg, deps: deps, opts: opts, orch: o, logger: o.logger}
	o.steps, o.tasks = b.build()

	o.logger.Info("pipeline built", "steps", len(o.steps), "background_tasks", len(o.tasks))
	return o
}

// Advance pops and runs the next step. It returns false without side effects
// when the pipeline is disabled, and reports stopped-and-finished when the
// sequence is empty or when a start step is gated (auto-start off and forced
// unset). On the first non-empty advance every background task is started,
// exactly once.
func (o *Orchestrator) Advance(forced bool) bool {
	o.mu.Lock()
	if !o.enabled {
		o.mu.Unlock()
		return false
	}

	if len(o.steps) == 0 {
		o.started = false
		o.mu.Unlock()
		o.notifier.SetNextEnabled(false)
		o.notifier.PipelineStopped()
		o.notifier.PipelineFinished()
		return false
	}

	step := o.steps[0]
	first := !o.started
	if first {
		o.started = true
		for _, t := range o.tasks {
			t.Start()
		}
	}

	if step.Kind == StepStart && !o.autoStart && !forced {
		// Launch gating: the step stays at the front, the pipeline reads
		// as finished, and a later Advance(true) resumes here.
		o.mu.Unlock()
		if first {
			o.notifier.PipelineStarted()
		}
		o.notifier.PipelineStopped()
		o.notifier.PipelineFinished()
		return false
	}

	o.steps = o.steps[1:]
	o.mu.Unlock()

	if first {
		o.notifier.PipelineStarted()
	}
	if step.Kind != StepStart {
		o.notifier.NextStep(step.Kind, step.Item)
	}

	o.logger.Info("advancing", "step", step.Kind, "item", step.Item)
	step.Action(step)
	return true
}

// SetEnabled toggles whether Advance is a no-op. Collaborators use it to
// pause the pipeline without losing position, e.g. while a modal is shown.
func (o *Orchestrator) SetEnabled(enabled bool) {
	o.mu.Lock()
	o.enabled = enabled
	o.mu.Unlock()
}

// SetActive flags that a download-class step is in flight. Advisory only.
func (o *Orchestrator) SetActive(active bool) {
	o.mu.Lock()
	o.active = active
	o.mu.Unlock()
}

// Active reports whether a download-class step is in flight.
func (o *Orchestrator) Active() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

// AwaitingLaunch reports whether the pipeline has stopped with a start step
// pending manual confirmation.
func (o *Orchestrator) AwaitingLaunch() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.steps) > 0 && o.steps[0].Kind == StepStart
}

// pushBack re-enqueues a step at the back of the sequence. Used by the start
// step, which re-enqueues itself when the launcher reports a terminal state.
func (o *Orchestrator) pushBack(s *Step) {
	o.mu.Lock()
	o.steps = append(o.steps, s)
	o.mu.Unlock()
}

// kinds returns the kinds of the remaining steps, front first.
func (o *Orchestrator) kinds() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.steps))
	for i, s := range o.steps {
		out[i] = s.Kind
	}
	return out
}
