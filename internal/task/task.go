// Package task runs resumable multi-step sequences on a single-threaded,
// frame-ticked scheduler.
//
// A Task is a list of Steps. A step returns true when it is complete and false
// to suspend; a suspended step is re-entered on the next Tick. Steps keep their
// own state in closures, so a step list belongs to exactly one task.
package task

import "time"

// Step is one resumable unit of a task.
type Step func(t *Task) bool

// Token is a cancellation flag. Several tasks may share one.
type Token struct {
	cancelled bool
}

// NewToken returns a live token.
func NewToken() *Token { return &Token{} }

// Cancel marks the token. Tasks observe it before their next step.
func (k *Token) Cancel() { k.cancelled = true }

// Cancelled reports whether Cancel was called.
func (k *Token) Cancelled() bool { return k != nil && k.cancelled }

// Signal is a one-shot completion flag.
type Signal struct {
	fired bool
}

// NewSignal returns an unfired signal.
func NewSignal() *Signal { return &Signal{} }

// Fire sets the signal. Firing twice is harmless.
func (s *Signal) Fire() {
	if s != nil {
		s.fired = true
	}
}

// Fired reports whether Fire was called.
func (s *Signal) Fired() bool { return s != nil && s.fired }

// Task is a resumable sequence owned by a Scheduler.
type Task struct {
	Name string

	sched *Scheduler
	steps []Step
	pc    int
	token *Token

	done      bool
	cancelled bool
	onFinish  []func(cancelled bool)

	stepStarted time.Time
	stepFrame   uint64
}

// Done reports whether the task finished, normally or by cancellation.
func (t *Task) Done() bool { return t == nil || t.done }

// Cancelled reports whether the task ended through cancellation.
func (t *Task) Cancelled() bool { return t != nil && t.cancelled }

// Token returns the task's cancellation token.
func (t *Task) Token() *Token { return t.token }

// Scheduler returns the scheduler the task runs on.
func (t *Task) Scheduler() *Scheduler { return t.sched }

// Cancel stops the task. Finish hooks run immediately with cancelled=true.
// Writes already committed by earlier steps are not rolled back.
func (t *Task) Cancel() {
	if t == nil || t.done {
		return
	}
	t.token.Cancel()
	t.finish(true)
}

// OnFinish registers fn to run once when the task ends. If it already ended,
// fn runs now.
func (t *Task) OnFinish(fn func(cancelled bool)) {
	if t.done {
		fn(t.cancelled)
		return
	}
	t.onFinish = append(t.onFinish, fn)
}

// Elapsed is the scheduler time spent in the current step.
func (t *Task) Elapsed() time.Duration {
	return t.sched.now.Sub(t.stepStarted)
}

// FramesElapsed is the number of ticks spent in the current step.
func (t *Task) FramesElapsed() uint64 {
	return t.sched.frame - t.stepFrame
}

func (t *Task) enterStep() {
	t.stepStarted = t.sched.now
	t.stepFrame = t.sched.frame
}

// run advances the task until it suspends or ends.
func (t *Task) run() {
	for !t.done {
		if t.token.Cancelled() {
			t.finish(true)
			return
		}
		if t.pc >= len(t.steps) {
			t.finish(false)
			return
		}
		if !t.steps[t.pc](t) {
			return
		}
		t.pc++
		t.enterStep()
	}
}

func (t *Task) finish(cancelled bool) {
	if t.done {
		return
	}
	t.done = true
	t.cancelled = cancelled
	hooks := t.onFinish
	t.onFinish = nil
	for _, fn := range hooks {
		fn(cancelled)
	}
}
