package task

import "time"

// Scheduler is a cooperative, single-threaded task runner ticked once per
// frame by the game loop. It is not safe for concurrent use.
type Scheduler struct {
	now   time.Time
	frame uint64
	tasks []*Task
}

// NewScheduler returns a scheduler whose clock starts at start.
func NewScheduler(start time.Time) *Scheduler {
	return &Scheduler{now: start}
}

// New builds a task without starting it. The task gets its own token
// unless token is non-nil.
func (s *Scheduler) New(name string, token *Token, steps ...Step) *Task {
	if token == nil {
		token = NewToken()
	}
	return &Task{Name: name, sched: s, steps: steps, token: token}
}

// Start runs t synchronously up to its first suspension. A task that did not
// finish is resumed by later ticks.
func (s *Scheduler) Start(t *Task) *Task {
	if t.done {
		return t
	}
	t.enterStep()
	t.run()
	if !t.done {
		s.tasks = append(s.tasks, t)
	}
	return t
}

// Go builds and starts a task with its own token.
func (s *Scheduler) Go(name string, steps ...Step) *Task {
	return s.Start(s.New(name, nil, steps...))
}

// Tick advances the clock and resumes every suspended task once. Tasks
// started during the tick are first resumed on the next one.
func (s *Scheduler) Tick(now time.Time) {
	if now.After(s.now) {
		s.now = now
	}
	s.frame++

	running := s.tasks
	n := len(running)
	for i := 0; i < n; i++ {
		running[i].run()
	}

	live := s.tasks[:0]
	for _, t := range s.tasks {
		if !t.done {
			live = append(live, t)
		}
	}
	for i := len(live); i < len(s.tasks); i++ {
		s.tasks[i] = nil
	}
	s.tasks = live
}

// CancelAll cancels every running task.
func (s *Scheduler) CancelAll() {
	tasks := s.tasks
	s.tasks = nil
	for _, t := range tasks {
		t.Cancel()
	}
}

// Now is the time of the last tick.
func (s *Scheduler) Now() time.Time { return s.now }

// Frame is the number of ticks so far.
func (s *Scheduler) Frame() uint64 { return s.frame }

// Len is the number of suspended tasks.
func (s *Scheduler) Len() int {
	n := 0
	for _, t := range s.tasks {
		if !t.done {
			n++
		}
	}
	return n
}
