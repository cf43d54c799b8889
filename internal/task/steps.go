package task

import "time"

// Do runs fn and completes.
func Do(fn func()) Step {
	return func(*Task) bool {
		fn()
		return true
	}
}

// Delay suspends for at least d of scheduler time.
func Delay(d time.Duration) Step {
	return func(t *Task) bool {
		return t.Elapsed() >= d
	}
}

// Frames suspends for n ticks.
func Frames(n int) Step {
	return func(t *Task) bool {
		return t.FramesElapsed() >= uint64(n)
	}
}

// Until suspends until pred returns true.
func Until(pred func() bool) Step {
	return func(*Task) bool {
		return pred()
	}
}

// WaitSignal suspends until sig fires. A nil signal never blocks.
func WaitSignal(sig *Signal) Step {
	return func(*Task) bool {
		return sig == nil || sig.Fired()
	}
}

// WaitTask suspends until child ends.
func WaitTask(child *Task) Step {
	return func(*Task) bool {
		return child.Done()
	}
}

// Spawn calls start when the step is first entered and then waits for the
// returned task. A nil task completes the step at once.
func Spawn(start func() *Task) Step {
	var child *Task
	started := false
	return func(*Task) bool {
		if !started {
			started = true
			child = start()
		}
		return child.Done()
	}
}
