// Package bus is the command bus between the scene core and its collaborators.
//
// Dispatch is synchronous and single-threaded: Publish delivers the command to
// every handler registered for its kind, in registration order, before it
// returns. A Publish issued from inside a handler is queued and delivered after
// the current command finishes, so commands are always processed in emission
// order. Save commands are the exception: they are applied before Publish
// returns even inside a handler, so a read after a write always sees it.
//
// The bus is not safe for concurrent use; other goroutines hand commands to the
// game loop, which publishes them.
package bus

import (
	"github.com/AaronLay10/SceneEngine/internal/events"
	"github.com/AaronLay10/SceneEngine/internal/scene"
)

// Handler processes the command kinds it declares.
type Handler interface {
	HandleCommand(cmd Command)
	Kinds() []Kind
}

type entry struct {
	id     int
	handle func(Command)
}

// Subscription is returned by Subscribe.
type Subscription struct {
	bus  *Bus
	kind Kind
	id   int
}

// Unsubscribe removes the handler. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.bus == nil {
		return
	}
	s.bus.remove(s.kind, s.id)
	s.bus = nil
}

// Bus dispatches commands to handlers and holds deferred batches.
type Bus struct {
	handlers    map[Kind][]entry
	nextID      int
	queue       []Command
	dispatching bool

	deferred      []Command
	barrierOpen   bool
	waitingScript int
}

// New creates an empty bus. Deferred commands are held until the first scene
// finishes its initial script.
func New() *Bus {
	return &Bus{
		handlers:      make(map[Kind][]entry),
		waitingScript: scene.NoScript,
	}
}

// Register adds h for every kind it declares.
func (b *Bus) Register(h Handler) []*Subscription {
	kinds := h.Kinds()
	subs := make([]*Subscription, 0, len(kinds))
	for _, k := range kinds {
		subs = append(subs, b.Subscribe(k, h.HandleCommand))
	}
	return subs
}

// Subscribe adds fn as a handler for kind.
func (b *Bus) Subscribe(kind Kind, fn func(Command)) *Subscription {
	b.nextID++
	b.handlers[kind] = append(b.handlers[kind], entry{id: b.nextID, handle: fn})
	return &Subscription{bus: b, kind: kind, id: b.nextID}
}

func (b *Bus) remove(kind Kind, id int) {
	list := b.handlers[kind]
	for i, e := range list {
		if e.id == id {
			b.handlers[kind] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// HandlerCount returns the number of handlers registered for kind.
func (b *Bus) HandlerCount(kind Kind) int {
	return len(b.handlers[kind])
}

// Publish dispatches cmd, or queues it when called from inside a handler.
// Save commands are never queued.
func (b *Bus) Publish(cmd Command) {
	if b.dispatching && cmd.Kind.IsSave() {
		b.dispatch(cmd)
		return
	}
	b.queue = append(b.queue, cmd)
	if b.dispatching {
		return
	}
	b.dispatching = true
	defer func() { b.dispatching = false }()

	for len(b.queue) > 0 {
		next := b.queue[0]
		b.queue = b.queue[1:]
		b.dispatch(next)
	}
}

func (b *Bus) dispatch(cmd Command) {
	b.observeBarrier(cmd)

	list := b.handlers[cmd.Kind]
	if len(list) == 0 {
		events.Emit("debug", "command.unhandled", "", map[string]interface{}{
			"kind": string(cmd.Kind),
		})
		return
	}
	// Copy so handlers may unsubscribe while being called.
	for _, e := range append([]entry(nil), list...) {
		e.handle(cmd)
	}
}

// Defer holds cmds until the current scene's initial script has completed.
// When that already happened they are published immediately.
func (b *Bus) Defer(cmds ...Command) {
	if len(cmds) == 0 {
		return
	}
	if b.barrierOpen {
		for _, c := range cmds {
			b.Publish(c)
		}
		return
	}
	b.deferred = append(b.deferred, cmds...)
	events.Emit("debug", "command.deferred", "", map[string]interface{}{
		"count":          len(cmds),
		"waiting_script": b.waitingScript,
	})
}

// Pending returns the number of deferred commands still held.
func (b *Bus) Pending() int {
	return len(b.deferred)
}

// ResetBarrier closes the barrier, e.g. when a scene unloads. Held commands
// stay held for the next scene.
func (b *Bus) ResetBarrier() {
	b.barrierOpen = false
	b.waitingScript = scene.NoScript
}

func (b *Bus) observeBarrier(cmd Command) {
	switch cmd.Kind {
	case KindSceneLoaded:
		p, _ := cmd.Payload.(SceneLoaded)
		if cmd.Payload == nil || p.InitialScript == scene.NoScript {
			b.release()
			return
		}
		b.barrierOpen = false
		b.waitingScript = p.InitialScript
	case KindScriptCompleted:
		p, ok := cmd.Payload.(ScriptCompleted)
		if ok && !b.barrierOpen && b.waitingScript != scene.NoScript && p.ScriptID == b.waitingScript {
			b.release()
		}
	}
}

func (b *Bus) release() {
	b.barrierOpen = true
	b.waitingScript = scene.NoScript
	if len(b.deferred) == 0 {
		return
	}
	held := b.deferred
	b.deferred = nil
	events.Emit("debug", "command.released", "", map[string]interface{}{
		"count": len(held),
	})
	// Queued behind the command being dispatched, preserving order.
	b.queue = append(b.queue, held...)
}
