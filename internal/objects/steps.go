package objects

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/AaronLay10/SceneEngine/internal/bus"
	"github.com/AaronLay10/SceneEngine/internal/override"
	"github.com/AaronLay10/SceneEngine/internal/scene"
	"github.com/AaronLay10/SceneEngine/internal/task"
)

// Step builders used by behaviors to compose interaction sequences. Each call
// returns a fresh step; steps must not be shared between tasks.

// FaceActor turns the acting actor towards the object and holds the stance.
func (o *Object) FaceActor(ic *InteractionContext, stance string) task.Step {
	sent := false
	return func(t *task.Task) bool {
		if ic.Actor == nil {
			return true
		}
		if !sent {
			sent = true
			o.publish(bus.KindFaceActor, bus.FaceActor{ActorID: ic.Actor.ID, Target: o.state.Position, Stance: stance})
		}
		return t.Elapsed() >= o.env.Profile.StanceDuration
	}
}

// PlaySound plays the descriptor sound, if any.
func (o *Object) PlaySound(loop int) task.Step {
	return task.Do(func() {
		if o.Desc.Sound == "" {
			return
		}
		o.publish(bus.KindPlaySound, bus.PlaySound{Name: o.Desc.Sound, Loop: loop, ObjectID: o.Desc.ID})
	})
}

// Animate marks the representation as transitioning for d.
func (o *Object) Animate(d time.Duration) task.Step {
	started := false
	return func(t *task.Task) bool {
		if !started {
			started = true
			o.refresh(true)
		}
		if t.Elapsed() < d {
			return false
		}
		o.refresh(false)
		return true
	}
}

// SetSwitch changes and persists the switch state.
func (o *Object) SetSwitch(v func() int) task.Step {
	return task.Do(func() {
		o.state.Switch = v()
		o.persist(override.SetSwitch(o.state.Switch))
		o.refresh(o.rep != nil && o.rep.Animated)
	})
}

// MoveTo changes and persists the position.
func (o *Object) MoveTo(p func() mgl32.Vec3) task.Step {
	return task.Do(func() {
		o.state.Position = p()
		o.persist(override.SetPosition(o.state.Position))
		o.refresh(false)
	})
}

// RotateTo changes and persists the y rotation.
func (o *Object) RotateTo(y func() float32) task.Step {
	return task.Do(func() {
		o.state.RotationY = y()
		o.persist(override.SetRotationY(o.state.RotationY))
		o.refresh(false)
	})
}

// SetLayer changes and persists the navigation layer.
func (o *Object) SetLayer(l func() int) task.Step {
	return task.Do(func() {
		o.state.Layer = l()
		o.persist(override.SetLayer(o.state.Layer))
		o.refresh(false)
	})
}

// SetBidirectional changes and persists the two-way state.
func (o *Object) SetBidirectional(b func() override.Bidirectional) task.Step {
	return task.Do(func() {
		o.state.Bidirectional = b()
		o.persist(override.SetBidirectional(o.state.Bidirectional))
		o.refresh(false)
	})
}

// RunScript runs the descriptor script and waits for it to complete.
func (o *Object) RunScript() task.Step {
	return o.runScript(o.Desc.ScriptID)
}

func (o *Object) runScript(id int) task.Step {
	var done *task.Signal
	return func(t *task.Task) bool {
		if id == scene.NoScript {
			return true
		}
		if done == nil {
			done = task.NewSignal()
			o.publish(bus.KindRunScript, bus.RunScript{ScriptID: id, Done: done})
		}
		return done.Fired()
	}
}

// MoveActor moves the acting actor and waits for the stance duration.
func (o *Object) MoveActor(ic *InteractionContext, target func() mgl32.Vec3, layer func() int, teleport bool) task.Step {
	sent := false
	return func(t *task.Task) bool {
		if ic.Actor == nil {
			return true
		}
		if !sent {
			sent = true
			o.publish(bus.KindMoveActor, bus.MoveActor{ActorID: ic.Actor.ID, Target: target(), Layer: layer(), Teleport: teleport})
		}
		return teleport || t.Elapsed() >= o.env.Profile.StanceDuration
	}
}

// Input enables or disables player input.
func (o *Object) Input(enabled bool) task.Step {
	kind := bus.KindInputDisable
	if enabled {
		kind = bus.KindInputEnable
	}
	return task.Do(func() { o.publish(kind, nil) })
}

// Camera focuses the camera on the object, or frees it.
func (o *Object) Camera(focus bool) task.Step {
	return task.Do(func() {
		if focus {
			o.publish(bus.KindCameraFocus, bus.CameraFocus{Target: o.state.Position})
			return
		}
		o.publish(bus.KindCameraFree, nil)
	})
}

// Chain activates the linked object, or forwards the interaction to it when
// it is already activated, and waits for the forwarded interaction.
func (o *Object) Chain(ic *InteractionContext) task.Step {
	return task.Spawn(func() *task.Task {
		return o.reg.chain(o, ic)
	})
}
