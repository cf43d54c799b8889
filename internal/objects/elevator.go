package objects

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/AaronLay10/SceneEngine/internal/scene"
	"github.com/AaronLay10/SceneEngine/internal/task"
	"github.com/AaronLay10/SceneEngine/internal/trigger"
)

// elevator carries an actor standing on it between two layers. Switch 0 is
// the bottom stop, 1 the top.
//
// Params: [0] bottom layer, [1] top layer, [2] rise in centimetres,
// [3] travel ms.
type elevator struct {
	Base
	bottom, top int
	rise        float32
	travel      time.Duration
}

func newElevator(d scene.Descriptor) Behavior {
	return &elevator{
		bottom: d.Param(0, d.Layer),
		top:    d.Param(1, d.Layer+1),
		rise:   float32(d.Param(2, 300)) / 100,
		travel: paramDuration(d, 3, 1500*time.Millisecond),
	}
}

func (b *elevator) Pose(o *Object) string { return onOff(o, "top", "bottom") }

func (b *elevator) Attach(o *Object) {
	s := trigger.NewSurfaceDetector(o.ID(), o.TriggerWindow())
	o.Own(s, func(ev trigger.Event) {
		if ev.Kind == trigger.Enter {
			o.reg.InteractFromTrigger(o, ev)
		}
	})
}

func (b *elevator) Sequence(o *Object, ic *InteractionContext) []task.Step {
	up := o.state.Switch == 0
	dest := func() mgl32.Vec3 {
		p := o.state.Position
		if up {
			return mgl32.Vec3{p.X(), p.Y() + b.rise, p.Z()}
		}
		return mgl32.Vec3{p.X(), p.Y() - b.rise, p.Z()}
	}
	layer := func() int {
		if up {
			return b.top
		}
		return b.bottom
	}
	return []task.Step{
		o.Input(false),
		o.PlaySound(-1),
		o.Animate(b.travel),
		o.MoveTo(dest),
		o.SetLayer(layer),
		o.SetSwitch(toggle(o)),
		o.MoveActor(ic, func() mgl32.Vec3 { return o.state.Position }, layer, true),
		o.Input(true),
		o.RunScript(),
		o.Chain(ic),
	}
}
