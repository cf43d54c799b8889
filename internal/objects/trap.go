package objects

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/AaronLay10/SceneEngine/internal/scene"
	"github.com/AaronLay10/SceneEngine/internal/task"
	"github.com/AaronLay10/SceneEngine/internal/trigger"
)

// trap springs when an actor walks into its volume and sends the actor back
// to a respawn point.
//
// Params: [0] [1] [2] half extents in centimetres, [3] [4] respawn offset in
// tiles along x and z.
type trap struct {
	Base
	notInteractable
	half    mgl32.Vec3
	respawn mgl32.Vec3
}

func newTrap(d scene.Descriptor) Behavior {
	cm := func(i int) float32 { return float32(d.Param(i, 50)) / 100 }
	return &trap{
		half:    mgl32.Vec3{cm(0), cm(1), cm(2)},
		respawn: mgl32.Vec3{float32(d.Param(3, -1)), 0, float32(d.Param(4, 0))},
	}
}

func (b *trap) Pose(o *Object) string { return "armed" }

func (b *trap) Interactable(o *Object, a Actor) bool {
	return b.notInteractable.Interactable(o, a)
}

func (b *trap) Attach(o *Object) {
	v := trigger.NewVolumeTrigger(o.ID(), o.state.Position, b.half, o.TriggerWindow())
	o.Own(v, func(ev trigger.Event) {
		if ev.Kind == trigger.Enter {
			o.reg.InteractFromTrigger(o, ev)
		}
	})
}

func (b *trap) Sequence(o *Object, ic *InteractionContext) []task.Step {
	return []task.Step{
		o.PlaySound(0),
		o.Animate(300 * time.Millisecond),
		o.MoveActor(ic, func() mgl32.Vec3 { return o.state.Position.Add(b.respawn) }, func() int { return o.state.Layer }, true),
		o.RunScript(),
		o.Chain(ic),
	}
}
