package objects

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/AaronLay10/SceneEngine/internal/override"
	"github.com/AaronLay10/SceneEngine/internal/scene"
	"github.com/AaronLay10/SceneEngine/internal/task"
)

const pushDuration = 600 * time.Millisecond

// pushDir reads the push vector from params [0] dx and [1] dz, in tiles.
// A missing vector pushes one tile along +x.
func pushDir(d scene.Descriptor) mgl32.Vec3 {
	dx, dz := d.Param(0, 1), d.Param(1, 0)
	if dx == 0 && dz == 0 {
		dx = 1
	}
	return mgl32.Vec3{float32(dx), 0, float32(dz)}
}

// pushable slides one step along its push vector per interaction.
type pushable struct {
	Base
	dir mgl32.Vec3
}

func newPushable(d scene.Descriptor) Behavior {
	return &pushable{dir: pushDir(d)}
}

func (b *pushable) Pose(*Object) string { return "resting" }

func (b *pushable) Sequence(o *Object, ic *InteractionContext) []task.Step {
	return []task.Step{
		o.FaceActor(ic, "push"),
		o.PlaySound(0),
		o.Animate(pushDuration),
		o.MoveTo(func() mgl32.Vec3 { return o.state.Position.Add(b.dir) }),
		o.RunScript(),
		o.Chain(ic),
	}
}

// bidirectionalPushable moves out along its vector and back again on
// alternate pushes. Its side is kept in the bidirectional state.
type bidirectionalPushable struct {
	Base
	dir mgl32.Vec3
}

func newBidirectionalPushable(d scene.Descriptor) Behavior {
	return &bidirectionalPushable{dir: pushDir(d)}
}

func (b *bidirectionalPushable) Pose(o *Object) string {
	if o.state.Bidirectional == override.BidirectionalForward {
		return "out"
	}
	return "home"
}

func (b *bidirectionalPushable) Sequence(o *Object, ic *InteractionContext) []task.Step {
	forward := o.state.Bidirectional != override.BidirectionalForward
	return []task.Step{
		o.FaceActor(ic, "push"),
		o.PlaySound(0),
		o.Animate(pushDuration),
		o.MoveTo(func() mgl32.Vec3 {
			if forward {
				return o.state.Position.Add(b.dir)
			}
			return o.state.Position.Sub(b.dir)
		}),
		o.SetBidirectional(func() override.Bidirectional {
			if forward {
				return override.BidirectionalForward
			}
			return override.BidirectionalBackward
		}),
		o.RunScript(),
		o.Chain(ic),
	}
}
