package objects

import (
	"time"

	"github.com/AaronLay10/SceneEngine/internal/scene"
	"github.com/AaronLay10/SceneEngine/internal/task"
)

// bridge is raised or lowered by a chain. Lowering it connects the walkable
// layer in param [0]; raising restores the descriptor layer.
type bridge struct {
	Base
	notInteractable
	lowered int
}

func newBridge(d scene.Descriptor) Behavior {
	return &bridge{lowered: d.Param(0, d.Layer)}
}

func (b *bridge) Pose(o *Object) string { return onOff(o, "lowered", "raised") }

func (b *bridge) Interactable(o *Object, a Actor) bool {
	return b.notInteractable.Interactable(o, a)
}

func (b *bridge) Sequence(o *Object, ic *InteractionContext) []task.Step {
	lowering := o.state.Switch == 0
	return []task.Step{
		o.Camera(true),
		o.PlaySound(0),
		o.SetSwitch(toggle(o)),
		o.Animate(800 * time.Millisecond),
		o.SetLayer(func() int {
			if lowering {
				return b.lowered
			}
			return o.Desc.Layer
		}),
		o.Camera(false),
		o.RunScript(),
		o.Chain(ic),
	}
}
