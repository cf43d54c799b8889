package objects

import (
	"time"

	"github.com/AaronLay10/SceneEngine/internal/scene"
	"github.com/AaronLay10/SceneEngine/internal/task"
)

// door opens and closes. Params: [0] actor id required to open it (-1 any),
// [1] animation ms.
type door struct {
	Base
	requiredActor int
	anim          time.Duration
}

func newDoor(d scene.Descriptor) Behavior {
	return &door{
		requiredActor: d.Param(0, -1),
		anim:          paramDuration(d, 1, 500*time.Millisecond),
	}
}

func (b *door) Pose(o *Object) string { return onOff(o, "open", "closed") }

func (b *door) Interactable(o *Object, a Actor) bool {
	if b.requiredActor >= 0 && a.ID != b.requiredActor {
		return false
	}
	return b.Base.Interactable(o, a)
}

func (b *door) Sequence(o *Object, ic *InteractionContext) []task.Step {
	return []task.Step{
		o.FaceActor(ic, "push"),
		o.PlaySound(0),
		o.SetSwitch(toggle(o)),
		o.Animate(b.anim),
		o.RunScript(),
		o.Chain(ic),
	}
}
