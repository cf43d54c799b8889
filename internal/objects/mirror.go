package objects

import (
	"time"

	"github.com/AaronLay10/SceneEngine/internal/override"
	"github.com/AaronLay10/SceneEngine/internal/scene"
	"github.com/AaronLay10/SceneEngine/internal/task"
)

// mirrorFlower opens and closes with a switch that may live in another
// location. The ref names that switch; its override decides the pose.
type mirrorFlower struct {
	Base
}

func newMirrorFlower(scene.Descriptor) Behavior { return &mirrorFlower{} }

func (b *mirrorFlower) open(o *Object) bool {
	if ref := o.Desc.Ref; ref != nil {
		key := override.Key{Location: ref.Location, Scene: ref.Scene, Object: ref.Object}
		if ov, ok := o.env.Store.TryGet(key); ok && ov.Switch != nil {
			return *ov.Switch != 0
		}
	}
	return o.state.Switch != 0
}

func (b *mirrorFlower) Pose(o *Object) string {
	if b.open(o) {
		return "open"
	}
	return "closed"
}

func (b *mirrorFlower) Sequence(o *Object, ic *InteractionContext) []task.Step {
	return []task.Step{
		o.FaceActor(ic, "look"),
		o.PlaySound(0),
		o.Animate(400 * time.Millisecond),
		o.RunScript(),
		o.Chain(ic),
	}
}
