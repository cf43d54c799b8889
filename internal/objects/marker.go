package objects

import "github.com/AaronLay10/SceneEngine/internal/scene"

// marker is a purely logical object: it runs its script and relays chains.
type marker struct {
	Base
	notInteractable
}

func newMarker(scene.Descriptor) Behavior { return &marker{} }

func (b *marker) Interactable(o *Object, a Actor) bool {
	return b.notInteractable.Interactable(o, a)
}
