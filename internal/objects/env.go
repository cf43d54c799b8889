// Package objects implements scene objects: their activation lifecycle, the
// interaction protocol, the registry that owns them for one scene session and
// the built-in behaviors.
//
// Everything in this package runs on the game-loop goroutine.
package objects

import (
	"github.com/AaronLay10/SceneEngine/internal/bus"
	"github.com/AaronLay10/SceneEngine/internal/config"
	"github.com/AaronLay10/SceneEngine/internal/override"
	"github.com/AaronLay10/SceneEngine/internal/task"
	"github.com/AaronLay10/SceneEngine/internal/trigger"
)

// Env is what every object of one scene session is given at construction.
type Env struct {
	Location string
	Scene    string

	Bus   *bus.Bus
	Store *override.Store
	Sched *task.Scheduler
	Hub   *trigger.Hub

	Profile        config.EditionProfile
	InteractRadius float32
}

// Key returns the override key of object id in this scene.
func (e *Env) Key(id int) override.Key {
	return override.Key{Location: e.Location, Scene: e.Scene, Object: id}
}
