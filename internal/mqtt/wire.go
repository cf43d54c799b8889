package mqtt

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/AaronLay10/SceneEngine/internal/bus"
)

// envelope is the JSON body of every outbound command.
type envelope struct {
	Kind    string      `json:"kind"`
	Payload interface{} `json:"payload,omitempty"`
}

type soundWire struct {
	Name     string `json:"name"`
	Loop     int    `json:"loop"`
	ObjectID int    `json:"object_id"`
}

type cameraWire struct {
	Target mgl32.Vec3 `json:"target"`
}

type moveWire struct {
	ActorID  int        `json:"actor_id"`
	Target   mgl32.Vec3 `json:"target"`
	Layer    int        `json:"layer"`
	Teleport bool       `json:"teleport"`
}

type faceWire struct {
	ActorID int        `json:"actor_id"`
	Target  mgl32.Vec3 `json:"target"`
	Stance  string     `json:"stance"`
}

type transitionWire struct {
	Location string `json:"location"`
	Scene    string `json:"scene"`
	SpawnID  int    `json:"spawn_id"`
}

type loadedWire struct {
	Location      string `json:"location"`
	Scene         string `json:"scene"`
	InitialScript int    `json:"initial_script"`
}

type stateWire struct {
	State string `json:"state"`
}

// wirePayload maps a bus payload onto its JSON shape. Kinds without a
// payload return nil.
func wirePayload(cmd bus.Command) interface{} {
	switch p := cmd.Payload.(type) {
	case bus.PlaySound:
		return soundWire{Name: p.Name, Loop: p.Loop, ObjectID: p.ObjectID}
	case bus.CameraFocus:
		return cameraWire{Target: p.Target}
	case bus.MoveActor:
		return moveWire{ActorID: p.ActorID, Target: p.Target, Layer: p.Layer, Teleport: p.Teleport}
	case bus.FaceActor:
		return faceWire{ActorID: p.ActorID, Target: p.Target, Stance: p.Stance}
	case bus.SceneTransition:
		return transitionWire{Location: p.Location, Scene: p.Scene, SpawnID: p.SpawnID}
	case bus.SceneLoaded:
		return loadedWire{Location: p.Location, Scene: p.Scene, InitialScript: p.InitialScript}
	case bus.GameStateChanged:
		return stateWire{State: p.State}
	}
	return nil
}

// Inbound notifications.

type actorNotice struct {
	Position   mgl32.Vec3 `json:"position"`
	Layer      int        `json:"layer"`
	StandingOn *int       `json:"standing_on"`
}

type objectNotice struct {
	ObjectID int  `json:"object_id"`
	ActorID  int  `json:"actor_id"`
	Player   bool `json:"player"`
}

type gameStateNotice struct {
	State string `json:"state"`
}

type heartbeatNotice struct {
	ID         string `json:"id"`
	IntervalMS int    `json:"interval_ms"`
}
