package bus

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/AaronLay10/SceneEngine/internal/override"
	"github.com/AaronLay10/SceneEngine/internal/task"
)

// Kind identifies a command type.
type Kind string

const (
	KindActivateObject    Kind = "activate_object"
	KindDeactivateObject  Kind = "deactivate_object"
	KindInteractObject    Kind = "interact_object"
	KindSaveSwitch        Kind = "save_switch"
	KindSaveActivated     Kind = "save_activated"
	KindSavePosition      Kind = "save_position"
	KindSaveRotationY     Kind = "save_rotation_y"
	KindSaveLayer         Kind = "save_layer"
	KindSaveTimes         Kind = "save_times"
	KindSaveBidirectional Kind = "save_bidirectional"
	KindRunScript         Kind = "run_script"
	KindScriptCompleted   Kind = "script_completed"
	KindPlaySound         Kind = "play_sound"
	KindCameraFocus       Kind = "camera_focus"
	KindCameraFree        Kind = "camera_free"
	KindInputEnable       Kind = "input_enable"
	KindInputDisable      Kind = "input_disable"
	KindMoveActor         Kind = "move_actor"
	KindFaceActor         Kind = "face_actor"
	KindSceneTransition   Kind = "scene_transition"
	KindSceneLoaded       Kind = "scene_loaded"
	KindGameStateChanged  Kind = "game_state_changed"
)

// Command is one message on the bus. Payload type depends on Kind.
type Command struct {
	Kind    Kind
	Payload any
}

// ObjectRef targets one object of the active scene.
type ObjectRef struct {
	ObjectID int
}

// Interact asks the registry to run an object's interaction. Player marks a
// request made by the player's own input; ActorID is only looked up then or
// when it names another actor. Scripts and operators leave both zero.
type Interact struct {
	ObjectID int
	ActorID  int
	Player   bool
}

// Save carries one override write.
type Save struct {
	Key      override.Key
	Mutation override.Mutation
}

// RunScript starts a script. Done, when set, fires when the script completes.
type RunScript struct {
	ScriptID int
	Done     *task.Signal
}

// ScriptCompleted reports a finished script.
type ScriptCompleted struct {
	ScriptID int
}

// PlaySound plays a named effect. Loop 0 plays once, -1 loops forever.
type PlaySound struct {
	Name     string
	Loop     int
	ObjectID int
}

// CameraFocus points the camera at a world position.
type CameraFocus struct {
	Target mgl32.Vec3
}

// MoveActor moves an actor to a world position on a layer.
type MoveActor struct {
	ActorID  int
	Target   mgl32.Vec3
	Layer    int
	Teleport bool
}

// FaceActor turns an actor towards a world position and plays a stance.
type FaceActor struct {
	ActorID int
	Target  mgl32.Vec3
	Stance  string
}

// SceneTransition requests loading another scene.
type SceneTransition struct {
	Location string
	Scene    string
	SpawnID  int
}

// SceneLoaded notifies that a scene finished loading.
type SceneLoaded struct {
	Location      string
	Scene         string
	InitialScript int
}

// GameStateChanged notifies a global game state change.
type GameStateChanged struct {
	State string
}

// SaveKind returns the command kind used for writes of field f.
func SaveKind(f override.Field) Kind {
	switch f {
	case override.FieldSwitch:
		return KindSaveSwitch
	case override.FieldActivated:
		return KindSaveActivated
	case override.FieldPosition:
		return KindSavePosition
	case override.FieldRotationY:
		return KindSaveRotationY
	case override.FieldLayer:
		return KindSaveLayer
	case override.FieldTimes:
		return KindSaveTimes
	default:
		return KindSaveBidirectional
	}
}

// SaveKinds lists every save command kind.
var SaveKinds = []Kind{
	KindSaveSwitch,
	KindSaveActivated,
	KindSavePosition,
	KindSaveRotationY,
	KindSaveLayer,
	KindSaveTimes,
	KindSaveBidirectional,
}

// IsSave reports whether k writes an override field.
func (k Kind) IsSave() bool {
	for _, s := range SaveKinds {
		if k == s {
			return true
		}
	}
	return false
}

// NewSave builds the save command for one override write.
func NewSave(key override.Key, m override.Mutation) Command {
	return Command{Kind: SaveKind(m.Field), Payload: Save{Key: key, Mutation: m}}
}
