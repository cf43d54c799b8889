package objects

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/AaronLay10/SceneEngine/internal/bus"
	"github.com/AaronLay10/SceneEngine/internal/events"
	"github.com/AaronLay10/SceneEngine/internal/override"
	"github.com/AaronLay10/SceneEngine/internal/scene"
	"github.com/AaronLay10/SceneEngine/internal/task"
	"github.com/AaronLay10/SceneEngine/internal/trigger"
)

// Lifecycle is the activation state of an object.
type Lifecycle int

const (
	Inactive Lifecycle = iota
	Activated
	Deactivated
)

func (l Lifecycle) String() string {
	switch l {
	case Activated:
		return "activated"
	case Deactivated:
		return "deactivated"
	default:
		return "inactive"
	}
}

// RuntimeState is the mutable state of an object for one scene session.
type RuntimeState struct {
	Activated     bool                   `json:"activated"`
	Switch        int                    `json:"switch"`
	Times         int                    `json:"times"`
	Layer         int                    `json:"layer"`
	Position      mgl32.Vec3             `json:"position"`
	RotationY     float32                `json:"rotation_y"`
	Bidirectional override.Bidirectional `json:"bidirectional"`
	Guard         bool                   `json:"guard"`
	InProgress    bool                   `json:"in_progress"`
}

// Representation is the visual/physical presence of an activated object.
type Representation struct {
	Model     string
	Pose      string
	Animated  bool
	Position  mgl32.Vec3
	RotationY float32
	Layer     int
}

// Behavior is the type-specific part of an object.
type Behavior interface {
	// Pose names the representation pose for the current state.
	Pose(o *Object) string
	// Attach creates the detectors the object owns while activated.
	Attach(o *Object)
	// Sequence returns the steps of one interaction.
	Sequence(o *Object, ic *InteractionContext) []task.Step
	// Interactable reports whether a can interact with o directly.
	Interactable(o *Object, a Actor) bool
}

// Object is one scene object instance.
type Object struct {
	Desc scene.Descriptor
	Tag  string

	env      *Env
	reg      *Registry
	behavior Behavior
	noVisual bool

	state     RuntimeState
	lifecycle Lifecycle
	rep       *Representation

	detectors []trigger.Detector
	subs      []*trigger.Subscription
	current   *task.Task
}

func newObject(d scene.Descriptor, tag string, b Behavior, noVisual bool, env *Env, reg *Registry) *Object {
	o := &Object{Desc: d, Tag: tag, env: env, reg: reg, behavior: b, noVisual: noVisual}
	o.resetState()
	return o
}

// ID returns the descriptor id.
func (o *Object) ID() int { return o.Desc.ID }

// Key returns the override key of the object.
func (o *Object) Key() override.Key { return o.env.Key(o.Desc.ID) }

// Env returns the scene environment.
func (o *Object) Env() *Env { return o.env }

// State returns a copy of the runtime state.
func (o *Object) State() RuntimeState { return o.state }

// Lifecycle returns the activation state.
func (o *Object) Lifecycle() Lifecycle { return o.lifecycle }

// IsActivated reports whether the object is live.
func (o *Object) IsActivated() bool { return o.lifecycle == Activated }

// Representation returns the current representation, nil when inactive or
// descriptor-only.
func (o *Object) Representation() *Representation { return o.rep }

// Behavior returns the type-specific behavior.
func (o *Object) Behavior() Behavior { return o.behavior }

// Busy reports whether an interaction is in progress.
func (o *Object) Busy() bool { return o.state.Guard || o.state.InProgress }

func (o *Object) resetState() {
	d := o.Desc
	o.state = RuntimeState{
		Switch:    d.Switch,
		Times:     d.Times,
		Layer:     d.Layer,
		Position:  d.Position,
		RotationY: d.Rotation.Y(),
	}
	o.applyOverride()
}

// applyOverride copies every persisted field into the runtime state.
func (o *Object) applyOverride() {
	ov, ok := o.env.Store.TryGet(o.Key())
	if !ok {
		return
	}
	if ov.Switch != nil {
		o.state.Switch = *ov.Switch
	}
	if ov.Times != nil {
		o.state.Times = *ov.Times
	}
	if ov.Layer != nil {
		o.state.Layer = *ov.Layer
	}
	if ov.Position != nil {
		o.state.Position = *ov.Position
	}
	if ov.RotationY != nil {
		o.state.RotationY = *ov.RotationY
	}
	if ov.Bidirectional != nil {
		o.state.Bidirectional = *ov.Bidirectional
	}
}

// Activate builds the representation from descriptor and override and makes
// the object live. On an activated object it returns the existing
// representation.
func (o *Object) Activate() *Representation {
	if o.lifecycle == Activated {
		return o.rep
	}

	o.resetState()
	o.lifecycle = Activated
	o.state.Activated = true
	if !o.noVisual {
		o.rep = &Representation{
			Model:     o.Desc.Model,
			Pose:      o.behavior.Pose(o),
			Position:  o.state.Position,
			RotationY: o.state.RotationY,
			Layer:     o.state.Layer,
		}
	}
	o.behavior.Attach(o)

	events.Emit("debug", "object.activated", "", map[string]interface{}{
		"object_id": o.Desc.ID,
		"type":      o.Tag,
		"pose":      o.poseName(),
	})
	return o.rep
}

func (o *Object) poseName() string {
	if o.rep == nil {
		return ""
	}
	return o.rep.Pose
}

// Deactivate cancels the running interaction and releases everything
// Activate acquired. No-op unless activated.
func (o *Object) Deactivate() {
	if o.lifecycle != Activated {
		return
	}
	if o.current != nil {
		o.current.Cancel()
		o.current = nil
	}

	for _, s := range o.subs {
		s.Unsubscribe()
	}
	o.subs = nil
	for _, d := range o.detectors {
		o.env.Hub.Remove(d)
		d.Destroy()
	}
	o.detectors = nil

	o.rep = nil
	o.lifecycle = Deactivated
	o.state.Activated = false
	o.state.Guard = false
	o.state.InProgress = false

	events.Emit("debug", "object.deactivated", "", map[string]interface{}{
		"object_id": o.Desc.ID,
	})
}

// Own registers a detector with the hub and subscribes l to it. Both are
// released on Deactivate.
func (o *Object) Own(d trigger.Detector, l trigger.Listener) {
	o.detectors = append(o.detectors, d)
	o.subs = append(o.subs, d.Subscribe(l))
	o.env.Hub.Add(d)
}

// Detectors returns the detectors the object currently owns.
func (o *Object) Detectors() []trigger.Detector { return o.detectors }

// TriggerWindow is the effective-time window for detectors created now.
func (o *Object) TriggerWindow() trigger.Window {
	return trigger.Window{Since: o.env.Sched.Now(), Effective: o.env.Profile.TriggerEffectiveTime}
}

// DirectlyInteractable reports whether a may interact with o directly.
func (o *Object) DirectlyInteractable(a Actor) bool {
	return o.IsActivated() && !o.Busy() && o.behavior.Interactable(o, a)
}

// Interact runs the gating checks and starts the interaction sequence. It
// returns nil when the request is dropped.
func (o *Object) Interact(ic *InteractionContext) *task.Task {
	if reason := o.gate(); reason != "" {
		events.Emit("debug", "interaction.dropped", "", map[string]interface{}{
			"object_id":      o.Desc.ID,
			"reason":         reason,
			"correlation_id": ic.CorrelationID.String(),
		})
		return nil
	}

	if o.state.Times != scene.InfiniteTimes {
		o.state.Times--
		o.persist(override.SetTimes(o.state.Times))
	}

	o.state.Guard = true
	o.state.InProgress = true

	steps := o.behavior.Sequence(o, ic)
	t := o.env.Sched.New(fmt.Sprintf("%s#%d", o.Tag, o.Desc.ID), nil, steps...)
	o.current = t
	t.OnFinish(func(cancelled bool) {
		o.state.Guard = false
		o.state.InProgress = false
		if o.current == t {
			o.current = nil
		}
		name := "interaction.completed"
		if cancelled {
			name = "interaction.cancelled"
		}
		events.Emit("debug", name, "", map[string]interface{}{
			"object_id":      o.Desc.ID,
			"correlation_id": ic.CorrelationID.String(),
		})
		if !ic.Derived() {
			o.reg.forget(ic.CorrelationID)
		}
	})

	events.Emit("info", "interaction.started", "", map[string]interface{}{
		"object_id":      o.Desc.ID,
		"type":           o.Tag,
		"initiator_id":   ic.InitiatorID,
		"correlation_id": ic.CorrelationID.String(),
		"player":         ic.PlayerInitiated,
	})
	return o.env.Sched.Start(t)
}

func (o *Object) gate() string {
	switch {
	case o.lifecycle != Activated:
		return "inactive"
	case o.state.Guard || o.state.InProgress:
		return "in_progress"
	case o.state.Times != scene.InfiniteTimes && o.state.Times <= 0:
		return "exhausted"
	}
	return ""
}

// persist writes one override field through the bus.
func (o *Object) persist(m override.Mutation) {
	o.env.Bus.Publish(bus.NewSave(o.Key(), m))
}

// publish sends a side-effect command.
func (o *Object) publish(kind bus.Kind, payload any) {
	o.env.Bus.Publish(bus.Command{Kind: kind, Payload: payload})
}

// refresh updates the representation after a state change. animated marks a
// transition in progress.
func (o *Object) refresh(animated bool) {
	if o.rep == nil {
		return
	}
	o.rep.Pose = o.behavior.Pose(o)
	o.rep.Position = o.state.Position
	o.rep.RotationY = o.state.RotationY
	o.rep.Layer = o.state.Layer
	o.rep.Animated = animated
}
