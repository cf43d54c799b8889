// Package override stores persisted deviations from scene descriptor defaults.
//
// Overrides are addressed by (location, scene, object) and are visible to any
// scene regardless of which one is loaded. Every write is also recorded as a
// textual command; replaying the commands in order against an empty store
// reproduces the same state, which is how save slots are persisted.
package override

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Key addresses one object's override.
type Key struct {
	Location string
	Scene    string
	Object   int
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%d", k.Location, k.Scene, k.Object)
}

// Bidirectional is the tri-state value of two-way pushable mechanisms.
type Bidirectional int

const (
	BidirectionalNone Bidirectional = iota
	BidirectionalForward
	BidirectionalBackward
)

func (b Bidirectional) String() string {
	switch b {
	case BidirectionalForward:
		return "forward"
	case BidirectionalBackward:
		return "backward"
	default:
		return "none"
	}
}

// Override holds the fields written for one object. nil means "not overridden".
type Override struct {
	Switch        *int
	Activated     *bool
	Position      *mgl32.Vec3
	RotationY     *float32
	Layer         *int
	Times         *int
	Bidirectional *Bidirectional
}

// IsEmpty reports whether no field is set.
func (o Override) IsEmpty() bool {
	return o.Switch == nil && o.Activated == nil && o.Position == nil &&
		o.RotationY == nil && o.Layer == nil && o.Times == nil && o.Bidirectional == nil
}

func (o Override) clone() Override {
	c := Override{}
	if o.Switch != nil {
		v := *o.Switch
		c.Switch = &v
	}
	if o.Activated != nil {
		v := *o.Activated
		c.Activated = &v
	}
	if o.Position != nil {
		v := *o.Position
		c.Position = &v
	}
	if o.RotationY != nil {
		v := *o.RotationY
		c.RotationY = &v
	}
	if o.Layer != nil {
		v := *o.Layer
		c.Layer = &v
	}
	if o.Times != nil {
		v := *o.Times
		c.Times = &v
	}
	if o.Bidirectional != nil {
		v := *o.Bidirectional
		c.Bidirectional = &v
	}
	return c
}

// Field names one logical override field.
type Field string

const (
	FieldSwitch        Field = "switch"
	FieldActivated     Field = "activated"
	FieldPosition      Field = "position"
	FieldRotationY     Field = "rotation_y"
	FieldLayer         Field = "layer"
	FieldTimes         Field = "times"
	FieldBidirectional Field = "bidirectional"
)

// fieldOrder is the order Compact emits fields in.
var fieldOrder = []Field{
	FieldActivated,
	FieldSwitch,
	FieldTimes,
	FieldLayer,
	FieldPosition,
	FieldRotationY,
	FieldBidirectional,
}

// Mutation updates exactly one field. Build it with the Set* constructors.
type Mutation struct {
	Field         Field
	Int           int
	Bool          bool
	Vec           mgl32.Vec3
	Float         float32
	Bidirectional Bidirectional
}

// SetSwitch builds a switch-state mutation.
func SetSwitch(v int) Mutation { return Mutation{Field: FieldSwitch, Int: v} }

// SetActivated builds an activation mutation.
func SetActivated(v bool) Mutation { return Mutation{Field: FieldActivated, Bool: v} }

// SetPosition builds a world-position mutation.
func SetPosition(v mgl32.Vec3) Mutation { return Mutation{Field: FieldPosition, Vec: v} }

// SetRotationY builds a y-rotation mutation (degrees).
func SetRotationY(v float32) Mutation { return Mutation{Field: FieldRotationY, Float: v} }

// SetLayer builds a navigation-layer mutation.
func SetLayer(v int) Mutation { return Mutation{Field: FieldLayer, Int: v} }

// SetTimes builds a times-remaining mutation.
func SetTimes(v int) Mutation { return Mutation{Field: FieldTimes, Int: v} }

// SetBidirectional builds a bidirectional-state mutation.
func SetBidirectional(v Bidirectional) Mutation {
	return Mutation{Field: FieldBidirectional, Bidirectional: v}
}

func (m Mutation) apply(o *Override) error {
	switch m.Field {
	case FieldSwitch:
		v := m.Int
		o.Switch = &v
	case FieldActivated:
		v := m.Bool
		o.Activated = &v
	case FieldPosition:
		v := m.Vec
		o.Position = &v
	case FieldRotationY:
		v := m.Float
		o.RotationY = &v
	case FieldLayer:
		v := m.Int
		o.Layer = &v
	case FieldTimes:
		v := m.Int
		o.Times = &v
	case FieldBidirectional:
		if m.Bidirectional < BidirectionalNone || m.Bidirectional > BidirectionalBackward {
			return fmt.Errorf("invalid bidirectional value %d", m.Bidirectional)
		}
		v := m.Bidirectional
		o.Bidirectional = &v
	default:
		return fmt.Errorf("unknown override field %q", m.Field)
	}
	return nil
}
