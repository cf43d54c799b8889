// Package scene holds the immutable object descriptors of a scene and loads
// them from YAML scene files.
package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

// Sentinels for absent numeric descriptor fields.
const (
	NoLink        = -1
	NoScript      = -1
	InfiniteTimes = -1
)

// Rect is a tile rectangle. W or H of zero means no trigger.
type Rect struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
	W int `yaml:"w"`
	H int `yaml:"h"`
}

// Empty reports whether the rect covers no tile.
func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

// Contains reports whether tile (x, y) lies inside r.
func (r Rect) Contains(x, y int) bool {
	return !r.Empty() && x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// ObjectRef names an object of any scene.
type ObjectRef struct {
	Location string `yaml:"location"`
	Scene    string `yaml:"scene"`
	Object   int    `yaml:"object"`
}

func (r ObjectRef) String() string {
	return fmt.Sprintf("%s/%s/%d", r.Location, r.Scene, r.Object)
}

// Descriptor is the static definition of one scene object. It never changes
// after the scene is parsed.
type Descriptor struct {
	ID       int        `yaml:"id"`
	Type     string     `yaml:"type"`
	Model    string     `yaml:"model"`
	Params   []int      `yaml:"params"`
	Position mgl32.Vec3 `yaml:"position"`
	Rotation mgl32.Vec3 `yaml:"rotation"`
	Layer    int        `yaml:"layer"`
	Trigger  Rect       `yaml:"trigger"`
	LinkedID int        `yaml:"link"`
	ScriptID int        `yaml:"script"`
	Sound    string     `yaml:"sound"`
	Times    int        `yaml:"times"`
	Switch   int        `yaml:"switch"`
	Hidden   bool       `yaml:"hidden"`
	Effect   string     `yaml:"effect"`
	Ref      *ObjectRef `yaml:"ref"`
}

// Param returns Params[i], or def when absent.
func (d Descriptor) Param(i, def int) int {
	if i < 0 || i >= len(d.Params) {
		return def
	}
	return d.Params[i]
}

// HasLink reports whether the descriptor chains into another object.
func (d Descriptor) HasLink() bool { return d.LinkedID != NoLink }

// HasScript reports whether the descriptor runs a script.
func (d Descriptor) HasScript() bool { return d.ScriptID != NoScript }

// UnmarshalYAML fills the sentinels for fields the file leaves out.
func (d *Descriptor) UnmarshalYAML(value *yaml.Node) error {
	type plain Descriptor
	p := plain{
		LinkedID: NoLink,
		ScriptID: NoScript,
		Times:    InfiniteTimes,
	}
	if err := value.Decode(&p); err != nil {
		return err
	}
	*d = Descriptor(p)
	return nil
}

// Scene is one parsed scene file.
type Scene struct {
	Version       int          `yaml:"version"`
	Location      string       `yaml:"location"`
	ID            string       `yaml:"id"`
	InitialScript int          `yaml:"initial_script"`
	Objects       []Descriptor `yaml:"objects"`
}

// UnmarshalYAML defaults InitialScript to NoScript.
func (s *Scene) UnmarshalYAML(value *yaml.Node) error {
	type plain Scene
	p := plain{InitialScript: NoScript}
	if err := value.Decode(&p); err != nil {
		return err
	}
	*s = Scene(p)
	return nil
}

// Object returns the descriptor with the given id.
func (s *Scene) Object(id int) (Descriptor, bool) {
	for _, d := range s.Objects {
		if d.ID == id {
			return d, true
		}
	}
	return Descriptor{}, false
}
