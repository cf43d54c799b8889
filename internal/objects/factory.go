package objects

import (
	"errors"
	"fmt"
	"sort"

	"github.com/AaronLay10/SceneEngine/internal/scene"
)

// ErrUnregisteredType is returned by Create for unknown type tags.
var ErrUnregisteredType = errors.New("unregistered object type")

// Constructor builds the behavior of one object.
type Constructor func(d scene.Descriptor) Behavior

// Registration binds type tags to a constructor.
type Registration struct {
	Tags []string
	New  Constructor
	// NoVisual objects never build a representation.
	NoVisual bool
}

// Factory resolves type tags to registrations. Each tag is resolved once and
// the result cached.
type Factory struct {
	table   map[string]*Registration
	aliases map[string]string
	cache   map[string]*Registration
	lookups int
}

// NewFactory builds a factory from a static registration table. aliases map
// edition-specific tags onto registered ones.
func NewFactory(regs []Registration, aliases map[string]string) (*Factory, error) {
	f := &Factory{
		table:   make(map[string]*Registration),
		aliases: make(map[string]string, len(aliases)),
		cache:   make(map[string]*Registration),
	}
	own := append([]Registration(nil), regs...)
	for i := range own {
		r := &own[i]
		if r.New == nil {
			return nil, fmt.Errorf("registration %v has no constructor", r.Tags)
		}
		for _, tag := range r.Tags {
			if _, dup := f.table[tag]; dup {
				return nil, fmt.Errorf("type tag %q registered twice", tag)
			}
			f.table[tag] = r
		}
	}
	for from, to := range aliases {
		f.aliases[from] = to
	}
	return f, nil
}

// Resolve returns the registration for tag.
func (f *Factory) Resolve(tag string) (*Registration, bool) {
	if r, ok := f.cache[tag]; ok {
		return r, r != nil
	}
	f.lookups++
	key := tag
	if to, ok := f.aliases[tag]; ok {
		key = to
	}
	r := f.table[key]
	f.cache[tag] = r
	return r, r != nil
}

// Lookups counts uncached resolutions.
func (f *Factory) Lookups() int { return f.lookups }

// Tags lists every registered tag, sorted.
func (f *Factory) Tags() []string {
	tags := make([]string, 0, len(f.table))
	for t := range f.table {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// DefaultRegistrations is the table of built-in behaviors.
func DefaultRegistrations() []Registration {
	return []Registration{
		{Tags: []string{"switch", "lever"}, New: newSwitch},
		{Tags: []string{"door"}, New: newDoor},
		{Tags: []string{"pushable"}, New: newPushable},
		{Tags: []string{"pushable_bidirectional"}, New: newBidirectionalPushable},
		{Tags: []string{"elevator"}, New: newElevator},
		{Tags: []string{"bridge"}, New: newBridge},
		{Tags: []string{"trap"}, New: newTrap},
		{Tags: []string{"portal"}, New: newPortal},
		{Tags: []string{"marker"}, New: newMarker, NoVisual: true},
		{Tags: []string{"mirror_flower"}, New: newMirrorFlower},
		// Both water surface variants share one implementation.
		{Tags: []string{"water_surface", "water_surface_v2"}, New: newWaterSurface},
	}
}
