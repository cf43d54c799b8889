package objects

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/AaronLay10/SceneEngine/internal/bus"
	"github.com/AaronLay10/SceneEngine/internal/events"
	"github.com/AaronLay10/SceneEngine/internal/override"
	"github.com/AaronLay10/SceneEngine/internal/scene"
	"github.com/AaronLay10/SceneEngine/internal/task"
	"github.com/AaronLay10/SceneEngine/internal/trigger"
)

// Registry owns every object of the active scene.
type Registry struct {
	env     *Env
	factory *Factory
	objects map[int]*Object
	order   []int
	visits  map[uuid.UUID]map[int]struct{}
}

// NewRegistry creates an empty registry for one scene session.
func NewRegistry(env *Env, f *Factory) *Registry {
	return &Registry{
		env:     env,
		factory: f,
		objects: make(map[int]*Object),
		visits:  make(map[uuid.UUID]map[int]struct{}),
	}
}

// Env returns the scene environment.
func (r *Registry) Env() *Env { return r.env }

// Create constructs the object for d. The override, if any, is applied to its
// runtime state. The object starts inactive.
func (r *Registry) Create(d scene.Descriptor) (*Object, error) {
	reg, ok := r.factory.Resolve(d.Type)
	if !ok {
		return nil, fmt.Errorf("object %d: %w: %q", d.ID, ErrUnregisteredType, d.Type)
	}
	if _, dup := r.objects[d.ID]; dup {
		return nil, fmt.Errorf("object %d already exists", d.ID)
	}
	o := newObject(d, d.Type, reg.New(d), reg.NoVisual, r.env, r)
	r.objects[d.ID] = o
	r.order = append(r.order, d.ID)
	events.Emit("debug", "object.created", "", map[string]interface{}{
		"object_id": d.ID,
		"type":      d.Type,
	})
	return o, nil
}

// Build creates one object per descriptor. Descriptors that fail are logged
// and skipped; the count of created objects is returned.
func (r *Registry) Build(descs []scene.Descriptor) int {
	n := 0
	for _, d := range descs {
		if _, err := r.Create(d); err != nil {
			level := "error"
			if errors.Is(err, ErrUnregisteredType) {
				level = "warn"
			}
			events.Emit(level, "object.skipped", err.Error(), map[string]interface{}{
				"object_id": d.ID,
				"type":      d.Type,
			})
			continue
		}
		n++
	}
	return n
}

// GetObject returns the object with id.
func (r *Registry) GetObject(id int) (*Object, bool) {
	o, ok := r.objects[id]
	return o, ok
}

// Objects returns every object in descriptor order.
func (r *Registry) Objects() []*Object {
	out := make([]*Object, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.objects[id])
	}
	return out
}

// Len is the number of objects.
func (r *Registry) Len() int { return len(r.objects) }

// GetActivatedSet returns the ids of activated objects, sorted.
func (r *Registry) GetActivatedSet() []int {
	var ids []int
	for id, o := range r.objects {
		if o.IsActivated() {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// Activate activates object id. With persist the activation is saved so
// later sessions start with the object activated.
func (r *Registry) Activate(id int, persist bool) bool {
	o, ok := r.objects[id]
	if !ok {
		return false
	}
	o.Activate()
	if persist {
		o.persist(override.SetActivated(true))
	}
	return true
}

// Deactivate deactivates object id, optionally saving it as deactivated.
func (r *Registry) Deactivate(id int, persist bool) bool {
	o, ok := r.objects[id]
	if !ok {
		return false
	}
	o.Deactivate()
	if persist {
		o.persist(override.SetActivated(false))
	}
	return true
}

// eligible reports whether o should be live when relevant: the override's
// activation flag wins over the descriptor's hidden flag.
func (r *Registry) eligible(o *Object) bool {
	if ov, ok := r.env.Store.TryGet(o.Key()); ok && ov.Activated != nil {
		return *ov.Activated
	}
	return !o.Desc.Hidden
}

// ActivateInitial activates every eligible object within radius of the actor.
// A radius of zero activates all of them.
func (r *Registry) ActivateInitial(actor Actor, radius float32) {
	r.UpdateRelevance(actor, radius)
}

// UpdateRelevance activates inactive eligible objects that came within radius.
func (r *Registry) UpdateRelevance(actor Actor, radius float32) {
	for _, id := range r.order {
		o := r.objects[id]
		if o.lifecycle != Inactive || !r.eligible(o) {
			continue
		}
		if radius > 0 && o.state.Position.Sub(actor.Position).Len() > radius {
			continue
		}
		o.Activate()
	}
}

// Interact starts an interaction on object id. It returns nil when the
// object is missing or the request was dropped.
func (r *Registry) Interact(id int, actor *Actor, player bool) *task.Task {
	o, ok := r.objects[id]
	if !ok {
		return nil
	}
	ic := NewContext(r.env, id, actor, player)
	r.visit(ic.CorrelationID, id)
	t := o.Interact(ic)
	if t == nil {
		r.forget(ic.CorrelationID)
	}
	return t
}

// InteractFromTrigger is the listener body for trigger-sourced interactions.
func (r *Registry) InteractFromTrigger(o *Object, ev trigger.Event) *task.Task {
	var actor *Actor
	if a, ok := r.env.Hub.Actor(ev.ActorID); ok {
		actor = &Actor{ID: a.ID, Position: a.Position, Layer: a.Layer}
	}
	return r.Interact(o.Desc.ID, actor, ev.ActorID == PlayerActor)
}

// chain applies the chaining rule for from's linked object.
func (r *Registry) chain(from *Object, ic *InteractionContext) *task.Task {
	if !from.Desc.HasLink() {
		return nil
	}
	fields := map[string]interface{}{
		"object_id":      from.Desc.ID,
		"target_id":      from.Desc.LinkedID,
		"correlation_id": ic.CorrelationID.String(),
	}
	target, ok := r.objects[from.Desc.LinkedID]
	if !ok {
		fields["reason"] = "missing"
		events.Emit("warn", "chain.skipped", "", fields)
		return nil
	}

	if !target.IsActivated() {
		r.Activate(target.Desc.ID, true)
		events.Emit("info", "chain.activated", "", fields)
		return nil
	}

	if r.visited(ic.CorrelationID, target.Desc.ID) {
		fields["reason"] = "cycle"
		events.Emit("debug", "chain.skipped", "", fields)
		return nil
	}
	r.visit(ic.CorrelationID, target.Desc.ID)
	events.Emit("info", "chain.forwarded", "", fields)
	return target.Interact(ic.Derive())
}

func (r *Registry) visit(id uuid.UUID, obj int) {
	set, ok := r.visits[id]
	if !ok {
		set = make(map[int]struct{})
		r.visits[id] = set
	}
	set[obj] = struct{}{}
}

func (r *Registry) visited(id uuid.UUID, obj int) bool {
	_, ok := r.visits[id][obj]
	return ok
}

func (r *Registry) forget(id uuid.UUID) {
	delete(r.visits, id)
}

// Kinds lists the bus commands the registry serves.
func (r *Registry) Kinds() []bus.Kind {
	return []bus.Kind{bus.KindActivateObject, bus.KindDeactivateObject, bus.KindInteractObject}
}

// HandleCommand serves activation and interaction requests from the bus.
func (r *Registry) HandleCommand(cmd bus.Command) {
	switch cmd.Kind {
	case bus.KindActivateObject:
		if p, ok := cmd.Payload.(bus.ObjectRef); ok {
			r.Activate(p.ObjectID, true)
		}
	case bus.KindDeactivateObject:
		if p, ok := cmd.Payload.(bus.ObjectRef); ok {
			r.Deactivate(p.ObjectID, true)
		}
	case bus.KindInteractObject:
		p, ok := cmd.Payload.(bus.Interact)
		if !ok {
			return
		}
		var actor *Actor
		if p.Player || p.ActorID != PlayerActor {
			if a, ok := r.env.Hub.Actor(p.ActorID); ok {
				actor = &Actor{ID: a.ID, Position: a.Position, Layer: a.Layer}
			}
		}
		r.Interact(p.ObjectID, actor, p.Player && p.ActorID == PlayerActor)
	}
}

// Teardown deactivates every object without persisting anything.
func (r *Registry) Teardown() {
	for _, id := range r.order {
		r.objects[id].Deactivate()
	}
	r.visits = make(map[uuid.UUID]map[int]struct{})
}
