package objects

import (
	"errors"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/AaronLay10/SceneEngine/internal/bus"
	"github.com/AaronLay10/SceneEngine/internal/config"
	"github.com/AaronLay10/SceneEngine/internal/events"
	"github.com/AaronLay10/SceneEngine/internal/override"
	"github.com/AaronLay10/SceneEngine/internal/scene"
	"github.com/AaronLay10/SceneEngine/internal/task"
	"github.com/AaronLay10/SceneEngine/internal/trigger"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	store := override.NewStore()
	b := bus.New()
	b.Register(&PersistHandler{Store: store})
	profile := config.ProfileFor(config.EditionClassic)
	profile.TriggerEffectiveTime = 0
	env := &Env{
		Location: "loc1",
		Scene:    "sceneX",
		Bus:      b,
		Store:    store,
		Sched:    task.NewScheduler(epoch),
		Hub:      trigger.NewHub(),
		Profile:  profile,
	}
	f, err := NewFactory(DefaultRegistrations(), profile.TypeAliases)
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	reg := NewRegistry(env, f)
	b.Register(reg)
	return reg
}

func desc(id int, typ string) scene.Descriptor {
	return scene.Descriptor{
		ID:       id,
		Type:     typ,
		Model:    typ + "_model",
		LinkedID: scene.NoLink,
		ScriptID: scene.NoScript,
		Times:    scene.InfiniteTimes,
	}
}

func mustCreate(t *testing.T, r *Registry, d scene.Descriptor) *Object {
	t.Helper()
	o, err := r.Create(d)
	if err != nil {
		t.Fatalf("create %d: %v", d.ID, err)
	}
	return o
}

// settle ticks the scheduler until no task is left.
func settle(r *Registry) {
	s := r.env.Sched
	for i := 0; i < 200 && s.Len() > 0; i++ {
		s.Tick(s.Now().Add(50 * time.Millisecond))
	}
}

func advance(r *Registry, d time.Duration) {
	s := r.env.Sched
	s.Tick(s.Now().Add(d))
}

func countField(r *Registry, key override.Key, f override.Field) int {
	n := 0
	for _, cmd := range r.env.Store.Commands() {
		k, m, err := override.Parse(cmd)
		if err == nil && k == key && m.Field == f {
			n++
		}
	}
	return n
}

func TestActivateIsIdempotent(t *testing.T) {
	r := newTestRegistry(t)
	o := mustCreate(t, r, desc(1, "trap"))

	first := o.Activate()
	second := o.Activate()

	if first == nil || first != second {
		t.Fatal("second Activate must return the existing representation")
	}
	if len(o.Detectors()) != 1 || r.env.Hub.Len() != 1 {
		t.Fatalf("detectors duplicated: owned=%d hub=%d", len(o.Detectors()), r.env.Hub.Len())
	}
}

func TestDeactivateReleasesEverything(t *testing.T) {
	events.Clear()
	r := newTestRegistry(t)
	d := desc(1, "switch")
	d.Trigger = scene.Rect{X: 0, Y: 0, W: 1, H: 1}
	o := mustCreate(t, r, d)
	o.Activate()

	running := r.Interact(1, nil, true)
	if running == nil || !o.Busy() {
		t.Fatal("expected an interaction in progress")
	}

	o.Deactivate()
	if o.Busy() {
		t.Error("guard must be cleared on deactivate")
	}
	if !running.Cancelled() {
		t.Error("in-flight task must be cancelled")
	}
	if r.env.Hub.Len() != 0 || len(o.Detectors()) != 0 {
		t.Error("detectors not released")
	}
	if o.Representation() != nil {
		t.Error("representation not dropped")
	}
	if len(events.Find("trigger.dangling")) != 0 {
		t.Error("subscriptions must be removed before detectors are destroyed")
	}

	// Deactivating again is a no-op.
	o.Deactivate()
	inactive := mustCreate(t, r, desc(2, "door"))
	inactive.Deactivate()
	if inactive.Lifecycle() != Inactive {
		t.Error("deactivate on an inactive object changed its lifecycle")
	}
}

func TestTwoTriggerEntersRunOneInteraction(t *testing.T) {
	r := newTestRegistry(t)
	d := desc(3, "switch")
	d.Trigger = scene.Rect{X: 2, Y: 0, W: 1, H: 1}
	o := mustCreate(t, r, d)
	o.Activate()

	on := trigger.Actor{ID: PlayerActor, Position: mgl32.Vec3{2.5, 0, 0.5}, StandingOn: trigger.Nothing}
	off := trigger.Actor{ID: PlayerActor, Position: mgl32.Vec3{5, 0, 5}, StandingOn: trigger.Nothing}

	r.env.Hub.Update(on, epoch)
	r.env.Hub.Update(off, epoch)
	r.env.Hub.Update(on, epoch)
	if !o.Busy() {
		t.Fatal("trigger-sourced interaction must set the guard at once")
	}

	settle(r)
	if got := countField(r, o.Key(), override.FieldSwitch); got != 1 {
		t.Fatalf("expected exactly one switch toggle, got %d", got)
	}
	if o.Busy() {
		t.Fatal("guard still set after the sequence finished")
	}
	if o.State().Switch != 1 {
		t.Errorf("expected switch 1, got %d", o.State().Switch)
	}
}

func TestTimesNeverNegative(t *testing.T) {
	r := newTestRegistry(t)
	d := desc(4, "switch")
	d.Times = 2
	o := mustCreate(t, r, d)
	o.Activate()

	for i := 0; i < 2; i++ {
		if r.Interact(4, nil, true) == nil {
			t.Fatalf("interaction %d dropped", i)
		}
		settle(r)
		if want := 1 - i; o.State().Times != want {
			t.Fatalf("after %d interactions times=%d, want %d", i+1, o.State().Times, want)
		}
	}

	if r.Interact(4, nil, true) != nil {
		t.Fatal("exhausted object accepted an interaction")
	}
	if o.State().Times != 0 {
		t.Errorf("times went to %d", o.State().Times)
	}
	ov, _ := r.env.Store.TryGet(o.Key())
	if ov.Times == nil || *ov.Times != 0 {
		t.Errorf("persisted times %v", ov.Times)
	}
}

func TestChainActivatesThenForwards(t *testing.T) {
	r := newTestRegistry(t)
	a := desc(1, "switch")
	a.LinkedID = 2
	b := desc(2, "door")
	b.Hidden = true
	mustCreate(t, r, a).Activate()
	target := mustCreate(t, r, b)

	r.Interact(1, nil, true)
	settle(r)
	if !target.IsActivated() {
		t.Fatal("first pass must activate the linked object")
	}
	if target.State().Switch != 0 {
		t.Fatal("first pass must not interact with the linked object")
	}
	if ov, ok := r.env.Store.TryGet(target.Key()); !ok || ov.Activated == nil || !*ov.Activated {
		t.Error("chain activation not persisted")
	}

	r.Interact(1, nil, true)
	settle(r)
	if target.State().Switch != 1 {
		t.Fatal("second pass must forward the interaction")
	}
}

func TestScenarioFirstPassActivatesSecondIsNoop(t *testing.T) {
	r := newTestRegistry(t)
	a := desc(10, "switch")
	a.Times = 1
	a.LinkedID = 11
	objA := mustCreate(t, r, a)
	objB := mustCreate(t, r, desc(11, "door"))
	objA.Activate()

	r.Interact(10, nil, true)
	settle(r)

	if objA.State().Times != 0 || objA.State().Switch != 1 {
		t.Fatalf("A state %+v", objA.State())
	}
	if !objB.IsActivated() || objB.State().Switch != 0 {
		t.Fatalf("B should be activated and untouched, got %+v", objB.State())
	}
	before := len(r.env.Store.Commands())
	if r.Interact(10, nil, true) != nil {
		t.Fatal("second interaction should be dropped")
	}
	if len(r.env.Store.Commands()) != before {
		t.Error("dropped interaction wrote overrides")
	}
}

func TestScenarioOverrideAppliedWithoutAnimation(t *testing.T) {
	r := newTestRegistry(t)
	key := override.Key{Location: "loc1", Scene: "sceneX", Object: 7}
	if err := r.env.Store.Set(key, override.SetSwitch(1)); err != nil {
		t.Fatal(err)
	}

	o := mustCreate(t, r, desc(7, "door"))
	if o.State().Switch != 1 {
		t.Fatalf("override not applied at construction: %d", o.State().Switch)
	}
	rep := o.Activate()
	if rep.Pose != "open" {
		t.Errorf("pose %q, want open", rep.Pose)
	}
	if rep.Animated {
		t.Error("restored pose must not animate")
	}
}

func TestGuardHeldUntilChainedChildCompletes(t *testing.T) {
	r := newTestRegistry(t)
	a := desc(1, "switch")
	a.LinkedID = 2
	parent := mustCreate(t, r, a)
	child := mustCreate(t, r, desc(2, "door"))
	parent.Activate()
	child.Activate()

	r.Interact(1, nil, true)
	advance(r, 350*time.Millisecond)
	if !child.Busy() {
		t.Fatal("child should be running")
	}
	if !parent.Busy() {
		t.Fatal("parent guard released before chained child finished")
	}

	settle(r)
	if parent.Busy() || child.Busy() {
		t.Fatal("guards not cleared after the chain completed")
	}
}

func TestCancelKeepsCommittedWrites(t *testing.T) {
	r := newTestRegistry(t)
	o := mustCreate(t, r, desc(1, "switch"))
	o.Activate()
	r.Interact(1, nil, true)

	r.Teardown()
	if o.Busy() || o.IsActivated() {
		t.Fatal("teardown left the object live")
	}
	ov, ok := r.env.Store.TryGet(o.Key())
	if !ok || ov.Switch == nil || *ov.Switch != 1 {
		t.Error("committed switch write must survive cancellation")
	}
	if ov.Activated != nil {
		t.Error("teardown must not persist deactivation")
	}
}

func TestBuildSkipsUnregisteredType(t *testing.T) {
	events.Clear()
	r := newTestRegistry(t)
	n := r.Build([]scene.Descriptor{desc(1, "door"), desc(2, "catapult"), desc(3, "marker")})
	if n != 2 {
		t.Fatalf("expected 2 objects, got %d", n)
	}
	if _, ok := r.GetObject(2); ok {
		t.Error("unregistered object was created")
	}
	if len(events.Find("object.skipped")) != 1 {
		t.Error("expected object.skipped")
	}
	if _, err := r.Create(desc(9, "catapult")); !errors.Is(err, ErrUnregisteredType) {
		t.Errorf("expected ErrUnregisteredType, got %v", err)
	}
}

func TestMarkerHasNoRepresentationButChains(t *testing.T) {
	r := newTestRegistry(t)
	m := desc(1, "marker")
	m.LinkedID = 2
	marker := mustCreate(t, r, m)
	target := mustCreate(t, r, desc(2, "door"))

	if marker.Activate() != nil {
		t.Fatal("marker must not build a representation")
	}
	if !marker.IsActivated() {
		t.Fatal("marker should still be live")
	}
	r.Interact(1, nil, false)
	settle(r)
	if !target.IsActivated() {
		t.Error("marker did not chain")
	}
}

func TestMissingLinkIsSkipped(t *testing.T) {
	events.Clear()
	r := newTestRegistry(t)
	d := desc(1, "switch")
	d.LinkedID = 99
	o := mustCreate(t, r, d)
	o.Activate()

	r.Interact(1, nil, true)
	settle(r)
	if o.Busy() || o.State().Switch != 1 {
		t.Fatal("sequence should complete despite the missing link")
	}
	if len(events.Find("chain.skipped")) != 1 {
		t.Error("expected chain.skipped")
	}
}

func TestActivateInitial(t *testing.T) {
	r := newTestRegistry(t)
	near := desc(1, "door")
	hidden := desc(2, "door")
	hidden.Hidden = true
	revealed := desc(3, "door")
	revealed.Hidden = true
	far := desc(4, "door")
	far.Position = mgl32.Vec3{100, 0, 0}
	r.Build([]scene.Descriptor{near, hidden, revealed, far})
	r.env.Store.Set(r.env.Key(3), override.SetActivated(true))

	r.ActivateInitial(Actor{ID: PlayerActor}, 10)
	got := r.GetActivatedSet()
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Fatalf("activated set %v, want [1 3]", got)
	}

	r.UpdateRelevance(Actor{ID: PlayerActor, Position: mgl32.Vec3{95, 0, 0}}, 10)
	if got := r.GetActivatedSet(); len(got) != 3 {
		t.Fatalf("far object not activated when in range: %v", got)
	}
}

func TestMirrorFlowerReadsOtherLocation(t *testing.T) {
	r := newTestRegistry(t)
	r.env.Store.Set(override.Key{Location: "garden", Scene: "pond", Object: 4}, override.SetSwitch(1))

	d := desc(1, "mirror_flower")
	d.Ref = &scene.ObjectRef{Location: "garden", Scene: "pond", Object: 4}
	o := mustCreate(t, r, d)
	if rep := o.Activate(); rep.Pose != "open" {
		t.Fatalf("pose %q, want open", rep.Pose)
	}
}

func TestPortalRequestsTransition(t *testing.T) {
	r := newTestRegistry(t)
	var got []bus.SceneTransition
	r.env.Bus.Subscribe(bus.KindSceneTransition, func(c bus.Command) {
		got = append(got, c.Payload.(bus.SceneTransition))
	})

	d := desc(5, "portal")
	d.Trigger = scene.Rect{X: 0, Y: 0, W: 1, H: 1}
	d.Ref = &scene.ObjectRef{Location: "town", Scene: "square", Object: 9}
	mustCreate(t, r, d).Activate()

	r.env.Hub.Update(trigger.Actor{ID: PlayerActor, Position: mgl32.Vec3{0.5, 0, 0.5}, StandingOn: trigger.Nothing}, epoch)
	settle(r)

	if len(got) != 1 || got[0].Location != "town" || got[0].SpawnID != 9 {
		t.Fatalf("unexpected transitions %+v", got)
	}
}

func TestPortalWithoutRefRestoresInput(t *testing.T) {
	r := newTestRegistry(t)
	var got []bus.Kind
	for _, k := range []bus.Kind{bus.KindInputDisable, bus.KindInputEnable, bus.KindSceneTransition} {
		r.env.Bus.Subscribe(k, func(c bus.Command) { got = append(got, c.Kind) })
	}

	d := desc(5, "portal")
	d.Trigger = scene.Rect{X: 0, Y: 0, W: 1, H: 1}
	mustCreate(t, r, d).Activate()

	r.env.Hub.Update(trigger.Actor{ID: PlayerActor, Position: mgl32.Vec3{0.5, 0, 0.5}, StandingOn: trigger.Nothing}, epoch)
	settle(r)

	if len(got) != 2 || got[0] != bus.KindInputDisable || got[1] != bus.KindInputEnable {
		t.Fatalf("unexpected commands %v", got)
	}
}

func TestRunScriptWaitsForCompletion(t *testing.T) {
	r := newTestRegistry(t)
	var done *task.Signal
	r.env.Bus.Subscribe(bus.KindRunScript, func(c bus.Command) {
		done = c.Payload.(bus.RunScript).Done
	})

	d := desc(1, "switch")
	d.ScriptID = 5
	o := mustCreate(t, r, d)
	o.Activate()
	r.Interact(1, nil, true)

	for i := 0; i < 20; i++ {
		advance(r, 100*time.Millisecond)
	}
	if done == nil || !o.Busy() {
		t.Fatal("sequence should be waiting for the script")
	}
	done.Fire()
	advance(r, 10*time.Millisecond)
	if o.Busy() {
		t.Fatal("sequence did not resume after the script completed")
	}
}

func TestBidirectionalPushableAlternates(t *testing.T) {
	r := newTestRegistry(t)
	d := desc(1, "pushable_bidirectional")
	d.Params = []int{0, 2}
	o := mustCreate(t, r, d)
	o.Activate()

	r.Interact(1, nil, true)
	settle(r)
	if o.State().Position != (mgl32.Vec3{0, 0, 2}) || o.State().Bidirectional != override.BidirectionalForward {
		t.Fatalf("after first push %+v", o.State())
	}
	r.Interact(1, nil, true)
	settle(r)
	if o.State().Position != (mgl32.Vec3{}) || o.State().Bidirectional != override.BidirectionalBackward {
		t.Fatalf("after second push %+v", o.State())
	}
}

func TestInteractObjectCommand(t *testing.T) {
	r := newTestRegistry(t)
	o := mustCreate(t, r, desc(1, "door"))
	o.Activate()

	r.env.Bus.Publish(bus.Command{Kind: bus.KindInteractObject, Payload: bus.Interact{ObjectID: 1, ActorID: PlayerActor, Player: true}})
	settle(r)
	if o.State().Switch != 1 {
		t.Fatal("interact command not served")
	}
	ov, _ := r.env.Store.TryGet(o.Key())
	if ov.Switch == nil || *ov.Switch != 1 {
		t.Error("switch write from a bus-dispatched interaction not persisted")
	}
}

func TestOverrideVisibleWithinBusDispatch(t *testing.T) {
	r := newTestRegistry(t)
	sw := desc(1, "switch")
	sw.Params = []int{0}
	sw.LinkedID = 2
	mustCreate(t, r, sw).Activate()

	fl := desc(2, "mirror_flower")
	fl.Hidden = true
	fl.Ref = &scene.ObjectRef{Location: "loc1", Scene: "sceneX", Object: 1}
	flower := mustCreate(t, r, fl)

	r.env.Bus.Publish(bus.Command{Kind: bus.KindInteractObject, Payload: bus.Interact{ObjectID: 1}})
	settle(r)

	ov, _ := r.env.Store.TryGet(override.Key{Location: "loc1", Scene: "sceneX", Object: 1})
	if ov.Switch == nil || *ov.Switch != 1 {
		t.Fatalf("switch override %v, want 1", ov.Switch)
	}
	rep := flower.Representation()
	if !flower.IsActivated() || rep == nil || rep.Pose != "open" {
		t.Fatalf("flower activated=%v rep=%+v, want open", flower.IsActivated(), rep)
	}
}

func TestScriptAndOperatorRequestsAreNotPlayerInitiated(t *testing.T) {
	events.Clear()
	r := newTestRegistry(t)
	r.env.Hub.Update(trigger.Actor{ID: PlayerActor, Position: mgl32.Vec3{5, 0, 5}, StandingOn: trigger.Nothing}, epoch)
	var faced int
	r.env.Bus.Subscribe(bus.KindFaceActor, func(bus.Command) { faced++ })

	o := mustCreate(t, r, desc(1, "door"))
	o.Activate()

	r.env.Bus.Publish(bus.Command{Kind: bus.KindInteractObject, Payload: bus.Interact{ObjectID: 1}})
	settle(r)
	if faced != 0 {
		t.Errorf("non-player request turned the player %d times", faced)
	}
	started := events.Find("interaction.started")
	if len(started) != 1 || started[0].Fields["player"] != false {
		t.Fatalf("unexpected interaction.started %+v", started)
	}

	r.env.Bus.Publish(bus.Command{Kind: bus.KindInteractObject, Payload: bus.Interact{ObjectID: 1, Player: true}})
	settle(r)
	if faced != 1 {
		t.Errorf("player request should face the player, faced=%d", faced)
	}
}

func TestDirectlyInteractable(t *testing.T) {
	r := newTestRegistry(t)
	r.env.InteractRadius = 2
	d := desc(1, "door")
	d.Params = []int{3}
	o := mustCreate(t, r, d)
	o.Activate()

	if o.DirectlyInteractable(Actor{ID: 1}) {
		t.Error("door restricted to actor 3 accepted actor 1")
	}
	if !o.DirectlyInteractable(Actor{ID: 3, Position: mgl32.Vec3{1, 0, 0}}) {
		t.Error("required actor in range rejected")
	}
	if o.DirectlyInteractable(Actor{ID: 3, Position: mgl32.Vec3{5, 0, 0}}) {
		t.Error("actor out of range accepted")
	}
}
