package orchestrator

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/AaronLay10/SceneEngine/internal/bus"
	"github.com/AaronLay10/SceneEngine/internal/config"
	"github.com/AaronLay10/SceneEngine/internal/events"
	"github.com/AaronLay10/SceneEngine/internal/objects"
	"github.com/AaronLay10/SceneEngine/internal/override"
	"github.com/AaronLay10/SceneEngine/internal/scene"
	"github.com/AaronLay10/SceneEngine/internal/script"
	"github.com/AaronLay10/SceneEngine/internal/task"
	"github.com/AaronLay10/SceneEngine/internal/trigger"
)

// NoSpawn keeps the player where they are on load.
const NoSpawn = -1

// Options wires a Runtime.
type Options struct {
	Dir     scene.Dir
	Bus     *bus.Bus
	Store   *override.Store
	Factory *objects.Factory
	Scripts *script.Runner
	Sched   *task.Scheduler
	Hub     *trigger.Hub

	Profile         config.EditionProfile
	InteractRadius  float32
	RelevanceRadius float32
}

// session is one loaded scene.
type session struct {
	scene    *scene.Scene
	env      *objects.Env
	registry *objects.Registry
	subs     []*bus.Subscription
}

// Runtime owns the active scene session and drives it from the game loop.
// Only the game-loop goroutine calls its methods; other goroutines use Post.
type Runtime struct {
	opts Options

	inbox      chan func()
	session    *session
	player     trigger.Actor
	gameState  string
	transition *bus.SceneTransition

	snapshot atomic.Pointer[Snapshot]
}

// NewRuntime creates a runtime with no scene loaded. It registers itself on
// the bus for transitions, actor moves and game state changes.
func NewRuntime(opts Options) *Runtime {
	r := &Runtime{
		opts:   opts,
		inbox:  make(chan func(), 256),
		player: trigger.Actor{ID: objects.PlayerActor, StandingOn: trigger.Nothing},
	}
	opts.Bus.Register(r)
	r.snapshot.Store(&Snapshot{})
	return r
}

func (r *Runtime) Kinds() []bus.Kind {
	return []bus.Kind{bus.KindSceneTransition, bus.KindMoveActor, bus.KindGameStateChanged}
}

func (r *Runtime) HandleCommand(cmd bus.Command) {
	switch p := cmd.Payload.(type) {
	case bus.SceneTransition:
		// Applied at the end of the tick, outside any running sequence.
		t := p
		r.transition = &t
	case bus.MoveActor:
		if p.ActorID != r.player.ID {
			return
		}
		r.player.Position = p.Target
		r.player.Layer = p.Layer
		if p.Teleport {
			r.opts.Hub.Update(r.player, r.opts.Sched.Now())
		}
	case bus.GameStateChanged:
		r.gameState = p.State
	}
}

// Post queues fn to run on the game loop at the start of the next tick.
// It reports false when the inbox is full.
func (r *Runtime) Post(fn func()) bool {
	select {
	case r.inbox <- fn:
		return true
	default:
		events.Emit("warn", "system.error", "runtime inbox full", nil)
		return false
	}
}

// PostCommand queues cmd to be published on the game loop. Object commands
// go through the bus barrier: they wait while a scene's initial script runs.
func (r *Runtime) PostCommand(cmd bus.Command) bool {
	return r.Post(func() {
		switch cmd.Kind {
		case bus.KindActivateObject, bus.KindDeactivateObject, bus.KindInteractObject:
			r.opts.Bus.Defer(cmd)
		default:
			r.opts.Bus.Publish(cmd)
		}
	})
}

// LoadScene unloads the current scene, if any, and loads location/id. The
// player is placed on object spawn when it exists.
func (r *Runtime) LoadScene(location, id string, spawn int) error {
	sc, err := r.opts.Dir.Load(location, id)
	if err != nil {
		events.Emit("error", "scene.failed", err.Error(), map[string]interface{}{
			"location": location,
			"scene":    id,
		})
		return fmt.Errorf("load scene %s/%s: %w", location, id, err)
	}
	r.UnloadScene()

	env := &objects.Env{
		Location:       sc.Location,
		Scene:          sc.ID,
		Bus:            r.opts.Bus,
		Store:          r.opts.Store,
		Sched:          r.opts.Sched,
		Hub:            r.opts.Hub,
		Profile:        r.opts.Profile,
		InteractRadius: r.opts.InteractRadius,
	}
	reg := objects.NewRegistry(env, r.opts.Factory)
	created := reg.Build(sc.Objects)
	s := &session{scene: sc, env: env, registry: reg}
	s.subs = r.opts.Bus.Register(reg)
	r.session = s

	if d, ok := sc.Object(spawn); ok {
		r.player.Position = d.Position
		r.player.Layer = d.Layer
	}
	reg.ActivateInitial(r.actor(), r.opts.RelevanceRadius)
	// Record where the player stands so detectors under them stay quiet
	// until they step off and back on.
	r.opts.Hub.Update(r.player, r.opts.Sched.Now())

	events.Emit("info", "scene.loaded", "", map[string]interface{}{
		"location":  sc.Location,
		"scene":     sc.ID,
		"objects":   created,
		"activated": len(reg.GetActivatedSet()),
	})
	r.opts.Bus.Publish(bus.Command{Kind: bus.KindSceneLoaded, Payload: bus.SceneLoaded{
		Location:      sc.Location,
		Scene:         sc.ID,
		InitialScript: sc.InitialScript,
	}})
	r.refreshSnapshot()
	return nil
}

// UnloadScene tears the active scene down. Running sequences are cancelled;
// their committed override writes stay.
func (r *Runtime) UnloadScene() {
	s := r.session
	if s == nil {
		return
	}
	s.registry.Teardown()
	for _, sub := range s.subs {
		sub.Unsubscribe()
	}
	r.opts.Sched.CancelAll()
	r.opts.Hub.Reset()
	r.opts.Bus.ResetBarrier()
	r.session = nil
	r.player.StandingOn = trigger.Nothing

	events.Emit("info", "scene.unloaded", "", map[string]interface{}{
		"location": s.scene.Location,
		"scene":    s.scene.ID,
	})
	r.refreshSnapshot()
}

// ReloadScene reloads the active scene from disk keeping the player where
// they are.
func (r *Runtime) ReloadScene() error {
	s := r.session
	if s == nil {
		return fmt.Errorf("no active scene")
	}
	pos, layer := r.player.Position, r.player.Layer
	if err := r.LoadScene(s.scene.Location, s.scene.ID, NoSpawn); err != nil {
		return err
	}
	r.player.Position, r.player.Layer = pos, layer
	events.Emit("info", "scene.reloaded", "", map[string]interface{}{
		"location": s.scene.Location,
		"scene":    s.scene.ID,
	})
	return nil
}

// FileChanged handles a changed file under the scene or script directory.
func (r *Runtime) FileChanged(path string) {
	if scene.IsScriptFile(path) {
		if r.opts.Scripts != nil {
			r.opts.Scripts.Invalidate(path)
		}
		events.Emit("info", "scene.changed", "", map[string]interface{}{"path": path, "kind": "script"})
		return
	}
	loc, id, ok := r.opts.Dir.Identify(path)
	if !ok {
		return
	}
	events.Emit("info", "scene.changed", "", map[string]interface{}{"path": path, "kind": "scene"})
	if s := r.session; s != nil && s.scene.Location == loc && s.scene.ID == id {
		_ = r.ReloadScene()
	}
}

// Tick runs one frame: inbox, scheduled sequences, trigger detection,
// relevance and pending transitions.
func (r *Runtime) Tick(now time.Time) {
	r.drain()
	r.opts.Sched.Tick(now)
	if s := r.session; s != nil {
		r.opts.Hub.Update(r.player, r.opts.Sched.Now())
		s.registry.UpdateRelevance(r.actor(), r.opts.RelevanceRadius)
	}
	r.applyTransition()
	r.refreshSnapshot()
}

func (r *Runtime) drain() {
	for {
		select {
		case fn := <-r.inbox:
			fn()
		default:
			return
		}
	}
}

func (r *Runtime) applyTransition() {
	t := r.transition
	if t == nil {
		return
	}
	r.transition = nil
	events.Emit("info", "scene.transition", "", map[string]interface{}{
		"location": t.Location,
		"scene":    t.Scene,
		"spawn_id": t.SpawnID,
	})
	if err := r.LoadScene(t.Location, t.Scene, t.SpawnID); err != nil {
		// The old scene stays; give control back.
		r.opts.Bus.Publish(bus.Command{Kind: bus.KindInputEnable})
		return
	}
	// Collaborators learn the spawn and regain input once the new scene's
	// initial script is done.
	var after []bus.Command
	if _, ok := r.session.scene.Object(t.SpawnID); ok {
		after = append(after, bus.Command{Kind: bus.KindMoveActor, Payload: bus.MoveActor{
			ActorID:  r.player.ID,
			Target:   r.player.Position,
			Layer:    r.player.Layer,
			Teleport: true,
		}})
	}
	after = append(after, bus.Command{Kind: bus.KindInputEnable})
	r.opts.Bus.Defer(after...)
}

// Run ticks the runtime every interval until ctx is done.
func (r *Runtime) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.UnloadScene()
			return
		case now := <-ticker.C:
			r.Tick(now)
		}
	}
}

// SetPlayer updates the player's position, layer and supporting object.
func (r *Runtime) SetPlayer(pos mgl32.Vec3, layer, standingOn int) {
	r.player.Position = pos
	r.player.Layer = layer
	r.player.StandingOn = standingOn
}

// Player returns the player actor state.
func (r *Runtime) Player() trigger.Actor { return r.player }

// Registry returns the active registry, nil when no scene is loaded.
func (r *Runtime) Registry() *objects.Registry {
	if r.session == nil {
		return nil
	}
	return r.session.registry
}

// Scene returns the active scene, nil when none is loaded.
func (r *Runtime) Scene() *scene.Scene {
	if r.session == nil {
		return nil
	}
	return r.session.scene
}

func (r *Runtime) actor() objects.Actor {
	return objects.Actor{ID: r.player.ID, Position: r.player.Position, Layer: r.player.Layer}
}
