// Package script runs scene scripts written in tengo.
//
// A script does not block: running it records a list of actions through the
// `scene` object (sounds, activations, waits, ...). The runner then plays the
// actions back as a task on the scene scheduler and reports completion on the
// bus once the last one has run.
package script

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/AaronLay10/SceneEngine/internal/bus"
	"github.com/AaronLay10/SceneEngine/internal/events"
	"github.com/AaronLay10/SceneEngine/internal/override"
	"github.com/AaronLay10/SceneEngine/internal/scene"
	"github.com/AaronLay10/SceneEngine/internal/task"
)

// ErrNotFound is returned when no file exists for a script id.
var ErrNotFound = errors.New("script not found")

// Runner is the script collaborator. It serves RunScript and SceneLoaded.
type Runner struct {
	dir   string
	bus   *bus.Bus
	sched *task.Scheduler

	cache    map[int]*tengo.Compiled
	location string
	scene    string
	running  map[int]*task.Task
}

// NewRunner creates a runner reading <dir>/<id>.tengo.
func NewRunner(dir string, b *bus.Bus, sched *task.Scheduler) *Runner {
	return &Runner{
		dir:     dir,
		bus:     b,
		sched:   sched,
		cache:   make(map[int]*tengo.Compiled),
		running: make(map[int]*task.Task),
	}
}

func (r *Runner) Kinds() []bus.Kind {
	return []bus.Kind{bus.KindRunScript, bus.KindSceneLoaded}
}

func (r *Runner) HandleCommand(cmd bus.Command) {
	switch cmd.Kind {
	case bus.KindSceneLoaded:
		p, ok := cmd.Payload.(bus.SceneLoaded)
		if !ok {
			return
		}
		r.location, r.scene = p.Location, p.Scene
		if p.InitialScript != scene.NoScript {
			r.Run(p.InitialScript, nil)
		}
	case bus.KindRunScript:
		if p, ok := cmd.Payload.(bus.RunScript); ok {
			r.Run(p.ScriptID, p.Done)
		}
	}
}

// Path returns the file of script id.
func (r *Runner) Path(id int) string {
	return filepath.Join(r.dir, strconv.Itoa(id)+".tengo")
}

// Run executes script id. done fires when it completes, including when the
// script fails to load or run.
func (r *Runner) Run(id int, done *task.Signal) *task.Task {
	steps, err := r.record(id)
	if err != nil {
		events.Emit("error", "script.error", err.Error(), map[string]interface{}{
			"script_id": id,
		})
		steps = nil
	} else {
		events.Emit("info", "script.started", "", map[string]interface{}{
			"script_id": id,
			"actions":   len(steps),
		})
	}

	t := r.sched.New(fmt.Sprintf("script#%d", id), nil, steps...)
	t.OnFinish(func(cancelled bool) {
		if r.running[id] == t {
			delete(r.running, id)
		}
		done.Fire()
		if cancelled {
			return
		}
		if err == nil {
			events.Emit("info", "script.completed", "", map[string]interface{}{
				"script_id": id,
			})
		}
		r.bus.Publish(bus.Command{Kind: bus.KindScriptCompleted, Payload: bus.ScriptCompleted{ScriptID: id}})
	})
	r.running[id] = t
	return r.sched.Start(t)
}

// Running reports whether script id has a task in flight.
func (r *Runner) Running(id int) bool {
	_, ok := r.running[id]
	return ok
}

// Invalidate drops the compiled form of the script at path.
func (r *Runner) Invalidate(path string) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	id, err := strconv.Atoi(base)
	if err != nil {
		return
	}
	delete(r.cache, id)
}

// Cached reports whether script id is compiled.
func (r *Runner) Cached(id int) bool {
	_, ok := r.cache[id]
	return ok
}

func (r *Runner) compile(id int) (*tengo.Compiled, error) {
	if c, ok := r.cache[id]; ok {
		return c, nil
	}
	src, err := os.ReadFile(r.Path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to read script %d: %w", id, err)
	}

	s := tengo.NewScript(src)
	_ = s.Add("scene", map[string]any{})
	s.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))

	c, err := s.Compile()
	if err != nil {
		return nil, fmt.Errorf("failed to compile script %d: %w", id, err)
	}
	r.cache[id] = c
	return c, nil
}

// record runs the script and returns the steps it asked for.
func (r *Runner) record(id int) ([]task.Step, error) {
	c, err := r.compile(id)
	if err != nil {
		return nil, err
	}
	rec := &recorder{r: r}
	if err := c.Set("scene", rec.api()); err != nil {
		return nil, err
	}
	if err := c.Run(); err != nil {
		return nil, fmt.Errorf("script %d: %w", id, err)
	}
	return rec.steps, nil
}

type recorder struct {
	r     *Runner
	steps []task.Step
}

func (rec *recorder) publish(kind bus.Kind, payload any) {
	b := rec.r.bus
	rec.steps = append(rec.steps, task.Do(func() {
		b.Publish(bus.Command{Kind: kind, Payload: payload})
	}))
}

func (rec *recorder) api() *tengo.ImmutableMap {
	values := map[string]tengo.Object{}
	fn := func(name string, f tengo.CallableFunc) {
		values[name] = &tengo.UserFunction{Name: name, Value: f}
	}

	fn("play_sound", func(args ...tengo.Object) (tengo.Object, error) {
		name, ok := argString(args, 0)
		if !ok {
			return nil, tengo.ErrWrongNumArguments
		}
		loop, _ := argInt(args, 1)
		rec.publish(bus.KindPlaySound, bus.PlaySound{Name: name, Loop: loop})
		return tengo.UndefinedValue, nil
	})
	fn("activate", rec.objectCommand(bus.KindActivateObject))
	fn("deactivate", rec.objectCommand(bus.KindDeactivateObject))
	fn("interact", func(args ...tengo.Object) (tengo.Object, error) {
		id, ok := argInt(args, 0)
		if !ok {
			return nil, tengo.ErrWrongNumArguments
		}
		rec.publish(bus.KindInteractObject, bus.Interact{ObjectID: id})
		return tengo.UndefinedValue, nil
	})
	fn("wait", func(args ...tengo.Object) (tengo.Object, error) {
		n, ok := argInt(args, 0)
		if !ok {
			return nil, tengo.ErrWrongNumArguments
		}
		rec.steps = append(rec.steps, task.Frames(n))
		return tengo.UndefinedValue, nil
	})
	fn("camera_focus", func(args ...tengo.Object) (tengo.Object, error) {
		var v mgl32.Vec3
		for i := 0; i < 3; i++ {
			f, ok := argFloat(args, i)
			if !ok {
				return nil, tengo.ErrWrongNumArguments
			}
			v[i] = f
		}
		rec.publish(bus.KindCameraFocus, bus.CameraFocus{Target: v})
		return tengo.UndefinedValue, nil
	})
	fn("camera_free", func(args ...tengo.Object) (tengo.Object, error) {
		rec.publish(bus.KindCameraFree, nil)
		return tengo.UndefinedValue, nil
	})
	fn("input", func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) != 1 {
			return nil, tengo.ErrWrongNumArguments
		}
		kind := bus.KindInputDisable
		if !args[0].IsFalsy() {
			kind = bus.KindInputEnable
		}
		rec.publish(kind, nil)
		return tengo.UndefinedValue, nil
	})
	fn("game_state", func(args ...tengo.Object) (tengo.Object, error) {
		s, ok := argString(args, 0)
		if !ok {
			return nil, tengo.ErrWrongNumArguments
		}
		rec.publish(bus.KindGameStateChanged, bus.GameStateChanged{State: s})
		return tengo.UndefinedValue, nil
	})
	fn("save_switch", func(args ...tengo.Object) (tengo.Object, error) {
		id, ok1 := argInt(args, 0)
		v, ok2 := argInt(args, 1)
		if !ok1 || !ok2 {
			return nil, tengo.ErrWrongNumArguments
		}
		key := override.Key{Location: rec.r.location, Scene: rec.r.scene, Object: id}
		save := bus.NewSave(key, override.SetSwitch(v))
		rec.publish(save.Kind, save.Payload)
		return tengo.UndefinedValue, nil
	})
	fn("transition", func(args ...tengo.Object) (tengo.Object, error) {
		loc, ok1 := argString(args, 0)
		sc, ok2 := argString(args, 1)
		if !ok1 || !ok2 {
			return nil, tengo.ErrWrongNumArguments
		}
		spawn, _ := argInt(args, 2)
		rec.publish(bus.KindSceneTransition, bus.SceneTransition{Location: loc, Scene: sc, SpawnID: spawn})
		return tengo.UndefinedValue, nil
	})

	values["location_id"] = &tengo.String{Value: rec.r.location}
	values["scene_id"] = &tengo.String{Value: rec.r.scene}
	return &tengo.ImmutableMap{Value: values}
}

func (rec *recorder) objectCommand(kind bus.Kind) tengo.CallableFunc {
	return func(args ...tengo.Object) (tengo.Object, error) {
		id, ok := argInt(args, 0)
		if !ok {
			return nil, tengo.ErrWrongNumArguments
		}
		rec.publish(kind, bus.ObjectRef{ObjectID: id})
		return tengo.UndefinedValue, nil
	}
}

func argString(args []tengo.Object, i int) (string, bool) {
	if i >= len(args) {
		return "", false
	}
	return tengo.ToString(args[i])
}

func argInt(args []tengo.Object, i int) (int, bool) {
	if i >= len(args) {
		return 0, false
	}
	return tengo.ToInt(args[i])
}

func argFloat(args []tengo.Object, i int) (float32, bool) {
	if i >= len(args) {
		return 0, false
	}
	f, ok := tengo.ToFloat64(args[i])
	return float32(f), ok
}
