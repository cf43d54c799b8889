package orchestrator

import "github.com/AaronLay10/SceneEngine/internal/objects"

// ObjectView is the read-only state of one object for the API.
type ObjectView struct {
	ID           int                  `json:"id"`
	Type         string               `json:"type"`
	Lifecycle    string               `json:"lifecycle"`
	Pose         string               `json:"pose,omitempty"`
	Interactable bool                 `json:"interactable"`
	State        objects.RuntimeState `json:"state"`
}

// Snapshot is the state copied out for other goroutines after every tick.
type Snapshot struct {
	Location  string       `json:"location,omitempty"`
	Scene     string       `json:"scene,omitempty"`
	GameState string       `json:"game_state,omitempty"`
	Frame     uint64       `json:"frame"`
	Tasks     int          `json:"tasks"`
	Activated []int        `json:"activated"`
	Objects   []ObjectView `json:"objects"`
	Overrides int          `json:"overrides"`
}

// Snapshot returns the state as of the last tick. Safe from any goroutine.
func (r *Runtime) Snapshot() *Snapshot {
	return r.snapshot.Load()
}

func (r *Runtime) refreshSnapshot() {
	snap := &Snapshot{
		GameState: r.gameState,
		Frame:     r.opts.Sched.Frame(),
		Tasks:     r.opts.Sched.Len(),
		Overrides: r.opts.Store.Len(),
	}
	if s := r.session; s != nil {
		snap.Location = s.scene.Location
		snap.Scene = s.scene.ID
		snap.Activated = s.registry.GetActivatedSet()
		actor := r.actor()
		for _, o := range s.registry.Objects() {
			v := ObjectView{
				ID:           o.ID(),
				Type:         o.Tag,
				Lifecycle:    o.Lifecycle().String(),
				Interactable: o.DirectlyInteractable(actor),
				State:        o.State(),
			}
			if rep := o.Representation(); rep != nil {
				v.Pose = rep.Pose
			}
			snap.Objects = append(snap.Objects, v)
		}
	}
	r.snapshot.Store(snap)
}
