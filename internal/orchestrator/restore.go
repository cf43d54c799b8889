package orchestrator

import (
	"fmt"

	"github.com/AaronLay10/SceneEngine/internal/events"
	"github.com/AaronLay10/SceneEngine/internal/override"
)

// CommandSource yields a saved override command stream.
type CommandSource interface {
	Load() ([]string, error)
}

// RestoreOverrides replays the command stream of src into store. It returns
// the number of commands replayed. A nil source restores nothing.
func RestoreOverrides(src CommandSource, store *override.Store) (int, error) {
	if src == nil {
		return 0, nil
	}
	cmds, err := src.Load()
	if err != nil {
		return 0, fmt.Errorf("load override journal: %w", err)
	}
	if len(cmds) == 0 {
		return 0, nil
	}
	if err := store.Restore(cmds); err != nil {
		return 0, fmt.Errorf("replay override journal: %w", err)
	}
	return len(cmds), nil
}

// EmitStartupRestore emits the system.startup_restore event.
func EmitStartupRestore(restored int, slot string) {
	events.Emit("info", "system.startup_restore", "", map[string]interface{}{
		"restored": restored,
		"slot":     slot,
	})
}
