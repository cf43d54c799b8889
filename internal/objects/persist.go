package objects

import (
	"github.com/AaronLay10/SceneEngine/internal/bus"
	"github.com/AaronLay10/SceneEngine/internal/events"
	"github.com/AaronLay10/SceneEngine/internal/override"
)

// PersistHandler applies save commands to the override store.
type PersistHandler struct {
	Store *override.Store
}

func (h *PersistHandler) Kinds() []bus.Kind { return bus.SaveKinds }

func (h *PersistHandler) HandleCommand(cmd bus.Command) {
	p, ok := cmd.Payload.(bus.Save)
	if !ok {
		return
	}
	if err := h.Store.Set(p.Key, p.Mutation); err != nil {
		events.Emit("error", "system.error", "override write rejected", map[string]interface{}{
			"key":   p.Key.String(),
			"field": string(p.Mutation.Field),
			"error": err.Error(),
		})
	}
}
