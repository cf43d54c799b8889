package events

import "fmt"

var allowedEvents = map[string]struct{}{
	// scene
	"scene.loaded":     {},
	"scene.unloaded":   {},
	"scene.reloaded":   {},
	"scene.failed":     {},
	"scene.changed":    {},
	"scene.transition": {},

	// object lifecycle
	"object.created":     {},
	"object.skipped":     {},
	"object.activated":   {},
	"object.deactivated": {},

	// interaction
	"interaction.started":   {},
	"interaction.completed": {},
	"interaction.cancelled": {},
	"interaction.dropped":   {},

	// chaining
	"chain.activated": {},
	"chain.forwarded": {},
	"chain.skipped":   {},

	// overrides
	"override.set":      {},
	"override.replayed": {},

	// triggers
	"trigger.entered":    {},
	"trigger.exited":     {},
	"trigger.suppressed": {},
	"trigger.dangling":   {},

	// scripts
	"script.started":   {},
	"script.completed": {},
	"script.error":     {},

	// command bus
	"command.unhandled": {},
	"command.deferred":  {},
	"command.released":  {},

	// operator
	"operator.interact":   {},
	"operator.activate":   {},
	"operator.deactivate": {},

	// collaborators
	"collaborator.connected":    {},
	"collaborator.disconnected": {},
	"collaborator.error":        {},

	// system
	"system.startup":         {},
	"system.shutdown":        {},
	"system.error":           {},
	"system.startup_restore": {},
}

func Validate(event string) error {
	if _, ok := allowedEvents[event]; !ok {
		return fmt.Errorf("unknown event: %s", event)
	}
	return nil
}
