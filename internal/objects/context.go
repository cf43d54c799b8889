package objects

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// PlayerActor is the id of the player-controlled actor.
const PlayerActor = 0

// Actor is the entity performing an interaction.
type Actor struct {
	ID       int
	Position mgl32.Vec3
	Layer    int
}

// InteractionContext travels with one interaction and every interaction it
// chains into.
type InteractionContext struct {
	CorrelationID   uuid.UUID
	InitiatorID     int
	Location        string
	Scene           string
	Actor           *Actor
	PlayerInitiated bool

	derived bool
}

// NewContext starts a fresh interaction initiated by object initiator.
func NewContext(env *Env, initiator int, actor *Actor, player bool) *InteractionContext {
	return &InteractionContext{
		CorrelationID:   uuid.New(),
		InitiatorID:     initiator,
		Location:        env.Location,
		Scene:           env.Scene,
		Actor:           actor,
		PlayerInitiated: player,
	}
}

// Derive returns the context handed to a chained object. Correlation and
// initiator are kept.
func (ic *InteractionContext) Derive() *InteractionContext {
	c := *ic
	c.PlayerInitiated = false
	c.derived = true
	return &c
}

// Derived reports whether the context came from a chain.
func (ic *InteractionContext) Derived() bool { return ic.derived }
