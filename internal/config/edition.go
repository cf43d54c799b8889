package config

import "time"

// Edition selects one of the game editions sharing this binary.
type Edition string

const (
	EditionClassic   Edition = "classic"
	EditionExpansion Edition = "expansion"
)

// EditionProfile holds the per-edition data that used to be compiled in.
type EditionProfile struct {
	// TypeAliases maps edition-specific type tags onto registered tags.
	TypeAliases          map[string]string
	TriggerEffectiveTime time.Duration
	StanceDuration       time.Duration
}

var profiles = map[Edition]EditionProfile{
	EditionClassic: {
		TypeAliases:          map[string]string{},
		TriggerEffectiveTime: 800 * time.Millisecond,
		StanceDuration:       400 * time.Millisecond,
	},
	EditionExpansion: {
		TypeAliases: map[string]string{
			"gravity_switch": "switch",
			"lift":           "elevator",
			"slide_block":    "pushable",
		},
		TriggerEffectiveTime: 1200 * time.Millisecond,
		StanceDuration:       500 * time.Millisecond,
	},
}

// ProfileFor returns the profile of e, falling back to the classic edition.
func ProfileFor(e Edition) EditionProfile {
	if p, ok := profiles[e]; ok {
		return p
	}
	return profiles[EditionClassic]
}
