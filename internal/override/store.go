package override

import (
	"sort"
	"sync"

	"github.com/AaronLay10/SceneEngine/internal/events"
)

// Journal receives every command as it is written.
type Journal interface {
	Append(command string) error
}

// Store is the in-memory override map plus its command stream.
// Writes happen on the game loop; the mutex only protects readers on
// other goroutines (API snapshots).
type Store struct {
	mu        sync.RWMutex
	overrides map[Key]*Override
	commands  []string
	journal   Journal

	journalErrLogged bool
}

// NewStore creates an empty store with no journal.
func NewStore() *Store {
	return &Store{overrides: make(map[Key]*Override)}
}

// SetJournal attaches the persistence medium. Later writes go through to it.
func (s *Store) SetJournal(j Journal) {
	s.mu.Lock()
	s.journal = j
	s.journalErrLogged = false
	s.mu.Unlock()
}

// TryGet returns a copy of the override stored under key.
func (s *Store) TryGet(key Key) (Override, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.overrides[key]
	if !ok {
		return Override{}, false
	}
	return o.clone(), true
}

// Set writes one field and records it in the command stream and journal.
func (s *Store) Set(key Key, m Mutation) error {
	if err := s.set(key, m, true); err != nil {
		return err
	}
	events.Emit("debug", "override.set", "", map[string]interface{}{
		"key":   key.String(),
		"field": string(m.Field),
	})
	return nil
}

func (s *Store) set(key Key, m Mutation, journal bool) error {
	if err := validKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	o, ok := s.overrides[key]
	if !ok {
		o = &Override{}
	}
	if err := m.apply(o); err != nil {
		s.mu.Unlock()
		return err
	}
	s.overrides[key] = o
	cmd := Encode(key, m)
	s.commands = append(s.commands, cmd)
	j := s.journal
	s.mu.Unlock()

	if journal && j != nil {
		if err := j.Append(cmd); err != nil {
			s.logJournalError(err)
		}
	}
	return nil
}

func (s *Store) logJournalError(err error) {
	s.mu.Lock()
	logged := s.journalErrLogged
	s.journalErrLogged = true
	s.mu.Unlock()
	if logged {
		return
	}
	events.Emit("error", "system.error", "override journal append failed", map[string]interface{}{
		"error": err.Error(),
	})
}

// Apply parses one command and applies it without writing to the journal.
func (s *Store) Apply(cmd string) error {
	key, m, err := Parse(cmd)
	if err != nil {
		return err
	}
	return s.set(key, m, false)
}

// Restore applies a command stream read back from the journal.
func (s *Store) Restore(cmds []string) error {
	for _, cmd := range cmds {
		if err := s.Apply(cmd); err != nil {
			return err
		}
	}
	events.Emit("info", "override.replayed", "", map[string]interface{}{
		"commands": len(cmds),
	})
	return nil
}

// Replay builds a new store from a command stream.
func Replay(cmds []string) (*Store, error) {
	s := NewStore()
	for _, cmd := range cmds {
		if err := s.Apply(cmd); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Commands returns the full command stream in write order.
func (s *Store) Commands() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.commands...)
}

// Compact returns the shortest stream that reproduces the current state.
func (s *Store) Compact() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]Key, 0, len(s.overrides))
	for k := range s.overrides {
		keys = append(keys, k)
	}
	sortKeys(keys)

	var out []string
	for _, k := range keys {
		out = append(out, overrideCommands(k, *s.overrides[k])...)
	}
	return out
}

// Snapshot returns a copy of every override.
func (s *Store) Snapshot() map[Key]Override {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[Key]Override, len(s.overrides))
	for k, o := range s.overrides {
		out[k] = o.clone()
	}
	return out
}

// Len returns the number of keys with an override.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.overrides)
}

func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Location != keys[j].Location {
			return keys[i].Location < keys[j].Location
		}
		if keys[i].Scene != keys[j].Scene {
			return keys[i].Scene < keys[j].Scene
		}
		return keys[i].Object < keys[j].Object
	})
}
