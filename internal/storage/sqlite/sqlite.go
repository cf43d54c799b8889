// Package sqlite stores save-slot override command streams in a local SQLite file.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store is a SQLite save file holding one or more slots.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the save file at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create save dir: %w", err)
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *Store) createTables() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS override_commands (
			seq     INTEGER PRIMARY KEY AUTOINCREMENT,
			slot    TEXT NOT NULL,
			command TEXT NOT NULL,
			ts      INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_override_commands_slot ON override_commands(slot, seq);
	`)
	return err
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Slots lists the slots that have at least one command.
func (s *Store) Slots() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT slot FROM override_commands ORDER BY slot`)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	var slots []string
	for rows.Next() {
		var slot string
		if err := rows.Scan(&slot); err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

// Journal returns the command journal of one slot.
func (s *Store) Journal(slot string) *Journal {
	return &Journal{store: s, slot: slot}
}

// Journal persists the override command stream of one save slot.
type Journal struct {
	store *Store
	slot  string
}

// Append writes one command at the end of the slot's stream.
func (j *Journal) Append(command string) error {
	_, err := j.store.db.Exec(
		`INSERT INTO override_commands (slot, command, ts) VALUES (?, ?, ?)`,
		j.slot, command, time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("append override command: %w", err)
	}
	return nil
}

// Load returns the slot's commands in write order.
func (j *Journal) Load() ([]string, error) {
	rows, err := j.store.db.Query(`SELECT command FROM override_commands WHERE slot = ? ORDER BY seq ASC`, j.slot)
	if err != nil {
		return nil, fmt.Errorf("load override commands: %w", err)
	}
	defer rows.Close()

	var cmds []string
	for rows.Next() {
		var cmd string
		if err := rows.Scan(&cmd); err != nil {
			return nil, err
		}
		cmds = append(cmds, cmd)
	}
	return cmds, rows.Err()
}

// Replace atomically swaps the slot's stream for cmds.
func (j *Journal) Replace(cmds []string) error {
	tx, err := j.store.db.Begin()
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM override_commands WHERE slot = ?`, j.slot); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear override commands: %w", err)
	}
	now := time.Now().UTC().UnixMilli()
	for _, cmd := range cmds {
		if _, err := tx.Exec(`INSERT INTO override_commands (slot, command, ts) VALUES (?, ?, ?)`, j.slot, cmd, now); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert override command: %w", err)
		}
	}
	return tx.Commit()
}
