package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"

	"github.com/AaronLay10/SceneEngine/internal/config"
)

// EventRow represents an event stored in Postgres.
type EventRow struct {
	EventID   int64                  `json:"event_id"`
	Timestamp time.Time              `json:"ts"`
	Level     string                 `json:"level"`
	Event     string                 `json:"event"`
	Message   *string                `json:"msg,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	EngineID  string                 `json:"engine_id"`
	SessionID *string                `json:"session_id,omitempty"`
}

// Client manages the Postgres connection for the event log and the
// override command journal.
type Client struct {
	db       *sql.DB
	engineID string
}

// New creates a new Postgres client using environment variables.
// PGPASSWORD honours the *_FILE convention.
func New(engineID string) (*Client, error) {
	host := getEnv("PGHOST", "127.0.0.1")
	port := getEnv("PGPORT", "5432")
	user := getEnv("PGUSER", "scene")
	dbname := getEnv("PGDATABASE", "scene")
	password, err := config.ResolveSecret("PGPASSWORD")
	if err != nil {
		return nil, err
	}

	var connStr string
	if password != "" {
		connStr = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			host, port, user, password, dbname)
	} else {
		connStr = fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=disable",
			host, port, user, dbname)
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	client := &Client{
		db:       db,
		engineID: engineID,
	}

	if err := client.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return client, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func (c *Client) createTables() error {
	query := `
		CREATE TABLE IF NOT EXISTS events (
			event_id   BIGSERIAL PRIMARY KEY,
			ts         TIMESTAMPTZ NOT NULL,
			level      TEXT NOT NULL,
			event      TEXT NOT NULL,
			msg        TEXT,
			fields     JSONB,
			engine_id  TEXT NOT NULL,
			session_id TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts DESC);
		CREATE INDEX IF NOT EXISTS idx_events_engine_id ON events(engine_id);

		CREATE TABLE IF NOT EXISTS override_commands (
			seq       BIGSERIAL PRIMARY KEY,
			engine_id TEXT NOT NULL,
			slot      TEXT NOT NULL,
			command   TEXT NOT NULL,
			ts        TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_override_commands_slot ON override_commands(engine_id, slot, seq);
	`
	_, err := c.db.Exec(query)
	return err
}

// Append inserts an event into the database.
func (c *Client) Append(ts time.Time, level, event, msg string, fields map[string]interface{}, sessionID string) error {
	var fieldsJSON []byte
	var err error
	if fields != nil {
		fieldsJSON, err = json.Marshal(fields)
		if err != nil {
			return fmt.Errorf("failed to marshal fields: %w", err)
		}
	}

	var msgPtr *string
	if msg != "" {
		msgPtr = &msg
	}

	var sessionPtr *string
	if sessionID != "" {
		sessionPtr = &sessionID
	}

	query := `
		INSERT INTO events (ts, level, event, msg, fields, engine_id, session_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = c.db.Exec(query, ts, level, event, msgPtr, fieldsJSON, c.engineID, sessionPtr)
	return err
}

// Query returns the last N events from the database in descending order by timestamp.
func (c *Client) Query(limit int) ([]EventRow, error) {
	if limit <= 0 {
		limit = 200
	}
	if limit > 10000 {
		limit = 10000
	}

	query := `
		SELECT event_id, ts, level, event, msg, fields, engine_id, session_id
		FROM events
		WHERE engine_id = $1
		ORDER BY ts DESC
		LIMIT $2
	`
	rows, err := c.db.Query(query, c.engineID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []EventRow
	for rows.Next() {
		var e EventRow
		var fieldsJSON []byte
		var msg, sessionID sql.NullString

		if err := rows.Scan(&e.EventID, &e.Timestamp, &e.Level, &e.Event, &msg, &fieldsJSON, &e.EngineID, &sessionID); err != nil {
			return nil, err
		}

		if msg.Valid {
			e.Message = &msg.String
		}
		if sessionID.Valid {
			e.SessionID = &sessionID.String
		}
		if len(fieldsJSON) > 0 {
			if err := json.Unmarshal(fieldsJSON, &e.Fields); err != nil {
				return nil, fmt.Errorf("failed to unmarshal fields: %w", err)
			}
		}

		events = append(events, e)
	}

	return events, rows.Err()
}

// Journal returns the override command journal of a save slot.
func (c *Client) Journal(slot string) *Journal {
	return &Journal{client: c, slot: slot}
}

// Journal persists the override command stream of one save slot.
type Journal struct {
	client *Client
	slot   string
}

// Append writes one command at the end of the slot's stream.
func (j *Journal) Append(command string) error {
	_, err := j.client.db.Exec(
		`INSERT INTO override_commands (engine_id, slot, command) VALUES ($1, $2, $3)`,
		j.client.engineID, j.slot, command,
	)
	if err != nil {
		return fmt.Errorf("append override command: %w", err)
	}
	return nil
}

// Load returns the slot's commands in write order.
func (j *Journal) Load() ([]string, error) {
	rows, err := j.client.db.Query(
		`SELECT command FROM override_commands WHERE engine_id = $1 AND slot = $2 ORDER BY seq ASC`,
		j.client.engineID, j.slot,
	)
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

// Replace atomically swaps the slot's stream for cmds (used by compaction).
func (j *Journal) Replace(cmds []string) error {
	tx, err := j.client.db.Begin()
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM override_commands WHERE engine_id = $1 AND slot = $2`, j.client.engineID, j.slot); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear override commands: %w", err)
	}
	for _, cmd := range cmds {
		if _, err := tx.Exec(
			`INSERT INTO override_commands (engine_id, slot, command) VALUES ($1, $2, $3)`,
			j.client.engineID, j.slot, cmd,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert override command: %w", err)
		}
	}
	return tx.Commit()
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
