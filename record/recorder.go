// ABOUTME: SQLite store of every message received from the simulation server, grouped by session.
// ABOUTME: Recorded sessions can be listed and their messages read back in arrival order for replay.
package record

import (
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"
)

// ErrNoSession is returned when a session ID has no recording.
var ErrNoSession = errors.New("no such recorded session")

// Fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SessionInfo summarises one recorded connection.
type SessionInfo struct {
	ID        string
	Server    string
	StartedAt time.Time
	EndedAt   *time.Time
	Messages  int
}

// Message is one recorded inbound event.
type Message struct {
	ID         ulid.ULID
	SessionID  string
	Event      string
	ReceivedAt time.Time
	ServerNow  float64
	Payload    json.RawMessage
}

// Recorder persists sessions and messages. It is safe for concurrent use.
type Recorder struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates a recording database at path.
func Open(path string) (*Recorder, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create recording dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if path == ":memory:" || strings.Contains(path, "mode=memory") {
		// Every pooled connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			server TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT
		);

		CREATE TABLE IF NOT EXISTS messages (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			message_id TEXT NOT NULL UNIQUE,
			session_id TEXT NOT NULL,
			event TEXT NOT NULL,
			received_at TEXT NOT NULL,
			server_now REAL NOT NULL,
			payload TEXT NOT NULL,
			FOREIGN KEY (session_id) REFERENCES sessions(session_id)
		);

		CREATE INDEX IF NOT EXISTS messages_by_session ON messages(session_id, seq);`

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Recorder{db: db, now: time.Now}, nil
}

// Close closes the database.
func (r *Recorder) Close() error {
	return r.db.Close()
}

// StartSession registers a new connection.
func (r *Recorder) StartSession(id, server string) error {
	_, err := r.db.Exec(
		`INSERT INTO sessions (session_id, server, started_at) VALUES (?, ?, ?)`,
		id, server, r.now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// EndSession stamps the end of a connection.
func (r *Recorder) EndSession(id string) error {
	res, err := r.db.Exec(
		`UPDATE sessions SET ended_at = ? WHERE session_id = ? AND ended_at IS NULL`,
		r.now().UTC().Format(timeLayout), id,
	)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNoSession, id)
	}
	return nil
}

// Append stores one inbound event. The server timestamp is read from the
// payload's "now" field when present.
func (r *Recorder) Append(sessionID, event string, payload []byte) (Message, error) {
	msg := Message{
		ID:         ulid.MustNew(ulid.Now(), rand.Reader),
		SessionID:  sessionID,
		Event:      event,
		ReceivedAt: r.now().UTC(),
		ServerNow:  serverNow(payload),
		Payload:    append(json.RawMessage(nil), payload...),
	}
	if msg.Payload == nil {
		msg.Payload = json.RawMessage("null")
	}
	_, err := r.db.Exec(
		`INSERT INTO messages (message_id, session_id, event, received_at, server_now, payload)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID.String(),
		msg.SessionID,
		msg.Event,
		msg.ReceivedAt.Format(timeLayout),
		msg.ServerNow,
		string(msg.Payload),
	)
	if err != nil {
		return Message{}, fmt.Errorf("insert message: %w", err)
	}
	return msg, nil
}

// Sessions lists recordings, newest first.
func (r *Recorder) Sessions() ([]SessionInfo, error) {
	rows, err := r.db.Query(
		`SELECT s.session_id, s.server, s.started_at, s.ended_at, COUNT(m.seq)
		 FROM sessions s LEFT JOIN messages m ON m.session_id = s.session_id
		 GROUP BY s.session_id
		 ORDER BY s.started_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionInfo
	for rows.Next() {
		var (
			info    SessionInfo
			started string
			ended   sql.NullString
		)
		if err := rows.Scan(&info.ID, &info.Server, &started, &ended, &info.Messages); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if info.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if ended.Valid {
			t, err := time.Parse(timeLayout, ended.String)
			if err != nil {
				return nil, fmt.Errorf("parse ended_at: %w", err)
			}
			info.EndedAt = &t
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// Messages returns a session's messages in arrival order.
func (r *Recorder) Messages(sessionID string) ([]Message, error) {
	var exists int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM sessions WHERE session_id = ?`, sessionID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSession, sessionID)
	}

	rows, err := r.db.Query(
		`SELECT message_id, session_id, event, received_at, server_now, payload
		 FROM messages WHERE session_id = ? ORDER BY seq`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var (
			msg      Message
			id       string
			received string
			payload  string
		)
		if err := rows.Scan(&id, &msg.SessionID, &msg.Event, &received, &msg.ServerNow, &payload); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if msg.ID, err = ulid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse message id: %w", err)
		}
		if msg.ReceivedAt, err = time.Parse(timeLayout, received); err != nil {
			return nil, fmt.Errorf("parse received_at: %w", err)
		}
		msg.Payload = json.RawMessage(payload)
		out = append(out, msg)
	}
	return out, rows.Err()
}

func serverNow(payload []byte) float64 {
	var envelope struct {
		Now float64 `json:"now"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return 0
	}
	return envelope.Now
}
