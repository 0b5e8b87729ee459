package main

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bekirdag/goal/internal/board"
)

const (
	eventSessionStarted = "session_started"
	eventSynced         = "mutation_synced"
	eventRolledBack     = "mutation_rolled_back"
	eventStale          = "mutation_stale"
)

// journalEntry is one NDJSON line. cmd/syncreport decodes the same fields.
type journalEntry struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Event     string    `json:"event"`
	Op        string    `json:"op,omitempty"`
	Quadrant  string    `json:"quadrant,omitempty"`
	Key       string    `json:"key,omitempty"`
	Error     string    `json:"error,omitempty"`
	Backend   string    `json:"backend,omitempty"`
}

// syncJournal appends an entry for every resolved mutation. A nil journal
// records nothing.
type syncJournal struct {
	path  string
	stamp journalEntry
	now   func() time.Time
	log   *slog.Logger

	mu     sync.Mutex
	broken bool
}

// newSyncJournal stamps session, user and backend from stamp onto every entry.
// A session id is generated when stamp has none.
func newSyncJournal(path string, stamp journalEntry, log *slog.Logger) *syncJournal {
	if stamp.SessionID == "" {
		stamp.SessionID = uuid.NewString()
	}
	if log == nil {
		log = slog.Default()
	}
	return &syncJournal{path: path, stamp: stamp, now: time.Now, log: log}
}

func (j *syncJournal) record(entry journalEntry) {
	if j == nil || entry.Event == "" {
		return
	}
	entry.SessionID = j.stamp.SessionID
	entry.Backend = j.stamp.Backend
	if entry.UserID == "" {
		entry.UserID = j.stamp.UserID
	}
	entry.Timestamp = j.now().UTC()

	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.append(entry); err != nil && !j.broken {
		j.broken = true
		j.log.Warn("sync journal unavailable", "path", j.path, "err", err)
	}
}

func (j *syncJournal) append(entry journalEntry) error {
	if err := os.MkdirAll(filepath.Dir(j.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(entry); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Observe is installed as the engine observer.
func (j *syncJournal) Observe(o board.Outcome) {
	entry := journalEntry{
		Event:    eventSynced,
		Op:       string(o.Op),
		Quadrant: string(o.Quadrant),
		Key:      o.Key,
	}
	switch {
	case o.Err != nil && o.Stale:
		entry.Event = eventStale
	case o.Err != nil:
		entry.Event = eventRolledBack
	}
	if o.Err != nil {
		entry.Error = o.Err.Error()
	}
	j.record(entry)
}
