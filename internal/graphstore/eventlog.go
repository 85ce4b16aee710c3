package graphstore

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// EventKind enumerates the two mutation kinds the event log records, one
// per successful write, per spec §4.G invariant 3.
type EventKind string

const (
	EventAddNode EventKind = "add_node"
	EventAddEdge EventKind = "add_edge"
)

// Event is one append-only log record. Grounded on graph_backend.py's
// _log_event, which stamps every mutation with a wall-clock timestamp
// before appending it to the JSONL file.
type Event struct {
	Kind      EventKind      `json:"kind"`
	Timestamp time.Time      `json:"timestamp"`
	NodeID    string         `json:"node_id,omitempty"`
	Label     string         `json:"label,omitempty"`
	FromID    string         `json:"from_id,omitempty"`
	ToID      string         `json:"to_id,omitempty"`
	RelType   string         `json:"rel_type,omitempty"`
	Props     map[string]any `json:"props"`
}

// EventLog appends Event records to a JSONL file. Safe for concurrent use;
// every append is flushed before returning so a crash never loses an
// acknowledged write.
type EventLog struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// OpenEventLog opens (creating if needed) the JSONL file at path for
// appending. An empty path disables logging: Append becomes a no-op.
func OpenEventLog(path string) (*EventLog, error) {
	if path == "" {
		return &EventLog{}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("graphstore: open event log: %w", err)
	}
	return &EventLog{path: path, file: f}, nil
}

// Append writes ev as one JSON line and flushes it to disk. The event's
// Timestamp is always overwritten with the current time, so callers never
// need to stamp it themselves.
func (l *EventLog) Append(ev Event) error {
	if l.file == nil {
		return nil
	}
	ev.Timestamp = time.Now().UTC()
	l.mu.Lock()
	defer l.mu.Unlock()
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("graphstore: marshal event: %w", err)
	}
	data = append(data, '\n')
	if _, err := l.file.Write(data); err != nil {
		return fmt.Errorf("graphstore: append event: %w", err)
	}
	return l.file.Sync()
}

// Close closes the underlying file, if any.
func (l *EventLog) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// ReplayEvents reads the JSONL log back into memory in append order,
// grounded on graph_backend.py's replay-on-restart use of _log_event's
// output. A missing file replays as an empty, non-error result.
func ReplayEvents(path string) ([]Event, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("graphstore: open event log for replay: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			return events, fmt.Errorf("graphstore: parse event log line: %w", err)
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("graphstore: scan event log: %w", err)
	}
	return events, nil
}
