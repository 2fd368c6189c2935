package task

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fynch/toast-export-api/internal/domain"
)

// State represents the lifecycle position of an export task.
type State string

// Possible task states. Queued is initial; Succeeded and Failed are terminal
// and no transition ever leaves them.
const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Terminal reports whether no further transition can leave the state.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// validNext encodes the Queued -> Running -> {Succeeded, Failed} machine.
func validNext(from, to State) bool {
	switch from {
	case StateQueued:
		return to == StateRunning
	case StateRunning:
		return to == StateSucceeded || to == StateFailed
	default:
		return false
	}
}

// Result summarizes a successful export. The payload itself is never retained
// on the record, so completed tasks stay cheap to keep for the process
// lifetime.
type Result struct {
	RecordCount      int `json:"record_count"`
	PayloadBytes     int `json:"payload_bytes"`
	DeliveryAttempts int `json:"delivery_attempts"`
}

// Error captures the terminal failure of a task: a machine-readable kind
// (e.g. "fetch_auth", "transform", "delivery_server_error") and a
// human-readable message.
type Error struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// LogLine is one entry in a task's append-only log.
type LogLine struct {
	Time    time.Time  `json:"time"`
	Level   slog.Level `json:"level"`
	Message string     `json:"message"`
}

// Record is the authoritative account of one export task. The Store owns the
// mutable instance; everything handed out is a deep-copied snapshot, so no
// caller ever observes a record mid-mutation.
type Record struct {
	ID         uuid.UUID            `json:"id"`
	State      State                `json:"state"`
	Request    domain.ExportRequest `json:"request"`
	CreatedAt  time.Time            `json:"created_at"`
	StartedAt  *time.Time           `json:"started_at,omitempty"`
	FinishedAt *time.Time           `json:"finished_at,omitempty"`
	Result     *Result              `json:"result,omitempty"`
	Error      *Error               `json:"error,omitempty"`
	LogLines   []LogLine            `json:"log_lines"`
}

// snapshot returns a deep copy safe for callers to retain.
func (r Record) snapshot() Record {
	cp := r
	if r.StartedAt != nil {
		t := *r.StartedAt
		cp.StartedAt = &t
	}
	if r.FinishedAt != nil {
		t := *r.FinishedAt
		cp.FinishedAt = &t
	}
	if r.Result != nil {
		res := *r.Result
		cp.Result = &res
	}
	if r.Error != nil {
		e := *r.Error
		cp.Error = &e
	}
	cp.LogLines = append([]LogLine(nil), r.LogLines...)
	return cp
}
