package task

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fynch/toast-export-api/internal/domain"
)

// Common errors returned by the Store.
var (
	// ErrTaskNotFound is returned when no record exists for the given id.
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidTransition is returned when a requested state change does
	// not follow the task state machine. Hitting it indicates a logic error
	// in the caller, not a retryable condition.
	ErrInvalidTransition = errors.New("invalid task state transition")

	// ErrRecordFrozen is returned when appending a log line to a task that
	// has already reached a terminal state.
	ErrRecordFrozen = errors.New("task record is frozen")
)

// entry pairs one record with its own mutex so that concurrent executor runs
// touching different task ids never contend with each other. The store-level
// lock guards only the map itself.
type entry struct {
	mu  sync.Mutex
	rec Record
}

// Store owns every task record created during the process lifetime. All
// mutation goes through its synchronized methods; records are never evicted
// and ids are never reused.
type Store struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*entry
}

// NewStore creates an empty task record store.
func NewStore() *Store {
	return &Store{entries: make(map[uuid.UUID]*entry)}
}

// Create allocates a new record in the queued state and returns its id.
func (s *Store) Create(req domain.ExportRequest) uuid.UUID {
	id := uuid.New()
	e := &entry{rec: Record{
		ID:        id,
		State:     StateQueued,
		Request:   req,
		CreatedAt: time.Now().UTC(),
	}}

	s.mu.Lock()
	s.entries[id] = e
	s.mu.Unlock()

	return id
}

func (s *Store) lookup(id uuid.UUID) (*entry, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return e, nil
}

// Get returns a consistent snapshot of the record for the given id.
func (s *Store) Get(id uuid.UUID) (Record, error) {
	e, err := s.lookup(id)
	if err != nil {
		return Record{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec.snapshot(), nil
}

// AppendLog adds one line to the task's log. The log is append-only and
// freezes once the task reaches a terminal state.
func (s *Store) AppendLog(id uuid.UUID, level slog.Level, message string) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.rec.State.Terminal() {
		return fmt.Errorf("%w: state %s", ErrRecordFrozen, e.rec.State)
	}

	e.rec.LogLines = append(e.rec.LogLines, LogLine{
		Time:    time.Now().UTC(),
		Level:   level,
		Message: message,
	})
	return nil
}

// Outcome carries the terminal payload for a transition into a final state.
// Result and Error are mutually exclusive: exactly one is consulted,
// depending on the target state.
type Outcome struct {
	Result *Result
	Error  *Error
}

// Transition moves the record to the next state, stamping the corresponding
// timestamp and terminal payload. Transitions that do not follow
// Queued -> Running -> {Succeeded, Failed} fail with ErrInvalidTransition.
func (s *Store) Transition(id uuid.UUID, next State, outcome Outcome) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !validNext(e.rec.State, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, e.rec.State, next)
	}

	now := time.Now().UTC()
	switch next {
	case StateRunning:
		e.rec.StartedAt = &now
	case StateSucceeded:
		e.rec.FinishedAt = &now
		e.rec.Result = outcome.Result
	case StateFailed:
		e.rec.FinishedAt = &now
		e.rec.Error = outcome.Error
	}
	e.rec.State = next
	return nil
}

// CountByState reports how many tasks currently sit in each state. Every
// state appears in the result, including those with zero tasks.
func (s *Store) CountByState() map[State]int {
	counts := map[State]int{
		StateQueued:    0,
		StateRunning:   0,
		StateSucceeded: 0,
		StateFailed:    0,
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		e.mu.Lock()
		counts[e.rec.State]++
		e.mu.Unlock()
	}
	return counts
}
