package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/fynch/toast-export-api/internal/redact"
)

// Sink fans task log lines out to the task's record and to the process-wide
// structured log, so operators see per-task progress without polling the API.
// Appends hold only the record's own mutex, so logging never becomes a
// backpressure source for the executor.
type Sink struct {
	store  *Store
	logger *slog.Logger
}

// NewSink creates a log sink writing through the given store and process
// logger.
func NewSink(store *Store, logger *slog.Logger) *Sink {
	return &Sink{store: store, logger: logger}
}

// Log appends one line to the task's record and mirrors it to the process
// log. Messages are credential-redacted on the way in; log lines are polled
// back out through the API. An append against a missing or frozen record
// indicates a logic error in the executor; it is surfaced in the process log
// rather than returned, because log emission must never derail the
// executor's critical path.
func (s *Sink) Log(id uuid.UUID, level slog.Level, message string) {
	message = redact.String(message)
	if err := s.store.AppendLog(id, level, message); err != nil {
		s.logger.Error("task log append failed",
			"task_id", id,
			"error", err)
	}
	s.logger.Log(context.Background(), level, message, "task_id", id)
}

// TaskLog returns a logger bound to a single task id.
func (s *Sink) TaskLog(id uuid.UUID) *TaskLog {
	return &TaskLog{sink: s, id: id}
}

// TaskLog emits log lines for one task.
type TaskLog struct {
	sink *Sink
	id   uuid.UUID
}

// Infof logs a formatted line at info level.
func (l *TaskLog) Infof(format string, args ...any) {
	l.sink.Log(l.id, slog.LevelInfo, fmt.Sprintf(format, args...))
}

// Warnf logs a formatted line at warn level.
func (l *TaskLog) Warnf(format string, args ...any) {
	l.sink.Log(l.id, slog.LevelWarn, fmt.Sprintf(format, args...))
}

// Errorf logs a formatted line at error level.
func (l *TaskLog) Errorf(format string, args ...any) {
	l.sink.Log(l.id, slog.LevelError, fmt.Sprintf(format, args...))
}
