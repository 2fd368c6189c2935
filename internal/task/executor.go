package task

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/fynch/toast-export-api/internal/domain"
	"github.com/fynch/toast-export-api/internal/redact"
)

// Fetcher retrieves raw order records for a date range and restaurant. A
// failure is fatal to the task; any retry discipline for the upstream API is
// the fetcher's own concern.
type Fetcher interface {
	FetchOrders(ctx context.Context, r domain.DateRange, restaurantGUID string) ([]json.RawMessage, error)
}

// Transformer reduces raw order records to the outgoing payload body and the
// number of orders it represents. A transform failure indicates malformed
// upstream data and is fatal to the task.
type Transformer interface {
	Transform(req domain.ExportRequest, records []json.RawMessage) (body []byte, orderCount int, err error)
}

// Deliverer posts the payload to a webhook URL, retrying transient failures
// internally. It reports the number of attempts made; onAttempt, if non-nil,
// fires before each attempt with the 1-based attempt number.
type Deliverer interface {
	Deliver(ctx context.Context, url string, body []byte, onAttempt func(attempt int)) (attempts int, err error)
}

// kinder is implemented by collaborator errors that carry a failure kind
// (fetch, transform, and delivery errors all do).
type kinder interface {
	ErrorKind() string
}

func errorKind(err error, fallback string) string {
	var k kinder
	if errors.As(err, &k) {
		return k.ErrorKind()
	}
	return fallback
}

// Executor runs one export task end to end on its own goroutine, recording
// progress through the store. For any given task id the executor is the sole
// writer of that record's state.
type Executor struct {
	store       *Store
	sink        *Sink
	fetcher     Fetcher
	transformer Transformer
	deliverer   Deliverer
	logger      *slog.Logger
}

// NewExecutor creates an executor over the given collaborators.
func NewExecutor(
	store *Store,
	sink *Sink,
	fetcher Fetcher,
	transformer Transformer,
	deliverer Deliverer,
	logger *slog.Logger,
) *Executor {
	return &Executor{
		store:       store,
		sink:        sink,
		fetcher:     fetcher,
		transformer: transformer,
		deliverer:   deliverer,
		logger:      logger,
	}
}

// Run drives a single task to a terminal state. It never returns an error:
// every failure is captured on the task record and logged, so a failed task
// remains queryable with its full log.
func (e *Executor) Run(ctx context.Context, id uuid.UUID) {
	rec, err := e.store.Get(id)
	if err != nil {
		e.logger.Error("executor started for unknown task",
			"task_id", id,
			"error", err)
		return
	}
	req := rec.Request

	if err := e.store.Transition(id, StateRunning, Outcome{}); err != nil {
		// The dispatcher schedules exactly one run per id, so a rejected
		// transition here means the id was double-scheduled. Logic error,
		// not retryable.
		e.logger.Error("task transition to running rejected",
			"task_id", id,
			"error", err)
		return
	}

	log := e.sink.TaskLog(id)
	log.Infof("export started: %s to %s, location %d, delivery mode %s",
		req.Range.Start.Format(domain.DateLayout),
		req.Range.End.Format(domain.DateLayout),
		req.LocationIndex,
		req.Delivery.Mode)

	records, err := e.fetcher.FetchOrders(ctx, req.Range, req.RestaurantGUID)
	if err != nil {
		log.Errorf("order fetch failed: %v", err)
		e.fail(id, errorKind(err, "fetch"), err)
		return
	}
	log.Infof("fetched %d raw order records", len(records))

	body, orderCount, err := e.transformer.Transform(req, records)
	if err != nil {
		log.Errorf("transform failed: %v", err)
		e.fail(id, errorKind(err, "transform"), err)
		return
	}
	log.Infof("built export payload: %d orders, %d bytes", orderCount, len(body))

	attempts := 0
	if req.Delivery.Mode == domain.DeliveryModeSkip {
		log.Infof("delivery skipped by request")
	} else {
		attempts, err = e.deliverer.Deliver(ctx, req.Delivery.URL, body, func(attempt int) {
			log.Infof("delivery attempt %d", attempt)
		})
		if err != nil {
			// Data was fetched and transformed, but the caller never got
			// it. Report overall failure so the whole task can be retried
			// safely.
			log.Errorf("delivery failed after %d attempt(s): %v", attempts, err)
			e.fail(id, errorKind(err, "delivery"), err)
			return
		}
		log.Infof("payload delivered after %d attempt(s)", attempts)
	}

	log.Infof("export succeeded")
	result := &Result{
		RecordCount:      orderCount,
		PayloadBytes:     len(body),
		DeliveryAttempts: attempts,
	}
	if err := e.store.Transition(id, StateSucceeded, Outcome{Result: result}); err != nil {
		e.logger.Error("task transition to succeeded rejected",
			"task_id", id,
			"error", err)
	}
}

func (e *Executor) fail(id uuid.UUID, kind string, cause error) {
	// The message is polled back out by clients, so it gets the same
	// credential redaction as log lines.
	outcome := Outcome{Error: &Error{Kind: kind, Message: redact.Error(cause)}}
	if err := e.store.Transition(id, StateFailed, outcome); err != nil {
		e.logger.Error("task transition to failed rejected",
			"task_id", id,
			"error", err)
	}
}
