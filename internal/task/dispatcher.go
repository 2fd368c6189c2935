package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/fynch/toast-export-api/internal/domain"
)

// Submission carries the raw parameters of a new export request, before
// validation. Webhook holds the wire form of the three-way delivery
// parameter (boolean or URL string). An empty Kind means the orders report.
type Submission struct {
	Kind          domain.ExportKind
	StartDate     string
	EndDate       string
	LocationIndex int
	Webhook       json.RawMessage
}

// Dispatcher validates export submissions, allocates the task record, and
// schedules exactly one executor run per accepted task. Invalid submissions
// fail fast and never create a record.
type Dispatcher struct {
	store             *Store
	executor          *Executor
	locations         map[int]string
	defaultWebhookURL string
	logger            *slog.Logger

	// schedule hands a run off to an independently scheduled execution
	// unit. The default spawns a goroutine; tests substitute a synchronous
	// scheduler.
	schedule func(run func())
}

// NewDispatcher creates a dispatcher. locations maps a location index to the
// restaurant GUID used against the upstream API; defaultWebhookURL may be
// empty if no default delivery target is configured.
func NewDispatcher(
	store *Store,
	executor *Executor,
	locations map[int]string,
	defaultWebhookURL string,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		store:             store,
		executor:          executor,
		locations:         locations,
		defaultWebhookURL: defaultWebhookURL,
		logger:            logger,
		schedule:          func(run func()) { go run() },
	}
}

// SetScheduler replaces the execution-unit scheduler. Intended for tests
// that need executor runs to happen synchronously.
func (d *Dispatcher) SetScheduler(schedule func(run func())) {
	d.schedule = schedule
}

// Submit validates the submission, creates the task record in the queued
// state, and schedules its executor run. It returns the new task id without
// waiting for execution to start.
func (d *Dispatcher) Submit(sub Submission) (uuid.UUID, error) {
	req, err := d.validate(sub)
	if err != nil {
		return uuid.Nil, err
	}

	id := d.store.Create(*req)
	d.logger.Info("export task accepted",
		"task_id", id,
		"kind", req.Kind,
		"start_date", sub.StartDate,
		"end_date", sub.EndDate,
		"location_index", req.LocationIndex,
		"delivery_mode", req.Delivery.Mode)

	d.schedule(func() {
		d.executor.Run(context.Background(), id)
	})
	return id, nil
}

// validate resolves the submission into an immutable ExportRequest. All
// three delivery modes are resolved here, including the default URL lookup,
// so the executor never consults configuration.
func (d *Dispatcher) validate(sub Submission) (*domain.ExportRequest, error) {
	kind := sub.Kind
	if kind == "" {
		kind = domain.ExportKindOrders
	}
	if !kind.Valid() {
		return nil, &domain.ValidationError{
			Field:   "kind",
			Message: fmt.Sprintf("unknown export kind %q", kind),
		}
	}

	rng, err := domain.NewDateRange(sub.StartDate, sub.EndDate)
	if err != nil {
		return nil, err
	}

	guid, ok := d.locations[sub.LocationIndex]
	if !ok {
		return nil, &domain.ValidationError{
			Field:   "locationIndex",
			Message: fmt.Sprintf("no restaurant configured for location %d", sub.LocationIndex),
		}
	}

	target, err := domain.ParseWebhookField(sub.Webhook)
	if err != nil {
		return nil, err
	}
	if target.Mode == domain.DeliveryModeDefault {
		if d.defaultWebhookURL == "" {
			return nil, &domain.ValidationError{
				Field:   "webhook",
				Message: "no default webhook URL configured",
			}
		}
		target.URL = d.defaultWebhookURL
	}

	return &domain.ExportRequest{
		Kind:           kind,
		Range:          rng,
		LocationIndex:  sub.LocationIndex,
		RestaurantGUID: guid,
		Delivery:       target,
	}, nil
}
