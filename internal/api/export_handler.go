package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fynch/toast-export-api/internal/api/shared"
	"github.com/fynch/toast-export-api/internal/domain"
	"github.com/fynch/toast-export-api/internal/task"
)

// ExportHandler serves the export task endpoints: submission, status polling,
// and log retrieval.
type ExportHandler struct {
	dispatcher *task.Dispatcher
	store      *task.Store
	logger     *slog.Logger
}

// NewExportHandler creates a new ExportHandler with the given dependencies.
func NewExportHandler(
	dispatcher *task.Dispatcher,
	store *task.Store,
	logger *slog.Logger,
) *ExportHandler {
	return &ExportHandler{
		dispatcher: dispatcher,
		store:      store,
		logger:     logger.With(slog.String("component", "export_handler")),
	}
}

// CreateExport handles POST /api/exports. It validates the request, enqueues
// the orders export task, and responds 202 Accepted with the task id.
// Execution happens in the background; callers poll the status endpoint.
func (h *ExportHandler) CreateExport(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, domain.ExportKindOrders)
}

// CreateTipsExport handles POST /api/tips. Same task machinery as the orders
// export, producing the per-server tips report instead.
func (h *ExportHandler) CreateTipsExport(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, domain.ExportKindTips)
}

func (h *ExportHandler) create(w http.ResponseWriter, r *http.Request, kind domain.ExportKind) {
	log := h.logger.With(slog.String("trace_id", shared.GetTraceID(r.Context())))

	var req CreateExportRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid request format", slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	// An omitted locationIndex means the first configured location.
	if req.LocationIndex == 0 {
		req.LocationIndex = 1
	}

	id, err := h.dispatcher.Submit(task.Submission{
		Kind:          kind,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		LocationIndex: req.LocationIndex,
		Webhook:       req.Webhook,
	})
	if err != nil {
		statusCode := MapErrorToStatusCode(err)
		safeMessage := GetSafeErrorMessage(err)
		shared.RespondWithErrorAndLog(w, r, statusCode, safeMessage, err)
		return
	}

	resp := CreateExportResponse{
		TaskID: id.String(),
		State:  string(task.StateQueued),
	}
	// Echo the validated parameters. The record may already be past Queued
	// (or even terminal) by now; the request portion is immutable either way.
	if rec, err := h.store.Get(id); err == nil {
		resp.Parameters = ExportParameters{
			Kind:          string(rec.Request.Kind),
			StartDate:     rec.Request.Range.Start.Format(domain.DateLayout),
			EndDate:       rec.Request.Range.End.Format(domain.DateLayout),
			LocationIndex: rec.Request.LocationIndex,
			DeliveryMode:  string(rec.Request.Delivery.Mode),
		}
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, resp)
}

// GetExport handles GET /api/exports/{id}. It returns the current status
// snapshot of the task, including the terminal result or error once the task
// has finished.
func (h *ExportHandler) GetExport(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.recordFromRequest(w, r)
	if !ok {
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, statusResponse(rec))
}

// GetExportLogs handles GET /api/exports/{id}/logs. It returns the task's
// execution log in append order.
func (h *ExportHandler) GetExportLogs(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.recordFromRequest(w, r)
	if !ok {
		return
	}

	lines := make([]LogLineResponse, 0, len(rec.LogLines))
	for _, l := range rec.LogLines {
		lines = append(lines, LogLineResponse{
			Time:    l.Time,
			Level:   l.Level.String(),
			Message: l.Message,
		})
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ExportLogsResponse{
		TaskID: rec.ID.String(),
		State:  string(rec.State),
		Lines:  lines,
	})
}

// recordFromRequest parses the id path parameter and fetches the task
// snapshot, writing the error response itself when either step fails.
func (h *ExportHandler) recordFromRequest(
	w http.ResponseWriter,
	r *http.Request,
) (task.Record, bool) {
	idParam := chi.URLParam(r, "id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return task.Record{}, false
	}

	rec, err := h.store.Get(id)
	if err != nil {
		statusCode := MapErrorToStatusCode(err)
		safeMessage := GetSafeErrorMessage(err)
		shared.RespondWithErrorAndLog(w, r, statusCode, safeMessage, err)
		return task.Record{}, false
	}
	return rec, true
}

func statusResponse(rec task.Record) ExportStatusResponse {
	return ExportStatusResponse{
		TaskID:        rec.ID.String(),
		State:         string(rec.State),
		Kind:          string(rec.Request.Kind),
		LocationIndex: rec.Request.LocationIndex,
		StartDate:     rec.Request.Range.Start.Format(domain.DateLayout),
		EndDate:       rec.Request.Range.End.Format(domain.DateLayout),
		DeliveryMode:  string(rec.Request.Delivery.Mode),
		CreatedAt:     rec.CreatedAt,
		StartedAt:     rec.StartedAt,
		FinishedAt:    rec.FinishedAt,
		Result:        rec.Result,
		Error:         rec.Error,
	}
}
