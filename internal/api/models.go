package api

import (
	"encoding/json"
	"time"

	"github.com/fynch/toast-export-api/internal/task"
)

// CreateExportRequest is the payload for creating a new export task. Webhook
// is left raw because the wire form is either a boolean or a URL string;
// interpretation happens during submission validation.
type CreateExportRequest struct {
	StartDate     string          `json:"startDate"`
	EndDate       string          `json:"endDate"`
	LocationIndex int             `json:"locationIndex"`
	Webhook       json.RawMessage `json:"webhook,omitempty"`
}

// ExportParameters echoes the validated request back to the caller.
type ExportParameters struct {
	Kind          string `json:"kind"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	LocationIndex int    `json:"location_index"`
	DeliveryMode  string `json:"delivery_mode"`
}

// CreateExportResponse is returned when an export task has been accepted.
type CreateExportResponse struct {
	TaskID     string           `json:"task_id"`
	State      string           `json:"state"`
	Parameters ExportParameters `json:"parameters"`
}

// ExportStatusResponse describes the current state of one export task.
type ExportStatusResponse struct {
	TaskID        string       `json:"task_id"`
	State         string       `json:"state"`
	Kind          string       `json:"kind"`
	LocationIndex int          `json:"location_index"`
	StartDate     string       `json:"start_date"`
	EndDate       string       `json:"end_date"`
	DeliveryMode  string       `json:"delivery_mode"`
	CreatedAt     time.Time    `json:"created_at"`
	StartedAt     *time.Time   `json:"started_at,omitempty"`
	FinishedAt    *time.Time   `json:"finished_at,omitempty"`
	Result        *task.Result `json:"result,omitempty"`
	Error         *task.Error  `json:"error,omitempty"`
}

// LogLineResponse is one entry of a task's execution log.
type LogLineResponse struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}

// ExportLogsResponse carries the ordered execution log of one export task.
type ExportLogsResponse struct {
	TaskID string            `json:"task_id"`
	State  string            `json:"state"`
	Lines  []LogLineResponse `json:"lines"`
}

// HealthResponse reports process liveness and the task population by state.
type HealthResponse struct {
	Status string         `json:"status"`
	Tasks  map[string]int `json:"tasks"`
}
