// Package jobs defines background tasks and the Asynq worker that runs them.
package jobs

import (
	"context"
	"encoding/json"

	"log/slog"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeBookingAssigned notifies an employee about a new assignment.
	TaskTypeBookingAssigned = "booking:assigned"
)

// BookingAssignedPayload carries the assignment details to the worker.
type BookingAssignedPayload struct {
	BookingRef string `json:"booking_ref"`
	EmployeeID int64  `json:"employee_id"`
}

// NewBookingAssignedTask constructs an Asynq task for an assignment.
func NewBookingAssignedTask(payload BookingAssignedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeBookingAssigned, data), nil
}

// BookingAssignedHandler processes TaskTypeBookingAssigned tasks.
type BookingAssignedHandler struct {
	logger *slog.Logger
}

// NewBookingAssignedHandler constructs the handler.
func NewBookingAssignedHandler(logger *slog.Logger) *BookingAssignedHandler {
	return &BookingAssignedHandler{logger: logger}
}

// ProcessTask handles one assignment notification. Delivery is a log line
// for now; a push or mail channel plugs in here.
func (h *BookingAssignedHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload BookingAssignedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	h.logger.Info("booking assigned",
		slog.String("booking_ref", payload.BookingRef),
		slog.Int64("employee_id", payload.EmployeeID))
	return nil
}
