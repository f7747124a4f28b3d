package workflows

import (
	"context"
	"errors"
	"fmt"

	"github.com/cx-tal-miterani/fare-booking/internal/activities"
	"github.com/cx-tal-miterani/fare-booking/internal/database"
	"github.com/cx-tal-miterani/fare-booking/internal/models"
	"github.com/cx-tal-miterani/fare-booking/internal/provider"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
)

// WorkflowID returns the ticketing workflow id of a booking. One id per
// booking keeps a single writer for its ticketing transitions.
func WorkflowID(bookingID string) string {
	return "ticketing-" + bookingID
}

// TemporalTicketer runs ticketing as a Temporal workflow and waits for it
type TemporalTicketer struct {
	client    client.Client
	taskQueue string
}

func NewTemporalTicketer(c client.Client, taskQueue string) *TemporalTicketer {
	return &TemporalTicketer{client: c, taskQueue: taskQueue}
}

func (t *TemporalTicketer) Ticket(ctx context.Context, in models.TicketingInput) (*models.TicketingResult, error) {
	opts := client.StartWorkflowOptions{
		ID:                                       WorkflowID(in.BookingID),
		TaskQueue:                                t.taskQueue,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}
	run, err := t.client.ExecuteWorkflow(ctx, opts, TicketingWorkflow, in)
	if err != nil {
		return nil, fmt.Errorf("failed to start ticketing workflow: %w", err)
	}

	var res models.TicketingResult
	if err := run.Get(ctx, &res); err != nil {
		return nil, fromWorkflowError(err)
	}
	return &res, nil
}

// fromWorkflowError turns activity application errors back into the
// errors the booking service understands.
func fromWorkflowError(err error) error {
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		return err
	}
	switch appErr.Type() {
	case activities.ErrTypeProvider:
		pe := &provider.Error{Err: errors.New(appErr.Message())}
		var d activities.ProviderErrorDetails
		if appErr.HasDetails() && appErr.Details(&d) == nil {
			pe.Op, pe.StatusCode, pe.Body = d.Op, d.StatusCode, d.Body
			pe.Err = nil
		}
		return pe
	case activities.ErrTypeNotReserved:
		return fmt.Errorf("%w: %s", activities.ErrNotReserved, appErr.Message())
	case activities.ErrTypeVersionConflict:
		return fmt.Errorf("%w: %s", database.ErrVersionConflict, appErr.Message())
	}
	return err
}
