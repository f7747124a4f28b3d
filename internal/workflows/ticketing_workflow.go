package workflows

import (
	"time"

	"github.com/cx-tal-miterani/fare-booking/internal/activities"
	"github.com/cx-tal-miterani/fare-booking/internal/models"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	// ProviderCallTimeout bounds one provider round-trip inside an activity
	ProviderCallTimeout = 5 * time.Minute
)

// TicketingWorkflow recalculates and then confirms one booking's order.
// Money is involved, so neither step is retried automatically.
func TicketingWorkflow(ctx workflow.Context, input models.TicketingInput) (*models.TicketingResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Ticketing workflow started", "bookingId", input.BookingID)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: ProviderCallTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})

	var rec activities.RecalcResult
	if err := workflow.ExecuteActivity(ctx, activities.RecalcActivityName, input.BookingID).Get(ctx, &rec); err != nil {
		logger.Error("Recalculation failed", "bookingId", input.BookingID, "error", err)
		return nil, err
	}
	if rec.Changed {
		logger.Warn("Order total changed", "bookingId", input.BookingID, "previous", rec.PreviousAmount, "amount", rec.Amount)
	}

	var conf activities.ConfirmResult
	if err := workflow.ExecuteActivity(ctx, activities.ConfirmActivityName, input).Get(ctx, &conf); err != nil {
		logger.Error("Confirmation failed", "bookingId", input.BookingID, "error", err)
		return nil, err
	}

	logger.Info("Ticketing workflow completed", "bookingId", input.BookingID, "tickets", len(conf.TicketNumbers))
	return activities.TicketingResult(&rec, &conf), nil
}
