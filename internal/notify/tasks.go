package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/banner-pricing/internal/common"
	"github.com/noah-isme/banner-pricing/internal/lock"
	"github.com/noah-isme/banner-pricing/internal/obs"
	"github.com/noah-isme/banner-pricing/internal/order"
	"github.com/noah-isme/banner-pricing/internal/present"
	"github.com/noah-isme/banner-pricing/internal/pricing"
	"github.com/noah-isme/banner-pricing/internal/quote"
)

// TaskOrderConfirmation is the asynq task type for confirmation emails.
const TaskOrderConfirmation = "email:order_confirmation"

// QueueEmail is the asynq queue confirmation tasks are sent to.
const QueueEmail = "email"

type confirmationPayload struct {
	OrderID uuid.UUID `json:"order_id"`
}

type taskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer schedules confirmation tasks. It satisfies order.ConfirmationQueue.
type Enqueuer struct {
	Client   taskClient
	MaxRetry int
	Timeout  time.Duration
}

// EnqueueConfirmation queues a confirmation email for orderID.
func (e Enqueuer) EnqueueConfirmation(ctx context.Context, orderID uuid.UUID) error {
	if e.Client == nil {
		return errors.New("notify: task client not configured")
	}
	payload, err := json.Marshal(confirmationPayload{OrderID: orderID})
	if err != nil {
		return err
	}
	opts := []asynq.Option{asynq.Queue(QueueEmail)}
	if e.MaxRetry > 0 {
		opts = append(opts, asynq.MaxRetry(e.MaxRetry))
	}
	if e.Timeout > 0 {
		opts = append(opts, asynq.Timeout(e.Timeout))
	}
	if _, err := e.Client.EnqueueContext(ctx, asynq.NewTask(TaskOrderConfirmation, payload), opts...); err != nil {
		return fmt.Errorf("enqueue confirmation %s: %w", orderID, err)
	}
	return nil
}

// OrderPricer re-prices a stored order on behalf of a surface.
type OrderPricer interface {
	Reprice(ctx context.Context, surface string, id uuid.UUID) (order.Order, present.QuoteView, error)
}

// ConfirmationHandler processes TaskOrderConfirmation.
type ConfirmationHandler struct {
	Orders   OrderPricer
	Renderer *Renderer
	Sender   Sender
	Locker   lock.Locker
	LockTTL  time.Duration
	Logger   zerolog.Logger
}

// Register mounts the handler on mux.
func (h *ConfirmationHandler) Register(mux *asynq.ServeMux) {
	mux.Handle(TaskOrderConfirmation, h)
}

// ProcessTask implements asynq.Handler. Failures that a retry cannot fix are
// wrapped with asynq.SkipRetry.
func (h *ConfirmationHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p confirmationPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil || p.OrderID == uuid.Nil {
		obs.CountConfirmationEmail("skipped")
		return fmt.Errorf("confirmation payload %q: %w", t.Payload(), asynq.SkipRetry)
	}
	logger := h.Logger.With().Str("order_id", p.OrderID.String()).Logger()

	err := h.Locker.WithLock(ctx, lock.Key("confirmation", p.OrderID.String()), h.LockTTL, func(ctx context.Context) error {
		return h.send(ctx, p.OrderID, logger)
	})
	switch {
	case err == nil:
		obs.CountConfirmationEmail("sent")
		return nil
	case permanent(err):
		obs.CountConfirmationEmail("skipped")
		logger.Error().Err(err).Msg("confirmation email dropped")
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	default:
		obs.CountConfirmationEmail("failed")
		logger.Warn().Err(err).Msg("confirmation email failed")
		return err
	}
}

func (h *ConfirmationHandler) send(ctx context.Context, id uuid.UUID, logger zerolog.Logger) error {
	o, view, err := h.Orders.Reprice(ctx, quote.SurfaceEmail, id)
	if err != nil {
		return err
	}
	msg, err := h.Renderer.Confirmation(o, view)
	if err != nil {
		return err
	}
	if err := h.Sender.Send(ctx, msg); err != nil {
		return err
	}
	logger.Info().Str("order", o.Number).Int64("total_cents", view.Totals.TotalCents).Msg("confirmation email sent")
	return nil
}

// permanent reports errors a retry would repeat: a missing order, a stored
// order the catalog can no longer price or now prices differently, or a
// provider rejection.
func permanent(err error) bool {
	var appErr *common.AppError
	if errors.As(err, &appErr) && appErr.HTTPStatus < 500 {
		return true
	}
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return rejected.StatusCode < 500 && rejected.StatusCode != 429
	}
	return pricing.IsInvalidLineItem(err)
}
