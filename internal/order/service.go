package order

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/banner-pricing/internal/common"
	"github.com/noah-isme/banner-pricing/internal/pricing"
	"github.com/noah-isme/banner-pricing/internal/present"
	"github.com/noah-isme/banner-pricing/internal/quote"
)

// ConfirmationQueue schedules confirmation emails.
type ConfirmationQueue interface {
	EnqueueConfirmation(ctx context.Context, orderID uuid.UUID) error
}

// Service checks out orders and re-prices stored ones.
type Service struct {
	repo   Repository
	quotes *quote.Service
	queue  ConfirmationQueue
	logger zerolog.Logger
	now    func() time.Time
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Repository Repository
	Quotes     *quote.Service
	Queue      ConfirmationQueue
	Logger     zerolog.Logger
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		repo:   cfg.Repository,
		quotes: cfg.Quotes,
		queue:  cfg.Queue,
		logger: cfg.Logger.With().Str("component", "order").Logger(),
		now:    time.Now,
	}
}

// ItemInput is one banner configuration submitted at checkout.
type ItemInput struct {
	Title    string
	FileName string
	Line     pricing.LineItem
}

// CheckoutInput is a new order.
type CheckoutInput struct {
	Email        string
	CustomerName string
	Region       string
	Items        []ItemInput
}

// Checkout prices the items, stores the order with its pricing context and
// queues the confirmation email. A queue failure is logged; the order stands.
func (s *Service) Checkout(ctx context.Context, in CheckoutInput) (Order, present.QuoteView, error) {
	if len(in.Items) == 0 {
		return Order{}, present.QuoteView{}, common.BadRequest("EMPTY_ORDER", "an order needs at least one item")
	}
	pctx, err := s.quotes.Context(in.Region)
	if err != nil {
		return Order{}, present.QuoteView{}, err
	}
	lines := make([]pricing.LineItem, 0, len(in.Items))
	for _, it := range in.Items {
		lines = append(lines, it.Line)
	}
	taxRate := s.quotes.TaxRate()
	view, err := s.quotes.Price(ctx, quote.SurfaceAPI, pctx, taxRate, lines)
	if err != nil {
		return Order{}, present.QuoteView{}, err
	}

	id := uuid.New()
	o := Order{
		ID:             id,
		Number:         NumberFor(id),
		Email:          strings.TrimSpace(in.Email),
		CustomerName:   strings.TrimSpace(in.CustomerName),
		Region:         pctx.Region(),
		Flags:          pctx.Flags(),
		TaxRate:        taxRate,
		CatalogVersion: view.CatalogVersion,
		Subtotal:       pricing.Money(view.Totals.SubtotalCents),
		Tax:            pricing.Money(view.Totals.TaxCents),
		Total:          pricing.Money(view.Totals.TotalCents),
		CreatedAt:      s.now().UTC(),
		Items:          make([]Item, 0, len(in.Items)),
	}
	for i, it := range in.Items {
		o.Items = append(o.Items, Item{
			ID:       uuid.New(),
			Position: i,
			Title:    titleOr(it.Title, i),
			FileName: it.FileName,
			Width:    it.Line.Width,
			Height:   it.Line.Height,
			Quantity: it.Line.Quantity,
			Material: view.Items[i].Material,
			Options:  nonNil(it.Line.SelectedOptionIDs),
		})
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return Order{}, present.QuoteView{}, err
	}
	s.logger.Info().Str("order", o.Number).Int64("total_cents", int64(o.Total)).Str("catalog_version", o.CatalogVersion).Msg("order placed")

	if s.queue != nil {
		if err := s.queue.EnqueueConfirmation(ctx, o.ID); err != nil {
			s.logger.Warn().Err(err).Str("order", o.Number).Msg("confirmation enqueue failed")
		}
	}
	return o, withTitles(view, o), nil
}

// Reprice loads a stored order and prices it with the context, tax rate and
// catalog version captured at checkout. Totals that no longer match the
// stored ones are a warning on admin views and an error on the email.
func (s *Service) Reprice(ctx context.Context, surface string, id uuid.UUID) (Order, present.QuoteView, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return Order{}, present.QuoteView{}, err
	}
	view, err := s.quotes.PriceVersion(ctx, surface, o.CatalogVersion, o.Context(), o.TaxRate, o.LineItems())
	if err != nil {
		return Order{}, present.QuoteView{}, err
	}
	if drifted(o, view) {
		evt := s.logger.Warn()
		if surface == quote.SurfaceEmail {
			evt = s.logger.Error()
		}
		evt.Str("order", o.Number).
			Str("surface", surface).
			Str("catalog_version", o.CatalogVersion).
			Str("repriced_catalog_version", view.CatalogVersion).
			Int64("stored_total_cents", int64(o.Total)).
			Int64("repriced_total_cents", view.Totals.TotalCents).
			Msg("repriced total differs from checkout")
		if surface == quote.SurfaceEmail {
			return Order{}, present.QuoteView{}, common.NewAppError("PRICE_DRIFT",
				"repriced order no longer matches the amount charged", http.StatusConflict, nil).
				WithDetails(map[string]any{
					"stored_total_cents":   int64(o.Total),
					"repriced_total_cents": view.Totals.TotalCents,
				})
		}
	}
	return o, withTitles(view, o), nil
}

func drifted(o Order, view present.QuoteView) bool {
	return pricing.Money(view.Totals.SubtotalCents) != o.Subtotal ||
		pricing.Money(view.Totals.TaxCents) != o.Tax ||
		pricing.Money(view.Totals.TotalCents) != o.Total
}

// Get loads one order.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Order, error) {
	o, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Order{}, common.NotFound("order not found")
	}
	return o, err
}

// List returns a page of order summaries, newest first.
func (s *Service) List(ctx context.Context, page, perPage int) ([]Summary, common.Pagination, error) {
	rows, err := s.repo.List(ctx, perPage+1, common.Offset(page, perPage))
	if err != nil {
		return nil, common.Pagination{}, err
	}
	p := common.Pagination{Page: page, PerPage: perPage}
	if len(rows) > perPage {
		rows, p.HasMore = rows[:perPage], true
	}
	return rows, p, nil
}

// ResendConfirmation queues another confirmation email for an existing order.
func (s *Service) ResendConfirmation(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if s.queue == nil {
		return common.NewAppError("QUEUE_UNAVAILABLE", "confirmation queue not configured", http.StatusServiceUnavailable, nil)
	}
	return s.queue.EnqueueConfirmation(ctx, id)
}

func withTitles(view present.QuoteView, o Order) present.QuoteView {
	for i := range view.Items {
		if i < len(o.Items) {
			view.Items[i].Title = o.Items[i].Title
		}
	}
	return view
}

func titleOr(title string, index int) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	return "Banner " + strconv.Itoa(index+1)
}
