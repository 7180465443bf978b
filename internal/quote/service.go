// Package quote is the single pricing entry point used by the checkout API,
// the admin order views and the confirmation email worker.
package quote

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/banner-pricing/internal/catalog"
	"github.com/noah-isme/banner-pricing/internal/common"
	"github.com/noah-isme/banner-pricing/internal/flags"
	"github.com/noah-isme/banner-pricing/internal/obs"
	"github.com/noah-isme/banner-pricing/internal/present"
	"github.com/noah-isme/banner-pricing/internal/pricing"
)

// Surfaces label where a quote was requested from.
const (
	SurfaceAPI   = "api"
	SurfaceAdmin = "admin"
	SurfaceEmail = "email"
	SurfaceCLI   = "cli"
)

// ErrCatalogUnavailable is returned before the first catalog has loaded.
var ErrCatalogUnavailable = errors.New("quote: catalog unavailable")

// VersionLoader compiles a previously published catalog version.
type VersionLoader interface {
	LoadVersion(ctx context.Context, version string) (*pricing.Catalog, error)
}

// Service prices line items against the current catalog.
type Service struct {
	holder    *catalog.Holder
	versions  VersionLoader
	flags     *flags.Provider
	taxRate   decimal.Decimal
	minimum   pricing.Money
	formatter *present.Formatter
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Holder       *catalog.Holder
	Versions     VersionLoader
	Flags        *flags.Provider
	TaxRate      decimal.Decimal
	MinimumOrder pricing.Money
	Formatter    *present.Formatter
}

// NewService validates the tax rate and constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := pricing.ValidateTaxRate(cfg.TaxRate); err != nil {
		return nil, err
	}
	if cfg.Holder == nil || cfg.Flags == nil || cfg.Formatter == nil {
		return nil, errors.New("quote: holder, flags and formatter are required")
	}
	return &Service{
		holder:    cfg.Holder,
		versions:  cfg.Versions,
		flags:     cfg.Flags,
		taxRate:   cfg.TaxRate,
		minimum:   cfg.MinimumOrder,
		formatter: cfg.Formatter,
	}, nil
}

// TaxRate is the rate applied to new quotes.
func (s *Service) TaxRate() decimal.Decimal { return s.taxRate }

// Context resolves a client-selected region into a pricing context.
func (s *Service) Context(region string) (pricing.Context, error) {
	pctx, err := s.flags.Snapshot(region)
	if err != nil {
		return pricing.Context{}, common.BadRequest("UNKNOWN_REGION", "region is not served")
	}
	return pctx, nil
}

// Quote prices a new order under the configured tax rate.
func (s *Service) Quote(ctx context.Context, region string, items []pricing.LineItem) (present.QuoteView, error) {
	pctx, err := s.Context(region)
	if err != nil {
		return present.QuoteView{}, err
	}
	return s.Price(ctx, SurfaceAPI, pctx, s.taxRate, items)
}

// Price is the shared computation path. Stored orders pass the context and tax
// rate captured at checkout so re-rendering reproduces the original numbers.
func (s *Service) Price(ctx context.Context, surface string, pctx pricing.Context, taxRate decimal.Decimal, items []pricing.LineItem) (present.QuoteView, error) {
	return s.PriceVersion(ctx, surface, "", pctx, taxRate, items)
}

// PriceVersion prices against the catalog published under version. An empty
// version, or one no longer published anywhere, prices against the current
// catalog. Any other failure to load the version is returned.
func (s *Service) PriceVersion(ctx context.Context, surface, version string, pctx pricing.Context, taxRate decimal.Decimal, items []pricing.LineItem) (present.QuoteView, error) {
	ctx, span := otel.Tracer("quote").Start(ctx, "quote.Price")
	defer span.End()
	span.SetAttributes(
		attribute.String("pricing.surface", surface),
		attribute.String("pricing.region", pctx.Region()),
		attribute.Int("pricing.items", len(items)),
	)

	cat, err := s.catalogFor(ctx, version)
	if err != nil {
		obs.CountQuote(surface, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "catalog version unavailable")
		return present.QuoteView{}, err
	}
	if cat == nil {
		obs.CountQuote(surface, ErrCatalogUnavailable)
		return present.QuoteView{}, mapError(ErrCatalogUnavailable)
	}
	span.SetAttributes(attribute.String("pricing.catalog_version", cat.Version()))
	set := cat.Resolve(pctx)
	q, err := pricing.Quote(items, set, taxRate)
	obs.CountQuote(surface, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "pricing failed")
		return present.QuoteView{}, mapError(err)
	}
	span.SetAttributes(attribute.Int64("pricing.total_cents", int64(q.Totals.Total)))
	return s.formatter.Quote(q, items, set, pricing.CheckMinimum(pctx, q.Totals, s.minimum)), nil
}

func (s *Service) catalogFor(ctx context.Context, version string) (*pricing.Catalog, error) {
	current := s.holder.Current()
	if version == "" || s.versions == nil || (current != nil && current.Version() == version) {
		return current, nil
	}
	cat, err := s.versions.LoadVersion(ctx, version)
	switch {
	case err == nil:
		return cat, nil
	case errors.Is(err, catalog.ErrNotFound):
		trace.SpanFromContext(ctx).AddEvent("catalog version not published, using current", trace.WithAttributes(
			attribute.String("pricing.catalog_version", version),
		))
		return current, nil
	default:
		return nil, fmt.Errorf("load catalog %s: %w", version, err)
	}
}

// Item prices a single line item for the configurator preview.
func (s *Service) Item(ctx context.Context, region string, item pricing.LineItem) (present.ItemView, error) {
	view, err := s.Quote(ctx, region, []pricing.LineItem{item})
	if err != nil {
		return present.ItemView{}, err
	}
	return view.Items[0], nil
}

// mapError turns pricing errors into API errors. Item errors keep their index
// and field so the client can mark the offending line.
func mapError(err error) error {
	var itemErr *pricing.InvalidLineItemError
	switch {
	case errors.As(err, &itemErr):
		return common.NewAppError("INVALID_LINE_ITEM", itemErr.Error(), http.StatusUnprocessableEntity, err).
			WithDetails(map[string]any{"index": itemErr.Index, "field": itemErr.Field, "reason": itemErr.Reason})
	case pricing.IsConfiguration(err):
		return common.NewAppError("PRICING_CONFIGURATION", "pricing is misconfigured", http.StatusInternalServerError, err)
	case errors.Is(err, ErrCatalogUnavailable):
		return common.NewAppError("CATALOG_UNAVAILABLE", "pricing catalog not loaded", http.StatusServiceUnavailable, err)
	default:
		return err
	}
}
