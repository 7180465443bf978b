package quote

import (
	"net/http"

	validator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/banner-pricing/internal/common"
	"github.com/noah-isme/banner-pricing/internal/pricing"
)

const maxQuoteBody = 256 << 10

// ItemRequest is one banner configuration in a quote request. Dimensions are
// inches and may be sent as JSON numbers or strings.
type ItemRequest struct {
	Width    decimal.Decimal `json:"width"`
	Height   decimal.Decimal `json:"height"`
	Quantity int             `json:"quantity" validate:"lte=100000"`
	Material string          `json:"material,omitempty" validate:"omitempty,max=64"`
	Options  []string        `json:"options,omitempty" validate:"max=20,dive,required,max=64"`
}

// Request is the body of POST /api/v1/quotes.
type Request struct {
	Region string        `json:"region,omitempty" validate:"omitempty,alphanum,max=16"`
	Items  []ItemRequest `json:"items" validate:"max=100,dive"`
}

// SingleRequest is the body of POST /api/v1/quotes/item.
type SingleRequest struct {
	Region string      `json:"region,omitempty" validate:"omitempty,alphanum,max=16"`
	Item   ItemRequest `json:"item"`
}

// LineItem converts the request into a pricing input.
func (r ItemRequest) LineItem() pricing.LineItem {
	return pricing.LineItem{
		Width:             r.Width,
		Height:            r.Height,
		Quantity:          r.Quantity,
		Material:          r.Material,
		SelectedOptionIDs: r.Options,
	}
}

// Handler exposes the checkout quote endpoints.
type Handler struct {
	service  *Service
	validate *validator.Validate
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service   *Service
	Validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	v := cfg.Validator
	if v == nil {
		v = common.NewValidator()
	}
	return &Handler{service: cfg.Service, validate: v}
}

// Quote handles POST /api/v1/quotes.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := h.decode(w, r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	items := make([]pricing.LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, it.LineItem())
	}
	view, err := h.service.Quote(r.Context(), req.Region, items)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// Item handles POST /api/v1/quotes/item.
func (h *Handler) Item(w http.ResponseWriter, r *http.Request) {
	var req SingleRequest
	if err := h.decode(w, r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	view, err := h.service.Item(r.Context(), req.Region, req.Item.LineItem())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	return common.DecodeValid(http.MaxBytesReader(w, r.Body, maxQuoteBody), h.validate, dst)
}
