package order

import (
	"net/http"

	validator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/banner-pricing/internal/common"
	"github.com/noah-isme/banner-pricing/internal/pricing"
)

const maxCheckoutBody = 256 << 10

// CheckoutItem is one banner in a checkout request.
type CheckoutItem struct {
	Title    string          `json:"title,omitempty" validate:"max=120"`
	FileName string          `json:"file_name,omitempty" validate:"max=255"`
	Width    decimal.Decimal `json:"width"`
	Height   decimal.Decimal `json:"height"`
	Quantity int             `json:"quantity" validate:"lte=100000"`
	Material string          `json:"material,omitempty" validate:"omitempty,max=64"`
	Options  []string        `json:"options,omitempty" validate:"max=20,dive,required,max=64"`
}

// CheckoutRequest is the body of POST /api/v1/orders.
type CheckoutRequest struct {
	Email        string         `json:"email" validate:"required,email,max=254"`
	CustomerName string         `json:"customer_name" validate:"required,max=120"`
	Region       string         `json:"region,omitempty" validate:"omitempty,alphanum,max=16"`
	Items        []CheckoutItem `json:"items" validate:"required,min=1,max=100,dive"`
}

// Handler exposes checkout.
type Handler struct {
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(service *Service, v *validator.Validate) *Handler {
	if v == nil {
		v = common.NewValidator()
	}
	return &Handler{service: service, validate: v}
}

// Checkout handles POST /api/v1/orders.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := common.DecodeValid(http.MaxBytesReader(w, r.Body, maxCheckoutBody), h.validate, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	in := CheckoutInput{Email: req.Email, CustomerName: req.CustomerName, Region: req.Region}
	for _, it := range req.Items {
		in.Items = append(in.Items, ItemInput{
			Title:    it.Title,
			FileName: it.FileName,
			Line: pricing.LineItem{
				Width:             it.Width,
				Height:            it.Height,
				Quantity:          it.Quantity,
				Material:          it.Material,
				SelectedOptionIDs: it.Options,
			},
		})
	}
	o, view, err := h.service.Checkout(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	w.Header().Set("Location", "/api/v1/admin/orders/"+o.ID.String()+"/breakdown")
	common.JSON(w, http.StatusCreated, map[string]any{
		"data": map[string]any{
			"id":     o.ID,
			"number": o.Number,
			"quote":  view,
		},
	})
}
