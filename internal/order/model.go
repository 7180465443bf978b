// Package order stores checked-out banner orders and re-prices them for the
// admin views and the confirmation email.
package order

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/banner-pricing/internal/pricing"
)

// Item is one stored banner configuration.
type Item struct {
	ID       uuid.UUID       `json:"id"`
	Position int             `json:"position"`
	Title    string          `json:"title"`
	FileName string          `json:"file_name,omitempty"`
	Width    decimal.Decimal `json:"width_in"`
	Height   decimal.Decimal `json:"height_in"`
	Quantity int             `json:"quantity"`
	Material string          `json:"material,omitempty"`
	Options  []string        `json:"options"`
}

// Order is a checked-out order together with the pricing context snapshot
// taken at checkout. The stored totals are what the customer was shown.
type Order struct {
	ID             uuid.UUID       `json:"id"`
	Number         string          `json:"number"`
	Email          string          `json:"email"`
	CustomerName   string          `json:"customer_name"`
	Region         string          `json:"region"`
	Flags          []string        `json:"flags"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
	CatalogVersion string          `json:"catalog_version"`
	Subtotal       pricing.Money   `json:"subtotal_cents"`
	Tax            pricing.Money   `json:"tax_cents"`
	Total          pricing.Money   `json:"total_cents"`
	CreatedAt      time.Time       `json:"created_at"`
	Items          []Item          `json:"items"`
}

// Summary is the list view of an order.
type Summary struct {
	ID             uuid.UUID     `json:"id"`
	Number         string        `json:"number"`
	Email          string        `json:"email"`
	CustomerName   string        `json:"customer_name"`
	Region         string        `json:"region"`
	CatalogVersion string        `json:"catalog_version"`
	Total          pricing.Money `json:"total_cents"`
	CreatedAt      time.Time     `json:"created_at"`
}

// NumberFor derives the customer-facing order number from its id.
func NumberFor(id uuid.UUID) string {
	return "BNR-" + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:10])
}

// Context rebuilds the pricing context captured at checkout.
func (o Order) Context() pricing.Context {
	return pricing.NewContext(o.Region, o.Flags...)
}

// LineItems converts the stored items into pricing inputs, in position order.
func (o Order) LineItems() []pricing.LineItem {
	items := make([]pricing.LineItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, pricing.LineItem{
			Width:             it.Width,
			Height:            it.Height,
			Quantity:          it.Quantity,
			Material:          it.Material,
			SelectedOptionIDs: it.Options,
		})
	}
	return items
}

// Totals returns the totals stored at checkout.
func (o Order) Totals() pricing.OrderTotals {
	return pricing.OrderTotals{Subtotal: o.Subtotal, Tax: o.Tax, Total: o.Total}
}

// Summary returns the list view of o.
func (o Order) Summary() Summary {
	return Summary{
		ID:             o.ID,
		Number:         o.Number,
		Email:          o.Email,
		CustomerName:   o.CustomerName,
		Region:         o.Region,
		CatalogVersion: o.CatalogVersion,
		Total:          o.Total,
		CreatedAt:      o.CreatedAt,
	}
}
