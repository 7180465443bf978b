package present

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/banner-pricing/internal/pricing"
)

// LineView is one itemized cost component.
type LineView struct {
	Kind            string `json:"kind"`
	ID              string `json:"id"`
	Label           string `json:"label"`
	Quantity        int    `json:"quantity"`
	UnitAmountCents int64  `json:"unit_amount_cents"`
	AmountCents     int64  `json:"amount_cents"`
	UnitAmount      string `json:"unit_amount"`
	Amount          string `json:"amount"`
}

// ItemView is one line item with its breakdown.
type ItemView struct {
	Index          int        `json:"index"`
	Title          string     `json:"title,omitempty"`
	Width          string     `json:"width_in"`
	Height         string     `json:"height_in"`
	Material       string     `json:"material"`
	Quantity       int        `json:"quantity"`
	Lines          []LineView `json:"lines"`
	UnitPriceCents int64      `json:"unit_price_cents"`
	LineTotalCents int64      `json:"line_total_cents"`
	UnitPrice      string     `json:"unit_price"`
	LineTotal      string     `json:"line_total"`
}

// TotalsView is the order footer.
type TotalsView struct {
	SubtotalCents int64  `json:"subtotal_cents"`
	TaxCents      int64  `json:"tax_cents"`
	TotalCents    int64  `json:"total_cents"`
	Subtotal      string `json:"subtotal"`
	Tax           string `json:"tax"`
	Total         string `json:"total"`
	TaxRate       string `json:"tax_rate"`
	Currency      string `json:"currency"`
}

// MinimumView reports the minimum order check.
type MinimumView struct {
	Applies        bool   `json:"applies"`
	Met            bool   `json:"met"`
	RequiredCents  int64  `json:"required_cents,omitempty"`
	ShortfallCents int64  `json:"shortfall_cents,omitempty"`
	Required       string `json:"required,omitempty"`
	Shortfall      string `json:"shortfall,omitempty"`
}

// QuoteView is the full itemized order as shown on both surfaces.
type QuoteView struct {
	CatalogVersion string      `json:"catalog_version"`
	Region         string      `json:"region"`
	Items          []ItemView  `json:"items"`
	Totals         TotalsView  `json:"totals"`
	Minimum        MinimumView `json:"minimum"`
}

var hundred = decimal.NewFromInt(100)

// Item formats one breakdown.
func (f *Formatter) Item(index int, item pricing.LineItem, b pricing.Breakdown) ItemView {
	view := ItemView{
		Index:          index,
		Width:          item.Width.String(),
		Height:         item.Height.String(),
		Material:       b.Material,
		Quantity:       b.Quantity,
		Lines:          make([]LineView, 0, len(b.Lines)),
		UnitPriceCents: int64(b.UnitPrice),
		LineTotalCents: int64(b.LineTotal),
		UnitPrice:      f.Money(b.UnitPrice),
		LineTotal:      f.Money(b.LineTotal),
	}
	for _, l := range b.Lines {
		view.Lines = append(view.Lines, LineView{
			Kind:            string(l.Kind),
			ID:              l.ID,
			Label:           l.Label,
			Quantity:        l.Quantity,
			UnitAmountCents: int64(l.UnitAmount),
			AmountCents:     int64(l.Amount),
			UnitAmount:      f.Money(l.UnitAmount),
			Amount:          f.Money(l.Amount),
		})
	}
	return view
}

// Totals formats the order footer.
func (f *Formatter) Totals(t pricing.OrderTotals, taxRate decimal.Decimal) TotalsView {
	return TotalsView{
		SubtotalCents: int64(t.Subtotal),
		TaxCents:      int64(t.Tax),
		TotalCents:    int64(t.Total),
		Subtotal:      f.Money(t.Subtotal),
		Tax:           f.Money(t.Tax),
		Total:         f.Money(t.Total),
		TaxRate:       taxRate.Mul(hundred).String() + "%",
		Currency:      f.code,
	}
}

// Minimum formats a minimum order status.
func (f *Formatter) Minimum(s pricing.MinimumStatus) MinimumView {
	view := MinimumView{Applies: s.Applies, Met: s.Met}
	if s.Applies {
		view.RequiredCents = int64(s.Required)
		view.Required = f.Money(s.Required)
		view.ShortfallCents = int64(s.Shortfall)
		if s.Shortfall > 0 {
			view.Shortfall = f.Money(s.Shortfall)
		}
	}
	return view
}

// Quote formats a complete order quote. items must be the slice q was computed from.
func (f *Formatter) Quote(q pricing.OrderQuote, items []pricing.LineItem, set pricing.OptionSet, minimum pricing.MinimumStatus) QuoteView {
	view := QuoteView{
		CatalogVersion: set.CatalogVersion(),
		Region:         set.Context().Region(),
		Items:          make([]ItemView, 0, len(q.Items)),
		Totals:         f.Totals(q.Totals, q.TaxRate),
		Minimum:        f.Minimum(minimum),
	}
	for i, b := range q.Items {
		view.Items = append(view.Items, f.Item(i, items[i], b))
	}
	return view
}
