package pricing

import "github.com/shopspring/decimal"

// OrderTotals is the order footer. Subtotal + Tax == Total always holds.
type OrderTotals struct {
	Subtotal Money
	Tax      Money
	Total    Money
}

// OrderQuote bundles per-item breakdowns with the order totals they add up to.
type OrderQuote struct {
	Items   []Breakdown
	Totals  OrderTotals
	TaxRate decimal.Decimal
}

// TaxRatePlaces is the number of decimal places a tax rate may carry; orders
// store the rate at this scale.
const TaxRatePlaces = 6

// ValidateTaxRate accepts rates in [0, 1) with at most TaxRatePlaces decimals.
func ValidateTaxRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return configErrorf("tax rate %s is outside [0, 1)", rate.String())
	}
	if !rate.Equal(rate.Truncate(TaxRatePlaces)) {
		return configErrorf("tax rate %s has more than %d decimal places", rate.String(), TaxRatePlaces)
	}
	return nil
}

// Aggregate sums line totals and applies taxRate once to the subtotal.
// An empty order yields zero totals.
func Aggregate(items []LineItem, set OptionSet, taxRate decimal.Decimal) (OrderTotals, error) {
	if err := ValidateTaxRate(taxRate); err != nil {
		return OrderTotals{}, err
	}
	var subtotal Money
	for i, item := range items {
		ev, err := evaluate(item, set)
		if err != nil {
			return OrderTotals{}, withIndex(err, i)
		}
		if subtotal, err = addLine(subtotal, ev, i); err != nil {
			return OrderTotals{}, err
		}
	}
	return totalsFor(subtotal, taxRate, len(items)-1)
}

// Quote itemizes every line and aggregates the order in one pass. Both the
// checkout API and the confirmation email render from its result.
func Quote(items []LineItem, set OptionSet, taxRate decimal.Decimal) (OrderQuote, error) {
	if err := ValidateTaxRate(taxRate); err != nil {
		return OrderQuote{}, err
	}
	quote := OrderQuote{Items: make([]Breakdown, 0, len(items)), TaxRate: taxRate}
	var subtotal Money
	for i, item := range items {
		ev, err := evaluate(item, set)
		if err != nil {
			return OrderQuote{}, withIndex(err, i)
		}
		quote.Items = append(quote.Items, ev.breakdown())
		if subtotal, err = addLine(subtotal, ev, i); err != nil {
			return OrderQuote{}, err
		}
	}
	totals, err := totalsFor(subtotal, taxRate, len(items)-1)
	if err != nil {
		return OrderQuote{}, err
	}
	quote.Totals = totals
	return quote, nil
}

const tooLarge = "pushes the order total past the largest amount"

func addLine(subtotal Money, ev evaluation, index int) (Money, error) {
	sum, ok := addChecked(subtotal, ev.lineTotal())
	if !ok {
		return 0, withIndex(invalidItem("quantity", tooLarge), index)
	}
	return sum, nil
}

// totalsFor blames an overflowing total on the last item.
func totalsFor(subtotal Money, taxRate decimal.Decimal, last int) (OrderTotals, error) {
	tax := RoundHalfUp(subtotal.Decimal().Mul(taxRate))
	total, ok := addChecked(subtotal, tax)
	if !ok {
		return OrderTotals{}, withIndex(invalidItem("quantity", tooLarge), last)
	}
	return OrderTotals{Subtotal: subtotal, Tax: tax, Total: total}, nil
}
