package pricing

// FlagMinimumOrder turns on the minimum order check.
const FlagMinimumOrder = "min_order_floor"

// DefaultMinimumOrder is the floor used when none is configured ($20.00).
const DefaultMinimumOrder Money = 2000

// MinimumStatus describes how an order compares to the minimum order floor.
type MinimumStatus struct {
	Applies   bool
	Required  Money
	Shortfall Money
	Met       bool
}

// CheckMinimum compares the subtotal against floor when the flag is on in ctx.
// It never alters totals.
func CheckMinimum(ctx Context, totals OrderTotals, floor Money) MinimumStatus {
	if !ctx.Enabled(FlagMinimumOrder) || floor <= 0 {
		return MinimumStatus{Met: true}
	}
	status := MinimumStatus{Applies: true, Required: floor, Met: totals.Subtotal >= floor}
	if !status.Met {
		status.Shortfall = floor - totals.Subtotal
	}
	return status
}
