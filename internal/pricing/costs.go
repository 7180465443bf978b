package pricing

import "github.com/shopspring/decimal"

// Edge names a side of a banner for linear finishing such as pole pockets or rope.
type Edge string

const (
	EdgeTop    Edge = "top"
	EdgeBottom Edge = "bottom"
	EdgeLeft   Edge = "left"
	EdgeRight  Edge = "right"
)

var (
	inchesPerFoot   = decimal.NewFromInt(12)
	sqInchesPerSqFt = decimal.NewFromInt(144)
)

// Valid reports whether e is one of the four known edges.
func (e Edge) Valid() bool {
	switch e {
	case EdgeTop, EdgeBottom, EdgeLeft, EdgeRight:
		return true
	}
	return false
}

// AreaSqFt returns the item's area in square feet. Dimensions are in inches.
func AreaSqFt(item LineItem) decimal.Decimal {
	return item.Width.Mul(item.Height).Div(sqInchesPerSqFt)
}

// LinearFeet returns the combined length of the given edges in feet.
func LinearFeet(item LineItem, edges ...Edge) decimal.Decimal {
	return linearInches(item, edges).Div(inchesPerFoot)
}

func linearInches(item LineItem, edges []Edge) decimal.Decimal {
	inches := decimal.Zero
	for _, e := range edges {
		switch e {
		case EdgeTop, EdgeBottom:
			inches = inches.Add(item.Width)
		case EdgeLeft, EdgeRight:
			inches = inches.Add(item.Height)
		}
	}
	return inches
}

// FlatCost charges a fixed amount per unit.
func FlatCost(amount Money) CostFunc {
	return func(LineItem) Money { return amount }
}

// LinearCost charges setup plus perFoot for every foot of the chosen edges.
// The length charge is rounded once before setup is added; a sum past MaxMoney
// saturates.
func LinearCost(setup, perFoot Money, edges ...Edge) CostFunc {
	edges = append([]Edge(nil), edges...)
	return func(item LineItem) Money {
		cost, ok := addChecked(setup, RoundHalfUp(linearInches(item, edges).Mul(perFoot.Decimal()).Div(inchesPerFoot)))
		if !ok {
			return MaxMoney
		}
		return cost
	}
}

// AreaCost charges perSqFt cents for each square foot of the item.
func AreaCost(perSqFt decimal.Decimal) CostFunc {
	return func(item LineItem) Money {
		return areaCents(item, perSqFt)
	}
}

// areaCents rounds width*height*rate/144 once.
func areaCents(item LineItem, perSqFt decimal.Decimal) Money {
	return RoundHalfUp(item.Width.Mul(item.Height).Mul(perSqFt).Div(sqInchesPerSqFt))
}
