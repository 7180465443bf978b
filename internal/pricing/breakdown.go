package pricing

// LineKind classifies a breakdown line.
type LineKind string

const (
	LineBase   LineKind = "base"
	LineOption LineKind = "option"
)

// BreakdownLine is one cost component of a line item. Amount is UnitAmount
// multiplied by the item quantity.
type BreakdownLine struct {
	Kind       LineKind
	ID         string
	Label      string
	UnitAmount Money
	Quantity   int
	Amount     Money
}

// Breakdown itemizes a line item: base cost first, then options in catalog
// order. The Amount of all lines sums to LineTotal.
type Breakdown struct {
	Lines     []BreakdownLine
	Material  string
	Quantity  int
	UnitPrice Money
	LineTotal Money
}

// Sum adds the amounts of every line.
func (b Breakdown) Sum() Money {
	var total Money
	for _, l := range b.Lines {
		total += l.Amount
	}
	return total
}

// BuildBreakdown itemizes item under set using the same evaluation as PriceLineItem.
func BuildBreakdown(item LineItem, set OptionSet) (Breakdown, error) {
	ev, err := evaluate(item, set)
	if err != nil {
		return Breakdown{}, err
	}
	return ev.breakdown(), nil
}

func (e evaluation) breakdown() Breakdown {
	lines := make([]BreakdownLine, 0, len(e.components))
	for _, c := range e.components {
		lines = append(lines, BreakdownLine{
			Kind:       c.kind,
			ID:         c.id,
			Label:      c.label,
			UnitAmount: c.unit,
			Quantity:   e.quantity,
			Amount:     c.unit.Times(e.quantity),
		})
	}
	return Breakdown{
		Lines:     lines,
		Material:  e.material.ID,
		Quantity:  e.quantity,
		UnitPrice: e.unit,
		LineTotal: e.lineTotal(),
	}
}
