package pricing

import (
	"math"

	"github.com/shopspring/decimal"
)

// DimensionPlaces is the number of decimal places a width or height may carry.
// Orders store dimensions at this scale, so re-pricing a stored order sees
// exactly the numbers checkout priced.
const DimensionPlaces = 3

// MaxDimensionInches bounds width and height.
var MaxDimensionInches = decimal.NewFromInt(10000)

// LineItem is one banner configuration and its quantity. Width and Height are
// in inches. An empty Material selects the catalog default.
type LineItem struct {
	Width             decimal.Decimal
	Height            decimal.Decimal
	Quantity          int
	Material          string
	SelectedOptionIDs []string
}

type component struct {
	kind  LineKind
	id    string
	label string
	unit  Money
}

// evaluation is the single derivation shared by PriceLineItem and BuildBreakdown.
type evaluation struct {
	material   Material
	components []component
	unit       Money
	quantity   int
}

func (e evaluation) lineTotal() Money {
	return e.unit.Times(e.quantity)
}

func evaluate(item LineItem, set OptionSet) (evaluation, error) {
	if item.Quantity <= 0 {
		return evaluation{}, invalidItem("quantity", "must be a positive integer")
	}
	if err := checkDimension("width", item.Width); err != nil {
		return evaluation{}, err
	}
	if err := checkDimension("height", item.Height); err != nil {
		return evaluation{}, err
	}

	selected := make(map[string]struct{}, len(item.SelectedOptionIDs))
	for _, id := range item.SelectedOptionIDs {
		if _, dup := selected[id]; dup {
			return evaluation{}, invalidItem("options", "option "+id+" selected more than once")
		}
		selected[id] = struct{}{}
	}

	materialID := item.Material
	if materialID == "" {
		materialID = set.defaultMaterial
	}
	material, ok := set.Material(materialID)
	if !ok {
		return evaluation{}, invalidItem("material", materialID+" is not available")
	}

	base := areaCents(item, material.RatePerSqFt)
	if base == MaxMoney {
		return evaluation{}, invalidItem("width", "makes the banner too large to price")
	}
	ev := evaluation{
		material:   material,
		components: []component{{kind: LineBase, id: material.ID, label: material.Label, unit: base}},
		unit:       base,
		quantity:   item.Quantity,
	}

	groups := make(map[string]string)
	for _, opt := range set.options {
		if _, ok := selected[opt.ID]; !ok {
			continue
		}
		if opt.Group != "" {
			if other, taken := groups[opt.Group]; taken {
				return evaluation{}, invalidItem("options", other+" and "+opt.ID+" cannot be combined")
			}
			groups[opt.Group] = opt.ID
		}
		cost := opt.Cost(item)
		if cost < 0 {
			return evaluation{}, configErrorf("option %q produced a negative cost", opt.ID)
		}
		unit, ok := addChecked(ev.unit, cost)
		if !ok || cost == MaxMoney {
			return evaluation{}, invalidItem("options", opt.ID+" makes the banner too large to price")
		}
		ev.components = append(ev.components, component{kind: LineOption, id: opt.ID, label: opt.Label, unit: cost})
		ev.unit = unit
	}

	if ev.unit > 0 && Money(item.Quantity) > Money(math.MaxInt64)/ev.unit {
		return evaluation{}, invalidItem("quantity", "is too large to price")
	}
	return ev, nil
}

func checkDimension(field string, v decimal.Decimal) error {
	switch {
	case !v.IsPositive():
		return invalidItem(field, "must be greater than zero")
	case v.GreaterThan(MaxDimensionInches):
		return invalidItem(field, "must be at most "+MaxDimensionInches.String()+" inches")
	case !v.Equal(v.Truncate(DimensionPlaces)):
		return invalidItem(field, "must have at most 3 decimal places")
	}
	return nil
}

// PriceLineItem returns the per-unit price and the line total for one item.
// Selected options absent from set are skipped.
func PriceLineItem(item LineItem, set OptionSet) (unitPrice, lineTotal Money, err error) {
	ev, err := evaluate(item, set)
	if err != nil {
		return 0, 0, err
	}
	return ev.unit, ev.lineTotal(), nil
}
