package pricing

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Context is an immutable snapshot of the region and feature flags that apply
// to one pricing request.
type Context struct {
	region string
	flags  map[string]struct{}
}

// NewContext builds a context snapshot. Flag names are case-insensitive.
func NewContext(region string, flags ...string) Context {
	set := make(map[string]struct{}, len(flags))
	for _, f := range flags {
		f = normalize(f)
		if f != "" {
			set[f] = struct{}{}
		}
	}
	return Context{region: normalize(region), flags: set}
}

// Region returns the normalized region code.
func (c Context) Region() string { return c.region }

// Enabled reports whether the flag is on in this snapshot.
func (c Context) Enabled(flag string) bool {
	_, ok := c.flags[normalize(flag)]
	return ok
}

// Flags returns the enabled flags in sorted order.
func (c Context) Flags() []string {
	out := make([]string, 0, len(c.flags))
	for f := range c.flags {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Predicate gates an option or material. Every listed flag must be enabled and,
// when Regions is non-empty, the context region must be one of them.
type Predicate struct {
	Flags   []string
	Regions []string
}

// Holds evaluates the predicate against ctx.
func (p Predicate) Holds(ctx Context) bool {
	for _, f := range p.Flags {
		if !ctx.Enabled(f) {
			return false
		}
	}
	if len(p.Regions) == 0 {
		return true
	}
	for _, r := range p.Regions {
		if normalize(r) == ctx.region {
			return true
		}
	}
	return false
}

// CostFunc returns the per-unit cost of an option for a line item.
type CostFunc func(LineItem) Money

// PricingOption is a separately priced finishing attachable to a line item.
// Options sharing a non-empty Group are mutually exclusive.
type PricingOption struct {
	ID          string
	Label       string
	Group       string
	Cost        CostFunc
	AppliesWhen Predicate
}

// Material is a printable substrate priced per square foot.
type Material struct {
	ID          string
	Label       string
	RatePerSqFt decimal.Decimal
	AppliesWhen Predicate
}

// Catalog is the validated, declaration-ordered list of materials and options.
type Catalog struct {
	version         string
	defaultMaterial string
	materials       []Material
	options         []PricingOption
}

// NewCatalog validates and freezes a catalog. The version is required: stored
// orders name it to re-price against the same catalog later.
func NewCatalog(version, defaultMaterial string, materials []Material, options []PricingOption) (*Catalog, error) {
	if strings.TrimSpace(version) == "" {
		return nil, configErrorf("catalog version is required")
	}
	if len(materials) == 0 {
		return nil, configErrorf("catalog %q declares no materials", version)
	}
	seen := make(map[string]struct{}, len(materials))
	for i, m := range materials {
		if strings.TrimSpace(m.ID) == "" {
			return nil, configErrorf("material #%d has an empty id", i)
		}
		if _, dup := seen[m.ID]; dup {
			return nil, configErrorf("duplicate material id %q", m.ID)
		}
		if m.RatePerSqFt.IsNegative() {
			return nil, configErrorf("material %q has a negative rate", m.ID)
		}
		seen[m.ID] = struct{}{}
	}
	if defaultMaterial == "" {
		defaultMaterial = materials[0].ID
	}
	if _, ok := seen[defaultMaterial]; !ok {
		return nil, configErrorf("default material %q is not declared", defaultMaterial)
	}

	seen = make(map[string]struct{}, len(options))
	for i, o := range options {
		if strings.TrimSpace(o.ID) == "" {
			return nil, configErrorf("option #%d has an empty id", i)
		}
		if _, dup := seen[o.ID]; dup {
			return nil, configErrorf("duplicate option id %q", o.ID)
		}
		if o.Cost == nil {
			return nil, configErrorf("option %q has no cost function", o.ID)
		}
		seen[o.ID] = struct{}{}
	}

	return &Catalog{
		version:         version,
		defaultMaterial: defaultMaterial,
		materials:       append([]Material(nil), materials...),
		options:         append([]PricingOption(nil), options...),
	}, nil
}

// MustCatalog is NewCatalog for static catalogs; it panics on a malformed one.
func MustCatalog(version, defaultMaterial string, materials []Material, options []PricingOption) *Catalog {
	c, err := NewCatalog(version, defaultMaterial, materials, options)
	if err != nil {
		panic(err)
	}
	return c
}

// Version identifies the catalog revision.
func (c *Catalog) Version() string { return c.version }

// Resolve returns the options and materials active for ctx, in declaration order.
func (c *Catalog) Resolve(ctx Context) OptionSet {
	set := OptionSet{
		ctx:             ctx,
		version:         c.version,
		defaultMaterial: c.defaultMaterial,
		optionIndex:     make(map[string]int),
		materialIndex:   make(map[string]int),
	}
	for _, m := range c.materials {
		if m.AppliesWhen.Holds(ctx) {
			set.materialIndex[m.ID] = len(set.materials)
			set.materials = append(set.materials, m)
		}
	}
	for _, o := range c.options {
		if o.AppliesWhen.Holds(ctx) {
			set.optionIndex[o.ID] = len(set.options)
			set.options = append(set.options, o)
		}
	}
	return set
}

// OptionSet is the resolved, read-only view of a catalog under one context.
type OptionSet struct {
	ctx             Context
	version         string
	defaultMaterial string
	materials       []Material
	options         []PricingOption
	optionIndex     map[string]int
	materialIndex   map[string]int
}

// Context returns the snapshot the set was resolved for.
func (s OptionSet) Context() Context { return s.ctx }

// CatalogVersion returns the version of the catalog the set came from.
func (s OptionSet) CatalogVersion() string { return s.version }

// DefaultMaterial returns the material used when a line item names none.
func (s OptionSet) DefaultMaterial() string { return s.defaultMaterial }

// Options returns a copy of the active options in catalog order.
func (s OptionSet) Options() []PricingOption {
	return append([]PricingOption(nil), s.options...)
}

// Materials returns a copy of the active materials in catalog order.
func (s OptionSet) Materials() []Material {
	return append([]Material(nil), s.materials...)
}

// Option looks up an active option.
func (s OptionSet) Option(id string) (PricingOption, bool) {
	i, ok := s.optionIndex[id]
	if !ok {
		return PricingOption{}, false
	}
	return s.options[i], true
}

// Material looks up an active material.
func (s OptionSet) Material(id string) (Material, bool) {
	i, ok := s.materialIndex[id]
	if !ok {
		return Material{}, false
	}
	return s.materials[i], true
}

func normalize(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
