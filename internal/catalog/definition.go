package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/banner-pricing/internal/pricing"
)

// Option cost kinds understood by Build.
const (
	KindFlat   = "flat"
	KindLinear = "linear"
	KindArea   = "area"
)

// Definition is the serialised catalog as stored in files, Postgres and Redis.
type Definition struct {
	Version         string        `yaml:"version" json:"version"`
	DefaultMaterial string        `yaml:"default_material" json:"default_material"`
	Materials       []MaterialDef `yaml:"materials" json:"materials"`
	Options         []OptionDef   `yaml:"options" json:"options"`
}

// Condition mirrors pricing.Predicate.
type Condition struct {
	Flags   []string `yaml:"flags,omitempty" json:"flags,omitempty"`
	Regions []string `yaml:"regions,omitempty" json:"regions,omitempty"`
}

// MaterialDef declares a substrate and its price per square foot in cents.
type MaterialDef struct {
	ID               string          `yaml:"id" json:"id"`
	Label            string          `yaml:"label" json:"label"`
	RateCentsPerSqFt decimal.Decimal `yaml:"rate_cents_per_sqft" json:"rate_cents_per_sqft"`
	When             Condition       `yaml:"when,omitempty" json:"when,omitempty"`
}

// OptionDef declares a finishing option. Which amount fields apply depends on Kind.
type OptionDef struct {
	ID           string          `yaml:"id" json:"id"`
	Label        string          `yaml:"label" json:"label"`
	Group        string          `yaml:"group,omitempty" json:"group,omitempty"`
	Kind         string          `yaml:"kind" json:"kind"`
	AmountCents  int64           `yaml:"amount_cents,omitempty" json:"amount_cents,omitempty"`
	SetupCents   int64           `yaml:"setup_cents,omitempty" json:"setup_cents,omitempty"`
	PerFootCents int64           `yaml:"per_foot_cents,omitempty" json:"per_foot_cents,omitempty"`
	PerSqFtCents decimal.Decimal `yaml:"per_sqft_cents,omitempty" json:"per_sqft_cents,omitempty"`
	Edges        []string        `yaml:"edges,omitempty" json:"edges,omitempty"`
	When         Condition       `yaml:"when,omitempty" json:"when,omitempty"`
}

// ParseDefinition decodes a YAML (or JSON) catalog document. Unknown keys are rejected.
func ParseDefinition(r io.Reader) (Definition, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var def Definition
	if err := dec.Decode(&def); err != nil {
		if errors.Is(err, io.EOF) {
			return Definition{}, &pricing.ConfigurationError{Reason: "catalog document is empty"}
		}
		return Definition{}, &pricing.ConfigurationError{Reason: "decode catalog: " + err.Error()}
	}
	return def, nil
}

// LoadFile reads and decodes a catalog file.
func LoadFile(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return ParseDefinition(bytes.NewReader(data))
}

// Build validates def and compiles it into a pricing catalog.
func Build(def Definition) (*pricing.Catalog, error) {
	materials := make([]pricing.Material, 0, len(def.Materials))
	for _, m := range def.Materials {
		materials = append(materials, pricing.Material{
			ID:          m.ID,
			Label:       labelOr(m.Label, m.ID),
			RatePerSqFt: m.RateCentsPerSqFt,
			AppliesWhen: predicate(m.When),
		})
	}

	options := make([]pricing.PricingOption, 0, len(def.Options))
	for _, o := range def.Options {
		cost, err := costFunc(o)
		if err != nil {
			return nil, err
		}
		options = append(options, pricing.PricingOption{
			ID:          o.ID,
			Label:       labelOr(o.Label, o.ID),
			Group:       o.Group,
			Cost:        cost,
			AppliesWhen: predicate(o.When),
		})
	}
	return pricing.NewCatalog(def.Version, def.DefaultMaterial, materials, options)
}

func costFunc(o OptionDef) (pricing.CostFunc, error) {
	if o.AmountCents < 0 || o.SetupCents < 0 || o.PerFootCents < 0 || o.PerSqFtCents.IsNegative() {
		return nil, &pricing.ConfigurationError{Reason: fmt.Sprintf("option %q has a negative amount", o.ID)}
	}
	switch o.Kind {
	case KindFlat:
		return pricing.FlatCost(pricing.Money(o.AmountCents)), nil
	case KindLinear:
		if len(o.Edges) == 0 {
			return nil, &pricing.ConfigurationError{Reason: fmt.Sprintf("option %q is linear but names no edges", o.ID)}
		}
		edges := make([]pricing.Edge, 0, len(o.Edges))
		for _, e := range o.Edges {
			edge := pricing.Edge(e)
			if !edge.Valid() {
				return nil, &pricing.ConfigurationError{Reason: fmt.Sprintf("option %q has unknown edge %q", o.ID, e)}
			}
			edges = append(edges, edge)
		}
		return pricing.LinearCost(pricing.Money(o.SetupCents), pricing.Money(o.PerFootCents), edges...), nil
	case KindArea:
		return pricing.AreaCost(o.PerSqFtCents), nil
	default:
		return nil, &pricing.ConfigurationError{Reason: fmt.Sprintf("option %q has unknown kind %q", o.ID, o.Kind)}
	}
}

func predicate(c Condition) pricing.Predicate {
	return pricing.Predicate{Flags: c.Flags, Regions: c.Regions}
}

func labelOr(label, id string) string {
	if label != "" {
		return label
	}
	return id
}
