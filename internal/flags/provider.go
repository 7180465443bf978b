// Package flags turns deployment configuration into immutable pricing contexts.
package flags

import (
	"errors"
	"strings"

	"github.com/noah-isme/banner-pricing/internal/pricing"
)

// ErrUnknownRegion is returned when a caller asks for a region that is not served.
var ErrUnknownRegion = errors.New("flags: unknown region")

// Provider hands out context snapshots. Flags are deployment-wide and cannot
// be chosen by clients; the region can, within the allowed list.
type Provider struct {
	defaultRegion string
	regions       map[string]struct{}
	flags         []string
}

// NewProvider builds a provider. The default region is always allowed.
func NewProvider(defaultRegion string, regions, flags []string) *Provider {
	p := &Provider{
		defaultRegion: strings.ToLower(strings.TrimSpace(defaultRegion)),
		regions:       make(map[string]struct{}, len(regions)+1),
		flags:         append([]string(nil), flags...),
	}
	p.regions[p.defaultRegion] = struct{}{}
	for _, r := range regions {
		if r = strings.ToLower(strings.TrimSpace(r)); r != "" {
			p.regions[r] = struct{}{}
		}
	}
	return p
}

// Default returns the snapshot for the default region.
func (p *Provider) Default() pricing.Context {
	return pricing.NewContext(p.defaultRegion, p.flags...)
}

// Snapshot returns the context for region, or the default one when region is empty.
func (p *Provider) Snapshot(region string) (pricing.Context, error) {
	region = strings.ToLower(strings.TrimSpace(region))
	if region == "" {
		return p.Default(), nil
	}
	if _, ok := p.regions[region]; !ok {
		return pricing.Context{}, ErrUnknownRegion
	}
	return pricing.NewContext(region, p.flags...), nil
}

// Restore rebuilds the context captured on a stored order.
func Restore(region string, flags []string) pricing.Context {
	return pricing.NewContext(region, flags...)
}
