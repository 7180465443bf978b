package catalog

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/banner-pricing/internal/pricing"
)

// Loader produces a compiled catalog.
type Loader interface {
	Load(ctx context.Context) (*pricing.Catalog, error)
}

// Holder serves the current catalog to request handlers. Reloads swap the
// pointer atomically; a failed reload keeps the last good catalog.
type Holder struct {
	current atomic.Pointer[pricing.Catalog]
	loader  Loader
	logger  zerolog.Logger
}

// NewHolder performs the initial load. A failure here is fatal for the caller.
func NewHolder(ctx context.Context, loader Loader, logger zerolog.Logger) (*Holder, error) {
	if loader == nil {
		return nil, errors.New("catalog: loader is required")
	}
	h := &Holder{loader: loader, logger: logger.With().Str("component", "catalog_holder").Logger()}
	cat, err := loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	h.current.Store(cat)
	return h, nil
}

// NewStaticHolder wraps a fixed catalog, for tools and tests.
func NewStaticHolder(cat *pricing.Catalog) *Holder {
	h := &Holder{logger: zerolog.Nop()}
	h.current.Store(cat)
	return h
}

// Current returns the catalog in use.
func (h *Holder) Current() *pricing.Catalog {
	return h.current.Load()
}

// Ready reports whether a catalog is loaded.
func (h *Holder) Ready() bool {
	return h != nil && h.current.Load() != nil
}

// Replace installs cat directly, e.g. right after a publish.
func (h *Holder) Replace(cat *pricing.Catalog) {
	if cat != nil {
		h.current.Store(cat)
	}
}

// Refresh reloads the catalog. On failure the previous catalog stays active.
func (h *Holder) Refresh(ctx context.Context) error {
	if h.loader == nil {
		return nil
	}
	cat, err := h.loader.Load(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("catalog refresh failed, keeping previous catalog")
		return err
	}
	prev := h.current.Swap(cat)
	if prev == nil || prev.Version() != cat.Version() {
		h.logger.Info().Str("version", cat.Version()).Msg("catalog updated")
	}
	return nil
}

// Run refreshes on every tick until ctx is done.
func (h *Holder) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = h.Refresh(ctx)
		}
	}
}
