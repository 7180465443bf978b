package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/banner-pricing/internal/obs"
	"github.com/noah-isme/banner-pricing/internal/pricing"
)

// Sources a catalog can be loaded from.
const (
	SourceFile  = "file"
	SourceDB    = "db"
	SourceCache = "cache"
)

// ErrReadOnly is returned by Publish when no store is configured.
var ErrReadOnly = errors.New("catalog: no store configured")

// Service loads and publishes pricing catalogs.
type Service struct {
	store  Store
	cache  *Cache
	path   string
	source string
	logger zerolog.Logger

	// compiled catalogs by version; published versions never change.
	versions sync.Map
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store  Store
	Cache  *Cache
	Path   string
	Source string
	Logger zerolog.Logger
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) *Service {
	source := cfg.Source
	if source == "" {
		source = SourceFile
	}
	return &Service{
		store:  cfg.Store,
		cache:  cfg.Cache,
		path:   cfg.Path,
		source: source,
		logger: cfg.Logger.With().Str("component", "catalog").Logger(),
	}
}

// Definition returns the current definition and where it came from. With the
// db source it tries Redis, then Postgres, then the file when nothing has been
// published yet.
func (s *Service) Definition(ctx context.Context) (Definition, string, error) {
	if s.source != SourceDB || s.store == nil {
		def, err := LoadFile(s.path)
		return def, SourceFile, err
	}

	def, ok, err := s.cache.Get(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("catalog cache read failed")
	} else if ok {
		return def, SourceCache, nil
	}

	origin := SourceDB
	def, err = s.store.Latest(ctx)
	if errors.Is(err, ErrNotFound) && s.path != "" {
		origin = SourceFile
		def, err = LoadFile(s.path)
	}
	if err != nil {
		return Definition{}, origin, err
	}
	if err := s.cache.Set(ctx, def); err != nil {
		s.logger.Warn().Err(err).Msg("catalog cache write failed")
	}
	return def, origin, nil
}

// Load resolves and compiles the current catalog.
func (s *Service) Load(ctx context.Context) (*pricing.Catalog, error) {
	ctx, span := otel.Tracer("catalog").Start(ctx, "catalog.Load")
	defer span.End()

	def, origin, err := s.Definition(ctx)
	if err == nil {
		var cat *pricing.Catalog
		cat, err = Build(def)
		if err == nil {
			span.SetAttributes(attribute.String("catalog.source", origin), attribute.String("catalog.version", cat.Version()))
			obs.CountCatalogReload(origin, nil)
			return cat, nil
		}
	}
	span.RecordError(err)
	obs.CountCatalogReload(origin, err)
	return nil, fmt.Errorf("load catalog from %s: %w", origin, err)
}

// Publish validates def, stores it and drops the cached copy.
func (s *Service) Publish(ctx context.Context, def Definition, publishedBy string) (*pricing.Catalog, error) {
	cat, err := Build(def)
	if err != nil {
		return nil, err
	}
	if s.store == nil {
		return nil, ErrReadOnly
	}
	if err := s.store.Save(ctx, def, publishedBy); err != nil {
		return nil, err
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("catalog cache invalidate failed")
	}
	s.versions.Store(def.Version, cat)
	s.logger.Info().Str("version", def.Version).Str("published_by", publishedBy).Msg("catalog published")
	return cat, nil
}

// LoadVersion compiles the catalog published under version. Orders re-price
// with the version captured at checkout. ErrNotFound is returned when neither
// the store nor the catalog file carries that version.
func (s *Service) LoadVersion(ctx context.Context, version string) (*pricing.Catalog, error) {
	if cached, ok := s.versions.Load(version); ok {
		return cached.(*pricing.Catalog), nil
	}

	var (
		def Definition
		err = ErrNotFound
	)
	if s.store != nil {
		def, err = s.store.ByVersion(ctx, version)
	}
	if errors.Is(err, ErrNotFound) && s.path != "" {
		fileDef, fileErr := LoadFile(s.path)
		if fileErr != nil {
			return nil, fileErr
		}
		if fileDef.Version == version {
			def, err = fileDef, nil
		}
	}
	if err != nil {
		return nil, err
	}
	cat, err := Build(def)
	if err != nil {
		return nil, err
	}
	actual, _ := s.versions.LoadOrStore(version, cat)
	return actual.(*pricing.Catalog), nil
}
