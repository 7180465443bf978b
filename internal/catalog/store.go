package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when no matching catalog has been published.
	ErrNotFound = errors.New("catalog: not found")
	// ErrVersionExists is returned when publishing a version twice. Published
	// versions are immutable so stored orders keep pricing the same way.
	ErrVersionExists = errors.New("catalog: version already published")
)

// Store persists published catalog definitions.
type Store interface {
	Latest(ctx context.Context) (Definition, error)
	ByVersion(ctx context.Context, version string) (Definition, error)
	Save(ctx context.Context, def Definition, publishedBy string) error
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PGStore keeps catalog documents in the pricing_catalogs table.
type PGStore struct {
	db querier
}

// NewPGStore constructs a Postgres-backed store. A *pgxpool.Pool satisfies db.
func NewPGStore(db querier) *PGStore {
	return &PGStore{db: db}
}

const latestCatalogSQL = `SELECT document FROM pricing_catalogs ORDER BY published_at DESC, id DESC LIMIT 1`

const versionCatalogSQL = `SELECT document FROM pricing_catalogs WHERE version = $1`

const saveCatalogSQL = `INSERT INTO pricing_catalogs (version, document, published_by)
VALUES ($1, $2, $3)
ON CONFLICT (version) DO NOTHING`

// Latest returns the most recently published definition.
func (s *PGStore) Latest(ctx context.Context) (Definition, error) {
	return s.one(ctx, latestCatalogSQL)
}

// ByVersion returns the definition published under version.
func (s *PGStore) ByVersion(ctx context.Context, version string) (Definition, error) {
	return s.one(ctx, versionCatalogSQL, version)
}

func (s *PGStore) one(ctx context.Context, sql string, args ...any) (Definition, error) {
	var raw []byte
	if err := s.db.QueryRow(ctx, sql, args...).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Definition{}, ErrNotFound
		}
		return Definition{}, fmt.Errorf("query catalog: %w", err)
	}
	var def Definition
	if err := json.Unmarshal(raw, &def); err != nil {
		return Definition{}, fmt.Errorf("decode stored catalog: %w", err)
	}
	return def, nil
}

// Save inserts def. Republishing an existing version fails with ErrVersionExists.
func (s *PGStore) Save(ctx context.Context, def Definition, publishedBy string) error {
	doc, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	tag, err := s.db.Exec(ctx, saveCatalogSQL, def.Version, doc, publishedBy)
	if err != nil {
		return fmt.Errorf("save catalog %s: %w", def.Version, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionExists
	}
	return nil
}
