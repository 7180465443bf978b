package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/banner-pricing/internal/pricing"
)

// ErrNotFound is returned when an order does not exist.
var ErrNotFound = errors.New("order: not found")

// Repository persists orders.
type Repository interface {
	Create(ctx context.Context, o Order) error
	Get(ctx context.Context, id uuid.UUID) (Order, error)
	List(ctx context.Context, limit, offset int) ([]Summary, error)
}

type pgxDB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGRepository stores orders in the orders and order_items tables.
type PGRepository struct {
	db pgxDB
}

// NewPGRepository constructs a repository. A *pgxpool.Pool satisfies db.
func NewPGRepository(db pgxDB) *PGRepository {
	return &PGRepository{db: db}
}

const insertOrderSQL = `INSERT INTO orders
	(id, number, email, customer_name, region, flags, tax_rate, catalog_version, subtotal_cents, tax_cents, total_cents, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7::text::numeric, $8, $9, $10, $11, $12)`

const insertItemSQL = `INSERT INTO order_items
	(id, order_id, position, title, file_name, width_in, height_in, quantity, material, options)
VALUES ($1, $2, $3, $4, $5, $6::text::numeric, $7::text::numeric, $8, $9, $10)`

const selectOrderSQL = `SELECT id, number, email, customer_name, region, flags, tax_rate::text,
	catalog_version, subtotal_cents, tax_cents, total_cents, created_at
FROM orders WHERE id = $1`

const selectItemsSQL = `SELECT id, position, title, file_name, width_in::text, height_in::text, quantity, material, options
FROM order_items WHERE order_id = $1 ORDER BY position`

const listOrdersSQL = `SELECT id, number, email, customer_name, region, catalog_version, total_cents, created_at
FROM orders ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`

// Create inserts the order and its items in one transaction.
func (r *PGRepository) Create(ctx context.Context, o Order) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin order tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, insertOrderSQL,
		o.ID, o.Number, o.Email, o.CustomerName, o.Region, nonNil(o.Flags), o.TaxRate.String(),
		o.CatalogVersion, int64(o.Subtotal), int64(o.Tax), int64(o.Total), o.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	batch := &pgx.Batch{}
	for _, it := range o.Items {
		batch.Queue(insertItemSQL, it.ID, o.ID, it.Position, it.Title, it.FileName,
			it.Width.String(), it.Height.String(), it.Quantity, it.Material, nonNil(it.Options))
	}
	br := tx.SendBatch(ctx, batch)
	for range o.Items {
		if _, err = br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	if err = br.Close(); err != nil {
		return fmt.Errorf("insert order items: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit order: %w", err)
	}
	return nil
}

// Get loads an order with its items.
func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (Order, error) {
	var (
		o                    Order
		taxRate              string
		subtotal, tax, total int64
	)
	err := r.db.QueryRow(ctx, selectOrderSQL, id).Scan(
		&o.ID, &o.Number, &o.Email, &o.CustomerName, &o.Region, &o.Flags, &taxRate,
		&o.CatalogVersion, &subtotal, &tax, &total, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("query order: %w", err)
	}
	if o.TaxRate, err = decimal.NewFromString(taxRate); err != nil {
		return Order{}, fmt.Errorf("decode tax rate: %w", err)
	}
	o.Subtotal, o.Tax, o.Total = pricing.Money(subtotal), pricing.Money(tax), pricing.Money(total)

	rows, err := r.db.Query(ctx, selectItemsSQL, id)
	if err != nil {
		return Order{}, fmt.Errorf("query order items: %w", err)
	}
	o.Items, err = pgx.CollectRows(rows, scanItem)
	if err != nil {
		return Order{}, fmt.Errorf("scan order items: %w", err)
	}
	return o, nil
}

func scanItem(row pgx.CollectableRow) (Item, error) {
	var (
		it            Item
		width, height string
	)
	if err := row.Scan(&it.ID, &it.Position, &it.Title, &it.FileName, &width, &height, &it.Quantity, &it.Material, &it.Options); err != nil {
		return Item{}, err
	}
	var err error
	if it.Width, err = decimal.NewFromString(width); err != nil {
		return Item{}, err
	}
	if it.Height, err = decimal.NewFromString(height); err != nil {
		return Item{}, err
	}
	return it, nil
}

// List returns order summaries, newest first.
func (r *PGRepository) List(ctx context.Context, limit, offset int) ([]Summary, error) {
	rows, err := r.db.Query(ctx, listOrdersSQL, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Summary, error) {
		var (
			s     Summary
			total int64
			at    time.Time
		)
		err := row.Scan(&s.ID, &s.Number, &s.Email, &s.CustomerName, &s.Region, &s.CatalogVersion, &total, &at)
		s.Total, s.CreatedAt = pricing.Money(total), at
		return s, err
	})
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
