package postgres

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	domain "github.com/freshmart/orderflow/internal/domain/inventory"
)

type InventoryRepository struct {
	db *sql.DB
}

func NewInventoryRepository(db *sql.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

func (r *InventoryRepository) Create(ctx context.Context, p *domain.Product) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (id, name, price, image_url, stock, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.Name, p.Price, p.ImageURL, p.Stock, p.CreatedAt, p.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrConflict
	}
	return err
}

func (r *InventoryRepository) Get(ctx context.Context, productID int64) (*domain.Product, error) {
	return scanProduct(r.db.QueryRowContext(ctx, `
		SELECT id, name, price, image_url, stock, created_at, updated_at
		FROM products WHERE id = $1`, productID))
}

func (r *InventoryRepository) List(ctx context.Context) ([]*domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, price, image_url, stock, created_at, updated_at
		FROM products ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *InventoryRepository) Restock(ctx context.Context, productID int64, quantity int) (*domain.Product, error) {
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	p, err := scanProduct(r.db.QueryRowContext(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, price, image_url, stock, created_at, updated_at`,
		productID, quantity))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrNotFound
	}
	return p, err
}

// Reserve locks the product rows in id order (avoiding lock-order deadlocks
// between concurrent orders), verifies every line, then decrements. Any
// shortfall rolls the transaction back untouched.
func (r *InventoryRepository) Reserve(ctx context.Context, lines []domain.Line) error {
	if len(lines) == 0 {
		return nil
	}
	ordered := append([]domain.Line(nil), lines...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ProductID < ordered[j].ProductID })

	return WithRetry(ctx, r.db, DefaultTxOptions(), func(tx *sql.Tx) error {
		for _, l := range ordered {
			if l.Quantity <= 0 {
				return domain.ErrInvalidQuantity
			}
			var available int
			err := tx.QueryRowContext(ctx,
				`SELECT stock FROM products WHERE id = $1 FOR UPDATE`, l.ProductID,
			).Scan(&available)
			if errors.Is(err, sql.ErrNoRows) {
				return &domain.ShortfallError{ProductID: l.ProductID, Available: 0}
			}
			if err != nil {
				return err
			}
			if available < l.Quantity {
				return &domain.ShortfallError{ProductID: l.ProductID, Available: available}
			}
		}
		for _, l := range ordered {
			if _, err := tx.ExecContext(ctx, `
				UPDATE products SET stock = stock - $2, updated_at = NOW()
				WHERE id = $1`, l.ProductID, l.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
}

// Release adds stock back. Unknown products are skipped so a release after a
// catalog deletion still restores the rest.
func (r *InventoryRepository) Release(ctx context.Context, lines []domain.Line) error {
	if len(lines) == 0 {
		return nil
	}
	return WithRetry(ctx, r.db, DefaultTxOptions(), func(tx *sql.Tx) error {
		for _, l := range lines {
			if l.Quantity <= 0 {
				continue
			}
			if _, err := tx.ExecContext(ctx, `
				UPDATE products SET stock = stock + $2, updated_at = NOW()
				WHERE id = $1`, l.ProductID, l.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.ImageURL, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
