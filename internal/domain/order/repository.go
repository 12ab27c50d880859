package order

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// GetActiveProducts loads the requested products. Every id must resolve to
// an active product or the whole lookup fails with ErrProductNotFound.
func (r *Repository) GetActiveProducts(ctx context.Context, ids []uuid.UUID) ([]Product, error) {
	products := []Product{}
	err := r.db.SelectContext(ctx, &products, `
		SELECT id, title, price, stock, is_active, created_at, updated_at
		FROM products
		WHERE id = ANY($1) AND is_active
	`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	if len(products) != len(ids) {
		return nil, ErrProductNotFound
	}
	return products, nil
}

// CreateTx inserts the order with its items and decrements product stock,
// floored at zero, inside the caller's transaction.
func (r *Repository) CreateTx(ctx context.Context, tx *sqlx.Tx, o *Order) error {
	err := tx.QueryRowxContext(ctx, `
		INSERT INTO orders (id, user_id, status, total)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, o.ID, o.UserID, o.Status, o.Total).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return err
	}

	for i := range o.Items {
		item := &o.Items[i]
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		item.OrderID = o.ID

		_, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5)
		`, item.ID, item.OrderID, item.ProductID, item.Quantity, item.UnitPrice)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE products
			SET stock = GREATEST(stock - $1, 0), updated_at = now()
			WHERE id = $2
		`, item.Quantity, item.ProductID)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	var o Order
	err := r.db.GetContext(ctx, &o, `
		SELECT id, user_id, status, total, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	items := []Item{}
	err = r.db.SelectContext(ctx, &items, `
		SELECT id, order_id, product_id, quantity, unit_price
		FROM order_items
		WHERE order_id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}
