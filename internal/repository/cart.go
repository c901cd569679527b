package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bloomhaus/orderflow/internal/domain/checkout"
)

var _ checkout.LineItemSource = (*CartSource)(nil)

// CartSource implements checkout.LineItemSource over the cart_items table.
// The cart itself is owned by the storefront; the engine only reads the
// current lines at commit time and clears them afterwards.
type CartSource struct {
	pool *pgxpool.Pool
}

// NewCartSource returns a CartSource that uses the given pool.
func NewCartSource(pool *pgxpool.Pool) *CartSource {
	return &CartSource{pool: pool}
}

// ListCurrentItems returns the customer's cart lines priced at the current
// catalog unit price. Lines for unavailable products are excluded.
func (c *CartSource) ListCurrentItems(ctx context.Context, customerID string) ([]checkout.LineItem, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT ci.product_id, p.name, ci.quantity, p.price
		 FROM cart_items ci
		 JOIN products p ON p.id = ci.product_id
		 WHERE ci.customer_id = $1 AND p.available
		 ORDER BY ci.id`,
		customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying cart items: %w", err)
	}
	defer rows.Close()

	var items []checkout.LineItem
	for rows.Next() {
		var it checkout.LineItem
		if err := rows.Scan(&it.ProductID, &it.Name, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, fmt.Errorf("scanning cart item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Clear removes all of the customer's cart lines.
func (c *CartSource) Clear(ctx context.Context, customerID string) error {
	_, err := c.pool.Exec(ctx, `DELETE FROM cart_items WHERE customer_id = $1`, customerID)
	if err != nil {
		return fmt.Errorf("clearing cart: %w", err)
	}
	return nil
}
