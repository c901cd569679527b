package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bloomhaus/orderflow/internal/domain/order"
)

const orderColumns = `id, customer_id, status, completed, delivery_address, contact_phone,
	delivery_date, delivery_time, note, email_enabled, chat_enabled, total_price,
	created_at, updated_at`

const insertOrderSQL = `INSERT INTO orders (id, customer_id, status, completed,
	delivery_address, contact_phone, delivery_date, delivery_time, note,
	email_enabled, chat_enabled, total_price, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)`

const insertOrderItemSQL = `INSERT INTO order_items (order_id, product_id, quantity, price_at_purchase)
	VALUES ($1, $2, $3, $4) RETURNING id`

const insertAuditSQL = `INSERT INTO order_status_history (order_id, previous_status, new_status, changed_by, changed_at)
	VALUES ($1, $2, $3, $4, $5)`

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists an order and all of its items in one transaction. Either
// everything commits or nothing does; an order row without items is never
// observable.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now

	_, err = tx.Exec(ctx, insertOrderSQL,
		o.ID, o.CustomerID, o.Status, o.Completed,
		o.DeliveryAddress, o.ContactPhone, o.DeliveryDate, o.DeliveryTime, o.Note,
		o.EmailEnabled, o.ChatEnabled, o.TotalPrice, now,
	)
	if err != nil {
		return fmt.Errorf("inserting order %q: %w", o.ID, err)
	}

	for i := range o.Items {
		item := &o.Items[i]
		item.OrderID = o.ID
		err = tx.QueryRow(ctx, insertOrderItemSQL,
			o.ID, item.ProductID, item.Quantity, item.PriceAtPurchase,
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("inserting order item %q: %w", item.ProductID, err)
		}
	}

	return tx.Commit(ctx)
}

// Get loads an order and its items.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("loading order %q: %w", id, err)
	}

	items, err := r.loadItems(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return o, nil
}

// List returns orders matching the filter, newest first.
func (r *OrderRepository) List(ctx context.Context, f order.Filter) ([]order.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	var (
		args    []any
		clauses []string
	)
	if f.Status != nil {
		args = append(args, *f.Status)
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Completed != nil {
		args = append(args, *f.Completed)
		clauses = append(clauses, fmt.Sprintf("completed = $%d", len(args)))
	}
	for i, c := range clauses {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	defer rows.Close()

	var out []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// History returns the audit trail for an order in changedAt order, so that
// replaying it from the order's initial status reproduces the current one.
func (r *OrderRepository) History(ctx context.Context, orderID string) ([]order.AuditEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, order_id, previous_status, new_status, changed_by, changed_at
		 FROM order_status_history WHERE order_id = $1 ORDER BY changed_at, id`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying status history: %w", err)
	}
	defer rows.Close()

	var out []order.AuditEntry
	for rows.Next() {
		var e order.AuditEntry
		if err := rows.Scan(&e.ID, &e.OrderID, &e.PreviousStatus, &e.NewStatus, &e.ChangedBy, &e.ChangedAt); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// UpdateStatus implements the locked read-modify-write required by the
// transition contract. The order row is selected FOR UPDATE, so two
// concurrent transitions on the same order serialize at the database: the
// second writer re-reads the already-updated status and its decide callback
// takes the no-op path.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, decide func(*order.Order) (*order.Decision, error)) (*order.StatusChange, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, orderID)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("locking order %q: %w", orderID, err)
	}

	d, err := decide(o)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return &order.StatusChange{Order: o, Previous: o.Status, New: o.Status, NoOp: true}, nil
	}

	now := time.Now().UTC()
	_, err = tx.Exec(ctx,
		`UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3`,
		d.NewStatus, now, orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating order status: %w", err)
	}

	_, err = tx.Exec(ctx, insertAuditSQL, orderID, o.Status, d.NewStatus, d.Actor, now)
	if err != nil {
		return nil, fmt.Errorf("appending audit entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}

	previous := o.Status
	o.Status = d.NewStatus
	o.UpdatedAt = now
	return &order.StatusChange{Order: o, Previous: previous, New: d.NewStatus}, nil
}

// SetCompleted toggles the completion flag and bumps updated_at. It touches
// neither status nor the audit trail and is idempotent.
func (r *OrderRepository) SetCompleted(ctx context.Context, orderID string, completed bool) (*order.Order, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE orders SET completed = $1, updated_at = $2 WHERE id = $3 RETURNING `+orderColumns,
		completed, time.Now().UTC(), orderID,
	)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("setting completed on order %q: %w", orderID, err)
	}
	return o, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, orderID string) ([]order.Item, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, order_id, product_id, quantity, price_at_purchase
		 FROM order_items WHERE order_id = $1 ORDER BY id`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying order items: %w", err)
	}
	defer rows.Close()

	var items []order.Item
	for rows.Next() {
		var it order.Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.PriceAtPurchase); err != nil {
			return nil, fmt.Errorf("scanning order item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func scanOrder(row pgx.Row) (*order.Order, error) {
	var o order.Order
	err := row.Scan(
		&o.ID, &o.CustomerID, &o.Status, &o.Completed, &o.DeliveryAddress, &o.ContactPhone,
		&o.DeliveryDate, &o.DeliveryTime, &o.Note, &o.EmailEnabled, &o.ChatEnabled, &o.TotalPrice,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
