package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bloomhaus/orderflow/internal/domain/notify"
)

var (
	_ notify.CustomerDirectory = (*UserDirectory)(nil)
	_ notify.StaffDirectory    = (*UserDirectory)(nil)
)

// UserDirectory serves contact lookups for notification fan-out from the
// users table. It implements both the customer and the staff directory.
type UserDirectory struct {
	pool *pgxpool.Pool
}

// NewUserDirectory returns a UserDirectory that uses the given pool.
func NewUserDirectory(pool *pgxpool.Pool) *UserDirectory {
	return &UserDirectory{pool: pool}
}

// GetContactInfo returns the customer's registered email address and chat
// handle. Unregistered endpoints come back empty, which suppresses the
// corresponding channel downstream.
func (d *UserDirectory) GetContactInfo(ctx context.Context, customerID string) (notify.ContactInfo, error) {
	var info notify.ContactInfo
	err := d.pool.QueryRow(ctx,
		`SELECT email, chat_handle FROM users WHERE id = $1`,
		customerID,
	).Scan(&info.EmailAddress, &info.ChatHandle)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return notify.ContactInfo{}, fmt.Errorf("customer %q not found", customerID)
		}
		return notify.ContactInfo{}, fmt.Errorf("looking up contact info: %w", err)
	}
	return info, nil
}

// ListStaffChatHandles returns the chat handles of all staff users that
// have one registered.
func (d *UserDirectory) ListStaffChatHandles(ctx context.Context) ([]string, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT chat_handle FROM users WHERE is_staff AND chat_handle <> ''`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing staff chat handles: %w", err)
	}
	defer rows.Close()

	var handles []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("scanning chat handle: %w", err)
		}
		handles = append(handles, h)
	}
	return handles, rows.Err()
}
