// Package notify implements the notification fan-out dispatcher. A committed
// order mutation produces one event; the dispatcher resolves the event into
// independent (recipient, channel) deliveries so that no external channel can
// corrupt or stall the order state that triggered it.
package notify

import (
	"context"

	"github.com/bloomhaus/orderflow/internal/domain/order"
)

// Kind discriminates notification events.
type Kind string

const (
	KindCreated       Kind = "created"
	KindStatusChanged Kind = "status_changed"
)

// Event carries an immutable order snapshot and, for status changes, the
// transition edge.
type Event struct {
	Kind     Kind
	Order    order.Order
	Previous order.Status
	New      order.Status
}

// Channel identifies a delivery transport.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelChat  Channel = "chat"
)

// ContactInfo is a customer's registered delivery endpoints. Empty fields
// mean the customer has not registered that endpoint.
type ContactInfo struct {
	EmailAddress string
	ChatHandle   string
}

// CustomerDirectory resolves a customer's registered contact endpoints.
type CustomerDirectory interface {
	GetContactInfo(ctx context.Context, customerID string) (ContactInfo, error)
}

// StaffDirectory lists the chat handles of every staff user. Staff receive
// chat notifications for every order event regardless of the order's own
// preference flags.
type StaffDirectory interface {
	ListStaffChatHandles(ctx context.Context) ([]string, error)
}

// EmailTransport delivers one email message.
type EmailTransport interface {
	Send(ctx context.Context, address, subject, body string) error
}

// ChatTransport delivers one chat message to a handle.
type ChatTransport interface {
	Send(ctx context.Context, handle, body string) error
}

// Dispatcher fans an event out to its resolved recipients. Implementations
// never surface delivery failures to the caller.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev Event)
}
