package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloomhaus/orderflow/internal/domain/order"
)

// --- Mock implementations ---

type mockCustomers struct {
	contact ContactInfo
	err     error
}

func (m *mockCustomers) GetContactInfo(_ context.Context, _ string) (ContactInfo, error) {
	return m.contact, m.err
}

type mockStaff struct {
	handles []string
	err     error
}

func (m *mockStaff) ListStaffChatHandles(_ context.Context) ([]string, error) {
	return m.handles, m.err
}

type sentEmail struct {
	address string
	subject string
	body    string
}

type mockEmail struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (m *mockEmail) Send(_ context.Context, address, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentEmail{address: address, subject: subject, body: body})
	return nil
}

type sentChat struct {
	handle string
	body   string
}

type mockChat struct {
	mu   sync.Mutex
	sent []sentChat
	err  error
}

func (m *mockChat) Send(_ context.Context, handle, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentChat{handle: handle, body: body})
	return nil
}

func (m *mockChat) handles() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.sent))
	for i, s := range m.sent {
		out[i] = s.handle
	}
	return out
}

// --- Helpers ---

func testOrder(email, chat bool) order.Order {
	return order.Order{
		ID:              "3f1c0d2a-order",
		CustomerID:      "cust-1",
		Status:          order.StatusPending,
		DeliveryAddress: "12 Rose Lane",
		ContactPhone:    "+15550100",
		DeliveryDate:    time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC),
		DeliveryTime:    "14:30",
		EmailEnabled:    email,
		ChatEnabled:     chat,
		TotalPrice:      decimal.RequireFromString("10500"),
	}
}

func changedEvent(o order.Order) Event {
	return Event{
		Kind:     KindStatusChanged,
		Order:    o,
		Previous: order.StatusPending,
		New:      order.StatusDelivered,
	}
}

// --- Tests ---

func TestDispatch_CustomerBothChannels(t *testing.T) {
	email := &mockEmail{}
	chat := &mockChat{}
	f := NewFanOut(
		&mockCustomers{contact: ContactInfo{EmailAddress: "c@example.com", ChatHandle: "@cust"}},
		&mockStaff{},
		email, chat,
	)

	f.Dispatch(context.Background(), changedEvent(testOrder(true, true)))

	require.Len(t, email.sent, 1)
	assert.Equal(t, "c@example.com", email.sent[0].address)
	assert.Contains(t, email.sent[0].subject, "status update")
	assert.Contains(t, email.sent[0].body, `from "pending" to "delivered"`)
	assert.Contains(t, email.sent[0].body, "12 Rose Lane")

	require.Len(t, chat.sent, 1)
	assert.Equal(t, "@cust", chat.sent[0].handle)
}

func TestDispatch_ChannelSuppressedWithoutEndpoint(t *testing.T) {
	email := &mockEmail{}
	chat := &mockChat{}
	// Chat enabled on the order but no registered handle: zero chat
	// deliveries and no error.
	f := NewFanOut(
		&mockCustomers{contact: ContactInfo{EmailAddress: "c@example.com"}},
		&mockStaff{},
		email, chat,
	)

	f.Dispatch(context.Background(), changedEvent(testOrder(true, true)))

	assert.Len(t, email.sent, 1)
	assert.Empty(t, chat.sent)
}

func TestDispatch_DisabledFlagsSuppressCustomerChannels(t *testing.T) {
	email := &mockEmail{}
	chat := &mockChat{}
	f := NewFanOut(
		&mockCustomers{contact: ContactInfo{EmailAddress: "c@example.com", ChatHandle: "@cust"}},
		&mockStaff{},
		email, chat,
	)

	f.Dispatch(context.Background(), changedEvent(testOrder(false, false)))

	assert.Empty(t, email.sent)
	assert.Empty(t, chat.sent)
}

func TestDispatch_StaffBroadcastIgnoresOrderFlags(t *testing.T) {
	email := &mockEmail{}
	chat := &mockChat{}
	f := NewFanOut(
		&mockCustomers{contact: ContactInfo{EmailAddress: "c@example.com", ChatHandle: "@cust"}},
		&mockStaff{handles: []string{"@admin1", "@admin2"}},
		email, chat,
	)

	// Both customer flags off: staff chat still receives the broadcast.
	f.Dispatch(context.Background(), changedEvent(testOrder(false, false)))

	assert.Empty(t, email.sent)
	assert.ElementsMatch(t, []string{"@admin1", "@admin2"}, chat.handles())
	for _, s := range chat.sent {
		assert.Contains(t, s.body, "cust-1")
	}
}

func TestDispatch_StaffNeverGetEmail(t *testing.T) {
	email := &mockEmail{}
	chat := &mockChat{}
	f := NewFanOut(
		&mockCustomers{},
		&mockStaff{handles: []string{"@admin1"}},
		email, chat,
	)

	f.Dispatch(context.Background(), changedEvent(testOrder(false, false)))

	assert.Empty(t, email.sent)
	assert.Len(t, chat.sent, 1)
}

func TestDispatch_EmailFailureDoesNotBlockChat(t *testing.T) {
	email := &mockEmail{err: errors.New("smtp down")}
	chat := &mockChat{}
	f := NewFanOut(
		&mockCustomers{contact: ContactInfo{EmailAddress: "c@example.com", ChatHandle: "@cust"}},
		&mockStaff{handles: []string{"@admin1"}},
		email, chat,
	)

	f.Dispatch(context.Background(), changedEvent(testOrder(true, true)))

	assert.ElementsMatch(t, []string{"@cust", "@admin1"}, chat.handles())
}

func TestDispatch_CustomerDirectoryFailureStillReachesStaff(t *testing.T) {
	chat := &mockChat{}
	f := NewFanOut(
		&mockCustomers{err: errors.New("directory unavailable")},
		&mockStaff{handles: []string{"@admin1"}},
		&mockEmail{}, chat,
	)

	f.Dispatch(context.Background(), changedEvent(testOrder(true, true)))

	assert.ElementsMatch(t, []string{"@admin1"}, chat.handles())
}

func TestDispatch_StaffDirectoryFailureStillReachesCustomer(t *testing.T) {
	email := &mockEmail{}
	f := NewFanOut(
		&mockCustomers{contact: ContactInfo{EmailAddress: "c@example.com"}},
		&mockStaff{err: errors.New("directory unavailable")},
		email, &mockChat{},
	)

	f.Dispatch(context.Background(), changedEvent(testOrder(true, false)))

	assert.Len(t, email.sent, 1)
}

func TestDispatch_CreatedEventContent(t *testing.T) {
	email := &mockEmail{}
	chat := &mockChat{}
	f := NewFanOut(
		&mockCustomers{contact: ContactInfo{EmailAddress: "c@example.com"}},
		&mockStaff{handles: []string{"@admin1"}},
		email, chat,
	)

	f.Dispatch(context.Background(), Event{Kind: KindCreated, Order: testOrder(true, false)})

	require.Len(t, email.sent, 1)
	assert.Contains(t, email.sent[0].subject, "confirmed")
	assert.Contains(t, email.sent[0].body, "has been placed")
	assert.Contains(t, email.sent[0].body, "10500.00")

	require.Len(t, chat.sent, 1)
	assert.Contains(t, chat.sent[0].body, "New order")
}

func TestDispatch_BlankStaffHandlesSkipped(t *testing.T) {
	chat := &mockChat{}
	f := NewFanOut(&mockCustomers{}, &mockStaff{handles: []string{"", "@admin1", ""}}, &mockEmail{}, chat)

	f.Dispatch(context.Background(), changedEvent(testOrder(false, false)))

	assert.ElementsMatch(t, []string{"@admin1"}, chat.handles())
}

func TestEventsAdapter(t *testing.T) {
	rec := &recordingDispatcher{}
	events := NewEvents(rec)
	o := testOrder(true, true)

	events.OrderCreated(context.Background(), o)
	events.StatusChanged(context.Background(), o, order.StatusPending, order.StatusProcessing)

	require.Len(t, rec.events, 2)
	assert.Equal(t, KindCreated, rec.events[0].Kind)
	assert.Equal(t, KindStatusChanged, rec.events[1].Kind)
	assert.Equal(t, order.StatusPending, rec.events[1].Previous)
	assert.Equal(t, order.StatusProcessing, rec.events[1].New)
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingDispatcher) Dispatch(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func TestAsync_DispatchReturnsImmediately(t *testing.T) {
	done := make(chan struct{})
	a := NewAsync(dispatcherFunc(func(_ context.Context, _ Event) {
		close(done)
	}))

	a.Dispatch(context.Background(), changedEvent(testOrder(true, true)))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("async dispatch never ran")
	}
}

type dispatcherFunc func(ctx context.Context, ev Event)

func (f dispatcherFunc) Dispatch(ctx context.Context, ev Event) { f(ctx, ev) }
