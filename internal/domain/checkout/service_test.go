package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloomhaus/orderflow/internal/domain/order"
)

// --- Mock implementations ---

type mockStaging struct {
	drafts map[string]Draft
}

func newMockStaging() *mockStaging {
	return &mockStaging{drafts: make(map[string]Draft)}
}

func (m *mockStaging) Put(customerID string, d Draft) { m.drafts[customerID] = d }

func (m *mockStaging) Get(customerID string) (Draft, bool) {
	d, ok := m.drafts[customerID]
	return d, ok
}

func (m *mockStaging) Clear(customerID string) { delete(m.drafts, customerID) }

type mockLineItems struct {
	items    []LineItem
	listErr  error
	clearErr error
	cleared  bool
}

func (m *mockLineItems) ListCurrentItems(_ context.Context, _ string) ([]LineItem, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.items, nil
}

func (m *mockLineItems) Clear(_ context.Context, _ string) error {
	if m.clearErr != nil {
		return m.clearErr
	}
	m.cleared = true
	return nil
}

type mockOrderRepo struct {
	created   *order.Order
	createErr error
}

func (m *mockOrderRepo) Create(_ context.Context, o *order.Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = o
	return nil
}

func (m *mockOrderRepo) Get(_ context.Context, _ string) (*order.Order, error) {
	return nil, order.ErrNotFound
}

func (m *mockOrderRepo) List(_ context.Context, _ order.Filter) ([]order.Order, error) {
	return nil, nil
}

func (m *mockOrderRepo) History(_ context.Context, _ string) ([]order.AuditEntry, error) {
	return nil, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, _ string, _ func(*order.Order) (*order.Decision, error)) (*order.StatusChange, error) {
	return nil, order.ErrNotFound
}

func (m *mockOrderRepo) SetCompleted(_ context.Context, _ string, _ bool) (*order.Order, error) {
	return nil, order.ErrNotFound
}

type recordingNotifier struct {
	created []order.Order
}

func (n *recordingNotifier) OrderCreated(_ context.Context, o order.Order) {
	n.created = append(n.created, o)
}

func (n *recordingNotifier) StatusChanged(_ context.Context, _ order.Order, _, _ order.Status) {}

// --- Helpers ---

func validDraft() Draft {
	return Draft{
		DeliveryAddress: "12 Rose Lane",
		ContactPhone:    "+15550100",
		DeliveryDate:    time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC),
		DeliveryTime:    "14:30",
		Note:            "leave at the door",
		EmailEnabled:    true,
	}
}

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// --- Tests ---

func TestStage_OverwritesExistingDraft(t *testing.T) {
	staging := newMockStaging()
	svc := NewCommitService(staging, &mockLineItems{}, &mockOrderRepo{}, &recordingNotifier{})

	first := validDraft()
	require.NoError(t, svc.Stage("cust-1", first))

	second := validDraft()
	second.DeliveryAddress = "7 Tulip Court"
	require.NoError(t, svc.Stage("cust-1", second))

	got, ok := svc.Draft("cust-1")
	require.True(t, ok)
	assert.Equal(t, "7 Tulip Court", got.DeliveryAddress)
}

func TestStage_MissingField(t *testing.T) {
	svc := NewCommitService(newMockStaging(), &mockLineItems{}, &mockOrderRepo{}, &recordingNotifier{})

	d := validDraft()
	d.ContactPhone = ""
	err := svc.Stage("cust-1", d)

	var fieldErr *FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "contact_phone", fieldErr.Field)
}

func TestCommit_TotalPriceFromLineItems(t *testing.T) {
	staging := newMockStaging()
	staging.Put("cust-1", validDraft())
	items := &mockLineItems{items: []LineItem{
		{ProductID: "p1", Quantity: 2, UnitPrice: price("3000")},
		{ProductID: "p2", Quantity: 1, UnitPrice: price("4500")},
	}}
	repo := &mockOrderRepo{}
	notifier := &recordingNotifier{}
	svc := NewCommitService(staging, items, repo, notifier)

	o, err := svc.Commit(context.Background(), "cust-1")
	require.NoError(t, err)

	assert.True(t, price("10500").Equal(o.TotalPrice), "total = 2*3000 + 1*4500")
	require.Len(t, o.Items, 2)
	assert.True(t, price("3000").Equal(o.Items[0].PriceAtPurchase))
	assert.True(t, price("4500").Equal(o.Items[1].PriceAtPurchase))
	assert.Equal(t, order.StatusPending, o.Status)
	assert.False(t, o.Completed)
	require.NotNil(t, repo.created)

	// Cart and draft are gone, creation event emitted.
	assert.True(t, items.cleared)
	_, ok := staging.Get("cust-1")
	assert.False(t, ok)
	require.Len(t, notifier.created, 1)
	assert.Equal(t, o.ID, notifier.created[0].ID)
}

func TestCommit_NoDraft(t *testing.T) {
	svc := NewCommitService(newMockStaging(), &mockLineItems{}, &mockOrderRepo{}, &recordingNotifier{})

	_, err := svc.Commit(context.Background(), "cust-1")
	require.ErrorIs(t, err, ErrNoDraft)
}

func TestCommit_EmptyCart(t *testing.T) {
	staging := newMockStaging()
	staging.Put("cust-1", validDraft())
	svc := NewCommitService(staging, &mockLineItems{}, &mockOrderRepo{}, &recordingNotifier{})

	_, err := svc.Commit(context.Background(), "cust-1")
	require.ErrorIs(t, err, ErrEmptyCart)

	// The draft stays staged for a retry.
	_, ok := staging.Get("cust-1")
	assert.True(t, ok)
}

func TestCommit_TransactionFailureLeavesSourcesIntact(t *testing.T) {
	staging := newMockStaging()
	staging.Put("cust-1", validDraft())
	items := &mockLineItems{items: []LineItem{{ProductID: "p1", Quantity: 1, UnitPrice: price("500")}}}
	repo := &mockOrderRepo{createErr: errors.New("tx aborted")}
	notifier := &recordingNotifier{}
	svc := NewCommitService(staging, items, repo, notifier)

	_, err := svc.Commit(context.Background(), "cust-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create order")

	assert.False(t, items.cleared)
	_, ok := staging.Get("cust-1")
	assert.True(t, ok)
	assert.Empty(t, notifier.created)
}

func TestCommit_SecondCommitRejected(t *testing.T) {
	staging := newMockStaging()
	staging.Put("cust-1", validDraft())
	items := &mockLineItems{items: []LineItem{{ProductID: "p1", Quantity: 1, UnitPrice: price("500")}}}
	svc := NewCommitService(staging, items, &mockOrderRepo{}, &recordingNotifier{})

	_, err := svc.Commit(context.Background(), "cust-1")
	require.NoError(t, err)

	_, err = svc.Commit(context.Background(), "cust-1")
	require.ErrorIs(t, err, ErrNoDraft)
}

func TestCommit_CartClearFailureStillSucceeds(t *testing.T) {
	staging := newMockStaging()
	staging.Put("cust-1", validDraft())
	items := &mockLineItems{
		items:    []LineItem{{ProductID: "p1", Quantity: 1, UnitPrice: price("500")}},
		clearErr: errors.New("cart store unreachable"),
	}
	notifier := &recordingNotifier{}
	svc := NewCommitService(staging, items, &mockOrderRepo{}, notifier)

	o, err := svc.Commit(context.Background(), "cust-1")
	require.NoError(t, err)
	require.NotNil(t, o)

	// The committed order is reported as success and the event still fires.
	require.Len(t, notifier.created, 1)
}

func TestCommit_DraftFieldsCopied(t *testing.T) {
	staging := newMockStaging()
	d := validDraft()
	d.ChatEnabled = true
	staging.Put("cust-1", d)
	items := &mockLineItems{items: []LineItem{{ProductID: "p1", Quantity: 1, UnitPrice: price("500")}}}
	svc := NewCommitService(staging, items, &mockOrderRepo{}, &recordingNotifier{})

	o, err := svc.Commit(context.Background(), "cust-1")
	require.NoError(t, err)

	assert.Equal(t, d.DeliveryAddress, o.DeliveryAddress)
	assert.Equal(t, d.ContactPhone, o.ContactPhone)
	assert.Equal(t, d.DeliveryTime, o.DeliveryTime)
	assert.Equal(t, d.Note, o.Note)
	assert.True(t, o.EmailEnabled)
	assert.True(t, o.ChatEnabled)
}
