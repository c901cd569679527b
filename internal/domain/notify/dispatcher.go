package notify

import (
	"context"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bloomhaus/orderflow/internal/domain/order"
)

const (
	defaultWorkers         = 8
	defaultDeliveryTimeout = 10 * time.Second
)

// delivery is one resolved (recipient, channel) pair with its formatted
// message.
type delivery struct {
	channel Channel
	target  string
	subject string
	body    string
}

// FanOut resolves an event's recipient set and delivers one message per
// (recipient, channel) pair over a bounded worker pool. Deliveries are
// independent: a failed or slow pair is logged and abandoned without
// affecting any other pair, and without any signal to the code that
// committed the triggering order mutation.
type FanOut struct {
	customers CustomerDirectory
	staff     StaffDirectory
	email     EmailTransport
	chat      ChatTransport

	workers         int
	deliveryTimeout time.Duration
}

// FanOutOption configures a FanOut.
type FanOutOption func(*FanOut)

// WithWorkers bounds the number of concurrent deliveries.
func WithWorkers(n int) FanOutOption {
	return func(f *FanOut) {
		if n > 0 {
			f.workers = n
		}
	}
}

// WithDeliveryTimeout bounds the time spent on a single delivery before it
// is marked failed and abandoned.
func WithDeliveryTimeout(d time.Duration) FanOutOption {
	return func(f *FanOut) {
		if d > 0 {
			f.deliveryTimeout = d
		}
	}
}

// NewFanOut creates a FanOut dispatcher.
func NewFanOut(
	customers CustomerDirectory,
	staff StaffDirectory,
	email EmailTransport,
	chat ChatTransport,
	opts ...FanOutOption,
) *FanOut {
	f := &FanOut{
		customers:       customers,
		staff:           staff,
		email:           email,
		chat:            chat,
		workers:         defaultWorkers,
		deliveryTimeout: defaultDeliveryTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Dispatch resolves recipients and delivers every pair. It blocks until all
// deliveries have been attempted and never returns an error: failures are
// logged per pair for operators and are invisible to customers and callers.
func (f *FanOut) Dispatch(ctx context.Context, ev Event) {
	deliveries := f.resolve(ctx, ev)
	if len(deliveries) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)
	for _, d := range deliveries {
		g.Go(func() error {
			f.deliver(gctx, ev, d)
			return nil
		})
	}
	_ = g.Wait()
}

// resolve builds the (recipient, channel) pairs for an event.
//
// Customer channels follow the order's own preference flags: a channel is
// skipped when its flag is off or when the customer has no registered
// endpoint for it — a missing endpoint silently suppresses the channel
// rather than erroring. Staff are a separate broadcast policy: every staff
// chat handle is included for every event, chat only, regardless of the
// order's flags.
func (f *FanOut) resolve(ctx context.Context, ev Event) []delivery {
	lg := zctx.From(ctx)
	var out []delivery

	contact, err := f.customers.GetContactInfo(ctx, ev.Order.CustomerID)
	if err != nil {
		lg.Error("resolving customer contact info",
			zap.String("order_id", ev.Order.ID),
			zap.String("customer_id", ev.Order.CustomerID),
			zap.Error(err),
		)
	} else {
		if ev.Order.EmailEnabled && contact.EmailAddress != "" {
			out = append(out, delivery{
				channel: ChannelEmail,
				target:  contact.EmailAddress,
				subject: customerSubject(ev),
				body:    customerBody(ev),
			})
		}
		if ev.Order.ChatEnabled && contact.ChatHandle != "" {
			out = append(out, delivery{
				channel: ChannelChat,
				target:  contact.ChatHandle,
				body:    customerBody(ev),
			})
		}
	}

	handles, err := f.staff.ListStaffChatHandles(ctx)
	if err != nil {
		lg.Error("listing staff chat handles",
			zap.String("order_id", ev.Order.ID),
			zap.Error(err),
		)
		return out
	}
	body := staffBody(ev)
	for _, h := range handles {
		if h == "" {
			continue
		}
		out = append(out, delivery{channel: ChannelChat, target: h, body: body})
	}
	return out
}

// deliver attempts a single pair under the per-delivery timeout.
func (f *FanOut) deliver(ctx context.Context, ev Event, d delivery) {
	sendCtx, cancel := context.WithTimeout(ctx, f.deliveryTimeout)
	defer cancel()

	var err error
	switch d.channel {
	case ChannelEmail:
		err = f.email.Send(sendCtx, d.target, d.subject, d.body)
	case ChannelChat:
		err = f.chat.Send(sendCtx, d.target, d.body)
	}
	if err != nil {
		zctx.From(ctx).Error("notification delivery failed",
			zap.String("order_id", ev.Order.ID),
			zap.String("event", string(ev.Kind)),
			zap.String("channel", string(d.channel)),
			zap.String("recipient", d.target),
			zap.Error(err),
		)
	}
}

// Async wraps a Dispatcher so that Dispatch returns immediately and the
// fan-out runs detached from the request that triggered it. The goroutine
// is started before Dispatch returns, which preserves initiation order of
// successive events for the same order. The wrapped context survives request
// cancellation: dispatch happens strictly after the triggering transaction
// committed and must not be cut short by the HTTP client going away.
type Async struct {
	inner Dispatcher
}

// NewAsync wraps a Dispatcher for post-commit background dispatch.
func NewAsync(inner Dispatcher) *Async {
	return &Async{inner: inner}
}

// Dispatch launches the wrapped dispatcher in a new goroutine.
func (a *Async) Dispatch(ctx context.Context, ev Event) {
	go a.inner.Dispatch(context.WithoutCancel(ctx), ev)
}

// Events adapts a Dispatcher to the order.Notifier interface consumed by the
// checkout and status services.
type Events struct {
	dispatcher Dispatcher
}

var _ order.Notifier = (*Events)(nil)

// NewEvents creates the order.Notifier adapter over a Dispatcher.
func NewEvents(d Dispatcher) *Events {
	return &Events{dispatcher: d}
}

// OrderCreated dispatches a creation event.
func (e *Events) OrderCreated(ctx context.Context, o order.Order) {
	e.dispatcher.Dispatch(ctx, Event{Kind: KindCreated, Order: o})
}

// StatusChanged dispatches a transition event.
func (e *Events) StatusChanged(ctx context.Context, o order.Order, previous, next order.Status) {
	e.dispatcher.Dispatch(ctx, Event{
		Kind:     KindStatusChanged,
		Order:    o,
		Previous: previous,
		New:      next,
	})
}
