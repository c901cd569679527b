package notify

import (
	"fmt"
	"strings"
)

// customerSubject builds the email subject line for a customer notification.
func customerSubject(ev Event) string {
	if ev.Kind == KindCreated {
		return fmt.Sprintf("Order #%s confirmed", shortID(ev.Order.ID))
	}
	return fmt.Sprintf("Order #%s status update", shortID(ev.Order.ID))
}

// customerBody builds the message body sent to the order's customer. The same
// text is used for email and chat.
func customerBody(ev Event) string {
	var b strings.Builder
	o := ev.Order

	switch ev.Kind {
	case KindCreated:
		fmt.Fprintf(&b, "Your order #%s has been placed.\n", shortID(o.ID))
	case KindStatusChanged:
		fmt.Fprintf(&b, "Your order #%s changed status from %q to %q.\n", shortID(o.ID), ev.Previous, ev.New)
	}

	fmt.Fprintf(&b, "Total: %s\n", o.TotalPrice.StringFixed(2))
	fmt.Fprintf(&b, "Delivery address: %s\n", o.DeliveryAddress)
	fmt.Fprintf(&b, "Delivery: %s at %s\n", o.DeliveryDate.Format("2006-01-02"), o.DeliveryTime)
	fmt.Fprintf(&b, "Contact phone: %s", o.ContactPhone)
	return b.String()
}

// staffBody builds the chat broadcast sent to every staff handle.
func staffBody(ev Event) string {
	o := ev.Order
	if ev.Kind == KindCreated {
		return fmt.Sprintf(
			"New order #%s from customer %s, total %s, delivery %s at %s.",
			shortID(o.ID), o.CustomerID, o.TotalPrice.StringFixed(2),
			o.DeliveryDate.Format("2006-01-02"), o.DeliveryTime,
		)
	}
	return fmt.Sprintf(
		"Order #%s of customer %s changed status from %q to %q.",
		shortID(o.ID), o.CustomerID, ev.Previous, ev.New,
	)
}

// shortID truncates a UUID to its first segment for message readability.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
