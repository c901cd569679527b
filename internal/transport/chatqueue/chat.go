// Package chatqueue delivers chat notifications by publishing them to a
// RabbitMQ queue consumed by the separately-deployed bot process. Queueing
// instead of calling the bot API directly keeps chat delivery available
// while the bot restarts.
package chatqueue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/bloomhaus/orderflow/internal/domain/notify"
)

// DefaultQueue is the queue the bot process consumes.
const DefaultQueue = "orderflow.chat"

var _ notify.ChatTransport = (*Transport)(nil)

// Transport publishes chat messages to a durable queue.
type Transport struct {
	conn  *amqp.Connection
	queue string
}

// message is the wire payload the bot consumes.
type message struct {
	Handle string    `json:"handle"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sent_at"`
}

// Dial connects to the broker and declares the queue.
func Dial(url, queue string) (*Transport, error) {
	if queue == "" {
		queue = DefaultQueue
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "dial broker")
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "open channel")
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "declare queue")
	}

	return &Transport{conn: conn, queue: queue}, nil
}

// Send publishes one chat message. A short-lived channel per publish keeps
// the transport safe for the dispatcher's concurrent workers.
func (t *Transport) Send(ctx context.Context, handle, body string) error {
	ch, err := t.conn.Channel()
	if err != nil {
		return errors.Wrap(err, "open channel")
	}
	defer ch.Close()

	payload, err := json.Marshal(message{Handle: handle, Text: body, SentAt: time.Now().UTC()})
	if err != nil {
		return errors.Wrap(err, "marshal message")
	}

	err = ch.PublishWithContext(ctx, "", t.queue, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Body:         payload,
	})
	if err != nil {
		return errors.Wrap(err, "publish message")
	}
	return nil
}

// Close closes the broker connection.
func (t *Transport) Close() error {
	return t.conn.Close()
}
