package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPNotifier publishes to a durable topic exchange with routing key
// "appointment.<event type, lower-cased>".
type AMQPNotifier struct {
	mu       sync.Mutex // amqp channels are not safe for concurrent publishing
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func NewAMQPNotifier(url, exchange string) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPNotifier{conn: conn, ch: ch, exchange: exchange}, nil
}

func RoutingKey(eventType string) string {
	return "appointment." + strings.ToLower(eventType)
}

func (n *AMQPNotifier) Publish(ctx context.Context, events []Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, ev := range events {
		err := n.ch.PublishWithContext(ctx, n.exchange, RoutingKey(ev.Type), false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    strconv.FormatInt(ev.ID, 10),
			Type:         ev.Type,
			Timestamp:    ev.CreatedAt,
			Headers: amqp.Table{
				"therapist_id":   ev.TherapistID,
				"appointment_id": ev.AppointmentID,
			},
			Body: payloadOrNull(ev.Payload),
		})
		if err != nil {
			return fmt.Errorf("publish event %d: %w", ev.ID, err)
		}
	}
	return nil
}

func (n *AMQPNotifier) Close() error {
	if n.ch != nil {
		_ = n.ch.Close()
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}
