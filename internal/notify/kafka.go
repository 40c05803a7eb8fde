package notify

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// KafkaNotifier publishes each event to <prefix><event type, lower-cased>, keyed by
// therapist so one therapist's events stay ordered within a partition.
type KafkaNotifier struct {
	writer *kafka.Writer
	prefix string
}

func NewKafkaNotifier(brokers, topicPrefix string) *KafkaNotifier {
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(SplitBrokers(brokers)...),
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
			BatchTimeout:           50 * time.Millisecond,
			RequiredAcks:           kafka.RequireAll,
		},
		prefix: topicPrefix,
	}
}

func (n *KafkaNotifier) Publish(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	for _, ev := range events {
		msg := kafka.Message{
			Topic: n.Topic(ev.Type),
			Key:   []byte(ev.TherapistID),
			Value: ev.Payload,
			Headers: []kafka.Header{
				{Key: "event_id", Value: []byte(strconv.FormatInt(ev.ID, 10))},
				{Key: "event_type", Value: []byte(ev.Type)},
				{Key: "appointment_id", Value: []byte(ev.AppointmentID)},
			},
			Time: ev.CreatedAt,
		}
		msg.Headers = InjectTraceHeaders(ctx, msg.Headers)
		msgs = append(msgs, msg)
	}

	return n.writer.WriteMessages(ctx, msgs...)
}

func (n *KafkaNotifier) Topic(eventType string) string {
	return n.prefix + strings.ToLower(eventType)
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}

func SplitBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// InjectTraceHeaders appends W3C trace context headers using the global propagator.
func InjectTraceHeaders(ctx context.Context, headers []kafka.Header) []kafka.Header {
	carrier := &headerCarrier{headers: headers}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return carrier.headers
}

type headerCarrier struct {
	headers []kafka.Header
}

func (c *headerCarrier) Get(key string) string {
	for _, h := range c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.headers))
	for _, h := range c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}

func (c *headerCarrier) Set(key, value string) {
	for i := range c.headers {
		if c.headers[i].Key == key {
			c.headers[i].Value = []byte(value)
			return
		}
	}
	c.headers = append(c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

var _ propagation.TextMapCarrier = (*headerCarrier)(nil)
