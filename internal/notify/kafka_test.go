package notify

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestSplitBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, SplitBrokers(" a:9092, ,b:9092 "))
	assert.Nil(t, SplitBrokers(""))
}

func TestTopicAndRoutingKey(t *testing.T) {
	n := &KafkaNotifier{prefix: "booking."}
	assert.Equal(t, "booking.appointment_cancelled", n.Topic("APPOINTMENT_CANCELLED"))
	assert.Equal(t, "appointment.appointment_created", RoutingKey("APPOINTMENT_CREATED"))
}

func TestInjectTraceHeaders(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
		SpanID:     trace.SpanID{1, 2, 3, 4, 5, 6, 7, 8},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	headers := InjectTraceHeaders(ctx, []kafka.Header{{Key: "event_id", Value: []byte("1")}})

	carrier := &headerCarrier{headers: headers}
	assert.Equal(t, "1", carrier.Get("event_id"))
	assert.Equal(t, "00-0102030405060708090a0b0c0d0e0f10-0102030405060708-01", carrier.Get("traceparent"))
}
