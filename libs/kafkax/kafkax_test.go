package kafkax

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestExtractEventMetaFallsBackToKeyAndTopic(t *testing.T) {
	msg := kafka.Message{Topic: "appointment.booked", Key: []byte("evt-1")}
	meta := ExtractEventMeta(msg)
	assert.Equal(t, "evt-1", meta.EventID)
	assert.Equal(t, "appointment.booked", meta.EventType)

	msg.Headers = EventMeta{EventID: "evt-2", EventType: "x", BusinessID: "b1"}.Headers()
	meta = ExtractEventMeta(msg)
	assert.Equal(t, EventMeta{EventID: "evt-2", EventType: "x", BusinessID: "b1"}, meta)
}

func TestSplitBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, SplitBrokers(" a:9092, ,b:9092 "))
	assert.Nil(t, SplitBrokers(""))
}

func TestTraceHeadersRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "publish")
	defer span.End()

	headers := InjectTraceHeaders(ctx, []kafka.Header{{Key: HeaderEventID, Value: []byte("e")}})
	require.NotEmpty(t, HeaderValue(headers, "traceparent"))

	out := ExtractTraceContext(context.Background(), kafka.Message{Headers: headers})
	assert.Equal(t, span.SpanContext().TraceID(), trace.SpanContextFromContext(out).TraceID())
}

func TestReadyCheckWithoutBrokers(t *testing.T) {
	assert.ErrorIs(t, ReadyCheck(" , ")(context.Background()), ErrNoBrokers)
}

func TestReadyCheckReportsEveryBroker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := ReadyCheck("127.0.0.1:1,127.0.0.1:2")(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
	assert.Contains(t, err.Error(), "127.0.0.1:2")
}
