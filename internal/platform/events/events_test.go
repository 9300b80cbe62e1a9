package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestNew(t *testing.T) {
	evt, err := New(AppointmentCreated, "appt-1", map[string]string{"status": "Scheduled"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if evt.ID == "" || evt.OccurredAt.IsZero() {
		t.Errorf("expected id and timestamp to be set: %+v", evt)
	}
	if string(evt.Payload) != `{"status":"Scheduled"}` {
		t.Errorf("unexpected payload %s", evt.Payload)
	}
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, "clinic.")
	evt, _ := New(AppointmentStatusChanged, "appt-9", map[string]string{"to": "Completed"})

	if err := p.Publish(context.Background(), evt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.msgs))
	}
	msg := w.msgs[0]
	if msg.Topic != "clinic.appointment.status_changed" {
		t.Errorf("unexpected topic %q", msg.Topic)
	}
	if string(msg.Key) != "appt-9" {
		t.Errorf("expected key appt-9, got %q", msg.Key)
	}
	if header(msg, "event_id") != evt.ID || header(msg, "event_type") != evt.Type {
		t.Errorf("unexpected headers %+v", msg.Headers)
	}

	var decoded Event
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("decode value: %v", err)
	}
	if decoded.ID != evt.ID {
		t.Errorf("expected value to carry the event, got %+v", decoded)
	}

	p.Close()
	if !w.closed {
		t.Error("expected Close to close the writer")
	}
}

func TestKafkaPublisher_InjectsTraceContext(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	w := &fakeWriter{}
	evt, _ := New(IntakeSaved, "client-1", nil)
	if err := newKafkaPublisher(w, "").Publish(ctx, evt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	traceparent := header(w.msgs[0], "traceparent")
	if !strings.Contains(traceparent, span.SpanContext().TraceID().String()) {
		t.Errorf("expected traceparent with trace id, got %q", traceparent)
	}

	extracted := ExtractTraceContext(context.Background(), w.msgs[0])
	if got := trace.SpanContextFromContext(extracted).TraceID().String(); got != span.SpanContext().TraceID().String() {
		t.Errorf("expected extracted trace id %s, got %s", span.SpanContext().TraceID(), got)
	}
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	evt, _ := New(AppointmentDeleted, "appt-1", nil)
	err := newKafkaPublisher(w, "x.").Publish(context.Background(), evt)
	if err == nil || !strings.Contains(err.Error(), "broker down") {
		t.Errorf("expected wrapped writer error, got %v", err)
	}
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, Event) error { return errors.New("unavailable") }

func TestEmit_LogsFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	ctx := logger.WithContext(context.Background())

	Emit(ctx, failingPublisher{}, AppointmentCreated, "appt-1", nil)

	if !strings.Contains(buf.String(), "publish event failed") {
		t.Errorf("expected failure to be logged, got %q", buf.String())
	}
}

func TestEmit_Records(t *testing.T) {
	rec := &Recorder{}
	Emit(context.Background(), rec, AppointmentCreated, "a", nil)
	Emit(context.Background(), rec, AppointmentDeleted, "a", nil)
	Emit(context.Background(), nil, AppointmentDeleted, "a", nil)

	types := rec.Types()
	if len(types) != 2 || types[0] != AppointmentCreated || types[1] != AppointmentDeleted {
		t.Errorf("unexpected recorded types %v", types)
	}
}

func TestSplitBrokers(t *testing.T) {
	got := SplitBrokers(" a:9092, ,b:9092 ")
	if len(got) != 2 || got[0] != "a:9092" || got[1] != "b:9092" {
		t.Errorf("unexpected brokers %v", got)
	}
	if SplitBrokers("") != nil {
		t.Error("expected nil for empty list")
	}
}
