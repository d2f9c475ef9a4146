package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

type recordingSender struct {
	queues   []string
	payloads [][]byte
	errs     []error
}

func (s *recordingSender) Send(ctx context.Context, queueName string, payload []byte) error {
	s.queues = append(s.queues, queueName)
	s.payloads = append(s.payloads, payload)
	if len(s.errs) == 0 {
		return nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return err
}

func fastDispatcher(sender Sender, retryable func(error) bool) *Dispatcher {
	d := NewDispatcher(sender, retryable, zap.NewNop())
	d.spec.InitialDelay = time.Millisecond
	return d
}

func TestDispatcherSendsSerializedMessage(t *testing.T) {
	sender := &recordingSender{}
	d := fastDispatcher(sender, func(error) bool { return true })

	processedAt := time.Date(2024, 3, 15, 10, 30, 45, 0, time.UTC)
	msg := NewSuccess("quarantine", "sanitized", "data.csv", "data_redacted_20240315103045.csv", processedAt)

	if err := d.Send(context.Background(), "redaction-success", msg); err != nil {
		t.Fatalf("Send() = %v, want nil", err)
	}
	if len(sender.queues) != 1 || sender.queues[0] != "redaction-success" {
		t.Fatalf("sent to queues %v, want [redaction-success]", sender.queues)
	}

	var decoded map[string]any
	if err := json.Unmarshal(sender.payloads[0], &decoded); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	for key, want := range map[string]string{
		"status":         "success",
		"sourceLocation": "quarantine",
		"destLocation":   "sanitized",
		"originalName":   "data.csv",
		"derivedName":    "data_redacted_20240315103045.csv",
	} {
		if decoded[key] != want {
			t.Errorf("payload[%q] = %v, want %q", key, decoded[key], want)
		}
	}
	if _, ok := decoded["processedAt"]; !ok {
		t.Error("payload is missing processedAt")
	}
}

func TestDispatcherRetriesTransientSendFailure(t *testing.T) {
	transient := errors.New("connection reset")
	sender := &recordingSender{errs: []error{transient, transient}}
	d := fastDispatcher(sender, func(error) bool { return true })

	if err := d.Send(context.Background(), "redaction-success", NewFailure("data.csv", transient, "", time.Now())); err != nil {
		t.Fatalf("Send() = %v, want nil after retries", err)
	}
	if len(sender.queues) != 3 {
		t.Fatalf("sender called %d times, want 3", len(sender.queues))
	}
}

func TestDispatcherWrapsExhaustedSendInDeliveryError(t *testing.T) {
	sendErr := errors.New("queue does not exist")
	sender := &recordingSender{errs: []error{sendErr}}
	d := fastDispatcher(sender, func(error) bool { return false })

	err := d.Send(context.Background(), "redaction-failure", NewFailure("data.csv", sendErr, "", time.Now()))

	var de *DeliveryError
	if !errors.As(err, &de) {
		t.Fatalf("Send() = %v, want *DeliveryError", err)
	}
	if de.Queue != "redaction-failure" {
		t.Errorf("DeliveryError.Queue = %q, want redaction-failure", de.Queue)
	}
	if !errors.Is(err, sendErr) {
		t.Error("DeliveryError does not unwrap to the send error")
	}
	if len(sender.queues) != 1 {
		t.Errorf("sender called %d times, want 1 for a non-retryable failure", len(sender.queues))
	}
}

func TestDispatcherRejectsUnserializableMessage(t *testing.T) {
	sender := &recordingSender{}
	d := fastDispatcher(sender, func(error) bool { return true })

	err := d.Send(context.Background(), "redaction-success", func() {})
	if err == nil {
		t.Fatal("Send() = nil, want serialization error")
	}
	if len(sender.queues) != 0 {
		t.Error("sender was called for an unserializable message")
	}
}
