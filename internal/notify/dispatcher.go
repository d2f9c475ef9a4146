package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/cardguard/remediator/internal/retry"
)

// Sender is the queue transport the dispatcher publishes through
type Sender interface {
	Send(ctx context.Context, queueName string, payload []byte) error
}

// DeliveryError indicates a notification could not be sent after retries.
// It never masks the pipeline error that triggered the notification.
type DeliveryError struct {
	Queue string
	Err   error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("notification delivery to queue %s failed: %v", e.Queue, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Dispatcher serializes status messages and publishes them through a
// retried queue send. Each logical queue is addressed independently; a
// failed send is never redirected to another queue.
type Dispatcher struct {
	sender Sender
	spec   retry.Spec
	logger *zap.Logger
}

// NewDispatcher creates a dispatcher with the queue retry spec
func NewDispatcher(sender Sender, retryable func(error) bool, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		sender: sender,
		spec:   retry.QueueSpec(retryable),
		logger: logger,
	}
}

// Send serializes message to JSON and publishes it to queueName
func (d *Dispatcher) Send(ctx context.Context, queueName string, message any) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to serialize notification: %w", err)
	}

	_, err = retry.Do(ctx, d.logger, d.spec, "send notification", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, d.sender.Send(ctx, queueName, payload)
	})
	if err != nil {
		return &DeliveryError{Queue: queueName, Err: err}
	}

	d.logger.Info("Notification delivered", zap.String("queue", queueName))
	return nil
}
