package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cardguard/remediator/internal/config"
	"github.com/cardguard/remediator/internal/logger"
	"github.com/cardguard/remediator/internal/pipeline"
	"github.com/cardguard/remediator/internal/queue"
)

// Handler processes one arrived object
type Handler interface {
	Handle(ctx context.Context, obj pipeline.ObjectRef) error
}

// Receiver is the queue transport arrival events are consumed from
type Receiver interface {
	Receive(ctx context.Context, queueName string, timeout time.Duration) ([]byte, error)
}

// Consumer pulls object-arrival events from the arrival queue and
// dispatches each on its own goroutine. Delivery is at-least-once;
// duplicate events are not deduplicated here.
type Consumer struct {
	receiver Receiver
	handler  Handler
	queue    string
	limiter  *rate.Limiter
	timeout  time.Duration
	logger   *logger.Logger
	wg       sync.WaitGroup
}

// NewConsumer creates an arrival-queue consumer
func NewConsumer(cfg config.TriggerConfig, receiver Receiver, handler Handler, log *logger.Logger) *Consumer {
	timeout := cfg.DrainTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Consumer{
		receiver: receiver,
		handler:  handler,
		queue:    cfg.ArrivalQueue,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		timeout:  timeout,
		logger:   log,
	}
}

// Run consumes arrival events until ctx is canceled, then waits for
// in-flight invocations to drain.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("Arrival consumer started", zap.String("queue", c.queue))

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			break
		}

		payload, err := c.receiver.Receive(ctx, c.queue, 5*time.Second)
		if err != nil {
			if errors.Is(err, queue.ErrNoMessage) {
				continue
			}
			if ctx.Err() != nil {
				break
			}
			c.logger.Error("Failed to receive arrival event", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}

		var obj pipeline.ObjectRef
		if err := json.Unmarshal(payload, &obj); err != nil {
			c.logger.Error("Discarding malformed arrival event", zap.Error(err))
			continue
		}
		if obj.Container == "" || obj.Name == "" {
			c.logger.Error("Discarding arrival event with missing object identity",
				zap.String("container", obj.Container),
				zap.String("name", obj.Name))
			continue
		}

		c.wg.Add(1)
		go func() {
			defer c.wg.Done()

			// The arrival event is already consumed and will not be
			// redelivered, so the invocation runs detached from the
			// consumer's cancellation and shutdown drains it instead
			// of aborting it mid-pipeline.
			invCtx, cancel := context.WithTimeout(context.Background(), c.timeout)
			defer cancel()

			// Handle reports its own failures through the failure queue.
			_ = c.handler.Handle(invCtx, obj)
		}()
	}

	c.wg.Wait()
	c.logger.Info("Arrival consumer stopped")
	return ctx.Err()
}
