package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ErrNoMessage indicates a receive timed out with nothing queued
var ErrNoMessage = errors.New("no message available")

// Client is a Redis-list message queue. Sends push to the head, receives
// pop from the tail; delivery is at-least-once and ordering across
// messages is not guaranteed.
type Client struct {
	client *redis.Client
	logger *zap.Logger
}

// NewClient connects to the queue service and verifies the connection
func NewClient(rawURL string, logger *zap.Logger) (*Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse queue URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to queue service: %w", err)
	}

	logger.Info("Queue client initialized", zap.String("url", maskQueueURL(rawURL)))

	return &Client{client: client, logger: logger}, nil
}

// Send publishes one payload to the named queue
func (c *Client) Send(ctx context.Context, queueName string, payload []byte) error {
	if err := c.client.LPush(ctx, queueName, payload).Err(); err != nil {
		return fmt.Errorf("failed to send message to queue %s: %w", queueName, err)
	}

	c.logger.Debug("Message sent",
		zap.String("queue", queueName),
		zap.Int("bytes", len(payload)))

	return nil
}

// Receive blocks up to timeout for one payload from the named queue
func (c *Client) Receive(ctx context.Context, queueName string, timeout time.Duration) ([]byte, error) {
	result, err := c.client.BRPop(ctx, timeout, queueName).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoMessage
		}
		return nil, fmt.Errorf("failed to receive from queue %s: %w", queueName, err)
	}

	// result[0] is the queue name, result[1] the payload
	return []byte(result[1]), nil
}

// Close closes the underlying connection pool
func (c *Client) Close() error {
	return c.client.Close()
}

// IsTransient reports whether a queue error should be retried. Sends are
// retried on any failure except cancellation, matching the at-least-once
// delivery posture.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return !errors.Is(err, ErrNoMessage)
}

// maskQueueURL masks the key in a queue URL for logging
func maskQueueURL(url string) string {
	if !strings.Contains(url, "@") {
		return url
	}
	parts := strings.SplitN(url, "@", 2)
	if idx := strings.LastIndex(parts[0], ":"); idx > strings.Index(parts[0], "//")+1 {
		parts[0] = parts[0][:idx] + ":***"
	}
	return parts[0] + "@" + parts[1]
}
