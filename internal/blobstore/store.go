package blobstore

import (
	"context"
	"errors"
	"net"

	"github.com/aws/smithy-go"
)

// Store is the object store the pipeline fetches from and relocates
// through. Put creates or overwrites; EnsureContainer is idempotent.
type Store interface {
	Get(ctx context.Context, container, name string) ([]byte, error)
	Put(ctx context.Context, container, name string, content []byte) error
	Delete(ctx context.Context, container, name string) error
	EnsureContainer(ctx context.Context, container string) error
}

// ErrObjectNotFound indicates the requested object does not exist in the
// container. Under at-least-once triggering an object may not be visible
// yet when its arrival event lands, so this is classified as transient.
var ErrObjectNotFound = errors.New("object not found")

// IsTransient reports whether a store error is expected to clear on retry:
// not-found-yet, timeouts, and service throttling.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrObjectNotFound) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "Throttling", "ThrottlingException", "SlowDown", "RequestTimeout", "InternalError", "ServiceUnavailable":
			return true
		}
	}

	return false
}
