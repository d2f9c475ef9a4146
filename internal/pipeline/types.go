package pipeline

import (
	"context"

	"github.com/cardguard/remediator/internal/auditstore"
	"github.com/cardguard/remediator/internal/redact"
)

// ObjectRef identifies one arrived object in the quarantine location
type ObjectRef struct {
	Container string `json:"container"`
	Name      string `json:"name"`
	Size      int64  `json:"size"`
}

// AuditStore is the append-only remediation ledger collaborator
type AuditStore interface {
	Append(ctx context.Context, record auditstore.Record) error
}

// Notifier publishes one status message to a named queue
type Notifier interface {
	Send(ctx context.Context, queueName string, message any) error
}

// Redactor scrubs raw content
type Redactor interface {
	Redact(raw string) (redact.Result, error)
}
