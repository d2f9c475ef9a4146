package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cardguard/remediator/internal/auditstore"
	"github.com/cardguard/remediator/internal/blobstore"
	"github.com/cardguard/remediator/internal/logger"
	"github.com/cardguard/remediator/internal/metrics"
	"github.com/cardguard/remediator/internal/notify"
	"github.com/cardguard/remediator/internal/retry"
)

// Config contains the orchestrator's fixed locations and queue names
type Config struct {
	DestinationContainer string
	SuccessQueue         string
	FailureQueue         string
}

// Orchestrator sequences the remediation of one arrived object:
// fetch, redact, relocate, delete source, audit, notify. Invocations for
// different objects may run concurrently; the orchestrator holds no
// mutable state across them.
type Orchestrator struct {
	cfg         Config
	objects     blobstore.Store
	audit       AuditStore
	engine      Redactor
	notifier    Notifier
	metrics     *metrics.Metrics
	storageSpec retry.Spec
	logger      *logger.Logger
	now         func() time.Time
}

// New creates a pipeline orchestrator
func New(cfg Config, objects blobstore.Store, audit AuditStore, engine Redactor, notifier Notifier, m *metrics.Metrics, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:         cfg,
		objects:     objects,
		audit:       audit,
		engine:      engine,
		notifier:    notifier,
		metrics:     m,
		storageSpec: retry.StorageSpec(blobstore.IsTransient),
		logger:      log,
		now:         time.Now,
	}
}

// DerivedName returns "{base}_redacted_{timestamp}{ext}" with a
// whole-second UTC timestamp. Concurrent invocations on an accidentally
// duplicated source object land on distinct destination names instead of
// colliding.
func DerivedName(name string, now time.Time) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	return fmt.Sprintf("%s_redacted_%s%s", base, now.UTC().Format("20060102150405"), ext)
}

// Handle runs the full remediation for one arrived object. Exactly one
// notification is emitted: success on completion, failure on any stage
// error. The stage error, not a notification error, is what propagates to
// the caller.
func (o *Orchestrator) Handle(ctx context.Context, obj ObjectRef) error {
	start := o.now()
	log := o.logger.WithInvocation(uuid.NewString())

	log.Info("Remediation started",
		zap.String("container", obj.Container),
		zap.String("object", obj.Name),
		zap.Int64("size", obj.Size))

	err := o.run(ctx, log, obj)
	o.metrics.Duration.Observe(o.now().Sub(start).Seconds())

	if err != nil {
		o.metrics.Invocations.WithLabelValues("failure").Inc()
		log.Error("Remediation failed",
			zap.String("object", obj.Name),
			zap.Error(err))
		o.reportFailure(log, obj, err)
		return err
	}

	o.metrics.Invocations.WithLabelValues("success").Inc()
	log.Info("Remediation completed",
		zap.String("object", obj.Name),
		zap.Duration("duration", o.now().Sub(start)))
	return nil
}

func (o *Orchestrator) run(ctx context.Context, log *logger.Logger, obj ObjectRef) error {
	// Fetch
	raw, err := retry.Do(ctx, log.Logger, o.storageSpec, "download object", func(ctx context.Context) ([]byte, error) {
		return o.objects.Get(ctx, obj.Container, obj.Name)
	})
	if err != nil {
		return err
	}
	log.Info("Object fetched", zap.Int("bytes", len(raw)))

	// Redact
	result, err := o.engine.Redact(string(raw))
	if err != nil {
		return err
	}
	o.metrics.RowsRedacted.Add(float64(result.RowsProcessed))
	log.Info("Content redacted", zap.Int("rows_processed", result.RowsProcessed))

	// Relocate
	processedAt := o.now().UTC()
	derived := DerivedName(obj.Name, processedAt)

	if _, err := retry.Do(ctx, log.Logger, o.storageSpec, "ensure destination container", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, o.objects.EnsureContainer(ctx, o.cfg.DestinationContainer)
	}); err != nil {
		return err
	}

	if _, err := retry.Do(ctx, log.Logger, o.storageSpec, "upload redacted object", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, o.objects.Put(ctx, o.cfg.DestinationContainer, derived, []byte(result.Redacted))
	}); err != nil {
		return err
	}
	log.Info("Redacted object relocated",
		zap.String("destination", o.cfg.DestinationContainer),
		zap.String("derived_name", derived))

	// Delete the source only after its sanitized replacement is durably
	// written.
	if _, err := retry.Do(ctx, log.Logger, o.storageSpec, "delete source object", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, o.objects.Delete(ctx, obj.Container, obj.Name)
	}); err != nil {
		return err
	}
	log.Info("Source object deleted", zap.String("container", obj.Container))

	// Audit
	record := auditstore.Record{
		PartitionKey:         auditstore.PartitionKey,
		RowKey:               auditstore.NewRowKey(o.now()),
		QuarantineContainer:  obj.Container,
		DestinationContainer: o.cfg.DestinationContainer,
		OriginalName:         obj.Name,
		RedactedName:         derived,
		ProcessedAt:          processedAt,
	}
	if err := o.audit.Append(ctx, record); err != nil {
		return err
	}

	// Notify success. A delivery failure here is a stage failure: the
	// invocation is then reported on the failure queue instead.
	message := notify.NewSuccess(obj.Container, o.cfg.DestinationContainer, obj.Name, derived, processedAt)
	return o.notifier.Send(ctx, o.cfg.SuccessQueue, message)
}

// reportFailure sends the failure notification. It runs on its own
// deadline so a canceled invocation can still report; a secondary delivery
// failure is logged and never replaces the original error.
func (o *Orchestrator) reportFailure(log *logger.Logger, obj ObjectRef, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	message := notify.NewFailure(obj.Name, cause, string(debug.Stack()), o.now().UTC())
	if err := o.notifier.Send(ctx, o.cfg.FailureQueue, message); err != nil {
		o.metrics.NotificationFailures.Inc()
		log.Error("Failed to send failure notification", zap.Error(err))
	}
}
