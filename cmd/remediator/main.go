package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/cardguard/remediator/internal/auditstore"
	"github.com/cardguard/remediator/internal/blobstore"
	"github.com/cardguard/remediator/internal/config"
	"github.com/cardguard/remediator/internal/logger"
	"github.com/cardguard/remediator/internal/metrics"
	"github.com/cardguard/remediator/internal/notify"
	"github.com/cardguard/remediator/internal/ops"
	"github.com/cardguard/remediator/internal/pipeline"
	"github.com/cardguard/remediator/internal/queue"
	"github.com/cardguard/remediator/internal/redact"
	"github.com/cardguard/remediator/internal/trigger"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	// Parse command line flags
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	// Show version and exit
	if *showVersion {
		fmt.Printf("remediator %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	// Load configuration; a missing required setting fails here, before
	// any work is attempted.
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	loggerConfig := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}
	if cfg.Logging.File.Enabled {
		loggerConfig.File = &logger.FileConfig{
			Enabled: true,
			Path:    cfg.Logging.File.Path,
		}
	}

	log, err := logger.New(loggerConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting remediator",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("build_date", date),
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.String("trigger_source", cfg.Trigger.Source),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize collaborators
	objects, err := blobstore.New(ctx, cfg.Storage, log.WithComponent("blobstore").Logger)
	if err != nil {
		log.Fatal("Failed to initialize object store", zap.Error(err))
	}

	audit, err := auditstore.NewStore(cfg.Audit, log.WithComponent("audit").Logger)
	if err != nil {
		log.Fatal("Failed to initialize audit store", zap.Error(err))
	}
	defer audit.Close()

	queueClient, err := queue.NewClient(cfg.Queue.URL, log.WithComponent("queue").Logger)
	if err != nil {
		log.Fatal("Failed to initialize queue client", zap.Error(err))
	}
	defer queueClient.Close()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	engine := redact.New(cfg.Redaction, log.WithComponent("redact"))
	dispatcher := notify.NewDispatcher(queueClient, queue.IsTransient, log.WithComponent("notify").Logger)

	orchestrator := pipeline.New(pipeline.Config{
		DestinationContainer: cfg.Storage.DestinationContainer,
		SuccessQueue:         cfg.Queue.SuccessQueue,
		FailureQueue:         cfg.Queue.FailureQueue,
	}, objects, audit, engine, dispatcher, m, log.WithComponent("pipeline"))

	// Start ops server
	opsServer := ops.New(cfg.Ops, registry, log.WithComponent("ops"))
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- opsServer.Start()
	}()

	// Start the arrival trigger
	triggerErrors := make(chan error, 1)
	go func() {
		triggerErrors <- runTrigger(ctx, cfg, objects, queueClient, orchestrator, log)
	}()

	// Wait for shutdown signal (which cancels ctx and drains the
	// trigger) or a component failure
	select {
	case err := <-serverErrors:
		log.Error("Ops server error", zap.Error(err))
		stop()
		<-triggerErrors
	case err := <-triggerErrors:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Trigger error", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := opsServer.Stop(shutdownCtx); err != nil {
		log.Error("Failed to shutdown ops server gracefully", zap.Error(err))
	}

	log.Info("Shutdown complete")
}

// runTrigger runs the configured arrival source until ctx is canceled
func runTrigger(ctx context.Context, cfg *config.Config, objects blobstore.Store, queueClient *queue.Client, orchestrator *pipeline.Orchestrator, log *logger.Logger) error {
	switch cfg.Trigger.Source {
	case "watcher":
		fsStore, ok := objects.(*blobstore.FilesystemStore)
		if !ok {
			return fmt.Errorf("trigger source watcher requires the filesystem storage driver")
		}
		watcher := trigger.NewWatcher(
			cfg.Trigger,
			cfg.Storage.QuarantineContainer,
			fsStore.ContainerPath(cfg.Storage.QuarantineContainer),
			orchestrator,
			log.WithComponent("trigger"),
		)
		return watcher.Run(ctx)
	default:
		consumer := trigger.NewConsumer(cfg.Trigger, queueClient, orchestrator, log.WithComponent("trigger"))
		return consumer.Run(ctx)
	}
}
