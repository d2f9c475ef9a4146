package blobstore

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cardguard/remediator/internal/config"
)

// New selects and constructs the object store driver named in
// configuration.
func New(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (Store, error) {
	switch cfg.Driver {
	case "s3":
		return NewS3Store(ctx, cfg.S3, logger)
	case "filesystem":
		return NewFilesystemStore(cfg.Filesystem, logger)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}
