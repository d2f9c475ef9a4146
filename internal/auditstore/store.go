package auditstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/cardguard/remediator/internal/config"
)

// PartitionKey is the constant partition every remediation record lands in
const PartitionKey = "pci-finding"

// ErrRecordExists indicates a row key collision. Row keys are timestamp
// derived, so this should not occur in practice.
var ErrRecordExists = errors.New("audit record already exists")

// Record is one append-only audit entry for a completed remediation. It is
// never mutated or deleted.
type Record struct {
	PartitionKey         string    `db:"partition_key"`
	RowKey               string    `db:"row_key"`
	QuarantineContainer  string    `db:"quarantine_container"`
	DestinationContainer string    `db:"destination_container"`
	OriginalName         string    `db:"original_name"`
	RedactedName         string    `db:"redacted_name"`
	ProcessedAt          time.Time `db:"processed_at"`
}

// NewRowKey returns a monotonically increasing timestamp-derived row key
func NewRowKey(now time.Time) string {
	return fmt.Sprintf("%d", now.UnixNano())
}

var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Store persists remediation records in PostgreSQL
type Store struct {
	db     *sqlx.DB
	table  string
	logger *zap.Logger
}

// NewStore connects to the audit database and ensures the ledger table
func NewStore(cfg config.AuditConfig, logger *zap.Logger) (*Store, error) {
	if !identifierPattern.MatchString(cfg.TableName) {
		return nil, fmt.Errorf("invalid audit table name: %q", cfg.TableName)
	}

	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to audit database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	store := &Store{
		db:     db,
		table:  cfg.TableName,
		logger: logger,
	}

	if err := store.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize audit store: %w", err)
	}

	logger.Info("Audit store initialized",
		zap.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		zap.String("table", cfg.TableName))

	return store, nil
}

// initialize checks the connection and ensures the ledger table exists
func (s *Store) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("audit database ping failed: %w", err)
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			partition_key         TEXT NOT NULL,
			row_key               TEXT NOT NULL,
			quarantine_container  TEXT NOT NULL,
			destination_container TEXT NOT NULL,
			original_name         TEXT NOT NULL,
			redacted_name         TEXT NOT NULL,
			processed_at          TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (partition_key, row_key)
		)`, s.table)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure audit table: %w", err)
	}

	return nil
}

// Append writes one remediation record. A row key collision returns
// ErrRecordExists; nothing is ever updated in place.
func (s *Store) Append(ctx context.Context, record Record) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (
			partition_key, row_key, quarantine_container,
			destination_container, original_name, redacted_name, processed_at
		) VALUES (
			:partition_key, :row_key, :quarantine_container,
			:destination_container, :original_name, :redacted_name, :processed_at
		)`, s.table)

	if _, err := s.db.NamedExecContext(ctx, query, record); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("%w: %s/%s", ErrRecordExists, record.PartitionKey, record.RowKey)
		}
		return fmt.Errorf("failed to append audit record: %w", err)
	}

	s.logger.Debug("Audit record appended",
		zap.String("row_key", record.RowKey),
		zap.String("original_name", record.OriginalName),
		zap.String("redacted_name", record.RedactedName))

	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// maskDatabaseURL masks the password in a database URL for logging
func maskDatabaseURL(url string) string {
	if !strings.Contains(url, "@") {
		return url
	}
	parts := strings.SplitN(url, "@", 2)
	if idx := strings.LastIndex(parts[0], ":"); idx > strings.Index(parts[0], "//")+1 {
		parts[0] = parts[0][:idx] + ":***"
	}
	return parts[0] + "@" + parts[1]
}
