package store

import (
	"context"
	"time"

	"github.com/stokvelhub/pool-ledger/internal/store/schema"
)

// Store defines the interface for database operations.
//
// Insert operations are conditional writes: inserting a chained record
// whose (partition, prev_hash) pair is already taken fails with
// domain.ErrTailConflict. This is the storage-level half of the append
// linearization; callers re-read the tail and retry.
//
//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore
type Store interface {
	// InsertEvent persists one event record
	InsertEvent(ctx context.Context, rec *schema.EventRecord) error
	// LatestEventHash returns the chain tail for a pool, or "" when the
	// partition has no records
	LatestEventHash(ctx context.Context, poolID string) (string, error)
	// ListEvents returns a pool's records in ascending chain order,
	// optionally bounded by persistence time
	ListEvents(ctx context.Context, poolID string, from, to *time.Time) ([]schema.EventRecord, error)
	// ListEventPoolIDs returns the distinct partition keys present in the
	// event log
	ListEventPoolIDs(ctx context.Context) ([]string, error)

	// InsertAudit persists one audit record on the global chain
	InsertAudit(ctx context.Context, rec *schema.AuditRecord) error
	// LatestAuditHash returns the global audit chain tail, or ""
	LatestAuditHash(ctx context.Context) (string, error)
	// ListAudits returns all audit records in ascending chain order
	ListAudits(ctx context.Context) ([]schema.AuditRecord, error)

	// InsertLedgerEntries persists the rows of one journal atomically
	InsertLedgerEntries(ctx context.Context, entries []*schema.LedgerEntry) error
	// ListLedgerEntries returns a pool's ledger rows in posting order
	ListLedgerEntries(ctx context.Context, poolID string) ([]schema.LedgerEntry, error)

	// CreatePool persists a new pool
	CreatePool(ctx context.Context, pool *schema.Pool) error
	// GetPool retrieves a pool by id; returns domain.ErrPoolNotFound when
	// it does not exist
	GetPool(ctx context.Context, poolID string) (*schema.Pool, error)
}
