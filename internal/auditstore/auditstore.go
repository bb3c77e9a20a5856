// Package auditstore is the single global hash-chained log of privileged
// actions. It shares the event store's chaining protocol but forms one
// chain across the whole system, because its retention and evidentiary
// handling differ from pool business events.
package auditstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stokvelhub/pool-ledger/internal/adapter"
	"github.com/stokvelhub/pool-ledger/internal/domain"
	"github.com/stokvelhub/pool-ledger/internal/hashchain"
	"github.com/stokvelhub/pool-ledger/internal/logger"
	"github.com/stokvelhub/pool-ledger/internal/store"
	"github.com/stokvelhub/pool-ledger/internal/store/schema"
)

const maxTailRetries = 4

// AppendParams describes one privileged action to record
type AppendParams struct {
	ActorID    string
	Action     string
	TargetType *string
	TargetID   *string
	Metadata   interface{}
}

// Store appends and reads the global audit chain. Appends are serialized
// through a single mutex plus the storage-level uniqueness of prev_hash.
type Store struct {
	db    store.Store
	chain *hashchain.Engine
	json  adapter.JSON
	clock adapter.Clock
	mu    sync.Mutex
}

// New creates an audit store over the given persistence collaborator
func New(db store.Store, chain *hashchain.Engine, json adapter.JSON, clock adapter.Clock) *Store {
	return &Store{db: db, chain: chain, json: json, clock: clock}
}

// Append records one privileged action at the tail of the global chain
func (s *Store) Append(ctx context.Context, params AppendParams) (*domain.AuditRecord, error) {
	if params.ActorID == "" {
		return nil, domain.ErrEmptyActor
	}
	if params.Action == "" {
		return nil, errors.New("action must not be empty")
	}

	var metadataJSON []byte
	if params.Metadata != nil {
		var err error
		metadataJSON, err = s.json.Marshal(params.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal metadata: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var appended *domain.AuditRecord
	op := func() error {
		tail, err := s.db.LatestAuditHash(ctx)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("%w: %v", domain.ErrStoreReadFailed, err))
		}

		rec := domain.AuditRecord{
			AuditID:    uuid.NewString(),
			OccurredAt: domain.FormatTimestamp(s.clock.Now()),
			ActorID:    params.ActorID,
			Action:     params.Action,
			TargetType: params.TargetType,
			TargetID:   params.TargetID,
			Metadata:   metadataJSON,
			PrevHash:   tail,
		}

		hash, err := s.chain.ChainHash(rec.PrevHash, rec.ForHashing())
		if err != nil {
			return backoff.Permanent(err)
		}
		rec.RecordHash = hash

		if err := s.db.InsertAudit(ctx, schema.AuditRecordFromDomain(&rec)); err != nil {
			if errors.Is(err, domain.ErrTailConflict) {
				logger.Debug("audit append lost tail race, retrying",
					zap.String("action", params.Action))
				return err
			}
			return backoff.Permanent(fmt.Errorf("%w: %v", domain.ErrStoreWriteFailed, err))
		}

		appended = &rec
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxTailRetries), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		if errors.Is(err, domain.ErrTailConflict) {
			return nil, fmt.Errorf("%w: tail conflict persisted after %d retries", domain.ErrStoreWriteFailed, maxTailRetries)
		}
		return nil, err
	}

	return appended, nil
}

// Read returns all audit records in ascending chain order
func (s *Store) Read(ctx context.Context) ([]domain.AuditRecord, error) {
	rows, err := s.db.ListAudits(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreReadFailed, err)
	}

	out := make([]domain.AuditRecord, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}
