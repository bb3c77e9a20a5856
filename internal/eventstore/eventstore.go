// Package eventstore is the append-only, per-pool hash-chained event log.
// Every successful Append is the sole mechanism through which pool history
// grows; records are immutable once appended.
package eventstore

import (
	"context"
	"errors"
	"fmt"
	"time"

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

// maxTailRetries bounds how often an append re-reads the tail after a
// conditional-write conflict before giving up
const maxTailRetries = 4

// AppendParams describes one event to record
type AppendParams struct {
	PoolID        string
	ActorID       string
	EventType     domain.EventType
	Payload       interface{}
	SchemaVersion int
}

// Store appends and reads hash-chained pool events.
//
// Appends are linearized per partition twice over: a keyed in-process
// mutex spans read-tail, hash and insert, and the storage layer rejects
// any insert whose (pool_id, prev_hash) pair is already taken. The second
// check is what keeps the chain unforked across processes; the first just
// keeps local writers from burning retries against each other. Appends to
// different pools never contend.
type Store struct {
	db    store.Store
	chain *hashchain.Engine
	json  adapter.JSON
	clock adapter.Clock
	locks *partitionLocks
}

// New creates an event store over the given persistence collaborator
func New(db store.Store, chain *hashchain.Engine, json adapter.JSON, clock adapter.Clock) *Store {
	return &Store{
		db:    db,
		chain: chain,
		json:  json,
		clock: clock,
		locks: newPartitionLocks(),
	}
}

// Append records one event at the tail of its pool's chain and returns
// the full persisted record. On STORE_READ_FAILED or STORE_WRITE_FAILED
// the caller must not treat the event as recorded.
func (s *Store) Append(ctx context.Context, params AppendParams) (*domain.EventRecord, error) {
	if params.ActorID == "" {
		return nil, domain.ErrEmptyActor
	}
	if !params.EventType.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidEventType, params.EventType)
	}
	if params.PoolID == "" {
		return nil, errors.New("pool id must not be empty")
	}

	schemaVersion := params.SchemaVersion
	if schemaVersion == 0 {
		schemaVersion = 1
	}

	payload := params.Payload
	if payload == nil {
		payload = map[string]interface{}{}
	}
	payloadJSON, err := s.json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	unlock := s.locks.lock(params.PoolID)
	defer unlock()

	var appended *domain.EventRecord
	op := func() error {
		tail, err := s.db.LatestEventHash(ctx, params.PoolID)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("%w: %v", domain.ErrStoreReadFailed, err))
		}

		rec := domain.EventRecord{
			EventID:       uuid.NewString(),
			OccurredAt:    domain.FormatTimestamp(s.clock.Now()),
			ActorID:       params.ActorID,
			PoolID:        params.PoolID,
			EventType:     params.EventType,
			SchemaVersion: schemaVersion,
			Payload:       payloadJSON,
			PrevHash:      tail,
		}

		hash, err := s.chain.ChainHash(rec.PrevHash, rec.ForHashing())
		if err != nil {
			return backoff.Permanent(err)
		}
		rec.RecordHash = hash

		if err := s.db.InsertEvent(ctx, schema.EventRecordFromDomain(&rec)); err != nil {
			if errors.Is(err, domain.ErrTailConflict) {
				// Another writer won the tail; a retry with the stale
				// precomputed hash would fork the chain, so re-read.
				logger.Debug("event append lost tail race, retrying",
					zap.String("pool_id", params.PoolID))
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

// Read returns a pool's records in ascending chain order, optionally
// bounded by persistence time
func (s *Store) Read(ctx context.Context, poolID string, from, to *time.Time) ([]domain.EventRecord, error) {
	rows, err := s.db.ListEvents(ctx, poolID, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreReadFailed, err)
	}

	out := make([]domain.EventRecord, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

// PoolIDs returns the distinct partitions present in the log
func (s *Store) PoolIDs(ctx context.Context) ([]string, error) {
	ids, err := s.db.ListEventPoolIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreReadFailed, err)
	}
	return ids, nil
}
