package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stokvelhub/pool-ledger/internal/domain"
	"github.com/stokvelhub/pool-ledger/internal/store/schema"
)

// memStore is an in-process Store used by unit tests and local
// development. It honors the same conditional-write semantics as the
// PostgreSQL store: a chained insert whose (partition, prev_hash) pair is
// taken fails with domain.ErrTailConflict.
type memStore struct {
	mu sync.Mutex

	seq       int64
	events    []schema.EventRecord
	eventTail map[string]string      // pool_id -> record_hash
	eventPrev map[[2]string]struct{} // (pool_id, prev_hash) taken

	auditSeq  int64
	audits    []schema.AuditRecord
	auditTail string
	auditPrev map[string]struct{}

	ledger []schema.LedgerEntry
	pools  map[string]schema.Pool
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() Store {
	return &memStore{
		eventTail: make(map[string]string),
		eventPrev: make(map[[2]string]struct{}),
		auditPrev: make(map[string]struct{}),
		pools:     make(map[string]schema.Pool),
	}
}

func (s *memStore) InsertEvent(_ context.Context, rec *schema.EventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := [2]string{rec.PoolID, rec.PrevHash}
	if _, taken := s.eventPrev[key]; taken {
		return domain.ErrTailConflict
	}

	s.seq++
	stored := *rec
	stored.Seq = s.seq
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	s.events = append(s.events, stored)
	s.eventPrev[key] = struct{}{}
	s.eventTail[rec.PoolID] = rec.RecordHash
	rec.Seq = stored.Seq
	return nil
}

func (s *memStore) LatestEventHash(_ context.Context, poolID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eventTail[poolID], nil
}

func (s *memStore) ListEvents(_ context.Context, poolID string, from, to *time.Time) ([]schema.EventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []schema.EventRecord
	for _, rec := range s.events {
		if rec.PoolID != poolID {
			continue
		}
		if from != nil && rec.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && rec.CreatedAt.After(*to) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (s *memStore) ListEventPoolIDs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.eventTail))
	for poolID := range s.eventTail {
		out = append(out, poolID)
	}
	sort.Strings(out)
	return out, nil
}

func (s *memStore) InsertAudit(_ context.Context, rec *schema.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.auditPrev[rec.PrevHash]; taken {
		return domain.ErrTailConflict
	}

	s.auditSeq++
	stored := *rec
	stored.Seq = s.auditSeq
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	s.audits = append(s.audits, stored)
	s.auditPrev[rec.PrevHash] = struct{}{}
	s.auditTail = rec.RecordHash
	rec.Seq = stored.Seq
	return nil
}

func (s *memStore) LatestAuditHash(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auditTail, nil
}

func (s *memStore) ListAudits(_ context.Context) ([]schema.AuditRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]schema.AuditRecord, len(s.audits))
	copy(out, s.audits)
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (s *memStore) InsertLedgerEntries(_ context.Context, entries []*schema.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		stored := *e
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = time.Now().UTC()
		}
		s.ledger = append(s.ledger, stored)
	}
	return nil
}

func (s *memStore) ListLedgerEntries(_ context.Context, poolID string) ([]schema.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []schema.LedgerEntry
	for _, e := range s.ledger {
		if e.PoolID == poolID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntryID < out[j].EntryID })
	return out, nil
}

func (s *memStore) CreatePool(_ context.Context, pool *schema.Pool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *pool
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	s.pools[pool.PoolID] = stored
	return nil
}

func (s *memStore) GetPool(_ context.Context, poolID string) (*schema.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pool, ok := s.pools[poolID]
	if !ok {
		return nil, domain.ErrPoolNotFound
	}
	return &pool, nil
}
