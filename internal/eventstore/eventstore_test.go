package eventstore

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stokvelhub/pool-ledger/internal/adapter"
	"github.com/stokvelhub/pool-ledger/internal/canonical"
	"github.com/stokvelhub/pool-ledger/internal/domain"
	"github.com/stokvelhub/pool-ledger/internal/hashchain"
	"github.com/stokvelhub/pool-ledger/internal/store"
)

func newTestStore() *Store {
	jsonAdapter := adapter.NewJSON()
	chain := hashchain.NewEngine(canonical.NewSerializer(jsonAdapter, adapter.NewJCS()))
	return New(store.NewMemoryStore(), chain, jsonAdapter, adapter.NewClock())
}

func TestAppendFirstRecordHasEmptyPrevHash(t *testing.T) {
	s := newTestStore()

	rec, err := s.Append(context.Background(), AppendParams{
		PoolID:    "pool-1",
		ActorID:   "thandi@example.com",
		EventType: domain.EventTypePoolCreated,
	})
	require.NoError(t, err)

	assert.Equal(t, "", rec.PrevHash)
	assert.NotEmpty(t, rec.RecordHash)
	assert.NotEmpty(t, rec.EventID)
	assert.Equal(t, 1, rec.SchemaVersion)
}

func TestAppendLinksRecordsIntoAChain(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	first, err := s.Append(ctx, AppendParams{
		PoolID:    "pool-1",
		ActorID:   "a",
		EventType: domain.EventTypePoolCreated,
	})
	require.NoError(t, err)

	second, err := s.Append(ctx, AppendParams{
		PoolID:    "pool-1",
		ActorID:   "a",
		EventType: domain.EventTypeContributionIntentRecorded,
		Payload:   domain.ContributionPayload{MemberEmail: "a", Amount: 50000, Currency: domain.CurrencyZAR},
	})
	require.NoError(t, err)

	assert.Equal(t, first.RecordHash, second.PrevHash)

	records, err := s.Read(ctx, "pool-1", nil, nil)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, first.EventID, records[0].EventID)
	assert.Equal(t, second.EventID, records[1].EventID)
}

func TestAppendValidation(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	_, err := s.Append(ctx, AppendParams{PoolID: "p", EventType: domain.EventTypePoolCreated})
	assert.ErrorIs(t, err, domain.ErrEmptyActor)

	_, err = s.Append(ctx, AppendParams{PoolID: "p", ActorID: "a", EventType: "NOT_A_TYPE"})
	assert.ErrorIs(t, err, domain.ErrInvalidEventType)

	_, err = s.Append(ctx, AppendParams{ActorID: "a", EventType: domain.EventTypePoolCreated})
	assert.Error(t, err)
}

func TestAppendDefaultsNilPayloadToEmptyObject(t *testing.T) {
	s := newTestStore()

	rec, err := s.Append(context.Background(), AppendParams{
		PoolID:    "pool-1",
		ActorID:   "a",
		EventType: domain.EventTypeAdminAction,
		Payload:   nil,
	})
	require.NoError(t, err)

	assert.JSONEq(t, `{}`, string(rec.Payload))
}

func TestAppendPreservesPayloadExactly(t *testing.T) {
	s := newTestStore()

	rec, err := s.Append(context.Background(), AppendParams{
		PoolID:    "pool-1",
		ActorID:   "a",
		EventType: domain.EventTypeContributionIntentRecorded,
		Payload: domain.ContributionPayload{
			MemberEmail: "thandi@example.com",
			Amount:      50000,
			Currency:    domain.CurrencyZAR,
			Method:      "EFT",
		},
	})
	require.NoError(t, err)

	var decoded domain.ContributionPayload
	require.NoError(t, json.Unmarshal(rec.Payload, &decoded))
	assert.Equal(t, int64(50000), decoded.Amount)
	assert.Equal(t, domain.CurrencyZAR, decoded.Currency)
}

func TestAppendTimestampRoundTrips(t *testing.T) {
	s := newTestStore()

	rec, err := s.Append(context.Background(), AppendParams{
		PoolID:    "pool-1",
		ActorID:   "a",
		EventType: domain.EventTypePoolCreated,
	})
	require.NoError(t, err)

	parsed, err := time.Parse(domain.TimestampLayout, rec.OccurredAt)
	require.NoError(t, err)
	assert.Equal(t, rec.OccurredAt, domain.FormatTimestamp(parsed))

	// Stored form is byte-identical to the hashed form
	records, err := s.Read(context.Background(), "pool-1", nil, nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, rec.OccurredAt, records[0].OccurredAt)
}

func TestConcurrentAppendsToOnePartitionStayUnforked(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	const writers = 20

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Append(ctx, AppendParams{
				PoolID:    "pool-1",
				ActorID:   "a",
				EventType: domain.EventTypeContributionIntentRecorded,
				Payload:   domain.ContributionPayload{MemberEmail: "a", Amount: 100, Currency: domain.CurrencyZAR},
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	records, err := s.Read(ctx, "pool-1", nil, nil)
	require.NoError(t, err)
	require.Len(t, records, writers)

	// Every record's prev_hash points at exactly the preceding record
	prev := ""
	for _, rec := range records {
		assert.Equal(t, prev, rec.PrevHash)
		prev = rec.RecordHash
	}
}

func TestConcurrentAppendsToDistinctPartitionsDoNotInterleaveChains(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	pools := []string{"pool-a", "pool-b", "pool-c"}
	const perPool = 10

	var wg sync.WaitGroup
	for _, poolID := range pools {
		for i := 0; i < perPool; i++ {
			wg.Add(1)
			go func(poolID string) {
				defer wg.Done()
				_, err := s.Append(ctx, AppendParams{
					PoolID:    poolID,
					ActorID:   "a",
					EventType: domain.EventTypeContributionIntentRecorded,
					Payload:   domain.ContributionPayload{MemberEmail: "a", Amount: 100, Currency: domain.CurrencyZAR},
				})
				assert.NoError(t, err)
			}(poolID)
		}
	}
	wg.Wait()

	for _, poolID := range pools {
		records, err := s.Read(ctx, poolID, nil, nil)
		require.NoError(t, err)
		require.Len(t, records, perPool)

		prev := ""
		for _, rec := range records {
			assert.Equal(t, poolID, rec.PoolID)
			assert.Equal(t, prev, rec.PrevHash)
			prev = rec.RecordHash
		}
	}
}

func TestPoolIDsReturnsDistinctPartitions(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	for _, poolID := range []string{"pool-1", "pool-2", "pool-1"} {
		_, err := s.Append(ctx, AppendParams{
			PoolID:    poolID,
			ActorID:   "a",
			EventType: domain.EventTypeAdminAction,
		})
		require.NoError(t, err)
	}

	ids, err := s.PoolIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"pool-1", "pool-2"}, ids)
}
