package verify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stokvelhub/pool-ledger/internal/adapter"
	"github.com/stokvelhub/pool-ledger/internal/auditstore"
	"github.com/stokvelhub/pool-ledger/internal/canonical"
	"github.com/stokvelhub/pool-ledger/internal/domain"
	"github.com/stokvelhub/pool-ledger/internal/eventstore"
	"github.com/stokvelhub/pool-ledger/internal/hashchain"
	"github.com/stokvelhub/pool-ledger/internal/store"
)

// brokenJCS fails every canonicalization so verification itself errors
type brokenJCS struct{}

func (brokenJCS) Transform([]byte) ([]byte, error) {
	return nil, errors.New("canonicalizer offline")
}

func newChainEngine() *hashchain.Engine {
	return hashchain.NewEngine(canonical.NewSerializer(adapter.NewJSON(), adapter.NewJCS()))
}

func buildEventChain(t *testing.T, n int) []domain.EventRecord {
	t.Helper()
	jsonAdapter := adapter.NewJSON()
	events := eventstore.New(store.NewMemoryStore(), newChainEngine(), jsonAdapter, adapter.NewClock())

	for i := 0; i < n; i++ {
		_, err := events.Append(context.Background(), eventstore.AppendParams{
			PoolID:    "pool-1",
			ActorID:   "a",
			EventType: domain.EventTypeContributionIntentRecorded,
			Payload:   domain.ContributionPayload{MemberEmail: "a", Amount: int64(100 * (i + 1)), Currency: domain.CurrencyZAR},
		})
		require.NoError(t, err)
	}

	records, err := events.Read(context.Background(), "pool-1", nil, nil)
	require.NoError(t, err)
	return records
}

func TestEventsValidatesIntactChain(t *testing.T) {
	v := New(newChainEngine())
	records := buildEventChain(t, 5)

	report := v.Events(records)

	assert.Equal(t, StatusValidated, report.Status)
	assert.Equal(t, 5, report.RecordsCount)
	assert.Empty(t, report.OffendingID)
}

func TestEventsEmptyChainIsNotPerformed(t *testing.T) {
	v := New(newChainEngine())

	report := v.Events(nil)

	assert.Equal(t, StatusNotPerformed, report.Status)
}

func TestEventsDetectsTamperedPayloadAtExactRecord(t *testing.T) {
	v := New(newChainEngine())
	records := buildEventChain(t, 5)

	// Tamper with the middle record's payload after the fact
	records[2].Payload = json.RawMessage(`{"member_email":"a","amount":999999,"currency":"ZAR"}`)

	report := v.Events(records)

	assert.Equal(t, StatusViolation, report.Status)
	assert.Equal(t, records[2].EventID, report.OffendingID)
	assert.Equal(t, records[2].RecordHash, report.Expected)
	assert.NotEqual(t, report.Expected, report.Computed)
}

func TestEventsDetectsEditedTimestamp(t *testing.T) {
	v := New(newChainEngine())
	records := buildEventChain(t, 3)

	records[1].OccurredAt = "2020-01-01T00:00:00Z"

	report := v.Events(records)

	assert.Equal(t, StatusViolation, report.Status)
	assert.Equal(t, records[1].EventID, report.OffendingID)
}

func TestEventsDetectsBrokenLink(t *testing.T) {
	v := New(newChainEngine())
	records := buildEventChain(t, 4)

	// Remove a record from the middle; the successor's prev_hash no
	// longer points at the preceding record
	cut := append([]domain.EventRecord{}, records[:2]...)
	cut = append(cut, records[3])

	report := v.Events(cut)

	assert.Equal(t, StatusViolation, report.Status)
	assert.Equal(t, records[3].EventID, report.OffendingID)
}

func TestEventsDetectsReorderedRecords(t *testing.T) {
	v := New(newChainEngine())
	records := buildEventChain(t, 3)

	records[1], records[2] = records[2], records[1]

	report := v.Events(records)

	assert.Equal(t, StatusViolation, report.Status)
}

func TestEventsReportsVerificationFailureDistinctly(t *testing.T) {
	records := buildEventChain(t, 2)

	// A verifier whose canonicalizer is broken cannot prove anything
	broken := New(hashchain.NewEngine(canonical.NewSerializer(adapter.NewJSON(), brokenJCS{})))
	report := broken.Events(records)

	assert.Equal(t, StatusFailed, report.Status)
	assert.NotEqual(t, StatusViolation, report.Status)
	assert.NotEmpty(t, report.Detail)
}

func TestReportWireFieldNames(t *testing.T) {
	v := New(newChainEngine())
	records := buildEventChain(t, 2)
	records[1].Payload = json.RawMessage(`{"amount":1}`)

	raw, err := json.Marshal(v.Events(records))
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Contains(t, fields, "events_count")
	assert.Contains(t, fields, "chain_error")
	assert.NotContains(t, fields, "records_count")
	assert.NotContains(t, fields, "detail")
}

func TestAuditsValidatesAndDetectsTampering(t *testing.T) {
	jsonAdapter := adapter.NewJSON()
	engine := newChainEngine()
	audits := auditstore.New(store.NewMemoryStore(), engine, jsonAdapter, adapter.NewClock())

	for i := 0; i < 3; i++ {
		_, err := audits.Append(context.Background(), auditstore.AppendParams{
			ActorID: "admin@example.com",
			Action:  "MEMBER_SUSPENDED",
		})
		require.NoError(t, err)
	}

	records, err := audits.Read(context.Background())
	require.NoError(t, err)

	v := New(engine)
	assert.Equal(t, StatusValidated, v.Audits(records).Status)

	records[1].Action = "MEMBER_REINSTATED"
	report := v.Audits(records)
	assert.Equal(t, StatusViolation, report.Status)
	assert.Equal(t, records[1].AuditID, report.OffendingID)

	assert.Equal(t, StatusNotPerformed, v.Audits(nil).Status)
}
