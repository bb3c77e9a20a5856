package settlement

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stokvelhub/pool-ledger/internal/adapter"
	"github.com/stokvelhub/pool-ledger/internal/canonical"
	"github.com/stokvelhub/pool-ledger/internal/compliance"
	"github.com/stokvelhub/pool-ledger/internal/domain"
	"github.com/stokvelhub/pool-ledger/internal/eventstore"
	"github.com/stokvelhub/pool-ledger/internal/hashchain"
	"github.com/stokvelhub/pool-ledger/internal/store"
)

type fakeRail struct {
	calls    int
	response []byte
	err      error
}

func (f *fakeRail) PostJSON(context.Context, string, []byte) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func newTestInitiator(rail *fakeRail) (*Initiator, *eventstore.Store) {
	jsonAdapter := adapter.NewJSON()
	chain := hashchain.NewEngine(canonical.NewSerializer(jsonAdapter, adapter.NewJCS()))
	events := eventstore.New(store.NewMemoryStore(), chain, jsonAdapter, adapter.NewClock())
	return NewInitiator(events, compliance.NewGate(), rail, jsonAdapter,
		"https://rail.example.com/settle", "stitch"), events
}

func contribution() domain.ContributionPayload {
	return domain.ContributionPayload{
		MemberEmail: "thabo@example.com",
		Amount:      50000,
		Currency:    domain.CurrencyZAR,
		Method:      "EFT",
	}
}

func TestContributeRecordsSettlementOnHandshakeSuccess(t *testing.T) {
	rail := &fakeRail{response: []byte(`{"settlement_id":"stl-42","status":"ACCEPTED","rail":"stitch"}`)}
	s, _ := newTestInitiator(rail)

	rec, err := s.Contribute(context.Background(), "pool-1", "thabo@example.com", contribution())
	require.NoError(t, err)
	assert.Equal(t, domain.EventTypeSettlementInitiated, rec.EventType)
	assert.Equal(t, 1, rail.calls)

	var payload domain.ContributionPayload
	require.NoError(t, adapter.NewJSON().Unmarshal(rec.Payload, &payload))
	assert.Equal(t, compliance.OperatingModel, payload.SettlementMode)
	assert.JSONEq(t, string(rail.response), string(payload.Handshake))
}

func TestContributeDegradesToIntentWhenRailIsDown(t *testing.T) {
	rail := &fakeRail{err: &adapter.StatusError{StatusCode: http.StatusBadGateway, Body: "maintenance"}}
	s, events := newTestInitiator(rail)

	rec, err := s.Contribute(context.Background(), "pool-1", "thabo@example.com", contribution())
	require.NoError(t, err)
	assert.Equal(t, domain.EventTypeContributionIntentRecorded, rec.EventType)
	// One retry on transient failures
	assert.Equal(t, 2, rail.calls)

	var payload domain.ContributionPayload
	require.NoError(t, adapter.NewJSON().Unmarshal(rec.Payload, &payload))
	assert.Equal(t, "DEFERRED", payload.SettlementMode)
	assert.Empty(t, payload.Handshake)

	records, err := events.Read(context.Background(), "pool-1", nil, nil)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestContributeDoesNotRetryClientErrors(t *testing.T) {
	rail := &fakeRail{err: &adapter.StatusError{StatusCode: http.StatusUnprocessableEntity, Body: "bad account"}}
	s, _ := newTestInitiator(rail)

	rec, err := s.Contribute(context.Background(), "pool-1", "thabo@example.com", contribution())
	require.NoError(t, err)
	assert.Equal(t, domain.EventTypeContributionIntentRecorded, rec.EventType)
	assert.Equal(t, 1, rail.calls)
}

func TestContributeDegradesOnMissingSettlementID(t *testing.T) {
	rail := &fakeRail{response: []byte(`{"status":"ACCEPTED"}`)}
	s, _ := newTestInitiator(rail)

	rec, err := s.Contribute(context.Background(), "pool-1", "thabo@example.com", contribution())
	require.NoError(t, err)
	assert.Equal(t, domain.EventTypeContributionIntentRecorded, rec.EventType)
}

func TestContributeDegradesOnNetworkError(t *testing.T) {
	rail := &fakeRail{err: errors.New("connection refused")}
	s, _ := newTestInitiator(rail)

	rec, err := s.Contribute(context.Background(), "pool-1", "thabo@example.com", contribution())
	require.NoError(t, err)
	assert.Equal(t, domain.EventTypeContributionIntentRecorded, rec.EventType)
	assert.Equal(t, 2, rail.calls)
}
