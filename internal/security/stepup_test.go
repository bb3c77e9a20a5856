package security

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stokvelhub/pool-ledger/internal/adapter"
	"github.com/stokvelhub/pool-ledger/internal/canonical"
	"github.com/stokvelhub/pool-ledger/internal/domain"
	"github.com/stokvelhub/pool-ledger/internal/eventstore"
	"github.com/stokvelhub/pool-ledger/internal/hashchain"
	"github.com/stokvelhub/pool-ledger/internal/store"
)

type stubVerifier struct {
	verdict bool
	err     error
}

func (s stubVerifier) Verify(context.Context, Session, string) (bool, error) {
	return s.verdict, s.err
}

func newEvents() *eventstore.Store {
	jsonAdapter := adapter.NewJSON()
	chain := hashchain.NewEngine(canonical.NewSerializer(jsonAdapter, adapter.NewJCS()))
	return eventstore.New(store.NewMemoryStore(), chain, jsonAdapter, adapter.NewClock())
}

func systemEvents(t *testing.T, events *eventstore.Store) []domain.EventRecord {
	t.Helper()
	records, err := events.Read(context.Background(), domain.SystemPartition, nil, nil)
	require.NoError(t, err)
	return records
}

func TestRequireStepUpSuccessRecordsChallengeAndVerdict(t *testing.T) {
	events := newEvents()
	g := NewGate(events, stubVerifier{verdict: true})

	session := Session{UserID: "admin@example.com", Authenticated: true, MFAVerified: true}
	verified, err := g.RequireStepUp(context.Background(), session, "POOL_FREEZE")
	require.NoError(t, err)
	assert.True(t, verified)

	records := systemEvents(t, events)
	require.Len(t, records, 2)
	assert.Equal(t, domain.EventTypeAuthChallengeIssued, records[0].EventType)
	assert.Equal(t, domain.EventTypeStepUpVerified, records[1].EventType)
	assert.Equal(t, "admin@example.com", records[1].ActorID)

	// The auth trail chains like any other partition
	assert.Equal(t, records[0].RecordHash, records[1].PrevHash)
}

func TestRequireStepUpDeniedBlocksAndIsRecorded(t *testing.T) {
	events := newEvents()
	g := NewGate(events, stubVerifier{verdict: false})

	session := Session{UserID: "admin@example.com", Authenticated: true}
	verified, err := g.RequireStepUp(context.Background(), session, "POOL_FREEZE")
	require.NoError(t, err)
	assert.False(t, verified)

	records := systemEvents(t, events)
	require.Len(t, records, 2)
	assert.Equal(t, domain.EventTypeAuthChallengeIssued, records[0].EventType)
	assert.Equal(t, domain.EventTypeAuthAttempt, records[1].EventType)
}

func TestRequireStepUpVerifierErrorBlocks(t *testing.T) {
	events := newEvents()
	g := NewGate(events, stubVerifier{err: errors.New("authenticator unreachable")})

	verified, err := g.RequireStepUp(context.Background(),
		Session{UserID: "admin@example.com", Authenticated: true}, "POOL_FREEZE")
	require.Error(t, err)
	assert.False(t, verified)
}

func TestRequireStepUpRejectsAnonymousSession(t *testing.T) {
	g := NewGate(newEvents(), stubVerifier{verdict: true})

	_, err := g.RequireStepUp(context.Background(), Session{}, "POOL_FREEZE")
	assert.ErrorIs(t, err, domain.ErrEmptyActor)
}

func TestMFAVerifierUsesSessionState(t *testing.T) {
	v := MFAVerifier{}

	ok, err := v.Verify(context.Background(), Session{Authenticated: true, MFAVerified: true}, "X")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = v.Verify(context.Background(), Session{Authenticated: true}, "X")
	require.NoError(t, err)
	assert.False(t, ok)
}
