package export

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stokvelhub/pool-ledger/internal/adapter"
	"github.com/stokvelhub/pool-ledger/internal/auditstore"
	"github.com/stokvelhub/pool-ledger/internal/canonical"
	"github.com/stokvelhub/pool-ledger/internal/compliance"
	"github.com/stokvelhub/pool-ledger/internal/domain"
	"github.com/stokvelhub/pool-ledger/internal/eventstore"
	"github.com/stokvelhub/pool-ledger/internal/hashchain"
	"github.com/stokvelhub/pool-ledger/internal/ledger"
	"github.com/stokvelhub/pool-ledger/internal/store"
	"github.com/stokvelhub/pool-ledger/internal/verify"
)

func newTestBuilder(t *testing.T) (*Builder, *eventstore.Store, *auditstore.Store, *ledger.Engine) {
	t.Helper()
	db := store.NewMemoryStore()
	jsonAdapter := adapter.NewJSON()
	chain := hashchain.NewEngine(canonical.NewSerializer(jsonAdapter, adapter.NewJCS()))
	events := eventstore.New(db, chain, jsonAdapter, adapter.NewClock())
	audits := auditstore.New(db, chain, jsonAdapter, adapter.NewClock())
	posting := ledger.NewEngine(db, jsonAdapter)
	return NewBuilder(events, audits, posting, verify.New(chain), chain), events, audits, posting
}

func seedPool(t *testing.T, events *eventstore.Store, posting *ledger.Engine, poolID string) {
	t.Helper()
	ctx := context.Background()

	_, err := events.Append(ctx, eventstore.AppendParams{
		PoolID:    poolID,
		ActorID:   "founder@example.com",
		EventType: domain.EventTypePoolCreated,
		Payload: domain.PoolCreatedPayload{
			Name:               "Ubuntu Savings Circle",
			Type:               "stokvel",
			ContributionAmount: 50000,
			Currency:           domain.CurrencyZAR,
			Members:            []string{"founder@example.com"},
		},
	})
	require.NoError(t, err)

	rec, err := events.Append(ctx, eventstore.AppendParams{
		PoolID:    poolID,
		ActorID:   "thabo@example.com",
		EventType: domain.EventTypeContributionIntentRecorded,
		Payload: domain.ContributionPayload{
			MemberEmail: "thabo@example.com",
			Amount:      50000,
			Currency:    domain.CurrencyZAR,
			Method:      "EFT",
		},
	})
	require.NoError(t, err)

	_, err = posting.Post(ctx, rec)
	require.NoError(t, err)
}

func TestBuildAssemblesSelfVerifiablePack(t *testing.T) {
	b, events, audits, posting := newTestBuilder(t)
	seedPool(t, events, posting, "pool-1")

	target := "pool-1"
	_, err := audits.Append(context.Background(), auditstore.AppendParams{
		ActorID:  "admin@example.com",
		Action:   "POOL_EXPORTED",
		TargetID: &target,
	})
	require.NoError(t, err)

	pack, err := b.Build(context.Background(), "pool-1", compliance.OperatingModel)
	require.NoError(t, err)

	assert.Equal(t, "pool-1", pack.Metadata.PoolID)
	assert.Equal(t, compliance.OperatingModel, pack.Metadata.OperatingModel)
	assert.Equal(t, "SHA-256", pack.Metadata.HashAlgorithm)
	assert.Equal(t, "RFC 8785 JCS", pack.Metadata.CanonicalForm)
	assert.NotEmpty(t, pack.Metadata.GeneratedAt)

	assert.Equal(t, verify.StatusValidated, pack.EventVerification.Status)
	assert.Equal(t, 2, pack.EventVerification.RecordsCount)
	assert.Equal(t, verify.StatusValidated, pack.AuditVerification.Status)

	require.Len(t, pack.Events, 2)
	assert.Equal(t, pack.Events[0].RecordHash, pack.Events[1].PrevHash)
	require.Len(t, pack.AuditTrail, 1)
	require.Len(t, pack.LedgerRows, 2)
}

func TestBuildArtifactDigests(t *testing.T) {
	b, events, _, posting := newTestBuilder(t)
	seedPool(t, events, posting, "pool-1")

	pack, err := b.Build(context.Background(), "pool-1", compliance.OperatingModel)
	require.NoError(t, err)

	require.Len(t, pack.Metadata.Artifacts, 4)
	assert.Equal(t, "system_perimeter", pack.Metadata.Artifacts[0].Name)
	assert.Equal(t, "constitution_template:family_wealth", pack.Metadata.Artifacts[1].Name)
	assert.Equal(t, "constitution_template:sme_bulk_buying", pack.Metadata.Artifacts[2].Name)
	assert.Equal(t, "constitution_template:stokvel", pack.Metadata.Artifacts[3].Name)
	for _, a := range pack.Metadata.Artifacts {
		assert.Regexp(t, "^[0-9a-f]{64}$", a.Hash)
		assert.NotEmpty(t, a.Version)
	}

	// Digests are deterministic across builds
	again, err := b.Build(context.Background(), "pool-1", compliance.OperatingModel)
	require.NoError(t, err)
	assert.Equal(t, pack.Metadata.Artifacts, again.Metadata.Artifacts)
}

func TestBuildEmptyPoolReportsNotPerformed(t *testing.T) {
	b, _, _, _ := newTestBuilder(t)

	pack, err := b.Build(context.Background(), "empty-pool", compliance.OperatingModel)
	require.NoError(t, err)

	assert.Equal(t, verify.StatusNotPerformed, pack.EventVerification.Status)
	assert.Empty(t, pack.Events)
	assert.Empty(t, pack.LedgerRows)
}
