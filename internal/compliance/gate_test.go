package compliance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stokvelhub/pool-ledger/internal/domain"
)

func TestCheckPermitsSettlementActions(t *testing.T) {
	g := NewGate()

	assert.NoError(t, g.Check("SETTLEMENT_INITIATED", nil))
	assert.NoError(t, g.Check("PAYOUT_TRIGGERED", nil))
	assert.NoError(t, g.Check("settlement_initiated", nil))
	assert.NoError(t, g.Check("  SETTLEMENT_INITIATED  ", nil))
}

func TestCheckPermitsOrdinaryActions(t *testing.T) {
	g := NewGate()

	assert.NoError(t, g.Check("POOL_CREATED", nil))
	assert.NoError(t, g.Check("VOTE_CAST", nil))
}

func TestCheckRejectsProhibitedActions(t *testing.T) {
	g := NewGate()

	for _, action := range []string{"DIRECT_CUSTODY_HOLD", "UNAUTHORIZED_FX_SWAP", "BYPASS_AML_CHECK"} {
		err := g.Check(action, nil)
		assert.ErrorIs(t, err, domain.ErrSecurityViolation, action)
	}
}

func TestCheckTripsOnKeywords(t *testing.T) {
	g := NewGate()

	for _, action := range []string{
		"ATTEMPT_DIRECT_CUSTODY_TRANSFER",
		"BYPASS_KYC_FOR_MEMBER",
		"UNLINKED_TRANSFER_OUT",
	} {
		err := g.Check(action, nil)
		assert.ErrorIs(t, err, domain.ErrComplianceDenied, action)
	}
}

func TestCheckProhibitionOutranksKeywords(t *testing.T) {
	g := NewGate()

	// DIRECT_CUSTODY_HOLD matches both registries; the hard prohibition wins
	err := g.Check("DIRECT_CUSTODY_HOLD", nil)
	assert.ErrorIs(t, err, domain.ErrSecurityViolation)
}
