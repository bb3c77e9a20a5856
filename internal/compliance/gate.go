// Package compliance is the pass/fail gate consulted before restricted
// event types are appended. The registries are immutable, loaded once,
// and scoped to the operating model: the platform never takes custody of
// member funds, it only facilitates settlement through banking partners.
package compliance

import (
	"fmt"
	"strings"

	"github.com/stokvelhub/pool-ledger/internal/domain"
)

// OperatingModel identifies the settlement posture the gate enforces
const OperatingModel = "MODEL_B_SETTLEMENT_LAYER"

// permittedSettlementActions are value-movement actions allowed under
// Model B because a banking partner facilitates them
var permittedSettlementActions = map[string]struct{}{
	"SETTLEMENT_INITIATED": {},
	"PAYOUT_TRIGGERED":     {},
}

// prohibitedActions are never allowed in any operating model
var prohibitedActions = map[string]struct{}{
	"DIRECT_CUSTODY_HOLD":  {},
	"UNAUTHORIZED_FX_SWAP": {},
	"BYPASS_AML_CHECK":     {},
}

// tripwireKeywords deny any action whose name contains them
var tripwireKeywords = []string{
	"DIRECT_CUSTODY",
	"BYPASS_KYC",
	"UNLINKED_TRANSFER",
}

// Gate answers whether an action is permitted under the operating model
type Gate struct{}

// NewGate creates the compliance gate
func NewGate() *Gate {
	return &Gate{}
}

// Check returns nil when the action is permitted. A prohibited action
// returns ErrSecurityViolation; a tripped keyword returns
// ErrComplianceDenied. A deny must prevent the append entirely; no
// partial state is left behind.
func (g *Gate) Check(action string, context map[string]interface{}) error {
	normalized := strings.ToUpper(strings.TrimSpace(action))

	if _, ok := permittedSettlementActions[normalized]; ok {
		return nil
	}

	if _, ok := prohibitedActions[normalized]; ok {
		return fmt.Errorf("%w: action %q is prohibited under %s", domain.ErrSecurityViolation, normalized, OperatingModel)
	}

	for _, keyword := range tripwireKeywords {
		if strings.Contains(normalized, keyword) {
			return fmt.Errorf("%w: keyword %q detected in action %q", domain.ErrComplianceDenied, keyword, normalized)
		}
	}

	return nil
}
