// Package verify replays stored chains and proves (or disproves) that
// history is unmodified. A detected mismatch is reported, never repaired.
package verify

import (
	"fmt"

	"github.com/stokvelhub/pool-ledger/internal/domain"
	"github.com/stokvelhub/pool-ledger/internal/hashchain"
)

// Status is the outcome of a chain verification
type Status string

const (
	// StatusValidated means every record's hash recomputed bit-for-bit
	StatusValidated Status = "VALIDATED"
	// StatusNotPerformed means the partition had no records to verify
	StatusNotPerformed Status = "NOT_PERFORMED"
	// StatusViolation means a recomputed hash did not match the stored one
	StatusViolation Status = "INTEGRITY_VIOLATION_DETECTED"
	// StatusFailed means verification itself errored, which is distinct
	// from a proven violation
	StatusFailed Status = "VERIFICATION_FAILED"
)

// Report is the result of verifying one partition
type Report struct {
	Status Status `json:"status"`
	// OffendingID identifies the first record that failed, if any
	OffendingID string `json:"offending_id,omitempty"`
	// Expected is the stored hash of the offending record
	Expected string `json:"expected,omitempty"`
	// Computed is the recomputed hash of the offending record
	Computed string `json:"computed,omitempty"`
	// Detail carries a human-readable account of the outcome
	Detail string `json:"chain_error,omitempty"`
	// RecordsCount is the number of records examined
	RecordsCount int `json:"events_count"`
}

// Verifier recomputes chains against the stored hashes
type Verifier struct {
	chain *hashchain.Engine
}

// New creates a verifier over the given hash-chain engine
func New(chain *hashchain.Engine) *Verifier {
	return &Verifier{chain: chain}
}

// Events verifies an event chain already fetched in ascending chain
// order. Verification stops at the first mismatch.
func (v *Verifier) Events(records []domain.EventRecord) Report {
	if len(records) == 0 {
		return Report{Status: StatusNotPerformed}
	}

	running := ""
	for i := range records {
		rec := &records[i]

		if rec.PrevHash != running {
			return Report{
				Status:       StatusViolation,
				OffendingID:  rec.EventID,
				Expected:     running,
				Computed:     rec.PrevHash,
				Detail:       fmt.Sprintf("prev_hash of event %s does not point at the preceding record", rec.EventID),
				RecordsCount: len(records),
			}
		}

		computed, err := v.chain.ChainHash(running, rec.ForHashing())
		if err != nil {
			return Report{
				Status:       StatusFailed,
				OffendingID:  rec.EventID,
				Detail:       err.Error(),
				RecordsCount: len(records),
			}
		}

		if computed != rec.RecordHash {
			return Report{
				Status:       StatusViolation,
				OffendingID:  rec.EventID,
				Expected:     rec.RecordHash,
				Computed:     computed,
				Detail:       fmt.Sprintf("hash mismatch at event %s: expected %s, computed %s", rec.EventID, rec.RecordHash, computed),
				RecordsCount: len(records),
			}
		}

		running = computed
	}

	return Report{Status: StatusValidated, RecordsCount: len(records)}
}

// Audits verifies the global audit chain already fetched in ascending
// chain order
func (v *Verifier) Audits(records []domain.AuditRecord) Report {
	if len(records) == 0 {
		return Report{Status: StatusNotPerformed}
	}

	running := ""
	for i := range records {
		rec := &records[i]

		if rec.PrevHash != running {
			return Report{
				Status:       StatusViolation,
				OffendingID:  rec.AuditID,
				Expected:     running,
				Computed:     rec.PrevHash,
				Detail:       fmt.Sprintf("prev_hash of audit record %s does not point at the preceding record", rec.AuditID),
				RecordsCount: len(records),
			}
		}

		computed, err := v.chain.ChainHash(running, rec.ForHashing())
		if err != nil {
			return Report{
				Status:       StatusFailed,
				OffendingID:  rec.AuditID,
				Detail:       err.Error(),
				RecordsCount: len(records),
			}
		}

		if computed != rec.RecordHash {
			return Report{
				Status:       StatusViolation,
				OffendingID:  rec.AuditID,
				Expected:     rec.RecordHash,
				Computed:     computed,
				Detail:       fmt.Sprintf("hash mismatch at audit record %s: expected %s, computed %s", rec.AuditID, rec.RecordHash, computed),
				RecordsCount: len(records),
			}
		}

		running = computed
	}

	return Report{Status: StatusValidated, RecordsCount: len(records)}
}
