package domain

import (
	"encoding/json"
	"time"
)

// Currency represents an ISO 4217 currency code
type Currency string

const (
	CurrencyZAR Currency = "ZAR"
	CurrencyUSD Currency = "USD"
	CurrencyGBP Currency = "GBP"
	CurrencyEUR Currency = "EUR"
)

// EventType represents the type of a recorded pool event
type EventType string

const (
	EventTypePoolCreated                EventType = "POOL_CREATED"
	EventTypeConstitutionSigned         EventType = "CONSTITUTION_SIGNED"
	EventTypeContributionIntentRecorded EventType = "CONTRIBUTION_INTENT_RECORDED"
	EventTypeWithdrawalIntentRecorded   EventType = "WITHDRAWAL_INTENT_RECORDED"
	EventTypeSettlementInitiated        EventType = "SETTLEMENT_INITIATED"
	EventTypeProposalCreated            EventType = "PROPOSAL_CREATED"
	EventTypeVoteCast                   EventType = "VOTE_CAST"
	EventTypeApprovalGranted            EventType = "APPROVAL_GRANTED"
	EventTypeAdminAction                EventType = "ADMIN_ACTION"
	EventTypeAuthAttempt                EventType = "AUTH_ATTEMPT"
	EventTypeAuthVerified               EventType = "AUTH_VERIFIED"
	EventTypeAuthChallengeIssued        EventType = "AUTH_CHALLENGE_ISSUED"
	EventTypeStepUpVerified             EventType = "STEP_UP_VERIFIED"
	EventTypeMFAEnrolled                EventType = "MFA_ENROLLED"
)

var knownEventTypes = map[EventType]struct{}{
	EventTypePoolCreated:                {},
	EventTypeConstitutionSigned:         {},
	EventTypeContributionIntentRecorded: {},
	EventTypeWithdrawalIntentRecorded:   {},
	EventTypeSettlementInitiated:        {},
	EventTypeProposalCreated:            {},
	EventTypeVoteCast:                   {},
	EventTypeApprovalGranted:            {},
	EventTypeAdminAction:                {},
	EventTypeAuthAttempt:                {},
	EventTypeAuthVerified:               {},
	EventTypeAuthChallengeIssued:        {},
	EventTypeStepUpVerified:             {},
	EventTypeMFAEnrolled:                {},
}

// Valid reports whether the event type belongs to the closed enumeration
func (t EventType) Valid() bool {
	_, ok := knownEventTypes[t]
	return ok
}

// SystemPartition is the reserved pool identifier for system-level events
// (authentication trail, step-up challenges) that do not belong to any pool.
const SystemPartition = "GLOBAL_SYSTEM"

// TimestampLayout is the canonical textual form of all hashed timestamps.
// Timestamps are persisted exactly as hashed so recomputing a record hash
// from stored fields is bit-exact.
const TimestampLayout = time.RFC3339Nano

// FormatTimestamp renders t in the canonical hashed form (UTC, RFC 3339)
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// EventRecord is one link of a pool's hash chain.
//
// JSON field order here is irrelevant: the canonical serializer sorts keys
// before hashing. RecordHash participates in the canonical form as an empty
// placeholder while the hash is being computed.
type EventRecord struct {
	EventID       string          `json:"event_id"`
	OccurredAt    string          `json:"occurred_at_utc"`
	ActorID       string          `json:"actor_id"`
	PoolID        string          `json:"pool_id"`
	EventType     EventType       `json:"event_type"`
	SchemaVersion int             `json:"schema_version"`
	Payload       json.RawMessage `json:"payload"`
	PrevHash      string          `json:"prev_hash"`
	RecordHash    string          `json:"record_hash"`
}

// ForHashing returns a copy of the record with the hash field blanked,
// which is the exact shape the chain hash is computed over.
func (r EventRecord) ForHashing() EventRecord {
	r.RecordHash = ""
	return r
}

// AuditRecord is one link of the single global audit chain.
type AuditRecord struct {
	AuditID    string          `json:"audit_id"`
	OccurredAt string          `json:"occurred_at_utc"`
	ActorID    string          `json:"actor_id"`
	Action     string          `json:"action"`
	TargetType *string         `json:"target_type"`
	TargetID   *string         `json:"target_id"`
	Metadata   json.RawMessage `json:"metadata"`
	PrevHash   string          `json:"prev_hash"`
	RecordHash string          `json:"record_hash"`
}

// ForHashing returns a copy of the record with the hash field blanked.
func (r AuditRecord) ForHashing() AuditRecord {
	r.RecordHash = ""
	return r
}

// LedgerRow is one side of a double-entry posting. Amounts are integer
// minor units (cents) so that journals balance exactly.
type LedgerRow struct {
	EntryID      string          `json:"entry_id"`
	JournalID    string          `json:"journal_id"`
	EventID      string          `json:"event_id"`
	PoolID       string          `json:"pool_id"`
	AccountCode  string          `json:"account_code"`
	DebitAmount  int64           `json:"debit_amount"`
	CreditAmount int64           `json:"credit_amount"`
	Currency     Currency        `json:"currency"`
	OccurredAt   string          `json:"occurred_at_utc"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
}

// Pool is a community-finance pool (stokvel, family wealth circle,
// SME bulk-buying group).
type Pool struct {
	PoolID             string    `json:"pool_id"`
	Name               string    `json:"name"`
	Type               string    `json:"type"`
	ContributionAmount int64     `json:"contribution_amount"`
	Currency           Currency  `json:"currency"`
	Members            []string  `json:"members"`
	CreatedAt          time.Time `json:"created_at"`
}
