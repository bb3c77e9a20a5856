package domain

import (
	"encoding/json"
	"fmt"
)

// Payload shapes are versioned through EventRecord.SchemaVersion so that
// old records keep verifying after the shape evolves. Version 1 is the
// only live version.

// ContributionPayload is the payload of CONTRIBUTION_INTENT_RECORDED and
// SETTLEMENT_INITIATED events. Amount is in minor units.
type ContributionPayload struct {
	MemberEmail    string          `json:"member_email"`
	Amount         int64           `json:"amount"`
	Currency       Currency        `json:"currency"`
	Method         string          `json:"method"`
	SettlementMode string          `json:"settlement_mode,omitempty"`
	Handshake      json.RawMessage `json:"handshake,omitempty"`
}

// WithdrawalPayload is the payload of WITHDRAWAL_INTENT_RECORDED events
type WithdrawalPayload struct {
	MemberEmail string   `json:"member_email"`
	Amount      int64    `json:"amount"`
	Currency    Currency `json:"currency"`
	Reason      string   `json:"reason,omitempty"`
}

// PoolCreatedPayload is the payload of POOL_CREATED events
type PoolCreatedPayload struct {
	Name               string   `json:"name"`
	Type               string   `json:"type"`
	ContributionAmount int64    `json:"contribution_amount"`
	Currency           Currency `json:"currency"`
	Members            []string `json:"members"`
}

// ConstitutionSignedPayload carries the canonical hash of the signed
// constitution text so the artifact can later be proven unchanged
type ConstitutionSignedPayload struct {
	LegalName    string `json:"legal_name"`
	Constitution string `json:"constitution"`
	DocHash      string `json:"doc_hash"`
}

// ProposalPayload is the payload of PROPOSAL_CREATED events
type ProposalPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// VotePayload is the payload of VOTE_CAST events
type VotePayload struct {
	ProposalID string `json:"proposal_id"`
	Choice     string `json:"choice"`
}

// StepUpPayload is the payload of the authentication event trail
type StepUpPayload struct {
	Action string `json:"action"`
	Method string `json:"method,omitempty"`
	Status string `json:"status,omitempty"`
}

// DecodeContribution decodes a contribution-shaped payload according to
// the record's schema version
func DecodeContribution(rec *EventRecord) (*ContributionPayload, error) {
	if err := checkSchemaVersion(rec.SchemaVersion); err != nil {
		return nil, err
	}
	var p ContributionPayload
	if err := json.Unmarshal(rec.Payload, &p); err != nil {
		return nil, fmt.Errorf("decode contribution payload: %w", err)
	}
	return &p, nil
}

// DecodeWithdrawal decodes a withdrawal-shaped payload according to the
// record's schema version
func DecodeWithdrawal(rec *EventRecord) (*WithdrawalPayload, error) {
	if err := checkSchemaVersion(rec.SchemaVersion); err != nil {
		return nil, err
	}
	var p WithdrawalPayload
	if err := json.Unmarshal(rec.Payload, &p); err != nil {
		return nil, fmt.Errorf("decode withdrawal payload: %w", err)
	}
	return &p, nil
}

func checkSchemaVersion(v int) error {
	if v != 1 {
		return fmt.Errorf("unsupported payload schema version %d", v)
	}
	return nil
}
