package rest

import (
	"github.com/stokvelhub/pool-ledger/internal/domain"
)

// createPoolRequest creates a pool and its first chain record
type createPoolRequest struct {
	ActorID            string   `json:"actor_id" binding:"required"`
	Name               string   `json:"name" binding:"required"`
	Type               string   `json:"type" binding:"required"`
	ContributionAmount int64    `json:"contribution_amount" binding:"required,gt=0"`
	Currency           string   `json:"currency" binding:"required"`
	Members            []string `json:"members" binding:"required,min=1"`
}

type createPoolResponse struct {
	Pool  domain.Pool        `json:"pool"`
	Event domain.EventRecord `json:"event"`
}

// contributionRequest records a contribution intent, optionally settled
// through the partner rail
type contributionRequest struct {
	ActorID     string `json:"actor_id" binding:"required"`
	MemberEmail string `json:"member_email" binding:"required,email"`
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Currency    string `json:"currency" binding:"required"`
	Method      string `json:"method"`
	Settle      bool   `json:"settle"`
}

type withdrawalRequest struct {
	ActorID     string `json:"actor_id" binding:"required"`
	MemberEmail string `json:"member_email" binding:"required,email"`
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Currency    string `json:"currency" binding:"required"`
	Reason      string `json:"reason"`
}

type signConstitutionRequest struct {
	ActorID     string `json:"actor_id" binding:"required"`
	LegalName   string `json:"legal_name" binding:"required"`
	TemplateKey string `json:"template_key" binding:"required"`
}

type proposalRequest struct {
	ActorID     string `json:"actor_id" binding:"required"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

type voteRequest struct {
	ActorID    string `json:"actor_id" binding:"required"`
	ProposalID string `json:"proposal_id" binding:"required"`
	Choice     string `json:"choice" binding:"required"`
}

type adminActionRequest struct {
	Action     string                 `json:"action" binding:"required"`
	TargetType *string                `json:"target_type"`
	TargetID   *string                `json:"target_id"`
	Metadata   map[string]interface{} `json:"metadata"`
}

type adviceRequest struct {
	Question string `form:"q" binding:"required"`
}

// ledgerRowView is a ledger row with display-formatted amounts
type ledgerRowView struct {
	domain.LedgerRow
	DebitDisplay  string `json:"debit_display"`
	CreditDisplay string `json:"credit_display"`
}

type recordedResponse struct {
	Event      domain.EventRecord `json:"event"`
	LedgerRows []domain.LedgerRow `json:"ledger_rows,omitempty"`
}
