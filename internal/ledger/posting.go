// Package ledger derives balanced double-entry postings from recorded
// events. Ledger rows are derived data: the event log stays authoritative
// and corrections are new opposite-signed journals, never edits.
package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/stokvelhub/pool-ledger/internal/adapter"
	"github.com/stokvelhub/pool-ledger/internal/domain"
	"github.com/stokvelhub/pool-ledger/internal/store"
	"github.com/stokvelhub/pool-ledger/internal/store/schema"
)

// entry is one side of a posting before it becomes a row
type entry struct {
	account string
	debit   int64
	credit  int64
}

// Engine maps a closed set of event types to balanced debit/credit pairs
// over the static chart of accounts
type Engine struct {
	db   store.Store
	json adapter.JSON
}

// NewEngine creates a posting engine
func NewEngine(db store.Store, json adapter.JSON) *Engine {
	return &Engine{db: db, json: json}
}

// Post materializes the ledger rows for a recorded event and persists
// them. Event types outside the mapped set produce zero rows, which is
// not an error. All rows from one call share one journal id and the
// triggering event id. The balance invariant is enforced by construction
// (each branch emits a matched pair) and still asserted before
// persisting, so a future mapping that breaks it fails fast with
// UNBALANCED_JOURNAL.
func (e *Engine) Post(ctx context.Context, event *domain.EventRecord) ([]domain.LedgerRow, error) {
	entries, currency, metadata, err := e.mapEvent(event)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	var debits, credits int64
	for _, en := range entries {
		debits += en.debit
		credits += en.credit
	}
	if debits != credits {
		return nil, fmt.Errorf("%w: event %s debits %d != credits %d",
			domain.ErrUnbalancedJournal, event.EventID, debits, credits)
	}

	var metadataJSON []byte
	if metadata != nil {
		metadataJSON, err = e.json.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal posting metadata: %w", err)
		}
	}

	journalID := uuid.NewString()
	rows := make([]domain.LedgerRow, 0, len(entries))
	stored := make([]*schema.LedgerEntry, 0, len(entries))
	for _, en := range entries {
		row := domain.LedgerRow{
			EntryID:      ulid.Make().String(),
			JournalID:    journalID,
			EventID:      event.EventID,
			PoolID:       event.PoolID,
			AccountCode:  en.account,
			DebitAmount:  en.debit,
			CreditAmount: en.credit,
			Currency:     currency,
			OccurredAt:   event.OccurredAt,
			Metadata:     metadataJSON,
		}
		rows = append(rows, row)
		stored = append(stored, schema.LedgerEntryFromDomain(&row))
	}

	if err := e.db.InsertLedgerEntries(ctx, stored); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreWriteFailed, err)
	}

	return rows, nil
}

// mapEvent resolves the debit/credit pair for a mapped event type
func (e *Engine) mapEvent(event *domain.EventRecord) ([]entry, domain.Currency, interface{}, error) {
	switch event.EventType {
	case domain.EventTypeContributionIntentRecorded, domain.EventTypeSettlementInitiated:
		p, err := domain.DecodeContribution(event)
		if err != nil {
			return nil, "", nil, err
		}
		return []entry{
			{account: AccountPoolBalance, debit: p.Amount},
			{account: AccountMemberContribution, credit: p.Amount},
		}, p.Currency, map[string]string{"member_email": p.MemberEmail, "method": p.Method}, nil

	case domain.EventTypeWithdrawalIntentRecorded:
		p, err := domain.DecodeWithdrawal(event)
		if err != nil {
			return nil, "", nil, err
		}
		return []entry{
			{account: AccountMemberWithdrawal, debit: p.Amount},
			{account: AccountPoolBalance, credit: p.Amount},
		}, p.Currency, map[string]string{"member_email": p.MemberEmail}, nil

	default:
		return nil, "", nil, nil
	}
}

// Rows returns a pool's ledger rows in posting order
func (e *Engine) Rows(ctx context.Context, poolID string) ([]domain.LedgerRow, error) {
	stored, err := e.db.ListLedgerEntries(ctx, poolID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreReadFailed, err)
	}

	rows := make([]domain.LedgerRow, 0, len(stored))
	for i := range stored {
		rows = append(rows, stored[i].ToDomain())
	}
	return rows, nil
}
