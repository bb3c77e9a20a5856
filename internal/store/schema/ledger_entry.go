package schema

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/stokvelhub/pool-ledger/internal/domain"
)

// LedgerEntry represents the ledger_entries table - derived double-entry
// rows materialized from recorded events. Rows are never authoritative on
// their own; event_id is a back-reference into event_log. Corrections are
// expressed as new opposite-signed journals, never as edits.
type LedgerEntry struct {
	// EntryID is a sortable unique identifier (ULID)
	EntryID string `gorm:"column:entry_id;primaryKey;type:text"`
	// JournalID groups the rows produced from one event
	JournalID string `gorm:"column:journal_id;not null;type:text;index:idx_ledger_journal"`
	// EventID back-references the triggering event
	EventID string `gorm:"column:event_id;not null;type:text;index:idx_ledger_event"`
	// PoolID scopes reporting queries
	PoolID string `gorm:"column:pool_id;not null;type:text;index:idx_ledger_pool"`
	// AccountCode is a code from the static chart of accounts
	AccountCode string `gorm:"column:account_code;not null;type:text"`
	// DebitAmount is the debit side in minor units
	DebitAmount int64 `gorm:"column:debit_amount;not null;default:0"`
	// CreditAmount is the credit side in minor units
	CreditAmount int64 `gorm:"column:credit_amount;not null;default:0"`
	// Currency is the journal currency
	Currency string `gorm:"column:currency;not null;type:text"`
	// OccurredAt mirrors the triggering event's hashed timestamp text
	OccurredAt string `gorm:"column:occurred_at;not null;type:text"`
	// Metadata carries posting context (member email, method)
	Metadata datatypes.JSON `gorm:"column:metadata;type:jsonb"`
	// CreatedAt is the persistence timestamp
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the LedgerEntry model
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

// ToDomain converts the stored row into its domain form
func (r *LedgerEntry) ToDomain() domain.LedgerRow {
	return domain.LedgerRow{
		EntryID:      r.EntryID,
		JournalID:    r.JournalID,
		EventID:      r.EventID,
		PoolID:       r.PoolID,
		AccountCode:  r.AccountCode,
		DebitAmount:  r.DebitAmount,
		CreditAmount: r.CreditAmount,
		Currency:     domain.Currency(r.Currency),
		OccurredAt:   r.OccurredAt,
		Metadata:     json.RawMessage(r.Metadata),
	}
}

// LedgerEntryFromDomain converts a domain row into its stored form
func LedgerEntryFromDomain(row *domain.LedgerRow) *LedgerEntry {
	return &LedgerEntry{
		EntryID:      row.EntryID,
		JournalID:    row.JournalID,
		EventID:      row.EventID,
		PoolID:       row.PoolID,
		AccountCode:  row.AccountCode,
		DebitAmount:  row.DebitAmount,
		CreditAmount: row.CreditAmount,
		Currency:     string(row.Currency),
		OccurredAt:   row.OccurredAt,
		Metadata:     datatypes.JSON(row.Metadata),
	}
}
