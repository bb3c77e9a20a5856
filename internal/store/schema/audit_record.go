package schema

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/stokvelhub/pool-ledger/internal/domain"
)

// AuditRecord represents the audit_log table - the single global
// hash-chained record of privileged actions. Kept separate from event_log
// because its retention and evidentiary handling differ from pool
// business events.
//
// The unique index on prev_hash is the global conditional-write check:
// only one record may follow any given tail, and only one record may ever
// carry the empty genesis prev_hash.
type AuditRecord struct {
	// Seq is an auto-incrementing sequence number used for chain ordering
	Seq int64 `gorm:"column:seq;primaryKey;autoIncrement"`
	// AuditID is the opaque unique identifier assigned at append time
	AuditID string `gorm:"column:audit_id;not null;type:text;uniqueIndex:idx_audit_log_audit_id"`
	// OccurredAt is the hashed UTC timestamp in RFC 3339 text form
	OccurredAt string `gorm:"column:occurred_at;not null;type:text"`
	// ActorID identifies the principal who performed the action
	ActorID string `gorm:"column:actor_id;not null;type:text"`
	// Action names the privileged action
	Action string `gorm:"column:action;not null;type:text"`
	// TargetType optionally classifies the acted-on entity
	TargetType *string `gorm:"column:target_type;type:text"`
	// TargetID optionally identifies the acted-on entity
	TargetID *string `gorm:"column:target_id;type:text"`
	// Metadata contains action-specific context
	Metadata datatypes.JSON `gorm:"column:metadata;type:jsonb"`
	// PrevHash is the record hash of the chain's previous record
	PrevHash string `gorm:"column:prev_hash;not null;type:text;uniqueIndex:idx_audit_log_prev"`
	// RecordHash is the chained digest over prev_hash and this record
	RecordHash string `gorm:"column:record_hash;not null;type:text"`
	// CreatedAt is the persistence timestamp
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the AuditRecord model
func (AuditRecord) TableName() string {
	return "audit_log"
}

// ToDomain converts the stored row into the hashed envelope form
func (r *AuditRecord) ToDomain() domain.AuditRecord {
	return domain.AuditRecord{
		AuditID:    r.AuditID,
		OccurredAt: r.OccurredAt,
		ActorID:    r.ActorID,
		Action:     r.Action,
		TargetType: r.TargetType,
		TargetID:   r.TargetID,
		Metadata:   json.RawMessage(r.Metadata),
		PrevHash:   r.PrevHash,
		RecordHash: r.RecordHash,
	}
}

// AuditRecordFromDomain converts a hashed envelope into its stored form
func AuditRecordFromDomain(rec *domain.AuditRecord) *AuditRecord {
	return &AuditRecord{
		AuditID:    rec.AuditID,
		OccurredAt: rec.OccurredAt,
		ActorID:    rec.ActorID,
		Action:     rec.Action,
		TargetType: rec.TargetType,
		TargetID:   rec.TargetID,
		Metadata:   datatypes.JSON(rec.Metadata),
		PrevHash:   rec.PrevHash,
		RecordHash: rec.RecordHash,
	}
}
