package schema

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/stokvelhub/pool-ledger/internal/domain"
)

// EventRecord represents the event_log table - the append-only, per-pool
// hash-chained governance and financial event log.
//
// Seq gives the strict total order within the table; chain order within a
// partition follows Seq. OccurredAt is stored as the exact RFC 3339 text
// that was hashed, never as a timestamp column, so recomputing the chain
// hash from a stored row is bit-exact.
//
// The unique index on (pool_id, prev_hash) is the conditional-write
// primitive: two appends that read the same tail cannot both commit, so a
// chain can never fork even across processes.
type EventRecord struct {
	// Seq is an auto-incrementing sequence number used for chain ordering
	Seq int64 `gorm:"column:seq;primaryKey;autoIncrement"`
	// EventID is the opaque unique identifier assigned at append time
	EventID string `gorm:"column:event_id;not null;type:text;uniqueIndex:idx_event_log_event_id"`
	// OccurredAt is the hashed UTC timestamp in RFC 3339 text form
	OccurredAt string `gorm:"column:occurred_at;not null;type:text"`
	// ActorID identifies the principal who caused the event
	ActorID string `gorm:"column:actor_id;not null;type:text"`
	// PoolID is the partition key; all chaining guarantees are scoped to it
	PoolID string `gorm:"column:pool_id;not null;type:text;index:idx_event_log_pool;uniqueIndex:idx_event_log_pool_prev"`
	// EventType is one of the closed event enumeration
	EventType string `gorm:"column:event_type;not null;type:text"`
	// SchemaVersion discriminates payload shapes for forward compatibility
	SchemaVersion int `gorm:"column:schema_version;not null;default:1"`
	// Payload contains event-specific data, opaque to the chain engine
	Payload datatypes.JSON `gorm:"column:payload;type:jsonb"`
	// PrevHash is the record hash of the partition's previous record, or
	// empty for the partition's first record
	PrevHash string `gorm:"column:prev_hash;not null;type:text;uniqueIndex:idx_event_log_pool_prev"`
	// RecordHash is the chained digest over prev_hash and this record
	RecordHash string `gorm:"column:record_hash;not null;type:text"`
	// CreatedAt is the persistence timestamp, kept for operational queries
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the EventRecord model
func (EventRecord) TableName() string {
	return "event_log"
}

// ToDomain converts the stored row into the hashed envelope form
func (r *EventRecord) ToDomain() domain.EventRecord {
	return domain.EventRecord{
		EventID:       r.EventID,
		OccurredAt:    r.OccurredAt,
		ActorID:       r.ActorID,
		PoolID:        r.PoolID,
		EventType:     domain.EventType(r.EventType),
		SchemaVersion: r.SchemaVersion,
		Payload:       json.RawMessage(r.Payload),
		PrevHash:      r.PrevHash,
		RecordHash:    r.RecordHash,
	}
}

// EventRecordFromDomain converts a hashed envelope into its stored form
func EventRecordFromDomain(rec *domain.EventRecord) *EventRecord {
	return &EventRecord{
		EventID:       rec.EventID,
		OccurredAt:    rec.OccurredAt,
		ActorID:       rec.ActorID,
		PoolID:        rec.PoolID,
		EventType:     string(rec.EventType),
		SchemaVersion: rec.SchemaVersion,
		Payload:       datatypes.JSON(rec.Payload),
		PrevHash:      rec.PrevHash,
		RecordHash:    rec.RecordHash,
	}
}
