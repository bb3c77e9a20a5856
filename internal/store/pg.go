package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/stokvelhub/pool-ledger/internal/domain"
	"github.com/stokvelhub/pool-ledger/internal/store/schema"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance. The gorm connection
// must be opened with TranslateError so duplicate-key violations surface
// as gorm.ErrDuplicatedKey.
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// Migrate creates or updates the record-store tables
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&schema.Pool{},
		&schema.EventRecord{},
		&schema.AuditRecord{},
		&schema.LedgerEntry{},
	)
}

// ConfigureConnectionPool configures the connection pool settings for a
// GORM database connection. Zero values fall back to defaults:
//   - MaxOpenConns: 20
//   - MaxIdleConns: 5
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

func (s *pgStore) InsertEvent(ctx context.Context, rec *schema.EventRecord) error {
	err := s.db.WithContext(ctx).Create(rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrTailConflict
		}
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func (s *pgStore) LatestEventHash(ctx context.Context, poolID string) (string, error) {
	var rec schema.EventRecord
	err := s.db.WithContext(ctx).
		Where("pool_id = ?", poolID).
		Order("seq DESC").
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read chain tail: %w", err)
	}
	return rec.RecordHash, nil
}

func (s *pgStore) ListEvents(ctx context.Context, poolID string, from, to *time.Time) ([]schema.EventRecord, error) {
	query := s.db.WithContext(ctx).Where("pool_id = ?", poolID)
	if from != nil {
		query = query.Where("created_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("created_at <= ?", *to)
	}

	var records []schema.EventRecord
	if err := query.Order("seq ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return records, nil
}

func (s *pgStore) ListEventPoolIDs(ctx context.Context) ([]string, error) {
	var poolIDs []string
	err := s.db.WithContext(ctx).
		Model(&schema.EventRecord{}).
		Distinct("pool_id").
		Order("pool_id ASC").
		Pluck("pool_id", &poolIDs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pool ids: %w", err)
	}
	return poolIDs, nil
}

func (s *pgStore) InsertAudit(ctx context.Context, rec *schema.AuditRecord) error {
	err := s.db.WithContext(ctx).Create(rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrTailConflict
		}
		return fmt.Errorf("failed to insert audit record: %w", err)
	}
	return nil
}

func (s *pgStore) LatestAuditHash(ctx context.Context) (string, error) {
	var rec schema.AuditRecord
	err := s.db.WithContext(ctx).Order("seq DESC").First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read audit chain tail: %w", err)
	}
	return rec.RecordHash, nil
}

func (s *pgStore) ListAudits(ctx context.Context) ([]schema.AuditRecord, error) {
	var records []schema.AuditRecord
	if err := s.db.WithContext(ctx).Order("seq ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list audit records: %w", err)
	}
	return records, nil
}

func (s *pgStore) InsertLedgerEntries(ctx context.Context, entries []*schema.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(entries).Error
	})
	if err != nil {
		return fmt.Errorf("failed to insert ledger entries: %w", err)
	}
	return nil
}

func (s *pgStore) ListLedgerEntries(ctx context.Context, poolID string) ([]schema.LedgerEntry, error) {
	var entries []schema.LedgerEntry
	err := s.db.WithContext(ctx).
		Where("pool_id = ?", poolID).
		Order("entry_id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	return entries, nil
}

func (s *pgStore) CreatePool(ctx context.Context, pool *schema.Pool) error {
	if err := s.db.WithContext(ctx).Create(pool).Error; err != nil {
		return fmt.Errorf("failed to create pool: %w", err)
	}
	return nil
}

func (s *pgStore) GetPool(ctx context.Context, poolID string) (*schema.Pool, error) {
	var pool schema.Pool
	err := s.db.WithContext(ctx).Where("pool_id = ?", poolID).First(&pool).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPoolNotFound
		}
		return nil, fmt.Errorf("failed to get pool: %w", err)
	}
	return &pool, nil
}
