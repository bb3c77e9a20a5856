package schema

import (
	"time"

	"gorm.io/datatypes"

	"github.com/stokvelhub/pool-ledger/internal/domain"
)

// Pool represents the pools table
type Pool struct {
	// PoolID is the pool identifier (UUID), also the event partition key
	PoolID string `gorm:"column:pool_id;primaryKey;type:text"`
	// Name is the display name of the pool
	Name string `gorm:"column:name;not null;type:text"`
	// Type is the pool flavor (stokvel, family_wealth, sme_bulk_buying)
	Type string `gorm:"column:type;not null;type:text"`
	// ContributionAmount is the agreed recurring contribution in minor units
	ContributionAmount int64 `gorm:"column:contribution_amount;not null"`
	// Currency is the pool currency
	Currency string `gorm:"column:currency;not null;type:text"`
	// Members holds the member emails as a JSON array
	Members datatypes.JSONSlice[string] `gorm:"column:members;type:jsonb"`
	// CreatedAt is the persistence timestamp
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Pool model
func (Pool) TableName() string {
	return "pools"
}

// ToDomain converts the stored row into its domain form
func (p *Pool) ToDomain() domain.Pool {
	return domain.Pool{
		PoolID:             p.PoolID,
		Name:               p.Name,
		Type:               p.Type,
		ContributionAmount: p.ContributionAmount,
		Currency:           domain.Currency(p.Currency),
		Members:            []string(p.Members),
		CreatedAt:          p.CreatedAt,
	}
}

// PoolFromDomain converts a domain pool into its stored form
func PoolFromDomain(p *domain.Pool) *Pool {
	return &Pool{
		PoolID:             p.PoolID,
		Name:               p.Name,
		Type:               p.Type,
		ContributionAmount: p.ContributionAmount,
		Currency:           string(p.Currency),
		Members:            datatypes.NewJSONSlice(p.Members),
		CreatedAt:          p.CreatedAt,
	}
}
