package messaging

import (
	"context"

	"github.com/stokvelhub/pool-ledger/internal/domain"
	"github.com/stokvelhub/pool-ledger/internal/verify"
)

// Publisher defines the interface for publishing ledger notifications to
// the message broker. Publishing is best effort: a broker outage must
// never fail an append, the chain in the database is the source of truth.
//
//go:generate mockgen -source=publisher.go -destination=../mocks/publisher.go -package=mocks -mock_names=Publisher=MockPublisher
type Publisher interface {
	// PublishRecorded fans out a freshly appended event record
	PublishRecorded(ctx context.Context, rec *domain.EventRecord) error
	// PublishAlert raises an integrity alert for a partition
	PublishAlert(ctx context.Context, poolID string, report *verify.Report) error
	// Close closes the connection
	Close()
}

// NoopPublisher discards everything. Used when no broker is configured
// and in tests.
type NoopPublisher struct{}

func (NoopPublisher) PublishRecorded(context.Context, *domain.EventRecord) error { return nil }

func (NoopPublisher) PublishAlert(context.Context, string, *verify.Report) error { return nil }

func (NoopPublisher) Close() {}
