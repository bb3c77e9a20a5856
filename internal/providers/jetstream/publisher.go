// Package jetstream implements the messaging publisher over NATS
// JetStream.
package jetstream

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/stokvelhub/pool-ledger/internal/adapter"
	"github.com/stokvelhub/pool-ledger/internal/domain"
	"github.com/stokvelhub/pool-ledger/internal/logger"
	"github.com/stokvelhub/pool-ledger/internal/messaging"
	"github.com/stokvelhub/pool-ledger/internal/verify"
)

const (
	subjectPrefix = "pool_ledger.events"
	alertSubject  = "pool_ledger.alerts.integrity"
)

// Config holds the configuration for NATS JetStream connection
type Config struct {
	URL            string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectionName string
}

type publisher struct {
	nc   adapter.NatsConn
	js   adapter.JetStream
	json adapter.JSON
}

type integrityAlert struct {
	PoolID       string `json:"pool_id"`
	Status       string `json:"status"`
	OffendingID  string `json:"offending_id,omitempty"`
	ExpectedHash string `json:"expected_hash,omitempty"`
	ComputedHash string `json:"computed_hash,omitempty"`
	Detail       string `json:"detail,omitempty"`
	RaisedAt     string `json:"raised_at_utc"`
}

// NewPublisher creates a new NATS JetStream publisher
func NewPublisher(cfg Config, natsJS adapter.NatsJetStream, jsonAdapter adapter.JSON) (messaging.Publisher, error) {
	opts := []nats.Option{
		nats.Name(cfg.ConnectionName),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error(err, zap.String("message", "Disconnected from NATS"))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, js, err := natsJS.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS and create JetStream: %w", err)
	}

	return &publisher{
		nc:   nc,
		js:   js,
		json: jsonAdapter,
	}, nil
}

// PublishRecorded fans out an appended record on
// pool_ledger.events.{event_type}
func (p *publisher) PublishRecorded(ctx context.Context, rec *domain.EventRecord) error {
	data, err := p.json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", subjectPrefix, strings.ToLower(string(rec.EventType)))
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish record: %w", err)
	}
	return nil
}

// PublishAlert raises an integrity alert on pool_ledger.alerts.integrity
func (p *publisher) PublishAlert(ctx context.Context, poolID string, report *verify.Report) error {
	data, err := p.json.Marshal(integrityAlert{
		PoolID:       poolID,
		Status:       string(report.Status),
		OffendingID:  report.OffendingID,
		ExpectedHash: report.Expected,
		ComputedHash: report.Computed,
		Detail:       report.Detail,
		RaisedAt:     domain.FormatTimestamp(time.Now()),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	if _, err := p.js.Publish(ctx, alertSubject, data); err != nil {
		return fmt.Errorf("failed to publish alert: %w", err)
	}
	return nil
}

// Close closes the NATS connection
func (p *publisher) Close() {
	if p.nc == nil {
		return
	}
	p.nc.Close()
}
