// Package settlement performs the banking-rail handshake for
// value-movement intents. The platform never takes custody of member
// funds: each settlement is a request to a partner rail, and the recorded
// event only attests that the request was made.
package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/stokvelhub/pool-ledger/internal/adapter"
	"github.com/stokvelhub/pool-ledger/internal/compliance"
	"github.com/stokvelhub/pool-ledger/internal/domain"
	"github.com/stokvelhub/pool-ledger/internal/eventstore"
	"github.com/stokvelhub/pool-ledger/internal/logger"
)

// handshake request/response shapes of the partner rail API
type handshakeRequest struct {
	PoolID      string          `json:"pool_id"`
	MemberEmail string          `json:"member_email"`
	Amount      int64           `json:"amount"`
	Currency    domain.Currency `json:"currency"`
	Reference   string          `json:"reference"`
}

type handshakeResponse struct {
	SettlementID string `json:"settlement_id"`
	Status       string `json:"status"`
	Rail         string `json:"rail"`
}

// Initiator runs compliance-gated settlement handshakes and records the
// outcome on the pool's chain
type Initiator struct {
	events   *eventstore.Store
	gate     *compliance.Gate
	http     adapter.HTTPClient
	json     adapter.JSON
	railURL  string
	railName string
}

// NewInitiator creates a settlement initiator against the given partner
// rail endpoint
func NewInitiator(events *eventstore.Store, gate *compliance.Gate, http adapter.HTTPClient, json adapter.JSON, railURL, railName string) *Initiator {
	return &Initiator{
		events:   events,
		gate:     gate,
		http:     http,
		json:     json,
		railURL:  railURL,
		railName: railName,
	}
}

// Contribute settles a member contribution through the partner rail. The
// compliance gate is consulted first; a deny aborts with nothing
// recorded. When the rail handshake succeeds a SETTLEMENT_INITIATED
// event carries the partner's acknowledgement; when it fails after one
// retry the intent degrades to a plain CONTRIBUTION_INTENT_RECORDED so
// the member's intent is never lost.
func (s *Initiator) Contribute(ctx context.Context, poolID, actorID string, p domain.ContributionPayload) (*domain.EventRecord, error) {
	if err := s.gate.Check(string(domain.EventTypeSettlementInitiated), nil); err != nil {
		return nil, err
	}

	ack, err := s.handshake(ctx, poolID, p)
	if err != nil {
		logger.Warn("settlement handshake failed, recording plain intent",
			zap.String("pool_id", poolID), zap.Error(err))
		p.SettlementMode = "DEFERRED"
		return s.events.Append(ctx, eventstore.AppendParams{
			PoolID:    poolID,
			ActorID:   actorID,
			EventType: domain.EventTypeContributionIntentRecorded,
			Payload:   p,
		})
	}

	p.SettlementMode = compliance.OperatingModel
	p.Handshake = ack
	return s.events.Append(ctx, eventstore.AppendParams{
		PoolID:    poolID,
		ActorID:   actorID,
		EventType: domain.EventTypeSettlementInitiated,
		Payload:   p,
	})
}

// handshake posts the settlement request to the partner rail, retrying
// once on transient failures
func (s *Initiator) handshake(ctx context.Context, poolID string, p domain.ContributionPayload) ([]byte, error) {
	req := handshakeRequest{
		PoolID:      poolID,
		MemberEmail: p.MemberEmail,
		Amount:      p.Amount,
		Currency:    p.Currency,
		Reference:   fmt.Sprintf("%s/%s", s.railName, poolID),
	}
	body, err := s.json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal handshake request: %w", err)
	}

	var resp []byte
	op := func() error {
		resp, err = s.http.PostJSON(ctx, s.railURL, body)
		if err != nil {
			var statusErr *adapter.StatusError
			if errors.As(err, &statusErr) && !statusErr.Retryable() {
				return backoff.Permanent(err)
			}
			return err
		}
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 1), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, err
	}

	var ack handshakeResponse
	if err := s.json.Unmarshal(resp, &ack); err != nil {
		return nil, fmt.Errorf("decode handshake response: %w", err)
	}
	if ack.SettlementID == "" {
		return nil, errors.New("partner rail returned no settlement id")
	}
	return resp, nil
}
