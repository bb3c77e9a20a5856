// Package security enforces step-up challenges before privileged,
// audit-worthy actions. Every challenge and verdict is itself recorded on
// the system partition of the event store, so the authentication trail is
// as tamper-evident as the business history.
package security

import (
	"context"
	"fmt"

	"github.com/stokvelhub/pool-ledger/internal/domain"
	"github.com/stokvelhub/pool-ledger/internal/eventstore"
)

// Session is the caller's authentication state
type Session struct {
	UserID        string
	Authenticated bool
	MFAVerified   bool
}

// ChallengeVerifier is the external authentication collaborator that
// resolves a step-up challenge (WebAuthn, TOTP)
//
//go:generate mockgen -source=stepup.go -destination=../mocks/stepup.go -package=mocks -mock_names=ChallengeVerifier=MockChallengeVerifier
type ChallengeVerifier interface {
	Verify(ctx context.Context, session Session, action string) (bool, error)
}

// MFAVerifier resolves challenges from the session's MFA state. It stands
// in until a WebAuthn collaborator is wired.
type MFAVerifier struct{}

func (MFAVerifier) Verify(_ context.Context, session Session, _ string) (bool, error) {
	return session.Authenticated && session.MFAVerified, nil
}

// Gate issues and records step-up challenges
type Gate struct {
	events   *eventstore.Store
	verifier ChallengeVerifier
}

// NewGate creates a step-up gate over the given event store
func NewGate(events *eventstore.Store, verifier ChallengeVerifier) *Gate {
	return &Gate{events: events, verifier: verifier}
}

// RequireStepUp runs a step-up challenge for the given action. The
// challenge issuance, and the success or failure verdict, are each
// recorded as events. A false result must block the privileged action.
func (g *Gate) RequireStepUp(ctx context.Context, session Session, action string) (bool, error) {
	if session.UserID == "" {
		return false, domain.ErrEmptyActor
	}

	_, err := g.events.Append(ctx, eventstore.AppendParams{
		PoolID:    domain.SystemPartition,
		ActorID:   session.UserID,
		EventType: domain.EventTypeAuthChallengeIssued,
		Payload:   domain.StepUpPayload{Action: action, Method: "PASSKEY"},
	})
	if err != nil {
		return false, fmt.Errorf("record step-up challenge: %w", err)
	}

	verified, err := g.verifier.Verify(ctx, session, action)
	if err != nil {
		return false, fmt.Errorf("resolve step-up challenge: %w", err)
	}

	if !verified {
		_, recordErr := g.events.Append(ctx, eventstore.AppendParams{
			PoolID:    domain.SystemPartition,
			ActorID:   session.UserID,
			EventType: domain.EventTypeAuthAttempt,
			Payload:   domain.StepUpPayload{Action: action, Status: "DENIED"},
		})
		if recordErr != nil {
			return false, fmt.Errorf("record denied step-up: %w", recordErr)
		}
		return false, nil
	}

	_, err = g.events.Append(ctx, eventstore.AppendParams{
		PoolID:    domain.SystemPartition,
		ActorID:   session.UserID,
		EventType: domain.EventTypeStepUpVerified,
		Payload:   domain.StepUpPayload{Action: action, Status: "SUCCESS"},
	})
	if err != nil {
		return false, fmt.Errorf("record verified step-up: %w", err)
	}

	return true, nil
}
