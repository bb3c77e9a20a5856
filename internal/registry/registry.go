// Package registry manages the pool lifecycle: creation, constitution
// signing and governance events. Every lifecycle step is recorded on the
// pool's chain, so the registry row is a convenience view while the event
// log stays authoritative.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/stokvelhub/pool-ledger/internal/adapter"
	"github.com/stokvelhub/pool-ledger/internal/domain"
	"github.com/stokvelhub/pool-ledger/internal/eventstore"
	"github.com/stokvelhub/pool-ledger/internal/governance"
	"github.com/stokvelhub/pool-ledger/internal/hashchain"
	"github.com/stokvelhub/pool-ledger/internal/store"
	"github.com/stokvelhub/pool-ledger/internal/store/schema"
)

// CreatePoolParams describes a new pool
type CreatePoolParams struct {
	ActorID            string
	Name               string
	Type               string
	ContributionAmount int64
	Currency           domain.Currency
	Members            []string
}

// Registry is the pool lifecycle service
type Registry struct {
	db     store.Store
	events *eventstore.Store
	chain  *hashchain.Engine
	clock  adapter.Clock
}

// New creates a pool registry
func New(db store.Store, events *eventstore.Store, chain *hashchain.Engine, clock adapter.Clock) *Registry {
	return &Registry{db: db, events: events, chain: chain, clock: clock}
}

// CreatePool persists a new pool and records POOL_CREATED on its chain.
// The POOL_CREATED event is always the first record of the partition.
func (r *Registry) CreatePool(ctx context.Context, params CreatePoolParams) (*domain.Pool, *domain.EventRecord, error) {
	if params.Name == "" {
		return nil, nil, errors.New("pool name must not be empty")
	}
	if params.ContributionAmount <= 0 {
		return nil, nil, errors.New("contribution amount must be positive")
	}
	if len(params.Members) == 0 {
		return nil, nil, errors.New("a pool needs at least one member")
	}

	pool := domain.Pool{
		PoolID:             uuid.NewString(),
		Name:               params.Name,
		Type:               params.Type,
		ContributionAmount: params.ContributionAmount,
		Currency:           params.Currency,
		Members:            params.Members,
		CreatedAt:          r.clock.Now().UTC(),
	}

	if err := r.db.CreatePool(ctx, schema.PoolFromDomain(&pool)); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrStoreWriteFailed, err)
	}

	rec, err := r.events.Append(ctx, eventstore.AppendParams{
		PoolID:    pool.PoolID,
		ActorID:   params.ActorID,
		EventType: domain.EventTypePoolCreated,
		Payload: domain.PoolCreatedPayload{
			Name:               pool.Name,
			Type:               pool.Type,
			ContributionAmount: pool.ContributionAmount,
			Currency:           pool.Currency,
			Members:            pool.Members,
		},
	})
	if err != nil {
		return nil, nil, err
	}

	return &pool, rec, nil
}

// Get retrieves a pool by id
func (r *Registry) Get(ctx context.Context, poolID string) (*domain.Pool, error) {
	row, err := r.db.GetPool(ctx, poolID)
	if err != nil {
		if errors.Is(err, domain.ErrPoolNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreReadFailed, err)
	}
	pool := row.ToDomain()
	return &pool, nil
}

// SignConstitution renders the named template for the pool, hashes the
// rendered text canonically and records CONSTITUTION_SIGNED carrying both
// the text and its hash. The hash lets any exported copy be proven
// unchanged against the chain.
func (r *Registry) SignConstitution(ctx context.Context, poolID, actorID, legalName, templateKey string) (*domain.EventRecord, error) {
	pool, err := r.Get(ctx, poolID)
	if err != nil {
		return nil, err
	}

	tpl, ok := governance.Templates()[templateKey]
	if !ok {
		return nil, fmt.Errorf("unknown constitution template %q", templateKey)
	}

	text := renderConstitution(tpl, legalName, pool)
	docHash, err := r.chain.ArtifactHash(text)
	if err != nil {
		return nil, err
	}

	return r.events.Append(ctx, eventstore.AppendParams{
		PoolID:    poolID,
		ActorID:   actorID,
		EventType: domain.EventTypeConstitutionSigned,
		Payload: domain.ConstitutionSignedPayload{
			LegalName:    legalName,
			Constitution: text,
			DocHash:      docHash,
		},
	})
}

// Propose records a governance proposal on the pool's chain
func (r *Registry) Propose(ctx context.Context, poolID, actorID, title, description string) (*domain.EventRecord, error) {
	if title == "" {
		return nil, errors.New("proposal title must not be empty")
	}
	if _, err := r.Get(ctx, poolID); err != nil {
		return nil, err
	}
	return r.events.Append(ctx, eventstore.AppendParams{
		PoolID:    poolID,
		ActorID:   actorID,
		EventType: domain.EventTypeProposalCreated,
		Payload:   domain.ProposalPayload{Title: title, Description: description},
	})
}

// CastVote records a vote on the pool's chain
func (r *Registry) CastVote(ctx context.Context, poolID, actorID, proposalID, choice string) (*domain.EventRecord, error) {
	if proposalID == "" {
		return nil, errors.New("proposal id must not be empty")
	}
	if _, err := r.Get(ctx, poolID); err != nil {
		return nil, err
	}
	return r.events.Append(ctx, eventstore.AppendParams{
		PoolID:    poolID,
		ActorID:   actorID,
		EventType: domain.EventTypeVoteCast,
		Payload:   domain.VotePayload{ProposalID: proposalID, Choice: choice},
	})
}

func renderConstitution(tpl governance.ConstitutionTemplate, legalName string, pool *domain.Pool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (v%s)\n", tpl.Title, tpl.Version)
	fmt.Fprintf(&b, "Adopted by %s for pool %q.\n\n", legalName, pool.Name)
	for i, article := range tpl.Articles {
		fmt.Fprintf(&b, "Article %d. %s\n", i+1, article)
	}
	return b.String()
}
