// Package export assembles regulator-ready audit packs. A pack bundles a
// partition's full history with a fresh verification report and the
// canonical hashes of the governance artifacts in force, so the recipient
// can independently re-derive every hash in the bundle.
package export

import (
	"context"
	"fmt"
	"time"

	"github.com/stokvelhub/pool-ledger/internal/auditstore"
	"github.com/stokvelhub/pool-ledger/internal/domain"
	"github.com/stokvelhub/pool-ledger/internal/eventstore"
	"github.com/stokvelhub/pool-ledger/internal/governance"
	"github.com/stokvelhub/pool-ledger/internal/hashchain"
	"github.com/stokvelhub/pool-ledger/internal/ledger"
	"github.com/stokvelhub/pool-ledger/internal/verify"
)

// ArtifactDigest records the canonical hash of one governance artifact
type ArtifactDigest struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Hash    string `json:"hash"`
}

// Metadata describes the provenance of a pack
type Metadata struct {
	PoolID         string           `json:"pool_id"`
	GeneratedAt    string           `json:"generated_at_utc"`
	OperatingModel string           `json:"operating_model"`
	HashAlgorithm  string           `json:"hash_algorithm"`
	CanonicalForm  string           `json:"canonical_form"`
	Artifacts      []ArtifactDigest `json:"artifacts"`
}

// Pack is a complete, self-verifiable export of one pool partition
type Pack struct {
	Metadata          Metadata             `json:"metadata"`
	EventVerification verify.Report        `json:"event_verification"`
	AuditVerification verify.Report        `json:"audit_verification"`
	Events            []domain.EventRecord `json:"events"`
	AuditTrail        []domain.AuditRecord `json:"audit_trail"`
	LedgerRows        []domain.LedgerRow   `json:"ledger_rows"`
}

// Builder assembles packs from the live stores
type Builder struct {
	events   *eventstore.Store
	audits   *auditstore.Store
	ledger   *ledger.Engine
	verifier *verify.Verifier
	chain    *hashchain.Engine
}

// NewBuilder creates a pack builder
func NewBuilder(events *eventstore.Store, audits *auditstore.Store, ledgerEngine *ledger.Engine, verifier *verify.Verifier, chain *hashchain.Engine) *Builder {
	return &Builder{
		events:   events,
		audits:   audits,
		ledger:   ledgerEngine,
		verifier: verifier,
		chain:    chain,
	}
}

// Build assembles the pack for one pool. All record sets are in ascending
// chain order, and the verification reports are computed from the very
// records included in the pack.
func (b *Builder) Build(ctx context.Context, poolID, operatingModel string) (*Pack, error) {
	events, err := b.events.Read(ctx, poolID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("read events for export: %w", err)
	}

	audits, err := b.audits.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("read audit trail for export: %w", err)
	}

	rows, err := b.ledger.Rows(ctx, poolID)
	if err != nil {
		return nil, fmt.Errorf("read ledger rows for export: %w", err)
	}

	artifacts, err := b.artifactDigests()
	if err != nil {
		return nil, err
	}

	return &Pack{
		Metadata: Metadata{
			PoolID:         poolID,
			GeneratedAt:    domain.FormatTimestamp(time.Now()),
			OperatingModel: operatingModel,
			HashAlgorithm:  "SHA-256",
			CanonicalForm:  "RFC 8785 JCS",
			Artifacts:      artifacts,
		},
		EventVerification: b.verifier.Events(events),
		AuditVerification: b.verifier.Audits(audits),
		Events:            events,
		AuditTrail:        audits,
		LedgerRows:        rows,
	}, nil
}

func (b *Builder) artifactDigests() ([]ArtifactDigest, error) {
	perimeterHash, err := b.chain.ArtifactHash(governance.Perimeter)
	if err != nil {
		return nil, fmt.Errorf("hash system perimeter: %w", err)
	}

	digests := []ArtifactDigest{{
		Name:    "system_perimeter",
		Version: governance.Perimeter.Version,
		Hash:    perimeterHash,
	}}

	templates := governance.Templates()
	for _, key := range []string{"family_wealth", "sme_bulk_buying", "stokvel"} {
		tpl := templates[key]
		hash, err := b.chain.ArtifactHash(tpl)
		if err != nil {
			return nil, fmt.Errorf("hash constitution template %s: %w", key, err)
		}
		digests = append(digests, ArtifactDigest{
			Name:    "constitution_template:" + tpl.Key,
			Version: tpl.Version,
			Hash:    hash,
		})
	}

	return digests, nil
}
