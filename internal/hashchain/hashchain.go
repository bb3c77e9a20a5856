// Package hashchain implements the chaining protocol that makes the record
// stores tamper-evident:
//
//	chain_hash(prev, record) = sha256(prev + "|" + canonical(record with blank hash))
//
// Changing any field of any past record, or reordering records, changes
// every subsequent hash.
package hashchain

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/stokvelhub/pool-ledger/internal/canonical"
)

// Separator joins the previous hash and the canonical record bytes
const Separator = "|"

// Engine computes chain and artifact hashes. It is stateless and safe for
// concurrent use.
type Engine struct {
	canon *canonical.Serializer
}

// NewEngine creates a hash-chain engine over the given serializer
func NewEngine(canon *canonical.Serializer) *Engine {
	return &Engine{canon: canon}
}

// ChainHash computes the chained hash for a record envelope. prevHash is
// the tail hash of the partition, or the empty string for the first
// record. The envelope must already carry a blank hash field so the field
// is present in the canonical form and cannot be reordered away.
func (e *Engine) ChainHash(prevHash string, envelope interface{}) (string, error) {
	canon, err := e.canon.Marshal(envelope)
	if err != nil {
		return "", err
	}

	input := make([]byte, 0, len(prevHash)+1+len(canon))
	input = append(input, prevHash...)
	input = append(input, Separator...)
	input = append(input, canon...)

	sum := sha256.Sum256(input)
	return hex.EncodeToString(sum[:]), nil
}

// ArtifactHash computes the authoritative hash of a static governance
// artifact (constitution template, system perimeter) for export bundles.
func (e *Engine) ArtifactHash(artifact interface{}) (string, error) {
	canon, err := e.canon.Marshal(artifact)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}
