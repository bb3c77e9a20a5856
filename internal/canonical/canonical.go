// Package canonical produces the deterministic byte form every chain hash
// is computed over. Structurally equal values serialize identically no
// matter how their maps were built; sequences keep their order; nested
// values are canonicalized depth-first. The implementation follows RFC 8785
// (JSON Canonicalization Scheme).
package canonical

import (
	"fmt"

	"github.com/stokvelhub/pool-ledger/internal/adapter"
	"github.com/stokvelhub/pool-ledger/internal/domain"
)

// Serializer canonicalizes structured values. It is pure and safe for
// concurrent use.
type Serializer struct {
	json adapter.JSON
	jcs  adapter.JCS
}

// NewSerializer creates a canonical serializer
func NewSerializer(json adapter.JSON, jcs adapter.JCS) *Serializer {
	return &Serializer{json: json, jcs: jcs}
}

// Marshal returns the canonical byte form of v. Cyclic structures and
// values without a JSON representation are rejected rather than silently
// truncated; a corrupted canonical form would poison every hash computed
// after it.
func (s *Serializer) Marshal(v interface{}) ([]byte, error) {
	raw, err := s.json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: value is not canonically serializable: %v", domain.ErrCryptoUnavailable, err)
	}

	canon, err := s.jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: canonicalization failed: %v", domain.ErrCryptoUnavailable, err)
	}

	return canon, nil
}
