package hashchain

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stokvelhub/pool-ledger/internal/adapter"
	"github.com/stokvelhub/pool-ledger/internal/canonical"
)

func newTestEngine() *Engine {
	return NewEngine(canonical.NewSerializer(adapter.NewJSON(), adapter.NewJCS()))
}

func TestChainHashMatchesManualComputation(t *testing.T) {
	e := newTestEngine()

	envelope := map[string]interface{}{
		"event_id":    "evt-1",
		"record_hash": "",
	}

	got, err := e.ChainHash("", envelope)
	require.NoError(t, err)

	canon := `{"event_id":"evt-1","record_hash":""}`
	sum := sha256.Sum256([]byte("|" + canon))
	assert.Equal(t, hex.EncodeToString(sum[:]), got)
}

func TestChainHashIncorporatesPreviousHash(t *testing.T) {
	e := newTestEngine()

	envelope := map[string]string{"event_id": "evt-1"}

	first, err := e.ChainHash("", envelope)
	require.NoError(t, err)
	second, err := e.ChainHash(first, envelope)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestChainHashIsDeterministic(t *testing.T) {
	e := newTestEngine()

	a := map[string]interface{}{"b": 2, "a": 1}
	b := map[string]interface{}{"a": 1, "b": 2}

	hashA, err := e.ChainHash("prev", a)
	require.NoError(t, err)
	hashB, err := e.ChainHash("prev", b)
	require.NoError(t, err)

	assert.Equal(t, hashA, hashB)
}

func TestChainHashChangesWithAnyField(t *testing.T) {
	e := newTestEngine()

	base, err := e.ChainHash("prev", map[string]interface{}{"amount": 500, "member": "a"})
	require.NoError(t, err)
	tampered, err := e.ChainHash("prev", map[string]interface{}{"amount": 501, "member": "a"})
	require.NoError(t, err)

	assert.NotEqual(t, base, tampered)
}

func TestChainHashIsLowercaseHex(t *testing.T) {
	e := newTestEngine()

	got, err := e.ChainHash("", map[string]string{"k": "v"})
	require.NoError(t, err)

	assert.Len(t, got, 64)
	assert.Regexp(t, "^[0-9a-f]{64}$", got)
}

func TestArtifactHashIsStableForEqualValues(t *testing.T) {
	e := newTestEngine()

	type doc struct {
		Title   string `json:"title"`
		Version string `json:"version"`
	}

	first, err := e.ArtifactHash(doc{Title: "Stokvel Constitution", Version: "2.0"})
	require.NoError(t, err)
	second, err := e.ArtifactHash(doc{Title: "Stokvel Constitution", Version: "2.0"})
	require.NoError(t, err)

	assert.Equal(t, first, second)

	changed, err := e.ArtifactHash(doc{Title: "Stokvel Constitution", Version: "2.1"})
	require.NoError(t, err)
	assert.NotEqual(t, first, changed)
}
