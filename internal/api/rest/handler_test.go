package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stokvelhub/pool-ledger/internal/adapter"
	"github.com/stokvelhub/pool-ledger/internal/advisory"
	"github.com/stokvelhub/pool-ledger/internal/api/middleware"
	"github.com/stokvelhub/pool-ledger/internal/auditstore"
	"github.com/stokvelhub/pool-ledger/internal/canonical"
	"github.com/stokvelhub/pool-ledger/internal/compliance"
	"github.com/stokvelhub/pool-ledger/internal/domain"
	"github.com/stokvelhub/pool-ledger/internal/eventstore"
	"github.com/stokvelhub/pool-ledger/internal/export"
	"github.com/stokvelhub/pool-ledger/internal/hashchain"
	"github.com/stokvelhub/pool-ledger/internal/ledger"
	"github.com/stokvelhub/pool-ledger/internal/messaging"
	"github.com/stokvelhub/pool-ledger/internal/rates"
	"github.com/stokvelhub/pool-ledger/internal/registry"
	"github.com/stokvelhub/pool-ledger/internal/security"
	"github.com/stokvelhub/pool-ledger/internal/settlement"
	"github.com/stokvelhub/pool-ledger/internal/store"
	"github.com/stokvelhub/pool-ledger/internal/verify"
)

type testEnv struct {
	router  *gin.Engine
	events  *eventstore.Store
	posting *ledger.Engine
}

// newTestEnv wires the full handler over an in-memory store. Rates fall
// back to the static table so conversions are deterministic.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := store.NewMemoryStore()
	jsonAdapter := adapter.NewJSON()
	clock := adapter.NewClock()
	chain := hashchain.NewEngine(canonical.NewSerializer(jsonAdapter, adapter.NewJCS()))
	events := eventstore.New(db, chain, jsonAdapter, clock)
	audits := auditstore.New(db, chain, jsonAdapter, clock)
	posting := ledger.NewEngine(db, jsonAdapter)
	verifier := verify.New(chain)

	deps := Deps{
		Pools:     registry.New(db, events, chain, clock),
		Events:    events,
		Audits:    audits,
		Posting:   posting,
		Settler:   settlement.NewInitiator(events, compliance.NewGate(), nil, jsonAdapter, "", "stitch"),
		StepUp:    security.NewGate(events, security.MFAVerifier{}),
		Advisor:   advisory.NewClient(nil, jsonAdapter, "", ""),
		Rates:     rates.NewService(nil, nil, jsonAdapter, ""),
		Exporter:  export.NewBuilder(events, audits, posting, verifier, chain),
		Verifier:  verifier,
		Publisher: messaging.NoopPublisher{},
	}

	router := gin.New()
	SetupRoutes(router, NewHandler(deps), middleware.AuthConfig{})
	return &testEnv{router: router, events: events, posting: posting}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// createZARPool creates a ZAR-denominated pool through the API and
// returns its id.
func (e *testEnv) createZARPool(t *testing.T) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/pools", gin.H{
		"actor_id":            "treasurer@example.com",
		"name":                "Ubuntu Savings Circle",
		"type":                "stokvel",
		"contribution_amount": 50000,
		"currency":            "ZAR",
		"members":             []string{"thabo@example.com", "naledi@example.com"},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Pool domain.Pool `json:"pool"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Pool.PoolID)
	return resp.Pool.PoolID
}

func TestRecordContributionRejectsForeignCurrency(t *testing.T) {
	env := newTestEnv(t)
	poolID := env.createZARPool(t)

	w := env.do(t, http.MethodPost, "/api/v1/pools/"+poolID+"/contributions", gin.H{
		"actor_id":     "treasurer@example.com",
		"member_email": "thabo@example.com",
		"amount":       50000,
		"currency":     "USD",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "does not match the pool currency ZAR")

	// The rejected contribution must not have reached the chain.
	records, err := env.events.Read(context.Background(), poolID, nil, nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.EventTypePoolCreated, records[0].EventType)
}

func TestRecordContributionAcceptsPoolCurrency(t *testing.T) {
	env := newTestEnv(t)
	poolID := env.createZARPool(t)

	w := env.do(t, http.MethodPost, "/api/v1/pools/"+poolID+"/contributions", gin.H{
		"actor_id":     "treasurer@example.com",
		"member_email": "thabo@example.com",
		"amount":       50000,
		"currency":     "ZAR",
	})

	require.Equal(t, http.StatusCreated, w.Code)

	var resp recordedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, domain.EventTypeContributionIntentRecorded, resp.Event.EventType)
	assert.Len(t, resp.LedgerRows, 2)
}

func TestRecordWithdrawalRejectsForeignCurrency(t *testing.T) {
	env := newTestEnv(t)
	poolID := env.createZARPool(t)

	w := env.do(t, http.MethodPost, "/api/v1/pools/"+poolID+"/withdrawals", gin.H{
		"actor_id":     "treasurer@example.com",
		"member_email": "thabo@example.com",
		"amount":       20000,
		"currency":     "GBP",
		"reason":       "emergency",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "does not match the pool currency ZAR")
}

func TestGetLedgerTotalsPerCurrency(t *testing.T) {
	env := newTestEnv(t)
	poolID := env.createZARPool(t)
	ctx := context.Background()

	w := env.do(t, http.MethodPost, "/api/v1/pools/"+poolID+"/contributions", gin.H{
		"actor_id":     "treasurer@example.com",
		"member_email": "thabo@example.com",
		"amount":       50000,
		"currency":     "ZAR",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	// A USD row recorded before currency enforcement existed. It must be
	// totalled separately and converted at the USD rate, never lumped in
	// with the ZAR rows.
	usdEvent, err := env.events.Append(ctx, eventstore.AppendParams{
		PoolID:    poolID,
		ActorID:   "treasurer@example.com",
		EventType: domain.EventTypeContributionIntentRecorded,
		Payload: domain.ContributionPayload{
			MemberEmail: "naledi@example.com",
			Amount:      50000,
			Currency:    domain.CurrencyUSD,
		},
	})
	require.NoError(t, err)
	_, err = env.posting.Post(ctx, usdEvent)
	require.NoError(t, err)

	w = env.do(t, http.MethodGet, "/api/v1/pools/"+poolID+"/ledger", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Totals struct {
			ByCurrency []struct {
				Currency string `json:"currency"`
				Debit    int64  `json:"debit"`
				Credit   int64  `json:"credit"`
			} `json:"by_currency"`
			DebitZAR int64 `json:"debit_zar"`
		} `json:"totals"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	require.Len(t, resp.Totals.ByCurrency, 2)
	for _, total := range resp.Totals.ByCurrency {
		assert.Equal(t, int64(50000), total.Debit)
		assert.Equal(t, int64(50000), total.Credit)
	}

	// 50000 ZAR at 1.0 plus 50000 USD at the static 18.50 rate.
	assert.Equal(t, int64(975000), resp.Totals.DebitZAR)
}
