package rest

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stokvelhub/pool-ledger/internal/advisory"
	"github.com/stokvelhub/pool-ledger/internal/api/middleware"
	"github.com/stokvelhub/pool-ledger/internal/auditstore"
	"github.com/stokvelhub/pool-ledger/internal/compliance"
	"github.com/stokvelhub/pool-ledger/internal/domain"
	"github.com/stokvelhub/pool-ledger/internal/eventstore"
	"github.com/stokvelhub/pool-ledger/internal/export"
	"github.com/stokvelhub/pool-ledger/internal/ledger"
	"github.com/stokvelhub/pool-ledger/internal/logger"
	"github.com/stokvelhub/pool-ledger/internal/messaging"
	"github.com/stokvelhub/pool-ledger/internal/rates"
	"github.com/stokvelhub/pool-ledger/internal/registry"
	"github.com/stokvelhub/pool-ledger/internal/security"
	"github.com/stokvelhub/pool-ledger/internal/settlement"
	"github.com/stokvelhub/pool-ledger/internal/verify"
)

// Handler defines the interface for REST API handlers
//
//go:generate mockgen -source=handler.go -destination=../../mocks/api_handler.go -package=mocks -mock_names=Handler=MockAPIHandler
type Handler interface {
	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)

	// CreatePool creates a pool and records POOL_CREATED
	// POST /api/v1/pools
	CreatePool(c *gin.Context)

	// ListPoolEvents returns a pool's chain in ascending order
	// GET /api/v1/pools/:id/events
	ListPoolEvents(c *gin.Context)

	// RecordContribution records a contribution intent, settling it
	// through the partner rail when requested
	// POST /api/v1/pools/:id/contributions
	RecordContribution(c *gin.Context)

	// RecordWithdrawal records a withdrawal intent
	// POST /api/v1/pools/:id/withdrawals
	RecordWithdrawal(c *gin.Context)

	// SignConstitution records CONSTITUTION_SIGNED with the artifact hash
	// POST /api/v1/pools/:id/constitution
	SignConstitution(c *gin.Context)

	// CreateProposal records PROPOSAL_CREATED
	// POST /api/v1/pools/:id/proposals
	CreateProposal(c *gin.Context)

	// CastVote records VOTE_CAST
	// POST /api/v1/pools/:id/votes
	CastVote(c *gin.Context)

	// GetLedger returns a pool's ledger rows with display amounts
	// GET /api/v1/pools/:id/ledger
	GetLedger(c *gin.Context)

	// VerifyPool replays a pool's chain and reports the outcome
	// GET /api/v1/pools/:id/verify
	VerifyPool(c *gin.Context)

	// ExportPool returns the regulator-ready audit pack
	// GET /api/v1/pools/:id/export
	ExportPool(c *gin.Context)

	// GetAdvice returns fallback-safe advisory text
	// GET /api/v1/pools/:id/advice?q=...
	GetAdvice(c *gin.Context)

	// RecordAdminAction step-up-gates a privileged action and records it
	// on the global audit chain (requires authentication)
	// POST /api/v1/admin/actions
	RecordAdminAction(c *gin.Context)

	// GetAuditTrail returns the global audit chain (requires authentication)
	// GET /api/v1/audit
	GetAuditTrail(c *gin.Context)

	// VerifyAuditTrail replays the global audit chain (requires authentication)
	// GET /api/v1/audit/verify
	VerifyAuditTrail(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	pools     *registry.Registry
	events    *eventstore.Store
	audits    *auditstore.Store
	posting   *ledger.Engine
	settler   *settlement.Initiator
	stepUp    *security.Gate
	advisor   *advisory.Client
	rates     *rates.Service
	exporter  *export.Builder
	verifier  *verify.Verifier
	publisher messaging.Publisher
}

// Deps bundles the collaborators the handler needs
type Deps struct {
	Pools     *registry.Registry
	Events    *eventstore.Store
	Audits    *auditstore.Store
	Posting   *ledger.Engine
	Settler   *settlement.Initiator
	StepUp    *security.Gate
	Advisor   *advisory.Client
	Rates     *rates.Service
	Exporter  *export.Builder
	Verifier  *verify.Verifier
	Publisher messaging.Publisher
}

// NewHandler creates a new REST API handler
func NewHandler(deps Deps) Handler {
	return &handler{
		pools:     deps.Pools,
		events:    deps.Events,
		audits:    deps.Audits,
		posting:   deps.Posting,
		settler:   deps.Settler,
		stepUp:    deps.StepUp,
		advisor:   deps.Advisor,
		rates:     deps.Rates,
		exporter:  deps.Exporter,
		verifier:  deps.Verifier,
		publisher: deps.Publisher,
	}
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// CreatePool creates a pool and records POOL_CREATED
func (h *handler) CreatePool(c *gin.Context) {
	var req createPoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	pool, event, err := h.pools.CreatePool(c.Request.Context(), registry.CreatePoolParams{
		ActorID:            req.ActorID,
		Name:               req.Name,
		Type:               req.Type,
		ContributionAmount: req.ContributionAmount,
		Currency:           domain.Currency(req.Currency),
		Members:            req.Members,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}

	h.publish(c, event)
	c.JSON(http.StatusCreated, createPoolResponse{Pool: *pool, Event: *event})
}

// ListPoolEvents returns a pool's chain in ascending order
func (h *handler) ListPoolEvents(c *gin.Context) {
	poolID := c.Param("id")
	if _, err := h.pools.Get(c.Request.Context(), poolID); err != nil {
		respondDomainError(c, err)
		return
	}

	records, err := h.events.Read(c.Request.Context(), poolID, nil, nil)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": records})
}

// RecordContribution records a contribution intent
func (h *handler) RecordContribution(c *gin.Context) {
	poolID := c.Param("id")
	var req contributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	pool, err := h.pools.Get(c.Request.Context(), poolID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	if domain.Currency(req.Currency) != pool.Currency {
		respondValidationError(c, fmt.Sprintf("currency %s does not match the pool currency %s", req.Currency, pool.Currency))
		return
	}

	payload := domain.ContributionPayload{
		MemberEmail: req.MemberEmail,
		Amount:      req.Amount,
		Currency:    domain.Currency(req.Currency),
		Method:      req.Method,
	}

	var event *domain.EventRecord
	if req.Settle {
		event, err = h.settler.Contribute(c.Request.Context(), poolID, req.ActorID, payload)
	} else {
		event, err = h.events.Append(c.Request.Context(), eventstore.AppendParams{
			PoolID:    poolID,
			ActorID:   req.ActorID,
			EventType: domain.EventTypeContributionIntentRecorded,
			Payload:   payload,
		})
	}
	if err != nil {
		respondDomainError(c, err)
		return
	}

	rows, err := h.posting.Post(c.Request.Context(), event)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	h.publish(c, event)
	c.JSON(http.StatusCreated, recordedResponse{Event: *event, LedgerRows: rows})
}

// RecordWithdrawal records a withdrawal intent
func (h *handler) RecordWithdrawal(c *gin.Context) {
	poolID := c.Param("id")
	var req withdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	pool, err := h.pools.Get(c.Request.Context(), poolID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	if domain.Currency(req.Currency) != pool.Currency {
		respondValidationError(c, fmt.Sprintf("currency %s does not match the pool currency %s", req.Currency, pool.Currency))
		return
	}

	event, err := h.events.Append(c.Request.Context(), eventstore.AppendParams{
		PoolID:    poolID,
		ActorID:   req.ActorID,
		EventType: domain.EventTypeWithdrawalIntentRecorded,
		Payload: domain.WithdrawalPayload{
			MemberEmail: req.MemberEmail,
			Amount:      req.Amount,
			Currency:    domain.Currency(req.Currency),
			Reason:      req.Reason,
		},
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}

	rows, err := h.posting.Post(c.Request.Context(), event)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	h.publish(c, event)
	c.JSON(http.StatusCreated, recordedResponse{Event: *event, LedgerRows: rows})
}

// SignConstitution records CONSTITUTION_SIGNED
func (h *handler) SignConstitution(c *gin.Context) {
	poolID := c.Param("id")
	var req signConstitutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	event, err := h.pools.SignConstitution(c.Request.Context(), poolID, req.ActorID, req.LegalName, req.TemplateKey)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	h.publish(c, event)
	c.JSON(http.StatusCreated, recordedResponse{Event: *event})
}

// CreateProposal records PROPOSAL_CREATED
func (h *handler) CreateProposal(c *gin.Context) {
	poolID := c.Param("id")
	var req proposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	event, err := h.pools.Propose(c.Request.Context(), poolID, req.ActorID, req.Title, req.Description)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	h.publish(c, event)
	c.JSON(http.StatusCreated, recordedResponse{Event: *event})
}

// CastVote records VOTE_CAST
func (h *handler) CastVote(c *gin.Context) {
	poolID := c.Param("id")
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	event, err := h.pools.CastVote(c.Request.Context(), poolID, req.ActorID, req.ProposalID, req.Choice)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	h.publish(c, event)
	c.JSON(http.StatusCreated, recordedResponse{Event: *event})
}

// GetLedger returns a pool's ledger rows with display amounts
func (h *handler) GetLedger(c *gin.Context) {
	poolID := c.Param("id")
	if _, err := h.pools.Get(c.Request.Context(), poolID); err != nil {
		respondDomainError(c, err)
		return
	}

	rows, err := h.posting.Rows(c.Request.Context(), poolID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	// Totals are kept per currency; each currency converts at its own
	// rate before summing into the ZAR figure.
	views := make([]ledgerRowView, 0, len(rows))
	debits := map[domain.Currency]int64{}
	credits := map[domain.Currency]int64{}
	var seen []domain.Currency
	for _, row := range rows {
		if _, ok := debits[row.Currency]; !ok {
			seen = append(seen, row.Currency)
		}
		debits[row.Currency] += row.DebitAmount
		credits[row.Currency] += row.CreditAmount
		views = append(views, ledgerRowView{
			LedgerRow:     row,
			DebitDisplay:  rates.FormatAmount(row.DebitAmount, row.Currency),
			CreditDisplay: rates.FormatAmount(row.CreditAmount, row.Currency),
		})
	}

	var debitZAR int64
	byCurrency := make([]gin.H, 0, len(seen))
	for _, currency := range seen {
		converted, err := h.rates.Convert(c.Request.Context(), debits[currency], currency)
		if err != nil {
			respondInternalError(c, err, "Rate lookup failed")
			return
		}
		debitZAR += converted
		byCurrency = append(byCurrency, gin.H{
			"currency":       currency,
			"debit":          debits[currency],
			"credit":         credits[currency],
			"debit_display":  rates.FormatAmount(debits[currency], currency),
			"credit_display": rates.FormatAmount(credits[currency], currency),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"ledger_rows": views,
		"totals": gin.H{
			"by_currency":       byCurrency,
			"debit_zar":         debitZAR,
			"debit_zar_display": rates.FormatAmount(debitZAR, domain.CurrencyZAR),
		},
	})
}

// VerifyPool replays a pool's chain and reports the outcome
func (h *handler) VerifyPool(c *gin.Context) {
	poolID := c.Param("id")
	if _, err := h.pools.Get(c.Request.Context(), poolID); err != nil {
		respondDomainError(c, err)
		return
	}

	records, err := h.events.Read(c.Request.Context(), poolID, nil, nil)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	report := h.verifier.Events(records)
	if report.Status == verify.StatusViolation {
		if pubErr := h.publisher.PublishAlert(c.Request.Context(), poolID, &report); pubErr != nil {
			logger.Warn("integrity alert publish failed", zap.Error(pubErr))
		}
	}

	c.JSON(http.StatusOK, report)
}

// ExportPool returns the regulator-ready audit pack
func (h *handler) ExportPool(c *gin.Context) {
	poolID := c.Param("id")
	if _, err := h.pools.Get(c.Request.Context(), poolID); err != nil {
		respondDomainError(c, err)
		return
	}

	pack, err := h.exporter.Build(c.Request.Context(), poolID, compliance.OperatingModel)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, pack)
}

// GetAdvice returns fallback-safe advisory text
func (h *handler) GetAdvice(c *gin.Context) {
	poolID := c.Param("id")
	var req adviceRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBadRequest(c, "Query parameter q is required")
		return
	}

	if _, err := h.pools.Get(c.Request.Context(), poolID); err != nil {
		respondDomainError(c, err)
		return
	}

	text, err := h.advisor.Guide(c.Request.Context(), req.Question)
	if err != nil {
		respondInternalError(c, err, "Advisory unavailable")
		return
	}

	c.JSON(http.StatusOK, gin.H{"advice": text})
}

// RecordAdminAction step-up-gates a privileged action and records it on
// the global audit chain
func (h *handler) RecordAdminAction(c *gin.Context) {
	var req adminActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	subject := c.GetString(string(middleware.AUTH_SUBJECT_KEY))
	if subject == "" {
		respondWithError(c, http.StatusForbidden, errCodeForbidden, "Admin actions require a JWT subject")
		return
	}

	session := security.Session{
		UserID:        subject,
		Authenticated: true,
		MFAVerified:   c.GetHeader("X-MFA-Verified") == "true",
	}

	verified, err := h.stepUp.RequireStepUp(c.Request.Context(), session, req.Action)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	if !verified {
		respondWithError(c, http.StatusForbidden, errCodeForbidden, "Step-up verification required")
		return
	}

	record, err := h.audits.Append(c.Request.Context(), auditstore.AppendParams{
		ActorID:    subject,
		Action:     req.Action,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		Metadata:   req.Metadata,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"audit_record": record})
}

// GetAuditTrail returns the global audit chain
func (h *handler) GetAuditTrail(c *gin.Context) {
	records, err := h.audits.Read(c.Request.Context())
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"audit_trail": records})
}

// VerifyAuditTrail replays the global audit chain
func (h *handler) VerifyAuditTrail(c *gin.Context) {
	records, err := h.audits.Read(c.Request.Context())
	if err != nil {
		respondDomainError(c, err)
		return
	}

	report := h.verifier.Audits(records)
	if report.Status == verify.StatusViolation {
		if pubErr := h.publisher.PublishAlert(c.Request.Context(), domain.SystemPartition, &report); pubErr != nil {
			logger.Warn("integrity alert publish failed", zap.Error(pubErr))
		}
	}

	c.JSON(http.StatusOK, report)
}

// publish fans out a recorded event; a broker outage never fails the
// request
func (h *handler) publish(c *gin.Context, event *domain.EventRecord) {
	if err := h.publisher.PublishRecorded(c.Request.Context(), event); err != nil {
		logger.Warn("event publish failed",
			zap.String("event_id", event.EventID),
			zap.Error(err))
	}
}
