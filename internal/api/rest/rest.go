package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/stokvelhub/pool-ledger/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Pool lifecycle
		v1.POST("/pools", handler.CreatePool)
		v1.GET("/pools/:id/events", handler.ListPoolEvents)
		v1.POST("/pools/:id/constitution", handler.SignConstitution)

		// Value movement
		v1.POST("/pools/:id/contributions", handler.RecordContribution)
		v1.POST("/pools/:id/withdrawals", handler.RecordWithdrawal)
		v1.GET("/pools/:id/ledger", handler.GetLedger)

		// Governance
		v1.POST("/pools/:id/proposals", handler.CreateProposal)
		v1.POST("/pools/:id/votes", handler.CastVote)

		// Verification and export (public read access)
		v1.GET("/pools/:id/verify", handler.VerifyPool)
		v1.GET("/pools/:id/export", handler.ExportPool)

		// Advisory
		v1.GET("/pools/:id/advice", handler.GetAdvice)

		// Privileged surface (requires authentication)
		v1.POST("/admin/actions", middleware.Auth(authCfg), handler.RecordAdminAction)
		v1.GET("/audit", middleware.Auth(authCfg), handler.GetAuditTrail)
		v1.GET("/audit/verify", middleware.Auth(authCfg), handler.VerifyAuditTrail)
	}
}
