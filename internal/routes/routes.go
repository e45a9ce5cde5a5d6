package routes

import (
	"time"

	"github.com/daya/backend/internal/config"
	"github.com/daya/backend/internal/handlers"
	"github.com/daya/backend/internal/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers groups everything the router serves
type Handlers struct {
	Scan     *handlers.ScanHandler
	Campaign *handlers.CampaignHandler
	DCD      *handlers.DCDHandler
	Health   *handlers.HealthHandler
}

// NewRouter builds the gin engine with global middleware and all routes
func NewRouter(cfg *config.Config, log *zap.Logger, h Handlers, rateLimiter *middleware.RateLimiter) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	// ClientIP only honours forwarding headers from these proxies
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		log.Warn("invalid trusted proxies, forwarding headers ignored", zap.Error(err))
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.SecureHeaders(cfg.Security))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", h.Health.Health)

	RegisterPublicRoutes(router, h.Scan, rateLimiter)
	RegisterCampaignRoutes(router, h.Campaign)
	RegisterAdminRoutes(router, h.Campaign)
	RegisterDCDRoutes(router, h.DCD)

	return router
}

// RegisterPublicRoutes registers the unauthenticated scan endpoint
func RegisterPublicRoutes(router *gin.Engine, scanHandler *handlers.ScanHandler, rateLimiter *middleware.RateLimiter) {
	publicGroup := router.Group("/public")
	publicGroup.Use(rateLimiter.IPRateLimiterMiddleware())
	{
		publicGroup.POST("/scans", scanHandler.RecordScan)
	}
}

// RegisterCampaignRoutes registers client campaign routes
func RegisterCampaignRoutes(router *gin.Engine, campaignHandler *handlers.CampaignHandler) {
	campaignGroup := router.Group("/api/campaigns")
	{
		campaignGroup.POST("", campaignHandler.SubmitCampaign)
		campaignGroup.GET("/:id", campaignHandler.GetCampaign)
		campaignGroup.GET("/:id/pay-per-scan", campaignHandler.GetPayPerScan)
	}
}

// RegisterAdminRoutes registers campaign review and lifecycle routes
func RegisterAdminRoutes(router *gin.Engine, campaignHandler *handlers.CampaignHandler) {
	adminGroup := router.Group("/api/admin/campaigns")
	{
		adminGroup.POST("/:id/review", campaignHandler.MarkUnderReview)
		adminGroup.POST("/:id/approve", campaignHandler.ApproveCampaign)
		adminGroup.POST("/:id/reject", campaignHandler.RejectCampaign)
		adminGroup.POST("/:id/complete", campaignHandler.CompleteCampaign)
		adminGroup.POST("/:id/assign-dcd", campaignHandler.AssignDCD)
	}
}

// RegisterDCDRoutes registers DCD-facing routes
func RegisterDCDRoutes(router *gin.Engine, dcdHandler *handlers.DCDHandler) {
	dcdGroup := router.Group("/api/dcds")
	{
		dcdGroup.GET("/:id/active-campaign", dcdHandler.GetActiveCampaign)
	}
}
