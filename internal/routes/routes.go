package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/santai/backend/internal/config"
	"github.com/santai/backend/internal/controllers"
	"github.com/santai/backend/internal/logger"
	"github.com/santai/backend/internal/middleware"
	"github.com/santai/backend/internal/models"
	"github.com/santai/backend/internal/services"
	"gorm.io/gorm"
)

// NewRouter returns a gin engine carrying the global middleware chain.
func NewRouter(cfg *config.Config) *gin.Engine {
	r := gin.New()

	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.MaxMultipartMemory = cfg.Server.MaxUploadBytes()

	r.Use(middleware.RequestID())
	r.Use(middleware.CustomLoggerMiddleware())
	r.Use(middleware.CORSMiddleware(cfg.Server.CORSOrigin))
	r.Use(gin.Recovery())
	return r
}

// SetupRoutes wires services and controllers onto r. database may be nil, in
// which case the knowledge base, login and audit features are unavailable and
// triage runs on caller-supplied knowledge only.
func SetupRoutes(r *gin.Engine, cfg *config.Config, database *gorm.DB, gatherer prometheus.Gatherer) {
	// Initialize services
	detector := services.NewDetectorClient(cfg.Detector)
	modelArk := services.NewModelArkClient(cfg.ModelArk)

	var reputation services.ReputationLookup
	if vt := services.NewVirusTotalClient(cfg.Reputation); vt != nil {
		reputation = vt
	} else {
		logger.Warn("VIRUSTOTAL_API_KEY not set, IP reputation checks are disabled", nil)
	}

	var (
		audit        services.AuditRecorder
		auditReader  controllers.AuditReader
		snapshotter  controllers.KnowledgeSnapshotter
		knowledgeSvc *services.KnowledgeService
		userSvc      *services.UserService
		pinger       controllers.Pinger
	)
	if database != nil {
		auditSvc := services.NewAuditService(database)
		audit, auditReader = auditSvc, auditSvc
		knowledgeSvc = services.NewKnowledgeService(database)
		snapshotter = knowledgeSvc
		userSvc = services.NewUserService(database)
		if sqlDB, err := database.DB(); err == nil {
			pinger = sqlDB
		}
	}

	triageSvc := services.NewTriageService(detector, modelArk, reputation, audit)

	// Initialize controllers
	healthController := controllers.NewHealthController(pinger, triageSvc.ReputationEnabled())
	triageController := controllers.NewTriageController(triageSvc, snapshotter)
	adminController := controllers.NewAdminController(auditReader, modelArk)

	r.GET("/", healthController.Root)
	r.GET("/health", healthController.Health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	{
		// Auth routes
		if userSvc != nil {
			authController := controllers.NewAuthController(userSvc, cfg.Auth)
			api.POST("/auth/login", authController.Login)
			api.GET("/auth/me", middleware.AuthMiddleware(cfg.Auth), authController.GetCurrentUser)
		}

		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(cfg.Auth))
		{
			upload := middleware.BodyLimit(cfg.Server.MaxUploadBytes())

			protected.POST("/triage-text", upload, triageController.TriageText)
			protected.POST("/triage", upload, triageController.TriageFile)
			protected.POST("/triage-image", upload, triageController.TriageImage)
			protected.POST("/check-ip", triageController.CheckIP)

			if knowledgeSvc != nil {
				knowledgeController := controllers.NewKnowledgeController(knowledgeSvc)
				knowledge := protected.Group("/knowledge")
				{
					knowledge.GET("", knowledgeController.ListKnowledge)
					knowledge.POST("", middleware.RequireRole(cfg.Auth, models.RoleAdmin), knowledgeController.CreateKnowledge)
					knowledge.DELETE("/:id", middleware.RequireRole(cfg.Auth, models.RoleAdmin), knowledgeController.DeleteKnowledge)
				}
			}

			// Admin routes
			admin := protected.Group("/admin")
			admin.Use(middleware.RequireRole(cfg.Auth, models.RoleAdmin))
			{
				admin.GET("/triages", adminController.GetTriages)
				admin.GET("/llm-api-calls", adminController.GetLLMAPICalls)
				admin.DELETE("/llm-api-calls", adminController.ClearLLMAPICalls)
			}
		}
	}
}
