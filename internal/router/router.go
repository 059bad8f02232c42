package router

import (
	"time"

	"weconnect-crm/internal/config"
	"weconnect-crm/internal/domain"
	"weconnect-crm/internal/handler"
	"weconnect-crm/internal/metrics"
	"weconnect-crm/internal/middleware"
	"weconnect-crm/internal/repository"
	"weconnect-crm/internal/service"
	"weconnect-crm/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Roles recognised by the API.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleSales   = "sales"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis.
// rdb and m may be nil: the registry cache, email queue and metrics are
// then disabled.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, m *metrics.Metrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.Metrics(m))
	r.Use(middleware.CORS(cfg.AllowedOrigins()))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.Timeout(cfg.RequestTimeout()))
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	docRepo := repository.NewDocumentRepository(db)
	partyRepo := repository.NewPartyRepository(db)
	productRepo := repository.NewProductRepository(db)
	registryRepo := repository.NewRegistryRepository(db)
	sequenceRepo := repository.NewSequenceRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	// Dispatcher is injected into the document service for the "sent" email
	dispatcher := worker.NewDispatcher(rdb)

	authSvc := service.NewAuthService(userRepo, cfg)
	registrySvc := service.NewRegistryService(registryRepo, rdb, cfg.RegistryCacheTTL())
	numberingSvc := service.NewNumberingService(sequenceRepo)
	prefillSvc := service.NewPrefillService(partyRepo, productRepo, docRepo, registrySvc)
	documentSvc := service.NewDocumentService(docRepo, numberingSvc, registrySvc, prefillSvc, dispatcher, m)
	trashSvc := service.NewTrashService(repository.DefaultTrashables(db), m, cfg.TrashSweepBatch)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	registryH := handler.NewRegistryHandler(registrySvc)
	composerH := handler.NewComposerHandler(prefillSvc, documentSvc, numberingSvc)
	documentsH := handler.NewDocumentsHandler(documentSvc, trashSvc)
	trashH := handler.NewTrashHandler(trashSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes: every role may work on documents; the trash is
	// split so only admins purge or touch users.
	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		registry := v1.Group("/registry")
		{
			registry.GET("/currencies", registryH.Currencies)
			registry.GET("/tax-rates", registryH.TaxRates)
		}

		v1.GET("/prefill", composerH.Prefill)
		v1.GET("/products/:id/line-item", composerH.LineItem)
		v1.POST("/pricing/preview", composerH.PricePreview)
		v1.GET("/numbering/:document_type/next", composerH.NextNumber)

		documentsH.Register(v1.Group("/quotations"), domain.DocumentTypeQuotation)
		documentsH.Register(v1.Group("/invoices"), domain.DocumentTypeInvoice)

		trash := v1.Group("/trash")
		{
			trash.GET("", trashH.List)
			trash.GET("/stats", trashH.Stats)
			trash.DELETE("/:kind/:id", requireAdminForUsers(), trashH.SoftDelete)
			trash.POST("/:kind/:id/restore", requireAdminForUsers(), trashH.Restore)

			admin := trash.Group("", middleware.RequireRole(RoleAdmin))
			admin.DELETE("/:kind/:id/purge", trashH.Purge)
			admin.POST("/sweep", trashH.Sweep)
		}
	}

	// Swagger UI only outside production
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}

// requireAdminForUsers gates soft delete and restore of user accounts.
func requireAdminForUsers() gin.HandlerFunc {
	adminOnly := middleware.RequireRole(RoleAdmin)
	return func(c *gin.Context) {
		if kind, ok := domain.ParseEntityKind(c.Param("kind")); ok && kind == domain.EntityUser {
			adminOnly(c)
			return
		}
		c.Next()
	}
}
