package router

import (
	"context"
	"time"

	"github.com/bharathmeg/InsightHub/internal/config"
	"github.com/bharathmeg/InsightHub/internal/handler"
	"github.com/bharathmeg/InsightHub/internal/infra"
	"github.com/bharathmeg/InsightHub/internal/middleware"
	"github.com/bharathmeg/InsightHub/internal/model"
	"github.com/bharathmeg/InsightHub/internal/repository"
	"github.com/bharathmeg/InsightHub/internal/service"
	"github.com/bharathmeg/InsightHub/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const purgeInterval = 5 * time.Minute

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
// rdb may be nil: analytics are then uncached and export mail is sent inline.
// ctx bounds the background goroutines started here.
func New(ctx context.Context, cfg *config.Config, db *gorm.DB, rdb *redis.Client, mailer infra.MailSender, events infra.EventPublisher) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	apiLimiter := middleware.NewRateLimiter("api", 1000, time.Minute, "Too many requests. Try again shortly.")
	authLimiter := middleware.NewAuthRateLimiter()
	apiLimiter.StartPurge(ctx, purgeInterval)
	authLimiter.StartPurge(ctx, purgeInterval)

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(apiLimiter.Middleware())

	// ── Repositories ─────────────────────────────────────────────────────────
	accountRepo := repository.NewAccountRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)

	// ── Async / cache ────────────────────────────────────────────────────────
	var (
		cache   *infra.AnalyticsCache
		exports service.ExportEmailer = worker.NewEmailWorker(saleRepo, mailer, cfg.ReportCurrency)
	)
	if rdb != nil {
		cache = infra.NewAnalyticsCache(rdb, time.Duration(cfg.AnalyticsCacheTTLSeconds)*time.Second)
		exports = worker.NewDispatcher(rdb)
	}

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(accountRepo, mailer, cfg)
	saleSvc := service.NewSaleService(saleRepo, ledgerRepo, cache, events, exports, cfg.ReportCurrency)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	salesH := handler.NewSalesHandler(saleSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))

	auth := r.Group("/v1/auth")
	{
		auth.POST("/register", authLimiter.Middleware(), authH.Register)
		auth.POST("/verify", authLimiter.Middleware(), authH.Verify)
		auth.POST("/login", authLimiter.Middleware(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
		auth.GET("/companies", authH.Companies)
		auth.POST("/password/forgot", authLimiter.Middleware(), authH.ForgotPassword)
		auth.POST("/password/reset", authLimiter.Middleware(), authH.ResetPassword)
	}

	// Protected routes. Both roles read; only Admin mutates.
	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		admin := middleware.RequireRole(model.RoleAdmin)

		v1.GET("/sales", salesH.ListSales)
		v1.POST("/sales", admin, salesH.AddSale)
		v1.DELETE("/sales/:id", admin, salesH.DeleteSale)
		v1.POST("/sales/undo", admin, salesH.Undo)
		v1.GET("/ledger", admin, salesH.Ledger)

		v1.GET("/sales/export", salesH.Export)
		v1.POST("/sales/export/email", salesH.EmailExport)

		v1.GET("/analytics/revenue-by-product", salesH.RevenueByProduct)
	}

	// Swagger UI, only outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
