package router

import (
	"time"

	"tillpos/internal/config"
	"tillpos/internal/handler"
	"tillpos/internal/infra"
	"tillpos/internal/middleware"
	"tillpos/internal/repository"
	"tillpos/internal/service"
	"tillpos/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, mailerCB *infra.CircuitBreaker) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Lock CORS down to the configured frontend origin in production.
	allowedOrigin := "*"
	if cfg.Env == "production" && cfg.Domain != "" {
		allowedOrigin = cfg.Domain
	}

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(allowedOrigin))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	registerRepo := repository.NewRegisterRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(userRepo, cfg)
	reportTokens := service.NewReportTokenService(
		cfg.ReportTokenSecret,
		time.Duration(cfg.ReportTokenTTLMinutes)*time.Minute,
	)
	dispatcher := worker.NewDispatcher(rdb)
	sessionSvc := service.NewSessionService(
		sessionRepo, registerRepo, ledgerRepo,
		reportTokens, rdb, dispatcher, cfg.LocalCurrency,
	)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	tillH := handler.NewTillHandler(sessionSvc)
	reportH := handler.NewReportHandler(sessionSvc, reportTokens)
	registersH := handler.NewRegistersHandler(registerRepo)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, mailerCB))

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	jwtMW := middleware.JWTAuth(cfg.JWTSecret)

	// Report access works with a capability token alone — no login session
	// required — so the route sits outside the protected group and parses
	// the bearer token only opportunistically.
	r.GET("/v1/till/:id/report", middleware.OptionalJWT(cfg.JWTSecret), reportH.Get)

	v1 := r.Group("/v1", jwtMW)
	{
		till := v1.Group("/till")
		{
			till.POST("/open", middleware.RequireRole("cashier", "supervisor", "admin"), tillH.Open)
			till.POST("/close", middleware.RequireRole("cashier", "supervisor", "admin"), tillH.Close)
			till.GET("/active", middleware.RequireRole("cashier", "supervisor", "admin"), tillH.Active)
			till.GET("/history", middleware.RequireRole("supervisor", "admin"), tillH.History)
		}

		v1.GET("/registers", middleware.RequireRole("cashier", "supervisor", "admin"), registersH.ListMine)
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
