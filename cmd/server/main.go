package main

import (
	"log"
	"strings"

	"cruise-backend/internal/audit"
	"cruise-backend/internal/auth"
	"cruise-backend/internal/cache"
	"cruise-backend/internal/commission"
	"cruise-backend/internal/config"
	"cruise-backend/internal/database"
	"cruise-backend/internal/httpx"
	"cruise-backend/internal/logger"
	"cruise-backend/internal/sales"
	"cruise-backend/internal/settlement"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zlog := logger.New(cfg)
	defer func() { _ = zlog.Sync() }()

	if err := database.Init(cfg, zlog); err != nil {
		zlog.Fatal("database init failed", zap.Error(err))
	}

	// Period cache is optional; without Redis every report queries the index.
	var (
		periodCache settlement.PeriodCache
		invalidator sales.PeriodInvalidator
	)
	if rdb := cache.NewRedisClient(cfg, zlog); rdb != nil {
		defer rdb.Close()
		pc := cache.NewPeriodCache(rdb, cfg.Settlement.PeriodCacheTTL)
		periodCache, invalidator = pc, pc
	}

	settlementSvc := settlement.NewService(settlement.NewGormStore(database.DB), periodCache, cfg.Settlement, zlog)
	salesSvc := sales.NewService(database.DB, commission.NewCalculator(cfg.Settlement.DefaultWithholdingRate), invalidator, zlog)

	app := fiber.New(fiber.Config{
		ErrorHandler: httpx.ErrorHandler(zlog),
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.RequestLogger(zlog))

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,OPTIONS",
	}))

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register-admin", auth.RegisterAdminHandler())
	api.Post("/auth/login", auth.LoginHandler(cfg.JWTSecret))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg.JWTSecret))

	protected.Get("/auth/me", auth.MeHandler())

	// Admin routes
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireAdmin(auth.DBRoleLookup(database.DB)))

	// Affiliate settlement
	adminRoutes.Get("/affiliate/settlements", settlement.ReportHandler(settlementSvc, zlog))

	// Affiliate sales
	adminRoutes.Get("/affiliate/sales", sales.ListSalesHandler(salesSvc))
	adminRoutes.Post("/affiliate/sales", sales.CreateSaleHandler(salesSvc))
	adminRoutes.Post("/affiliate/sales/:id/confirm", sales.ConfirmSaleHandler(salesSvc))

	// Audit logs
	adminRoutes.Get("/audit-logs", audit.ListAuditLogsHandler())

	zlog.Info("server listening", zap.String("port", cfg.HTTPPort))
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}
