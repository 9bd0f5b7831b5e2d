package main

import (
	"gestion-service/internal/audit"
	"gestion-service/internal/authz"
	"gestion-service/internal/fiscal"
	"gestion-service/internal/handler"
	"gestion-service/internal/middleware"
	"gestion-service/internal/numbering"
	"gestion-service/internal/store"
	"gestion-service/pkg/config"
	"gestion-service/pkg/database"
	"gestion-service/pkg/jwtutil"
	"gestion-service/pkg/logger"
	"gestion-service/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	logger.InitLogger(cfg)
	log := logger.GetLogger()
	log.Info("Starting gestion service...", zap.String("environment", cfg.Server.Env))

	// Initialize database
	if err := database.InitDB(cfg); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Initialize JWT utility
	jwtutil.Initialize(&jwtutil.Config{
		SigningKey:      cfg.JWT.SigningKey,
		ExpirationHours: cfg.JWT.ExpirationHours,
	})
	log.Info("JWT utility initialized")

	// Wire the core components on the shared store
	st := store.New(database.GetDB())
	handler.Initialize(
		authz.NewGuard(st),
		numbering.NewAllocator(st),
		fiscal.NewCalculator(cfg.Fiscal.ChecksumTypeIDs),
		audit.NewRecorder(database.GetDB(), log),
		st,
	)
	log.Info("Core components initialized",
		zap.Uints("checksum_type_ids", cfg.Fiscal.ChecksumTypeIDs))

	// Initialize Echo framework
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)

	// Authentication routes
	auth := e.Group("/auth")
	auth.POST("/login", handler.Login)
	auth.POST("/register", handler.Register)

	// API routes - all require authentication
	api := e.Group("/api")
	api.Use(middleware.AuthMiddleware)

	// Tenant management
	tenants := api.Group("/tenants")
	tenants.POST("", handler.CreateTenant)
	tenants.GET("", handler.ListTenants)
	tenants.GET("/:id", handler.GetTenant)
	tenants.PUT("/:id", handler.UpdateTenant)

	// Role and permission management - requires tenant context
	roles := api.Group("/roles")
	roles.Use(middleware.RequireTenantContext)
	roles.GET("", handler.ListRoles)
	roles.POST("", handler.CreateRole)
	roles.GET("/:id", handler.GetRole)
	roles.PUT("/:id", handler.UpdateRole)
	roles.DELETE("/:id", handler.DeleteRole)
	roles.POST("/:id/permissions/:permission_id", handler.GrantRolePermission)
	roles.DELETE("/:id/permissions/:permission_id", handler.RevokeRolePermission)
	roles.POST("/assign", handler.AssignRole)

	permissions := api.Group("/permissions")
	permissions.GET("", handler.ListPermissions)
	permissions.POST("", handler.CreatePermission)

	// Numbering resolutions - requires tenant context
	numberings := api.Group("/numberings")
	numberings.Use(middleware.RequireTenantContext)
	numberings.GET("", handler.ListNumberingConfigs)
	numberings.POST("", handler.CreateNumberingConfig)
	numberings.PUT("/:id", handler.UpdateNumberingConfig)
	numberings.DELETE("/:id", handler.DeleteNumberingConfig)
	numberings.POST("/:id/default", handler.SetDefaultNumbering)
	numberings.GET("/next", handler.NextNumberPreview)

	// Business entities - require tenant context
	clients := api.Group("/clients")
	clients.Use(middleware.RequireTenantContext)
	clients.GET("", handler.ListClients)
	clients.POST("", handler.CreateClient)
	clients.GET("/:id", handler.GetClient)
	clients.PUT("/:id", handler.UpdateClient)
	clients.DELETE("/:id", handler.DeleteClient)

	suppliers := api.Group("/suppliers")
	suppliers.Use(middleware.RequireTenantContext)
	suppliers.GET("", handler.ListSuppliers)
	suppliers.POST("", handler.CreateSupplier)
	suppliers.PUT("/:id", handler.UpdateSupplier)
	suppliers.DELETE("/:id", handler.DeleteSupplier)

	employees := api.Group("/employees")
	employees.Use(middleware.RequireTenantContext)
	employees.GET("", handler.ListEmployees)
	employees.POST("", handler.CreateEmployee)
	employees.PUT("/:id", handler.UpdateEmployee)
	employees.DELETE("/:id", handler.DeleteEmployee)

	invoices := api.Group("/invoices")
	invoices.Use(middleware.RequireTenantContext)
	invoices.GET("", handler.ListInvoices)
	invoices.POST("", handler.CreateInvoice)
	invoices.GET("/:id", handler.GetInvoice)

	// Audit trail
	auditEvents := api.Group("/audit-events")
	auditEvents.GET("", handler.ListAuditEvents)

	// Get server port from configuration
	port := cfg.Server.Port

	// Start server
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
