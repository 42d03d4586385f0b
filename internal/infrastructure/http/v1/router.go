// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"salesledger/internal/domain/catalogs/party"
	"salesledger/internal/domain/catalogs/product"
	"salesledger/internal/domain/documents/sale"
	"salesledger/internal/infrastructure/http/v1/dto"
	"salesledger/internal/infrastructure/http/v1/handlers"
	"salesledger/internal/infrastructure/http/v1/middleware"
	"salesledger/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	Logger *logger.Logger

	Sales    *sale.Service
	Products *product.Service
	Parties  *party.Services

	// Database backs the readiness probe; nil on the memory store
	Database handlers.DatabaseProbe

	// JWTValidator enables bearer authentication when set
	JWTValidator middleware.JWTValidator

	// Idempotency enables X-Idempotency-Key handling when set
	Idempotency middleware.IdempotencyStore

	CORSOrigins []string

	// ServiceName enables otelgin server spans when non-empty
	ServiceName string
	Version     string
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	if cfg.ServiceName != "" {
		router.Use(otelgin.Middleware(cfg.ServiceName))
	}
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.CORS(cfg.CORSOrigins))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.Database, "salesledger", cfg.Version)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	api := router.Group("/api/v1")
	if cfg.JWTValidator != nil {
		api.Use(middleware.Auth(cfg.JWTValidator))
	}
	if cfg.Idempotency != nil {
		api.Use(middleware.Idempotency(cfg.Idempotency))
	}

	base := handlers.NewBaseHandler()
	registerSaleRoutes(api.Group("/sales"), handlers.NewSaleHandler(base, cfg.Sales))
	registerCatalogRoutes(api, base, cfg)

	return router
}

func registerSaleRoutes(rg *gin.RouterGroup, h *handlers.SaleHandler) {
	rg.POST("", h.Register)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.PATCH("/:id", h.UpdateHeader)
	rg.POST("/:id/cancel", h.Cancel)
	rg.DELETE("/:id", h.Archive)
	rg.GET("/:id/receipt", h.Receipt)
	rg.GET("/:id/history", h.History)
}

func registerCatalogRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	RegisterCatalogRoutes(rg.Group("/products"), handlers.NewProductHandler(base, cfg.Products))

	RegisterCatalogRoutes(rg.Group("/clients"),
		handlers.NewCatalogHandler(base, cfg.Parties.Clients, dto.CreateClientRequest.ToEntity))
	RegisterCatalogRoutes(rg.Group("/vendors"),
		handlers.NewCatalogHandler(base, cfg.Parties.Vendors, dto.CreateVendorRequest.ToEntity))
	RegisterCatalogRoutes(rg.Group("/zones"),
		handlers.NewCatalogHandler(base, cfg.Parties.Zones, dto.CreateZoneRequest.ToEntity))
}
