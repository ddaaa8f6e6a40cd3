package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"spiresync/internal/api/handlers"
	"spiresync/internal/api/middleware"
	"spiresync/internal/config"
	"spiresync/internal/encryption"
	"spiresync/internal/inventory"
	"spiresync/internal/logger"
	"spiresync/internal/models"
	"spiresync/internal/services/spire"

	"github.com/gin-gonic/gin"
)

// Deps are the collaborators the HTTP layer is built on.
type Deps struct {
	Settings  handlers.SettingsStore
	Catalog   handlers.ProductStore
	Scheduler handlers.SyncScheduler
	Cipher    *encryption.Cipher
	// NewClient overrides how ERP clients are built. Defaults to a Spire
	// client with the configured timeout.
	NewClient func(s *models.SyncSettings) *spire.Client
}

type Server struct {
	config *config.Config
	logger *logger.Logger
	router *gin.Engine
	server *http.Server
}

func New(cfg *config.Config, logger *logger.Logger, deps Deps) *Server {
	// Set Gin mode
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS())

	newClient := deps.NewClient
	if newClient == nil {
		newClient = func(s *models.SyncSettings) *spire.Client {
			return spire.NewClient(inventory.Credentials(s), cfg.ERPTimeout, logger)
		}
	}

	// Initialize handlers
	settingsHandler := handlers.NewSettingsHandler(deps.Settings, deps.Cipher,
		func(s *models.SyncSettings) handlers.Connector { return newClient(s) }, logger)
	spireHandler := handlers.NewSpireHandler(deps.Settings,
		func(s *models.SyncSettings) handlers.ERPClient { return newClient(s) }, logger)
	syncHandler := handlers.NewSyncHandler(deps.Scheduler, logger)
	productHandler := handlers.NewProductHandler(deps.Catalog, logger)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "trigger": cfg.SyncTrigger})
	})

	// Routes
	v1 := router.Group("/api/v1")
	{
		// Settings
		v1.GET("/settings", settingsHandler.Get)
		v1.PUT("/settings", settingsHandler.Update)
		v1.POST("/test-connection", settingsHandler.TestConnection)
		v1.POST("/encrypt", settingsHandler.Encrypt)

		// Spire proxy
		v1.GET("/companies", spireHandler.Companies)
		v1.GET("/payment-methods", spireHandler.PaymentMethods)
		v1.GET("/shipping-methods", spireHandler.ShippingMethods)

		inv := v1.Group("/inventory")
		{
			inv.GET("/items", spireHandler.InventoryItems)
			inv.GET("/items/:id", spireHandler.InventoryItem)
			inv.GET("/warehouses", spireHandler.Warehouses)
		}

		customers := v1.Group("/customers")
		{
			customers.GET("", spireHandler.Customers)
			customers.GET("/:id", spireHandler.Customer)
			customers.GET("/:id/contacts", spireHandler.CustomerContacts)
		}

		orders := v1.Group("/sales/orders")
		{
			orders.GET("", spireHandler.SalesOrders)
			orders.POST("", spireHandler.CreateSalesOrder)
			orders.GET("/:id", spireHandler.SalesOrder)
			orders.PUT("/:id", spireHandler.UpdateSalesOrder)
		}

		territories := v1.Group("/territories")
		{
			territories.GET("", spireHandler.Territories)
			territories.GET("/:id", spireHandler.Territory)
		}

		// Syncs
		syncs := v1.Group("/syncs")
		{
			syncs.POST("/inventory", syncHandler.Inventory)
			syncs.GET("/inventory/:brand/progress", syncHandler.Progress)
		}

		// Catalog
		products := v1.Group("/products")
		{
			products.GET("", productHandler.List)
			products.GET("/:id", productHandler.Get)
		}
	}

	return &Server{
		config: cfg,
		logger: logger,
		router: router,
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%s", s.config.APIHost, s.config.APIPort)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server on " + addr)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router exposes the handler for tests and embedding.
func (s *Server) Router() *gin.Engine {
	return s.router
}
