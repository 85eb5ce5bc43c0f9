package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stock_pro/internal/attachment"
	"stock_pro/internal/auth"
	"stock_pro/internal/inventory"
	"stock_pro/internal/metrics"
)

// Dependencies are the collaborators the HTTP surface is built on.
type Dependencies struct {
	Store       *inventory.Store
	Auth        auth.Authenticator
	Tokens      *auth.TokenIssuer
	Attachments attachment.Store
	Metrics     *metrics.Metrics
	Logger      *zap.Logger

	LowStockThreshold int
	// AttachmentMaxBytes caps uploaded files; zero means 5 MiB.
	AttachmentMaxBytes int64
	// Location is used for export dates and file names; nil means time.Local.
	Location *time.Location
	// Now defaults to time.Now.
	Now func() time.Time
}

// InitRoutes registers every endpoint on the given Gin engine. Everything
// except ping, metrics and the auth endpoints requires a bearer token.
func InitRoutes(e *gin.Engine, deps Dependencies) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Location == nil {
		deps.Location = time.Local
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.AttachmentMaxBytes <= 0 {
		deps.AttachmentMaxBytes = 5 << 20
	}
	if deps.LowStockThreshold <= 0 {
		deps.LowStockThreshold = inventory.DefaultLowStockThreshold
	}

	if deps.Metrics != nil {
		e.Use(deps.Metrics.Middleware())
		e.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	e.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	authHandler := newAuthHandler(deps.Auth, deps.Tokens, deps.Logger)
	e.POST("/auth/login", authHandler.handleLogin)
	e.POST("/auth/provider", authHandler.handleProvider)
	e.POST("/auth/register", authHandler.handleRegister)

	inventoryHandler := newInventoryHandler(deps)
	protected := e.Group("/", requireToken(deps.Tokens, deps.Logger))
	protected.GET("/auth/me", authHandler.handleMe)

	protected.GET("/products", inventoryHandler.handleListProducts)
	protected.POST("/products", inventoryHandler.handleCreateProduct)
	protected.GET("/products/:id", inventoryHandler.handleGetProduct)
	protected.PUT("/products/:id", inventoryHandler.handleUpdateProduct)
	protected.DELETE("/products/:id", inventoryHandler.handleDeleteProduct)

	protected.GET("/sales", inventoryHandler.handleListSales)
	protected.POST("/sales", inventoryHandler.handleCreateSale)

	protected.GET("/stock-logs", inventoryHandler.handleListStockLogs)
	protected.POST("/stock-logs", inventoryHandler.handleCreateStockLog)

	protected.GET("/dashboard", inventoryHandler.handleDashboard)
	protected.GET("/export/products", inventoryHandler.handleExportProducts)
	protected.GET("/export/sales", inventoryHandler.handleExportSales)

	if deps.Attachments != nil {
		attachmentHandler := newAttachmentHandler(deps.Attachments, deps.AttachmentMaxBytes, deps.Logger)
		protected.POST("/attachments", attachmentHandler.handleUpload)
	}
}
