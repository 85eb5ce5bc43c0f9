package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stock_pro/internal/export"
	"stock_pro/internal/inventory"
)

// inventoryHandler exposes the state store over HTTP.
type inventoryHandler struct {
	store             *inventory.Store
	logger            *zap.Logger
	lowStockThreshold int
	location          *time.Location
	now               func() time.Time
}

func newInventoryHandler(deps Dependencies) *inventoryHandler {
	return &inventoryHandler{
		store:             deps.Store,
		logger:            deps.Logger,
		lowStockThreshold: deps.LowStockThreshold,
		location:          deps.Location,
		now:               deps.Now,
	}
}

// writeStoreError maps store errors to status codes.
func (h *inventoryHandler) writeStoreError(c *gin.Context, op string, err error) {
	var stockErr *inventory.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":     "insufficient stock",
			"requested": stockErr.Requested,
			"available": stockErr.Available,
		})
	case errors.Is(err, inventory.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
	case errors.Is(err, inventory.ErrDuplicateSKU):
		c.JSON(http.StatusConflict, gin.H{"error": "sku already in use"})
	case errors.Is(err, inventory.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, inventory.ErrNotLoaded):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store not loaded"})
	default:
		h.logger.Error("store operation failed", zap.String("operation", op), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *inventoryHandler) handleListProducts(c *gin.Context) {
	products := h.store.Products(inventory.ProductFilter{
		Query:    c.Query("q"),
		Category: inventory.Category(c.Query("category")),
	})
	c.JSON(http.StatusOK, gin.H{"results": products, "count": len(products)})
}

func (h *inventoryHandler) handleGetProduct(c *gin.Context) {
	product, err := h.store.Product(c.Param("id"))
	if err != nil {
		h.writeStoreError(c, "get_product", err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *inventoryHandler) handleCreateProduct(c *gin.Context) {
	var draft inventory.ProductDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		h.logger.Warn("failed to bind JSON request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	product, err := h.store.AddProduct(c.Request.Context(), draft)
	if err != nil {
		h.writeStoreError(c, "add_product", err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *inventoryHandler) handleUpdateProduct(c *gin.Context) {
	var product inventory.Product
	if err := c.ShouldBindJSON(&product); err != nil {
		h.logger.Warn("failed to bind JSON request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	product.ID = c.Param("id")

	updated, err := h.store.UpdateProduct(c.Request.Context(), product)
	if err != nil {
		h.writeStoreError(c, "update_product", err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *inventoryHandler) handleDeleteProduct(c *gin.Context) {
	if c.Query("confirm") != "true" {
		c.JSON(http.StatusPreconditionRequired, gin.H{"error": "deletion must be confirmed with confirm=true"})
		return
	}

	if err := h.store.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		h.writeStoreError(c, "delete_product", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *inventoryHandler) handleListSales(c *gin.Context) {
	sales := h.store.Sales(c.Query("q"))
	c.JSON(http.StatusOK, gin.H{"results": sales, "count": len(sales)})
}

func (h *inventoryHandler) handleCreateSale(c *gin.Context) {
	var draft inventory.SaleDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		h.logger.Warn("failed to bind JSON request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	sale, err := h.store.AddSale(c.Request.Context(), draft)
	if err != nil {
		h.writeStoreError(c, "add_sale", err)
		return
	}
	c.JSON(http.StatusCreated, sale)
}

func (h *inventoryHandler) handleListStockLogs(c *gin.Context) {
	logs := h.store.StockLogs()
	c.JSON(http.StatusOK, gin.H{"results": logs, "count": len(logs)})
}

func (h *inventoryHandler) handleCreateStockLog(c *gin.Context) {
	var draft inventory.StockLogDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		h.logger.Warn("failed to bind JSON request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	// Receipts entered by hand always move stock.
	if draft.Kind == "" {
		draft.Kind = inventory.ReceiptReceiving
	}

	log, err := h.store.AddStockLog(c.Request.Context(), draft)
	if err != nil {
		h.writeStoreError(c, "add_stock_log", err)
		return
	}
	c.JSON(http.StatusCreated, log)
}

func (h *inventoryHandler) handleDashboard(c *gin.Context) {
	threshold := h.lowStockThreshold
	if raw := c.Query("threshold"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "threshold must be a positive integer"})
			return
		}
		threshold = n
	}
	c.JSON(http.StatusOK, h.store.Summary(threshold))
}

func (h *inventoryHandler) handleExportProducts(c *gin.Context) {
	var buf bytes.Buffer
	if err := export.WriteProductsCSV(&buf, h.store.Products(inventory.ProductFilter{}), h.location); err != nil {
		h.writeStoreError(c, "export_products", err)
		return
	}
	h.sendCSV(c, export.ProductsFilename(h.now().In(h.location)), buf.Bytes())
}

func (h *inventoryHandler) handleExportSales(c *gin.Context) {
	var buf bytes.Buffer
	if err := export.WriteSalesCSV(&buf, h.store.Sales(""), h.location); err != nil {
		h.writeStoreError(c, "export_sales", err)
		return
	}
	h.sendCSV(c, export.SalesFilename(h.now().In(h.location)), buf.Bytes())
}

func (h *inventoryHandler) sendCSV(c *gin.Context, filename string, body []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", body)
}
