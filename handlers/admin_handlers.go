package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"userhistory/api/email"
	"userhistory/api/logger"
	"userhistory/api/models"
	"userhistory/api/render"
	"userhistory/api/store"
)

// OrderAdmin is the write and search side of the order store used by staff.
type OrderAdmin interface {
	SearchByHistory(ctx context.Context, term string) ([]models.Order, error)
	MigrateLegacyHistory(ctx context.Context, orderID int64) (bool, error)
}

type AdminHandlers struct {
	Views  *render.Views
	Orders OrderAdmin
	Tags   *email.Registry
	log    *logger.Logger
}

func NewAdminHandlers(views *render.Views, orders OrderAdmin, tags *email.Registry, log *logger.Logger) *AdminHandlers {
	return &AdminHandlers{
		Views:  views,
		Orders: orders,
		Tags:   tags,
		log:    log.With("handler", "AdminHandlers"),
	}
}

// OrderHistoryHTML renders the browsing and purchase history panels of an order.
func (h *AdminHandlers) OrderHistoryHTML(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}
	out, err := h.Views.OrderPanels(c.Request.Context(), orderID)
	if err != nil {
		h.storeError(c, "render order history", orderID, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(out))
}

// OrderHistoryJSON returns the same data as OrderHistoryHTML, unrendered.
func (h *AdminHandlers) OrderHistoryJSON(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	timeline, err := h.Views.Timeline(ctx, orderID)
	if err != nil {
		h.storeError(c, "load order timeline", orderID, err)
		return
	}
	purchases, err := h.Views.PurchaseHistory(ctx, orderID)
	if err != nil {
		h.storeError(c, "load purchase history", orderID, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order_id":         orderID,
		"browsing_history": timeline,
		"purchase_history": purchases,
	})
}

// SearchOrders finds orders whose browsing history contains the "s" query parameter.
func (h *AdminHandlers) SearchOrders(c *gin.Context) {
	term := strings.TrimSpace(c.Query("s"))
	if term == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "s query parameter is required"})
		return
	}
	orders, err := h.Orders.SearchByHistory(c.Request.Context(), term)
	if err != nil {
		h.log.Error("Order search failed", "term", term, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search orders"})
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	c.JSON(http.StatusOK, gin.H{"query": term, "orders": orders})
}

// MigrateOrder moves one order's history out of the legacy payment metadata.
func (h *AdminHandlers) MigrateOrder(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}
	moved, err := h.Orders.MigrateLegacyHistory(c.Request.Context(), orderID)
	if err != nil {
		h.log.Error("Legacy history migration failed", "order_id", orderID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to migrate order history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": orderID, "migrated": moved})
}

// EmailTags lists the placeholders available to email templates.
func (h *AdminHandlers) EmailTags(c *gin.Context) {
	tags := h.Tags.Tags()
	out := make([]gin.H, 0, len(tags))
	for _, t := range tags {
		out = append(out, gin.H{"tag": t.Placeholder(), "description": t.Description})
	}
	c.JSON(http.StatusOK, gin.H{"tags": out})
}

type emailPreviewRequest struct {
	OrderID  int64  `json:"order_id" binding:"required,gt=0"`
	Template string `json:"template" binding:"required"`
}

// EmailPreview expands the history tags of a template for an order.
func (h *AdminHandlers) EmailPreview(c *gin.Context) {
	var req emailPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	out, err := h.Tags.Render(c.Request.Context(), req.Template, req.OrderID)
	if err != nil {
		h.storeError(c, "render email preview", req.OrderID, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(out))
}

func (h *AdminHandlers) storeError(c *gin.Context, action string, orderID int64, err error) {
	if errors.Is(err, store.ErrOrderNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	h.log.Error("Failed to "+action, "order_id", orderID, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + action})
}
