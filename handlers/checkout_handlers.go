package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"userhistory/api/history"
	"userhistory/api/logger"
)

// OrderNotifier is told about every order that received a history.
type OrderNotifier interface {
	OrderCompleted(ctx context.Context, orderID int64) error
}

type CheckoutHandlers struct {
	Checkout *history.Checkout
	Notifier OrderNotifier
	log      *logger.Logger
}

// NewCheckoutHandlers wires the purchase completion hook. notifier may be nil.
func NewCheckoutHandlers(checkout *history.Checkout, notifier OrderNotifier, log *logger.Logger) *CheckoutHandlers {
	return &CheckoutHandlers{
		Checkout: checkout,
		Notifier: notifier,
		log:      log.With("handler", "CheckoutHandlers"),
	}
}

// CompleteOrder attaches the visitor's history to the order and ends the tracking session.
// The purchase itself is never failed: attachment problems are reported in the body only.
func (h *CheckoutHandlers) CompleteOrder(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	entries, err := h.Checkout.Complete(c.Request.Context(), c, orderID)
	attached := err == nil && len(entries) > 0

	resp := gin.H{"order_id": orderID, "history_attached": attached, "entries": len(entries)}
	if err != nil {
		resp["warning"] = "History could not be attached"
	}

	if attached && h.Notifier != nil {
		go h.notify(orderID)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CheckoutHandlers) notify(orderID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := h.Notifier.OrderCompleted(ctx, orderID); err != nil {
		h.log.Error("Failed to notify staff of completed order", "order_id", orderID, "error", err)
	}
}

// orderIDParam parses the :id route parameter, answering 400 itself when it is not a positive integer.
func orderIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order id"})
		return 0, false
	}
	return id, true
}
