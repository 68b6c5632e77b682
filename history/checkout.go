package history

import (
	"context"
	"time"

	"userhistory/api/identity"
	"userhistory/api/logger"
	"userhistory/api/metrics"
	"userhistory/api/models"
	"userhistory/api/store"
)

// OrderAttacher persists a finalized history against an order.
type OrderAttacher interface {
	AttachHistory(ctx context.Context, orderID int64, entries []models.Entry) error
}

// Checkout moves a visitor's history onto their order when a purchase completes.
type Checkout struct {
	store  store.HistoryStore
	orders OrderAttacher
	issuer *identity.Issuer
	now    func() time.Time
	log    *logger.Logger
}

func NewCheckout(s store.HistoryStore, orders OrderAttacher, issuer *identity.Issuer, log *logger.Logger) *Checkout {
	return &Checkout{
		store:  s,
		orders: orders,
		issuer: issuer,
		now:    time.Now,
		log:    log.With("service", "Checkout"),
	}
}

// Complete finalizes the visitor's history, attaches it to orderID, then discards the session
// history and expires the visitor token. Tracking is best effort: an unreadable history is
// treated as none, and the returned error only reports a failed attachment. The visitor state
// is cleared either way.
func (c *Checkout) Complete(ctx context.Context, jar identity.CredentialJar, orderID int64) ([]models.Entry, error) {
	token, ok := c.issuer.Peek(jar)

	var h *models.History
	if ok {
		var err error
		if h, err = c.store.Get(ctx, token); err != nil {
			metrics.TrackFailures.WithLabelValues("read").Inc()
			c.log.Warn("History unavailable at checkout, continuing without it", "order_id", orderID, "error", err)
			h = nil
		}
	}

	entries := Finalize(h, c.now())

	var attachErr error
	if len(entries) == 0 {
		metrics.HistoriesFinalized.WithLabelValues("empty").Inc()
	} else if attachErr = c.orders.AttachHistory(ctx, orderID, entries); attachErr != nil {
		metrics.HistoriesFinalized.WithLabelValues("failed").Inc()
		c.log.Error("Failed to attach history to order", "order_id", orderID, "error", attachErr)
	} else {
		metrics.HistoriesFinalized.WithLabelValues("attached").Inc()
		metrics.HistoryLength.Observe(float64(len(entries)))
		c.log.Info("History attached to order", "order_id", orderID, "entries", len(entries))
	}

	if ok {
		if err := c.store.Delete(ctx, token); err != nil {
			metrics.TrackFailures.WithLabelValues("delete").Inc()
			c.log.Warn("Failed to discard session history", "order_id", orderID, "error", err)
		}
	}
	c.issuer.Invalidate(jar)

	return entries, attachErr
}
