package render

import (
	"context"
	"fmt"
	"strings"

	"userhistory/api/history"
	"userhistory/api/models"
)

// OrderSource is the read side of the order store used for presentation.
type OrderSource interface {
	Get(ctx context.Context, orderID int64) (*models.Order, error)
	History(ctx context.Context, orderID int64) ([]models.RawEntry, error)
	CustomerOrders(ctx context.Context, email string) ([]models.Order, error)
}

// Views renders the per-order staff views from stored data.
type Views struct {
	orders OrderSource
	format *Formatter
}

func NewViews(orders OrderSource, format *Formatter) *Views {
	return &Views{orders: orders, format: format}
}

// Timeline loads the stored history of an order, legacy shapes included, and lays it out.
func (v *Views) Timeline(ctx context.Context, orderID int64) (Timeline, error) {
	raw, err := v.orders.History(ctx, orderID)
	if err != nil {
		return Timeline{}, err
	}
	return v.format.Timeline(history.Normalize(raw)), nil
}

// PurchaseHistory loads every order placed with the same email as orderID.
func (v *Views) PurchaseHistory(ctx context.Context, orderID int64) (PurchaseHistory, error) {
	order, err := v.orders.Get(ctx, orderID)
	if err != nil {
		return PurchaseHistory{}, err
	}
	orders, err := v.orders.CustomerOrders(ctx, order.Email)
	if err != nil {
		return PurchaseHistory{}, err
	}
	return v.format.PurchaseHistory(orderID, orders), nil
}

func (v *Views) BrowsingHistoryHTML(ctx context.Context, orderID int64) (string, error) {
	t, err := v.Timeline(ctx, orderID)
	if err != nil {
		return "", err
	}
	return BrowsingHistoryHTML(t)
}

func (v *Views) PurchaseHistoryHTML(ctx context.Context, orderID int64) (string, error) {
	p, err := v.PurchaseHistory(ctx, orderID)
	if err != nil {
		return "", err
	}
	return PurchaseHistoryHTML(p)
}

// OrderPanels renders both fragments as admin panels for the order detail page.
func (v *Views) OrderPanels(ctx context.Context, orderID int64) (string, error) {
	panels := []struct {
		title  string
		render func(context.Context, int64) (string, error)
	}{
		{"Customer Browsing History", v.BrowsingHistoryHTML},
		{"Customer Purchase History", v.PurchaseHistoryHTML},
	}

	var b strings.Builder
	for _, p := range panels {
		content, err := p.render(ctx, orderID)
		if err != nil {
			return "", fmt.Errorf("%s: %w", strings.ToLower(p.title), err)
		}
		box, err := Metabox(p.title, content)
		if err != nil {
			return "", err
		}
		b.WriteString(box)
	}
	return b.String(), nil
}
