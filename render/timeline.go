package render

import (
	"strings"

	"github.com/shopspring/decimal"

	"userhistory/api/models"
)

// Timeline is a finalized history laid out for display.
type Timeline struct {
	Empty        bool          `json:"empty"`
	Referrer     string        `json:"referrer,omitempty"`
	SearchQuery  string        `json:"search_query,omitempty"`
	Rows         []TimelineRow `json:"rows"`
	TotalElapsed string        `json:"total_elapsed,omitempty"`
}

type TimelineRow struct {
	Index     int    `json:"index"`
	URL       string `json:"url"`
	Time      int64  `json:"time"`
	Timestamp string `json:"timestamp"`
	Elapsed   string `json:"elapsed"`
	Total     string `json:"total"`
}

// ReferrerIsURL reports whether the referrer should be rendered as a link.
func (t Timeline) ReferrerIsURL() bool {
	return strings.HasPrefix(t.Referrer, "http")
}

// Timeline lays out entries, which start with the referrer and end with the completion
// marker. Neither is listed as a row, but both anchor the elapsed figures: each row measures
// up to the entry after it, and totals are measured from the referrer.
func (f *Formatter) Timeline(entries []models.Entry) Timeline {
	if len(entries) == 0 {
		return Timeline{Empty: true, Rows: []TimelineRow{}}
	}
	now := f.now()
	referrer := entries[0]
	steps := entries[1:]

	t := Timeline{
		Referrer: referrer.URL,
		Rows:     make([]TimelineRow, 0, len(steps)),
	}
	t.SearchQuery, _ = SearchQuery(referrer.URL)

	for i := 0; i+1 < len(steps); i++ {
		cur, next := steps[i], steps[i+1]
		t.Rows = append(t.Rows, TimelineRow{
			Index:     i + 1,
			URL:       cur.URL,
			Time:      cur.Time,
			Timestamp: f.timestamp(cur.Time),
			Elapsed:   Elapsed(cur.Time, next.Time, now),
			Total:     Elapsed(referrer.Time, next.Time, now),
		})
	}

	var last models.Entry
	if len(steps) > 0 {
		last = steps[len(steps)-1]
	}
	t.TotalElapsed = Elapsed(referrer.Time, last.Time, now)
	return t
}

// PurchaseHistory is every order a customer placed, oldest first.
type PurchaseHistory struct {
	Rows          []PurchaseRow `json:"rows"`
	LifetimeValue string        `json:"lifetime_value"`
}

type PurchaseRow struct {
	Index   int    `json:"index"`
	OrderID int64  `json:"order_id"`
	Number  string `json:"number"`
	Date    string `json:"date"`
	Status  string `json:"status"`
	Total   string `json:"total"`
	Current bool   `json:"current"`
}

// PurchaseHistory lists orders with the one identified by currentID highlighted. Lifetime
// value only counts complete orders.
func (f *Formatter) PurchaseHistory(currentID int64, orders []models.Order) PurchaseHistory {
	p := PurchaseHistory{Rows: make([]PurchaseRow, 0, len(orders))}
	lifetime := decimal.Zero
	for i, o := range orders {
		p.Rows = append(p.Rows, PurchaseRow{
			Index:   i + 1,
			OrderID: o.ID,
			Number:  o.Number,
			Date:    f.orderDate(o.CreatedAt),
			Status:  statusLabel(o.Status),
			Total:   f.Money(o.Total),
			Current: o.ID == currentID,
		})
		if o.Status == models.OrderStatusComplete {
			lifetime = lifetime.Add(o.Total)
		}
	}
	p.LifetimeValue = f.Money(lifetime)
	return p
}
