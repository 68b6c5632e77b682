package render

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"userhistory/api/models"
)

func newFormatter(offset time.Duration, currency string) *Formatter {
	f := NewFormatter(offset, currency)
	f.now = func() time.Time { return time.Unix(5000, 0) }
	return f
}

func TestTimelineSingleVisit(t *testing.T) {
	f := newFormatter(0, "USD")
	tl := f.Timeline([]models.Entry{
		{URL: "https://google.com/?q=widgets", Time: 1000},
		{URL: "https://shop.test/a", Time: 1000},
		{URL: models.OrderComplete, Time: 1100},
	})

	assert.False(t, tl.Empty)
	assert.Equal(t, "https://google.com/?q=widgets", tl.Referrer)
	assert.Equal(t, "widgets", tl.SearchQuery)
	require.Len(t, tl.Rows, 1)
	assert.Equal(t, TimelineRow{
		Index:     1,
		URL:       "https://shop.test/a",
		Time:      1000,
		Timestamp: "1970/01/01 – 12:16:40am",
		Elapsed:   "01m 40s",
		Total:     "01m 40s",
	}, tl.Rows[0])
	assert.Equal(t, "01m 40s", tl.TotalElapsed)
}

func TestTimelineAnchorsOnNextEntry(t *testing.T) {
	f := newFormatter(2*time.Hour, "USD")
	tl := f.Timeline([]models.Entry{
		{URL: models.DirectTraffic, Time: 1000},
		{URL: "https://shop.test/a", Time: 1010},
		{URL: "https://shop.test/b", Time: 1070},
		{URL: models.OrderComplete, Time: 1100},
	})

	require.Len(t, tl.Rows, 2)
	assert.Equal(t, "01m 00s", tl.Rows[0].Elapsed)
	assert.Equal(t, "01m 10s", tl.Rows[0].Total)
	assert.Equal(t, "30s", tl.Rows[1].Elapsed)
	assert.Equal(t, "01m 40s", tl.Rows[1].Total)
	assert.Equal(t, 2, tl.Rows[1].Index)
	assert.Equal(t, "1970/01/01 – 02:16:50am", tl.Rows[0].Timestamp)
	assert.Equal(t, "01m 40s", tl.TotalElapsed)
	assert.False(t, tl.ReferrerIsURL())
}

func TestTimelineLegacyHasNoTimes(t *testing.T) {
	f := newFormatter(0, "USD")
	tl := f.Timeline([]models.Entry{
		{URL: "https://ref.test/", Time: 0},
		{URL: "/page1", Time: 0},
		{URL: "/page2", Time: 0},
	})

	require.Len(t, tl.Rows, 1)
	assert.Equal(t, "N/A", tl.Rows[0].Timestamp)
	assert.Equal(t, "N/A", tl.Rows[0].Elapsed)
	assert.Equal(t, "N/A", tl.TotalElapsed)
}

func TestTimelineEmpty(t *testing.T) {
	tl := newFormatter(0, "USD").Timeline(nil)
	assert.True(t, tl.Empty)
	assert.Empty(t, tl.Rows)
}

func TestTimelineReferrerOnlyMeasuresToNow(t *testing.T) {
	tl := newFormatter(0, "USD").Timeline([]models.Entry{{URL: "https://ref.test/", Time: 4970}})
	assert.Empty(t, tl.Rows)
	assert.Equal(t, "30s", tl.TotalElapsed)
}

func TestPurchaseHistory(t *testing.T) {
	f := newFormatter(0, "USD")
	created := time.Date(2024, 3, 1, 15, 4, 0, 0, time.UTC)
	orders := []models.Order{
		{ID: 1, Number: "1001", Status: models.OrderStatusComplete, Total: decimal.RequireFromString("19.99"), CreatedAt: created},
		{ID: 2, Number: "1002", Status: models.OrderStatusRefunded, Total: decimal.RequireFromString("5.00"), CreatedAt: created.Add(time.Hour)},
		{ID: 3, Number: "1003", Status: models.OrderStatusComplete, Total: decimal.RequireFromString("1200.50"), CreatedAt: created.Add(2 * time.Hour)},
	}

	p := f.PurchaseHistory(3, orders)
	require.Len(t, p.Rows, 3)
	assert.Equal(t, "$1,220.49", p.LifetimeValue)
	assert.Equal(t, "2024-03-01 03:04pm", p.Rows[0].Date)
	assert.Equal(t, "Refunded", p.Rows[1].Status)
	assert.Equal(t, "$1,200.50", p.Rows[2].Total)
	assert.False(t, p.Rows[0].Current)
	assert.True(t, p.Rows[2].Current)
}

func TestPurchaseHistoryWithoutCompleteOrders(t *testing.T) {
	p := newFormatter(0, "EUR").PurchaseHistory(1, []models.Order{
		{ID: 1, Number: "1", Status: models.OrderStatusPending, Total: decimal.NewFromInt(10)},
	})
	assert.Equal(t, "€0.00", p.LifetimeValue)
}

func TestMoney(t *testing.T) {
	tests := []struct {
		currency string
		amount   string
		want     string
	}{
		{"USD", "1234567.5", "$1,234,567.50"},
		{"usd", "0", "$0.00"},
		{"GBP", "999.999", "£1,000.00"},
		{"XYZ", "12", "12.00 XYZ"},
		{"USD", "-42.1", "-$42.10"},
	}
	for _, tt := range tests {
		t.Run(tt.currency+tt.amount, func(t *testing.T) {
			f := NewFormatter(0, tt.currency)
			assert.Equal(t, tt.want, f.Money(decimal.RequireFromString(tt.amount)))
		})
	}
}
