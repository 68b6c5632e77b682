package render

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"userhistory/api/models"
)

const (
	timestampLayout = "2006/01/02 – 03:04:05pm"
	orderDateLayout = "2006-01-02 03:04pm"
)

var currencySymbols = map[string]string{
	"USD": "$", "AUD": "$", "CAD": "$", "NZD": "$", "HKD": "$", "SGD": "$",
	"EUR": "€", "GBP": "£", "JPY": "¥", "CNY": "¥", "INR": "₹", "BRL": "R$",
	"CHF": "CHF ", "SEK": "kr ", "NOK": "kr ", "DKK": "kr ",
}

var statusLabels = map[string]string{
	models.OrderStatusPending:  "Pending",
	models.OrderStatusComplete: "Complete",
	models.OrderStatusRefunded: "Refunded",
	models.OrderStatusFailed:   "Failed",
}

// Formatter holds the site settings that affect presentation.
type Formatter struct {
	loc      *time.Location
	currency string
	now      func() time.Time
}

// NewFormatter renders times shifted by gmtOffset and amounts in currency (ISO 4217 code).
func NewFormatter(gmtOffset time.Duration, currency string) *Formatter {
	if currency == "" {
		currency = "USD"
	}
	return &Formatter{
		loc:      time.FixedZone("site", int(gmtOffset/time.Second)),
		currency: strings.ToUpper(currency),
		now:      time.Now,
	}
}

func (f *Formatter) timestamp(unix int64) string {
	if unix == 0 {
		return "N/A"
	}
	return time.Unix(unix, 0).In(f.loc).Format(timestampLayout)
}

func (f *Formatter) orderDate(t time.Time) string {
	return t.In(f.loc).Format(orderDateLayout)
}

// Money formats an amount with two decimals, thousands separators and the currency symbol.
func (f *Formatter) Money(amount decimal.Decimal) string {
	s := amount.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	formatted := b.String() + "." + frac

	sign := ""
	if amount.IsNegative() {
		sign = "-"
	}
	if sym, ok := currencySymbols[f.currency]; ok {
		return sign + sym + formatted
	}
	return sign + formatted + " " + f.currency
}

func statusLabel(status string) string {
	if l, ok := statusLabels[status]; ok {
		return l
	}
	return status
}
