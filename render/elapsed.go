// Package render turns finalized histories and order lists into the timelines and HTML
// fragments shown to staff and embedded in order emails.
package render

import (
	"fmt"
	"net/url"
	"time"

	"userhistory/api/utils"
)

const (
	minute = 60
	hour   = 60 * minute
	day    = 24 * hour
)

// Elapsed formats the time between two unix timestamps with progressively coarser precision:
// "SSs", "MMm SSs", "HHh MMm SSs" and finally "D:HH:MM:SS". A zero t0 yields "N/A";
// a zero t1 means now. An exact minute, hour or day already uses the coarser format,
// so 60 renders as "01m 00s" and 3600 as "01h 00m 00s".
func Elapsed(t0, t1 int64, now time.Time) string {
	if t0 == 0 {
		return "N/A"
	}
	if t1 == 0 {
		t1 = now.Unix()
	}
	d := utils.AbsInt(utils.AbsInt(t1) - utils.AbsInt(t0))

	switch {
	case d < minute:
		return fmt.Sprintf("%02ds", d)
	case d < hour:
		return fmt.Sprintf("%02dm %02ds", d/minute, d%minute)
	case d < day:
		return fmt.Sprintf("%02dh %02dm %02ds", d/hour, d/minute%60, d%minute)
	default:
		return fmt.Sprintf("%d:%02d:%02d:%02d", d/day, d/hour%24, d/minute%60, d%minute)
	}
}

// SearchQuery extracts the search term a search engine referral carried, looking at the query
// string first and the fragment otherwise. Parameters "q" then "p" are checked.
func SearchQuery(referrer string) (string, bool) {
	if referrer == "" {
		return "", false
	}
	u, err := url.Parse(referrer)
	if err != nil {
		return "", false
	}
	raw := u.RawQuery
	if raw == "" {
		raw = u.EscapedFragment()
	}
	if raw == "" {
		return "", false
	}

	// Malformed pairs are skipped; whatever parsed is still usable.
	values, _ := url.ParseQuery(raw)
	for _, key := range []string{"q", "p"} {
		if values.Has(key) {
			q := values.Get(key)
			return q, q != ""
		}
	}
	return "", false
}
