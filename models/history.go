// api/models/history.go
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// DirectTraffic is the referrer label used when a visitor arrives without a usable referrer.
	DirectTraffic = "Direct Traffic"
	// OrderComplete labels the marker entry appended when a history is finalized.
	OrderComplete = "Order Complete"
	// UserHistoryMetaKey is the order metadata field holding a finalized history.
	UserHistoryMetaKey = "user_history"
	// PaymentMetaKey is the legacy metadata location that may still hold a finalized history.
	PaymentMetaKey = "payment_meta"
)

// Entry is a single step of a visitor's journey. Time is a unix timestamp in seconds, never negative.
type Entry struct {
	URL  string `json:"url"`
	Time int64  `json:"time"`
}

// History is a visitor's in-progress journey. The referrer is kept apart from the visited pages.
type History struct {
	Referrer Entry   `json:"referrer"`
	Pages    []Entry `json:"pages"`
}

// Entries flattens the history into the persisted order: referrer first, then every visited page.
func (h *History) Entries() []Entry {
	if h == nil {
		return nil
	}
	out := make([]Entry, 0, len(h.Pages)+1)
	out = append(out, h.Referrer)
	return append(out, h.Pages...)
}

// Clone returns a deep copy.
func (h *History) Clone() *History {
	if h == nil {
		return nil
	}
	c := &History{Referrer: h.Referrer}
	if h.Pages != nil {
		c.Pages = append([]Entry(nil), h.Pages...)
	}
	return c
}

// HistoryFromEntries splits a flattened sequence back into referrer and pages.
// It returns nil for an empty sequence.
func HistoryFromEntries(entries []Entry) *History {
	if len(entries) == 0 {
		return nil
	}
	h := &History{Referrer: entries[0]}
	if len(entries) > 1 {
		h.Pages = append([]Entry(nil), entries[1:]...)
	}
	return h
}

// RawEntry is a persisted history element as found in storage. Older releases stored
// bare URL strings; those decode with Legacy set and Time zero.
type RawEntry struct {
	Legacy bool
	URL    string
	Time   int64
}

// CurrentEntry wraps an already normalized entry.
func CurrentEntry(e Entry) RawEntry {
	return RawEntry{URL: e.URL, Time: e.Time}
}

// LegacyEntry wraps a bare URL from the single-field format.
func LegacyEntry(url string) RawEntry {
	return RawEntry{Legacy: true, URL: url}
}

// RawEntries lifts normalized entries back into the storage representation.
func RawEntries(entries []Entry) []RawEntry {
	if entries == nil {
		return nil
	}
	out := make([]RawEntry, len(entries))
	for i, e := range entries {
		out[i] = CurrentEntry(e)
	}
	return out
}

func (r RawEntry) MarshalJSON() ([]byte, error) {
	if r.Legacy {
		return json.Marshal(r.URL)
	}
	return json.Marshal(Entry{URL: r.URL, Time: r.Time})
}

func (r *RawEntry) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var url string
		if err := json.Unmarshal(trimmed, &url); err != nil {
			return err
		}
		*r = LegacyEntry(url)
		return nil
	}

	var obj struct {
		URL  string          `json:"url"`
		Time json.RawMessage `json:"time"`
	}
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return fmt.Errorf("history entry: %w", err)
	}
	*r = RawEntry{URL: obj.URL, Time: parseTimestamp(obj.Time)}
	return nil
}

// parseTimestamp accepts numbers and numeric strings. Anything else becomes zero.
func parseTimestamp(raw json.RawMessage) int64 {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return int64(f)
	}
	return 0
}
