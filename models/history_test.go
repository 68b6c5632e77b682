package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawEntryDecodesBothShapes(t *testing.T) {
	var raw []RawEntry
	err := json.Unmarshal([]byte(`["/page1", {"url": "/page2", "time": 1700000000}, {"url": "/page3", "time": "42"}]`), &raw)
	require.NoError(t, err)
	require.Len(t, raw, 3)

	assert.Equal(t, LegacyEntry("/page1"), raw[0])
	assert.Equal(t, RawEntry{URL: "/page2", Time: 1700000000}, raw[1])
	assert.Equal(t, RawEntry{URL: "/page3", Time: 42}, raw[2])
}

func TestRawEntryEncodesLegacyAsString(t *testing.T) {
	out, err := json.Marshal([]RawEntry{LegacyEntry("/a"), CurrentEntry(Entry{URL: "/b", Time: 9})})
	require.NoError(t, err)
	assert.JSONEq(t, `["/a", {"url": "/b", "time": 9}]`, string(out))
}

func TestRawEntryGarbageTime(t *testing.T) {
	var r RawEntry
	require.NoError(t, json.Unmarshal([]byte(`{"url": "/x", "time": "soon"}`), &r))
	assert.Equal(t, int64(0), r.Time)
}

func TestHistoryEntriesRoundTrip(t *testing.T) {
	h := &History{
		Referrer: Entry{URL: DirectTraffic, Time: 10},
		Pages:    []Entry{{URL: "/a", Time: 11}, {URL: "/b", Time: 30}},
	}
	entries := h.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, DirectTraffic, entries[0].URL)
	assert.Equal(t, h, HistoryFromEntries(entries))
	assert.Nil(t, HistoryFromEntries(nil))
}

func TestHistoryCloneIsIndependent(t *testing.T) {
	h := &History{Referrer: Entry{URL: "r"}, Pages: []Entry{{URL: "/a"}}}
	c := h.Clone()
	c.Pages[0].URL = "/changed"
	assert.Equal(t, "/a", h.Pages[0].URL)
}
