// Package history accumulates a visitor's page views, finalizes them at purchase time and
// upgrades histories persisted by older releases.
package history

import "userhistory/api/models"

// Normalize upgrades a persisted history to the current entry shape. When the first element is a
// bare URL, every element is treated as one and gets a zero timestamp.
func Normalize(raw []models.RawEntry) []models.Entry {
	if len(raw) == 0 {
		return []models.Entry{}
	}
	out := make([]models.Entry, len(raw))
	legacy := raw[0].Legacy
	for i, r := range raw {
		if legacy {
			out[i] = models.Entry{URL: r.URL}
			continue
		}
		out[i] = models.Entry{URL: r.URL, Time: r.Time}
	}
	return out
}
