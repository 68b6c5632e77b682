package history

import (
	"time"

	"userhistory/api/models"
	"userhistory/api/utils"
)

// Finalize produces the copy of h that is safe to persist against an order.
// The referrer may be a label rather than a URL, so it is sanitized as text; visited pages are
// sanitized as URLs. An "Order Complete" marker stamped with completedAt closes the sequence.
// A missing history finalizes to an empty one, without the marker.
func Finalize(h *models.History, completedAt time.Time) []models.Entry {
	if h == nil {
		return []models.Entry{}
	}

	out := make([]models.Entry, 0, len(h.Pages)+2)
	out = append(out, models.Entry{
		URL:  SanitizeText(h.Referrer.URL),
		Time: utils.AbsInt(h.Referrer.Time),
	})
	for _, p := range h.Pages {
		out = append(out, models.Entry{
			URL:  SanitizeURL(p.URL),
			Time: utils.AbsInt(p.Time),
		})
	}
	return append(out, models.Entry{URL: models.OrderComplete, Time: completedAt.Unix()})
}
