package history

import (
	"context"
	"fmt"
	"time"

	"userhistory/api/logger"
	"userhistory/api/metrics"
	"userhistory/api/models"
	"userhistory/api/store"
	"userhistory/api/utils"
)

// Tracker accumulates page views into a visitor's in-progress history.
// Histories are append-only and unbounded until they are finalized or swept.
type Tracker struct {
	store store.HistoryStore
	now   func() time.Time
	log   *logger.Logger
}

func NewTracker(s store.HistoryStore, log *logger.Logger) *Tracker {
	return &Tracker{
		store: s,
		now:   time.Now,
		log:   log.With("service", "Tracker"),
	}
}

// Visited records a page view for token. The first view of a session also records where the
// visitor came from, or "Direct Traffic" when the referrer is not a usable URL.
func (t *Tracker) Visited(ctx context.Context, token, pageURL string, timestamp int64, referrer string) error {
	seed := models.Entry{URL: models.DirectTraffic, Time: t.now().Unix()}
	if ref := SanitizeURL(referrer); ref != "" {
		seed.URL = ref
	}
	visit := models.Entry{URL: SanitizeURL(pageURL), Time: utils.AbsInt(timestamp)}

	if err := t.store.Append(ctx, token, seed, visit); err != nil {
		metrics.TrackFailures.WithLabelValues("append").Inc()
		return fmt.Errorf("record visit: %w", err)
	}
	metrics.VisitsTracked.Inc()
	t.log.Debug("Visit recorded", "token", token, "url", visit.URL)
	return nil
}

// Current returns the in-progress history of token, nil when none was collected.
func (t *Tracker) Current(ctx context.Context, token string) (*models.History, error) {
	return t.store.Get(ctx, token)
}

// Reset discards the in-progress history of token.
func (t *Tracker) Reset(ctx context.Context, token string) error {
	return t.store.Delete(ctx, token)
}

// Sweep drops histories with no activity since cutoff.
func (t *Tracker) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	n, err := t.store.Sweep(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep histories: %w", err)
	}
	if n > 0 {
		t.log.Info("Swept idle histories", "count", n, "cutoff", cutoff)
	}
	return n, nil
}
