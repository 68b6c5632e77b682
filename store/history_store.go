// api/store/history_store.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"userhistory/api/models"
)

// ErrUnavailable wraps failures of the backing key/value service.
var ErrUnavailable = errors.New("history store unavailable")

// HistoryStore persists in-progress visitor histories keyed by the opaque visitor token.
type HistoryStore interface {
	// Get returns nil, nil when the token has no history.
	Get(ctx context.Context, token string) (*models.History, error)
	Set(ctx context.Context, token string, h *models.History) error
	Delete(ctx context.Context, token string) error
	// Append records visit. seed becomes the referrer only when the token has no history yet.
	Append(ctx context.Context, token string, seed, visit models.Entry) error
	// Sweep removes histories idle since before cutoff and reports how many were removed.
	Sweep(ctx context.Context, cutoff time.Time) (int, error)
}

func encodeEntry(e models.Entry) (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("encode history entry: %w", err)
	}
	return string(b), nil
}

// decodeEntry tolerates the bare-string format of older releases.
func decodeEntry(s string) (models.Entry, error) {
	var raw models.RawEntry
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return models.Entry{}, fmt.Errorf("decode history entry: %w", err)
	}
	return models.Entry{URL: raw.URL, Time: raw.Time}, nil
}
