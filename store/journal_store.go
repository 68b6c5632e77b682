// api/store/journal_store.go
package store

import (
	"context"
	"fmt"

	"userhistory/api/database"
	"userhistory/api/logger"
	"userhistory/api/models"
)

// JournalStore appends raw page views to ClickHouse. It keeps an audit trail per visitor token
// and is never consulted to build a history.
type JournalStore struct {
	DB  *database.ClickHouseClient
	log *logger.Logger
}

func NewJournalStore(chClient *database.ClickHouseClient, log *logger.Logger) *JournalStore {
	return &JournalStore{
		DB:  chClient,
		log: log.With("service", "JournalStore"),
	}
}

func (s *JournalStore) RecordVisits(ctx context.Context, events []models.VisitEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.DB.Conn.PrepareBatch(ctx, `
		INSERT INTO visit_journal (
			event_id, token, timestamp, page_url, referrer, user_agent, ip_address
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}

	for _, event := range events {
		err := batch.Append(
			event.EventID,
			event.Token,
			event.Timestamp,
			event.PageURL,
			event.Referrer,
			event.UserAgent,
			event.IPAddress,
		)
		if err != nil {
			s.log.Warn("Error appending visit to batch", "event_id", event.EventID, "error", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	s.log.Debug("Recorded visits", "count", len(events))
	return nil
}

// SessionVisits returns the most recent journal rows for a visitor token, oldest first.
func (s *JournalStore) SessionVisits(ctx context.Context, token string, limit uint64) ([]models.VisitEvent, error) {
	if limit == 0 {
		limit = 100
	}

	query := `
		SELECT event_id, token, timestamp, page_url, referrer, user_agent, ip_address
		FROM (
			SELECT * FROM visit_journal
			WHERE token = ?
			ORDER BY timestamp DESC
			LIMIT ?
		)
		ORDER BY timestamp ASC
	`
	rows, err := s.DB.Conn.Query(ctx, query, token, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query session visits: %w", err)
	}
	defer rows.Close()

	var results []models.VisitEvent
	for rows.Next() {
		var e models.VisitEvent
		if err := rows.Scan(&e.EventID, &e.Token, &e.Timestamp, &e.PageURL, &e.Referrer, &e.UserAgent, &e.IPAddress); err != nil {
			s.log.Warn("Error scanning visit journal row", "error", err)
			continue
		}
		results = append(results, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating visit journal rows: %w", err)
	}

	return results, nil
}
