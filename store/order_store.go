package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"userhistory/api/models"
)

var ErrOrderNotFound = errors.New("order not found")

type OrderStore struct {
	db *sql.DB
}

func NewOrderStore(db *sql.DB) *OrderStore {
	return &OrderStore{db: db}
}

const orderColumns = `o.id, o.number, o.email, o.status, o.total, o.created_at`

func scanOrder(row interface{ Scan(...any) error }) (*models.Order, error) {
	o := &models.Order{}
	if err := row.Scan(&o.ID, &o.Number, &o.Email, &o.Status, &o.Total, &o.CreatedAt); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *OrderStore) Get(ctx context.Context, orderID int64) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders o WHERE o.id = $1`
	o, err := scanOrder(s.db.QueryRowContext(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrOrderNotFound, orderID)
		}
		return nil, fmt.Errorf("failed to get order %d: %w", orderID, err)
	}
	return o, nil
}

// CustomerOrders lists every order placed with email, oldest first.
func (s *OrderStore) CustomerOrders(ctx context.Context, email string) ([]models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders o WHERE o.email = $1 ORDER BY o.created_at ASC, o.id ASC`
	return s.queryOrders(ctx, query, email)
}

// SearchByHistory finds orders whose stored browsing history mentions term.
func (s *OrderStore) SearchByHistory(ctx context.Context, term string) ([]models.Order, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, nil
	}
	query := `
		SELECT DISTINCT ` + orderColumns + `
		FROM orders o
		JOIN order_meta m ON m.order_id = o.id
		WHERE m.meta_key IN ($1, $2) AND m.meta_value::text ILIKE $3
		ORDER BY o.created_at DESC, o.id DESC`
	return s.queryOrders(ctx, query, models.UserHistoryMetaKey, models.PaymentMetaKey, "%"+escapeLike(term)+"%")
}

func (s *OrderStore) queryOrders(ctx context.Context, query string, args ...any) ([]models.Order, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	return orders, nil
}

// AttachHistory stores a finalized history on the order. An existing history is never overwritten.
func (s *OrderStore) AttachHistory(ctx context.Context, orderID int64, entries []models.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO order_meta (order_id, meta_key, meta_value)
		VALUES ($1, $2, $3)
		ON CONFLICT (order_id, meta_key) DO NOTHING`,
		orderID, models.UserHistoryMetaKey, string(payload))
	if err != nil {
		return fmt.Errorf("failed to attach history to order %d: %w", orderID, err)
	}
	return nil
}

// History returns the stored history of an order as persisted, legacy elements included.
// It reads the current location first and falls back to the legacy payment metadata.
func (s *OrderStore) History(ctx context.Context, orderID int64) ([]models.RawEntry, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT meta_value FROM order_meta WHERE order_id = $1 AND meta_key = $2`,
		orderID, models.UserHistoryMetaKey).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		err = s.db.QueryRowContext(ctx,
			`SELECT meta_value -> $2::text FROM order_meta WHERE order_id = $1 AND meta_key = $3`,
			orderID, models.UserHistoryMetaKey, models.PaymentMetaKey).Scan(&payload)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history of order %d: %w", orderID, err)
	}
	return decodeRawHistory(payload)
}

// LegacyHistoryOrderIDs lists orders whose history still sits in the legacy payment metadata.
func (s *OrderStore) LegacyHistoryOrderIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT order_id FROM order_meta WHERE meta_key = $1 AND meta_value -> $2::text IS NOT NULL ORDER BY order_id`,
		models.PaymentMetaKey, models.UserHistoryMetaKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list legacy histories: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan order id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MigrateLegacyHistory moves the history of one order from the legacy payment metadata to its own
// metadata field, verbatim. The payment metadata is deleted when nothing else remains in it.
// It reports whether a history was moved. An order that already has its own history is left
// untouched.
func (s *OrderStore) MigrateLegacyHistory(ctx context.Context, orderID int64) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin migration of order %d: %w", orderID, err)
	}
	defer tx.Rollback()

	var payload []byte
	err = tx.QueryRowContext(ctx,
		`SELECT meta_value FROM order_meta WHERE order_id = $1 AND meta_key = $2 FOR UPDATE`,
		orderID, models.PaymentMetaKey).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read payment meta of order %d: %w", orderID, err)
	}

	var meta map[string]json.RawMessage
	if err := json.Unmarshal(payload, &meta); err != nil {
		return false, fmt.Errorf("failed to decode payment meta of order %d: %w", orderID, err)
	}
	history, ok := meta[models.UserHistoryMetaKey]
	if !ok || isEmptyJSON(history) {
		return false, nil
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO order_meta (order_id, meta_key, meta_value)
		VALUES ($1, $2, $3)
		ON CONFLICT (order_id, meta_key) DO NOTHING`,
		orderID, models.UserHistoryMetaKey, string(history))
	if err != nil {
		return false, fmt.Errorf("failed to copy history of order %d: %w", orderID, err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to copy history of order %d: %w", orderID, err)
	}
	if inserted == 0 {
		// The order already carries a history; the legacy copy stays where it is.
		return false, nil
	}

	delete(meta, models.UserHistoryMetaKey)
	if len(meta) == 0 {
		_, err = tx.ExecContext(ctx,
			`DELETE FROM order_meta WHERE order_id = $1 AND meta_key = $2`,
			orderID, models.PaymentMetaKey)
	} else {
		var rest []byte
		if rest, err = json.Marshal(meta); err == nil {
			_, err = tx.ExecContext(ctx,
				`UPDATE order_meta SET meta_value = $3 WHERE order_id = $1 AND meta_key = $2`,
				orderID, models.PaymentMetaKey, string(rest))
		}
	}
	if err != nil {
		return false, fmt.Errorf("failed to update payment meta of order %d: %w", orderID, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit migration of order %d: %w", orderID, err)
	}
	return true, nil
}

// MigrateAllLegacyHistories runs MigrateLegacyHistory over every pending order.
func (s *OrderStore) MigrateAllLegacyHistories(ctx context.Context) (int, error) {
	ids, err := s.LegacyHistoryOrderIDs(ctx)
	if err != nil {
		return 0, err
	}
	moved := 0
	for _, id := range ids {
		ok, err := s.MigrateLegacyHistory(ctx, id)
		if err != nil {
			return moved, err
		}
		if ok {
			moved++
		}
	}
	return moved, nil
}

func decodeRawHistory(payload []byte) ([]models.RawEntry, error) {
	if isEmptyJSON(payload) {
		return nil, nil
	}
	var raw []models.RawEntry
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode stored history: %w", err)
	}
	return raw, nil
}

func isEmptyJSON(b []byte) bool {
	switch strings.TrimSpace(string(b)) {
	case "", "null", "[]", "{}", `""`, "false", "0":
		return true
	}
	return false
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
