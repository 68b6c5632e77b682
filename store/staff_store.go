package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"userhistory/api/models"
)

var (
	ErrStaffNotFound = errors.New("staff user not found")
	ErrStaffExists   = errors.New("staff user already exists")
)

type StaffStore struct {
	db *sql.DB
}

func NewStaffStore(db *sql.DB) *StaffStore {
	return &StaffStore{db: db}
}

// CreateStaff inserts a new staff account.
func (s *StaffStore) CreateStaff(ctx context.Context, email string, hashedPassword []byte) (*models.StaffUser, error) {
	user := &models.StaffUser{}
	query := `
		INSERT INTO staff_users (email, hashed_password)
		VALUES ($1, $2)
		RETURNING id, email, created_at, updated_at;
	`
	err := s.db.QueryRowContext(ctx, query, email, hashedPassword).Scan(
		&user.ID,
		&user.Email,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, fmt.Errorf("%w: %s", ErrStaffExists, email)
		}
		return nil, fmt.Errorf("failed to create staff user: %w", err)
	}

	return user, nil
}

func (s *StaffStore) GetStaffByEmail(ctx context.Context, email string) (*models.StaffUser, error) {
	user := &models.StaffUser{}
	query := `
		SELECT id, email, hashed_password, created_at, updated_at
		FROM staff_users
		WHERE email = $1;
	`
	err := s.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.HashedPassword,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrStaffNotFound, email)
		}
		return nil, fmt.Errorf("failed to get staff user by email: %w", err)
	}

	return user, nil
}
