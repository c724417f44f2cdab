// Package repository provides the PostgreSQL persistence of the development
// auth server.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/staffdesk/staffdesk/internal/models"
)

// PostgresStaffRepository stores staff records and their password hashes.
type PostgresStaffRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresStaffRepository creates a repository on db.
func NewPostgresStaffRepository(db *sql.DB) *PostgresStaffRepository {
	return &PostgresStaffRepository{DB: db}
}

// GetStaff returns the staff member with the given id, or nil when there is
// no such staff member.
func (s *PostgresStaffRepository) GetStaff(ctx context.Context, staffID string) (*models.StaffRecord, error) {
	var (
		rec  models.StaffRecord
		hash sql.NullString
	)
	err := s.DB.QueryRowContext(ctx, `
		SELECT staff_id, name, role, email, job_title, password_hash FROM staff WHERE staff_id = $1
	`, staffID).Scan(&rec.StaffID, &rec.Name, &rec.Role, &rec.Email, &rec.JobTitle, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetStaff: %w", err)
	}
	rec.PasswordHash = hash.String
	return &rec, nil
}

// SetPasswordHash stores a new bcrypt hash for staffID.
func (s *PostgresStaffRepository) SetPasswordHash(ctx context.Context, staffID, hash string) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE staff SET password_hash = $2 WHERE staff_id = $1`,
		staffID, hash,
	)
	if err != nil {
		return fmt.Errorf("SetPasswordHash: %w", err)
	}
	return nil
}

// UpsertStaff inserts rec or refreshes its profile fields. An existing
// password hash is kept.
func (s *PostgresStaffRepository) UpsertStaff(ctx context.Context, rec models.StaffRecord) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO staff (staff_id, name, role, email, job_title)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (staff_id) DO UPDATE SET
			name = EXCLUDED.name,
			role = EXCLUDED.role,
			email = EXCLUDED.email,
			job_title = EXCLUDED.job_title
	`, rec.StaffID, rec.Name, rec.Role, rec.Email, rec.JobTitle)
	if err != nil {
		return fmt.Errorf("UpsertStaff: %w", err)
	}
	return nil
}
