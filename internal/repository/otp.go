package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/staffdesk/staffdesk/internal/models"
)

// PostgresOTPRepository stores password reset passcodes.
type PostgresOTPRepository struct {
	DB *sql.DB
}

func NewPostgresOTPRepository(db *sql.DB) *PostgresOTPRepository {
	return &PostgresOTPRepository{DB: db}
}

// ReplaceOTP retires every unused passcode of the staff member and stores
// otp in the same transaction.
func (s *PostgresOTPRepository) ReplaceOTP(ctx context.Context, otp models.PasswordOTP) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE password_otps SET used = true WHERE staff_id = $1 AND used = false`,
		otp.StaffID,
	); err != nil {
		return fmt.Errorf("retire otps: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO password_otps (id, staff_id, code, expires_at, used)
		VALUES ($1, $2, $3, $4, false)
	`, otp.ID, otp.StaffID, otp.Code, otp.ExpiresAt); err != nil {
		return fmt.Errorf("insert otp: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ActiveOTP returns the newest unused passcode of staffID, or nil.
func (s *PostgresOTPRepository) ActiveOTP(ctx context.Context, staffID string) (*models.PasswordOTP, error) {
	var otp models.PasswordOTP
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, staff_id, code, expires_at, used FROM password_otps
		WHERE staff_id = $1 AND used = false
		ORDER BY expires_at DESC LIMIT 1
	`, staffID).Scan(&otp.ID, &otp.StaffID, &otp.Code, &otp.ExpiresAt, &otp.Used)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ActiveOTP: %w", err)
	}
	return &otp, nil
}

// MarkOTPUsed retires a single passcode.
func (s *PostgresOTPRepository) MarkOTPUsed(ctx context.Context, id string) error {
	_, err := s.DB.ExecContext(ctx, `UPDATE password_otps SET used = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("MarkOTPUsed: %w", err)
	}
	return nil
}
