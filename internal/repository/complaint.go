package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/staffdesk/staffdesk/internal/models"
)

const complaintColumns = `c.id, c.title, c.description, c.category, c.status, c.priority,
		c.location, c.is_anonymous, c.anonymity_scope, c.created_at, c.updated_at, s.name`

// PostgresComplaintRepository stores complaints.
type PostgresComplaintRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresComplaintRepository creates a repository on db.
func NewPostgresComplaintRepository(db *sql.DB) *PostgresComplaintRepository {
	return &PostgresComplaintRepository{DB: db}
}

// CreateComplaint files req for staffID and returns the stored complaint.
func (s *PostgresComplaintRepository) CreateComplaint(ctx context.Context, staffID string, req models.ComplaintRequest) (models.Complaint, error) {
	c := models.Complaint{
		Title:          req.Title,
		Description:    req.Description,
		Category:       req.Category,
		Priority:       req.Priority,
		Location:       req.Location,
		IsAnonymous:    req.IsAnonymous,
		AnonymityScope: req.AnonymityScope,
	}
	var created time.Time
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO complaints (staff_id, title, description, category, priority, location, is_anonymous, anonymity_scope)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, status, created_at
	`, staffID, req.Title, req.Description, req.Category, req.Priority, req.Location, req.IsAnonymous, req.AnonymityScope,
	).Scan(&c.ID, &c.Status, &created)
	if err != nil {
		return models.Complaint{}, fmt.Errorf("CreateComplaint: %w", err)
	}
	c.CreatedAt = created.UTC().Format(time.RFC3339)
	c.UpdatedAt = c.CreatedAt
	return c, nil
}

// ComplaintsByStaff lists the complaints filed by staffID, newest first.
func (s *PostgresComplaintRepository) ComplaintsByStaff(ctx context.Context, staffID string) ([]models.Complaint, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+complaintColumns+`
		FROM complaints c JOIN staff s ON s.staff_id = c.staff_id
		WHERE c.staff_id = $1
		ORDER BY c.created_at DESC
	`, staffID)
	if err != nil {
		return nil, fmt.Errorf("ComplaintsByStaff: %w", err)
	}
	defer rows.Close()
	return scanComplaints(rows)
}

// PublicComplaints lists anonymous complaints their authors chose to
// publish, newest first.
func (s *PostgresComplaintRepository) PublicComplaints(ctx context.Context) ([]models.Complaint, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+complaintColumns+`
		FROM complaints c JOIN staff s ON s.staff_id = c.staff_id
		WHERE c.is_anonymous = true AND c.anonymity_scope = $1
		ORDER BY c.created_at DESC
	`, models.ScopePublic)
	if err != nil {
		return nil, fmt.Errorf("PublicComplaints: %w", err)
	}
	defer rows.Close()
	return scanComplaints(rows)
}

// DeleteComplaint removes complaint id when it belongs to staffID. It
// reports whether a row was removed.
func (s *PostgresComplaintRepository) DeleteComplaint(ctx context.Context, staffID string, id int64) (bool, error) {
	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM complaints WHERE id = $1 AND staff_id = $2`,
		id, staffID,
	)
	if err != nil {
		return false, fmt.Errorf("DeleteComplaint: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("DeleteComplaint: %w", err)
	}
	return n > 0, nil
}

func scanComplaints(rows *sql.Rows) ([]models.Complaint, error) {
	var out []models.Complaint
	for rows.Next() {
		var (
			c                models.Complaint
			created, updated time.Time
		)
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.Category, &c.Status, &c.Priority,
			&c.Location, &c.IsAnonymous, &c.AnonymityScope, &created, &updated, &c.EmployeeName); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		c.CreatedAt = created.UTC().Format(time.RFC3339)
		c.UpdatedAt = updated.UTC().Format(time.RFC3339)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
