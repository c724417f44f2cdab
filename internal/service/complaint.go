package service

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/staffdesk/staffdesk/internal/apperr"
	"github.com/staffdesk/staffdesk/internal/models"
	"github.com/staffdesk/staffdesk/internal/validation"
)

// Complaint categories and priorities accepted by the server.
const (
	CategoryAdmin    = "admin"
	CategoryFacility = "facility management"
	defaultPriority  = "medium"
)

// ComplaintRepository defines the complaint persistence used by
// ComplaintService.
type ComplaintRepository interface {
	ComplaintLister
	CreateComplaint(ctx context.Context, staffID string, req models.ComplaintRequest) (models.Complaint, error)
	PublicComplaints(ctx context.Context) ([]models.Complaint, error)
	// DeleteComplaint reports whether a complaint of staffID was removed.
	DeleteComplaint(ctx context.Context, staffID string, id int64) (bool, error)
}

// ComplaintService implements the staff complaint operations.
type ComplaintService struct {
	repo  ComplaintRepository
	staff StaffRepository
	log   *zap.Logger
	now   func() time.Time
}

// NewComplaintService constructs a ComplaintService.
func NewComplaintService(repo ComplaintRepository, staff StaffRepository, log *zap.Logger) *ComplaintService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ComplaintService{repo: repo, staff: staff, log: log, now: time.Now}
}

// Create files req on behalf of staffID.
func (s *ComplaintService) Create(ctx context.Context, staffID string, req models.ComplaintRequest) (models.ComplaintReceipt, error) {
	start := s.now()
	if err := validation.Required(req.Title, "Title is required"); err != nil {
		return models.ComplaintReceipt{}, err
	}
	if err := validation.Required(req.Description, "Description is required"); err != nil {
		return models.ComplaintReceipt{}, err
	}
	req.Category = strings.ToLower(strings.TrimSpace(req.Category))
	switch req.Category {
	case "":
		req.Category = CategoryAdmin
	case CategoryAdmin, CategoryFacility:
	default:
		return models.ComplaintReceipt{}, apperr.Validation("Unknown category")
	}
	if req.Priority == "" {
		req.Priority = defaultPriority
	}
	switch {
	case !req.IsAnonymous:
		req.AnonymityScope = ""
	case req.AnonymityScope != models.ScopePublic:
		req.AnonymityScope = models.ScopePrivate
	}

	c, err := s.repo.CreateComplaint(ctx, staffID, req)
	if err != nil {
		return models.ComplaintReceipt{}, err
	}
	s.log.Info("complaint created", zap.String("staff_id", staffID), zap.Int64("id", c.ID))
	return models.ComplaintReceipt{
		ID:             c.ID,
		Category:       c.Category,
		ResponseTimeMS: s.now().Sub(start).Milliseconds(),
		Timestamp:      c.CreatedAt,
	}, nil
}

// Dashboard returns the complaints of staffID with their status counts.
func (s *ComplaintService) Dashboard(ctx context.Context, staffID string) (models.Dashboard, error) {
	list, err := s.repo.ComplaintsByStaff(ctx, staffID)
	if err != nil {
		return models.Dashboard{}, err
	}
	return models.Dashboard{Summary: Summarize(list), ComplaintHistory: nonNil(list)}, nil
}

// Public returns the published anonymous complaints with author names
// removed.
func (s *ComplaintService) Public(ctx context.Context) (models.Dashboard, error) {
	list, err := s.repo.PublicComplaints(ctx)
	if err != nil {
		return models.Dashboard{}, err
	}
	for i := range list {
		list[i].EmployeeName = ""
	}
	return models.Dashboard{Summary: Summarize(list), ComplaintHistory: nonNil(list)}, nil
}

// Delete removes complaint id of staffID.
func (s *ComplaintService) Delete(ctx context.Context, staffID string, id int64) error {
	ok, err := s.repo.DeleteComplaint(ctx, staffID, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Auth(apperr.CodeNotFound, http.StatusNotFound, "Complaint not found")
	}
	s.log.Info("complaint deleted", zap.String("staff_id", staffID), zap.Int64("id", id))
	return nil
}

// Profile returns the profile of staffID with complaint totals.
func (s *ComplaintService) Profile(ctx context.Context, staffID string) (models.Profile, error) {
	rec, err := s.staff.GetStaff(ctx, staffID)
	if err != nil {
		return models.Profile{}, err
	}
	if rec == nil {
		return models.Profile{}, apperr.Auth(apperr.CodeNotFound, http.StatusNotFound, msgStaffNotFound)
	}
	list, err := s.repo.ComplaintsByStaff(ctx, staffID)
	if err != nil {
		return models.Profile{}, err
	}
	sum := Summarize(list)
	return models.Profile{
		Name:               rec.Name,
		Email:              rec.Email,
		TotalComplaints:    sum.Total,
		ResolvedComplaints: sum.Completed,
	}, nil
}

// Summarize counts complaints per status.
func Summarize(list []models.Complaint) models.DashboardSummary {
	sum := models.DashboardSummary{Total: len(list)}
	for _, c := range list {
		switch c.Status {
		case models.StatusCompleted:
			sum.Completed++
		case models.StatusRead:
			sum.Read++
		case models.StatusInProgress:
			sum.InProgress++
		default:
			sum.Unread++
		}
	}
	return sum
}

func nonNil(list []models.Complaint) []models.Complaint {
	if list == nil {
		return []models.Complaint{}
	}
	return list
}
