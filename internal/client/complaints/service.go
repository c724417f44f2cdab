// Package complaints provides the protected staff operations of the desk
// client: filing, listing and deleting complaints, and reading the profile.
package complaints

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/staffdesk/staffdesk/internal/apperr"
	"github.com/staffdesk/staffdesk/internal/models"
	"github.com/staffdesk/staffdesk/internal/validation"
)

// Gateway is the remote side of the complaint operations.
type Gateway interface {
	Profile(ctx context.Context) (models.Profile, error)
	CreateComplaint(ctx context.Context, req models.ComplaintRequest) (models.ComplaintReceipt, error)
	Dashboard(ctx context.Context) (models.Dashboard, error)
	PublicComplaints(ctx context.Context) (models.Dashboard, error)
	DeleteComplaint(ctx context.Context, id int64) error
}

// UnauthorizedHandler is notified when the server rejects the session.
type UnauthorizedHandler interface {
	HandleUnauthorized(ctx context.Context) error
}

// Service wraps the gateway. A 401 from any call runs the unauthorized
// hook and the original error is returned; requests are never retried
// here.
type Service struct {
	gw      Gateway
	session UnauthorizedHandler
	log     *zap.Logger
}

// NewService creates a Service.
func NewService(gw Gateway, session UnauthorizedHandler, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{gw: gw, session: session, log: log}
}

// Submit files a complaint. Title and description are required.
func (s *Service) Submit(ctx context.Context, req models.ComplaintRequest) (models.ComplaintReceipt, error) {
	if err := validation.Required(req.Title, "Title is required"); err != nil {
		return models.ComplaintReceipt{}, err
	}
	if err := validation.Required(req.Description, "Description is required"); err != nil {
		return models.ComplaintReceipt{}, err
	}
	if req.IsAnonymous && req.AnonymityScope == "" {
		req.AnonymityScope = models.ScopePrivate
	}
	if !req.IsAnonymous {
		req.AnonymityScope = ""
	}

	rec, err := s.gw.CreateComplaint(ctx, req)
	if err != nil {
		return rec, s.check(ctx, "create complaint", err)
	}
	s.log.Info("complaint filed", zap.Int64("id", rec.ID), zap.String("category", rec.Category))
	return rec, nil
}

// Dashboard returns the complaint history of the signed-in staff member.
func (s *Service) Dashboard(ctx context.Context) (models.Dashboard, error) {
	d, err := s.gw.Dashboard(ctx)
	if err != nil {
		return d, s.check(ctx, "dashboard", err)
	}
	return d, nil
}

// Public returns complaints filed anonymously in public scope.
func (s *Service) Public(ctx context.Context) (models.Dashboard, error) {
	d, err := s.gw.PublicComplaints(ctx)
	if err != nil {
		return d, s.check(ctx, "public complaints", err)
	}
	return d, nil
}

// Delete removes complaint id.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return apperr.Validation("Invalid complaint id")
	}
	if err := s.gw.DeleteComplaint(ctx, id); err != nil {
		return s.check(ctx, "delete complaint", err)
	}
	s.log.Info("complaint deleted", zap.Int64("id", id))
	return nil
}

// Profile returns the profile of the signed-in staff member.
func (s *Service) Profile(ctx context.Context) (models.Profile, error) {
	p, err := s.gw.Profile(ctx)
	if err != nil {
		return p, s.check(ctx, "profile", err)
	}
	return p, nil
}

// check runs the unauthorized hook for 401s and returns err unchanged.
func (s *Service) check(ctx context.Context, op string, err error) error {
	if errors.Is(err, apperr.ErrUnauthorized) && s.session != nil {
		if herr := s.session.HandleUnauthorized(ctx); herr != nil {
			s.log.Warn("session could not be refreshed", zap.String("op", op), zap.Error(herr))
		}
		return err
	}
	s.log.Debug("request failed", zap.String("op", op), zap.Error(err))
	return err
}
