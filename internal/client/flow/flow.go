// Package flow implements the two multi-step verification flows of the desk
// client: first-time password setup and forgot-password. Each flow stages
// the staff id in its own credential store slot between its two steps.
package flow

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/staffdesk/staffdesk/internal/apperr"
	"github.com/staffdesk/staffdesk/internal/client/credstore"
	"github.com/staffdesk/staffdesk/internal/models"
	"github.com/staffdesk/staffdesk/internal/validation"
)

// Step is the position of a flow.
type Step int

const (
	EnterStaffID Step = iota
	EnterPassword
	EnterOTPAndNewPassword
	LoginEntry
)

func (s Step) String() string {
	switch s {
	case EnterStaffID:
		return "enter-staff-id"
	case EnterPassword:
		return "enter-password"
	case EnterOTPAndNewPassword:
		return "enter-otp-and-new-password"
	case LoginEntry:
		return "login-entry"
	default:
		return "unknown"
	}
}

// CodeWrongStep marks ErrWrongStep.
const CodeWrongStep apperr.Code = "WRONG_STEP"

// ErrWrongStep is returned when an operation is called out of order.
var ErrWrongStep = &apperr.Error{
	Kind:    apperr.KindValidation,
	Code:    CodeWrongStep,
	Message: "This step is not available right now",
}

// Staging is the credential store subset the flows use.
type Staging interface {
	StaffID(ctx context.Context, flow credstore.Flow) (string, bool, error)
	SetStaffID(ctx context.Context, flow credstore.Flow, id string) error
	ClearStaffID(ctx context.Context, flow credstore.Flow) error
}

// Gateway is the remote side of both flows.
type Gateway interface {
	VerifyStaff(ctx context.Context, staffID models.StaffID) (models.VerifyResult, error)
	SetPassword(ctx context.Context, staffID models.StaffID, password string) error
	ForgotPassword(ctx context.Context, staffID models.StaffID) (models.OTPChallenge, error)
	ResetPassword(ctx context.Context, req models.ResetPasswordRequest) (string, error)
}

// stager holds the step and staging slot shared by both flows.
type stager struct {
	store Staging
	slot  credstore.Flow
	log   *zap.Logger

	mu   sync.Mutex
	step Step
}

func (s *stager) init(store Staging, slot credstore.Flow, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	s.store, s.slot = store, slot
	s.log = log.With(zap.String("flow", string(slot)))
}

// Step returns the current step.
func (s *stager) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// Restart moves the flow back to EnterStaffID.
func (s *stager) Restart() {
	s.setStep(EnterStaffID)
}

func (s *stager) setStep(step Step) {
	s.mu.Lock()
	s.step = step
	s.mu.Unlock()
}

func (s *stager) expect(step Step) error {
	if cur := s.Step(); cur != step {
		s.log.Debug("call out of order", zap.Stringer("step", cur), zap.Stringer("want", step))
		return ErrWrongStep
	}
	return nil
}

// staged reads the staff id of the slot. A missing id is MissingStaging and
// sends the flow back to EnterStaffID.
func (s *stager) staged(ctx context.Context) (string, error) {
	id, ok, err := s.store.StaffID(ctx, s.slot)
	if err != nil {
		return "", err
	}
	if !ok || id == "" {
		s.setStep(EnterStaffID)
		return "", apperr.MissingStaging()
	}
	return id, nil
}

// resume enters the second step directly. A non-empty raw id is validated
// and staged; an empty one requires a staged id from an earlier run.
func (s *stager) resume(ctx context.Context, raw string, second Step) error {
	if raw == "" {
		if _, err := s.staged(ctx); err != nil {
			return err
		}
	} else {
		id, err := validation.StaffID(raw)
		if err != nil {
			return err
		}
		if err := s.store.SetStaffID(ctx, s.slot, id); err != nil {
			return err
		}
	}
	s.setStep(second)
	return nil
}

// finish clears the slot after a successful second step.
func (s *stager) finish(ctx context.Context) {
	if err := s.store.ClearStaffID(ctx, s.slot); err != nil {
		s.log.Warn("failed to clear staged staff id", zap.Error(err))
	}
	s.setStep(LoginEntry)
}
