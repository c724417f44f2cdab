package flow

import (
	"context"

	"go.uber.org/zap"

	"github.com/staffdesk/staffdesk/internal/client/credstore"
	"github.com/staffdesk/staffdesk/internal/models"
	"github.com/staffdesk/staffdesk/internal/validation"
)

// SignupFlow walks a staff member through first-time password setup:
// EnterStaffID, then EnterPassword when the server requires it, then
// LoginEntry.
type SignupFlow struct {
	stager
	gw     Gateway
	policy validation.PasswordPolicy
}

// NewSignupFlow creates a flow at EnterStaffID.
func NewSignupFlow(store Staging, gw Gateway, policy validation.PasswordPolicy, log *zap.Logger) *SignupFlow {
	f := &SignupFlow{gw: gw, policy: policy}
	f.init(store, credstore.FlowSignup, log)
	return f
}

// VerifyStaff submits the staff id. Whatever a previous run left in the
// staging slot is discarded first. When the server requires a password
// setup the id is staged and the flow moves to EnterPassword; otherwise it
// moves straight to LoginEntry.
func (f *SignupFlow) VerifyStaff(ctx context.Context, rawID string) (models.VerifyResult, error) {
	if err := f.expect(EnterStaffID); err != nil {
		return models.VerifyResult{}, err
	}
	if err := f.store.ClearStaffID(ctx, f.slot); err != nil {
		return models.VerifyResult{}, err
	}
	id, err := validation.StaffID(rawID)
	if err != nil {
		return models.VerifyResult{}, err
	}

	res, err := f.gw.VerifyStaff(ctx, id)
	if err != nil {
		f.log.Info("staff verification failed", zap.String("staff_id", id), zap.Error(err))
		return models.VerifyResult{}, err
	}

	if !res.PasswordSetupRequired {
		f.setStep(LoginEntry)
		return res, nil
	}
	if err := f.store.SetStaffID(ctx, f.slot, id); err != nil {
		return res, err
	}
	f.setStep(EnterPassword)
	return res, nil
}

// Resume enters EnterPassword directly. A non-empty rawID replaces the
// staged id; an empty one requires a staged id from an earlier run.
func (f *SignupFlow) Resume(ctx context.Context, rawID string) error {
	return f.resume(ctx, rawID, EnterPassword)
}

// SetPassword sets the first password of the staged staff id. Without a
// staged id the flow returns to EnterStaffID. A rejected password leaves
// the flow at EnterPassword.
func (f *SignupFlow) SetPassword(ctx context.Context, password string) error {
	if err := f.expect(EnterPassword); err != nil {
		return err
	}
	id, err := f.staged(ctx)
	if err != nil {
		return err
	}
	if err := f.policy.Check(password); err != nil {
		return err
	}

	if err := f.gw.SetPassword(ctx, id, password); err != nil {
		f.log.Info("password setup failed", zap.String("staff_id", id), zap.Error(err))
		return err
	}
	f.finish(ctx)
	return nil
}
