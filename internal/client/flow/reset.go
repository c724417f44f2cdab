package flow

import (
	"context"

	"go.uber.org/zap"

	"github.com/staffdesk/staffdesk/internal/client/credstore"
	"github.com/staffdesk/staffdesk/internal/models"
	"github.com/staffdesk/staffdesk/internal/validation"
)

// ResetFlow is the forgot-password flow: EnterStaffID, then
// EnterOTPAndNewPassword, then LoginEntry.
type ResetFlow struct {
	stager
	gw     Gateway
	policy validation.PasswordPolicy
}

// NewResetFlow creates a flow at EnterStaffID.
func NewResetFlow(store Staging, gw Gateway, policy validation.PasswordPolicy, log *zap.Logger) *ResetFlow {
	f := &ResetFlow{gw: gw, policy: policy}
	f.init(store, credstore.FlowReset, log)
	return f
}

// RequestOTP asks the server to issue a passcode for the staff id and
// stages the id for the second step.
func (f *ResetFlow) RequestOTP(ctx context.Context, rawID string) (models.OTPChallenge, error) {
	if err := f.expect(EnterStaffID); err != nil {
		return models.OTPChallenge{}, err
	}
	if err := f.store.ClearStaffID(ctx, f.slot); err != nil {
		return models.OTPChallenge{}, err
	}
	id, err := validation.StaffID(rawID)
	if err != nil {
		return models.OTPChallenge{}, err
	}

	ch, err := f.gw.ForgotPassword(ctx, id)
	if err != nil {
		f.log.Info("otp request failed", zap.String("staff_id", id), zap.Error(err))
		return models.OTPChallenge{}, err
	}
	if err := f.store.SetStaffID(ctx, f.slot, id); err != nil {
		return ch, err
	}
	f.setStep(EnterOTPAndNewPassword)
	return ch, nil
}

// Resume enters EnterOTPAndNewPassword directly. A non-empty rawID
// replaces the staged id; an empty one requires a staged id.
func (f *ResetFlow) Resume(ctx context.Context, rawID string) error {
	return f.resume(ctx, rawID, EnterOTPAndNewPassword)
}

// ResetPassword submits the passcode exactly as typed, coerced to a number,
// with the new password. The code is not checked locally. On rejection the
// flow stays at EnterOTPAndNewPassword. It returns the server's message.
func (f *ResetFlow) ResetPassword(ctx context.Context, otp, newPassword string) (string, error) {
	if err := f.expect(EnterOTPAndNewPassword); err != nil {
		return "", err
	}
	id, err := f.staged(ctx)
	if err != nil {
		return "", err
	}
	if err := f.policy.Check(newPassword); err != nil {
		return "", err
	}

	msg, err := f.gw.ResetPassword(ctx, models.ResetPasswordRequest{
		StaffID:     id,
		OTP:         models.ParseOTP(otp),
		NewPassword: newPassword,
	})
	if err != nil {
		f.log.Info("password reset failed", zap.String("staff_id", id), zap.Error(err))
		return "", err
	}
	f.finish(ctx)
	return msg, nil
}
