package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/staffdesk/staffdesk/internal/apperr"
	"github.com/staffdesk/staffdesk/internal/models"
)

type memStaffRepo struct {
	staff  map[string]models.StaffRecord
	getErr error
}

func (m *memStaffRepo) GetStaff(_ context.Context, id string) (*models.StaffRecord, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	rec, ok := m.staff[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *memStaffRepo) SetPasswordHash(_ context.Context, id, hash string) error {
	rec := m.staff[id]
	rec.PasswordHash = hash
	m.staff[id] = rec
	return nil
}

type memOTPRepo struct {
	otps []models.PasswordOTP
}

func (m *memOTPRepo) ReplaceOTP(_ context.Context, otp models.PasswordOTP) error {
	for i := range m.otps {
		if m.otps[i].StaffID == otp.StaffID {
			m.otps[i].Used = true
		}
	}
	m.otps = append(m.otps, otp)
	return nil
}

func (m *memOTPRepo) ActiveOTP(_ context.Context, staffID string) (*models.PasswordOTP, error) {
	for i := len(m.otps) - 1; i >= 0; i-- {
		if m.otps[i].StaffID == staffID && !m.otps[i].Used {
			otp := m.otps[i]
			return &otp, nil
		}
	}
	return nil, nil
}

func (m *memOTPRepo) MarkOTPUsed(_ context.Context, id string) error {
	for i := range m.otps {
		if m.otps[i].ID == id {
			m.otps[i].Used = true
		}
	}
	return nil
}

type mockComplaintLister struct {
	ComplaintsByStaffFunc func(ctx context.Context, staffID string) ([]models.Complaint, error)
}

func (m *mockComplaintLister) ComplaintsByStaff(ctx context.Context, staffID string) ([]models.Complaint, error) {
	return m.ComplaintsByStaffFunc(ctx, staffID)
}

type capturingSender struct {
	code int64
}

func (c *capturingSender) SendOTP(_ context.Context, _ models.StaffRecord, code int64, _ time.Time) error {
	c.code = code
	return nil
}

type authFixture struct {
	svc    *StaffAuthService
	staff  *memStaffRepo
	otps   *memOTPRepo
	sender *capturingSender
	now    time.Time
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{
		staff: &memStaffRepo{staff: map[string]models.StaffRecord{
			"DHG1234": {StaffID: "DHG1234", Name: "Ada Obi", Role: "staff", Email: "ada@example.com"},
		}},
		otps:   &memOTPRepo{},
		sender: &capturingSender{},
		now:    time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	lister := &mockComplaintLister{ComplaintsByStaffFunc: func(context.Context, string) ([]models.Complaint, error) {
		return []models.Complaint{{Status: models.StatusCompleted}, {Status: models.StatusUnread}}, nil
	}}
	f.svc = NewStaffAuthService(AuthOptions{
		Staff:      f.staff,
		OTPs:       f.otps,
		Complaints: lister,
		Tokens:     NewTokenManager("test-secret", time.Minute, time.Hour),
		Sender:     f.sender,
		OTPTTL:     2 * time.Minute,
		BcryptCost: bcrypt.MinCost,
	})
	f.svc.now = func() time.Time { return f.now }
	return f
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var e *apperr.Error
	require.ErrorAs(t, err, &e)
	return e.Status
}

func TestCheckStaff(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	res, err := f.svc.CheckStaff(ctx, "DHG1234")
	require.NoError(t, err)
	assert.True(t, res.PasswordSetupRequired)

	_, err = f.svc.CheckStaff(ctx, "XXX0000")
	require.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))

	f.staff.getErr = errors.New("db down")
	_, err = f.svc.CheckStaff(ctx, "DHG1234")
	assert.EqualError(t, err, "db down")
}

func TestSetupPasswordThenLogin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	err := f.svc.SetupPassword(ctx, "DHG1234", "abc")
	require.ErrorIs(t, err, apperr.ErrValidation)

	require.NoError(t, f.svc.SetupPassword(ctx, "DHG1234", "Abc123!@"))

	res, err := f.svc.CheckStaff(ctx, "DHG1234")
	require.NoError(t, err)
	assert.False(t, res.PasswordSetupRequired)

	err = f.svc.SetupPassword(ctx, "DHG1234", "Another1!")
	assert.Equal(t, http.StatusConflict, statusOf(t, err))

	_, err = f.svc.Login(ctx, "DHG1234", "wrong-pass")
	require.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))

	out, err := f.svc.Login(ctx, "DHG1234", "Abc123!@")
	require.NoError(t, err)
	assert.Equal(t, "Ada Obi", out.Staff.Name)
	assert.Equal(t, 2, out.Total)
	assert.Equal(t, 1, out.Completed)
	require.NotEmpty(t, out.Tokens.Access)
	require.NotEmpty(t, out.Tokens.Refresh)

	id, err := f.svc.Authenticate(out.Tokens.Access)
	require.NoError(t, err)
	assert.Equal(t, "DHG1234", id)

	_, err = f.svc.Authenticate(out.Tokens.Refresh)
	require.ErrorIs(t, err, apperr.ErrUnauthorized, "refresh tokens do not authenticate requests")
}

func TestLogin_UnknownStaffOrNoPassword(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.Login(ctx, "XXX0000", "whatever")
	require.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, "DHG1234", "whatever")
	require.ErrorIs(t, err, apperr.ErrInvalidCredentials)
}

func TestForgotAndResetPassword(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.SetupPassword(ctx, "DHG1234", "Abc123!@"))

	ch, err := f.svc.ForgotPassword(ctx, "DHG1234")
	require.NoError(t, err)
	assert.Equal(t, "120", ch.ExpiresIn)
	assert.Equal(t, "DHG1234", ch.StaffID)
	require.GreaterOrEqual(t, f.sender.code, int64(100000))
	require.Less(t, f.sender.code, int64(1000000))

	wrong := f.sender.code + 1
	_, err = f.svc.ResetPassword(ctx, models.ResetPasswordRequest{StaffID: "DHG1234", OTP: models.OTPFromInt(wrong), NewPassword: "NewPass1!"})
	require.ErrorIs(t, err, apperr.ErrInvalidOTP)
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))

	_, err = f.svc.ResetPassword(ctx, models.ResetPasswordRequest{StaffID: "DHG1234", OTP: models.ParseOTP("abc"), NewPassword: "NewPass1!"})
	require.ErrorIs(t, err, apperr.ErrInvalidOTP)

	msg, err := f.svc.ResetPassword(ctx, models.ResetPasswordRequest{StaffID: "DHG1234", OTP: models.OTPFromInt(f.sender.code), NewPassword: "NewPass1!"})
	require.NoError(t, err)
	assert.Equal(t, "Password reset successful", msg)

	_, err = f.svc.Login(ctx, "DHG1234", "NewPass1!")
	require.NoError(t, err)

	// The passcode is single use.
	_, err = f.svc.ResetPassword(ctx, models.ResetPasswordRequest{StaffID: "DHG1234", OTP: models.OTPFromInt(f.sender.code), NewPassword: "Other12!"})
	require.ErrorIs(t, err, apperr.ErrInvalidOTP)
}

func TestResetPassword_Expired(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.ForgotPassword(ctx, "DHG1234")
	require.NoError(t, err)
	f.now = f.now.Add(3 * time.Minute)

	_, err = f.svc.ResetPassword(ctx, models.ResetPasswordRequest{StaffID: "DHG1234", OTP: models.OTPFromInt(f.sender.code), NewPassword: "NewPass1!"})
	require.ErrorIs(t, err, apperr.ErrExpired)
	assert.Equal(t, http.StatusGone, statusOf(t, err))

	otp, err := f.otps.ActiveOTP(ctx, "DHG1234")
	require.NoError(t, err)
	assert.Nil(t, otp)
}

func TestForgotPassword_NewCodeReplacesOld(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.ForgotPassword(ctx, "DHG1234")
	require.NoError(t, err)
	first := f.otps.otps[0].ID
	_, err = f.svc.ForgotPassword(ctx, "DHG1234")
	require.NoError(t, err)

	otp, err := f.otps.ActiveOTP(ctx, "DHG1234")
	require.NoError(t, err)
	assert.NotEqual(t, first, otp.ID)
}

func TestRefresh(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.SetupPassword(ctx, "DHG1234", "Abc123!@"))
	out, err := f.svc.Login(ctx, "DHG1234", "Abc123!@")
	require.NoError(t, err)

	access, err := f.svc.Refresh(ctx, out.Tokens.Refresh)
	require.NoError(t, err)
	id, err := f.svc.Authenticate(access)
	require.NoError(t, err)
	assert.Equal(t, "DHG1234", id)

	_, err = f.svc.Refresh(ctx, out.Tokens.Access)
	require.ErrorIs(t, err, apperr.ErrUnauthorized)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))

	_, err = f.svc.Refresh(ctx, "garbage")
	require.ErrorIs(t, err, apperr.ErrUnauthorized)

	delete(f.staff.staff, "DHG1234")
	_, err = f.svc.Refresh(ctx, out.Tokens.Refresh)
	require.ErrorIs(t, err, apperr.ErrUnauthorized)
}
