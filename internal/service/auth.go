// Package service provides the business logic of the development auth
// server, delegating persistence to repository interfaces.
package service

import (
	"context"
	"crypto/rand"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/staffdesk/staffdesk/internal/apperr"
	"github.com/staffdesk/staffdesk/internal/models"
	"github.com/staffdesk/staffdesk/internal/validation"
)

// StaffRepository defines the staff persistence used by the auth service.
type StaffRepository interface {
	// GetStaff returns nil when there is no such staff member.
	GetStaff(ctx context.Context, staffID string) (*models.StaffRecord, error)
	SetPasswordHash(ctx context.Context, staffID, hash string) error
}

// OTPRepository defines the passcode persistence used by the auth service.
type OTPRepository interface {
	ReplaceOTP(ctx context.Context, otp models.PasswordOTP) error
	// ActiveOTP returns nil when no unused passcode exists.
	ActiveOTP(ctx context.Context, staffID string) (*models.PasswordOTP, error)
	MarkOTPUsed(ctx context.Context, id string) error
}

// ComplaintLister lists the complaints of one staff member.
type ComplaintLister interface {
	ComplaintsByStaff(ctx context.Context, staffID string) ([]models.Complaint, error)
}

// OTPSender delivers a reset passcode to the staff member.
type OTPSender interface {
	SendOTP(ctx context.Context, staff models.StaffRecord, code int64, expiresAt time.Time) error
}

// LogSender is an OTPSender that writes the passcode to the log. It stands in
// for a mail gateway on development servers.
type LogSender struct {
	Log *zap.Logger
}

func (s LogSender) SendOTP(_ context.Context, staff models.StaffRecord, code int64, expiresAt time.Time) error {
	s.Log.Info("password reset code issued",
		zap.String("staff_id", staff.StaffID),
		zap.String("email", staff.Email),
		zap.Int64("code", code),
		zap.Time("expires_at", expiresAt),
	)
	return nil
}

// Messages sent back to clients.
const (
	msgStaffNotFound      = "Staff ID not found"
	msgInvalidCredentials = "Invalid staff ID or password"
	msgPasswordAlreadySet = "Password has already been set. Please log in."
	msgInvalidOTP         = "Invalid OTP"
	msgExpiredOTP         = "OTP has expired. Please request a new one."
	msgInvalidToken       = "Token is invalid or expired"
)

// AuthOptions configures a StaffAuthService.
type AuthOptions struct {
	Staff      StaffRepository
	OTPs       OTPRepository
	Complaints ComplaintLister
	Tokens     *TokenManager
	Sender     OTPSender
	OTPTTL     time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
	Log        *zap.Logger
}

// StaffAuthService implements staff verification, password setup, login,
// password reset and token refresh.
type StaffAuthService struct {
	staff      StaffRepository
	otps       OTPRepository
	complaints ComplaintLister
	tokens     *TokenManager
	sender     OTPSender
	otpTTL     time.Duration
	cost       int
	policy     validation.PasswordPolicy
	log        *zap.Logger
	now        func() time.Time
}

// NewStaffAuthService constructs the service from opts.
func NewStaffAuthService(opts AuthOptions) *StaffAuthService {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	sender := opts.Sender
	if sender == nil {
		sender = LogSender{Log: log}
	}
	ttl := opts.OTPTTL
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	cost := opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &StaffAuthService{
		staff:      opts.Staff,
		otps:       opts.OTPs,
		complaints: opts.Complaints,
		tokens:     opts.Tokens,
		sender:     sender,
		otpTTL:     ttl,
		cost:       cost,
		log:        log,
		now:        time.Now,
	}
}

// CheckStaff reports whether staffID still has to set up a password.
func (s *StaffAuthService) CheckStaff(ctx context.Context, staffID string) (models.VerifyResult, error) {
	rec, err := s.lookup(ctx, staffID)
	if err != nil {
		return models.VerifyResult{}, err
	}
	return models.VerifyResult{PasswordSetupRequired: !rec.HasPassword()}, nil
}

// SetupPassword sets the first password of staffID.
func (s *StaffAuthService) SetupPassword(ctx context.Context, staffID, password string) error {
	if err := s.policy.Check(password); err != nil {
		return err
	}
	rec, err := s.lookup(ctx, staffID)
	if err != nil {
		return err
	}
	if rec.HasPassword() {
		return apperr.Auth(apperr.CodeValidation, http.StatusConflict, msgPasswordAlreadySet)
	}
	return s.storePassword(ctx, staffID, password)
}

// Login checks the password and issues a token pair together with the
// complaint summary of the staff member.
func (s *StaffAuthService) Login(ctx context.Context, staffID, password string) (models.LoginResult, error) {
	rec, err := s.staff.GetStaff(ctx, staffID)
	if err != nil {
		return models.LoginResult{}, err
	}
	if rec == nil || !rec.HasPassword() ||
		bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)) != nil {
		return models.LoginResult{}, apperr.Auth(apperr.CodeInvalidCredentials, http.StatusBadRequest, msgInvalidCredentials)
	}

	access, err := s.tokens.Issue(TokenAccess, rec.StaffID, rec.Role)
	if err != nil {
		return models.LoginResult{}, err
	}
	refresh, err := s.tokens.Issue(TokenRefresh, rec.StaffID, rec.Role)
	if err != nil {
		return models.LoginResult{}, err
	}

	list, err := s.complaints.ComplaintsByStaff(ctx, rec.StaffID)
	if err != nil {
		return models.LoginResult{}, err
	}
	sum := Summarize(list)

	s.log.Info("staff logged in", zap.String("staff_id", rec.StaffID))
	return models.LoginResult{
		Staff:     rec.User(),
		Tokens:    models.Tokens{Access: access, Refresh: refresh},
		Total:     sum.Total,
		Completed: sum.Completed,
	}, nil
}

// ForgotPassword issues a fresh six digit passcode and sends it to the
// staff member. Earlier passcodes stop working.
func (s *StaffAuthService) ForgotPassword(ctx context.Context, staffID string) (models.OTPChallenge, error) {
	rec, err := s.lookup(ctx, staffID)
	if err != nil {
		return models.OTPChallenge{}, err
	}
	code, err := newOTPCode()
	if err != nil {
		return models.OTPChallenge{}, err
	}
	otp := models.PasswordOTP{
		ID:        uuid.NewString(),
		StaffID:   rec.StaffID,
		Code:      code,
		ExpiresAt: s.now().Add(s.otpTTL),
	}
	if err := s.otps.ReplaceOTP(ctx, otp); err != nil {
		return models.OTPChallenge{}, err
	}
	if err := s.sender.SendOTP(ctx, *rec, code, otp.ExpiresAt); err != nil {
		return models.OTPChallenge{}, err
	}
	return models.OTPChallenge{
		StaffID:   rec.StaffID,
		ExpiresIn: strconv.Itoa(int(s.otpTTL.Seconds())),
		Message:   "OTP sent to your email",
	}, nil
}

// ResetPassword replaces the password when req carries the active passcode.
func (s *StaffAuthService) ResetPassword(ctx context.Context, req models.ResetPasswordRequest) (string, error) {
	if !req.OTP.Valid() {
		return "", apperr.Auth(apperr.CodeInvalidOTP, http.StatusBadRequest, msgInvalidOTP)
	}
	if err := s.policy.Check(req.NewPassword); err != nil {
		return "", err
	}
	rec, err := s.lookup(ctx, req.StaffID)
	if err != nil {
		return "", err
	}
	otp, err := s.otps.ActiveOTP(ctx, rec.StaffID)
	if err != nil {
		return "", err
	}
	if otp == nil || otp.Code != req.OTP.Int64() {
		return "", apperr.Auth(apperr.CodeInvalidOTP, http.StatusBadRequest, msgInvalidOTP)
	}
	if !s.now().Before(otp.ExpiresAt) {
		if err := s.otps.MarkOTPUsed(ctx, otp.ID); err != nil {
			s.log.Warn("failed to retire expired otp", zap.Error(err))
		}
		return "", apperr.Auth(apperr.CodeExpired, http.StatusGone, msgExpiredOTP)
	}

	if err := s.storePassword(ctx, rec.StaffID, req.NewPassword); err != nil {
		return "", err
	}
	if err := s.otps.MarkOTPUsed(ctx, otp.ID); err != nil {
		return "", err
	}
	s.log.Info("password reset", zap.String("staff_id", rec.StaffID))
	return "Password reset successful", nil
}

// Refresh exchanges a refresh token for a new access token.
func (s *StaffAuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.Parse(TokenRefresh, refreshToken)
	if err != nil {
		return "", apperr.Auth(apperr.CodeUnauthorized, http.StatusUnauthorized, msgInvalidToken)
	}
	rec, err := s.staff.GetStaff(ctx, claims.Subject)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return "", apperr.Auth(apperr.CodeUnauthorized, http.StatusUnauthorized, msgInvalidToken)
	}
	return s.tokens.Issue(TokenAccess, rec.StaffID, rec.Role)
}

// Authenticate validates an access token and returns its staff id.
func (s *StaffAuthService) Authenticate(accessToken string) (string, error) {
	claims, err := s.tokens.Parse(TokenAccess, accessToken)
	if err != nil {
		return "", apperr.Auth(apperr.CodeUnauthorized, http.StatusUnauthorized, msgInvalidToken)
	}
	return claims.Subject, nil
}

func (s *StaffAuthService) lookup(ctx context.Context, staffID string) (*models.StaffRecord, error) {
	rec, err := s.staff.GetStaff(ctx, staffID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apperr.Auth(apperr.CodeNotFound, http.StatusNotFound, msgStaffNotFound)
	}
	return rec, nil
}

func (s *StaffAuthService) storePassword(ctx context.Context, staffID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return err
	}
	return s.staff.SetPasswordHash(ctx, staffID, string(hash))
}

func newOTPCode() (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return 0, err
	}
	return n.Int64() + 100000, nil
}
