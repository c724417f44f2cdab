package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/staffdesk/staffdesk/internal/apperr"
	"github.com/staffdesk/staffdesk/internal/models"
)

// fakeAuthService implements AuthService for testing.
type fakeAuthService struct {
	CheckStaffFunc     func(ctx context.Context, staffID string) (models.VerifyResult, error)
	SetupPasswordFunc  func(ctx context.Context, staffID, password string) error
	LoginFunc          func(ctx context.Context, staffID, password string) (models.LoginResult, error)
	ForgotPasswordFunc func(ctx context.Context, staffID string) (models.OTPChallenge, error)
	ResetPasswordFunc  func(ctx context.Context, req models.ResetPasswordRequest) (string, error)
	RefreshFunc        func(ctx context.Context, refresh string) (string, error)
}

func (f *fakeAuthService) CheckStaff(ctx context.Context, id string) (models.VerifyResult, error) {
	return f.CheckStaffFunc(ctx, id)
}
func (f *fakeAuthService) SetupPassword(ctx context.Context, id, pw string) error {
	return f.SetupPasswordFunc(ctx, id, pw)
}
func (f *fakeAuthService) Login(ctx context.Context, id, pw string) (models.LoginResult, error) {
	return f.LoginFunc(ctx, id, pw)
}
func (f *fakeAuthService) ForgotPassword(ctx context.Context, id string) (models.OTPChallenge, error) {
	return f.ForgotPasswordFunc(ctx, id)
}
func (f *fakeAuthService) ResetPassword(ctx context.Context, req models.ResetPasswordRequest) (string, error) {
	return f.ResetPasswordFunc(ctx, req)
}
func (f *fakeAuthService) Refresh(ctx context.Context, refresh string) (string, error) {
	return f.RefreshFunc(ctx, refresh)
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) models.Envelope {
	t.Helper()
	var env models.Envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	return env
}

func TestAuthHandler_CheckStaff(t *testing.T) {
	svc := &fakeAuthService{CheckStaffFunc: func(_ context.Context, id string) (models.VerifyResult, error) {
		switch id {
		case "DHG1234":
			return models.VerifyResult{PasswordSetupRequired: true}, nil
		case "DHG9999":
			return models.VerifyResult{}, errors.New("db error")
		}
		return models.VerifyResult{}, apperr.Auth(apperr.CodeNotFound, http.StatusNotFound, "Staff ID not found")
	}}

	tests := []struct {
		name           string
		body           string
		expectedCode   int
		expectedSubstr string
	}{
		{"invalid JSON", `not a json`, http.StatusBadRequest, "invalid request"},
		{"bad staff id", `{"staff_id":"dhg12"}`, http.StatusBadRequest, "Enter a valid staff Id"},
		{"unknown staff", `{"staff_id":"XXX0000"}`, http.StatusNotFound, "Staff ID not found"},
		{"service error", `{"staff_id":"DHG9999"}`, http.StatusInternalServerError, "Internal server error"},
		{"setup required", `{"staff_id":" DHG1234 "}`, http.StatusOK, `"password_setup_required":true`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/auth/check-staff/", bytes.NewBufferString(tt.body))
			h := &AuthHandler{AuthService: svc, Log: zap.NewNop()}
			h.CheckStaff(rec, req)

			if rec.Code != tt.expectedCode {
				t.Fatalf("expected status %d, got %d", tt.expectedCode, rec.Code)
			}
			if !bytes.Contains(rec.Body.Bytes(), []byte(tt.expectedSubstr)) {
				t.Errorf("expected body to contain %q, got %q", tt.expectedSubstr, rec.Body.String())
			}
		})
	}
}

func TestAuthHandler_SetupPassword(t *testing.T) {
	var gotID, gotPw string
	svc := &fakeAuthService{SetupPasswordFunc: func(_ context.Context, id, pw string) error {
		gotID, gotPw = id, pw
		return nil
	}}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/setup-password/",
		bytes.NewBufferString(`{"staff_id":"DHG1234","password":"Abc123!@"}`))
	(&AuthHandler{AuthService: svc}).SetupPassword(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if gotID != "DHG1234" || gotPw != "Abc123!@" {
		t.Errorf("service got %q %q", gotID, gotPw)
	}
	if env := decodeEnvelope(t, rec); env.Status != http.StatusCreated {
		t.Errorf("envelope status = %d", env.Status)
	}
}

func TestAuthHandler_Login(t *testing.T) {
	svc := &fakeAuthService{LoginFunc: func(_ context.Context, id, pw string) (models.LoginResult, error) {
		if pw != "Abc123!@" {
			return models.LoginResult{}, apperr.Auth(apperr.CodeInvalidCredentials, http.StatusBadRequest, "Invalid staff ID or password")
		}
		return models.LoginResult{
			Staff:  models.User{Name: "Ada Obi", StaffID: id},
			Tokens: models.Tokens{Access: "acc", Refresh: "ref"},
			Total:  3,
		}, nil
	}}
	h := &AuthHandler{AuthService: svc}

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login/",
		bytes.NewBufferString(`{"staff_id":"DHG1234","password":"nope"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if env := decodeEnvelope(t, rec); env.Message != "Invalid staff ID or password" {
		t.Errorf("message = %q", env.Message)
	}

	rec = httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login/",
		bytes.NewBufferString(`{"staff_id":"DHG1234","password":"Abc123!@"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	var res models.LoginResult
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if res.Tokens.Access != "acc" || res.Staff.Name != "Ada Obi" || res.Total != 3 {
		t.Errorf("login data = %+v", res)
	}
}

func TestAuthHandler_ResetPassword(t *testing.T) {
	var got models.ResetPasswordRequest
	svc := &fakeAuthService{ResetPasswordFunc: func(_ context.Context, req models.ResetPasswordRequest) (string, error) {
		got = req
		if !req.OTP.Valid() {
			return "", apperr.Auth(apperr.CodeInvalidOTP, http.StatusBadRequest, "Invalid OTP")
		}
		if req.OTP.Int64() == 111111 {
			return "", apperr.Auth(apperr.CodeExpired, http.StatusGone, "OTP has expired")
		}
		return "Password reset successful", nil
	}}
	h := &AuthHandler{AuthService: svc}

	tests := []struct {
		name string
		body string
		code int
	}{
		{"null otp", `{"staff_id":"DHG1234","otp":null,"new_password":"NewPass1!"}`, http.StatusBadRequest},
		{"expired", `{"staff_id":"DHG1234","otp":111111,"new_password":"NewPass1!"}`, http.StatusGone},
		{"ok", `{"staff_id":"DHG1234","otp":482913,"new_password":"NewPass1!"}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ResetPassword(rec, httptest.NewRequest(http.MethodPost, "/auth/reset-password/", bytes.NewBufferString(tt.body)))
			if rec.Code != tt.code {
				t.Fatalf("expected %d, got %d", tt.code, rec.Code)
			}
		})
	}
	if got.NewPassword != "NewPass1!" || got.OTP.Int64() != 482913 {
		t.Errorf("last request = %+v", got)
	}
}

func TestAuthHandler_ForgotAndRefresh(t *testing.T) {
	svc := &fakeAuthService{
		ForgotPasswordFunc: func(_ context.Context, id string) (models.OTPChallenge, error) {
			return models.OTPChallenge{StaffID: id, ExpiresIn: "120", Message: "OTP sent to your email"}, nil
		},
		RefreshFunc: func(_ context.Context, refresh string) (string, error) {
			if refresh != "ref" {
				return "", apperr.Auth(apperr.CodeUnauthorized, http.StatusUnauthorized, "Token is invalid or expired")
			}
			return "acc-2", nil
		},
	}
	h := &AuthHandler{AuthService: svc}

	rec := httptest.NewRecorder()
	h.ForgotPassword(rec, httptest.NewRequest(http.MethodPost, "/api/auth/forgot-password/", bytes.NewBufferString(`{"staff_id":"DHG1234"}`)))
	env := decodeEnvelope(t, rec)
	if env.Message != "OTP sent to your email" || !bytes.Contains(env.Data, []byte(`"expires_in":"120"`)) {
		t.Errorf("forgot envelope = %+v %s", env, env.Data)
	}

	rec = httptest.NewRecorder()
	h.Refresh(rec, httptest.NewRequest(http.MethodPost, "/api/auth/token/refresh/", bytes.NewBufferString(`{"refresh":"ref"}`)))
	env = decodeEnvelope(t, rec)
	var res models.RefreshResult
	if err := json.Unmarshal(env.Data, &res); err != nil || res.AccessToken() != "acc-2" {
		t.Errorf("refresh data = %s, err %v", env.Data, err)
	}

	rec = httptest.NewRecorder()
	h.Refresh(rec, httptest.NewRequest(http.MethodPost, "/api/auth/token/refresh/", bytes.NewBufferString(`{"refresh":"old"}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}
