// Package http provides the HTTP handlers of the development auth server.
package http

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/staffdesk/staffdesk/internal/models"
	"github.com/staffdesk/staffdesk/internal/validation"
)

// AuthService defines the authentication operations required by
// AuthHandler.
type AuthService interface {
	CheckStaff(ctx context.Context, staffID string) (models.VerifyResult, error)
	SetupPassword(ctx context.Context, staffID, password string) error
	Login(ctx context.Context, staffID, password string) (models.LoginResult, error)
	ForgotPassword(ctx context.Context, staffID string) (models.OTPChallenge, error)
	ResetPassword(ctx context.Context, req models.ResetPasswordRequest) (string, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

// AuthHandler handles the public auth endpoints.
type AuthHandler struct {
	AuthService AuthService
	Log         *zap.Logger
}

type staffRequest struct {
	StaffID string `json:"staff_id"`
}

type credentialsRequest struct {
	StaffID  string `json:"staff_id"`
	Password string `json:"password"`
}

// CheckStaff handles POST /api/auth/check-staff/.
func (h *AuthHandler) CheckStaff(w http.ResponseWriter, r *http.Request) {
	var req staffRequest
	if err := decode(r, &req); err != nil {
		fail(w, h.Log, err)
		return
	}
	id, err := validation.StaffID(req.StaffID)
	if err != nil {
		fail(w, h.Log, err)
		return
	}
	res, err := h.AuthService.CheckStaff(r.Context(), id)
	if err != nil {
		fail(w, h.Log, err)
		return
	}
	msg := "Staff ID verified. Please log in."
	if res.PasswordSetupRequired {
		msg = "Staff ID verified. Please set up your password."
	}
	respond(w, http.StatusOK, msg, res)
}

// SetupPassword handles POST /api/auth/setup-password/.
func (h *AuthHandler) SetupPassword(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decode(r, &req); err != nil {
		fail(w, h.Log, err)
		return
	}
	if err := h.AuthService.SetupPassword(r.Context(), req.StaffID, req.Password); err != nil {
		fail(w, h.Log, err)
		return
	}
	respond(w, http.StatusCreated, "Password set successfully", struct{}{})
}

// Login handles POST /api/auth/login/.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decode(r, &req); err != nil {
		fail(w, h.Log, err)
		return
	}
	res, err := h.AuthService.Login(r.Context(), req.StaffID, req.Password)
	if err != nil {
		fail(w, h.Log, err)
		return
	}
	respond(w, http.StatusOK, "Login successful", res)
}

// ForgotPassword handles POST /api/auth/forgot-password/.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req staffRequest
	if err := decode(r, &req); err != nil {
		fail(w, h.Log, err)
		return
	}
	ch, err := h.AuthService.ForgotPassword(r.Context(), req.StaffID)
	if err != nil {
		fail(w, h.Log, err)
		return
	}
	respond(w, http.StatusOK, ch.Message, ch)
}

// ResetPassword handles POST /auth/reset-password/.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPasswordRequest
	if err := decode(r, &req); err != nil {
		fail(w, h.Log, err)
		return
	}
	msg, err := h.AuthService.ResetPassword(r.Context(), req)
	if err != nil {
		fail(w, h.Log, err)
		return
	}
	respond(w, http.StatusOK, msg, struct{}{})
}

// Refresh handles POST /api/auth/token/refresh/.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := decode(r, &req); err != nil {
		fail(w, h.Log, err)
		return
	}
	access, err := h.AuthService.Refresh(r.Context(), req.Refresh)
	if err != nil {
		fail(w, h.Log, err)
		return
	}
	respond(w, http.StatusOK, "Token refreshed", models.RefreshResult{Access: access})
}
