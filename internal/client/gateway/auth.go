package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/staffdesk/staffdesk/internal/apperr"
	"github.com/staffdesk/staffdesk/internal/models"
)

// Endpoint paths of the auth API.
const (
	PathCheckStaff     = "/api/auth/check-staff/"
	PathSetupPassword  = "/api/auth/setup-password/"
	PathLogin          = "/api/auth/login/"
	PathForgotPassword = "/api/auth/forgot-password/"
	PathResetPassword  = "/auth/reset-password/"
	PathRefreshToken   = "/api/auth/token/refresh/"
)

type staffRequest struct {
	StaffID models.StaffID `json:"staff_id"`
}

type credentialsRequest struct {
	StaffID  models.StaffID `json:"staff_id"`
	Password string         `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// VerifyStaff asks whether staffID exists and still has to set a password.
func (c *Client) VerifyStaff(ctx context.Context, staffID models.StaffID) (models.VerifyResult, error) {
	var out models.VerifyResult
	resp, err := c.do(ctx, call{
		method:   http.MethodPost,
		path:     PathCheckStaff,
		body:     staffRequest{StaffID: staffID},
		fallback: apperr.CodeNotFound,
		noAuth:   true,
	})
	if err != nil {
		return out, err
	}
	err = resp.data(&out)
	return out, err
}

// SetPassword sets the first password of staffID.
func (c *Client) SetPassword(ctx context.Context, staffID models.StaffID, password string) error {
	_, err := c.do(ctx, call{
		method:   http.MethodPost,
		path:     PathSetupPassword,
		body:     credentialsRequest{StaffID: staffID, Password: password},
		fallback: apperr.CodeValidation,
		noAuth:   true,
	})
	return err
}

// Login exchanges credentials for a token pair and the staff profile.
func (c *Client) Login(ctx context.Context, staffID models.StaffID, password string) (models.LoginResult, error) {
	var out models.LoginResult
	resp, err := c.do(ctx, call{
		method:   http.MethodPost,
		path:     PathLogin,
		body:     credentialsRequest{StaffID: staffID, Password: password},
		fallback: apperr.CodeInvalidCredentials,
		noAuth:   true,
	})
	if err != nil {
		return out, err
	}
	if err := resp.data(&out); err != nil {
		return out, err
	}
	if out.Tokens.Access == "" {
		return out, apperr.Auth(apperr.CodeInvalidCredentials, resp.status, "Login response carried no token")
	}
	return out, nil
}

// ForgotPassword requests an OTP for staffID.
func (c *Client) ForgotPassword(ctx context.Context, staffID models.StaffID) (models.OTPChallenge, error) {
	out := models.OTPChallenge{StaffID: staffID}
	resp, err := c.do(ctx, call{
		method:   http.MethodPost,
		path:     PathForgotPassword,
		body:     staffRequest{StaffID: staffID},
		fallback: apperr.CodeNotFound,
		noAuth:   true,
	})
	if err != nil {
		return out, err
	}
	var data struct {
		ExpiresIn json.RawMessage `json:"expires_in"`
	}
	if err := resp.data(&data); err != nil {
		return out, err
	}
	out.ExpiresIn = rawText(data.ExpiresIn)
	out.Message = resp.env.Message
	return out, nil
}

// ResetPassword submits the OTP and the new password. It returns the
// server's confirmation message.
func (c *Client) ResetPassword(ctx context.Context, req models.ResetPasswordRequest) (string, error) {
	resp, err := c.do(ctx, call{
		method:   http.MethodPost,
		path:     PathResetPassword,
		body:     req,
		fallback: apperr.CodeInvalidOTP,
		noAuth:   true,
	})
	if err != nil {
		return "", err
	}
	return resp.env.Message, nil
}

// Refresh obtains a new access token. The stored refresh credential is sent
// when there is one; the bearer header is attached as for any request.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	var body any
	if c.tokens != nil {
		refresh, ok, err := c.tokens.RefreshToken(ctx)
		if err != nil {
			return "", err
		}
		if ok && refresh != "" {
			body = refreshRequest{Refresh: refresh}
		}
	}

	resp, err := c.do(ctx, call{
		method:   http.MethodPost,
		path:     PathRefreshToken,
		body:     body,
		fallback: apperr.CodeExpired,
	})
	if errors.Is(err, apperr.ErrUnauthorized) {
		return "", apperr.Auth(apperr.CodeExpired, http.StatusUnauthorized, apperr.UserMessage(err))
	}
	if err != nil {
		return "", err
	}

	var top models.RefreshResult
	if len(resp.body) > 0 {
		_ = json.Unmarshal(resp.body, &top)
	}
	if access := top.AccessToken(); access != "" {
		return access, nil
	}
	var nested models.RefreshResult
	if err := resp.data(&nested); err != nil {
		return "", err
	}
	if access := nested.AccessToken(); access != "" {
		return access, nil
	}
	return "", apperr.Auth(apperr.CodeExpired, resp.status, "Session expired, please log in again")
}

// rawText renders a JSON string or number as plain text.
func rawText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return strconv.Quote(string(raw))
}
