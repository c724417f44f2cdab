// Package models defines the core data structures shared by the desk client
// and the development auth server: staff identities, session data, OTP
// challenges and the response envelope.
package models

import "encoding/json"

// StaffID is the business key identifying a staff member, e.g. "DHG1234".
type StaffID = string

// User is the authenticated staff profile cached alongside the session.
type User struct {
	// Name is the display name of the staff member.
	Name string `json:"name"`
	// StaffID is the staff identity the session belongs to.
	StaffID StaffID `json:"staff_id"`
	// Role is the server-assigned role ("staff", "admin", ...).
	Role string `json:"role"`
	// Email is the contact address of the staff member.
	Email string `json:"email"`
	// JobTitle is the staff member's position.
	JobTitle string `json:"job_title"`
}

// ComplaintSummary is the complaint-count summary returned on login.
type ComplaintSummary struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
}

// Tokens holds the credentials issued by the server on login.
type Tokens struct {
	// Access is the bearer token attached to protected requests.
	Access string `json:"access"`
	// Refresh is exchanged for a new access token once Access expires.
	Refresh string `json:"refresh"`
}

// Session is the result of a successful login.
type Session struct {
	Token        string
	RefreshToken string
	User         User
	Summary      ComplaintSummary
}

// Envelope is the {status, message, data} wrapper every endpoint responds with.
type Envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Detail  string          `json:"detail,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// VerifyResult is the data of a verify-staff response.
type VerifyResult struct {
	PasswordSetupRequired bool `json:"password_setup_required"`
}

// LoginResult is the data of a login response.
type LoginResult struct {
	Staff     User   `json:"staff"`
	Tokens    Tokens `json:"tokens"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
}

// RefreshResult is the data of a refresh-token response. Servers answer
// either with a bare access token or with a nested token pair.
type RefreshResult struct {
	Access string  `json:"access"`
	Tokens *Tokens `json:"tokens,omitempty"`
}

// AccessToken returns whichever access token the server sent.
func (r RefreshResult) AccessToken() string {
	if r.Access != "" {
		return r.Access
	}
	if r.Tokens != nil {
		return r.Tokens.Access
	}
	return ""
}
