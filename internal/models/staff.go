package models

import "time"

// StaffRecord is a staff member as stored by the development server.
type StaffRecord struct {
	StaffID  StaffID `yaml:"staff_id"`
	Name     string  `yaml:"name"`
	Role     string  `yaml:"role"`
	Email    string  `yaml:"email"`
	JobTitle string  `yaml:"job_title"`
	// PasswordHash is the bcrypt hash, empty until the password is set up.
	PasswordHash string `yaml:"-"`
}

// HasPassword reports whether the initial password was set up.
func (s StaffRecord) HasPassword() bool { return s.PasswordHash != "" }

// User returns the public profile of the record.
func (s StaffRecord) User() User {
	return User{Name: s.Name, StaffID: s.StaffID, Role: s.Role, Email: s.Email, JobTitle: s.JobTitle}
}

// PasswordOTP is an issued password reset passcode.
type PasswordOTP struct {
	ID        string
	StaffID   StaffID
	Code      int64
	ExpiresAt time.Time
	Used      bool
}
