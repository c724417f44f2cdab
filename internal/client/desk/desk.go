// Package desk is the single entry point a user interface holds. It wires
// the credential store, the gateway, the session manager, the verification
// flows and the complaint service together.
package desk

import (
	"context"

	"go.uber.org/zap"

	"github.com/staffdesk/staffdesk/internal/client/complaints"
	"github.com/staffdesk/staffdesk/internal/client/credstore"
	"github.com/staffdesk/staffdesk/internal/client/flow"
	"github.com/staffdesk/staffdesk/internal/client/gateway"
	"github.com/staffdesk/staffdesk/internal/client/session"
	"github.com/staffdesk/staffdesk/internal/models"
	"github.com/staffdesk/staffdesk/internal/validation"
)

// Options configures a Desk.
type Options struct {
	Navigator     session.Navigator
	Policy        validation.PasswordPolicy
	OnStateChange func(from, to session.State)
	Log           *zap.Logger
}

// Desk is the client facade.
type Desk struct {
	session    *session.Manager
	signup     *flow.SignupFlow
	reset      *flow.ResetFlow
	complaints *complaints.Service
	log        *zap.Logger
}

// New wires a Desk on top of store and gw.
func New(store *credstore.Store, gw *gateway.Client, opts Options) *Desk {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	sm := session.New(session.Options{
		Store:         store,
		Gateway:       gw,
		Navigator:     opts.Navigator,
		Log:           log.Named("session"),
		OnStateChange: opts.OnStateChange,
	})
	return &Desk{
		session:    sm,
		signup:     flow.NewSignupFlow(store, gw, opts.Policy, log.Named("flow")),
		reset:      flow.NewResetFlow(store, gw, opts.Policy, log.Named("flow")),
		complaints: complaints.NewService(gw, sm, log.Named("complaints")),
		log:        log,
	}
}

// Initialize restores the persisted session.
func (d *Desk) Initialize(ctx context.Context) error {
	return d.session.Init(ctx)
}

// Close stops background delivery of navigation requests.
func (d *Desk) Close() {
	d.session.Dispose()
}

// Login signs the staff member in.
func (d *Desk) Login(ctx context.Context, staffID, password string) (models.User, error) {
	return d.session.Login(ctx, staffID, password)
}

// Logout clears every credential.
func (d *Desk) Logout(ctx context.Context) error {
	return d.session.Logout(ctx)
}

// HandleUnauthorized runs the 401 hook directly.
func (d *Desk) HandleUnauthorized(ctx context.Context) error {
	return d.session.HandleUnauthorized(ctx)
}

// VerifyStaff starts a fresh sign-up flow with staffID.
func (d *Desk) VerifyStaff(ctx context.Context, staffID string) (models.VerifyResult, error) {
	d.signup.Restart()
	return d.signup.VerifyStaff(ctx, staffID)
}

// SetPassword completes the sign-up flow. A non-empty staffID replaces the
// staged one; an empty staffID uses the id staged by VerifyStaff.
func (d *Desk) SetPassword(ctx context.Context, staffID, password string) error {
	if staffID != "" || d.signup.Step() != flow.EnterPassword {
		if err := d.signup.Resume(ctx, staffID); err != nil {
			return err
		}
	}
	return d.signup.SetPassword(ctx, password)
}

// RequestOTP starts a fresh forgot-password flow with staffID.
func (d *Desk) RequestOTP(ctx context.Context, staffID string) (models.OTPChallenge, error) {
	d.reset.Restart()
	return d.reset.RequestOTP(ctx, staffID)
}

// ResetPassword completes the forgot-password flow. staffID follows the
// same rule as in SetPassword.
func (d *Desk) ResetPassword(ctx context.Context, staffID, otp, newPassword string) (string, error) {
	if staffID != "" || d.reset.Step() != flow.EnterOTPAndNewPassword {
		if err := d.reset.Resume(ctx, staffID); err != nil {
			return "", err
		}
	}
	return d.reset.ResetPassword(ctx, otp, newPassword)
}

// CurrentUser returns the signed-in staff member, or nil.
func (d *Desk) CurrentUser() *models.User {
	return d.session.CurrentUser()
}

// IsAuthenticated reports whether a session is active.
func (d *Desk) IsAuthenticated() bool {
	return d.session.IsAuthenticated()
}

// State returns the session state.
func (d *Desk) State() session.State {
	return d.session.State()
}

// Summary returns the complaint counts cached at login.
func (d *Desk) Summary(ctx context.Context) (*models.ComplaintSummary, error) {
	return d.session.Summary(ctx)
}

// SignupStep returns the position of the sign-up flow.
func (d *Desk) SignupStep() flow.Step { return d.signup.Step() }

// ResetStep returns the position of the forgot-password flow.
func (d *Desk) ResetStep() flow.Step { return d.reset.Step() }

func (d *Desk) SubmitComplaint(ctx context.Context, req models.ComplaintRequest) (models.ComplaintReceipt, error) {
	return d.complaints.Submit(ctx, req)
}

func (d *Desk) Dashboard(ctx context.Context) (models.Dashboard, error) {
	return d.complaints.Dashboard(ctx)
}

func (d *Desk) PublicComplaints(ctx context.Context) (models.Dashboard, error) {
	return d.complaints.Public(ctx)
}

func (d *Desk) DeleteComplaint(ctx context.Context, id int64) error {
	return d.complaints.Delete(ctx, id)
}

func (d *Desk) Profile(ctx context.Context) (models.Profile, error) {
	return d.complaints.Profile(ctx)
}
