package shell

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffdesk/staffdesk/internal/apperr"
	"github.com/staffdesk/staffdesk/internal/models"
)

type fakeDesk struct {
	LoginFunc         func(ctx context.Context, staffID, password string) (models.User, error)
	VerifyStaffFunc   func(ctx context.Context, staffID string) (models.VerifyResult, error)
	SetPasswordFunc   func(ctx context.Context, staffID, password string) error
	RequestOTPFunc    func(ctx context.Context, staffID string) (models.OTPChallenge, error)
	ResetPasswordFunc func(ctx context.Context, staffID, otp, newPassword string) (string, error)
	SubmitFunc        func(ctx context.Context, req models.ComplaintRequest) (models.ComplaintReceipt, error)
	DashboardFunc     func(ctx context.Context) (models.Dashboard, error)
	DeleteFunc        func(ctx context.Context, id int64) error
	user              *models.User
	loggedOut         bool
}

func (f *fakeDesk) Login(ctx context.Context, id, pw string) (models.User, error) {
	return f.LoginFunc(ctx, id, pw)
}
func (f *fakeDesk) Logout(context.Context) error { f.loggedOut = true; return nil }
func (f *fakeDesk) VerifyStaff(ctx context.Context, id string) (models.VerifyResult, error) {
	return f.VerifyStaffFunc(ctx, id)
}
func (f *fakeDesk) SetPassword(ctx context.Context, id, pw string) error {
	return f.SetPasswordFunc(ctx, id, pw)
}
func (f *fakeDesk) RequestOTP(ctx context.Context, id string) (models.OTPChallenge, error) {
	return f.RequestOTPFunc(ctx, id)
}
func (f *fakeDesk) ResetPassword(ctx context.Context, id, otp, pw string) (string, error) {
	return f.ResetPasswordFunc(ctx, id, otp, pw)
}
func (f *fakeDesk) CurrentUser() *models.User { return f.user }
func (f *fakeDesk) IsAuthenticated() bool     { return f.user != nil }
func (f *fakeDesk) Summary(context.Context) (*models.ComplaintSummary, error) {
	return &models.ComplaintSummary{Total: 4, Completed: 3}, nil
}
func (f *fakeDesk) SubmitComplaint(ctx context.Context, req models.ComplaintRequest) (models.ComplaintReceipt, error) {
	return f.SubmitFunc(ctx, req)
}
func (f *fakeDesk) Dashboard(ctx context.Context) (models.Dashboard, error) {
	return f.DashboardFunc(ctx)
}
func (f *fakeDesk) PublicComplaints(ctx context.Context) (models.Dashboard, error) {
	return f.DashboardFunc(ctx)
}
func (f *fakeDesk) DeleteComplaint(ctx context.Context, id int64) error {
	return f.DeleteFunc(ctx, id)
}
func (f *fakeDesk) Profile(context.Context) (models.Profile, error) {
	return models.Profile{Name: "Ada", Email: "ada@example.com", TotalComplaints: 4, ResolvedComplaints: 3}, nil
}

func run(t *testing.T, d Desk, input string) string {
	t.Helper()
	var out bytes.Buffer
	s := New(d, NewPrompter(strings.NewReader(input), &out))
	s.Run(context.Background())
	return out.String()
}

func TestShell_Signup(t *testing.T) {
	var gotPassword string
	d := &fakeDesk{
		VerifyStaffFunc: func(_ context.Context, id string) (models.VerifyResult, error) {
			assert.Equal(t, "DHG1234", id)
			return models.VerifyResult{PasswordSetupRequired: true}, nil
		},
		SetPasswordFunc: func(_ context.Context, id, pw string) error {
			assert.Empty(t, id)
			gotPassword = pw
			return nil
		},
	}

	out := run(t, d, "signup DHG1234\nAbc123!@\nAbc123!@\nexit\n")

	assert.Equal(t, "Abc123!@", gotPassword)
	assert.Contains(t, out, "Password set")
	assert.Contains(t, out, "Bye")
}

func TestShell_SignupPasswordMismatch(t *testing.T) {
	d := &fakeDesk{
		VerifyStaffFunc: func(context.Context, string) (models.VerifyResult, error) {
			return models.VerifyResult{PasswordSetupRequired: true}, nil
		},
		SetPasswordFunc: func(context.Context, string, string) error {
			t.Fatal("SetPassword must not be called")
			return nil
		},
	}
	out := run(t, d, "signup DHG1234\none111\ntwo222\n")
	assert.Contains(t, out, "Passwords must match")
}

func TestShell_LoginShowsUserMessage(t *testing.T) {
	d := &fakeDesk{LoginFunc: func(context.Context, string, string) (models.User, error) {
		return models.User{}, apperr.Auth(apperr.CodeInvalidCredentials, 400, "Invalid staff ID or password")
	}}
	out := run(t, d, "login DHG1234\nwrong\n")
	assert.Contains(t, out, "Error: Invalid staff ID or password")
}

func TestShell_LoginPromptsForID(t *testing.T) {
	d := &fakeDesk{LoginFunc: func(_ context.Context, id, pw string) (models.User, error) {
		assert.Equal(t, "DHG1234", id)
		assert.Equal(t, "secret1", pw)
		return models.User{Name: "Ada"}, nil
	}}
	out := run(t, d, "login\nDHG1234\nsecret1\n")
	assert.Contains(t, out, "Welcome, Ada")
}

func TestShell_Forgot(t *testing.T) {
	d := &fakeDesk{
		RequestOTPFunc: func(context.Context, string) (models.OTPChallenge, error) {
			return models.OTPChallenge{ExpiresIn: "120", Message: "OTP sent"}, nil
		},
		ResetPasswordFunc: func(_ context.Context, id, otp, pw string) (string, error) {
			assert.Empty(t, id)
			assert.Equal(t, "482913", otp)
			assert.Equal(t, "NewPass1!", pw)
			return "Password reset successful", nil
		},
	}
	out := run(t, d, "forgot DHG1234\n482913\nNewPass1!\n")
	assert.Contains(t, out, "OTP sent")
	assert.Contains(t, out, "expires in 120")
	assert.Contains(t, out, "Password reset successful")
}

func TestShell_Dashboard(t *testing.T) {
	d := &fakeDesk{DashboardFunc: func(context.Context) (models.Dashboard, error) {
		return models.Dashboard{
			Summary: models.DashboardSummary{Total: 2, Completed: 1, Unread: 1},
			ComplaintHistory: []models.Complaint{
				{ID: 11, Title: "Broken AC", Status: models.StatusUnread, Category: "facility management"},
			},
		}, nil
	}}
	out := run(t, d, "dashboard\n")
	assert.Contains(t, out, "Pending: 1")
	assert.Contains(t, out, "Broken AC")
	assert.Contains(t, out, "11")
}

func TestShell_Submit(t *testing.T) {
	var got models.ComplaintRequest
	d := &fakeDesk{SubmitFunc: func(_ context.Context, req models.ComplaintRequest) (models.ComplaintReceipt, error) {
		got = req
		return models.ComplaintReceipt{ID: 5}, nil
	}}
	out := run(t, d, "submit\nBroken AC\nWard 3 is hot\nWard 3\n\nhigh\ny\ny\n")
	assert.Contains(t, out, "Complaint #5 filed")
	assert.Equal(t, "admin", got.Category)
	assert.Equal(t, "high", got.Priority)
	assert.True(t, got.IsAnonymous)
	assert.Equal(t, models.ScopePublic, got.AnonymityScope)
}

func TestShell_Delete(t *testing.T) {
	var deleted int64
	d := &fakeDesk{DeleteFunc: func(_ context.Context, id int64) error { deleted = id; return nil }}

	out := run(t, d, "delete abc\ndelete 7\n")
	assert.Contains(t, out, "Usage: delete <id>")
	assert.Contains(t, out, "Complaint deleted")
	assert.EqualValues(t, 7, deleted)
}

func TestShell_MiscCommands(t *testing.T) {
	d := &fakeDesk{}
	out := run(t, d, "whoami\nsummary\nprofile\nfrobnicate\nlogout\n")
	assert.Contains(t, out, "Not signed in")
	assert.Contains(t, out, "Total: 4  Completed: 3")
	assert.Contains(t, out, "Ada <ada@example.com>")
	assert.Contains(t, out, "Unknown command")
	assert.Contains(t, out, "Signed out")
	assert.True(t, d.loggedOut)
}

func TestShell_RedirectToLogin(t *testing.T) {
	var out bytes.Buffer
	s := New(&fakeDesk{}, NewPrompter(strings.NewReader(""), &out))
	s.RedirectToLogin()
	assert.Contains(t, out.String(), "Use 'login' to sign in")
}

func TestPrompter(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("  hello  \n\nyes\n"), &out)

	ans, ok := p.Ask("Name")
	require.True(t, ok)
	assert.Equal(t, "hello", ans)

	ans, ok = p.AskDefault("Color", "blue")
	require.True(t, ok)
	assert.Equal(t, "blue", ans)

	assert.True(t, p.Confirm("Sure?"))
	assert.False(t, p.Confirm("Again?"), "end of input is no")

	_, ok = p.Ask("More")
	assert.False(t, ok)
	assert.Contains(t, out.String(), "Color [blue]: ")
}
