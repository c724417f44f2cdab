package shell

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/staffdesk/staffdesk/internal/apperr"
	"github.com/staffdesk/staffdesk/internal/models"
)

// Desk is the facade the shell drives.
type Desk interface {
	Login(ctx context.Context, staffID, password string) (models.User, error)
	Logout(ctx context.Context) error
	VerifyStaff(ctx context.Context, staffID string) (models.VerifyResult, error)
	SetPassword(ctx context.Context, staffID, password string) error
	RequestOTP(ctx context.Context, staffID string) (models.OTPChallenge, error)
	ResetPassword(ctx context.Context, staffID, otp, newPassword string) (string, error)
	CurrentUser() *models.User
	IsAuthenticated() bool
	Summary(ctx context.Context) (*models.ComplaintSummary, error)
	SubmitComplaint(ctx context.Context, req models.ComplaintRequest) (models.ComplaintReceipt, error)
	Dashboard(ctx context.Context) (models.Dashboard, error)
	PublicComplaints(ctx context.Context) (models.Dashboard, error)
	DeleteComplaint(ctx context.Context, id int64) error
	Profile(ctx context.Context) (models.Profile, error)
}

const helpText = `Available commands:
  signup <staff-id>     verify a staff id and set the first password
  login [staff-id]      sign in
  forgot <staff-id>     reset a forgotten password with an emailed code
  whoami                show the signed-in staff member
  summary               show complaint counts from the last login
  dashboard             list your complaints
  public                list public anonymous complaints
  submit                file a complaint
  delete <id>           delete one of your complaints
  profile               show your profile
  logout                sign out and forget every credential
  help, exit`

// Shell is the read-eval-print loop.
type Shell struct {
	desk Desk
	p    *Prompter
}

// New creates a Shell. Call SetDesk before Run when the desk needs the
// shell as its navigator.
func New(desk Desk, p *Prompter) *Shell {
	return &Shell{desk: desk, p: p}
}

// SetDesk replaces the desk.
func (s *Shell) SetDesk(desk Desk) { s.desk = desk }

// RedirectToLogin tells the user to sign in again.
func (s *Shell) RedirectToLogin() {
	s.p.Println("\nYou are signed out. Use 'login' to sign in.")
}

// Run reads commands until exit or end of input.
func (s *Shell) Run(ctx context.Context) {
	for {
		line, ok := s.p.Line("desk> ")
		if !ok {
			return
		}
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		if !s.Exec(ctx, args) {
			return
		}
	}
}

// Exec runs one command. It returns false when the shell should stop.
func (s *Shell) Exec(ctx context.Context, args []string) bool {
	switch args[0] {
	case "help":
		s.p.Println(helpText)
	case "signup":
		s.signup(ctx, args[1:])
	case "login":
		s.login(ctx, args[1:])
	case "forgot":
		s.forgot(ctx, args[1:])
	case "whoami":
		s.whoami()
	case "summary":
		s.summary(ctx)
	case "dashboard":
		s.list(ctx, s.desk.Dashboard)
	case "public":
		s.list(ctx, s.desk.PublicComplaints)
	case "submit":
		s.submit(ctx)
	case "delete":
		s.delete(ctx, args[1:])
	case "profile":
		s.profile(ctx)
	case "logout":
		if err := s.desk.Logout(ctx); err != nil {
			s.fail(err)
			return true
		}
		s.p.Println("Signed out")
	case "exit", "quit":
		s.p.Println("Bye")
		return false
	default:
		s.p.Println("Unknown command. Type 'help' for a list of commands.")
	}
	return true
}

func (s *Shell) signup(ctx context.Context, args []string) {
	if len(args) < 1 {
		s.p.Println("Usage: signup <staff-id>")
		return
	}
	res, err := s.desk.VerifyStaff(ctx, args[0])
	if err != nil {
		s.fail(err)
		return
	}
	if !res.PasswordSetupRequired {
		s.p.Println("Your password is already set. Use 'login' to sign in.")
		return
	}
	pw, ok := s.p.Ask("New password")
	if !ok {
		return
	}
	confirm, ok := s.p.Ask("Confirm password")
	if !ok {
		return
	}
	if pw != confirm {
		s.p.Println("Passwords must match")
		return
	}
	if err := s.desk.SetPassword(ctx, "", pw); err != nil {
		s.fail(err)
		return
	}
	s.p.Println("Password set. Use 'login' to sign in.")
}

func (s *Shell) login(ctx context.Context, args []string) {
	var id string
	if len(args) > 0 {
		id = args[0]
	} else {
		var ok bool
		if id, ok = s.p.Ask("Staff ID"); !ok {
			return
		}
	}
	pw, ok := s.p.Ask("Password")
	if !ok {
		return
	}
	user, err := s.desk.Login(ctx, id, pw)
	if err != nil {
		s.fail(err)
		return
	}
	s.p.Printf("Welcome, %s\n", user.Name)
}

func (s *Shell) forgot(ctx context.Context, args []string) {
	if len(args) < 1 {
		s.p.Println("Usage: forgot <staff-id>")
		return
	}
	ch, err := s.desk.RequestOTP(ctx, args[0])
	if err != nil {
		s.fail(err)
		return
	}
	if ch.Message != "" {
		s.p.Println(ch.Message)
	}
	if ch.ExpiresIn != "" {
		s.p.Printf("The code expires in %s\n", ch.ExpiresIn)
	}
	otp, ok := s.p.Ask("Code")
	if !ok {
		return
	}
	pw, ok := s.p.Ask("New password")
	if !ok {
		return
	}
	msg, err := s.desk.ResetPassword(ctx, "", otp, pw)
	if err != nil {
		s.fail(err)
		return
	}
	if msg == "" {
		msg = "Password reset"
	}
	s.p.Println(msg)
}

func (s *Shell) whoami() {
	u := s.desk.CurrentUser()
	if u == nil {
		s.p.Println("Not signed in")
		return
	}
	s.p.Printf("%s (%s) %s, %s <%s>\n", u.Name, u.StaffID, u.JobTitle, u.Role, u.Email)
}

func (s *Shell) summary(ctx context.Context) {
	sum, err := s.desk.Summary(ctx)
	if err != nil {
		s.fail(err)
		return
	}
	if sum == nil {
		s.p.Println("No summary available")
		return
	}
	s.p.Printf("Total: %d  Completed: %d\n", sum.Total, sum.Completed)
}

func (s *Shell) list(ctx context.Context, fetch func(context.Context) (models.Dashboard, error)) {
	d, err := fetch(ctx)
	if err != nil {
		s.fail(err)
		return
	}
	var b strings.Builder
	sum := d.Summary
	fmt.Fprintf(&b, "Total: %d  Completed: %d  Pending: %d\n", sum.Total, sum.Completed, sum.Pending())
	if len(d.ComplaintHistory) == 0 {
		b.WriteString("No complaints\n")
		s.p.Printf("%s", b.String())
		return
	}
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tCATEGORY\tTITLE\tCREATED")
	for _, c := range d.ComplaintHistory {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", c.ID, c.Status, c.Category, c.Title, c.CreatedAt)
	}
	_ = tw.Flush()
	s.p.Printf("%s", b.String())
}

func (s *Shell) submit(ctx context.Context) {
	var req models.ComplaintRequest
	var ok bool
	if req.Title, ok = s.p.Ask("Title"); !ok {
		return
	}
	if req.Description, ok = s.p.Ask("Description"); !ok {
		return
	}
	if req.Location, ok = s.p.Ask("Location"); !ok {
		return
	}
	if req.Category, ok = s.p.AskDefault("Category (admin/facility management)", "admin"); !ok {
		return
	}
	if req.Priority, ok = s.p.AskDefault("Priority (low/medium/high)", "medium"); !ok {
		return
	}
	req.IsAnonymous = s.p.Confirm("Submit anonymously?")
	if req.IsAnonymous && s.p.Confirm("Show it on the public board?") {
		req.AnonymityScope = models.ScopePublic
	}

	rec, err := s.desk.SubmitComplaint(ctx, req)
	if err != nil {
		s.fail(err)
		return
	}
	s.p.Printf("Complaint #%d filed\n", rec.ID)
}

func (s *Shell) delete(ctx context.Context, args []string) {
	if len(args) < 1 {
		s.p.Println("Usage: delete <id>")
		return
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		s.p.Println("Usage: delete <id>")
		return
	}
	if err := s.desk.DeleteComplaint(ctx, id); err != nil {
		s.fail(err)
		return
	}
	s.p.Println("Complaint deleted")
}

func (s *Shell) profile(ctx context.Context) {
	p, err := s.desk.Profile(ctx)
	if err != nil {
		s.fail(err)
		return
	}
	s.p.Printf("%s <%s>\nComplaints: %d  Resolved: %d\n", p.Name, p.Email, p.TotalComplaints, p.ResolvedComplaints)
}

func (s *Shell) fail(err error) {
	s.p.Printf("Error: %s\n", apperr.UserMessage(err))
}
