// Package session holds the in-memory authentication state of the desk
// client and mediates between the credential store and the gateway.
package session

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/staffdesk/staffdesk/internal/apperr"
	"github.com/staffdesk/staffdesk/internal/models"
	"github.com/staffdesk/staffdesk/internal/validation"
)

var (
	// ErrAlreadyInitialized is returned by a second call to Init.
	ErrAlreadyInitialized = errors.New("session: already initialized")
	// ErrDisposed is returned by Init after Dispose.
	ErrDisposed = errors.New("session: disposed")
)

// State is the authentication state of a Manager.
type State int

const (
	Uninitialized State = iota
	Restoring
	Authenticated
	Unauthenticated
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Restoring:
		return "restoring"
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Navigator receives navigation requests. It is implemented by the UI.
type Navigator interface {
	RedirectToLogin()
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func()

// RedirectToLogin calls f.
func (f NavigatorFunc) RedirectToLogin() { f() }

// CredentialStore is the persistence the Manager needs.
type CredentialStore interface {
	User(ctx context.Context) (*models.User, error)
	Token(ctx context.Context) (string, bool, error)
	ComplaintSummary(ctx context.Context) (*models.ComplaintSummary, error)
	SaveSession(ctx context.Context, sess models.Session) error
	SetToken(ctx context.Context, token string) error
	ClearSession(ctx context.Context) error
	ClearAll(ctx context.Context) error
}

// Gateway is the remote side of login and token refresh.
type Gateway interface {
	Login(ctx context.Context, staffID models.StaffID, password string) (models.LoginResult, error)
	Refresh(ctx context.Context) (string, error)
}

// Options configures a Manager.
type Options struct {
	Store     CredentialStore
	Gateway   Gateway
	Navigator Navigator
	Log       *zap.Logger
	// OnStateChange, if set, is called after every transition outside of
	// the Manager's lock.
	OnStateChange func(from, to State)
}

// Manager is the session state machine. Create it with New, call Init once
// at startup and Dispose on shutdown.
type Manager struct {
	store    CredentialStore
	gw       Gateway
	nav      Navigator
	log      *zap.Logger
	onChange func(from, to State)

	mu       sync.RWMutex
	state    State
	user     *models.User
	disposed bool

	// redirects holds at most one pending login redirect.
	redirects   chan struct{}
	initDone    chan struct{}
	stop        chan struct{}
	wg          sync.WaitGroup
	disposeOnce sync.Once
}

// New creates a Manager in the Uninitialized state.
func New(opts Options) *Manager {
	m := &Manager{
		store:     opts.Store,
		gw:        opts.Gateway,
		nav:       opts.Navigator,
		log:       opts.Log,
		onChange:  opts.OnStateChange,
		redirects: make(chan struct{}, 1),
		initDone:  make(chan struct{}),
		stop:      make(chan struct{}),
	}
	if m.log == nil {
		m.log = zap.NewNop()
	}
	if m.nav == nil {
		m.nav = NavigatorFunc(func() {})
	}
	return m
}

// Init restores the session from the credential store. The Manager ends up
// Authenticated when both the cached user and the token are present and
// Unauthenticated otherwise, including when the store cannot be read. In
// the latter case a login redirect is queued; queued redirects are only
// delivered once Init has returned.
func (m *Manager) Init(ctx context.Context) error {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return ErrDisposed
	}
	if m.state != Uninitialized {
		m.mu.Unlock()
		return ErrAlreadyInitialized
	}
	m.state = Restoring
	m.wg.Add(1)
	m.mu.Unlock()
	m.notify(Uninitialized, Restoring)

	go m.dispatch()
	defer close(m.initDone)

	user, err := m.restore(ctx)
	if err != nil {
		m.log.Error("failed to restore session", zap.Error(err))
	}
	if user == nil {
		m.transition(Unauthenticated, nil)
		m.queueRedirect()
		return nil
	}
	m.transition(Authenticated, user)
	return nil
}

func (m *Manager) restore(ctx context.Context) (*models.User, error) {
	user, err := m.store.User(ctx)
	if err != nil {
		return nil, err
	}
	token, ok, err := m.store.Token(ctx)
	if err != nil {
		return nil, err
	}
	if user == nil || !ok || token == "" {
		return nil, nil
	}
	return user, nil
}

// Dispose stops redirect delivery. It is safe to call more than once.
func (m *Manager) Dispose() {
	m.disposeOnce.Do(func() {
		m.mu.Lock()
		m.disposed = true
		m.mu.Unlock()
		close(m.stop)
		m.wg.Wait()
	})
}

// Login validates the input, authenticates against the server and persists
// the session. On failure the credential store is left untouched. A 401
// from the server runs the unauthorized hook and is reported as invalid
// credentials.
func (m *Manager) Login(ctx context.Context, staffID, password string) (models.User, error) {
	id, err := validation.StaffID(staffID)
	if err != nil {
		return models.User{}, err
	}
	if err := validation.Required(password, "Password is required"); err != nil {
		return models.User{}, err
	}

	res, err := m.gw.Login(ctx, id, password)
	if err != nil {
		if errors.Is(err, apperr.ErrUnauthorized) {
			if herr := m.HandleUnauthorized(ctx); herr != nil {
				m.log.Debug("refresh after login rejection failed", zap.Error(herr))
			}
			return models.User{}, apperr.Auth(apperr.CodeInvalidCredentials, http.StatusUnauthorized, apperr.UserMessage(err))
		}
		m.log.Info("login failed", zap.String("staff_id", id), zap.Error(err))
		return models.User{}, err
	}

	sess := models.Session{
		Token:        res.Tokens.Access,
		RefreshToken: res.Tokens.Refresh,
		User:         res.Staff,
		Summary:      models.ComplaintSummary{Total: res.Total, Completed: res.Completed},
	}
	if err := m.store.SaveSession(ctx, sess); err != nil {
		m.log.Error("failed to persist session", zap.Error(err))
		m.transition(Unauthenticated, nil)
		return models.User{}, err
	}

	user := res.Staff
	m.transition(Authenticated, &user)
	m.log.Info("logged in", zap.String("staff_id", user.StaffID))
	return user, nil
}

// Logout clears every credential slot. The Manager is Unauthenticated
// afterwards even if clearing failed; the error is still returned.
func (m *Manager) Logout(ctx context.Context) error {
	err := m.store.ClearAll(ctx)
	if err != nil {
		m.log.Error("failed to clear credentials on logout", zap.Error(err))
	}
	m.transition(Unauthenticated, nil)
	return err
}

// HandleUnauthorized is the 401 hook. It refreshes the token; on failure
// the session is dropped and a login redirect is queued. The caller decides
// whether to retry its request.
func (m *Manager) HandleUnauthorized(ctx context.Context) error {
	token, err := m.gw.Refresh(ctx)
	if err == nil {
		err = m.storeRefreshed(ctx, token)
		if err == nil {
			m.log.Info("access token refreshed")
			return nil
		}
	}

	m.log.Warn("token refresh failed, ending session", zap.Error(err))
	m.transition(Unauthenticated, nil)
	if cerr := m.store.ClearSession(ctx); cerr != nil {
		m.log.Error("failed to clear session", zap.Error(cerr))
	}
	m.queueRedirect()
	return err
}

// storeRefreshed keeps token only while a user is stored, so the store
// never holds a token without its user.
func (m *Manager) storeRefreshed(ctx context.Context, token string) error {
	user, err := m.store.User(ctx)
	if err != nil {
		return err
	}
	if user == nil {
		return apperr.Auth(apperr.CodeExpired, http.StatusUnauthorized, "Session expired, please log in again")
	}
	return m.store.SetToken(ctx, token)
}

// CurrentUser returns the authenticated user, or nil.
func (m *Manager) CurrentUser() *models.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// IsAuthenticated reports whether the Manager is Authenticated.
func (m *Manager) IsAuthenticated() bool {
	return m.State() == Authenticated
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Summary returns the complaint counts cached at login.
func (m *Manager) Summary(ctx context.Context) (*models.ComplaintSummary, error) {
	return m.store.ComplaintSummary(ctx)
}

func (m *Manager) transition(to State, user *models.User) {
	m.mu.Lock()
	from := m.state
	m.state = to
	m.user = user
	m.mu.Unlock()

	if from != to {
		m.log.Debug("session state changed", zap.Stringer("from", from), zap.Stringer("to", to))
		m.notify(from, to)
	}
}

func (m *Manager) notify(from, to State) {
	if m.onChange != nil {
		m.onChange(from, to)
	}
}

// queueRedirect records a pending login redirect. Duplicates coalesce.
func (m *Manager) queueRedirect() {
	select {
	case m.redirects <- struct{}{}:
	default:
	}
}

// dispatch delivers queued redirects once Init has completed.
func (m *Manager) dispatch() {
	defer m.wg.Done()
	select {
	case <-m.initDone:
	case <-m.stop:
		return
	}
	for {
		select {
		case <-m.redirects:
			m.nav.RedirectToLogin()
		case <-m.stop:
			return
		}
	}
}
