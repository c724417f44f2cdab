package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/staffdesk/staffdesk/internal/apperr"
	"github.com/staffdesk/staffdesk/internal/client/credstore"
	"github.com/staffdesk/staffdesk/internal/models"
)

type fakeGateway struct {
	LoginFunc   func(ctx context.Context, staffID models.StaffID, password string) (models.LoginResult, error)
	RefreshFunc func(ctx context.Context) (string, error)

	loginCalls   int32
	refreshCalls int32
}

func (f *fakeGateway) Login(ctx context.Context, staffID models.StaffID, password string) (models.LoginResult, error) {
	atomic.AddInt32(&f.loginCalls, 1)
	return f.LoginFunc(ctx, staffID, password)
}

func (f *fakeGateway) Refresh(ctx context.Context) (string, error) {
	atomic.AddInt32(&f.refreshCalls, 1)
	if f.RefreshFunc == nil {
		return "", apperr.Auth(apperr.CodeExpired, 401, "expired")
	}
	return f.RefreshFunc(ctx)
}

// recordingNavigator counts redirects and remembers the state seen.
type recordingNavigator struct {
	mu     sync.Mutex
	count  int
	states []State
	m      *Manager
}

func (n *recordingNavigator) RedirectToLogin() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.count++
	if n.m != nil {
		n.states = append(n.states, n.m.State())
	}
}

func (n *recordingNavigator) redirects() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.count
}

// failingBackend fails every read.
type failingBackend struct{ *credstore.MemoryBackend }

func (failingBackend) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("disk unreadable")
}

func successfulLogin() models.LoginResult {
	return models.LoginResult{
		Staff:     models.User{Name: "Ada Obi", StaffID: "DHG1234", Role: "staff"},
		Tokens:    models.Tokens{Access: "acc-1", Refresh: "ref-1"},
		Total:     5,
		Completed: 2,
	}
}

type fixture struct {
	backend *credstore.MemoryBackend
	store   *credstore.Store
	gw      *fakeGateway
	nav     *recordingNavigator
	m       *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		backend: credstore.NewMemoryBackend(),
		gw: &fakeGateway{LoginFunc: func(context.Context, models.StaffID, string) (models.LoginResult, error) {
			return successfulLogin(), nil
		}},
		nav: &recordingNavigator{},
	}
	f.store = credstore.New(f.backend, nil)
	f.m = New(Options{Store: f.store, Gateway: f.gw, Navigator: f.nav})
	f.nav.m = f.m
	t.Cleanup(f.m.Dispose)
	return f
}

func TestInit_AuthenticatedWhenUserAndTokenPresent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.SaveSession(ctx, models.Session{
		Token: "acc", User: models.User{Name: "Ada", StaffID: "DHG1234"},
	}))

	require.NoError(t, f.m.Init(ctx))

	assert.Equal(t, Authenticated, f.m.State())
	assert.True(t, f.m.IsAuthenticated())
	require.NotNil(t, f.m.CurrentUser())
	assert.Equal(t, "DHG1234", f.m.CurrentUser().StaffID)

	f.m.Dispose()
	assert.Zero(t, f.nav.redirects())
}

func TestInit_UnauthenticatedWhenEitherMissing(t *testing.T) {
	tests := []struct {
		name string
		seed func(ctx context.Context, s *credstore.Store) error
	}{
		{name: "empty store", seed: func(context.Context, *credstore.Store) error { return nil }},
		{name: "user without token", seed: func(ctx context.Context, s *credstore.Store) error {
			return s.SetUser(ctx, models.User{Name: "Ada"})
		}},
		{name: "token without user", seed: func(ctx context.Context, s *credstore.Store) error {
			return s.SetToken(ctx, "acc")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			require.NoError(t, tt.seed(ctx, f.store))

			require.NoError(t, f.m.Init(ctx))

			assert.Equal(t, Unauthenticated, f.m.State())
			assert.Nil(t, f.m.CurrentUser())
			assert.Eventually(t, func() bool { return f.nav.redirects() == 1 }, time.Second, 5*time.Millisecond)
		})
	}
}

func TestInit_StoreFailureIsUnauthenticated(t *testing.T) {
	nav := &recordingNavigator{}
	m := New(Options{
		Store:     credstore.New(failingBackend{credstore.NewMemoryBackend()}, nil),
		Gateway:   &fakeGateway{},
		Navigator: nav,
	})
	defer m.Dispose()

	require.NoError(t, m.Init(context.Background()))
	assert.Equal(t, Unauthenticated, m.State())
	assert.Eventually(t, func() bool { return nav.redirects() == 1 }, time.Second, 5*time.Millisecond)
}

func TestInit_RedirectDeliveredAfterInitCompletes(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.m.Init(context.Background()))

	assert.Eventually(t, func() bool { return f.nav.redirects() == 1 }, time.Second, 5*time.Millisecond)
	f.nav.mu.Lock()
	defer f.nav.mu.Unlock()
	assert.Equal(t, []State{Unauthenticated}, f.nav.states)
}

func TestInit_Twice(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.m.Init(context.Background()))
	assert.ErrorIs(t, f.m.Init(context.Background()), ErrAlreadyInitialized)
}

func TestInit_AfterDispose(t *testing.T) {
	f := newFixture(t)
	f.m.Dispose()
	f.m.Dispose()
	assert.ErrorIs(t, f.m.Init(context.Background()), ErrDisposed)
}

func TestLogin_StoresTokenAndUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.m.Init(ctx))

	user, err := f.m.Login(ctx, " DHG1234 ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "Ada Obi", user.Name)
	assert.True(t, f.m.IsAuthenticated())

	tok, ok, err := f.store.Token(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "acc-1", tok)

	stored, err := f.store.User(ctx)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "DHG1234", stored.StaffID)

	sum, err := f.m.Summary(ctx)
	require.NoError(t, err)
	require.NotNil(t, sum)
	assert.Equal(t, models.ComplaintSummary{Total: 5, Completed: 2}, *sum)
}

func TestLogin_ValidationBeforeNetwork(t *testing.T) {
	tests := []struct {
		name     string
		staffID  string
		password string
		wantMsg  string
	}{
		{name: "empty id", staffID: "", password: "secret1", wantMsg: "Staff ID is required"},
		{name: "malformed id", staffID: "dhg1234", password: "secret1", wantMsg: "Enter a valid staff Id"},
		{name: "short id", staffID: "DH1234", password: "secret1", wantMsg: "Enter a valid staff Id"},
		{name: "empty password", staffID: "DHG1234", password: "", wantMsg: "Password is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.m.Login(context.Background(), tt.staffID, tt.password)
			require.ErrorIs(t, err, apperr.ErrValidation)
			assert.Equal(t, tt.wantMsg, apperr.UserMessage(err))
			assert.Zero(t, atomic.LoadInt32(&f.gw.loginCalls))
		})
	}
}

// Wrong password: the server rejects, nothing is written.
func TestLogin_RejectedLeavesStoreUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.m.Init(ctx))
	f.gw.LoginFunc = func(context.Context, models.StaffID, string) (models.LoginResult, error) {
		return models.LoginResult{}, apperr.Auth(apperr.CodeInvalidCredentials, 400, "Invalid credentials")
	}
	before := f.backend.Len()

	_, err := f.m.Login(ctx, "DHG1234", "wrongpass")

	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	assert.Equal(t, before, f.backend.Len())
	assert.False(t, f.m.IsAuthenticated())
	assert.Zero(t, atomic.LoadInt32(&f.gw.refreshCalls))
}

func TestLogin_UnauthorizedRunsHookAndReportsInvalidCredentials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gw.LoginFunc = func(context.Context, models.StaffID, string) (models.LoginResult, error) {
		return models.LoginResult{}, apperr.Auth(apperr.CodeUnauthorized, 401, "Invalid credentials")
	}

	_, err := f.m.Login(ctx, "DHG1234", "wrongpass")

	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	assert.Equal(t, "Invalid credentials", apperr.UserMessage(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(&f.gw.refreshCalls))
}

func TestLogin_UnauthorizedDoesNotStoreRefreshedToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gw.LoginFunc = func(context.Context, models.StaffID, string) (models.LoginResult, error) {
		return models.LoginResult{}, apperr.Auth(apperr.CodeUnauthorized, 401, "Invalid credentials")
	}
	f.gw.RefreshFunc = func(context.Context) (string, error) { return "fresh", nil }

	_, err := f.m.Login(ctx, "DHG1234", "wrongpass")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	_, ok, err := f.store.Token(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "token stored without a user")
	u, err := f.store.User(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)
	assert.False(t, f.m.IsAuthenticated())
}

func TestHandleUnauthorized_NoSessionKeepsStoreEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gw.RefreshFunc = func(context.Context) (string, error) { return "fresh", nil }

	err := f.m.HandleUnauthorized(ctx)

	assert.ErrorIs(t, err, apperr.ErrExpired)
	assert.Zero(t, f.backend.Len())
	assert.Equal(t, Unauthenticated, f.m.State())
}

func TestLogin_StoreFailureForcesUnauthenticated(t *testing.T) {
	gw := &fakeGateway{LoginFunc: func(context.Context, models.StaffID, string) (models.LoginResult, error) {
		return successfulLogin(), nil
	}}
	m := New(Options{Store: &brokenSaveStore{Store: credstore.New(credstore.NewMemoryBackend(), nil)}, Gateway: gw})
	defer m.Dispose()

	_, err := m.Login(context.Background(), "DHG1234", "secret1")
	assert.ErrorIs(t, err, apperr.ErrStorage)
	assert.Equal(t, Unauthenticated, m.State())
}

type brokenSaveStore struct{ *credstore.Store }

func (b *brokenSaveStore) SaveSession(context.Context, models.Session) error {
	return apperr.Storage("write token", errors.New("read-only"))
}

func TestLogout_ClearsEverythingAndIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.m.Init(ctx))
	_, err := f.m.Login(ctx, "DHG1234", "secret1")
	require.NoError(t, err)
	require.NoError(t, f.store.SetStaffID(ctx, credstore.FlowReset, "DHG1234"))

	require.NoError(t, f.m.Logout(ctx))
	require.NoError(t, f.m.Logout(ctx))

	assert.False(t, f.m.IsAuthenticated())
	assert.Nil(t, f.m.CurrentUser())
	_, ok, _ := f.store.Token(ctx)
	assert.False(t, ok)
	u, _ := f.store.User(ctx)
	assert.Nil(t, u)
	_, ok, _ = f.store.StaffID(ctx, credstore.FlowReset)
	assert.False(t, ok)
}

// A protected call got 401 and the refresh succeeds.
func TestHandleUnauthorized_RefreshSucceeds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.m.Init(ctx))
	_, err := f.m.Login(ctx, "DHG1234", "secret1")
	require.NoError(t, err)
	f.gw.RefreshFunc = func(context.Context) (string, error) { return "acc-2", nil }

	require.NoError(t, f.m.HandleUnauthorized(ctx))

	tok, _, err := f.store.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "acc-2", tok)
	assert.True(t, f.m.IsAuthenticated())
}

// A protected call got 401 and the refresh fails.
func TestHandleUnauthorized_RefreshFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.SaveSession(ctx, models.Session{
		Token: "acc-1", RefreshToken: "ref-1", User: models.User{Name: "Ada", StaffID: "DHG1234"},
	}))
	require.NoError(t, f.m.Init(ctx))
	require.True(t, f.m.IsAuthenticated())
	require.NoError(t, f.store.SetStaffID(ctx, credstore.FlowSignup, "DHG1234"))

	var transitions []State
	f.m.onChange = func(_, to State) { transitions = append(transitions, to) }

	err := f.m.HandleUnauthorized(ctx)

	assert.ErrorIs(t, err, apperr.ErrExpired)
	assert.Equal(t, Unauthenticated, f.m.State())
	assert.Equal(t, []State{Unauthenticated}, transitions)
	_, ok, _ := f.store.Token(ctx)
	assert.False(t, ok)
	u, _ := f.store.User(ctx)
	assert.Nil(t, u)
	_, ok, _ = f.store.StaffID(ctx, credstore.FlowSignup)
	assert.True(t, ok, "staging slots survive a session invalidation")
	assert.Eventually(t, func() bool { return f.nav.redirects() == 1 }, time.Second, 5*time.Millisecond)
}

func TestStateChangesAreLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	var changes []string
	m := New(Options{
		Store:   credstore.New(credstore.NewMemoryBackend(), nil),
		Gateway: &fakeGateway{},
		Log:     zap.New(core),
		OnStateChange: func(from, to State) {
			changes = append(changes, from.String()+"->"+to.String())
		},
	})
	defer m.Dispose()

	require.NoError(t, m.Init(context.Background()))

	assert.Equal(t, []string{"uninitialized->restoring", "restoring->unauthenticated"}, changes)
	assert.Equal(t, 1, logs.FilterMessage("session state changed").Len())
}
