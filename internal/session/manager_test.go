package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/food_delivery/internal/models"
	"github.com/Skotchmaster/food_delivery/pkg/apierr"
	"github.com/Skotchmaster/food_delivery/pkg/authclient"
	"github.com/Skotchmaster/food_delivery/pkg/tokens"
)

func accessToken(t *testing.T, userID uint) string {
	t.Helper()
	tok, err := tokens.SignAccess(tokens.AccessClaims{UserID: userID, Email: "a@x.com", Role: models.RoleCustomer}, []byte("k"))
	require.NoError(t, err)
	return tok
}

type stubAuth struct {
	mu sync.Mutex

	loginPair   authclient.TokenPair
	loginErr    error
	user        *models.User
	userErr     error
	logoutErr   error
	refreshPair authclient.TokenPair
	refreshErr  error
	// refreshGate, when set, blocks Refresh until closed.
	refreshGate chan struct{}

	loginCalls   int
	userCalls    int
	logoutCalls  int
	refreshCalls atomic.Int32
	userBearer   string
	refreshSeen  []string
}

func (s *stubAuth) Login(context.Context, string, string) (authclient.TokenPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loginCalls++
	return s.loginPair, s.loginErr
}

func (s *stubAuth) Refresh(ctx context.Context, rt string) (authclient.TokenPair, error) {
	s.refreshCalls.Add(1)
	s.mu.Lock()
	s.refreshSeen = append(s.refreshSeen, rt)
	gate := s.refreshGate
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return authclient.TokenPair{}, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshPair, s.refreshErr
}

func (s *stubAuth) Logout(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logoutCalls++
	return s.logoutErr
}

func (s *stubAuth) CurrentUser(_ context.Context, id uint, bearer string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userCalls++
	s.userBearer = bearer
	if s.userErr != nil {
		return nil, s.userErr
	}
	u := *s.user
	u.ID = id
	return &u, nil
}

func (s *stubAuth) Register(context.Context, authclient.RegisterRequest) (*models.User, error) {
	return s.user, nil
}
func (s *stubAuth) ResetPassword(context.Context, string, string) error       { return nil }
func (s *stubAuth) ForgotPassword(context.Context, string) error              { return nil }
func (s *stubAuth) ResetForgotPassword(context.Context, string, string) error { return nil }

type mapStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMapStore() *mapStore {
	return &mapStore{data: make(map[string]string)}
}

func (s *mapStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *mapStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *mapStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

func newLoggedIn(t *testing.T, auth *stubAuth, store Store, opts ...Option) *Manager {
	t.Helper()
	m := NewManager(auth, store, opts...)
	_, err := m.Login(context.Background(), Credentials{Email: "a@x.com", Password: "p"})
	require.NoError(t, err)
	return m
}

func TestLogin_Success(t *testing.T) {
	t.Parallel()

	tok := accessToken(t, 7)
	auth := &stubAuth{
		loginPair: authclient.TokenPair{AccessToken: tok, RefreshToken: "ref"},
		user:      &models.User{Email: "a@x.com", Role: models.RoleCustomer},
	}
	store := newMapStore()
	m := NewManager(auth, store)

	sess, err := m.Login(context.Background(), Credentials{Email: "a@x.com", Password: "p"})
	require.NoError(t, err)

	assert.Equal(t, 1, auth.loginCalls)
	assert.Equal(t, 1, auth.userCalls)
	assert.Equal(t, tok, auth.userBearer)
	assert.True(t, m.IsAuthenticated())
	require.NotNil(t, sess.User)
	assert.Equal(t, uint(7), sess.User.ID)
	assert.Equal(t, uint(7), m.User().ID)

	ctx := context.Background()
	v, ok, _ := store.Get(ctx, KeyToken)
	assert.True(t, ok)
	assert.Equal(t, tok, v)
	v, _, _ = store.Get(ctx, KeyRefreshToken)
	assert.Equal(t, "ref", v)
	v, _, _ = store.Get(ctx, KeyUser)
	assert.Contains(t, v, `"id":7`)
}

func TestLogin_RejectedLeavesPreviousSession(t *testing.T) {
	t.Parallel()

	auth := &stubAuth{
		loginPair: authclient.TokenPair{AccessToken: accessToken(t, 1), RefreshToken: "ref"},
		user:      &models.User{Email: "a@x.com"},
	}
	m := NewManager(auth, nil)

	auth.loginErr = &apierr.StatusError{Op: "auth.login", Status: 401, Kind: apierr.ErrAuthentication}
	_, err := m.Login(context.Background(), Credentials{Email: "a@x.com", Password: "wrong"})
	assert.ErrorIs(t, err, apierr.ErrAuthentication)
	assert.False(t, m.IsAuthenticated())
	assert.Nil(t, m.Snapshot().Credentials)
	assert.Equal(t, 0, auth.userCalls)

	auth.loginErr = nil
	_, err = m.Login(context.Background(), Credentials{Email: "a@x.com", Password: "p"})
	require.NoError(t, err)
	before := m.Snapshot()

	auth.loginErr = &apierr.StatusError{Op: "auth.login", Status: 401, Kind: apierr.ErrAuthentication}
	_, err = m.Login(context.Background(), Credentials{Email: "a@x.com", Password: "wrong"})
	assert.ErrorIs(t, err, apierr.ErrAuthentication)
	assert.Equal(t, before, m.Snapshot())
}

func TestLogin_MalformedToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		token string
	}{
		{name: "not a jwt", token: "garbage"},
		{name: "no identity", token: func() string {
			tok, _ := tokens.SignAccess(tokens.AccessClaims{Email: "a@x.com"}, []byte("k"))
			return tok
		}()},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			auth := &stubAuth{loginPair: authclient.TokenPair{AccessToken: tt.token}, user: &models.User{}}
			m := NewManager(auth, nil)
			_, err := m.Login(context.Background(), Credentials{Email: "a@x.com", Password: "p"})
			assert.ErrorIs(t, err, apierr.ErrDecode)
			assert.False(t, m.IsAuthenticated())
			assert.Equal(t, 0, auth.userCalls)
		})
	}
}

func TestLogin_UserLookupFailure(t *testing.T) {
	t.Parallel()

	auth := &stubAuth{
		loginPair: authclient.TokenPair{AccessToken: accessToken(t, 1)},
		userErr:   &apierr.StatusError{Op: "auth.current_user", Status: 404, Kind: apierr.ErrNotFound},
	}
	m := NewManager(auth, nil)
	_, err := m.Login(context.Background(), Credentials{Email: "a@x.com", Password: "p"})
	assert.ErrorIs(t, err, apierr.ErrNotFound)
	assert.False(t, m.IsAuthenticated())
}

func TestRefresh_SingleFlight(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	auth := &stubAuth{
		loginPair:   authclient.TokenPair{AccessToken: accessToken(t, 1), RefreshToken: "ref"},
		user:        &models.User{},
		refreshPair: authclient.TokenPair{AccessToken: "acc-2", RefreshToken: "ref-2"},
		refreshGate: gate,
	}
	m := newLoggedIn(t, auth, nil)

	const n = 10
	var wg sync.WaitGroup
	results := make([]CredentialPair, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = m.Refresh(context.Background())
		}(i)
	}

	require.Eventually(t, func() bool { return auth.refreshCalls.Load() == 1 }, time.Second, 5*time.Millisecond)
	// let the stragglers join the flight before it lands
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, int32(1), auth.refreshCalls.Load())
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, CredentialPair{AccessToken: "acc-2", RefreshToken: "ref-2"}, results[i])
	}
	assert.Equal(t, "acc-2", m.AccessToken())
}

func TestRefresh_RotationAndRetention(t *testing.T) {
	t.Parallel()

	auth := &stubAuth{
		loginPair:   authclient.TokenPair{AccessToken: accessToken(t, 1), RefreshToken: "ref"},
		user:        &models.User{},
		refreshPair: authclient.TokenPair{AccessToken: "acc-2"},
	}
	store := newMapStore()
	m := newLoggedIn(t, auth, store)

	pair, err := m.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CredentialPair{AccessToken: "acc-2", RefreshToken: "ref"}, pair)

	auth.refreshPair = authclient.TokenPair{AccessToken: "acc-3", RefreshToken: "ref-3"}
	pair, err = m.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CredentialPair{AccessToken: "acc-3", RefreshToken: "ref-3"}, pair)
	assert.Equal(t, []string{"ref", "ref"}, auth.refreshSeen)

	v, _, _ := store.Get(context.Background(), KeyToken)
	assert.Equal(t, "acc-3", v)
	v, _, _ = store.Get(context.Background(), KeyRefreshToken)
	assert.Equal(t, "ref-3", v)
}

func TestRefresh_FailureClearsAndRedirects(t *testing.T) {
	t.Parallel()

	var redirects atomic.Int32
	cause := &apierr.StatusError{Op: "auth.refresh", Status: 500, Kind: apierr.ErrTransient}
	auth := &stubAuth{
		loginPair:  authclient.TokenPair{AccessToken: accessToken(t, 1), RefreshToken: "ref"},
		user:       &models.User{},
		refreshErr: cause,
	}
	store := newMapStore()
	m := newLoggedIn(t, auth, store, WithLoginRedirect(func() { redirects.Add(1) }))

	_, err := m.Refresh(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apierr.ErrAuthentication)
	assert.ErrorIs(t, err, apierr.ErrTransient)
	assert.False(t, m.IsAuthenticated())
	assert.Nil(t, m.User())
	assert.Equal(t, int32(1), redirects.Load())

	_, ok, _ := store.Get(context.Background(), KeyToken)
	assert.False(t, ok)
}

func TestRefresh_NoRefreshToken(t *testing.T) {
	t.Parallel()

	var redirects atomic.Int32
	auth := &stubAuth{
		loginPair: authclient.TokenPair{AccessToken: accessToken(t, 1)},
		user:      &models.User{},
	}
	m := newLoggedIn(t, auth, nil, WithLoginRedirect(func() { redirects.Add(1) }))

	_, err := m.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrNoRefreshToken)
	assert.ErrorIs(t, err, apierr.ErrAuthentication)
	assert.Equal(t, int32(0), auth.refreshCalls.Load())
	assert.False(t, m.IsAuthenticated())
	assert.Equal(t, int32(1), redirects.Load())
}

func TestRecoverFrom_AfterFailedRefreshRedirectsOnce(t *testing.T) {
	t.Parallel()

	var redirects atomic.Int32
	auth := &stubAuth{
		loginPair:  authclient.TokenPair{AccessToken: accessToken(t, 1), RefreshToken: "ref"},
		user:       &models.User{},
		refreshErr: &apierr.StatusError{Op: "auth.refresh", Status: 401, Kind: apierr.ErrAuthentication},
	}
	m := newLoggedIn(t, auth, nil, WithLoginRedirect(func() { redirects.Add(1) }))
	stale := m.AccessToken()
	ctx := context.Background()

	_, err := m.RecoverFrom(ctx, stale)
	require.ErrorIs(t, err, apierr.ErrAuthentication)
	require.False(t, m.IsAuthenticated())

	// a second request sent with the same token comes back after sign-out
	_, err = m.RecoverFrom(ctx, stale)
	assert.ErrorIs(t, err, ErrNoRefreshToken)
	assert.Equal(t, int32(1), auth.refreshCalls.Load())
	assert.Equal(t, int32(1), redirects.Load())
}

func TestRecoverFrom_SkipsWhenAlreadyRefreshed(t *testing.T) {
	t.Parallel()

	auth := &stubAuth{
		loginPair:   authclient.TokenPair{AccessToken: accessToken(t, 1), RefreshToken: "ref"},
		user:        &models.User{},
		refreshPair: authclient.TokenPair{AccessToken: "acc-2"},
	}
	m := newLoggedIn(t, auth, nil)
	stale := m.AccessToken()

	fresh, err := m.RecoverFrom(context.Background(), stale)
	require.NoError(t, err)
	assert.Equal(t, "acc-2", fresh)

	// a late 401 carrying the old token reuses the result
	again, err := m.RecoverFrom(context.Background(), stale)
	require.NoError(t, err)
	assert.Equal(t, "acc-2", again)
	assert.Equal(t, int32(1), auth.refreshCalls.Load())
}

func TestRefresh_DiscardedAfterLogout(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	auth := &stubAuth{
		loginPair:   authclient.TokenPair{AccessToken: accessToken(t, 1), RefreshToken: "ref"},
		user:        &models.User{},
		refreshPair: authclient.TokenPair{AccessToken: "acc-2"},
		refreshGate: gate,
	}
	store := newMapStore()
	m := newLoggedIn(t, auth, store)

	done := make(chan error, 1)
	go func() {
		_, err := m.Refresh(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool { return auth.refreshCalls.Load() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, m.Logout(context.Background()))
	close(gate)

	err := <-done
	assert.ErrorIs(t, err, apierr.ErrAuthentication)
	assert.False(t, m.IsAuthenticated())
	_, ok, _ := store.Get(context.Background(), KeyToken)
	assert.False(t, ok)
}

func TestRefresh_CallerCancelDoesNotAbortSharedRefresh(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	auth := &stubAuth{
		loginPair:   authclient.TokenPair{AccessToken: accessToken(t, 1), RefreshToken: "ref"},
		user:        &models.User{},
		refreshPair: authclient.TokenPair{AccessToken: "acc-2"},
		refreshGate: gate,
	}
	m := newLoggedIn(t, auth, nil)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := m.Refresh(ctx)
		first <- err
	}()
	require.Eventually(t, func() bool { return auth.refreshCalls.Load() == 1 }, time.Second, 5*time.Millisecond)

	second := make(chan CredentialPair, 1)
	go func() {
		p, _ := m.Refresh(context.Background())
		second <- p
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-first, context.Canceled)

	close(gate)
	assert.Equal(t, "acc-2", (<-second).AccessToken)
	assert.Equal(t, int32(1), auth.refreshCalls.Load())
}

func TestLogout_ClearsEvenWhenServerFails(t *testing.T) {
	t.Parallel()

	auth := &stubAuth{
		loginPair: authclient.TokenPair{AccessToken: accessToken(t, 1), RefreshToken: "ref"},
		user:      &models.User{},
		logoutErr: errors.New("connection refused"),
	}
	store := newMapStore()
	m := newLoggedIn(t, auth, store)

	require.NoError(t, m.Logout(context.Background()))
	assert.Equal(t, 1, auth.logoutCalls)
	assert.False(t, m.IsAuthenticated())
	for _, k := range []string{KeyToken, KeyRefreshToken, KeyUser} {
		_, ok, _ := store.Get(context.Background(), k)
		assert.False(t, ok, k)
	}

	// already logged out: no server call
	require.NoError(t, m.Logout(context.Background()))
	assert.Equal(t, 1, auth.logoutCalls)
}

func TestRestore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newMapStore()
	require.NoError(t, store.Set(ctx, KeyToken, "acc"))
	require.NoError(t, store.Set(ctx, KeyRefreshToken, "ref"))
	require.NoError(t, store.Set(ctx, KeyUser, `{"id":3,"email":"a@x.com","role":"shipper"}`))

	auth := &stubAuth{}
	m := NewManager(auth, store)
	require.NoError(t, m.Restore(ctx))

	assert.True(t, m.IsAuthenticated())
	assert.Equal(t, "acc", m.AccessToken())
	assert.Equal(t, uint(3), m.User().ID)
	assert.Equal(t, models.RoleShipper, m.User().Role)
	assert.Equal(t, "ref", m.Snapshot().Credentials.RefreshToken)
	assert.Equal(t, 0, auth.loginCalls+auth.userCalls)
	assert.Equal(t, int32(0), auth.refreshCalls.Load())
}

func TestRestore_EmptyAndMalformed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewManager(&stubAuth{}, newMapStore())
	require.NoError(t, m.Restore(ctx))
	assert.False(t, m.IsAuthenticated())

	store := newMapStore()
	require.NoError(t, store.Set(ctx, KeyToken, "acc"))
	require.NoError(t, store.Set(ctx, KeyUser, `{"id":`))
	m = NewManager(&stubAuth{}, store)
	assert.ErrorIs(t, m.Restore(ctx), apierr.ErrDecode)
	assert.False(t, m.IsAuthenticated())
}

type failingStore struct{ *mapStore }

func (f *failingStore) Set(context.Context, string, string) error {
	return fmt.Errorf("disk full")
}

func TestLogin_PersistFailureKeepsMemorySession(t *testing.T) {
	t.Parallel()

	auth := &stubAuth{
		loginPair: authclient.TokenPair{AccessToken: accessToken(t, 1), RefreshToken: "ref"},
		user:      &models.User{},
	}
	m := NewManager(auth, &failingStore{mapStore: newMapStore()})
	_, err := m.Login(context.Background(), Credentials{Email: "a@x.com", Password: "p"})
	require.NoError(t, err)
	assert.True(t, m.IsAuthenticated())
}

func TestInvalidate(t *testing.T) {
	t.Parallel()

	var redirects atomic.Int32
	auth := &stubAuth{
		loginPair: authclient.TokenPair{AccessToken: accessToken(t, 1), RefreshToken: "ref"},
		user:      &models.User{},
	}
	m := newLoggedIn(t, auth, nil, WithLoginRedirect(func() { redirects.Add(1) }))

	m.Invalidate(context.Background(), "test")
	assert.False(t, m.IsAuthenticated())
	assert.Equal(t, int32(1), redirects.Load())
}
