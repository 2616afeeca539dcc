package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Skotchmaster/food_delivery/internal/models"
	"github.com/Skotchmaster/food_delivery/pkg/apierr"
	"github.com/Skotchmaster/food_delivery/pkg/authclient"
	"github.com/Skotchmaster/food_delivery/pkg/logging"
	"github.com/Skotchmaster/food_delivery/pkg/tokens"
)

var ErrNoRefreshToken = fmt.Errorf("%w: no refresh token", apierr.ErrAuthentication)

type AuthAPI interface {
	Login(ctx context.Context, email, password string) (authclient.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (authclient.TokenPair, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context, id uint, bearer string) (*models.User, error)
	Register(ctx context.Context, req authclient.RegisterRequest) (*models.User, error)
	ResetPassword(ctx context.Context, oldPassword, newPassword string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetForgotPassword(ctx context.Context, resetToken, newPassword string) error
}

type CredentialPair struct {
	AccessToken  string
	RefreshToken string
}

type Session struct {
	User        *models.User
	Credentials *CredentialPair
}

type Credentials struct {
	Email    string
	Password string
}

const (
	defaultRefreshTimeout = 10 * time.Second
	defaultLogoutTimeout  = 3 * time.Second
)

// Manager holds the one active session of the process. Transport reads the
// access token from it and asks it to recover after a 401.
type Manager struct {
	auth  AuthAPI
	store Store
	log   *slog.Logger

	refreshTimeout time.Duration
	logoutTimeout  time.Duration
	onLoginNeeded  func()

	mu   sync.RWMutex
	user *models.User
	pair *CredentialPair
	// gen changes whenever the session identity changes, so a refresh that
	// started before a logout or a new login cannot overwrite it.
	gen uint64

	flight singleflight.Group
}

type Option func(*Manager)

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithLoginRedirect sets the hook fired when the user has to sign in again.
func WithLoginRedirect(fn func()) Option {
	return func(m *Manager) { m.onLoginNeeded = fn }
}

func WithRefreshTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.refreshTimeout = d
		}
	}
}

func WithLogoutTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.logoutTimeout = d
		}
	}
}

func NewManager(auth AuthAPI, store Store, opts ...Option) *Manager {
	if store == nil {
		store = nopStore{}
	}
	m := &Manager{
		auth:           auth,
		store:          store,
		log:            logging.Discard(),
		refreshTimeout: defaultRefreshTimeout,
		logoutTimeout:  defaultLogoutTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Login(ctx context.Context, cred Credentials) (Session, error) {
	const op = "session.login"
	log := m.log.With("handler", "Login")

	pair, err := m.auth.Login(ctx, cred.Email, cred.Password)
	if err != nil {
		log.Warn("login_failed", "err", err)
		return Session{}, err
	}

	claims, err := tokens.DecodeUnverified(pair.AccessToken)
	if err != nil {
		log.Warn("login_token_malformed", "err", err)
		return Session{}, apierr.Decode(op, err)
	}
	id, err := claims.Identity()
	if err != nil {
		log.Warn("login_token_malformed", "err", err)
		return Session{}, apierr.Decode(op, err)
	}

	user, err := m.auth.CurrentUser(ctx, id, pair.AccessToken)
	if err != nil {
		log.Warn("login_user_lookup_failed", "user_id", id, "err", err)
		return Session{}, err
	}

	m.mu.Lock()
	m.gen++
	m.user = user.Clone()
	m.pair = &CredentialPair{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.persist(ctx, snap)
	log.Info("login_succeeded", "user_id", user.ID, "role", user.Role)
	return snap, nil
}

// Logout always clears the local session. The server call is best effort
// and its failure is only logged.
func (m *Manager) Logout(ctx context.Context) error {
	log := m.log.With("handler", "Logout")

	if m.IsAuthenticated() {
		callCtx, cancel := context.WithTimeout(ctx, m.logoutTimeout)
		if err := m.auth.Logout(callCtx); err != nil {
			log.Warn("logout_server_failed", "err", err)
		}
		cancel()
	}

	m.mu.Lock()
	m.gen++
	m.user = nil
	m.pair = nil
	m.mu.Unlock()

	if err := m.store.Delete(context.WithoutCancel(ctx), KeyToken, KeyRefreshToken, KeyUser); err != nil {
		log.Error("session_clear_failed", "err", err)
		return fmt.Errorf("clear session storage: %w", err)
	}
	log.Info("logged_out")
	return nil
}

// Refresh mints a new credential pair. Concurrent callers share one
// request; a failure clears the session and fires the login redirect.
func (m *Manager) Refresh(ctx context.Context) (CredentialPair, error) {
	return m.refresh(ctx, "")
}

// RecoverFrom is called after the server rejected staleAccessToken. When the
// session already holds a different token another caller has refreshed, and
// that token is returned without a network call.
func (m *Manager) RecoverFrom(ctx context.Context, staleAccessToken string) (string, error) {
	if cur := m.AccessToken(); cur != "" && cur != staleAccessToken {
		m.log.Debug("refresh_already_done")
		return cur, nil
	}
	pair, err := m.refresh(ctx, staleAccessToken)
	if err != nil {
		return "", err
	}
	return pair.AccessToken, nil
}

func (m *Manager) refresh(ctx context.Context, stale string) (CredentialPair, error) {
	ch := m.flight.DoChan("refresh", func() (any, error) {
		return m.doRefresh(context.WithoutCancel(ctx), stale)
	})

	select {
	case res := <-ch:
		if res.Shared {
			m.log.Debug("refresh_single_flight")
		}
		if res.Err != nil {
			return CredentialPair{}, res.Err
		}
		return res.Val.(CredentialPair), nil
	case <-ctx.Done():
		return CredentialPair{}, ctx.Err()
	}
}

func (m *Manager) doRefresh(ctx context.Context, stale string) (CredentialPair, error) {
	log := m.log.With("handler", "Refresh")

	m.mu.RLock()
	gen := m.gen
	var refreshToken string
	if m.pair != nil {
		// a flight that landed between the caller's check and this one
		if stale != "" && m.pair.AccessToken != stale {
			cur := *m.pair
			m.mu.RUnlock()
			return cur, nil
		}
		refreshToken = m.pair.RefreshToken
	} else if stale != "" {
		// signed out after the rejected request went out
		m.mu.RUnlock()
		log.Debug("refresh_after_sign_out")
		return CredentialPair{}, ErrNoRefreshToken
	}
	m.mu.RUnlock()

	if refreshToken == "" {
		log.Info("refresh_unavailable")
		m.invalidate(ctx, gen, "no refresh token")
		return CredentialPair{}, ErrNoRefreshToken
	}

	callCtx, cancel := context.WithTimeout(ctx, m.refreshTimeout)
	defer cancel()

	resp, err := m.auth.Refresh(callCtx, refreshToken)
	if err != nil {
		log.Warn("refresh_failed", "err", err)
		m.invalidate(ctx, gen, "refresh failed")
		return CredentialPair{}, fmt.Errorf("%w: refresh failed: %w", apierr.ErrAuthentication, err)
	}

	m.mu.Lock()
	if m.gen != gen {
		cur := m.pair
		m.mu.Unlock()
		log.Info("refresh_discarded")
		if cur == nil {
			return CredentialPair{}, fmt.Errorf("%w: session ended during refresh", apierr.ErrAuthentication)
		}
		return *cur, nil
	}
	next := CredentialPair{AccessToken: resp.AccessToken, RefreshToken: refreshToken}
	if resp.RefreshToken != "" {
		next.RefreshToken = resp.RefreshToken
	}
	m.pair = &next
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.persist(ctx, snap)
	log.Info("refresh_succeeded", "rotated", resp.RefreshToken != "")
	return next, nil
}

// Restore loads a saved session without talking to the server. Token
// expiry is discovered on first use.
func (m *Manager) Restore(ctx context.Context) error {
	const op = "session.restore"

	token, ok, err := m.store.Get(ctx, KeyToken)
	if err != nil {
		return fmt.Errorf("%s: read token: %w", op, err)
	}
	if !ok || token == "" {
		return nil
	}
	refreshToken, _, err := m.store.Get(ctx, KeyRefreshToken)
	if err != nil {
		return fmt.Errorf("%s: read refresh token: %w", op, err)
	}
	rawUser, hasUser, err := m.store.Get(ctx, KeyUser)
	if err != nil {
		return fmt.Errorf("%s: read user: %w", op, err)
	}

	var user *models.User
	if hasUser && rawUser != "" {
		var u models.User
		if err := json.Unmarshal([]byte(rawUser), &u); err != nil {
			return apierr.Decode(op, err)
		}
		user = &u
	}

	m.mu.Lock()
	m.gen++
	m.user = user
	m.pair = &CredentialPair{AccessToken: token, RefreshToken: refreshToken}
	m.mu.Unlock()

	m.log.Info("session_restored", "has_user", user != nil, "has_refresh", refreshToken != "")
	return nil
}

// Invalidate drops the session after the server refused it for good.
func (m *Manager) Invalidate(ctx context.Context, reason string) {
	m.mu.RLock()
	gen := m.gen
	m.mu.RUnlock()
	m.invalidate(ctx, gen, reason)
}

func (m *Manager) invalidate(ctx context.Context, gen uint64, reason string) {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	m.gen++
	m.user = nil
	m.pair = nil
	m.mu.Unlock()

	if err := m.store.Delete(context.WithoutCancel(ctx), KeyToken, KeyRefreshToken, KeyUser); err != nil {
		m.log.Error("session_clear_failed", "err", err)
	}
	m.log.Info("session_invalidated", "reason", reason)
	if m.onLoginNeeded != nil {
		m.onLoginNeeded()
	}
}

func (m *Manager) persist(ctx context.Context, snap Session) {
	ctx = context.WithoutCancel(ctx)
	if snap.Credentials == nil {
		return
	}

	var errs []error
	errs = append(errs, m.store.Set(ctx, KeyToken, snap.Credentials.AccessToken))
	if snap.Credentials.RefreshToken != "" {
		errs = append(errs, m.store.Set(ctx, KeyRefreshToken, snap.Credentials.RefreshToken))
	} else {
		errs = append(errs, m.store.Delete(ctx, KeyRefreshToken))
	}
	if snap.User != nil {
		b, err := json.Marshal(snap.User)
		if err != nil {
			errs = append(errs, err)
		} else {
			errs = append(errs, m.store.Set(ctx, KeyUser, string(b)))
		}
	}

	if err := errors.Join(errs...); err != nil {
		m.log.Error("session_persist_failed", "err", err)
	}
}

func (m *Manager) snapshotLocked() Session {
	var s Session
	s.User = m.user.Clone()
	if m.pair != nil {
		p := *m.pair
		s.Credentials = &p
	}
	return s
}

func (m *Manager) Snapshot() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

func (m *Manager) IsAuthenticated() bool {
	return m.AccessToken() != ""
}

func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.pair == nil {
		return ""
	}
	return m.pair.AccessToken
}

func (m *Manager) User() *models.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user.Clone()
}

func (m *Manager) Register(ctx context.Context, req authclient.RegisterRequest) (*models.User, error) {
	return m.auth.Register(ctx, req)
}

func (m *Manager) ForgotPassword(ctx context.Context, email string) error {
	return m.auth.ForgotPassword(ctx, email)
}

func (m *Manager) ResetPassword(ctx context.Context, oldPassword, newPassword string) error {
	return m.auth.ResetPassword(ctx, oldPassword, newPassword)
}

func (m *Manager) ResetForgotPassword(ctx context.Context, resetToken, newPassword string) error {
	return m.auth.ResetForgotPassword(ctx, resetToken, newPassword)
}
