// Package fakeapi is an in-memory implementation of the food delivery REST
// surface. It answers with the same shapes as the production services and
// lets tests revoke access tokens, count refreshes and fail them on demand.
package fakeapi

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Skotchmaster/food_delivery/internal/hash"
	"github.com/Skotchmaster/food_delivery/internal/models"
	"github.com/Skotchmaster/food_delivery/pkg/logging"
	"github.com/Skotchmaster/food_delivery/pkg/tokens"
)

var (
	ErrUnknownToken = errors.New("token is not active")
	ErrEmailTaken   = errors.New("email already registered")
)

type Options struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// RotateRefresh makes refresh-token answer with a new refresh token.
	// The production service only returns a new access token.
	RotateRefresh bool
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
	Publisher  LocationPublisher
	Logger     *slog.Logger
}

type userRecord struct {
	user         models.User
	passwordHash string
	refreshID    string
}

type Server struct {
	secret        []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	rotateRefresh bool
	cost          int
	publisher     LocationPublisher
	log           *slog.Logger

	mu          sync.Mutex
	lastID      uint
	users       map[uint]*userRecord
	restaurants map[uint]*models.Restaurant
	orders      map[uint]*models.Order
	shippers    map[uint]*models.Shipper
	locations   map[uint]models.Location
	active      map[string]uint
	resets      map[string]uint

	refreshCalls atomic.Int64
	failRefresh  atomic.Bool
}

func New(opts Options) *Server {
	if len(opts.Secret) == 0 {
		opts.Secret = []byte(uuid.NewString())
	}
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 15 * time.Minute
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 7 * 24 * time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &Server{
		secret:        opts.Secret,
		accessTTL:     opts.AccessTTL,
		refreshTTL:    opts.RefreshTTL,
		rotateRefresh: opts.RotateRefresh,
		cost:          opts.BcryptCost,
		publisher:     opts.Publisher,
		log:           opts.Logger.With("component", "fakeapi"),
		users:         map[uint]*userRecord{},
		restaurants:   map[uint]*models.Restaurant{},
		orders:        map[uint]*models.Order{},
		shippers:      map[uint]*models.Shipper{},
		locations:     map[uint]models.Location{},
		active:        map[string]uint{},
		resets:        map[string]uint{},
	}
}

// ExpireAccessTokens revokes every access token issued so far. Refresh
// tokens stay valid.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	clear(s.active)
	s.mu.Unlock()
	s.log.Info("access_tokens_expired")
}

func (s *Server) FailRefresh(fail bool) {
	s.failRefresh.Store(fail)
}

func (s *Server) RefreshCalls() int {
	return int(s.refreshCalls.Load())
}

// PendingResetToken returns the token a forgot-password request would have
// mailed to email.
func (s *Server) PendingResetToken(email string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for tok, id := range s.resets {
		if u, ok := s.users[id]; ok && u.user.Email == email {
			return tok, true
		}
	}
	return "", false
}

// Authenticate accepts a signed, unexpired access token that has not been
// revoked.
func (s *Server) Authenticate(token string) (*tokens.AccessClaims, error) {
	claims, err := tokens.AccessClaimsFromToken(token, s.secret)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	_, ok := s.active[token]
	s.mu.Unlock()
	if !ok {
		return nil, ErrUnknownToken
	}
	return claims, nil
}

// issueLocked signs a new pair for u. The caller holds s.mu.
func (s *Server) issueLocked(u *userRecord) (access, refresh string, err error) {
	now := time.Now()
	access, err = tokens.SignAccess(tokens.AccessClaims{
		UserID: u.user.ID,
		Email:  u.user.Email,
		Role:   u.user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}, s.secret)
	if err != nil {
		return "", "", fmt.Errorf("sign access token: %w", err)
	}

	jti := uuid.NewString()
	refresh, err = tokens.SignRefresh(tokens.RefreshClaims{
		UserID: u.user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.refreshTTL)),
		},
	}, s.secret)
	if err != nil {
		return "", "", fmt.Errorf("sign refresh token: %w", err)
	}

	s.active[access] = u.user.ID
	u.refreshID = jti
	return access, refresh, nil
}

func (s *Server) nextIDLocked() uint {
	s.lastID++
	return s.lastID
}

func (s *Server) userByEmailLocked(email string) *userRecord {
	for _, u := range s.users {
		if u.user.Email == email {
			return u
		}
	}
	return nil
}

// AddUser seeds a user with a plain password.
func (s *Server) AddUser(u models.User, password string) (models.User, error) {
	h, err := hash.HashPasswordCost(password, s.cost)
	if err != nil {
		return models.User{}, err
	}
	if u.Role == "" {
		u.Role = models.RoleCustomer
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userByEmailLocked(u.Email) != nil {
		return models.User{}, fmt.Errorf("%w: %s", ErrEmailTaken, u.Email)
	}
	u.ID = s.nextIDLocked()
	s.users[u.ID] = &userRecord{user: u, passwordHash: h}
	return u, nil
}

// AddRestaurant seeds a restaurant together with its menu.
func (s *Server) AddRestaurant(r models.Restaurant) models.Restaurant {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.nextIDLocked()
	if r.Status == "" {
		r.Status = models.RestaurantOpen
	}
	for i := range r.MenuItems {
		r.MenuItems[i].ID = s.nextIDLocked()
		r.MenuItems[i].RestaurantID = r.ID
	}
	s.restaurants[r.ID] = r.Clone()
	return *r.Clone()
}

func (s *Server) AddShipper(sh models.Shipper) models.Shipper {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh.ID = s.nextIDLocked()
	if sh.Status == "" {
		sh.Status = models.ShipperAvailable
	}
	if sh.Location != nil {
		s.locations[sh.ID] = *sh.Location
		sh.Location = nil
	}
	s.shippers[sh.ID] = sh.Clone()
	return sh
}

// Order returns the stored order, for assertions.
func (s *Server) Order(id uint) (*models.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	return o.Clone(), ok
}
