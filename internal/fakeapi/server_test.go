package fakeapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Skotchmaster/food_delivery/internal/models"
	"github.com/Skotchmaster/food_delivery/pkg/tokens"
)

func newServer(t *testing.T, opts Options) *Server {
	t.Helper()
	opts.BcryptCost = bcrypt.MinCost
	return New(opts)
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()
	s := newServer(t, Options{Secret: []byte("k")})
	u, err := s.AddUser(models.User{Email: "an@example.com", Role: models.RoleShipper}, "pw")
	require.NoError(t, err)

	s.mu.Lock()
	access, _, err := s.issueLocked(s.users[u.ID])
	s.mu.Unlock()
	require.NoError(t, err)

	claims, err := s.Authenticate(access)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, models.RoleShipper, claims.Role)

	// the client side reads the same claims without the key
	unverified, err := tokens.DecodeUnverified(access)
	require.NoError(t, err)
	id, err := unverified.Identity()
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)

	s.ExpireAccessTokens()
	_, err = s.Authenticate(access)
	assert.ErrorIs(t, err, ErrUnknownToken)

	_, err = s.Authenticate("not.a.token")
	assert.Error(t, err)
}

func TestAuthenticate_Expired(t *testing.T) {
	t.Parallel()
	s := newServer(t, Options{AccessTTL: time.Nanosecond})
	u, err := s.AddUser(models.User{Email: "an@example.com"}, "pw")
	require.NoError(t, err)

	s.mu.Lock()
	access, _, err := s.issueLocked(s.users[u.ID])
	s.mu.Unlock()
	require.NoError(t, err)

	time.Sleep(1100 * time.Millisecond)
	_, err = s.Authenticate(access)
	assert.Error(t, err)
}

func TestSeeds(t *testing.T) {
	t.Parallel()
	s := newServer(t, Options{})

	u, err := s.AddUser(models.User{Email: "an@example.com"}, "pw")
	require.NoError(t, err)
	assert.Equal(t, models.RoleCustomer, u.Role)
	_, err = s.AddUser(models.User{Email: "an@example.com"}, "pw")
	assert.ErrorIs(t, err, ErrEmailTaken)

	r := s.AddRestaurant(models.Restaurant{Name: "Bun cha", MenuItems: []models.MenuItem{{Name: "a"}, {Name: "b"}}})
	assert.Equal(t, models.RestaurantOpen, r.Status)
	for _, m := range r.MenuItems {
		assert.Equal(t, r.ID, m.RestaurantID)
		assert.NotZero(t, m.ID)
	}

	sh := s.AddShipper(models.Shipper{UserID: u.ID, Location: &models.Location{Latitude: 1, Longitude: 2}})
	assert.Equal(t, models.ShipperAvailable, sh.Status)
	assert.Nil(t, sh.Location)
	assert.Equal(t, models.Location{Latitude: 1, Longitude: 2}, s.locations[sh.ID])

	_, ok := s.Order(99)
	assert.False(t, ok)
	assert.False(t, s.AssignShipper(99, sh.ID, r.MenuItems[0].Price))
}
