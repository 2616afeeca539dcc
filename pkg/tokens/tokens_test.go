package tokens

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeUnverified_ReadsUserID(t *testing.T) {
	t.Parallel()

	tok, err := SignAccess(AccessClaims{
		UserID: 42,
		Email:  "a@x.com",
		Role:   "customer",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}, []byte("server-only-secret"))
	require.NoError(t, err)

	// expired and signed with a key the client never sees: still decodable
	claims, err := DecodeUnverified(tok)
	require.NoError(t, err)

	id, err := claims.Identity()
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, "customer", claims.Role)
}

func TestDecodeUnverified_SubjectFallback(t *testing.T) {
	t.Parallel()

	tok, err := SignAccess(AccessClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "17"}}, []byte("k"))
	require.NoError(t, err)

	claims, err := DecodeUnverified(tok)
	require.NoError(t, err)
	id, err := claims.Identity()
	require.NoError(t, err)
	assert.Equal(t, uint(17), id)
}

func TestDecodeUnverified_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not-a-jwt"},
		{name: "two segments", token: "abc.def"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := DecodeUnverified(tt.token)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestIdentity_Missing(t *testing.T) {
	t.Parallel()

	_, err := (&AccessClaims{}).Identity()
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = (&AccessClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: uuid.NewString()}}).Identity()
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestAccessClaimsFromToken_Verifies(t *testing.T) {
	t.Parallel()

	secret := []byte("test-jwt-secret")
	tok, err := SignAccess(AccessClaims{UserID: 3, Role: "admin", RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}, secret)
	require.NoError(t, err)

	claims, err := AccessClaimsFromToken(tok, secret)
	require.NoError(t, err)
	assert.Equal(t, uint(3), claims.UserID)

	_, err = AccessClaimsFromToken(tok, []byte("other"))
	assert.Error(t, err)
}

func TestRefreshClaimsFromToken(t *testing.T) {
	t.Parallel()

	secret := []byte("test-refresh-secret")
	jti := uuid.NewString()
	tok, err := SignRefresh(RefreshClaims{UserID: 9, RegisteredClaims: jwt.RegisteredClaims{
		ID:        jti,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}, secret)
	require.NoError(t, err)

	claims, err := RefreshClaimsFromToken(tok, secret)
	require.NoError(t, err)
	assert.Equal(t, jti, claims.ID)
	assert.Equal(t, uint(9), claims.UserID)

	_, err = RefreshClaimsFromToken("not-a-valid-jwt", secret)
	assert.Error(t, err)
}
