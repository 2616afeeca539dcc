package authmw

import (
	"net/http"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/food_delivery/pkg/tokens"
)

const claimsKey = "claims"

// Verifier checks a raw bearer token and returns its claims.
type Verifier interface {
	Authenticate(token string) (*tokens.AccessClaims, error)
}

type Bearer struct {
	v Verifier
}

func NewBearer(v Verifier) *Bearer {
	return &Bearer{v: v}
}

type ValidatorFunc func(claims *tokens.AccessClaims) error

func (m *Bearer) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return m.requireAuthWithValidator(next, nil)
}

// RequireRole lets the request through only for the listed roles. A wrong
// role is a 403 so clients do not mistake it for an expired token.
func (m *Bearer) RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return m.requireAuthWithValidator(next, func(claims *tokens.AccessClaims) error {
			if !slices.Contains(roles, claims.Role) {
				return echo.NewHTTPError(http.StatusForbidden, "role "+claims.Role+" is not allowed")
			}
			return nil
		})
	}
}

func (m *Bearer) requireAuthWithValidator(next echo.HandlerFunc, validator ValidatorFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
		}

		claims, err := m.v.Authenticate(token)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
		}
		if validator != nil {
			if err := validator(claims); err != nil {
				return err
			}
		}

		c.Set(claimsKey, claims)
		return next(c)
	}
}

// Claims returns the claims stored by RequireAuth or RequireRole.
func Claims(c echo.Context) (*tokens.AccessClaims, bool) {
	claims, ok := c.Get(claimsKey).(*tokens.AccessClaims)
	return claims, ok && claims != nil
}
