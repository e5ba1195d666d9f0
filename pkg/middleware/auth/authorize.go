package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"

	principalKey = "principal"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID string
	Email  string
	Role   string
	// ViaCookie is set when the token came from the accessToken cookie rather
	// than an Authorization header.
	ViaCookie bool
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

type RolePredicate func(p Principal) bool

func AnyRole(Principal) bool { return true }

func HasRole(role string) RolePredicate {
	return func(p Principal) bool { return p.Role == role }
}

type Authorizer struct {
	Secret []byte
}

func NewAuthorizer(secret []byte) *Authorizer {
	return &Authorizer{Secret: secret}
}

func (a *Authorizer) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return a.Require(AnyRole)(next)
}

func (a *Authorizer) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return a.Require(HasRole(RoleAdmin))(next)
}

func (a *Authorizer) Require(pred RolePredicate) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			l := logging.FromContext(c.Request().Context()).With("mw", "auth")

			p, err := a.Authenticate(c)
			if err != nil {
				l.Warn("auth_error", "status", 401, "error", err)
				return err
			}
			if pred != nil && !pred(p) {
				l.Warn("auth_error", "status", 403, "user_id", p.UserID, "role", p.Role)
				return echo.NewHTTPError(http.StatusForbidden, "forbidden")
			}

			c.Set(principalKey, p)
			c.Set("user_id", p.UserID)
			c.Set("role", p.Role)
			return next(c)
		}
	}
}

// Authenticate resolves the principal from the bearer header or the access cookie.
func (a *Authorizer) Authenticate(c echo.Context) (Principal, error) {
	raw, viaCookie := tokenFromRequest(c)
	if raw == "" {
		return Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
	}

	claims, err := tokens.AccessClaimsFromToken(raw, a.Secret)
	if err != nil || claims == nil || claims.Subject == "" {
		return Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
	}

	return Principal{
		UserID:    claims.Subject,
		Email:     claims.Email,
		Role:      claims.Role,
		ViaCookie: viaCookie,
	}, nil
}

func PrincipalFrom(c echo.Context) (Principal, bool) {
	p, ok := c.Get(principalKey).(Principal)
	return p, ok
}

func tokenFromRequest(c echo.Context) (string, bool) {
	if h := c.Request().Header.Get(echo.HeaderAuthorization); h != "" {
		const prefix = "bearer "
		if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
			return strings.TrimSpace(h[len(prefix):]), false
		}
	}
	if ck, err := c.Cookie(tokens.AccessCookie); err == nil && ck.Value != "" {
		return ck.Value, true
	}
	return "", false
}
