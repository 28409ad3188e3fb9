package webserver

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

// Operator roles
const (
	RoleAdmin    = "ADMIN"
	RoleOperator = "OPERATOR"
)

const userContextKey = "user"

// OperatorClaims bearer token claims. Tokens are issued by the identity
// provider, the service only verifies them.
type OperatorClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// JWTAuth verifies HS256 bearer tokens signed with secret
func JWTAuth(secret string) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(secret),
		ContextKey: userContextKey,
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(OperatorClaims)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusUnauthorized, ErrorBody{
				Error:   "UNAUTHORIZED",
				Message: "Missing or invalid token",
			})
		},
	})
}

// CurrentOperator returns the verified claims of the request, nil when absent
func CurrentOperator(c echo.Context) *OperatorClaims {
	tok, ok := c.Get(userContextKey).(*jwt.Token)
	if !ok || tok == nil {
		return nil
	}
	claims, _ := tok.Claims.(*OperatorClaims)
	return claims
}

// RequireRole rejects operators whose role is not listed
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			op := CurrentOperator(c)
			if op != nil {
				for _, r := range roles {
					if op.Role == r {
						return next(c)
					}
				}
			}
			return c.JSON(http.StatusForbidden, ErrorBody{
				Error:   "FORBIDDEN",
				Message: "Operation requires role " + roles[0],
			})
		}
	}
}

// IssueToken signs a token for an operator (cli and tests)
func IssueToken(secret, username, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := OperatorClaims{
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
