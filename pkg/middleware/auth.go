package middleware

import (
	"net/http"
	"strings"

	"buy01/pkg/jwtutil"
	"buy01/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const principalKey = "principal"

// Principal is the authenticated caller, built once from token claims by the
// auth middleware. Handlers read it from the context instead of looking the
// user entity up again.
type Principal struct {
	ID    string
	Email string
	Role  string
}

// IsSeller reports whether the principal holds the SELLER role
func (p Principal) IsSeller() bool {
	return p.Role == "SELLER"
}

// JWTAuth creates a middleware that validates JWT tokens and stores the
// authenticated Principal in the request context
func JWTAuth(jwtUtil *jwtutil.JWTUtil) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)

			// Extract the token from the Authorization header
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				log.Warn("Missing authorization header")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization header"})
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				log.Warn("Invalid authorization header format")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization header format"})
			}

			claims, err := jwtUtil.ValidateToken(parts[1])
			if err != nil {
				log.Warn("Invalid or expired token", zap.Error(err))
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
			}

			c.Set(principalKey, Principal{
				ID:    claims.UserID,
				Email: claims.Email,
				Role:  claims.Role,
			})
			log.Debug("JWT token validated successfully",
				zap.String("user_id", claims.UserID),
				zap.String("role", claims.Role))

			return next(c)
		}
	}
}

// RequireRole creates a middleware that rejects requests whose principal does
// not hold one of the given roles. Must run after JWTAuth.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := GetPrincipal(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}
			for _, role := range roles {
				if p.Role == role {
					return next(c)
				}
			}
			logger.FromEcho(c).Warn("Insufficient role",
				zap.String("user_id", p.ID),
				zap.String("role", p.Role))
			return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient permissions"})
		}
	}
}

// GetPrincipal retrieves the authenticated principal from the context
func GetPrincipal(c echo.Context) (Principal, bool) {
	p, ok := c.Get(principalKey).(Principal)
	return p, ok
}
