package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/24ep/mdm-sub019/pkg/jwtutil"
	"github.com/24ep/mdm-sub019/pkg/logger"
	"github.com/24ep/mdm-sub019/prometheus"
)

// AuthMiddleware validates the JWT token from the Authorization header
// and places the caller identity (user id, email, allowed space ids) in
// the request context.
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		// Get the Authorization header
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			log.Error("Missing Authorization header")
			prometheus.RecordAuthError("missing_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
		}

		// Check if it's a Bearer token
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			log.Error("Invalid Authorization header format")
			prometheus.RecordAuthError("invalid_auth_format")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization format, expected Bearer token"})
		}

		// Validate the token
		claims, err := jwtutil.ValidateToken(parts[1])
		if err != nil {
			log.Error("Invalid JWT token", zap.Error(err))
			prometheus.RecordAuthError("invalid_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
		}

		// Store caller identity in context for later use
		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("space_ids", claims.SpaceIDs)

		log.Debug("Request authenticated",
			zap.Uint("user_id", claims.UserID),
			zap.Int("space_count", len(claims.SpaceIDs)))

		// Token is valid, proceed with the request
		return next(c)
	}
}

// CallerID extracts the authenticated user id from the context; zero when
// the request is unauthenticated.
func CallerID(c echo.Context) uint {
	if id, ok := c.Get("user_id").(uint); ok {
		return id
	}
	return 0
}

// CallerSpaces extracts the caller's allowed space ids from the context.
func CallerSpaces(c echo.Context) []uint {
	if ids, ok := c.Get("space_ids").([]uint); ok {
		return ids
	}
	return nil
}

// CallerInSpace reports whether the caller's claims grant the given
// space. A caller with no space grants is in no space.
func CallerInSpace(c echo.Context, spaceID uint) bool {
	for _, id := range CallerSpaces(c) {
		if id == spaceID {
			return true
		}
	}
	return false
}
