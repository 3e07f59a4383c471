package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const claimsKey = "auth.claims"

// RequireBearer rejects requests without a valid bearer token: 401 when the
// Authorization header is missing or malformed, 403 when the token does not
// verify. Paths for which skip returns true pass through untouched.
func RequireBearer(tokens *Tokens, logger *slog.Logger, skip func(echo.Context) bool) echo.MiddlewareFunc {
	logger = logger.With("component", "auth")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skip != nil && skip(c) {
				return next(c)
			}

			token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing or invalid Authorization header").SetInternal(ErrMissingToken)
			}

			claims, err := tokens.Verify(token)
			if err != nil {
				logger.Debug("token rejected",
					"err", err,
					"path", c.Request().URL.Path,
				)
				return echo.NewHTTPError(http.StatusForbidden, "Token expired or invalid").SetInternal(err)
			}

			c.Set(claimsKey, claims)
			return next(c)
		}
	}
}

// ClaimsFrom returns the claims stored by RequireBearer.
func ClaimsFrom(c echo.Context) (*Claims, bool) {
	claims, ok := c.Get(claimsKey).(*Claims)
	return claims, ok
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
