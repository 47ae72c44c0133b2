// SPDX-License-Identifier: GPL-3.0-only

package middlewares

import (
	"errors"
	"net/http"
	"vulnmgr-server/apitokens"
	"vulnmgr-server/models"
	"vulnmgr-server/sessions"

	"github.com/labstack/echo/v4"
)

const SessionCookieName = "session_id"

// SessionAuth resolves the session cookie to a session and user and
// stores both in the request context. Forged, expired and unknown
// credentials all produce the same 401; only store failures become 500.
func SessionAuth(manager *sessions.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			logger := c.Logger()

			cookie, err := c.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				return &echo.HTTPError{
					Code:    http.StatusUnauthorized,
					Message: "Not authenticated",
				}
			}

			sessionCtx, err := manager.Validate(cookie.Value)
			if errors.Is(err, sessions.ErrUnauthorized) {
				return &echo.HTTPError{
					Code:    http.StatusUnauthorized,
					Message: "Invalid or expired session, please login again",
				}
			}
			if err != nil {
				logger.Errorf("Session validation failed: %v", err)
				return echo.ErrInternalServerError
			}

			c.Set("session", sessionCtx.Session)
			c.Set("user", sessionCtx.User)
			return next(c)
		}
	}
}

// RequireRole gates a session-authenticated route on the user's role.
func RequireRole(roles ...models.UserRole) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := GetSessionUser(c)
			if err != nil {
				return &echo.HTTPError{
					Code:    http.StatusUnauthorized,
					Message: "Not authenticated",
				}
			}
			for _, role := range roles {
				if user.Role == role {
					return next(c)
				}
			}
			return &echo.HTTPError{
				Code:    http.StatusForbidden,
				Message: "Insufficient privileges",
			}
		}
	}
}

// TokenAuth authorizes a bearer API token from the Authorization header
// and, when requiredScope is non-empty, enforces scope membership. The
// 401 body never reveals whether a token exists, is revoked or expired.
func TokenAuth(requiredScope string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			logger := c.Logger()

			token, err := apitokens.Authorize(c.Request().Header.Get("Authorization"), c.RealIP())
			if errors.Is(err, apitokens.ErrUnauthorized) {
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
				return &echo.HTTPError{
					Code:    http.StatusUnauthorized,
					Message: "Invalid token",
				}
			}
			if err != nil {
				logger.Errorf("API token authorization failed: %v", err)
				return echo.ErrInternalServerError
			}

			if requiredScope != "" {
				if err := apitokens.RequireScope(token, requiredScope); err != nil {
					return &echo.HTTPError{
						Code:    http.StatusForbidden,
						Message: "Token missing required scope: " + requiredScope,
					}
				}
			}

			c.Set("api_token", token)
			return next(c)
		}
	}
}

// GetSessionUser returns the user resolved by SessionAuth.
func GetSessionUser(c echo.Context) (*models.User, error) {
	user, ok := c.Get("user").(*models.User)
	if !ok {
		return nil, errors.New("no authenticated user in context")
	}
	return user, nil
}

// GetSession returns the session resolved by SessionAuth.
func GetSession(c echo.Context) (*models.Session, error) {
	session, ok := c.Get("session").(*models.Session)
	if !ok {
		return nil, errors.New("no session in context")
	}
	return session, nil
}

// GetAPIToken returns the token resolved by TokenAuth.
func GetAPIToken(c echo.Context) (*models.ApiToken, error) {
	token, ok := c.Get("api_token").(*models.ApiToken)
	if !ok {
		return nil, errors.New("no API token in context")
	}
	return token, nil
}
