// SPDX-License-Identifier: GPL-3.0-only

package handlers

import (
	"errors"
	"net/http"
	"slices"
	"strconv"
	"time"
	"vulnmgr-server/audit"
	"vulnmgr-server/commons"
	"vulnmgr-server/crypto"
	"vulnmgr-server/db"
	"vulnmgr-server/middlewares"
	"vulnmgr-server/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// AllowedScopes is the scope vocabulary tokens may be granted.
var AllowedScopes = []string{"read:vulns", "write:vulns", "export:doc"}

const defaultTokenLifetimeDays = 90

func defaultTokenExpiration() time.Time {
	days := defaultTokenLifetimeDays
	if v := commons.GetEnv("TOKEN_DEFAULT_LIFETIME_DAYS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			days = i
		}
	}
	return time.Now().UTC().Add(time.Duration(days) * 24 * time.Hour)
}

// CreateTokenHandler godoc
// @Summary      Create an API token
// @Description  Creates a new scoped API token. The plaintext token is returned ONLY once and cannot be retrieved again.
// @Tags         tokens
// @Accept       json
// @Produce      json
// @Param        createTokenRequest  body  CreateTokenRequest  true  "Token creation payload"
// @Success      201 {object} TokenWithSecret "Token created"
// @Failure      400 {object} echo.HTTPError  "Bad request"
// @Failure      401 {object} echo.HTTPError  "Unauthorized"
// @Failure      403 {object} echo.HTTPError  "Admin privileges required"
// @Failure      500 {object} echo.HTTPError  "Internal server error"
// @Router       /api/tokens [post]
func CreateTokenHandler(c echo.Context) error {
	logger := c.Logger()

	admin, err := middlewares.GetSessionUser(c)
	if err != nil {
		return &echo.HTTPError{Code: http.StatusUnauthorized, Message: "Not authenticated"}
	}

	var req CreateTokenRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Invalid token creation payload:", err)
		return echo.ErrBadRequest
	}

	if req.Label == "" {
		return &echo.HTTPError{
			Code:    http.StatusBadRequest,
			Message: "label field is required",
		}
	}
	if len(req.Scopes) == 0 {
		return &echo.HTTPError{
			Code:    http.StatusBadRequest,
			Message: "at least one scope is required",
		}
	}
	for _, scope := range req.Scopes {
		if !slices.Contains(AllowedScopes, scope) {
			return &echo.HTTPError{
				Code:    http.StatusBadRequest,
				Message: "Invalid scope: " + scope,
			}
		}
	}

	plainToken, err := crypto.GenerateAPIToken()
	if err != nil {
		logger.Errorf("Failed to generate API token: %v", err)
		return echo.ErrInternalServerError
	}

	expiresAt := defaultTokenExpiration()
	if req.ExpiresAt != nil {
		expiresAt = req.ExpiresAt.UTC()
	}

	token := models.ApiToken{
		Label:       req.Label,
		TokenHash:   crypto.HashToken(plainToken),
		Scopes:      req.Scopes,
		ExpiresAt:   &expiresAt,
		OwnerUserID: admin.ID,
	}
	if err := db.Conn.Create(&token).Error; err != nil {
		logger.Errorf("Failed to create API token: %v", err)
		return echo.ErrInternalServerError
	}

	audit.Log(audit.Entry{
		Action:  "token.created",
		ActorID: admin.ID.String(),
		IP:      c.RealIP(),
		Target:  map[string]any{"token_id": token.ID.String(), "label": token.Label, "scopes": token.Scopes},
	})

	return c.JSON(http.StatusCreated, TokenWithSecret{
		TokenInfo: tokenInfo(&token),
		Token:     plainToken,
	})
}

// ListTokensHandler godoc
// @Summary      List API tokens
// @Description  Lists all API tokens without their secrets, newest first.
// @Tags         tokens
// @Produce      json
// @Success      200 {object} TokenListResponse "Tokens retrieved successfully"
// @Failure      401 {object} echo.HTTPError    "Unauthorized"
// @Failure      403 {object} echo.HTTPError    "Admin privileges required"
// @Failure      500 {object} echo.HTTPError    "Internal server error"
// @Router       /api/tokens [get]
func ListTokensHandler(c echo.Context) error {
	logger := c.Logger()

	var tokens []models.ApiToken
	if err := db.Conn.Order("created_at DESC").Find(&tokens).Error; err != nil {
		logger.Errorf("Failed to fetch tokens: %v", err)
		return echo.ErrInternalServerError
	}

	infos := make([]TokenInfo, 0, len(tokens))
	for i := range tokens {
		infos = append(infos, tokenInfo(&tokens[i]))
	}
	return c.JSON(http.StatusOK, TokenListResponse{
		Data:    infos,
		Message: "Tokens retrieved successfully",
	})
}

// GetTokenHandler godoc
// @Summary      Get an API token
// @Description  Retrieves one API token by ID, without its secret.
// @Tags         tokens
// @Produce      json
// @Param        token_id  path  string  true  "Token ID"
// @Success      200 {object} TokenInfo      "Token retrieved successfully"
// @Failure      400 {object} echo.HTTPError "Bad request"
// @Failure      404 {object} echo.HTTPError "Token not found"
// @Failure      500 {object} echo.HTTPError "Internal server error"
// @Router       /api/tokens/{token_id} [get]
func GetTokenHandler(c echo.Context) error {
	token, httpErr := findTokenByParam(c)
	if httpErr != nil {
		return httpErr
	}
	return c.JSON(http.StatusOK, tokenInfo(token))
}

// RevokeTokenHandler godoc
// @Summary      Revoke an API token
// @Description  Marks the token as revoked. Revocation is irreversible.
// @Tags         tokens
// @Param        token_id  path  string  true  "Token ID"
// @Success      204 "Token revoked"
// @Failure      400 {object} echo.HTTPError "Bad request"
// @Failure      404 {object} echo.HTTPError "Token not found"
// @Failure      500 {object} echo.HTTPError "Internal server error"
// @Router       /api/tokens/{token_id} [delete]
func RevokeTokenHandler(c echo.Context) error {
	logger := c.Logger()

	token, httpErr := findTokenByParam(c)
	if httpErr != nil {
		return httpErr
	}

	if token.RevokedAt == nil {
		now := time.Now().UTC()
		if err := db.Conn.Model(token).Update("revoked_at", now).Error; err != nil {
			logger.Errorf("Failed to revoke token: %v", err)
			return echo.ErrInternalServerError
		}
	}

	actorID := ""
	if admin, err := middlewares.GetSessionUser(c); err == nil {
		actorID = admin.ID.String()
	}
	audit.Log(audit.Entry{
		Action:  "token.revoked",
		ActorID: actorID,
		IP:      c.RealIP(),
		Target:  map[string]any{"token_id": token.ID.String(), "label": token.Label},
	})

	return c.NoContent(http.StatusNoContent)
}

// RotateTokenHandler godoc
// @Summary      Rotate an API token
// @Description  Generates a new secret for the token, invalidating the old one and resetting usage tracking. The new plaintext token is returned ONLY once.
// @Tags         tokens
// @Produce      json
// @Param        token_id  path  string  true  "Token ID"
// @Success      200 {object} TokenWithSecret "Token rotated"
// @Failure      400 {object} echo.HTTPError  "Bad request"
// @Failure      404 {object} echo.HTTPError  "Token not found"
// @Failure      500 {object} echo.HTTPError  "Internal server error"
// @Router       /api/tokens/{token_id}/rotate [post]
func RotateTokenHandler(c echo.Context) error {
	logger := c.Logger()

	token, httpErr := findTokenByParam(c)
	if httpErr != nil {
		return httpErr
	}

	newPlainToken, err := crypto.GenerateAPIToken()
	if err != nil {
		logger.Errorf("Failed to generate API token: %v", err)
		return echo.ErrInternalServerError
	}

	updates := map[string]any{
		"token_hash":   crypto.HashToken(newPlainToken),
		"last_used_at": nil,
		"last_used_ip": nil,
	}
	if err := db.Conn.Model(token).Updates(updates).Error; err != nil {
		logger.Errorf("Failed to rotate token: %v", err)
		return echo.ErrInternalServerError
	}
	token.LastUsedAt = nil
	token.LastUsedIP = nil

	actorID := ""
	if admin, err := middlewares.GetSessionUser(c); err == nil {
		actorID = admin.ID.String()
	}
	audit.Log(audit.Entry{
		Action:  "token.rotated",
		ActorID: actorID,
		IP:      c.RealIP(),
		Target:  map[string]any{"token_id": token.ID.String(), "label": token.Label},
	})

	return c.JSON(http.StatusOK, TokenWithSecret{
		TokenInfo: tokenInfo(token),
		Token:     newPlainToken,
	})
}

// ValidateTokenHandler godoc
// @Summary      Validate an API token
// @Description  Lightweight probe for external tools to check token validity. Returns 204 when the bearer token is valid.
// @Tags         tokens
// @Success      204 "Token is valid"
// @Failure      401 {object} echo.HTTPError "Invalid token"
// @Router       /api/tokens/validate [head]
func ValidateTokenHandler(c echo.Context) error {
	// Reaching this point means TokenAuth accepted the bearer token.
	return c.NoContent(http.StatusNoContent)
}

func findTokenByParam(c echo.Context) (*models.ApiToken, *echo.HTTPError) {
	tokenID, err := uuid.Parse(c.Param("token_id"))
	if err != nil {
		return nil, &echo.HTTPError{
			Code:    http.StatusBadRequest,
			Message: "Invalid token ID format",
		}
	}

	token := models.ApiToken{}
	if err := db.Conn.Where("id = ?", tokenID).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &echo.HTTPError{
				Code:    http.StatusNotFound,
				Message: "Token not found",
			}
		}
		c.Logger().Errorf("Failed to fetch token: %v", err)
		return nil, &echo.HTTPError{Code: http.StatusInternalServerError, Message: http.StatusText(http.StatusInternalServerError)}
	}
	return &token, nil
}
