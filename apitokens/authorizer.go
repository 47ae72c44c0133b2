// SPDX-License-Identifier: GPL-3.0-only

// Package apitokens authorizes bearer API tokens: header parsing, hashed
// lookup, validity checks and scope enforcement.
package apitokens

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"vulnmgr-server/commons"
	"vulnmgr-server/crypto"
	"vulnmgr-server/db"
	"vulnmgr-server/models"

	"gorm.io/gorm"
)

var (
	// ErrUnauthorized is the single outward signal for a missing,
	// malformed, unknown, revoked or expired token. The specific reason
	// is logged for audit but never exposed to the caller.
	ErrUnauthorized = errors.New("invalid or expired API token")

	// ErrForbidden means the token is valid but lacks a required scope.
	ErrForbidden = errors.New("token missing required scope")
)

// Authorize resolves an Authorization header to a valid ApiToken and
// records its use. The header must be exactly "Bearer <token>" with a
// case-insensitive scheme.
func Authorize(authorization string, ipAddress string) (*models.ApiToken, error) {
	parts := strings.Fields(authorization)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		commons.Logger.Debug("Malformed Authorization header")
		return nil, ErrUnauthorized
	}

	token := models.ApiToken{}
	err := db.Conn.Where("token_hash = ?", crypto.HashToken(parts[1])).First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		commons.Logger.Debug("No API token matches presented credential")
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("API token lookup failed: %w", err)
	}

	if !token.IsValid() {
		switch {
		case token.RevokedAt != nil:
			commons.Logger.Infof("Rejected revoked API token %s (%s)", token.ID, token.Label)
		case token.ExpiresAt != nil:
			commons.Logger.Infof("Rejected expired API token %s (%s)", token.ID, token.Label)
		default:
			commons.Logger.Infof("Rejected invalid API token %s (%s)", token.ID, token.Label)
		}
		return nil, ErrUnauthorized
	}

	now := time.Now().UTC()
	updates := map[string]any{"last_used_at": now}
	if ipAddress != "" {
		updates["last_used_ip"] = ipAddress
	}
	if err := db.Conn.Model(&token).Updates(updates).Error; err != nil {
		commons.Logger.Errorf("Failed to update API token usage: %v", err)
	}

	return &token, nil
}

// RequireScope gates an operation on scope membership.
func RequireScope(token *models.ApiToken, requiredScope string) error {
	if !token.HasScope(requiredScope) {
		commons.Logger.Infof("API token %s lacks scope %s", token.ID, requiredScope)
		return fmt.Errorf("%w: %s", ErrForbidden, requiredScope)
	}
	return nil
}
