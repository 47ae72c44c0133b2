// SPDX-License-Identifier: GPL-3.0-only

// Package sessions owns the lifecycle of persistent login sessions:
// issuing signed session credentials, validating them against the store
// and revoking them on logout. Expiry is detected lazily on use; there
// is no background sweep.
package sessions

import (
	"errors"
	"fmt"
	"strconv"
	"time"
	"vulnmgr-server/commons"
	"vulnmgr-server/crypto"
	"vulnmgr-server/db"
	"vulnmgr-server/models"

	"gorm.io/gorm"
)

// ErrUnauthorized covers every credential-side failure: bad signature,
// unknown or inactive session, expired session, missing or disabled
// owner. Callers must not surface which one it was; the distinction is
// logged here and nowhere else. Store failures are returned as-is and
// are never folded into ErrUnauthorized.
var ErrUnauthorized = errors.New("invalid or expired session")

const DefaultLifetimeHours = 24

type SessionContext struct {
	Session *models.Session
	User    *models.User
}

type Manager struct {
	signer   *crypto.Signer
	lifetime time.Duration
}

func NewManager() *Manager {
	hours := DefaultLifetimeHours
	if v := commons.GetEnv("SESSION_LIFETIME_HOURS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			hours = i
		}
	}
	return &Manager{
		signer:   crypto.NewSigner(),
		lifetime: time.Duration(hours) * time.Hour,
	}
}

func (m *Manager) Lifetime() time.Duration {
	return m.lifetime
}

// Create generates a random session secret, persists its digest and
// returns the signed credential. The insert is the last committing step;
// a failed insert means no usable session ever existed.
func (m *Manager) Create(user *models.User, ipAddress, userAgent *string) (string, *models.Session, error) {
	secret, err := crypto.GenerateSessionSecret()
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate session secret: %w", err)
	}

	session := models.Session{
		TokenHash: crypto.HashToken(secret),
		ExpiresAt: time.Now().UTC().Add(m.lifetime),
		IPAddress: ipAddress,
		UserAgent: userAgent,
		IsActive:  true,
		UserID:    user.ID,
	}
	if err := db.Conn.Create(&session).Error; err != nil {
		return "", nil, fmt.Errorf("failed to persist session: %w", err)
	}

	return m.signer.Sign(secret), &session, nil
}

// Validate resolves a signed credential to its session and owning user.
// The signature check runs before any store access so forged cookies are
// rejected cheaply. Each state change (lazy expiry, the last-seen touch)
// is committed before the method returns.
func (m *Manager) Validate(signedToken string) (*SessionContext, error) {
	secret, err := m.signer.Verify(signedToken)
	if err != nil {
		commons.Logger.Debug("Session signature verification failed")
		return nil, ErrUnauthorized
	}

	session := models.Session{}
	err = db.Conn.Where("token_hash = ? AND is_active = ?", crypto.HashToken(secret), true).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		commons.Logger.Debug("No active session for presented credential")
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("session lookup failed: %w", err)
	}

	if !session.ExpiresAt.After(time.Now()) {
		// One-way transition; a repeat validation of the same credential
		// finds no active session and fails identically.
		if err := db.Conn.Model(&session).Update("is_active", false).Error; err != nil {
			return nil, fmt.Errorf("failed to expire session: %w", err)
		}
		commons.Logger.Debugf("Session %s expired, deactivated on use", session.ID)
		return nil, ErrUnauthorized
	}

	user := models.User{}
	err = db.Conn.Where("id = ?", session.UserID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !user.IsActive) {
		// Deliberately indistinguishable from a bad session to avoid
		// account enumeration.
		commons.Logger.Debugf("Session %s owner missing or inactive", session.ID)
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("session owner lookup failed: %w", err)
	}

	session.Touch()
	if err := db.Conn.Model(&session).Update("last_seen_at", session.LastSeenAt).Error; err != nil {
		return nil, fmt.Errorf("failed to touch session: %w", err)
	}

	return &SessionContext{Session: &session, User: &user}, nil
}

// Invalidate deactivates the session behind a signed credential. Logging
// out with a forged, expired or already-invalidated credential is a
// no-op success returning (nil, nil); only store failures error.
func (m *Manager) Invalidate(signedToken string) (*models.Session, error) {
	if signedToken == "" {
		return nil, nil
	}

	secret, err := m.signer.Verify(signedToken)
	if err != nil {
		return nil, nil
	}

	session := models.Session{}
	err = db.Conn.Where("token_hash = ? AND is_active = ?", crypto.HashToken(secret), true).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session lookup failed: %w", err)
	}

	// The store serializes concurrent logouts of the same row; whichever
	// update lands second is a harmless repeat of is_active=false.
	if err := db.Conn.Model(&session).Update("is_active", false).Error; err != nil {
		return nil, fmt.Errorf("failed to invalidate session: %w", err)
	}
	session.IsActive = false
	return &session, nil
}
