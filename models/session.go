// SPDX-License-Identifier: GPL-3.0-only

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Session is one authenticated browser session. The row stores only the
// digest of the random session secret, never the secret itself. Revoked
// and expired sessions keep their row with is_active=false for audit.
type Session struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	TokenHash  string    `gorm:"size:128;not null;uniqueIndex"`
	ExpiresAt  time.Time `gorm:"not null"`
	LastSeenAt *time.Time
	IPAddress  *string `gorm:"size:64"`
	UserAgent  *string `gorm:"size:512"`
	IsActive   bool    `gorm:"not null;default:true"`
	CreatedAt  time.Time
	UserID     uuid.UUID `gorm:"type:uuid;not null;index"`
	User       User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (session *Session) BeforeCreate(tx *gorm.DB) (err error) {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	return
}

func (session *Session) Touch() {
	now := time.Now().UTC()
	session.LastSeenAt = &now
}

func init() {
	AllModels = append(AllModels, &Session{})
}
