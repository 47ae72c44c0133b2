// SPDX-License-Identifier: GPL-3.0-only

package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApiToken is a long-lived machine credential for external tools. Only
// the digest of the bearer secret is stored; the plaintext is shown to
// its owner once, at creation or rotation.
type ApiToken struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Label       string    `gorm:"size:128;not null"`
	TokenHash   string    `gorm:"size:128;not null;uniqueIndex"`
	Scopes      []string  `gorm:"serializer:json;not null"`
	ExpiresAt   *time.Time
	RevokedAt   *time.Time
	LastUsedAt  *time.Time
	LastUsedIP  *string `gorm:"size:45"`
	CreatedAt   time.Time
	OwnerUserID uuid.UUID `gorm:"type:uuid;not null;index"`
	Owner       User      `gorm:"foreignKey:OwnerUserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (token *ApiToken) BeforeCreate(tx *gorm.DB) (err error) {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	return
}

// IsValid is derived, never stored: a token is usable while it has not
// been revoked and has not passed its expiry (a nil expiry never expires).
func (token *ApiToken) IsValid() bool {
	if token.RevokedAt != nil {
		return false
	}
	if token.ExpiresAt != nil && !token.ExpiresAt.After(time.Now()) {
		return false
	}
	return true
}

func (token *ApiToken) HasScope(requiredScope string) bool {
	return slices.Contains(token.Scopes, requiredScope)
}

func init() {
	AllModels = append(AllModels, &ApiToken{})
}
