// SPDX-License-Identifier: GPL-3.0-only

package apitokens

import (
	"errors"
	"testing"
	"time"
	"vulnmgr-server/crypto"
	"vulnmgr-server/db"
	"vulnmgr-server/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := conn.AutoMigrate(models.AllModels...); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	db.Conn = conn
}

func createTestToken(t *testing.T, expiresAt, revokedAt *time.Time, scopes []string) (string, *models.ApiToken) {
	t.Helper()

	owner := models.User{
		Username:     "owner",
		FullName:     "Token Owner",
		PasswordHash: "unused",
		Role:         models.RoleAdmin,
		IsActive:     true,
	}
	if err := db.Conn.Create(&owner).Error; err != nil {
		t.Fatalf("Failed to create token owner: %v", err)
	}

	plaintext, err := crypto.GenerateAPIToken()
	if err != nil {
		t.Fatalf("GenerateAPIToken failed: %v", err)
	}
	token := models.ApiToken{
		Label:       "test token",
		TokenHash:   crypto.HashToken(plaintext),
		Scopes:      scopes,
		ExpiresAt:   expiresAt,
		RevokedAt:   revokedAt,
		OwnerUserID: owner.ID,
	}
	if err := db.Conn.Create(&token).Error; err != nil {
		t.Fatalf("Failed to create token: %v", err)
	}
	return plaintext, &token
}

func TestAuthorizeValidToken(t *testing.T) {
	setupTestDB(t)
	future := time.Now().UTC().Add(time.Hour)
	plaintext, created := createTestToken(t, &future, nil, []string{"read:vulns"})

	token, err := Authorize("Bearer "+plaintext, "10.0.0.1")
	if err != nil {
		t.Fatalf("Authorize failed for valid token: %v", err)
	}
	if token.ID != created.ID {
		t.Errorf("Expected token %s, got %s", created.ID, token.ID)
	}

	stored := models.ApiToken{}
	if err := db.Conn.First(&stored, "id = ?", created.ID).Error; err != nil {
		t.Fatalf("Failed to reload token: %v", err)
	}
	if stored.LastUsedAt == nil {
		t.Error("Authorize should record last_used_at")
	}
	if stored.LastUsedIP == nil || *stored.LastUsedIP != "10.0.0.1" {
		t.Error("Authorize should record last_used_ip")
	}
}

func TestAuthorizeSchemeIsCaseInsensitive(t *testing.T) {
	setupTestDB(t)
	plaintext, _ := createTestToken(t, nil, nil, []string{"read:vulns"})

	if _, err := Authorize("bearer "+plaintext, ""); err != nil {
		t.Errorf("Lowercase scheme should be accepted: %v", err)
	}
	if _, err := Authorize("BEARER "+plaintext, ""); err != nil {
		t.Errorf("Uppercase scheme should be accepted: %v", err)
	}
}

func TestAuthorizeRejectsMalformedHeaders(t *testing.T) {
	setupTestDB(t)
	plaintext, _ := createTestToken(t, nil, nil, []string{"read:vulns"})

	headers := []string{
		"",
		plaintext,
		"Bearer",
		"Basic " + plaintext,
		"Bearer " + plaintext + " extra",
	}
	for _, header := range headers {
		if _, err := Authorize(header, ""); !errors.Is(err, ErrUnauthorized) {
			t.Errorf("Authorize(%q) should return ErrUnauthorized, got %v", header, err)
		}
	}
}

func TestAuthorizeRejectsUnknownToken(t *testing.T) {
	setupTestDB(t)

	if _, err := Authorize("Bearer vm_0000000000000000000000000000000000000000", ""); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
}

func TestAuthorizeRejectsExpiredToken(t *testing.T) {
	setupTestDB(t)
	past := time.Now().UTC().Add(-time.Hour)
	plaintext, _ := createTestToken(t, &past, nil, []string{"read:vulns"})

	if _, err := Authorize("Bearer "+plaintext, ""); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized for expired token, got %v", err)
	}
}

func TestAuthorizeRevokedBeatsFutureExpiry(t *testing.T) {
	setupTestDB(t)
	future := time.Now().UTC().Add(time.Hour)
	revoked := time.Now().UTC().Add(-time.Minute)
	plaintext, created := createTestToken(t, &future, &revoked, []string{"read:vulns"})

	if _, err := Authorize("Bearer "+plaintext, "10.0.0.1"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Expected ErrUnauthorized for revoked token, got %v", err)
	}

	// A rejected token never records usage.
	stored := models.ApiToken{}
	if err := db.Conn.First(&stored, "id = ?", created.ID).Error; err != nil {
		t.Fatalf("Failed to reload token: %v", err)
	}
	if stored.LastUsedAt != nil {
		t.Error("Rejected token should not record last_used_at")
	}
}

func TestAuthorizeNilExpiryNeverExpires(t *testing.T) {
	setupTestDB(t)
	plaintext, _ := createTestToken(t, nil, nil, []string{"read:vulns"})

	if _, err := Authorize("Bearer "+plaintext, ""); err != nil {
		t.Errorf("Token without expiry should be valid: %v", err)
	}
}

func TestRequireScope(t *testing.T) {
	token := &models.ApiToken{Scopes: []string{"read:vulns", "export:doc"}}

	if err := RequireScope(token, "read:vulns"); err != nil {
		t.Errorf("Expected scope to be granted: %v", err)
	}
	if err := RequireScope(token, "write:vulns"); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden for missing scope, got %v", err)
	}
}
