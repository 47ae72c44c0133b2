// SPDX-License-Identifier: GPL-3.0-only

package migrations

import (
	"testing"
	"vulnmgr-server/crypto"
	"vulnmgr-server/models"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := conn.AutoMigrate(models.AllModels...); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return conn
}

func TestBackfillUsernames(t *testing.T) {
	conn := openTestDB(t)

	email := "jane.doe@example.com"
	user := models.User{
		Email:        &email,
		Username:     "",
		FullName:     "Jane Doe",
		PasswordHash: "unused",
		Role:         models.RoleViewer,
		IsActive:     true,
	}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create legacy user: %v", err)
	}

	if err := gormigrate.New(conn, gormigrate.DefaultOptions, List()).Migrate(); err != nil {
		t.Fatalf("Migrations failed: %v", err)
	}

	migrated := models.User{}
	if err := conn.First(&migrated, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("Failed to reload user: %v", err)
	}
	if migrated.Username != "jane.doe" {
		t.Errorf("Expected username jane.doe, got %q", migrated.Username)
	}
}

func TestSeedAdminUser(t *testing.T) {
	t.Setenv("ADMIN_EMAIL", "admin@example.com")
	t.Setenv("ADMIN_PASSWORD", "Adm1n!Pass")
	conn := openTestDB(t)

	if err := gormigrate.New(conn, gormigrate.DefaultOptions, List()).Migrate(); err != nil {
		t.Fatalf("Migrations failed: %v", err)
	}

	admin := models.User{}
	if err := conn.First(&admin, "role = ?", models.RoleAdmin).Error; err != nil {
		t.Fatalf("Expected seeded admin: %v", err)
	}
	if admin.Username != "admin" {
		t.Errorf("Expected username admin, got %q", admin.Username)
	}
	if !admin.IsActive {
		t.Error("Seeded admin should be active")
	}
	if err := crypto.NewCrypto().VerifyPassword("Adm1n!Pass", admin.PasswordHash); err != nil {
		t.Errorf("Seeded admin password should verify: %v", err)
	}
}

func TestSeedAdminUserSkippedWithoutEnv(t *testing.T) {
	t.Setenv("ADMIN_EMAIL", "")
	t.Setenv("ADMIN_PASSWORD", "")
	conn := openTestDB(t)

	if err := gormigrate.New(conn, gormigrate.DefaultOptions, List()).Migrate(); err != nil {
		t.Fatalf("Migrations failed: %v", err)
	}

	var count int64
	if err := conn.Model(&models.User{}).Count(&count).Error; err != nil {
		t.Fatalf("Failed to count users: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected no seeded users, got %d", count)
	}
}
