// SPDX-License-Identifier: GPL-3.0-only

package migrations

import (
	"fmt"
	"strings"
	"vulnmgr-server/commons"
	"vulnmgr-server/crypto"
	"vulnmgr-server/models"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func List() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			ID: "001_backfill_usernames",
			Migrate: func(tx *gorm.DB) error {
				var users []models.User
				if err := tx.Where("username = ?", "").Find(&users).Error; err != nil {
					return fmt.Errorf("failed to fetch users without username: %w", err)
				}

				for i := range users {
					if users[i].Email == nil {
						continue
					}
					username, _, _ := strings.Cut(*users[i].Email, "@")
					if err := tx.Model(&users[i]).Update("username", username).Error; err != nil {
						return fmt.Errorf("failed to backfill username for user %s: %w", users[i].ID, err)
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error { return nil },
		},
		{
			ID: "002_seed_admin_user",
			Migrate: func(tx *gorm.DB) error {
				adminEmail := commons.GetEnv("ADMIN_EMAIL")
				adminPassword := commons.GetEnv("ADMIN_PASSWORD")
				if adminEmail == "" || adminPassword == "" {
					commons.Logger.Debug("ADMIN_EMAIL/ADMIN_PASSWORD not set, skipping admin seed")
					return nil
				}

				var count int64
				if err := tx.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
					return fmt.Errorf("failed to count admin users: %w", err)
				}
				if count > 0 {
					return nil
				}

				hash, err := crypto.NewCrypto().HashPassword(adminPassword)
				if err != nil {
					return fmt.Errorf("failed to hash admin password: %w", err)
				}

				username, _, _ := strings.Cut(adminEmail, "@")
				admin := models.User{
					Email:        &adminEmail,
					Username:     username,
					FullName:     "Administrator",
					PasswordHash: hash,
					Role:         models.RoleAdmin,
					IsActive:     true,
				}
				if err := tx.Create(&admin).Error; err != nil {
					return fmt.Errorf("failed to seed admin user: %w", err)
				}
				commons.Logger.Infof("Seeded initial admin user %s", adminEmail)
				return nil
			},
			Rollback: func(tx *gorm.DB) error { return nil },
		},
	}
}
