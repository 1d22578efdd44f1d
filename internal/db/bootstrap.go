package db

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"deliverystats/internal/config"
)

// EnsureBootstrapAdmin creates the configured admin on first start. The
// password is only hashed and stored when the row is new.
func EnsureBootstrapAdmin(db *gorm.DB, cfg *config.Config) error {
	if cfg.AdminUser == "" || cfg.AdminPassword == "" {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	admin := User{Username: cfg.AdminUser}
	return db.Where(User{Username: cfg.AdminUser}).
		Attrs(User{PasswordHash: string(hash), IsAdmin: true}).
		FirstOrCreate(&admin).Error
}

// EnsureBootstrapAPIKey makes the configured ingest key an active key of
// the admin user, so a feeder can push events before anyone logs in.
func EnsureBootstrapAPIKey(db *gorm.DB, cfg *config.Config) error {
	if cfg.IngestAPIKey == "" {
		return nil
	}
	var admin User
	if err := db.Where("username = ?", cfg.AdminUser).First(&admin).Error; err != nil {
		return fmt.Errorf("load admin %q: %w", cfg.AdminUser, err)
	}

	key := APIKey{Key: cfg.IngestAPIKey}
	return db.Where(APIKey{Key: cfg.IngestAPIKey}).
		Attrs(APIKey{Name: "bootstrap-feeder", RetentionDays: cfg.RetentionDays}).
		Assign(map[string]any{"user_id": admin.ID, "active": true}).
		FirstOrCreate(&key).Error
}
