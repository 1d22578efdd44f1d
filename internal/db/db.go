package db

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"deliverystats/internal/config"
)

var errNoDSN = errors.New("APP_DATABASE_URL is required (postgres:// URL)")

// checkDSN accepts only postgres URLs; key=value DSNs are rejected so a
// typo does not silently fall back to libpq defaults.
func checkDSN(raw string) (string, error) {
	dsn := strings.TrimSpace(raw)
	if dsn == "" {
		return "", errNoDSN
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("APP_DATABASE_URL: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return "", fmt.Errorf("APP_DATABASE_URL: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("APP_DATABASE_URL: missing host")
	}
	return dsn, nil
}

// Connect opens the event store and migrates the order log, users and keys.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	dsn, err := checkDSN(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	// Prepared statements keep the postgres migrator off the simple protocol,
	// which fails its "SELECT * ... LIMIT 1" lookups.
	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{PrepareStmt: true})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := conn.AutoMigrate(&OrderEvent{}, &User{}, &APIKey{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return conn, nil
}
