package db

import (
	"time"
)

// APIKey authorizes a feeder (POS export job, dispatch webhook) to push
// events to the ingest endpoint.
type APIKey struct {
	ID uint `gorm:"primaryKey"`

	CreatedAt time.Time
	UpdatedAt time.Time

	// UserID links this key to the user who owns it.
	UserID uint `gorm:"index;not null"`

	// Name identifies the feeder (e.g. "pos-export").
	Name string `gorm:"size:128;not null"`

	// Key is the bearer token value.
	Key string `gorm:"uniqueIndex;size:255;not null"`

	// RetentionDays is how long events ingested with this key are kept.
	// 0 means the global default from config.
	RetentionDays int `gorm:"not null;default:0"`

	Active bool `gorm:"default:true"`

	User User `gorm:"foreignKey:UserID"`
}
