package db

import (
	"log"
	"time"

	"gorm.io/gorm"
)

// runRetentionOnce deletes events whose ExpiresAt is in the past.
func runRetentionOnce(db *gorm.DB, now time.Time) (int64, error) {
	res := db.Where("expires_at IS NOT NULL AND expires_at <= ?", now).Delete(&OrderEvent{})
	return res.RowsAffected, res.Error
}

// StartRetentionWorker runs the retention cleanup once at startup and then
// once per day. onDelete, if set, is told how many events were removed.
func StartRetentionWorker(db *gorm.DB, onDelete func(n int64)) {
	go func() {
		run := func(phase string) {
			n, err := runRetentionOnce(db, time.Now())
			if err != nil {
				log.Printf("retention cleanup error (%s): %v", phase, err)
				return
			}
			if n > 0 {
				log.Printf("retention cleanup removed %d events", n)
				if onDelete != nil {
					onDelete(n)
				}
			}
		}

		run("startup")
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			run("daily")
		}
	}()
}
