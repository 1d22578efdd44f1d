package db

import (
	"context"

	"gorm.io/gorm"
)

// LoadEvents returns the whole event log ordered by id.
func LoadEvents(ctx context.Context, db *gorm.DB) ([]OrderEvent, error) {
	var events []OrderEvent
	if err := db.WithContext(ctx).
		Select("occurred_at", "order_id", "event_type", "date_tag", "region", "menu", "rider", "shift").
		Order("id").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// InsertEvents writes one ingest batch, 500 rows per statement.
func InsertEvents(ctx context.Context, db *gorm.DB, events []OrderEvent) error {
	if len(events) == 0 {
		return nil
	}
	return db.WithContext(ctx).CreateInBatches(&events, 500).Error
}
