package db

import (
	"time"

	"gorm.io/datatypes"
)

// OrderEvent is one row of the delivery event log as ingested from a POS or
// dispatch system. The log is append-only; statistics are always recomputed
// from it.
type OrderEvent struct {
	ID uint `gorm:"primaryKey"`

	CreatedAt time.Time

	// ExpiresAt is the timestamp after which this event is eligible
	// for deletion by the retention worker. A nil value means the
	// event does not currently expire.
	ExpiresAt *time.Time `gorm:"index"`

	// BatchID groups the events of one ingest request.
	BatchID string `gorm:"size:36;index"`

	// OccurredAt is the event's wall-clock time as reported by the source,
	// kept as a UTC value with the source's offset dropped. The column is
	// timestamptz, so readers must call UTC() before looking at the hour.
	OccurredAt time.Time `gorm:"index;not null"`

	OrderID   string `gorm:"size:64;index;not null"`
	EventType string `gorm:"size:64;index;not null"`

	// DateTag is the business date the source assigned to the event,
	// which may differ from OccurredAt's calendar date.
	DateTag string `gorm:"size:32;index;not null"`

	Region string `gorm:"size:128"`
	Menu   string `gorm:"size:128"`
	Rider  string `gorm:"size:64;index"`

	// Shift is the source's own shift label, if it sends one.
	Shift string `gorm:"size:32"`

	// Attributes keeps any extra columns the source sent along.
	Attributes datatypes.JSONMap `gorm:"type:json"`
}
