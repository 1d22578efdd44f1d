package source

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	dbpkg "deliverystats/internal/db"
	"deliverystats/internal/stats"
)

// DBSource reads the ingested event log from the database.
type DBSource struct {
	db *gorm.DB
}

func NewDBSource(db *gorm.DB) *DBSource {
	return &DBSource{db: db}
}

func (s *DBSource) Load(ctx context.Context) ([]stats.RawEvent, error) {
	rows, err := dbpkg.LoadEvents(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("%w: query order_events: %w", ErrSourceUnavailable, err)
	}
	return FromOrderEvents(rows), nil
}

// ToOrderEvent builds the row stored for e. The timestamp keeps its clock
// reading but loses its offset, so the shift it falls in survives storage.
func ToOrderEvent(e stats.RawEvent) dbpkg.OrderEvent {
	return dbpkg.OrderEvent{
		OccurredAt: stats.WallClock(e.Timestamp),
		OrderID:    e.OrderID,
		EventType:  e.Kind,
		DateTag:    e.DateTag,
		Region:     e.Region,
		Menu:       e.Menu,
		Rider:      e.Rider,
		Shift:      e.Shift,
	}
}

// FromOrderEvents maps stored rows onto RawEvent. Rows without an order id
// or timestamp are skipped. The driver returns timestamps in the server's
// zone; UTC() restores the stored clock reading.
func FromOrderEvents(rows []dbpkg.OrderEvent) []stats.RawEvent {
	out := make([]stats.RawEvent, 0, len(rows))
	for _, r := range rows {
		if r.OrderID == "" || r.OccurredAt.IsZero() {
			continue
		}
		out = append(out, stats.RawEvent{
			Timestamp: r.OccurredAt.UTC(),
			OrderID:   r.OrderID,
			Kind:      r.EventType,
			DateTag:   r.DateTag,
			Region:    r.Region,
			Menu:      r.Menu,
			Rider:     r.Rider,
			Shift:     r.Shift,
		})
	}
	return out
}
