package service

import (
	"sort"

	"github.com/registro-sv/academico-api/internal/models"
)

// GroupEvents turns flat registration rows into derived events: rows of the
// given term sharing an identical timestamp form one event, ordered most
// recent first. Identical input always produces identical output; nothing
// is cached across calls.
func GroupEvents(rows []models.RegistrationRow, termID int64) []models.RegistrationEvent {
	buckets := make(map[string]*models.RegistrationEvent)
	order := make([]string, 0)

	for _, row := range rows {
		if row.TermID != termID {
			continue
		}
		key := row.EventKey()
		event, ok := buckets[key]
		if !ok {
			event = &models.RegistrationEvent{TermID: termID, RegisteredAt: row.RegisteredAt}
			buckets[key] = event
			order = append(order, key)
		}
		event.Rows = append(event.Rows, row)
	}

	events := make([]models.RegistrationEvent, 0, len(order))
	for _, key := range order {
		event := buckets[key]
		sort.Slice(event.Rows, func(i, j int) bool {
			return event.Rows[i].ID < event.Rows[j].ID
		})
		events = append(events, *event)
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].RegisteredAt.After(events[j].RegisteredAt)
	})
	return events
}
