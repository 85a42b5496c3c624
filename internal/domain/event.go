package domain

import "github.com/anchored-notes/anchored-sync-service/pkg/timex"

// EventType names an event on the bus.
type EventType string

const (
	EventNoteCreated   EventType = "notes:created"
	EventNoteUpdated   EventType = "notes:updated"
	EventNoteDeleted   EventType = "notes:deleted"
	EventDomainDeleted EventType = "notes:domain_deleted"
	EventNotesImported EventType = "notes:imported"

	EventMigrationComplete EventType = "migration:complete"
	EventMigrationError    EventType = "migration:error"
)

// Event is one emitted bus event. Payload shape depends on Type: note
// events carry *Note or DomainEventPayload, import carries
// *ImportResult, migration events carry *MigrationReport.
type Event struct {
	Type      EventType   `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp timex.Time  `json:"timestamp"`
}

// DomainEventPayload is the payload of notes:domain_deleted.
type DomainEventPayload struct {
	Domain string `json:"domain"`
	Count  int    `json:"count"`
}
