package infrastructure

import (
	"fmt"

	"raffler/events"
)

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts a domain event to its corresponding NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	switch event.Type() {
	case events.EventTypeRaffleCreated:
		return "raffle.created"
	case events.EventTypeTicketsPurchased:
		return "raffle.tickets_purchased"
	case events.EventTypeRandomnessRequested:
		return "raffle.randomness_requested"
	case events.EventTypeRandomnessConsumed:
		return "raffle.randomness_consumed"
	case events.EventTypePrizeClaimed:
		return "raffle.prize_claimed"
	case events.EventTypePrizeCollected:
		return "raffle.prize_collected"
	case events.EventTypeRaffleDeleted:
		return "raffle.deleted"
	case events.EventTypeUniqueAssetRecovered:
		return "raffle.asset_recovered"
	case events.EventTypeTicketAssetCollected:
		return "raffle.ticket_asset_collected"
	default:
		return fmt.Sprintf("raffle.unknown.%s", event.Type())
	}
}

// GetAllSubjects returns all subjects that this service publishes events to
func (m *EventSubjectMapper) GetAllSubjects() []string {
	types := events.AllEventTypes()
	subjects := make([]string, 0, len(types))
	for _, t := range types {
		subjects = append(subjects, m.MapEventToSubject(typedEvent(t)))
	}
	return subjects
}

// typedEvent is a placeholder event used to resolve subjects by type
type typedEvent events.EventType

func (e typedEvent) Type() events.EventType {
	return events.EventType(e)
}
