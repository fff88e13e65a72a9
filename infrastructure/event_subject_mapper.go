package infrastructure

import (
	"fmt"

	"pixelponies/domain/events"
)

var eventSubjects = map[events.EventType]string{
	events.EventTypeRaceOpened:         "races.opened",
	events.EventTypeBettingClosingSoon: "races.closing_soon",
	events.EventTypeBettingClosed:      "races.betting_closed",
	events.EventTypeRaceCommentary:     "races.commentary",
	events.EventTypeRaceFinished:       "races.finished",
	events.EventTypePayoutsSettled:     "races.payouts_settled",
	events.EventTypeBetConfirmed:       "bets.confirmed",
	events.EventTypeRewardIssued:       "rewards.issued",
	events.EventTypeCommunityReminder:  "community.reminder",
}

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts a domain event to its corresponding NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	if subject, ok := eventSubjects[event.Type()]; ok {
		return subject
	}
	return fmt.Sprintf("unknown.%s", event.Type())
}

// MapSubjectToEventType converts a NATS subject back to an event type
func (m *EventSubjectMapper) MapSubjectToEventType(subject string) events.EventType {
	for eventType, s := range eventSubjects {
		if s == subject {
			return eventType
		}
	}
	return events.EventType(subject)
}

// GetAllSubjects returns all subjects that this service publishes to
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{
		"races.opened",
		"races.closing_soon",
		"races.betting_closed",
		"races.commentary",
		"races.finished",
		"races.payouts_settled",
		"bets.confirmed",
		"rewards.issued",
		"community.reminder",
	}
}
