package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gamestake/events"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// StreamName is the JetStream stream that holds every subject below
const StreamName = "gamestake_events"

var subjects = map[events.EventType]string{
	events.EventTypeMatchUpdated:     "gamestake.match.updated",
	events.EventTypeMatchSettled:     "gamestake.match.settled",
	events.EventTypeTokensPurchased:  "gamestake.tokens.purchased",
	events.EventTypeConsistencyAlert: "gamestake.alerts.consistency",
}

// Subjects returns every subject the publisher writes to
func Subjects() []string {
	out := make([]string, 0, len(subjects))
	for _, s := range subjects {
		out = append(out, s)
	}
	return out
}

// SubjectFor maps an event type to its subject
func SubjectFor(eventType events.EventType) (string, bool) {
	s, ok := subjects[eventType]
	return s, ok
}

// Envelope wraps every published event
type Envelope struct {
	EventID       string           `json:"eventId"`
	EventType     events.EventType `json:"eventType"`
	Timestamp     time.Time        `json:"timestamp"`
	SourceService string           `json:"sourceService"`
	Payload       json.RawMessage  `json:"payload"`
}

// MessageBus is the publishing side of a NATS connection
type MessageBus interface {
	Publish(ctx context.Context, subject, msgID string, data []byte) error
}

// EventPublisher forwards committed store events to NATS
type EventPublisher struct {
	bus   MessageBus
	now   func() time.Time
	newID func() string
}

// NewEventPublisher creates a publisher over bus
func NewEventPublisher(bus MessageBus) *EventPublisher {
	return &EventPublisher{
		bus:   bus,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Subscribe registers the publisher on every event type it has a subject for
func (p *EventPublisher) Subscribe(eventBus *events.Bus) {
	for eventType := range subjects {
		eventBus.Subscribe(eventType, func(ctx context.Context, event events.Event) {
			if err := p.Publish(ctx, event); err != nil {
				log.WithFields(log.Fields{
					"eventType": event.Type(),
					"error":     err,
				}).Error("Failed to publish event to NATS")
			}
		})
	}
}

// Publish wraps event in an envelope and sends it to its subject
func (p *EventPublisher) Publish(ctx context.Context, event events.Event) error {
	subject, ok := SubjectFor(event.Type())
	if !ok {
		return fmt.Errorf("no subject for event type %s", event.Type())
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	envelope := Envelope{
		EventID:       p.newID(),
		EventType:     event.Type(),
		Timestamp:     p.now().UTC(),
		SourceService: "gamestake",
		Payload:       payload,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	if err := p.bus.Publish(ctx, subject, envelope.EventID, data); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"eventType": event.Type(),
		"eventId":   envelope.EventID,
		"subject":   subject,
	}).Debug("Published event to NATS")
	return nil
}
