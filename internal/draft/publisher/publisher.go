// Package publisher sends room events to the message bus.
package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bestballhq/draftengine/internal/draft/events"
)

// Publisher delivers event envelopes to interested consumers.
type Publisher interface {
	Publish(ctx context.Context, env events.Envelope) error
}

// NewEnvelope wraps a payload for publication.
func NewEnvelope(eventType string, roomID uuid.UUID, ts time.Time, payload any) (events.Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return events.Envelope{}, err
	}
	return events.Envelope{
		EventID:   uuid.New().String(),
		EventType: eventType,
		RoomID:    roomID.String(),
		Timestamp: ts,
		Payload:   raw,
	}, nil
}

// LogPublisher writes events to the log only. Used in development and tests
// when no message bus is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, env events.Envelope) error {
	log.Debug().
		Str("event_id", env.EventID).
		Str("event_type", env.EventType).
		Str("room_id", env.RoomID).
		Msg("publishing event")
	return nil
}
