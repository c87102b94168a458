package gateway

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/bestballhq/draftengine/internal/draft/engine"
	"github.com/bestballhq/draftengine/internal/draft/events"
	"github.com/bestballhq/draftengine/internal/draft/publisher"
	"github.com/bestballhq/draftengine/internal/models"
)

// TimerTicker periodically pushes countdown updates for rooms with
// connected clients. Ticks are presentation sugar; the authoritative
// deadline lives in the engine's pick clock.
type TimerTicker struct {
	engine  *engine.Engine
	manager *ConnectionManager
	clock   clockwork.Clock
}

// NewTimerTicker creates a ticker over every room the engine holds.
func NewTimerTicker(eng *engine.Engine, cm *ConnectionManager, clk clockwork.Clock) *TimerTicker {
	return &TimerTicker{engine: eng, manager: cm, clock: clk}
}

// Run broadcasts a TimerTick per active room every second until ctx ends.
func (t *TimerTicker) Run(ctx context.Context) {
	ticker := t.clock.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			t.tick(ctx)
		}
	}
}

func (t *TimerTicker) tick(ctx context.Context) {
	for _, room := range t.engine.Rooms() {
		if room.Status != models.RoomStatusActive {
			continue
		}
		if t.manager.ConnectionCount(room.ID) == 0 {
			continue
		}
		deadline, armed := t.engine.Deadline(room.ID)
		if !armed {
			continue
		}
		slot, ok, err := t.engine.CurrentSlot(room.ID)
		if err != nil || !ok {
			continue
		}
		remaining := int(deadline.Sub(t.clock.Now()).Seconds())
		if remaining < 0 {
			remaining = 0
		}
		env, err := publisher.NewEnvelope(events.TypeTimerTick, room.ID, t.clock.Now(), events.TimerTickPayload{
			PickIndex:        slot.PickIndex,
			ParticipantID:    slot.Participant.String(),
			TimeRemainingSec: remaining,
			TickedAt:         t.clock.Now(),
		})
		if err != nil {
			log.Error().Err(err).Msg("failed to build timer tick")
			continue
		}
		if err := t.manager.Publish(ctx, env); err != nil {
			log.Error().Err(err).Str("room_id", room.ID.String()).Msg("failed to broadcast timer tick")
		}
	}
}
