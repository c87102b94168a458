// Package autopick selects a player on behalf of a drafter whose clock
// expired. Preference order: the drafter's rankings queue, then best
// available ADP, relaxing positional limits only when nothing else qualifies.
package autopick

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bestballhq/draftengine/internal/draft/policy"
	"github.com/bestballhq/draftengine/internal/models"
)

// ErrPoolExhausted signals zero remaining players while picks are still
// scheduled. This is a room misconfiguration, not a recoverable condition.
var ErrPoolExhausted = errors.New("autopick: remaining player pool is empty")

// RoomView is the consistent snapshot a strategy resolves against. Queue and
// Limits are the values in effect at the moment the clock expired; Available
// is sorted ascending by ADP.
type RoomView struct {
	RoomID        uuid.UUID
	ParticipantID uuid.UUID
	PickIndex     int
	Queue         []uuid.UUID
	Limits        models.PositionalLimits
	Counts        models.RosterCounts
	Available     []models.Player
}

// Strategy chooses a player for an expired slot.
type Strategy interface {
	Select(ctx context.Context, view RoomView) (uuid.UUID, error)
}

// QueueStrategy is the default strategy: rankings queue first, ADP fallback,
// limits relaxed as the last resort so an unattended roster is never starved.
type QueueStrategy struct{}

// NewQueueStrategy returns the default strategy.
func NewQueueStrategy() *QueueStrategy {
	return &QueueStrategy{}
}

// Select implements Strategy. It always returns a player id when the
// remaining pool is non-empty.
func (s *QueueStrategy) Select(_ context.Context, view RoomView) (uuid.UUID, error) {
	if len(view.Available) == 0 {
		return uuid.Nil, ErrPoolExhausted
	}

	available := make(map[uuid.UUID]models.Player, len(view.Available))
	for _, p := range view.Available {
		available[p.ID] = p
	}

	// Walk the rankings queue in order: first listed player that is still
	// available and under its positional limit wins.
	for _, id := range view.Queue {
		p, ok := available[id]
		if !ok {
			continue
		}
		if policy.Permits(view.Counts, view.Limits, p.Position) {
			log.Debug().
				Str("room_id", view.RoomID.String()).
				Str("player_id", id.String()).
				Msg("autopick selected from rankings queue")
			return id, nil
		}
	}

	// Queue empty or exhausted: best ADP available under limits.
	for _, p := range view.Available {
		if policy.Permits(view.Counts, view.Limits, p.Position) {
			log.Debug().
				Str("room_id", view.RoomID.String()).
				Str("player_id", p.ID.String()).
				Msg("autopick selected by ADP")
			return p.ID, nil
		}
	}

	// Every remaining position is saturated. Limits are advisory for
	// autopick: take the best ADP remaining so the roster stays completable.
	best := view.Available[0]
	log.Warn().
		Str("room_id", view.RoomID.String()).
		Str("participant_id", view.ParticipantID.String()).
		Str("player_id", best.ID.String()).
		Msg("autopick relaxed positional limits; all remaining positions saturated")
	return best.ID, nil
}
