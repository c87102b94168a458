package models

import (
	"time"

	"github.com/google/uuid"
)

// PickOrigin records how a pick was produced.
type PickOrigin string

const (
	PickOriginManual   PickOrigin = "MANUAL"
	PickOriginAutopick PickOrigin = "AUTOPICK"
)

// Pick is an immutable fact once committed: exactly one per pick slot,
// and no player appears in more than one Pick within a room.
type Pick struct {
	RoomID        uuid.UUID  `json:"room_id"`
	PickIndex     int        `json:"pick_index"` // absolute, 0-based
	Round         int        `json:"round"`      // 1-based
	PickInRound   int        `json:"pick_in_round"`
	ParticipantID uuid.UUID  `json:"participant_id"`
	PlayerID      uuid.UUID  `json:"player_id"`
	PickedAt      time.Time  `json:"picked_at"`
	Origin        PickOrigin `json:"origin"`
}
