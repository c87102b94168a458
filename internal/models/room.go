package models

import (
	"time"

	"github.com/google/uuid"
)

// RoomStatus defines the lifecycle status of a draft room.
type RoomStatus string

const (
	RoomStatusScheduled RoomStatus = "SCHEDULED"
	RoomStatusActive    RoomStatus = "ACTIVE"
	RoomStatusPaused    RoomStatus = "PAUSED"
	RoomStatusCompleted RoomStatus = "COMPLETED"
	RoomStatusFailed    RoomStatus = "FAILED"
)

// RoomSettings holds per-room draft configuration.
type RoomSettings struct {
	Rounds             int         `json:"rounds"`
	TimePerPickSec     int         `json:"time_per_pick_sec"`
	DraftOrder         []uuid.UUID `json:"draft_order"` // seed order, length N
	ThirdRoundReversal bool        `json:"third_round_reversal,omitempty"`
}

// TotalPicks returns the number of pick slots the room schedules.
func (s RoomSettings) TotalPicks() int {
	return s.Rounds * len(s.DraftOrder)
}

// Room represents one draft instance.
type Room struct {
	ID               uuid.UUID    `json:"id"`
	Settings         RoomSettings `json:"settings"`
	Status           RoomStatus   `json:"status"`
	CurrentPickIndex int          `json:"current_pick_index"` // absolute, 0-based, monotonic
	ScheduledAt      *time.Time   `json:"scheduled_at,omitempty"`
	StartedAt        *time.Time   `json:"started_at,omitempty"`
	CompletedAt      *time.Time   `json:"completed_at,omitempty"`
}

// RosterCounts is the per-position breakdown of a participant's committed picks.
type RosterCounts map[Position]int

// Total returns the number of picks across all positions.
func (c RosterCounts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// Clone returns an independent copy.
func (c RosterCounts) Clone() RosterCounts {
	out := make(RosterCounts, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// PositionalLimits maps a position to the maximum roster count a participant
// allows at that position. A missing entry means unlimited.
type PositionalLimits map[Position]int

// Clone returns an independent copy.
func (l PositionalLimits) Clone() PositionalLimits {
	out := make(PositionalLimits, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}
