// Package events defines the JSON payloads shared by the engine, the
// publisher and the gateway.
package events

import (
	"encoding/json"
	"time"
)

// Event types emitted by the room engine.
const (
	TypePickStarted   = "PickStarted"
	TypePickMade      = "PickMade"
	TypeRoomStarted   = "RoomStarted"
	TypeRoomPaused    = "RoomPaused"
	TypeRoomResumed   = "RoomResumed"
	TypeRoomCompleted = "RoomCompleted"
	TypeRoomFailed    = "RoomFailed"
	TypeTimerTick     = "TimerTick"
)

// Envelope wraps every published event.
type Envelope struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	RoomID    string          `json:"room_id"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// PickStartedPayload announces that a slot's clock began counting down.
type PickStartedPayload struct {
	PickIndex      int       `json:"pick_index"`
	Round          int       `json:"round"`
	PickInRound    int       `json:"pick_in_round"`
	ParticipantID  string    `json:"participant_id"`
	StartedAt      time.Time `json:"started_at"`
	DeadlineAt     time.Time `json:"deadline_at"`
	TimePerPickSec int       `json:"time_per_pick_sec"`
}

// PickMadePayload announces a committed pick.
type PickMadePayload struct {
	PickIndex     int       `json:"pick_index"`
	Round         int       `json:"round"`
	PickInRound   int       `json:"pick_in_round"`
	ParticipantID string    `json:"participant_id"`
	PlayerID      string    `json:"player_id"`
	PlayerName    string    `json:"player_name"`
	Origin        string    `json:"origin"`
	MadeAt        time.Time `json:"made_at"`
}

// RoomStartedPayload announces a room going active.
type RoomStartedPayload struct {
	RoomID      string    `json:"room_id"`
	StartedAt   time.Time `json:"started_at"`
	TotalRounds int       `json:"total_rounds"`
	TotalPicks  int       `json:"total_picks"`
}

// RoomPausedPayload announces an administrative pause.
type RoomPausedPayload struct {
	RoomID   string    `json:"room_id"`
	PausedAt time.Time `json:"paused_at"`
	Reason   string    `json:"reason"`
}

// RoomResumedPayload announces a resume after pause.
type RoomResumedPayload struct {
	RoomID    string    `json:"room_id"`
	ResumedAt time.Time `json:"resumed_at"`
}

// RoomCompletedPayload announces every slot committed.
type RoomCompletedPayload struct {
	RoomID      string    `json:"room_id"`
	CompletedAt time.Time `json:"completed_at"`
	TotalPicks  int       `json:"total_picks"`
}

// RoomFailedPayload announces a fatal room error (e.g. pool exhausted with
// picks still scheduled).
type RoomFailedPayload struct {
	RoomID   string    `json:"room_id"`
	FailedAt time.Time `json:"failed_at"`
	Reason   string    `json:"reason"`
}

// TimerTickPayload carries periodic countdown updates to connected clients.
type TimerTickPayload struct {
	PickIndex        int       `json:"pick_index"`
	ParticipantID    string    `json:"participant_id"`
	TimeRemainingSec int       `json:"time_remaining_sec"`
	TickedAt         time.Time `json:"ticked_at"`
}
