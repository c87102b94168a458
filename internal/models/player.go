package models

import (
	"fmt"

	"github.com/google/uuid"
)

// Position is the closed set of draftable positions.
type Position string

const (
	PositionQB Position = "QB"
	PositionRB Position = "RB"
	PositionWR Position = "WR"
	PositionTE Position = "TE"
)

// AllPositions lists every valid Position.
var AllPositions = []Position{PositionQB, PositionRB, PositionWR, PositionTE}

// ParsePosition converts a raw string into a Position.
func ParsePosition(s string) (Position, error) {
	switch Position(s) {
	case PositionQB, PositionRB, PositionWR, PositionTE:
		return Position(s), nil
	default:
		return "", fmt.Errorf("invalid position: %q", s)
	}
}

// Player represents a draftable player. Immutable for the life of a room.
type Player struct {
	ID              uuid.UUID `json:"id"`
	FullName        string    `json:"full_name"`
	TeamCode        string    `json:"team_code"`
	Position        Position  `json:"position"`
	ADP             float64   `json:"adp"` // average draft position, lower = more desirable
	ProjectedPoints float64   `json:"projected_points"`
}
