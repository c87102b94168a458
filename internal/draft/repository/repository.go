// Package repository persists rooms and committed picks to Postgres. The
// in-memory state store stays authoritative during a live draft; this layer
// exists so a finished or crashed room can be reloaded.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bestballhq/draftengine/internal/models"
)

// ErrPickAlreadySaved reports a pick row that already exists for the slot.
var ErrPickAlreadySaved = errors.New("pick already saved for slot")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveRoom upserts the room row and its player catalogue in one transaction.
func (r *Repository) SaveRoom(ctx context.Context, room models.Room, players []models.Player) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	order := make([]uuid.UUID, len(room.Settings.DraftOrder))
	copy(order, room.Settings.DraftOrder)

	_, err = tx.Exec(ctx, `
		INSERT INTO draft_rooms (id, status, rounds, time_per_pick_sec, draft_order, third_round_reversal, current_pick_index)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			current_pick_index = EXCLUDED.current_pick_index`,
		room.ID, string(room.Status), room.Settings.Rounds, room.Settings.TimePerPickSec,
		order, room.Settings.ThirdRoundReversal, room.CurrentPickIndex,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert room: %w", err)
	}

	for _, p := range players {
		_, err = tx.Exec(ctx, `
			INSERT INTO room_players (room_id, player_id, full_name, team_code, position, adp, projected_points)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (room_id, player_id) DO NOTHING`,
			room.ID, p.ID, p.FullName, p.TeamCode, string(p.Position), p.ADP, p.ProjectedPoints,
		)
		if err != nil {
			return fmt.Errorf("failed to insert player %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SavePick writes one committed pick. A slot is written at most once; a
// second write for the same slot returns ErrPickAlreadySaved.
func (r *Repository) SavePick(ctx context.Context, pick models.Pick) error {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO draft_picks (room_id, pick_index, round, pick_in_round, participant_id, player_id, picked_at, origin)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (room_id, pick_index) DO NOTHING`,
		pick.RoomID, pick.PickIndex, pick.Round, pick.PickInRound,
		pick.ParticipantID, pick.PlayerID, pick.PickedAt, string(pick.Origin),
	)
	if err != nil {
		return fmt.Errorf("failed to insert pick: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPickAlreadySaved
	}
	return nil
}

// UpdateRoomStatus records a status transition.
func (r *Repository) UpdateRoomStatus(ctx context.Context, roomID uuid.UUID, status models.RoomStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE draft_rooms SET status = $2 WHERE id = $1`,
		roomID, string(status),
	)
	if err != nil {
		return fmt.Errorf("failed to update room status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("room %s not found", roomID)
	}
	return nil
}

// LoadRoom reads a room and its catalogue back from Postgres.
func (r *Repository) LoadRoom(ctx context.Context, roomID uuid.UUID) (models.Room, []models.Player, error) {
	var room models.Room
	var status string
	room.ID = roomID

	err := r.pool.QueryRow(ctx, `
		SELECT status, rounds, time_per_pick_sec, draft_order, third_round_reversal, current_pick_index
		FROM draft_rooms WHERE id = $1`, roomID,
	).Scan(&status, &room.Settings.Rounds, &room.Settings.TimePerPickSec,
		&room.Settings.DraftOrder, &room.Settings.ThirdRoundReversal, &room.CurrentPickIndex)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Room{}, nil, fmt.Errorf("room %s not found", roomID)
	}
	if err != nil {
		return models.Room{}, nil, fmt.Errorf("failed to load room: %w", err)
	}
	room.Status = models.RoomStatus(status)

	rows, err := r.pool.Query(ctx, `
		SELECT player_id, full_name, team_code, position, adp, projected_points
		FROM room_players WHERE room_id = $1 ORDER BY adp`, roomID)
	if err != nil {
		return models.Room{}, nil, fmt.Errorf("failed to load players: %w", err)
	}
	defer rows.Close()

	var players []models.Player
	for rows.Next() {
		var p models.Player
		var pos string
		if err := rows.Scan(&p.ID, &p.FullName, &p.TeamCode, &pos, &p.ADP, &p.ProjectedPoints); err != nil {
			return models.Room{}, nil, fmt.Errorf("failed to scan player: %w", err)
		}
		p.Position = models.Position(pos)
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return models.Room{}, nil, fmt.Errorf("failed to load players: %w", err)
	}
	return room, players, nil
}

// LoadPicks reads a room's committed picks ordered by pick index.
func (r *Repository) LoadPicks(ctx context.Context, roomID uuid.UUID) ([]models.Pick, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT pick_index, round, pick_in_round, participant_id, player_id, picked_at, origin
		FROM draft_picks WHERE room_id = $1 ORDER BY pick_index`, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to load picks: %w", err)
	}
	defer rows.Close()

	var picks []models.Pick
	for rows.Next() {
		p := models.Pick{RoomID: roomID}
		var origin string
		if err := rows.Scan(&p.PickIndex, &p.Round, &p.PickInRound, &p.ParticipantID, &p.PlayerID, &p.PickedAt, &origin); err != nil {
			return nil, fmt.Errorf("failed to scan pick: %w", err)
		}
		p.Origin = models.PickOrigin(origin)
		picks = append(picks, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load picks: %w", err)
	}
	return picks, nil
}
