// Package engine drives draft rooms: it owns the pick clock, routes manual
// submissions and clock expiries through the state store's single commit
// path, and advances the draft slot by slot until the room completes.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/bestballhq/draftengine/internal/compliance"
	"github.com/bestballhq/draftengine/internal/draft/autopick"
	"github.com/bestballhq/draftengine/internal/draft/clock"
	"github.com/bestballhq/draftengine/internal/draft/events"
	"github.com/bestballhq/draftengine/internal/draft/publisher"
	"github.com/bestballhq/draftengine/internal/draft/scheduler"
	"github.com/bestballhq/draftengine/internal/draft/state"
	"github.com/bestballhq/draftengine/internal/models"
	"github.com/bestballhq/draftengine/internal/rankings"
)

// Repository persists committed facts. The in-memory store stays
// authoritative during a live draft; persistence failures are logged, never
// allowed to block the clock.
type Repository interface {
	SaveRoom(ctx context.Context, room models.Room, players []models.Player) error
	SavePick(ctx context.Context, pick models.Pick) error
	UpdateRoomStatus(ctx context.Context, roomID uuid.UUID, status models.RoomStatus) error
}

// Config wires an Engine. Store and Rankings are required; nil Gate,
// Strategy and Publisher fall back to allow-all, queue-then-ADP and
// log-only respectively.
type Config struct {
	Store     *state.Store
	Rankings  *rankings.Store
	Gate      compliance.Gate
	Strategy  autopick.Strategy
	Publisher publisher.Publisher
	Repo      Repository
	Clock     clockwork.Clock
}

// Engine coordinates every open room.
type Engine struct {
	store    *state.Store
	rankings *rankings.Store
	gate     compliance.Gate
	strat    autopick.Strategy
	pub      publisher.Publisher
	repo     Repository
	clk      clockwork.Clock
	picks    *clock.PickClock
}

// New creates an Engine.
func New(cfg Config) *Engine {
	if cfg.Gate == nil {
		cfg.Gate = compliance.AllowAll{}
	}
	if cfg.Strategy == nil {
		cfg.Strategy = autopick.NewQueueStrategy()
	}
	if cfg.Publisher == nil {
		cfg.Publisher = publisher.LogPublisher{}
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	e := &Engine{
		store:    cfg.Store,
		rankings: cfg.Rankings,
		gate:     cfg.Gate,
		strat:    cfg.Strategy,
		pub:      cfg.Publisher,
		repo:     cfg.Repo,
		clk:      cfg.Clock,
	}
	e.picks = clock.New(cfg.Clock, e.handleExpiry)
	return e
}

// OpenRoom registers a room and its player pool ahead of the start.
func (e *Engine) OpenRoom(ctx context.Context, room models.Room, players []models.Player) error {
	if room.Settings.TimePerPickSec <= 0 {
		return fmt.Errorf("room %s: time per pick must be positive", room.ID)
	}
	if err := e.store.OpenRoom(room, players); err != nil {
		return err
	}
	if e.repo != nil {
		if err := e.repo.SaveRoom(ctx, room, players); err != nil {
			log.Error().Err(err).Str("room_id", room.ID.String()).Msg("failed to persist room")
		}
	}
	return nil
}

// StartRoom transitions a scheduled room to active and puts the first slot
// on the clock.
func (e *Engine) StartRoom(ctx context.Context, roomID uuid.UUID) error {
	room, err := e.store.SetStatus(roomID, models.RoomStatusActive)
	if err != nil {
		return err
	}
	e.persistStatus(ctx, roomID, models.RoomStatusActive)
	e.publish(ctx, events.TypeRoomStarted, roomID, events.RoomStartedPayload{
		RoomID:      roomID.String(),
		StartedAt:   e.clk.Now(),
		TotalRounds: room.Settings.Rounds,
		TotalPicks:  room.Settings.TotalPicks(),
	})

	log.Info().
		Str("room_id", roomID.String()).
		Int("total_picks", room.Settings.TotalPicks()).
		Msg("room started")

	return e.armCurrentSlot(ctx, roomID)
}

// SubmitPickRequest is a manual pick submission.
type SubmitPickRequest struct {
	RoomID        uuid.UUID
	PickIndex     int
	ParticipantID uuid.UUID
	PlayerID      uuid.UUID
}

// SubmitPick validates and commits a manual pick. A retry of an identical,
// already-committed submission returns the committed pick without error. A
// rejected pick leaves the slot's clock running.
func (e *Engine) SubmitPick(ctx context.Context, req SubmitPickRequest) (*models.Pick, error) {
	ok, err := e.gate.Eligible(ctx, req.ParticipantID)
	if err != nil {
		return nil, fmt.Errorf("compliance gate: %w", err)
	}
	if !ok {
		return nil, state.NewCommitError(state.KindNotEligible, "participant %s is not eligible to pick", req.ParticipantID)
	}

	_, limits := e.rankings.Get(req.RoomID, req.ParticipantID)

	pick, err := e.store.CommitPick(state.CommitRequest{
		RoomID:        req.RoomID,
		PickIndex:     req.PickIndex,
		ParticipantID: req.ParticipantID,
		PlayerID:      req.PlayerID,
		Origin:        models.PickOriginManual,
		Limits:        limits,
	})
	if err != nil {
		if ce, isCommit := state.AsCommitError(err); isCommit && ce.Kind == state.KindSlotAlreadyFilled {
			// Byte-identical retry of a committed slot is answered with the
			// committed pick, not an error.
			if ce.Existing != nil &&
				ce.Existing.ParticipantID == req.ParticipantID &&
				ce.Existing.PlayerID == req.PlayerID {
				return ce.Existing, nil
			}
		}
		return nil, err
	}

	e.afterCommit(ctx, pick)
	return pick, nil
}

// PauseRoom suspends the room and its pending clock, preserving remaining
// time for resume.
func (e *Engine) PauseRoom(ctx context.Context, roomID uuid.UUID, reason string) error {
	if _, err := e.store.SetStatus(roomID, models.RoomStatusPaused); err != nil {
		return err
	}
	e.picks.Pause(roomID)
	e.persistStatus(ctx, roomID, models.RoomStatusPaused)
	e.publish(ctx, events.TypeRoomPaused, roomID, events.RoomPausedPayload{
		RoomID:   roomID.String(),
		PausedAt: e.clk.Now(),
		Reason:   reason,
	})
	log.Info().Str("room_id", roomID.String()).Str("reason", reason).Msg("room paused")
	return nil
}

// ResumeRoom reactivates a paused room. The suspended countdown continues
// with the remaining time it had at pause, not a fresh clock.
func (e *Engine) ResumeRoom(ctx context.Context, roomID uuid.UUID) error {
	if _, err := e.store.SetStatus(roomID, models.RoomStatusActive); err != nil {
		return err
	}
	e.persistStatus(ctx, roomID, models.RoomStatusActive)
	e.publish(ctx, events.TypeRoomResumed, roomID, events.RoomResumedPayload{
		RoomID:    roomID.String(),
		ResumedAt: e.clk.Now(),
	})
	log.Info().Str("room_id", roomID.String()).Msg("room resumed")

	if !e.picks.Resume(roomID) {
		// Nothing was suspended (paused before any slot armed); arm fresh.
		return e.armCurrentSlot(ctx, roomID)
	}
	return nil
}

// SetRankings replaces a participant's autodraft queue and limits.
func (e *Engine) SetRankings(roomID, participantID uuid.UUID, queue []uuid.UUID, limits models.PositionalLimits) error {
	return e.rankings.Set(e.store, roomID, participantID, queue, limits)
}

// Snapshot exports the room's committed state.
func (e *Engine) Snapshot(roomID uuid.UUID) (*state.Snapshot, error) {
	return e.store.Snapshot(roomID)
}

// Deadline reports the armed deadline for a room's current slot.
func (e *Engine) Deadline(roomID uuid.UUID) (time.Time, bool) {
	return e.picks.Deadline(roomID)
}

// Room returns the room's metadata.
func (e *Engine) Room(roomID uuid.UUID) (models.Room, error) {
	return e.store.Room(roomID)
}

// RoomPool returns the room's full player catalogue.
func (e *Engine) RoomPool(roomID uuid.UUID) ([]models.Player, error) {
	return e.store.Pool(roomID)
}

// Rooms lists every room the engine currently holds.
func (e *Engine) Rooms() []models.Room {
	return e.store.Rooms()
}

// CurrentSlot reports the slot on the clock, or false once the draft is done.
func (e *Engine) CurrentSlot(roomID uuid.UUID) (scheduler.Slot, bool, error) {
	return e.store.CurrentSlot(roomID)
}

// Stop disarms every pending clock. Used on shutdown.
func (e *Engine) Stop() {
	e.picks.Stop()
}

// handleExpiry is the pick clock's fire handler. It resolves an automatic
// pick and commits it through the same path manual picks use.
func (e *Engine) handleExpiry(roomID uuid.UUID, pickIndex int) {
	ctx := context.Background()

	room, err := e.store.Room(roomID)
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID.String()).Msg("expiry for unknown room")
		return
	}
	slot, ok, err := e.store.CurrentSlot(roomID)
	if err != nil || !ok || slot.PickIndex != pickIndex {
		// The slot committed (or the room moved on) while the firing was in
		// flight; the commit path already disarmed and advanced.
		return
	}

	queue, limits := e.rankings.Get(roomID, slot.Participant)
	counts, err := e.store.RosterCounts(roomID, slot.Participant)
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID.String()).Msg("roster counts unavailable for autopick")
		return
	}
	available, err := e.store.AvailablePlayers(roomID)
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID.String()).Msg("available players unavailable for autopick")
		return
	}

	playerID, err := e.strat.Select(ctx, autopick.RoomView{
		RoomID:        roomID,
		ParticipantID: slot.Participant,
		PickIndex:     pickIndex,
		Queue:         queue,
		Limits:        limits,
		Counts:        counts,
		Available:     available,
	})
	if err != nil {
		if errors.Is(err, autopick.ErrPoolExhausted) {
			e.failRoom(ctx, roomID, "player pool exhausted with picks still scheduled")
			return
		}
		log.Error().Err(err).Str("room_id", roomID.String()).Msg("autopick strategy failed")
		return
	}

	pick, err := e.store.CommitPick(state.CommitRequest{
		RoomID:        roomID,
		PickIndex:     pickIndex,
		ParticipantID: slot.Participant,
		PlayerID:      playerID,
		Origin:        models.PickOriginAutopick,
	})
	if err != nil {
		if state.IsKind(err, state.KindSlotAlreadyFilled) {
			// Lost the race to a manual pick; the winner advanced the room.
			return
		}
		log.Error().Err(err).
			Str("room_id", roomID.String()).
			Int("pick_index", pickIndex).
			Msg("autopick commit failed")
		return
	}

	log.Info().
		Str("room_id", roomID.String()).
		Int("pick_index", pickIndex).
		Str("participant_id", slot.Participant.String()).
		Str("player_id", playerID.String()).
		Int("time_per_pick_sec", room.Settings.TimePerPickSec).
		Msg("autopick committed")

	e.afterCommit(ctx, pick)
}

// afterCommit runs once per committed pick: disarm the slot's clock, persist,
// announce, then arm the next slot or finish the room.
func (e *Engine) afterCommit(ctx context.Context, pick *models.Pick) {
	e.picks.Cancel(pick.RoomID, pick.PickIndex)

	if e.repo != nil {
		if err := e.repo.SavePick(ctx, *pick); err != nil {
			log.Error().Err(err).
				Str("room_id", pick.RoomID.String()).
				Int("pick_index", pick.PickIndex).
				Msg("failed to persist pick")
		}
	}

	playerName := ""
	if p, err := e.store.Player(pick.RoomID, pick.PlayerID); err == nil {
		playerName = p.FullName
	}
	e.publish(ctx, events.TypePickMade, pick.RoomID, events.PickMadePayload{
		PickIndex:     pick.PickIndex,
		Round:         pick.Round,
		PickInRound:   pick.PickInRound,
		ParticipantID: pick.ParticipantID.String(),
		PlayerID:      pick.PlayerID.String(),
		PlayerName:    playerName,
		Origin:        string(pick.Origin),
		MadeAt:        pick.PickedAt,
	})

	room, err := e.store.Room(pick.RoomID)
	if err != nil {
		log.Error().Err(err).Str("room_id", pick.RoomID.String()).Msg("room lookup after commit failed")
		return
	}
	if room.Status == models.RoomStatusCompleted {
		e.persistStatus(ctx, pick.RoomID, models.RoomStatusCompleted)
		e.publish(ctx, events.TypeRoomCompleted, pick.RoomID, events.RoomCompletedPayload{
			RoomID:      pick.RoomID.String(),
			CompletedAt: e.clk.Now(),
			TotalPicks:  room.Settings.TotalPicks(),
		})
		log.Info().Str("room_id", pick.RoomID.String()).Msg("room completed")
		return
	}
	if room.Status != models.RoomStatusActive {
		// Paused mid-commit; resume will arm the next slot.
		return
	}
	if err := e.armCurrentSlot(ctx, pick.RoomID); err != nil {
		log.Error().Err(err).Str("room_id", pick.RoomID.String()).Msg("failed to arm next slot")
	}
}

// armCurrentSlot starts the countdown for the room's current slot and
// announces PickStarted.
func (e *Engine) armCurrentSlot(ctx context.Context, roomID uuid.UUID) error {
	room, err := e.store.Room(roomID)
	if err != nil {
		return err
	}
	slot, ok, err := e.store.CurrentSlot(roomID)
	if err != nil {
		return err
	}
	if !ok {
		// Beyond the final slot: completion, not an error.
		return nil
	}

	d := time.Duration(room.Settings.TimePerPickSec) * time.Second
	now := e.clk.Now()
	e.picks.Arm(roomID, slot.PickIndex, d)
	e.publish(ctx, events.TypePickStarted, roomID, events.PickStartedPayload{
		PickIndex:      slot.PickIndex,
		Round:          slot.Round,
		PickInRound:    slot.PickInRound,
		ParticipantID:  slot.Participant.String(),
		StartedAt:      now,
		DeadlineAt:     now.Add(d),
		TimePerPickSec: room.Settings.TimePerPickSec,
	})
	return nil
}

// failRoom transitions a room to the terminal Failed status. Only pool
// exhaustion reaches this path.
func (e *Engine) failRoom(ctx context.Context, roomID uuid.UUID, reason string) {
	log.Error().Str("room_id", roomID.String()).Str("reason", reason).Msg("room failed")
	if _, err := e.store.SetStatus(roomID, models.RoomStatusFailed); err != nil {
		log.Error().Err(err).Str("room_id", roomID.String()).Msg("failed status transition rejected")
	}
	e.persistStatus(ctx, roomID, models.RoomStatusFailed)
	e.publish(ctx, events.TypeRoomFailed, roomID, events.RoomFailedPayload{
		RoomID:   roomID.String(),
		FailedAt: e.clk.Now(),
		Reason:   reason,
	})
}

func (e *Engine) persistStatus(ctx context.Context, roomID uuid.UUID, status models.RoomStatus) {
	if e.repo == nil {
		return
	}
	if err := e.repo.UpdateRoomStatus(ctx, roomID, status); err != nil {
		log.Error().Err(err).
			Str("room_id", roomID.String()).
			Str("status", string(status)).
			Msg("failed to persist room status")
	}
}

func (e *Engine) publish(ctx context.Context, eventType string, roomID uuid.UUID, payload any) {
	env, err := publisher.NewEnvelope(eventType, roomID, e.clk.Now(), payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("failed to build event envelope")
		return
	}
	if err := e.pub.Publish(ctx, env); err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("failed to publish event")
	}
}
