package state

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bestballhq/draftengine/internal/models"
)

type fixture struct {
	store        *Store
	clock        *clockwork.FakeClock
	room         models.Room
	participants []uuid.UUID
	players      []models.Player
}

// newFixture opens a 2-participant, 2-round room with four players whose ADP
// ascends in slice order.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	clk := clockwork.NewFakeClock()
	store := NewStore(clk)

	participants := []uuid.UUID{uuid.New(), uuid.New()}
	players := []models.Player{
		{ID: uuid.New(), FullName: "Alpha Back", Position: models.PositionRB, ADP: 1.1},
		{ID: uuid.New(), FullName: "Bravo Wideout", Position: models.PositionWR, ADP: 2.4},
		{ID: uuid.New(), FullName: "Charlie Quarterback", Position: models.PositionQB, ADP: 3.0},
		{ID: uuid.New(), FullName: "Delta End", Position: models.PositionTE, ADP: 7.8},
	}

	room := models.Room{
		ID:     uuid.New(),
		Status: models.RoomStatusScheduled,
		Settings: models.RoomSettings{
			Rounds:         2,
			TimePerPickSec: 30,
			DraftOrder:     participants,
		},
	}
	require.NoError(t, store.OpenRoom(room, players))

	return &fixture{store: store, clock: clk, room: room, participants: participants, players: players}
}

func (f *fixture) activate(t *testing.T) {
	t.Helper()
	_, err := f.store.SetStatus(f.room.ID, models.RoomStatusActive)
	require.NoError(t, err)
}

func (f *fixture) commit(pickIndex int, participant, player uuid.UUID) (*models.Pick, error) {
	return f.store.CommitPick(CommitRequest{
		RoomID:        f.room.ID,
		PickIndex:     pickIndex,
		ParticipantID: participant,
		PlayerID:      player,
		Origin:        models.PickOriginManual,
	})
}

func TestOpenRoomValidation(t *testing.T) {
	clk := clockwork.NewFakeClock()
	store := NewStore(clk)
	p1 := uuid.New()

	err := store.OpenRoom(models.Room{
		ID:       uuid.New(),
		Settings: models.RoomSettings{Rounds: 2, DraftOrder: []uuid.UUID{p1}},
	}, nil)
	assert.Error(t, err, "single participant rejected")

	err = store.OpenRoom(models.Room{
		ID:       uuid.New(),
		Settings: models.RoomSettings{Rounds: 0, DraftOrder: []uuid.UUID{p1, uuid.New()}},
	}, nil)
	assert.Error(t, err, "zero rounds rejected")

	err = store.OpenRoom(models.Room{
		ID:       uuid.New(),
		Settings: models.RoomSettings{Rounds: 1, DraftOrder: []uuid.UUID{p1, p1}},
	}, nil)
	assert.Error(t, err, "duplicate participant rejected")

	dup := uuid.New()
	err = store.OpenRoom(models.Room{
		ID:       uuid.New(),
		Settings: models.RoomSettings{Rounds: 1, DraftOrder: []uuid.UUID{p1, uuid.New()}},
	}, []models.Player{
		{ID: dup, Position: models.PositionQB},
		{ID: dup, Position: models.PositionQB},
	})
	assert.Error(t, err, "duplicate player rejected")
}

func TestStatusTransitions(t *testing.T) {
	f := newFixture(t)

	_, err := f.store.SetStatus(f.room.ID, models.RoomStatusPaused)
	assert.Error(t, err, "scheduled cannot pause")

	room, err := f.store.SetStatus(f.room.ID, models.RoomStatusActive)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusActive, room.Status)
	require.NotNil(t, room.StartedAt)

	room, err = f.store.SetStatus(f.room.ID, models.RoomStatusPaused)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusPaused, room.Status)

	room, err = f.store.SetStatus(f.room.ID, models.RoomStatusActive)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusActive, room.Status)

	// Same-status transition is a no-op, not an error.
	_, err = f.store.SetStatus(f.room.ID, models.RoomStatusActive)
	assert.NoError(t, err)

	_, err = f.store.SetStatus(f.room.ID, models.RoomStatusFailed)
	require.NoError(t, err)
	_, err = f.store.SetStatus(f.room.ID, models.RoomStatusActive)
	assert.Error(t, err, "failed is terminal")
}

func TestCommitPickRoomNotActive(t *testing.T) {
	f := newFixture(t)

	_, err := f.commit(0, f.participants[0], f.players[0].ID)
	assert.True(t, IsKind(err, KindRoomNotActive))
}

func TestCommitPickHappyPath(t *testing.T) {
	f := newFixture(t)
	f.activate(t)

	pick, err := f.commit(0, f.participants[0], f.players[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 0, pick.PickIndex)
	assert.Equal(t, 1, pick.Round)
	assert.Equal(t, 1, pick.PickInRound)
	assert.Equal(t, models.PickOriginManual, pick.Origin)
	assert.Equal(t, f.clock.Now(), pick.PickedAt)

	room, err := f.store.Room(f.room.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, room.CurrentPickIndex)

	counts, err := f.store.RosterCounts(f.room.ID, f.participants[0])
	require.NoError(t, err)
	assert.Equal(t, 1, counts[models.PositionRB])
}

func TestCommitPickNotOnClock(t *testing.T) {
	f := newFixture(t)
	f.activate(t)

	// Future slot.
	_, err := f.commit(1, f.participants[1], f.players[0].ID)
	assert.True(t, IsKind(err, KindNotOnClock))

	// Wrong participant for the current slot.
	_, err = f.commit(0, f.participants[1], f.players[0].ID)
	assert.True(t, IsKind(err, KindNotOnClock))

	// Out of range.
	_, err = f.commit(99, f.participants[0], f.players[0].ID)
	assert.True(t, IsKind(err, KindNotOnClock))

	// Nothing mutated.
	room, err := f.store.Room(f.room.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, room.CurrentPickIndex)
}

func TestCommitPickSlotAlreadyFilled(t *testing.T) {
	f := newFixture(t)
	f.activate(t)

	first, err := f.commit(0, f.participants[0], f.players[0].ID)
	require.NoError(t, err)

	_, err = f.commit(0, f.participants[0], f.players[1].ID)
	ce, ok := AsCommitError(err)
	require.True(t, ok)
	assert.Equal(t, KindSlotAlreadyFilled, ce.Kind)
	require.NotNil(t, ce.Existing, "loser observes the committed pick")
	assert.Equal(t, first.PlayerID, ce.Existing.PlayerID)
	assert.Equal(t, first.ParticipantID, ce.Existing.ParticipantID)
}

func TestCommitPickPlayerAlreadyDrafted(t *testing.T) {
	f := newFixture(t)
	f.activate(t)

	_, err := f.commit(0, f.participants[0], f.players[0].ID)
	require.NoError(t, err)

	_, err = f.commit(1, f.participants[1], f.players[0].ID)
	assert.True(t, IsKind(err, KindPlayerAlreadyDrafted))
}

func TestCommitPickUnknownPlayer(t *testing.T) {
	f := newFixture(t)
	f.activate(t)

	_, err := f.commit(0, f.participants[0], uuid.New())
	assert.True(t, IsKind(err, KindPlayerNotInPool))

	// Nothing mutated.
	room, rerr := f.store.Room(f.room.ID)
	require.NoError(t, rerr)
	assert.Equal(t, 0, room.CurrentPickIndex)
}

func TestCommitPickManualLimitEnforced(t *testing.T) {
	f := newFixture(t)
	f.activate(t)

	limits := models.PositionalLimits{models.PositionRB: 0}
	_, err := f.store.CommitPick(CommitRequest{
		RoomID:        f.room.ID,
		PickIndex:     0,
		ParticipantID: f.participants[0],
		PlayerID:      f.players[0].ID,
		Origin:        models.PickOriginManual,
		Limits:        limits,
	})
	assert.True(t, IsKind(err, KindPositionalLimitExceeded))

	// Rejection leaves counts and the clock position untouched.
	counts, cerr := f.store.RosterCounts(f.room.ID, f.participants[0])
	require.NoError(t, cerr)
	assert.Equal(t, 0, counts.Total())
	room, rerr := f.store.Room(f.room.ID)
	require.NoError(t, rerr)
	assert.Equal(t, 0, room.CurrentPickIndex)
}

func TestCommitPickAutopickBypassesLimits(t *testing.T) {
	f := newFixture(t)
	f.activate(t)

	// Autopick carries no limits; resolution already applied or relaxed them.
	pick, err := f.store.CommitPick(CommitRequest{
		RoomID:        f.room.ID,
		PickIndex:     0,
		ParticipantID: f.participants[0],
		PlayerID:      f.players[0].ID,
		Origin:        models.PickOriginAutopick,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PickOriginAutopick, pick.Origin)
}

func TestCommitPickCompletesRoom(t *testing.T) {
	f := newFixture(t)
	f.activate(t)

	// 2 participants x 2 rounds, snake: P1 P2 P2 P1.
	owners := []uuid.UUID{f.participants[0], f.participants[1], f.participants[1], f.participants[0]}
	for i, owner := range owners {
		_, err := f.commit(i, owner, f.players[i].ID)
		require.NoError(t, err, "pick %d", i)
	}

	room, err := f.store.Room(f.room.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusCompleted, room.Status)
	require.NotNil(t, room.CompletedAt)

	_, err = f.commit(3, f.participants[0], f.players[3].ID)
	assert.True(t, IsKind(err, KindRoomNotActive), "completed room accepts nothing")
}

func TestCommitPickConcurrentExactlyOnce(t *testing.T) {
	f := newFixture(t)
	f.activate(t)

	const goroutines = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	losers := 0

	// Every goroutine races to fill slot 0 with a distinct player; exactly
	// one commit may win.
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			player := f.players[n%len(f.players)].ID
			_, err := f.commit(0, f.participants[0], player)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners++
			} else {
				losers++
			}
		}(g)
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	assert.Equal(t, goroutines-1, losers)

	room, err := f.store.Room(f.room.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, room.CurrentPickIndex)
}

func TestAvailablePlayersSortedAndShrinks(t *testing.T) {
	f := newFixture(t)
	f.activate(t)

	available, err := f.store.AvailablePlayers(f.room.ID)
	require.NoError(t, err)
	require.Len(t, available, 4)
	for i := 1; i < len(available); i++ {
		assert.LessOrEqual(t, available[i-1].ADP, available[i].ADP)
	}

	_, err = f.commit(0, f.participants[0], f.players[0].ID)
	require.NoError(t, err)

	available, err = f.store.AvailablePlayers(f.room.ID)
	require.NoError(t, err)
	require.Len(t, available, 3)
	for _, p := range available {
		assert.NotEqual(t, f.players[0].ID, p.ID)
	}
}

func TestSnapshot(t *testing.T) {
	f := newFixture(t)
	f.activate(t)

	_, err := f.commit(0, f.participants[0], f.players[0].ID)
	require.NoError(t, err)

	snap, err := f.store.Snapshot(f.room.ID)
	require.NoError(t, err)
	assert.Equal(t, f.room.ID, snap.RoomID)
	assert.Equal(t, models.RoomStatusActive, snap.Status)
	assert.Equal(t, 1, snap.CurrentPickIndex)
	assert.Equal(t, 4, snap.TotalPicks)
	require.Len(t, snap.Picks, 1)
	assert.Equal(t, f.players[0].ID, snap.Picks[0].PlayerID)
	assert.Equal(t, 1, snap.RosterCounts[f.participants[0]][models.PositionRB])
}

func TestRoomNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.store.Room(uuid.New())
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, err = f.store.Snapshot(uuid.New())
	assert.ErrorIs(t, err, ErrRoomNotFound)
}
