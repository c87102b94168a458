package engine

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bestballhq/draftengine/internal/compliance"
	"github.com/bestballhq/draftengine/internal/draft/events"
	"github.com/bestballhq/draftengine/internal/draft/state"
	"github.com/bestballhq/draftengine/internal/models"
	"github.com/bestballhq/draftengine/internal/rankings"
)

// recordingPublisher collects envelopes and signals each arrival so tests can
// wait on asynchronous expiry handling.
type recordingPublisher struct {
	mu   sync.Mutex
	envs []events.Envelope
	ch   chan events.Envelope
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{ch: make(chan events.Envelope, 64)}
}

func (p *recordingPublisher) Publish(_ context.Context, env events.Envelope) error {
	p.mu.Lock()
	p.envs = append(p.envs, env)
	p.mu.Unlock()
	p.ch <- env
	return nil
}

func (p *recordingPublisher) waitFor(t *testing.T, eventType string) events.Envelope {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case env := <-p.ch:
			if env.EventType == eventType {
				return env
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", eventType)
		}
	}
}

func (p *recordingPublisher) typesSeen() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.envs))
	for i, env := range p.envs {
		out[i] = env.EventType
	}
	return out
}

type engineFixture struct {
	engine       *Engine
	clock        *clockwork.FakeClock
	pub          *recordingPublisher
	gate         *compliance.Denylist
	room         models.Room
	participants []uuid.UUID
	players      []models.Player
}

// newEngineFixture opens a 2-participant, 2-round room with a 30 second
// clock and the given player pool (defaults to four players by ADP order).
func newEngineFixture(t *testing.T, players []models.Player) *engineFixture {
	t.Helper()

	if players == nil {
		players = []models.Player{
			{ID: uuid.New(), FullName: "Alpha Back", Position: models.PositionRB, ADP: 1.0},
			{ID: uuid.New(), FullName: "Bravo Wideout", Position: models.PositionWR, ADP: 2.0},
			{ID: uuid.New(), FullName: "Charlie Quarterback", Position: models.PositionQB, ADP: 3.0},
			{ID: uuid.New(), FullName: "Delta End", Position: models.PositionTE, ADP: 4.0},
		}
	}

	clk := clockwork.NewFakeClock()
	pub := newRecordingPublisher()
	gate := compliance.NewDenylist()

	eng := New(Config{
		Store:     state.NewStore(clk),
		Rankings:  rankings.NewStore(),
		Gate:      gate,
		Publisher: pub,
		Clock:     clk,
	})
	t.Cleanup(eng.Stop)

	participants := []uuid.UUID{uuid.New(), uuid.New()}
	room := models.Room{
		ID:     uuid.New(),
		Status: models.RoomStatusScheduled,
		Settings: models.RoomSettings{
			Rounds:         2,
			TimePerPickSec: 30,
			DraftOrder:     participants,
		},
	}
	require.NoError(t, eng.OpenRoom(context.Background(), room, players))

	return &engineFixture{
		engine:       eng,
		clock:        clk,
		pub:          pub,
		gate:         gate,
		room:         room,
		participants: participants,
		players:      players,
	}
}

func (f *engineFixture) start(t *testing.T) {
	t.Helper()
	require.NoError(t, f.engine.StartRoom(context.Background(), f.room.ID))
	f.pub.waitFor(t, events.TypePickStarted)
}

func (f *engineFixture) submit(pickIndex int, participant, player uuid.UUID) (*models.Pick, error) {
	return f.engine.SubmitPick(context.Background(), SubmitPickRequest{
		RoomID:        f.room.ID,
		PickIndex:     pickIndex,
		ParticipantID: participant,
		PlayerID:      player,
	})
}

func TestOpenRoomRequiresPositiveClock(t *testing.T) {
	clk := clockwork.NewFakeClock()
	eng := New(Config{Store: state.NewStore(clk), Rankings: rankings.NewStore(), Clock: clk})
	defer eng.Stop()

	err := eng.OpenRoom(context.Background(), models.Room{
		ID: uuid.New(),
		Settings: models.RoomSettings{
			Rounds:         1,
			TimePerPickSec: 0,
			DraftOrder:     []uuid.UUID{uuid.New(), uuid.New()},
		},
	}, nil)
	assert.Error(t, err)
}

func TestStartRoomArmsFirstSlot(t *testing.T) {
	f := newEngineFixture(t, nil)

	require.NoError(t, f.engine.StartRoom(context.Background(), f.room.ID))

	env := f.pub.waitFor(t, events.TypePickStarted)
	var payload events.PickStartedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, 0, payload.PickIndex)
	assert.Equal(t, f.participants[0].String(), payload.ParticipantID)
	assert.Equal(t, 30, payload.TimePerPickSec)

	deadline, armed := f.engine.Deadline(f.room.ID)
	require.True(t, armed)
	assert.Equal(t, f.clock.Now().Add(30*time.Second), deadline)
}

func TestManualPickAdvancesAndRearms(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.start(t)

	pick, err := f.submit(0, f.participants[0], f.players[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.PickOriginManual, pick.Origin)

	made := f.pub.waitFor(t, events.TypePickMade)
	var payload events.PickMadePayload
	require.NoError(t, json.Unmarshal(made.Payload, &payload))
	assert.Equal(t, "Alpha Back", payload.PlayerName)

	// The next slot (round 1 pick 2, snake: still heading forward) is armed.
	env := f.pub.waitFor(t, events.TypePickStarted)
	var next events.PickStartedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &next))
	assert.Equal(t, 1, next.PickIndex)
	assert.Equal(t, f.participants[1].String(), next.ParticipantID)
}

func TestExpiryAutopicksFromRankingsQueue(t *testing.T) {
	f := newEngineFixture(t, nil)

	// P2 ranks the quarterback above every better-ADP player.
	require.NoError(t, f.engine.SetRankings(f.room.ID, f.participants[1],
		[]uuid.UUID{f.players[2].ID}, nil))

	f.start(t)

	_, err := f.submit(0, f.participants[0], f.players[0].ID)
	require.NoError(t, err)
	f.pub.waitFor(t, events.TypePickStarted) // pick 1 armed

	f.clock.Advance(30 * time.Second)

	made := f.pub.waitFor(t, events.TypePickMade)
	var payload events.PickMadePayload
	require.NoError(t, json.Unmarshal(made.Payload, &payload))
	assert.Equal(t, 1, payload.PickIndex)
	assert.Equal(t, f.players[2].ID.String(), payload.PlayerID)
	assert.Equal(t, string(models.PickOriginAutopick), payload.Origin)

	// Draft keeps moving: round 2 reverses, P2 is on the clock again.
	env := f.pub.waitFor(t, events.TypePickStarted)
	var next events.PickStartedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &next))
	assert.Equal(t, 2, next.PickIndex)
	assert.Equal(t, f.participants[1].String(), next.ParticipantID)
}

func TestExpiryAutopicksBestADPWithoutQueue(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.start(t)

	f.clock.Advance(30 * time.Second)

	made := f.pub.waitFor(t, events.TypePickMade)
	var payload events.PickMadePayload
	require.NoError(t, json.Unmarshal(made.Payload, &payload))
	assert.Equal(t, f.players[0].ID.String(), payload.PlayerID, "best ADP available")
}

func TestIdempotentResubmission(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.start(t)

	first, err := f.submit(0, f.participants[0], f.players[0].ID)
	require.NoError(t, err)

	// Identical retry observes the committed pick instead of an error.
	again, err := f.submit(0, f.participants[0], f.players[0].ID)
	require.NoError(t, err)
	assert.Equal(t, first.PlayerID, again.PlayerID)
	assert.Equal(t, first.PickIndex, again.PickIndex)

	// A different payload for the same slot is still a conflict.
	_, err = f.submit(0, f.participants[0], f.players[1].ID)
	assert.True(t, state.IsKind(err, state.KindSlotAlreadyFilled))
}

func TestIneligibleParticipantRejected(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.start(t)

	f.gate.Deny(f.participants[0])

	_, err := f.submit(0, f.participants[0], f.players[0].ID)
	assert.True(t, state.IsKind(err, state.KindNotEligible))

	// The clock keeps running for the slot.
	_, armed := f.engine.Deadline(f.room.ID)
	assert.True(t, armed)

	f.gate.Allow(f.participants[0])
	_, err = f.submit(0, f.participants[0], f.players[0].ID)
	assert.NoError(t, err)
}

func TestPauseResumePreservesRemainingTime(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.start(t)

	f.clock.Advance(10 * time.Second)
	require.NoError(t, f.engine.PauseRoom(context.Background(), f.room.ID, "commissioner hold"))
	f.pub.waitFor(t, events.TypeRoomPaused)

	// Paused rooms reject submissions and ignore the passage of time.
	_, err := f.submit(0, f.participants[0], f.players[0].ID)
	assert.True(t, state.IsKind(err, state.KindRoomNotActive))
	f.clock.Advance(time.Hour)

	require.NoError(t, f.engine.ResumeRoom(context.Background(), f.room.ID))
	f.pub.waitFor(t, events.TypeRoomResumed)

	deadline, armed := f.engine.Deadline(f.room.ID)
	require.True(t, armed)
	assert.Equal(t, f.clock.Now().Add(20*time.Second), deadline,
		"resume continues with the 20 seconds that remained at pause")

	f.clock.Advance(20 * time.Second)
	made := f.pub.waitFor(t, events.TypePickMade)
	var payload events.PickMadePayload
	require.NoError(t, json.Unmarshal(made.Payload, &payload))
	assert.Equal(t, 0, payload.PickIndex)
}

func TestPauseRacingCommitStillAdvancesClock(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.start(t)

	// Interleave a pause between a winning commit and its clock cancel: the
	// pause captures pick 0's timer, the cancel must clear that suspended
	// entry, and resume must put pick 1 on a fresh clock instead of
	// resurrecting the stale slot.
	pick, err := f.engine.store.CommitPick(state.CommitRequest{
		RoomID:        f.room.ID,
		PickIndex:     0,
		ParticipantID: f.participants[0],
		PlayerID:      f.players[0].ID,
		Origin:        models.PickOriginManual,
	})
	require.NoError(t, err)

	require.NoError(t, f.engine.PauseRoom(context.Background(), f.room.ID, "hold"))
	f.pub.waitFor(t, events.TypeRoomPaused)

	f.engine.afterCommit(context.Background(), pick)
	f.pub.waitFor(t, events.TypePickMade)

	require.NoError(t, f.engine.ResumeRoom(context.Background(), f.room.ID))
	env := f.pub.waitFor(t, events.TypePickStarted)
	var started events.PickStartedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &started))
	assert.Equal(t, 1, started.PickIndex, "resume arms the current slot, not the committed one")

	deadline, armed := f.engine.Deadline(f.room.ID)
	require.True(t, armed, "room stays live after the race")
	assert.Equal(t, f.clock.Now().Add(30*time.Second), deadline)

	// The armed slot is real: expiry autopicks pick 1.
	f.clock.Advance(30 * time.Second)
	made := f.pub.waitFor(t, events.TypePickMade)
	var payload events.PickMadePayload
	require.NoError(t, json.Unmarshal(made.Payload, &payload))
	assert.Equal(t, 1, payload.PickIndex)
}

func TestDraftRunsToCompletion(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.start(t)

	// Snake order for 2x2: P1, P2, P2, P1.
	owners := []uuid.UUID{f.participants[0], f.participants[1], f.participants[1], f.participants[0]}
	for i, owner := range owners {
		_, err := f.submit(i, owner, f.players[i].ID)
		require.NoError(t, err, "pick %d", i)
	}

	f.pub.waitFor(t, events.TypeRoomCompleted)

	room, err := f.engine.Room(f.room.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusCompleted, room.Status)

	// No timer survives completion.
	_, armed := f.engine.Deadline(f.room.ID)
	assert.False(t, armed)

	snap, err := f.engine.Snapshot(f.room.ID)
	require.NoError(t, err)
	assert.Len(t, snap.Picks, 4)
}

func TestPoolExhaustionFailsRoom(t *testing.T) {
	// One player for four scheduled slots: the second expiry finds nothing.
	only := []models.Player{
		{ID: uuid.New(), FullName: "Alpha Back", Position: models.PositionRB, ADP: 1.0},
	}
	f := newEngineFixture(t, only)
	f.start(t)

	_, err := f.submit(0, f.participants[0], only[0].ID)
	require.NoError(t, err)
	f.pub.waitFor(t, events.TypePickStarted) // pick 1 armed

	f.clock.Advance(30 * time.Second)

	env := f.pub.waitFor(t, events.TypeRoomFailed)
	var payload events.RoomFailedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.NotEmpty(t, payload.Reason)

	room, err := f.engine.Room(f.room.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusFailed, room.Status)
}

func TestManualPickRaceWithExpiryIsSingleCommit(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.start(t)

	// Commit manually, then fire the stale expiry for the same slot. The
	// expiry handler observes the filled slot and stands down.
	_, err := f.submit(0, f.participants[0], f.players[0].ID)
	require.NoError(t, err)
	f.pub.waitFor(t, events.TypePickStarted)

	f.engine.handleExpiry(f.room.ID, 0)

	snap, err := f.engine.Snapshot(f.room.ID)
	require.NoError(t, err)
	require.Len(t, snap.Picks, 1)
	assert.Equal(t, f.players[0].ID, snap.Picks[0].PlayerID)

	madeEvents := 0
	for _, typ := range f.pub.typesSeen() {
		if typ == events.TypePickMade {
			madeEvents++
		}
	}
	assert.Equal(t, 1, madeEvents, "stale expiry emits nothing")
}
