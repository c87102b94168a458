// Package state owns the authoritative pick sequence for every room. All
// mutation goes through CommitPick; everything else is a read of committed
// facts. Roster counts and the available pool are derived caches that stay
// recomputable from the pick list alone.
package state

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/bestballhq/draftengine/internal/draft/policy"
	"github.com/bestballhq/draftengine/internal/draft/scheduler"
	"github.com/bestballhq/draftengine/internal/models"
)

// CommitRequest carries one pick submission into the store.
type CommitRequest struct {
	RoomID        uuid.UUID
	PickIndex     int
	ParticipantID uuid.UUID
	PlayerID      uuid.UUID
	Origin        models.PickOrigin
	// Limits is enforced for manual picks only. Autopick applies limits
	// during resolution and may deliberately relax them, so the commit path
	// never re-rejects an autopick on limit grounds.
	Limits models.PositionalLimits
}

// Snapshot is the read-only projection handed to presentation layers.
type Snapshot struct {
	RoomID           uuid.UUID                         `json:"room_id"`
	Status           models.RoomStatus                 `json:"status"`
	CurrentPickIndex int                               `json:"current_pick_index"`
	TotalPicks       int                               `json:"total_picks"`
	Picks            []models.Pick                     `json:"picks"`
	RosterCounts     map[uuid.UUID]models.RosterCounts `json:"roster_counts"`
}

// Store holds every open room. Each room guards its pick sequence with its
// own mutex so commits in different rooms never contend.
type Store struct {
	mu    sync.RWMutex
	rooms map[uuid.UUID]*roomState
	clock clockwork.Clock
}

type roomState struct {
	mu      sync.Mutex
	room    models.Room
	players map[uuid.UUID]models.Player
	byADP   []models.Player // full catalogue sorted ascending by ADP
	picks   []*models.Pick  // indexed by absolute pick index, nil until committed
	drafted map[uuid.UUID]int
	rosters map[uuid.UUID]models.RosterCounts
}

// NewStore creates an empty store.
func NewStore(clock clockwork.Clock) *Store {
	return &Store{
		rooms: make(map[uuid.UUID]*roomState),
		clock: clock,
	}
}

// OpenRoom registers a room and its immutable player catalogue.
func (s *Store) OpenRoom(room models.Room, players []models.Player) error {
	n := len(room.Settings.DraftOrder)
	if n < 2 {
		return fmt.Errorf("room %s: draft order needs at least 2 participants, got %d", room.ID, n)
	}
	if room.Settings.Rounds <= 0 {
		return fmt.Errorf("room %s: rounds must be positive", room.ID)
	}
	seen := make(map[uuid.UUID]bool, n)
	for _, p := range room.Settings.DraftOrder {
		if seen[p] {
			return fmt.Errorf("room %s: participant %s appears twice in draft order", room.ID, p)
		}
		seen[p] = true
	}

	catalogue := make(map[uuid.UUID]models.Player, len(players))
	byADP := make([]models.Player, 0, len(players))
	for _, pl := range players {
		if _, dup := catalogue[pl.ID]; dup {
			return fmt.Errorf("room %s: duplicate player %s in pool", room.ID, pl.ID)
		}
		catalogue[pl.ID] = pl
		byADP = append(byADP, pl)
	}
	sort.SliceStable(byADP, func(i, j int) bool { return byADP[i].ADP < byADP[j].ADP })

	rs := &roomState{
		room:    room,
		players: catalogue,
		byADP:   byADP,
		picks:   make([]*models.Pick, room.Settings.TotalPicks()),
		drafted: make(map[uuid.UUID]int),
		rosters: make(map[uuid.UUID]models.RosterCounts, n),
	}
	for _, p := range room.Settings.DraftOrder {
		rs.rosters[p] = models.RosterCounts{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rooms[room.ID]; exists {
		return fmt.Errorf("room %s already open", room.ID)
	}
	s.rooms[room.ID] = rs
	return nil
}

func (s *Store) roomState(roomID uuid.UUID) (*roomState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rs, ok := s.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return rs, nil
}

// Room returns a copy of the room's current metadata.
func (s *Store) Room(roomID uuid.UUID) (models.Room, error) {
	rs, err := s.roomState(roomID)
	if err != nil {
		return models.Room{}, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.room, nil
}

// allowedTransitions is the room status machine. Completion is reached only
// through CommitPick when the final slot fills.
var allowedTransitions = map[models.RoomStatus][]models.RoomStatus{
	models.RoomStatusScheduled: {models.RoomStatusActive, models.RoomStatusFailed},
	models.RoomStatusActive:    {models.RoomStatusPaused, models.RoomStatusCompleted, models.RoomStatusFailed},
	models.RoomStatusPaused:    {models.RoomStatusActive, models.RoomStatusFailed},
	models.RoomStatusCompleted: {},
	models.RoomStatusFailed:    {},
}

// SetStatus transitions a room through its status machine.
func (s *Store) SetStatus(roomID uuid.UUID, status models.RoomStatus) (models.Room, error) {
	rs, err := s.roomState(roomID)
	if err != nil {
		return models.Room{}, err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	current := rs.room.Status
	if current == status {
		return rs.room, nil
	}
	allowed := false
	for _, next := range allowedTransitions[current] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return models.Room{}, fmt.Errorf("room %s: transition %s -> %s not allowed", roomID, current, status)
	}

	rs.room.Status = status
	now := s.clock.Now()
	switch status {
	case models.RoomStatusActive:
		if rs.room.StartedAt == nil {
			rs.room.StartedAt = &now
		}
	case models.RoomStatusCompleted:
		rs.room.CompletedAt = &now
	}
	return rs.room, nil
}

// CommitPick atomically validates and appends a pick. Exactly one commit can
// win a slot; every loser observes the committed pick via SlotAlreadyFilled.
func (s *Store) CommitPick(req CommitRequest) (*models.Pick, error) {
	rs, err := s.roomState(req.RoomID)
	if err != nil {
		return nil, err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.room.Status != models.RoomStatusActive {
		return nil, NewCommitError(KindRoomNotActive, "room is %s", rs.room.Status)
	}

	if req.PickIndex < 0 || req.PickIndex >= len(rs.picks) {
		return nil, NewCommitError(KindNotOnClock, "pick index %d out of range", req.PickIndex)
	}
	if existing := rs.picks[req.PickIndex]; existing != nil {
		cp := *existing
		return nil, &CommitError{Kind: KindSlotAlreadyFilled, Existing: &cp}
	}
	if req.PickIndex != rs.room.CurrentPickIndex {
		return nil, NewCommitError(KindNotOnClock, "pick %d is not on the clock (current %d)", req.PickIndex, rs.room.CurrentPickIndex)
	}

	slot, ok := scheduler.SlotAt(req.PickIndex, rs.room.Settings)
	if !ok {
		return nil, NewCommitError(KindNotOnClock, "pick index %d beyond draft", req.PickIndex)
	}
	if req.ParticipantID != slot.Participant {
		return nil, NewCommitError(KindNotOnClock, "participant %s does not own pick %d", req.ParticipantID, req.PickIndex)
	}

	player, known := rs.players[req.PlayerID]
	if !known {
		return nil, NewCommitError(KindPlayerNotInPool, "player %s not in room pool", req.PlayerID)
	}
	if idx, taken := rs.drafted[req.PlayerID]; taken {
		return nil, NewCommitError(KindPlayerAlreadyDrafted, "player %s already drafted at pick %d", req.PlayerID, idx)
	}

	if req.Origin == models.PickOriginManual {
		counts := rs.rosters[req.ParticipantID]
		if !policy.Permits(counts, req.Limits, player.Position) {
			return nil, NewCommitError(KindPositionalLimitExceeded,
				"%s limit reached (%d)", player.Position, req.Limits[player.Position])
		}
	}

	pick := &models.Pick{
		RoomID:        req.RoomID,
		PickIndex:     req.PickIndex,
		Round:         slot.Round,
		PickInRound:   slot.PickInRound,
		ParticipantID: req.ParticipantID,
		PlayerID:      req.PlayerID,
		PickedAt:      s.clock.Now(),
		Origin:        req.Origin,
	}
	rs.picks[req.PickIndex] = pick
	rs.drafted[req.PlayerID] = req.PickIndex
	rs.rosters[req.ParticipantID][player.Position]++
	rs.room.CurrentPickIndex = req.PickIndex + 1

	if rs.room.CurrentPickIndex == len(rs.picks) {
		rs.room.Status = models.RoomStatusCompleted
		now := s.clock.Now()
		rs.room.CompletedAt = &now
	}

	cp := *pick
	return &cp, nil
}

// AvailablePlayers returns the remaining pool sorted ascending by ADP.
func (s *Store) AvailablePlayers(roomID uuid.UUID) ([]models.Player, error) {
	rs, err := s.roomState(roomID)
	if err != nil {
		return nil, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	out := make([]models.Player, 0, len(rs.byADP)-len(rs.drafted))
	for _, p := range rs.byADP {
		if _, taken := rs.drafted[p.ID]; !taken {
			out = append(out, p)
		}
	}
	return out, nil
}

// Pool returns the room's full immutable catalogue sorted ascending by ADP.
func (s *Store) Pool(roomID uuid.UUID) ([]models.Player, error) {
	rs, err := s.roomState(roomID)
	if err != nil {
		return nil, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	out := make([]models.Player, len(rs.byADP))
	copy(out, rs.byADP)
	return out, nil
}

// Player looks a player up in the room's catalogue.
func (s *Store) Player(roomID, playerID uuid.UUID) (models.Player, error) {
	rs, err := s.roomState(roomID)
	if err != nil {
		return models.Player{}, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	p, ok := rs.players[playerID]
	if !ok {
		return models.Player{}, fmt.Errorf("player %s not in room pool", playerID)
	}
	return p, nil
}

// HasPlayer reports whether the room's catalogue contains playerID.
func (s *Store) HasPlayer(roomID, playerID uuid.UUID) bool {
	_, err := s.Player(roomID, playerID)
	return err == nil
}

// RosterCounts returns a copy of a participant's per-position counts.
func (s *Store) RosterCounts(roomID, participantID uuid.UUID) (models.RosterCounts, error) {
	rs, err := s.roomState(roomID)
	if err != nil {
		return nil, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	counts, ok := rs.rosters[participantID]
	if !ok {
		return nil, fmt.Errorf("participant %s not in room %s", participantID, roomID)
	}
	return counts.Clone(), nil
}

// Snapshot exports the room's committed state for presentation layers.
func (s *Store) Snapshot(roomID uuid.UUID) (*Snapshot, error) {
	rs, err := s.roomState(roomID)
	if err != nil {
		return nil, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()

	picks := make([]models.Pick, 0, rs.room.CurrentPickIndex)
	for _, p := range rs.picks {
		if p != nil {
			picks = append(picks, *p)
		}
	}
	rosters := make(map[uuid.UUID]models.RosterCounts, len(rs.rosters))
	for id, counts := range rs.rosters {
		rosters[id] = counts.Clone()
	}
	return &Snapshot{
		RoomID:           rs.room.ID,
		Status:           rs.room.Status,
		CurrentPickIndex: rs.room.CurrentPickIndex,
		TotalPicks:       len(rs.picks),
		Picks:            picks,
		RosterCounts:     rosters,
	}, nil
}

// Rooms returns a copy of every room currently held by the store.
func (s *Store) Rooms() []models.Room {
	s.mu.RLock()
	states := make([]*roomState, 0, len(s.rooms))
	for _, rs := range s.rooms {
		states = append(states, rs)
	}
	s.mu.RUnlock()

	rooms := make([]models.Room, 0, len(states))
	for _, rs := range states {
		rs.mu.Lock()
		rooms = append(rooms, rs.room)
		rs.mu.Unlock()
	}
	return rooms
}

// CurrentSlot returns the slot currently on the clock, or false when the
// draft has no further slots.
func (s *Store) CurrentSlot(roomID uuid.UUID) (scheduler.Slot, bool, error) {
	rs, err := s.roomState(roomID)
	if err != nil {
		return scheduler.Slot{}, false, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	slot, ok := scheduler.SlotAt(rs.room.CurrentPickIndex, rs.room.Settings)
	return slot, ok, nil
}
