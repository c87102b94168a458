// Package rankings stores per-participant autodraft preferences: an ordered
// queue of player ids and a positional limits map. Owners may rewrite their
// entry at any time; autopick reads a consistent snapshot of the value in
// effect when the clock expired.
package rankings

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/bestballhq/draftengine/internal/draft/policy"
	"github.com/bestballhq/draftengine/internal/models"
)

type key struct {
	roomID        uuid.UUID
	participantID uuid.UUID
}

type entry struct {
	queue  []uuid.UUID
	limits models.PositionalLimits
}

// Store maps (room, participant) to the participant's rankings entry.
type Store struct {
	mu      sync.RWMutex
	entries map[key]entry
}

// NewStore creates an empty rankings store.
func NewStore() *Store {
	return &Store{entries: make(map[key]entry)}
}

// PoolChecker validates that referenced players exist in a room's pool. The
// state store satisfies this.
type PoolChecker interface {
	HasPlayer(roomID, playerID uuid.UUID) bool
}

// Set replaces a participant's queue and limits. Every queued player must
// exist in the room's pool and limits must be non-negative.
func (s *Store) Set(pool PoolChecker, roomID, participantID uuid.UUID, queue []uuid.UUID, limits models.PositionalLimits) error {
	if err := policy.ValidateLimits(limits); err != nil {
		return fmt.Errorf("invalid positional limits: %w", err)
	}
	seen := make(map[uuid.UUID]bool, len(queue))
	for i, id := range queue {
		if !pool.HasPlayer(roomID, id) {
			return fmt.Errorf("queued player %s (entry %d) not in room pool", id, i+1)
		}
		if seen[id] {
			return fmt.Errorf("player %s listed twice in rankings queue", id)
		}
		seen[id] = true
	}

	cp := make([]uuid.UUID, len(queue))
	copy(cp, queue)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key{roomID, participantID}] = entry{queue: cp, limits: limits.Clone()}
	return nil
}

// Get returns an independent snapshot of a participant's queue and limits.
// A participant with no entry gets an empty queue and unlimited positions.
func (s *Store) Get(roomID, participantID uuid.UUID) ([]uuid.UUID, models.PositionalLimits) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key{roomID, participantID}]
	if !ok {
		return nil, models.PositionalLimits{}
	}
	queue := make([]uuid.UUID, len(e.queue))
	copy(queue, e.queue)
	return queue, e.limits.Clone()
}

// Delete removes a participant's entry.
func (s *Store) Delete(roomID, participantID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key{roomID, participantID})
}
