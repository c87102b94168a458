// Package compliance exposes the eligibility gate the engine consults before
// accepting a manual pick. The decision itself belongs to an external
// collaborator; the engine only asks and propagates the answer.
package compliance

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Gate answers whether a participant is permitted to transact.
type Gate interface {
	Eligible(ctx context.Context, participantID uuid.UUID) (bool, error)
}

// AllowAll permits every participant. Default when no compliance backend is
// configured.
type AllowAll struct{}

func (AllowAll) Eligible(context.Context, uuid.UUID) (bool, error) {
	return true, nil
}

// Denylist blocks an explicit set of participants. Useful for tests and for
// operator holds while a real compliance backend is unavailable.
type Denylist struct {
	mu     sync.RWMutex
	denied map[uuid.UUID]bool
}

// NewDenylist creates an empty denylist.
func NewDenylist() *Denylist {
	return &Denylist{denied: make(map[uuid.UUID]bool)}
}

// Deny blocks a participant.
func (d *Denylist) Deny(id uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.denied[id] = true
}

// Allow unblocks a participant.
func (d *Denylist) Allow(id uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.denied, id)
}

func (d *Denylist) Eligible(_ context.Context, id uuid.UUID) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return !d.denied[id], nil
}
