// Package clock implements the per-pick countdown. A room has at most one
// armed timer at a time; the slot is disarmed the instant its pick commits.
package clock

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// FireFunc is invoked exactly once when an armed slot's countdown expires.
type FireFunc func(roomID uuid.UUID, pickIndex int)

// PickClock manages one-shot countdown timers keyed by room. Arm, Cancel,
// Pause and Resume are safe for concurrent use.
type PickClock struct {
	clock clockwork.Clock
	fire  FireFunc

	mu     sync.Mutex
	armed  map[uuid.UUID]*slotTimer
	paused map[uuid.UUID]*pausedTimer
}

type slotTimer struct {
	pickIndex int
	deadline  time.Time
	timer     clockwork.Timer
	cancelCh  chan struct{}
}

type pausedTimer struct {
	pickIndex int
	remaining time.Duration
}

// New creates a PickClock that calls fire on expiry.
func New(clk clockwork.Clock, fire FireFunc) *PickClock {
	return &PickClock{
		clock:  clk,
		fire:   fire,
		armed:  make(map[uuid.UUID]*slotTimer),
		paused: make(map[uuid.UUID]*pausedTimer),
	}
}

// Arm starts the countdown for a room's current slot, replacing any timer
// still armed for the room.
func (c *PickClock) Arm(roomID uuid.UUID, pickIndex int, d time.Duration) {
	c.mu.Lock()
	if existing, ok := c.armed[roomID]; ok {
		c.disarmLocked(roomID, existing)
	}
	delete(c.paused, roomID)

	st := &slotTimer{
		pickIndex: pickIndex,
		deadline:  c.clock.Now().Add(d),
		timer:     c.clock.NewTimer(d),
		cancelCh:  make(chan struct{}),
	}
	c.armed[roomID] = st
	c.mu.Unlock()

	go c.wait(roomID, st)

	log.Debug().
		Str("room_id", roomID.String()).
		Int("pick_index", pickIndex).
		Dur("duration", d).
		Msg("pick clock armed")
}

func (c *PickClock) wait(roomID uuid.UUID, st *slotTimer) {
	select {
	case <-st.timer.Chan():
		// The fired timer must still be the armed one; a Cancel or Pause
		// that raced the expiry wins and the firing becomes a no-op.
		c.mu.Lock()
		current, ok := c.armed[roomID]
		if !ok || current != st {
			c.mu.Unlock()
			return
		}
		delete(c.armed, roomID)
		c.mu.Unlock()

		log.Info().
			Str("room_id", roomID.String()).
			Int("pick_index", st.pickIndex).
			Msg("pick clock expired")
		c.fire(roomID, st.pickIndex)

	case <-st.cancelCh:
	}
}

// Cancel disarms the countdown for pickIndex, whether it is armed or
// suspended by a pause. A commit that lands while the room is pausing must
// still kill the slot's timer, or a later Resume would resurrect it for an
// already-filled slot. Cancelling a slot that already fired or was never
// armed is a no-op.
func (c *PickClock) Cancel(roomID uuid.UUID, pickIndex int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pt, ok := c.paused[roomID]; ok && pt.pickIndex == pickIndex {
		delete(c.paused, roomID)
		log.Debug().
			Str("room_id", roomID.String()).
			Int("pick_index", pickIndex).
			Msg("paused pick clock cancelled")
		return
	}
	st, ok := c.armed[roomID]
	if !ok || st.pickIndex != pickIndex {
		return
	}
	c.disarmLocked(roomID, st)
	log.Debug().
		Str("room_id", roomID.String()).
		Int("pick_index", pickIndex).
		Msg("pick clock cancelled")
}

// Pause suspends the room's pending countdown, recording the remaining time
// so Resume restores the same deadline rather than resetting it.
func (c *PickClock) Pause(roomID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.armed[roomID]
	if !ok {
		return
	}
	remaining := st.deadline.Sub(c.clock.Now())
	if remaining < 0 {
		remaining = 0
	}
	c.disarmLocked(roomID, st)
	c.paused[roomID] = &pausedTimer{pickIndex: st.pickIndex, remaining: remaining}
	log.Info().
		Str("room_id", roomID.String()).
		Int("pick_index", st.pickIndex).
		Dur("remaining", remaining).
		Msg("pick clock paused")
}

// Resume re-arms a paused countdown with its preserved remaining time. It
// reports false when the room has nothing paused.
func (c *PickClock) Resume(roomID uuid.UUID) bool {
	c.mu.Lock()
	pt, ok := c.paused[roomID]
	if !ok {
		c.mu.Unlock()
		return false
	}
	delete(c.paused, roomID)
	c.mu.Unlock()

	c.Arm(roomID, pt.pickIndex, pt.remaining)
	return true
}

// Deadline returns the armed deadline for a room, if any.
func (c *PickClock) Deadline(roomID uuid.UUID) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.armed[roomID]
	if !ok {
		return time.Time{}, false
	}
	return st.deadline, true
}

// disarmLocked stops a timer, drains its channel if it already fired, and
// signals the waiting goroutine. Caller holds c.mu.
func (c *PickClock) disarmLocked(roomID uuid.UUID, st *slotTimer) {
	if !st.timer.Stop() {
		select {
		case <-st.timer.Chan():
		default:
		}
	}
	close(st.cancelCh)
	delete(c.armed, roomID)
}

// Stop disarms every timer. Used on shutdown.
func (c *PickClock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for roomID, st := range c.armed {
		c.disarmLocked(roomID, st)
	}
}
