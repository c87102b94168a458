// Package scheduler computes snake draft order. Every consumer of turn
// information (pick clock, autopick, gateway projections) goes through these
// pure functions so they all agree on whose turn it is.
package scheduler

import (
	"github.com/google/uuid"

	"github.com/bestballhq/draftengine/internal/models"
)

// Slot identifies one pick slot in a draft.
type Slot struct {
	PickIndex   int       // absolute, 0-based
	Round       int       // 1-based
	PickInRound int       // 1-based
	Participant uuid.UUID // owner of the slot
}

// SlotForPick returns the slot for absolute pick index i under snake order:
// odd rounds run through the seed order, even rounds reverse it. The second
// return value is false when i falls beyond the scheduled picks, which
// signals draft completion rather than an error.
func SlotForPick(i int, seed []uuid.UUID, rounds int) (Slot, bool) {
	return slotForPick(i, seed, rounds, false)
}

// SlotForPickWithReversal is SlotForPick with third round reversal applied:
// every round from round 3 onward runs reversed.
func SlotForPickWithReversal(i int, seed []uuid.UUID, rounds int) (Slot, bool) {
	return slotForPick(i, seed, rounds, true)
}

func slotForPick(i int, seed []uuid.UUID, rounds int, thirdRoundReversal bool) (Slot, bool) {
	n := len(seed)
	if n == 0 || i < 0 || i >= n*rounds {
		return Slot{}, false
	}

	round := i/n + 1
	posInRound := i % n

	reversed := round%2 == 0
	if thirdRoundReversal && round >= 3 {
		reversed = true
	}

	slotIndex := posInRound
	if reversed {
		slotIndex = n - 1 - posInRound
	}

	return Slot{
		PickIndex:   i,
		Round:       round,
		PickInRound: posInRound + 1,
		Participant: seed[slotIndex],
	}, true
}

// OwnerAt returns the participant on the clock for absolute pick index i.
func OwnerAt(i int, settings models.RoomSettings) (uuid.UUID, bool) {
	slot, ok := slotForPick(i, settings.DraftOrder, settings.Rounds, settings.ThirdRoundReversal)
	if !ok {
		return uuid.Nil, false
	}
	return slot.Participant, true
}

// SlotAt returns the full slot for absolute pick index i using room settings.
func SlotAt(i int, settings models.RoomSettings) (Slot, bool) {
	return slotForPick(i, settings.DraftOrder, settings.Rounds, settings.ThirdRoundReversal)
}

// GenerateSlots prepopulates every slot of a draft in pick order.
func GenerateSlots(settings models.RoomSettings) []Slot {
	total := settings.TotalPicks()
	slots := make([]Slot, 0, total)
	for i := 0; i < total; i++ {
		slot, ok := slotForPick(i, settings.DraftOrder, settings.Rounds, settings.ThirdRoundReversal)
		if !ok {
			break
		}
		slots = append(slots, slot)
	}
	return slots
}
