package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/bestballhq/draftengine/internal/models"
)

// createRoomRequest is the wire form of a room creation.
type createRoomRequest struct {
	RoomID             string        `json:"room_id,omitempty"`
	Rounds             int           `json:"rounds"`
	TimePerPickSec     int           `json:"time_per_pick_sec"`
	DraftOrder         []string      `json:"draft_order"`
	ThirdRoundReversal bool          `json:"third_round_reversal"`
	Players            []playerEntry `json:"players"`
}

type playerEntry struct {
	ID              string  `json:"id,omitempty"`
	FullName        string  `json:"full_name"`
	TeamCode        string  `json:"team_code"`
	Position        string  `json:"position"`
	ADP             float64 `json:"adp"`
	ProjectedPoints float64 `json:"projected_points"`
}

type roomActionRequest struct {
	RoomID string `json:"room_id"`
	Reason string `json:"reason,omitempty"`
}

// HandleCreateRoom registers a room and its player pool in SCHEDULED state.
func (h *Handler) HandleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}

	roomID := uuid.New()
	if req.RoomID != "" {
		parsed, err := uuid.Parse(req.RoomID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid room_id", nil)
			return
		}
		roomID = parsed
	}

	order := make([]uuid.UUID, 0, len(req.DraftOrder))
	for _, p := range req.DraftOrder {
		id, err := uuid.Parse(p)
		if err != nil {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid participant id in draft_order", nil)
			return
		}
		order = append(order, id)
	}

	players := make([]models.Player, 0, len(req.Players))
	for _, pe := range req.Players {
		pos, err := models.ParsePosition(pe.Position)
		if err != nil {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		}
		id := uuid.New()
		if pe.ID != "" {
			parsed, err := uuid.Parse(pe.ID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid player id", nil)
				return
			}
			id = parsed
		}
		players = append(players, models.Player{
			ID:              id,
			FullName:        pe.FullName,
			TeamCode:        pe.TeamCode,
			Position:        pos,
			ADP:             pe.ADP,
			ProjectedPoints: pe.ProjectedPoints,
		})
	}

	room := models.Room{
		ID:     roomID,
		Status: models.RoomStatusScheduled,
		Settings: models.RoomSettings{
			Rounds:             req.Rounds,
			TimePerPickSec:     req.TimePerPickSec,
			DraftOrder:         order,
			ThirdRoundReversal: req.ThirdRoundReversal,
		},
	}

	if err := h.engine.OpenRoom(r.Context(), room, players); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ROOM", err.Error(), nil)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"room_id": roomID.String()})
}

// HandleStartRoom moves a scheduled room to ACTIVE and starts the clock.
func (h *Handler) HandleStartRoom(w http.ResponseWriter, r *http.Request) {
	h.roomAction(w, r, func(roomID uuid.UUID, _ string) error {
		return h.engine.StartRoom(r.Context(), roomID)
	})
}

// HandlePauseRoom suspends an active room, freezing the pick clock.
func (h *Handler) HandlePauseRoom(w http.ResponseWriter, r *http.Request) {
	h.roomAction(w, r, func(roomID uuid.UUID, reason string) error {
		return h.engine.PauseRoom(r.Context(), roomID, reason)
	})
}

// HandleResumeRoom reactivates a paused room with its remaining clock time.
func (h *Handler) HandleResumeRoom(w http.ResponseWriter, r *http.Request) {
	h.roomAction(w, r, func(roomID uuid.UUID, _ string) error {
		return h.engine.ResumeRoom(r.Context(), roomID)
	})
}

func (h *Handler) roomAction(w http.ResponseWriter, r *http.Request, action func(uuid.UUID, string) error) {
	var req roomActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	roomID, err := uuid.Parse(req.RoomID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid room_id", nil)
		return
	}
	if err := action(roomID, req.Reason); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "INVALID_TRANSITION", err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"room_id": roomID.String()})
}
