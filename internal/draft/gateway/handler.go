package gateway

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bestballhq/draftengine/internal/draft/engine"
	"github.com/bestballhq/draftengine/internal/draft/state"
	"github.com/bestballhq/draftengine/internal/models"
	"github.com/bestballhq/draftengine/internal/rankings"
)

// Handler exposes the engine over HTTP and websocket routes.
type Handler struct {
	engine            *engine.Engine
	connectionManager *ConnectionManager
}

// NewHandler creates a gateway handler.
func NewHandler(eng *engine.Engine, cm *ConnectionManager) *Handler {
	return &Handler{engine: eng, connectionManager: cm}
}

// RegisterRoutes attaches all gateway routes to mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /rooms", h.HandleCreateRoom)
	mux.HandleFunc("POST /rooms/start", h.HandleStartRoom)
	mux.HandleFunc("POST /rooms/pause", h.HandlePauseRoom)
	mux.HandleFunc("POST /rooms/resume", h.HandleResumeRoom)
	mux.HandleFunc("POST /rooms/pick", h.HandleSubmitPick)
	mux.HandleFunc("POST /rooms/rankings", h.HandleUploadRankings)
	mux.HandleFunc("GET /rooms/snapshot", h.HandleSnapshot)
	mux.HandleFunc("/ws/room", h.HandleRoomConnection)
}

// submitPickRequest is the wire form of a manual pick submission.
type submitPickRequest struct {
	RoomID        string `json:"room_id"`
	PickIndex     int    `json:"pick_index"`
	ParticipantID string `json:"participant_id"`
	PlayerID      string `json:"player_id"`
}

type errorResponse struct {
	Kind    string       `json:"kind"`
	Message string       `json:"message"`
	Pick    *models.Pick `json:"pick,omitempty"` // committed pick on SLOT_ALREADY_FILLED
}

// HandleSubmitPick accepts a manual pick and returns the committed pick or a
// typed error the client can branch on.
func (h *Handler) HandleSubmitPick(w http.ResponseWriter, r *http.Request) {
	var req submitPickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	roomID, err := uuid.Parse(req.RoomID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid room_id", nil)
		return
	}
	participantID, err := uuid.Parse(req.ParticipantID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid participant_id", nil)
		return
	}
	playerID, err := uuid.Parse(req.PlayerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid player_id", nil)
		return
	}

	pick, err := h.engine.SubmitPick(r.Context(), engine.SubmitPickRequest{
		RoomID:        roomID,
		PickIndex:     req.PickIndex,
		ParticipantID: participantID,
		PlayerID:      playerID,
	})
	if err != nil {
		if ce, ok := state.AsCommitError(err); ok {
			writeError(w, commitStatus(ce.Kind), string(ce.Kind), ce.Reason, ce.Existing)
			return
		}
		log.Error().Err(err).Str("room_id", req.RoomID).Msg("pick submission failed")
		writeError(w, http.StatusInternalServerError, "INTERNAL", "pick submission failed", nil)
		return
	}

	writeJSON(w, http.StatusOK, pick)
}

// commitStatus maps commit error kinds onto HTTP statuses.
func commitStatus(kind state.ErrorKind) int {
	switch kind {
	case state.KindSlotAlreadyFilled:
		// The response body carries the authoritative committed pick; this
		// is a stale view, not a server failure.
		return http.StatusConflict
	case state.KindPlayerAlreadyDrafted:
		return http.StatusConflict
	case state.KindNotOnClock, state.KindPositionalLimitExceeded, state.KindRoomNotActive, state.KindPlayerNotInPool:
		return http.StatusUnprocessableEntity
	case state.KindNotEligible:
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

// uploadRankingsRequest carries a rankings upload: the CSV body plus the
// participant's positional limits.
type uploadRankingsRequest struct {
	RoomID        string         `json:"room_id"`
	ParticipantID string         `json:"participant_id"`
	CSV           string         `json:"csv"`
	Limits        map[string]int `json:"limits"`
}

// HandleUploadRankings ingests a rankings sheet and limits map for a
// participant.
func (h *Handler) HandleUploadRankings(w http.ResponseWriter, r *http.Request) {
	var req uploadRankingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	roomID, err := uuid.Parse(req.RoomID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid room_id", nil)
		return
	}
	participantID, err := uuid.Parse(req.ParticipantID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid participant_id", nil)
		return
	}

	limits := make(models.PositionalLimits, len(req.Limits))
	for pos, max := range req.Limits {
		parsed, err := models.ParsePosition(pos)
		if err != nil {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		}
		limits[parsed] = max
	}

	var queue []uuid.UUID
	if req.CSV != "" {
		pool, err := h.engine.RoomPool(roomID)
		if err != nil {
			writeError(w, http.StatusNotFound, "ROOM_NOT_FOUND", err.Error(), nil)
			return
		}
		queue, err = rankings.ParseQueueCSV(strings.NewReader(req.CSV), pool)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_RANKINGS", err.Error(), nil)
			return
		}
	}

	if err := h.engine.SetRankings(roomID, participantID, queue, limits); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_RANKINGS", err.Error(), nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"queued_players": len(queue)})
}

// HandleSnapshot serves the read-only room projection used by draft boards.
func (h *Handler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	roomID, err := uuid.Parse(r.URL.Query().Get("room_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid room_id", nil)
		return
	}
	snapshot, err := h.engine.Snapshot(roomID)
	if err != nil {
		writeError(w, http.StatusNotFound, "ROOM_NOT_FOUND", err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// HandleRoomConnection upgrades a client to a websocket subscribed to a
// room's event stream.
func (h *Handler) HandleRoomConnection(w http.ResponseWriter, r *http.Request) {
	roomIDStr := r.URL.Query().Get("room_id")
	roomID, err := uuid.Parse(roomIDStr)
	if err != nil {
		http.Error(w, "invalid room_id", http.StatusBadRequest)
		return
	}
	participantID := r.URL.Query().Get("participant_id")
	if participantID == "" {
		participantID = "spectator"
	}
	if err := h.connectionManager.UpgradeConnection(w, r, participantID, roomID); err != nil {
		log.Error().Err(err).Str("room_id", roomIDStr).Msg("websocket upgrade failed")
		http.Error(w, "failed to upgrade connection", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, kind, message string, pick *models.Pick) {
	writeJSON(w, status, errorResponse{Kind: kind, Message: message, Pick: pick})
}
