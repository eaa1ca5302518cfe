package web

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/justestif/party-playlist/internal/nowplaying"
)

// fetchFailedMessage is the body served when no snapshot is available.
const fetchFailedMessage = "Failed to fetch data."

// SnapshotReader returns the last published now-playing snapshot, or nil.
type SnapshotReader interface {
	Current() *nowplaying.Snapshot
}

// AttributionCounter reports how many tracks are attributed.
type AttributionCounter interface {
	Len() int
}

// Handlers contains HTTP handlers for the party display.
type Handlers struct {
	snapshots    SnapshotReader
	attributions AttributionCounter
	logger       *zap.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(snapshots SnapshotReader, attributions AttributionCounter, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		snapshots:    snapshots,
		attributions: attributions,
		logger:       logger,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// PartyPlaylist serves the current snapshot (GET /partyPlaylist).
func (h *Handlers) PartyPlaylist(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshots.Current()
	if snap == nil {
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: fetchFailedMessage})
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

type healthResponse struct {
	Status       string `json:"status"`
	Attributions int    `json:"attributions"`
	NowPlaying   bool   `json:"nowPlaying"`
}

// Health reports liveness plus cache and snapshot state (GET /healthz).
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:     "ok",
		NowPlaying: h.snapshots.Current() != nil,
	}
	if h.attributions != nil {
		resp.Attributions = h.attributions.Len()
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("encoding response failed", zap.Error(err))
	}
}
