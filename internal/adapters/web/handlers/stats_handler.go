package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/lcalzada-xor/dgramsniff/internal/adapters/sniffer/hopping"
	"github.com/lcalzada-xor/dgramsniff/internal/core/domain"
	"github.com/lcalzada-xor/dgramsniff/internal/core/ports"
)

// ScanStatusProvider exposes the channel scan state.
type ScanStatusProvider interface {
	Status() hopping.Status
}

// StatsHandler serves channel telemetry and scan state
type StatsHandler struct {
	Stats ports.StatsProvider
	Scan  ScanStatusProvider
	Drops ports.DropCounter
}

// NewStatsHandler creates a new StatsHandler
func NewStatsHandler(stats ports.StatsProvider, scan ScanStatusProvider, drops ports.DropCounter) *StatsHandler {
	return &StatsHandler{Stats: stats, Scan: scan, Drops: drops}
}

// StatsResponse is the body of GET /api/stats.
type StatsResponse struct {
	CurrentChannel int                   `json:"current_channel"`
	Dropped        uint64                `json:"dropped"`
	Channels       []domain.ChannelStats `json:"channels"`
}

// HandleGetStats returns every channel slot, aggregate first
func (h *StatsHandler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{Channels: h.Stats.SnapshotAll()}
	if h.Scan != nil {
		resp.CurrentChannel = h.Scan.Status().CurrentChannel
	}
	if h.Drops != nil {
		resp.Dropped = h.Drops.Dropped()
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleGetChannel returns one channel slot; 0 is the aggregate
func (h *StatsHandler) HandleGetChannel(w http.ResponseWriter, r *http.Request) {
	ch, err := strconv.Atoi(mux.Vars(r)["channel"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "channel must be a number")
		return
	}
	stats, err := h.Stats.Snapshot(ch)
	if errors.Is(err, domain.ErrInvalidChannel) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// HandleScan returns the channel scan state
func (h *StatsHandler) HandleScan(w http.ResponseWriter, r *http.Request) {
	if h.Scan == nil {
		writeError(w, http.StatusServiceUnavailable, "scanner not running")
		return
	}
	writeJSON(w, http.StatusOK, h.Scan.Status())
}
