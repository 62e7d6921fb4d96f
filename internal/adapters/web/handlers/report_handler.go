package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/lcalzada-xor/dgramsniff/internal/core/domain"
	"github.com/lcalzada-xor/dgramsniff/internal/core/ports"
	"github.com/lcalzada-xor/dgramsniff/internal/core/services/reporting"
)

// ReportHandler queues report requests and serves the archive
type ReportHandler struct {
	Requester ports.ReportRequester
	Store     ports.ReportStore
}

// NewReportHandler creates a new ReportHandler. store may be nil when the
// archive is disabled.
func NewReportHandler(requester ports.ReportRequester, store ports.ReportStore) *ReportHandler {
	return &ReportHandler{Requester: requester, Store: store}
}

// ReportRequest is the body of POST /api/reports.
type ReportRequest struct {
	Kind domain.ReportKind `json:"kind"`
}

// HandleRequestReport queues a report for the next main-loop poll
func (h *ReportHandler) HandleRequestReport(w http.ResponseWriter, r *http.Request) {
	req := ReportRequest{Kind: domain.ReportSummary}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	if !req.Kind.Valid() || !h.Requester.Request(req.Kind, reporting.ReasonAPI) {
		writeError(w, http.StatusBadRequest, "kind must be summary or full")
		return
	}

	slog.Info("Report requested via API", "kind", req.Kind, "remote", r.RemoteAddr)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "kind": string(req.Kind)})
}

// HandleListReports lists archived reports, newest first
func (h *ReportHandler) HandleListReports(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "report archive disabled")
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive number")
			return
		}
		limit = n
	}

	list, err := h.Store.ListReports(r.Context(), limit)
	if err != nil {
		slog.Error("Failed to list reports", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": list})
}

// HandleGetReport returns one archived report
func (h *ReportHandler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "report archive disabled")
		return
	}
	report, err := h.Store.GetReport(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, domain.ErrReportNotFound) {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	if err != nil {
		slog.Error("Failed to load report", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load report")
		return
	}
	writeJSON(w, http.StatusOK, report)
}
