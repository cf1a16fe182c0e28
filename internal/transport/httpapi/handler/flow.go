package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kislikjeka/memechain/internal/platform/flow"
	"github.com/kislikjeka/memechain/internal/platform/wallet"
)

// Flow is an observable, resettable flow instance
type Flow interface {
	Snapshot() flow.Snapshot
	Reset()
}

// HistoryReader lists journaled runs
type HistoryReader interface {
	ListRecent(ctx context.Context, flowName string, limit int) ([]flow.Entry, error)
}

// SessionProvider returns the identity write flows act as
type SessionProvider interface {
	Session() wallet.Session
}

// FlowHandler exposes flow status, reset and history
type FlowHandler struct {
	flows   map[string]Flow
	order   []string
	history HistoryReader
}

// NewFlowHandler creates a flow handler. history may be nil when no journal is configured.
func NewFlowHandler(history HistoryReader, flows ...Flow) *FlowHandler {
	h := &FlowHandler{
		flows:   make(map[string]Flow, len(flows)),
		history: history,
	}
	for _, f := range flows {
		name := f.Snapshot().Flow
		h.flows[name] = f
		h.order = append(h.order, name)
	}
	return h
}

// FlowsListResponse represents the response for listing flows
type FlowsListResponse struct {
	Flows []flow.Snapshot `json:"flows"`
}

// HistoryResponse represents journaled runs
type HistoryResponse struct {
	Runs []flow.Entry `json:"runs"`
}

// ListFlows handles GET /flows
func (h *FlowHandler) ListFlows(w http.ResponseWriter, r *http.Request) {
	snaps := make([]flow.Snapshot, 0, len(h.order))
	for _, name := range h.order {
		snaps = append(snaps, h.flows[name].Snapshot())
	}
	respondJSON(w, FlowsListResponse{Flows: snaps}, http.StatusOK)
}

// GetFlow handles GET /flows/{name}
func (h *FlowHandler) GetFlow(w http.ResponseWriter, r *http.Request) {
	f, ok := h.flows[chi.URLParam(r, "name")]
	if !ok {
		respondError(w, "flow not found", http.StatusNotFound)
		return
	}
	respondJSON(w, f.Snapshot(), http.StatusOK)
}

// ResetFlow handles POST /flows/{name}/reset
func (h *FlowHandler) ResetFlow(w http.ResponseWriter, r *http.Request) {
	f, ok := h.flows[chi.URLParam(r, "name")]
	if !ok {
		respondError(w, "flow not found", http.StatusNotFound)
		return
	}
	f.Reset()
	respondJSON(w, f.Snapshot(), http.StatusOK)
}

// ListHistory handles GET /flows/history?flow=&limit=
func (h *FlowHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondError(w, "flow journal is not configured", http.StatusNotImplemented)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := h.history.ListRecent(r.Context(), r.URL.Query().Get("flow"), limit)
	if err != nil {
		respondError(w, "failed to fetch flow history", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []flow.Entry{}
	}

	respondJSON(w, HistoryResponse{Runs: runs}, http.StatusOK)
}
