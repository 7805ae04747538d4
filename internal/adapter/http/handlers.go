package http

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kilnforge/pipelinectl/internal/domain"
	"github.com/kilnforge/pipelinectl/internal/domain/feature"
	"github.com/kilnforge/pipelinectl/internal/port/broadcast"
	"github.com/kilnforge/pipelinectl/internal/store"
)

const maxRequestBodySize = 1 << 20 // 1 MB

// Handlers holds the Read-Model Server's HTTP handler dependencies: the
// Store for every read and write, and a Broadcaster to notify SSE
// subscribers whenever a mutation changes what the dashboard shows.
type Handlers struct {
	Store       *store.Store
	Broadcaster broadcast.Broadcaster
}

// --- Feature Handlers ---

// ListFeatures handles GET /api/features?status=&assigned=, filtering the
// full list in memory the same way the "feature list" CLI command does.
func (h *Handlers) ListFeatures(w http.ResponseWriter, r *http.Request) {
	features, err := h.Store.ListFeatures(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}

	status := r.URL.Query().Get("status")
	assigned := r.URL.Query().Get("assigned")

	filtered := make([]feature.Feature, 0, len(features))
	for _, f := range features {
		if status != "" && string(f.Status) != status {
			continue
		}
		if assigned != "" && f.AssignedTo != assigned {
			continue
		}
		filtered = append(filtered, f)
	}
	writeJSON(w, http.StatusOK, filtered)
}

// GetFeature handles GET /api/features/{id}
func (h *Handlers) GetFeature(w http.ResponseWriter, r *http.Request) {
	handleGet(h.Store.GetFeature, "feature not found")(w, r)
}

// CreateFeature handles POST /api/features
func (h *Handlers) CreateFeature(w http.ResponseWriter, r *http.Request) {
	handleCreate(maxRequestBodySize, func(ctx context.Context, req *feature.CreateRequest) (*feature.Feature, error) {
		f, err := h.Store.CreateFeature(ctx, *req)
		if err != nil {
			return nil, err
		}
		h.Broadcaster.BroadcastEvent(ctx, "feature-updated", f)
		return f, nil
	})(w, r)
}

// UpdateFeature handles PATCH /api/features/{id}
func (h *Handlers) UpdateFeature(w http.ResponseWriter, r *http.Request) {
	handleUpdate(maxRequestBodySize, func(ctx context.Context, id string, req feature.UpdateRequest) (*feature.Feature, error) {
		if req.Status != nil && !req.Status.Valid() {
			return nil, fmt.Errorf("%w: invalid status", domain.ErrValidation)
		}
		f, err := h.Store.Update(ctx, id, req)
		if err != nil {
			return nil, err
		}
		h.Broadcaster.BroadcastEvent(ctx, "feature-updated", f)
		return f, nil
	}, "feature not found")(w, r)
}

// StatusSummary is the response shape for GET /api/status: pipeline-wide
// totals a dashboard can render without fetching and counting every feature.
type StatusSummary struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
}

// Status handles GET /api/status
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	features, err := h.Store.ListFeatures(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}

	summary := StatusSummary{Total: len(features), ByStatus: map[string]int{}}
	for _, f := range features {
		summary.ByStatus[string(f.Status)]++
	}
	writeJSON(w, http.StatusOK, summary)
}

// OpenSpecChangeProgress reports how many of an OpenSpec change's features
// have reached complete.
type OpenSpecChangeProgress struct {
	ChangeID string `json:"change_id"`
	Total    int    `json:"total"`
	Complete int    `json:"complete"`
}

// OpenSpecChanges handles GET /api/openspec/changes: features grouped by
// openspec_change_id, hand-authored features (empty change id) excluded.
func (h *Handlers) OpenSpecChanges(w http.ResponseWriter, r *http.Request) {
	features, err := h.Store.ListFeatures(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}

	progress := map[string]*OpenSpecChangeProgress{}
	var order []string
	for _, f := range features {
		if f.OpenSpecChangeID == "" {
			continue
		}
		p, ok := progress[f.OpenSpecChangeID]
		if !ok {
			p = &OpenSpecChangeProgress{ChangeID: f.OpenSpecChangeID}
			progress[f.OpenSpecChangeID] = p
			order = append(order, f.OpenSpecChangeID)
		}
		p.Total++
		if f.Status == feature.StatusComplete {
			p.Complete++
		}
	}
	sort.Strings(order)

	result := make([]OpenSpecChangeProgress, 0, len(order))
	for _, id := range order {
		result = append(result, *progress[id])
	}
	writeJSON(w, http.StatusOK, result)
}

// --- Config Handlers ---

// ListConfig handles GET /api/config
func (h *Handlers) ListConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Store.AllConfig(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// SetConfig handles PUT /api/config
func (h *Handlers) SetConfig(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}](w, r, maxRequestBodySize)
	if !ok {
		return
	}
	if !requireField(w, req.Key, "key") {
		return
	}
	if err := h.Store.SetConfig(r.Context(), req.Key, req.Value); err != nil {
		writeInternalError(w, err)
		return
	}
	h.Broadcaster.BroadcastEvent(r.Context(), "config.changed", map[string]string{req.Key: req.Value})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Architecture Handlers ---

// GetArchitecture handles GET /api/architecture/{kind}
func (h *Handlers) GetArchitecture(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	a, err := h.Store.GetArchitecture(r.Context(), kind)
	if err != nil {
		writeDomainError(w, err, "no architecture document set for "+kind)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// ListArchitecture handles GET /api/architecture
func (h *Handlers) ListArchitecture(w http.ResponseWriter, r *http.Request) {
	handleList(h.Store.AllArchitecture)(w, r)
}

// SetArchitecture handles PUT /api/architecture
func (h *Handlers) SetArchitecture(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[struct {
		Kind    string `json:"kind"`
		Content string `json:"content"`
	}](w, r, maxRequestBodySize)
	if !ok {
		return
	}
	if !requireField(w, req.Kind, "kind") {
		return
	}
	if err := h.Store.SetArchitecture(r.Context(), req.Kind, req.Content); err != nil {
		writeInternalError(w, err)
		return
	}
	h.Broadcaster.BroadcastEvent(r.Context(), "architecture.changed", req.Kind)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Session / Activity Feed Handlers ---

// GetSession handles GET /api/sessions/{id}
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	handleGet(h.Store.GetSession, "session not found")(w, r)
}

// ListRecentEvents handles GET /api/activity
func (h *Handlers) ListRecentEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 {
			limit = n
		}
	}
	events, err := h.Store.RecentEvents(r.Context(), limit)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if events == nil {
		events = []store.SessionEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}
