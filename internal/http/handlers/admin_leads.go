package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/lunarlash/leadline/internal/leads"
	"github.com/lunarlash/leadline/internal/store"
	"github.com/lunarlash/leadline/pkg/logging"
)

// AdminLeadsHandler serves the owner's lead management endpoints.
type AdminLeadsHandler struct {
	store  LeadStore
	logger *logging.Logger
	now    func() time.Time
}

func NewAdminLeadsHandler(st LeadStore, logger *logging.Logger) *AdminLeadsHandler {
	if st == nil {
		panic("handlers: lead store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminLeadsHandler{
		store:  st,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// List handles GET /admin/leads. Results are newest-first; filtering happens
// after hydration, pagination after filtering.
func (h *AdminLeadsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	limit, offset = leads.ClampPage(limit, offset)

	filter := leads.Filter{
		Status:   q.Get("status"),
		Q:        q.Get("q"),
		Archived: q.Get("archived"),
	}

	keys, err := h.store.ListKeys(r.Context(), leads.KeyPrefix)
	if err != nil {
		h.logger.Error("admin: failed to list lead keys", "error", err)
		writeError(w, http.StatusInternalServerError, "Unable to list leads")
		return
	}

	matched := make([]*leads.Record, 0, len(keys))
	for _, rec := range h.store.GetMany(r.Context(), keys, store.DefaultHydrationWidth) {
		if filter.Match(rec) {
			matched = append(matched, rec)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"total":  len(matched),
		"offset": offset,
		"limit":  limit,
		"leads":  leads.Page(matched, limit, offset),
	})
}

type updateRequest struct {
	ID    string      `json:"id"`
	Patch leads.Patch `json:"patch"`
}

// Update handles POST|PATCH /admin/leads/update.
func (h *AdminLeadsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if !leads.ValidID(req.ID) {
		writeError(w, http.StatusBadRequest, "Invalid lead id")
		return
	}

	rec, err := h.store.Get(r.Context(), leads.Key(req.ID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Lead not found")
			return
		}
		h.logger.Error("admin: failed to load lead", "error", err, "lead_id", req.ID)
		writeError(w, http.StatusInternalServerError, "Unable to load lead")
		return
	}

	if err := leads.Apply(rec, req.Patch, h.now()); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	if err := h.store.Put(r.Context(), leads.Key(rec.ID), rec); err != nil {
		h.logger.Error("admin: failed to save lead", "error", err, "lead_id", rec.ID)
		writeError(w, http.StatusInternalServerError, "Unable to save lead")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "lead": rec})
}
