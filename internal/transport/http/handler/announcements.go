package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/schoolstream/internal/application/announcement"
	"github.com/schoolstream/internal/domain"
	"github.com/schoolstream/internal/transport/http/middleware"
)

const defaultAnnouncementLimit = 50

// AnnouncementHandler handles announcement endpoints.
type AnnouncementHandler struct {
	svc announcement.Service
}

func NewAnnouncementHandler(svc announcement.Service) *AnnouncementHandler {
	return &AnnouncementHandler{svc: svc}
}

func (h *AnnouncementHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.CreateAnnouncementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	actor := actorFromClaims(r)
	a, err := h.svc.Create(r.Context(), actor, claims.TenantID, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, AnnouncementEnvelope{Announcement: a})
}

func (h *AnnouncementHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	limit := int32(defaultAnnouncementLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = int32(n)
	}
	items, err := h.svc.List(r.Context(), claims.TenantID, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if items == nil {
		items = []domain.Announcement{}
	}
	writeJSON(w, http.StatusOK, AnnouncementsEnvelope{Data: items})
}

func (h *AnnouncementHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	actor := actorFromClaims(r)
	if err := h.svc.Delete(r.Context(), actor, claims.TenantID, chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "deleted"})
}

// actorFromClaims builds the event actor from the verified JWT claims. The
// display name is filled in by the service layer when it loads the user; the
// claims carry only the id and role.
func actorFromClaims(r *http.Request) domain.Actor {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	return domain.Actor{ID: claims.UserID, Role: claims.Role}
}
