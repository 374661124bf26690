package httppresentation

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/bonus"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/catalog"
)

func (h *Handler) adminRoutes(r chi.Router) {
	s, a := h.requireSession, h.requireAdmin

	// static segments win over {resource} in chi's tree
	h.handle(r, http.MethodGet, "/admin/reviews", h.handleAdminReviews, s, a)
	h.handle(r, http.MethodGet, "/admin/reviews/stats", h.handleAdminReviewStats, s, a)
	h.handle(r, http.MethodPatch, "/admin/reviews/{id}/moderate", h.handleModerateReview, s, a)
	h.handle(r, http.MethodDelete, "/admin/reviews/{id}", h.handleAdminDeleteReview, s, a)

	h.handle(r, http.MethodGet, "/admin/bonus/users", h.handleBonusUsers, s, a)
	h.handle(r, http.MethodGet, "/admin/bonus/users/{id}", h.handleBonusUser, s, a)
	h.handle(r, http.MethodGet, "/admin/bonus/transactions", h.handleAdminBonusTransactions, s, a)
	h.handle(r, http.MethodPost, "/admin/bonus/{kind}", h.handleAdjustBonus, s, a)

	h.handle(r, http.MethodGet, "/admin/site-settings", h.handleAdminSiteSettings, s, a)
	h.handle(r, http.MethodPatch, "/admin/site-settings", h.handleUpdateSiteSettings, s, a)
	h.handle(r, http.MethodGet, "/admin/stats", h.handleAdminStats, s, a)

	h.handle(r, http.MethodGet, "/admin/{resource}", h.handleAdminList, s, a)
	h.handle(r, http.MethodPost, "/admin/{resource}", h.handleAdminCreate, s, a)
	h.handle(r, http.MethodGet, "/admin/{resource}/{id}", h.handleAdminGet, s, a)
	h.handle(r, http.MethodPatch, "/admin/{resource}/{id}", h.handleAdminUpdate, s, a)
	h.handle(r, http.MethodPut, "/admin/{resource}/{id}", h.handleAdminUpdate, s, a)
	h.handle(r, http.MethodDelete, "/admin/{resource}/{id}", h.handleAdminDelete, s, a)
}

func resourceParam(r *http.Request) catalog.Resource {
	return catalog.Resource(chi.URLParam(r, "resource"))
}

func (h *Handler) handleAdminList(w http.ResponseWriter, r *http.Request) {
	out, err := h.admin.List(r.Context(), resourceParam(r), r.URL.Query())
	respond(w, out, err)
}

func (h *Handler) handleAdminGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out, err := h.admin.Get(r.Context(), resourceParam(r), id)
	respond(w, out, err)
}

func (h *Handler) handleAdminCreate(w http.ResponseWriter, r *http.Request) {
	body, err := readRaw(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out, err := h.admin.Create(r.Context(), resourceParam(r), body)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *Handler) handleAdminUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	body, err := readRaw(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out, err := h.admin.Update(r.Context(), resourceParam(r), id, body)
	respond(w, out, err)
}

func (h *Handler) handleAdminDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.admin.Delete(r.Context(), resourceParam(r), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAdminReviews(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pageParams(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	status := catalog.ReviewStatus(r.URL.Query().Get("status"))
	out, err := h.admin.Reviews(r.Context(), status, limit, offset)
	respond(w, out, err)
}

func (h *Handler) handleAdminReviewStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.ReviewStats(r.Context())
	respond(w, stats, err)
}

type moderateRequest struct {
	Action catalog.ModerationAction `json:"action"`
}

func (h *Handler) handleModerateReview(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var req moderateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	out, err := h.admin.ModerateReview(r.Context(), id, req.Action)
	respond(w, out, err)
}

func (h *Handler) handleAdminDeleteReview(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.admin.DeleteReview(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleBonusUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pageParams(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out, err := h.admin.BonusUsers(r.Context(), limit, offset)
	respond(w, out, err)
}

func (h *Handler) handleBonusUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out, err := h.admin.BonusUser(r.Context(), id)
	respond(w, out, err)
}

func (h *Handler) handleAdminBonusTransactions(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pageParams(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out, err := h.admin.BonusTransactions(r.Context(), limit, offset)
	respond(w, out, err)
}

func (h *Handler) handleAdjustBonus(w http.ResponseWriter, r *http.Request) {
	var adj bonus.Adjustment
	if err := decodeJSON(r, &adj); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	adj.Kind = bonus.AdjustmentKind(chi.URLParam(r, "kind"))
	if err := h.admin.AdjustBonus(r.Context(), adj); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleAdminSiteSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.admin.SiteSettings(r.Context())
	respond(w, settings, err)
}

func (h *Handler) handleUpdateSiteSettings(w http.ResponseWriter, r *http.Request) {
	patch, err := readRaw(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	settings, err := h.admin.UpdateSiteSettings(r.Context(), patch)
	respond(w, settings, err)
}

func (h *Handler) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.Stats(r.Context())
	respond(w, stats, err)
}
