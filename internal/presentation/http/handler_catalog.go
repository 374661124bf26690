package httppresentation

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/catalog"
)

func (h *Handler) catalogRoutes(r chi.Router) {
	s := h.requireSession

	h.handle(r, http.MethodGet, "/settings", h.handleSettings)
	h.handle(r, http.MethodGet, "/sections", h.handleSections)
	h.handle(r, http.MethodGet, "/sections/{id}/countdown", h.handleCountdown)
	h.handle(r, http.MethodGet, "/categories", h.handleCategories)
	h.handle(r, http.MethodGet, "/categories/main-screen", h.handleMainScreen)
	h.handle(r, http.MethodGet, "/products", h.handleProducts)
	h.handle(r, http.MethodGet, "/products/{id}", h.handleProduct)
	h.handle(r, http.MethodGet, "/products/{id}/rating", h.handleRating)

	// reviews carry is_own, so they need the shopper
	h.handle(r, http.MethodGet, "/products/{id}/reviews", h.handleReviews, s)
	h.handle(r, http.MethodPost, "/reviews", h.handleCreateReview, s)
	h.handle(r, http.MethodPut, "/reviews/{id}", h.handleUpdateReview, s)
	h.handle(r, http.MethodDelete, "/reviews/{id}", h.handleDeleteReview, s)

	h.handle(r, http.MethodGet, "/bonus/info", h.handleBonusInfo, s)
	h.handle(r, http.MethodGet, "/bonus/transactions", h.handleBonusTransactions, s)
	h.handle(r, http.MethodGet, "/bonus/milestones", h.handleBonusMilestones, s)
}

// respond writes v, or maps err.
func respond[T any](w http.ResponseWriter, v T, err error) {
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) handleSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.catalog.Settings(r.Context())
	respond(w, settings, err)
}

func (h *Handler) handleSections(w http.ResponseWriter, r *http.Request) {
	sections, err := h.catalog.Sections(r.Context())
	respond(w, sections, err)
}

func (h *Handler) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.Categories(r.Context())
	respond(w, categories, err)
}

func (h *Handler) handleMainScreen(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit_per_category", 0)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	screen, err := h.catalog.MainScreen(r.Context(), limit)
	respond(w, screen, err)
}

func (h *Handler) handleProducts(w http.ResponseWriter, r *http.Request) {
	var (
		f   catalog.ProductFilter
		err error
	)
	if f.CategoryID, err = queryInt64(r, "category_id"); err != nil {
		writeDomainError(w, err)
		return
	}
	if f.SectionID, err = queryInt64(r, "section_id"); err != nil {
		writeDomainError(w, err)
		return
	}
	if f.Limit, f.Offset, err = pageParams(r); err != nil {
		writeDomainError(w, err)
		return
	}
	products, err := h.catalog.Products(r.Context(), f)
	respond(w, products, err)
}

func (h *Handler) handleProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	product, err := h.catalog.Product(r.Context(), id)
	respond(w, product, err)
}

func (h *Handler) handleRating(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	rating, err := h.catalog.Rating(r.Context(), id)
	respond(w, rating, err)
}

func (h *Handler) handleReviews(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	limit, offset, err := pageParams(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	reviews, err := h.catalog.Reviews(r.Context(), id, limit, offset)
	respond(w, reviews, err)
}

func (h *Handler) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	var draft catalog.ReviewDraft
	if err := decodeJSON(r, &draft); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	review, err := h.catalog.CreateReview(r.Context(), draft)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

func (h *Handler) handleUpdateReview(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var draft catalog.ReviewDraft
	if err := decodeJSON(r, &draft); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	review, err := h.catalog.UpdateReview(r.Context(), id, draft)
	respond(w, review, err)
}

func (h *Handler) handleDeleteReview(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.catalog.DeleteReview(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleBonusInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.catalog.BonusInfo(r.Context())
	respond(w, info, err)
}

func (h *Handler) handleBonusTransactions(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pageParams(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	txs, err := h.catalog.BonusTransactions(r.Context(), limit, offset)
	respond(w, txs, err)
}

func (h *Handler) handleBonusMilestones(w http.ResponseWriter, r *http.Request) {
	milestones, err := h.catalog.BonusMilestones(r.Context())
	respond(w, milestones, err)
}
