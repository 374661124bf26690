package httppresentation

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	appcheckout "github.com/Zhima-Mochi/miniapp-storefront/internal/application/checkout"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/cart"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/order"
)

func (h *Handler) checkoutRoutes(r chi.Router) {
	s := h.requireSession

	h.handle(r, http.MethodGet, "/cart", h.handleGetCart, s)
	h.handle(r, http.MethodDelete, "/cart", h.handleClearCart, s)
	h.handle(r, http.MethodPost, "/cart/items", h.handleAddItem, s)
	h.handle(r, http.MethodPatch, "/cart/items/{id}", h.handleUpdateItem, s)
	h.handle(r, http.MethodDelete, "/cart/items/{id}", h.handleRemoveItem, s)

	h.handle(r, http.MethodGet, "/checkout", h.handleSummary, s)
	h.handle(r, http.MethodPost, "/checkout/promo", h.handleApplyPromo, s)
	h.handle(r, http.MethodDelete, "/checkout/promo", h.handleRemovePromo, s)
	h.handle(r, http.MethodPost, "/checkout/bonus", h.handleApplyBonus, s)
	h.handle(r, http.MethodPost, "/checkout/bonus/max", h.handleMaxBonus, s)
	h.handle(r, http.MethodDelete, "/checkout/bonus", h.handleClearBonus, s)
	h.handle(r, http.MethodPost, "/checkout/order", h.handlePlaceOrder, s)
	h.handle(r, http.MethodPost, "/checkout/payment", h.handleStartPayment, s)
	h.handle(r, http.MethodPost, "/checkout/reset", h.handleReset, s)
}

func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	summary, err := h.checkout.Summary(r.Context(), mustSession(r).ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary.Cart)
}

func (h *Handler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	h.respondSummary(w, r, func(sid string) (*appcheckout.Summary, error) {
		return h.checkout.ClearCart(r.Context(), sid)
	})
}

func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req cart.AddItem
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.respondSummary(w, r, func(sid string) (*appcheckout.Summary, error) {
		return h.checkout.AddItem(r.Context(), sid, req)
	})
}

func (h *Handler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var req cart.UpdateQuantity
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	req.ItemID = id
	h.respondSummary(w, r, func(sid string) (*appcheckout.Summary, error) {
		return h.checkout.UpdateItem(r.Context(), sid, req)
	})
}

func (h *Handler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.respondSummary(w, r, func(sid string) (*appcheckout.Summary, error) {
		return h.checkout.RemoveItem(r.Context(), sid, id)
	})
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	h.respondSummary(w, r, func(sid string) (*appcheckout.Summary, error) {
		return h.checkout.Summary(r.Context(), sid)
	})
}

type promoRequest struct {
	Code string `json:"code"`
}

func (h *Handler) handleApplyPromo(w http.ResponseWriter, r *http.Request) {
	var req promoRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.respondSummary(w, r, func(sid string) (*appcheckout.Summary, error) {
		return h.checkout.ApplyPromo(r.Context(), appcheckout.ApplyPromoInput{SessionID: sid, Code: req.Code})
	})
}

func (h *Handler) handleRemovePromo(w http.ResponseWriter, r *http.Request) {
	h.respondSummary(w, r, func(sid string) (*appcheckout.Summary, error) {
		return h.checkout.RemovePromo(r.Context(), sid)
	})
}

// bonusText accepts the amount as either a JSON string or a number. The raw
// text reaches the bonus policy untouched.
type bonusText string

func (t *bonusText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = bonusText(s)
		return nil
	}
	if string(data) == "null" {
		*t = ""
		return nil
	}
	*t = bonusText(strings.TrimSpace(string(data)))
	return nil
}

type bonusRequest struct {
	Amount bonusText `json:"amount"`
}

func (h *Handler) handleApplyBonus(w http.ResponseWriter, r *http.Request) {
	var req bonusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.respondSummary(w, r, func(sid string) (*appcheckout.Summary, error) {
		return h.checkout.ApplyBonus(r.Context(), sid, string(req.Amount))
	})
}

func (h *Handler) handleMaxBonus(w http.ResponseWriter, r *http.Request) {
	h.respondSummary(w, r, func(sid string) (*appcheckout.Summary, error) {
		return h.checkout.UseMaxBonus(r.Context(), sid)
	})
}

func (h *Handler) handleClearBonus(w http.ResponseWriter, r *http.Request) {
	h.respondSummary(w, r, func(sid string) (*appcheckout.Summary, error) {
		return h.checkout.ClearBonus(r.Context(), sid)
	})
}

func (h *Handler) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	result, err := h.checkout.PlaceOrder(r.Context(), mustSession(r).ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

type paymentRequest struct {
	PaymentMethod order.PaymentMethod `json:"payment_method"`
}

func (h *Handler) handleStartPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	payment, err := h.checkout.StartPayment(r.Context(), mustSession(r).ID, req.PaymentMethod)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, payment)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	sid := mustSession(r).ID
	if err := h.checkout.Reset(r.Context(), sid); err != nil {
		writeDomainError(w, err)
		return
	}
	h.respondSummary(w, r, func(sid string) (*appcheckout.Summary, error) {
		return h.checkout.Summary(r.Context(), sid)
	})
}

func (h *Handler) respondSummary(w http.ResponseWriter, r *http.Request, fn func(sid string) (*appcheckout.Summary, error)) {
	summary, err := fn(mustSession(r).ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
