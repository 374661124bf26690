package httppresentation

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	appauth "github.com/Zhima-Mochi/miniapp-storefront/internal/application/auth"
)

func (h *Handler) authRoutes(r chi.Router) {
	h.handle(r, http.MethodPost, "/auth/telegram", h.handleLogin)
	h.handle(r, http.MethodPost, "/auth/logout", h.handleLogout, h.requireSession)
	h.handle(r, http.MethodGet, "/auth/me", h.handleMe, h.requireSession)
}

type loginRequest struct {
	InitData string `json:"init_data"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	in := appauth.LoginInput{InitData: req.InitData}
	// a still valid token names the session this login replaces
	if raw := bearerToken(r); raw != "" && h.tokens != nil {
		if claims, err := h.tokens.Verify(raw); err == nil {
			in.PreviousSessionID = claims.SessionID
		}
	}

	result, err := h.auth.Login(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), mustSession(r).ID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, mustSession(r))
}
