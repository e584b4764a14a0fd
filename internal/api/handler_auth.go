package api

import (
	"net/http"
	"time"

	"phishdeck/internal/domain"
)

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	token, user, err := h.auth.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  userToAPI(*user),
	})
}

func (h *Handler) createAPIKey(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID    int64      `json:"user_id"`
		Name      string     `json:"name"`
		ExpiresAt *time.Time `json:"expires_at"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	rawKey, key, err := h.auth.CreateAPIKey(r.Context(), domain.CreateAPIKeyRequest{
		UserID:    body.UserID,
		Name:      body.Name,
		ExpiresAt: body.ExpiresAt,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"key":     rawKey, // shown once
		"api_key": apiKeyToAPI(*key),
	})
}

func (h *Handler) listAPIKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.auth.ListAPIKeys(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]apiKeyDTO, 0, len(keys))
	for _, k := range keys {
		out = append(out, apiKeyToAPI(k))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": out})
}

func (h *Handler) revokeAPIKey(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "keyID")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.auth.RevokeAPIKey(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
