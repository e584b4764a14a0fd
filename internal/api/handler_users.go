package api

import (
	"net/http"

	"phishdeck/internal/domain"
)

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TenantID    *int64 `json:"tenant_id"`
		Email       string `json:"email"`
		DisplayName string `json:"display_name"`
		Password    string `json:"password"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	user, err := h.users.Create(r.Context(), domain.CreateUserRequest{
		TenantID:    body.TenantID,
		Email:       body.Email,
		DisplayName: body.DisplayName,
		Password:    body.Password,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, userToAPI(*user))
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "userID")
	if err != nil {
		writeError(w, err)
		return
	}
	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userToAPI(*user))
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	page := pageFromQuery(r)
	users, total, err := h.users.List(r.Context(), page)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]userDTO, 0, len(users))
	for _, u := range users {
		out = append(out, userToAPI(u))
	}
	writeList(w, out, total, page)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "userID")
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		DisplayName *string `json:"display_name"`
		TenantID    *int64  `json:"tenant_id"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	user, err := h.users.Update(r.Context(), id, domain.UpdateUserRequest{
		DisplayName: body.DisplayName,
		TenantID:    body.TenantID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userToAPI(*user))
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "userID")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.users.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
