package api

import (
	"net/http"

	"phishdeck/internal/domain"
)

func (h *Handler) createTenant(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
		Slug string `json:"slug"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	tenant, err := h.tenants.Create(r.Context(), domain.CreateTenantRequest{Name: body.Name, Slug: body.Slug})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tenantToAPI(*tenant))
}

func (h *Handler) getTenant(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "tenantID")
	if err != nil {
		writeError(w, err)
		return
	}
	tenant, err := h.tenants.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tenantToAPI(*tenant))
}

func (h *Handler) listTenants(w http.ResponseWriter, r *http.Request) {
	page := pageFromQuery(r)
	tenants, total, err := h.tenants.List(r.Context(), page)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]tenantDTO, 0, len(tenants))
	for _, t := range tenants {
		out = append(out, tenantToAPI(t))
	}
	writeList(w, out, total, page)
}

func (h *Handler) suspendTenant(w http.ResponseWriter, r *http.Request) {
	h.setTenantSuspended(w, r, true)
}

func (h *Handler) reinstateTenant(w http.ResponseWriter, r *http.Request) {
	h.setTenantSuspended(w, r, false)
}

func (h *Handler) setTenantSuspended(w http.ResponseWriter, r *http.Request, suspended bool) {
	id, err := idParam(r, "tenantID")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.tenants.SetSuspended(r.Context(), id, suspended); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteTenant(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "tenantID")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.tenants.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
