package api

import (
	"net/http"

	"phishdeck/internal/domain"
)

func (h *Handler) listAudit(w http.ResponseWriter, r *http.Request) {
	filter := domain.AuditFilter{Page: pageFromQuery(r)}
	q := r.URL.Query()
	if v := q.Get("principal"); v != "" {
		filter.PrincipalName = &v
	}
	if v := q.Get("action"); v != "" {
		filter.Action = &v
	}
	if v := q.Get("status"); v != "" {
		filter.Status = &v
	}

	entries, total, err := h.audit.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]auditEntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditEntryToAPI(e))
	}
	writeList(w, out, total, filter.Page)
}

func (h *Handler) analyticsOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.analytics.Overview(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overviewDTO{
		Users:                overview.Users,
		Courses:              overview.Courses,
		Enrollments:          overview.Enrollments,
		CompletedEnrollments: overview.CompletedEnrollments,
		Campaigns:            overview.Campaigns,
	})
}
