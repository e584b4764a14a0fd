package api

import (
	"net/http"
	"time"

	"phishdeck/internal/domain"
)

func (h *Handler) createCampaign(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TenantID *int64 `json:"tenant_id"`
		Name     string `json:"name"`
		Subject  string `json:"subject"`
		LureURL  string `json:"lure_url"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	campaign, err := h.campaigns.Create(r.Context(), domain.CreateCampaignRequest{
		TenantID: body.TenantID,
		Name:     body.Name,
		Subject:  body.Subject,
		LureURL:  body.LureURL,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, campaignToAPI(*campaign))
}

func (h *Handler) getCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "campaignID")
	if err != nil {
		writeError(w, err)
		return
	}
	campaign, err := h.campaigns.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, campaignToAPI(*campaign))
}

func (h *Handler) listCampaigns(w http.ResponseWriter, r *http.Request) {
	page := pageFromQuery(r)
	campaigns, total, err := h.campaigns.List(r.Context(), page)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]campaignDTO, 0, len(campaigns))
	for _, c := range campaigns {
		out = append(out, campaignToAPI(c))
	}
	writeList(w, out, total, page)
}

func (h *Handler) deleteCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "campaignID")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.campaigns.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addCampaignTargets(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "campaignID")
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		Emails []string `json:"emails"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	targets, err := h.campaigns.AddTargets(r.Context(), domain.AddTargetsRequest{
		CampaignID: id,
		Emails:     body.Emails,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]campaignTargetDTO, 0, len(targets))
	for _, t := range targets {
		out = append(out, campaignTargetToAPI(t))
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"items": out})
}

func (h *Handler) listCampaignTargets(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "campaignID")
	if err != nil {
		writeError(w, err)
		return
	}
	targets, err := h.campaigns.ListTargets(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]campaignTargetDTO, 0, len(targets))
	for _, t := range targets {
		out = append(out, campaignTargetToAPI(t))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": out})
}

func (h *Handler) scheduleCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "campaignID")
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		ScheduledAt time.Time `json:"scheduled_at"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	campaign, err := h.campaigns.Schedule(r.Context(), domain.ScheduleCampaignRequest{
		CampaignID:  id,
		ScheduledAt: body.ScheduledAt,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, campaignToAPI(*campaign))
}

func (h *Handler) launchCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "campaignID")
	if err != nil {
		writeError(w, err)
		return
	}
	campaign, err := h.campaigns.Launch(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, campaignToAPI(*campaign))
}

func (h *Handler) completeCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "campaignID")
	if err != nil {
		writeError(w, err)
		return
	}
	campaign, err := h.campaigns.Complete(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, campaignToAPI(*campaign))
}

func (h *Handler) campaignStats(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "campaignID")
	if err != nil {
		writeError(w, err)
		return
	}
	stats, err := h.campaigns.Stats(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, campaignStatsToAPI(*stats))
}
