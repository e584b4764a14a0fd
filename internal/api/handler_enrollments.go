package api

import (
	"net/http"

	"phishdeck/internal/domain"
)

func (h *Handler) createEnrollment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID   int64 `json:"user_id"`
		CourseID int64 `json:"course_id"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	enrollment, err := h.enrollments.Enroll(r.Context(), domain.CreateEnrollmentRequest{
		UserID:   body.UserID,
		CourseID: body.CourseID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, enrollmentToAPI(*enrollment))
}

func (h *Handler) getEnrollment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "enrollmentID")
	if err != nil {
		writeError(w, err)
		return
	}
	enrollment, err := h.enrollments.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, enrollmentToAPI(*enrollment))
}

func (h *Handler) listEnrollments(w http.ResponseWriter, r *http.Request) {
	page := pageFromQuery(r)
	enrollments, total, err := h.enrollments.List(r.Context(), page)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]enrollmentDTO, 0, len(enrollments))
	for _, e := range enrollments {
		out = append(out, enrollmentToAPI(e))
	}
	writeList(w, out, total, page)
}

func (h *Handler) recordProgress(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "enrollmentID")
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		Progress int `json:"progress"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	enrollment, err := h.enrollments.RecordProgress(r.Context(), domain.RecordProgressRequest{
		EnrollmentID: id,
		Progress:     body.Progress,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, enrollmentToAPI(*enrollment))
}

func (h *Handler) recordQuizAttempt(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "enrollmentID")
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		Score int `json:"score"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	attempt, err := h.enrollments.RecordQuizAttempt(r.Context(), domain.RecordQuizAttemptRequest{
		EnrollmentID: id,
		Score:        body.Score,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, quizAttemptToAPI(*attempt))
}

func (h *Handler) listQuizAttempts(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "enrollmentID")
	if err != nil {
		writeError(w, err)
		return
	}
	attempts, err := h.enrollments.ListQuizAttempts(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]quizAttemptDTO, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, quizAttemptToAPI(a))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": out})
}
