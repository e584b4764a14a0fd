package api

import (
	"net/http"

	"phishdeck/internal/domain"
)

func (h *Handler) createCourse(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TenantID    *int64 `json:"tenant_id"`
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	course, err := h.courses.Create(r.Context(), domain.CreateCourseRequest{
		TenantID:    body.TenantID,
		Title:       body.Title,
		Description: body.Description,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, courseToAPI(*course))
}

func (h *Handler) getCourse(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "courseID")
	if err != nil {
		writeError(w, err)
		return
	}
	course, err := h.courses.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, courseToAPI(*course))
}

func (h *Handler) listCourses(w http.ResponseWriter, r *http.Request) {
	page := pageFromQuery(r)
	courses, total, err := h.courses.List(r.Context(), page)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]courseDTO, 0, len(courses))
	for _, c := range courses {
		out = append(out, courseToAPI(c))
	}
	writeList(w, out, total, page)
}

func (h *Handler) updateCourse(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "courseID")
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Published   *bool   `json:"published"`
		TenantID    *int64  `json:"tenant_id"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	course, err := h.courses.Update(r.Context(), id, domain.UpdateCourseRequest{
		Title:       body.Title,
		Description: body.Description,
		Published:   body.Published,
		TenantID:    body.TenantID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, courseToAPI(*course))
}

func (h *Handler) deleteCourse(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "courseID")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.courses.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addLesson(w http.ResponseWriter, r *http.Request) {
	courseID, err := idParam(r, "courseID")
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		Title    string `json:"title"`
		Body     string `json:"body"`
		Position int    `json:"position"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	lesson, err := h.courses.AddLesson(r.Context(), domain.CreateLessonRequest{
		CourseID: courseID,
		Title:    body.Title,
		Body:     body.Body,
		Position: body.Position,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, lessonToAPI(*lesson))
}

func (h *Handler) listLessons(w http.ResponseWriter, r *http.Request) {
	courseID, err := idParam(r, "courseID")
	if err != nil {
		writeError(w, err)
		return
	}
	lessons, err := h.courses.ListLessons(r.Context(), courseID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]lessonDTO, 0, len(lessons))
	for _, l := range lessons {
		out = append(out, lessonToAPI(l))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": out})
}
