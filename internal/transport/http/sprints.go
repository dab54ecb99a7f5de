package http

import (
	"encoding/json"
	"net/http"
	"time"

	"sprintboard/internal/model"
)

// ListSprints обрабатывает GET /api/projects/{id}/sprints
// Возвращает неудаленные спринты доски с их колонками
func (h *Handler) ListSprints(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid project id", map[string]interface{}{}})
		return
	}
	sprints, err := h.sprints.List(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"sprints": sprints})
}

// CreateSprint обрабатывает POST /api/sprints
func (h *Handler) CreateSprint(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BoardID int     `json:"boardId"`
		Name    string  `json:"name"`
		Goal    *string `json:"goal"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.BoardID <= 0 {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid request body", map[string]interface{}{}})
		return
	}
	sprint, err := h.sprints.Create(r.Context(), req.BoardID, req.Name, req.Goal)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, sprint)
}

// UpdateSprint обрабатывает PATCH /api/sprints/{id}
func (h *Handler) UpdateSprint(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid sprint id", map[string]interface{}{}})
		return
	}
	var patch model.SprintPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid request body", map[string]interface{}{}})
		return
	}
	sprint, err := h.sprints.Update(r.Context(), id, patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, sprint)
}

// DeleteSprint обрабатывает DELETE /api/sprints/{id}
// Спринт помечается удаленным, его задачи возвращаются в бэклог
func (h *Handler) DeleteSprint(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid sprint id", map[string]interface{}{}})
		return
	}
	if err := h.sprints.Remove(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"id": id, "removed": true})
}

// StartSprint обрабатывает POST /api/sprints/{id}/start
// 1. Декодирует опциональные goal и endDate
// 2. Вызывает сервис Start (переход planning -> active)
// 3. Недопустимый переход отдается как 409
func (h *Handler) StartSprint(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid sprint id", map[string]interface{}{}})
		return
	}
	var req struct {
		Goal    *string    `json:"goal"`
		EndDate *time.Time `json:"endDate"`
	}
	if r.Body != nil {
		// тело опционально: спринт можно запустить без цели и даты
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	sprint, err := h.sprints.Start(r.Context(), id, req.Goal, req.EndDate)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, sprint)
}

// FinishSprint обрабатывает POST /api/sprints/{id}/finish
// Возвращает итог: сколько задач завершено и сколько вернулось в бэклог
func (h *Handler) FinishSprint(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid sprint id", map[string]interface{}{}})
		return
	}
	summary, err := h.sprints.Finish(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, summary)
}

// Burndown обрабатывает GET /api/sprints/{id}/burndown
func (h *Handler) Burndown(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid sprint id", map[string]interface{}{}})
		return
	}
	series, err := h.sprints.Burndown(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"series": series})
}

// CreateColumn обрабатывает POST /api/sprints/{id}/columns
func (h *Handler) CreateColumn(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid sprint id", map[string]interface{}{}})
		return
	}
	var req struct {
		Name     string `json:"name"`
		IsDone   bool   `json:"isDone"`
		WIPLimit *int   `json:"wipLimit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid request body", map[string]interface{}{}})
		return
	}
	col, err := h.sprints.AddColumn(r.Context(), id, req.Name, req.IsDone, req.WIPLimit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, col)
}

// UpdateColumn обрабатывает PATCH /api/columns/{id}
func (h *Handler) UpdateColumn(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid column id", map[string]interface{}{}})
		return
	}
	var patch model.ColumnPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid request body", map[string]interface{}{}})
		return
	}
	col, err := h.sprints.UpdateColumn(r.Context(), id, patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, col)
}

// DeleteColumn обрабатывает DELETE /api/columns/{id}
func (h *Handler) DeleteColumn(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid column id", map[string]interface{}{}})
		return
	}
	if err := h.sprints.RemoveColumn(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"id": id, "removed": true})
}
