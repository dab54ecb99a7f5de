package http

import (
	"encoding/json"
	"net/http"

	"sprintboard/internal/model"
)

// ListProjectTasks обрабатывает GET /api/projects/{id}/tasks?backlog=true
// Клиент запрашивает этим эндпоинтом только бэклог; задачи спринтов
// отдаются через /api/sprints/{id}/tasks
func (h *Handler) ListProjectTasks(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid project id", map[string]interface{}{}})
		return
	}
	tasks, err := h.tasks.Backlog(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"tasks": tasks})
}

// ListSprintTasks обрабатывает GET /api/sprints/{id}/tasks
func (h *Handler) ListSprintTasks(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid sprint id", map[string]interface{}{}})
		return
	}
	tasks, err := h.tasks.SprintTasks(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"tasks": tasks})
}

// CreateTask обрабатывает POST /api/tasks
// 1. Декодирует поля задачи; boardId обязателен
// 2. Вызывает сервис Create, задача попадает в конец своего контейнера
// 3. Возвращает JSON созданной задачи
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BoardID     int     `json:"boardId"`
		SprintID    *int    `json:"sprintId"`
		ColumnID    *int    `json:"columnId"`
		Title       string  `json:"title"`
		Description *string `json:"description"`
		Type        string  `json:"type"`
		Priority    string  `json:"priority"`
		Points      *int    `json:"points"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.BoardID <= 0 {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid request body", map[string]interface{}{}})
		return
	}
	task, err := h.tasks.Create(r.Context(), &model.Task{
		BoardID:     req.BoardID,
		SprintID:    req.SprintID,
		ColumnID:    req.ColumnID,
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		Priority:    req.Priority,
		Points:      req.Points,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, task)
}

// QuickAddTask обрабатывает POST /api/tasks/quick
// Тело содержит boardId, опциональные sprintId/columnId и строку input
// с квик-адд токенами (#type, @name, +label, !priority, Npt)
func (h *Handler) QuickAddTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BoardID  int    `json:"boardId"`
		SprintID *int   `json:"sprintId"`
		ColumnID *int   `json:"columnId"`
		Input    string `json:"input"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.BoardID <= 0 {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid request body", map[string]interface{}{}})
		return
	}
	task, err := h.tasks.QuickAdd(r.Context(), req.BoardID, req.SprintID, req.ColumnID, req.Input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, task)
}

// GetTask обрабатывает GET /api/tasks/{id}
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid task id", map[string]interface{}{}})
		return
	}
	task, err := h.tasks.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, task)
}

// UpdateTask обрабатывает PATCH /api/tasks/{id}
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid task id", map[string]interface{}{}})
		return
	}
	var patch model.TaskPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid request body", map[string]interface{}{}})
		return
	}
	task, err := h.tasks.Update(r.Context(), id, patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, task)
}

// DeleteTask обрабатывает DELETE /api/tasks/{id}
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid task id", map[string]interface{}{}})
		return
	}
	if err := h.tasks.Remove(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"id": id, "removed": true})
}

// AddTaskToSprint обрабатывает POST /api/sprints/{id}/tasks
// Затягивает задачу из бэклога в спринт
func (h *Handler) AddTaskToSprint(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid sprint id", map[string]interface{}{}})
		return
	}
	var req struct {
		TaskID int `json:"taskId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TaskID <= 0 {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid request body", map[string]interface{}{}})
		return
	}
	task, err := h.tasks.AddToSprint(r.Context(), id, req.TaskID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, task)
}

// MoveTask обрабатывает POST /api/sprints/{id}/tasks/move
// 1. Декодирует taskId, toColumnId и position назначения
// 2. Вызывает сервис Move; бросок на то же место — no-op
// 3. Возвращает массив positions со всеми сдвигами, по которым клиент
//    сверяет свое оптимистичное состояние
func (h *Handler) MoveTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid sprint id", map[string]interface{}{}})
		return
	}
	var req struct {
		TaskID     int `json:"taskId"`
		ToColumnID int `json:"toColumnId"`
		Position   int `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TaskID <= 0 || req.ToColumnID <= 0 {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid request body", map[string]interface{}{}})
		return
	}
	updates, err := h.tasks.Move(r.Context(), id, req.TaskID, req.ToColumnID, req.Position)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"positions": updates})
}

// MoveTaskToBacklog обрабатывает POST /api/sprints/{id}/tasks/move-to-backlog
func (h *Handler) MoveTaskToBacklog(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid sprint id", map[string]interface{}{}})
		return
	}
	var req struct {
		TaskID int `json:"taskId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TaskID <= 0 {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid request body", map[string]interface{}{}})
		return
	}
	task, err := h.tasks.MoveToBacklog(r.Context(), id, req.TaskID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, task)
}

// ToggleLabel обрабатывает POST /api/tasks/{id}/labels/toggle
// Повторный вызов возвращает набор меток задачи к исходному состоянию
func (h *Handler) ToggleLabel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid task id", map[string]interface{}{}})
		return
	}
	var req struct {
		LabelID int `json:"labelId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.LabelID <= 0 {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid request body", map[string]interface{}{}})
		return
	}
	task, err := h.tasks.ToggleLabel(r.Context(), id, req.LabelID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, task)
}

// ToggleAssignee обрабатывает POST /api/tasks/{id}/assignees/toggle
func (h *Handler) ToggleAssignee(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid task id", map[string]interface{}{}})
		return
	}
	var req struct {
		UserID int `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID <= 0 {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid request body", map[string]interface{}{}})
		return
	}
	task, err := h.tasks.ToggleAssignee(r.Context(), id, req.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, task)
}
