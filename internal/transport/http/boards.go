package http

import (
	"encoding/json"
	"net/http"
)

// CreateBoard обрабатывает POST /api/boards
// 1. Декодирует тело запроса с полями organizationId, name, type и color
// 2. Вызывает сервис CreateBoard (доска создается вместе с бэклогом)
// 3. Возвращает JSON созданной доски
func (h *Handler) CreateBoard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrganizationID int    `json:"organizationId"`
		Name           string `json:"name"`
		Type           string `json:"type"`
		Color          string `json:"color"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid request body", map[string]interface{}{}})
		return
	}
	board, err := h.boards.CreateBoard(r.Context(), req.OrganizationID, req.Name, req.Type, req.Color)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, board)
}

// GetBoard обрабатывает GET /api/boards/{id}
func (h *Handler) GetBoard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid board id", map[string]interface{}{}})
		return
	}
	board, err := h.boards.GetBoard(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, board)
}

// ListLabels обрабатывает GET /api/boards/{id}/labels
func (h *Handler) ListLabels(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid board id", map[string]interface{}{}})
		return
	}
	labels, err := h.boards.Labels(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"labels": labels})
}

// CreateLabel обрабатывает POST /api/boards/{id}/labels
func (h *Handler) CreateLabel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid board id", map[string]interface{}{}})
		return
	}
	var req struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid request body", map[string]interface{}{}})
		return
	}
	label, err := h.boards.CreateLabel(r.Context(), id, req.Name, req.Color)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, label)
}

// UpdateLabel обрабатывает PATCH /api/labels/{id}
func (h *Handler) UpdateLabel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid label id", map[string]interface{}{}})
		return
	}
	var req struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid request body", map[string]interface{}{}})
		return
	}
	label, err := h.boards.UpdateLabel(r.Context(), id, req.Name, req.Color)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, label)
}

// DeleteLabel обрабатывает DELETE /api/labels/{id}
func (h *Handler) DeleteLabel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid label id", map[string]interface{}{}})
		return
	}
	if err := h.boards.RemoveLabel(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"id": id, "removed": true})
}

// ListMembers обрабатывает GET /api/boards/{id}/members
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid board id", map[string]interface{}{}})
		return
	}
	members, err := h.boards.Members(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"members": members})
}

// AddMember обрабатывает POST /api/boards/{id}/members
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid board id", map[string]interface{}{}})
		return
	}
	var req struct {
		UserID int `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID <= 0 {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid request body", map[string]interface{}{}})
		return
	}
	if err := h.boards.AddMember(r.Context(), id, req.UserID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"boardId": id, "userId": req.UserID, "added": true})
}

// SyncUser обрабатывает POST /api/users/sync
// Создает или обновляет локальную запись пользователя по внешней идентичности
func (h *Handler) SyncUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ExternalID string  `json:"externalId"`
		FullName   string  `json:"fullName"`
		Email      string  `json:"email"`
		AvatarURL  *string `json:"avatarUrl"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ExternalID == "" {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid request body", map[string]interface{}{}})
		return
	}
	user, err := h.boards.SyncUser(r.Context(), req.ExternalID, req.FullName, req.Email, req.AvatarURL)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, user)
}
