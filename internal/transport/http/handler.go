// Пакет http реализует REST-эндпоинты API досок, спринтов и задач
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"sprintboard/internal/model"
	"sprintboard/internal/repository"
	"sprintboard/pkg/realtime"
)

// BoardService задает интерфейс бизнес-логики досок для HTTP-слоя
type BoardService interface {
	CreateBoard(ctx context.Context, orgID int, name, boardType, color string) (*model.Board, error)
	GetBoard(ctx context.Context, id int) (*model.Board, error)
	Labels(ctx context.Context, boardID int) ([]model.Label, error)
	CreateLabel(ctx context.Context, boardID int, name, color string) (*model.Label, error)
	UpdateLabel(ctx context.Context, id int, name, color string) (*model.Label, error)
	RemoveLabel(ctx context.Context, id int) error
	Members(ctx context.Context, boardID int) ([]model.User, error)
	AddMember(ctx context.Context, boardID, userID int) error
	SyncUser(ctx context.Context, externalID, fullName, email string, avatarURL *string) (*model.User, error)
}

// SprintService задает интерфейс бизнес-логики спринтов для HTTP-слоя
type SprintService interface {
	Create(ctx context.Context, boardID int, name string, goal *string) (*model.Sprint, error)
	Get(ctx context.Context, id int) (*model.Sprint, error)
	List(ctx context.Context, boardID int) ([]model.Sprint, error)
	Update(ctx context.Context, id int, patch model.SprintPatch) (*model.Sprint, error)
	Remove(ctx context.Context, id int) error
	Start(ctx context.Context, id int, goal *string, endDate *time.Time) (*model.Sprint, error)
	Finish(ctx context.Context, id int) (*model.SprintSummary, error)
	AddColumn(ctx context.Context, sprintID int, name string, isDone bool, wipLimit *int) (*model.SprintColumn, error)
	UpdateColumn(ctx context.Context, id int, patch model.ColumnPatch) (*model.SprintColumn, error)
	RemoveColumn(ctx context.Context, id int) error
	Burndown(ctx context.Context, sprintID int) ([]model.BurndownPoint, error)
}

// TaskService задает интерфейс бизнес-логики задач для HTTP-слоя
type TaskService interface {
	Create(ctx context.Context, t *model.Task) (*model.Task, error)
	QuickAdd(ctx context.Context, boardID int, sprintID, columnID *int, input string) (*model.Task, error)
	Get(ctx context.Context, id int) (*model.Task, error)
	Update(ctx context.Context, id int, patch model.TaskPatch) (*model.Task, error)
	Remove(ctx context.Context, id int) error
	Backlog(ctx context.Context, boardID int) ([]model.Task, error)
	SprintTasks(ctx context.Context, sprintID int) ([]model.Task, error)
	Move(ctx context.Context, sprintID, taskID, toColumnID, position int) ([]model.PositionUpdate, error)
	MoveToBacklog(ctx context.Context, sprintID, taskID int) (*model.Task, error)
	AddToSprint(ctx context.Context, sprintID, taskID int) (*model.Task, error)
	ToggleLabel(ctx context.Context, taskID, labelID int) (*model.Task, error)
	ToggleAssignee(ctx context.Context, taskID, userID int) (*model.Task, error)
}

// Handler содержит зависимости и реализует HTTP-эндпоинты API
type Handler struct {
	boards  BoardService
	sprints SprintService
	tasks   TaskService
	hub     *realtime.Hub
}

// NewHandler создает новый HTTP Handler
func NewHandler(boards BoardService, sprints SprintService, tasks TaskService, hub *realtime.Hub) *Handler {
	return &Handler{boards: boards, sprints: sprints, tasks: tasks, hub: hub}
}

// RegisterRoutes регистрирует маршруты API
func (h *Handler) RegisterRoutes(r *mux.Router) {
	// Эндпоинты для проверки здоровья и готовности сервиса
	r.HandleFunc("/healthz", h.Healthz).Methods("GET")
	r.HandleFunc("/readyz", h.Readyz).Methods("GET")
	r.HandleFunc("/ws", h.ServeWS).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/boards", h.CreateBoard).Methods("POST")
	api.HandleFunc("/boards/{id}", h.GetBoard).Methods("GET")
	api.HandleFunc("/boards/{id}/labels", h.ListLabels).Methods("GET")
	api.HandleFunc("/boards/{id}/labels", h.CreateLabel).Methods("POST")
	api.HandleFunc("/labels/{id}", h.UpdateLabel).Methods("PATCH")
	api.HandleFunc("/labels/{id}", h.DeleteLabel).Methods("DELETE")
	api.HandleFunc("/boards/{id}/members", h.ListMembers).Methods("GET")
	api.HandleFunc("/boards/{id}/members", h.AddMember).Methods("POST")
	api.HandleFunc("/users/sync", h.SyncUser).Methods("POST")

	api.HandleFunc("/projects/{id}/sprints", h.ListSprints).Methods("GET")
	api.HandleFunc("/projects/{id}/tasks", h.ListProjectTasks).Methods("GET")
	api.HandleFunc("/sprints", h.CreateSprint).Methods("POST")
	api.HandleFunc("/sprints/{id}", h.UpdateSprint).Methods("PATCH")
	api.HandleFunc("/sprints/{id}", h.DeleteSprint).Methods("DELETE")
	api.HandleFunc("/sprints/{id}/start", h.StartSprint).Methods("POST")
	api.HandleFunc("/sprints/{id}/finish", h.FinishSprint).Methods("POST")
	api.HandleFunc("/sprints/{id}/burndown", h.Burndown).Methods("GET")
	api.HandleFunc("/sprints/{id}/columns", h.CreateColumn).Methods("POST")
	api.HandleFunc("/columns/{id}", h.UpdateColumn).Methods("PATCH")
	api.HandleFunc("/columns/{id}", h.DeleteColumn).Methods("DELETE")

	api.HandleFunc("/sprints/{id}/tasks", h.ListSprintTasks).Methods("GET")
	api.HandleFunc("/sprints/{id}/tasks", h.AddTaskToSprint).Methods("POST")
	api.HandleFunc("/sprints/{id}/tasks/move", h.MoveTask).Methods("POST")
	api.HandleFunc("/sprints/{id}/tasks/move-to-backlog", h.MoveTaskToBacklog).Methods("POST")
	api.HandleFunc("/tasks", h.CreateTask).Methods("POST")
	api.HandleFunc("/tasks/quick", h.QuickAddTask).Methods("POST")
	api.HandleFunc("/tasks/{id}", h.GetTask).Methods("GET")
	api.HandleFunc("/tasks/{id}", h.UpdateTask).Methods("PATCH")
	api.HandleFunc("/tasks/{id}", h.DeleteTask).Methods("DELETE")
	api.HandleFunc("/tasks/{id}/labels/toggle", h.ToggleLabel).Methods("POST")
	api.HandleFunc("/tasks/{id}/assignees/toggle", h.ToggleAssignee).Methods("POST")
}

// ErrorResponse модель ошибки API
type ErrorResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

func writeError(w http.ResponseWriter, status int, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError приводит ошибки сервисного слоя к HTTP-статусам:
// 404 для отсутствующих записей, 409 для конфликтов доменных правил,
// 400 для ошибок валидации и 500 для всего остального
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, ErrorResponse{3, "errors.common.notFound", map[string]interface{}{}})
	case errors.Is(err, repository.ErrInvalidTransition),
		errors.Is(err, repository.ErrWIPLimitExceeded),
		errors.Is(err, repository.ErrIsBacklog),
		errors.Is(err, repository.ErrNotInSprint),
		errors.Is(err, repository.ErrNotInBacklog):
		writeError(w, http.StatusConflict, ErrorResponse{4, err.Error(), map[string]interface{}{}})
	case errors.Is(err, repository.ErrEmptyTitle), errors.Is(err, repository.ErrEmptyName):
		writeError(w, http.StatusBadRequest, ErrorResponse{1, err.Error(), map[string]interface{}{}})
	default:
		writeError(w, http.StatusInternalServerError, ErrorResponse{1, err.Error(), map[string]interface{}{}})
	}
}

// pathID извлекает и валидирует числовой сегмент пути
// Возвращает (id, ok); ok=false при ошибке парсинга или значении <=0
func pathID(r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Healthz возвращает статус работы сервиса
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Readyz возвращает готовность сервиса
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}

// ServeWS подключает клиента к рассылке событий доски по WebSocket
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	boardID, err := strconv.Atoi(r.URL.Query().Get("boardId"))
	if err != nil || boardID <= 0 {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid boardId", map[string]interface{}{}})
		return
	}
	if h.hub == nil {
		writeError(w, http.StatusServiceUnavailable, ErrorResponse{1, "realtime disabled", map[string]interface{}{}})
		return
	}
	h.hub.ServeWS(w, r, boardID)
}
