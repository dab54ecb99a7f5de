package model

import "time"

// Типы досок
const (
	BoardKanban = "kanban"
	BoardScrum  = "scrum"
)

// Статусы жизненного цикла спринта: planning -> active -> completed
const (
	SprintPlanning  = "planning"
	SprintActive    = "active"
	SprintCompleted = "completed"
)

// Типы задач
var taskTypes = map[string]bool{
	"story":       true,
	"bug":         true,
	"task":        true,
	"epic":        true,
	"improvement": true,
	"idea":        true,
	"note":        true,
}

// Приоритеты задач
var taskPriorities = map[string]bool{
	"low":    true,
	"medium": true,
	"high":   true,
	"urgent": true,
}

// ValidTaskType сообщает, является ли строка допустимым типом задачи
func ValidTaskType(s string) bool { return taskTypes[s] }

// ValidPriority сообщает, является ли строка допустимым приоритетом
func ValidPriority(s string) bool { return taskPriorities[s] }

// Board представляет доску проекта (таблица boards)
type Board struct {
	ID             int       `db:"id" json:"id"`
	OrganizationID int       `db:"organization_id" json:"organizationId"`
	Name           string    `db:"name" json:"name"`
	Type           string    `db:"type" json:"type"`
	Color          string    `db:"color" json:"color"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

// Sprint представляет спринт доски (таблица sprints)
// Бэклог моделируется как специальный спринт с is_backlog=true,
// который создается вместе с доской и никогда не меняет статус
type Sprint struct {
	ID         int            `db:"id" json:"id"`
	BoardID    int            `db:"board_id" json:"boardId"`
	Name       string         `db:"name" json:"name"`
	Goal       *string        `db:"goal" json:"goal,omitempty"`
	Status     string         `db:"status" json:"status"`
	StartDate  *time.Time     `db:"start_date" json:"startDate,omitempty"`
	EndDate    *time.Time     `db:"end_date" json:"endDate,omitempty"`
	Position   int            `db:"position" json:"position"`
	IsBacklog  bool           `db:"is_backlog" json:"isBacklog"`
	IsDeleted  bool           `db:"is_deleted" json:"isDeleted"`
	IsFinished bool           `db:"is_finished" json:"isFinished"`
	CreatedAt  time.Time      `db:"created_at" json:"createdAt"`
	Columns    []SprintColumn `db:"-" json:"columns,omitempty"`
}

// SprintColumn представляет колонку спринта (таблица sprint_columns)
type SprintColumn struct {
	ID       int    `db:"id" json:"id"`
	SprintID int    `db:"sprint_id" json:"sprintId"`
	Name     string `db:"name" json:"name"`
	Position int    `db:"position" json:"position"`
	IsDone   bool   `db:"is_done" json:"isDone"`
	WIPLimit *int   `db:"wip_limit" json:"wipLimit,omitempty"`
}

// Task представляет задачу (таблица tasks)
// SprintID и ColumnID равны nil для задач бэклога — виртуальная колонка
// бэклога не является персистентной сущностью
type Task struct {
	ID          int        `db:"id" json:"id"`
	BoardID     int        `db:"board_id" json:"boardId"`
	SprintID    *int       `db:"sprint_id" json:"sprintId,omitempty"`
	ColumnID    *int       `db:"column_id" json:"columnId,omitempty"`
	Title       string     `db:"title" json:"title"`
	Description *string    `db:"description" json:"description,omitempty"`
	Type        string     `db:"type" json:"type"`
	Priority    string     `db:"priority" json:"priority"`
	Points      *int       `db:"points" json:"points,omitempty"`
	DueDate     *time.Time `db:"due_date" json:"dueDate,omitempty"`
	Position    int        `db:"position" json:"position"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	Assignees   []User     `db:"-" json:"assignees,omitempty"`
	Labels      []Label    `db:"-" json:"labels,omitempty"`
}

// TaskPatch описывает частичное обновление скалярных полей задачи
// nil означает "поле не меняется"
type TaskPatch struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Type        *string    `json:"type,omitempty"`
	Priority    *string    `json:"priority,omitempty"`
	Points      *int       `json:"points,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

// SprintPatch описывает частичное обновление спринта
type SprintPatch struct {
	Name    *string    `json:"name,omitempty"`
	Goal    *string    `json:"goal,omitempty"`
	EndDate *time.Time `json:"endDate,omitempty"`
}

// ColumnPatch описывает частичное обновление колонки спринта
type ColumnPatch struct {
	Name     *string `json:"name,omitempty"`
	IsDone   *bool   `json:"isDone,omitempty"`
	WIPLimit *int    `json:"wipLimit,omitempty"`
}

// Label представляет метку, привязанную к доске (таблица labels)
type Label struct {
	ID      int    `db:"id" json:"id"`
	BoardID int    `db:"board_id" json:"boardId"`
	Name    string `db:"name" json:"name"`
	Color   string `db:"color" json:"color"`
}

// User представляет пользователя, синхронизированного из внешнего
// провайдера аутентификации (таблица users)
type User struct {
	ID         int     `db:"id" json:"id"`
	ExternalID string  `db:"external_id" json:"externalId"`
	FullName   string  `db:"full_name" json:"fullName"`
	Email      string  `db:"email" json:"email"`
	AvatarURL  *string `db:"avatar_url" json:"avatarUrl,omitempty"`
}

// PositionUpdate представляет изменение позиции задачи при перемещении,
// возвращается клиенту для сверки его оптимистичного состояния
type PositionUpdate struct {
	ID       int  `db:"id" json:"id"`
	ColumnID *int `db:"column_id" json:"columnId"`
	Position int  `db:"position" json:"position"`
}

// SprintSummary — итог завершения спринта
type SprintSummary struct {
	Completed int    `json:"completed"`
	Reopened  int    `json:"reopened"`
	Message   string `json:"message"`
}

// SprintProgress — агрегат story points спринта для burndown и снапшотов
type SprintProgress struct {
	SprintID    int        `db:"sprint_id" json:"sprintId"`
	BoardID     int        `db:"board_id" json:"boardId"`
	Name        string     `db:"name" json:"name"`
	StartDate   *time.Time `db:"start_date" json:"startDate,omitempty"`
	EndDate     *time.Time `db:"end_date" json:"endDate,omitempty"`
	TotalPoints int        `db:"total_points" json:"totalPoints"`
	DonePoints  int        `db:"done_points" json:"donePoints"`
}

// BurndownPoint — одна точка серии burndown
// Actual равен nil для дней после сегодняшнего
type BurndownPoint struct {
	Day    string   `json:"day"`
	Ideal  float64  `json:"ideal"`
	Actual *float64 `json:"actual"`
}

// Действия, публикуемые в журнал событий
const (
	EventTaskCreated    = "task.created"
	EventTaskUpdated    = "task.updated"
	EventTaskDeleted    = "task.deleted"
	EventTaskMoved      = "task.moved"
	EventSprintCreated  = "sprint.created"
	EventSprintUpdated  = "sprint.updated"
	EventSprintDeleted  = "sprint.deleted"
	EventSprintStarted  = "sprint.started"
	EventSprintFinished = "sprint.finished"
	EventSprintSnapshot = "sprint.snapshot"
)

// TaskEvent — событие активности, публикуемое в NATS на каждой мутации
// и складываемое консьюмером в ClickHouse
// Для событий уровня спринта TaskID=0, для снапшотов Points несет
// остаток story points
type TaskEvent struct {
	Action   string    `json:"action"`
	BoardID  int       `json:"boardId"`
	SprintID int       `json:"sprintId"`
	ColumnID int       `json:"columnId"`
	TaskID   int       `json:"taskId"`
	Title    string    `json:"title,omitempty"`
	Points   int       `json:"points"`
	Position int       `json:"position"`
	At       time.Time `json:"at"`
}
