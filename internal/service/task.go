package service

import (
	"context"
	"encoding/json"
	"fmt"

	"sprintboard/internal/model"
	"sprintboard/internal/repository"
)

// TaskRepo определяет интерфейс репозитория задач
type TaskRepo interface {
	CreateTask(ctx context.Context, t *model.Task) (*model.Task, error)
	GetTask(ctx context.Context, id int) (*model.Task, error)
	UpdateTask(ctx context.Context, id int, patch model.TaskPatch) (*model.Task, error)
	DeleteTask(ctx context.Context, id int) (*model.Task, error)
	ListBacklog(ctx context.Context, boardID int) ([]model.Task, error)
	ListSprintTasks(ctx context.Context, sprintID int) ([]model.Task, error)
	MoveTask(ctx context.Context, sprintID, taskID, toColumnID, newPos int) ([]model.PositionUpdate, error)
	MoveToBacklog(ctx context.Context, sprintID, taskID int) (*model.Task, error)
	AddToSprint(ctx context.Context, sprintID, taskID int) (*model.Task, error)
	ToggleLabel(ctx context.Context, taskID, labelID int) (bool, error)
	ToggleAssignee(ctx context.Context, taskID, userID int) (bool, error)
	AttachLabel(ctx context.Context, taskID, labelID int) error
	AttachAssignee(ctx context.Context, taskID, userID int) error
}

// QuickAddLookup определяет поиск сущностей доски по именам из квик-адд токенов
type QuickAddLookup interface {
	FindLabelByName(ctx context.Context, boardID int, name string) (*model.Label, error)
	FindMemberByName(ctx context.Context, boardID int, name string) (*model.User, error)
}

// TaskService реализует бизнес-логику задач: CRUD, перемещения между
// колонками и бэклогом, переключение меток и исполнителей, квик-адд
type TaskService struct {
	repo     TaskRepo
	lookup   QuickAddLookup
	cache    Cache
	logger   Logger
	notifier Notifier
}

// NewTaskService создает новый сервис задач
func NewTaskService(r TaskRepo, lookup QuickAddLookup, c Cache, l Logger, n Notifier) *TaskService {
	if n == nil {
		n = nopNotifier{}
	}
	return &TaskService{repo: r, lookup: lookup, cache: c, logger: l, notifier: n}
}

// Create создает задачу и публикует событие task.created
func (s *TaskService) Create(ctx context.Context, t *model.Task) (*model.Task, error) {
	task, err := s.repo.CreateTask(ctx, t)
	if err != nil {
		return nil, err
	}
	s.invalidateTaskViews(ctx, task)
	publishEvent(s.logger, s.notifier, taskEvent(model.EventTaskCreated, task))
	return task, nil
}

// QuickAdd разбирает строку квик-адда, создает задачу с распознанными
// атрибутами и привязывает найденных исполнителя и метки
func (s *TaskService) QuickAdd(ctx context.Context, boardID int, sprintID, columnID *int, input string) (*model.Task, error) {
	parsed := ParseQuickAdd(input)
	if parsed.Title == "" {
		return nil, repository.ErrEmptyTitle
	}
	t := &model.Task{
		BoardID:  boardID,
		SprintID: sprintID,
		ColumnID: columnID,
		Title:    parsed.Title,
		Type:     parsed.Type,
		Priority: parsed.Priority,
		Points:   parsed.Points,
	}
	task, err := s.repo.CreateTask(ctx, t)
	if err != nil {
		return nil, err
	}
	// нераспознанные @name и +label молча пропускаются: квик-адд не должен
	// ронять создание задачи из-за опечатки в токене
	if parsed.Assignee != "" {
		if u, err := s.lookup.FindMemberByName(ctx, boardID, parsed.Assignee); err == nil {
			if err := s.repo.AttachAssignee(ctx, task.ID, u.ID); err == nil {
				task.Assignees = append(task.Assignees, *u)
			}
		}
	}
	for _, name := range parsed.Labels {
		if l, err := s.lookup.FindLabelByName(ctx, boardID, name); err == nil {
			if err := s.repo.AttachLabel(ctx, task.ID, l.ID); err == nil {
				task.Labels = append(task.Labels, *l)
			}
		}
	}
	s.invalidateTaskViews(ctx, task)
	publishEvent(s.logger, s.notifier, taskEvent(model.EventTaskCreated, task))
	return task, nil
}

// Get возвращает задачу с исполнителями и метками
func (s *TaskService) Get(ctx context.Context, id int) (*model.Task, error) {
	return s.repo.GetTask(ctx, id)
}

// Update применяет частичное обновление задачи
func (s *TaskService) Update(ctx context.Context, id int, patch model.TaskPatch) (*model.Task, error) {
	task, err := s.repo.UpdateTask(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.invalidateTaskViews(ctx, task)
	publishEvent(s.logger, s.notifier, taskEvent(model.EventTaskUpdated, task))
	return task, nil
}

// Remove удаляет задачу
func (s *TaskService) Remove(ctx context.Context, id int) error {
	task, err := s.repo.DeleteTask(ctx, id)
	if err != nil {
		return err
	}
	s.invalidateTaskViews(ctx, task)
	publishEvent(s.logger, s.notifier, taskEvent(model.EventTaskDeleted, task))
	return nil
}

// Backlog возвращает задачи бэклога доски:
// 1. Пытается получить из кэша Redis
// 2. При промахе кэша запрашивает из репозитория
// 3. Сохраняет результат в кэш
func (s *TaskService) Backlog(ctx context.Context, boardID int) ([]model.Task, error) {
	key := fmt.Sprintf("backlog:%d", boardID)
	if bytes, err := s.cache.Get(ctx, key); err == nil {
		var tasks []model.Task
		_ = json.Unmarshal(bytes, &tasks)
		return tasks, nil
	}
	tasks, err := s.repo.ListBacklog(ctx, boardID)
	if err != nil {
		return nil, err
	}
	data, _ := json.Marshal(tasks)
	_ = s.cache.Set(ctx, key, data, cacheTTL)
	return tasks, nil
}

// SprintTasks возвращает задачи спринта, кэшируя результат
func (s *TaskService) SprintTasks(ctx context.Context, sprintID int) ([]model.Task, error) {
	key := fmt.Sprintf("sprint:tasks:%d", sprintID)
	if bytes, err := s.cache.Get(ctx, key); err == nil {
		var tasks []model.Task
		_ = json.Unmarshal(bytes, &tasks)
		return tasks, nil
	}
	tasks, err := s.repo.ListSprintTasks(ctx, sprintID)
	if err != nil {
		return nil, err
	}
	data, _ := json.Marshal(tasks)
	_ = s.cache.Set(ctx, key, data, cacheTTL)
	return tasks, nil
}

// Move перемещает задачу внутри спринта и возвращает все сдвиги позиций,
// по которым клиент сверяет свое оптимистичное состояние.
// Пустой список означает no-op (бросок на то же место)
func (s *TaskService) Move(ctx context.Context, sprintID, taskID, toColumnID, position int) ([]model.PositionUpdate, error) {
	updates, err := s.repo.MoveTask(ctx, sprintID, taskID, toColumnID, position)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		// ничего не изменилось — кэш и подписчики не трогаются
		return updates, nil
	}
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("sprint:tasks:%d", sprintID))
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("burndown:%d", sprintID))
	if task, err := s.repo.GetTask(ctx, taskID); err == nil {
		publishEvent(s.logger, s.notifier, taskEvent(model.EventTaskMoved, task))
	}
	return updates, nil
}

// MoveToBacklog выводит задачу из спринта в конец бэклога
func (s *TaskService) MoveToBacklog(ctx context.Context, sprintID, taskID int) (*model.Task, error) {
	task, err := s.repo.MoveToBacklog(ctx, sprintID, taskID)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("sprint:tasks:%d", sprintID))
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("burndown:%d", sprintID))
	s.invalidateTaskViews(ctx, task)
	publishEvent(s.logger, s.notifier, taskEvent(model.EventTaskMoved, task))
	return task, nil
}

// AddToSprint затягивает задачу из бэклога в спринт
func (s *TaskService) AddToSprint(ctx context.Context, sprintID, taskID int) (*model.Task, error) {
	task, err := s.repo.AddToSprint(ctx, sprintID, taskID)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("sprint:tasks:%d", sprintID))
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("burndown:%d", sprintID))
	s.invalidateTaskViews(ctx, task)
	publishEvent(s.logger, s.notifier, taskEvent(model.EventTaskMoved, task))
	return task, nil
}

// ToggleLabel переключает метку задачи; повторный вызов возвращает
// набор меток к исходному состоянию
func (s *TaskService) ToggleLabel(ctx context.Context, taskID, labelID int) (*model.Task, error) {
	if _, err := s.repo.ToggleLabel(ctx, taskID, labelID); err != nil {
		return nil, err
	}
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	s.invalidateTaskViews(ctx, task)
	publishEvent(s.logger, s.notifier, taskEvent(model.EventTaskUpdated, task))
	return task, nil
}

// ToggleAssignee переключает исполнителя задачи
func (s *TaskService) ToggleAssignee(ctx context.Context, taskID, userID int) (*model.Task, error) {
	if _, err := s.repo.ToggleAssignee(ctx, taskID, userID); err != nil {
		return nil, err
	}
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	s.invalidateTaskViews(ctx, task)
	publishEvent(s.logger, s.notifier, taskEvent(model.EventTaskUpdated, task))
	return task, nil
}

// invalidateTaskViews сбрасывает кэшированные представления, затронутые задачей
func (s *TaskService) invalidateTaskViews(ctx context.Context, t *model.Task) {
	if t == nil {
		return
	}
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("backlog:%d", t.BoardID))
	if t.SprintID != nil {
		_ = s.cache.Invalidate(ctx, fmt.Sprintf("sprint:tasks:%d", *t.SprintID))
		_ = s.cache.Invalidate(ctx, fmt.Sprintf("burndown:%d", *t.SprintID))
	}
}

// taskEvent собирает событие активности из задачи
func taskEvent(action string, t *model.Task) model.TaskEvent {
	ev := model.TaskEvent{Action: action, BoardID: t.BoardID, TaskID: t.ID, Title: t.Title, Position: t.Position}
	if t.SprintID != nil {
		ev.SprintID = *t.SprintID
	}
	if t.ColumnID != nil {
		ev.ColumnID = *t.ColumnID
	}
	if t.Points != nil {
		ev.Points = *t.Points
	}
	return ev
}
