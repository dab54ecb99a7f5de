package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sprintboard/internal/model"
)

// SprintRepo определяет интерфейс репозитория спринтов и колонок
type SprintRepo interface {
	CreateSprint(ctx context.Context, boardID int, name string, goal *string) (*model.Sprint, error)
	GetSprint(ctx context.Context, id int) (*model.Sprint, error)
	ListSprints(ctx context.Context, boardID int) ([]model.Sprint, error)
	UpdateSprint(ctx context.Context, id int, patch model.SprintPatch) (*model.Sprint, error)
	RemoveSprint(ctx context.Context, id int) (*model.Sprint, error)
	StartSprint(ctx context.Context, id int, goal *string, endDate *time.Time) (*model.Sprint, error)
	FinishSprint(ctx context.Context, id int) (*model.SprintSummary, error)
	CreateColumn(ctx context.Context, sprintID int, name string, isDone bool, wipLimit *int) (*model.SprintColumn, error)
	UpdateColumn(ctx context.Context, id int, patch model.ColumnPatch) (*model.SprintColumn, error)
	DeleteColumn(ctx context.Context, id int) (*model.SprintColumn, error)
	GetProgress(ctx context.Context, sprintID int) (*model.SprintProgress, error)
	ListActiveProgress(ctx context.Context) ([]model.SprintProgress, error)
}

// SprintService реализует жизненный цикл спринтов: создание, правку,
// переходы planning -> active -> completed, колонки и burndown
type SprintService struct {
	repo     SprintRepo
	cache    Cache
	logger   Logger
	notifier Notifier
}

// NewSprintService создает новый сервис спринтов
func NewSprintService(r SprintRepo, c Cache, l Logger, n Notifier) *SprintService {
	if n == nil {
		n = nopNotifier{}
	}
	return &SprintService{repo: r, cache: c, logger: l, notifier: n}
}

// Create создает спринт в статусе planning и инвалидирует список спринтов доски
func (s *SprintService) Create(ctx context.Context, boardID int, name string, goal *string) (*model.Sprint, error) {
	sprint, err := s.repo.CreateSprint(ctx, boardID, name, goal)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("sprints:%d", boardID))
	publishEvent(s.logger, s.notifier, model.TaskEvent{
		Action: model.EventSprintCreated, BoardID: boardID, SprintID: sprint.ID, Title: sprint.Name,
	})
	return sprint, nil
}

// Get возвращает спринт с колонками
func (s *SprintService) Get(ctx context.Context, id int) (*model.Sprint, error) {
	return s.repo.GetSprint(ctx, id)
}

// List возвращает спринты доски:
// 1. Пытается получить из кэша Redis
// 2. При промахе кэша запрашивает из репозитория
// 3. Сохраняет результат в кэш
func (s *SprintService) List(ctx context.Context, boardID int) ([]model.Sprint, error) {
	key := fmt.Sprintf("sprints:%d", boardID)
	if bytes, err := s.cache.Get(ctx, key); err == nil {
		var sprints []model.Sprint
		_ = json.Unmarshal(bytes, &sprints)
		return sprints, nil
	}
	sprints, err := s.repo.ListSprints(ctx, boardID)
	if err != nil {
		return nil, err
	}
	data, _ := json.Marshal(sprints)
	_ = s.cache.Set(ctx, key, data, cacheTTL)
	return sprints, nil
}

// Update обновляет имя, цель и дату окончания спринта
func (s *SprintService) Update(ctx context.Context, id int, patch model.SprintPatch) (*model.Sprint, error) {
	sprint, err := s.repo.UpdateSprint(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("sprints:%d", sprint.BoardID))
	publishEvent(s.logger, s.notifier, model.TaskEvent{
		Action: model.EventSprintUpdated, BoardID: sprint.BoardID, SprintID: sprint.ID, Title: sprint.Name,
	})
	return sprint, nil
}

// Remove помечает спринт удаленным; его задачи возвращаются в бэклог
func (s *SprintService) Remove(ctx context.Context, id int) error {
	sprint, err := s.repo.RemoveSprint(ctx, id)
	if err != nil {
		return err
	}
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("sprints:%d", sprint.BoardID))
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("backlog:%d", sprint.BoardID))
	publishEvent(s.logger, s.notifier, model.TaskEvent{
		Action: model.EventSprintDeleted, BoardID: sprint.BoardID, SprintID: sprint.ID,
	})
	return nil
}

// Start переводит спринт planning -> active:
// 1. Вызывает StartSprint (дата старта, цель, колонки по умолчанию)
// 2. Инвалидирует список спринтов доски
// 3. Публикует событие sprint.started
func (s *SprintService) Start(ctx context.Context, id int, goal *string, endDate *time.Time) (*model.Sprint, error) {
	sprint, err := s.repo.StartSprint(ctx, id, goal, endDate)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("sprints:%d", sprint.BoardID))
	publishEvent(s.logger, s.notifier, model.TaskEvent{
		Action: model.EventSprintStarted, BoardID: sprint.BoardID, SprintID: sprint.ID, Title: sprint.Name,
	})
	return sprint, nil
}

// Finish переводит спринт active -> completed и возвращает итог:
// незавершенные задачи сервер сам переносит в бэклог
func (s *SprintService) Finish(ctx context.Context, id int) (*model.SprintSummary, error) {
	sprint, err := s.repo.GetSprint(ctx, id)
	if err != nil {
		return nil, err
	}
	summary, err := s.repo.FinishSprint(ctx, id)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("sprints:%d", sprint.BoardID))
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("backlog:%d", sprint.BoardID))
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("sprint:tasks:%d", id))
	publishEvent(s.logger, s.notifier, model.TaskEvent{
		Action: model.EventSprintFinished, BoardID: sprint.BoardID, SprintID: id,
		Title: sprint.Name, Points: summary.Completed, Position: summary.Reopened,
	})
	return summary, nil
}

// AddColumn добавляет колонку в конец спринта
func (s *SprintService) AddColumn(ctx context.Context, sprintID int, name string, isDone bool, wipLimit *int) (*model.SprintColumn, error) {
	col, err := s.repo.CreateColumn(ctx, sprintID, name, isDone, wipLimit)
	if err != nil {
		return nil, err
	}
	s.invalidateSprintViews(ctx, sprintID)
	return col, nil
}

// UpdateColumn обновляет имя, флаг done и WIP-лимит колонки
func (s *SprintService) UpdateColumn(ctx context.Context, id int, patch model.ColumnPatch) (*model.SprintColumn, error) {
	col, err := s.repo.UpdateColumn(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.invalidateSprintViews(ctx, col.SprintID)
	return col, nil
}

// RemoveColumn удаляет колонку; ее задачи уходят в соседнюю колонку или бэклог
func (s *SprintService) RemoveColumn(ctx context.Context, id int) error {
	col, err := s.repo.DeleteColumn(ctx, id)
	if err != nil {
		return err
	}
	s.invalidateSprintViews(ctx, col.SprintID)
	return nil
}

// Burndown строит серию burndown для спринта:
// 1. Пытается получить из кэша
// 2. При промахе берет агрегат из репозитория и считает серию
// 3. Кэширует результат
func (s *SprintService) Burndown(ctx context.Context, sprintID int) ([]model.BurndownPoint, error) {
	key := fmt.Sprintf("burndown:%d", sprintID)
	if bytes, err := s.cache.Get(ctx, key); err == nil {
		var series []model.BurndownPoint
		_ = json.Unmarshal(bytes, &series)
		return series, nil
	}
	p, err := s.repo.GetProgress(ctx, sprintID)
	if err != nil {
		return nil, err
	}
	series := BuildBurndown(p.TotalPoints, p.DonePoints, p.StartDate, p.EndDate, time.Now())
	data, _ := json.Marshal(series)
	_ = s.cache.Set(ctx, key, data, cacheTTL)
	return series, nil
}

// PublishSnapshots публикует ежедневные снапшоты остатка story points
// по всем активным спринтам; вызывается cron-джобом
func (s *SprintService) PublishSnapshots(ctx context.Context) error {
	list, err := s.repo.ListActiveProgress(ctx)
	if err != nil {
		return err
	}
	if s.logger == nil {
		return nil
	}
	for _, p := range list {
		_ = s.logger.PublishEvent(model.TaskEvent{
			Action: model.EventSprintSnapshot, BoardID: p.BoardID, SprintID: p.SprintID,
			Title: p.Name, Points: p.TotalPoints - p.DonePoints, At: time.Now(),
		})
	}
	return nil
}

// invalidateSprintViews сбрасывает кэшированные представления, зависящие от спринта
func (s *SprintService) invalidateSprintViews(ctx context.Context, sprintID int) {
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("sprint:tasks:%d", sprintID))
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("burndown:%d", sprintID))
	if sprint, err := s.repo.GetSprint(ctx, sprintID); err == nil {
		_ = s.cache.Invalidate(ctx, fmt.Sprintf("sprints:%d", sprint.BoardID))
	}
}
