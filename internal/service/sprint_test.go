package service

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"sprintboard/internal/model"
	"sprintboard/internal/repository"
)

// mockSprintRepo реализует интерфейс репозитория спринтов для тестирования SprintService
type mockSprintRepo struct {
	createFn         func(ctx context.Context, boardID int, name string, goal *string) (*model.Sprint, error)
	getFn            func(ctx context.Context, id int) (*model.Sprint, error)
	listFn           func(ctx context.Context, boardID int) ([]model.Sprint, error)
	updateFn         func(ctx context.Context, id int, patch model.SprintPatch) (*model.Sprint, error)
	removeFn         func(ctx context.Context, id int) (*model.Sprint, error)
	startFn          func(ctx context.Context, id int, goal *string, endDate *time.Time) (*model.Sprint, error)
	finishFn         func(ctx context.Context, id int) (*model.SprintSummary, error)
	createColumnFn   func(ctx context.Context, sprintID int, name string, isDone bool, wipLimit *int) (*model.SprintColumn, error)
	updateColumnFn   func(ctx context.Context, id int, patch model.ColumnPatch) (*model.SprintColumn, error)
	deleteColumnFn   func(ctx context.Context, id int) (*model.SprintColumn, error)
	progressFn       func(ctx context.Context, sprintID int) (*model.SprintProgress, error)
	activeProgressFn func(ctx context.Context) ([]model.SprintProgress, error)
}

func (m *mockSprintRepo) CreateSprint(ctx context.Context, boardID int, name string, goal *string) (*model.Sprint, error) {
	return m.createFn(ctx, boardID, name, goal)
}
func (m *mockSprintRepo) GetSprint(ctx context.Context, id int) (*model.Sprint, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	// по умолчанию возвращаем спринт без ошибки, чтобы не паниковать
	return &model.Sprint{ID: id, BoardID: 1, Name: "stub", Status: model.SprintActive}, nil
}
func (m *mockSprintRepo) ListSprints(ctx context.Context, boardID int) ([]model.Sprint, error) {
	return m.listFn(ctx, boardID)
}
func (m *mockSprintRepo) UpdateSprint(ctx context.Context, id int, patch model.SprintPatch) (*model.Sprint, error) {
	return m.updateFn(ctx, id, patch)
}
func (m *mockSprintRepo) RemoveSprint(ctx context.Context, id int) (*model.Sprint, error) {
	return m.removeFn(ctx, id)
}
func (m *mockSprintRepo) StartSprint(ctx context.Context, id int, goal *string, endDate *time.Time) (*model.Sprint, error) {
	return m.startFn(ctx, id, goal, endDate)
}
func (m *mockSprintRepo) FinishSprint(ctx context.Context, id int) (*model.SprintSummary, error) {
	return m.finishFn(ctx, id)
}
func (m *mockSprintRepo) CreateColumn(ctx context.Context, sprintID int, name string, isDone bool, wipLimit *int) (*model.SprintColumn, error) {
	return m.createColumnFn(ctx, sprintID, name, isDone, wipLimit)
}
func (m *mockSprintRepo) UpdateColumn(ctx context.Context, id int, patch model.ColumnPatch) (*model.SprintColumn, error) {
	return m.updateColumnFn(ctx, id, patch)
}
func (m *mockSprintRepo) DeleteColumn(ctx context.Context, id int) (*model.SprintColumn, error) {
	return m.deleteColumnFn(ctx, id)
}
func (m *mockSprintRepo) GetProgress(ctx context.Context, sprintID int) (*model.SprintProgress, error) {
	return m.progressFn(ctx, sprintID)
}
func (m *mockSprintRepo) ListActiveProgress(ctx context.Context) ([]model.SprintProgress, error) {
	return m.activeProgressFn(ctx)
}

// TestSprintCreate проверяет создание спринта, инвалидацию списка
// спринтов доски и событие sprint.created
func TestSprintCreate(t *testing.T) {
	repo := &mockSprintRepo{
		createFn: func(ctx context.Context, boardID int, name string, goal *string) (*model.Sprint, error) {
			return &model.Sprint{ID: 5, BoardID: boardID, Name: name, Goal: goal, Status: model.SprintPlanning}, nil
		},
	}
	cache := newRecordingCache()
	logger := &mockLogger{}
	notifier := &mockNotifier{}
	svc := NewSprintService(repo, cache, logger, notifier)

	sprint, err := svc.Create(context.Background(), 7, "Sprint 12", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sprint.Status != model.SprintPlanning {
		t.Errorf("expected planning sprint, got %+v", sprint)
	}
	if !cache.invalidatedKey("sprints:7") {
		t.Errorf("expected sprints:7 invalidation, got %v", cache.invalidated)
	}
	if len(logger.published) != 1 || logger.published[0].Action != model.EventSprintCreated {
		t.Fatalf("expected one sprint.created event, got %+v", logger.published)
	}
	if logger.published[0].SprintID != 5 || logger.published[0].Title != "Sprint 12" {
		t.Errorf("event carries wrong payload: %+v", logger.published[0])
	}
	if !reflect.DeepEqual(notifier.boards, []int{7}) {
		t.Errorf("expected board 7 notification, got %v", notifier.boards)
	}
}

// TestSprintList проверяет кэширование списка спринтов
func TestSprintList(t *testing.T) {
	sprints := []model.Sprint{
		{ID: 5, BoardID: 7, Name: "Sprint 12", Status: model.SprintActive},
		{ID: 6, BoardID: 7, Name: "Sprint 13", Status: model.SprintPlanning},
	}
	calls := 0
	repo := &mockSprintRepo{
		listFn: func(ctx context.Context, boardID int) ([]model.Sprint, error) {
			calls++
			return sprints, nil
		},
	}
	var saved []byte
	cache := &mockCache{
		set: func(ctx context.Context, key string, value []byte, ttl time.Duration) error {
			if key != "sprints:7" {
				t.Errorf("expected cache key sprints:7, got %q", key)
			}
			saved = value
			return nil
		},
	}
	svc := NewSprintService(repo, cache, &mockLogger{}, nil)

	got, err := svc.List(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, sprints) || calls != 1 {
		t.Errorf("expected repo-backed list, got %v (calls=%d)", got, calls)
	}

	// второй вызов обслуживается из кэша
	cache.get = func(ctx context.Context, key string) ([]byte, error) { return saved, nil }
	got, err = svc.List(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected cache hit, repo was called %d times", calls)
	}
	if len(got) != 2 || got[0].Name != "Sprint 12" {
		t.Errorf("cached list is broken: %v", got)
	}
}

// TestSprintStart проверяет переход planning -> active и событие sprint.started
func TestSprintStart(t *testing.T) {
	end := time.Date(2026, 9, 11, 0, 0, 0, 0, time.UTC)
	repo := &mockSprintRepo{
		startFn: func(ctx context.Context, id int, goal *string, endDate *time.Time) (*model.Sprint, error) {
			if endDate == nil || !endDate.Equal(end) {
				t.Errorf("unexpected end date: %v", endDate)
			}
			now := time.Now()
			return &model.Sprint{ID: id, BoardID: 7, Name: "Sprint 12", Status: model.SprintActive,
				StartDate: &now, EndDate: endDate, Goal: goal}, nil
		},
	}
	cache := newRecordingCache()
	logger := &mockLogger{}
	svc := NewSprintService(repo, cache, logger, nil)

	goal := "Ship billing"
	sprint, err := svc.Start(context.Background(), 5, &goal, &end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sprint.Status != model.SprintActive || sprint.StartDate == nil {
		t.Errorf("expected started sprint, got %+v", sprint)
	}
	if !cache.invalidatedKey("sprints:7") {
		t.Errorf("expected sprints:7 invalidation, got %v", cache.invalidated)
	}
	if len(logger.published) != 1 || logger.published[0].Action != model.EventSprintStarted {
		t.Fatalf("expected one sprint.started event, got %+v", logger.published)
	}
}

// TestSprintStart_InvalidTransition проверяет проброс конфликта перехода
func TestSprintStart_InvalidTransition(t *testing.T) {
	repo := &mockSprintRepo{
		startFn: func(ctx context.Context, id int, goal *string, endDate *time.Time) (*model.Sprint, error) {
			return nil, repository.ErrInvalidTransition
		},
	}
	logger := &mockLogger{}
	svc := NewSprintService(repo, &mockCache{}, logger, nil)

	_, err := svc.Start(context.Background(), 5, nil, nil)
	if !errors.Is(err, repository.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if len(logger.published) != 0 {
		t.Error("failed start must not publish events")
	}
}

// TestSprintFinish проверяет завершение спринта: инвалидацию всех
// затронутых представлений и событие sprint.finished с итогами
func TestSprintFinish(t *testing.T) {
	repo := &mockSprintRepo{
		getFn: func(ctx context.Context, id int) (*model.Sprint, error) {
			return &model.Sprint{ID: id, BoardID: 7, Name: "Sprint 12", Status: model.SprintActive}, nil
		},
		finishFn: func(ctx context.Context, id int) (*model.SprintSummary, error) {
			return &model.SprintSummary{Completed: 4, Reopened: 2,
				Message: "Sprint finished: 4 tasks completed, 2 moved back to backlog"}, nil
		},
	}
	cache := newRecordingCache()
	logger := &mockLogger{}
	svc := NewSprintService(repo, cache, logger, nil)

	summary, err := svc.Finish(context.Background(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Completed != 4 || summary.Reopened != 2 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	for _, key := range []string{"sprints:7", "backlog:7", "sprint:tasks:5"} {
		if !cache.invalidatedKey(key) {
			t.Errorf("expected %s invalidation, got %v", key, cache.invalidated)
		}
	}
	if len(logger.published) != 1 || logger.published[0].Action != model.EventSprintFinished {
		t.Fatalf("expected one sprint.finished event, got %+v", logger.published)
	}
	if logger.published[0].Points != 4 || logger.published[0].Position != 2 {
		t.Errorf("event must carry completed/reopened counters: %+v", logger.published[0])
	}
}

// TestSprintRemove проверяет мягкое удаление и инвалидацию бэклога,
// куда возвращаются задачи удаленного спринта
func TestSprintRemove(t *testing.T) {
	repo := &mockSprintRepo{
		removeFn: func(ctx context.Context, id int) (*model.Sprint, error) {
			return &model.Sprint{ID: id, BoardID: 7, Name: "Sprint 12", IsDeleted: true}, nil
		},
	}
	cache := newRecordingCache()
	logger := &mockLogger{}
	svc := NewSprintService(repo, cache, logger, nil)

	if err := svc.Remove(context.Background(), 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, key := range []string{"sprints:7", "backlog:7"} {
		if !cache.invalidatedKey(key) {
			t.Errorf("expected %s invalidation, got %v", key, cache.invalidated)
		}
	}
	if len(logger.published) != 1 || logger.published[0].Action != model.EventSprintDeleted {
		t.Fatalf("expected one sprint.deleted event, got %+v", logger.published)
	}
}

// TestSprintRemove_Backlog проверяет защиту бэклога от удаления
func TestSprintRemove_Backlog(t *testing.T) {
	repo := &mockSprintRepo{
		removeFn: func(ctx context.Context, id int) (*model.Sprint, error) {
			return nil, repository.ErrIsBacklog
		},
	}
	svc := NewSprintService(repo, &mockCache{}, &mockLogger{}, nil)

	if err := svc.Remove(context.Background(), 1); !errors.Is(err, repository.ErrIsBacklog) {
		t.Fatalf("expected ErrIsBacklog, got %v", err)
	}
}

// TestSprintAddColumn проверяет добавление колонки и инвалидацию
// представлений спринта
func TestSprintAddColumn(t *testing.T) {
	wip := 3
	repo := &mockSprintRepo{
		createColumnFn: func(ctx context.Context, sprintID int, name string, isDone bool, wipLimit *int) (*model.SprintColumn, error) {
			return &model.SprintColumn{ID: 21, SprintID: sprintID, Name: name, Position: 4, IsDone: isDone, WIPLimit: wipLimit}, nil
		},
		getFn: func(ctx context.Context, id int) (*model.Sprint, error) {
			return &model.Sprint{ID: id, BoardID: 7}, nil
		},
	}
	cache := newRecordingCache()
	svc := NewSprintService(repo, cache, &mockLogger{}, nil)

	col, err := svc.AddColumn(context.Background(), 5, "Review", false, &wip)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if col.WIPLimit == nil || *col.WIPLimit != 3 {
		t.Errorf("expected wip limit 3, got %+v", col)
	}
	for _, key := range []string{"sprint:tasks:5", "burndown:5", "sprints:7"} {
		if !cache.invalidatedKey(key) {
			t.Errorf("expected %s invalidation, got %v", key, cache.invalidated)
		}
	}
}

// TestSprintRemoveColumn проверяет удаление колонки
func TestSprintRemoveColumn(t *testing.T) {
	repo := &mockSprintRepo{
		deleteColumnFn: func(ctx context.Context, id int) (*model.SprintColumn, error) {
			return &model.SprintColumn{ID: id, SprintID: 5, Name: "Review"}, nil
		},
		getFn: func(ctx context.Context, id int) (*model.Sprint, error) {
			return &model.Sprint{ID: id, BoardID: 7}, nil
		},
	}
	cache := newRecordingCache()
	svc := NewSprintService(repo, cache, &mockLogger{}, nil)

	if err := svc.RemoveColumn(context.Background(), 21); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cache.invalidatedKey("sprint:tasks:5") {
		t.Errorf("expected sprint:tasks:5 invalidation, got %v", cache.invalidated)
	}
}

// TestSprintBurndown проверяет построение и кэширование серии burndown
func TestSprintBurndown(t *testing.T) {
	start := time.Now().AddDate(0, 0, -2).Truncate(24 * time.Hour)
	end := start.AddDate(0, 0, 10)
	repo := &mockSprintRepo{
		progressFn: func(ctx context.Context, sprintID int) (*model.SprintProgress, error) {
			return &model.SprintProgress{SprintID: sprintID, BoardID: 7, Name: "Sprint 12",
				StartDate: &start, EndDate: &end, TotalPoints: 40, DonePoints: 13}, nil
		},
	}
	var savedKey string
	var saved []byte
	cache := &mockCache{
		set: func(ctx context.Context, key string, value []byte, ttl time.Duration) error {
			savedKey, saved = key, value
			return nil
		},
	}
	svc := NewSprintService(repo, cache, &mockLogger{}, nil)

	series, err := svc.Burndown(context.Background(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(series) != 11 {
		t.Fatalf("expected 11 points for a 10-day sprint, got %d", len(series))
	}
	if series[0].Ideal != 40 || series[len(series)-1].Ideal != 0 {
		t.Errorf("ideal line must go from total to zero: %v ... %v", series[0], series[len(series)-1])
	}
	if savedKey != "burndown:5" {
		t.Errorf("expected cache key burndown:5, got %q", savedKey)
	}
	var cached []model.BurndownPoint
	if err := json.Unmarshal(saved, &cached); err != nil || len(cached) != 11 {
		t.Errorf("cached series is broken: %v", err)
	}
}

// TestSprintBurndown_NotFound проверяет проброс ErrNotFound
func TestSprintBurndown_NotFound(t *testing.T) {
	repo := &mockSprintRepo{
		progressFn: func(ctx context.Context, sprintID int) (*model.SprintProgress, error) {
			return nil, repository.ErrNotFound
		},
	}
	svc := NewSprintService(repo, &mockCache{}, &mockLogger{}, nil)

	_, err := svc.Burndown(context.Background(), 5)
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// TestSprintPublishSnapshots проверяет публикацию ежедневных снапшотов
// остатка story points по всем активным спринтам
func TestSprintPublishSnapshots(t *testing.T) {
	repo := &mockSprintRepo{
		activeProgressFn: func(ctx context.Context) ([]model.SprintProgress, error) {
			return []model.SprintProgress{
				{SprintID: 5, BoardID: 7, Name: "Sprint 12", TotalPoints: 40, DonePoints: 13},
				{SprintID: 9, BoardID: 8, Name: "Sprint 3", TotalPoints: 20, DonePoints: 20},
			}, nil
		},
	}
	logger := &mockLogger{}
	svc := NewSprintService(repo, &mockCache{}, logger, nil)

	if err := svc.PublishSnapshots(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(logger.published) != 2 {
		t.Fatalf("expected two snapshot events, got %d", len(logger.published))
	}
	first := logger.published[0]
	if first.Action != model.EventSprintSnapshot || first.SprintID != 5 || first.Points != 27 {
		t.Errorf("first snapshot is wrong: %+v", first)
	}
	second := logger.published[1]
	if second.SprintID != 9 || second.Points != 0 {
		t.Errorf("second snapshot is wrong: %+v", second)
	}
}

// TestSprintPublishSnapshots_RepoError проверяет проброс ошибки репозитория
func TestSprintPublishSnapshots_RepoError(t *testing.T) {
	someErr := errors.New("db down")
	repo := &mockSprintRepo{
		activeProgressFn: func(ctx context.Context) ([]model.SprintProgress, error) {
			return nil, someErr
		},
	}
	svc := NewSprintService(repo, &mockCache{}, &mockLogger{}, nil)

	if err := svc.PublishSnapshots(context.Background()); !errors.Is(err, someErr) {
		t.Fatalf("expected repo error, got %v", err)
	}
}
