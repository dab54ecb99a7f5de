package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"sprintboard/internal/model"
)

// Имена колонок, создаваемых при запуске спринта без собственных колонок
var defaultColumns = []struct {
	Name   string
	IsDone bool
}{
	{"To Do", false},
	{"In Progress", false},
	{"Done", true},
}

// SprintRepository реализует доступ к таблицам sprints и sprint_columns
type SprintRepository struct {
	db *sqlx.DB
}

// NewSprintRepository создает новый репозиторий спринтов
func NewSprintRepository(db *sqlx.DB) *SprintRepository {
	return &SprintRepository{db: db}
}

// CreateSprint создает спринт в статусе planning в конце списка спринтов доски
func (r *SprintRepository) CreateSprint(ctx context.Context, boardID int, name string, goal *string) (*model.Sprint, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	var pos int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), 0) + 1 FROM sprints WHERE board_id=$1 AND is_backlog=false AND is_deleted=false`,
		boardID).Scan(&pos)
	if err != nil {
		return nil, fmt.Errorf("failed to compute sprint position: %w", err)
	}
	s := &model.Sprint{BoardID: boardID, Name: name, Goal: goal, Status: model.SprintPlanning, Position: pos}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO sprints(board_id, name, goal, status, position) VALUES($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		boardID, name, goal, model.SprintPlanning, pos).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert sprint: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return s, nil
}

// GetSprint возвращает неудаленный спринт по id вместе с его колонками
func (r *SprintRepository) GetSprint(ctx context.Context, id int) (*model.Sprint, error) {
	var s model.Sprint
	err := r.db.GetContext(ctx, &s,
		`SELECT id, board_id, name, goal, status, start_date, end_date, position, is_backlog, is_deleted, is_finished, created_at
		FROM sprints WHERE id=$1 AND is_deleted=false`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get sprint: %w", err)
	}
	err = r.db.SelectContext(ctx, &s.Columns,
		`SELECT id, sprint_id, name, position, is_done, wip_limit FROM sprint_columns WHERE sprint_id=$1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to select sprint columns: %w", err)
	}
	return &s, nil
}

// ListSprints возвращает неудаленные спринты доски (без бэклога) с колонками,
// упорядоченные по позиции
func (r *SprintRepository) ListSprints(ctx context.Context, boardID int) ([]model.Sprint, error) {
	var sprints []model.Sprint
	err := r.db.SelectContext(ctx, &sprints,
		`SELECT id, board_id, name, goal, status, start_date, end_date, position, is_backlog, is_deleted, is_finished, created_at
		FROM sprints WHERE board_id=$1 AND is_backlog=false AND is_deleted=false ORDER BY position`, boardID)
	if err != nil {
		return nil, fmt.Errorf("failed to select sprints: %w", err)
	}
	if len(sprints) == 0 {
		return sprints, nil
	}
	var cols []model.SprintColumn
	err = r.db.SelectContext(ctx, &cols,
		`SELECT c.id, c.sprint_id, c.name, c.position, c.is_done, c.wip_limit
		FROM sprint_columns c JOIN sprints s ON s.id = c.sprint_id
		WHERE s.board_id=$1 AND s.is_deleted=false ORDER BY c.sprint_id, c.position`, boardID)
	if err != nil {
		return nil, fmt.Errorf("failed to select sprint columns: %w", err)
	}
	bySprint := make(map[int][]model.SprintColumn, len(sprints))
	for _, c := range cols {
		bySprint[c.SprintID] = append(bySprint[c.SprintID], c)
	}
	for i := range sprints {
		sprints[i].Columns = bySprint[sprints[i].ID]
	}
	return sprints, nil
}

// UpdateSprint обновляет имя, цель и дату окончания спринта с блокировкой строки
func (r *SprintRepository) UpdateSprint(ctx context.Context, id int, patch model.SprintPatch) (*model.Sprint, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	var s model.Sprint
	err = tx.QueryRowContext(ctx,
		`SELECT id, board_id, name, goal, status, start_date, end_date, position, is_backlog, is_deleted, is_finished, created_at
		FROM sprints WHERE id=$1 AND is_deleted=false FOR UPDATE`, id).
		Scan(&s.ID, &s.BoardID, &s.Name, &s.Goal, &s.Status, &s.StartDate, &s.EndDate,
			&s.Position, &s.IsBacklog, &s.IsDeleted, &s.IsFinished, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to select sprint for update: %w", err)
	}
	if s.IsBacklog {
		return nil, ErrIsBacklog
	}
	if patch.Name != nil {
		if *patch.Name == "" {
			return nil, ErrEmptyName
		}
		s.Name = *patch.Name
	}
	if patch.Goal != nil {
		s.Goal = patch.Goal
	}
	if patch.EndDate != nil {
		s.EndDate = patch.EndDate
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE sprints SET name=$1, goal=$2, end_date=$3 WHERE id=$4`,
		s.Name, s.Goal, s.EndDate, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update sprint: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &s, nil
}

// RemoveSprint помечает спринт удаленным и возвращает его задачи в бэклог
// Бэклог удалить нельзя
func (r *SprintRepository) RemoveSprint(ctx context.Context, id int) (*model.Sprint, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	var s model.Sprint
	err = tx.QueryRowContext(ctx,
		`SELECT id, board_id, is_backlog FROM sprints WHERE id=$1 AND is_deleted=false FOR UPDATE`, id).
		Scan(&s.ID, &s.BoardID, &s.IsBacklog)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to select sprint for remove: %w", err)
	}
	if s.IsBacklog {
		return nil, ErrIsBacklog
	}
	if _, err := moveSprintTasksToBacklog(ctx, tx, id, s.BoardID); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE sprints SET is_deleted=true WHERE id=$1`, id); err != nil {
		return nil, fmt.Errorf("failed to remove sprint: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.IsDeleted = true
	return &s, nil
}

// StartSprint переводит спринт planning -> active, выставляет дату старта
// и создает колонки по умолчанию, если у спринта их нет
func (r *SprintRepository) StartSprint(ctx context.Context, id int, goal *string, endDate *time.Time) (*model.Sprint, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	var s model.Sprint
	err = tx.QueryRowContext(ctx,
		`SELECT id, board_id, name, goal, status, start_date, end_date, position, is_backlog, is_deleted, is_finished, created_at
		FROM sprints WHERE id=$1 AND is_deleted=false FOR UPDATE`, id).
		Scan(&s.ID, &s.BoardID, &s.Name, &s.Goal, &s.Status, &s.StartDate, &s.EndDate,
			&s.Position, &s.IsBacklog, &s.IsDeleted, &s.IsFinished, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to select sprint for start: %w", err)
	}
	if s.IsBacklog {
		return nil, ErrIsBacklog
	}
	if s.Status != model.SprintPlanning {
		return nil, ErrInvalidTransition
	}
	if goal != nil {
		s.Goal = goal
	}
	if endDate != nil {
		s.EndDate = endDate
	}
	s.Status = model.SprintActive
	err = tx.QueryRowContext(ctx,
		`UPDATE sprints SET status=$1, start_date=now(), end_date=$2, goal=$3 WHERE id=$4 RETURNING start_date`,
		model.SprintActive, s.EndDate, s.Goal, id).Scan(&s.StartDate)
	if err != nil {
		return nil, fmt.Errorf("failed to start sprint: %w", err)
	}
	var colCount int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM sprint_columns WHERE sprint_id=$1`, id).Scan(&colCount); err != nil {
		return nil, fmt.Errorf("failed to count sprint columns: %w", err)
	}
	if colCount == 0 {
		for i, c := range defaultColumns {
			col := model.SprintColumn{SprintID: id, Name: c.Name, Position: i + 1, IsDone: c.IsDone}
			err = tx.QueryRowContext(ctx,
				`INSERT INTO sprint_columns(sprint_id, name, position, is_done) VALUES($1, $2, $3, $4) RETURNING id`,
				id, c.Name, i+1, c.IsDone).Scan(&col.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to insert default column: %w", err)
			}
			s.Columns = append(s.Columns, col)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &s, nil
}

// FinishSprint переводит спринт active -> completed: считает задачи в done-колонках
// завершенными, остальные возвращает в конец бэклога
func (r *SprintRepository) FinishSprint(ctx context.Context, id int) (*model.SprintSummary, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	var boardID int
	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT board_id, status FROM sprints WHERE id=$1 AND is_deleted=false FOR UPDATE`, id).
		Scan(&boardID, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to select sprint for finish: %w", err)
	}
	if status != model.SprintActive {
		return nil, ErrInvalidTransition
	}
	var completed int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks t JOIN sprint_columns c ON c.id = t.column_id
		WHERE t.sprint_id=$1 AND c.is_done=true`, id).Scan(&completed)
	if err != nil {
		return nil, fmt.Errorf("failed to count completed tasks: %w", err)
	}
	reopened, err := moveSprintTasksToBacklog(ctx, tx, id, boardID)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE sprints SET status=$1, is_finished=true WHERE id=$2`, model.SprintCompleted, id)
	if err != nil {
		return nil, fmt.Errorf("failed to finish sprint: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &model.SprintSummary{
		Completed: completed,
		Reopened:  reopened,
		Message:   fmt.Sprintf("sprint finished: %d tasks completed, %d moved back to backlog", completed, reopened),
	}, nil
}

// moveSprintTasksToBacklog возвращает незавершенные задачи спринта в конец бэклога,
// сохраняя их относительный порядок. Возвращает число перемещенных задач
func moveSprintTasksToBacklog(ctx context.Context, tx *sql.Tx, sprintID, boardID int) (int, error) {
	var base int
	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), 0) FROM tasks WHERE board_id=$1 AND sprint_id IS NULL`,
		boardID).Scan(&base)
	if err != nil {
		return 0, fmt.Errorf("failed to compute backlog base position: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE tasks SET sprint_id=NULL, column_id=NULL, position=$2 + ranked.rn
		FROM (
			SELECT t.id, ROW_NUMBER() OVER (ORDER BY t.column_id, t.position) AS rn
			FROM tasks t
			WHERE t.sprint_id=$1 AND (t.column_id IS NULL OR t.column_id NOT IN (
				SELECT id FROM sprint_columns WHERE sprint_id=$1 AND is_done=true))
		) ranked
		WHERE tasks.id = ranked.id`, sprintID, base)
	if err != nil {
		return 0, fmt.Errorf("failed to move tasks to backlog: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count moved tasks: %w", err)
	}
	return int(n), nil
}

// CreateColumn добавляет колонку в конец спринта
func (r *SprintRepository) CreateColumn(ctx context.Context, sprintID int, name string, isDone bool, wipLimit *int) (*model.SprintColumn, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	var pos int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), 0) + 1 FROM sprint_columns WHERE sprint_id=$1`, sprintID).Scan(&pos)
	if err != nil {
		return nil, fmt.Errorf("failed to compute column position: %w", err)
	}
	c := &model.SprintColumn{SprintID: sprintID, Name: name, Position: pos, IsDone: isDone, WIPLimit: wipLimit}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO sprint_columns(sprint_id, name, position, is_done, wip_limit) VALUES($1, $2, $3, $4, $5) RETURNING id`,
		sprintID, name, pos, isDone, wipLimit).Scan(&c.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert column: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return c, nil
}

// UpdateColumn обновляет имя, флаг done и WIP-лимит колонки
func (r *SprintRepository) UpdateColumn(ctx context.Context, id int, patch model.ColumnPatch) (*model.SprintColumn, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	var c model.SprintColumn
	err = tx.QueryRowContext(ctx,
		`SELECT id, sprint_id, name, position, is_done, wip_limit FROM sprint_columns WHERE id=$1 FOR UPDATE`, id).
		Scan(&c.ID, &c.SprintID, &c.Name, &c.Position, &c.IsDone, &c.WIPLimit)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to select column for update: %w", err)
	}
	if patch.Name != nil {
		if *patch.Name == "" {
			return nil, ErrEmptyName
		}
		c.Name = *patch.Name
	}
	if patch.IsDone != nil {
		c.IsDone = *patch.IsDone
	}
	if patch.WIPLimit != nil {
		c.WIPLimit = patch.WIPLimit
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE sprint_columns SET name=$1, is_done=$2, wip_limit=$3 WHERE id=$4`,
		c.Name, c.IsDone, c.WIPLimit, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update column: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &c, nil
}

// DeleteColumn удаляет колонку спринта. Ее задачи переносятся в крайнюю левую
// из оставшихся колонок, а при отсутствии таковой — в бэклог
func (r *SprintRepository) DeleteColumn(ctx context.Context, id int) (*model.SprintColumn, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	var c model.SprintColumn
	var boardID int
	err = tx.QueryRowContext(ctx,
		`SELECT c.id, c.sprint_id, c.name, c.position, c.is_done, c.wip_limit, s.board_id
		FROM sprint_columns c JOIN sprints s ON s.id = c.sprint_id
		WHERE c.id=$1 FOR UPDATE OF c`, id).
		Scan(&c.ID, &c.SprintID, &c.Name, &c.Position, &c.IsDone, &c.WIPLimit, &boardID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to select column for delete: %w", err)
	}
	var destID int
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM sprint_columns WHERE sprint_id=$1 AND id<>$2 ORDER BY position LIMIT 1`,
		c.SprintID, id).Scan(&destID)
	switch {
	case err == nil:
		// переносим задачи в конец соседней колонки, сохраняя порядок
		var base int
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(position), 0) FROM tasks WHERE column_id=$1`, destID).Scan(&base); err != nil {
			return nil, fmt.Errorf("failed to compute destination base position: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE tasks SET column_id=$2, position=$3 + ranked.rn
			FROM (SELECT id, ROW_NUMBER() OVER (ORDER BY position) AS rn FROM tasks WHERE column_id=$1) ranked
			WHERE tasks.id = ranked.id`, id, destID, base)
		if err != nil {
			return nil, fmt.Errorf("failed to move tasks to neighbour column: %w", err)
		}
	case errors.Is(err, sql.ErrNoRows):
		// колонок больше нет — задачи уходят в бэклог
		var base int
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(position), 0) FROM tasks WHERE board_id=$1 AND sprint_id IS NULL`,
			boardID).Scan(&base); err != nil {
			return nil, fmt.Errorf("failed to compute backlog base position: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE tasks SET sprint_id=NULL, column_id=NULL, position=$2 + ranked.rn
			FROM (SELECT id, ROW_NUMBER() OVER (ORDER BY position) AS rn FROM tasks WHERE column_id=$1) ranked
			WHERE tasks.id = ranked.id`, id, base)
		if err != nil {
			return nil, fmt.Errorf("failed to move tasks to backlog: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to find neighbour column: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sprint_columns WHERE id=$1`, id); err != nil {
		return nil, fmt.Errorf("failed to delete column: %w", err)
	}
	// закрываем дыру в позициях колонок
	_, err = tx.ExecContext(ctx,
		`UPDATE sprint_columns SET position=position-1 WHERE sprint_id=$1 AND position>$2`,
		c.SprintID, c.Position)
	if err != nil {
		return nil, fmt.Errorf("failed to shift column positions: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &c, nil
}

// GetProgress возвращает агрегат story points спринта для burndown
func (r *SprintRepository) GetProgress(ctx context.Context, sprintID int) (*model.SprintProgress, error) {
	var p model.SprintProgress
	err := r.db.GetContext(ctx, &p,
		`SELECT s.id AS sprint_id, s.board_id, s.name, s.start_date, s.end_date,
			COALESCE(SUM(t.points), 0) AS total_points,
			COALESCE(SUM(CASE WHEN c.is_done THEN t.points END), 0) AS done_points
		FROM sprints s
		LEFT JOIN tasks t ON t.sprint_id = s.id
		LEFT JOIN sprint_columns c ON c.id = t.column_id
		WHERE s.id=$1 AND s.is_deleted=false
		GROUP BY s.id`, sprintID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get sprint progress: %w", err)
	}
	return &p, nil
}

// ListActiveProgress возвращает агрегаты всех активных спринтов,
// используется ежедневным снапшот-джобом
func (r *SprintRepository) ListActiveProgress(ctx context.Context) ([]model.SprintProgress, error) {
	var list []model.SprintProgress
	err := r.db.SelectContext(ctx, &list,
		`SELECT s.id AS sprint_id, s.board_id, s.name, s.start_date, s.end_date,
			COALESCE(SUM(t.points), 0) AS total_points,
			COALESCE(SUM(CASE WHEN c.is_done THEN t.points END), 0) AS done_points
		FROM sprints s
		LEFT JOIN tasks t ON t.sprint_id = s.id
		LEFT JOIN sprint_columns c ON c.id = t.column_id
		WHERE s.status=$1 AND s.is_deleted=false
		GROUP BY s.id ORDER BY s.id`, model.SprintActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sprint progress: %w", err)
	}
	return list, nil
}
