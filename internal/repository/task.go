package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"sprintboard/internal/model"
)

// ErrNotInSprint возвращается, когда задача не принадлежит указанному спринту
var ErrNotInSprint = errors.New("task does not belong to the sprint")

// ErrNotInBacklog возвращается при попытке затянуть в спринт задачу не из бэклога
var ErrNotInBacklog = errors.New("task is not in the backlog")

const taskColumns = `id, board_id, sprint_id, column_id, title, description, type, priority, points, due_date, position, created_at`

// TaskRepository реализует доступ к таблицам tasks, task_assignees и task_labels
type TaskRepository struct {
	db *sqlx.DB
}

// NewTaskRepository создает новый репозиторий задач
func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// CreateTask добавляет задачу в конец своего контейнера: колонки спринта
// либо бэклога (sprint_id IS NULL)
func (r *TaskRepository) CreateTask(ctx context.Context, t *model.Task) (*model.Task, error) {
	if t.Title == "" {
		return nil, ErrEmptyTitle
	}
	if t.Type == "" {
		t.Type = "task"
	}
	if !model.ValidTaskType(t.Type) {
		return nil, fmt.Errorf("unknown task type %q", t.Type)
	}
	if t.Priority == "" {
		t.Priority = "medium"
	}
	if !model.ValidPriority(t.Priority) {
		return nil, fmt.Errorf("unknown priority %q", t.Priority)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), 0) + 1 FROM tasks
		WHERE board_id=$1 AND sprint_id IS NOT DISTINCT FROM $2 AND column_id IS NOT DISTINCT FROM $3`,
		t.BoardID, t.SprintID, t.ColumnID).Scan(&t.Position)
	if err != nil {
		return nil, fmt.Errorf("failed to compute task position: %w", err)
	}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO tasks(board_id, sprint_id, column_id, title, description, type, priority, points, due_date, position)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`,
		t.BoardID, t.SprintID, t.ColumnID, t.Title, t.Description, t.Type, t.Priority, t.Points, t.DueDate, t.Position).
		Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return t, nil
}

// GetTask возвращает задачу с исполнителями и метками
func (r *TaskRepository) GetTask(ctx context.Context, id int) (*model.Task, error) {
	var t model.Task
	err := r.db.GetContext(ctx, &t, `SELECT `+taskColumns+` FROM tasks WHERE id=$1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	tasks := []model.Task{t}
	if err := r.loadRefs(ctx, tasks); err != nil {
		return nil, err
	}
	return &tasks[0], nil
}

// UpdateTask применяет частичное обновление скалярных полей задачи
// с блокировкой строки и транзакцией
func (r *TaskRepository) UpdateTask(ctx context.Context, id int, patch model.TaskPatch) (*model.Task, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	var t model.Task
	err = tx.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id=$1 FOR UPDATE`, id).
		Scan(&t.ID, &t.BoardID, &t.SprintID, &t.ColumnID, &t.Title, &t.Description,
			&t.Type, &t.Priority, &t.Points, &t.DueDate, &t.Position, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to select task for update: %w", err)
	}
	if patch.Title != nil {
		if *patch.Title == "" {
			return nil, ErrEmptyTitle
		}
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = patch.Description
	}
	if patch.Type != nil {
		if !model.ValidTaskType(*patch.Type) {
			return nil, fmt.Errorf("unknown task type %q", *patch.Type)
		}
		t.Type = *patch.Type
	}
	if patch.Priority != nil {
		if !model.ValidPriority(*patch.Priority) {
			return nil, fmt.Errorf("unknown priority %q", *patch.Priority)
		}
		t.Priority = *patch.Priority
	}
	if patch.Points != nil {
		t.Points = patch.Points
	}
	if patch.DueDate != nil {
		t.DueDate = patch.DueDate
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE tasks SET title=$1, description=$2, type=$3, priority=$4, points=$5, due_date=$6 WHERE id=$7`,
		t.Title, t.Description, t.Type, t.Priority, t.Points, t.DueDate, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &t, nil
}

// DeleteTask удаляет задачу и закрывает дыру в позициях ее контейнера
func (r *TaskRepository) DeleteTask(ctx context.Context, id int) (*model.Task, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	var t model.Task
	err = tx.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id=$1 FOR UPDATE`, id).
		Scan(&t.ID, &t.BoardID, &t.SprintID, &t.ColumnID, &t.Title, &t.Description,
			&t.Type, &t.Priority, &t.Points, &t.DueDate, &t.Position, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to select task for delete: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM task_assignees WHERE task_id=$1`, id); err != nil {
		return nil, fmt.Errorf("failed to delete task assignees: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM task_labels WHERE task_id=$1`, id); err != nil {
		return nil, fmt.Errorf("failed to delete task labels: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id=$1`, id); err != nil {
		return nil, fmt.Errorf("failed to delete task: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE tasks SET position=position-1
		WHERE board_id=$1 AND sprint_id IS NOT DISTINCT FROM $2 AND column_id IS NOT DISTINCT FROM $3 AND position>$4`,
		t.BoardID, t.SprintID, t.ColumnID, t.Position)
	if err != nil {
		return nil, fmt.Errorf("failed to close position gap: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &t, nil
}

// ListBacklog возвращает задачи бэклога доски по порядку позиций
func (r *TaskRepository) ListBacklog(ctx context.Context, boardID int) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.SelectContext(ctx, &tasks,
		`SELECT `+taskColumns+` FROM tasks WHERE board_id=$1 AND sprint_id IS NULL ORDER BY position`, boardID)
	if err != nil {
		return nil, fmt.Errorf("failed to select backlog tasks: %w", err)
	}
	if err := r.loadRefs(ctx, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListSprintTasks возвращает задачи спринта, сгруппированные по колонкам
func (r *TaskRepository) ListSprintTasks(ctx context.Context, sprintID int) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.SelectContext(ctx, &tasks,
		`SELECT `+taskColumns+` FROM tasks WHERE sprint_id=$1 ORDER BY column_id, position`, sprintID)
	if err != nil {
		return nil, fmt.Errorf("failed to select sprint tasks: %w", err)
	}
	if err := r.loadRefs(ctx, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// MoveTask перемещает задачу внутри спринта: в другую колонку или на другую
// позицию той же колонки. Сдвигает позиции затронутых задач и возвращает все
// изменения, чтобы клиент мог сверить свое оптимистичное состояние.
// Перемещение в ту же колонку на ту же позицию — no-op с пустым списком
func (r *TaskRepository) MoveTask(ctx context.Context, sprintID, taskID, toColumnID, newPos int) ([]model.PositionUpdate, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	var srcCol sql.NullInt64
	var srcPos int
	err = tx.QueryRowContext(ctx,
		`SELECT column_id, position FROM tasks WHERE id=$1 AND sprint_id=$2 FOR UPDATE`,
		taskID, sprintID).Scan(&srcCol, &srcPos)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to select task for move: %w", err)
	}
	// колонка назначения блокируется, чтобы проверка WIP-лимита была атомарной
	var wipLimit sql.NullInt64
	err = tx.QueryRowContext(ctx,
		`SELECT wip_limit FROM sprint_columns WHERE id=$1 AND sprint_id=$2 FOR UPDATE`,
		toColumnID, sprintID).Scan(&wipLimit)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to select destination column: %w", err)
	}
	sameColumn := srcCol.Valid && int(srcCol.Int64) == toColumnID
	if sameColumn && srcPos == newPos {
		// бросок на то же место: ничего не меняем
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return []model.PositionUpdate{}, nil
	}
	var destCount int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks WHERE column_id=$1 AND id<>$2`, toColumnID, taskID).Scan(&destCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count destination tasks: %w", err)
	}
	if !sameColumn && wipLimit.Valid && destCount >= int(wipLimit.Int64) {
		return nil, ErrWIPLimitExceeded
	}
	// прижимаем позицию к допустимому диапазону
	if newPos < 1 {
		newPos = 1
	}
	if newPos > destCount+1 {
		newPos = destCount + 1
	}
	var updates []model.PositionUpdate
	collect := func(rows *sql.Rows) error {
		defer rows.Close()
		for rows.Next() {
			var pu model.PositionUpdate
			if err := rows.Scan(&pu.ID, &pu.ColumnID, &pu.Position); err != nil {
				return fmt.Errorf("failed to scan shifted position: %w", err)
			}
			updates = append(updates, pu)
		}
		return rows.Err()
	}
	if sameColumn {
		// сдвигаем позиции между старым и новым местом, как при репозиционировании
		if newPos < srcPos {
			rows, err := tx.QueryContext(ctx,
				`UPDATE tasks SET position = position + 1
				WHERE column_id=$1 AND position >= $2 AND position < $3 AND id<>$4
				RETURNING id, column_id, position`, toColumnID, newPos, srcPos, taskID)
			if err != nil {
				return nil, fmt.Errorf("failed to shift positions up: %w", err)
			}
			if err := collect(rows); err != nil {
				return nil, err
			}
		} else {
			rows, err := tx.QueryContext(ctx,
				`UPDATE tasks SET position = position - 1
				WHERE column_id=$1 AND position > $2 AND position <= $3 AND id<>$4
				RETURNING id, column_id, position`, toColumnID, srcPos, newPos, taskID)
			if err != nil {
				return nil, fmt.Errorf("failed to shift positions down: %w", err)
			}
			if err := collect(rows); err != nil {
				return nil, err
			}
		}
	} else {
		// закрываем дыру в исходной колонке (или бэклоге) и открываем в целевой
		if srcCol.Valid {
			rows, err := tx.QueryContext(ctx,
				`UPDATE tasks SET position = position - 1
				WHERE column_id=$1 AND position > $2
				RETURNING id, column_id, position`, srcCol.Int64, srcPos)
			if err != nil {
				return nil, fmt.Errorf("failed to close source gap: %w", err)
			}
			if err := collect(rows); err != nil {
				return nil, err
			}
		}
		rows, err := tx.QueryContext(ctx,
			`UPDATE tasks SET position = position + 1
			WHERE column_id=$1 AND position >= $2 AND id<>$3
			RETURNING id, column_id, position`, toColumnID, newPos, taskID)
		if err != nil {
			return nil, fmt.Errorf("failed to open destination gap: %w", err)
		}
		if err := collect(rows); err != nil {
			return nil, err
		}
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE tasks SET column_id=$1, position=$2 WHERE id=$3`, toColumnID, newPos, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to move task: %w", err)
	}
	colID := toColumnID
	updates = append(updates, model.PositionUpdate{ID: taskID, ColumnID: &colID, Position: newPos})
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return updates, nil
}

// MoveToBacklog выводит задачу из спринта в конец бэклога доски
func (r *TaskRepository) MoveToBacklog(ctx context.Context, sprintID, taskID int) (*model.Task, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	var t model.Task
	err = tx.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id=$1 FOR UPDATE`, taskID).
		Scan(&t.ID, &t.BoardID, &t.SprintID, &t.ColumnID, &t.Title, &t.Description,
			&t.Type, &t.Priority, &t.Points, &t.DueDate, &t.Position, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to select task for backlog move: %w", err)
	}
	if t.SprintID == nil || *t.SprintID != sprintID {
		return nil, ErrNotInSprint
	}
	// закрываем дыру в исходной колонке
	if t.ColumnID != nil {
		_, err = tx.ExecContext(ctx,
			`UPDATE tasks SET position=position-1 WHERE column_id=$1 AND position>$2`,
			*t.ColumnID, t.Position)
		if err != nil {
			return nil, fmt.Errorf("failed to close source gap: %w", err)
		}
	}
	var base int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), 0) FROM tasks WHERE board_id=$1 AND sprint_id IS NULL`,
		t.BoardID).Scan(&base)
	if err != nil {
		return nil, fmt.Errorf("failed to compute backlog base position: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE tasks SET sprint_id=NULL, column_id=NULL, position=$1 WHERE id=$2`, base+1, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to move task to backlog: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	t.SprintID = nil
	t.ColumnID = nil
	t.Position = base + 1
	return &t, nil
}

// AddToSprint затягивает задачу из бэклога в спринт: в конец крайней левой
// колонки, а у спринта без колонок (planning) — без колонки
func (r *TaskRepository) AddToSprint(ctx context.Context, sprintID, taskID int) (*model.Task, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	var t model.Task
	err = tx.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id=$1 FOR UPDATE`, taskID).
		Scan(&t.ID, &t.BoardID, &t.SprintID, &t.ColumnID, &t.Title, &t.Description,
			&t.Type, &t.Priority, &t.Points, &t.DueDate, &t.Position, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to select task for sprint add: %w", err)
	}
	if t.SprintID != nil {
		return nil, ErrNotInBacklog
	}
	var boardID int
	var isBacklog bool
	err = tx.QueryRowContext(ctx,
		`SELECT board_id, is_backlog FROM sprints WHERE id=$1 AND is_deleted=false`, sprintID).
		Scan(&boardID, &isBacklog)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to select sprint: %w", err)
	}
	// бэклог не является целевым спринтом: задача с sprint_id бэклога
	// пропала бы из всех представлений
	if isBacklog {
		return nil, ErrIsBacklog
	}
	if boardID != t.BoardID {
		return nil, ErrNotInSprint
	}
	var destCol *int
	var colID int
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM sprint_columns WHERE sprint_id=$1 ORDER BY position LIMIT 1`, sprintID).Scan(&colID)
	if err == nil {
		destCol = &colID
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to select leftmost column: %w", err)
	}
	// закрываем дыру в бэклоге
	_, err = tx.ExecContext(ctx,
		`UPDATE tasks SET position=position-1 WHERE board_id=$1 AND sprint_id IS NULL AND position>$2`,
		t.BoardID, t.Position)
	if err != nil {
		return nil, fmt.Errorf("failed to close backlog gap: %w", err)
	}
	var pos int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), 0) + 1 FROM tasks
		WHERE sprint_id=$1 AND column_id IS NOT DISTINCT FROM $2 AND id<>$3`,
		sprintID, destCol, taskID).Scan(&pos)
	if err != nil {
		return nil, fmt.Errorf("failed to compute sprint position: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE tasks SET sprint_id=$1, column_id=$2, position=$3 WHERE id=$4`,
		sprintID, destCol, pos, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to add task to sprint: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	sid := sprintID
	t.SprintID = &sid
	t.ColumnID = destCol
	t.Position = pos
	return &t, nil
}

// ToggleLabel добавляет метку задаче либо снимает ее, если она уже установлена
// Возвращает true, если метка была добавлена
func (r *TaskRepository) ToggleLabel(ctx context.Context, taskID, labelID int) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM task_labels WHERE task_id=$1 AND label_id=$2`, taskID, labelID)
	if err != nil {
		return false, fmt.Errorf("failed to toggle label: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n > 0 {
		return false, nil
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO task_labels(task_id, label_id) VALUES($1, $2)`, taskID, labelID)
	if err != nil {
		return false, fmt.Errorf("failed to attach label: %w", err)
	}
	return true, nil
}

// ToggleAssignee назначает пользователя на задачу либо снимает назначение
// Возвращает true, если исполнитель был добавлен
func (r *TaskRepository) ToggleAssignee(ctx context.Context, taskID, userID int) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM task_assignees WHERE task_id=$1 AND user_id=$2`, taskID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to toggle assignee: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n > 0 {
		return false, nil
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO task_assignees(task_id, user_id) VALUES($1, $2)`, taskID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to attach assignee: %w", err)
	}
	return true, nil
}

// AttachLabel привязывает метку без переключения (используется квик-аддом)
func (r *TaskRepository) AttachLabel(ctx context.Context, taskID, labelID int) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO task_labels(task_id, label_id) VALUES($1, $2) ON CONFLICT DO NOTHING`, taskID, labelID)
	if err != nil {
		return fmt.Errorf("failed to attach label: %w", err)
	}
	return nil
}

// AttachAssignee назначает исполнителя без переключения (используется квик-аддом)
func (r *TaskRepository) AttachAssignee(ctx context.Context, taskID, userID int) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO task_assignees(task_id, user_id) VALUES($1, $2) ON CONFLICT DO NOTHING`, taskID, userID)
	if err != nil {
		return fmt.Errorf("failed to attach assignee: %w", err)
	}
	return nil
}

// loadRefs дозагружает исполнителей и метки для набора задач двумя запросами
func (r *TaskRepository) loadRefs(ctx context.Context, tasks []model.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	ids := make([]int64, len(tasks))
	index := make(map[int]*model.Task, len(tasks))
	for i := range tasks {
		ids[i] = int64(tasks[i].ID)
		index[tasks[i].ID] = &tasks[i]
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT a.task_id, u.id, u.external_id, u.full_name, u.email, u.avatar_url
		FROM task_assignees a JOIN users u ON u.id = a.user_id
		WHERE a.task_id = ANY($1) ORDER BY u.full_name`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to select assignees: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var taskID int
		var u model.User
		if err := rows.Scan(&taskID, &u.ID, &u.ExternalID, &u.FullName, &u.Email, &u.AvatarURL); err != nil {
			return fmt.Errorf("failed to scan assignee: %w", err)
		}
		if t := index[taskID]; t != nil {
			t.Assignees = append(t.Assignees, u)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate assignees: %w", err)
	}
	lrows, err := r.db.QueryContext(ctx,
		`SELECT tl.task_id, l.id, l.board_id, l.name, l.color
		FROM task_labels tl JOIN labels l ON l.id = tl.label_id
		WHERE tl.task_id = ANY($1) ORDER BY l.name`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to select labels: %w", err)
	}
	defer lrows.Close()
	for lrows.Next() {
		var taskID int
		var l model.Label
		if err := lrows.Scan(&taskID, &l.ID, &l.BoardID, &l.Name, &l.Color); err != nil {
			return fmt.Errorf("failed to scan label: %w", err)
		}
		if t := index[taskID]; t != nil {
			t.Labels = append(t.Labels, l)
		}
	}
	if err := lrows.Err(); err != nil {
		return fmt.Errorf("failed to iterate labels: %w", err)
	}
	return nil
}
