package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"sprintboard/internal/model"
)

// BoardRepository реализует доступ к таблицам boards, labels и board_members
type BoardRepository struct {
	db *sqlx.DB
}

// NewBoardRepository создает новый репозиторий досок
func NewBoardRepository(db *sqlx.DB) *BoardRepository {
	return &BoardRepository{db: db}
}

// CreateBoard создает доску вместе с ее бэклог-спринтом в одной транзакции
func (r *BoardRepository) CreateBoard(ctx context.Context, orgID int, name, boardType, color string) (*model.Board, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if boardType == "" {
		boardType = model.BoardKanban
	}
	if boardType != model.BoardKanban && boardType != model.BoardScrum {
		return nil, fmt.Errorf("unknown board type %q", boardType)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	b := &model.Board{OrganizationID: orgID, Name: name, Type: boardType, Color: color}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO boards(organization_id, name, type, color) VALUES($1, $2, $3, $4)
		RETURNING id, created_at`,
		orgID, name, boardType, color).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert board: %w", err)
	}
	// бэклог создается вместе с доской: position=0, статус никогда не меняется
	_, err = tx.ExecContext(ctx,
		`INSERT INTO sprints(board_id, name, status, position, is_backlog) VALUES($1, 'Backlog', $2, 0, true)`,
		b.ID, model.SprintPlanning)
	if err != nil {
		return nil, fmt.Errorf("failed to insert backlog sprint: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return b, nil
}

// GetBoard возвращает доску по id
func (r *BoardRepository) GetBoard(ctx context.Context, id int) (*model.Board, error) {
	var b model.Board
	err := r.db.GetContext(ctx, &b,
		`SELECT id, organization_id, name, type, color, created_at FROM boards WHERE id=$1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get board: %w", err)
	}
	return &b, nil
}

// ListLabels возвращает метки доски в алфавитном порядке
func (r *BoardRepository) ListLabels(ctx context.Context, boardID int) ([]model.Label, error) {
	var labels []model.Label
	err := r.db.SelectContext(ctx, &labels,
		`SELECT id, board_id, name, color FROM labels WHERE board_id=$1 ORDER BY name`, boardID)
	if err != nil {
		return nil, fmt.Errorf("failed to select labels: %w", err)
	}
	return labels, nil
}

// CreateLabel добавляет новую метку доски
func (r *BoardRepository) CreateLabel(ctx context.Context, boardID int, name, color string) (*model.Label, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	l := &model.Label{BoardID: boardID, Name: name, Color: color}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO labels(board_id, name, color) VALUES($1, $2, $3) RETURNING id`,
		boardID, name, color).Scan(&l.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert label: %w", err)
	}
	return l, nil
}

// UpdateLabel обновляет имя и цвет метки
func (r *BoardRepository) UpdateLabel(ctx context.Context, id int, name, color string) (*model.Label, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	l := &model.Label{ID: id, Name: name, Color: color}
	err := r.db.QueryRowContext(ctx,
		`UPDATE labels SET name=$1, color=$2 WHERE id=$3 RETURNING board_id`,
		name, color, id).Scan(&l.BoardID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update label: %w", err)
	}
	return l, nil
}

// DeleteLabel удаляет метку вместе с ее привязками к задачам
// Возвращает удаленную метку, чтобы вызывающий знал доску для инвалидации кэша
func (r *BoardRepository) DeleteLabel(ctx context.Context, id int) (*model.Label, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	var l model.Label
	err = tx.QueryRowContext(ctx,
		`SELECT id, board_id, name, color FROM labels WHERE id=$1 FOR UPDATE`, id).
		Scan(&l.ID, &l.BoardID, &l.Name, &l.Color)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to select label for delete: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM task_labels WHERE label_id=$1`, id); err != nil {
		return nil, fmt.Errorf("failed to delete label links: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM labels WHERE id=$1`, id); err != nil {
		return nil, fmt.Errorf("failed to delete label: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &l, nil
}

// FindLabelByName ищет метку доски по точному имени без учета регистра,
// используется квик-адд парсером для токена +label
func (r *BoardRepository) FindLabelByName(ctx context.Context, boardID int, name string) (*model.Label, error) {
	var l model.Label
	err := r.db.GetContext(ctx, &l,
		`SELECT id, board_id, name, color FROM labels WHERE board_id=$1 AND lower(name)=lower($2)`,
		boardID, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find label: %w", err)
	}
	return &l, nil
}

// ListMembers возвращает участников доски
func (r *BoardRepository) ListMembers(ctx context.Context, boardID int) ([]model.User, error) {
	var users []model.User
	err := r.db.SelectContext(ctx, &users,
		`SELECT u.id, u.external_id, u.full_name, u.email, u.avatar_url
		FROM users u JOIN board_members m ON m.user_id = u.id
		WHERE m.board_id=$1 ORDER BY u.full_name`, boardID)
	if err != nil {
		return nil, fmt.Errorf("failed to select members: %w", err)
	}
	return users, nil
}

// AddMember добавляет пользователя в участники доски, повторное добавление игнорируется
func (r *BoardRepository) AddMember(ctx context.Context, boardID, userID int) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO board_members(board_id, user_id) VALUES($1, $2) ON CONFLICT DO NOTHING`,
		boardID, userID)
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	return nil
}
