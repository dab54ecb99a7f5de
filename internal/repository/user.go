package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"sprintboard/internal/model"
)

// UserRepository реализует доступ к таблице users
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository создает новый репозиторий пользователей
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// SyncUser создает или обновляет пользователя по его внешнему идентификатору
// из провайдера аутентификации. Вызывается при каждом логине
func (r *UserRepository) SyncUser(ctx context.Context, externalID, fullName, email string, avatarURL *string) (*model.User, error) {
	if externalID == "" {
		return nil, errors.New("externalId cannot be empty")
	}
	u := &model.User{ExternalID: externalID, FullName: fullName, Email: email, AvatarURL: avatarURL}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users(external_id, full_name, email, avatar_url) VALUES($1, $2, $3, $4)
		ON CONFLICT (external_id) DO UPDATE
		SET full_name=EXCLUDED.full_name, email=EXCLUDED.email, avatar_url=EXCLUDED.avatar_url
		RETURNING id`,
		externalID, fullName, email, avatarURL).Scan(&u.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to sync user: %w", err)
	}
	return u, nil
}

// GetUser возвращает пользователя по id
func (r *UserRepository) GetUser(ctx context.Context, id int) (*model.User, error) {
	var u model.User
	err := r.db.GetContext(ctx, &u,
		`SELECT id, external_id, full_name, email, avatar_url FROM users WHERE id=$1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// FindMemberByName ищет участника доски по префиксу полного имени,
// используется квик-адд парсером для токена @name
func (r *UserRepository) FindMemberByName(ctx context.Context, boardID int, name string) (*model.User, error) {
	var u model.User
	err := r.db.GetContext(ctx, &u,
		`SELECT u.id, u.external_id, u.full_name, u.email, u.avatar_url
		FROM users u JOIN board_members m ON m.user_id = u.id
		WHERE m.board_id=$1 AND u.full_name ILIKE $2 || '%'
		ORDER BY u.full_name LIMIT 1`, boardID, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find member: %w", err)
	}
	return &u, nil
}
