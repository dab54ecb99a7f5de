package service

import (
	"context"
	"encoding/json"
	"fmt"

	"sprintboard/internal/model"
)

// BoardRepo определяет интерфейс репозитория досок, меток и участников
type BoardRepo interface {
	CreateBoard(ctx context.Context, orgID int, name, boardType, color string) (*model.Board, error)
	GetBoard(ctx context.Context, id int) (*model.Board, error)
	ListLabels(ctx context.Context, boardID int) ([]model.Label, error)
	CreateLabel(ctx context.Context, boardID int, name, color string) (*model.Label, error)
	UpdateLabel(ctx context.Context, id int, name, color string) (*model.Label, error)
	DeleteLabel(ctx context.Context, id int) (*model.Label, error)
	ListMembers(ctx context.Context, boardID int) ([]model.User, error)
	AddMember(ctx context.Context, boardID, userID int) error
}

// UserRepo определяет интерфейс репозитория пользователей
type UserRepo interface {
	SyncUser(ctx context.Context, externalID, fullName, email string, avatarURL *string) (*model.User, error)
	GetUser(ctx context.Context, id int) (*model.User, error)
}

// BoardService реализует операции с досками, метками, участниками
// и синхронизацию пользователей из внешнего провайдера аутентификации
type BoardService struct {
	repo  BoardRepo
	users UserRepo
	cache Cache
}

// NewBoardService создает новый сервис досок
func NewBoardService(r BoardRepo, u UserRepo, c Cache) *BoardService {
	return &BoardService{repo: r, users: u, cache: c}
}

// CreateBoard создает доску вместе с бэклогом
func (s *BoardService) CreateBoard(ctx context.Context, orgID int, name, boardType, color string) (*model.Board, error) {
	return s.repo.CreateBoard(ctx, orgID, name, boardType, color)
}

// GetBoard возвращает доску по id
func (s *BoardService) GetBoard(ctx context.Context, id int) (*model.Board, error) {
	return s.repo.GetBoard(ctx, id)
}

// Labels возвращает метки доски через кэш
func (s *BoardService) Labels(ctx context.Context, boardID int) ([]model.Label, error) {
	key := fmt.Sprintf("labels:%d", boardID)
	if bytes, err := s.cache.Get(ctx, key); err == nil {
		var labels []model.Label
		_ = json.Unmarshal(bytes, &labels)
		return labels, nil
	}
	labels, err := s.repo.ListLabels(ctx, boardID)
	if err != nil {
		return nil, err
	}
	data, _ := json.Marshal(labels)
	_ = s.cache.Set(ctx, key, data, cacheTTL)
	return labels, nil
}

// CreateLabel добавляет метку и инвалидирует кэш меток доски
func (s *BoardService) CreateLabel(ctx context.Context, boardID int, name, color string) (*model.Label, error) {
	label, err := s.repo.CreateLabel(ctx, boardID, name, color)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("labels:%d", boardID))
	return label, nil
}

// UpdateLabel обновляет метку
func (s *BoardService) UpdateLabel(ctx context.Context, id int, name, color string) (*model.Label, error) {
	label, err := s.repo.UpdateLabel(ctx, id, name, color)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("labels:%d", label.BoardID))
	return label, nil
}

// RemoveLabel удаляет метку вместе с привязками к задачам
func (s *BoardService) RemoveLabel(ctx context.Context, id int) error {
	label, err := s.repo.DeleteLabel(ctx, id)
	if err != nil {
		return err
	}
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("labels:%d", label.BoardID))
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("backlog:%d", label.BoardID))
	return nil
}

// Members возвращает участников доски через кэш
func (s *BoardService) Members(ctx context.Context, boardID int) ([]model.User, error) {
	key := fmt.Sprintf("members:%d", boardID)
	if bytes, err := s.cache.Get(ctx, key); err == nil {
		var users []model.User
		_ = json.Unmarshal(bytes, &users)
		return users, nil
	}
	users, err := s.repo.ListMembers(ctx, boardID)
	if err != nil {
		return nil, err
	}
	data, _ := json.Marshal(users)
	_ = s.cache.Set(ctx, key, data, cacheTTL)
	return users, nil
}

// AddMember добавляет участника доски и инвалидирует кэш участников
func (s *BoardService) AddMember(ctx context.Context, boardID, userID int) error {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return err
	}
	if err := s.repo.AddMember(ctx, boardID, userID); err != nil {
		return err
	}
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("members:%d", boardID))
	return nil
}

// SyncUser создает или обновляет пользователя по внешней идентичности,
// вызывается при каждом логине
func (s *BoardService) SyncUser(ctx context.Context, externalID, fullName, email string, avatarURL *string) (*model.User, error) {
	return s.users.SyncUser(ctx, externalID, fullName, email, avatarURL)
}
