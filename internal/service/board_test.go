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

// mockBoardRepo реализует интерфейс репозитория досок для тестирования BoardService
type mockBoardRepo struct {
	createBoardFn func(ctx context.Context, orgID int, name, boardType, color string) (*model.Board, error)
	getBoardFn    func(ctx context.Context, id int) (*model.Board, error)
	listLabelsFn  func(ctx context.Context, boardID int) ([]model.Label, error)
	createLabelFn func(ctx context.Context, boardID int, name, color string) (*model.Label, error)
	updateLabelFn func(ctx context.Context, id int, name, color string) (*model.Label, error)
	deleteLabelFn func(ctx context.Context, id int) (*model.Label, error)
	listMembersFn func(ctx context.Context, boardID int) ([]model.User, error)
	addMemberFn   func(ctx context.Context, boardID, userID int) error
}

func (m *mockBoardRepo) CreateBoard(ctx context.Context, orgID int, name, boardType, color string) (*model.Board, error) {
	return m.createBoardFn(ctx, orgID, name, boardType, color)
}
func (m *mockBoardRepo) GetBoard(ctx context.Context, id int) (*model.Board, error) {
	return m.getBoardFn(ctx, id)
}
func (m *mockBoardRepo) ListLabels(ctx context.Context, boardID int) ([]model.Label, error) {
	return m.listLabelsFn(ctx, boardID)
}
func (m *mockBoardRepo) CreateLabel(ctx context.Context, boardID int, name, color string) (*model.Label, error) {
	return m.createLabelFn(ctx, boardID, name, color)
}
func (m *mockBoardRepo) UpdateLabel(ctx context.Context, id int, name, color string) (*model.Label, error) {
	return m.updateLabelFn(ctx, id, name, color)
}
func (m *mockBoardRepo) DeleteLabel(ctx context.Context, id int) (*model.Label, error) {
	return m.deleteLabelFn(ctx, id)
}
func (m *mockBoardRepo) ListMembers(ctx context.Context, boardID int) ([]model.User, error) {
	return m.listMembersFn(ctx, boardID)
}
func (m *mockBoardRepo) AddMember(ctx context.Context, boardID, userID int) error {
	return m.addMemberFn(ctx, boardID, userID)
}

// mockUserRepo реализует интерфейс репозитория пользователей
type mockUserRepo struct {
	syncFn func(ctx context.Context, externalID, fullName, email string, avatarURL *string) (*model.User, error)
	getFn  func(ctx context.Context, id int) (*model.User, error)
}

func (m *mockUserRepo) SyncUser(ctx context.Context, externalID, fullName, email string, avatarURL *string) (*model.User, error) {
	return m.syncFn(ctx, externalID, fullName, email, avatarURL)
}
func (m *mockUserRepo) GetUser(ctx context.Context, id int) (*model.User, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return &model.User{ID: id}, nil
}

// TestBoardCreate проверяет создание доски
func TestBoardCreate(t *testing.T) {
	repo := &mockBoardRepo{
		createBoardFn: func(ctx context.Context, orgID int, name, boardType, color string) (*model.Board, error) {
			if boardType != model.BoardScrum {
				t.Errorf("expected scrum board, got %q", boardType)
			}
			return &model.Board{ID: 7, OrganizationID: orgID, Name: name, Type: boardType, Color: color}, nil
		},
	}
	svc := NewBoardService(repo, &mockUserRepo{}, &mockCache{})

	board, err := svc.CreateBoard(context.Background(), 1, "Payments", model.BoardScrum, "#3b82f6")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if board.ID != 7 || board.Name != "Payments" {
		t.Errorf("unexpected board: %+v", board)
	}
}

// TestBoardLabels проверяет кэш-эсайд для меток доски
func TestBoardLabels(t *testing.T) {
	labels := []model.Label{{ID: 31, BoardID: 7, Name: "urgent", Color: "#ef4444"}}
	calls := 0
	repo := &mockBoardRepo{
		listLabelsFn: func(ctx context.Context, boardID int) ([]model.Label, error) {
			calls++
			return labels, nil
		},
	}
	var saved []byte
	cache := &mockCache{
		set: func(ctx context.Context, key string, value []byte, ttl time.Duration) error {
			if key != "labels:7" {
				t.Errorf("expected cache key labels:7, got %q", key)
			}
			saved = value
			return nil
		},
	}
	svc := NewBoardService(repo, &mockUserRepo{}, cache)

	got, err := svc.Labels(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, labels) || calls != 1 {
		t.Errorf("expected repo-backed labels, got %v (calls=%d)", got, calls)
	}

	cache.get = func(ctx context.Context, key string) ([]byte, error) { return saved, nil }
	got, err = svc.Labels(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 || !reflect.DeepEqual(got, labels) {
		t.Errorf("expected cache hit, got %v (calls=%d)", got, calls)
	}
}

// TestBoardCreateLabel проверяет инвалидацию кэша меток при создании
func TestBoardCreateLabel(t *testing.T) {
	repo := &mockBoardRepo{
		createLabelFn: func(ctx context.Context, boardID int, name, color string) (*model.Label, error) {
			return &model.Label{ID: 31, BoardID: boardID, Name: name, Color: color}, nil
		},
	}
	cache := newRecordingCache()
	svc := NewBoardService(repo, &mockUserRepo{}, cache)

	label, err := svc.CreateLabel(context.Background(), 7, "urgent", "#ef4444")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if label.Name != "urgent" {
		t.Errorf("unexpected label: %+v", label)
	}
	if !cache.invalidatedKey("labels:7") {
		t.Errorf("expected labels:7 invalidation, got %v", cache.invalidated)
	}
}

// TestBoardCreateLabel_EmptyName проверяет проброс ошибки валидации
func TestBoardCreateLabel_EmptyName(t *testing.T) {
	repo := &mockBoardRepo{
		createLabelFn: func(ctx context.Context, boardID int, name, color string) (*model.Label, error) {
			return nil, repository.ErrEmptyName
		},
	}
	cache := newRecordingCache()
	svc := NewBoardService(repo, &mockUserRepo{}, cache)

	_, err := svc.CreateLabel(context.Background(), 7, "", "")
	if !errors.Is(err, repository.ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	if len(cache.invalidated) != 0 {
		t.Error("failed create must not invalidate cache")
	}
}

// TestBoardRemoveLabel проверяет, что удаление метки инвалидирует
// и кэш меток, и бэклог, где метка могла отображаться
func TestBoardRemoveLabel(t *testing.T) {
	repo := &mockBoardRepo{
		deleteLabelFn: func(ctx context.Context, id int) (*model.Label, error) {
			return &model.Label{ID: id, BoardID: 7, Name: "urgent"}, nil
		},
	}
	cache := newRecordingCache()
	svc := NewBoardService(repo, &mockUserRepo{}, cache)

	if err := svc.RemoveLabel(context.Background(), 31); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, key := range []string{"labels:7", "backlog:7"} {
		if !cache.invalidatedKey(key) {
			t.Errorf("expected %s invalidation, got %v", key, cache.invalidated)
		}
	}
}

// TestBoardMembers проверяет кэш-эсайд для участников доски
func TestBoardMembers(t *testing.T) {
	members := []model.User{{ID: 8, ExternalID: "auth0|1", FullName: "Alice Smith", Email: "alice@example.com"}}
	repo := &mockBoardRepo{
		listMembersFn: func(ctx context.Context, boardID int) ([]model.User, error) {
			return members, nil
		},
	}
	var savedKey string
	cache := &mockCache{
		set: func(ctx context.Context, key string, value []byte, ttl time.Duration) error {
			savedKey = key
			return nil
		},
	}
	svc := NewBoardService(repo, &mockUserRepo{}, cache)

	got, err := svc.Members(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, members) {
		t.Errorf("expected %v, got %v", members, got)
	}
	if savedKey != "members:7" {
		t.Errorf("expected cache key members:7, got %q", savedKey)
	}
}

// TestBoardAddMember проверяет, что участник сперва проверяется
// по репозиторию пользователей, затем добавляется на доску
func TestBoardAddMember(t *testing.T) {
	added := false
	repo := &mockBoardRepo{
		addMemberFn: func(ctx context.Context, boardID, userID int) error {
			added = true
			return nil
		},
	}
	users := &mockUserRepo{
		getFn: func(ctx context.Context, id int) (*model.User, error) {
			if id != 8 {
				t.Errorf("expected user 8 lookup, got %d", id)
			}
			return &model.User{ID: id}, nil
		},
	}
	cache := newRecordingCache()
	svc := NewBoardService(repo, users, cache)

	if err := svc.AddMember(context.Background(), 7, 8); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !added {
		t.Error("expected AddMember call")
	}
	if !cache.invalidatedKey("members:7") {
		t.Errorf("expected members:7 invalidation, got %v", cache.invalidated)
	}
}

// TestBoardAddMember_UnknownUser проверяет отказ для несуществующего пользователя
func TestBoardAddMember_UnknownUser(t *testing.T) {
	repo := &mockBoardRepo{
		addMemberFn: func(ctx context.Context, boardID, userID int) error {
			t.Fatal("unknown user must not be added to the board")
			return nil
		},
	}
	users := &mockUserRepo{
		getFn: func(ctx context.Context, id int) (*model.User, error) {
			return nil, repository.ErrNotFound
		},
	}
	svc := NewBoardService(repo, users, &mockCache{})

	if err := svc.AddMember(context.Background(), 7, 99); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// TestBoardSyncUser проверяет делегирование синхронизации пользователя
func TestBoardSyncUser(t *testing.T) {
	users := &mockUserRepo{
		syncFn: func(ctx context.Context, externalID, fullName, email string, avatarURL *string) (*model.User, error) {
			return &model.User{ID: 8, ExternalID: externalID, FullName: fullName, Email: email, AvatarURL: avatarURL}, nil
		},
	}
	svc := NewBoardService(&mockBoardRepo{}, users, &mockCache{})

	u, err := svc.SyncUser(context.Background(), "auth0|1", "Alice Smith", "alice@example.com", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ExternalID != "auth0|1" || u.FullName != "Alice Smith" {
		t.Errorf("unexpected user: %+v", u)
	}
}

// TestBoardLabels_CachedPayload проверяет, что кэшированные метки
// корректно десериализуются
func TestBoardLabels_CachedPayload(t *testing.T) {
	labels := []model.Label{{ID: 31, BoardID: 7, Name: "urgent", Color: "#ef4444"}}
	data, _ := json.Marshal(labels)
	repo := &mockBoardRepo{
		listLabelsFn: func(ctx context.Context, boardID int) ([]model.Label, error) {
			t.Fatal("repository must not be called on cache hit")
			return nil, nil
		},
	}
	cache := &mockCache{
		get: func(ctx context.Context, key string) ([]byte, error) { return data, nil },
	}
	svc := NewBoardService(repo, &mockUserRepo{}, cache)

	got, err := svc.Labels(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, labels) {
		t.Errorf("expected %v, got %v", labels, got)
	}
}
