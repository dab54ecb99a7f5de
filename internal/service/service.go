// Пакет service реализует бизнес-логику досок, спринтов и задач:
// валидация входных данных, вызовы репозиториев, кэширование результатов,
// публикация событий активности и оповещение подключенных клиентов
package service

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"sprintboard/internal/model"
)

// Cache определяет интерфейс кэширования результатов операций (Redis)
type Cache interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Invalidate(ctx context.Context, key string) error
}

// Logger определяет интерфейс публикации событий активности (NATS)
type Logger interface {
	PublishLog(data []byte) error
	PublishEvent(event interface{}) error
}

// Notifier определяет интерфейс рассылки событий подписчикам доски (WebSocket-хаб)
type Notifier interface {
	Notify(boardID int, data []byte)
}

// cacheTTL задает время жизни записей в кэше, по умолчанию 1 минута или из REDIS_TTL
var cacheTTL = time.Minute

func init() {
	if v := os.Getenv("REDIS_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cacheTTL = d
		}
	}
}

// publishEvent сериализует событие, отправляет его в журнал активности
// и рассылает подписчикам доски. Ошибки публикации не прерывают операцию
func publishEvent(logger Logger, notifier Notifier, ev model.TaskEvent) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	data, _ := json.Marshal(ev)
	if logger != nil {
		_ = logger.PublishLog(data)
	}
	if notifier != nil {
		notifier.Notify(ev.BoardID, data)
	}
}

// nopNotifier используется, когда рассылка клиентам не подключена
type nopNotifier struct{}

func (nopNotifier) Notify(int, []byte) {}
