package consumer

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"sprintboard/internal/model"
)

// Repo описывает интерфейс репозитория ClickHouse для пакетной записи журнала событий
// Метод BatchInsertEvents записывает слайс событий model.TaskEvent
type Repo interface {
	BatchInsertEvents(ctx context.Context, events []model.TaskEvent) error
}

// Consumer буферизует события доски и отправляет их пакетно в ClickHouse
// batchSize определяет макс. количество событий до отправки
// mutex защищает доступ к буферу events

type Consumer struct {
	repo      Repo
	batchSize int
	events    []model.TaskEvent
	mu        sync.Mutex
}

// NewConsumer создаёт Consumer с указанным репозиторием и размером пакета
func NewConsumer(repo Repo, batchSize int) *Consumer {
	return &Consumer{repo: repo, batchSize: batchSize, events: make([]model.TaskEvent, 0, batchSize)}
}

// HandleMessage обрабатывает сообщение из NATS: парсит JSON, добавляет событие в буфер и при достижении batchSize отправляет в ClickHouse
func (c *Consumer) HandleMessage(ctx context.Context, data []byte) error {
	// логируем получение сообщения
	log.Printf("Получено сообщение NATS: %s", string(data))
	// парсим данные в модель TaskEvent
	var ev model.TaskEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return err
	}
	// логируем распарсенное событие
	log.Printf("Получено событие для журнала: %+v", ev)
	c.mu.Lock()
	c.events = append(c.events, ev)
	// если достигли batchSize, сбрасываем буфер
	if len(c.events) >= c.batchSize {
		eventsCopy := make([]model.TaskEvent, len(c.events))
		copy(eventsCopy, c.events)
		c.events = c.events[:0]
		c.mu.Unlock()
		// отправляем пакет событий
		return c.repo.BatchInsertEvents(ctx, eventsCopy)
	}
	c.mu.Unlock()
	return nil
}

// Flush отправляет все накопленные события, если они есть
func (c *Consumer) Flush(ctx context.Context) error {
	c.mu.Lock()
	if len(c.events) == 0 {
		c.mu.Unlock()
		return nil
	}
	eventsCopy := make([]model.TaskEvent, len(c.events))
	copy(eventsCopy, c.events)
	c.events = c.events[:0]
	c.mu.Unlock()
	return c.repo.BatchInsertEvents(ctx, eventsCopy)
}
