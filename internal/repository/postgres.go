// Пакет repository реализует слой доступа к данным Postgres и ClickHouse
package repository

import "errors"

// ErrNotFound возвращается при отсутствии записи
var ErrNotFound = errors.New("record not found")

// ErrEmptyTitle возвращается при попытке создать или обновить задачу с пустым заголовком
var ErrEmptyTitle = errors.New("title cannot be empty")

// ErrEmptyName возвращается при пустом имени доски, спринта, колонки или метки
var ErrEmptyName = errors.New("name cannot be empty")

// ErrInvalidTransition возвращается при недопустимом переходе статуса спринта
// (допустимы только planning -> active -> completed)
var ErrInvalidTransition = errors.New("invalid sprint status transition")

// ErrWIPLimitExceeded возвращается при перемещении задачи в колонку,
// достигшую своего WIP-лимита
var ErrWIPLimitExceeded = errors.New("column wip limit exceeded")

// ErrIsBacklog возвращается при попытке удалить или запустить бэклог-спринт
var ErrIsBacklog = errors.New("backlog sprint cannot be modified")
