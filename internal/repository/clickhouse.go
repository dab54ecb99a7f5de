package repository

import (
	"context"
	"database/sql"
	"log"
	"time"

	"sprintboard/internal/model"
)

// ClickhouseRepo реализует пакетную запись событий активности в ClickHouse
type ClickhouseRepo struct {
	db *sql.DB
}

// NewClickhouseRepo создает новый репозиторий для ClickHouse
func NewClickhouseRepo(db *sql.DB) *ClickhouseRepo {
	return &ClickhouseRepo{db: db}
}

// BatchInsertEvents записывает пакет событий активности в таблицу task_events_log
// Время события берется из самого события, а при его отсутствии — текущее
func (r *ClickhouseRepo) BatchInsertEvents(ctx context.Context, events []model.TaskEvent) error {
	// начинаем 'транзакцию' для batch insert (clickhouse-go собирает блок при PrepareContext)
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	log.Printf("вставляем пакет из %d событий в ClickHouse", len(events))
	query := `INSERT INTO task_events_log (Action, BoardId, SprintId, ColumnId, TaskId, Title, Points, Position, EventTime) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer func() { _ = stmt.Close() }()
	// выполняем ExecContext для каждой записи; драйвер соберет весь пакет
	for _, e := range events {
		at := e.At
		if at.IsZero() {
			at = time.Now()
		}
		_, err := stmt.ExecContext(ctx,
			e.Action, e.BoardID, e.SprintID, e.ColumnID, e.TaskID,
			e.Title, e.Points, e.Position, at,
		)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	log.Printf("успешно вставлено %d событий в ClickHouse", len(events))
	return nil
}
