package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"sprintboard/internal/model"
)

func TestBatchInsertEvents(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	repo := NewClickhouseRepo(db)
	defer db.Close()

	at := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	events := []model.TaskEvent{
		{Action: model.EventTaskMoved, BoardID: 2, SprintID: 15, ColumnID: 1, TaskID: 21, Title: "Задача", Points: 3, Position: 2, At: at},
		{Action: model.EventSprintFinished, BoardID: 2, SprintID: 15, Points: 4, Position: 1},
	}

	// Ожидаем начало транзакции
	mock.ExpectBegin()
	// Ожидаем подготовку запроса и по одному Exec на каждое событие
	prep := mock.ExpectPrepare("INSERT INTO task_events_log")
	prep.ExpectExec().
		WithArgs("task.moved", 2, 15, 1, 21, "Задача", 3, 2, at).
		WillReturnResult(sqlmock.NewResult(1, 1))
	// у второго события нет времени — подставляется текущее
	prep.ExpectExec().
		WithArgs("sprint.finished", 2, 15, 0, 0, "", 4, 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	// Ожидаем коммит
	mock.ExpectCommit()

	err = repo.BatchInsertEvents(context.Background(), events)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
