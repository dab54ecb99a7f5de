package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	nats "github.com/nats-io/nats.go"
	"github.com/robfig/cron/v3"
	"github.com/rs/cors"

	"sprintboard/internal/model"
	"sprintboard/internal/repository"
	"sprintboard/internal/service"
	externalHttp "sprintboard/internal/transport/http"
	"sprintboard/pkg/cache"
	"sprintboard/pkg/logger"
	"sprintboard/pkg/realtime"
)

func main() {
	// подгружаем .env, если он есть; в контейнере переменные приходят из окружения
	if err := godotenv.Load(); err != nil {
		log.Printf(".env не найден, используем переменные окружения")
	}
	// читаем переменные окружения
	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		log.Printf("DB_NAME не задан, используем базу по умолчанию 'sprintboard'")
		dbName = "sprintboard"
	}
	natsURL := os.Getenv("NATS_URL")
	natsSubject := os.Getenv("NATS_SUBJECT")
	if natsSubject == "" {
		natsSubject = "board.events"
	}
	redisAddr := os.Getenv("REDIS_ADDR")
	corsOrigin := os.Getenv("CORS_ORIGIN")
	if corsOrigin == "" {
		corsOrigin = "*"
	}
	// подключаем Postgres
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", dbUser, dbPassword, dbHost, dbPort, dbName)
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		log.Fatalf("failed to connect to Postgres: %v", err)
	}
	defer func() { _ = db.Close() }()

	// Применяем миграции Postgres с помощью golang-migrate
	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		log.Fatalf("failed to create migrate driver: %v", err)
	}
	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations/postgres", "postgres", driver,
	)
	if err != nil {
		log.Fatalf("failed to create migrate instance: %v", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		log.Fatalf("failed to apply migrations: %v", err)
	}

	// подключаем Redis
	rClient := redis.NewClient(&redis.Options{Addr: redisAddr})
	cacheClient := cache.NewRedisClient(rClient.Options())
	// сбрасываем кэшированные представления прошлого деплоя:
	// после миграций их формат мог измениться
	for _, prefix := range []string{"backlog:", "sprints:", "sprint:tasks:", "labels:", "members:", "burndown:"} {
		if err := cacheClient.InvalidatePrefix(context.Background(), prefix); err != nil {
			log.Printf("failed to flush cache prefix %s: %v", prefix, err)
		}
	}
	// подключаем NATS
	nc, err := nats.Connect(natsURL)
	if err != nil {
		log.Fatalf("failed to connect to NATS: %v", err)
	}
	loggerClient := logger.NewClient(nc, natsSubject)
	// запускаем хаб рассылки событий по WebSocket
	hub := realtime.NewHub()
	go hub.Run()
	// создаем репозитории и сервисы
	boardRepo := repository.NewBoardRepository(db)
	userRepo := repository.NewUserRepository(db)
	sprintRepo := repository.NewSprintRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	boardSrv := service.NewBoardService(boardRepo, userRepo, cacheClient)
	sprintSrv := service.NewSprintService(sprintRepo, cacheClient, loggerClient, hub)
	taskSrv := service.NewTaskService(taskRepo, &quickAddLookup{boards: boardRepo, users: userRepo}, cacheClient, loggerClient, hub)
	// планировщик ежедневных срезов для burndown
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@midnight", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := sprintSrv.PublishSnapshots(ctx); err != nil {
			log.Printf("failed to publish sprint snapshots: %v", err)
		}
	}); err != nil {
		log.Fatalf("failed to schedule snapshot job: %v", err)
	}
	scheduler.Start()
	// настраиваем HTTP маршруты
	// подключаем middleware для логирования HTTP-запросов и request id
	r := mux.NewRouter()
	r.Use(externalHttp.RequestIDMiddleware())
	r.Use(externalHttp.LoggingMiddleware())
	h := externalHttp.NewHandler(boardSrv, sprintSrv, taskSrv, hub)
	h.RegisterRoutes(r)
	// оборачиваем роутер в CORS, фронтенд живет на другом origin
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{corsOrigin},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-Request-Id"},
		AllowCredentials: true,
	})
	// запускаем HTTP сервер с поддержкой graceful shutdown
	addr := ":8080"
	if port := os.Getenv("APP_PORT"); port != "" {
		addr = ":" + port
	}
	srvHttp := &http.Server{Addr: addr, Handler: c.Handler(r)}
	// запуск сервера в горутине
	go func() {
		log.Printf("starting server at %s", addr)
		if err := srvHttp.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()
	// ожидаем сигнал для graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Printf("shutting down server...")
	// останавливаем планировщик и ждем активные задания
	<-scheduler.Stop().Done()
	// контекст с таймаутом для остановки
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srvHttp.Shutdown(ctx); err != nil {
		log.Fatalf("server shutdown failed: %v", err)
	}
	log.Printf("server exited properly")
	// закрываем Redis-клиент
	if err := rClient.Close(); err != nil {
		log.Printf("failed to close Redis client: %v", err)
	}
	// корректно дренируем и закрываем NATS-соединение
	if err := nc.Drain(); err != nil {
		log.Printf("failed to drain NATS connection: %v", err)
	}
	nc.Close()
}

// quickAddLookup объединяет репозитории доски и пользователей
// для разрешения токенов @name и +label при быстром создании задач
type quickAddLookup struct {
	boards *repository.BoardRepository
	users  *repository.UserRepository
}

func (l *quickAddLookup) FindLabelByName(ctx context.Context, boardID int, name string) (*model.Label, error) {
	return l.boards.FindLabelByName(ctx, boardID, name)
}

func (l *quickAddLookup) FindMemberByName(ctx context.Context, boardID int, name string) (*model.User, error) {
	return l.users.FindMemberByName(ctx, boardID, name)
}
