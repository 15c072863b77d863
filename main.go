package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"bankcards/cache"
	"bankcards/config"
	"bankcards/controllers"
	"bankcards/database"
	"bankcards/services"
	"bankcards/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	// Инициализируем конфигурацию
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	if err := utils.InitLogger(cfg.Log); err != nil {
		log.Fatalf("Ошибка настройки логирования: %v", err)
	}
	defer utils.CloseLogger()

	if err := run(cfg); err != nil {
		utils.LogError("server stopped with error: %v", err)
		_ = utils.CloseLogger()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	// Инициализируем подключение к базе данных
	db, err := database.NewDatabase(cfg.DB)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	cardStore := database.NewCardStore(db.DB)
	userService := services.NewUserService(db, cardStore)

	if err := seedAdmin(context.Background(), userService, cfg.Admin); err != nil {
		return fmt.Errorf("admin: %w", err)
	}

	// Уведомления по email включаются настройкой smtp.enabled
	var notifier services.Notifier = services.NopNotifier{}
	if cfg.SMTP.Enabled {
		notifier = services.NewEmailService(cfg.SMTP, db)
	}

	cardService := services.NewCardService(cardStore, userService, notifier, cfg.Ledger)
	authService := services.NewAuthService(userService, cfg.JWT)

	limiter := utils.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	jobs := []services.MaintenanceJob{{
		Name:     "rate-limit-cleanup",
		Interval: cfg.Server.CleanupInterval,
		Run: func(context.Context) (int, error) {
			return limiter.Cleanup(), nil
		},
	}}

	// Ключи идемпотентности: Redis, если настроен, иначе память процесса
	var idempotency cache.IdempotencyStore
	if cfg.Redis.Addr != "" {
		rdb, err := cache.NewRedisClient(cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rdb.Close()
		idempotency = cache.NewRedisIdempotencyStore(rdb, cfg.Redis.IdempotencyTTL)
	} else {
		memory := cache.NewMemoryIdempotencyStore(cfg.Redis.IdempotencyTTL)
		jobs = append(jobs, services.MaintenanceJob{
			Name:     "idempotency-purge",
			Interval: cfg.Server.CleanupInterval,
			Run: func(context.Context) (int, error) {
				return memory.Purge(), nil
			},
		})
		idempotency = memory
	}

	gin.SetMode(gin.ReleaseMode)
	router := controllers.NewRouter(controllers.Dependencies{
		Auth:        authService,
		Users:       userService,
		Cards:       cardService,
		Idempotency: idempotency,
		Limiter:     limiter,
		Metrics:     utils.GetMetrics(),
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := services.NewMaintenanceScheduler(jobs...)
	scheduler.Start(ctx)
	defer func() {
		stop()
		scheduler.Wait()
	}()

	serverErr := make(chan error, 1)
	go func() {
		utils.LogInfo("Сервер запущен на порту %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	utils.LogInfo("Остановка сервера")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// seedAdmin создает администратора из настроек, если его еще нет
func seedAdmin(ctx context.Context, users *services.UserService, cfg config.AdminConfig) error {
	if cfg.Email == "" {
		return nil
	}

	_, err := users.CreateAdmin(ctx, services.CreateUserRequest{
		Name:     cfg.Name,
		Email:    cfg.Email,
		Password: cfg.Password,
	})
	switch {
	case err == nil:
		utils.LogInfo("Создан администратор %s", cfg.Email)
	case errors.Is(err, services.ErrDuplicateEmail):
		return nil
	}
	return err
}
