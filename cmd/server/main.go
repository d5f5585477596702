package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"focusjournal/backend/internal/config"
	"focusjournal/backend/internal/db"
	"focusjournal/backend/internal/handler"
	"focusjournal/backend/internal/logging"
	"focusjournal/backend/internal/realtime"
	"focusjournal/backend/internal/repository"
	"focusjournal/backend/internal/router"
	"focusjournal/backend/internal/service"
	"focusjournal/backend/internal/ticker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:          "server",
		Short:        "Run the focus journal API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file")
	return cmd
}

func run(parent context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	if err := db.RunMigrations(database, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	hub := realtime.NewHub(realtime.DefaultBuffer)
	calendar := service.NewCalendar(loc, time.Now)

	userRepo := repository.NewUserRepository(database)
	timerRepo := repository.NewTimerRepository(database)

	authService := service.NewAuthService(userRepo, timerRepo, cfg.JWTSecret, cfg.TokenTTL)
	timerService := service.NewTimerService(timerRepo, cfg.Policy(), service.WithPublisher(hub))
	taskRepo := repository.NewTaskRepository(database)
	reflectionRepo := repository.NewReflectionRepository(database)
	taskService := service.NewTaskService(taskRepo, calendar)
	courseService := service.NewCourseService(repository.NewCourseRepository(database), calendar)
	reflectionService := service.NewReflectionService(reflectionRepo, calendar)
	dashboardService := service.NewDashboardService(taskService, courseService, timerService, calendar)
	statsService := service.NewStatsService(taskRepo, reflectionRepo, timerService, calendar)

	engine := router.New(authService, router.Handlers{
		Auth:       handler.NewAuthHandler(authService),
		Timer:      handler.NewTimerHandler(timerService, hub),
		Tasks:      handler.NewTaskHandler(taskService),
		Courses:    handler.NewCourseHandler(courseService),
		Reflection: handler.NewReflectionHandler(reflectionService),
		Dashboard:  handler.NewDashboardHandler(dashboardService),
		Stats:      handler.NewStatsHandler(statsService),
	}, cfg.CORSOrigins)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info().Str("addr", server.Addr).Str("timezone", loc.String()).Msg("backend listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("run server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		return ticker.New(timerService, cfg.TickInterval).Run(ctx)
	})
	group.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
