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

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pesio-ai/be-hr-timesheets/internal/auth"
	"github.com/pesio-ai/be-hr-timesheets/internal/client"
	"github.com/pesio-ai/be-hr-timesheets/internal/config"
	"github.com/pesio-ai/be-hr-timesheets/internal/database"
	"github.com/pesio-ai/be-hr-timesheets/internal/handler"
	"github.com/pesio-ai/be-hr-timesheets/internal/logger"
	"github.com/pesio-ai/be-hr-timesheets/internal/repository"
	"github.com/pesio-ai/be-hr-timesheets/internal/service"
)

func main() {
	root := &cobra.Command{
		Use:   "hr-timesheets",
		Short: "HR timesheet calculation and approval service",
	}
	root.AddCommand(serveCmd(), remindCmd(), createAdminCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// deps is the shared wiring for every subcommand.
type deps struct {
	cfg *config.Config
	log zerolog.Logger
	db  *database.DB
}

func setup(ctx context.Context) (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	log := logger.New(logger.Config{
		Level:       cfg.Service.LogLevel,
		Environment: cfg.Service.Environment,
		ServiceName: cfg.Service.Name,
		Version:     cfg.Service.Version,
	})

	db, err := database.New(ctx, database.Config{
		DSN:      cfg.Database.DSN(),
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	log.Info().Msg("Database connection established")

	return &deps{cfg: cfg, log: log, db: db}, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			d, err := setup(ctx)
			if err != nil {
				return err
			}
			defer d.db.Close()

			d.log.Info().
				Str("environment", d.cfg.Service.Environment).
				Msg("Starting HR Timesheets Service")

			notifier, err := client.NewNotificationPublisher(d.cfg.NATS.URL, d.log)
			if err != nil {
				return fmt.Errorf("connect to NATS: %w", err)
			}
			defer notifier.Close()

			timesheetRepo := repository.NewTimesheetRepository(d.db)
			employeeRepo := repository.NewEmployeeRepository(d.db)
			auditRepo := repository.NewAuditRepository(d.db)

			timesheetService := service.NewTimesheetService(timesheetRepo, employeeRepo, auditRepo, notifier, d.log)

			e := echo.New()
			e.HideBanner = true
			e.Use(requestLog(d.log))
			e.Server.ReadTimeout = d.cfg.Server.ReadTimeout
			e.Server.WriteTimeout = d.cfg.Server.WriteTimeout
			e.Server.IdleTimeout = d.cfg.Server.IdleTimeout

			httpHandler := handler.NewHTTPHandler(timesheetService, employeeRepo, d.cfg.JWT.Secret, d.cfg.JWT.TTL, d.log)
			httpHandler.Register(e)

			errCh := make(chan error, 1)
			go func() {
				addr := fmt.Sprintf(":%d", d.cfg.Server.Port)
				d.log.Info().Str("addr", addr).Msg("HTTP server listening")
				if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return fmt.Errorf("http server: %w", err)
			case sig := <-sigCh:
				d.log.Info().Str("signal", sig.String()).Msg("Shutting down")
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), d.cfg.Server.ShutdownTimeout)
			defer shutdownCancel()
			if err := e.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown http server: %w", err)
			}
			d.log.Info().Msg("Server stopped")
			return nil
		},
	}
}

func remindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "Send reminders to employees missing a timesheet for the current week",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			d, err := setup(ctx)
			if err != nil {
				return err
			}
			defer d.db.Close()

			notifier, err := client.NewNotificationPublisher(d.cfg.NATS.URL, d.log)
			if err != nil {
				return fmt.Errorf("connect to NATS: %w", err)
			}
			defer notifier.Close()

			employeeRepo := repository.NewEmployeeRepository(d.db)
			reminders := service.NewReminderService(employeeRepo, notifier, d.log)

			sent, err := reminders.SendReminders(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("sent %d reminder(s)\n", sent)
			return nil
		},
	}
}

func createAdminCmd() *cobra.Command {
	var username, password, fullName string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin employee account",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			d, err := setup(ctx)
			if err != nil {
				return err
			}
			defer d.db.Close()

			hash, err := auth.HashPassword(password)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}

			emp := &repository.Employee{
				Username:     username,
				PasswordHash: hash,
				FullName:     fullName,
				Role:         repository.RoleAdmin,
				CompClass:    repository.CompSalaried,
				Active:       true,
			}
			if err := repository.NewEmployeeRepository(d.db).Create(ctx, emp); err != nil {
				return err
			}
			fmt.Printf("created admin %s (%s)\n", emp.Username, emp.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "login name")
	cmd.Flags().StringVar(&password, "password", "", "initial password")
	cmd.Flags().StringVar(&fullName, "name", "", "display name")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

// requestLog tags each request with a UUID (echoing a client-supplied
// X-Request-ID) and writes one access log line per request.
func requestLog(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, id)

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			log.Info().
				Str("request_id", id).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Int("status", c.Response().Status).
				Dur("duration", time.Since(start)).
				Msg("Request handled")
			return err
		}
	}
}
