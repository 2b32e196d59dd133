package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	birthdayhandler "github.com/kmazurek/birthday-greeter/internal/api/handlers/birthday"
	"github.com/kmazurek/birthday-greeter/internal/api/router"
	"github.com/kmazurek/birthday-greeter/internal/api/server"
	"github.com/kmazurek/birthday-greeter/internal/config"
	"github.com/kmazurek/birthday-greeter/internal/mailer"
	birthdayrepo "github.com/kmazurek/birthday-greeter/internal/repository/birthday"
	birthdaysvc "github.com/kmazurek/birthday-greeter/internal/service/birthday"
	"github.com/kmazurek/birthday-greeter/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zlog.Init()
	cfg := config.Must()
	val := validator.New()

	opts := &dbpg.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}

	slaveDSNs := make([]string, 0, len(cfg.Database.Slaves))
	for _, s := range cfg.Database.Slaves {
		slaveDSNs = append(slaveDSNs, s.DSN())
	}

	db, err := dbpg.New(cfg.Database.Master.DSN(), slaveDSNs, opts)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := retry.Do(func() error {
		return db.Master.PingContext(ctx)
	}, cfg.Retry); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to ping database")
	}

	repo := birthdayrepo.NewRepository(db)
	svc := birthdaysvc.NewService(repo)

	m := mailer.New(mailerConfig(cfg.Email))
	if err := m.Verify(ctx); err != nil {
		// Non-fatal: the process serves the API either way, and the daily
		// check logs skips while email is unconfigured.
		zlog.Logger.Warn().Err(err).Msg("mail transport verification failed")
	}

	checker := worker.NewChecker(svc, m)

	scheduler, err := worker.NewScheduler(checker, cfg.Schedule.DailyAt)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to create scheduler")
	}
	go scheduler.Run(ctx)

	handler := birthdayhandler.NewHandler(svc, checker, val)
	r := router.New(handler)
	s := server.New(cfg.Server.HTTPPort, r)

	go func() {
		zlog.Logger.Info().Str("addr", cfg.Server.HTTPPort).Msg("starting server")
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	zlog.Logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	zlog.Logger.Info().Msg("shutting down server")
	if err := s.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to shutdown server")
	}

	if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
		zlog.Logger.Info().Msg("timeout exceeded, forcing shutdown")
	}

	if err := m.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close mail session")
	}

	if err := db.Master.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close master DB")
	}

	for i, slave := range db.Slaves {
		if err := slave.Close(); err != nil {
			zlog.Logger.Error().Err(err).Msgf("failed to close slave DB %d", i)
		}
	}
}

// mailerConfig converts the environment-facing email configuration into the
// mailer's resolved form.
func mailerConfig(e config.Email) mailer.Config {
	return mailer.Config{
		Provider: e.Provider,

		Service:  e.Service,
		Host:     e.Host,
		Port:     e.Port,
		Secure:   e.Secure,
		User:     e.User,
		Password: e.Password,
		From:     e.From,

		SendGridAPIKey: e.SendGridAPIKey,
		SendGridFrom:   e.SendGridFrom,

		ConnectionTimeout: time.Duration(e.ConnectionTimeoutMs) * time.Millisecond,
		GreetingTimeout:   time.Duration(e.GreetingTimeoutMs) * time.Millisecond,
		SocketTimeout:     time.Duration(e.SocketTimeoutMs) * time.Millisecond,
		Pool:              e.Pool,
		MaxConnections:    e.MaxConnections,
		MaxMessages:       e.MaxMessages,

		RetryCount:     e.RetryCount,
		RetryBaseDelay: time.Duration(e.RetryBaseDelayMs) * time.Millisecond,
	}
}
