package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/tinoosan/firmledger/internal/config"
	"github.com/tinoosan/firmledger/internal/httpapi"
	"github.com/tinoosan/firmledger/internal/ledger"
	"github.com/tinoosan/firmledger/internal/notify"
	"github.com/tinoosan/firmledger/internal/service/account"
	"github.com/tinoosan/firmledger/internal/service/partner"
	"github.com/tinoosan/firmledger/internal/service/posting"
	"github.com/tinoosan/firmledger/internal/service/report"
	"github.com/tinoosan/firmledger/internal/service/settlement"
	"github.com/tinoosan/firmledger/internal/service/statement"
	"github.com/tinoosan/firmledger/internal/storage/memory"
	pgstore "github.com/tinoosan/firmledger/internal/storage/postgres"
	sqlitestore "github.com/tinoosan/firmledger/internal/storage/sqlite"
)

// store is everything the services need from a backend.
type store interface {
	ledger.UnitOfWork
	posting.Repo
	account.Repo
	report.Repo
	partner.Repo
	settlement.Repo
	statement.Repo
	Ready(ctx context.Context) error
	Seed(ctx context.Context, d ledger.Directory) error
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	// Logger (slog to stdout). Level via LOG_LEVEL; format via LOG_FORMAT (json|text, default json)
	logger := buildLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	st, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open storage", "backend", cfg.DataBackend, "err", err)
		os.Exit(1)
	}
	defer closeStore()
	logger.Info("storage backend: " + cfg.DataBackend)

	notifier, closeNotifier := buildNotifier(cfg, logger)
	defer closeNotifier()

	reports := report.New(st)
	partners := partner.New(st, reports)
	deps := httpapi.Deps{
		Posting:        posting.New(st, st, logger),
		Accounts:       account.New(st, st, cfg.ReportingCurrency, logger),
		Reports:        reports,
		Partners:       partners,
		Settlements:    settlement.New(st, st, reports, partners, notifier, logger),
		Statements:     statement.New(st, reports, partners),
		Ready:          st.Ready,
		PostingRetries: cfg.PostingRetries,
	}

	if cfg.DevSeed || cfg.DataBackend == config.BackendMemory {
		seed, err := devSeed(ctx, st, deps.Accounts, cfg.ReportingCurrency)
		if err != nil {
			logger.Error("dev seed failed", "err", err)
		} else {
			logDevSeed(logger, cfg.DataBackend, seed)
			printDevSeedBanner(seed)
		}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpapi.New(deps, logger).Handler(),
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("firmledger service listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			logger.Error("server shutdown error", "err", err)
		}
	case err := <-errCh:
		logger.Error("server error", "err", err)
	}
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store, func(), error) {
	switch cfg.DataBackend {
	case config.BackendPostgres:
		pg, err := pgstore.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := pg.Migrate(); err != nil {
			pg.Close()
			return nil, nil, err
		}
		return pg, pg.Close, nil
	case config.BackendSQLite:
		sq, err := sqlitestore.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return sq, func() {
			if err := sq.Close(); err != nil {
				logger.Warn("closing sqlite", "err", err)
			}
		}, nil
	default:
		return memory.New(), func() {}, nil
	}
}

// buildNotifier publishes to AMQP when configured and falls back to logging.
func buildNotifier(cfg *config.Config, logger *slog.Logger) (notify.Notifier, func()) {
	if cfg.AMQPURL == "" {
		return notify.LogNotifier{Log: logger}, func() {}
	}
	pub, err := notify.Dial(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey, logger)
	if err != nil {
		logger.Warn("AMQP unavailable, settlement events will only be logged", "err", err)
		return notify.LogNotifier{Log: logger}, func() {}
	}
	logger.Info("publishing settlement events", "exchange", cfg.AMQPExchange, "routing_key", cfg.AMQPRoutingKey)
	return pub, func() {
		if err := pub.Close(); err != nil {
			logger.Warn("closing AMQP publisher", "err", err)
		}
	}
}

// parseLogLevel maps env values to slog.Leveler
func parseLogLevel(s string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildLogger(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(level)}
	if format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	// default to JSON
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
