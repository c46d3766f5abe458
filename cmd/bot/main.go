package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"students-bot/internal/config"
	"students-bot/internal/dialog"
	"students-bot/internal/logging"
	"students-bot/internal/scheduler"
	"students-bot/internal/server"
	"students-bot/internal/session"
	"students-bot/internal/sheets"
	"students-bot/internal/store"
	"students-bot/internal/tgbot"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	log := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("stopped", "err", err)
		os.Exit(1)
	}
	log.Info("bye")
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.NewFileStore(cfg.DBPath, log)
	if err != nil {
		return err
	}

	machine := dialog.New(st, session.NewStore(), log)
	botApp, err := tgbot.New(cfg, machine, log)
	if err != nil {
		return err
	}

	sched := scheduler.New(log)
	if err := sched.AddBackup(cfg.BackupSchedule, st, cfg.BackupDir, cfg.BackupKeep); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.SheetsEnabled() {
		client, err := sheets.New(gctx, cfg.GoogleServiceAccountJSON, cfg.SpreadsheetID)
		if err != nil {
			return err
		}
		log.Info("sheets mirror enabled", "spreadsheet", client.SpreadsheetID(), "tab", cfg.SheetsTab)
		mirror := sheets.NewMirror(client, cfg.SheetsTab, log)
		if all, err := st.Load(); err == nil {
			mirror.Notify(all)
		}
		st.OnChange(mirror.Notify)
		g.Go(func() error { return mirror.Run(gctx) })
	}

	httpSrv := server.New(cfg, st, log)
	g.Go(func() error {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	g.Go(func() error { return botApp.Run(gctx) })

	log.Info("started", "db", st.Path(), "sheets", cfg.SheetsEnabled(), "operators", len(cfg.OperatorIDs))
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
