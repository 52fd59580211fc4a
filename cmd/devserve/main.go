package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"

	"github.com/igormichalak/devserve/internal/config"
	"github.com/igormichalak/devserve/internal/logger"
	"github.com/igormichalak/devserve/internal/reload"
	"github.com/igormichalak/devserve/internal/server"
	"github.com/igormichalak/devserve/internal/watch"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "devserve: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log, err := logger.New(os.Stderr, cfg.LogFormat, level)
	if err != nil {
		return err
	}
	if cfg.ConfigFile != "" {
		log.Info("config loaded", "path", cfg.ConfigFile)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT)
	defer stop()

	broadcaster := reload.NewBroadcaster(log.With("component", "reload"))
	srv := server.New(cfg, broadcaster, log.With("component", "server"))

	watchDone := make(chan error, 1)
	if cfg.Reload {
		w, err := watch.New(cfg.Root, cfg.Ignore, cfg.Debounce, func(ev fsnotify.Event) {
			path := ev.Name
			if rel, err := filepath.Rel(cfg.Root, ev.Name); err == nil {
				path = rel
			}
			log.Info("source changed, reloading", "path", path, "op", ev.Op.String(), "clients", broadcaster.Subscribers())
			broadcaster.Notify(reload.Change{Path: path, Op: ev.Op.String(), At: time.Now()})
		}, log.With("component", "watch"))
		if err != nil {
			return err
		}
		log.Debug("watching", "dirs", len(w.Watched()), "debounce", cfg.Debounce)
		go func() { watchDone <- w.Run(ctx) }()
	} else {
		watchDone <- nil
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", srv.Addr(), "root", cfg.Root, "reload", cfg.Reload)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}
	stop()
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	if err := <-watchDone; err != nil {
		log.Warn("watcher stopped", "err", err)
	}
	log.Info("server gracefully stopped")
	return nil
}
